package main

import (
	"fmt"
	"io"

	"github.com/scott-cotton/cli"
	"github.com/signadot/xmlh/parse"
	"github.com/signadot/xmlh/tree"
)

// getDocFile parses path, or the command input for "-". Files are read
// as HTML when their name says so, unless a format was requested.
func getDocFile(cc *cli.Context, path string, opts ...parse.ParseOption) (*tree.Document, error) {
	if path != "-" {
		return parse.ParseFile(path, opts...)
	}
	d, err := io.ReadAll(cc.In)
	if err != nil {
		return nil, fmt.Errorf("error reading %q: %w", path, err)
	}
	return parse.Parse(d, opts...)
}

// eachDoc calls f on each parsed document, or on the command input when
// no files are given.
func eachDoc(cfg *MainConfig, cc *cli.Context, files []string, f func(file string, doc *tree.Document) error) error {
	if len(files) == 0 {
		files = []string{"-"}
	}
	for _, file := range files {
		doc, err := getDocFile(cc, file, cfg.parseOpts()...)
		if err != nil {
			return fmt.Errorf("error decoding %s: %w", file, err)
		}
		err = f(file, doc)
		doc.Close()
		if err != nil {
			return fmt.Errorf("error processing %s: %w", file, err)
		}
	}
	return nil
}
