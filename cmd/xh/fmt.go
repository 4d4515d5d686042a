package main

import (
	"github.com/scott-cotton/cli"
	"github.com/signadot/xmlh/encode"
	"github.com/signadot/xmlh/tree"
)

func fmtDocs(cfg *FmtConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Fmt.Parse(cc, args)
	if err != nil {
		return err
	}
	opts := cfg.encOpts(cc.Out)
	return eachDoc(cfg.MainConfig, cc, args, func(_ string, doc *tree.Document) error {
		return encode.Encode(doc, cc.Out, opts...)
	})
}
