package main

import (
	"fmt"
	"strings"

	"github.com/scott-cotton/cli"
	"github.com/signadot/xmlh/encode"
	"github.com/signadot/xmlh/tree"
)

func parseC14NMode(v string) (tree.C14NMode, error) {
	m, ok := map[string]tree.C14NMode{
		"exc-c14n": tree.Exclusive10,
		"exc":      tree.Exclusive10,
		"c14n":     tree.C14N10,
		"c14n11":   tree.C14N11,
	}[strings.ToLower(v)]
	if !ok {
		return 0, fmt.Errorf("%w: unknown canonicalization mode %q", cli.ErrUsage, v)
	}
	return m, nil
}

func (cfg *C14NConfig) options() (tree.C14NOptions, error) {
	mode, err := parseC14NMode(cfg.Mode)
	if err != nil {
		return tree.C14NOptions{}, err
	}
	o := tree.C14NOptions{Mode: mode, WithComments: cfg.Comments}
	if cfg.Inclusive != "" {
		o.InclusiveNsPrefixes = strings.Split(cfg.Inclusive, ",")
	}
	return o, nil
}

func canonicalize(cfg *C14NConfig, cc *cli.Context, args []string) error {
	args, err := cfg.C14N.Parse(cc, args)
	if err != nil {
		return err
	}
	o, err := cfg.options()
	if err != nil {
		return err
	}
	return eachDoc(cfg.MainConfig, cc, args, func(_ string, doc *tree.Document) error {
		if err := encode.Encode(doc, cc.Out, encode.Canonical(o)); err != nil {
			return err
		}
		_, err := cc.Out.Write([]byte("\n"))
		return err
	})
}
