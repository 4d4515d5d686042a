package main

import (
	"fmt"

	"github.com/scott-cotton/cli"
	"github.com/signadot/xmlh/libdiff"
	"github.com/signadot/xmlh/tree"
)

func diff(cfg *DiffConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Diff.Parse(cc, args)
	if err != nil {
		cfg.Diff.Usage(cc, err)
		return cli.ExitCodeErr(1)
	}
	if len(args) != 2 {
		return fmt.Errorf("%w: diff requires 2 args, got %v", cli.ErrUsage, args)
	}
	a, err := getDocFile(cc, args[0], cfg.parseOpts()...)
	if err != nil {
		return fmt.Errorf("error decoding %s: %w", args[0], err)
	}
	defer a.Close()
	b, err := getDocFile(cc, args[1], cfg.parseOpts()...)
	if err != nil {
		return fmt.Errorf("error decoding %s: %w", args[1], err)
	}
	defer b.Close()
	var c14n *tree.C14NOptions
	if cfg.Canonical {
		c14n = &tree.C14NOptions{}
	}
	lines, err := libdiff.Documents(a, b, c14n)
	if err != nil {
		return err
	}
	if !libdiff.Differs(lines) {
		return nil
	}
	if cfg.Reverse {
		lines = libdiff.Reverse(lines)
	}
	if err := libdiff.Write(cc.Out, lines, cfg.Context, cfg.colored(cc.Out)); err != nil {
		return err
	}
	return cli.ExitCodeErr(1)
}
