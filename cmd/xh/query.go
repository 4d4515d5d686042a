package main

import (
	"fmt"

	"github.com/scott-cotton/cli"
	"github.com/signadot/xmlh/encode"
	"github.com/signadot/xmlh/filter"
	"github.com/signadot/xmlh/tree"
	"github.com/signadot/xmlh/xpath"
)

func query(cfg *QueryConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Query.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return fmt.Errorf("%w: query requires an expression", cli.ErrUsage)
	}
	expr, files := args[0], args[1:]
	if !xpath.Compiles(expr) {
		return fmt.Errorf("%w: invalid expression %q", cli.ErrUsage, expr)
	}
	var where *filter.Filter
	if cfg.Where != "" {
		where, err = filter.Compile(cfg.Where)
		if err != nil {
			return fmt.Errorf("%w: %w", cli.ErrUsage, err)
		}
	}
	opts := append(cfg.encOpts(cc.Out), encode.NoDeclaration(true))
	return eachDoc(cfg.MainConfig, cc, files, func(_ string, doc *tree.Document) error {
		ctx, err := xpath.NewContext(doc)
		if err != nil {
			return err
		}
		for prefix, uri := range cfg.NS {
			if err := ctx.RegisterNamespace(prefix, uri); err != nil {
				return err
			}
		}
		res, err := ctx.Evaluate(expr)
		if err != nil {
			return err
		}
		if res.Type() != xpath.NodeSet {
			if where != nil {
				return fmt.Errorf("%w: -where needs a node-set, %q yields a %s", cli.ErrUsage, expr, res.Type())
			}
			_, err := fmt.Fprintln(cc.Out, res.String())
			return err
		}
		nodes := res.Nodes()
		defer func() {
			for _, n := range nodes {
				n.Release()
			}
		}()
		ro := res.ReadonlyNodes()
		var selected []*tree.Node
		for i, n := range nodes {
			if where != nil {
				ok, err := where.Match(ro[i])
				if err != nil {
					return err
				}
				if !ok {
					continue
				}
			}
			selected = append(selected, n)
		}
		if cfg.Count {
			_, err := fmt.Fprintln(cc.Out, len(selected))
			return err
		}
		for _, n := range selected {
			if cfg.Values {
				if _, err := fmt.Fprintln(cc.Out, n.Content()); err != nil {
					return err
				}
				continue
			}
			if err := encode.EncodeNode(n, cc.Out, opts...); err != nil {
				return err
			}
		}
		return nil
	})
}
