package main

import (
	"fmt"
	"strings"

	"github.com/scott-cotton/cli"
)

func MainCommand() *cli.Command {
	cfg := &MainConfig{}
	sOpts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	opts := append(sOpts, []*cli.Opt{
		&cli.Opt{
			Name:        "o",
			Description: "output file, replaced only when the command succeeds (default stdout)",
			Type:        cli.NamedFuncOpt(cfg.outOpt, "(filepath)"),
		},
		&cli.Opt{
			Name:        "I",
			Aliases:     []string{"ifmt"},
			Description: "input format: xml/x, html/h",
			Type:        cli.NamedFuncOpt(cfg.fmtFunc(&cfg.InFormat), "(format)"),
		}, &cli.Opt{
			Name:        "O",
			Aliases:     []string{"ofmt"},
			Description: "output format: xml/x, html/h",
			Type:        cli.NamedFuncOpt(cfg.fmtFunc(&cfg.OutFormat), "(format)"),
		}}...)

	return cli.NewCommandAt(&cfg.Main, "xh").
		WithSynopsis("xh [opts] command [opts]").
		WithDescription("xh is a tool for working with XML and HTML documents.").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return xhMain(cfg, cc, args)
		}).
		WithSubs(
			FmtCommand(cfg),
			QueryCommand(cfg),
			C14NCommand(cfg),
			DiffCommand(cfg),
			StatsCommand(cfg),
			EditCommand(cfg))
}

func FmtCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &FmtConfig{MainConfig: mainCfg}
	return cli.NewCommandAt(&cfg.Fmt, "fmt").
		WithAliases("f", "view").
		WithSynopsis("fmt [files]").
		WithDescription("parse and re-serialize documents").
		WithRun(func(cc *cli.Context, args []string) error {
			return fmtDocs(cfg, cc, args)
		})
}

func QueryCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &QueryConfig{MainConfig: mainCfg, NS: map[string]string{}}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	opts = append(opts,
		&cli.Opt{
			Name:        "ns",
			Description: "bind a prefix for the query",
			Type:        cli.NamedFuncOpt(cli.FuncOpt(nsOptTypeFunc(cfg.NS)), "(prefix=uri)"),
		})
	return cli.NewCommandAt(&cfg.Query, "query").
		WithAliases("q").
		WithSynopsis("query [-ns p=uri]... [-where expr] <xpath> [files]").
		WithDescription(queryDescription).
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return query(cfg, cc, args)
		})
}

const queryDescription = `query evaluates an XPath 1.0 expression against each document.

Node-sets are printed one node per line. With -where only nodes for which
the expression holds are kept; it sees name, ns, type, content, depth,
attrs and classes and may call Has(attr), Attr(attr) and Count(xpath).`

func nsOptTypeFunc(ns map[string]string) func(cc *cli.Context, a string) (any, error) {
	return func(cc *cli.Context, a string) (any, error) {
		prefix, uri, ok := strings.Cut(a, "=")
		if !ok {
			return nil, fmt.Errorf("%w: expected prefix=uri, got %q", cli.ErrUsage, a)
		}
		ns[prefix] = uri
		return 0, nil
	}
}

func C14NCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &C14NConfig{MainConfig: mainCfg, Mode: "exc-c14n"}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.C14N, "c14n").
		WithAliases("c").
		WithSynopsis("c14n [-mode m] [-comments] [-inclusive p1,p2] [files]").
		WithDescription("canonicalize documents").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return canonicalize(cfg, cc, args)
		})
}

func DiffCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &DiffConfig{MainConfig: mainCfg, Context: 3}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Diff, "diff").
		WithAliases("d", "di").
		WithOpts(opts...).
		WithSynopsis("diff [-r] [-c14n] [-U n] a b").
		WithDescription("diff two documents, exiting 1 if they differ").
		WithRun(func(cc *cli.Context, args []string) error {
			return diff(cfg, cc, args)
		})
}

func StatsCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &StatsConfig{MainConfig: mainCfg, Workers: -1}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Stats, "stats").
		WithAliases("s").
		WithOpts(opts...).
		WithSynopsis("stats [-w n] [-metrics] files").
		WithDescription("count the nodes of documents, as yaml").
		WithRun(func(cc *cli.Context, args []string) error {
			return stats(cfg, cc, args)
		})
}

func EditCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &EditConfig{MainConfig: mainCfg}
	opts := []*cli.Opt{
		&cli.Opt{
			Name:        "s",
			Aliases:     []string{"set"},
			Description: "set the content of the selected nodes",
			Type:        cli.NamedFuncOpt(cli.FuncOpt(cfg.editOpt(editSet)), "(xpath=text)"),
		},
		&cli.Opt{
			Name:        "a",
			Aliases:     []string{"attr"},
			Description: "set an attribute of the selected elements",
			Type:        cli.NamedFuncOpt(cli.FuncOpt(cfg.editOpt(editAttr)), "(xpath@name=value)"),
		},
		&cli.Opt{
			Name:        "d",
			Aliases:     []string{"delete"},
			Description: "remove the selected nodes",
			Type:        cli.NamedFuncOpt(cli.FuncOpt(cfg.editOpt(editDelete)), "(xpath)"),
		},
		&cli.Opt{
			Name:        "n",
			Aliases:     []string{"rename"},
			Description: "rename the selected nodes",
			Type:        cli.NamedFuncOpt(cli.FuncOpt(cfg.editOpt(editRename)), "(xpath=name)"),
		},
	}
	return cli.NewCommandAt(&cfg.Edit, "edit").
		WithAliases("e").
		WithOpts(opts...).
		WithSynopsis("edit [-s xpath=text] [-a xpath@name=value] [-d xpath] [-n xpath=name]... [file]").
		WithDescription("apply edits, in order, and print the result").
		WithRun(func(cc *cli.Context, args []string) error {
			return editDoc(cfg, cc, args)
		})
}
