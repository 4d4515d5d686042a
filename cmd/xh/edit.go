package main

import (
	"fmt"
	"strings"

	"github.com/scott-cotton/cli"
	"github.com/signadot/xmlh/encode"
	"github.com/signadot/xmlh/tree"
	"github.com/signadot/xmlh/xpath"
)

type editKind int

const (
	editSet editKind = iota
	editAttr
	editDelete
	editRename
)

type edit struct {
	kind  editKind
	path  string
	name  string
	value string
}

func parseEdit(k editKind, a string) (edit, error) {
	e := edit{kind: k, path: a}
	switch k {
	case editSet, editRename:
		path, v, ok := cutAssign(a)
		if !ok {
			return e, fmt.Errorf("%w: expected xpath=value, got %q", cli.ErrUsage, a)
		}
		e.path, e.value = path, v
	case editAttr:
		lhs, v, ok := cutAssign(a)
		at := strings.LastIndexByte(lhs, '@')
		if !ok || at <= 0 || at == len(lhs)-1 {
			return e, fmt.Errorf("%w: expected xpath@name=value, got %q", cli.ErrUsage, a)
		}
		e.path, e.name, e.value = lhs[:at], lhs[at+1:], v
	}
	if !xpath.Compiles(e.path) {
		return e, fmt.Errorf("%w: invalid expression %q", cli.ErrUsage, e.path)
	}
	return e, nil
}

// cutAssign splits a at the first '=' outside predicates and literals.
func cutAssign(a string) (string, string, bool) {
	depth := 0
	var quote byte
	for i := 0; i < len(a); i++ {
		c := a[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '[' || c == '(':
			depth++
		case c == ']' || c == ')':
			depth--
		case c == '=' && depth == 0:
			return a[:i], a[i+1:], true
		}
	}
	return a, "", false
}

func (cfg *EditConfig) editOpt(k editKind) func(*cli.Context, string) (any, error) {
	return func(_ *cli.Context, a string) (any, error) {
		e, err := parseEdit(k, a)
		if err != nil {
			return nil, err
		}
		cfg.Edits = append(cfg.Edits, e)
		return 0, nil
	}
}

// apply runs e on every node its path selects.
func (e edit) apply(ctx *xpath.Context) (int, error) {
	nodes, err := ctx.FindNodes(e.path, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		for _, n := range nodes {
			n.Release()
		}
	}()
	for _, n := range nodes {
		var err error
		switch e.kind {
		case editSet:
			err = n.SetContent(e.value)
		case editAttr:
			err = n.SetProperty(e.name, e.value)
		case editRename:
			err = n.SetName(e.value)
		case editDelete:
			n.Unlink()
		}
		if err != nil {
			return 0, fmt.Errorf("%s: %w", n.Name(), err)
		}
	}
	return len(nodes), nil
}

func editDoc(cfg *EditConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Edit.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) > 1 {
		return fmt.Errorf("%w: edit takes at most one file", cli.ErrUsage)
	}
	opts := cfg.encOpts(cc.Out)
	return eachDoc(cfg.MainConfig, cc, args, func(file string, doc *tree.Document) error {
		ctx, err := xpath.NewContext(doc)
		if err != nil {
			return err
		}
		for _, e := range cfg.Edits {
			n, err := e.apply(ctx)
			if err != nil {
				return fmt.Errorf("edit %q: %w", e.path, err)
			}
			cfg.Log.Debug("edit applied", "file", file, "path", e.path, "nodes", n)
		}
		return encode.Encode(doc, cc.Out, opts...)
	})
}
