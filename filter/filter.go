// Package filter selects read-only nodes with boolean expr-lang
// expressions.
//
// An expression sees the fields
//
//	name, ns, type, content, depth, attrs, classes
//
// and the functions Has(attr), Attr(attr) and Count(xpath), for example
//
//	name == "item" && int(Attr("n")) > 3 && Count("child") == 0
package filter

import (
	"errors"
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/signadot/xmlh/internal/engine"
	"github.com/signadot/xmlh/readonly"
)

var ErrFilter = errors.New("filter error")

// Env is the environment of one evaluation.
type Env struct {
	Name    string            `expr:"name"`
	NS      string            `expr:"ns"`
	Type    string            `expr:"type"`
	Content string            `expr:"content"`
	Depth   int               `expr:"depth"`
	Attrs   map[string]string `expr:"attrs"`
	Classes []string          `expr:"classes"`

	node readonly.Node
}

func (e Env) Has(attr string) bool    { return e.node.HasProperty(attr) }
func (e Env) Attr(attr string) string { return e.node.Property(attr) }

// Count returns the number of nodes path selects from the node, or -1 if
// path is not a valid query.
func (e Env) Count(path string) int {
	ns, err := e.node.FindNodes(path)
	if err != nil {
		return -1
	}
	return len(ns)
}

func newEnv(n readonly.Node) Env {
	env := Env{
		Name:    n.Name(),
		Type:    n.Type().String(),
		Content: n.Content(),
		Attrs:   n.Properties(),
		Classes: n.ClassNames(),
		node:    n,
	}
	if ns, ok := n.Namespace(); ok {
		env.NS = ns.Href
	}
	for p := n.Parent(); !p.IsNil() && p.Type() == engine.ElementNode; p = p.Parent() {
		env.Depth++
	}
	return env
}

type Filter struct {
	src string
	prg *vm.Program
}

// Compile compiles src, which must yield a boolean.
func Compile(src string) (*Filter, error) {
	prg, err := expr.Compile(src, expr.Env(Env{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFilter, err)
	}
	return &Filter{src: src, prg: prg}, nil
}

func (f *Filter) String() string { return f.src }

// Match reports whether n satisfies f. Absent nodes never match.
func (f *Filter) Match(n readonly.Node) (bool, error) {
	if n.IsNil() {
		return false, nil
	}
	res, err := expr.Run(f.prg, newEnv(n))
	if err != nil {
		return false, fmt.Errorf("%w: %s: %w", ErrFilter, f.src, err)
	}
	return res.(bool), nil
}

// Select returns the nodes of ns that match, in order.
func (f *Filter) Select(ns []readonly.Node) ([]readonly.Node, error) {
	var out []readonly.Node
	for _, n := range ns {
		ok, err := f.Match(n)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, n)
		}
	}
	return out, nil
}
