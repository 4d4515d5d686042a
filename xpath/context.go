// Package xpath evaluates XPath 1.0 expressions against tree documents.
//
// A Context carries namespace registrations and a context node. Contexts
// are cheap: make one per goroutine, or Clone a configured one.
// Evaluation reads the engine without the document lock, so callers must
// not mutate the document while a query on it is running. Only wrapping
// the result into handles takes the lock.
package xpath

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"unicode"
	"unicode/utf8"
	"weak"

	"github.com/signadot/xmlh/debug"
	"github.com/signadot/xmlh/internal/engine"
	"github.com/signadot/xmlh/metrics"
	"github.com/signadot/xmlh/readonly"
	"github.com/signadot/xmlh/tree"
)

// ErrQuery is returned when an expression fails to compile or evaluate.
var ErrQuery = readonly.ErrQuery

// ErrNotNodeSet is returned by node queries whose expression yields a
// scalar.
var ErrNotNodeSet = errors.New("expression does not yield a node-set")

type Context struct {
	doc     weak.Pointer[tree.Document]
	node    *tree.Node
	ns      map[string]string
	log     *slog.Logger
	metrics *metrics.Metrics
}

// NewContext returns a context on doc with the document node as context
// node.
func NewContext(doc *tree.Document) (*Context, error) {
	if doc == nil || doc.Closed() {
		return nil, tree.ErrClosed
	}
	return &Context{
		doc:     weak.Make(doc),
		ns:      map[string]string{},
		log:     doc.Logger(),
		metrics: doc.Metrics(),
	}, nil
}

// FromNode returns a context on n's document with n as context node.
func FromNode(n *tree.Node) (*Context, error) {
	doc := n.Document()
	if doc == nil {
		return nil, tree.ErrClosed
	}
	c, err := NewContext(doc)
	if err != nil {
		return nil, err
	}
	return c, c.SetContextNode(n)
}

// Clone returns a context with the same document, context node and
// namespace registrations.
func (c *Context) Clone() *Context {
	cp := *c
	cp.ns = maps.Clone(c.ns)
	return &cp
}

// RegisterNamespace binds prefix to uri for expressions evaluated in c.
func (c *Context) RegisterNamespace(prefix, uri string) error {
	if !isNCName(prefix) || uri == "" {
		return fmt.Errorf("%w: %q=%q", tree.ErrInvalidNamespace, prefix, uri)
	}
	c.ns[prefix] = uri
	return nil
}

// SetContextNode makes n the context node. nil selects the document node.
func (c *Context) SetContextNode(n *tree.Node) error {
	if n == nil {
		c.node = nil
		return nil
	}
	doc, err := c.document()
	if err != nil {
		return err
	}
	if n.Document() != doc {
		return tree.ErrWrongDocument
	}
	c.node = n
	return nil
}

func (c *Context) document() (*tree.Document, error) {
	doc := c.doc.Value()
	if doc == nil || doc.Closed() {
		return nil, tree.ErrClosed
	}
	return doc, nil
}

// Evaluate evaluates expr against the context node.
func (c *Context) Evaluate(expr string) (*Object, error) {
	return c.eval(expr, c.node)
}

// NodeEvaluate evaluates expr with n as context node, leaving the
// context's own node alone.
func (c *Context) NodeEvaluate(expr string, n *tree.Node) (*Object, error) {
	return c.eval(expr, n)
}

func (c *Context) eval(expr string, n *tree.Node) (*Object, error) {
	doc, err := c.document()
	if err != nil {
		return nil, err
	}
	at := engine.Nil
	if n != nil {
		if n.Document() != doc {
			return nil, tree.ErrWrongDocument
		}
		at = n.Pos()
	}
	res := doc.Engine().Eval(expr, c.ns, at)
	if res == nil {
		err = fmt.Errorf("%w: %q", ErrQuery, expr)
	}
	c.metrics.Query(err)
	if debug.XPath() {
		debug.Logf("xpath %q at %d: %v\n", expr, at, res)
	}
	if err != nil {
		c.log.Debug("query failed", "expr", expr)
		return nil, err
	}
	return &Object{doc: doc, res: res}, nil
}

// FindNodes returns handles on the nodes expr selects from n, or from the
// context node when n is nil.
func (c *Context) FindNodes(expr string, n *tree.Node) ([]*tree.Node, error) {
	o, err := c.find(expr, n)
	if err != nil {
		return nil, err
	}
	if o.Type() != NodeSet {
		return nil, fmt.Errorf("%w: %q yields a %s", ErrNotNodeSet, expr, o.Type())
	}
	return o.Nodes(), nil
}

// FindValues returns the string values of the result of expr.
func (c *Context) FindValues(expr string, n *tree.Node) ([]string, error) {
	o, err := c.find(expr, n)
	if err != nil {
		return nil, err
	}
	return o.Values(), nil
}

// FindValue returns the string value of the result of expr.
func (c *Context) FindValue(expr string, n *tree.Node) (string, error) {
	o, err := c.find(expr, n)
	if err != nil {
		return "", err
	}
	return o.String(), nil
}

func (c *Context) find(expr string, n *tree.Node) (*Object, error) {
	if n == nil {
		n = c.node
	}
	return c.eval(expr, n)
}

// FindNodes evaluates expr with n as context node.
func FindNodes(n *tree.Node, expr string) ([]*tree.Node, error) {
	c, err := FromNode(n)
	if err != nil {
		return nil, err
	}
	return c.FindNodes(expr, n)
}

// Compiles reports whether expr is a valid expression.
func Compiles(expr string) bool {
	return engine.Compiles(expr)
}

func isNCName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == utf8.RuneError:
			return false
		case r == '_' || unicode.IsLetter(r):
		case i > 0 && (r == '-' || r == '.' || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r)):
		default:
			return false
		}
	}
	return true
}
