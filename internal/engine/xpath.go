package engine

import (
	"sort"

	"github.com/antchfx/xpath"
)

// ResultType is the type of a query result.
type ResultType int

const (
	NodeSetResult ResultType = iota
	StringResult
	NumberResult
	BooleanResult
)

func (t ResultType) String() string {
	switch t {
	case NodeSetResult:
		return "node-set"
	case StringResult:
		return "string"
	case NumberResult:
		return "number"
	case BooleanResult:
		return "boolean"
	}
	return "unknown"
}

// Result is the outcome of an evaluation. Nodes are deduplicated and in
// document order.
type Result struct {
	Type  ResultType
	Nodes []Pos
	Str   string
	Num   float64
	Bool  bool
}

func compile(expr string, ns map[string]string) (*xpath.Expr, error) {
	if len(ns) == 0 {
		return xpath.Compile(expr)
	}
	return xpath.CompileWithNS(expr, ns)
}

// Compiles reports whether expr is a syntactically valid expression.
func Compiles(expr string) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	_, err := xpath.Compile(expr)
	return err == nil
}

// Eval evaluates expr with ctx as context node, the document node when ctx
// is Nil. It returns nil if expr fails to compile or to evaluate.
func (d *Doc) Eval(expr string, ns map[string]string, ctx Pos) (res *Result) {
	defer func() {
		if recover() != nil {
			res = nil
		}
	}()
	if d.Freed() {
		return nil
	}
	if ctx == Nil {
		ctx = d.node
	}
	cr := d.rec(ctx)
	if cr == nil {
		return nil
	}
	e, err := compile(expr, ns)
	if err != nil {
		return nil
	}
	nav := &navigator{d: d, cur: ctx}
	if cr.kind == AttributeNode {
		nav.cur, nav.attr = cr.parent, ctx
	}
	switch v := e.Evaluate(nav).(type) {
	case *xpath.NodeIterator:
		res = &Result{Type: NodeSetResult}
		seen := map[Pos]bool{}
		for v.MoveNext() {
			cn, ok := v.Current().(*navigator)
			if !ok {
				return nil
			}
			p := cn.pos()
			if !seen[p] {
				seen[p] = true
				res.Nodes = append(res.Nodes, p)
			}
		}
		d.sortDocOrder(res.Nodes)
	case string:
		res = &Result{Type: StringResult, Str: v}
	case float64:
		res = &Result{Type: NumberResult, Num: v}
	case bool:
		res = &Result{Type: BooleanResult, Bool: v}
	default:
		return nil
	}
	return res
}

func (d *Doc) sortDocOrder(ps []Pos) {
	if len(ps) < 2 {
		return
	}
	order := make(map[Pos]int, len(ps))
	want := make(map[Pos]bool, len(ps))
	for _, p := range ps {
		want[p] = true
	}
	n := 0
	visit := func(top Pos) {
		d.walk(top, func(q Pos) bool {
			if want[q] {
				order[q] = n
			}
			n++
			for a := d.recs[q].props; a != Nil; a = d.recs[a].next {
				if want[a] {
					order[a] = n
				}
				n++
			}
			return true
		})
	}
	visit(d.node)
	for _, p := range ps {
		if _, ok := order[p]; ok {
			continue
		}
		top := p
		for d.recs[top].parent != Nil {
			top = d.recs[top].parent
		}
		visit(top)
	}
	sort.SliceStable(ps, func(i, j int) bool { return order[ps[i]] < order[ps[j]] })
}

// navigator exposes a document to the xpath package. Processing
// instructions and document type nodes are skipped.
type navigator struct {
	d    *Doc
	cur  Pos
	attr Pos
}

var _ xpath.NodeNavigator = (*navigator)(nil)

func (n *navigator) pos() Pos {
	if n.attr != Nil {
		return n.attr
	}
	return n.cur
}

func navigable(k Kind) bool {
	switch k {
	case ElementNode, TextNode, CDATASectionNode, CommentNode:
		return true
	}
	return false
}

func (n *navigator) NodeType() xpath.NodeType {
	if n.attr != Nil {
		return xpath.AttributeNode
	}
	switch n.d.recs[n.cur].kind {
	case ElementNode:
		return xpath.ElementNode
	case TextNode, CDATASectionNode:
		return xpath.TextNode
	case CommentNode:
		return xpath.CommentNode
	}
	return xpath.RootNode
}

func (n *navigator) LocalName() string {
	r := &n.d.recs[n.pos()]
	switch r.kind {
	case ElementNode, AttributeNode:
		return r.name
	}
	return ""
}

func (n *navigator) Prefix() string {
	return n.d.NsPrefix(n.d.recs[n.pos()].ns)
}

func (n *navigator) NamespaceURL() string {
	return n.d.NsHref(n.d.recs[n.pos()].ns)
}

func (n *navigator) Value() string {
	return n.d.Content(n.pos())
}

func (n *navigator) Copy() xpath.NodeNavigator {
	c := *n
	return &c
}

func (n *navigator) MoveToRoot() {
	n.cur, n.attr = n.d.node, Nil
}

func (n *navigator) MoveToParent() bool {
	if n.attr != Nil {
		n.attr = Nil
		return true
	}
	p := n.d.recs[n.cur].parent
	if p == Nil {
		return false
	}
	n.cur = p
	return true
}

func (n *navigator) MoveToNextAttribute() bool {
	var a Pos
	if n.attr == Nil {
		if n.d.recs[n.cur].kind != ElementNode {
			return false
		}
		a = n.d.recs[n.cur].props
	} else {
		a = n.d.recs[n.attr].next
	}
	if a == Nil {
		return false
	}
	n.attr = a
	return true
}

func (n *navigator) MoveToChild() bool {
	if n.attr != Nil {
		return false
	}
	for c := n.d.recs[n.cur].first; c != Nil; c = n.d.recs[c].next {
		if navigable(n.d.recs[c].kind) {
			n.cur = c
			return true
		}
	}
	return false
}

func (n *navigator) MoveToFirst() bool {
	if n.attr != Nil {
		return false
	}
	p := n.d.recs[n.cur].parent
	if p == Nil {
		return false
	}
	for c := n.d.recs[p].first; c != Nil; c = n.d.recs[c].next {
		if navigable(n.d.recs[c].kind) {
			n.cur = c
			return true
		}
	}
	return false
}

func (n *navigator) MoveToNext() bool {
	if n.attr != Nil {
		return false
	}
	for c := n.d.recs[n.cur].next; c != Nil; c = n.d.recs[c].next {
		if navigable(n.d.recs[c].kind) {
			n.cur = c
			return true
		}
	}
	return false
}

func (n *navigator) MoveToPrevious() bool {
	if n.attr != Nil {
		return false
	}
	for c := n.d.recs[n.cur].prev; c != Nil; c = n.d.recs[c].prev {
		if navigable(n.d.recs[c].kind) {
			n.cur = c
			return true
		}
	}
	return false
}

func (n *navigator) MoveTo(other xpath.NodeNavigator) bool {
	o, ok := other.(*navigator)
	if !ok || o.d != n.d {
		return false
	}
	*n = *o
	return true
}
