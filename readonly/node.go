// Package readonly provides a lightweight read-only view of a document.
//
// A Node is a plain value: it is not registered, takes no lock and cannot
// mutate anything. It is meant for fan-out reads across goroutines. The
// caller must make sure that nothing mutates the document while read-only
// nodes are in use.
package readonly

import (
	"errors"
	"sort"
	"strings"

	"github.com/signadot/xmlh/internal/engine"
)

// ErrQuery is returned when an expression fails to compile or evaluate.
var ErrQuery = errors.New("xpath evaluation failed")

// Node is a read-only position in a document. The zero value is the
// absent node.
type Node struct {
	doc *engine.Doc
	pos engine.Pos
}

// New returns the read-only node at pos, or the absent node.
func New(doc *engine.Doc, pos engine.Pos) Node {
	if doc == nil || !doc.Valid(pos) {
		return Node{}
	}
	return Node{doc: doc, pos: pos}
}

// Namespace is a prefix/href binding.
type Namespace struct {
	Prefix string
	Href   string
}

// AttrName qualifies an attribute by local name and namespace href.
type AttrName struct {
	Name string
	Href string
}

func (n Node) IsNil() bool { return n.doc == nil || !n.doc.Valid(n.pos) }

func (n Node) Pos() engine.Pos { return n.pos }

func (n Node) at(p engine.Pos) Node { return New(n.doc, p) }

func (n Node) Parent() Node      { return n.at(n.doc.Parent(n.pos)) }
func (n Node) NextSibling() Node { return n.at(n.doc.Next(n.pos)) }
func (n Node) PrevSibling() Node { return n.at(n.doc.Prev(n.pos)) }
func (n Node) FirstChild() Node  { return n.at(n.doc.FirstChild(n.pos)) }
func (n Node) LastChild() Node   { return n.at(n.doc.LastChild(n.pos)) }

func (n Node) elementFrom(p engine.Pos, next func(engine.Pos) engine.Pos) Node {
	for ; p != engine.Nil; p = next(p) {
		if n.doc.Kind(p) == engine.ElementNode {
			return n.at(p)
		}
	}
	return Node{}
}

func (n Node) FirstElementChild() Node {
	if n.IsNil() {
		return Node{}
	}
	return n.elementFrom(n.doc.FirstChild(n.pos), n.doc.Next)
}

func (n Node) LastElementChild() Node {
	if n.IsNil() {
		return Node{}
	}
	return n.elementFrom(n.doc.LastChild(n.pos), n.doc.Prev)
}

func (n Node) NextElementSibling() Node {
	if n.IsNil() {
		return Node{}
	}
	return n.elementFrom(n.doc.Next(n.pos), n.doc.Next)
}

func (n Node) PrevElementSibling() Node {
	if n.IsNil() {
		return Node{}
	}
	return n.elementFrom(n.doc.Prev(n.pos), n.doc.Prev)
}

func (n Node) ChildNodes() []Node {
	if n.IsNil() {
		return nil
	}
	var out []Node
	for c := n.doc.FirstChild(n.pos); c != engine.Nil; c = n.doc.Next(c) {
		out = append(out, n.at(c))
	}
	return out
}

func (n Node) ChildElements() []Node {
	if n.IsNil() {
		return nil
	}
	var out []Node
	for c := n.doc.FirstChild(n.pos); c != engine.Nil; c = n.doc.Next(c) {
		if n.doc.Kind(c) == engine.ElementNode {
			out = append(out, n.at(c))
		}
	}
	return out
}

// Type returns the node kind, 0 for the absent node.
func (n Node) Type() engine.Kind {
	if n.IsNil() {
		return 0
	}
	return n.doc.Kind(n.pos)
}

func (n Node) IsElementNode() bool { return n.Type() == engine.ElementNode }
func (n Node) IsTextNode() bool    { return n.Type() == engine.TextNode }

func (n Node) Name() string {
	if n.IsNil() {
		return ""
	}
	return n.doc.Name(n.pos)
}

func (n Node) Content() string {
	if n.IsNil() {
		return ""
	}
	return n.doc.Content(n.pos)
}

func (n Node) Property(name string) string {
	if n.IsNil() {
		return ""
	}
	return n.doc.Content(n.doc.HasProp(n.pos, name))
}

func (n Node) PropertyNs(name, href string) string {
	if n.IsNil() {
		return ""
	}
	return n.doc.Content(n.doc.HasNsProp(n.pos, name, href))
}

func (n Node) PropertyNoNs(name string) string {
	if n.IsNil() {
		return ""
	}
	return n.doc.Content(n.doc.HasNoNsProp(n.pos, name))
}

func (n Node) HasProperty(name string) bool {
	return !n.IsNil() && n.doc.HasProp(n.pos, name) != engine.Nil
}

func (n Node) HasPropertyNs(name, href string) bool {
	return !n.IsNil() && n.doc.HasNsProp(n.pos, name, href) != engine.Nil
}

func (n Node) HasPropertyNoNs(name string) bool {
	return !n.IsNil() && n.doc.HasNoNsProp(n.pos, name) != engine.Nil
}

// PropertyNode returns the attribute node called name.
func (n Node) PropertyNode(name string) Node {
	if n.IsNil() {
		return Node{}
	}
	return n.at(n.doc.HasProp(n.pos, name))
}

// Properties maps attribute local names to values. Attributes sharing a
// local name in different namespaces collapse to the last one.
func (n Node) Properties() map[string]string {
	out := map[string]string{}
	if n.IsNil() {
		return out
	}
	for a := n.doc.FirstProp(n.pos); a != engine.Nil; a = n.doc.Next(a) {
		out[n.doc.Name(a)] = n.doc.Content(a)
	}
	return out
}

func (n Node) PropertiesNs() map[AttrName]string {
	out := map[AttrName]string{}
	if n.IsNil() {
		return out
	}
	for a := n.doc.FirstProp(n.pos); a != engine.Nil; a = n.doc.Next(a) {
		out[AttrName{Name: n.doc.Name(a), Href: n.doc.NsHref(n.doc.NodeNs(a))}] = n.doc.Content(a)
	}
	return out
}

func (n Node) ns(ref engine.NsRef) Namespace {
	return Namespace{Prefix: n.doc.NsPrefix(ref), Href: n.doc.NsHref(ref)}
}

// Namespace returns the namespace of an element or attribute.
func (n Node) Namespace() (Namespace, bool) {
	if n.IsNil() {
		return Namespace{}, false
	}
	ref := n.doc.NodeNs(n.pos)
	if ref == engine.NoNs {
		return Namespace{}, false
	}
	return n.ns(ref), true
}

// Namespaces returns the namespaces in scope, nearest declaration first.
func (n Node) Namespaces() []Namespace {
	if n.IsNil() {
		return nil
	}
	var out []Namespace
	for _, ref := range n.doc.NsList(n.pos) {
		out = append(out, n.ns(ref))
	}
	return out
}

// NamespaceDeclarations returns the namespaces declared on n itself.
func (n Node) NamespaceDeclarations() []Namespace {
	if n.IsNil() {
		return nil
	}
	var out []Namespace
	for _, ref := range n.doc.NsDefs(n.pos) {
		out = append(out, n.ns(ref))
	}
	return out
}

func (n Node) LookupNamespaceURI(prefix string) string {
	if n.IsNil() {
		return ""
	}
	return n.doc.NsHref(n.doc.SearchNs(n.pos, prefix))
}

func (n Node) LookupNamespacePrefix(href string) (string, bool) {
	if n.IsNil() {
		return "", false
	}
	ref := n.doc.SearchNsByHref(n.pos, href)
	if ref == engine.NoNs {
		return "", false
	}
	return n.doc.NsPrefix(ref), true
}

// ClassNames returns the distinct whitespace separated tokens of the
// class attribute, sorted.
func (n Node) ClassNames() []string {
	return ClassNames(n.Property("class"))
}

// ClassNames splits a class attribute value.
func ClassNames(v string) []string {
	seen := map[string]bool{}
	var out []string
	for _, f := range strings.Fields(v) {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	sort.Strings(out)
	return out
}

func (n Node) String() string {
	if n.IsNil() {
		return ""
	}
	var sb strings.Builder
	n.doc.Dump(&sb, n.pos, 0)
	return sb.String()
}

// FindNodes evaluates expr with n as context node.
func (n Node) FindNodes(expr string) ([]Node, error) {
	if n.IsNil() {
		return nil, ErrQuery
	}
	res := n.doc.Eval(expr, nil, n.pos)
	if res == nil {
		return nil, ErrQuery
	}
	out := make([]Node, 0, len(res.Nodes))
	for _, p := range res.Nodes {
		out = append(out, n.at(p))
	}
	return out, nil
}

// Walk calls f for n and every descendant in document order until f
// returns false.
func (n Node) Walk(f func(Node) bool) {
	if n.IsNil() {
		return
	}
	stop := false
	n.doc.Walk(n.pos, func(p engine.Pos) bool {
		if stop {
			return false
		}
		if !f(n.at(p)) {
			stop = true
			return false
		}
		return true
	})
}
