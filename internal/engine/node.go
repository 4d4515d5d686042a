package engine

import "strings"

func (d *Doc) newNode(k Kind, name, content string) Pos {
	p := d.alloc(k)
	if p == Nil {
		return Nil
	}
	r := &d.recs[p]
	r.name = name
	r.content = content
	return p
}

// NewElement creates a detached element in namespace ns.
func (d *Doc) NewElement(ns NsRef, name string) Pos {
	if name == "" || !d.validNs(ns) {
		return Nil
	}
	p := d.newNode(ElementNode, name, "")
	if p != Nil {
		d.recs[p].ns = ns
	}
	return p
}

func (d *Doc) NewText(content string) Pos { return d.newNode(TextNode, "text", content) }

func (d *Doc) NewCDATA(content string) Pos { return d.newNode(CDATASectionNode, "", content) }

func (d *Doc) NewComment(content string) Pos { return d.newNode(CommentNode, "comment", content) }

// NewPI creates a processing instruction with target name.
func (d *Doc) NewPI(name, content string) Pos {
	if name == "" || strings.EqualFold(name, "xml") {
		return Nil
	}
	return d.newNode(PINode, name, content)
}

// NewDTD records a document type declaration verbatim.
func (d *Doc) NewDTD(directive string) Pos { return d.newNode(DTDNode, "", directive) }

func (d *Doc) Kind(p Pos) Kind {
	r := d.rec(p)
	if r == nil {
		return 0
	}
	return r.kind
}

// Name returns the local name of an element, attribute or processing
// instruction, "text" and "comment" for those kinds, and "" otherwise.
func (d *Doc) Name(p Pos) string {
	r := d.rec(p)
	if r == nil {
		return ""
	}
	return r.name
}

// SetName renames an element, attribute or processing instruction.
func (d *Doc) SetName(p Pos, name string) int {
	r := d.rec(p)
	if r == nil || name == "" {
		return -1
	}
	switch r.kind {
	case ElementNode, AttributeNode, PINode:
		r.name = name
		return 0
	}
	return -1
}

// Content returns the text content of p: the concatenated text of all
// descendants for elements and documents, the value for attributes and the
// literal content for character data, comments and processing
// instructions.
func (d *Doc) Content(p Pos) string {
	r := d.rec(p)
	if r == nil {
		return ""
	}
	switch r.kind {
	case ElementNode, DocumentNode, HTMLDocumentNode, DocumentFragNode:
		var sb strings.Builder
		d.textInto(&sb, p)
		return sb.String()
	case DTDNode:
		return ""
	}
	return r.content
}

func (d *Doc) textInto(sb *strings.Builder, p Pos) {
	for c := d.recs[p].first; c != Nil; c = d.recs[c].next {
		switch d.recs[c].kind {
		case TextNode, CDATASectionNode:
			sb.WriteString(d.recs[c].content)
		case ElementNode:
			d.textInto(sb, c)
		}
	}
}

// SetContent replaces the content of p. For positions that have children
// the children are unlinked, not freed, and returned so that the caller
// can decide their fate; a text child holding content is then added.
func (d *Doc) SetContent(p Pos, content string) ([]Pos, int) {
	r := d.rec(p)
	if r == nil {
		return nil, -1
	}
	switch r.kind {
	case ElementNode, DocumentFragNode:
	case DocumentNode, HTMLDocumentNode, DTDNode:
		return nil, -1
	default:
		r.content = content
		return nil, 0
	}
	var displaced []Pos
	for c := r.first; c != Nil; {
		next := d.recs[c].next
		d.Unlink(c)
		displaced = append(displaced, c)
		c = next
	}
	if content == "" {
		return displaced, 0
	}
	t := d.NewText(content)
	if t == Nil {
		return displaced, -1
	}
	d.link(p, t)
	return displaced, 0
}

// AddContent appends text to p, merging into a trailing text child.
func (d *Doc) AddContent(p Pos, content string) int {
	r := d.rec(p)
	if r == nil {
		return -1
	}
	switch r.kind {
	case ElementNode, DocumentFragNode:
		if content == "" {
			return 0
		}
		if l := r.last; l != Nil && d.recs[l].kind == TextNode {
			d.recs[l].content += content
			return 0
		}
		t := d.NewText(content)
		if t == Nil {
			return -1
		}
		d.link(p, t)
		return 0
	case DocumentNode, HTMLDocumentNode, DTDNode:
		return -1
	}
	r.content += content
	return 0
}

func (d *Doc) Parent(p Pos) Pos {
	if r := d.rec(p); r != nil {
		return r.parent
	}
	return Nil
}

func (d *Doc) FirstChild(p Pos) Pos {
	if r := d.rec(p); r != nil {
		return r.first
	}
	return Nil
}

func (d *Doc) LastChild(p Pos) Pos {
	if r := d.rec(p); r != nil {
		return r.last
	}
	return Nil
}

// Next returns the next sibling. For attributes it is the next attribute.
func (d *Doc) Next(p Pos) Pos {
	if r := d.rec(p); r != nil {
		return r.next
	}
	return Nil
}

func (d *Doc) Prev(p Pos) Pos {
	if r := d.rec(p); r != nil {
		return r.prev
	}
	return Nil
}

// Reachable reports whether p is connected to the document node.
func (d *Doc) Reachable(p Pos) bool {
	for r := d.rec(p); r != nil; r = d.rec(r.parent) {
		if r.kind.IsDocument() {
			return true
		}
	}
	return false
}

// Root returns the first element child of the document node.
func (d *Doc) Root() Pos {
	if d.Freed() {
		return Nil
	}
	for c := d.recs[d.node].first; c != Nil; c = d.recs[c].next {
		if d.recs[c].kind == ElementNode {
			return c
		}
	}
	return Nil
}

// SetRoot makes p the root element and returns the previous root, which
// is left unlinked and alive. Nothing happens if p is not an element.
func (d *Doc) SetRoot(p Pos) Pos {
	r := d.rec(p)
	if r == nil || r.kind != ElementNode {
		return Nil
	}
	old := d.Root()
	if old == p {
		return Nil
	}
	d.Unlink(p)
	if old == Nil {
		d.link(d.node, p)
		return Nil
	}
	d.insertBefore(old, p)
	d.Unlink(old)
	return old
}

// Unlink detaches p from its parent and siblings. Attributes are detached
// from their element.
func (d *Doc) Unlink(p Pos) {
	r := d.rec(p)
	if r == nil || r.parent == Nil {
		return
	}
	parent := &d.recs[r.parent]
	if r.kind == AttributeNode {
		if parent.props == p {
			parent.props = r.next
		}
	} else {
		if parent.first == p {
			parent.first = r.next
		}
		if parent.last == p {
			parent.last = r.prev
		}
	}
	if r.prev != Nil {
		d.recs[r.prev].next = r.next
	}
	if r.next != Nil {
		d.recs[r.next].prev = r.prev
	}
	r.parent, r.prev, r.next = Nil, Nil, Nil
}

// link appends a detached child.
func (d *Doc) link(parent, child Pos) {
	pr, cr := &d.recs[parent], &d.recs[child]
	cr.parent = parent
	cr.prev = pr.last
	cr.next = Nil
	if pr.last != Nil {
		d.recs[pr.last].next = child
	} else {
		pr.first = child
	}
	pr.last = child
}

// insertBefore links detached n as the previous sibling of cur.
func (d *Doc) insertBefore(cur, n Pos) {
	cr, nr := &d.recs[cur], &d.recs[n]
	nr.parent = cr.parent
	nr.next = cur
	nr.prev = cr.prev
	if cr.prev != Nil {
		d.recs[cr.prev].next = n
	} else {
		d.recs[cr.parent].first = n
	}
	cr.prev = n
}

// insertAfter links detached n as the next sibling of cur.
func (d *Doc) insertAfter(cur, n Pos) {
	cr, nr := &d.recs[cur], &d.recs[n]
	nr.parent = cr.parent
	nr.prev = cur
	nr.next = cr.next
	if cr.next != Nil {
		d.recs[cr.next].prev = n
	} else {
		d.recs[cr.parent].last = n
	}
	cr.next = n
}

// IsAncestor reports whether a is p or one of its ancestors.
func (d *Doc) IsAncestor(a, p Pos) bool {
	for r := d.rec(p); r != nil; r = d.rec(r.parent) {
		if p == a {
			return true
		}
		p = r.parent
	}
	return false
}

func (d *Doc) insertable(target, n Pos) bool {
	tr, nr := d.rec(target), d.rec(n)
	if tr == nil || nr == nil || target == n {
		return false
	}
	switch nr.kind {
	case AttributeNode, DocumentNode, HTMLDocumentNode:
		return false
	}
	return !d.IsAncestor(n, target)
}

// AddChild unlinks child and appends it to parent. It returns the child,
// or Nil if the parent cannot hold children or the move would create a
// cycle.
func (d *Doc) AddChild(parent, child Pos) Pos {
	if !d.insertable(parent, child) || !d.recs[parent].kind.HasChildren() {
		return Nil
	}
	d.Unlink(child)
	d.link(parent, child)
	return child
}

// AddPrevSibling unlinks n and inserts it before cur, which must have a
// parent.
func (d *Doc) AddPrevSibling(cur, n Pos) Pos {
	if !d.insertable(cur, n) || d.recs[cur].parent == Nil || d.recs[cur].kind == AttributeNode {
		return Nil
	}
	d.Unlink(n)
	d.insertBefore(cur, n)
	return n
}

// AddNextSibling unlinks n and inserts it after cur, which must have a
// parent.
func (d *Doc) AddNextSibling(cur, n Pos) Pos {
	if !d.insertable(cur, n) || d.recs[cur].parent == Nil || d.recs[cur].kind == AttributeNode {
		return Nil
	}
	d.Unlink(n)
	d.insertAfter(cur, n)
	return n
}

// Walk calls f on p and its descendants in document order, attributes
// excluded. Returning false from f skips the subtree.
func (d *Doc) Walk(p Pos, f func(Pos) bool) {
	if d.rec(p) == nil {
		return
	}
	d.walk(p, f)
}

func (d *Doc) walk(p Pos, f func(Pos) bool) {
	if !f(p) {
		return
	}
	for c := d.recs[p].first; c != Nil; c = d.recs[c].next {
		d.walk(c, f)
	}
}
