package engine

import (
	"bufio"
	"io"
	"sort"
	"strings"
)

// C14NMode selects a canonicalization algorithm.
type C14NMode int

const (
	C14N10 C14NMode = iota
	Exclusive10
	C14N11
)

func (m C14NMode) String() string {
	switch m {
	case C14N10:
		return "c14n"
	case Exclusive10:
		return "exc-c14n"
	case C14N11:
		return "c14n11"
	}
	return "unknown"
}

type canon struct {
	d         *Doc
	w         *bufio.Writer
	mode      C14NMode
	comments  bool
	inclusive map[string]bool
}

// C14N writes the canonical form of the subtree at p, or of the whole
// document when p is Nil. Inclusive prefixes only apply to the exclusive
// mode; "#default" names the default namespace.
func (d *Doc) C14N(w io.Writer, p Pos, mode C14NMode, withComments bool, inclusivePrefixes []string) int {
	if d.Freed() {
		return -1
	}
	switch mode {
	case C14N10, Exclusive10, C14N11:
	default:
		return -1
	}
	c := &canon{d: d, w: bufio.NewWriter(w), mode: mode, comments: withComments}
	if mode == Exclusive10 {
		c.inclusive = map[string]bool{}
		for _, pfx := range inclusivePrefixes {
			if pfx == "#default" {
				pfx = ""
			}
			c.inclusive[pfx] = true
		}
	}
	if p == Nil || p == d.node {
		c.document()
	} else {
		r := d.rec(p)
		if r == nil {
			return -1
		}
		switch r.kind {
		case ElementNode:
			c.element(p, c.inScope(r.parent), scope{}, c.inheritedXMLAttrs(p))
		case AttributeNode, DTDNode:
			return -1
		default:
			c.node(p, nil, nil)
		}
	}
	if c.w.Flush() != nil {
		return -1
	}
	return 0
}

func (c *canon) document() {
	d := c.d
	seenRoot := false
	for ch := d.recs[d.node].first; ch != Nil; ch = d.recs[ch].next {
		switch d.recs[ch].kind {
		case ElementNode:
			c.element(ch, scope{}, scope{}, nil)
			seenRoot = true
		case CommentNode, PINode:
			if d.recs[ch].kind == CommentNode && !c.comments {
				continue
			}
			if seenRoot {
				c.w.WriteByte('\n')
			}
			c.node(ch, nil, nil)
			if !seenRoot {
				c.w.WriteByte('\n')
			}
		}
	}
}

// inScope returns the namespace bindings visible at element p.
func (c *canon) inScope(p Pos) scope {
	d := c.d
	sc := scope{}
	for q := p; q != Nil && d.recs[q].kind == ElementNode; q = d.recs[q].parent {
		for _, ns := range d.recs[q].nsDef {
			nr := d.nss[ns]
			if _, ok := sc[nr.prefix]; !ok {
				sc[nr.prefix] = nr.href
			}
		}
	}
	return sc
}

type c14nAttr struct {
	uri, local, qname, value string
}

// inheritedXMLAttrs collects xml:* attributes of the ancestors of the apex
// for the inclusive modes; nearer ancestors win.
func (c *canon) inheritedXMLAttrs(p Pos) []c14nAttr {
	if c.mode == Exclusive10 {
		return nil
	}
	d := c.d
	seen := map[string]bool{}
	for a := d.recs[p].props; a != Nil; a = d.recs[a].next {
		if d.recs[a].ns == XMLNs {
			seen[d.recs[a].name] = true
		}
	}
	var out []c14nAttr
	for q := d.recs[p].parent; q != Nil && d.recs[q].kind == ElementNode; q = d.recs[q].parent {
		for a := d.recs[q].props; a != Nil; a = d.recs[a].next {
			ar := &d.recs[a]
			if ar.ns != XMLNs || seen[ar.name] {
				continue
			}
			if c.mode == C14N11 && ar.name != "lang" && ar.name != "space" {
				continue
			}
			seen[ar.name] = true
			out = append(out, c14nAttr{uri: XMLNamespace, local: ar.name, qname: "xml:" + ar.name, value: ar.content})
		}
	}
	return out
}

type nsDecl struct{ prefix, href string }

// element writes p. outer holds the bindings in scope in the input at the
// parent of p, rendered those already written on output ancestors.
func (c *canon) element(p Pos, outer, rendered scope, extra []c14nAttr) {
	d := c.d
	r := &d.recs[p]
	here, owned := outer, false
	bind := func(prefix, href string) {
		if !owned {
			here, owned = here.with(prefix, href), true
			return
		}
		here[prefix] = href
	}
	for _, ns := range r.nsDef {
		bind(d.nss[ns].prefix, d.nss[ns].href)
	}
	// bindings used but never declared still need to be rendered
	uses := func(ns NsRef) {
		if ns == NoNs || ns == XMLNs {
			return
		}
		nr := d.nss[ns]
		if _, ok := here[nr.prefix]; !ok {
			bind(nr.prefix, nr.href)
		}
	}
	uses(r.ns)
	for a := r.props; a != Nil; a = d.recs[a].next {
		uses(d.recs[a].ns)
	}

	var candidates []string
	if c.mode == Exclusive10 {
		utilized := map[string]bool{d.NsPrefix(r.ns): true}
		for a := r.props; a != Nil; a = d.recs[a].next {
			if ns := d.recs[a].ns; ns != NoNs && ns != XMLNs {
				utilized[d.nss[ns].prefix] = true
			}
		}
		for pfx := range c.inclusive {
			if _, ok := here[pfx]; ok {
				utilized[pfx] = true
			}
		}
		for pfx := range utilized {
			candidates = append(candidates, pfx)
		}
	} else {
		for pfx := range here {
			candidates = append(candidates, pfx)
		}
	}
	var decls []nsDecl
	for _, pfx := range candidates {
		href := here[pfx]
		prev, wasRendered := rendered[pfx]
		if pfx == "" && href == "" {
			if wasRendered && prev != "" {
				decls = append(decls, nsDecl{"", ""})
			}
			continue
		}
		if wasRendered && prev == href {
			continue
		}
		decls = append(decls, nsDecl{pfx, href})
	}
	sort.Slice(decls, func(i, j int) bool { return decls[i].prefix < decls[j].prefix })

	attrs := extra
	for a := r.props; a != Nil; a = d.recs[a].next {
		ar := &d.recs[a]
		attrs = append(attrs, c14nAttr{uri: d.NsHref(ar.ns), local: ar.name, qname: d.QName(a), value: ar.content})
	}
	sort.SliceStable(attrs, func(i, j int) bool {
		if attrs[i].uri != attrs[j].uri {
			return attrs[i].uri < attrs[j].uri
		}
		return attrs[i].local < attrs[j].local
	})

	name := d.QName(p)
	c.w.WriteString("<" + name)
	inner := rendered
	if len(decls) > 0 {
		inner = make(scope, len(rendered)+len(decls))
		for k, v := range rendered {
			inner[k] = v
		}
	}
	for _, ns := range decls {
		if ns.prefix == "" {
			c.w.WriteString(` xmlns="` + c14nAttrEscaper.Replace(ns.href) + `"`)
		} else {
			c.w.WriteString(` xmlns:` + ns.prefix + `="` + c14nAttrEscaper.Replace(ns.href) + `"`)
		}
		inner[ns.prefix] = ns.href
	}
	for _, a := range attrs {
		c.w.WriteString(" " + a.qname + `="` + c14nAttrEscaper.Replace(a.value) + `"`)
	}
	c.w.WriteString(">")
	for ch := r.first; ch != Nil; ch = d.recs[ch].next {
		c.node(ch, here, inner)
	}
	c.w.WriteString("</" + name + ">")
}

func (c *canon) node(p Pos, here, rendered scope) {
	d := c.d
	r := &d.recs[p]
	switch r.kind {
	case ElementNode:
		c.element(p, here, rendered, nil)
	case TextNode, CDATASectionNode:
		c.w.WriteString(c14nTextEscaper.Replace(r.content))
	case CommentNode:
		if c.comments {
			c.w.WriteString("<!--" + r.content + "-->")
		}
	case PINode:
		if r.content == "" {
			c.w.WriteString("<?" + r.name + "?>")
		} else {
			c.w.WriteString("<?" + r.name + " " + r.content + "?>")
		}
	}
}

var (
	c14nTextEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", "\r", "&#xD;")
	c14nAttrEscaper = strings.NewReplacer(
		"&", "&amp;", "<", "&lt;", `"`, "&quot;",
		"\t", "&#x9;", "\n", "&#xA;", "\r", "&#xD;")
)
