package engine

import (
	"bufio"
	"io"
	"strings"
)

// SaveFlag tunes serialization.
type SaveFlag uint32

const (
	// SaveFormat indents element content with two spaces.
	SaveFormat SaveFlag = 1 << iota
	// NoDecl omits the XML declaration.
	NoDecl
	// NoEmpty writes empty elements as start and end tag pairs.
	NoEmpty
	// NoXHTML disables XHTML rules.
	NoXHTML
	// XHTML writes void elements as <br />.
	XHTML
	// AsXML writes HTML documents as XML.
	AsXML
	// AsHTML writes documents with HTML rules.
	AsHTML
	// WSNonSig treats whitespace only text as insignificant when indenting.
	WSNonSig
)

var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"param": true, "source": true, "track": true, "wbr": true,
}

var rawTextElements = map[string]bool{"script": true, "style": true}

type dumper struct {
	d     *Doc
	w     *bufio.Writer
	flags SaveFlag
	html  bool
	xhtml bool
}

func (d *Doc) newDumper(w io.Writer, flags SaveFlag) *dumper {
	html := flags&AsHTML != 0 || (d.html && flags&AsXML == 0)
	return &dumper{
		d:     d,
		w:     bufio.NewWriter(w),
		flags: flags,
		html:  html,
		xhtml: !html && flags&XHTML != 0 && flags&NoXHTML == 0,
	}
}

// DumpDoc writes the whole document. It returns -1 on write errors or
// if the document is freed.
func (d *Doc) DumpDoc(w io.Writer, flags SaveFlag) int {
	if d.Freed() {
		return -1
	}
	du := d.newDumper(w, flags)
	if !du.html && flags&NoDecl == 0 {
		du.w.WriteString(`<?xml version="` + d.version + `" encoding="UTF-8"?>` + "\n")
	}
	for c := d.recs[d.node].first; c != Nil; c = d.recs[c].next {
		du.node(c, 0, nil)
		du.w.WriteByte('\n')
	}
	if du.w.Flush() != nil {
		return -1
	}
	return 0
}

// Dump writes the subtree at p without a declaration. Namespaces declared
// above p are declared on p when used.
func (d *Doc) Dump(w io.Writer, p Pos, flags SaveFlag) int {
	r := d.rec(p)
	if r == nil {
		return -1
	}
	if r.kind.IsDocument() {
		return d.DumpDoc(w, flags)
	}
	du := d.newDumper(w, flags)
	du.node(p, 0, nil)
	if du.w.Flush() != nil {
		return -1
	}
	return 0
}

// scope maps prefixes to hrefs declared in the output so far.
type scope map[string]string

func (s scope) with(prefix, href string) scope {
	out := make(scope, len(s)+1)
	for k, v := range s {
		out[k] = v
	}
	out[prefix] = href
	return out
}

func (du *dumper) indent(level int) {
	du.w.WriteByte('\n')
	for range level {
		du.w.WriteString("  ")
	}
}

func (du *dumper) node(p Pos, level int, sc scope) {
	d := du.d
	r := &d.recs[p]
	switch r.kind {
	case ElementNode:
		du.element(p, level, sc)
	case TextNode:
		parent := d.rec(r.parent)
		if du.html && parent != nil && rawTextElements[strings.ToLower(parent.name)] {
			du.w.WriteString(r.content)
			return
		}
		du.w.WriteString(escapeText(r.content))
	case CDATASectionNode:
		du.w.WriteString("<![CDATA[" + r.content + "]]>")
	case CommentNode:
		du.w.WriteString("<!--" + r.content + "-->")
	case PINode:
		if r.content == "" {
			du.w.WriteString("<?" + r.name + "?>")
		} else {
			du.w.WriteString("<?" + r.name + " " + r.content + "?>")
		}
	case DTDNode:
		du.w.WriteString("<!" + r.content + ">")
	case AttributeNode:
		du.w.WriteString(d.QName(p) + `="` + escapeAttr(r.content) + `"`)
	case DocumentFragNode:
		for c := r.first; c != Nil; c = d.recs[c].next {
			du.node(c, level, sc)
		}
	}
}

// declare writes a namespace declaration for ns unless sc already binds it.
func (du *dumper) declare(ns NsRef, sc scope) scope {
	if ns == NoNs || ns == XMLNs {
		return sc
	}
	nr := du.d.nss[ns]
	href, bound := sc[nr.prefix]
	if bound && href == nr.href {
		return sc
	}
	if !bound && nr.href == "" {
		return sc
	}
	du.writeNsDecl(nr.prefix, nr.href)
	return sc.with(nr.prefix, nr.href)
}

func (du *dumper) writeNsDecl(prefix, href string) {
	if prefix == "" {
		du.w.WriteString(` xmlns="` + escapeAttr(href) + `"`)
		return
	}
	du.w.WriteString(` xmlns:` + prefix + `="` + escapeAttr(href) + `"`)
}

func (du *dumper) element(p Pos, level int, sc scope) {
	d := du.d
	r := &d.recs[p]
	name := d.QName(p)
	du.w.WriteString("<" + name)
	for _, ns := range r.nsDef {
		nr := d.nss[ns]
		du.writeNsDecl(nr.prefix, nr.href)
		sc = sc.with(nr.prefix, nr.href)
	}
	sc = du.declare(r.ns, sc)
	for a := r.props; a != Nil; a = d.recs[a].next {
		sc = du.declare(d.recs[a].ns, sc)
	}
	for a := r.props; a != Nil; a = d.recs[a].next {
		ar := &d.recs[a]
		if du.html && ar.content == "" && ar.ns == NoNs {
			du.w.WriteString(" " + ar.name)
			continue
		}
		du.w.WriteString(" " + d.QName(a) + `="` + escapeAttr(ar.content) + `"`)
	}
	if r.first == Nil {
		lname := strings.ToLower(r.name)
		switch {
		case du.html && voidElements[lname]:
			du.w.WriteString(">")
		case du.xhtml && voidElements[lname]:
			du.w.WriteString(" />")
		case du.html || du.xhtml || du.flags&NoEmpty != 0:
			du.w.WriteString("></" + name + ">")
		default:
			du.w.WriteString("/>")
		}
		return
	}
	du.w.WriteString(">")
	indent := du.flags&SaveFormat != 0 && !du.hasText(p)
	for c := r.first; c != Nil; c = d.recs[c].next {
		if indent && d.recs[c].kind == TextNode {
			continue
		}
		if indent {
			du.indent(level + 1)
		}
		du.node(c, level+1, sc)
	}
	if indent {
		du.indent(level)
	}
	du.w.WriteString("</" + name + ">")
}

// hasText reports whether p has text children that must be kept verbatim.
func (du *dumper) hasText(p Pos) bool {
	d := du.d
	for c := d.recs[p].first; c != Nil; c = d.recs[c].next {
		switch d.recs[c].kind {
		case TextNode:
			if du.flags&WSNonSig != 0 && isBlank(d.recs[c].content) {
				continue
			}
			return true
		case CDATASectionNode, EntityRefNode:
			return true
		}
	}
	return false
}

var (
	textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", "\r", "&#13;")
	attrEscaper = strings.NewReplacer(
		"&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;",
		"\n", "&#10;", "\r", "&#13;", "\t", "&#9;")
)

func escapeText(s string) string { return textEscaper.Replace(s) }

func escapeAttr(s string) string { return attrEscaper.Replace(s) }
