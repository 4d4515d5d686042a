package engine

import (
	"bytes"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

func parseHTML(data []byte, flags ParseFlag) (*Doc, []Diagnostic) {
	var r io.Reader = bytes.NewReader(data)
	if flags&IgnoreEnc == 0 {
		if cr, err := charset.NewReader(r, ""); err == nil {
			r = cr
		}
	}
	root, err := html.Parse(r)
	if err != nil {
		return nil, []Diagnostic{{Level: LevelError, Msg: err.Error()}}
	}
	doc := NewDoc("1.0")
	if doc == nil {
		return nil, []Diagnostic{{Level: LevelError, Msg: "cannot allocate document"}}
	}
	doc.html = true
	doc.recs[doc.node].kind = HTMLDocumentNode
	b := &htmlBuilder{doc: doc, flags: flags}
	b.children(doc.node, root, 0)
	if b.failed && flags&Recover == 0 {
		doc.Free()
		return nil, b.diags
	}
	return doc, b.diags
}

type htmlBuilder struct {
	doc    *Doc
	flags  ParseFlag
	diags  []Diagnostic
	failed bool
}

func (b *htmlBuilder) fail(msg string) {
	b.diags = append(b.diags, Diagnostic{Level: LevelError, Msg: msg})
	b.failed = true
}

func (b *htmlBuilder) children(parent Pos, n *html.Node, depth int) {
	if b.flags&Huge == 0 && depth > MaxDepth {
		b.fail("excessive depth in document")
		return
	}
	for c := n.FirstChild; c != nil && !b.failed; c = c.NextSibling {
		p := b.node(c)
		if p == Nil {
			continue
		}
		b.doc.link(parent, p)
		if c.Type == html.ElementNode {
			b.children(p, c, depth+1)
		}
	}
}

func (b *htmlBuilder) node(n *html.Node) Pos {
	d := b.doc
	var p Pos
	switch n.Type {
	case html.ElementNode:
		p = d.NewElement(NoNs, n.Data)
		if p == Nil {
			break
		}
		for _, a := range n.Attr {
			if d.HasNoNsProp(p, a.Key) != Nil {
				continue
			}
			if d.appendProp(p, NoNs, a.Key, a.Val) == Nil {
				b.fail("cannot allocate attribute")
				return Nil
			}
		}
	case html.TextNode:
		if b.flags&NoBlanks != 0 && isBlank(n.Data) {
			return Nil
		}
		if b.flags&Huge == 0 && len(n.Data) > MaxTextLen {
			b.fail("text node too large")
			return Nil
		}
		p = d.NewText(n.Data)
	case html.CommentNode:
		p = d.NewComment(n.Data)
	case html.DoctypeNode:
		var sb strings.Builder
		sb.WriteString("DOCTYPE ")
		sb.WriteString(n.Data)
		for _, a := range n.Attr {
			switch a.Key {
			case "public":
				sb.WriteString(` PUBLIC "` + a.Val + `"`)
			case "system":
				sb.WriteString(` "` + a.Val + `"`)
			}
		}
		p = d.NewDTD(sb.String())
	default:
		return Nil
	}
	if p == Nil {
		b.fail("cannot allocate node")
	}
	return p
}
