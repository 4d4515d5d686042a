package engine

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Format selects the parser.
type Format int

const (
	XML Format = iota
	HTML
)

// ParseFlag tunes parsing.
type ParseFlag uint32

const (
	// Recover keeps the partial tree on errors.
	Recover ParseFlag = 1 << iota
	// NoError suppresses error diagnostics.
	NoError
	// NoWarning suppresses warning diagnostics.
	NoWarning
	// NoBlanks drops whitespace only text nodes.
	NoBlanks
	// NoNet forbids network access. The parser never fetches anything.
	NoNet
	// Huge lifts the depth and text size limits.
	Huge
	// IgnoreEnc ignores the declared encoding and reads UTF-8.
	IgnoreEnc
)

const (
	MaxDepth   = 256
	MaxTextLen = 10_000_000
)

type Level int

const (
	LevelWarning Level = iota
	LevelError
)

func (l Level) String() string {
	if l == LevelError {
		return "error"
	}
	return "warning"
}

// Diagnostic is one parser message.
type Diagnostic struct {
	Level  Level
	Line   int
	Column int
	Msg    string
}

func (d Diagnostic) Error() string {
	return fmt.Sprintf("%d:%d: %s: %s", d.Line, d.Column, d.Level, d.Msg)
}

// Parse builds a document from data. The document is nil when parsing
// failed and Recover is unset, or when nothing usable was found. Errors
// and warnings are returned unless NoError or NoWarning suppress them.
func Parse(data []byte, f Format, flags ParseFlag) (*Doc, []Diagnostic) {
	var (
		doc   *Doc
		diags []Diagnostic
	)
	switch f {
	case HTML:
		doc, diags = parseHTML(data, flags)
	default:
		doc, diags = parseXML(data, flags)
	}
	out := diags[:0]
	for _, dg := range diags {
		if dg.Level == LevelError && flags&NoError != 0 {
			continue
		}
		if dg.Level == LevelWarning && flags&NoWarning != 0 {
			continue
		}
		out = append(out, dg)
	}
	if len(out) == 0 {
		out = nil
	}
	return doc, out
}

type xmlBuilder struct {
	doc    *Doc
	dec    *xml.Decoder
	flags  ParseFlag
	stack  []Pos
	qnames []string
	diags  []Diagnostic
	closed bool
	failed bool
}

func (b *xmlBuilder) report(level Level, format string, args ...any) {
	line, col := b.dec.InputPos()
	b.diags = append(b.diags, Diagnostic{Level: level, Line: line, Column: col, Msg: fmt.Sprintf(format, args...)})
	if level == LevelError {
		b.failed = true
	}
}

func (b *xmlBuilder) top() Pos { return b.stack[len(b.stack)-1] }

func inputReader(data []byte, flags ParseFlag) (io.Reader, bool) {
	if bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}) ||
		bytes.HasPrefix(data, []byte{0xFF, 0xFE}) ||
		bytes.HasPrefix(data, []byte{0xFE, 0xFF}) {
		dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
		return transform.NewReader(bytes.NewReader(data), dec), true
	}
	return bytes.NewReader(data), flags&IgnoreEnc != 0
}

func parseXML(data []byte, flags ParseFlag) (*Doc, []Diagnostic) {
	doc := NewDoc("1.0")
	if doc == nil {
		return nil, []Diagnostic{{Level: LevelError, Msg: "cannot allocate document"}}
	}
	r, utf8Only := inputReader(data, flags)
	dec := xml.NewDecoder(r)
	dec.Strict = flags&Recover == 0
	if utf8Only {
		dec.CharsetReader = func(_ string, in io.Reader) (io.Reader, error) { return in, nil }
	} else {
		dec.CharsetReader = charset.NewReaderLabel
	}
	b := &xmlBuilder{doc: doc, dec: dec, flags: flags, stack: []Pos{doc.node}}
	for {
		tok, err := dec.RawToken()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			b.report(LevelError, "%s", strings.TrimPrefix(err.Error(), "XML syntax error on "))
			break
		}
		if !b.token(tok) {
			break
		}
	}
	if len(b.stack) > 1 && !b.failed {
		b.report(LevelError, "premature end of data in tag %s", b.qnames[len(b.qnames)-1])
	}
	if doc.Root() == Nil {
		if !b.failed {
			b.report(LevelError, "document is empty")
		}
		doc.Free()
		return nil, b.diags
	}
	if b.failed && flags&Recover == 0 {
		doc.Free()
		return nil, b.diags
	}
	return doc, b.diags
}

func isBlank(s string) bool {
	return strings.TrimLeft(s, " \t\r\n") == ""
}

func qnameOf(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}

// token adds one raw token to the tree. It returns false to stop.
func (b *xmlBuilder) token(tok xml.Token) bool {
	d := b.doc
	switch t := tok.(type) {
	case xml.StartElement:
		return b.start(t)
	case xml.EndElement:
		return b.end(t)
	case xml.CharData:
		s := string(t)
		if b.top() == d.node {
			if !isBlank(s) {
				b.report(LevelError, "content outside of the root element")
				return b.flags&Recover != 0
			}
			return true
		}
		if b.flags&NoBlanks != 0 && isBlank(s) {
			return true
		}
		parent := b.top()
		if l := d.recs[parent].last; l != Nil && d.recs[l].kind == TextNode {
			s = d.recs[l].content + s
			if b.flags&Huge == 0 && len(s) > MaxTextLen {
				b.report(LevelError, "text node exceeds %d bytes", MaxTextLen)
				return false
			}
			d.recs[l].content = s
			return true
		}
		if b.flags&Huge == 0 && len(s) > MaxTextLen {
			b.report(LevelError, "text node exceeds %d bytes", MaxTextLen)
			return false
		}
		return b.append(d.NewText(s))
	case xml.Comment:
		return b.append(d.NewComment(string(t)))
	case xml.ProcInst:
		if t.Target == "xml" {
			if v := declAttr(string(t.Inst), "version"); v == "1.0" || v == "1.1" {
				d.version = v
			}
			return true
		}
		return b.append(d.NewPI(t.Target, string(t.Inst)))
	case xml.Directive:
		s := string(t)
		if b.top() == d.node && strings.HasPrefix(s, "DOCTYPE") {
			return b.append(d.NewDTD(s))
		}
	}
	return true
}

func (b *xmlBuilder) append(p Pos) bool {
	if p == Nil {
		b.report(LevelError, "cannot allocate node")
		return false
	}
	b.doc.link(b.top(), p)
	return true
}

func (b *xmlBuilder) start(t xml.StartElement) bool {
	d := b.doc
	if b.flags&Huge == 0 && len(b.stack) > MaxDepth {
		b.report(LevelError, "excessive depth in document: %d", MaxDepth)
		return false
	}
	if b.top() == d.node && d.Root() != Nil {
		b.report(LevelError, "extra content at the end of the document")
		if b.flags&Recover == 0 {
			return false
		}
	}
	el := d.NewElement(NoNs, t.Name.Local)
	if !b.append(el) {
		return false
	}
	for _, a := range t.Attr {
		switch {
		case a.Name.Space == "xmlns":
			if d.NewNs(el, a.Value, a.Name.Local) == NoNs {
				b.report(LevelError, "invalid namespace declaration xmlns:%s", a.Name.Local)
			}
		case a.Name.Space == "" && a.Name.Local == "xmlns":
			if d.NewNs(el, a.Value, "") == NoNs {
				b.report(LevelError, "invalid default namespace declaration")
			}
		}
	}
	if ns := d.SearchNs(el, t.Name.Space); ns != NoNs {
		d.recs[el].ns = ns
	} else if t.Name.Space != "" {
		b.report(LevelWarning, "namespace prefix %s on %s is not defined", t.Name.Space, t.Name.Local)
		d.recs[el].name = qnameOf(t.Name)
	}
	for _, a := range t.Attr {
		if a.Name.Space == "xmlns" || (a.Name.Space == "" && a.Name.Local == "xmlns") {
			continue
		}
		ns, name := NoNs, a.Name.Local
		if a.Name.Space != "" {
			ns = d.SearchNs(el, a.Name.Space)
			if ns == NoNs {
				b.report(LevelWarning, "namespace prefix %s for %s on %s is not defined", a.Name.Space, a.Name.Local, t.Name.Local)
				name = qnameOf(a.Name)
			}
		}
		if d.findProp(el, func(r *record) bool { return r.name == name && r.ns == ns }) != Nil {
			b.report(LevelError, "attribute %s redefined", qnameOf(a.Name))
			if b.flags&Recover == 0 {
				return false
			}
			continue
		}
		if d.appendProp(el, ns, name, a.Value) == Nil {
			b.report(LevelError, "cannot allocate attribute")
			return false
		}
	}
	b.stack = append(b.stack, el)
	b.qnames = append(b.qnames, qnameOf(t.Name))
	return true
}

func (b *xmlBuilder) end(t xml.EndElement) bool {
	name := qnameOf(t.Name)
	n := len(b.qnames)
	if n == 0 {
		b.report(LevelError, "unexpected end tag %s", name)
		return b.flags&Recover != 0
	}
	if b.qnames[n-1] == name {
		b.stack = b.stack[:n]
		b.qnames = b.qnames[:n-1]
		return true
	}
	b.report(LevelError, "opening and ending tag mismatch: %s and %s", b.qnames[n-1], name)
	if b.flags&Recover == 0 {
		return false
	}
	for i := n - 1; i >= 0; i-- {
		if b.qnames[i] == name {
			b.stack = b.stack[:i+1]
			b.qnames = b.qnames[:i]
			break
		}
	}
	return true
}

// declAttr extracts a pseudo attribute from an XML declaration.
func declAttr(inst, name string) string {
	i := strings.Index(inst, name)
	if i < 0 {
		return ""
	}
	rest := strings.TrimLeft(inst[i+len(name):], " \t\r\n")
	if !strings.HasPrefix(rest, "=") {
		return ""
	}
	rest = strings.TrimLeft(rest[1:], " \t\r\n")
	if rest == "" || (rest[0] != '"' && rest[0] != '\'') {
		return ""
	}
	q := rest[0]
	rest = rest[1:]
	if j := strings.IndexByte(rest, q); j >= 0 {
		return rest[:j]
	}
	return ""
}
