// Package encode writes tree documents and nodes.
package encode

import (
	"bytes"
	"io"
	"strings"

	"github.com/signadot/xmlh/format"
	"github.com/signadot/xmlh/tree"
)

type EncState struct {
	format    format.Format
	formatSet bool
	save      tree.SaveOptions
	c14n      *tree.C14NOptions
	colors    *Colors
}

func newState(opts []EncodeOption) *EncState {
	es := &EncState{}
	for _, opt := range opts {
		opt(es)
	}
	if es.formatSet {
		es.save.AsXML = es.format.IsXML()
		es.save.AsHTML = es.format.IsHTML()
	}
	return es
}

// Encode writes doc to w.
func Encode(doc *tree.Document, w io.Writer, opts ...EncodeOption) error {
	if doc == nil || doc.Closed() {
		return tree.ErrClosed
	}
	es := newState(opts)
	var (
		s   string
		err error
	)
	if es.c14n != nil {
		s, err = doc.Canonicalize(*es.c14n)
	} else {
		s = doc.Serialize(es.save)
	}
	if err != nil {
		return err
	}
	return write(w, s, es)
}

// EncodeNode writes the subtree at n to w, followed by a newline.
func EncodeNode(n *tree.Node, w io.Writer, opts ...EncodeOption) error {
	es := newState(opts)
	var (
		s   string
		err error
	)
	if es.c14n != nil {
		s, err = n.Canonicalize(*es.c14n)
	} else {
		s = n.Serialize(es.save)
	}
	if err != nil {
		return err
	}
	if !strings.HasSuffix(s, "\n") {
		s += "\n"
	}
	return write(w, s, es)
}

func write(w io.Writer, s string, es *EncState) error {
	if es.colors != nil {
		s = es.colors.Highlight(s)
	}
	_, err := io.WriteString(w, s)
	return err
}

// MustString encodes n and panics on failure.
func MustString(n *tree.Node, opts ...EncodeOption) string {
	buf := bytes.NewBuffer(nil)
	if err := EncodeNode(n, buf, opts...); err != nil {
		panic(err)
	}
	return strings.TrimSpace(buf.String())
}
