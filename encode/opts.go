package encode

import (
	"github.com/signadot/xmlh/format"
	"github.com/signadot/xmlh/tree"
)

type EncodeOption func(*EncState)

// EncodeFormat forces output as XML or HTML regardless of the document's
// own format.
func EncodeFormat(f format.Format) EncodeOption {
	return func(es *EncState) { es.format, es.formatSet = f, true }
}

// FormatFromOpts extracts the format from encode options.
func FormatFromOpts(opts ...EncodeOption) format.Format {
	es := &EncState{}
	for _, opt := range opts {
		opt(es)
	}
	return es.format
}

func Indent(v bool) EncodeOption {
	return func(es *EncState) { es.save.Format = v }
}
func NoDeclaration(v bool) EncodeOption {
	return func(es *EncState) { es.save.NoDeclaration = v }
}
func NoEmptyTags(v bool) EncodeOption {
	return func(es *EncState) { es.save.NoEmptyTags = v }
}
func XHTML(v bool) EncodeOption {
	return func(es *EncState) { es.save.XHTML = v }
}
func NonSignificantWhitespace(v bool) EncodeOption {
	return func(es *EncState) { es.save.NonSignificantWhitespace = v }
}

// Canonical renders canonical XML with the given options instead of the
// regular serialization.
func Canonical(o tree.C14NOptions) EncodeOption {
	return func(es *EncState) { es.c14n = &o }
}
func EncodeColors(c *Colors) EncodeOption {
	return func(es *EncState) { es.colors = c }
}
