// Package parse reads XML and HTML documents into tree documents.
package parse

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/signadot/xmlh/debug"
	"github.com/signadot/xmlh/format"
	"github.com/signadot/xmlh/internal/engine"
	"github.com/signadot/xmlh/tree"
)

// Parse parses d, as XML unless an option selects HTML.
func Parse(d []byte, opts ...ParseOption) (*tree.Document, error) {
	pOpts := &parseOpts{format: format.XMLFormat, flags: DefaultFlags}
	for _, f := range opts {
		f(pOpts)
	}
	return parse(d, pOpts)
}

func ParseString(s string, opts ...ParseOption) (*tree.Document, error) {
	return Parse([]byte(s), opts...)
}

func ParseReader(r io.Reader, opts ...ParseOption) (*tree.Document, error) {
	d, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return Parse(d, opts...)
}

// ParseFile parses the file at path. The format follows the file
// extension unless an option sets it.
func ParseFile(path string, opts ...ParseOption) (*tree.Document, error) {
	d, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	pOpts := &parseOpts{format: format.XMLFormat, flags: DefaultFlags}
	for _, f := range opts {
		f(pOpts)
	}
	if !pOpts.formatSet {
		pOpts.format = format.FromPath(path)
	}
	return parse(d, pOpts)
}

func parse(d []byte, o *parseOpts) (*tree.Document, error) {
	log := o.log
	if log == nil {
		log = slog.Default()
	}
	engine.Init()
	defer engine.Release()
	eng, diags := engine.Parse(d, o.engineFormat(), o.flags&^(engine.NoError|engine.NoWarning))
	if o.diags != nil {
		*o.diags = append(*o.diags, diags...)
	}
	for _, dg := range diags {
		if debug.Parse() {
			debug.Logf("parse %s: %s\n", o.format, dg)
		}
		if dg.Level == engine.LevelError && o.flags&engine.NoError != 0 {
			continue
		}
		if dg.Level == engine.LevelWarning && o.flags&engine.NoWarning != 0 {
			continue
		}
		log.Warn("parser", "format", o.format, "line", dg.Line, "column", dg.Column, "level", dg.Level, "msg", dg.Msg)
	}
	doc, err := adopt(eng, diags, o)
	o.metrics.Parse(o.format.String(), err)
	return doc, err
}

func adopt(eng *engine.Doc, diags []Diagnostic, o *parseOpts) (*tree.Document, error) {
	if eng == nil {
		if len(diags) == 0 {
			return nil, ErrEmpty
		}
		return nil, &Error{Diagnostics: diags}
	}
	if n := eng.Live(); o.nodeLimit > 0 && n > o.nodeLimit {
		eng.Free()
		return nil, fmt.Errorf("%w: %d nodes exceed the limit of %d", tree.ErrAllocation, n, o.nodeLimit)
	}
	return tree.Adopt(eng, o.treeOpts()...)
}
