package parse

import (
	"log/slog"

	"github.com/signadot/xmlh/format"
	"github.com/signadot/xmlh/internal/engine"
	"github.com/signadot/xmlh/metrics"
	"github.com/signadot/xmlh/tree"
)

type Diagnostic = engine.Diagnostic

type Level = engine.Level

const (
	LevelWarning = engine.LevelWarning
	LevelError   = engine.LevelError
)

type parseOpts struct {
	format    format.Format
	formatSet bool
	flags     engine.ParseFlag
	log       *slog.Logger
	metrics   *metrics.Metrics
	nodeLimit int
	diags     *[]Diagnostic
}

func (o *parseOpts) engineFormat() engine.Format {
	if o.format == format.HTMLFormat {
		return engine.HTML
	}
	return engine.XML
}

func (o *parseOpts) treeOpts() []tree.Option {
	opts := []tree.Option{tree.WithMetrics(o.metrics)}
	if o.log != nil {
		opts = append(opts, tree.WithLogger(o.log))
	}
	if o.nodeLimit > 0 {
		opts = append(opts, tree.WithNodeLimit(o.nodeLimit))
	}
	return opts
}

// DefaultFlags silence diagnostics and forbid network access.
const DefaultFlags = engine.NoError | engine.NoWarning | engine.NoNet

type ParseOption func(*parseOpts)

func ParseXML() ParseOption {
	return ParseFormat(format.XMLFormat)
}
func ParseHTML() ParseOption {
	return ParseFormat(format.HTMLFormat)
}
func ParseFormat(f format.Format) ParseOption {
	return func(o *parseOpts) { o.format, o.formatSet = f, true }
}

// Recover keeps whatever tree could be built from malformed input.
func Recover(v bool) ParseOption {
	return flag(engine.Recover, v)
}

// Verbose logs errors and warnings at Warn level.
func Verbose(v bool) ParseOption {
	return flag(engine.NoError|engine.NoWarning, !v)
}
func NoBlanks(v bool) ParseOption {
	return flag(engine.NoBlanks, v)
}

// Huge lifts the depth and text size limits.
func Huge(v bool) ParseOption {
	return flag(engine.Huge, v)
}

// IgnoreEncoding reads the input as UTF-8 whatever it declares.
func IgnoreEncoding(v bool) ParseOption {
	return flag(engine.IgnoreEnc, v)
}

func flag(f engine.ParseFlag, v bool) ParseOption {
	return func(o *parseOpts) {
		if v {
			o.flags |= f
		} else {
			o.flags &^= f
		}
	}
}

func ParseLogger(l *slog.Logger) ParseOption {
	return func(o *parseOpts) { o.log = l }
}
func ParseMetrics(m *metrics.Metrics) ParseOption {
	return func(o *parseOpts) { o.metrics = m }
}

// ParseNodeLimit caps the number of nodes of the resulting document.
func ParseNodeLimit(n int) ParseOption {
	return func(o *parseOpts) { o.nodeLimit = n }
}

// ParseDiagnostics collects every diagnostic of the parse into d, whether
// or not it is logged.
func ParseDiagnostics(d *[]Diagnostic) ParseOption {
	return func(o *parseOpts) { o.diags = d }
}
