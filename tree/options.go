package tree

import (
	"log/slog"

	"github.com/signadot/xmlh/metrics"
)

type docOpts struct {
	log       *slog.Logger
	metrics   *metrics.Metrics
	nodeLimit int
}

type Option func(*docOpts)

func WithLogger(l *slog.Logger) Option {
	return func(o *docOpts) { o.log = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *docOpts) { o.metrics = m }
}

// WithNodeLimit caps the number of live nodes; creations beyond it fail
// with ErrAllocation.
func WithNodeLimit(n int) Option {
	return func(o *docOpts) { o.nodeLimit = n }
}

func makeOpts(opts []Option) docOpts {
	o := docOpts{}
	for _, f := range opts {
		f(&o)
	}
	if o.log == nil {
		o.log = slog.Default()
	}
	return o
}

func (o docOpts) options() []Option {
	return []Option{WithLogger(o.log), WithMetrics(o.metrics), WithNodeLimit(o.nodeLimit)}
}
