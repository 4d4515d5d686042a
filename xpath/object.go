package xpath

import (
	"math"
	"strconv"
	"strings"

	"github.com/signadot/xmlh/internal/engine"
	"github.com/signadot/xmlh/readonly"
	"github.com/signadot/xmlh/tree"
)

type ResultType = engine.ResultType

const (
	NodeSet = engine.NodeSetResult
	String  = engine.StringResult
	Number  = engine.NumberResult
	Boolean = engine.BooleanResult
)

// Object is the result of an evaluation.
type Object struct {
	doc   *tree.Document
	res   *engine.Result
	nodes []*tree.Node
}

func (o *Object) Type() ResultType { return o.res.Type }

func (o *Object) NumberOfNodes() int { return len(o.res.Nodes) }

// Nodes returns handles on the selected nodes in document order. They
// are wrapped on first call; every call returns the same aliases.
func (o *Object) Nodes() []*tree.Node {
	if o.nodes == nil && len(o.res.Nodes) > 0 {
		o.nodes = o.doc.WrapAll(o.res.Nodes)
	}
	return o.nodes
}

// ReadonlyNodes returns the selected nodes without registering them.
func (o *Object) ReadonlyNodes() []readonly.Node {
	out := make([]readonly.Node, 0, len(o.res.Nodes))
	for _, p := range o.res.Nodes {
		out = append(out, readonly.New(o.doc.Engine(), p))
	}
	return out
}

// Values returns the string value of each selected node, or the single
// scalar value.
func (o *Object) Values() []string {
	if o.res.Type != NodeSet {
		return []string{o.String()}
	}
	out := make([]string, 0, len(o.res.Nodes))
	for _, n := range o.ReadonlyNodes() {
		out = append(out, n.Content())
	}
	return out
}

// String converts the result with the XPath string() rules.
func (o *Object) String() string {
	switch o.res.Type {
	case String:
		return o.res.Str
	case Number:
		return formatNumber(o.res.Num)
	case Boolean:
		return strconv.FormatBool(o.res.Bool)
	}
	if len(o.res.Nodes) == 0 {
		return ""
	}
	return readonly.New(o.doc.Engine(), o.res.Nodes[0]).Content()
}

// Number converts the result with the XPath number() rules.
func (o *Object) Number() float64 {
	switch o.res.Type {
	case Number:
		return o.res.Num
	case Boolean:
		if o.res.Bool {
			return 1
		}
		return 0
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(o.String()), 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

// Bool converts the result with the XPath boolean() rules.
func (o *Object) Bool() bool {
	switch o.res.Type {
	case Boolean:
		return o.res.Bool
	case Number:
		return o.res.Num != 0 && !math.IsNaN(o.res.Num)
	case String:
		return o.res.Str != ""
	}
	return len(o.res.Nodes) > 0
}

func formatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == math.Trunc(f) && math.Abs(f) < 1e15:
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
