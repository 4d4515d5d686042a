// Package tree is a safe handle layer over the tree engine.
//
// A Document owns one engine document and a registry of every position it
// handed out. A *Node is one alias of the registry's holder for a
// position: all accessors returning nodes hand out new aliases, and a node
// can only be mutated while the number of live aliases of its position
// does not exceed MutationThreshold. Release aliases as soon as they are
// no longer needed; aliases that become unreachable are released by the
// garbage collector, eventually.
//
// Detached subtrees are never freed while a handle may point into them.
// They are freed, exactly once, when the Document is closed. After Close
// every handle reads as absent and every mutation fails with ErrClosed.
package tree

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"weak"

	"github.com/google/uuid"
	"github.com/signadot/xmlh/format"
	"github.com/signadot/xmlh/internal/engine"
	"github.com/signadot/xmlh/metrics"
	"github.com/signadot/xmlh/readonly"
)

type Document struct {
	reg     *registry
	cleanup runtime.Cleanup
}

// NewDocument creates an empty XML document.
func NewDocument(opts ...Option) (*Document, error) {
	engine.Init()
	eng := engine.NewDoc("1.0")
	if eng == nil {
		engine.Release()
		return nil, ErrAllocation
	}
	return newDocument(eng, makeOpts(opts)), nil
}

// Adopt takes ownership of an engine document, typically one produced by
// the parser.
func Adopt(eng *engine.Doc, opts ...Option) (*Document, error) {
	if eng == nil || eng.Freed() {
		return nil, ErrAllocation
	}
	engine.Init()
	return newDocument(eng, makeOpts(opts)), nil
}

func newDocument(eng *engine.Doc, o docOpts) *Document {
	f := format.XMLFormat
	if eng.IsHTML() {
		f = format.HTMLFormat
	}
	if o.nodeLimit > 0 {
		eng.SetMaxNodes(o.nodeLimit)
	}
	id := uuid.NewString()
	r := &registry{
		id:      id,
		eng:     eng,
		nodes:   map[engine.Pos]*holder{},
		format:  f,
		opts:    o,
		log:     o.log.With("doc", id),
		metrics: o.metrics,
	}
	d := &Document{reg: r}
	r.doc = weak.Make(d)
	d.cleanup = runtime.AddCleanup(d, (*registry).teardown, r)
	r.metrics.DocOpened()
	r.log.Debug("document created", "format", f)
	return d
}

// Close tears the document down. It is safe to call more than once.
func (d *Document) Close() error {
	d.cleanup.Stop()
	d.reg.teardown()
	return nil
}

func (d *Document) Closed() bool {
	d.reg.mu.Lock()
	defer d.reg.mu.Unlock()
	return d.reg.closed
}

func (d *Document) ID() string { return d.reg.id }

func (d *Document) Format() format.Format { return d.reg.format }

// Engine exposes the engine document to sibling packages. Callers must
// not mutate through it.
func (d *Document) Engine() *engine.Doc { return d.reg.eng }

// Logger returns the logger the document was opened with.
func (d *Document) Logger() *slog.Logger { return d.reg.log }

// Metrics returns the collectors the document records into, possibly nil.
func (d *Document) Metrics() *metrics.Metrics { return d.reg.metrics }

// Handles reports the number of registered positions.
func (d *Document) Handles() int {
	d.reg.mu.Lock()
	defer d.reg.mu.Unlock()
	return len(d.reg.nodes)
}

// Wrap returns an alias of the handle for p, registering p on first use.
func (d *Document) Wrap(p engine.Pos) *Node {
	d.reg.mu.Lock()
	defer d.reg.mu.Unlock()
	return d.reg.wrapLocked(p)
}

// WrapAll wraps positions under a single lock acquisition.
func (d *Document) WrapAll(ps []engine.Pos) []*Node {
	d.reg.mu.Lock()
	defer d.reg.mu.Unlock()
	if d.reg.closed {
		return nil
	}
	out := make([]*Node, 0, len(ps))
	for _, p := range ps {
		if n := d.reg.wrapLocked(p); n != nil {
			out = append(out, n)
		}
	}
	return out
}

func (d *Document) Root() *Node {
	d.reg.mu.Lock()
	defer d.reg.mu.Unlock()
	if d.reg.closed {
		return nil
	}
	return d.reg.wrapLocked(d.reg.eng.Root())
}

// AsNode returns the document node itself.
func (d *Document) AsNode() *Node {
	d.reg.mu.Lock()
	defer d.reg.mu.Unlock()
	if d.reg.closed {
		return nil
	}
	return d.reg.wrapLocked(d.reg.eng.DocNode())
}

// Readonly returns the root element as a read-only node.
func (d *Document) Readonly() readonly.Node {
	d.reg.mu.Lock()
	defer d.reg.mu.Unlock()
	if d.reg.closed {
		return readonly.Node{}
	}
	return readonly.New(d.reg.eng, d.reg.eng.Root())
}

func (d *Document) checkNode(n *Node) error {
	if n == nil {
		return fmt.Errorf("%w: nil node", ErrStructure)
	}
	if n.h.reg != d.reg {
		return ErrWrongDocument
	}
	return nil
}

// SetRoot makes n the root element. A previous root stays alive,
// detached, until the document is closed.
func (d *Document) SetRoot(n *Node) error {
	if err := d.checkNode(n); err != nil {
		return err
	}
	r := d.reg
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	if n.h.removed {
		return ErrRemoved
	}
	p := n.h.pos
	if k := r.eng.Kind(p); k != engine.ElementNode {
		return fmt.Errorf("%w: %s cannot be the root", ErrStructure, k)
	}
	if r.eng.Root() == p {
		return nil
	}
	if old := r.eng.SetRoot(p); old != engine.Nil {
		r.holderLocked(old).detached = true
	}
	return nil
}

func (d *Document) newNode(create func(e *engine.Doc) engine.Pos) (*Node, error) {
	r := d.reg
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrClosed
	}
	p := create(r.eng)
	if p == engine.Nil {
		return nil, ErrAllocation
	}
	return r.wrapLocked(p), nil
}

// NewNode creates a detached element, in namespace ns if it is not nil.
func (d *Document) NewNode(name string, ns *Namespace) (*Node, error) {
	ref, err := d.reg.nsRef(ns)
	if err != nil {
		return nil, err
	}
	return d.newNode(func(e *engine.Doc) engine.Pos { return e.NewElement(ref, name) })
}

func (d *Document) NewTextNode(content string) (*Node, error) {
	return d.newNode(func(e *engine.Doc) engine.Pos { return e.NewText(content) })
}

func (d *Document) NewCommentNode(content string) (*Node, error) {
	return d.newNode(func(e *engine.Doc) engine.Pos { return e.NewComment(content) })
}

func (d *Document) NewCDATANode(content string) (*Node, error) {
	return d.newNode(func(e *engine.Doc) engine.Pos { return e.NewCDATA(content) })
}

// NewPI creates a detached processing instruction.
func (d *Document) NewPI(name, content string) (*Node, error) {
	return d.newNode(func(e *engine.Doc) engine.Pos { return e.NewPI(name, content) })
}

// ImportNode deep copies a detached node, possibly from another document,
// into d and returns the detached copy.
func (d *Document) ImportNode(n *Node) (*Node, error) {
	if n == nil {
		return nil, fmt.Errorf("%w: nil node", ErrStructure)
	}
	src := n.h.reg
	unlock := lockPair(d.reg, src)
	defer unlock()
	if d.reg.closed || src.closed {
		return nil, ErrClosed
	}
	if n.h.removed {
		return nil, ErrRemoved
	}
	if src.linkedLocked(n.h) {
		return nil, ErrNotDetached
	}
	p := d.reg.eng.CopyNode(src.eng, n.h.pos)
	if p == engine.Nil {
		return nil, ErrAllocation
	}
	return d.reg.wrapLocked(p), nil
}

// Dup deep copies the document. The copy shares no handles with d.
func (d *Document) Dup() (*Document, error) {
	r := d.reg
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrClosed
	}
	eng := r.eng.Copy()
	if eng == nil {
		return nil, ErrAllocation
	}
	engine.Init()
	return newDocument(eng, r.opts), nil
}

// SaveOptions select serialization behavior.
type SaveOptions struct {
	Format                   bool
	NoDeclaration            bool
	NoEmptyTags              bool
	NoXHTML                  bool
	XHTML                    bool
	AsXML                    bool
	AsHTML                   bool
	NonSignificantWhitespace bool
}

func (o SaveOptions) flags() engine.SaveFlag {
	var f engine.SaveFlag
	set := func(b bool, v engine.SaveFlag) {
		if b {
			f |= v
		}
	}
	set(o.Format, engine.SaveFormat)
	set(o.NoDeclaration, engine.NoDecl)
	set(o.NoEmptyTags, engine.NoEmpty)
	set(o.NoXHTML, engine.NoXHTML)
	set(o.XHTML, engine.XHTML)
	set(o.AsXML, engine.AsXML)
	set(o.AsHTML, engine.AsHTML)
	set(o.NonSignificantWhitespace, engine.WSNonSig)
	return f
}

// Serialize renders the document. A closed document renders as "".
func (d *Document) Serialize(o SaveOptions) string {
	r := d.reg
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ""
	}
	var sb strings.Builder
	r.eng.DumpDoc(&sb, o.flags())
	return sb.String()
}

func (d *Document) String() string {
	return d.Serialize(SaveOptions{Format: true})
}

// NodeToString renders one node of d.
func (d *Document) NodeToString(n *Node) string {
	if d.checkNode(n) != nil {
		return ""
	}
	return n.Serialize(SaveOptions{})
}

// SaveFile writes the serialized document to path.
func (d *Document) SaveFile(path string, o SaveOptions) error {
	r := d.reg
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}
	var sb strings.Builder
	r.eng.DumpDoc(&sb, o.flags())
	r.mu.Unlock()
	return os.WriteFile(path, []byte(sb.String()), 0o644)
}

// C14NMode names a canonicalization algorithm. The zero value is
// exclusive canonicalization 1.0.
type C14NMode int

const (
	Exclusive10 C14NMode = iota
	C14N10
	C14N11
)

func (m C14NMode) engine() engine.C14NMode {
	switch m {
	case C14N10:
		return engine.C14N10
	case C14N11:
		return engine.C14N11
	}
	return engine.Exclusive10
}

func (m C14NMode) String() string { return m.engine().String() }

type C14NOptions struct {
	Mode                C14NMode
	WithComments        bool
	InclusiveNsPrefixes []string
}

// Canonicalize renders the whole document in canonical form.
func (d *Document) Canonicalize(o C14NOptions) (string, error) {
	return d.reg.canonicalize(engine.Nil, o)
}

func (r *registry) canonicalize(p engine.Pos, o C14NOptions) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return "", ErrClosed
	}
	var sb strings.Builder
	if r.eng.C14N(&sb, p, o.Mode.engine(), o.WithComments, o.InclusiveNsPrefixes) != 0 {
		return "", fmt.Errorf("%w: mode %s", ErrC14N, o.Mode)
	}
	return sb.String(), nil
}
