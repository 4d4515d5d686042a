package tree

import (
	"log/slog"
	"runtime"
	"sync"
	"weak"

	"github.com/signadot/xmlh/debug"
	"github.com/signadot/xmlh/format"
	"github.com/signadot/xmlh/internal/engine"
	"github.com/signadot/xmlh/metrics"
)

// registry is the bookkeeping shared by a Document and all of its node
// handles. It maps every position that was ever handed out to its single
// holder. mu serializes all engine access made through the Document and
// its handles.
type registry struct {
	mu      sync.Mutex
	id      string
	eng     *engine.Doc
	nodes   map[engine.Pos]*holder
	closed  bool
	format  format.Format
	doc     weak.Pointer[Document]
	opts    docOpts
	log     *slog.Logger
	metrics *metrics.Metrics
}

// holder is the canonical record of one position. aliases counts the live
// *Node values pointing at it. detached records that the position was, at
// some point, the top of a subtree cut off from the document; teardown
// checks those. Whether the position is linked now is asked of the engine.
type holder struct {
	reg      *registry
	pos      engine.Pos
	detached bool
	aliases  int
	removed  bool
}

// holderLocked returns the holder of p, registering it if needed.
func (r *registry) holderLocked(p engine.Pos) *holder {
	if h, ok := r.nodes[p]; ok {
		return h
	}
	h := &holder{reg: r, pos: p, detached: !r.eng.Reachable(p)}
	r.nodes[p] = h
	r.metrics.HandleRegistered()
	if debug.Registry() {
		debug.Logf("registry %s: registered pos %d (detached=%v)\n", r.id, p, h.detached)
	}
	return h
}

// linkedLocked reports whether h's position is reachable from the
// document node.
func (r *registry) linkedLocked(h *holder) bool {
	return r.eng.Reachable(h.pos)
}

// wrapLocked returns a new alias of the holder of p, or nil for Nil.
func (r *registry) wrapLocked(p engine.Pos) *Node {
	if p == engine.Nil || r.closed || !r.eng.Valid(p) {
		return nil
	}
	return r.aliasLocked(r.holderLocked(p))
}

func (r *registry) aliasLocked(h *holder) *Node {
	h.aliases++
	r.metrics.AliasAcquired()
	n := &Node{h: h}
	n.cleanup = runtime.AddCleanup(n, (*holder).drop, h)
	return n
}

// drop releases an alias that was garbage collected without Release.
func (h *holder) drop() {
	h.reg.mu.Lock()
	defer h.reg.mu.Unlock()
	h.releaseLocked()
}

func (h *holder) releaseLocked() {
	if h.aliases > 0 {
		h.aliases--
		h.reg.metrics.AliasReleased()
	}
}

// holdsRegistered reports whether the subtree at top contains a
// registered position, attributes included.
func (r *registry) holdsRegistered(top engine.Pos) bool {
	found := false
	r.eng.Walk(top, func(p engine.Pos) bool {
		if found {
			return false
		}
		if _, ok := r.nodes[p]; ok {
			found = true
			return false
		}
		for a := r.eng.FirstProp(p); a != engine.Nil; a = r.eng.Next(a) {
			if _, ok := r.nodes[a]; ok {
				found = true
				return false
			}
		}
		return true
	})
	return found
}

// settleLocked decides the fate of a subtree the engine just detached.
// Subtrees somebody may still point into are kept and freed at teardown,
// the rest are freed now.
func (r *registry) settleLocked(top engine.Pos) {
	if r.holdsRegistered(top) {
		r.holderLocked(top).detached = true
		return
	}
	r.eng.FreeNode(top)
}

// removeAttrLocked frees attribute a and invalidates its holder.
func (r *registry) removeAttrLocked(a engine.Pos) error {
	if r.eng.RemoveProp(a) != 0 {
		return ErrPropertyRemoval
	}
	if h, ok := r.nodes[a]; ok {
		h.removed = true
		delete(r.nodes, a)
		r.metrics.HandleDropped()
	}
	return nil
}

// teardown frees every detached subtree once and then the engine
// document. It runs on Close or when the Document is collected.
func (r *registry) teardown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	freed := 0
	docNode := r.eng.DocNode()
	for p, h := range r.nodes {
		if !h.detached || h.removed || p == docNode {
			continue
		}
		if !r.eng.Valid(p) || r.eng.Parent(p) != engine.Nil {
			continue
		}
		if r.eng.FreeNode(p) == 0 {
			freed++
		}
	}
	handles := len(r.nodes)
	r.eng.Free()
	engine.Release()
	r.metrics.DeferredFree(freed)
	r.metrics.DocClosed(handles)
	r.log.Debug("document closed", "handles", handles, "deferred", freed)
}

// lockPair locks the registries of two documents in a stable order.
func lockPair(a, b *registry) func() {
	if a == b {
		a.mu.Lock()
		return a.mu.Unlock
	}
	if a.id > b.id {
		a, b = b, a
	}
	a.mu.Lock()
	b.mu.Lock()
	return func() {
		b.mu.Unlock()
		a.mu.Unlock()
	}
}
