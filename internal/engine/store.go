package engine

import (
	"sync/atomic"
)

// Pos addresses one record in a document arena. Positions are never reused
// within a document.
type Pos uint32

// Nil is the absent position.
const Nil Pos = 0

type record struct {
	kind    Kind
	name    string
	content string
	ns      NsRef
	parent  Pos
	first   Pos
	last    Pos
	prev    Pos
	next    Pos
	props   Pos
	nsDef   []NsRef
	freed   bool
}

// Doc is one engine document.
type Doc struct {
	recs     []record
	nss      []nsRecord
	node     Pos
	version  string
	html     bool
	maxNodes int
	live     int
	freed    bool
}

// Counters are process wide engine allocation counters.
type Counters struct {
	Docs        int64
	Allocated   int64
	Freed       int64
	DoubleFrees int64
}

var counters struct {
	docs, allocated, freed, doubleFrees atomic.Int64
}

// Stats returns a snapshot of the process wide counters.
func Stats() Counters {
	return Counters{
		Docs:        counters.docs.Load(),
		Allocated:   counters.allocated.Load(),
		Freed:       counters.freed.Load(),
		DoubleFrees: counters.doubleFrees.Load(),
	}
}

// NewDoc creates an empty document with the given XML version. An empty
// version means "1.0". It returns nil for versions other than 1.0 and 1.1.
func NewDoc(version string) *Doc {
	switch version {
	case "":
		version = "1.0"
	case "1.0", "1.1":
	default:
		return nil
	}
	d := &Doc{
		// slot 0 backs Nil, slot 1 the xml namespace.
		recs:    make([]record, 1, 64),
		nss:     []nsRecord{{}, {prefix: "xml", href: XMLNamespace}},
		version: version,
	}
	d.node = d.alloc(DocumentNode)
	counters.docs.Add(1)
	return d
}

// Free releases the document and every record it still holds, linked or
// not. Positions of a freed document are dead.
func (d *Doc) Free() {
	if d == nil || d.freed {
		if d != nil {
			counters.doubleFrees.Add(1)
		}
		return
	}
	counters.freed.Add(int64(d.live))
	counters.docs.Add(-1)
	d.live = 0
	d.freed = true
	d.recs = nil
	d.nss = nil
}

func (d *Doc) Freed() bool { return d == nil || d.freed }

// DocNode is the position of the document node itself.
func (d *Doc) DocNode() Pos {
	if d.Freed() {
		return Nil
	}
	return d.node
}

func (d *Doc) IsHTML() bool { return !d.Freed() && d.html }

func (d *Doc) Version() string {
	if d.Freed() {
		return ""
	}
	return d.version
}

// SetMaxNodes limits the number of live records. Allocation beyond the
// limit fails with Nil. Zero removes the limit.
func (d *Doc) SetMaxNodes(n int) {
	if d != nil {
		d.maxNodes = n
	}
}

// Live reports the number of records that have not been freed.
func (d *Doc) Live() int {
	if d.Freed() {
		return 0
	}
	return d.live
}

func (d *Doc) alloc(k Kind) Pos {
	if d.Freed() {
		return Nil
	}
	if d.maxNodes > 0 && d.live >= d.maxNodes {
		return Nil
	}
	d.recs = append(d.recs, record{kind: k})
	d.live++
	counters.allocated.Add(1)
	return Pos(len(d.recs) - 1)
}

// rec returns the live record at p or nil. The pointer is only valid
// until the next allocation.
func (d *Doc) rec(p Pos) *record {
	if d.Freed() || p == Nil || int(p) >= len(d.recs) {
		return nil
	}
	r := &d.recs[p]
	if r.freed {
		return nil
	}
	return r
}

// Valid reports whether p addresses a live record.
func (d *Doc) Valid(p Pos) bool { return d.rec(p) != nil }

func (d *Doc) release(p Pos) {
	r := &d.recs[p]
	*r = record{kind: r.kind, freed: true}
	d.live--
	counters.freed.Add(1)
}

// FreeNode frees the detached subtree rooted at p, attributes included.
// It returns -1 if p is still attached, is the document node, or was
// already freed; the latter is counted as a double free.
func (d *Doc) FreeNode(p Pos) int {
	if d.Freed() || p == Nil || int(p) >= len(d.recs) {
		return -1
	}
	if d.recs[p].freed {
		counters.doubleFrees.Add(1)
		return -1
	}
	if p == d.node || d.recs[p].parent != Nil {
		return -1
	}
	d.freeSubtree(p)
	return 0
}

func (d *Doc) freeSubtree(p Pos) {
	r := &d.recs[p]
	for a := r.props; a != Nil; {
		next := d.recs[a].next
		d.release(a)
		a = next
	}
	for c := r.first; c != Nil; {
		next := d.recs[c].next
		d.freeSubtree(c)
		c = next
	}
	d.release(p)
}
