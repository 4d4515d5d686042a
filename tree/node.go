package tree

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/signadot/xmlh/internal/engine"
	"github.com/signadot/xmlh/readonly"
)

// NodeType is the kind of a node.
type NodeType = engine.Kind

const (
	ElementNode      = engine.ElementNode
	AttributeNode    = engine.AttributeNode
	TextNode         = engine.TextNode
	CDATASectionNode = engine.CDATASectionNode
	EntityRefNode    = engine.EntityRefNode
	EntityNode       = engine.EntityNode
	PINode           = engine.PINode
	CommentNode      = engine.CommentNode
	DocumentNode     = engine.DocumentNode
	DocumentTypeNode = engine.DocumentTypeNode
	DocumentFragNode = engine.DocumentFragNode
	NotationNode     = engine.NotationNode
	HTMLDocumentNode = engine.HTMLDocumentNode
	DTDNode          = engine.DTDNode
)

// Node is one alias of a registered position. Node values are not
// copied; use Dup for another alias.
type Node struct {
	h        *holder
	released bool
	cleanup  runtime.Cleanup
}

// Key identifies a position. All aliases of a position have equal keys.
type Key struct {
	h *holder
}

func (n *Node) Key() Key {
	if n == nil {
		return Key{}
	}
	return Key{h: n.h}
}

// Same reports whether n and o are aliases of the same position.
func (n *Node) Same(o *Node) bool {
	return n != nil && o != nil && n.h == o.h
}

// Release drops this alias. Further calls do nothing. Reads through a
// released alias keep working but it no longer counts against the guard.
func (n *Node) Release() {
	if n == nil {
		return
	}
	r := n.h.reg
	r.mu.Lock()
	defer r.mu.Unlock()
	if n.released {
		return
	}
	n.released = true
	n.cleanup.Stop()
	n.h.releaseLocked()
}

// Dup returns a new alias of the same position.
func (n *Node) Dup() *Node {
	if n == nil {
		return nil
	}
	r := n.h.reg
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.aliasLocked(n.h)
}

// Aliases reports the live aliases of n's position.
func (n *Node) Aliases() int {
	if n == nil {
		return 0
	}
	r := n.h.reg
	r.mu.Lock()
	defer r.mu.Unlock()
	return n.h.aliases
}

// Document returns the owning document, or nil once it has been
// collected.
func (n *Node) Document() *Document {
	if n == nil {
		return nil
	}
	return n.h.reg.doc.Value()
}

// Pos exposes the engine position to sibling packages.
func (n *Node) Pos() engine.Pos {
	if n == nil {
		return engine.Nil
	}
	return n.h.pos
}

// Readonly returns a read-only view of n's position.
func (n *Node) Readonly() readonly.Node {
	return view(n, func(e *engine.Doc, p engine.Pos) readonly.Node { return readonly.New(e, p) })
}

// view runs f under the document lock; absent handles yield the zero
// value.
func view[T any](n *Node, f func(e *engine.Doc, p engine.Pos) T) T {
	var zero T
	if n == nil {
		return zero
	}
	r := n.h.reg
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || n.h.removed {
		return zero
	}
	return f(r.eng, n.h.pos)
}

// step wraps the position f selects relative to n.
func (n *Node) step(f func(e *engine.Doc, p engine.Pos) engine.Pos) *Node {
	if n == nil {
		return nil
	}
	r := n.h.reg
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || n.h.removed {
		return nil
	}
	return r.wrapLocked(f(r.eng, n.h.pos))
}

// mutate runs f under the document lock once the guard admits n.
func (n *Node) mutate(f func(r *registry, p engine.Pos) error) error {
	if n == nil {
		return fmt.Errorf("%w: nil node", ErrStructure)
	}
	r := n.h.reg
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.guardLocked(n.h); err != nil {
		return err
	}
	return f(r, n.h.pos)
}

func (n *Node) sameDoc(o *Node) error {
	if n == nil || o == nil {
		return fmt.Errorf("%w: nil node", ErrStructure)
	}
	if o.h.reg != n.h.reg {
		return ErrWrongDocument
	}
	return nil
}

func (n *Node) Parent() *Node {
	return n.step((*engine.Doc).Parent)
}

func (n *Node) NextSibling() *Node {
	return n.step((*engine.Doc).Next)
}

func (n *Node) PrevSibling() *Node {
	return n.step((*engine.Doc).Prev)
}

func (n *Node) FirstChild() *Node {
	return n.step((*engine.Doc).FirstChild)
}

func (n *Node) LastChild() *Node {
	return n.step((*engine.Doc).LastChild)
}

func elementFrom(e *engine.Doc, p engine.Pos, next func(*engine.Doc, engine.Pos) engine.Pos) engine.Pos {
	for ; p != engine.Nil; p = next(e, p) {
		if e.Kind(p) == engine.ElementNode {
			return p
		}
	}
	return engine.Nil
}

func (n *Node) FirstElementChild() *Node {
	return n.step(func(e *engine.Doc, p engine.Pos) engine.Pos {
		return elementFrom(e, e.FirstChild(p), (*engine.Doc).Next)
	})
}

func (n *Node) LastElementChild() *Node {
	return n.step(func(e *engine.Doc, p engine.Pos) engine.Pos {
		return elementFrom(e, e.LastChild(p), (*engine.Doc).Prev)
	})
}

func (n *Node) NextElementSibling() *Node {
	return n.step(func(e *engine.Doc, p engine.Pos) engine.Pos {
		return elementFrom(e, e.Next(p), (*engine.Doc).Next)
	})
}

func (n *Node) PrevElementSibling() *Node {
	return n.step(func(e *engine.Doc, p engine.Pos) engine.Pos {
		return elementFrom(e, e.Prev(p), (*engine.Doc).Prev)
	})
}

func (n *Node) children(elementsOnly bool) []*Node {
	if n == nil {
		return nil
	}
	r := n.h.reg
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || n.h.removed {
		return nil
	}
	var out []*Node
	for c := r.eng.FirstChild(n.h.pos); c != engine.Nil; c = r.eng.Next(c) {
		if elementsOnly && r.eng.Kind(c) != engine.ElementNode {
			continue
		}
		out = append(out, r.wrapLocked(c))
	}
	return out
}

// ChildNodes returns new aliases of all children.
func (n *Node) ChildNodes() []*Node { return n.children(false) }

// ChildElements returns new aliases of the element children.
func (n *Node) ChildElements() []*Node { return n.children(true) }

func (n *Node) Type() NodeType {
	return view(n, (*engine.Doc).Kind)
}

func (n *Node) IsElementNode() bool { return n.Type() == ElementNode }
func (n *Node) IsTextNode() bool    { return n.Type() == TextNode }

// IsUnlinked reports whether n is not reachable from the document node,
// either because it or one of its ancestors was detached or because it
// was created and never attached.
func (n *Node) IsUnlinked() bool {
	if n == nil {
		return false
	}
	r := n.h.reg
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || n.h.removed {
		return false
	}
	return !r.linkedLocked(n.h)
}

func (n *Node) Name() string {
	return view(n, (*engine.Doc).Name)
}

// QName returns the prefixed name of an element or attribute.
func (n *Node) QName() string {
	return view(n, (*engine.Doc).QName)
}

func (n *Node) Content() string {
	return view(n, (*engine.Doc).Content)
}

// Serialize renders n and its subtree.
func (n *Node) Serialize(o SaveOptions) string {
	return view(n, func(e *engine.Doc, p engine.Pos) string {
		var sb strings.Builder
		e.Dump(&sb, p, o.flags())
		return sb.String()
	})
}

func (n *Node) String() string { return n.Serialize(SaveOptions{}) }

// Canonicalize renders the subtree at n in canonical form.
func (n *Node) Canonicalize(o C14NOptions) (string, error) {
	if n == nil {
		return "", fmt.Errorf("%w: nil node", ErrStructure)
	}
	return n.h.reg.canonicalize(n.h.pos, o)
}

// SetContent replaces the content of n. For elements the children are
// detached first: those that may still be referenced stay alive until the
// document is closed, the others are freed immediately.
func (n *Node) SetContent(content string) error {
	return n.mutate(func(r *registry, p engine.Pos) error {
		displaced, st := r.eng.SetContent(p, content)
		for _, top := range displaced {
			r.settleLocked(top)
		}
		if st != 0 {
			return fmt.Errorf("%w: set content of %s", ErrStructure, r.eng.Kind(p))
		}
		return nil
	})
}

// AppendText appends text to the content of n.
func (n *Node) AppendText(text string) error {
	return n.mutate(func(r *registry, p engine.Pos) error {
		if r.eng.AddContent(p, text) != 0 {
			return fmt.Errorf("%w: append text to %s", ErrStructure, r.eng.Kind(p))
		}
		return nil
	})
}

func (n *Node) SetName(name string) error {
	return n.mutate(func(r *registry, p engine.Pos) error {
		if r.eng.SetName(p, name) != 0 {
			return fmt.Errorf("%w: rename %s to %q", ErrStructure, r.eng.Kind(p), name)
		}
		return nil
	})
}

// AddChild appends child to n's children, detaching it from wherever it
// was. Both n and child are guarded.
func (n *Node) AddChild(child *Node) error {
	if err := n.sameDoc(child); err != nil {
		return err
	}
	return n.mutate(func(r *registry, p engine.Pos) error {
		if err := r.guardLocked(child.h); err != nil {
			return err
		}
		if r.eng.AddChild(p, child.h.pos) == engine.Nil {
			return fmt.Errorf("%w: cannot add %s under %s", ErrStructure, r.eng.Kind(child.h.pos), r.eng.Kind(p))
		}
		return nil
	})
}

// NewChild creates an element called name in namespace ns, nil for none,
// and appends it to n.
func (n *Node) NewChild(ns *Namespace, name string) (*Node, error) {
	return n.addNew(ns, name, "")
}

// AddTextChild is NewChild with text content.
func (n *Node) AddTextChild(ns *Namespace, name, content string) (*Node, error) {
	return n.addNew(ns, name, content)
}

func (n *Node) addNew(ns *Namespace, name, content string) (*Node, error) {
	var child *Node
	err := n.mutate(func(r *registry, p engine.Pos) error {
		ref, err := r.nsRef(ns)
		if err != nil {
			return err
		}
		if !r.eng.Kind(p).HasChildren() {
			return fmt.Errorf("%w: %s cannot have children", ErrStructure, r.eng.Kind(p))
		}
		c := r.eng.NewElement(ref, name)
		if c == engine.Nil {
			return ErrAllocation
		}
		if content != "" {
			t := r.eng.NewText(content)
			if t == engine.Nil {
				r.eng.FreeNode(c)
				return ErrAllocation
			}
			r.eng.AddChild(c, t)
		}
		r.eng.AddChild(p, c)
		child = r.wrapLocked(c)
		return nil
	})
	return child, err
}

// Unlink detaches n from its parent without freeing it. It is not
// guarded: detaching does not change n's own content.
func (n *Node) Unlink() {
	if n == nil {
		return
	}
	r := n.h.reg
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || n.h.removed || n.h.pos == r.eng.DocNode() {
		return
	}
	r.eng.Unlink(n.h.pos)
	n.h.detached = true
}

// AddPrevSibling inserts the detached node sib before n. Both n and sib
// are guarded.
func (n *Node) AddPrevSibling(sib *Node) error {
	return n.addSibling(sib, (*engine.Doc).AddPrevSibling)
}

// AddNextSibling inserts the detached node sib after n.
func (n *Node) AddNextSibling(sib *Node) error {
	return n.addSibling(sib, (*engine.Doc).AddNextSibling)
}

func (n *Node) addSibling(sib *Node, insert func(*engine.Doc, engine.Pos, engine.Pos) engine.Pos) error {
	if err := n.sameDoc(sib); err != nil {
		return err
	}
	return n.mutate(func(r *registry, p engine.Pos) error {
		if err := r.guardLocked(sib.h); err != nil {
			return err
		}
		if r.linkedLocked(sib.h) {
			return ErrNotDetached
		}
		if insert(r.eng, p, sib.h.pos) == engine.Nil {
			return fmt.Errorf("%w: cannot insert %s next to %s", ErrStructure, r.eng.Kind(sib.h.pos), r.eng.Kind(p))
		}
		return nil
	})
}

// ReplaceChild puts repl where old is and returns old, detached but
// alive. If repl is old or n itself nothing happens. n and repl are
// guarded.
func (n *Node) ReplaceChild(old, repl *Node) (*Node, error) {
	if err := n.sameDoc(old); err != nil {
		return nil, err
	}
	if err := n.sameDoc(repl); err != nil {
		return nil, err
	}
	if repl.h == old.h || repl.h == n.h {
		return old, nil
	}
	err := n.mutate(func(r *registry, p engine.Pos) error {
		if err := r.guardLocked(repl.h); err != nil {
			return err
		}
		if old.h.removed {
			return ErrRemoved
		}
		if r.eng.Parent(old.h.pos) != p {
			return ErrNotAChild
		}
		if r.eng.AddNextSibling(old.h.pos, repl.h.pos) == engine.Nil {
			return fmt.Errorf("%w: cannot replace %s with %s", ErrStructure, r.eng.Kind(old.h.pos), r.eng.Kind(repl.h.pos))
		}
		r.eng.Unlink(old.h.pos)
		old.h.detached = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	return old, nil
}
