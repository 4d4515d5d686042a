package tree

import (
	"fmt"

	"github.com/signadot/xmlh/internal/engine"
)

// Namespace is a snapshot of a namespace binding of a document.
type Namespace struct {
	reg    *registry
	ref    engine.NsRef
	prefix string
	href   string
}

func (ns *Namespace) Prefix() string {
	if ns == nil {
		return ""
	}
	return ns.prefix
}

func (ns *Namespace) Href() string {
	if ns == nil {
		return ""
	}
	return ns.href
}

func (ns *Namespace) String() string {
	if ns.Prefix() == "" {
		return ns.Href()
	}
	return ns.prefix + "=" + ns.href
}

func (r *registry) namespace(ref engine.NsRef) *Namespace {
	if ref == engine.NoNs {
		return nil
	}
	return &Namespace{reg: r, ref: ref, prefix: r.eng.NsPrefix(ref), href: r.eng.NsHref(ref)}
}

// nsRef resolves ns for use in r. nil is no namespace.
func (r *registry) nsRef(ns *Namespace) (engine.NsRef, error) {
	if ns == nil {
		return engine.NoNs, nil
	}
	if ns.reg != r {
		return engine.NoNs, fmt.Errorf("%w: namespace %s", ErrWrongDocument, ns)
	}
	return ns.ref, nil
}

// NewNamespace declares prefix bound to href on element n. The empty
// prefix declares the default namespace.
func NewNamespace(n *Node, prefix, href string) (*Namespace, error) {
	var ns *Namespace
	err := n.mutate(func(r *registry, p engine.Pos) error {
		ref := r.eng.NewNs(p, href, prefix)
		if ref == engine.NoNs {
			return fmt.Errorf("%w: %q=%q on %s", ErrInvalidNamespace, prefix, href, r.eng.Kind(p))
		}
		ns = r.namespace(ref)
		return nil
	})
	return ns, err
}

// Namespace returns the namespace of an element or attribute, nil if it
// has none.
func (n *Node) Namespace() *Namespace {
	return view(n, func(e *engine.Doc, p engine.Pos) *Namespace {
		return n.h.reg.namespace(e.NodeNs(p))
	})
}

// SetNamespace puts n in namespace ns.
func (n *Node) SetNamespace(ns *Namespace) error {
	if ns == nil {
		return fmt.Errorf("%w: nil namespace", ErrInvalidNamespace)
	}
	return n.mutate(func(r *registry, p engine.Pos) error {
		ref, err := r.nsRef(ns)
		if err != nil {
			return err
		}
		if r.eng.SetNs(p, ref) != 0 {
			return fmt.Errorf("%w: %s cannot have a namespace", ErrStructure, r.eng.Kind(p))
		}
		return nil
	})
}

// Namespaces returns the namespaces in scope at n, nearest first.
func (n *Node) Namespaces() []*Namespace {
	return view(n, func(e *engine.Doc, p engine.Pos) []*Namespace {
		var out []*Namespace
		for _, ref := range e.NsList(p) {
			out = append(out, n.h.reg.namespace(ref))
		}
		return out
	})
}

// NamespaceDeclarations returns the namespaces declared on n.
func (n *Node) NamespaceDeclarations() []*Namespace {
	return view(n, func(e *engine.Doc, p engine.Pos) []*Namespace {
		var out []*Namespace
		for _, ref := range e.NsDefs(p) {
			out = append(out, n.h.reg.namespace(ref))
		}
		return out
	})
}

// LookupNamespacePrefix returns the prefix bound to href in scope at n.
func (n *Node) LookupNamespacePrefix(href string) (string, bool) {
	ns := view(n, func(e *engine.Doc, p engine.Pos) *Namespace {
		return n.h.reg.namespace(e.SearchNsByHref(p, href))
	})
	if ns == nil {
		return "", false
	}
	return ns.prefix, true
}

// LookupNamespaceURI returns the href bound to prefix in scope at n.
func (n *Node) LookupNamespaceURI(prefix string) (string, bool) {
	ns := view(n, func(e *engine.Doc, p engine.Pos) *Namespace {
		return n.h.reg.namespace(e.SearchNs(p, prefix))
	})
	if ns == nil {
		return "", false
	}
	return ns.href, true
}

// RemoveNamespacesRecursively strips namespaces and declarations from n
// and all of its descendants.
func (n *Node) RemoveNamespacesRecursively() error {
	return n.mutate(func(r *registry, p engine.Pos) error {
		if r.eng.RemoveNsRecursive(p) != 0 {
			return ErrStructure
		}
		return nil
	})
}
