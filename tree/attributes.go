package tree

import (
	"fmt"

	"github.com/signadot/xmlh/internal/engine"
	"github.com/signadot/xmlh/readonly"
)

// AttrName qualifies an attribute by local name and namespace href.
type AttrName = readonly.AttrName

// Property returns the value of the attribute called name in any
// namespace, "" if there is none.
func (n *Node) Property(name string) string {
	return view(n, func(e *engine.Doc, p engine.Pos) string { return e.Content(e.HasProp(p, name)) })
}

// PropertyNs returns the value of the attribute name in namespace href.
func (n *Node) PropertyNs(name, href string) string {
	return view(n, func(e *engine.Doc, p engine.Pos) string { return e.Content(e.HasNsProp(p, name, href)) })
}

// PropertyNoNs returns the value of the attribute name without namespace.
func (n *Node) PropertyNoNs(name string) string {
	return view(n, func(e *engine.Doc, p engine.Pos) string { return e.Content(e.HasNoNsProp(p, name)) })
}

func (n *Node) HasProperty(name string) bool {
	return view(n, func(e *engine.Doc, p engine.Pos) bool { return e.HasProp(p, name) != engine.Nil })
}

func (n *Node) HasPropertyNs(name, href string) bool {
	return view(n, func(e *engine.Doc, p engine.Pos) bool { return e.HasNsProp(p, name, href) != engine.Nil })
}

func (n *Node) HasPropertyNoNs(name string) bool {
	return view(n, func(e *engine.Doc, p engine.Pos) bool { return e.HasNoNsProp(p, name) != engine.Nil })
}

// PropertyNode returns a handle on the attribute node called name.
func (n *Node) PropertyNode(name string) *Node {
	return n.step(func(e *engine.Doc, p engine.Pos) engine.Pos { return e.HasProp(p, name) })
}

func (n *Node) PropertyNodeNs(name, href string) *Node {
	return n.step(func(e *engine.Doc, p engine.Pos) engine.Pos { return e.HasNsProp(p, name, href) })
}

func (n *Node) PropertyNodeNoNs(name string) *Node {
	return n.step(func(e *engine.Doc, p engine.Pos) engine.Pos { return e.HasNoNsProp(p, name) })
}

// Properties maps attribute local names to values.
func (n *Node) Properties() map[string]string {
	out := view(n, func(e *engine.Doc, p engine.Pos) map[string]string {
		return readonly.New(e, p).Properties()
	})
	if out == nil {
		out = map[string]string{}
	}
	return out
}

// PropertiesNs maps namespace qualified attribute names to values.
func (n *Node) PropertiesNs() map[AttrName]string {
	out := view(n, func(e *engine.Doc, p engine.Pos) map[AttrName]string {
		return readonly.New(e, p).PropertiesNs()
	})
	if out == nil {
		out = map[AttrName]string{}
	}
	return out
}

// ClassNames returns the distinct tokens of the class attribute, sorted.
func (n *Node) ClassNames() []string {
	return readonly.ClassNames(n.Property("class"))
}

func (n *Node) SetProperty(name, value string) error {
	return n.mutate(func(r *registry, p engine.Pos) error {
		if k := r.eng.Kind(p); k != engine.ElementNode {
			return fmt.Errorf("%w: %s cannot have properties", ErrStructure, k)
		}
		if r.eng.SetProp(p, name, value) == engine.Nil {
			return ErrAllocation
		}
		return nil
	})
}

// SetPropertyNs sets the attribute name in namespace ns.
func (n *Node) SetPropertyNs(name, value string, ns *Namespace) error {
	return n.mutate(func(r *registry, p engine.Pos) error {
		ref, err := r.nsRef(ns)
		if err != nil {
			return err
		}
		if k := r.eng.Kind(p); k != engine.ElementNode {
			return fmt.Errorf("%w: %s cannot have properties", ErrStructure, k)
		}
		if r.eng.SetNsProp(p, ref, name, value) == engine.Nil {
			return ErrAllocation
		}
		return nil
	})
}

// RemoveProperty removes the attribute called name in any namespace. It
// is not an error if there is none. A handle on the removed attribute is
// invalidated.
func (n *Node) RemoveProperty(name string) error {
	return n.removeProp(func(e *engine.Doc, p engine.Pos) engine.Pos { return e.HasProp(p, name) })
}

// RemovePropertyNs removes the attribute name in namespace href.
func (n *Node) RemovePropertyNs(name, href string) error {
	return n.removeProp(func(e *engine.Doc, p engine.Pos) engine.Pos { return e.HasNsProp(p, name, href) })
}

func (n *Node) removeProp(find func(*engine.Doc, engine.Pos) engine.Pos) error {
	return n.mutate(func(r *registry, p engine.Pos) error {
		a := find(r.eng, p)
		if a == engine.Nil {
			return nil
		}
		return r.removeAttrLocked(a)
	})
}

// The Attribute methods are the DOM flavored names of the Property ones.

func (n *Node) Attribute(name string) string              { return n.Property(name) }
func (n *Node) AttributeNs(name, href string) string      { return n.PropertyNs(name, href) }
func (n *Node) AttributeNoNs(name string) string          { return n.PropertyNoNs(name) }
func (n *Node) HasAttribute(name string) bool             { return n.HasProperty(name) }
func (n *Node) HasAttributeNs(name, href string) bool     { return n.HasPropertyNs(name, href) }
func (n *Node) AttributeNode(name string) *Node           { return n.PropertyNode(name) }
func (n *Node) Attributes() map[string]string             { return n.Properties() }
func (n *Node) AttributesNs() map[AttrName]string         { return n.PropertiesNs() }
func (n *Node) SetAttribute(name, value string) error     { return n.SetProperty(name, value) }
func (n *Node) RemoveAttribute(name string) error         { return n.RemoveProperty(name) }
func (n *Node) RemoveAttributeNs(name, href string) error { return n.RemovePropertyNs(name, href) }
func (n *Node) SetAttributeNs(name, value string, ns *Namespace) error {
	return n.SetPropertyNs(name, value, ns)
}
