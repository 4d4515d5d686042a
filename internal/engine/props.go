package engine

import "strings"

func (d *Doc) FirstProp(p Pos) Pos {
	r := d.rec(p)
	if r == nil || r.kind != ElementNode {
		return Nil
	}
	return r.props
}

func (d *Doc) findProp(p Pos, match func(*record) bool) Pos {
	for a := d.FirstProp(p); a != Nil; a = d.recs[a].next {
		if match(&d.recs[a]) {
			return a
		}
	}
	return Nil
}

// HasProp finds an attribute by local name, whatever its namespace.
func (d *Doc) HasProp(p Pos, name string) Pos {
	return d.findProp(p, func(r *record) bool { return r.name == name })
}

// HasNsProp finds an attribute by local name and namespace href. The empty
// href selects attributes without a namespace.
func (d *Doc) HasNsProp(p Pos, name, href string) Pos {
	if href == "" {
		return d.HasNoNsProp(p, name)
	}
	return d.findProp(p, func(r *record) bool {
		return r.name == name && r.ns != NoNs && d.nss[r.ns].href == href
	})
}

// HasNoNsProp finds an attribute without namespace by local name.
func (d *Doc) HasNoNsProp(p Pos, name string) Pos {
	return d.findProp(p, func(r *record) bool { return r.name == name && r.ns == NoNs })
}

// SetProp sets an attribute. A prefixed name whose prefix is in scope is
// set in that namespace.
func (d *Doc) SetProp(p Pos, name, value string) Pos {
	if pfx, local, ok := strings.Cut(name, ":"); ok && pfx != "" && local != "" {
		if ns := d.SearchNs(p, pfx); ns != NoNs {
			return d.SetNsProp(p, ns, local, value)
		}
	}
	return d.SetNsProp(p, NoNs, name, value)
}

// SetNsProp sets the attribute name in namespace ns, replacing the value of
// an existing attribute with the same namespace href.
func (d *Doc) SetNsProp(p Pos, ns NsRef, name, value string) Pos {
	if d.Kind(p) != ElementNode || name == "" || !d.validNs(ns) {
		return Nil
	}
	var a Pos
	if ns == NoNs {
		a = d.HasNoNsProp(p, name)
	} else {
		a = d.HasNsProp(p, name, d.nss[ns].href)
	}
	if a != Nil {
		d.recs[a].content = value
		d.recs[a].ns = ns
		return a
	}
	return d.appendProp(p, ns, name, value)
}

// appendProp adds a new attribute without looking for an existing one.
func (d *Doc) appendProp(p Pos, ns NsRef, name, value string) Pos {
	a := d.newNode(AttributeNode, name, value)
	if a == Nil {
		return Nil
	}
	ar := &d.recs[a]
	ar.ns = ns
	ar.parent = p
	last := Nil
	for q := d.recs[p].props; q != Nil; q = d.recs[q].next {
		last = q
	}
	if last == Nil {
		d.recs[p].props = a
	} else {
		d.recs[last].next = a
		ar.prev = last
	}
	return a
}

// RemoveProp unlinks and frees attribute a.
func (d *Doc) RemoveProp(a Pos) int {
	r := d.rec(a)
	if r == nil || r.kind != AttributeNode {
		return -1
	}
	d.Unlink(a)
	return d.FreeNode(a)
}
