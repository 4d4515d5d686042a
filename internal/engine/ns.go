package engine

// NsRef addresses a namespace record in a document.
type NsRef uint32

const (
	// NoNs is the absent namespace.
	NoNs NsRef = 0
	// XMLNs is the implicit binding of the xml prefix.
	XMLNs NsRef = 1
)

// XMLNamespace is the namespace bound to the xml prefix.
const XMLNamespace = "http://www.w3.org/XML/1998/namespace"

type nsRecord struct {
	prefix string
	href   string
	owner  Pos
}

func (d *Doc) validNs(ns NsRef) bool {
	return ns == NoNs || (!d.Freed() && int(ns) < len(d.nss))
}

// NewNs declares prefix bound to href on element p. The empty prefix
// declares the default namespace, and only the default namespace may be
// bound to the empty href. It returns NoNs if the prefix is already
// declared on p or is reserved.
func (d *Doc) NewNs(p Pos, href, prefix string) NsRef {
	r := d.rec(p)
	if r == nil || r.kind != ElementNode {
		return NoNs
	}
	if prefix == "xml" || prefix == "xmlns" || (prefix != "" && href == "") {
		return NoNs
	}
	if href == XMLNamespace {
		return NoNs
	}
	for _, ns := range r.nsDef {
		if d.nss[ns].prefix == prefix {
			return NoNs
		}
	}
	d.nss = append(d.nss, nsRecord{prefix: prefix, href: href, owner: p})
	ref := NsRef(len(d.nss) - 1)
	r.nsDef = append(r.nsDef, ref)
	return ref
}

// SetNs sets the namespace of an element or attribute.
func (d *Doc) SetNs(p Pos, ns NsRef) int {
	r := d.rec(p)
	if r == nil || !d.validNs(ns) {
		return -1
	}
	switch r.kind {
	case ElementNode, AttributeNode:
		r.ns = ns
		return 0
	}
	return -1
}

func (d *Doc) NodeNs(p Pos) NsRef {
	if r := d.rec(p); r != nil {
		return r.ns
	}
	return NoNs
}

// NsDefs returns the namespaces declared on p.
func (d *Doc) NsDefs(p Pos) []NsRef {
	r := d.rec(p)
	if r == nil || len(r.nsDef) == 0 {
		return nil
	}
	return append([]NsRef(nil), r.nsDef...)
}

func (d *Doc) NsPrefix(ns NsRef) string {
	if ns == NoNs || !d.validNs(ns) {
		return ""
	}
	return d.nss[ns].prefix
}

func (d *Doc) NsHref(ns NsRef) string {
	if ns == NoNs || !d.validNs(ns) {
		return ""
	}
	return d.nss[ns].href
}

// scopeStart returns the element at which namespace lookups for p start.
func (d *Doc) scopeStart(p Pos) Pos {
	r := d.rec(p)
	if r == nil {
		return Nil
	}
	if r.kind == AttributeNode {
		return r.parent
	}
	return p
}

// SearchNs finds the namespace bound to prefix in scope at p. The empty
// prefix looks up the default namespace; an undeclared default yields
// NoNs.
func (d *Doc) SearchNs(p Pos, prefix string) NsRef {
	if prefix == "xml" {
		return XMLNs
	}
	start := d.scopeStart(p)
	for q := start; q != Nil; q = d.recs[q].parent {
		r := &d.recs[q]
		if r.kind != ElementNode {
			break
		}
		for _, ns := range r.nsDef {
			if d.nss[ns].prefix == prefix {
				if d.nss[ns].href == "" {
					return NoNs
				}
				return ns
			}
		}
		if q == start && r.ns != NoNs && d.nss[r.ns].prefix == prefix {
			return r.ns
		}
	}
	return NoNs
}

// SearchNsByHref finds an unshadowed namespace bound to href in scope at p.
func (d *Doc) SearchNsByHref(p Pos, href string) NsRef {
	if href == XMLNamespace {
		return XMLNs
	}
	if href == "" {
		return NoNs
	}
	start := d.scopeStart(p)
	for q := start; q != Nil; q = d.recs[q].parent {
		r := &d.recs[q]
		if r.kind != ElementNode {
			break
		}
		for _, ns := range r.nsDef {
			if d.nss[ns].href == href && d.SearchNs(start, d.nss[ns].prefix) == ns {
				return ns
			}
		}
	}
	return NoNs
}

// NsList returns the namespaces in scope at p, nearest declaration first,
// one per prefix.
func (d *Doc) NsList(p Pos) []NsRef {
	var (
		out  []NsRef
		seen = map[string]bool{}
	)
	for q := d.scopeStart(p); q != Nil; q = d.recs[q].parent {
		r := &d.recs[q]
		if r.kind != ElementNode {
			break
		}
		for _, ns := range r.nsDef {
			pfx := d.nss[ns].prefix
			if seen[pfx] {
				continue
			}
			seen[pfx] = true
			if d.nss[ns].href != "" {
				out = append(out, ns)
			}
		}
	}
	return out
}

// RemoveNsRecursive clears namespaces and declarations from p, its
// attributes and all descendants.
func (d *Doc) RemoveNsRecursive(p Pos) int {
	if d.rec(p) == nil {
		return -1
	}
	d.walk(p, func(q Pos) bool {
		r := &d.recs[q]
		if r.kind != ElementNode {
			return true
		}
		r.ns = NoNs
		r.nsDef = nil
		for a := r.props; a != Nil; a = d.recs[a].next {
			d.recs[a].ns = NoNs
		}
		return true
	})
	return 0
}

// QName returns prefix:name for namespaced elements and attributes.
func (d *Doc) QName(p Pos) string {
	r := d.rec(p)
	if r == nil {
		return ""
	}
	if r.ns != NoNs && (r.kind == ElementNode || r.kind == AttributeNode) {
		if pfx := d.nss[r.ns].prefix; pfx != "" {
			return pfx + ":" + r.name
		}
	}
	return r.name
}
