package engine

import "strconv"

// CopyNode deep copies p from src into d and returns the detached copy.
// Namespaces used by the copied subtree but declared above it are
// redeclared on the copy.
func (d *Doc) CopyNode(src *Doc, p Pos) Pos {
	if src.rec(p) == nil || d.Freed() {
		return Nil
	}
	c := &copier{src: src, dst: d, nsMap: map[NsRef]NsRef{NoNs: NoNs, XMLNs: XMLNs}}
	top := c.copy(p)
	if top == Nil {
		return Nil
	}
	if c.fail {
		d.FreeNode(top)
		return Nil
	}
	return top
}

type copier struct {
	src, dst *Doc
	nsMap    map[NsRef]NsRef
	top      Pos
	fail     bool
}

func (c *copier) copy(p Pos) Pos {
	sr := c.src.recs[p]
	q := c.dst.newNode(sr.kind, sr.name, sr.content)
	if q == Nil {
		c.fail = true
		return Nil
	}
	if c.top == Nil {
		c.top = q
	}
	if sr.kind == AttributeNode {
		c.dst.recs[q].ns = c.mapNs(q, sr.ns)
		return q
	}
	for _, ns := range sr.nsDef {
		nr := c.src.nss[ns]
		c.dst.nss = append(c.dst.nss, nsRecord{prefix: nr.prefix, href: nr.href, owner: q})
		ref := NsRef(len(c.dst.nss) - 1)
		c.dst.recs[q].nsDef = append(c.dst.recs[q].nsDef, ref)
		c.nsMap[ns] = ref
	}
	if sr.kind == ElementNode {
		c.dst.recs[q].ns = c.mapNs(q, sr.ns)
		for a := sr.props; a != Nil; a = c.src.recs[a].next {
			ar := c.src.recs[a]
			if c.dst.appendProp(q, c.mapNs(q, ar.ns), ar.name, ar.content) == Nil {
				c.fail = true
				return q
			}
		}
	}
	for ch := sr.first; ch != Nil; ch = c.src.recs[ch].next {
		cq := c.copy(ch)
		if cq == Nil {
			return q
		}
		c.dst.link(q, cq)
	}
	return q
}

// mapNs translates a source namespace, declaring it on the copy's top
// element when it is not already available.
func (c *copier) mapNs(at Pos, ns NsRef) NsRef {
	if m, ok := c.nsMap[ns]; ok {
		return m
	}
	nr := c.src.nss[ns]
	if nr.href == "" {
		return NoNs
	}
	host := c.top
	if c.dst.recs[host].kind != ElementNode {
		host = at
	}
	if c.dst.recs[host].kind != ElementNode {
		return NoNs
	}
	prefix := nr.prefix
	for i := 1; ; i++ {
		if ref := c.dst.NewNs(host, nr.href, prefix); ref != NoNs {
			c.nsMap[ns] = ref
			return ref
		}
		if ref := c.dst.SearchNs(host, prefix); ref != NoNs && c.dst.nss[ref].href == nr.href {
			c.nsMap[ns] = ref
			return ref
		}
		prefix = "ns" + strconv.Itoa(i)
	}
}

// Copy deep copies the whole document.
func (d *Doc) Copy() *Doc {
	if d.Freed() {
		return nil
	}
	out := NewDoc(d.version)
	if out == nil {
		return nil
	}
	out.html = d.html
	out.recs[out.node].kind = d.recs[d.node].kind
	out.maxNodes = d.maxNodes
	for ch := d.recs[d.node].first; ch != Nil; ch = d.recs[ch].next {
		q := out.CopyNode(d, ch)
		if q == Nil {
			out.Free()
			return nil
		}
		out.link(out.node, q)
	}
	return out
}
