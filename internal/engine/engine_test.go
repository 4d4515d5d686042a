package engine

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func mustParse(t *testing.T, src string) *Doc {
	t.Helper()
	d, diags := Parse([]byte(src), XML, 0)
	if d == nil {
		t.Fatalf("parse %q: %v", src, diags)
	}
	t.Cleanup(d.Free)
	return d
}

func childNames(d *Doc, p Pos) []string {
	var out []string
	for c := d.FirstChild(p); c != Nil; c = d.Next(c) {
		out = append(out, d.Name(c))
	}
	return out
}

func TestStructure(t *testing.T) {
	d := NewDoc("")
	defer d.Free()
	root := d.NewElement(NoNs, "root")
	if d.SetRoot(root) != Nil {
		t.Fatal("unexpected previous root")
	}
	a := d.NewElement(NoNs, "a")
	b := d.NewElement(NoNs, "b")
	c := d.NewElement(NoNs, "c")
	if d.AddChild(root, a) != a || d.AddChild(root, c) != c {
		t.Fatal("add child failed")
	}
	if d.AddPrevSibling(c, b) != b {
		t.Fatal("add prev sibling failed")
	}
	if diff := cmp.Diff([]string{"a", "b", "c"}, childNames(d, root)); diff != "" {
		t.Errorf("children (-want +got):\n%s", diff)
	}
	if !d.Reachable(b) {
		t.Error("b should be reachable")
	}
	d.Unlink(b)
	if d.Reachable(b) || d.Parent(b) != Nil {
		t.Error("b should be detached")
	}
	if diff := cmp.Diff([]string{"a", "c"}, childNames(d, root)); diff != "" {
		t.Errorf("children after unlink (-want +got):\n%s", diff)
	}
	if d.AddNextSibling(c, b) != b {
		t.Fatal("add next sibling failed")
	}
	if d.LastChild(root) != b || d.Prev(b) != c {
		t.Error("b should be last")
	}
	if d.AddChild(a, root) != Nil {
		t.Error("cycle should be refused")
	}
	if d.AddChild(a, a) != Nil {
		t.Error("self insertion should be refused")
	}
	if d.AddPrevSibling(root, a) != a {
		t.Error("sibling of root under the document node")
	}
}

func TestSetRootDisplaces(t *testing.T) {
	d := mustParse(t, `<old><x/></old>`)
	old := d.Root()
	n := d.NewElement(NoNs, "new")
	if got := d.SetRoot(n); got != old {
		t.Fatalf("SetRoot returned %d, want %d", got, old)
	}
	if d.Root() != n || d.Reachable(old) || !d.Valid(old) {
		t.Error("old root should be detached and alive")
	}
	if d.FreeNode(old) != 0 {
		t.Error("free of detached old root")
	}
}

func TestFreeNode(t *testing.T) {
	d := NewDoc("1.0")
	defer d.Free()
	root := d.NewElement(NoNs, "r")
	d.SetRoot(root)
	x := d.NewElement(NoNs, "x")
	d.AddChild(root, x)
	d.AddChild(x, d.NewText("hi"))
	d.SetProp(x, "k", "v")
	if d.FreeNode(x) != -1 {
		t.Error("attached node must not be freed")
	}
	live := d.Live()
	d.Unlink(x)
	before := Stats().DoubleFrees
	if d.FreeNode(x) != 0 {
		t.Fatal("free failed")
	}
	if got := live - d.Live(); got != 3 {
		t.Errorf("freed %d records, want 3", got)
	}
	if d.FreeNode(x) != -1 {
		t.Error("second free should fail")
	}
	if got := Stats().DoubleFrees - before; got != 1 {
		t.Errorf("double frees %d, want 1", got)
	}
	if d.Name(x) != "" || d.Valid(x) {
		t.Error("freed position still readable")
	}
}

func TestAllocationLimit(t *testing.T) {
	d := NewDoc("1.0")
	defer d.Free()
	d.SetMaxNodes(2)
	if d.NewElement(NoNs, "a") == Nil {
		t.Fatal("first allocation should succeed")
	}
	if d.NewElement(NoNs, "b") != Nil {
		t.Error("allocation beyond limit should fail")
	}
	if NewDoc("2.0") != nil {
		t.Error("unsupported version should fail")
	}
}

func TestContent(t *testing.T) {
	d := mustParse(t, `<r>a<b>b<c>c</c></b>d</r>`)
	root := d.Root()
	if got := d.Content(root); got != "abcd" {
		t.Errorf("content %q", got)
	}
	b := d.Next(d.FirstChild(root))
	displaced, st := d.SetContent(b, "new")
	if st != 0 || len(displaced) != 2 {
		t.Fatalf("displaced %v status %d", displaced, st)
	}
	for _, p := range displaced {
		if d.Parent(p) != Nil || !d.Valid(p) {
			t.Error("displaced child should be detached and alive")
		}
	}
	if got := d.Content(root); got != "anewd" {
		t.Errorf("content after set %q", got)
	}
	if d.AddContent(b, "er") != 0 || d.Content(b) != "newer" {
		t.Errorf("add content: %q", d.Content(b))
	}
	if d.FirstChild(b) != d.LastChild(b) {
		t.Error("text should be merged")
	}
}

func TestProps(t *testing.T) {
	d := mustParse(t, `<r xmlns:p="urn:p" a="1" p:a="2"/>`)
	root := d.Root()
	if a := d.HasNoNsProp(root, "a"); d.Content(a) != "1" {
		t.Errorf("no ns prop %q", d.Content(a))
	}
	if a := d.HasNsProp(root, "a", "urn:p"); d.Content(a) != "2" {
		t.Errorf("ns prop %q", d.Content(a))
	}
	if d.HasNsProp(root, "a", "urn:q") != Nil {
		t.Error("unexpected match")
	}
	d.SetProp(root, "p:a", "3")
	if a := d.HasNsProp(root, "a", "urn:p"); d.Content(a) != "3" {
		t.Errorf("prefixed set %q", d.Content(a))
	}
	a := d.HasNoNsProp(root, "a")
	if d.RemoveProp(a) != 0 {
		t.Fatal("remove prop failed")
	}
	if d.HasNoNsProp(root, "a") != Nil {
		t.Error("prop still present")
	}
	if d.RemoveProp(a) != -1 {
		t.Error("second remove should fail")
	}
}

func TestNamespaces(t *testing.T) {
	d := mustParse(t, `<r xmlns="urn:d" xmlns:a="urn:a"><a:x xmlns:a="urn:b"><y/></a:x></r>`)
	root := d.Root()
	x := d.FirstChild(root)
	y := d.FirstChild(x)
	if got := d.NsHref(d.NodeNs(x)); got != "urn:b" {
		t.Errorf("x ns %q", got)
	}
	if got := d.NsHref(d.NodeNs(y)); got != "urn:d" {
		t.Errorf("y ns %q", got)
	}
	if d.SearchNsByHref(y, "urn:a") != NoNs {
		t.Error("shadowed namespace found by href")
	}
	var got []string
	for _, ns := range d.NsList(y) {
		got = append(got, d.NsPrefix(ns)+"="+d.NsHref(ns))
	}
	if diff := cmp.Diff([]string{"a=urn:b", "=urn:d"}, got); diff != "" {
		t.Errorf("ns list (-want +got):\n%s", diff)
	}
	if d.SearchNs(y, "xml") != XMLNs {
		t.Error("xml prefix is always bound")
	}
	if d.NewNs(x, "urn:c", "a") != NoNs {
		t.Error("duplicate prefix accepted")
	}
	if d.NewNs(x, "urn:c", "xml") != NoNs {
		t.Error("xml prefix accepted")
	}
	d.RemoveNsRecursive(root)
	if d.NodeNs(x) != NoNs || d.NsDefs(root) != nil {
		t.Error("namespaces not removed")
	}
}

func TestCopyNode(t *testing.T) {
	src := mustParse(t, `<r xmlns:p="urn:p"><p:x p:k="v"><y>t</y></p:x></r>`)
	x := src.FirstChild(src.Root())
	dst := NewDoc("1.0")
	defer dst.Free()
	c := dst.CopyNode(src, x)
	if c == Nil || dst.Parent(c) != Nil {
		t.Fatal("copy failed")
	}
	dst.SetRoot(c)
	var sb strings.Builder
	dst.Dump(&sb, c, 0)
	want := `<p:x xmlns:p="urn:p" p:k="v"><y>t</y></p:x>`
	if sb.String() != want {
		t.Errorf("copy dump %q, want %q", sb.String(), want)
	}
	whole := src.Copy()
	defer whole.Free()
	var a, b strings.Builder
	src.DumpDoc(&a, 0)
	whole.DumpDoc(&b, 0)
	if a.String() != b.String() {
		t.Errorf("document copy differs:\n%s\n%s", a.String(), b.String())
	}
}

func TestInit(t *testing.T) {
	n := Active()
	Init()
	Init()
	if Active() != n+2 {
		t.Errorf("active %d", Active())
	}
	Release()
	Release()
	if Active() != n {
		t.Errorf("active after release %d", Active())
	}
}
