package tree

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestWrapDedup(t *testing.T) {
	doc := fromString(t, `<r><a/><b/></r>`)
	root := doc.Root()
	a := root.FirstChild()
	handles := doc.Handles()
	again := doc.Wrap(a.Pos())
	if !again.Same(a) || again.Key() != a.Key() {
		t.Error("second wrap is not the same node")
	}
	if doc.Handles() != handles {
		t.Errorf("handles %d, want %d", doc.Handles(), handles)
	}
	if got := a.Aliases(); got != 2 {
		t.Errorf("aliases %d, want 2", got)
	}
	again.Release()
	again.Release()
	if got := a.Aliases(); got != 1 {
		t.Errorf("aliases after release %d, want 1", got)
	}
	b := a.NextSibling()
	if b.Same(a) || b.Key() == a.Key() {
		t.Error("siblings share a key")
	}
	seen := map[Key]string{a.Key(): "a", b.Key(): "b"}
	back := b.PrevSibling()
	if seen[back.Key()] != "a" {
		t.Error("key lookup failed")
	}
}

func TestUnlinkKeepsContent(t *testing.T) {
	doc := fromString(t, `<root><child>hello</child></root>`)
	root := doc.Root()
	child := root.FirstChild()
	child.Unlink()
	if !child.IsUnlinked() {
		t.Error("child should be unlinked")
	}
	if child.Content() != "hello" || child.Name() != "child" {
		t.Errorf("child reads %q %q", child.Name(), child.Content())
	}
	if c := root.FirstChild(); c != nil {
		t.Errorf("root still has child %s", c.Name())
	}
	if p := child.Parent(); p != nil {
		t.Error("unlinked child has a parent")
	}
	child.Unlink()
	if child.Content() != "hello" {
		t.Error("second unlink damaged the child")
	}
}

func TestDetachReattach(t *testing.T) {
	doc := fromString(t, `<r><a/><b/><c/></r>`)
	root := doc.Root()
	b := root.FirstChild().NextSibling()
	b.Unlink()
	if got := names(root.ChildNodes()); !cmp.Equal(got, []string{"a", "c"}) {
		t.Errorf("after unlink %v", got)
	}
	if err := root.AddChild(b); err != nil {
		t.Fatal(err)
	}
	if b.IsUnlinked() {
		t.Error("b should be linked")
	}
	if got := names(root.ChildNodes()); !cmp.Equal(got, []string{"a", "c", "b"}) {
		t.Errorf("after add %v", got)
	}
	if got := b.Parent(); !got.Same(root) {
		t.Error("b's parent is not root")
	}
}

func TestGuard(t *testing.T) {
	doc := fromString(t, `<r><n>x</n></r>`)
	n := doc.Root().FirstChild()
	if err := n.SetContent("one"); err != nil {
		t.Fatalf("single alias: %v", err)
	}
	alias := n.Dup()
	err := n.SetContent("two")
	var aerr *AliasingError
	if !errors.As(err, &aerr) || !errors.Is(err, ErrAliasing) {
		t.Fatalf("err %v, want an aliasing error", err)
	}
	if aerr.Aliases != 2 || aerr.Threshold != 1 {
		t.Errorf("error %+v", aerr)
	}
	if err := alias.SetProperty("k", "v"); !errors.Is(err, ErrAliasing) {
		t.Errorf("second alias: %v", err)
	}
	if n.Content() != "one" {
		t.Errorf("content %q after refused mutation", n.Content())
	}

	prev := SetMutationThreshold(2)
	defer SetMutationThreshold(prev)
	if err := n.SetContent("two"); err != nil {
		t.Errorf("threshold 2: %v", err)
	}
	runtime.KeepAlive(alias)
	SetMutationThreshold(prev)

	alias.Release()
	if err := n.SetContent("three"); err != nil {
		t.Errorf("after release: %v", err)
	}
	if got := n.Content(); got != "three" {
		t.Errorf("content %q", got)
	}
}

func TestGuardBoundary(t *testing.T) {
	doc := fromString(t, `<r/>`)
	root := doc.Root()
	prev := MutationThreshold()
	defer SetMutationThreshold(prev)
	for limit := 1; limit <= 4; limit++ {
		SetMutationThreshold(limit)
		var extra []*Node
		for len(extra)+1 < limit {
			extra = append(extra, root.Dup())
		}
		if err := root.SetProperty("limit", fmt.Sprint(limit)); err != nil {
			t.Errorf("limit %d with %d aliases: %v", limit, root.Aliases(), err)
		}
		over := root.Dup()
		if err := root.SetProperty("limit", "over"); !errors.Is(err, ErrAliasing) {
			t.Errorf("limit %d with %d aliases: %v", limit, root.Aliases(), err)
		}
		over.Release()
		for _, e := range extra {
			e.Release()
		}
	}
}

func TestSiblings(t *testing.T) {
	doc := fromString(t, `<r><m/></r>`)
	root := doc.Root()
	m := root.FirstChild()
	before, _ := doc.NewNode("before", nil)
	after, _ := doc.NewNode("after", nil)
	if err := m.AddPrevSibling(before); err != nil {
		t.Fatal(err)
	}
	if err := m.AddNextSibling(after); err != nil {
		t.Fatal(err)
	}
	if got := names(root.ChildNodes()); !cmp.Equal(got, []string{"before", "m", "after"}) {
		t.Errorf("children %v", got)
	}
	if err := m.AddNextSibling(before); !errors.Is(err, ErrNotDetached) {
		t.Errorf("attached sibling: %v", err)
	}
	other := fromString(t, `<o/>`)
	stranger, _ := other.NewNode("x", nil)
	if err := m.AddNextSibling(stranger); !errors.Is(err, ErrWrongDocument) {
		t.Errorf("foreign sibling: %v", err)
	}
	last := root.LastElementChild()
	if last.Name() != "after" || root.FirstElementChild().Name() != "before" {
		t.Error("element child accessors")
	}
	if m.NextElementSibling().Name() != "after" || m.PrevElementSibling().Name() != "before" {
		t.Error("element sibling accessors")
	}
}

func TestReplaceChild(t *testing.T) {
	doc := fromString(t, `<r><a>1</a><b/></r>`)
	root := doc.Root()
	a := root.FirstChild()
	b := a.NextSibling()
	repl, _ := doc.NewNode("z", nil)
	got, err := root.ReplaceChild(a, repl)
	if err != nil {
		t.Fatal(err)
	}
	if got != a || !a.IsUnlinked() || a.Content() != "1" {
		t.Error("replaced child should come back detached and alive")
	}
	if kids := names(root.ChildNodes()); !cmp.Equal(kids, []string{"z", "b"}) {
		t.Errorf("children %v", kids)
	}
	if _, err := root.ReplaceChild(a, b); !errors.Is(err, ErrNotAChild) {
		t.Errorf("detached old: %v", err)
	}
	if same, err := root.ReplaceChild(b, b); err != nil || same != b {
		t.Errorf("self replace: %v", err)
	}
	if kids := names(root.ChildNodes()); !cmp.Equal(kids, []string{"z", "b"}) {
		t.Errorf("children after no-op %v", kids)
	}
}

func TestSetContentKeepsReferenced(t *testing.T) {
	doc := fromString(t, `<r><keep><k>deep</k></keep><drop>x</drop></r>`)
	root := doc.Root()
	k := root.FirstChild().FirstChild()
	if err := root.SetContent("new"); err != nil {
		t.Fatal(err)
	}
	if k.Content() != "deep" {
		t.Errorf("referenced descendant reads %q", k.Content())
	}
	if root.Content() != "new" {
		t.Errorf("root content %q", root.Content())
	}
	keep := k.Parent()
	if keep.Name() != "keep" || !keep.IsUnlinked() {
		t.Error("displaced subtree top should be alive and detached")
	}
	if err := root.AddChild(keep); err != nil {
		t.Fatal(err)
	}
	if got, want := root.String(), `<r>new<keep><k>deep</k></keep></r>`; got != want {
		t.Errorf("got %s want %s", got, want)
	}
}

func TestProperties(t *testing.T) {
	doc := fromString(t, `<r xmlns:p="urn:p" a="1" p:a="2" class="y x y"/>`)
	root := doc.Root()
	if root.Property("a") != "1" || root.PropertyNs("a", "urn:p") != "2" || root.PropertyNoNs("a") != "1" {
		t.Error("property lookups")
	}
	if !cmp.Equal(root.ClassNames(), []string{"x", "y"}) {
		t.Errorf("classes %v", root.ClassNames())
	}
	want := map[AttrName]string{{Name: "a"}: "1", {Name: "a", Href: "urn:p"}: "2", {Name: "class"}: "y x y"}
	if diff := cmp.Diff(want, root.PropertiesNs()); diff != "" {
		t.Errorf("properties (-want +got):\n%s", diff)
	}
	ns, _ := NewNamespace(root, "q", "urn:q")
	if err := root.SetPropertyNs("b", "3", ns); err != nil {
		t.Fatal(err)
	}
	if !root.HasPropertyNs("b", "urn:q") || root.HasPropertyNoNs("b") {
		t.Error("namespaced property")
	}

	attr := root.PropertyNodeNs("a", "urn:p")
	if attr.Type() != AttributeNode || attr.Content() != "2" {
		t.Fatalf("attribute node %v %q", attr.Type(), attr.Content())
	}
	if err := root.RemovePropertyNs("a", "urn:p"); err != nil {
		t.Fatal(err)
	}
	if attr.Content() != "" || attr.Name() != "" {
		t.Error("removed attribute handle still reads")
	}
	if err := attr.SetContent("x"); !errors.Is(err, ErrRemoved) {
		t.Errorf("write through removed attribute: %v", err)
	}
	if err := root.RemoveProperty("missing"); err != nil {
		t.Errorf("removing a missing property: %v", err)
	}
	text, _ := doc.NewTextNode("t")
	if err := text.SetProperty("a", "b"); !errors.Is(err, ErrStructure) {
		t.Errorf("property on text: %v", err)
	}
}

func TestNamespaces(t *testing.T) {
	doc := fromString(t, `<r xmlns="urn:d" xmlns:p="urn:p"><p:a/></r>`)
	root := doc.Root()
	a := root.FirstChild()
	if ns := a.Namespace(); ns.Prefix() != "p" || ns.Href() != "urn:p" {
		t.Errorf("namespace %v", ns)
	}
	if a.QName() != "p:a" {
		t.Errorf("qname %s", a.QName())
	}
	if uri, ok := a.LookupNamespaceURI(""); !ok || uri != "urn:d" {
		t.Errorf("default uri %q %v", uri, ok)
	}
	if prefix, ok := a.LookupNamespacePrefix("urn:p"); !ok || prefix != "p" {
		t.Errorf("prefix %q %v", prefix, ok)
	}
	if _, ok := a.LookupNamespaceURI("nope"); ok {
		t.Error("unknown prefix resolved")
	}
	var got []string
	for _, ns := range a.Namespaces() {
		got = append(got, ns.String())
	}
	if !cmp.Equal(got, []string{"urn:d", "p=urn:p"}) && !cmp.Equal(got, []string{"p=urn:p", "urn:d"}) {
		t.Errorf("in scope %v", got)
	}
	if len(a.NamespaceDeclarations()) != 0 || len(root.NamespaceDeclarations()) != 2 {
		t.Error("declarations")
	}
	if _, err := NewNamespace(a, "xml", "urn:x"); !errors.Is(err, ErrInvalidNamespace) {
		t.Errorf("xml prefix: %v", err)
	}
	if err := a.SetNamespace(nil); !errors.Is(err, ErrInvalidNamespace) {
		t.Errorf("nil namespace: %v", err)
	}
	q, err := NewNamespace(a, "q", "urn:q")
	if err != nil {
		t.Fatal(err)
	}
	if err := a.SetNamespace(q); err != nil {
		t.Fatal(err)
	}
	if got, want := a.String(), `<q:a xmlns:q="urn:q"/>`; got != want {
		t.Errorf("got %s want %s", got, want)
	}
	other := fromString(t, `<o/>`)
	if _, err := other.NewNode("x", q); !errors.Is(err, ErrWrongDocument) {
		t.Errorf("foreign namespace: %v", err)
	}
	if err := root.RemoveNamespacesRecursively(); err != nil {
		t.Fatal(err)
	}
	if root.Namespace() != nil || a.Namespace() != nil {
		t.Error("namespaces left after removal")
	}
}

func TestConcurrentMutation(t *testing.T) {
	doc := fromString(t, `<r><c/><c/><c/><c/><c/><c/><c/><c/></r>`)
	root := doc.Root()
	children := root.ChildElements()
	var wg sync.WaitGroup
	errs := make([]error, len(children))
	for i, c := range children {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range 50 {
				if err := c.SetProperty("n", fmt.Sprint(i*100+j)); err != nil {
					errs[i] = err
					return
				}
				_ = c.Property("n")
			}
		}()
	}
	wg.Wait()
	for i, err := range errs {
		if err != nil {
			t.Errorf("child %d: %v", i, err)
		}
	}
	for i, c := range children {
		if got, want := c.Property("n"), fmt.Sprint(i*100+49); got != want {
			t.Errorf("child %d: %s, want %s", i, got, want)
		}
	}
}

func TestCreateNodes(t *testing.T) {
	doc := fromString(t, `<r/>`)
	root := doc.Root()
	for _, mk := range []func() (*Node, error){
		func() (*Node, error) { return doc.NewTextNode("t") },
		func() (*Node, error) { return doc.NewCDATANode("c<d") },
		func() (*Node, error) { return doc.NewCommentNode("note") },
		func() (*Node, error) { return doc.NewPI("pi", "data") },
	} {
		n, err := mk()
		if err != nil {
			t.Fatal(err)
		}
		if err := root.AddChild(n); err != nil {
			t.Fatal(err)
		}
		n.Release()
	}
	if got, want := root.String(), `<r>t<![CDATA[c<d]]><!--note--><?pi data?></r>`; got != want {
		t.Errorf("got %s want %s", got, want)
	}
	if _, err := doc.NewPI("xml", ""); !errors.Is(err, ErrAllocation) {
		t.Errorf("xml PI: %v", err)
	}
	if err := root.AppendText("!"); err != nil {
		t.Fatal(err)
	}
	if root.Content() != "tc<d!" {
		t.Errorf("content %q", root.Content())
	}
}

func TestLinkedAfterAncestorMoves(t *testing.T) {
	t.Run("wrapped after detach", func(t *testing.T) {
		doc := fromString(t, `<r><p><c>x</c></p><q/></r>`)
		root := doc.Root()
		p := root.FirstChild()
		q := p.NextSibling()
		p.Unlink()
		c := p.FirstChild()
		if !c.IsUnlinked() {
			t.Error("child of a detached subtree reads as linked")
		}
		if err := root.AddChild(p); err != nil {
			t.Fatal(err)
		}
		if c.IsUnlinked() {
			t.Error("child of a reattached subtree reads as unlinked")
		}
		other := fromString(t, `<o/>`)
		if _, err := other.ImportNode(c); !errors.Is(err, ErrNotDetached) {
			t.Errorf("import of a linked node: %v", err)
		}
		if err := q.AddNextSibling(c); !errors.Is(err, ErrNotDetached) {
			t.Errorf("linked sibling: %v", err)
		}
		if got, want := root.String(), `<r><q/><p><c>x</c></p></r>`; got != want {
			t.Errorf("got %s want %s", got, want)
		}
	})
	t.Run("wrapped before detach", func(t *testing.T) {
		doc := fromString(t, `<r><p><c>x</c></p><q/></r>`)
		root := doc.Root()
		p := root.FirstChild()
		q := p.NextSibling()
		c := p.FirstChild()
		if c.IsUnlinked() {
			t.Error("attached child reads as unlinked")
		}
		p.Unlink()
		if !c.IsUnlinked() {
			t.Error("child of a detached subtree reads as linked")
		}
		other := fromString(t, `<o/>`)
		cp, err := other.ImportNode(c)
		if err != nil {
			t.Fatalf("import of a detached descendant: %v", err)
		}
		if cp.Content() != "x" || !cp.IsUnlinked() {
			t.Error("imported copy")
		}
		cp.Release()
		if err := q.AddNextSibling(c); err != nil {
			t.Fatalf("detached descendant as sibling: %v", err)
		}
		if c.IsUnlinked() || !p.IsUnlinked() {
			t.Error("linked state after the move")
		}
		if got, want := root.String(), `<r><q/><c>x</c></r>`; got != want {
			t.Errorf("got %s want %s", got, want)
		}
	})
}

func TestStructuralGuard(t *testing.T) {
	doc := fromString(t, `<r><a/><b/></r>`)
	root := doc.Root()
	a := root.FirstChild()
	b := a.NextSibling()

	rootAlias := root.Dup()
	if same, err := root.ReplaceChild(b, b); err != nil || same != b {
		t.Errorf("no-op replace on an aliased parent: %v", err)
	}
	runtime.KeepAlive(rootAlias)
	rootAlias.Release()

	repl, _ := doc.NewNode("z", nil)
	replAlias := repl.Dup()
	if _, err := root.ReplaceChild(a, repl); !errors.Is(err, ErrAliasing) {
		t.Errorf("aliased replacement: %v", err)
	}
	if err := root.AddChild(repl); !errors.Is(err, ErrAliasing) {
		t.Errorf("aliased child: %v", err)
	}
	if err := b.AddNextSibling(repl); !errors.Is(err, ErrAliasing) {
		t.Errorf("aliased sibling: %v", err)
	}
	runtime.KeepAlive(replAlias)
	replAlias.Release()
	if err := root.AddChild(repl); err != nil {
		t.Fatal(err)
	}
	if got := names(root.ChildNodes()); !cmp.Equal(got, []string{"a", "b", "z"}) {
		t.Errorf("children %v", got)
	}
}
