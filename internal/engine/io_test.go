package engine

import (
	"strings"
	"testing"
)

func dumpDoc(d *Doc, flags SaveFlag) string {
	var sb strings.Builder
	d.DumpDoc(&sb, flags)
	return sb.String()
}

func TestDump(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		flags SaveFlag
		want  string
	}{
		{
			name: "declaration",
			in:   `<a><b/></a>`,
			want: "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n<a><b/></a>\n",
		},
		{
			name:  "no declaration",
			in:    `<a x="1&amp;2">t&lt;</a>`,
			flags: NoDecl,
			want:  "<a x=\"1&amp;2\">t&lt;</a>\n",
		},
		{
			name:  "format",
			in:    `<a><b><c/></b><d>text</d></a>`,
			flags: NoDecl | SaveFormat,
			want:  "<a>\n  <b>\n    <c/>\n  </b>\n  <d>text</d>\n</a>\n",
		},
		{
			name:  "format keeps mixed content",
			in:    `<a>x<b/></a>`,
			flags: NoDecl | SaveFormat,
			want:  "<a>x<b/></a>\n",
		},
		{
			name:  "format drops insignificant blanks",
			in:    "<a>\n <b/>\n</a>",
			flags: NoDecl | SaveFormat | WSNonSig,
			want:  "<a>\n  <b/>\n</a>\n",
		},
		{
			name:  "no empty",
			in:    `<a><b/></a>`,
			flags: NoDecl | NoEmpty,
			want:  "<a><b></b></a>\n",
		},
		{
			name:  "xhtml void",
			in:    `<p><br/><span/></p>`,
			flags: NoDecl | XHTML,
			want:  "<p><br /><span></span></p>\n",
		},
		{
			name:  "comment and pi",
			in:    `<?pi data?><a><!--c--></a>`,
			flags: NoDecl,
			want:  "<?pi data?>\n<a><!--c--></a>\n",
		},
		{
			name:  "namespaces",
			in:    `<a xmlns="urn:a" xmlns:b="urn:b"><b:c b:k="v"/></a>`,
			flags: NoDecl,
			want:  "<a xmlns=\"urn:a\" xmlns:b=\"urn:b\"><b:c b:k=\"v\"/></a>\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := mustParse(t, tt.in)
			if got := dumpDoc(d, tt.flags); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDumpUndeclaredNamespace(t *testing.T) {
	d := mustParse(t, `<a xmlns:p="urn:p"><b/></a>`)
	root := d.Root()
	b := d.FirstChild(root)
	d.SetNs(b, d.SearchNs(root, "p"))
	var sb strings.Builder
	d.Dump(&sb, b, 0)
	if got, want := sb.String(), `<p:b xmlns:p="urn:p"/>`; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		flags   ParseFlag
		wantDoc bool
	}{
		{"empty", ``, 0, false},
		{"mismatch", `<a><b></a>`, 0, false},
		{"unclosed", `<a><b>`, 0, false},
		{"recover mismatch", `<a><b>x</a>`, Recover, true},
		{"two roots", `<a/><b/>`, 0, false},
		{"dup attr", `<a x="1" x="2"/>`, 0, false},
		{"text outside", `<a/>junk`, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, diags := Parse([]byte(tt.in), XML, tt.flags)
			if (d != nil) != tt.wantDoc {
				t.Fatalf("doc = %v, want %v (diags %v)", d != nil, tt.wantDoc, diags)
			}
			if d != nil {
				d.Free()
			}
			if len(diags) == 0 {
				t.Error("expected diagnostics")
			}
			_, quiet := Parse([]byte(tt.in), XML, tt.flags|NoError|NoWarning)
			if len(quiet) != 0 {
				t.Errorf("suppressed diagnostics leaked: %v", quiet)
			}
		})
	}
}

func TestParseOptions(t *testing.T) {
	d, _ := Parse([]byte("<a>\n  <b/>\n</a>"), XML, NoBlanks)
	defer d.Free()
	if got := childNames(d, d.Root()); len(got) != 1 || got[0] != "b" {
		t.Errorf("children %v", got)
	}

	deep := strings.Repeat("<a>", MaxDepth+2) + strings.Repeat("</a>", MaxDepth+2)
	if d, _ := Parse([]byte(deep), XML, 0); d != nil {
		d.Free()
		t.Error("depth limit not enforced")
	}
	d, _ = Parse([]byte(deep), XML, Huge)
	if d == nil {
		t.Fatal("huge should lift the depth limit")
	}
	d.Free()
}

func TestParseEncodings(t *testing.T) {
	latin1 := append([]byte(`<?xml version="1.0" encoding="ISO-8859-1"?><a>`), 0xE9)
	latin1 = append(latin1, []byte(`</a>`)...)
	d, diags := Parse(latin1, XML, 0)
	if d == nil {
		t.Fatalf("latin1: %v", diags)
	}
	if got := d.Content(d.Root()); got != "é" {
		t.Errorf("latin1 content %q", got)
	}
	d.Free()

	bom := append([]byte{0xEF, 0xBB, 0xBF}, []byte(`<a>x</a>`)...)
	d, diags = Parse(bom, XML, 0)
	if d == nil {
		t.Fatalf("bom: %v", diags)
	}
	d.Free()

	utf16 := []byte{0xFF, 0xFE}
	for _, r := range `<a>y</a>` {
		utf16 = append(utf16, byte(r), 0)
	}
	d, diags = Parse(utf16, XML, 0)
	if d == nil {
		t.Fatalf("utf16: %v", diags)
	}
	if got := d.Content(d.Root()); got != "y" {
		t.Errorf("utf16 content %q", got)
	}
	d.Free()
}

func TestParseHTML(t *testing.T) {
	d, diags := Parse([]byte(`<p>one<br>two`), HTML, 0)
	if d == nil {
		t.Fatalf("html: %v", diags)
	}
	defer d.Free()
	if !d.IsHTML() || d.Kind(d.DocNode()) != HTMLDocumentNode {
		t.Error("not an html document")
	}
	if d.Name(d.Root()) != "html" {
		t.Errorf("root %q", d.Name(d.Root()))
	}
	res := d.Eval("//p", nil, Nil)
	if res == nil || len(res.Nodes) != 1 {
		t.Fatalf("//p: %+v", res)
	}
	var sb strings.Builder
	d.Dump(&sb, res.Nodes[0], 0)
	if got, want := sb.String(), "<p>one<br>two</p>"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestEval(t *testing.T) {
	d := mustParse(t, `<r xmlns:p="urn:p"><a k="1">x</a><a k="2">y</a><p:b/><?pi?></r>`)
	tests := []struct {
		expr  string
		typ   ResultType
		nodes int
		str   string
		num   float64
		b     bool
	}{
		{expr: "//a", typ: NodeSetResult, nodes: 2},
		{expr: "//a/@k", typ: NodeSetResult, nodes: 2},
		{expr: "//a | //a[1]", typ: NodeSetResult, nodes: 2},
		{expr: "//missing", typ: NodeSetResult},
		{expr: "count(//a)", typ: NumberResult, num: 2},
		{expr: "string(//a[2])", typ: StringResult, str: "y"},
		{expr: "count(//a) = 2", typ: BooleanResult, b: true},
		{expr: "//p:b", typ: NodeSetResult, nodes: 1},
		{expr: "/r/node()", typ: NodeSetResult, nodes: 3},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			res := d.Eval(tt.expr, map[string]string{"p": "urn:p"}, Nil)
			if res == nil {
				t.Fatal("nil result")
			}
			if res.Type != tt.typ || len(res.Nodes) != tt.nodes || res.Str != tt.str || res.Num != tt.num || res.Bool != tt.b {
				t.Errorf("got %+v", res)
			}
		})
	}
	if d.Eval("//a[", nil, Nil) != nil || Compiles("//a[") {
		t.Error("invalid expression accepted")
	}
	if !Compiles("//a") {
		t.Error("valid expression rejected")
	}
	a2 := d.Eval("//a", nil, Nil).Nodes[1]
	res := d.Eval("string(@k)", nil, a2)
	if res == nil || res.Str != "2" {
		t.Errorf("relative eval %+v", res)
	}
	nodes := d.Eval("//a[2] | //a[1]", nil, Nil).Nodes
	if len(nodes) != 2 || d.Content(nodes[0]) != "x" {
		t.Error("result not in document order")
	}
}

func c14n(t *testing.T, d *Doc, p Pos, mode C14NMode, comments bool, incl ...string) string {
	t.Helper()
	var sb strings.Builder
	if d.C14N(&sb, p, mode, comments, incl) != 0 {
		t.Fatal("c14n failed")
	}
	return sb.String()
}

func TestC14NDocument(t *testing.T) {
	in := "<?xml version=\"1.0\"?>\n<!--head-->\n<doc b=\"2\" a=\"1\"><e/><!--x--><f   xmlns=\"urn:f\">t&#13;&gt;</f></doc>\n<?tail?>"
	d := mustParse(t, in)
	want := "<doc a=\"1\" b=\"2\"><e></e><f xmlns=\"urn:f\">t&#xD;&gt;</f></doc>\n<?tail?>"
	if got := c14n(t, d, Nil, C14N10, false); got != want {
		t.Errorf("without comments:\n got %q\nwant %q", got, want)
	}
	want = "<!--head-->\n<doc a=\"1\" b=\"2\"><e></e><!--x--><f xmlns=\"urn:f\">t&#xD;&gt;</f></doc>\n<?tail?>"
	if got := c14n(t, d, Nil, C14N10, true); got != want {
		t.Errorf("with comments:\n got %q\nwant %q", got, want)
	}
}

func TestC14NSubset(t *testing.T) {
	in := `<n0:local xmlns:n0="http://foobar.org" xmlns:n3="ftp://example.org"><n1:elem2 xmlns:n1="http://example.net" xml:lang="en"><n3:stuff xmlns:n3="ftp://example.org"/></n1:elem2></n0:local>`
	d := mustParse(t, in)
	elem2 := d.FirstChild(d.Root())
	tests := []struct {
		mode C14NMode
		incl []string
		want string
	}{
		{
			mode: C14N10,
			want: `<n1:elem2 xmlns:n0="http://foobar.org" xmlns:n1="http://example.net" xmlns:n3="ftp://example.org" xml:lang="en"><n3:stuff></n3:stuff></n1:elem2>`,
		},
		{
			mode: Exclusive10,
			want: `<n1:elem2 xmlns:n1="http://example.net" xml:lang="en"><n3:stuff xmlns:n3="ftp://example.org"></n3:stuff></n1:elem2>`,
		},
		{
			mode: Exclusive10,
			incl: []string{"n0"},
			want: `<n1:elem2 xmlns:n0="http://foobar.org" xmlns:n1="http://example.net" xml:lang="en"><n3:stuff xmlns:n3="ftp://example.org"></n3:stuff></n1:elem2>`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			if got := c14n(t, d, elem2, tt.mode, false, tt.incl...); got != tt.want {
				t.Errorf("\n got %s\nwant %s", got, tt.want)
			}
		})
	}
}

func TestC14NInheritsXMLAttrs(t *testing.T) {
	d := mustParse(t, `<a xml:lang="en" xml:space="preserve" xml:base="x"><b/></a>`)
	b := d.FirstChild(d.Root())
	if got, want := c14n(t, d, b, C14N10, false), `<b xml:base="x" xml:lang="en" xml:space="preserve"></b>`; got != want {
		t.Errorf("1.0: got %s want %s", got, want)
	}
	if got, want := c14n(t, d, b, C14N11, false), `<b xml:lang="en" xml:space="preserve"></b>`; got != want {
		t.Errorf("1.1: got %s want %s", got, want)
	}
	if got, want := c14n(t, d, b, Exclusive10, false), `<b></b>`; got != want {
		t.Errorf("exclusive: got %s want %s", got, want)
	}
}
