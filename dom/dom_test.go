package dom

import (
	"strings"
	"testing"

	"golang.org/x/net/html"

	"github.com/hazyhaar/travesty/mutation"
)

var testPage = []byte(`<!DOCTYPE html>
<html><head><title>t</title></head>
<body>
<div id="a"><p>first para</p><p>second para</p></div>
<div id="b"><span>inline</span></div>
</body></html>`)

func mustParse(t *testing.T, raw []byte) *Document {
	t.Helper()
	d, err := Parse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return d
}

func TestParse_Body(t *testing.T) {
	d := mustParse(t, testPage)
	if d.Body() == nil {
		t.Fatal("Body: got nil")
	}
	if d.Body().Data != "body" {
		t.Errorf("Body: got %q", d.Body().Data)
	}
}

func TestPathOf_Resolve_RoundTrip(t *testing.T) {
	d := mustParse(t, testPage)

	var second *html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode && n.Data == "second para" {
			second = n
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(d.Root())
	if second == nil {
		t.Fatal("test setup: text node not found")
	}

	path := PathOf(second)
	if !strings.Contains(path, "p[2]") || !strings.HasSuffix(path, "/text()") {
		t.Errorf("PathOf: got %q", path)
	}
	if got := d.Resolve(path); got != second {
		t.Errorf("Resolve(%q): got %v, want the original node", path, got)
	}
}

func TestResolve_Missing(t *testing.T) {
	d := mustParse(t, testPage)
	if n := d.Resolve("/html/body/article"); n != nil {
		t.Errorf("Resolve: got %v, want nil", n)
	}
	if n := d.Resolve(""); n != nil {
		t.Errorf("Resolve(\"\"): got %v, want nil", n)
	}
}

func TestApply_Text(t *testing.T) {
	d := mustParse(t, testPage)

	var changes []Change
	d.SetObserver(func(c Change) { changes = append(changes, c) })

	err := d.Apply(mutation.Record{
		Op:    mutation.OpText,
		Path:  "/html/body/div/p/text()",
		Value: "rewritten",
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(changes) != 1 || changes[0].Op != mutation.OpText {
		t.Fatalf("changes: got %+v", changes)
	}
	if changes[0].SelfCaused {
		t.Error("host mutation must not be tagged self-caused")
	}
	if changes[0].Node.Data != "rewritten" {
		t.Errorf("text: got %q", changes[0].Node.Data)
	}
}

func TestApply_Insert_Sanitizes(t *testing.T) {
	d := mustParse(t, testPage)

	var inserted []*html.Node
	d.SetObserver(func(c Change) {
		if c.Op == mutation.OpInsert {
			inserted = append(inserted, c.Node)
		}
	})

	err := d.Apply(mutation.Record{
		Op:   mutation.OpInsert,
		Path: "/html/body/div[2]",
		HTML: `<p>fine</p><script>alert(1)</script>`,
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(inserted) == 0 {
		t.Fatal("no inserted nodes observed")
	}

	out, err := d.HTML()
	if err != nil {
		t.Fatalf("HTML: %v", err)
	}
	if !strings.Contains(string(out), "<p>fine</p>") {
		t.Error("inserted paragraph missing from rendered output")
	}
	if strings.Contains(string(out), "alert(1)") {
		t.Error("script content survived sanitization")
	}
}

func TestApply_Remove(t *testing.T) {
	d := mustParse(t, testPage)
	if err := d.Apply(mutation.Record{Op: mutation.OpRemove, Path: "/html/body/div[1]"}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if n := d.Resolve("/html/body/div[2]"); n != nil {
		t.Error("after remove, only one div should remain")
	}
	if n := d.Resolve("/html/body/div"); n == nil {
		t.Error("remaining div should resolve without index")
	}
}

func TestApply_UnknownPath(t *testing.T) {
	d := mustParse(t, testPage)
	err := d.Apply(mutation.Record{Op: mutation.OpText, Path: "/html/body/nope/text()", Value: "x"})
	if err == nil {
		t.Error("Apply should fail on unresolvable path")
	}
}

func TestMutator_ReplaceWithSequence(t *testing.T) {
	d := mustParse(t, testPage)

	var changes []Change
	d.SetObserver(func(c Change) { changes = append(changes, c) })

	target := d.Resolve("/html/body/div/p/text()")
	if target == nil {
		t.Fatal("target not found")
	}

	seq := []*html.Node{NewText("before "), NewElement("span"), NewText(" after")}
	if err := d.Mutator().ReplaceWithSequence(target, seq); err != nil {
		t.Fatalf("ReplaceWithSequence: %v", err)
	}

	if len(changes) != 4 { // 3 inserts + 1 remove
		t.Fatalf("changes: got %d, want 4", len(changes))
	}
	for _, c := range changes {
		if !c.SelfCaused {
			t.Errorf("mutator change %s not tagged self-caused", c.Op)
		}
	}
	if target.Parent != nil {
		t.Error("replaced node should be detached")
	}
}

func TestMutator_ReplaceDetached(t *testing.T) {
	d := mustParse(t, testPage)
	if err := d.Mutator().ReplaceWithSequence(NewText("floating"), nil); err == nil {
		t.Error("ReplaceWithSequence should reject a detached target")
	}
}

func TestMutator_Attrs(t *testing.T) {
	d := mustParse(t, testPage)
	m := d.Mutator()
	div := d.Resolve("/html/body/div")

	var observed int
	d.SetObserver(func(Change) { observed++ })

	if err := m.SetAttr(div, "data-x", "1"); err != nil {
		t.Fatalf("SetAttr: %v", err)
	}
	if v, ok := Attr(div, "data-x"); !ok || v != "1" {
		t.Errorf("Attr: got %q,%v", v, ok)
	}
	if err := m.SetAttr(div, "data-x", "2"); err != nil {
		t.Fatalf("SetAttr overwrite: %v", err)
	}
	if v, _ := Attr(div, "data-x"); v != "2" {
		t.Errorf("Attr after overwrite: got %q", v)
	}
	m.DelAttr(div, "data-x")
	if _, ok := Attr(div, "data-x"); ok {
		t.Error("DelAttr left attribute behind")
	}
	if observed != 0 {
		t.Errorf("attribute writes must be unobserved, got %d changes", observed)
	}
}

func TestClassify(t *testing.T) {
	d := mustParse(t, []byte(`<html><body><p>x</p><script>var a;</script><!-- c --></body></html>`))

	p := d.Resolve("/html/body/p")
	if Classify(p) != KindElement {
		t.Error("p should be KindElement")
	}
	if Classify(p.FirstChild) != KindText {
		t.Error("text child should be KindText")
	}
	if Classify(d.Resolve("/html/body/script")) != KindSkip {
		t.Error("script should be KindSkip")
	}
}

func TestEditable(t *testing.T) {
	d := mustParse(t, []byte(`<html><body>
<div contenteditable>open</div>
<div contenteditable="false">closed</div>
<div contenteditable="plaintext-only">plain</div>
</body></html>`))

	if !Editable(d.Resolve("/html/body/div[1]")) {
		t.Error("bare contenteditable should be editable")
	}
	if Editable(d.Resolve("/html/body/div[2]")) {
		t.Error("contenteditable=false is not editable")
	}
	if !Editable(d.Resolve("/html/body/div[3]")) {
		t.Error("plaintext-only should be editable")
	}
}

func TestFormControl(t *testing.T) {
	d := mustParse(t, []byte(`<html><body><textarea>x</textarea><p>y</p></body></html>`))
	if !FormControl(d.Resolve("/html/body/textarea")) {
		t.Error("textarea should be a form control")
	}
	if FormControl(d.Resolve("/html/body/p")) {
		t.Error("p is not a form control")
	}
}
