package walker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/starford/lexicon/internal/dictionary"
	"github.com/starford/lexicon/internal/dom"
	"github.com/starford/lexicon/internal/matcher"
	"github.com/starford/lexicon/internal/models"
	"github.com/starford/lexicon/internal/storage"
	"github.com/starford/lexicon/internal/tooltip"
)

type fixture struct {
	doc  *dom.Document
	tips *tooltip.Attacher
	mem  *storage.Memory
	w    *Walker
}

func newFixture(t *testing.T, markup string, pairs ...string) *fixture {
	t.Helper()
	doc, err := dom.ParseString(markup)
	if err != nil {
		t.Fatal(err)
	}
	tips := tooltip.New(doc, dom.NewStaticLayout(20))
	mem := storage.NewMemory()
	w := New(Config{
		Doc:      doc,
		Matcher:  matcher.MustCompile(dictionary.Of(pairs...)),
		Tooltips: tips,
		Local:    mem.Area(storage.AreaLocal),
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return &fixture{doc: doc, tips: tips, mem: mem, w: w}
}

func (f *fixture) scan(t *testing.T) Result {
	t.Helper()
	res, err := f.w.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	return res
}

func (f *fixture) html(t *testing.T) string {
	t.Helper()
	s, err := f.doc.HTML()
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestScanRewritesText(t *testing.T) {
	f := newFixture(t, `<html><body><p>My favourite colour</p><div>Colour <b>colour</b></div></body></html>`,
		"colour", "color", "favourite", "favorite")
	res := f.scan(t)

	if res.Modified != 3 || res.Replacements != 4 {
		t.Errorf("result = %+v", res)
	}
	out := f.html(t)
	for _, want := range []string{"<p>My favorite color</p>", "Color <b>color</b>"} {
		if !strings.Contains(out, want) {
			t.Errorf("document lacks %q:\n%s", want, out)
		}
	}
}

func TestScanSkipsScriptAndTooltips(t *testing.T) {
	f := newFixture(t, `<html><body><script>var colour = 1;</script>`+
		`<div class="tooltip">colour</div><div class="x tooltip"><span>colour</span></div>`+
		`<p>colour</p></body></html>`, "colour", "color")
	res := f.scan(t)

	if res.Modified != 1 {
		t.Fatalf("modified = %d, want 1", res.Modified)
	}
	out := f.html(t)
	if !strings.Contains(out, "var colour = 1;") {
		t.Error("script text rewritten")
	}
	if strings.Count(out, ">colour<") != 3 {
		t.Errorf("pre-existing tooltip text rewritten:\n%s", out)
	}
}

func TestTooltipTextNeverRewritten(t *testing.T) {
	f := newFixture(t, `<html><body><p>colour</p></body></html>`, "colour", "color")
	f.scan(t)

	// a rescan sees the tooltip holding "colour" and must leave it alone
	res := f.scan(t)
	if res.Modified != 0 {
		t.Errorf("rescan modified %d nodes", res.Modified)
	}
	list := f.tips.List()
	if len(list) != 1 || list[0].Text != "colour" {
		t.Errorf("tooltips = %+v", list)
	}
}

func TestProvenanceDedup(t *testing.T) {
	f := newFixture(t, `<html><body><p>Colour</p><p>colour</p><p>COLOUR</p></body></html>`, "colour", "color")
	res := f.scan(t)

	want := []models.Replacement{{Original: "Colour", Replacement: "Color"}}
	got := f.w.History().Records()
	if len(got) != 1 || got[0] != want[0] {
		t.Errorf("records = %+v, want %+v", got, want)
	}
	if len(res.NewRecords) != 1 {
		t.Errorf("new records = %+v", res.NewRecords)
	}
	if seen := f.w.History().Seen(); len(seen) != 1 || seen[0] != "colour" {
		t.Errorf("seen = %v", seen)
	}
}

func TestScanPersistsEveryTime(t *testing.T) {
	f := newFixture(t, `<html><body><p>nothing</p></body></html>`, "colour", "color")
	f.scan(t)
	f.scan(t)
	if n := f.mem.Writes(storage.AreaLocal); n != 2 {
		t.Errorf("local writes = %d, want 2", n)
	}

	p, _ := f.doc.Select("p")
	f.doc.AppendChild(p[0], dom.NewText(" colour"))
	f.scan(t)

	var words []models.Replacement
	var set []string
	local := f.mem.Area(storage.AreaLocal)
	if _, err := local.Get(context.Background(), storage.KeyReplacedWords, &words); err != nil {
		t.Fatal(err)
	}
	if _, err := local.Get(context.Background(), storage.KeyReplacedSet, &set); err != nil {
		t.Fatal(err)
	}
	if len(words) != 1 || words[0].Original != "colour" || len(set) != 1 {
		t.Errorf("persisted words=%+v set=%v", words, set)
	}
}

func TestPersistFailureKeepsRewrite(t *testing.T) {
	f := newFixture(t, `<html><body><p>colour</p></body></html>`, "colour", "color")
	f.mem.FailSet[storage.AreaLocal] = errors.New("disk full")

	res, err := f.w.Scan(context.Background())
	if err == nil {
		t.Fatal("expected persist error")
	}
	if res.Modified != 1 || f.w.History().Len() != 1 {
		t.Errorf("result = %+v, history = %d", res, f.w.History().Len())
	}
}

func TestOneTooltipPerOwner(t *testing.T) {
	f := newFixture(t, `<html><body><p id="p">colour</p></body></html>`, "colour", "color", "grey", "gray")
	f.scan(t)

	p, _ := f.doc.Select("#p")
	f.doc.AppendChild(p[0], dom.NewText(" grey"))
	f.scan(t)

	if f.tips.Len() != 1 {
		t.Fatalf("tooltips = %d, want 1", f.tips.Len())
	}
	if got := f.tips.List()[0].Text; got != "colour grey" {
		t.Errorf("tooltip text = %q, want both originals", got)
	}
	if n := f.doc.ListenerCount(p[0], dom.PointerEnter); n != 1 {
		t.Errorf("enter listeners = %d", n)
	}
}

func TestChainedEntriesApplyOnce(t *testing.T) {
	f := newFixture(t, `<html><body><p id="p">cat</p></body></html>`, "cat", "dog", "dog", "wolf")
	f.scan(t)
	res := f.scan(t)

	if res.Modified != 0 || res.Skipped != 1 {
		t.Errorf("rescan result = %+v", res)
	}
	if out := f.html(t); !strings.Contains(out, `<p id="p">dog</p>`) {
		t.Errorf("text rewritten twice:\n%s", out)
	}
	if list := f.tips.List(); len(list) != 1 || list[0].Text != "cat" {
		t.Errorf("tooltips = %+v, want original cat", list)
	}
	got := f.w.History().Records()
	if len(got) != 1 || got[0] != (models.Replacement{Original: "cat", Replacement: "dog"}) {
		t.Errorf("records = %+v", got)
	}
}

func TestExternallyChangedTextIsRewritten(t *testing.T) {
	f := newFixture(t, `<html><body><p id="p">cat</p></body></html>`, "cat", "dog", "dog", "wolf")
	f.scan(t)

	p, _ := f.doc.Select("#p")
	f.doc.SetText(p[0].FirstChild, "a dog")
	f.scan(t)

	if out := f.html(t); !strings.Contains(out, `<p id="p">a wolf</p>`) {
		t.Errorf("new text not rewritten:\n%s", out)
	}
	if list := f.tips.List(); len(list) != 1 || list[0].Text != "a dog" {
		t.Errorf("tooltips = %+v", list)
	}
}

func TestScanPrunesDetachedOwners(t *testing.T) {
	f := newFixture(t, `<html><body><p id="a">colour</p><p id="b">colour</p></body></html>`, "colour", "color")
	f.scan(t)
	if f.tips.Len() != 2 {
		t.Fatalf("tooltips = %d", f.tips.Len())
	}

	a, _ := f.doc.Select("#a")
	f.doc.RemoveChild(f.doc.Body(), a[0])
	f.scan(t)
	if f.tips.Len() != 1 {
		t.Errorf("tooltips after prune = %d, want 1", f.tips.Len())
	}
	if len(f.w.written) != 1 {
		t.Errorf("written = %d entries, want 1", len(f.w.written))
	}
}

func TestCandidatesDocumentOrder(t *testing.T) {
	doc, err := dom.ParseString(`<html><body>a<p>b<i>c</i></p>d</body></html>`)
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, n := range Candidates(doc) {
		got = append(got, n.Data)
	}
	if strings.Join(got, "") != "abcd" {
		t.Errorf("order = %v", got)
	}
}

func TestScanCancelled(t *testing.T) {
	f := newFixture(t, `<html><body><p>colour</p></body></html>`, "colour", "color")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := f.w.Scan(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v", err)
	}
	if f.mem.Writes(storage.AreaLocal) != 0 {
		t.Error("cancelled scan persisted")
	}
}
