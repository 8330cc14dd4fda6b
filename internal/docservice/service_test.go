package docservice

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/microcosm-cc/bluemonday"

	"github.com/starford/lexicon/internal/apperr"
	"github.com/starford/lexicon/internal/dictionary"
	"github.com/starford/lexicon/internal/dom"
	"github.com/starford/lexicon/internal/eventloop"
	"github.com/starford/lexicon/internal/gate"
	"github.com/starford/lexicon/internal/session"
	"github.com/starford/lexicon/internal/storage"
	"github.com/starford/lexicon/internal/testutil"
)

type fetcher struct{ d *dictionary.Dictionary }

func (f fetcher) Fetch(context.Context) (*dictionary.Dictionary, error) { return f.d, nil }

const page = `<html><head><title>t</title></head><body><h1>Colour guide</h1><div id="feed"></div></body></html>`

func newService(t *testing.T) *Service {
	t.Helper()
	loop := eventloop.New()
	t.Cleanup(loop.Close)
	doc := testutil.TestDocument(t, page, dom.WithScheduler(func(fn func()) { loop.Post(fn) }))
	layout := dom.NewStaticLayout(20)
	store := testutil.TestStore(t)

	sess, err := session.Start(context.Background(), session.Deps{
		Doc:     doc,
		Layout:  layout,
		Loop:    loop,
		Storage: store,
		Fetcher: fetcher{dictionary.Of("colour", "color")},
		Logger:  testutil.Logger(),
		Options: session.DefaultOptions(),
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = sess.Close(context.Background()) })
	return New(loop, doc, layout, sess, store, WithSanitizer(bluemonday.UGCPolicy()))
}

func TestDocumentAndMarkdown(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	snap, err := svc.Document(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(snap.HTML, "<h1>Color guide</h1>") || snap.Checksum == "" {
		t.Errorf("snapshot = %+v", snap)
	}

	out, err := svc.Markdown(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "# Color guide") {
		t.Errorf("markdown = %q", out)
	}
	if strings.Contains(out, "Colour guide") {
		t.Error("markdown contains tooltip text")
	}
}

func TestAppendNodesSanitises(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	n, err := svc.AppendNodes(ctx, "#feed", `<p onclick="x()">hi<script>alert(1)</script></p>`, "")
	if err != nil || n != 1 {
		t.Fatalf("AppendNodes = %d, %v", n, err)
	}
	snap, _ := svc.Document(ctx)
	if strings.Contains(snap.HTML, "onclick") || strings.Contains(snap.HTML, "alert(1)") {
		t.Errorf("fragment not sanitised:\n%s", snap.HTML)
	}
}

func TestAppendNodesErrors(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	if _, err := svc.AppendNodes(ctx, "#missing", "<p>x</p>", ""); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing target: %v", err)
	}
	if _, err := svc.AppendNodes(ctx, "p[[", "<p>x</p>", ""); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("bad selector: %v", err)
	}
	if _, err := svc.AppendNodes(ctx, "#feed", "<p>x</p>", "stale"); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("stale checksum: %v", err)
	}
	snap, _ := svc.Document(ctx)
	if _, err := svc.AppendNodes(ctx, "#feed", "<p>x</p>", snap.Checksum); err != nil {
		t.Errorf("current checksum rejected: %v", err)
	}
}

func TestRemoveNodes(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	if n, err := svc.RemoveNodes(ctx, "h1"); err != nil || n != 1 {
		t.Fatalf("RemoveNodes = %d, %v", n, err)
	}
	if _, err := svc.RemoveNodes(ctx, "body"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("removing body: %v", err)
	}
}

func TestPointerShowsTooltip(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	y := 100.0

	n, err := svc.Pointer(ctx, PointerInput{
		Selector: "h1",
		Event:    EventEnter,
		Rect:     &dom.Rect{Left: 10, Top: 50, Width: 200, Height: 30},
		ScrollY:  &y,
	})
	if err != nil || n != 1 {
		t.Fatalf("Pointer = %d, %v", n, err)
	}
	tips, _ := svc.Tooltips(ctx)
	if len(tips) != 1 || !tips[0].Visible || tips[0].Left != 10 || tips[0].Top != 130 {
		t.Errorf("tooltips = %+v", tips)
	}

	if _, err := svc.Pointer(ctx, PointerInput{Selector: "h1", Event: "click"}); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("bad event: %v", err)
	}
}

func TestLookupAndSubstitute(t *testing.T) {
	svc := newService(t)
	if e, err := svc.Lookup("COLOUR"); err != nil || e.Replacement != "color" {
		t.Errorf("Lookup = %+v, %v", e, err)
	}
	if _, err := svc.Lookup("nope"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Lookup missing: %v", err)
	}
	out, found, err := svc.Substitute("colour")
	if err != nil || out != "color" || len(found) != 1 {
		t.Errorf("Substitute = %q %v %v", out, found, err)
	}
	if entries := svc.Dictionary(); len(entries) != 1 || entries[0].Term != "colour" {
		t.Errorf("Dictionary = %+v", entries)
	}
}

func TestSetActivation(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	if err := svc.SetActivation(ctx, false); err != nil {
		t.Fatal(err)
	}
	if gate.IsEnabled(ctx, svc.store.Area(storage.AreaSync), testutil.Logger()) {
		t.Error("flag not stored")
	}
}

func TestReload(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	if err := svc.Reload(ctx, []byte(`<html><body><p>new colour</p></body></html>`)); err != nil {
		t.Fatal(err)
	}
	snap, _ := svc.Document(ctx)
	if strings.Contains(snap.HTML, "<h1>") {
		t.Errorf("old body survived:\n%s", snap.HTML)
	}
}
