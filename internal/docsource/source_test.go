package docsource

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/starford/lexicon/internal/dom"
	"github.com/starford/lexicon/internal/testutil"
	"github.com/starford/lexicon/internal/tooltip"
)

func TestReadFileAndURL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "page.html")
	if err := os.WriteFile(path, []byte("<p>file</p>"), 0o644); err != nil {
		t.Fatal(err)
	}
	data, err := Read(context.Background(), path, nil)
	if err != nil || string(data) != "<p>file</p>" {
		t.Errorf("file: %q, %v", data, err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/page" {
			http.NotFound(w, r)
			return
		}
		_, _ = io.WriteString(w, "<p>remote</p>")
	}))
	defer srv.Close()

	data, err = Read(context.Background(), srv.URL+"/page", srv.Client())
	if err != nil || string(data) != "<p>remote</p>" {
		t.Errorf("url: %q, %v", data, err)
	}
	if _, err := Read(context.Background(), srv.URL+"/missing", srv.Client()); err == nil {
		t.Error("expected error for 404")
	}
}

func TestReplaceKeepsTooltips(t *testing.T) {
	doc := testutil.TestDocument(t, `<html><body><p>old</p><div class="tooltip">orig</div></body></html>`)
	var records []dom.Record
	doc.Observe(doc.Body(), dom.ObserveOptions{ChildList: true, Subtree: true}, func(b []dom.Record) {
		records = append(records, b...)
	})

	if err := Replace(doc, []byte(`<html><body><h1>new</h1><p>text</p></body></html>`)); err != nil {
		t.Fatal(err)
	}
	doc.Flush()

	out, _ := doc.HTML()
	if strings.Contains(out, "<p>old</p>") || !strings.Contains(out, "<h1>new</h1><p>text</p>") {
		t.Errorf("body not replaced:\n%s", out)
	}
	tips, _ := doc.Select("." + tooltip.Class)
	if len(tips) != 1 {
		t.Errorf("tooltips = %d, want 1", len(tips))
	}
	if len(records) != 1 || dom.AddedNodes(records) != 2 {
		t.Errorf("records = %+v", records)
	}
}

func TestWatchReportsChanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "page.html")
	if err := os.WriteFile(path, []byte("<p>v1</p>"), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var got []string
	go Watch(ctx, path, testutil.Logger(), func(data []byte) {
		mu.Lock()
		got = append(got, string(data))
		mu.Unlock()
	})
	time.Sleep(100 * time.Millisecond)

	// same content: no callback
	_ = os.WriteFile(path, []byte("<p>v1</p>"), 0o644)
	time.Sleep(300 * time.Millisecond)
	_ = os.WriteFile(path, []byte("<p>v2</p>"), 0o644)

	testutil.Eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1 && got[0] == "<p>v2</p>"
	}, "change not reported exactly once")
}
