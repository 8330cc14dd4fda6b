package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/lexicon/internal/dictionary"
	"github.com/starford/lexicon/internal/testutil"
)

type stubFetcher struct {
	d     *dictionary.Dictionary
	calls int
}

func (f *stubFetcher) Fetch(context.Context) (*dictionary.Dictionary, error) {
	f.calls++
	return f.d, nil
}

func testConfig(t *testing.T, markup, backend string) *Config {
	t.Helper()
	dir := t.TempDir()
	page := filepath.Join(dir, "page.html")
	if err := os.WriteFile(page, []byte(markup), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := NewDefaultConfig()
	cfg.Document.Source = page
	cfg.Dictionary.URL = "https://dict.example.com/v1/record"
	cfg.Storage.Backend = backend
	if backend == StorageBackendFS {
		cfg.Storage.Path = filepath.Join(dir, "data")
	} else {
		cfg.Storage.Path = filepath.Join(dir, "lexicon.db")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	return cfg
}

func TestRunSubstitute(t *testing.T) {
	for _, backend := range []string{StorageBackendSQLite, StorageBackendFS} {
		t.Run(backend, func(t *testing.T) {
			cfg := testConfig(t, `<html><body><p>Grey colour</p><script>var grey = 1;</script></body></html>`, backend)
			f := &stubFetcher{d: dictionary.Of("grey", "gray", "colour", "color")}

			var out bytes.Buffer
			err := RunSubstitute(context.Background(), &out,
				WithConfig(cfg), WithFetcher(f), WithLogOutput(io.Discard))
			if err != nil {
				t.Fatalf("RunSubstitute: %v", err)
			}
			got := out.String()
			if !strings.Contains(got, "<p>Gray color") {
				t.Errorf("text not rewritten:\n%s", got)
			}
			if !strings.Contains(got, "var grey = 1;") {
				t.Errorf("script rewritten:\n%s", got)
			}
			if !strings.Contains(got, `class="tooltip"`) {
				t.Errorf("no tooltip:\n%s", got)
			}
		})
	}
}

func TestRunSubstitute_SessionAreaNotPersisted(t *testing.T) {
	cfg := testConfig(t, `<html><body><p>grey</p></body></html>`, StorageBackendSQLite)
	f := &stubFetcher{d: dictionary.Of("grey", "gray")}

	for i := 0; i < 2; i++ {
		if err := RunSubstitute(context.Background(), &bytes.Buffer{},
			WithConfig(cfg), WithFetcher(f), WithLogOutput(io.Discard)); err != nil {
			t.Fatal(err)
		}
	}
	if f.calls != 2 {
		t.Errorf("fetches = %d, want 2 (session cache is per process)", f.calls)
	}

	cfg.Storage.PersistSession = true
	for i := 0; i < 2; i++ {
		if err := RunSubstitute(context.Background(), &bytes.Buffer{},
			WithConfig(cfg), WithFetcher(f), WithLogOutput(io.Discard)); err != nil {
			t.Fatal(err)
		}
	}
	if f.calls != 3 {
		t.Errorf("fetches = %d, want 3 (persisted session cache is fresh)", f.calls)
	}
}

func TestRunSubstitute_DisabledWritesUnchanged(t *testing.T) {
	cfg := testConfig(t, `<html><body><p>grey</p></body></html>`, StorageBackendSQLite)
	f := &stubFetcher{}

	var out bytes.Buffer
	if err := RunSubstitute(context.Background(), &out,
		WithConfig(cfg), WithFetcher(f), WithLogOutput(io.Discard)); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "<p>grey</p>") {
		t.Errorf("document changed:\n%s", out.String())
	}
}

func TestRunRequiresConfig(t *testing.T) {
	if err := Run(context.Background()); err == nil {
		t.Fatal("expected error without config")
	}
}

func TestHTTPHandler(t *testing.T) {
	cfg := testConfig(t, `<html><body><p>grey</p></body></html>`, StorageBackendSQLite)
	cfg.Auth = AuthConfig{Mode: AuthModeToken, Token: "secret"}
	app, err := newApplication([]Option{WithConfig(cfg), WithFetcher(&stubFetcher{d: dictionary.Of("grey", "gray")})})
	if err != nil {
		t.Fatal(err)
	}
	eng, err := app.start(context.Background(), testutil.Logger())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = eng.close() })
	h := newHTTPHandler(cfg, eng)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	var ready map[string]string
	_ = json.Unmarshal(w.Body.Bytes(), &ready)
	if w.Code != http.StatusOK || ready["substitution"] != "enabled" {
		t.Errorf("ready = %d %v", w.Code, ready)
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated /api/status = %d, want 401", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("/api/status = %d", w.Code)
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(w.Body.String(), "lexicon_scans_total") {
		t.Errorf("metrics missing scan counter")
	}
}
