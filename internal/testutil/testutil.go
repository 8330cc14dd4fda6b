// Package testutil provides shared test helpers for documents, storage and
// asynchronous assertions.
package testutil

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/lexicon/internal/dom"
	"github.com/starford/lexicon/internal/storage"
)

// Logger returns a logger that drops everything below error.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

// TestStore opens a SQLite-backed provider in a temp dir, closed on cleanup.
func TestStore(t *testing.T) storage.Provider {
	t.Helper()
	store, err := storage.Open(filepath.Join(t.TempDir(), "lexicon-test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// TestDocument parses markup, failing the test on error.
func TestDocument(t *testing.T, markup string, opts ...dom.Option) *dom.Document {
	t.Helper()
	doc, err := dom.ParseString(markup, opts...)
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

// Eventually polls fn every tick until it returns true or timeout elapses.
func Eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}
