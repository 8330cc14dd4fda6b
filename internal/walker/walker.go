// Package walker enumerates the text of a document, rewrites dictionary
// terms in place and records what was replaced.
package walker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/starford/lexicon/internal/dom"
	"github.com/starford/lexicon/internal/matcher"
	"github.com/starford/lexicon/internal/models"
	"github.com/starford/lexicon/internal/storage"
	"github.com/starford/lexicon/internal/tooltip"
)

// Result summarises one scan. Skipped counts candidates still holding the
// text an earlier scan wrote.
type Result struct {
	Candidates   int
	Skipped      int
	Modified     int
	Replacements int
	NewRecords   []models.Replacement
	Duration     time.Duration
}

// Config wires a Walker.
type Config struct {
	Doc      *dom.Document
	Matcher  *matcher.Matcher
	Tooltips *tooltip.Attacher
	// Local receives replacedWords and replacedSet after every scan.
	Local  storage.Area
	Clock  clockwork.Clock
	Logger *slog.Logger
}

// Walker rewrites a document. It must only be used from the goroutine that
// owns the document.
type Walker struct {
	doc     *dom.Document
	matcher *matcher.Matcher
	tips    *tooltip.Attacher
	local   storage.Area
	clock   clockwork.Clock
	logger  *slog.Logger
	history *History
	// written holds the text the walker last stored in each node. A node
	// still holding it is not rewritten again.
	written map[*html.Node]string
}

// New creates a Walker with an empty history.
func New(cfg Config) *Walker {
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Walker{
		doc:     cfg.Doc,
		matcher: cfg.Matcher,
		tips:    cfg.Tooltips,
		local:   cfg.Local,
		clock:   cfg.Clock,
		logger:  cfg.Logger,
		history: NewHistory(),
		written: make(map[*html.Node]string),
	}
}

// History returns the session's provenance log.
func (w *Walker) History() *History { return w.history }

// Scan rewrites every candidate text node once and persists the history.
// Text the walker itself produced is left alone on later scans, so chained
// dictionary entries apply once.
// A persistence failure is returned after the document has been rewritten.
func (w *Walker) Scan(ctx context.Context) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	start := w.clock.Now()

	if n := w.tips.Prune(); n > 0 {
		w.logger.Debug("walker: pruned tooltips", slog.Int("count", n))
	}
	for n := range w.written {
		if !w.doc.Attached(n) {
			delete(w.written, n)
		}
	}

	nodes := Candidates(w.doc)
	res := Result{Candidates: len(nodes)}

	for _, n := range nodes {
		original := n.Data
		if prev, ok := w.written[n]; ok && prev == original {
			res.Skipped++
			continue
		}
		if !w.matcher.Match(original) {
			continue
		}
		replaced := w.matcher.Replace(original, func(orig, repl string) {
			res.Replacements++
			if w.history.Add(orig, repl) {
				res.NewRecords = append(res.NewRecords, models.Replacement{Original: orig, Replacement: repl})
			}
		})
		w.tips.Attach(n, original)
		if replaced != original {
			w.doc.SetText(n, replaced)
			res.Modified++
		}
		w.written[n] = replaced
	}

	err := w.persist(ctx)
	res.Duration = w.clock.Since(start)
	return res, err
}

func (w *Walker) persist(ctx context.Context) error {
	if w.local == nil {
		return nil
	}
	err := w.local.Set(ctx, map[string]any{
		storage.KeyReplacedWords: w.history.Records(),
		storage.KeyReplacedSet:   w.history.Seen(),
	})
	if err != nil {
		w.logger.Error("walker: persist history failed", slog.String("error", err.Error()))
		return fmt.Errorf("walker: persist history: %w", err)
	}
	return nil
}

// Candidates returns, in document order, the text nodes under <body> that
// are eligible for rewriting: not inside <script> and not inside a tooltip.
func Candidates(doc *dom.Document) []*html.Node {
	body := doc.Body()
	if body == nil {
		return nil
	}
	var out []*html.Node
	stack := []*html.Node{body}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		switch n.Type {
		case html.TextNode:
			if n.Parent != nil && n.Parent.DataAtom != atom.Script {
				out = append(out, n)
			}
			continue
		case html.ElementNode:
			if dom.HasClass(n, tooltip.Class) {
				continue
			}
		}
		for c := n.LastChild; c != nil; c = c.PrevSibling {
			stack = append(stack, c)
		}
	}
	return out
}
