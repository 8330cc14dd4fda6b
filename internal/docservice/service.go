// Package docservice is the single entry point the HTTP API, the MCP server
// and the watcher use to read and change the live document. Every call is
// funnelled onto the event loop that owns the document.
package docservice

import (
	"context"
	"fmt"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"

	"github.com/starford/lexicon/internal/apperr"
	"github.com/starford/lexicon/internal/checksum"
	"github.com/starford/lexicon/internal/docsource"
	"github.com/starford/lexicon/internal/dom"
	"github.com/starford/lexicon/internal/eventloop"
	"github.com/starford/lexicon/internal/gate"
	"github.com/starford/lexicon/internal/models"
	"github.com/starford/lexicon/internal/session"
	"github.com/starford/lexicon/internal/storage"
	"github.com/starford/lexicon/internal/tooltip"
)

// Pointer events accepted by Pointer.
const (
	EventEnter = "enter"
	EventLeave = "leave"
)

// Snapshot is the rendered document with its fingerprint.
type Snapshot struct {
	HTML     string `json:"html"`
	Checksum string `json:"checksum"`
}

// PointerInput describes a pointer event sent by a client. Rect and Scroll,
// when set, update the layout before the event is dispatched.
type PointerInput struct {
	Selector string
	Event    string
	Rect     *dom.Rect
	ScrollX  *float64
	ScrollY  *float64
}

// Service coordinates the document, its session and storage.
type Service struct {
	loop    *eventloop.Loop
	doc     *dom.Document
	layout  *dom.StaticLayout
	session *session.Session
	store   storage.Provider
	policy  *bluemonday.Policy
	md      *md.Converter
}

// Option configures a Service.
type Option func(*Service)

// WithSanitizer filters appended fragments through policy.
func WithSanitizer(policy *bluemonday.Policy) Option {
	return func(s *Service) { s.policy = policy }
}

// New creates a Service.
func New(loop *eventloop.Loop, doc *dom.Document, layout *dom.StaticLayout,
	sess *session.Session, store storage.Provider, opts ...Option) *Service {
	conv := md.NewConverter("", true, nil)
	conv.Use(plugin.GitHubFlavored())
	s := &Service{
		loop:    loop,
		doc:     doc,
		layout:  layout,
		session: sess,
		store:   store,
		md:      conv,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Session returns the engine session.
func (s *Service) Session() *session.Session { return s.session }

// Document renders the current document.
func (s *Service) Document(ctx context.Context) (*Snapshot, error) {
	var out string
	var renderErr error
	if err := s.loop.Do(ctx, func() { out, renderErr = s.doc.HTML() }); err != nil {
		return nil, err
	}
	if renderErr != nil {
		return nil, renderErr
	}
	return &Snapshot{HTML: out, Checksum: checksum.Sum([]byte(out))}, nil
}

// Markdown renders the body as Markdown, without tooltips.
func (s *Service) Markdown(ctx context.Context) (string, error) {
	snap, err := s.Document(ctx)
	if err != nil {
		return "", err
	}
	gq, err := goquery.NewDocumentFromReader(strings.NewReader(snap.HTML))
	if err != nil {
		return "", fmt.Errorf("docservice: parse rendered document: %w", err)
	}
	gq.Find("." + tooltip.Class).Remove()
	gq.Find("script, style").Remove()
	body, err := gq.Find("body").Html()
	if err != nil {
		return "", err
	}
	out, err := s.md.ConvertString(body)
	if err != nil {
		return "", fmt.Errorf("docservice: convert markdown: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// AppendNodes parses fragment and appends it to every element matching
// selector. When ifMatch is set it must equal the current document checksum.
// It returns the number of elements changed.
func (s *Service) AppendNodes(ctx context.Context, selector, fragment, ifMatch string) (int, error) {
	if strings.TrimSpace(selector) == "" {
		return 0, fmt.Errorf("%w: selector is required", apperr.ErrInvalidInput)
	}
	if s.policy != nil {
		fragment = s.policy.Sanitize(fragment)
	}

	var n int
	var opErr error
	err := s.loop.Do(ctx, func() {
		if ifMatch != "" {
			cur, err := s.doc.HTML()
			if err != nil {
				opErr = err
				return
			}
			if checksum.Sum([]byte(cur)) != ifMatch {
				opErr = apperr.ErrConflict
				return
			}
		}
		targets, err := s.doc.Select(selector)
		if err != nil {
			opErr = err
			return
		}
		if len(targets) == 0 {
			opErr = fmt.Errorf("%w: no element matches %q", apperr.ErrNotFound, selector)
			return
		}
		for _, t := range targets {
			if _, err := s.doc.AppendHTML(t, fragment); err != nil {
				opErr = err
				return
			}
			n++
		}
	})
	if err != nil {
		return 0, err
	}
	return n, opErr
}

// RemoveNodes detaches every element matching selector.
func (s *Service) RemoveNodes(ctx context.Context, selector string) (int, error) {
	if strings.TrimSpace(selector) == "" {
		return 0, fmt.Errorf("%w: selector is required", apperr.ErrInvalidInput)
	}
	var n int
	var opErr error
	err := s.loop.Do(ctx, func() {
		targets, err := s.doc.Select(selector)
		if err != nil {
			opErr = err
			return
		}
		for _, t := range targets {
			if t.Parent == nil || t.Type != html.ElementNode {
				continue
			}
			switch t.Data {
			case "html", "head", "body":
				continue
			}
			s.doc.RemoveChild(t.Parent, t)
			n++
		}
		if n == 0 {
			opErr = fmt.Errorf("%w: no removable element matches %q", apperr.ErrNotFound, selector)
		}
	})
	if err != nil {
		return 0, err
	}
	return n, opErr
}

// Pointer dispatches a pointer event to the first element matching the
// selector and returns how many listeners ran.
func (s *Service) Pointer(ctx context.Context, in PointerInput) (int, error) {
	var ev dom.EventType
	switch in.Event {
	case EventEnter:
		ev = dom.PointerEnter
	case EventLeave:
		ev = dom.PointerLeave
	default:
		return 0, fmt.Errorf("%w: event must be %q or %q", apperr.ErrInvalidInput, EventEnter, EventLeave)
	}

	var n int
	var opErr error
	err := s.loop.Do(ctx, func() {
		targets, err := s.doc.Select(in.Selector)
		if err != nil {
			opErr = err
			return
		}
		if len(targets) == 0 {
			opErr = fmt.Errorf("%w: no element matches %q", apperr.ErrNotFound, in.Selector)
			return
		}
		target := targets[0]
		if in.Rect != nil {
			s.layout.SetRect(target, *in.Rect)
		}
		if in.ScrollX != nil || in.ScrollY != nil {
			x, y := s.layout.ScrollOffset()
			if in.ScrollX != nil {
				x = *in.ScrollX
			}
			if in.ScrollY != nil {
				y = *in.ScrollY
			}
			s.layout.SetScroll(x, y)
		}
		n = s.doc.Dispatch(target, ev)
	})
	if err != nil {
		return 0, err
	}
	return n, opErr
}

// Reload swaps the body for the body of markup.
func (s *Service) Reload(ctx context.Context, markup []byte) error {
	var opErr error
	if err := s.loop.Do(ctx, func() { opErr = docsource.Replace(s.doc, markup) }); err != nil {
		return err
	}
	return opErr
}

// Tooltips lists attached tooltips.
func (s *Service) Tooltips(ctx context.Context) ([]models.Tooltip, error) {
	return s.session.Tooltips(ctx)
}

// Replacements lists the session's substitution history.
func (s *Service) Replacements(ctx context.Context) ([]models.Replacement, error) {
	return s.session.History(ctx)
}

// Dictionary lists the active dictionary in source order.
func (s *Service) Dictionary() []models.DictionaryEntry {
	return s.session.Dictionary().Entries()
}

// Lookup returns the dictionary entry for term.
func (s *Service) Lookup(term string) (*models.DictionaryEntry, error) {
	repl, ok := s.session.Dictionary().Lookup(term)
	if !ok {
		return nil, fmt.Errorf("%w: term %q", apperr.ErrNotFound, term)
	}
	return &models.DictionaryEntry{Term: strings.ToLower(term), Replacement: repl}, nil
}

// Rescan runs a full substitution pass now.
func (s *Service) Rescan(ctx context.Context) error {
	return s.session.Rescan(ctx)
}

// Substitute rewrites free text without touching the document.
func (s *Service) Substitute(text string) (string, []models.Replacement, error) {
	return s.session.Substitute(text)
}

// Status reports the session state.
func (s *Service) Status(ctx context.Context) (models.Status, error) {
	return s.session.Status(ctx)
}

// SetActivation stores the activation flag. It takes effect on the next
// session.
func (s *Service) SetActivation(ctx context.Context, enabled bool) error {
	return gate.SetEnabled(ctx, s.store.Area(storage.AreaSync), enabled)
}
