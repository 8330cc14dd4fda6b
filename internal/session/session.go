// Package session runs the substitution engine for one document: it checks
// activation, resolves the dictionary, performs the initial scan and keeps
// the document rewritten as it changes.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/starford/lexicon/internal/apperr"
	"github.com/starford/lexicon/internal/dictionary"
	"github.com/starford/lexicon/internal/dom"
	"github.com/starford/lexicon/internal/eventloop"
	"github.com/starford/lexicon/internal/gate"
	"github.com/starford/lexicon/internal/matcher"
	"github.com/starford/lexicon/internal/metrics"
	"github.com/starford/lexicon/internal/models"
	"github.com/starford/lexicon/internal/scheduler"
	"github.com/starford/lexicon/internal/storage"
	"github.com/starford/lexicon/internal/tooltip"
	"github.com/starford/lexicon/internal/walker"
)

// Options tunes the engine.
type Options struct {
	DictionaryTTL  time.Duration
	QuietPeriod    time.Duration
	DebounceWindow time.Duration
	// InitialScan rewrites the document once as soon as the dictionary is
	// ready, before any mutation is observed.
	InitialScan bool
}

// DefaultOptions returns the standard timings with the initial scan on.
func DefaultOptions() Options {
	return Options{
		DictionaryTTL:  dictionary.DefaultTTL,
		QuietPeriod:    scheduler.DefaultQuietPeriod,
		DebounceWindow: scheduler.DefaultDebounceWindow,
		InitialScan:    true,
	}
}

// Deps are the collaborators of a session. Doc must only be touched from
// Loop.
type Deps struct {
	Doc     *dom.Document
	Layout  dom.Layout
	Loop    *eventloop.Loop
	Storage storage.Provider
	Fetcher dictionary.Fetcher
	Clock   clockwork.Clock
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	Options Options

	// OnScan is called on the loop after every scan.
	OnScan func(models.ScanSummary)
}

// Session is the state of one run of the engine. Fields below deps are owned
// by the loop goroutine.
type Session struct {
	id   string
	deps Deps
	ctx  context.Context
	stop context.CancelFunc

	dict    *dictionary.Dictionary
	matcher *matcher.Matcher
	err     error

	tips     *tooltip.Attacher
	walker   *walker.Walker
	sched    *scheduler.Scheduler
	observer *dom.Observer
}

// Start runs the startup pipeline. A session that cannot substitute is still
// returned; Err reports why. Start only fails when the loop is unusable.
func Start(ctx context.Context, deps Deps) (*Session, error) {
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	runCtx, stop := context.WithCancel(context.Background())
	s := &Session{
		id:   uuid.NewString(),
		deps: deps,
		ctx:  runCtx,
		stop: stop,
	}
	logger := deps.Logger.With(slog.String("session", s.id))
	s.deps.Logger = logger

	if !gate.IsEnabled(ctx, deps.Storage.Area(storage.AreaSync), logger) {
		s.disable(fmt.Errorf("%w: turned off by user", apperr.ErrDisabled))
		return s, nil
	}

	cache := dictionary.NewCache(dictionary.Config{
		Session: deps.Storage.Area(storage.AreaSession),
		Sync:    deps.Storage.Area(storage.AreaSync),
		Local:   deps.Storage.Area(storage.AreaLocal),
		Fetcher: deps.Fetcher,
		Clock:   deps.Clock,
		TTL:     deps.Options.DictionaryTTL,
		Logger:  logger,
	})
	dict, err := cache.Resolve(ctx)
	if err != nil {
		s.disable(fmt.Errorf("%w: %w", apperr.ErrDisabled, err))
		return s, nil
	}
	m, err := matcher.Compile(dict)
	if err != nil {
		s.disable(fmt.Errorf("%w: %w", apperr.ErrDisabled, err))
		return s, nil
	}
	s.dict, s.matcher = dict, m

	if err := deps.Loop.Do(ctx, s.install); err != nil {
		stop()
		return nil, fmt.Errorf("session: install: %w", err)
	}
	logger.Info("session: started", slog.Int("terms", dict.Len()))
	return s, nil
}

func (s *Session) disable(err error) {
	s.err = err
	s.deps.Logger.Warn("session: substitution disabled", slog.String("reason", err.Error()))
}

// install runs on the loop. No mutation is observed before the initial scan.
func (s *Session) install() {
	d := s.deps
	s.tips = tooltip.New(d.Doc, d.Layout)
	s.walker = walker.New(walker.Config{
		Doc:      d.Doc,
		Matcher:  s.matcher,
		Tooltips: s.tips,
		Local:    d.Storage.Area(storage.AreaLocal),
		Clock:    d.Clock,
		Logger:   d.Logger,
	})
	s.sched = scheduler.New(scheduler.Config{
		QuietPeriod:    d.Options.QuietPeriod,
		DebounceWindow: d.Options.DebounceWindow,
		Clock:          d.Clock,
		Post:           d.Loop.Post,
		Scan:           s.scan,
		Logger:         d.Logger,
	})
	if d.Options.InitialScan {
		s.sched.RunNow(scheduler.TriggerInitial)
	}
	target := d.Doc.Body()
	if target == nil {
		target = d.Doc.Root()
	}
	s.observer = d.Doc.Observe(target, dom.ObserveOptions{ChildList: true, Subtree: true}, s.onMutations)
}

// onMutations ignores batches that only insert tooltips; the scan that
// attached them already covered the document.
func (s *Session) onMutations(batch []dom.Record) {
	decision := scheduler.Ignored
	if !tooltip.OnlyTooltipsAdded(batch) {
		decision = s.sched.Observe(batch)
	}
	s.deps.Metrics.ObserveBatch(string(decision))
	s.deps.Logger.Debug("session: mutation batch",
		slog.Int("records", len(batch)),
		slog.Int("added", dom.AddedNodes(batch)),
		slog.String("decision", string(decision)))
}

func (s *Session) scan(trigger string) {
	res, err := s.walker.Scan(s.ctx)
	if err != nil {
		s.deps.Logger.Warn("session: scan finished with error",
			slog.String("trigger", trigger), slog.String("error", err.Error()))
	}
	s.deps.Metrics.ObserveScan(trigger, res.Replacements, s.tips.Len(), res.Duration)

	summary := models.ScanSummary{
		Trigger:      trigger,
		Candidates:   res.Candidates,
		Modified:     res.Modified,
		Replacements: res.Replacements,
		NewRecords:   res.NewRecords,
		Duration:     res.Duration,
		At:           s.deps.Clock.Now(),
	}
	s.deps.Logger.Debug("session: scan",
		slog.String("trigger", trigger),
		slog.Int("candidates", res.Candidates),
		slog.Int("modified", res.Modified),
		slog.Duration("duration", res.Duration))
	if s.deps.OnScan != nil {
		s.deps.OnScan(summary)
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Err returns the reason the session is inert, wrapping apperr.ErrDisabled,
// or nil for an active session.
func (s *Session) Err() error { return s.err }

// Enabled reports whether the session substitutes text.
func (s *Session) Enabled() bool { return s.err == nil }

// Dictionary returns the active dictionary, or nil when inert.
func (s *Session) Dictionary() *dictionary.Dictionary { return s.dict }

// Substitute rewrites text with the session's matcher without touching the
// document or its history.
func (s *Session) Substitute(text string) (string, []models.Replacement, error) {
	if s.err != nil {
		return "", nil, s.err
	}
	var found []models.Replacement
	out := s.matcher.Replace(text, func(orig, repl string) {
		found = append(found, models.Replacement{Original: orig, Replacement: repl})
	})
	return out, found, nil
}

// Status reports counters and scheduler state.
func (s *Session) Status(ctx context.Context) (models.Status, error) {
	st := models.Status{
		SessionID:      s.id,
		Enabled:        s.Enabled(),
		DictionarySize: s.dict.Len(),
		Scheduler:      scheduler.Idle.String(),
	}
	if s.err != nil {
		st.Reason = s.err.Error()
		return st, nil
	}
	err := s.deps.Loop.Do(ctx, func() {
		st.Scans = s.sched.Runs()
		st.Scheduler = s.sched.State().String()
		st.LastRun = s.sched.LastRun()
		st.Tooltips = s.tips.Len()
		st.Replacements = s.walker.History().Len()
	})
	return st, err
}

// History returns the substitutions recorded so far.
func (s *Session) History(ctx context.Context) ([]models.Replacement, error) {
	if s.err != nil {
		return []models.Replacement{}, nil
	}
	var out []models.Replacement
	err := s.deps.Loop.Do(ctx, func() { out = s.walker.History().Records() })
	if out == nil {
		out = []models.Replacement{}
	}
	return out, err
}

// Tooltips lists the tooltips attached to the document.
func (s *Session) Tooltips(ctx context.Context) ([]models.Tooltip, error) {
	if s.err != nil {
		return []models.Tooltip{}, nil
	}
	var out []models.Tooltip
	err := s.deps.Loop.Do(ctx, func() { out = s.tips.List() })
	return out, err
}

// Rescan runs a full pass now, bypassing the scheduler's timing.
func (s *Session) Rescan(ctx context.Context) error {
	if s.err != nil {
		return s.err
	}
	return s.deps.Loop.Do(ctx, func() { s.sched.RunNow(scheduler.TriggerManual) })
}

// Close stops observing the document and cancels any pending scan.
func (s *Session) Close(ctx context.Context) error {
	s.stop()
	if s.err != nil {
		return nil
	}
	return s.deps.Loop.Do(ctx, func() {
		s.observer.Disconnect()
		s.sched.Stop()
	})
}
