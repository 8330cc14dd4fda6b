package internal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/starford/lexicon/internal/dictionary"
	"github.com/starford/lexicon/internal/docservice"
	"github.com/starford/lexicon/internal/docsource"
	"github.com/starford/lexicon/internal/dom"
	"github.com/starford/lexicon/internal/eventloop"
	"github.com/starford/lexicon/internal/metrics"
	"github.com/starford/lexicon/internal/session"
	"github.com/starford/lexicon/internal/sse"
	"github.com/starford/lexicon/internal/storage"
)

// docThrottle limits document.updated events per client.
const docThrottle = 2 * time.Second

// engine is everything one run of the application owns.
type engine struct {
	logger  *slog.Logger
	store   storage.Provider
	loop    *eventloop.Loop
	doc     *dom.Document
	session *session.Session
	svc     *docservice.Service
	broker  *sse.Broker
	metrics *metrics.Metrics
}

func newApplication(opts []Option) (*application, error) {
	app := &application{version: "dev", logOutput: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

func (a *application) newLogger() *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(a.logOutput, &slog.HandlerOptions{
		Level: a.config.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

func openStorage(cfg StorageConfig) (storage.Provider, error) {
	var durable storage.Provider
	switch cfg.Backend {
	case StorageBackendFS:
		if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
		fs, err := storage.NewFS(cfg.Path)
		if err != nil {
			return nil, err
		}
		durable = fs
	default:
		db, err := storage.Open(cfg.Path)
		if err != nil {
			return nil, err
		}
		durable = db
	}
	if cfg.PersistSession {
		return durable, nil
	}
	return storage.NewScoped(durable, nil), nil
}

// start loads the document, resolves the dictionary and starts the session.
// The returned engine must be closed.
func (a *application) start(ctx context.Context, logger *slog.Logger) (*engine, error) {
	cfg := a.config

	store, err := openStorage(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	markup, err := docsource.Read(ctx, cfg.Document.Source, a.httpClient)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("load document: %w", err)
	}

	loop := eventloop.New()
	doc, err := dom.Parse(bytes.NewReader(markup), dom.WithScheduler(func(fn func()) { loop.Post(fn) }))
	if err != nil {
		loop.Close()
		store.Close()
		return nil, fmt.Errorf("parse document: %w", err)
	}
	layout := dom.NewStaticLayout(cfg.Tooltip.Height)

	fetcher := a.fetcher
	if fetcher == nil {
		var fopts []dictionary.FetcherOption
		if a.httpClient != nil {
			fopts = append(fopts, dictionary.WithHTTPClient(a.httpClient))
		}
		fetcher = dictionary.NewHTTPFetcher(cfg.Dictionary.URL, cfg.Dictionary.AccessKey, cfg.Dictionary.Timeout, fopts...)
	}

	m := metrics.New()
	broker := sse.NewBroker(docThrottle)

	sess, err := session.Start(ctx, session.Deps{
		Doc:     doc,
		Layout:  layout,
		Loop:    loop,
		Storage: store,
		Fetcher: fetcher,
		Clock:   a.clock,
		Logger:  logger,
		Metrics: m,
		Options: session.Options{
			DictionaryTTL:  cfg.Dictionary.TTL,
			QuietPeriod:    cfg.Scheduler.QuietPeriod,
			DebounceWindow: cfg.Scheduler.DebounceWindow,
			InitialScan:    cfg.Scheduler.InitialScan,
		},
		OnScan: broker.PublishScan,
	})
	if err != nil {
		broker.Close()
		loop.Close()
		store.Close()
		return nil, err
	}

	var svcOpts []docservice.Option
	if cfg.Document.SanitizeFragments {
		svcOpts = append(svcOpts, docservice.WithSanitizer(bluemonday.UGCPolicy()))
	}

	return &engine{
		logger:  logger,
		store:   store,
		loop:    loop,
		doc:     doc,
		session: sess,
		svc:     docservice.New(loop, doc, layout, sess, store, svcOpts...),
		broker:  broker,
		metrics: m,
	}, nil
}

func (e *engine) close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := e.session.Close(ctx)
	e.broker.Close()
	e.loop.Close()
	return errors.Join(err, e.store.Close())
}
