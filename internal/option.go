package internal

import (
	"io"
	"net/http"

	"github.com/jonboulle/clockwork"

	"github.com/starford/lexicon/internal/dictionary"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config     *Config
	version    string
	logOutput  io.Writer
	fetcher    dictionary.Fetcher
	httpClient *http.Client
	clock      clockwork.Clock
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithVersion sets the version reported to MCP clients.
func WithVersion(v string) Option {
	return func(a *application) {
		a.version = v
	}
}

// WithLogOutput redirects the JSON log. Defaults to stdout.
func WithLogOutput(w io.Writer) Option {
	return func(a *application) {
		a.logOutput = w
	}
}

// WithFetcher replaces the HTTP dictionary fetcher.
func WithFetcher(f dictionary.Fetcher) Option {
	return func(a *application) {
		a.fetcher = f
	}
}

// WithHTTPClient sets the client used for the dictionary and remote
// documents.
func WithHTTPClient(c *http.Client) Option {
	return func(a *application) {
		a.httpClient = c
	}
}

// WithClock sets the clock driving the dictionary cache and the scheduler.
func WithClock(c clockwork.Clock) Option {
	return func(a *application) {
		a.clock = c
	}
}
