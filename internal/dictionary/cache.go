package dictionary

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/starford/lexicon/internal/apperr"
	"github.com/starford/lexicon/internal/storage"
)

// DefaultTTL is how long a cached dictionary stays fresh.
const DefaultTTL = 7 * 24 * time.Hour

// Config wires a Cache to its collaborators.
type Config struct {
	// Session backs the freshness check (dictionary + dictionaryTimestamp).
	Session storage.Area
	// Sync and Local receive a copy of every fetched dictionary.
	Sync  storage.Area
	Local storage.Area

	Fetcher Fetcher
	Clock   clockwork.Clock
	TTL     time.Duration
	Logger  *slog.Logger
}

// Cache resolves the active dictionary. A failed or empty resolution is
// final for the lifetime of the Cache.
type Cache struct {
	cfg    Config
	failed error
}

// NewCache creates a Cache.
func NewCache(cfg Config) *Cache {
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Cache{cfg: cfg}
}

// Resolve returns the cached dictionary when fresh, otherwise fetches it.
// Errors wrap apperr.ErrDictionaryDisabled (the source has no record) or
// apperr.ErrDictionaryUnavailable (fetch failed); callers disable
// substitution for the session in both cases.
func (c *Cache) Resolve(ctx context.Context) (*Dictionary, error) {
	if c.failed != nil {
		return nil, c.failed
	}

	if d, ok := c.cached(ctx); ok {
		c.cfg.Logger.Debug("dictionary: using cached copy", slog.Int("terms", d.Len()))
		return d, nil
	}

	d, err := c.cfg.Fetcher.Fetch(ctx)
	if err != nil {
		c.cfg.Logger.Error("dictionary: fetch failed", slog.String("error", err.Error()))
		c.failed = fmt.Errorf("%w: %v", apperr.ErrDictionaryUnavailable, err)
		return nil, c.failed
	}
	if d == nil {
		c.cfg.Logger.Warn("dictionary: source returned no record")
		c.failed = apperr.ErrDictionaryDisabled
		return nil, c.failed
	}

	c.store(ctx, d)
	c.cfg.Logger.Info("dictionary: fetched", slog.Int("terms", d.Len()))
	return d, nil
}

// cached returns the session copy if present and not older than the TTL.
func (c *Cache) cached(ctx context.Context) (*Dictionary, bool) {
	if c.cfg.Session == nil {
		return nil, false
	}
	var stamp string
	ok, err := c.cfg.Session.Get(ctx, storage.KeyDictionaryTimestamp, &stamp)
	if err != nil {
		c.cfg.Logger.Warn("dictionary: read cache timestamp failed", slog.String("error", err.Error()))
		return nil, false
	}
	if !ok {
		return nil, false
	}
	fetchedAt, err := time.Parse(time.RFC3339Nano, stamp)
	if err != nil {
		c.cfg.Logger.Warn("dictionary: bad cache timestamp", slog.String("value", stamp))
		return nil, false
	}
	if !Fresh(fetchedAt, c.cfg.Clock.Now(), c.cfg.TTL) {
		return nil, false
	}

	d := New()
	ok, err = c.cfg.Session.Get(ctx, storage.KeyDictionary, d)
	if err != nil {
		c.cfg.Logger.Warn("dictionary: read cache failed", slog.String("error", err.Error()))
		return nil, false
	}
	return d, ok
}

// store persists a fetched dictionary. Failures are logged only.
func (c *Cache) store(ctx context.Context, d *Dictionary) {
	for name, area := range map[string]storage.Area{
		storage.AreaSync:  c.cfg.Sync,
		storage.AreaLocal: c.cfg.Local,
	} {
		if area == nil {
			continue
		}
		if err := area.Set(ctx, map[string]any{storage.KeyDictionary: d}); err != nil {
			c.cfg.Logger.Warn("dictionary: persist failed",
				slog.String("area", name), slog.String("error", err.Error()))
		}
	}
	if c.cfg.Session == nil {
		return
	}
	err := c.cfg.Session.Set(ctx, map[string]any{
		storage.KeyDictionary:          d,
		storage.KeyDictionaryTimestamp: c.cfg.Clock.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		c.cfg.Logger.Warn("dictionary: persist failed",
			slog.String("area", storage.AreaSession), slog.String("error", err.Error()))
	}
}

// Fresh reports whether a record fetched at fetchedAt is still usable at now.
func Fresh(fetchedAt, now time.Time, ttl time.Duration) bool {
	return now.Sub(fetchedAt) <= ttl
}
