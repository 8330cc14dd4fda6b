// Package gate reads the user's activation flag.
package gate

import (
	"context"
	"log/slog"

	"github.com/starford/lexicon/internal/storage"
)

// IsEnabled reports whether substitution may run. Only an explicit false
// disables it; a read failure disables it too.
func IsEnabled(ctx context.Context, area storage.Area, logger *slog.Logger) bool {
	var on bool
	ok, err := area.Get(ctx, storage.KeyEnabled, &on)
	if err != nil {
		logger.Error("gate: read activation flag failed", slog.String("error", err.Error()))
		return false
	}
	if !ok {
		return true
	}
	return on
}

// SetEnabled stores the activation flag read by the next session.
func SetEnabled(ctx context.Context, area storage.Area, on bool) error {
	return area.Set(ctx, map[string]any{storage.KeyEnabled: on})
}
