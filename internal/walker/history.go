package walker

import (
	"strings"

	"github.com/starford/lexicon/internal/models"
)

// History is the append-only provenance log of a session. Each original term
// is recorded once, under the first casing seen.
type History struct {
	records []models.Replacement
	seen    map[string]struct{}
	order   []string
}

// NewHistory returns an empty history.
func NewHistory() *History {
	return &History{seen: make(map[string]struct{})}
}

// Add records original unless its lower-case form is already known. It
// reports whether a record was appended.
func (h *History) Add(original, replacement string) bool {
	key := strings.ToLower(original)
	if _, ok := h.seen[key]; ok {
		return false
	}
	h.seen[key] = struct{}{}
	h.order = append(h.order, key)
	h.records = append(h.records, models.Replacement{Original: original, Replacement: replacement})
	return true
}

// Len returns the number of records.
func (h *History) Len() int { return len(h.records) }

// Records returns a copy of the records in insertion order.
func (h *History) Records() []models.Replacement {
	return append([]models.Replacement(nil), h.records...)
}

// Seen returns the lower-case originals in insertion order.
func (h *History) Seen() []string {
	return append([]string(nil), h.order...)
}
