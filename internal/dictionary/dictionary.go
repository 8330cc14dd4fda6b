// Package dictionary holds the term mapping and resolves it from a
// time-bounded cache or the remote source.
package dictionary

import (
	"encoding/json"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/starford/lexicon/internal/models"
)

// Dictionary maps lowercase terms to replacements, in source order. The
// order matters: it is the alternation order of the compiled pattern.
type Dictionary struct {
	m *orderedmap.OrderedMap[string, string]
}

// New returns an empty dictionary.
func New() *Dictionary {
	return &Dictionary{m: orderedmap.New[string, string]()}
}

// Of builds a dictionary from alternating term, replacement arguments.
func Of(pairs ...string) *Dictionary {
	d := New()
	for i := 0; i+1 < len(pairs); i += 2 {
		d.m.Set(pairs[i], pairs[i+1])
	}
	return d
}

// Len returns the number of terms.
func (d *Dictionary) Len() int {
	if d == nil || d.m == nil {
		return 0
	}
	return d.m.Len()
}

// Lookup returns the replacement for token, folding it to lower case first.
func (d *Dictionary) Lookup(token string) (string, bool) {
	if d.Len() == 0 {
		return "", false
	}
	return d.m.Get(strings.ToLower(token))
}

// Terms returns the keys in source order.
func (d *Dictionary) Terms() []string {
	out := make([]string, 0, d.Len())
	if d.Len() == 0 {
		return out
	}
	for p := d.m.Oldest(); p != nil; p = p.Next() {
		out = append(out, p.Key)
	}
	return out
}

// Entries returns the mapping in source order.
func (d *Dictionary) Entries() []models.DictionaryEntry {
	out := make([]models.DictionaryEntry, 0, d.Len())
	if d.Len() == 0 {
		return out
	}
	for p := d.m.Oldest(); p != nil; p = p.Next() {
		out = append(out, models.DictionaryEntry{Term: p.Key, Replacement: p.Value})
	}
	return out
}

// MarshalJSON encodes the dictionary as a JSON object preserving order.
func (d *Dictionary) MarshalJSON() ([]byte, error) {
	if d == nil || d.m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(d.m)
}

// UnmarshalJSON decodes a JSON object, keeping key order.
func (d *Dictionary) UnmarshalJSON(data []byte) error {
	m := orderedmap.New[string, string]()
	if err := json.Unmarshal(data, m); err != nil {
		return err
	}
	d.m = m
	return nil
}
