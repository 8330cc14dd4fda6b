// Package matcher compiles a dictionary into a single case-insensitive,
// word-bounded pattern and rewrites text through it.
package matcher

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/starford/lexicon/internal/dictionary"
)

// Matcher finds dictionary terms in text. It holds no per-call state and is
// safe for concurrent use.
type Matcher struct {
	dict *dictionary.Dictionary
	re   *regexp.Regexp
}

// Compile builds the pattern (?i)\b(t1|t2|...)\b with terms in dictionary
// order. Terms are matched literally. An empty dictionary yields a Matcher
// that never matches.
func Compile(d *dictionary.Dictionary) (*Matcher, error) {
	m := &Matcher{dict: d}
	terms := d.Terms()
	if len(terms) == 0 {
		return m, nil
	}
	quoted := make([]string, len(terms))
	for i, t := range terms {
		quoted[i] = regexp.QuoteMeta(t)
	}
	re, err := regexp.Compile(`(?i)\b(` + strings.Join(quoted, "|") + `)\b`)
	if err != nil {
		return nil, fmt.Errorf("matcher: compile %d terms: %w", len(terms), err)
	}
	m.re = re
	return m, nil
}

// MustCompile is Compile that panics on error.
func MustCompile(d *dictionary.Dictionary) *Matcher {
	m, err := Compile(d)
	if err != nil {
		panic(err)
	}
	return m
}

// Pattern returns the compiled expression, or "" for an empty dictionary.
func (m *Matcher) Pattern() string {
	if m.re == nil {
		return ""
	}
	return m.re.String()
}

// Dictionary returns the dictionary the matcher was compiled from.
func (m *Matcher) Dictionary() *dictionary.Dictionary { return m.dict }

// Match reports whether text contains at least one term.
func (m *Matcher) Match(text string) bool {
	return m.re != nil && m.re.MatchString(text)
}

// Replacement maps a matched token to its replacement, carrying an initial
// capital over. Unknown tokens are returned unchanged.
func (m *Matcher) Replacement(token string) string {
	repl, ok := m.dict.Lookup(token)
	if !ok {
		return token
	}
	first, _ := utf8.DecodeRuneInString(token)
	if first != utf8.RuneError && first == unicode.ToUpper(first) {
		return capitalize(repl)
	}
	return repl
}

// Replace rewrites every non-overlapping match left to right. onReplace, if
// non-nil, is called for each match whose replacement differs from the
// matched text.
func (m *Matcher) Replace(text string, onReplace func(original, replacement string)) string {
	if m.re == nil {
		return text
	}
	return m.re.ReplaceAllStringFunc(text, func(token string) string {
		repl := m.Replacement(token)
		if repl != token && onReplace != nil {
			onReplace(token, repl)
		}
		return repl
	})
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
