package mcpserver

// SubstitutionRules describes how Lexicon rewrites text, for LLM consumers
// that want to predict or explain a substitution.
const SubstitutionRules = `# Lexicon Substitution Rules

Lexicon rewrites the visible text of a live document using a remote dictionary
that maps terms to replacements.

## Matching

1. Terms match **whole words only**. ` + "`" + `colour` + "`" + ` matches in "my colour" but not in "colourful".
2. Matching is **case-insensitive**. ` + "`" + `COLOUR` + "`" + ` and ` + "`" + `Colour` + "`" + ` both match the term ` + "`" + `colour` + "`" + `.
3. Terms are matched **literally**. Characters such as ` + "`" + `+` + "`" + ` or ` + "`" + `.` + "`" + ` carry no pattern meaning.
4. When two terms could match at the same position, the one that appears **first in the dictionary** wins.

## Replacement

- If the matched text starts with an upper-case character, the replacement is
  capitalised. Otherwise it is used exactly as stored.
- Text inside ` + "`" + `<script>` + "`" + ` elements and inside tooltips is never rewritten.

## Provenance

- Every element whose text was rewritten gets one hidden tooltip holding the
  original text. It becomes visible while the pointer is over the element.
- Each distinct original term (compared case-insensitively) is recorded once
  per session, with the casing of its first occurrence.

## Tools

- ` + "`" + `substitute_text` + "`" + ` applies the rules to free text without touching the document.
- ` + "`" + `lookup_term` + "`" + ` returns the replacement stored for one term.
- ` + "`" + `list_replacements` + "`" + ` returns the session history.
- ` + "`" + `get_document` + "`" + ` returns the rewritten document as HTML or Markdown.
`
