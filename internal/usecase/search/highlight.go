package search

import (
	"strings"

	"github.com/kailas-cloud/lexivec/internal/domain/query"
)

// highlightWindow is how many characters of context surround a match.
const highlightWindow = 40

// highlights extracts short content windows around literal matches of
// term and phrase tokens. Only literal case-insensitive occurrences
// count; stemming and fuzzy matches produce no highlight.
func highlights(content string, tokens []query.Token) []string {
	if content == "" {
		return nil
	}

	lower := strings.ToLower(content)
	var out []string
	seen := make(map[string]struct{})

	for _, tok := range tokens {
		needle := literalNeedle(tok)
		if needle == "" {
			continue
		}
		idx := strings.Index(lower, strings.ToLower(needle))
		if idx < 0 {
			continue
		}
		win := window(content, idx, len(needle))
		if _, dup := seen[win]; dup {
			continue
		}
		seen[win] = struct{}{}
		out = append(out, win)
	}
	return out
}

// literalNeedle returns the literal text a token must match for a
// highlight, or "" when the token kind has no literal form.
func literalNeedle(tok query.Token) string {
	switch tok.Kind {
	case query.Term, query.Phrase:
		return tok.Text
	case query.FieldScoped:
		if tok.Inner != nil {
			return literalNeedle(*tok.Inner)
		}
	}
	return ""
}

// window slices content around a match, widening to whitespace so the
// snippet never cuts a word (or a multi-byte rune) in half.
func window(content string, idx, matchLen int) string {
	start := idx - highlightWindow
	if start < 0 {
		start = 0
	}
	end := idx + matchLen + highlightWindow
	if end > len(content) {
		end = len(content)
	}
	for start > 0 && !isBoundary(content[start]) {
		start--
	}
	for end < len(content) && !isBoundary(content[end]) {
		end++
	}
	return strings.TrimSpace(content[start:end])
}

func isBoundary(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n'
}
