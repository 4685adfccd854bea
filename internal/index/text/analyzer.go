package text

import "strings"

// Common English stop words, excluded from postings and analyzed queries.
var stopWords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "by": true, "for": true, "from": true, "has": true, "he": true,
	"in": true, "is": true, "it": true, "its": true, "of": true, "on": true,
	"that": true, "the": true, "to": true, "was": true, "were": true, "will": true,
	"with": true, "this": true, "but": true, "they": true, "have": true,
	"had": true, "what": true, "when": true, "where": true, "who": true,
	"which": true, "why": true, "how": true, "not": true, "no": true, "nor": true,
	"so": true, "than": true, "too": true, "very": true, "can": true, "do": true,
	"does": true, "did": true,
}

const punctuation = ".,!?()[]{}:;\"'"

// analyzer normalizes text into index terms: lowercase, punctuation trim,
// stop-word removal, light suffix stemming. Query terms run through the same
// pipeline so postings and lookups agree.
type analyzer struct{}

// Analyze splits text into normalized terms. Positions in the returned slice
// are the positions recorded in postings, so phrase adjacency is evaluated in
// analyzed space.
func (analyzer) Analyze(text string) []string {
	words := strings.Fields(strings.ToLower(text))
	terms := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.Trim(w, punctuation)
		if w == "" || stopWords[w] {
			continue
		}
		terms = append(terms, stem(w))
	}
	return terms
}

// AnalyzeTerm normalizes a single query term. Returns "" when the term is
// empty or a stop word after normalization.
func (a analyzer) AnalyzeTerm(word string) string {
	terms := a.Analyze(word)
	if len(terms) == 0 {
		return ""
	}
	return terms[0]
}

// Normalize lowercases and trims a word without stemming, for wildcard and
// fuzzy matching where the raw surface form matters.
func (analyzer) Normalize(word string) string {
	return strings.Trim(strings.ToLower(word), punctuation)
}

// stem applies a small Porter-style suffix stripper.
func stem(word string) string {
	if len(word) < 3 {
		return word
	}

	switch {
	case strings.HasSuffix(word, "sses"):
		word = word[:len(word)-2]
	case strings.HasSuffix(word, "ies"):
		word = word[:len(word)-2]
	case strings.HasSuffix(word, "ss"):
		// keep
	case strings.HasSuffix(word, "s"):
		word = word[:len(word)-1]
	}

	switch {
	case strings.HasSuffix(word, "eed"):
		word = word[:len(word)-1]
	case strings.HasSuffix(word, "ed") && len(word) > 4:
		word = word[:len(word)-2]
	case strings.HasSuffix(word, "ing") && len(word) > 5:
		word = word[:len(word)-3]
	}

	switch {
	case strings.HasSuffix(word, "ization"):
		word = word[:len(word)-5] + "ize"
	case strings.HasSuffix(word, "ational"):
		word = word[:len(word)-5] + "ate"
	case strings.HasSuffix(word, "fulness"):
		word = word[:len(word)-4]
	case strings.HasSuffix(word, "ousness"):
		word = word[:len(word)-4]
	case strings.HasSuffix(word, "iveness"):
		word = word[:len(word)-4]
	}

	return word
}
