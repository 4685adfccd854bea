// Package query parses raw query strings into structured token sequences.
//
// The grammar is a flat left-to-right scan: whitespace separates tokens,
// double quotes delimit phrases, and the modifiers +, |, - bind to the token
// immediately following them. There is no grouping and no precedence beyond
// "binds to next token".
package query

import (
	"strconv"
	"strings"

	"github.com/kailas-cloud/lexivec/internal/domain"
)

// DefaultFuzzyDistance is the edit distance used when a fuzzy token has no
// parseable integer suffix.
const DefaultFuzzyDistance = 2

// Parser turns raw query strings into ParsedQuery values. It is stateless and
// safe for concurrent use.
type Parser struct {
	fuzzyDistance int
}

// NewParser creates a parser with the default fuzzy distance.
func NewParser() *Parser {
	return &Parser{fuzzyDistance: DefaultFuzzyDistance}
}

// WithFuzzyDistance overrides the default fuzzy edit distance.
func (p *Parser) WithFuzzyDistance(d int) *Parser {
	if d > 0 {
		p.fuzzyDistance = d
	}
	return p
}

// Parse scans the raw query into an ordered token sequence. It is a pure
// function of its input: the same query always yields the same ParsedQuery.
func (p *Parser) Parse(raw string) (ParsedQuery, error) {
	if strings.TrimSpace(raw) == "" {
		return ParsedQuery{}, domain.ErrEmptyQuery
	}

	var (
		tokens []Token
		fields []string
	)

	runes := []rune(raw)
	i := 0
	for i < len(runes) {
		switch c := runes[i]; {
		case c == ' ' || c == '\t' || c == '\n':
			i++
		case c == '"':
			phrase, next, err := scanPhrase(runes, i)
			if err != nil {
				return ParsedQuery{}, err
			}
			tokens = append(tokens, Token{Kind: Phrase, Text: phrase})
			i = next
		case c == '+':
			tokens = append(tokens, Token{Kind: And})
			i++
		case c == '|':
			tokens = append(tokens, Token{Kind: Or})
			i++
		case c == '-':
			tokens = append(tokens, Token{Kind: Not})
			i++
		default:
			word, next := scanWord(runes, i)
			i = next
			if i < len(runes) && runes[i] == ':' {
				// Only a plain term names a field; a glob or fuzzy
				// word keeps the colon and stays a single token.
				if word != "" && p.classify(word).Kind == Term {
					i++ // consume ':'
					inner, innerNext, err := p.scanInner(runes, i)
					if err != nil {
						return ParsedQuery{}, err
					}
					i = innerNext
					fields = append(fields, word)
					tokens = append(tokens, Token{
						Kind:  FieldScoped,
						Field: word,
						Inner: &inner,
					})
					continue
				}
				rest, restNext := scanWord(runes, i+1)
				word = word + ":" + rest
				i = restNext
			}
			tokens = append(tokens, p.classify(word))
		}
	}

	return ParsedQuery{Tokens: tokens, Fields: fields}, nil
}

// scanInner parses the single token following a "field:" prefix. A missing or
// immediately-terminated inner token is a syntax error.
func (p *Parser) scanInner(runes []rune, i int) (Token, int, error) {
	if i >= len(runes) {
		return Token{}, i, domain.ErrInvalidFieldSyntax
	}
	if runes[i] == '"' {
		phrase, next, err := scanPhrase(runes, i)
		if err != nil {
			return Token{}, i, err
		}
		return Token{Kind: Phrase, Text: phrase}, next, nil
	}
	word, next := scanWord(runes, i)
	if word == "" {
		return Token{}, i, domain.ErrInvalidFieldSyntax
	}
	return p.classify(word), next, nil
}

// classify decides whether a bare word is a term, wildcard, or fuzzy token.
func (p *Parser) classify(word string) Token {
	if strings.ContainsRune(word, '*') {
		return Token{Kind: Wildcard, Text: word}
	}
	if prefix, suffix, ok := strings.Cut(word, "~"); ok {
		distance := p.fuzzyDistance
		if d, err := strconv.Atoi(suffix); err == nil && d >= 0 {
			distance = d
		}
		return Token{Kind: Fuzzy, Text: prefix, Distance: distance}
	}
	return Token{Kind: Term, Text: word}
}

// scanPhrase consumes a quoted phrase starting at the opening quote and
// returns the inner text and the index past the closing quote.
func scanPhrase(runes []rune, start int) (string, int, error) {
	var sb strings.Builder
	for i := start + 1; i < len(runes); i++ {
		if runes[i] == '"' {
			return sb.String(), i + 1, nil
		}
		sb.WriteRune(runes[i])
	}
	return "", start, domain.NewUnclosedPhrase(start)
}

// scanWord consumes a run of non-separator characters.
func scanWord(runes []rune, start int) (string, int) {
	i := start
	for i < len(runes) {
		switch runes[i] {
		case ' ', '\t', '\n', '"', '+', '|', '-', ':':
			return string(runes[start:i]), i
		}
		i++
	}
	return string(runes[start:i]), i
}
