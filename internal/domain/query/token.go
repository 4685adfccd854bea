package query

import "strings"

// Kind discriminates query token variants.
type Kind string

// Token kind constants.
const (
	// Term matches a single analyzed term.
	Term Kind = "term"
	// Phrase matches contiguous terms in order.
	Phrase Kind = "phrase"
	// Wildcard matches any term satisfying a glob pattern.
	Wildcard Kind = "wildcard"
	// Fuzzy matches terms within an edit distance.
	Fuzzy Kind = "fuzzy"
	// FieldScoped restricts the inner token to one named field.
	FieldScoped Kind = "field"

	// And requires the following token to match.
	And Kind = "and"
	// Or makes the adjacent pair alternative.
	Or Kind = "or"
	// Not excludes documents matching the following token.
	Not Kind = "not"
)

// Token is one element of a parsed query. Text holds the term, phrase,
// wildcard pattern, or fuzzy prefix depending on Kind. Modifier tokens
// (And/Or/Not) carry no payload and bind to the token that follows them.
type Token struct {
	Kind     Kind
	Text     string
	Distance int    // fuzzy only
	Field    string // field-scoped only
	Inner    *Token // field-scoped only
}

// IsModifier reports whether the token is And, Or, or Not.
func (t Token) IsModifier() bool {
	return t.Kind == And || t.Kind == Or || t.Kind == Not
}

// ParsedQuery is the ordered token sequence plus the set of field names the
// query references. Immutable once built.
type ParsedQuery struct {
	Tokens []Token
	Fields []string
}

// HasVectorText reports whether the query carries any literal text usable for
// embedding (terms and phrases; wildcards and fuzzy prefixes are included
// since their prefixes still carry meaning).
func (q ParsedQuery) HasVectorText() bool {
	return q.VectorText() != ""
}

// VectorText flattens the query into plain text for embedding. Modifier
// tokens and negated payloads are dropped and wildcard stars stripped;
// everything else keeps its literal text.
func (q ParsedQuery) VectorText() string {
	var b strings.Builder
	negated := false
	for _, t := range q.Tokens {
		if t.Kind == Not {
			negated = true
			continue
		}
		if t.IsModifier() {
			continue
		}
		if negated {
			negated = false
			continue
		}
		part := vectorPart(t)
		if part == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(part)
	}
	return b.String()
}

func vectorPart(t Token) string {
	switch t.Kind {
	case Term, Phrase, Fuzzy:
		return t.Text
	case Wildcard:
		return strings.ReplaceAll(t.Text, "*", "")
	case FieldScoped:
		if t.Inner != nil {
			return vectorPart(*t.Inner)
		}
	}
	return ""
}
