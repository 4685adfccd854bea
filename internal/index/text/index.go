// Package text implements the lexical half of the engine: a per-field
// inverted index with positional postings and BM25 scoring.
package text

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/kailas-cloud/lexivec/internal/domain"
	"github.com/kailas-cloud/lexivec/internal/domain/query"
)

// Default BM25 parameters.
const (
	DefaultK1 = 1.2
	DefaultB  = 0.75
)

// Hit is one lexical search candidate.
type Hit struct {
	DocID string
	Score float64
}

// posting records a term's occurrences within one document field.
type posting struct {
	freq      int
	positions []int
}

// fieldIndex holds the postings for a single document field.
type fieldIndex struct {
	terms    map[string]map[string]*posting // term -> docID -> posting
	docLens  map[string]int                 // docID -> analyzed token count
	totalLen int
}

func newFieldIndex() *fieldIndex {
	return &fieldIndex{
		terms:   make(map[string]map[string]*posting),
		docLens: make(map[string]int),
	}
}

// Index is the inverted lexical index. A single reader/writer lock guards all
// postings: writers serialize with each other, readers observe a consistent
// snapshot and never a partially applied document.
type Index struct {
	mu     sync.RWMutex
	fields map[string]*fieldIndex
	docs   map[string]struct{}
	an     analyzer
	k1, b  float64
}

// NewIndex creates an empty text index with default BM25 parameters.
func NewIndex() *Index {
	return &Index{
		fields: make(map[string]*fieldIndex),
		docs:   make(map[string]struct{}),
		k1:     DefaultK1,
		b:      DefaultB,
	}
}

// WithBM25 overrides the BM25 tuning parameters.
func (ix *Index) WithBM25(k1, b float64) *Index {
	if k1 > 0 {
		ix.k1 = k1
	}
	if b > 0 {
		ix.b = b
	}
	return ix
}

// Index tokenizes the given field texts and replaces the document's postings
// atomically: old postings are removed and new ones inserted under one write
// lock, so no reader observes a half-updated document.
func (ix *Index) Index(docID string, fieldTexts map[string]string) error {
	if docID == "" {
		return fmt.Errorf("text index: document ID is required")
	}

	// Analyze outside the lock.
	analyzed := make(map[string][]string, len(fieldTexts))
	for field, text := range fieldTexts {
		analyzed[field] = ix.an.Analyze(text)
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	ix.removeLocked(docID)

	for field, terms := range analyzed {
		if len(terms) == 0 {
			continue
		}
		fi := ix.fields[field]
		if fi == nil {
			fi = newFieldIndex()
			ix.fields[field] = fi
		}
		for pos, term := range terms {
			docPostings := fi.terms[term]
			if docPostings == nil {
				docPostings = make(map[string]*posting)
				fi.terms[term] = docPostings
			}
			p := docPostings[docID]
			if p == nil {
				p = &posting{}
				docPostings[docID] = p
			}
			p.freq++
			p.positions = append(p.positions, pos)
		}
		fi.docLens[docID] = len(terms)
		fi.totalLen += len(terms)
	}
	ix.docs[docID] = struct{}{}

	return nil
}

// Delete removes all postings for the document. Deleting an unknown id is a
// no-op, not an error.
func (ix *Index) Delete(docID string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.removeLocked(docID)
	return nil
}

// removeLocked strips a document from every field. Caller holds the write lock.
func (ix *Index) removeLocked(docID string) {
	if _, ok := ix.docs[docID]; !ok {
		return
	}
	for _, fi := range ix.fields {
		if length, ok := fi.docLens[docID]; ok {
			fi.totalLen -= length
			delete(fi.docLens, docID)
		}
		for term, docPostings := range fi.terms {
			if _, ok := docPostings[docID]; ok {
				delete(docPostings, docID)
				if len(docPostings) == 0 {
					delete(fi.terms, term)
				}
			}
		}
	}
	delete(ix.docs, docID)
}

// DocCount returns the number of indexed documents.
func (ix *Index) DocCount() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.docs)
}

// occur classifies a clause's contribution to the boolean evaluation.
type occur int

const (
	occurMust occur = iota
	occurShould
	occurNot
)

type clause struct {
	tok   query.Token
	occur occur
}

// buildClauses flattens the token stream into clauses. Modifiers bind to the
// token that follows them; Or additionally downgrades the preceding clause
// from must to should, making the adjacent pair alternative. There is no
// grouping beyond that pairing.
func buildClauses(tokens []query.Token) []clause {
	clauses := make([]clause, 0, len(tokens))
	next := occurMust
	for _, t := range tokens {
		switch t.Kind {
		case query.And:
			next = occurMust
		case query.Not:
			next = occurNot
		case query.Or:
			if n := len(clauses); n > 0 && clauses[n-1].occur == occurMust {
				clauses[n-1].occur = occurShould
			}
			next = occurShould
		default:
			clauses = append(clauses, clause{tok: t, occur: next})
			next = occurMust
		}
	}
	return clauses
}

// Search evaluates the parsed tokens against the index and returns up to
// limit candidates ordered by descending BM25 score (ties broken by doc id
// for determinism; cross-index ties are resolved later by the combiner).
// Unmodified tokens are conjunctive; Or pairs are alternative; Not excludes.
func (ix *Index) Search(tokens []query.Token, fieldWeights map[string]float64, limit int) ([]Hit, error) {
	clauses := buildClauses(tokens)
	if len(clauses) == 0 {
		return nil, nil
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	var (
		musts, shoulds, nots []map[string]float64
	)
	for _, c := range clauses {
		scores, constrained := ix.matchToken(c.tok, "", fieldWeights)
		if !constrained {
			continue // stop-word-only token, no constraint
		}
		switch c.occur {
		case occurMust:
			musts = append(musts, scores)
		case occurShould:
			shoulds = append(shoulds, scores)
		case occurNot:
			nots = append(nots, scores)
		}
	}

	candidates := intersect(musts)
	if candidates == nil && len(shoulds) > 0 {
		candidates = union(shoulds)
	} else if len(shoulds) > 0 {
		applyShoulds(candidates, shoulds)
	}

	for _, excluded := range nots {
		for docID := range excluded {
			delete(candidates, docID)
		}
	}

	hits := make([]Hit, 0, len(candidates))
	for docID, score := range candidates {
		if _, ok := ix.docs[docID]; !ok {
			return nil, fmt.Errorf("posting references unknown document %q: %w", docID, domain.ErrCorruptPosting)
		}
		hits = append(hits, Hit{DocID: docID, Score: score})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].DocID < hits[j].DocID
	})
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}

	return hits, nil
}

// intersect returns documents present in every map with summed scores, or nil
// when the input is empty.
func intersect(sets []map[string]float64) map[string]float64 {
	if len(sets) == 0 {
		return nil
	}
	out := make(map[string]float64, len(sets[0]))
	for docID, score := range sets[0] {
		out[docID] = score
	}
	for _, set := range sets[1:] {
		for docID := range out {
			score, ok := set[docID]
			if !ok {
				delete(out, docID)
				continue
			}
			out[docID] += score
		}
	}
	return out
}

// union merges score maps, summing overlapping documents.
func union(sets []map[string]float64) map[string]float64 {
	out := make(map[string]float64)
	for _, set := range sets {
		for docID, score := range set {
			out[docID] += score
		}
	}
	return out
}

// applyShoulds keeps only candidates matching at least one should clause and
// credits the matching scores.
func applyShoulds(candidates map[string]float64, shoulds []map[string]float64) {
	for docID := range candidates {
		matched := false
		for _, set := range shoulds {
			if score, ok := set[docID]; ok {
				candidates[docID] += score
				matched = true
			}
		}
		if !matched {
			delete(candidates, docID)
		}
	}
}

// matchToken scores a single token across fields. fieldFilter restricts the
// evaluation to one field (field-scoped tokens); "" means all fields. The
// second return is false when the token imposes no constraint (e.g. a term
// that analyzes away entirely).
func (ix *Index) matchToken(tok query.Token, fieldFilter string, weights map[string]float64) (map[string]float64, bool) {
	if tok.Kind == query.FieldScoped {
		if tok.Inner == nil {
			return nil, false
		}
		return ix.matchToken(*tok.Inner, tok.Field, weights)
	}

	// Normalize the payload once. A token whose text analyzes away entirely
	// (e.g. a lone stop word) imposes no constraint and must not shrink the
	// conjunction.
	var phraseTerms []string
	var needle string
	switch tok.Kind {
	case query.Term:
		needle = ix.an.AnalyzeTerm(tok.Text)
	case query.Phrase:
		phraseTerms = ix.an.Analyze(tok.Text)
	case query.Wildcard, query.Fuzzy:
		needle = ix.an.Normalize(tok.Text)
	default:
		return nil, false
	}
	if needle == "" && len(phraseTerms) == 0 {
		return nil, false
	}

	scores := make(map[string]float64)
	for name, fi := range ix.fields {
		if fieldFilter != "" && name != fieldFilter {
			continue
		}
		weight := 1.0
		if w, ok := weights[name]; ok {
			weight = w
		}

		var fieldScores map[string]float64
		switch tok.Kind {
		case query.Term:
			fieldScores = ix.scoreTerm(fi, needle)
		case query.Phrase:
			fieldScores = ix.scorePhrase(fi, phraseTerms)
		case query.Wildcard:
			fieldScores = ix.scoreWildcard(fi, needle)
		case query.Fuzzy:
			fieldScores = ix.scoreFuzzy(fi, needle, tok.Distance)
		}

		for docID, s := range fieldScores {
			scores[docID] += s * weight
		}
	}

	return scores, true
}

// scoreTerm computes BM25 for one exact term within a field.
func (ix *Index) scoreTerm(fi *fieldIndex, term string) map[string]float64 {
	docPostings := fi.terms[term]
	if len(docPostings) == 0 {
		return nil
	}
	idf := ix.idf(fi, len(docPostings))
	out := make(map[string]float64, len(docPostings))
	for docID, p := range docPostings {
		out[docID] = idf * ix.tfNorm(fi, docID, p.freq)
	}
	return out
}

// scorePhrase requires every phrase term to appear with contiguous positions
// within the same field.
func (ix *Index) scorePhrase(fi *fieldIndex, terms []string) map[string]float64 {
	if len(terms) == 1 {
		return ix.scoreTerm(fi, terms[0])
	}

	postingsPerTerm := make([]map[string]*posting, len(terms))
	for i, term := range terms {
		docPostings := fi.terms[term]
		if len(docPostings) == 0 {
			return nil
		}
		postingsPerTerm[i] = docPostings
	}

	out := make(map[string]float64)
	for docID, first := range postingsPerTerm[0] {
		occurrences := 0
		for _, start := range first.positions {
			if ix.phraseAt(postingsPerTerm, docID, start) {
				occurrences++
			}
		}
		if occurrences == 0 {
			continue
		}
		var score float64
		for i := range terms {
			idf := ix.idf(fi, len(postingsPerTerm[i]))
			score += idf * ix.tfNorm(fi, docID, occurrences)
		}
		out[docID] = score
	}
	return out
}

// phraseAt checks that terms[1:] appear at start+1, start+2, ... in docID.
func (ix *Index) phraseAt(postingsPerTerm []map[string]*posting, docID string, start int) bool {
	for offset := 1; offset < len(postingsPerTerm); offset++ {
		p, ok := postingsPerTerm[offset][docID]
		if !ok {
			return false
		}
		want := start + offset
		found := false
		for _, pos := range p.positions {
			if pos == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// scoreWildcard sums BM25 over every vocabulary term satisfying the glob.
func (ix *Index) scoreWildcard(fi *fieldIndex, pattern string) map[string]float64 {
	out := make(map[string]float64)
	for term := range fi.terms {
		if !globMatch(pattern, term) {
			continue
		}
		for docID, s := range ix.scoreTerm(fi, term) {
			out[docID] += s
		}
	}
	return out
}

// scoreFuzzy sums BM25 over vocabulary terms within the edit distance,
// discounted by how far each match is from the query term.
func (ix *Index) scoreFuzzy(fi *fieldIndex, prefix string, maxDist int) map[string]float64 {
	out := make(map[string]float64)
	for term := range fi.terms {
		d := editDistance(prefix, term, maxDist)
		if d > maxDist {
			continue
		}
		discount := 1.0 / float64(1+d)
		for docID, s := range ix.scoreTerm(fi, term) {
			out[docID] += s * discount
		}
	}
	return out
}

// idf is the BM25 inverse document frequency for a field-local df.
func (ix *Index) idf(fi *fieldIndex, df int) float64 {
	n := float64(len(fi.docLens))
	return math.Log(1 + (n-float64(df)+0.5)/(float64(df)+0.5))
}

// tfNorm is the BM25 term-frequency normalization for one document field.
func (ix *Index) tfNorm(fi *fieldIndex, docID string, tf int) float64 {
	avgLen := float64(fi.totalLen) / float64(len(fi.docLens))
	docLen := float64(fi.docLens[docID])
	f := float64(tf)
	return f * (ix.k1 + 1) / (f + ix.k1*(1-ix.b+ix.b*docLen/avgLen))
}
