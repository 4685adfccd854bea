package search

import (
	"context"
	"fmt"
	"time"

	domdoc "github.com/kailas-cloud/lexivec/internal/domain/document"
	"github.com/kailas-cloud/lexivec/internal/domain/query"
	"github.com/kailas-cloud/lexivec/internal/index/text"
	"github.com/kailas-cloud/lexivec/internal/index/vector"
)

// minCandidates is the floor on how many hits each index contributes
// to fusion, so pagination deep into small result sets stays stable.
const minCandidates = 30

// Service orchestrates hybrid search: parse, fan out to both indices,
// fuse, paginate, and assemble the response.
type Service struct {
	texts   TextSearcher
	vectors VectorSearcher
	docs    DocumentReader
	embed   Embedder
	parser  *query.Parser
}

// New creates a search service. embed may be nil, in which case every
// request runs text-only.
func New(
	texts TextSearcher, vectors VectorSearcher,
	docs DocumentReader, embed Embedder, parser *query.Parser,
) *Service {
	return &Service{texts: texts, vectors: vectors, docs: docs, embed: embed, parser: parser}
}

type textOutcome struct {
	hits []text.Hit
	err  error
}

type vectorOutcome struct {
	hits []vector.Hit
	err  error
}

// Search executes one hybrid search call.
func (s *Service) Search(ctx context.Context, raw string, opts Options) (*Response, error) {
	started := time.Now()
	opts = opts.withDefaults()

	parsed, err := s.parser.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse query: %w", err)
	}

	sctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	var (
		degraded  bool
		hybrid    bool
		queryVec  []float32
		useVector = opts.UseVector && s.embed != nil && parsed.HasVectorText()
	)

	if useVector {
		embResult, embErr := s.embed.Embed(sctx, parsed.VectorText())
		switch {
		case embErr == nil:
			queryVec = embResult.Embedding
		case opts.RequireVector:
			return nil, fmt.Errorf("vectorize query: %w", embErr)
		default:
			degraded = true
			useVector = false
		}
	}

	fetchK := (opts.Offset + opts.Limit) * 3
	if fetchK < minCandidates {
		fetchK = minCandidates
	}

	textCh := make(chan textOutcome, 1)
	vecCh := make(chan vectorOutcome, 1)

	go func() {
		hits, serr := s.texts.Search(parsed.Tokens, opts.FieldWeights, fetchK)
		textCh <- textOutcome{hits: hits, err: serr}
	}()
	if useVector {
		go func() {
			hits, serr := s.vectors.Search(queryVec, fetchK, 0)
			vecCh <- vectorOutcome{hits: hits, err: serr}
		}()
	}

	var (
		textHits  []text.Hit
		vecHits   []vector.Hit
		truncated bool
	)
	pending := 1
	if useVector {
		pending = 2
	}
	for pending > 0 && !truncated {
		select {
		case out := <-textCh:
			pending--
			if out.err != nil {
				return nil, fmt.Errorf("text search: %w", out.err)
			}
			textHits = out.hits
		case out := <-vecCh:
			pending--
			switch {
			case out.err == nil:
				vecHits = out.hits
				hybrid = true
			case opts.RequireVector:
				return nil, fmt.Errorf("vector search: %w", out.err)
			default:
				degraded = true
			}
		case <-sctx.Done():
			truncated = true
		}
	}

	scored := combine(textHits, vecHits, Weights{Vector: opts.VectorWeight, Text: opts.TextWeight}, nil)

	// Re-rank with creation times once the candidate documents are
	// loaded, so equal-score ties order newest-first.
	docs, err := s.fetchDocs(ctx, scored)
	if err != nil {
		return nil, fmt.Errorf("load documents: %w", err)
	}
	createdAt := make(map[string]time.Time, len(docs))
	for id, d := range docs {
		createdAt[id] = d.CreatedAt()
	}
	scored = combine(textHits, vecHits, Weights{Vector: opts.VectorWeight, Text: opts.TextWeight}, createdAt)

	filtered := scored[:0]
	for _, sc := range scored {
		if sc.Final >= opts.MinScore {
			filtered = append(filtered, sc)
		}
	}
	scored = filtered

	total := len(scored)
	maxScore := 0.0
	if total > 0 {
		maxScore = scored[0].Final
	}

	scored = paginate(scored, opts.Offset, opts.Limit)

	results := make([]Result, 0, len(scored))
	for _, sc := range scored {
		doc, ok := docs[sc.DocID]
		if !ok {
			// Deleted between the index read and the fetch.
			continue
		}
		results = append(results, Result{
			ID:      doc.ID(),
			Title:   doc.Title(),
			Content: doc.Content(),
			Scores: Scores{
				Text:   sc.TextScore,
				Vector: sc.VectorScore,
				Final:  sc.Final,
			},
			Metadata:   doc.Metadata(),
			Highlights: highlights(doc.Content(), parsed.Tokens),
		})
	}

	searchType := "text"
	if hybrid {
		searchType = "hybrid"
	}

	return &Response{
		QueryInfo: QueryInfo{
			Raw:          raw,
			TokenCount:   len(parsed.Tokens),
			Fields:       parsed.Fields,
			FieldWeights: opts.FieldWeights,
			VectorWeight: opts.VectorWeight,
			TextWeight:   opts.TextWeight,
		},
		Results: results,
		Analytics: Analytics{
			ExecutionTime: time.Since(started),
			TotalResults:  total,
			MaxScore:      maxScore,
			SearchType:    searchType,
			Degraded:      degraded,
			Truncated:     truncated,
		},
	}, nil
}

// fetchDocs loads every fused candidate in one read.
func (s *Service) fetchDocs(ctx context.Context, scored []Scored) (map[string]domdoc.Document, error) {
	if len(scored) == 0 {
		return nil, nil
	}
	ids := make([]string, 0, len(scored))
	for _, sc := range scored {
		ids = append(ids, sc.DocID)
	}
	fetched, err := s.docs.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[string]domdoc.Document, len(fetched))
	for _, d := range fetched {
		out[d.ID()] = d
	}
	return out, nil
}

func paginate(scored []Scored, offset, limit int) []Scored {
	if offset >= len(scored) {
		return nil
	}
	scored = scored[offset:]
	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored
}
