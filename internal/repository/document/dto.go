package document

import (
	"encoding/json"
	"fmt"
	"time"

	domdoc "github.com/kailas-cloud/lexivec/internal/domain/document"
)

// record is the stored JSON shape of a document.
type record struct {
	ID          string            `json:"id"`
	Title       string            `json:"title,omitempty"`
	Content     string            `json:"content"`
	ContentType string            `json:"content_type"`
	SourceType  string            `json:"source_type,omitempty"`
	Author      string            `json:"author,omitempty"`
	Language    string            `json:"language,omitempty"`
	Tags        []string          `json:"tags,omitempty"`
	Custom      map[string]string `json:"custom,omitempty"`
	Embedding   []float32         `json:"embedding,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

func marshalDocument(doc *domdoc.Document) ([]byte, error) {
	meta := doc.Metadata()
	rec := record{
		ID:          doc.ID(),
		Title:       doc.Title(),
		Content:     doc.Content(),
		ContentType: doc.ContentType(),
		SourceType:  meta.SourceType,
		Author:      meta.Author,
		Language:    meta.Language,
		Tags:        meta.Tags,
		Custom:      meta.Custom,
		Embedding:   doc.Embedding(),
		CreatedAt:   doc.CreatedAt(),
		UpdatedAt:   doc.UpdatedAt(),
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("marshal document %q: %w", doc.ID(), err)
	}
	return data, nil
}

func unmarshalDocument(data []byte) (domdoc.Document, error) {
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return domdoc.Document{}, fmt.Errorf("unmarshal document: %w", err)
	}
	meta := domdoc.Metadata{
		SourceType: rec.SourceType,
		Author:     rec.Author,
		Language:   rec.Language,
		Tags:       rec.Tags,
		Custom:     rec.Custom,
	}
	return domdoc.Reconstruct(
		rec.ID, rec.Title, rec.Content, rec.ContentType,
		meta, rec.Embedding, rec.CreatedAt, rec.UpdatedAt,
	), nil
}
