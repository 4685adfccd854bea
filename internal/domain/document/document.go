package document

import (
	"fmt"
	"strings"
	"time"

	"github.com/kailas-cloud/lexivec/internal/domain"
)

// MaxContentSize is the maximum document content size in bytes.
const MaxContentSize = 1 << 20 // 1MB

// Metadata holds descriptive document attributes.
type Metadata struct {
	SourceType string
	Author     string
	Language   string
	Tags       []string
	Custom     map[string]string
}

// Document is the document aggregate (immutable value object).
// If an embedding is set, its length matches the engine's vector dimension;
// the vector index enforces this on upsert.
type Document struct {
	id          string
	title       string
	content     string
	contentType string
	metadata    Metadata
	embedding   []float32
	createdAt   time.Time
	updatedAt   time.Time
}

// New validates and creates a Document.
// ID: non-empty, max 256 chars. Content: non-empty, max 1MB.
func New(id, title, content, contentType string, meta Metadata) (Document, error) {
	if id == "" {
		return Document{}, fmt.Errorf("%w: document ID is required", domain.ErrInvalidDocument)
	}
	if len(id) > 256 {
		return Document{}, fmt.Errorf("%w: document ID too long (max 256)", domain.ErrInvalidDocument)
	}
	if content == "" {
		return Document{}, fmt.Errorf("%w: content is required", domain.ErrInvalidDocument)
	}
	if len(content) > MaxContentSize {
		return Document{}, fmt.Errorf("%w: content too large (max %d bytes)", domain.ErrInvalidDocument, MaxContentSize)
	}
	if contentType == "" {
		contentType = "text/plain"
	}

	now := time.Now().UTC()
	return Document{
		id:          id,
		title:       title,
		content:     content,
		contentType: contentType,
		metadata:    cloneMetadata(meta),
		createdAt:   now,
		updatedAt:   now,
	}, nil
}

// Reconstruct creates a Document without validation (storage hydration).
func Reconstruct(
	id, title, content, contentType string, meta Metadata,
	embedding []float32, createdAt, updatedAt time.Time,
) Document {
	return Document{
		id: id, title: title, content: content, contentType: contentType,
		metadata: meta, embedding: embedding,
		createdAt: createdAt, updatedAt: updatedAt,
	}
}

// ID returns the document identifier.
func (d *Document) ID() string { return d.id }

// Title returns the document title.
func (d *Document) Title() string { return d.title }

// Content returns the plain-text content.
func (d *Document) Content() string { return d.content }

// ContentType returns the declared content type.
func (d *Document) ContentType() string { return d.contentType }

// Metadata returns the document metadata.
func (d *Document) Metadata() Metadata { return d.metadata }

// Embedding returns the embedding vector, nil when not yet generated.
func (d *Document) Embedding() []float32 { return d.embedding }

// CreatedAt returns the creation timestamp.
func (d *Document) CreatedAt() time.Time { return d.createdAt }

// UpdatedAt returns the last modification timestamp.
func (d *Document) UpdatedAt() time.Time { return d.updatedAt }

// WordCount returns the number of whitespace-separated words in content.
func (d *Document) WordCount() int { return len(strings.Fields(d.content)) }

// SetEmbedding sets the embedding vector in place (mutation).
func (d *Document) SetEmbedding(v []float32) { d.embedding = v }

// Touch updates the modification timestamp, preserving createdAt across
// re-ingestion of the same id.
func (d *Document) Touch(createdAt time.Time) {
	if !createdAt.IsZero() {
		d.createdAt = createdAt
	}
	d.updatedAt = time.Now().UTC()
}

// FieldTexts returns the per-field text map consumed by the text index.
func (d *Document) FieldTexts() map[string]string {
	return map[string]string{
		"title":   d.title,
		"content": d.content,
		"tags":    strings.Join(d.metadata.Tags, " "),
	}
}

func cloneMetadata(m Metadata) Metadata {
	c := m
	if m.Tags != nil {
		c.Tags = append([]string(nil), m.Tags...)
	}
	if m.Custom != nil {
		c.Custom = make(map[string]string, len(m.Custom))
		for k, v := range m.Custom {
			c.Custom[k] = v
		}
	}
	return c
}
