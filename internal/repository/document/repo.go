package document

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/lexivec/internal/db"
	"github.com/kailas-cloud/lexivec/internal/domain"
	domdoc "github.com/kailas-cloud/lexivec/internal/domain/document"
)

const keyPrefix = "doc:"

// Repo persists documents in the embedded key-value store.
type Repo struct {
	store db.KVStore
}

// New creates a document repository.
func New(store db.KVStore) *Repo {
	return &Repo{store: store}
}

func docKey(id string) string { return keyPrefix + id }

// Upsert stores the document. Returns true when the id was not present
// before.
func (r *Repo) Upsert(ctx context.Context, doc *domdoc.Document) (bool, error) {
	exists, err := r.store.Exists(ctx, docKey(doc.ID()))
	if err != nil {
		return false, fmt.Errorf("check document %q: %w", doc.ID(), err)
	}

	data, err := marshalDocument(doc)
	if err != nil {
		return false, err
	}
	if err := r.store.Set(ctx, docKey(doc.ID()), data); err != nil {
		return false, fmt.Errorf("store document %q: %w", doc.ID(), err)
	}
	return !exists, nil
}

// Get returns the document or domain.ErrDocumentNotFound.
func (r *Repo) Get(ctx context.Context, id string) (domdoc.Document, error) {
	data, err := r.store.Get(ctx, docKey(id))
	if errors.Is(err, db.ErrKeyNotFound) {
		return domdoc.Document{}, fmt.Errorf("document %q: %w", id, domain.ErrDocumentNotFound)
	}
	if err != nil {
		return domdoc.Document{}, fmt.Errorf("get document %q: %w", id, err)
	}
	return unmarshalDocument(data)
}

// GetMany fetches documents by id in one read. Missing ids are skipped
// rather than reported, since callers use this after an index lookup
// that may race a delete.
func (r *Repo) GetMany(ctx context.Context, ids []string) ([]domdoc.Document, error) {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = docKey(id)
	}
	values, err := r.store.GetMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("get documents: %w", err)
	}

	docs := make([]domdoc.Document, 0, len(values))
	for _, data := range values {
		if data == nil {
			continue
		}
		doc, err := unmarshalDocument(data)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Delete removes the document. Deleting an absent id is a no-op.
func (r *Repo) Delete(ctx context.Context, id string) error {
	if err := r.store.Del(ctx, docKey(id)); err != nil {
		return fmt.Errorf("delete document %q: %w", id, err)
	}
	return nil
}

// Count returns the number of stored documents.
func (r *Repo) Count(ctx context.Context) (int, error) {
	n, err := r.store.Count(ctx, keyPrefix)
	if err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return n, nil
}

// Walk visits every stored document. Used to rebuild the in-memory
// indices at startup.
func (r *Repo) Walk(ctx context.Context, fn func(doc domdoc.Document) error) error {
	return r.store.ScanPrefix(ctx, keyPrefix, func(_ string, value []byte) error {
		doc, err := unmarshalDocument(value)
		if err != nil {
			return err
		}
		return fn(doc)
	})
}
