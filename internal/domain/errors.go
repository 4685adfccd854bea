package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyQuery signals an empty query string.
	ErrEmptyQuery = errors.New("empty query")
	// ErrUnclosedPhrase signals a phrase with no closing quote.
	ErrUnclosedPhrase = errors.New("unclosed phrase")
	// ErrInvalidFieldSyntax signals a malformed field-scoped token.
	ErrInvalidFieldSyntax = errors.New("invalid field syntax")

	// ErrDimensionMismatch signals an embedding of the wrong dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrWriteConflict signals a conflicting concurrent index write.
	ErrWriteConflict = errors.New("write conflict")
	// ErrCorruptPosting signals an unreadable posting list entry.
	ErrCorruptPosting = errors.New("corrupt posting")

	// ErrInvalidDocument signals a document that fails validation.
	ErrInvalidDocument = errors.New("invalid document")
	// ErrDocumentNotFound signals a missing document.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrJobNotFound signals a missing batch job.
	ErrJobNotFound = errors.New("job not found")

	// ErrEmbeddingUnavailable signals an unreachable embedding backend.
	ErrEmbeddingUnavailable = errors.New("embedding backend unavailable")
	// ErrEmbeddingTimeout signals an embedding request deadline hit.
	ErrEmbeddingTimeout = errors.New("embedding request timed out")

	// ErrSearchTimeout signals that a search exceeded its deadline.
	ErrSearchTimeout = errors.New("search timed out")
)

// UnclosedPhraseError wraps ErrUnclosedPhrase with the byte offset of the
// opening quote.
type UnclosedPhraseError struct {
	Position int
}

func (e *UnclosedPhraseError) Error() string {
	return fmt.Sprintf("%s: opening quote at position %d", ErrUnclosedPhrase.Error(), e.Position)
}

func (e *UnclosedPhraseError) Unwrap() error { return ErrUnclosedPhrase }

// NewUnclosedPhrase creates an unclosed phrase error.
func NewUnclosedPhrase(position int) error {
	return &UnclosedPhraseError{Position: position}
}

// DimensionMismatchError wraps ErrDimensionMismatch with the observed and
// expected dimensions.
type DimensionMismatchError struct {
	Got  int
	Want int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("%s: got %d, want %d", ErrDimensionMismatch.Error(), e.Got, e.Want)
}

func (e *DimensionMismatchError) Unwrap() error { return ErrDimensionMismatch }

// NewDimensionMismatch creates a dimension mismatch error.
func NewDimensionMismatch(got, want int) error {
	return &DimensionMismatchError{Got: got, Want: want}
}
