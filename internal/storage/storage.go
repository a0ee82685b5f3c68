// Package storage defines the persistence interface for parsed documents and
// comparison results, keyed by content hash so repeated runs over the same
// inputs skip the expensive extraction and matching calls.
package storage

import (
	"context"
	"errors"

	"github.com/ciridae/scopematch/internal/models"
)

// ErrNotFound is returned by Get operations when no cached entry exists.
// Callers treat it as a cache miss, not a failure.
type ErrNotFound struct {
	Key string
}

func (e *ErrNotFound) Error() string {
	return "not found: " + e.Key
}

// Storage persists pipeline outputs keyed by input content.
type Storage interface {
	// Parsed document cache, keyed by document content hash and source.
	PutParsedDocument(ctx context.Context, docHash string, doc *models.ParsedDocument) error
	GetParsedDocument(ctx context.Context, docHash, source string) (*models.ParsedDocument, error)

	// Comparison cache, keyed by the hash of the document pair.
	PutComparison(ctx context.Context, pairHash string, result *models.ComparisonResult) error
	GetComparison(ctx context.Context, pairHash string) (*models.ComparisonResult, error)

	Close() error
}

// IsNotFound reports whether err is a cache miss.
func IsNotFound(err error) bool {
	var nf *ErrNotFound
	return errors.As(err, &nf)
}
