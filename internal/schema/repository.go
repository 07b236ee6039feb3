package schema

import (
	"context"
)

// Document is one raw catalog document produced by the external schema generator.
type Document struct {
	// Name identifies the document in errors and logs (usually the file path).
	Name    string
	Format  Format
	Content []byte
}

// Fingerprint returns the SHA-256 of the document content.
func (d Document) Fingerprint() string {
	return ComputeFingerprint(d.Content)
}

// Source defines where catalog documents are read from.
type Source interface {
	// Documents returns every catalog document in a stable order.
	// Registration order of events follows this order.
	Documents(ctx context.Context) ([]Document, error)
}
