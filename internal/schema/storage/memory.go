package storage

import (
	"context"
	"sync"

	"github.com/aevon-lab/trackgate/internal/schema"
)

// MemorySource is an in-memory implementation of schema.Source.
// Useful for testing and for embedding a catalog in a binary.
type MemorySource struct {
	mu   sync.RWMutex
	docs []schema.Document
}

// NewMemorySource creates a source over the given documents.
func NewMemorySource(docs ...schema.Document) *MemorySource {
	return &MemorySource{docs: docs}
}

// Add appends a document.
func (s *MemorySource) Add(doc schema.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.docs = append(s.docs, doc)
}

// Documents returns copies of the documents in insertion order.
func (s *MemorySource) Documents(ctx context.Context) ([]schema.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]schema.Document, len(s.docs))
	for i, d := range s.docs {
		d.Content = append([]byte(nil), d.Content...)
		out[i] = d
	}
	return out, nil
}
