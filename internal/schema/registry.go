package schema

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
)

// catalog is the immutable snapshot published by Load.
type catalog struct {
	byName map[string]*EventSchema
	order  []string
}

// Registry maps event names to their schemas. It is loaded exactly once and
// read-only afterwards, so lookups take no locks.
type Registry struct {
	current atomic.Pointer[catalog]
	loading atomic.Bool
}

// NewRegistry creates an empty registry. Queries fail with ErrSchemaNotLoaded
// until Load returns successfully.
func NewRegistry() *Registry {
	return &Registry{}
}

// NewRegistryFromSchemas creates a registry that is already loaded with the
// given schemas, in registration order.
func NewRegistryFromSchemas(schemas ...*EventSchema) (*Registry, error) {
	r := NewRegistry()
	if err := r.publish(schemas); err != nil {
		return nil, err
	}
	return r, nil
}

// Load reads every document from the source, compiles it with the matching
// format compiler and publishes the result. Load is synchronous; it must
// complete before traffic is accepted.
func (r *Registry) Load(ctx context.Context, source Source, formats *FormatRegistry) error {
	if !r.loading.CompareAndSwap(false, true) {
		return ErrAlreadyLoaded
	}

	docs, err := source.Documents(ctx)
	if err != nil {
		r.loading.Store(false)
		return fmt.Errorf("read schema source: %w", err)
	}

	for _, doc := range docs {
		if !formats.IsFormatSupported(doc.Format) {
			r.loading.Store(false)
			return fmt.Errorf("%s: unsupported schema format %s (supported: %s)", doc.Name, doc.Format, joinFormats(formats.SupportedFormats()))
		}
	}

	var schemas []*EventSchema
	for _, doc := range docs {
		compiler, err := formats.GetCompiler(doc.Format)
		if err != nil {
			r.loading.Store(false)
			return fmt.Errorf("%s: %w", doc.Name, err)
		}
		compiled, err := compiler.Compile(ctx, doc)
		if err != nil {
			r.loading.Store(false)
			return fmt.Errorf("%s: %w", doc.Name, err)
		}
		slog.Debug("Compiled schema document", "document", doc.Name, "events", len(compiled), "fingerprint", doc.Fingerprint())
		schemas = append(schemas, compiled...)
	}

	if err := r.publish(schemas); err != nil {
		r.loading.Store(false)
		return err
	}

	slog.Info("Schema registry loaded", "documents", len(docs), "events", len(schemas))
	return nil
}

func (r *Registry) publish(schemas []*EventSchema) error {
	c := &catalog{
		byName: make(map[string]*EventSchema, len(schemas)),
		order:  make([]string, 0, len(schemas)),
	}
	for _, s := range schemas {
		if s == nil {
			continue
		}
		if err := s.Check(); err != nil {
			return fmt.Errorf("event %q: %w", s.Name, err)
		}
		if _, exists := c.byName[s.Name]; exists {
			return fmt.Errorf("event %q declared more than once", s.Name)
		}
		c.byName[s.Name] = s
		c.order = append(c.order, s.Name)
	}

	if !r.current.CompareAndSwap(nil, c) {
		return ErrAlreadyLoaded
	}
	r.loading.Store(true)
	return nil
}

// Loaded reports whether the registry has been loaded.
func (r *Registry) Loaded() bool {
	return r.current.Load() != nil
}

// Lookup returns the schema for an event name.
// Returns ErrNotFound for unknown names and ErrSchemaNotLoaded before Load.
func (r *Registry) Lookup(eventName string) (*EventSchema, error) {
	c := r.current.Load()
	if c == nil {
		return nil, ErrSchemaNotLoaded
	}
	s, ok := c.byName[eventName]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// EventNames returns all event names in registration order.
func (r *Registry) EventNames() ([]string, error) {
	c := r.current.Load()
	if c == nil {
		return nil, ErrSchemaNotLoaded
	}
	return append([]string(nil), c.order...), nil
}

// Schemas returns all schemas in registration order.
func (r *Registry) Schemas() ([]*EventSchema, error) {
	c := r.current.Load()
	if c == nil {
		return nil, ErrSchemaNotLoaded
	}
	out := make([]*EventSchema, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.byName[name])
	}
	return out, nil
}

// Len returns the number of registered events, or 0 before Load.
func (r *Registry) Len() int {
	c := r.current.Load()
	if c == nil {
		return 0
	}
	return len(c.order)
}
