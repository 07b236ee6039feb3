package yaml

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/aevon-lab/trackgate/internal/schema"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

const catalogSchemaURL = "https://trackgate.schemas.local/catalog.schema.json"

//go:embed catalog.schema.json
var catalogSchema []byte

var (
	metaOnce   sync.Once
	metaSchema *jsonschema.Schema
	metaErr    error
)

func compiledMetaSchema() (*jsonschema.Schema, error) {
	metaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		if err := c.AddResource(catalogSchemaURL, bytes.NewReader(catalogSchema)); err != nil {
			metaErr = fmt.Errorf("catalog meta-schema load failed: %w", err)
			return
		}
		metaSchema, metaErr = c.Compile(catalogSchemaURL)
	})
	return metaSchema, metaErr
}

// Compiler compiles YAML (and JSON, which is a YAML subset) catalog documents.
type Compiler struct{}

// NewCompiler creates a new catalog compiler.
func NewCompiler() *Compiler {
	return &Compiler{}
}

// Compile checks the document against the catalog meta-schema, parses it and
// returns its events in declaration order.
func (c *Compiler) Compile(ctx context.Context, doc schema.Document) ([]*schema.EventSchema, error) {
	if doc.Format != schema.FormatYaml && doc.Format != schema.FormatJSON {
		return nil, fmt.Errorf("expected yaml or json format, got %s", doc.Format)
	}

	if err := checkMetaSchema(doc.Content); err != nil {
		return nil, err
	}

	var spec CatalogSpec
	if err := yaml.Unmarshal(doc.Content, &spec); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}

	schemas := make([]*schema.EventSchema, 0, len(spec.Events))
	for _, ev := range spec.Events {
		s := ev.ToSchema()
		if err := s.Check(); err != nil {
			return nil, fmt.Errorf("invalid catalog: event %q: %w", ev.Name, err)
		}
		schemas = append(schemas, s)
	}
	return schemas, nil
}

// checkMetaSchema validates the raw document structure. The document is decoded
// generically and round-tripped through JSON so the validator sees JSON types.
func checkMetaSchema(content []byte) error {
	meta, err := compiledMetaSchema()
	if err != nil {
		return err
	}

	var raw interface{}
	if err := yaml.Unmarshal(content, &raw); err != nil {
		return fmt.Errorf("failed to parse catalog: %w", err)
	}
	asJSON, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("catalog is not JSON-compatible: %w", err)
	}
	var doc interface{}
	if err := json.Unmarshal(asJSON, &doc); err != nil {
		return fmt.Errorf("catalog is not JSON-compatible: %w", err)
	}
	if err := meta.Validate(doc); err != nil {
		return fmt.Errorf("catalog does not match meta-schema: %w", err)
	}
	return nil
}
