package yaml

import (
	"fmt"
	"strings"

	"github.com/aevon-lab/trackgate/internal/schema"
	"gopkg.in/yaml.v3"
)

// CatalogVersion is the only catalog document version understood by this compiler.
const CatalogVersion = 1

// CatalogSpec is one catalog document as produced by the schema generator.
//
//	version: 1
//	events:
//	  user_signed_up:
//	    description: A new account was created
//	    properties:
//	      email: string!
//	      plan:
//	        type: enum!
//	        values: [free, starter, growth]
//	      source: string
//	    guards:
//	      - name: email
//	        property: email
//	        message: email must be a valid address
type CatalogSpec struct {
	Version int       `yaml:"version"`
	Events  EventList `yaml:"events"`
}

// EventList keeps events in document order.
type EventList []*EventSpec

// EventSpec declares one event.
type EventSpec struct {
	Name        string       `yaml:"-"`
	Description string       `yaml:"description,omitempty"`
	Properties  PropertyList `yaml:"properties"`
	Guards      []GuardSpec  `yaml:"guards,omitempty"`
}

// PropertyList keeps properties in declaration order.
type PropertyList []*Property

// Property declares a single event property.
//
// Properties support two declaration styles:
//
//	Shorthand (scalar): email: string!
//	Long form (mapping): plan:
//	                       type: enum!
//	                       values: [free, starter, growth]
//	                       default: free
//
// Type names: string, number, boolean (alias bool), enum.
// Append "!" to mark a property as required.
type Property struct {
	Name string `yaml:"-"`

	// Type is the user-facing type name, possibly with a "!" suffix.
	Type string `yaml:"type"`

	// Kind is the internal kind derived from Type.
	Kind schema.Kind `yaml:"-"`

	// Required is set by the "!" suffix, or explicitly via "required: true" in long form.
	Required bool `yaml:"required,omitempty"`

	Default interface{} `yaml:"default,omitempty"`
	Values  []string    `yaml:"values,omitempty"`
}

// GuardSpec declares a named predicate.
type GuardSpec struct {
	Name     string                 `yaml:"name"`
	Message  string                 `yaml:"message"`
	Property string                 `yaml:"property,omitempty"`
	Expr     string                 `yaml:"expr,omitempty"`
	Params   map[string]interface{} `yaml:"params,omitempty"`
}

// UnmarshalYAML decodes the events mapping preserving key order.
func (l *EventList) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: events must be a mapping of event name to definition", value.Line)
	}
	out := make(EventList, 0, len(value.Content)/2)
	for i := 0; i+1 < len(value.Content); i += 2 {
		key, body := value.Content[i], value.Content[i+1]
		var ev EventSpec
		if err := body.Decode(&ev); err != nil {
			return fmt.Errorf("event %q: %w", key.Value, err)
		}
		ev.Name = key.Value
		out = append(out, &ev)
	}
	*l = out
	return nil
}

// UnmarshalYAML decodes the properties mapping preserving key order.
func (l *PropertyList) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: properties must be a mapping", value.Line)
	}
	out := make(PropertyList, 0, len(value.Content)/2)
	for i := 0; i+1 < len(value.Content); i += 2 {
		key, body := value.Content[i], value.Content[i+1]
		var p Property
		if err := body.Decode(&p); err != nil {
			return fmt.Errorf("property %q: %w", key.Value, err)
		}
		p.Name = key.Value
		out = append(out, &p)
	}
	*l = out
	return nil
}

// UnmarshalYAML implements custom unmarshaling to support both shorthand
// and long-form property declarations.
func (p *Property) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		return p.parseTypeString(value.Value)
	}

	// Long form: decode struct fields via alias (avoids infinite recursion),
	// then normalize the type string.
	type propertyAlias Property
	var alias propertyAlias
	if err := value.Decode(&alias); err != nil {
		return err
	}
	*p = Property(alias)

	if p.Type == "" {
		return fmt.Errorf("property missing 'type'")
	}
	return p.parseTypeString(p.Type)
}

// parseTypeString parses a user-facing type name like "string!" and sets
// Kind and (if "!" is present) Required on the receiver.
func (p *Property) parseTypeString(s string) error {
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, "!") {
		p.Required = true
		s = strings.TrimSuffix(s, "!")
	}

	switch s {
	case "string":
		p.Kind = schema.KindString
	case "number":
		p.Kind = schema.KindNumber
	case "boolean", "bool":
		p.Kind = schema.KindBoolean
	case "enum":
		p.Kind = schema.KindEnum
	default:
		return fmt.Errorf("unsupported type %q (must be: string, number, boolean, enum)", s)
	}
	return nil
}

// Validate checks if the catalog is structurally valid.
// This is called during compilation to catch definition errors.
func (c *CatalogSpec) Validate() error {
	if c.Version != CatalogVersion {
		return fmt.Errorf("unsupported catalog version %d (expected %d)", c.Version, CatalogVersion)
	}
	if len(c.Events) == 0 {
		return fmt.Errorf("catalog must define at least one event")
	}

	seen := make(map[string]bool, len(c.Events))
	for _, ev := range c.Events {
		if seen[ev.Name] {
			return fmt.Errorf("event %q declared twice", ev.Name)
		}
		seen[ev.Name] = true
		if err := ev.Validate(); err != nil {
			return fmt.Errorf("event %q: %w", ev.Name, err)
		}
	}
	return nil
}

// Validate checks a single event declaration.
func (e *EventSpec) Validate() error {
	if strings.TrimSpace(e.Name) == "" {
		return fmt.Errorf("event name cannot be empty")
	}
	for _, p := range e.Properties {
		if p == nil {
			return fmt.Errorf("property type cannot be empty")
		}
		if p.Kind == schema.KindEnum && len(p.Values) == 0 {
			return fmt.Errorf("property %q: enum requires long form with 'values'", p.Name)
		}
		if p.Kind != schema.KindEnum && len(p.Values) > 0 {
			return fmt.Errorf("property %q: 'values' is only allowed on enum properties", p.Name)
		}
	}
	for i, g := range e.Guards {
		if g.Name == "" {
			return fmt.Errorf("guard %d: name is required", i)
		}
	}
	return nil
}

// ToSchema converts the declaration into the runtime schema.
func (e *EventSpec) ToSchema() *schema.EventSchema {
	s := &schema.EventSchema{
		Name:        e.Name,
		Description: e.Description,
		Properties:  make([]schema.PropertyConstraint, 0, len(e.Properties)),
	}
	for _, p := range e.Properties {
		s.Properties = append(s.Properties, schema.PropertyConstraint{
			Name:       p.Name,
			Kind:       p.Kind,
			Required:   p.Required,
			Default:    p.Default,
			EnumValues: append([]string(nil), p.Values...),
		})
	}
	for _, g := range e.Guards {
		s.Guards = append(s.Guards, schema.Guard{
			Name:     g.Name,
			Message:  g.Message,
			Property: g.Property,
			Expr:     g.Expr,
			Params:   g.Params,
		})
	}
	return s
}
