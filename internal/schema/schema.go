package schema

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Kind is the declared type of an event property.
type Kind string

const (
	KindString  Kind = "string"
	KindNumber  Kind = "number"
	KindBoolean Kind = "boolean"
	KindEnum    Kind = "enum"
)

// Format represents the format of a schema source document.
type Format string

const (
	FormatYaml Format = "yaml"
	FormatJSON Format = "json"
)

// EventSchema describes the expected shape of one named event.
// Instances are built once at load time and never modified afterwards.
type EventSchema struct {
	// Name is the unique event name (e.g., "user_signed_up").
	Name string `json:"name"`

	// Description is free text copied from the catalog.
	Description string `json:"description,omitempty"`

	// Properties are the declared properties in declaration order.
	Properties []PropertyConstraint `json:"properties"`

	// Guards are business-rule predicates evaluated after type checks, in order.
	Guards []Guard `json:"guards,omitempty"`
}

// PropertyConstraint constrains a single event property.
type PropertyConstraint struct {
	Name     string `json:"name"`
	Kind     Kind   `json:"kind"`
	Required bool   `json:"required"`

	// Default is injected when the property is absent. Nil means no default.
	Default interface{} `json:"default,omitempty"`

	// EnumValues lists the allowed values when Kind is KindEnum.
	EnumValues []string `json:"enum_values,omitempty"`
}

// HasDefault reports whether a default value is declared.
func (p *PropertyConstraint) HasDefault() bool {
	return p.Default != nil
}

// Guard is the declarative description of a named predicate. The predicate
// implementation is resolved by Name from a GuardRegistry at validation time.
type Guard struct {
	Name     string                 `json:"name"`
	Message  string                 `json:"message"`
	Property string                 `json:"property,omitempty"`
	Expr     string                 `json:"expr,omitempty"`
	Params   map[string]interface{} `json:"params,omitempty"`
}

// Property returns the constraint for the named property.
func (s *EventSchema) Property(name string) (*PropertyConstraint, bool) {
	for i := range s.Properties {
		if s.Properties[i].Name == name {
			return &s.Properties[i], true
		}
	}
	return nil, false
}

// Check verifies the structural invariants of a compiled schema.
func (s *EventSchema) Check() error {
	if s.Name == "" {
		return fmt.Errorf("event name is required")
	}

	seen := make(map[string]bool, len(s.Properties))
	for i := range s.Properties {
		p := &s.Properties[i]
		if p.Name == "" {
			return fmt.Errorf("property %d: name is required", i)
		}
		if seen[p.Name] {
			return fmt.Errorf("property %q declared twice", p.Name)
		}
		seen[p.Name] = true
		if err := p.Check(); err != nil {
			return fmt.Errorf("property %q: %w", p.Name, err)
		}
	}

	for i, g := range s.Guards {
		if g.Name == "" {
			return fmt.Errorf("guard %d: name is required", i)
		}
		if g.Property != "" && !seen[g.Property] {
			return fmt.Errorf("guard %q targets undeclared property %q", g.Name, g.Property)
		}
	}
	return nil
}

// Check verifies kind, enum and default consistency.
func (p *PropertyConstraint) Check() error {
	switch p.Kind {
	case KindString, KindNumber, KindBoolean:
		if len(p.EnumValues) > 0 {
			return fmt.Errorf("enum values are only allowed on enum properties")
		}
	case KindEnum:
		if len(p.EnumValues) == 0 {
			return fmt.Errorf("enum property requires at least one value")
		}
	default:
		return fmt.Errorf("unsupported kind %q (must be: string, number, boolean, enum)", p.Kind)
	}

	if !p.HasDefault() {
		return nil
	}
	normalized, ok := coerce(p.Kind, p.Default)
	if !ok {
		return fmt.Errorf("default %v is not a valid %s", p.Default, p.Kind)
	}
	if p.Kind == KindEnum && !p.allows(normalized.(string)) {
		return fmt.Errorf("default %q is not one of %v", normalized, p.EnumValues)
	}
	p.Default = normalized
	return nil
}

func (p *PropertyConstraint) allows(value string) bool {
	for _, v := range p.EnumValues {
		if v == value {
			return true
		}
	}
	return false
}

// ComputeFingerprint calculates SHA-256 hash of a source document.
func ComputeFingerprint(definition []byte) string {
	hash := sha256.Sum256(definition)
	return hex.EncodeToString(hash[:])
}
