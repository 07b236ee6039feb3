package schema

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// Outcome is the pass/fail verdict of a validation call.
type Outcome string

const (
	OutcomePass Outcome = "pass"
	OutcomeFail Outcome = "fail"
)

// Result is the outcome of validating one event.
type Result struct {
	Outcome Outcome

	// Failure is set when Outcome is OutcomeFail.
	Failure *ValidationError

	// Properties is the typed, default-filled copy of the input. Only set on pass.
	Properties map[string]interface{}
}

// Passed reports whether validation passed.
func (r *Result) Passed() bool {
	return r.Outcome == OutcomePass
}

func fail(err *ValidationError) *Result {
	return &Result{Outcome: OutcomeFail, Failure: err}
}

// Validator validates event properties against the registry.
type Validator struct {
	registry *Registry
	guards   *GuardRegistry
}

// NewValidator creates a validator over a registry and a guard registry.
func NewValidator(registry *Registry, guards *GuardRegistry) *Validator {
	if guards == nil {
		guards = NewGuardRegistry()
	}
	return &Validator{
		registry: registry,
		guards:   guards,
	}
}

// Validate checks properties against the schema of eventName.
//
// Client-caused failures are reported through Result.Failure. The error return
// is reserved for faults the caller cannot fix: ErrSchemaNotLoaded and
// *GuardError (including ErrGuardNotImplemented).
//
// Checks run in a fixed order and stop at the first violation: declared
// properties in declaration order, then guards in declaration order.
func (v *Validator) Validate(ctx context.Context, eventName string, properties map[string]interface{}) (*Result, error) {
	s, err := v.registry.Lookup(eventName)
	if errors.Is(err, ErrNotFound) {
		known, err := v.registry.EventNames()
		if err != nil {
			return nil, err
		}
		return fail(NewUnknownEventError(eventName, known)), nil
	}
	if err != nil {
		return nil, err
	}

	normalized := make(map[string]interface{}, len(properties)+len(s.Properties))

	// Undeclared properties pass through unchanged.
	for key, value := range properties {
		if _, declared := s.Property(key); !declared {
			normalized[key] = value
		}
	}

	for i := range s.Properties {
		p := &s.Properties[i]
		value, present := properties[p.Name]
		if present && value == nil {
			present = false
		}

		if !present {
			if p.HasDefault() {
				normalized[p.Name] = p.Default
				continue
			}
			if p.Required {
				return fail(NewRequiredPropertyError(s.Name, p.Name)), nil
			}
			continue
		}

		typed, verr := checkProperty(s.Name, p, value)
		if verr != nil {
			return fail(verr), nil
		}
		normalized[p.Name] = typed
	}

	for _, g := range s.Guards {
		ok, err := v.guards.Evaluate(ctx, g, normalized)
		if err != nil {
			return nil, &GuardError{Event: s.Name, Guard: g.Name, Err: err}
		}
		if !ok {
			return fail(NewGuardViolationError(s.Name, g)), nil
		}
	}

	return &Result{Outcome: OutcomePass, Properties: normalized}, nil
}

// CheckGuards verifies that every guard referenced by the loaded catalog has a
// registered predicate and that every cel guard compiles.
func (v *Validator) CheckGuards() error {
	schemas, err := v.registry.Schemas()
	if err != nil {
		return err
	}
	var errs []error
	for _, s := range schemas {
		for _, g := range s.Guards {
			if err := v.guards.Check(g); err != nil {
				errs = append(errs, &GuardError{Event: s.Name, Guard: g.Name, Err: err})
			}
		}
	}
	return errors.Join(errs...)
}

// checkProperty dispatches on the declared kind.
func checkProperty(event string, p *PropertyConstraint, value interface{}) (interface{}, *ValidationError) {
	typed, ok := coerce(p.Kind, value)
	if !ok {
		return nil, NewTypeMismatchError(event, p.Name, string(p.Kind), jsonTypeName(value))
	}
	if p.Kind == KindEnum && !p.allows(typed.(string)) {
		return nil, NewEnumViolationError(event, p.Name, typed.(string), p.EnumValues)
	}
	return typed, nil
}

// coerce converts value to the canonical Go representation of kind.
// Numbers normalize to float64; enums are strings.
func coerce(kind Kind, value interface{}) (interface{}, bool) {
	switch kind {
	case KindString, KindEnum:
		s, ok := value.(string)
		return s, ok
	case KindBoolean:
		b, ok := value.(bool)
		return b, ok
	case KindNumber:
		return toFloat(value)
	}
	return nil, false
}

func toFloat(value interface{}) (interface{}, bool) {
	var f float64
	switch n := value.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int8:
		f = float64(n)
	case int16:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint8:
		f = float64(n)
	case uint16:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return nil, false
		}
		f = parsed
	default:
		return nil, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, false
	}
	return f, true
}

// jsonTypeName returns a human-readable type name for JSON values.
func jsonTypeName(v interface{}) string {
	if v == nil {
		return "null"
	}
	switch v.(type) {
	case bool:
		return "boolean"
	case float64, float32, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, json.Number:
		return "number"
	case string:
		return "string"
	case []interface{}:
		return "array"
	case map[string]interface{}:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
