package schema

import (
	"errors"
	"fmt"
	"strings"
)

// Common errors
var (
	// ErrNotFound is returned when an event name is not in the registry.
	ErrNotFound = errors.New("event schema not found")

	// ErrSchemaNotLoaded is returned when the registry is queried before Load completed.
	ErrSchemaNotLoaded = errors.New("schema registry not loaded")

	ErrAlreadyLoaded = errors.New("schema registry already loaded")

	// ErrGuardNotImplemented is returned when a schema references a guard name
	// with no registered predicate. It is a configuration defect, not a client error.
	ErrGuardNotImplemented = errors.New("guard not implemented")
)

// ErrorKind classifies a validation failure.
type ErrorKind string

const (
	KindUnknownEvent    ErrorKind = "unknown_event"
	KindTypeMismatch    ErrorKind = "type_mismatch"
	KindEnumViolation   ErrorKind = "enum_violation"
	KindMissingRequired ErrorKind = "missing_required"
	KindGuardViolation  ErrorKind = "guard_violation"
)

// ValidationError represents a single validation failure.
type ValidationError struct {
	Kind          ErrorKind `json:"kind"`
	Event         string    `json:"event"`
	Message       string    `json:"message"`
	Property      string    `json:"property,omitempty"`
	ExpectedType  string    `json:"expected_type,omitempty"`
	ActualType    string    `json:"actual_type,omitempty"`
	AllowedValues []string  `json:"allowed_values,omitempty"`
	KnownEvents   []string  `json:"known_events,omitempty"`
	Guard         string    `json:"guard,omitempty"`
}

func (e *ValidationError) Error() string {
	if e.Property != "" {
		return fmt.Sprintf("property '%s': %s (event %s)", e.Property, e.Message, e.Event)
	}
	return fmt.Sprintf("%s (event %s)", e.Message, e.Event)
}

// NewUnknownEventError creates an error for an event name missing from the registry.
func NewUnknownEventError(event string, known []string) *ValidationError {
	return &ValidationError{
		Kind:        KindUnknownEvent,
		Event:       event,
		Message:     fmt.Sprintf("unknown event %q, known events: %s", event, strings.Join(known, ", ")),
		KnownEvents: known,
	}
}

// NewTypeMismatchError creates an error for type mismatches.
func NewTypeMismatchError(event, property, expected, actual string) *ValidationError {
	return &ValidationError{
		Kind:         KindTypeMismatch,
		Event:        event,
		Property:     property,
		Message:      fmt.Sprintf("expected %s, got %s", expected, actual),
		ExpectedType: expected,
		ActualType:   actual,
	}
}

// NewEnumViolationError creates an error for a value outside the declared enum.
func NewEnumViolationError(event, property, value string, allowed []string) *ValidationError {
	return &ValidationError{
		Kind:          KindEnumViolation,
		Event:         event,
		Property:      property,
		Message:       fmt.Sprintf("value %q not in allowed values [%s]", value, strings.Join(allowed, ", ")),
		AllowedValues: append([]string(nil), allowed...),
	}
}

// NewRequiredPropertyError creates an error for missing required properties.
func NewRequiredPropertyError(event, property string) *ValidationError {
	return &ValidationError{
		Kind:     KindMissingRequired,
		Event:    event,
		Property: property,
		Message:  "required property is missing",
	}
}

// NewGuardViolationError creates an error for a guard that evaluated to false.
func NewGuardViolationError(event string, g Guard) *ValidationError {
	msg := g.Message
	if msg == "" {
		msg = fmt.Sprintf("guard %s failed", g.Name)
	}
	return &ValidationError{
		Kind:     KindGuardViolation,
		Event:    event,
		Property: g.Property,
		Message:  msg,
		Guard:    g.Name,
	}
}

// GuardError reports a guard that could not be evaluated. It wraps
// ErrGuardNotImplemented when the guard name is unknown.
type GuardError struct {
	Event string
	Guard string
	Err   error
}

func (e *GuardError) Error() string {
	return fmt.Sprintf("guard %q on event %q: %v", e.Guard, e.Event, e.Err)
}

func (e *GuardError) Unwrap() error {
	return e.Err
}
