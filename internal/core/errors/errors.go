package errors

// Error kinds as they appear on the wire.
const (
	KindParseFailed            = "parse_failed"
	KindUnknownEvent           = "unknown_event"
	KindTypeMismatch           = "type_mismatch"
	KindEnumViolation          = "enum_violation"
	KindMissingRequired        = "missing_required"
	KindGuardViolation         = "guard_violation"
	KindGuardNotImplemented    = "guard_not_implemented"
	KindProviderTransportError = "provider_transport_error"
	KindProviderTimeout        = "provider_timeout"
	KindInternalFault          = "internal_fault"
	KindSchemaNotLoaded        = "schema_not_loaded"
	KindRateLimited            = "rate_limited"
	KindPayloadTooLarge        = "payload_too_large"
	KindSchemaNotFound         = "schema_not_found"
)

const (
	HttpInternalError     = "Internal server error"
	HttpInvalidJsonError  = "Invalid JSON payload"
	HttpValidationError   = "Event validation failed"
	HttpRateLimitedError  = "Too many requests"
	HttpPayloadTooLarge   = "Payload too large"
	HttpSchemaNotFound    = "Event schema not found"
	HttpSchemaUnavailable = "Schema registry not loaded"
)

// ErrorResponse is the error response body for gate, tracking and schema API errors.
type ErrorResponse struct {
	Error         string                 `json:"error"`
	Kind          string                 `json:"kind"`
	Details       interface{}            `json:"details,omitempty"`
	Event         string                 `json:"event,omitempty"`
	Property      string                 `json:"property,omitempty"`
	Properties    map[string]interface{} `json:"properties,omitempty"`
	AllowedValues []string               `json:"allowed_values,omitempty"`
	KnownEvents   []string               `json:"known_events,omitempty"`
}
