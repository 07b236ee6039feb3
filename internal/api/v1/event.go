package v1

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TrackingEvent is the payload accepted on the tracking endpoint and forwarded
// to providers once validated.
type TrackingEvent struct {
	// Event is the catalog event name (e.g. "user_signed_up").
	Event string `json:"event"`

	// Properties is the event payload. After validation it holds the typed,
	// default-filled property set.
	Properties map[string]interface{} `json:"properties"`

	// Timestamp is when the event happened on the client. Defaults to receipt time.
	Timestamp time.Time `json:"timestamp"`

	// DistinctID identifies the user or device, when known.
	DistinctID string `json:"distinct_id,omitempty"`

	// MessageID deduplicates deliveries at providers that support it.
	// Assigned on receipt when the caller omits it.
	MessageID string `json:"message_id,omitempty"`
}

// Validate ensures the envelope is usable. Property contents are checked by the
// schema validator, not here.
func (e *TrackingEvent) Validate() error {
	if strings.TrimSpace(e.Event) == "" {
		return fmt.Errorf("event is required")
	}
	if e.MessageID != "" {
		if _, err := uuid.Parse(e.MessageID); err != nil {
			return fmt.Errorf("message_id must be a UUID")
		}
	}
	return nil
}

// Normalize fills in receipt-time defaults.
func (e *TrackingEvent) Normalize(now time.Time) {
	if e.Properties == nil {
		e.Properties = map[string]interface{}{}
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = now.UTC()
	}
	if e.MessageID == "" {
		e.MessageID = uuid.NewString()
	}
}

// Digest returns the hex SHA-256 of the canonical JSON encoding of the event
// name and properties. Map keys are encoded in sorted order.
func (e *TrackingEvent) Digest() (string, error) {
	canonical, err := json.Marshal(struct {
		Event      string                 `json:"event"`
		Properties map[string]interface{} `json:"properties"`
	}{e.Event, e.Properties})
	if err != nil {
		return "", fmt.Errorf("canonical encoding failed: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// ProviderSummary counts delivery attempts.
type ProviderSummary struct {
	Attempted  int `json:"attempted"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
}

// ProviderFailure describes one failed delivery.
type ProviderFailure struct {
	Provider string `json:"provider"`
	Kind     string `json:"kind"`
	Error    string `json:"error"`
}

// TrackResponse is returned once an event has been validated and dispatched.
type TrackResponse struct {
	Success   bool              `json:"success"`
	Event     string            `json:"event"`
	Validated bool              `json:"validated"`
	Providers ProviderSummary   `json:"providers"`
	Failures  []ProviderFailure `json:"failures,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}
