package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	v1 "github.com/aevon-lab/trackgate/internal/api/v1"
	"github.com/aevon-lab/trackgate/internal/core/config"
)

// Measurement Protocol limits.
const (
	ga4MaxNameLength  = 40
	ga4MaxValueLength = 100
)

// GA4 delivers events through the Google Analytics 4 Measurement Protocol.
type GA4 struct {
	measurementID string
	apiSecret     string
	endpoint      string
}

type ga4Payload struct {
	ClientID        string     `json:"client_id"`
	UserID          string     `json:"user_id,omitempty"`
	TimestampMicros int64      `json:"timestamp_micros"`
	Events          []ga4Event `json:"events"`
}

type ga4Event struct {
	Name   string                 `json:"name"`
	Params map[string]interface{} `json:"params"`
}

// NewGA4 creates the provider. It is enabled only when both the measurement id
// and the API secret are set.
func NewGA4(cfg config.GA4Config) *GA4 {
	return &GA4{
		measurementID: cfg.MeasurementID,
		apiSecret:     cfg.APISecret,
		endpoint:      cfg.Endpoint,
	}
}

func (g *GA4) Name() string { return NameGA4 }

func (g *GA4) Enabled() bool { return g.measurementID != "" && g.apiSecret != "" }

func (g *GA4) NewRequest(ctx context.Context, event *v1.TrackingEvent) (*http.Request, error) {
	if !g.Enabled() {
		return nil, fmt.Errorf("ga4 measurement id or api secret is not configured")
	}

	u, err := url.Parse(g.endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid ga4 endpoint: %w", err)
	}
	q := u.Query()
	q.Set("measurement_id", g.measurementID)
	q.Set("api_secret", g.apiSecret)
	u.RawQuery = q.Encode()

	clientID := event.DistinctID
	if clientID == "" {
		clientID = event.MessageID
	}
	if clientID == "" {
		clientID = anonymousID
	}

	req, _, err := newJSONRequest(ctx, u.String(), ga4Payload{
		ClientID:        clientID,
		UserID:          event.DistinctID,
		TimestampMicros: event.Timestamp.UnixMicro(),
		Events: []ga4Event{{
			Name:   SanitizeGA4Name(event.Event),
			Params: ga4Params(event.Properties),
		}},
	})
	return req, err
}

// SanitizeGA4Name maps a name onto the Measurement Protocol alphabet: only
// letters, digits and underscores, starting with a letter, at most 40 chars.
func SanitizeGA4Name(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := b.String()
	if out == "" || !isASCIILetter(out[0]) {
		out = "e_" + out
	}
	if len(out) > ga4MaxNameLength {
		out = out[:ga4MaxNameLength]
	}
	return out
}

func isASCIILetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// ga4Params keeps scalar values only; GA4 rejects nested params.
func ga4Params(props map[string]interface{}) map[string]interface{} {
	params := make(map[string]interface{}, len(props))
	for key, value := range props {
		switch v := value.(type) {
		case string:
			params[SanitizeGA4Name(key)] = truncateRunes(v, ga4MaxValueLength)
		case bool, float64, float32, int, int32, int64, json.Number:
			params[SanitizeGA4Name(key)] = v
		default:
			slog.Debug("Dropping non-scalar GA4 param", "param", key)
		}
	}
	return params
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}
