package providers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	v1 "github.com/aevon-lab/trackgate/internal/api/v1"
	"github.com/aevon-lab/trackgate/internal/core/config"
)

// anonymousID is sent when the caller did not identify the user.
const anonymousID = "anonymous"

// PostHog delivers events to the PostHog capture API.
type PostHog struct {
	apiKey string
	host   string
}

type posthogCapture struct {
	APIKey     string                 `json:"api_key"`
	Event      string                 `json:"event"`
	DistinctID string                 `json:"distinct_id"`
	Properties map[string]interface{} `json:"properties"`
	Timestamp  string                 `json:"timestamp"`
	UUID       string                 `json:"uuid,omitempty"`
}

// NewPostHog creates the provider. It is enabled only when an API key is set.
func NewPostHog(cfg config.PostHogConfig) *PostHog {
	return &PostHog{
		apiKey: cfg.APIKey,
		host:   strings.TrimRight(cfg.Host, "/"),
	}
}

func (p *PostHog) Name() string { return NamePostHog }

func (p *PostHog) Enabled() bool { return p.apiKey != "" }

func (p *PostHog) NewRequest(ctx context.Context, event *v1.TrackingEvent) (*http.Request, error) {
	if !p.Enabled() {
		return nil, fmt.Errorf("posthog api key is not configured")
	}
	distinctID := event.DistinctID
	if distinctID == "" {
		distinctID = anonymousID
	}
	req, _, err := newJSONRequest(ctx, p.host+"/capture/", posthogCapture{
		APIKey:     p.apiKey,
		Event:      event.Event,
		DistinctID: distinctID,
		Properties: event.Properties,
		Timestamp:  event.Timestamp.UTC().Format(time.RFC3339Nano),
		UUID:       event.MessageID,
	})
	return req, err
}
