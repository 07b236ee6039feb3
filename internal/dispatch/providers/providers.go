// Package providers implements the downstream analytics destinations.
package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/aevon-lab/trackgate/internal/core/config"
	"github.com/aevon-lab/trackgate/internal/dispatch"
)

// Provider names as they appear in reports and health output.
const (
	NamePostHog = "posthog"
	NameGA4     = "ga4"
	NameWebhook = "webhook"
)

// FromConfig builds every known provider in configured order. Providers without
// credentials are returned too; the dispatcher skips them.
func FromConfig(cfg config.ProvidersConfig) []dispatch.Provider {
	return []dispatch.Provider{
		NewPostHog(cfg.PostHog),
		NewGA4(cfg.GA4),
		NewWebhook(cfg.Webhook),
	}
}

// Status reports which providers are enabled, keyed by name.
func Status(providers []dispatch.Provider) map[string]bool {
	status := make(map[string]bool, len(providers))
	for _, p := range providers {
		status[p.Name()] = p.Enabled()
	}
	return status
}

func newJSONRequest(ctx context.Context, url string, payload interface{}) (*http.Request, []byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "trackgate")
	return req, body, nil
}
