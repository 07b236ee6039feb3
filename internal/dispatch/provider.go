package dispatch

import (
	"context"
	"net/http"

	v1 "github.com/aevon-lab/trackgate/internal/api/v1"
)

// Provider is one downstream analytics destination.
type Provider interface {
	// Name identifies the provider in reports and logs.
	Name() string

	// Enabled reports whether the provider has the credentials it needs.
	// Disabled providers are skipped and do not count as attempted.
	Enabled() bool

	// NewRequest builds the provider-specific HTTP request for one event.
	NewRequest(ctx context.Context, event *v1.TrackingEvent) (*http.Request, error)
}

// HTTPDoer sends HTTP requests. *http.Client satisfies it.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}
