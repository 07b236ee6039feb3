package providers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"

	v1 "github.com/aevon-lab/trackgate/internal/api/v1"
	"github.com/aevon-lab/trackgate/internal/core/config"
)

// SignatureHeader carries the hex HMAC-SHA256 of the request body.
const SignatureHeader = "X-Trackgate-Signature"

// Webhook posts the tracking event as JSON to an arbitrary URL.
type Webhook struct {
	url    string
	secret []byte
}

// NewWebhook creates the provider. It is enabled only when a URL is set.
func NewWebhook(cfg config.WebhookConfig) *Webhook {
	return &Webhook{
		url:    cfg.URL,
		secret: []byte(cfg.Secret),
	}
}

func (w *Webhook) Name() string { return NameWebhook }

func (w *Webhook) Enabled() bool { return w.url != "" }

func (w *Webhook) NewRequest(ctx context.Context, event *v1.TrackingEvent) (*http.Request, error) {
	if !w.Enabled() {
		return nil, fmt.Errorf("webhook url is not configured")
	}
	req, body, err := newJSONRequest(ctx, w.url, event)
	if err != nil {
		return nil, err
	}
	if len(w.secret) > 0 {
		req.Header.Set(SignatureHeader, Sign(w.secret, body))
	}
	return req, nil
}

// Sign returns the hex HMAC-SHA256 of body under secret.
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
