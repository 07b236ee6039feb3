package gate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	v1 "github.com/aevon-lab/trackgate/internal/api/v1"
	httperr "github.com/aevon-lab/trackgate/internal/core/errors"
	"github.com/aevon-lab/trackgate/internal/schema"
	"github.com/gin-gonic/gin"
)

const (
	msgReadBodyFailed = "Failed to read request body"
	msgSignFailed     = "Failed to sign validated payload"
)

// EventValidator validates event properties against the loaded catalog.
type EventValidator interface {
	Validate(ctx context.Context, eventName string, properties map[string]interface{}) (*schema.Result, error)
}

// gateError carries the HTTP error shape from a pipeline step back to the middleware.
type gateError struct {
	statusCode int
	body       httperr.ErrorResponse
}

func (e *gateError) Error() string {
	return e.body.Error
}

// Gate validates tracking payloads before they reach the tracking handler.
type Gate struct {
	validator    EventValidator
	signer       *MarkerSigner
	maxBodyBytes int64
	now          func() time.Time
}

// New creates a gate. maxBodyBytes <= 0 defaults to 64KB.
func New(validator EventValidator, signer *MarkerSigner, maxBodyBytes int64) *Gate {
	if validator == nil {
		panic("gate: validator must not be nil")
	}
	if signer == nil {
		panic("gate: signer must not be nil")
	}
	if maxBodyBytes <= 0 {
		maxBodyBytes = 64 * 1024
	}
	return &Gate{
		validator:    validator,
		signer:       signer,
		maxBodyBytes: maxBodyBytes,
		now:          time.Now,
	}
}

// Middleware runs the gate pipeline. Only validated payloads reach the next
// handler, with the normalized event as body and a signed marker header.
func (g *Gate) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Markers are only ever set by the gate.
		c.Request.Header.Del(MarkerHeader)

		slog.Debug("Gate received payload", "path", c.Request.URL.Path)

		evt, gerr := g.parse(c)
		if gerr != nil {
			slog.Debug("Gate parse failed", "kind", gerr.body.Kind)
			abortWithError(c, gerr)
			return
		}

		slog.Debug("Gate validating payload", "event", evt.Event)
		if gerr := g.validate(c.Request.Context(), evt); gerr != nil {
			slog.Debug("Gate validation failed", "event", evt.Event, "kind", gerr.body.Kind)
			abortWithError(c, gerr)
			return
		}

		body, gerr := g.mark(c, evt)
		if gerr != nil {
			abortWithError(c, gerr)
			return
		}

		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		c.Request.ContentLength = int64(len(body))
		c.Request.Header.Set("Content-Length", strconv.Itoa(len(body)))

		slog.Debug("Gate forwarded payload", "event", evt.Event, "message_id", evt.MessageID)
		c.Next()
	}
}

// parse reads the bounded body and decodes the envelope.
func (g *Gate) parse(c *gin.Context) (*v1.TrackingEvent, *gateError) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, g.maxBodyBytes+1)) // +1 to detect oversized requests
	if err != nil {
		slog.Error("Failed to read request body", "error", err)
		return nil, internalError(msgReadBodyFailed)
	}

	if int64(len(body)) > g.maxBodyBytes {
		slog.Warn("Request body exceeds maximum size", "size", len(body), "max", g.maxBodyBytes)
		return nil, &gateError{
			statusCode: http.StatusRequestEntityTooLarge,
			body: httperr.ErrorResponse{
				Error:   httperr.HttpPayloadTooLarge,
				Kind:    httperr.KindPayloadTooLarge,
				Details: map[string]interface{}{"max_size_bytes": g.maxBodyBytes},
			},
		}
	}

	var evt v1.TrackingEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		slog.Warn("Invalid JSON body received", "error", err, "payload_size", len(body))
		return nil, parseError(err.Error())
	}
	if err := evt.Validate(); err != nil {
		slog.Warn("Envelope validation failed", "error", err)
		return nil, parseError(err.Error())
	}

	evt.Normalize(g.now())
	return &evt, nil
}

// validate checks the properties and, on pass, replaces them with the
// normalized set.
func (g *Gate) validate(ctx context.Context, evt *v1.TrackingEvent) *gateError {
	res, err := g.validator.Validate(ctx, evt.Event, evt.Properties)
	if err != nil {
		kind := FaultKind(err)
		slog.Error("Validator fault", "event", evt.Event, "kind", kind, "error", err)
		return &gateError{
			statusCode: http.StatusInternalServerError,
			body: httperr.ErrorResponse{
				Error: httperr.HttpInternalError,
				Kind:  kind,
				Event: evt.Event,
			},
		}
	}
	if !res.Passed() {
		slog.Warn("Event validation failed", "event", evt.Event, "kind", res.Failure.Kind, "error", res.Failure)
		return &gateError{
			statusCode: http.StatusBadRequest,
			body:       FailureResponse(res.Failure, evt.Properties),
		}
	}

	evt.Properties = res.Properties
	return nil
}

// mark signs a marker for the validated event and returns the rewritten body.
func (g *Gate) mark(c *gin.Context, evt *v1.TrackingEvent) ([]byte, *gateError) {
	digest, err := evt.Digest()
	if err != nil {
		slog.Error("Failed to digest validated payload", "event", evt.Event, "error", err)
		return nil, internalError(msgSignFailed)
	}
	token, err := g.signer.Sign(Marker{
		Event:       evt.Event,
		ValidatedAt: g.now(),
		Validated:   true,
		Digest:      digest,
	})
	if err != nil {
		slog.Error("Failed to sign marker", "event", evt.Event, "error", err)
		return nil, internalError(msgSignFailed)
	}
	body, err := json.Marshal(evt)
	if err != nil {
		slog.Error("Failed to encode validated payload", "event", evt.Event, "error", err)
		return nil, internalError(msgSignFailed)
	}
	c.Request.Header.Set(MarkerHeader, token)
	return body, nil
}

// FailureResponse builds the 400 body for a validation failure. properties is
// the payload as the client sent it.
func FailureResponse(f *schema.ValidationError, properties map[string]interface{}) httperr.ErrorResponse {
	return httperr.ErrorResponse{
		Error:         httperr.HttpValidationError,
		Kind:          string(f.Kind),
		Details:       f.Message,
		Event:         f.Event,
		Property:      f.Property,
		Properties:    properties,
		AllowedValues: f.AllowedValues,
		KnownEvents:   f.KnownEvents,
	}
}

// FaultKind maps a validator error to its wire kind.
func FaultKind(err error) string {
	switch {
	case errors.Is(err, schema.ErrGuardNotImplemented):
		return httperr.KindGuardNotImplemented
	case errors.Is(err, schema.ErrSchemaNotLoaded):
		return httperr.KindSchemaNotLoaded
	default:
		return httperr.KindInternalFault
	}
}

func parseError(details string) *gateError {
	return &gateError{
		statusCode: http.StatusBadRequest,
		body: httperr.ErrorResponse{
			Error:   httperr.HttpInvalidJsonError,
			Kind:    httperr.KindParseFailed,
			Details: details,
		},
	}
}

func internalError(details string) *gateError {
	return &gateError{
		statusCode: http.StatusInternalServerError,
		body: httperr.ErrorResponse{
			Error:   httperr.HttpInternalError,
			Kind:    httperr.KindInternalFault,
			Details: details,
		},
	}
}

// abortWithError serializes a gateError as the JSON response and stops the chain.
func abortWithError(c *gin.Context, err *gateError) {
	c.AbortWithStatusJSON(err.statusCode, err.body)
}
