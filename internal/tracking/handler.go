package tracking

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	v1 "github.com/aevon-lab/trackgate/internal/api/v1"
	httperr "github.com/aevon-lab/trackgate/internal/core/errors"
	"github.com/aevon-lab/trackgate/internal/dispatch"
	"github.com/aevon-lab/trackgate/internal/gate"
	"github.com/gin-gonic/gin"
)

const msgReadBodyFailed = "Failed to read request body"

// trackingError carries the structured HTTP error shape from a helper back to the handler.
type trackingError struct {
	statusCode int
	body       httperr.ErrorResponse
}

func (e *trackingError) Error() string {
	return e.body.Error
}

// TrackHandler dispatches a gated event to every enabled provider.
func (s *Service) TrackHandler(c *gin.Context) {
	ctx := c.Request.Context()

	evt, terr := s.readEvent(c)
	if terr != nil {
		writeError(c, terr)
		return
	}

	if terr := s.ensureValidated(ctx, c.GetHeader(gate.MarkerHeader), evt); terr != nil {
		writeError(c, terr)
		return
	}

	dispatchedAt := time.Now().UTC()
	report := s.dispatcher.Dispatch(ctx, evt, s.providers)

	slog.Info("Dispatched event",
		"event", evt.Event,
		"message_id", evt.MessageID,
		"attempted", report.Attempted,
		"succeeded", report.Succeeded,
		"failed", len(report.Failed))

	s.recordReport(ctx, evt, report, dispatchedAt)

	c.JSON(http.StatusOK, buildResponse(evt, report, dispatchedAt))
}

// readEvent decodes the forwarded payload. The gate has already bounded its size.
func (s *Service) readEvent(c *gin.Context) (*v1.TrackingEvent, *trackingError) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		slog.Error("Failed to read request body", "error", err)
		return nil, &trackingError{
			statusCode: http.StatusInternalServerError,
			body: httperr.ErrorResponse{
				Error:   httperr.HttpInternalError,
				Kind:    httperr.KindInternalFault,
				Details: msgReadBodyFailed,
			},
		}
	}

	var evt v1.TrackingEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		slog.Warn("Invalid JSON body received", "error", err, "payload_size", len(body))
		return nil, parseError(err)
	}
	if err := evt.Validate(); err != nil {
		slog.Warn("Envelope validation failed", "error", err)
		return nil, parseError(err)
	}
	return &evt, nil
}

// ensureValidated trusts a valid marker and otherwise validates the payload again.
func (s *Service) ensureValidated(ctx context.Context, marker string, evt *v1.TrackingEvent) *trackingError {
	_, err := s.signer.Verify(marker, evt)
	if err == nil {
		return nil
	}
	slog.Warn("Trust marker rejected, re-validating payload", "event", evt.Event, "error", err)

	evt.Normalize(time.Now())
	res, err := s.validator.Validate(ctx, evt.Event, evt.Properties)
	if err != nil {
		kind := gate.FaultKind(err)
		slog.Error("Validator fault", "event", evt.Event, "kind", kind, "error", err)
		return &trackingError{
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
		return &trackingError{
			statusCode: http.StatusBadRequest,
			body:       gate.FailureResponse(res.Failure, evt.Properties),
		}
	}
	evt.Properties = res.Properties
	return nil
}

// recordReport appends the report to the delivery log. Failures are logged only.
func (s *Service) recordReport(ctx context.Context, evt *v1.TrackingEvent, report *dispatch.Report, dispatchedAt time.Time) {
	if s.store == nil {
		return
	}
	if err := s.store.SaveReport(context.WithoutCancel(ctx), evt, report, dispatchedAt); err != nil {
		slog.Error("Failed to record dispatch report", "event", evt.Event, "message_id", evt.MessageID, "error", err)
	}
}

func buildResponse(evt *v1.TrackingEvent, report *dispatch.Report, at time.Time) v1.TrackResponse {
	resp := v1.TrackResponse{
		Success:   true,
		Event:     evt.Event,
		Validated: true,
		Providers: v1.ProviderSummary{
			Attempted:  report.Attempted,
			Successful: report.Succeeded,
			Failed:     len(report.Failed),
		},
		Timestamp: at,
	}
	for _, f := range report.Failed {
		resp.Failures = append(resp.Failures, v1.ProviderFailure{
			Provider: f.Provider,
			Kind:     f.ErrorKind,
			Error:    f.ErrorDetail,
		})
	}
	return resp
}

func parseError(err error) *trackingError {
	return &trackingError{
		statusCode: http.StatusBadRequest,
		body: httperr.ErrorResponse{
			Error:   httperr.HttpInvalidJsonError,
			Kind:    httperr.KindParseFailed,
			Details: err.Error(),
		},
	}
}

// writeError serializes a trackingError as the JSON HTTP response.
func writeError(c *gin.Context, err *trackingError) {
	c.JSON(err.statusCode, err.body)
}
