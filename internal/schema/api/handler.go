package api

import (
	"errors"
	"log/slog"
	"net/http"

	httperr "github.com/aevon-lab/trackgate/internal/core/errors"
	"github.com/aevon-lab/trackgate/internal/gate"
	"github.com/aevon-lab/trackgate/internal/schema"
	"github.com/gin-gonic/gin"
)

const maxValidateBodyBytes = 64 * 1024

// Handler handles schema API HTTP requests.
type Handler struct {
	registry  *schema.Registry
	validator *schema.Validator
}

// NewHandler creates a new schema API handler.
func NewHandler(reg *schema.Registry, val *schema.Validator) *Handler {
	return &Handler{
		registry:  reg,
		validator: val,
	}
}

// ListResponse is the response body for GET /v1/schemas.
type ListResponse struct {
	Events []*schema.EventSchema `json:"events"`
	Count  int                   `json:"count"`
}

// ValidateRequest is the request body for POST /v1/schemas/{event}/validate.
type ValidateRequest struct {
	Properties map[string]interface{} `json:"properties"`
}

// ValidateResponse is returned when a dry run passes.
type ValidateResponse struct {
	Valid      bool                   `json:"valid"`
	Event      string                 `json:"event"`
	Properties map[string]interface{} `json:"properties"`
}

// HandleList handles GET /v1/schemas.
func (h *Handler) HandleList(c *gin.Context) {
	schemas, err := h.registry.Schemas()
	if err != nil {
		writeRegistryError(c, err)
		return
	}
	c.JSON(http.StatusOK, ListResponse{Events: schemas, Count: len(schemas)})
}

// HandleGet handles GET /v1/schemas/{event}.
func (h *Handler) HandleGet(c *gin.Context) {
	name := c.Param("event")

	s, err := h.registry.Lookup(name)
	if errors.Is(err, schema.ErrNotFound) {
		known, _ := h.registry.EventNames()
		c.JSON(http.StatusNotFound, httperr.ErrorResponse{
			Error:       httperr.HttpSchemaNotFound,
			Kind:        httperr.KindSchemaNotFound,
			Event:       name,
			KnownEvents: known,
		})
		return
	}
	if err != nil {
		writeRegistryError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

// HandleValidate handles POST /v1/schemas/{event}/validate.
func (h *Handler) HandleValidate(c *gin.Context) {
	name := c.Param("event")

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxValidateBodyBytes)

	var req ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, httperr.ErrorResponse{
				Error:   httperr.HttpPayloadTooLarge,
				Kind:    httperr.KindPayloadTooLarge,
				Details: gin.H{"max_size_bytes": maxValidateBodyBytes},
			})
			return
		}
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			Error:   httperr.HttpInvalidJsonError,
			Kind:    httperr.KindParseFailed,
			Details: err.Error(),
		})
		return
	}
	if req.Properties == nil {
		req.Properties = map[string]interface{}{}
	}

	res, err := h.validator.Validate(c.Request.Context(), name, req.Properties)
	if err != nil {
		kind := gate.FaultKind(err)
		slog.Error("Validator fault during dry run", "event", name, "kind", kind, "error", err)
		c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
			Error: httperr.HttpInternalError,
			Kind:  kind,
			Event: name,
		})
		return
	}
	if !res.Passed() {
		c.JSON(http.StatusBadRequest, gate.FailureResponse(res.Failure, req.Properties))
		return
	}

	c.JSON(http.StatusOK, ValidateResponse{
		Valid:      true,
		Event:      name,
		Properties: res.Properties,
	})
}

func writeRegistryError(c *gin.Context, err error) {
	if errors.Is(err, schema.ErrSchemaNotLoaded) {
		c.JSON(http.StatusServiceUnavailable, httperr.ErrorResponse{
			Error: httperr.HttpSchemaUnavailable,
			Kind:  httperr.KindSchemaNotLoaded,
		})
		return
	}
	slog.Error("Schema registry error", "error", err)
	c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
		Error: httperr.HttpInternalError,
		Kind:  httperr.KindInternalFault,
	})
}
