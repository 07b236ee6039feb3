package api

import (
	"github.com/aevon-lab/trackgate/internal/schema"
	"github.com/gin-gonic/gin"
)

// Service provides the read-only schema API.
type Service struct {
	registry  *schema.Registry
	validator *schema.Validator
}

// NewService creates a new schema API service.
func NewService(reg *schema.Registry, val *schema.Validator) *Service {
	if reg == nil {
		panic("schema api: registry must not be nil")
	}
	if val == nil {
		panic("schema api: validator must not be nil")
	}
	return &Service{
		registry:  reg,
		validator: val,
	}
}

// RegisterRoutes registers the schema API routes.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	handler := NewHandler(s.registry, s.validator)

	schemas := r.Group("/v1/schemas")
	{
		schemas.GET("", handler.HandleList)
		schemas.GET("/:event", handler.HandleGet)
		// Dry run: validates without dispatching.
		schemas.POST("/:event/validate", handler.HandleValidate)
	}
}
