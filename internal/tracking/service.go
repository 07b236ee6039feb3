package tracking

import (
	"context"

	v1 "github.com/aevon-lab/trackgate/internal/api/v1"
	"github.com/aevon-lab/trackgate/internal/core/storage"
	"github.com/aevon-lab/trackgate/internal/dispatch"
	"github.com/aevon-lab/trackgate/internal/gate"
	"github.com/gin-gonic/gin"
)

// Dispatcher fans a validated event out to providers.
type Dispatcher interface {
	Dispatch(ctx context.Context, event *v1.TrackingEvent, providers []dispatch.Provider) *dispatch.Report
}

type Service struct {
	gate       *gate.Gate
	validator  gate.EventValidator
	signer     *gate.MarkerSigner
	dispatcher Dispatcher
	providers  []dispatch.Provider
	store      storage.ReportStore
	limiter    *gate.RateLimiter
}

// Option configures optional Service collaborators.
type Option func(*Service)

// WithReportStore appends every dispatch report to the delivery log.
func WithReportStore(store storage.ReportStore) Option {
	return func(s *Service) {
		s.store = store
	}
}

// WithRateLimiter puts a per-client rate limiter in front of the gate.
func WithRateLimiter(rl *gate.RateLimiter) Option {
	return func(s *Service) {
		s.limiter = rl
	}
}

func NewService(g *gate.Gate, val gate.EventValidator, signer *gate.MarkerSigner, d Dispatcher, providers []dispatch.Provider, opts ...Option) *Service {
	if g == nil {
		panic("tracking: gate must not be nil")
	}
	if val == nil {
		panic("tracking: validator must not be nil")
	}
	if signer == nil {
		panic("tracking: signer must not be nil")
	}
	if d == nil {
		panic("tracking: dispatcher must not be nil")
	}
	s := &Service{
		gate:       g,
		validator:  val,
		signer:     signer,
		dispatcher: d,
		providers:  providers,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterRoutes registers the tracking routes behind the gate.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	handlers := []gin.HandlerFunc{}
	if s.limiter != nil {
		handlers = append(handlers, s.limiter.Middleware())
	}
	handlers = append(handlers, s.gate.Middleware(), s.TrackHandler)

	// Canonical tracking endpoint.
	r.POST("/api/track", handlers...)

	// Versioned alias.
	r.POST("/v1/track", handlers...)
}
