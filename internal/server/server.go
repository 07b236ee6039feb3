package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/aevon-lab/trackgate/internal/gate"
	"github.com/gin-gonic/gin"
)

type Server struct {
	Engine *gin.Engine
	Addr   string
	health Health
}

// HealthChecker is an interface for components that can report their health status.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// SchemaStatus reports the catalog state.
type SchemaStatus interface {
	Loaded() bool
	Len() int
}

// Health lists what GET /health reports on. DeliveryLog is nil when the
// delivery log is disabled.
type Health struct {
	Providers   map[string]bool
	Schema      SchemaStatus
	DeliveryLog HealthChecker
}

// HealthResponse is the GET /health body. It never carries credential values.
type HealthResponse struct {
	Status      string          `json:"status"`
	Providers   map[string]bool `json:"providers"`
	Schema      SchemaHealth    `json:"schema"`
	DeliveryLog string          `json:"delivery_log"`
	Error       string          `json:"error,omitempty"`
}

type SchemaHealth struct {
	Loaded bool `json:"loaded"`
	Events int  `json:"events"`
}

// New builds the engine. Only requests arriving from trustedProxies have their
// X-Forwarded-For honoured; with none, c.ClientIP() is the TCP peer.
func New(addr string, mode string, trustedProxies []string, health Health) *Server {
	// Set Gin mode based on configuration
	if mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if err := r.SetTrustedProxies(trustedProxies); err != nil {
		slog.Error("Invalid trusted proxies, trusting none", "trusted_proxies", trustedProxies, "error", err)
		_ = r.SetTrustedProxies(nil)
	}
	r.Use(gin.Logger(), gate.Recovery())

	s := &Server{
		Engine: r,
		Addr:   addr,
		health: health,
	}

	r.GET("/health", s.healthHandler)

	return s
}

func (s *Server) healthHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	resp := HealthResponse{
		Status:      "healthy",
		Providers:   s.health.Providers,
		DeliveryLog: "disabled",
	}
	if resp.Providers == nil {
		resp.Providers = map[string]bool{}
	}
	if s.health.Schema != nil {
		resp.Schema = SchemaHealth{Loaded: s.health.Schema.Loaded(), Events: s.health.Schema.Len()}
	}

	if s.health.DeliveryLog != nil {
		if err := s.health.DeliveryLog.Ping(ctx); err != nil {
			slog.Error("Health check failed: delivery log unreachable", "error", err)
			resp.Status = "unhealthy"
			resp.DeliveryLog = "unreachable"
			resp.Error = "delivery log unreachable"
			c.JSON(http.StatusServiceUnavailable, resp)
			return
		}
		resp.DeliveryLog = "connected"
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("Starting HTTP Server...", "address", s.Addr)

	go func() {
		<-ctx.Done()
		slog.Info("Stopping HTTP Server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP Server forced to shutdown", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
