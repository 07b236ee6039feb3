package gate

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	httperr "github.com/aevon-lab/trackgate/internal/core/errors"
	"github.com/gin-gonic/gin"
)

// Recovery converts panics anywhere in the handler chain into a generic 500.
// The panic value and stack are logged, never returned to the client.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered interface{}) {
		slog.Error("Unhandled panic in request pipeline",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"panic", recovered,
			"stack", string(debug.Stack()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, httperr.ErrorResponse{
			Error: httperr.HttpInternalError,
			Kind:  httperr.KindInternalFault,
		})
	})
}
