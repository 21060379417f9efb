package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const healthCheckTimeout = 2 * time.Second

// DatabasePinger reports whether the database is reachable.
type DatabasePinger interface {
	PingContext(ctx context.Context) error
}

type healthStatus struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// HealthHandler answers liveness probes and checks the database connection.
func HealthHandler(pinger DatabasePinger, responder *Responder) gin.HandlerFunc {
	return func(ginContext *gin.Context) {
		if pinger == nil {
			responder.Success(ginContext, http.StatusOK, healthStatus{Status: "ok", Database: "unknown"})
			return
		}
		pingContext, cancel := context.WithTimeout(ginContext.Request.Context(), healthCheckTimeout)
		defer cancel()
		if pingErr := pinger.PingContext(pingContext); pingErr != nil {
			ginContext.JSON(http.StatusServiceUnavailable, successEnvelope{Success: false, Data: healthStatus{Status: "degraded", Database: "unreachable"}})
			return
		}
		responder.Success(ginContext, http.StatusOK, healthStatus{Status: "ok", Database: "ok"})
	}
}
