package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MarkoPoloResearchLab/societyhub/internal/auth"
)

const bearerPrefix = "Bearer "

// TokenVerifier validates admin bearer tokens.
type TokenVerifier interface {
	VerifyToken(token string) (auth.Claims, error)
}

// RequestLogger logs one line per request.
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(context *gin.Context) {
		start := time.Now()
		context.Next()
		logger.Info("http",
			zap.String("method", context.Request.Method),
			zap.String("path", context.Request.URL.Path),
			zap.Int("status", context.Writer.Status()),
			zap.Duration("dur", time.Since(start)),
			zap.String("ip", ClientAddress(context)),
			zap.String("ua", context.Request.UserAgent()),
		)
	}
}

// AdminAuthMiddleware requires a valid admin bearer token and stores its claims on the context.
func AdminAuthMiddleware(verifier TokenVerifier, responder *Responder, logger *zap.Logger) gin.HandlerFunc {
	return func(context *gin.Context) {
		authorizationHeader := strings.TrimSpace(context.GetHeader("Authorization"))
		if !strings.HasPrefix(authorizationHeader, bearerPrefix) {
			responder.AbortFailure(context, http.StatusUnauthorized, "Missing bearer token")
			return
		}
		provided := strings.TrimSpace(strings.TrimPrefix(authorizationHeader, bearerPrefix))
		claims, verifyErr := verifier.VerifyToken(provided)
		if verifyErr != nil {
			logger.Debug("admin_token_rejected", zap.Error(verifyErr), zap.String("ip", ClientAddress(context)))
			responder.AbortFailure(context, http.StatusUnauthorized, "Invalid or expired token")
			return
		}
		if setErr := SetAdminClaims(context, &claims); setErr != nil {
			responder.AbortFailure(context, http.StatusUnauthorized, messageUnauthorized)
			return
		}
		context.Next()
	}
}
