package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MarkoPoloResearchLab/societyhub/internal/auth"
	"github.com/MarkoPoloResearchLab/societyhub/internal/ratelimit"
)

const (
	messageLoginDisabled      = "Admin login is not configured"
	messageInvalidCredentials = "Invalid username or password"
	loginRateLimitScope       = "login"
)

// TokenIssuer signs admin tokens after a successful login.
type TokenIssuer interface {
	IssueToken(subject string) (auth.IssuedToken, error)
}

// AuthHandlers serves the admin login and token verification endpoints.
type AuthHandlers struct {
	logger      *zap.Logger
	credentials auth.AdminCredentials
	issuer      TokenIssuer
	limiter     ratelimit.Limiter
	recorder    RejectionRecorder
	responder   *Responder
}

// RejectionRecorder counts attempts turned away by a rate limiter.
type RejectionRecorder interface {
	RecordRateLimitRejection(scope string)
}

// NewAuthHandlers constructs AuthHandlers. A nil limiter admits every login attempt.
func NewAuthHandlers(logger *zap.Logger, credentials auth.AdminCredentials, issuer TokenIssuer, limiter ratelimit.Limiter, recorder RejectionRecorder, responder *Responder) *AuthHandlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandlers{
		logger:      logger,
		credentials: credentials,
		issuer:      issuer,
		limiter:     limiter,
		recorder:    recorder,
		responder:   responder,
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type verifyResponse struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Login exchanges the admin username and password for a bearer token.
func (handlers *AuthHandlers) Login(context *gin.Context) {
	if !handlers.credentials.Enabled() {
		handlers.responder.Failure(context, http.StatusServiceUnavailable, messageLoginDisabled)
		return
	}

	var payload loginRequest
	if bindErr := context.ShouldBindJSON(&payload); bindErr != nil {
		handlers.responder.Failure(context, http.StatusBadRequest, messageInvalidJSON)
		return
	}

	clientAddress := ClientAddress(context)
	if handlers.limiter != nil && !handlers.limiter.TryConsume(clientAddress) {
		if handlers.recorder != nil {
			handlers.recorder.RecordRateLimitRejection(loginRateLimitScope)
		}
		handlers.responder.Failure(context, http.StatusTooManyRequests, messageRateLimited)
		return
	}

	if authErr := handlers.credentials.Authenticate(payload.Username, payload.Password); authErr != nil {
		if errors.Is(authErr, auth.ErrLoginDisabled) {
			handlers.responder.Failure(context, http.StatusServiceUnavailable, messageLoginDisabled)
			return
		}
		handlers.logger.Info("admin_login_rejected", zap.String("ip", clientAddress))
		handlers.responder.Failure(context, http.StatusUnauthorized, messageInvalidCredentials)
		return
	}

	issued, issueErr := handlers.issuer.IssueToken(handlers.credentials.Username)
	if issueErr != nil {
		handlers.responder.InternalFailure(context, "admin_token_issue_failed", issueErr)
		return
	}
	handlers.logger.Info("admin_login_succeeded", zap.String("ip", clientAddress))
	handlers.responder.Success(context, http.StatusOK, issued)
}

// Verify echoes the identity carried by a valid admin token.
func (handlers *AuthHandlers) Verify(context *gin.Context) {
	claims, ok := AdminClaimsFromContext(context)
	if !ok {
		handlers.responder.Failure(context, http.StatusUnauthorized, messageUnauthorized)
		return
	}
	handlers.responder.Success(context, http.StatusOK, verifyResponse{Username: claims.Subject, Role: claims.Role})
}
