package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MarkoPoloResearchLab/societyhub/internal/model"
)

const (
	messageInvalidJSON       = "Request body must be valid JSON"
	messageValidationFailed  = "Validation failed"
	messageInternalError     = "Internal server error"
	messageNotFound          = "Not found"
	messageInvalidIdentifier = "Invalid identifier"
	messageRateLimited       = "Too many requests. Please try again later."
	messageUnauthorized      = "Unauthorized"
)

type successEnvelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data,omitempty"`
}

type failureEnvelope struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// Responder writes the {success, data} and {success, message} envelopes shared by every endpoint.
// In development mode internal failures also carry the underlying error text.
type Responder struct {
	logger      *zap.Logger
	development bool
}

// NewResponder constructs a Responder.
func NewResponder(logger *zap.Logger, development bool) *Responder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Responder{logger: logger, development: development}
}

// Success writes a success envelope with the payload.
func (responder *Responder) Success(context *gin.Context, status int, data any) {
	context.JSON(status, successEnvelope{Success: true, Data: data})
}

// Failure writes a failure envelope with a caller-facing message.
func (responder *Responder) Failure(context *gin.Context, status int, message string) {
	context.JSON(status, failureEnvelope{Success: false, Message: message})
}

// ValidationFailure writes a 400 listing each invalid field.
func (responder *Responder) ValidationFailure(context *gin.Context, err error) {
	envelope := failureEnvelope{Success: false, Message: messageValidationFailed}
	var validationErr *model.ValidationError
	if errors.As(err, &validationErr) {
		envelope.Details = validationErr.Details
	}
	if responder.development && err != nil {
		envelope.Error = err.Error()
	}
	context.JSON(http.StatusBadRequest, envelope)
}

// InternalFailure logs the error under the event name and writes a generic 500.
func (responder *Responder) InternalFailure(context *gin.Context, event string, err error) {
	responder.logger.Warn(event, zap.Error(err), zap.String("path", context.Request.URL.Path))
	envelope := failureEnvelope{Success: false, Message: messageInternalError}
	if responder.development && err != nil {
		envelope.Error = err.Error()
	}
	context.JSON(http.StatusInternalServerError, envelope)
}

// NotFound answers requests for unknown routes.
func (responder *Responder) NotFound(context *gin.Context) {
	responder.Failure(context, http.StatusNotFound, messageNotFound)
}

// AbortFailure writes a failure envelope and stops the handler chain.
func (responder *Responder) AbortFailure(context *gin.Context, status int, message string) {
	context.AbortWithStatusJSON(status, failureEnvelope{Success: false, Message: message})
}
