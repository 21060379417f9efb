package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/MarkoPoloResearchLab/societyhub/internal/contact"
	"github.com/MarkoPoloResearchLab/societyhub/internal/model"
)

const (
	messageSubmissionNotFound = "Contact submission not found"
	messageInvalidStatus      = "Unknown status filter"
)

// ContactService is the intake and moderation workflow the contact handlers drive.
type ContactService interface {
	Submit(ctx context.Context, input model.ContactSubmissionInput) (contact.Receipt, error)
	List(ctx context.Context, query contact.ListQuery) (contact.ListResult, error)
	FetchAndMarkRead(ctx context.Context, submissionID string) (model.ContactSubmission, error)
	UpdateStatus(ctx context.Context, submissionID string, input model.ContactModerationInput) (model.ContactSubmission, error)
	Delete(ctx context.Context, submissionID string) error
}

// ContactHandlers serves the public contact form and the admin inbox.
type ContactHandlers struct {
	service   ContactService
	responder *Responder
}

// NewContactHandlers constructs ContactHandlers.
func NewContactHandlers(service ContactService, responder *Responder) *ContactHandlers {
	return &ContactHandlers{service: service, responder: responder}
}

type contactSubmissionRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Message         string `json:"message"`
	InterestedEvent string `json:"interestedEvent"`
}

// Submit accepts a public contact message.
func (handlers *ContactHandlers) Submit(context *gin.Context) {
	var payload contactSubmissionRequest
	if bindErr := context.ShouldBindJSON(&payload); bindErr != nil {
		handlers.responder.Failure(context, http.StatusBadRequest, messageInvalidJSON)
		return
	}

	receipt, submitErr := handlers.service.Submit(context.Request.Context(), model.ContactSubmissionInput{
		Name:            payload.Name,
		Email:           payload.Email,
		Message:         payload.Message,
		InterestedEvent: payload.InterestedEvent,
		IPAddress:       ClientAddress(context),
		UserAgent:       context.Request.UserAgent(),
	})
	if submitErr != nil {
		handlers.writeError(context, "contact_submit_failed", submitErr)
		return
	}
	handlers.responder.Success(context, http.StatusCreated, receipt)
}

// List returns one page of the inbox.
func (handlers *ContactHandlers) List(context *gin.Context) {
	page, _ := strconv.Atoi(context.Query("page"))
	limit, _ := strconv.Atoi(context.Query("limit"))
	result, listErr := handlers.service.List(context.Request.Context(), contact.ListQuery{
		Status: context.Query("status"),
		Search: context.Query("search"),
		Page:   page,
		Limit:  limit,
	})
	if listErr != nil {
		handlers.writeError(context, "contact_list_failed", listErr)
		return
	}
	handlers.responder.Success(context, http.StatusOK, result)
}

// Get returns one submission, marking it read when it was new.
func (handlers *ContactHandlers) Get(context *gin.Context) {
	submission, getErr := handlers.service.FetchAndMarkRead(context.Request.Context(), context.Param("id"))
	if getErr != nil {
		handlers.writeError(context, "contact_get_failed", getErr)
		return
	}
	handlers.responder.Success(context, http.StatusOK, submission)
}

// Update relabels a submission and optionally attaches a response.
func (handlers *ContactHandlers) Update(context *gin.Context) {
	var payload model.ContactModerationInput
	if bindErr := context.ShouldBindJSON(&payload); bindErr != nil {
		handlers.responder.Failure(context, http.StatusBadRequest, messageInvalidJSON)
		return
	}
	updated, updateErr := handlers.service.UpdateStatus(context.Request.Context(), context.Param("id"), payload)
	if updateErr != nil {
		handlers.writeError(context, "contact_update_failed", updateErr)
		return
	}
	handlers.responder.Success(context, http.StatusOK, updated)
}

// Delete removes a submission permanently.
func (handlers *ContactHandlers) Delete(context *gin.Context) {
	if deleteErr := handlers.service.Delete(context.Request.Context(), context.Param("id")); deleteErr != nil {
		handlers.writeError(context, "contact_delete_failed", deleteErr)
		return
	}
	handlers.responder.Success(context, http.StatusOK, nil)
}

func (handlers *ContactHandlers) writeError(context *gin.Context, event string, err error) {
	var validationErr *model.ValidationError
	switch {
	case errors.As(err, &validationErr):
		handlers.responder.ValidationFailure(context, err)
	case errors.Is(err, contact.ErrRateLimited):
		handlers.responder.Failure(context, http.StatusTooManyRequests, messageRateLimited)
	case errors.Is(err, contact.ErrInvalidIdentifier):
		handlers.responder.Failure(context, http.StatusBadRequest, messageInvalidIdentifier)
	case errors.Is(err, contact.ErrInvalidStatusFilter):
		handlers.responder.Failure(context, http.StatusBadRequest, messageInvalidStatus)
	case errors.Is(err, contact.ErrSubmissionNotFound):
		handlers.responder.Failure(context, http.StatusNotFound, messageSubmissionNotFound)
	default:
		handlers.responder.InternalFailure(context, event, err)
	}
}
