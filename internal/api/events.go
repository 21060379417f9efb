package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MarkoPoloResearchLab/societyhub/internal/model"
	"github.com/MarkoPoloResearchLab/societyhub/internal/ratelimit"
	"github.com/MarkoPoloResearchLab/societyhub/internal/storage"
)

const (
	messageEventNotFound        = "Event not found"
	messageRegistrationNotFound = "Registration not found"
	messageAlreadyRegistered    = "This email is already registered for the event"
	messageEventFull            = "The event is full"
	registrationRateLimitScope  = "registration"
)

// EventHandlers serves the public event listing, attendee registration and the admin event editor.
type EventHandlers struct {
	logger    *zap.Logger
	store     *storage.EventStore
	limiter   ratelimit.Limiter
	recorder  RejectionRecorder
	responder *Responder
	clock     clock
}

// NewEventHandlers constructs EventHandlers. A nil limiter admits every registration.
func NewEventHandlers(logger *zap.Logger, store *storage.EventStore, limiter ratelimit.Limiter, recorder RejectionRecorder, responder *Responder, now func() time.Time) *EventHandlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventHandlers{
		logger:    logger,
		store:     store,
		limiter:   limiter,
		recorder:  recorder,
		responder: responder,
		clock:     now,
	}
}

// ListPublished returns published events, soonest first when upcoming=true.
func (handlers *EventHandlers) ListPublished(context *gin.Context) {
	handlers.list(context, true)
}

// ListAll returns every event including drafts.
func (handlers *EventHandlers) ListAll(context *gin.Context) {
	handlers.list(context, false)
}

func (handlers *EventHandlers) list(context *gin.Context, publishedOnly bool) {
	request := paginationFromQuery(context)
	page, listErr := handlers.store.List(context.Request.Context(), storage.EventQuery{
		PublishedOnly: publishedOnly,
		Upcoming:      parseBoolQuery(context.Query("upcoming"), false),
		Now:           handlers.clock.now(),
		Search:        context.Query("search"),
		Offset:        request.Offset(),
		Limit:         request.Limit,
	})
	if listErr != nil {
		handlers.responder.InternalFailure(context, "event_list_failed", listErr)
		return
	}
	handlers.responder.Success(context, http.StatusOK, newPagedResponse(page.Events, request, page.Total))
}

// GetPublished returns one published event by identifier or slug.
func (handlers *EventHandlers) GetPublished(context *gin.Context) {
	event, findErr := handlers.store.FindByReference(context.Request.Context(), context.Param("ref"), true)
	if findErr != nil {
		writeStoreError(context, handlers.responder, "event_get_failed", messageEventNotFound, findErr)
		return
	}
	handlers.responder.Success(context, http.StatusOK, event)
}

// Register signs an attendee up for a published event.
func (handlers *EventHandlers) Register(context *gin.Context) {
	var payload model.RegistrationInput
	if bindErr := context.ShouldBindJSON(&payload); bindErr != nil {
		handlers.responder.Failure(context, http.StatusBadRequest, messageInvalidJSON)
		return
	}
	clientAddress := ClientAddress(context)
	payload.IPAddress = clientAddress

	event, findErr := handlers.store.FindByReference(context.Request.Context(), context.Param("ref"), true)
	if findErr != nil {
		writeStoreError(context, handlers.responder, "event_get_failed", messageEventNotFound, findErr)
		return
	}

	registration, validationErr := model.NewEventRegistration(event.ID, payload)
	if validationErr != nil {
		handlers.responder.ValidationFailure(context, validationErr)
		return
	}

	if handlers.limiter != nil && !handlers.limiter.TryConsume(clientAddress) {
		if handlers.recorder != nil {
			handlers.recorder.RecordRateLimitRejection(registrationRateLimitScope)
		}
		handlers.responder.Failure(context, http.StatusTooManyRequests, messageRateLimited)
		return
	}

	registerErr := handlers.store.Register(context.Request.Context(), event, &registration)
	switch {
	case registerErr == nil:
	case errors.Is(registerErr, storage.ErrDuplicateRecord):
		handlers.responder.Failure(context, http.StatusConflict, messageAlreadyRegistered)
		return
	case errors.Is(registerErr, storage.ErrEventFull):
		handlers.responder.Failure(context, http.StatusConflict, messageEventFull)
		return
	default:
		handlers.responder.InternalFailure(context, "event_register_failed", registerErr)
		return
	}

	handlers.logger.Info("event_registration_stored", zap.String("event_id", event.ID), zap.String("registration_id", registration.ID))
	handlers.responder.Success(context, http.StatusCreated, registration)
}

// Create adds a new event.
func (handlers *EventHandlers) Create(context *gin.Context) {
	var payload model.EventInput
	if bindErr := context.ShouldBindJSON(&payload); bindErr != nil {
		handlers.responder.Failure(context, http.StatusBadRequest, messageInvalidJSON)
		return
	}
	event, buildErr := model.NewEvent(payload)
	if buildErr != nil {
		handlers.responder.ValidationFailure(context, buildErr)
		return
	}
	if createErr := handlers.store.Create(context.Request.Context(), &event); createErr != nil {
		writeStoreError(context, handlers.responder, "event_create_failed", messageEventNotFound, createErr)
		return
	}
	handlers.responder.Success(context, http.StatusCreated, event)
}

// Update overwrites the editable fields of an event.
func (handlers *EventHandlers) Update(context *gin.Context) {
	eventID, ok := requireIdentifier(context, handlers.responder, "id")
	if !ok {
		return
	}
	var payload model.EventInput
	if bindErr := context.ShouldBindJSON(&payload); bindErr != nil {
		handlers.responder.Failure(context, http.StatusBadRequest, messageInvalidJSON)
		return
	}
	event, findErr := handlers.store.FindByID(context.Request.Context(), eventID)
	if findErr != nil {
		writeStoreError(context, handlers.responder, "event_get_failed", messageEventNotFound, findErr)
		return
	}
	if applyErr := event.Apply(payload); applyErr != nil {
		handlers.responder.ValidationFailure(context, applyErr)
		return
	}
	if saveErr := handlers.store.Save(context.Request.Context(), &event); saveErr != nil {
		writeStoreError(context, handlers.responder, "event_update_failed", messageEventNotFound, saveErr)
		return
	}
	handlers.responder.Success(context, http.StatusOK, event)
}

// Delete removes an event and its registrations.
func (handlers *EventHandlers) Delete(context *gin.Context) {
	eventID, ok := requireIdentifier(context, handlers.responder, "id")
	if !ok {
		return
	}
	if deleteErr := handlers.store.Delete(context.Request.Context(), eventID); deleteErr != nil {
		writeStoreError(context, handlers.responder, "event_delete_failed", messageEventNotFound, deleteErr)
		return
	}
	handlers.responder.Success(context, http.StatusOK, nil)
}

// ListRegistrations returns the attendees of an event.
func (handlers *EventHandlers) ListRegistrations(context *gin.Context) {
	eventID, ok := requireIdentifier(context, handlers.responder, "id")
	if !ok {
		return
	}
	if _, findErr := handlers.store.FindByID(context.Request.Context(), eventID); findErr != nil {
		writeStoreError(context, handlers.responder, "event_get_failed", messageEventNotFound, findErr)
		return
	}
	registrations, listErr := handlers.store.ListRegistrations(context.Request.Context(), eventID)
	if listErr != nil {
		handlers.responder.InternalFailure(context, "event_registrations_failed", listErr)
		return
	}
	handlers.responder.Success(context, http.StatusOK, registrations)
}

// DeleteRegistration removes one attendee from an event.
func (handlers *EventHandlers) DeleteRegistration(context *gin.Context) {
	eventID, ok := requireIdentifier(context, handlers.responder, "id")
	if !ok {
		return
	}
	registrationID, ok := requireIdentifier(context, handlers.responder, "registrationId")
	if !ok {
		return
	}
	if deleteErr := handlers.store.DeleteRegistration(context.Request.Context(), eventID, registrationID); deleteErr != nil {
		writeStoreError(context, handlers.responder, "event_registration_delete_failed", messageRegistrationNotFound, deleteErr)
		return
	}
	handlers.responder.Success(context, http.StatusOK, nil)
}
