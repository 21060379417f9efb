// Package contact accepts public contact submissions and drives their moderation.
package contact

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/MarkoPoloResearchLab/societyhub/internal/model"
	"github.com/MarkoPoloResearchLab/societyhub/internal/notifications"
	"github.com/MarkoPoloResearchLab/societyhub/internal/pagination"
	"github.com/MarkoPoloResearchLab/societyhub/internal/ratelimit"
	"github.com/MarkoPoloResearchLab/societyhub/internal/storage"
)

const (
	// StatusFilterAll lists submissions regardless of status.
	StatusFilterAll = "all"

	rateLimitScope = "contact"
)

var (
	ErrRateLimited         = errors.New("contact: too many submissions, try again later")
	ErrInvalidIdentifier   = errors.New("contact: invalid submission identifier")
	ErrSubmissionNotFound  = errors.New("contact: submission not found")
	ErrInvalidStatusFilter = errors.New("contact: invalid status filter")
	errMissingStore        = errors.New("contact: store is required")
)

// Store is the persistence the service depends on.
type Store interface {
	Create(ctx context.Context, submission *model.ContactSubmission) error
	FindByID(ctx context.Context, submissionID string) (model.ContactSubmission, error)
	MarkRead(ctx context.Context, submissionID string, at time.Time) (bool, error)
	ApplyModeration(ctx context.Context, submissionID string, update storage.ContactModerationUpdate) error
	Delete(ctx context.Context, submissionID string) error
	List(ctx context.Context, query storage.ContactQuery) (storage.ContactPage, error)
	CountByStatus(ctx context.Context) (map[string]int64, error)
}

// RejectionRecorder counts attempts turned away by the rate limiter.
type RejectionRecorder interface {
	RecordRateLimitRejection(scope string)
}

// Receipt acknowledges a stored submission.
type Receipt struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

// ListQuery selects a page of submissions for the admin inbox.
type ListQuery struct {
	Status string
	Search string
	Page   int
	Limit  int
}

// ListResult is one inbox page together with per-status totals across all submissions.
type ListResult struct {
	Submissions  []model.ContactSubmission `json:"contacts"`
	Pagination   pagination.Summary        `json:"pagination"`
	StatusCounts map[string]int64          `json:"statusCounts"`
}

// Option customizes a Service.
type Option func(*Service)

// WithClock overrides the time source for timestamps.
func WithClock(clock func() time.Time) Option {
	return func(service *Service) {
		if clock != nil {
			service.now = clock
		}
	}
}

// WithRejectionRecorder reports rate-limited submissions.
func WithRejectionRecorder(recorder RejectionRecorder) Option {
	return func(service *Service) {
		service.recorder = recorder
	}
}

// Service implements submission intake and the moderation workflow.
type Service struct {
	logger     *zap.Logger
	store      Store
	limiter    ratelimit.Limiter
	dispatcher notifications.Dispatcher
	recorder   RejectionRecorder
	now        func() time.Time
}

// NewService wires the intake pipeline. A nil limiter admits everything and a nil dispatcher skips notification.
func NewService(logger *zap.Logger, store Store, limiter ratelimit.Limiter, dispatcher notifications.Dispatcher, options ...Option) (*Service, error) {
	if store == nil {
		return nil, errMissingStore
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if limiter == nil {
		limiter = unlimited{}
	}
	if dispatcher == nil {
		dispatcher = notifications.NewContactDispatcher(logger, nil, notifications.ContactDispatcherConfig{}, nil)
	}

	service := &Service{
		logger:     logger,
		store:      store,
		limiter:    limiter,
		dispatcher: dispatcher,
		now:        time.Now,
	}
	for _, option := range options {
		if option != nil {
			option(service)
		}
	}
	return service, nil
}

// Submit validates, rate-limits, stores and announces a submission, in that order.
// Invalid input never consumes rate-limit budget, and notification failures never fail the submission.
func (service *Service) Submit(ctx context.Context, input model.ContactSubmissionInput) (Receipt, error) {
	submission, validationErr := model.NewContactSubmission(input)
	if validationErr != nil {
		return Receipt{}, validationErr
	}

	if !service.limiter.TryConsume(submission.IPAddress) {
		if service.recorder != nil {
			service.recorder.RecordRateLimitRejection(rateLimitScope)
		}
		service.logger.Info("contact_rate_limited", zap.String("ip", submission.IPAddress))
		return Receipt{}, ErrRateLimited
	}

	now := service.now().UTC()
	submission.CreatedAt = now
	submission.UpdatedAt = now
	if createErr := service.store.Create(ctx, &submission); createErr != nil {
		return Receipt{}, fmt.Errorf("store contact submission: %w", createErr)
	}
	service.logger.Info("contact_submission_stored", zap.String("submission_id", submission.ID))

	service.dispatcher.NotifyContact(context.WithoutCancel(ctx), submission)

	return Receipt{ID: submission.ID, Timestamp: submission.CreatedAt}, nil
}

// List returns a page of the inbox, newest first.
func (service *Service) List(ctx context.Context, query ListQuery) (ListResult, error) {
	status := strings.ToLower(strings.TrimSpace(query.Status))
	if status == StatusFilterAll {
		status = ""
	}
	if status != "" && !model.IsContactStatus(status) {
		return ListResult{}, ErrInvalidStatusFilter
	}

	request := pagination.Normalize(query.Page, query.Limit)
	page, listErr := service.store.List(ctx, storage.ContactQuery{
		Status: status,
		Search: query.Search,
		Offset: request.Offset(),
		Limit:  request.Limit,
	})
	if listErr != nil {
		return ListResult{}, fmt.Errorf("list contact submissions: %w", listErr)
	}

	counts, countErr := service.store.CountByStatus(ctx)
	if countErr != nil {
		return ListResult{}, fmt.Errorf("count contact submissions: %w", countErr)
	}

	return ListResult{
		Submissions:  page.Submissions,
		Pagination:   request.Summarize(page.Total),
		StatusCounts: counts,
	}, nil
}

// Get loads a submission without changing it.
func (service *Service) Get(ctx context.Context, submissionID string) (model.ContactSubmission, error) {
	normalizedID, idErr := normalizeIdentifier(submissionID)
	if idErr != nil {
		return model.ContactSubmission{}, idErr
	}
	submission, findErr := service.store.FindByID(ctx, normalizedID)
	if findErr != nil {
		return model.ContactSubmission{}, translateStoreError(findErr)
	}
	return submission, nil
}

// FetchAndMarkRead loads a submission for an admin and moves it from new to read.
// Submissions in any other status are returned unchanged.
func (service *Service) FetchAndMarkRead(ctx context.Context, submissionID string) (model.ContactSubmission, error) {
	submission, getErr := service.Get(ctx, submissionID)
	if getErr != nil {
		return model.ContactSubmission{}, getErr
	}
	if submission.Status != model.ContactStatusNew {
		return submission, nil
	}

	now := service.now().UTC()
	changed, markErr := service.store.MarkRead(ctx, submission.ID, now)
	if markErr != nil {
		return model.ContactSubmission{}, fmt.Errorf("mark contact submission read: %w", markErr)
	}
	if changed {
		submission.Status = model.ContactStatusRead
		submission.UpdatedAt = now
	}
	return submission, nil
}

// UpdateStatus relabels a submission. Entering responded with a response stores it and stamps
// respondedAt the first time; a response sent with any other status is ignored.
func (service *Service) UpdateStatus(ctx context.Context, submissionID string, input model.ContactModerationInput) (model.ContactSubmission, error) {
	normalizedID, idErr := normalizeIdentifier(submissionID)
	if idErr != nil {
		return model.ContactSubmission{}, idErr
	}
	moderation := input.Normalized()
	if validationErr := moderation.Validate(); validationErr != nil {
		return model.ContactSubmission{}, validationErr
	}

	now := service.now().UTC()
	update := storage.ContactModerationUpdate{
		Status:    moderation.Status,
		UpdatedAt: now,
	}
	if moderation.AttachesResponse() {
		update.Response = &moderation.Response
		update.RespondedAt = &now
	}

	if applyErr := service.store.ApplyModeration(ctx, normalizedID, update); applyErr != nil {
		return model.ContactSubmission{}, translateStoreError(applyErr)
	}
	service.logger.Info("contact_status_updated", zap.String("submission_id", normalizedID), zap.String("status", moderation.Status))

	updated, findErr := service.store.FindByID(ctx, normalizedID)
	if findErr != nil {
		return model.ContactSubmission{}, translateStoreError(findErr)
	}
	return updated, nil
}

// Delete removes a submission permanently.
func (service *Service) Delete(ctx context.Context, submissionID string) error {
	normalizedID, idErr := normalizeIdentifier(submissionID)
	if idErr != nil {
		return idErr
	}
	if deleteErr := service.store.Delete(ctx, normalizedID); deleteErr != nil {
		return translateStoreError(deleteErr)
	}
	service.logger.Info("contact_submission_deleted", zap.String("submission_id", normalizedID))
	return nil
}

func normalizeIdentifier(submissionID string) (string, error) {
	normalizedID := strings.ToLower(strings.TrimSpace(submissionID))
	if !storage.IsValidID(normalizedID) {
		return "", ErrInvalidIdentifier
	}
	return normalizedID, nil
}

func translateStoreError(err error) error {
	if errors.Is(err, storage.ErrRecordNotFound) {
		return ErrSubmissionNotFound
	}
	return err
}

type unlimited struct{}

func (unlimited) TryConsume(string) bool {
	return true
}
