// Package notifications alerts society staff about new activity.
package notifications

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/MarkoPoloResearchLab/societyhub/internal/model"
)

const (
	OutcomeSent    = "sent"
	OutcomeFailed  = "failed"
	OutcomeSkipped = "skipped"

	defaultNotificationTimeout = 10 * time.Second
)

// Dispatcher informs staff about a stored contact submission.
// Delivery is best effort: failures are logged and never returned.
type Dispatcher interface {
	NotifyContact(ctx context.Context, submission model.ContactSubmission)
}

// OutcomeRecorder observes the result of each dispatch attempt.
type OutcomeRecorder interface {
	RecordNotificationOutcome(outcome string)
}

// ContactDispatcherConfig describes where contact notifications go.
type ContactDispatcherConfig struct {
	Recipient string
	Timeout   time.Duration
}

// ContactDispatcher emails the configured staff address about each submission.
type ContactDispatcher struct {
	logger    *zap.Logger
	sender    EmailSender
	recipient string
	timeout   time.Duration
	recorder  OutcomeRecorder
}

// NewContactDispatcher returns an email-backed dispatcher, or a disabled one when no sender or recipient is configured.
func NewContactDispatcher(logger *zap.Logger, sender EmailSender, cfg ContactDispatcherConfig, recorder OutcomeRecorder) Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	recipient := strings.TrimSpace(cfg.Recipient)
	if sender == nil || recipient == "" {
		return &disabledDispatcher{logger: logger, recorder: recorder}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultNotificationTimeout
	}
	return &ContactDispatcher{
		logger:    logger,
		sender:    sender,
		recipient: recipient,
		timeout:   timeout,
		recorder:  recorder,
	}
}

// NotifyContact makes a single bounded delivery attempt.
func (dispatcher *ContactDispatcher) NotifyContact(ctx context.Context, submission model.ContactSubmission) {
	outcome := OutcomeFailed
	defer func() {
		if recovered := recover(); recovered != nil {
			dispatcher.logger.Error("contact_notification_panic", zap.Any("panic", recovered), zap.String("submission_id", submission.ID))
			outcome = OutcomeFailed
		}
		recordOutcome(dispatcher.recorder, outcome)
	}()

	if ctx == nil {
		ctx = context.Background()
	}
	sendCtx, cancel := context.WithTimeout(ctx, dispatcher.timeout)
	defer cancel()

	subject, body := composeContactNotification(submission)
	if sendErr := dispatcher.sender.SendEmail(sendCtx, dispatcher.recipient, subject, body); sendErr != nil {
		dispatcher.logger.Warn("contact_notification_failed", zap.Error(sendErr), zap.String("submission_id", submission.ID))
		return
	}
	outcome = OutcomeSent
	dispatcher.logger.Info("contact_notification_sent", zap.String("submission_id", submission.ID))
}

type disabledDispatcher struct {
	logger   *zap.Logger
	recorder OutcomeRecorder
}

func (dispatcher *disabledDispatcher) NotifyContact(ctx context.Context, submission model.ContactSubmission) {
	dispatcher.logger.Info("contact_notification_skipped", zap.String("submission_id", submission.ID))
	recordOutcome(dispatcher.recorder, OutcomeSkipped)
}

func recordOutcome(recorder OutcomeRecorder, outcome string) {
	if recorder == nil {
		return
	}
	recorder.RecordNotificationOutcome(outcome)
}

func composeContactNotification(submission model.ContactSubmission) (string, string) {
	subject := fmt.Sprintf("New contact message from %s", strings.TrimSpace(submission.Name))

	messageBuilder := &strings.Builder{}
	_, _ = fmt.Fprintf(messageBuilder, "A new message was submitted through the contact form.\n\n")
	_, _ = fmt.Fprintf(messageBuilder, "Name: %s\n", strings.TrimSpace(submission.Name))
	_, _ = fmt.Fprintf(messageBuilder, "Email: %s\n", strings.TrimSpace(submission.Email))
	if submission.InterestedEvent != "" {
		_, _ = fmt.Fprintf(messageBuilder, "Interested event: %s\n", strings.TrimSpace(submission.InterestedEvent))
	}
	if !submission.CreatedAt.IsZero() {
		_, _ = fmt.Fprintf(messageBuilder, "Received: %s\n", submission.CreatedAt.UTC().Format(time.RFC3339))
	}
	_, _ = fmt.Fprintf(messageBuilder, "\nMessage:\n%s\n", strings.TrimSpace(submission.Message))
	return subject, messageBuilder.String()
}
