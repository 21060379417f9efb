package model

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	ContactStatusNew       = "new"
	ContactStatusRead      = "read"
	ContactStatusResponded = "responded"
	ContactStatusArchived  = "archived"

	contactIPAddressMaxLength = 64
	contactUserAgentMaxLength = 400
)

var (
	ErrMissingContactFields     = errors.New("missing_contact_fields")
	ErrInvalidContactSubmission = errors.New("invalid_contact_submission")
	ErrInvalidContactModeration = errors.New("invalid_contact_moderation")
)

// ContactStatuses lists the moderation labels in display order.
var ContactStatuses = []string{
	ContactStatusNew,
	ContactStatusRead,
	ContactStatusResponded,
	ContactStatusArchived,
}

// ContactSubmission is one inbound contact-form message plus its moderation metadata.
type ContactSubmission struct {
	ID              string     `gorm:"primaryKey;size:36" json:"id"`
	Name            string     `gorm:"not null;size:100" json:"name"`
	Email           string     `gorm:"not null;size:320;index" json:"email"`
	Message         string     `gorm:"not null;size:2000" json:"message"`
	InterestedEvent string     `gorm:"not null;size:200" json:"interestedEvent"`
	Status          string     `gorm:"not null;size:16;index" json:"status"`
	IPAddress       string     `gorm:"size:64" json:"ipAddress"`
	UserAgent       string     `gorm:"size:400" json:"userAgent"`
	Response        string     `gorm:"size:2000" json:"response"`
	RespondedAt     *time.Time `json:"respondedAt"`
	CreatedAt       time.Time  `gorm:"autoCreateTime;index" json:"createdAt"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`
}

// ContactSubmissionInput holds the raw values used to construct a ContactSubmission.
// IPAddress and UserAgent come from the request, never from the payload.
type ContactSubmissionInput struct {
	Name            string `json:"name" validate:"required,max=100"`
	Email           string `json:"email" validate:"required,max=320,email"`
	Message         string `json:"message" validate:"required,max=2000"`
	InterestedEvent string `json:"interestedEvent" validate:"max=200"`
	IPAddress       string `json:"-"`
	UserAgent       string `json:"-"`
}

// Normalized trims every field and lower-cases the email address.
func (input ContactSubmissionInput) Normalized() ContactSubmissionInput {
	return ContactSubmissionInput{
		Name:            strings.TrimSpace(input.Name),
		Email:           strings.ToLower(strings.TrimSpace(input.Email)),
		Message:         strings.TrimSpace(input.Message),
		InterestedEvent: strings.TrimSpace(input.InterestedEvent),
		IPAddress:       truncateRunes(strings.TrimSpace(input.IPAddress), contactIPAddressMaxLength),
		UserAgent:       truncateRunes(strings.TrimSpace(input.UserAgent), contactUserAgentMaxLength),
	}
}

// MissingFields reports the required fields that are empty after trimming.
func (input ContactSubmissionInput) MissingFields() []string {
	var missing []string
	if strings.TrimSpace(input.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(input.Email) == "" {
		missing = append(missing, "email")
	}
	if strings.TrimSpace(input.Message) == "" {
		missing = append(missing, "message")
	}
	return missing
}

// NewContactSubmission validates the input and returns a submission in the new state.
// Values beyond their bounds are rejected rather than truncated.
func NewContactSubmission(input ContactSubmissionInput) (ContactSubmission, error) {
	normalized := input.Normalized()

	if missing := normalized.MissingFields(); len(missing) > 0 {
		details := make([]string, 0, len(missing))
		for _, fieldName := range missing {
			details = append(details, fieldName+" is required")
		}
		return ContactSubmission{}, newValidationError(ErrMissingContactFields, details...)
	}

	if validationErr := validateStruct(ErrInvalidContactSubmission, normalized); validationErr != nil {
		return ContactSubmission{}, validationErr
	}

	return ContactSubmission{
		ID:              uuid.NewString(),
		Name:            normalized.Name,
		Email:           normalized.Email,
		Message:         normalized.Message,
		InterestedEvent: normalized.InterestedEvent,
		Status:          ContactStatusNew,
		IPAddress:       normalized.IPAddress,
		UserAgent:       normalized.UserAgent,
	}, nil
}

// ContactModerationInput is an admin relabeling of a submission, optionally carrying a response.
type ContactModerationInput struct {
	Status   string `json:"status" validate:"required,oneof=new read responded archived"`
	Response string `json:"response" validate:"max=2000"`
}

// Normalized trims both fields and lower-cases the status label.
func (input ContactModerationInput) Normalized() ContactModerationInput {
	return ContactModerationInput{
		Status:   strings.ToLower(strings.TrimSpace(input.Status)),
		Response: strings.TrimSpace(input.Response),
	}
}

// Validate checks the status label and response bounds.
func (input ContactModerationInput) Validate() error {
	return validateStruct(ErrInvalidContactModeration, input)
}

// AttachesResponse reports whether the moderation carries a response that must be stored.
// A response sent with any status other than responded is ignored.
func (input ContactModerationInput) AttachesResponse() bool {
	return input.Status == ContactStatusResponded && input.Response != ""
}

// IsContactStatus reports whether the label is one of the four moderation statuses.
func IsContactStatus(status string) bool {
	for _, knownStatus := range ContactStatuses {
		if status == knownStatus {
			return true
		}
	}
	return false
}
