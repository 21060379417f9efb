package model

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	registrationIPAddressMaxLength = 64
	slugFallbackLength             = 8
)

var (
	ErrInvalidEvent        = errors.New("invalid_event")
	ErrInvalidRegistration = errors.New("invalid_registration")
)

var (
	slugPattern          = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
	slugSeparatorPattern = regexp.MustCompile(`[^a-z0-9]+`)
)

// Event is a society activity announced in both languages.
type Event struct {
	ID            string     `gorm:"primaryKey;size:36" json:"id"`
	Slug          string     `gorm:"uniqueIndex;not null;size:120" json:"slug"`
	TitleEn       string     `gorm:"not null;size:200" json:"titleEn"`
	TitleZh       string     `gorm:"size:200" json:"titleZh"`
	DescriptionEn string     `gorm:"type:text" json:"descriptionEn"`
	DescriptionZh string     `gorm:"type:text" json:"descriptionZh"`
	Location      string     `gorm:"size:300" json:"location"`
	StartsAt      time.Time  `gorm:"not null;index" json:"startsAt"`
	EndsAt        *time.Time `json:"endsAt"`
	Capacity      int        `gorm:"not null" json:"capacity"`
	ImageURL      string     `gorm:"size:1000" json:"imageUrl"`
	Published     bool       `gorm:"not null;index" json:"published"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`
}

// EventInput carries the editable fields of an Event.
type EventInput struct {
	Slug          string     `json:"slug" validate:"max=120"`
	TitleEn       string     `json:"titleEn" validate:"required,max=200"`
	TitleZh       string     `json:"titleZh" validate:"max=200"`
	DescriptionEn string     `json:"descriptionEn" validate:"max=20000"`
	DescriptionZh string     `json:"descriptionZh" validate:"max=20000"`
	Location      string     `json:"location" validate:"max=300"`
	StartsAt      time.Time  `json:"startsAt" validate:"required"`
	EndsAt        *time.Time `json:"endsAt"`
	Capacity      int        `json:"capacity" validate:"gte=0"`
	ImageURL      string     `json:"imageUrl" validate:"omitempty,max=1000,http_url"`
	Published     bool       `json:"published"`
}

// NewEvent validates the input and returns an Event with a fresh identifier.
func NewEvent(input EventInput) (Event, error) {
	event := Event{ID: uuid.NewString()}
	if applyErr := event.Apply(input); applyErr != nil {
		return Event{}, applyErr
	}
	return event, nil
}

// Apply validates the input and overwrites the editable fields of the event.
func (event *Event) Apply(input EventInput) error {
	normalized := EventInput{
		Slug:          strings.ToLower(strings.TrimSpace(input.Slug)),
		TitleEn:       strings.TrimSpace(input.TitleEn),
		TitleZh:       strings.TrimSpace(input.TitleZh),
		DescriptionEn: strings.TrimSpace(input.DescriptionEn),
		DescriptionZh: strings.TrimSpace(input.DescriptionZh),
		Location:      strings.TrimSpace(input.Location),
		StartsAt:      input.StartsAt,
		EndsAt:        input.EndsAt,
		Capacity:      input.Capacity,
		ImageURL:      strings.TrimSpace(input.ImageURL),
		Published:     input.Published,
	}
	if validationErr := validateStruct(ErrInvalidEvent, normalized); validationErr != nil {
		return validationErr
	}
	if normalized.EndsAt != nil && !normalized.EndsAt.After(normalized.StartsAt) {
		return newValidationError(ErrInvalidEvent, "endsAt must be after startsAt")
	}

	slug, slugErr := resolveSlug(normalized.Slug, normalized.TitleEn, event.ID)
	if slugErr != nil {
		return newValidationError(ErrInvalidEvent, slugErr.Error())
	}

	event.Slug = slug
	event.TitleEn = normalized.TitleEn
	event.TitleZh = normalized.TitleZh
	event.DescriptionEn = normalized.DescriptionEn
	event.DescriptionZh = normalized.DescriptionZh
	event.Location = normalized.Location
	event.StartsAt = normalized.StartsAt.UTC()
	if normalized.EndsAt != nil {
		endsAt := normalized.EndsAt.UTC()
		event.EndsAt = &endsAt
	} else {
		event.EndsAt = nil
	}
	event.Capacity = normalized.Capacity
	event.ImageURL = normalized.ImageURL
	event.Published = normalized.Published
	return nil
}

// HasCapacityFor reports whether another registration fits given the current count.
// A capacity of zero means unlimited.
func (event Event) HasCapacityFor(currentRegistrations int64) bool {
	if event.Capacity <= 0 {
		return true
	}
	return currentRegistrations < int64(event.Capacity)
}

// EventRegistration is one attendee sign-up for an event.
type EventRegistration struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	EventID   string    `gorm:"not null;size:36;uniqueIndex:idx_event_registrations_event_email" json:"eventId"`
	Name      string    `gorm:"not null;size:100" json:"name"`
	Email     string    `gorm:"not null;size:320;uniqueIndex:idx_event_registrations_event_email" json:"email"`
	StudentID string    `gorm:"size:50" json:"studentId"`
	Notes     string    `gorm:"size:1000" json:"notes"`
	IPAddress string    `gorm:"size:64" json:"ipAddress"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// RegistrationInput holds the raw values of a public event sign-up.
type RegistrationInput struct {
	Name      string `json:"name" validate:"required,max=100"`
	Email     string `json:"email" validate:"required,max=320,email"`
	StudentID string `json:"studentId" validate:"max=50"`
	Notes     string `json:"notes" validate:"max=1000"`
	IPAddress string `json:"-"`
}

// NewEventRegistration validates the input and returns a registration for the event.
func NewEventRegistration(eventID string, input RegistrationInput) (EventRegistration, error) {
	normalized := RegistrationInput{
		Name:      strings.TrimSpace(input.Name),
		Email:     strings.ToLower(strings.TrimSpace(input.Email)),
		StudentID: strings.TrimSpace(input.StudentID),
		Notes:     strings.TrimSpace(input.Notes),
		IPAddress: truncateRunes(strings.TrimSpace(input.IPAddress), registrationIPAddressMaxLength),
	}
	if validationErr := validateStruct(ErrInvalidRegistration, normalized); validationErr != nil {
		return EventRegistration{}, validationErr
	}

	return EventRegistration{
		ID:        uuid.NewString(),
		EventID:   strings.TrimSpace(eventID),
		Name:      normalized.Name,
		Email:     normalized.Email,
		StudentID: normalized.StudentID,
		Notes:     normalized.Notes,
		IPAddress: normalized.IPAddress,
	}, nil
}

// Slugify lower-cases the value and joins its ASCII letter and digit runs with hyphens.
func Slugify(value string) string {
	lowered := strings.ToLower(strings.TrimSpace(value))
	return strings.Trim(slugSeparatorPattern.ReplaceAllString(lowered, "-"), "-")
}

func resolveSlug(requestedSlug string, title string, identifier string) (string, error) {
	if requestedSlug != "" {
		if !slugPattern.MatchString(requestedSlug) {
			return "", errors.New("slug may contain only lower-case letters, digits and single hyphens")
		}
		return requestedSlug, nil
	}
	derived := Slugify(title)
	if derived != "" {
		return derived, nil
	}
	fallback := strings.ReplaceAll(identifier, "-", "")
	if len(fallback) > slugFallbackLength {
		fallback = fallback[:slugFallbackLength]
	}
	if fallback == "" {
		fallback = strings.ReplaceAll(uuid.NewString(), "-", "")[:slugFallbackLength]
	}
	return "item-" + fallback, nil
}
