package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/MarkoPoloResearchLab/societyhub/internal/model"
)

// ErrEventFull indicates the event has reached its registration capacity.
var ErrEventFull = errors.New("storage: event capacity reached")

// EventQuery filters and pages a listing of events.
type EventQuery struct {
	PublishedOnly bool
	Upcoming      bool
	Now           time.Time
	Search        string
	Offset        int
	Limit         int
}

// EventPage is one page of events plus the total matching the filter.
type EventPage struct {
	Events []model.Event
	Total  int64
}

// EventStore persists events and their registrations.
type EventStore struct {
	database *gorm.DB
}

// NewEventStore constructs an EventStore over the provided database.
func NewEventStore(database *gorm.DB) *EventStore {
	return &EventStore{database: database}
}

// Create inserts a new event. A slug collision yields ErrDuplicateRecord.
func (store *EventStore) Create(ctx context.Context, event *model.Event) error {
	return translateWriteError(store.database.WithContext(ctx).Create(event).Error)
}

// Save overwrites an existing event.
func (store *EventStore) Save(ctx context.Context, event *model.Event) error {
	return translateWriteError(store.database.WithContext(ctx).Save(event).Error)
}

// FindByID loads an event by identifier.
func (store *EventStore) FindByID(ctx context.Context, eventID string) (model.Event, error) {
	var event model.Event
	if err := store.database.WithContext(ctx).First(&event, "id = ?", eventID).Error; err != nil {
		return model.Event{}, translateNotFound(err)
	}
	return event, nil
}

// FindByReference loads an event by identifier or slug.
func (store *EventStore) FindByReference(ctx context.Context, reference string, publishedOnly bool) (model.Event, error) {
	trimmedReference := strings.TrimSpace(reference)
	statement := store.database.WithContext(ctx)
	if IsValidID(trimmedReference) {
		statement = statement.Where("id = ?", trimmedReference)
	} else {
		statement = statement.Where("slug = ?", strings.ToLower(trimmedReference))
	}
	if publishedOnly {
		statement = statement.Where("published = ?", true)
	}

	var event model.Event
	if err := statement.First(&event).Error; err != nil {
		return model.Event{}, translateNotFound(err)
	}
	return event, nil
}

// List returns events matching the query. Upcoming listings are ordered soonest first, others newest first.
func (store *EventStore) List(ctx context.Context, query EventQuery) (EventPage, error) {
	filtered := func() *gorm.DB {
		statement := store.database.WithContext(ctx).Model(&model.Event{})
		if query.PublishedOnly {
			statement = statement.Where("published = ?", true)
		}
		if query.Upcoming {
			statement = statement.Where("starts_at >= ?", query.Now)
		}
		return applySearch(statement, query.Search, "title_en", "title_zh", "location")
	}

	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		return EventPage{}, err
	}

	ordering := "starts_at DESC"
	if query.Upcoming {
		ordering = "starts_at ASC"
	}
	events := make([]model.Event, 0)
	if err := paginate(filtered().Order(ordering).Order("id ASC"), query.Offset, query.Limit).Find(&events).Error; err != nil {
		return EventPage{}, err
	}
	return EventPage{Events: events, Total: total}, nil
}

// Delete removes an event together with its registrations.
func (store *EventStore) Delete(ctx context.Context, eventID string) error {
	return store.database.WithContext(ctx).Transaction(func(transaction *gorm.DB) error {
		if err := transaction.Where("event_id = ?", eventID).Delete(&model.EventRegistration{}).Error; err != nil {
			return err
		}
		result := transaction.Where("id = ?", eventID).Delete(&model.Event{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrRecordNotFound
		}
		return nil
	})
}

// CountRegistrations returns the number of registrations recorded for the event.
func (store *EventStore) CountRegistrations(ctx context.Context, eventID string) (int64, error) {
	var total int64
	err := store.database.WithContext(ctx).Model(&model.EventRegistration{}).Where("event_id = ?", eventID).Count(&total).Error
	return total, err
}

// Register inserts a registration when the event still has room.
// A second registration with the same email yields ErrDuplicateRecord; a full event yields ErrEventFull.
// The event row is locked for the duration of the check so concurrent sign-ups cannot overbook it.
func (store *EventStore) Register(ctx context.Context, event model.Event, registration *model.EventRegistration) error {
	return store.database.WithContext(ctx).Transaction(func(transaction *gorm.DB) error {
		var locked model.Event
		if err := transaction.Clauses(clause.Locking{Strength: "UPDATE"}).First(&locked, "id = ?", event.ID).Error; err != nil {
			return translateNotFound(err)
		}

		var existing int64
		if err := transaction.Model(&model.EventRegistration{}).
			Where("event_id = ? AND email = ?", locked.ID, registration.Email).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrDuplicateRecord
		}

		var registered int64
		if err := transaction.Model(&model.EventRegistration{}).Where("event_id = ?", locked.ID).Count(&registered).Error; err != nil {
			return err
		}
		if !locked.HasCapacityFor(registered) {
			return ErrEventFull
		}

		registration.EventID = locked.ID
		return translateWriteError(transaction.Create(registration).Error)
	})
}

// ListRegistrations returns the registrations of an event in sign-up order.
func (store *EventStore) ListRegistrations(ctx context.Context, eventID string) ([]model.EventRegistration, error) {
	registrations := make([]model.EventRegistration, 0)
	err := store.database.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&registrations).Error
	return registrations, err
}

// DeleteRegistration removes one registration of the event.
func (store *EventStore) DeleteRegistration(ctx context.Context, eventID string, registrationID string) error {
	result := store.database.WithContext(ctx).
		Where("id = ? AND event_id = ?", registrationID, eventID).
		Delete(&model.EventRegistration{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}
