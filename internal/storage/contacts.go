package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/MarkoPoloResearchLab/societyhub/internal/model"
)

const likeEscapeCharacter = `\`

// ContactQuery filters and pages a listing of contact submissions.
type ContactQuery struct {
	Status string
	Search string
	Offset int
	Limit  int
}

// ContactPage is one page of submissions plus the total matching the filter.
type ContactPage struct {
	Submissions []model.ContactSubmission
	Total       int64
}

// ContactModerationUpdate describes the columns a moderation action changes.
// RespondedAt is only written when the stored value is still empty.
type ContactModerationUpdate struct {
	Status      string
	Response    *string
	RespondedAt *time.Time
	UpdatedAt   time.Time
}

// ContactStore persists contact submissions with gorm.
type ContactStore struct {
	database *gorm.DB
}

// NewContactStore constructs a ContactStore over the provided database.
func NewContactStore(database *gorm.DB) *ContactStore {
	return &ContactStore{database: database}
}

// Create inserts a new submission.
func (store *ContactStore) Create(ctx context.Context, submission *model.ContactSubmission) error {
	return store.database.WithContext(ctx).Create(submission).Error
}

// FindByID loads one submission or returns ErrRecordNotFound.
func (store *ContactStore) FindByID(ctx context.Context, submissionID string) (model.ContactSubmission, error) {
	var submission model.ContactSubmission
	if err := store.database.WithContext(ctx).First(&submission, "id = ?", submissionID).Error; err != nil {
		return model.ContactSubmission{}, translateNotFound(err)
	}
	return submission, nil
}

// MarkRead moves a submission from new to read. Submissions in any other status are left untouched.
func (store *ContactStore) MarkRead(ctx context.Context, submissionID string, at time.Time) (bool, error) {
	result := store.database.WithContext(ctx).
		Model(&model.ContactSubmission{}).
		Where("id = ? AND status = ?", submissionID, model.ContactStatusNew).
		Updates(map[string]any{
			"status":     model.ContactStatusRead,
			"updated_at": at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ApplyModeration writes a moderation update. A missing submission yields ErrRecordNotFound.
func (store *ContactStore) ApplyModeration(ctx context.Context, submissionID string, update ContactModerationUpdate) error {
	assignments := map[string]any{
		"status":     update.Status,
		"updated_at": update.UpdatedAt,
	}
	if update.Response != nil {
		assignments["response"] = *update.Response
	}
	if update.RespondedAt != nil {
		assignments["responded_at"] = gorm.Expr("COALESCE(responded_at, ?)", *update.RespondedAt)
	}

	result := store.database.WithContext(ctx).
		Model(&model.ContactSubmission{}).
		Where("id = ?", submissionID).
		Updates(assignments)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// Delete removes a submission permanently. A missing submission yields ErrRecordNotFound.
func (store *ContactStore) Delete(ctx context.Context, submissionID string) error {
	result := store.database.WithContext(ctx).Where("id = ?", submissionID).Delete(&model.ContactSubmission{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// List returns the newest submissions matching the query.
func (store *ContactStore) List(ctx context.Context, query ContactQuery) (ContactPage, error) {
	filtered := func() *gorm.DB {
		statement := store.database.WithContext(ctx).Model(&model.ContactSubmission{})
		if status := strings.TrimSpace(query.Status); status != "" {
			statement = statement.Where("status = ?", status)
		}
		return applySearch(statement, query.Search, "name", "email", "message", "interested_event")
	}

	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		return ContactPage{}, err
	}

	submissions := make([]model.ContactSubmission, 0)
	if err := paginate(filtered().Order("created_at DESC").Order("id DESC"), query.Offset, query.Limit).
		Find(&submissions).Error; err != nil {
		return ContactPage{}, err
	}

	return ContactPage{Submissions: submissions, Total: total}, nil
}

// CountByStatus returns the number of submissions per moderation status.
// Every known status is present in the result, zero when unused.
func (store *ContactStore) CountByStatus(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Status string
		Total  int64
	}
	if err := store.database.WithContext(ctx).
		Model(&model.ContactSubmission{}).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(model.ContactStatuses))
	for _, status := range model.ContactStatuses {
		counts[status] = 0
	}
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}

// applySearch restricts the statement to rows where any column contains the search term, case-insensitively.
func applySearch(statement *gorm.DB, search string, columns ...string) *gorm.DB {
	trimmedSearch := strings.TrimSpace(search)
	if trimmedSearch == "" || len(columns) == 0 {
		return statement
	}
	pattern := "%" + escapeLikePattern(strings.ToLower(trimmedSearch)) + "%"
	clauses := make([]string, 0, len(columns))
	arguments := make([]any, 0, len(columns))
	for _, column := range columns {
		clauses = append(clauses, fmt.Sprintf("LOWER(%s) LIKE ? ESCAPE '%s'", column, likeEscapeCharacter))
		arguments = append(arguments, pattern)
	}
	return statement.Where("("+strings.Join(clauses, " OR ")+")", arguments...)
}

func paginate(statement *gorm.DB, offset int, limit int) *gorm.DB {
	if offset > 0 {
		statement = statement.Offset(offset)
	}
	if limit > 0 {
		statement = statement.Limit(limit)
	}
	return statement
}

func escapeLikePattern(value string) string {
	replacer := strings.NewReplacer(
		likeEscapeCharacter, likeEscapeCharacter+likeEscapeCharacter,
		"%", likeEscapeCharacter+"%",
		"_", likeEscapeCharacter+"_",
	)
	return replacer.Replace(value)
}
