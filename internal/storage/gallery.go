package storage

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/MarkoPoloResearchLab/societyhub/internal/model"
)

// GalleryQuery filters and pages a listing of gallery items.
type GalleryQuery struct {
	Category string
	EventID  string
	Offset   int
	Limit    int
}

// GalleryPage is one page of items plus the total matching the filter.
type GalleryPage struct {
	Items []model.GalleryItem
	Total int64
}

// GalleryStore persists gallery items.
type GalleryStore struct {
	database *gorm.DB
}

// NewGalleryStore constructs a GalleryStore over the provided database.
func NewGalleryStore(database *gorm.DB) *GalleryStore {
	return &GalleryStore{database: database}
}

func (store *GalleryStore) Create(ctx context.Context, item *model.GalleryItem) error {
	return store.database.WithContext(ctx).Create(item).Error
}

func (store *GalleryStore) Save(ctx context.Context, item *model.GalleryItem) error {
	return store.database.WithContext(ctx).Save(item).Error
}

func (store *GalleryStore) FindByID(ctx context.Context, itemID string) (model.GalleryItem, error) {
	var item model.GalleryItem
	if err := store.database.WithContext(ctx).First(&item, "id = ?", itemID).Error; err != nil {
		return model.GalleryItem{}, translateNotFound(err)
	}
	return item, nil
}

// List returns the newest items, optionally narrowed to one category or event.
func (store *GalleryStore) List(ctx context.Context, query GalleryQuery) (GalleryPage, error) {
	filtered := func() *gorm.DB {
		statement := store.database.WithContext(ctx).Model(&model.GalleryItem{})
		if category := strings.ToLower(strings.TrimSpace(query.Category)); category != "" {
			statement = statement.Where("category = ?", category)
		}
		if eventID := strings.TrimSpace(query.EventID); eventID != "" {
			statement = statement.Where("event_id = ?", eventID)
		}
		return statement
	}

	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		return GalleryPage{}, err
	}

	items := make([]model.GalleryItem, 0)
	if err := paginate(filtered().Order("created_at DESC").Order("id DESC"), query.Offset, query.Limit).Find(&items).Error; err != nil {
		return GalleryPage{}, err
	}
	return GalleryPage{Items: items, Total: total}, nil
}

func (store *GalleryStore) Delete(ctx context.Context, itemID string) error {
	result := store.database.WithContext(ctx).Where("id = ?", itemID).Delete(&model.GalleryItem{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}
