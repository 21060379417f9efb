package model

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidGalleryItem = errors.New("invalid_gallery_item")

// GalleryItem is a photo from a society activity, referenced by its hosted URL.
type GalleryItem struct {
	ID        string     `gorm:"primaryKey;size:36" json:"id"`
	ImageURL  string     `gorm:"not null;size:1000" json:"imageUrl"`
	CaptionEn string     `gorm:"size:300" json:"captionEn"`
	CaptionZh string     `gorm:"size:300" json:"captionZh"`
	Category  string     `gorm:"size:60;index" json:"category"`
	EventID   string     `gorm:"size:36;index" json:"eventId"`
	TakenAt   *time.Time `json:"takenAt"`
	CreatedAt time.Time  `gorm:"autoCreateTime;index" json:"createdAt"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`
}

// GalleryItemInput carries the editable fields of a GalleryItem.
type GalleryItemInput struct {
	ImageURL  string     `json:"imageUrl" validate:"required,max=1000,http_url"`
	CaptionEn string     `json:"captionEn" validate:"max=300"`
	CaptionZh string     `json:"captionZh" validate:"max=300"`
	Category  string     `json:"category" validate:"max=60"`
	EventID   string     `json:"eventId" validate:"omitempty,uuid"`
	TakenAt   *time.Time `json:"takenAt"`
}

// NewGalleryItem validates the input and returns an item with a fresh identifier.
func NewGalleryItem(input GalleryItemInput) (GalleryItem, error) {
	item := GalleryItem{ID: uuid.NewString()}
	if applyErr := item.Apply(input); applyErr != nil {
		return GalleryItem{}, applyErr
	}
	return item, nil
}

// Apply validates the input and overwrites the editable fields of the item.
func (item *GalleryItem) Apply(input GalleryItemInput) error {
	normalized := GalleryItemInput{
		ImageURL:  strings.TrimSpace(input.ImageURL),
		CaptionEn: strings.TrimSpace(input.CaptionEn),
		CaptionZh: strings.TrimSpace(input.CaptionZh),
		Category:  strings.ToLower(strings.TrimSpace(input.Category)),
		EventID:   strings.TrimSpace(input.EventID),
		TakenAt:   input.TakenAt,
	}
	if validationErr := validateStruct(ErrInvalidGalleryItem, normalized); validationErr != nil {
		return validationErr
	}

	item.ImageURL = normalized.ImageURL
	item.CaptionEn = normalized.CaptionEn
	item.CaptionZh = normalized.CaptionZh
	item.Category = normalized.Category
	item.EventID = normalized.EventID
	item.TakenAt = normalized.TakenAt
	return nil
}
