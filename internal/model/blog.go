package model

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidBlogPost = errors.New("invalid_blog_post")

// BlogPost is a bilingual article whose bodies are stored as markdown.
type BlogPost struct {
	ID            string     `gorm:"primaryKey;size:36" json:"id"`
	Slug          string     `gorm:"uniqueIndex;not null;size:120" json:"slug"`
	TitleEn       string     `gorm:"not null;size:200" json:"titleEn"`
	TitleZh       string     `gorm:"size:200" json:"titleZh"`
	SummaryEn     string     `gorm:"size:500" json:"summaryEn"`
	SummaryZh     string     `gorm:"size:500" json:"summaryZh"`
	BodyEn        string     `gorm:"type:text" json:"bodyEn"`
	BodyZh        string     `gorm:"type:text" json:"bodyZh"`
	Author        string     `gorm:"size:100" json:"author"`
	CoverImageURL string     `gorm:"size:1000" json:"coverImageUrl"`
	Published     bool       `gorm:"not null;index" json:"published"`
	PublishedAt   *time.Time `gorm:"index" json:"publishedAt"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`
}

// BlogPostInput carries the editable fields of a BlogPost.
type BlogPostInput struct {
	Slug          string `json:"slug" validate:"max=120"`
	TitleEn       string `json:"titleEn" validate:"required,max=200"`
	TitleZh       string `json:"titleZh" validate:"max=200"`
	SummaryEn     string `json:"summaryEn" validate:"max=500"`
	SummaryZh     string `json:"summaryZh" validate:"max=500"`
	BodyEn        string `json:"bodyEn" validate:"required,max=100000"`
	BodyZh        string `json:"bodyZh" validate:"max=100000"`
	Author        string `json:"author" validate:"max=100"`
	CoverImageURL string `json:"coverImageUrl" validate:"omitempty,max=1000,http_url"`
	Published     bool   `json:"published"`
}

// NewBlogPost validates the input and returns a post with a fresh identifier.
func NewBlogPost(input BlogPostInput, now time.Time) (BlogPost, error) {
	post := BlogPost{ID: uuid.NewString()}
	if applyErr := post.Apply(input, now); applyErr != nil {
		return BlogPost{}, applyErr
	}
	return post, nil
}

// Apply validates the input and overwrites the editable fields of the post.
// PublishedAt is stamped the first time the post is published and kept afterwards.
func (post *BlogPost) Apply(input BlogPostInput, now time.Time) error {
	normalized := BlogPostInput{
		Slug:          strings.ToLower(strings.TrimSpace(input.Slug)),
		TitleEn:       strings.TrimSpace(input.TitleEn),
		TitleZh:       strings.TrimSpace(input.TitleZh),
		SummaryEn:     strings.TrimSpace(input.SummaryEn),
		SummaryZh:     strings.TrimSpace(input.SummaryZh),
		BodyEn:        strings.TrimSpace(input.BodyEn),
		BodyZh:        strings.TrimSpace(input.BodyZh),
		Author:        strings.TrimSpace(input.Author),
		CoverImageURL: strings.TrimSpace(input.CoverImageURL),
		Published:     input.Published,
	}
	if validationErr := validateStruct(ErrInvalidBlogPost, normalized); validationErr != nil {
		return validationErr
	}

	slug, slugErr := resolveSlug(normalized.Slug, normalized.TitleEn, post.ID)
	if slugErr != nil {
		return newValidationError(ErrInvalidBlogPost, slugErr.Error())
	}

	post.Slug = slug
	post.TitleEn = normalized.TitleEn
	post.TitleZh = normalized.TitleZh
	post.SummaryEn = normalized.SummaryEn
	post.SummaryZh = normalized.SummaryZh
	post.BodyEn = normalized.BodyEn
	post.BodyZh = normalized.BodyZh
	post.Author = normalized.Author
	post.CoverImageURL = normalized.CoverImageURL
	post.Published = normalized.Published
	if post.Published && post.PublishedAt == nil {
		publishedAt := now.UTC()
		post.PublishedAt = &publishedAt
	}
	return nil
}
