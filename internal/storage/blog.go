package storage

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/MarkoPoloResearchLab/societyhub/internal/model"
)

// BlogQuery filters and pages a listing of blog posts.
type BlogQuery struct {
	PublishedOnly bool
	Search        string
	Offset        int
	Limit         int
}

// BlogPage is one page of posts plus the total matching the filter.
type BlogPage struct {
	Posts []model.BlogPost
	Total int64
}

// BlogStore persists blog posts.
type BlogStore struct {
	database *gorm.DB
}

// NewBlogStore constructs a BlogStore over the provided database.
func NewBlogStore(database *gorm.DB) *BlogStore {
	return &BlogStore{database: database}
}

// Create inserts a new post. A slug collision yields ErrDuplicateRecord.
func (store *BlogStore) Create(ctx context.Context, post *model.BlogPost) error {
	return translateWriteError(store.database.WithContext(ctx).Create(post).Error)
}

// Save overwrites an existing post.
func (store *BlogStore) Save(ctx context.Context, post *model.BlogPost) error {
	return translateWriteError(store.database.WithContext(ctx).Save(post).Error)
}

// FindByID loads a post by identifier.
func (store *BlogStore) FindByID(ctx context.Context, postID string) (model.BlogPost, error) {
	var post model.BlogPost
	if err := store.database.WithContext(ctx).First(&post, "id = ?", postID).Error; err != nil {
		return model.BlogPost{}, translateNotFound(err)
	}
	return post, nil
}

// FindBySlug loads a post by slug.
func (store *BlogStore) FindBySlug(ctx context.Context, slug string, publishedOnly bool) (model.BlogPost, error) {
	statement := store.database.WithContext(ctx).Where("slug = ?", strings.ToLower(strings.TrimSpace(slug)))
	if publishedOnly {
		statement = statement.Where("published = ?", true)
	}
	var post model.BlogPost
	if err := statement.First(&post).Error; err != nil {
		return model.BlogPost{}, translateNotFound(err)
	}
	return post, nil
}

// List returns the newest posts matching the query.
func (store *BlogStore) List(ctx context.Context, query BlogQuery) (BlogPage, error) {
	filtered := func() *gorm.DB {
		statement := store.database.WithContext(ctx).Model(&model.BlogPost{})
		if query.PublishedOnly {
			statement = statement.Where("published = ?", true)
		}
		return applySearch(statement, query.Search, "title_en", "title_zh", "summary_en", "summary_zh")
	}

	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		return BlogPage{}, err
	}

	posts := make([]model.BlogPost, 0)
	if err := paginate(filtered().Order("COALESCE(published_at, created_at) DESC").Order("id DESC"), query.Offset, query.Limit).
		Find(&posts).Error; err != nil {
		return BlogPage{}, err
	}
	return BlogPage{Posts: posts, Total: total}, nil
}

// Delete removes a post permanently.
func (store *BlogStore) Delete(ctx context.Context, postID string) error {
	result := store.database.WithContext(ctx).Where("id = ?", postID).Delete(&model.BlogPost{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}
