package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewBlogPostStampsPublishedAtOnce(t *testing.T) {
	firstPublish := time.Date(2026, time.February, 1, 8, 0, 0, 0, time.UTC)
	post, err := NewBlogPost(BlogPostInput{TitleEn: "Welcome Back", BodyEn: "# Hello", Published: true}, firstPublish)
	require.NoError(t, err)
	require.Equal(t, "welcome-back", post.Slug)
	require.NotNil(t, post.PublishedAt)
	require.True(t, firstPublish.Equal(*post.PublishedAt))

	require.NoError(t, post.Apply(BlogPostInput{TitleEn: "Welcome Back", BodyEn: "# Hello again", Published: true}, firstPublish.Add(time.Hour)))
	require.True(t, firstPublish.Equal(*post.PublishedAt))
	require.Equal(t, "# Hello again", post.BodyEn)
}

func TestNewBlogPostDraftHasNoPublishedAt(t *testing.T) {
	post, err := NewBlogPost(BlogPostInput{TitleEn: "Draft", BodyEn: "body"}, time.Now())
	require.NoError(t, err)
	require.False(t, post.Published)
	require.Nil(t, post.PublishedAt)
}

func TestNewBlogPostRequiresTitleAndBody(t *testing.T) {
	_, missingBodyErr := NewBlogPost(BlogPostInput{TitleEn: "Title"}, time.Now())
	require.ErrorIs(t, missingBodyErr, ErrInvalidBlogPost)

	_, missingTitleErr := NewBlogPost(BlogPostInput{BodyEn: "Body"}, time.Now())
	require.ErrorIs(t, missingTitleErr, ErrInvalidBlogPost)

	_, badCoverErr := NewBlogPost(BlogPostInput{TitleEn: "Title", BodyEn: "Body", CoverImageURL: "ftp://example.com/a.png"}, time.Now())
	require.ErrorIs(t, badCoverErr, ErrInvalidBlogPost)
}
