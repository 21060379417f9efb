package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/MarkoPoloResearchLab/societyhub/internal/model"
	"github.com/MarkoPoloResearchLab/societyhub/internal/storage"
	"github.com/MarkoPoloResearchLab/societyhub/internal/testutil"
)

func TestBlogStoreListsPublishedPostsNewestFirst(t *testing.T) {
	store := storage.NewBlogStore(testutil.OpenMigratedSQLiteDatabase(t))
	ctx := context.Background()
	baseTime := time.Date(2026, time.January, 10, 9, 0, 0, 0, time.UTC)

	older, olderErr := model.NewBlogPost(model.BlogPostInput{TitleEn: "Recap of Orientation", BodyEn: "Thanks for coming.", Published: true}, baseTime)
	require.NoError(t, olderErr)
	require.NoError(t, store.Create(ctx, &older))

	newer, newerErr := model.NewBlogPost(model.BlogPostInput{TitleEn: "Spring Festival Plans", BodyEn: "Details inside.", Published: true}, baseTime.Add(24*time.Hour))
	require.NoError(t, newerErr)
	require.NoError(t, store.Create(ctx, &newer))

	draft, draftErr := model.NewBlogPost(model.BlogPostInput{TitleEn: "Unfinished Draft", BodyEn: "TBD"}, baseTime)
	require.NoError(t, draftErr)
	require.NoError(t, store.Create(ctx, &draft))

	page, listErr := store.List(ctx, storage.BlogQuery{PublishedOnly: true, Limit: 10})
	require.NoError(t, listErr)
	require.EqualValues(t, 2, page.Total)
	require.Equal(t, newer.ID, page.Posts[0].ID)
	require.Equal(t, older.ID, page.Posts[1].ID)

	searchPage, searchErr := store.List(ctx, storage.BlogQuery{Search: "festival", Limit: 10})
	require.NoError(t, searchErr)
	require.EqualValues(t, 1, searchPage.Total)

	_, hiddenErr := store.FindBySlug(ctx, draft.Slug, true)
	require.ErrorIs(t, hiddenErr, storage.ErrRecordNotFound)

	found, foundErr := store.FindBySlug(ctx, "spring-festival-plans", true)
	require.NoError(t, foundErr)
	require.Equal(t, newer.ID, found.ID)
}

func TestBlogStoreSaveAndDelete(t *testing.T) {
	store := storage.NewBlogStore(testutil.OpenMigratedSQLiteDatabase(t))
	ctx := context.Background()
	now := time.Now().UTC()

	post, postErr := model.NewBlogPost(model.BlogPostInput{TitleEn: "Club Notes", BodyEn: "First version"}, now)
	require.NoError(t, postErr)
	require.NoError(t, store.Create(ctx, &post))

	require.NoError(t, post.Apply(model.BlogPostInput{TitleEn: "Club Notes", BodyEn: "Second version", Published: true}, now))
	require.NoError(t, store.Save(ctx, &post))

	reloaded, findErr := store.FindByID(ctx, post.ID)
	require.NoError(t, findErr)
	require.Equal(t, "Second version", reloaded.BodyEn)
	require.True(t, reloaded.Published)
	require.NotNil(t, reloaded.PublishedAt)

	require.NoError(t, store.Delete(ctx, post.ID))
	require.ErrorIs(t, store.Delete(ctx, post.ID), storage.ErrRecordNotFound)
}
