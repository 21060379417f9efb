package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/MarkoPoloResearchLab/societyhub/internal/model"
	"github.com/MarkoPoloResearchLab/societyhub/internal/storage"
)

const (
	messageBlogPostNotFound = "Blog post not found"
	blogExcerptLength       = 200
)

// MarkdownRenderer converts post bodies into sanitized HTML.
type MarkdownRenderer interface {
	RenderMarkdown(source string) (string, error)
	Excerpt(source string, maxRunes int) (string, error)
}

// BlogHandlers serves the public blog and the admin post editor.
type BlogHandlers struct {
	store     *storage.BlogStore
	renderer  MarkdownRenderer
	responder *Responder
	clock     clock
}

// NewBlogHandlers constructs BlogHandlers.
func NewBlogHandlers(store *storage.BlogStore, renderer MarkdownRenderer, responder *Responder, now func() time.Time) *BlogHandlers {
	return &BlogHandlers{store: store, renderer: renderer, responder: responder, clock: now}
}

type blogPostSummary struct {
	model.BlogPost
	Excerpt string `json:"excerpt"`
}

type renderedBlogPost struct {
	model.BlogPost
	BodyHTMLEn string `json:"bodyHtmlEn"`
	BodyHTMLZh string `json:"bodyHtmlZh"`
}

// ListPublished returns published posts, newest first, each with a plain-text excerpt.
func (handlers *BlogHandlers) ListPublished(context *gin.Context) {
	request := paginationFromQuery(context)
	page, listErr := handlers.store.List(context.Request.Context(), storage.BlogQuery{
		PublishedOnly: true,
		Search:        context.Query("search"),
		Offset:        request.Offset(),
		Limit:         request.Limit,
	})
	if listErr != nil {
		handlers.responder.InternalFailure(context, "blog_list_failed", listErr)
		return
	}

	summaries := make([]blogPostSummary, 0, len(page.Posts))
	for _, post := range page.Posts {
		excerpt := post.SummaryEn
		if excerpt == "" {
			rendered, excerptErr := handlers.renderer.Excerpt(post.BodyEn, blogExcerptLength)
			if excerptErr != nil {
				handlers.responder.InternalFailure(context, "blog_render_failed", excerptErr)
				return
			}
			excerpt = rendered
		}
		summaries = append(summaries, blogPostSummary{BlogPost: post, Excerpt: excerpt})
	}
	handlers.responder.Success(context, http.StatusOK, newPagedResponse(summaries, request, page.Total))
}

// GetPublished returns one published post with both bodies rendered to HTML.
func (handlers *BlogHandlers) GetPublished(context *gin.Context) {
	post, findErr := handlers.store.FindBySlug(context.Request.Context(), context.Param("slug"), true)
	if findErr != nil {
		writeStoreError(context, handlers.responder, "blog_get_failed", messageBlogPostNotFound, findErr)
		return
	}
	bodyEn, renderErr := handlers.renderer.RenderMarkdown(post.BodyEn)
	if renderErr != nil {
		handlers.responder.InternalFailure(context, "blog_render_failed", renderErr)
		return
	}
	bodyZh, renderErr := handlers.renderer.RenderMarkdown(post.BodyZh)
	if renderErr != nil {
		handlers.responder.InternalFailure(context, "blog_render_failed", renderErr)
		return
	}
	handlers.responder.Success(context, http.StatusOK, renderedBlogPost{BlogPost: post, BodyHTMLEn: bodyEn, BodyHTMLZh: bodyZh})
}

// ListAll returns every post including drafts.
func (handlers *BlogHandlers) ListAll(context *gin.Context) {
	request := paginationFromQuery(context)
	page, listErr := handlers.store.List(context.Request.Context(), storage.BlogQuery{
		Search: context.Query("search"),
		Offset: request.Offset(),
		Limit:  request.Limit,
	})
	if listErr != nil {
		handlers.responder.InternalFailure(context, "blog_list_failed", listErr)
		return
	}
	handlers.responder.Success(context, http.StatusOK, newPagedResponse(page.Posts, request, page.Total))
}

// Get returns one post by identifier regardless of its published state.
func (handlers *BlogHandlers) Get(context *gin.Context) {
	postID, ok := requireIdentifier(context, handlers.responder, "id")
	if !ok {
		return
	}
	post, findErr := handlers.store.FindByID(context.Request.Context(), postID)
	if findErr != nil {
		writeStoreError(context, handlers.responder, "blog_get_failed", messageBlogPostNotFound, findErr)
		return
	}
	handlers.responder.Success(context, http.StatusOK, post)
}

// Create adds a new post.
func (handlers *BlogHandlers) Create(context *gin.Context) {
	var payload model.BlogPostInput
	if bindErr := context.ShouldBindJSON(&payload); bindErr != nil {
		handlers.responder.Failure(context, http.StatusBadRequest, messageInvalidJSON)
		return
	}
	post, buildErr := model.NewBlogPost(payload, handlers.clock.now())
	if buildErr != nil {
		handlers.responder.ValidationFailure(context, buildErr)
		return
	}
	if createErr := handlers.store.Create(context.Request.Context(), &post); createErr != nil {
		writeStoreError(context, handlers.responder, "blog_create_failed", messageBlogPostNotFound, createErr)
		return
	}
	handlers.responder.Success(context, http.StatusCreated, post)
}

// Update overwrites the editable fields of a post.
func (handlers *BlogHandlers) Update(context *gin.Context) {
	postID, ok := requireIdentifier(context, handlers.responder, "id")
	if !ok {
		return
	}
	var payload model.BlogPostInput
	if bindErr := context.ShouldBindJSON(&payload); bindErr != nil {
		handlers.responder.Failure(context, http.StatusBadRequest, messageInvalidJSON)
		return
	}
	post, findErr := handlers.store.FindByID(context.Request.Context(), postID)
	if findErr != nil {
		writeStoreError(context, handlers.responder, "blog_get_failed", messageBlogPostNotFound, findErr)
		return
	}
	if applyErr := post.Apply(payload, handlers.clock.now()); applyErr != nil {
		handlers.responder.ValidationFailure(context, applyErr)
		return
	}
	if saveErr := handlers.store.Save(context.Request.Context(), &post); saveErr != nil {
		writeStoreError(context, handlers.responder, "blog_update_failed", messageBlogPostNotFound, saveErr)
		return
	}
	handlers.responder.Success(context, http.StatusOK, post)
}

// Delete removes a post.
func (handlers *BlogHandlers) Delete(context *gin.Context) {
	postID, ok := requireIdentifier(context, handlers.responder, "id")
	if !ok {
		return
	}
	if deleteErr := handlers.store.Delete(context.Request.Context(), postID); deleteErr != nil {
		writeStoreError(context, handlers.responder, "blog_delete_failed", messageBlogPostNotFound, deleteErr)
		return
	}
	handlers.responder.Success(context, http.StatusOK, nil)
}
