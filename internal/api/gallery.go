package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/MarkoPoloResearchLab/societyhub/internal/model"
	"github.com/MarkoPoloResearchLab/societyhub/internal/storage"
)

const messageGalleryItemNotFound = "Gallery item not found"

// GalleryHandlers serves the photo gallery.
type GalleryHandlers struct {
	store     *storage.GalleryStore
	responder *Responder
}

// NewGalleryHandlers constructs GalleryHandlers.
func NewGalleryHandlers(store *storage.GalleryStore, responder *Responder) *GalleryHandlers {
	return &GalleryHandlers{store: store, responder: responder}
}

// List returns gallery items, optionally narrowed to a category or event.
func (handlers *GalleryHandlers) List(context *gin.Context) {
	request := paginationFromQuery(context)
	page, listErr := handlers.store.List(context.Request.Context(), storage.GalleryQuery{
		Category: context.Query("category"),
		EventID:  context.Query("eventId"),
		Offset:   request.Offset(),
		Limit:    request.Limit,
	})
	if listErr != nil {
		handlers.responder.InternalFailure(context, "gallery_list_failed", listErr)
		return
	}
	handlers.responder.Success(context, http.StatusOK, newPagedResponse(page.Items, request, page.Total))
}

// Create adds a gallery item.
func (handlers *GalleryHandlers) Create(context *gin.Context) {
	var payload model.GalleryItemInput
	if bindErr := context.ShouldBindJSON(&payload); bindErr != nil {
		handlers.responder.Failure(context, http.StatusBadRequest, messageInvalidJSON)
		return
	}
	item, buildErr := model.NewGalleryItem(payload)
	if buildErr != nil {
		handlers.responder.ValidationFailure(context, buildErr)
		return
	}
	if createErr := handlers.store.Create(context.Request.Context(), &item); createErr != nil {
		writeStoreError(context, handlers.responder, "gallery_create_failed", messageGalleryItemNotFound, createErr)
		return
	}
	handlers.responder.Success(context, http.StatusCreated, item)
}

// Update overwrites the editable fields of a gallery item.
func (handlers *GalleryHandlers) Update(context *gin.Context) {
	itemID, ok := requireIdentifier(context, handlers.responder, "id")
	if !ok {
		return
	}
	var payload model.GalleryItemInput
	if bindErr := context.ShouldBindJSON(&payload); bindErr != nil {
		handlers.responder.Failure(context, http.StatusBadRequest, messageInvalidJSON)
		return
	}
	item, findErr := handlers.store.FindByID(context.Request.Context(), itemID)
	if findErr != nil {
		writeStoreError(context, handlers.responder, "gallery_get_failed", messageGalleryItemNotFound, findErr)
		return
	}
	if applyErr := item.Apply(payload); applyErr != nil {
		handlers.responder.ValidationFailure(context, applyErr)
		return
	}
	if saveErr := handlers.store.Save(context.Request.Context(), &item); saveErr != nil {
		writeStoreError(context, handlers.responder, "gallery_update_failed", messageGalleryItemNotFound, saveErr)
		return
	}
	handlers.responder.Success(context, http.StatusOK, item)
}

// Delete removes a gallery item.
func (handlers *GalleryHandlers) Delete(context *gin.Context) {
	itemID, ok := requireIdentifier(context, handlers.responder, "id")
	if !ok {
		return
	}
	if deleteErr := handlers.store.Delete(context.Request.Context(), itemID); deleteErr != nil {
		writeStoreError(context, handlers.responder, "gallery_delete_failed", messageGalleryItemNotFound, deleteErr)
		return
	}
	handlers.responder.Success(context, http.StatusOK, nil)
}
