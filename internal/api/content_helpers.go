package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/MarkoPoloResearchLab/societyhub/internal/model"
	"github.com/MarkoPoloResearchLab/societyhub/internal/pagination"
	"github.com/MarkoPoloResearchLab/societyhub/internal/storage"
)

const messageDuplicateSlug = "Slug is already in use"

type pagedResponse[T any] struct {
	Items      []T                `json:"items"`
	Pagination pagination.Summary `json:"pagination"`
}

func newPagedResponse[T any](items []T, request pagination.Request, total int64) pagedResponse[T] {
	return pagedResponse[T]{Items: items, Pagination: request.Summarize(total)}
}

func paginationFromQuery(context *gin.Context) pagination.Request {
	return pagination.Parse(context.Query("page"), context.Query("limit"))
}

// requireIdentifier reads a path identifier and writes a 400 when it is not a canonical uuid.
func requireIdentifier(context *gin.Context, responder *Responder, name string) (string, bool) {
	identifier := strings.ToLower(strings.TrimSpace(context.Param(name)))
	if !storage.IsValidID(identifier) {
		responder.Failure(context, http.StatusBadRequest, messageInvalidIdentifier)
		return "", false
	}
	return identifier, true
}

// writeStoreError maps validation and storage errors onto status codes.
func writeStoreError(context *gin.Context, responder *Responder, event string, notFoundMessage string, err error) {
	var validationErr *model.ValidationError
	switch {
	case errors.As(err, &validationErr):
		responder.ValidationFailure(context, err)
	case errors.Is(err, storage.ErrRecordNotFound):
		responder.Failure(context, http.StatusNotFound, notFoundMessage)
	case errors.Is(err, storage.ErrDuplicateRecord):
		responder.Failure(context, http.StatusConflict, messageDuplicateSlug)
	default:
		responder.InternalFailure(context, event, err)
	}
}

func parseBoolQuery(raw string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	default:
		return fallback
	}
}

type clock func() time.Time

func (source clock) now() time.Time {
	if source == nil {
		return time.Now().UTC()
	}
	return source().UTC()
}
