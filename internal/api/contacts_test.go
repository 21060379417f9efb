package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/MarkoPoloResearchLab/societyhub/internal/contact"
	"github.com/MarkoPoloResearchLab/societyhub/internal/model"
	"github.com/MarkoPoloResearchLab/societyhub/internal/ratelimit"
	"github.com/MarkoPoloResearchLab/societyhub/internal/storage"
	"github.com/MarkoPoloResearchLab/societyhub/internal/testutil"
)

type recordingDispatcher struct {
	mutex       sync.Mutex
	submissions []model.ContactSubmission
}

func (dispatcher *recordingDispatcher) NotifyContact(_ context.Context, submission model.ContactSubmission) {
	dispatcher.mutex.Lock()
	defer dispatcher.mutex.Unlock()
	dispatcher.submissions = append(dispatcher.submissions, submission)
}

func (dispatcher *recordingDispatcher) count() int {
	dispatcher.mutex.Lock()
	defer dispatcher.mutex.Unlock()
	return len(dispatcher.submissions)
}

type contactTestHarness struct {
	router     *gin.Engine
	clock      *manualClock
	dispatcher *recordingDispatcher
	store      *storage.ContactStore
}

func newContactTestHarness(testingT *testing.T) contactTestHarness {
	testingT.Helper()
	database := testutil.OpenMigratedSQLiteDatabase(testingT)
	clock := &manualClock{current: time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)}
	limiter, limiterErr := ratelimit.NewFixedWindowLimiter(ratelimit.DefaultConfig(), ratelimit.WithClock(clock.Now))
	require.NoError(testingT, limiterErr)

	store := storage.NewContactStore(database)
	dispatcher := &recordingDispatcher{}
	service, serviceErr := contact.NewService(zap.NewNop(), store, limiter, dispatcher, contact.WithClock(clock.Now))
	require.NoError(testingT, serviceErr)

	handlers := NewContactHandlers(service, NewResponder(zap.NewNop(), false))
	router := newTestRouter()
	router.POST("/api/contacts", handlers.Submit)
	router.GET("/api/admin/contacts", handlers.List)
	router.GET("/api/admin/contacts/:id", handlers.Get)
	router.PUT("/api/admin/contacts/:id", handlers.Update)
	router.DELETE("/api/admin/contacts/:id", handlers.Delete)

	return contactTestHarness{router: router, clock: clock, dispatcher: dispatcher, store: store}
}

func validContactPayload() map[string]string {
	return map[string]string{
		"name":            "Li Wei",
		"email":           "Li.Wei@Example.edu",
		"message":         "I would like to join the calligraphy workshop.",
		"interestedEvent": "Calligraphy Night",
	}
}

func (harness contactTestHarness) submit(testingT *testing.T, address string) contact.Receipt {
	testingT.Helper()
	recorder := performJSONRequest(testingT, harness.router, http.MethodPost, "/api/contacts", validContactPayload(), forwardedFor(address))
	require.Equal(testingT, http.StatusCreated, recorder.Code, recorder.Body.String())
	var receipt contact.Receipt
	decodeData(testingT, recorder, &receipt)
	return receipt
}

func TestSubmitContactStoresNewSubmission(testingT *testing.T) {
	harness := newContactTestHarness(testingT)

	receipt := harness.submit(testingT, "203.0.113.5")
	require.True(testingT, storage.IsValidID(receipt.ID))
	require.True(testingT, receipt.Timestamp.Equal(harness.clock.Now()))

	stored, findErr := harness.store.FindByID(context.Background(), receipt.ID)
	require.NoError(testingT, findErr)
	require.Equal(testingT, model.ContactStatusNew, stored.Status)
	require.Equal(testingT, "li.wei@example.edu", stored.Email)
	require.Equal(testingT, "203.0.113.5", stored.IPAddress)
	require.Equal(testingT, 1, harness.dispatcher.count())
}

func TestSubmitContactRejectsMalformedJSON(testingT *testing.T) {
	harness := newContactTestHarness(testingT)

	recorder := performJSONRequest(testingT, harness.router, http.MethodPost, "/api/contacts", "{not json", nil)
	require.Equal(testingT, http.StatusBadRequest, recorder.Code)
	envelope := decodeEnvelope(testingT, recorder)
	require.False(testingT, envelope.Success)
	require.Equal(testingT, messageInvalidJSON, envelope.Message)
}

func TestSubmitContactReportsMissingFields(testingT *testing.T) {
	harness := newContactTestHarness(testingT)

	recorder := performJSONRequest(testingT, harness.router, http.MethodPost, "/api/contacts", map[string]string{"name": "  "}, nil)
	require.Equal(testingT, http.StatusBadRequest, recorder.Code)
	envelope := decodeEnvelope(testingT, recorder)
	require.Equal(testingT, messageValidationFailed, envelope.Message)
	require.ElementsMatch(testingT, []string{"name is required", "email is required", "message is required"}, envelope.Details)
	require.Empty(testingT, envelope.Error)
	require.Zero(testingT, harness.dispatcher.count())
}

func TestSubmitContactInvalidInputDoesNotConsumeBudget(testingT *testing.T) {
	harness := newContactTestHarness(testingT)

	invalid := validContactPayload()
	invalid["email"] = "not-an-address"
	for attempt := 0; attempt < 5; attempt++ {
		recorder := performJSONRequest(testingT, harness.router, http.MethodPost, "/api/contacts", invalid, forwardedFor("198.51.100.7"))
		require.Equal(testingT, http.StatusBadRequest, recorder.Code)
	}

	harness.submit(testingT, "198.51.100.7")
}

func TestSubmitContactRateLimitsPerAddressAndRecovers(testingT *testing.T) {
	harness := newContactTestHarness(testingT)

	for attempt := 0; attempt < ratelimit.DefaultMaxAttempts; attempt++ {
		harness.submit(testingT, "192.0.2.44")
	}

	limited := performJSONRequest(testingT, harness.router, http.MethodPost, "/api/contacts", validContactPayload(), forwardedFor("192.0.2.44"))
	require.Equal(testingT, http.StatusTooManyRequests, limited.Code)
	require.Equal(testingT, messageRateLimited, decodeEnvelope(testingT, limited).Message)

	harness.submit(testingT, "192.0.2.45")

	harness.clock.Advance(ratelimit.DefaultWindow + time.Second)
	harness.submit(testingT, "192.0.2.44")
	require.Equal(testingT, ratelimit.DefaultMaxAttempts+2, harness.dispatcher.count())
}

func TestGetContactMarksNewSubmissionRead(testingT *testing.T) {
	harness := newContactTestHarness(testingT)
	receipt := harness.submit(testingT, "203.0.113.9")

	recorder := performJSONRequest(testingT, harness.router, http.MethodGet, "/api/admin/contacts/"+receipt.ID, nil, nil)
	require.Equal(testingT, http.StatusOK, recorder.Code)
	var fetched model.ContactSubmission
	decodeData(testingT, recorder, &fetched)
	require.Equal(testingT, model.ContactStatusRead, fetched.Status)

	stored, findErr := harness.store.FindByID(context.Background(), receipt.ID)
	require.NoError(testingT, findErr)
	require.Equal(testingT, model.ContactStatusRead, stored.Status)
}

func TestGetContactRejectsMalformedAndUnknownIdentifiers(testingT *testing.T) {
	harness := newContactTestHarness(testingT)

	malformed := performJSONRequest(testingT, harness.router, http.MethodGet, "/api/admin/contacts/not-a-uuid", nil, nil)
	require.Equal(testingT, http.StatusBadRequest, malformed.Code)

	missing := performJSONRequest(testingT, harness.router, http.MethodGet, "/api/admin/contacts/"+storage.NewID(), nil, nil)
	require.Equal(testingT, http.StatusNotFound, missing.Code)
	require.Equal(testingT, messageSubmissionNotFound, decodeEnvelope(testingT, missing).Message)
}

func TestUpdateContactAttachesResponseOnce(testingT *testing.T) {
	harness := newContactTestHarness(testingT)
	receipt := harness.submit(testingT, "203.0.113.10")
	path := "/api/admin/contacts/" + receipt.ID

	harness.clock.Advance(time.Hour)
	firstResponseAt := harness.clock.Now()
	recorder := performJSONRequest(testingT, harness.router, http.MethodPut, path, map[string]string{
		"status":   "responded",
		"response": "See you on Friday!",
	}, nil)
	require.Equal(testingT, http.StatusOK, recorder.Code, recorder.Body.String())
	var responded model.ContactSubmission
	decodeData(testingT, recorder, &responded)
	require.Equal(testingT, model.ContactStatusResponded, responded.Status)
	require.Equal(testingT, "See you on Friday!", responded.Response)
	require.NotNil(testingT, responded.RespondedAt)
	require.True(testingT, responded.RespondedAt.Equal(firstResponseAt))

	harness.clock.Advance(time.Hour)
	recorder = performJSONRequest(testingT, harness.router, http.MethodPut, path, map[string]string{
		"status":   "responded",
		"response": "Updated reply",
	}, nil)
	require.Equal(testingT, http.StatusOK, recorder.Code)
	var updated model.ContactSubmission
	decodeData(testingT, recorder, &updated)
	require.Equal(testingT, "Updated reply", updated.Response)
	require.True(testingT, updated.RespondedAt.Equal(firstResponseAt))
}

func TestUpdateContactRejectsUnknownStatus(testingT *testing.T) {
	harness := newContactTestHarness(testingT)
	receipt := harness.submit(testingT, "203.0.113.11")

	recorder := performJSONRequest(testingT, harness.router, http.MethodPut, "/api/admin/contacts/"+receipt.ID, map[string]string{"status": "spam"}, nil)
	require.Equal(testingT, http.StatusBadRequest, recorder.Code)
	envelope := decodeEnvelope(testingT, recorder)
	require.Len(testingT, envelope.Details, 1)
	require.True(testingT, strings.HasPrefix(envelope.Details[0], "status must be one of"))
}

func TestDeleteContactRemovesSubmission(testingT *testing.T) {
	harness := newContactTestHarness(testingT)
	receipt := harness.submit(testingT, "203.0.113.12")
	path := "/api/admin/contacts/" + receipt.ID

	deleted := performJSONRequest(testingT, harness.router, http.MethodDelete, path, nil, nil)
	require.Equal(testingT, http.StatusOK, deleted.Code)
	require.True(testingT, decodeEnvelope(testingT, deleted).Success)

	again := performJSONRequest(testingT, harness.router, http.MethodDelete, path, nil, nil)
	require.Equal(testingT, http.StatusNotFound, again.Code)
}

func TestListContactsFiltersAndCounts(testingT *testing.T) {
	harness := newContactTestHarness(testingT)
	first := harness.submit(testingT, "203.0.113.20")
	harness.clock.Advance(time.Minute)
	harness.submit(testingT, "203.0.113.21")

	archive := performJSONRequest(testingT, harness.router, http.MethodPut, "/api/admin/contacts/"+first.ID, map[string]string{"status": "archived"}, nil)
	require.Equal(testingT, http.StatusOK, archive.Code)

	recorder := performJSONRequest(testingT, harness.router, http.MethodGet, "/api/admin/contacts?status=new&page=1&limit=10", nil, nil)
	require.Equal(testingT, http.StatusOK, recorder.Code)
	var result contact.ListResult
	decodeData(testingT, recorder, &result)
	require.Len(testingT, result.Submissions, 1)
	require.Equal(testingT, int64(1), result.Pagination.Total)
	require.Equal(testingT, int64(1), result.StatusCounts[model.ContactStatusNew])
	require.Equal(testingT, int64(1), result.StatusCounts[model.ContactStatusArchived])
	require.Equal(testingT, int64(0), result.StatusCounts[model.ContactStatusResponded])

	invalid := performJSONRequest(testingT, harness.router, http.MethodGet, "/api/admin/contacts?status=spam", nil, nil)
	require.Equal(testingT, http.StatusBadRequest, invalid.Code)
	require.Equal(testingT, messageInvalidStatus, decodeEnvelope(testingT, invalid).Message)
}

var errContactDatabaseDown = errors.New("contact database connection refused")

type unavailableContactStore struct{}

func (unavailableContactStore) Create(context.Context, *model.ContactSubmission) error {
	return errContactDatabaseDown
}

func (unavailableContactStore) FindByID(context.Context, string) (model.ContactSubmission, error) {
	return model.ContactSubmission{}, errContactDatabaseDown
}

func (unavailableContactStore) MarkRead(context.Context, string, time.Time) (bool, error) {
	return false, errContactDatabaseDown
}

func (unavailableContactStore) ApplyModeration(context.Context, string, storage.ContactModerationUpdate) error {
	return errContactDatabaseDown
}

func (unavailableContactStore) Delete(context.Context, string) error {
	return errContactDatabaseDown
}

func (unavailableContactStore) List(context.Context, storage.ContactQuery) (storage.ContactPage, error) {
	return storage.ContactPage{}, errContactDatabaseDown
}

func (unavailableContactStore) CountByStatus(context.Context) (map[string]int64, error) {
	return nil, errContactDatabaseDown
}

func newUnavailableContactRouter(testingT *testing.T, development bool) (*gin.Engine, *recordingDispatcher) {
	testingT.Helper()
	dispatcher := &recordingDispatcher{}
	service, serviceErr := contact.NewService(zap.NewNop(), unavailableContactStore{}, nil, dispatcher)
	require.NoError(testingT, serviceErr)

	handlers := NewContactHandlers(service, NewResponder(zap.NewNop(), development))
	router := newTestRouter()
	router.POST("/api/contacts", handlers.Submit)
	router.GET("/api/admin/contacts", handlers.List)
	router.GET("/api/admin/contacts/:id", handlers.Get)
	router.PUT("/api/admin/contacts/:id", handlers.Update)
	router.DELETE("/api/admin/contacts/:id", handlers.Delete)
	return router, dispatcher
}

func TestContactStoreFailuresReturnGenericInternalError(testingT *testing.T) {
	router, dispatcher := newUnavailableContactRouter(testingT, false)
	path := "/api/admin/contacts/" + storage.NewID()

	testCases := []struct {
		name    string
		method  string
		path    string
		payload any
	}{
		{name: "submit", method: http.MethodPost, path: "/api/contacts", payload: validContactPayload()},
		{name: "list", method: http.MethodGet, path: "/api/admin/contacts"},
		{name: "get", method: http.MethodGet, path: path},
		{name: "update", method: http.MethodPut, path: path, payload: map[string]string{"status": "responded", "response": "Thanks!"}},
		{name: "delete", method: http.MethodDelete, path: path},
	}

	for _, testCase := range testCases {
		testingT.Run(testCase.name, func(testingT *testing.T) {
			recorder := performJSONRequest(testingT, router, testCase.method, testCase.path, testCase.payload, forwardedFor("198.51.100.40"))
			require.Equal(testingT, http.StatusInternalServerError, recorder.Code, recorder.Body.String())
			envelope := decodeEnvelope(testingT, recorder)
			require.False(testingT, envelope.Success)
			require.Equal(testingT, messageInternalError, envelope.Message)
			require.Empty(testingT, envelope.Error)
			require.NotContains(testingT, recorder.Body.String(), errContactDatabaseDown.Error())
		})
	}
	require.Zero(testingT, dispatcher.count())
}

func TestContactStoreFailureExposesCauseInDevelopment(testingT *testing.T) {
	router, dispatcher := newUnavailableContactRouter(testingT, true)

	recorder := performJSONRequest(testingT, router, http.MethodPost, "/api/contacts", validContactPayload(), forwardedFor("198.51.100.41"))
	require.Equal(testingT, http.StatusInternalServerError, recorder.Code)
	envelope := decodeEnvelope(testingT, recorder)
	require.Equal(testingT, messageInternalError, envelope.Message)
	require.Contains(testingT, envelope.Error, errContactDatabaseDown.Error())
	require.Zero(testingT, dispatcher.count())
}
