package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

const testAdminSecret = "societyhub-test-signing-secret"

type testEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Details []string        `json:"details"`
	Error   string          `json:"error"`
}

type manualClock struct {
	current time.Time
}

func (clock *manualClock) Now() time.Time {
	return clock.current
}

func (clock *manualClock) Advance(duration time.Duration) {
	clock.current = clock.current.Add(duration)
}

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func performJSONRequest(testingT *testing.T, router http.Handler, method string, path string, payload any, headers map[string]string) *httptest.ResponseRecorder {
	testingT.Helper()
	var body *bytes.Reader
	switch typed := payload.(type) {
	case nil:
		body = bytes.NewReader(nil)
	case string:
		body = bytes.NewReader([]byte(typed))
	default:
		encoded, encodeErr := json.Marshal(typed)
		require.NoError(testingT, encodeErr)
		body = bytes.NewReader(encoded)
	}
	request := httptest.NewRequest(method, path, body)
	request.Header.Set("Content-Type", "application/json")
	for name, value := range headers {
		request.Header.Set(name, value)
	}
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)
	return recorder
}

func decodeEnvelope(testingT *testing.T, recorder *httptest.ResponseRecorder) testEnvelope {
	testingT.Helper()
	var envelope testEnvelope
	require.NoError(testingT, json.Unmarshal(recorder.Body.Bytes(), &envelope), recorder.Body.String())
	return envelope
}

func decodeData(testingT *testing.T, recorder *httptest.ResponseRecorder, target any) {
	testingT.Helper()
	envelope := decodeEnvelope(testingT, recorder)
	require.True(testingT, envelope.Success, recorder.Body.String())
	require.NoError(testingT, json.Unmarshal(envelope.Data, target))
}

func forwardedFor(address string) map[string]string {
	return map[string]string{headerForwardedFor: address}
}
