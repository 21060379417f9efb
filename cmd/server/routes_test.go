package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/MarkoPoloResearchLab/societyhub/internal/auth"
	"github.com/MarkoPoloResearchLab/societyhub/internal/testutil"
)

const (
	testSigningSecret = "routes-test-signing-secret"
	testAdminPassword = "mooncake-2026"
)

type routesTestClock struct {
	current time.Time
}

func (clock *routesTestClock) now() time.Time {
	return clock.current
}

type routesEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func newTestServerConfig(testingT *testing.T, corsOrigins []string) ServerConfig {
	testingT.Helper()
	hash, hashErr := auth.HashPassword(testAdminPassword)
	require.NoError(testingT, hashErr)
	return ServerConfig{
		Environment:         environmentProduction,
		JWTSecret:           testSigningSecret,
		JWTTTL:              time.Hour,
		AdminUsername:       "admin",
		AdminPasswordHash:   hash,
		CORSOrigins:         corsOrigins,
		NotificationTimeout: time.Second,
		ContactRateLimit:    3,
		ContactRateWindow:   time.Hour,
	}
}

func newTestRouter(testingT *testing.T, corsOrigins []string) (*gin.Engine, *routesTestClock) {
	testingT.Helper()
	gin.SetMode(gin.TestMode)
	clock := &routesTestClock{current: time.Date(2026, time.September, 1, 10, 0, 0, 0, time.UTC)}
	database := testutil.OpenMigratedSQLiteDatabase(testingT)
	dependencies, buildErr := buildRouterDependencies(newTestServerConfig(testingT, corsOrigins), zap.NewNop(), database, clock.now)
	require.NoError(testingT, buildErr)
	return buildRouter(dependencies), clock
}

func serve(router http.Handler, method string, path string, body string, headers map[string]string) *httptest.ResponseRecorder {
	request := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	request.Header.Set("Content-Type", "application/json")
	for name, value := range headers {
		request.Header.Set(name, value)
	}
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)
	return recorder
}

func decodeRoutesEnvelope(testingT *testing.T, recorder *httptest.ResponseRecorder) routesEnvelope {
	testingT.Helper()
	var envelope routesEnvelope
	require.NoError(testingT, json.Unmarshal(recorder.Body.Bytes(), &envelope), recorder.Body.String())
	return envelope
}

func loginAsAdmin(testingT *testing.T, router http.Handler) string {
	testingT.Helper()
	recorder := serve(router, http.MethodPost, "/api/auth/login", `{"username":"admin","password":"`+testAdminPassword+`"}`, nil)
	require.Equal(testingT, http.StatusOK, recorder.Code, recorder.Body.String())
	var issued auth.IssuedToken
	require.NoError(testingT, json.Unmarshal(decodeRoutesEnvelope(testingT, recorder).Data, &issued))
	return issued.Token
}

func TestContactIntakeRateLimitScenario(testingT *testing.T) {
	router, clock := newTestRouter(testingT, nil)
	headers := map[string]string{"X-Forwarded-For": "203.0.113.77"}
	payload := `{"name":"Mei","email":"mei@example.edu","message":"Hello from the language exchange!"}`

	for attempt := 0; attempt < 3; attempt++ {
		recorder := serve(router, http.MethodPost, "/api/contacts", payload, headers)
		require.Equal(testingT, http.StatusCreated, recorder.Code, recorder.Body.String())
	}

	limited := serve(router, http.MethodPost, "/api/contacts", payload, headers)
	require.Equal(testingT, http.StatusTooManyRequests, limited.Code)
	require.False(testingT, decodeRoutesEnvelope(testingT, limited).Success)

	clock.current = clock.current.Add(time.Hour + time.Minute)
	recovered := serve(router, http.MethodPost, "/api/contacts", payload, headers)
	require.Equal(testingT, http.StatusCreated, recovered.Code)

	token := loginAsAdmin(testingT, router)
	listed := serve(router, http.MethodGet, "/api/admin/contacts?status=new", "", map[string]string{"Authorization": "Bearer " + token})
	require.Equal(testingT, http.StatusOK, listed.Code)
	var inbox struct {
		Contacts   []json.RawMessage `json:"contacts"`
		Pagination struct {
			Total int64 `json:"total"`
		} `json:"pagination"`
	}
	require.NoError(testingT, json.Unmarshal(decodeRoutesEnvelope(testingT, listed).Data, &inbox))
	require.Len(testingT, inbox.Contacts, 4)
	require.Equal(testingT, int64(4), inbox.Pagination.Total)
}

func TestAdminRoutesRequireBearerToken(testingT *testing.T) {
	router, _ := newTestRouter(testingT, nil)

	recorder := serve(router, http.MethodGet, "/api/admin/contacts", "", nil)
	require.Equal(testingT, http.StatusUnauthorized, recorder.Code)

	verify := serve(router, http.MethodGet, "/api/auth/verify", "", map[string]string{"Authorization": "Bearer " + loginAsAdmin(testingT, router)})
	require.Equal(testingT, http.StatusOK, verify.Code)
}

func TestHealthMetricsAndUnknownRoutes(testingT *testing.T) {
	router, _ := newTestRouter(testingT, nil)

	health := serve(router, http.MethodGet, routeHealth, "", nil)
	require.Equal(testingT, http.StatusOK, health.Code)

	missing := serve(router, http.MethodGet, "/api/nothing-here", "", nil)
	require.Equal(testingT, http.StatusNotFound, missing.Code)
	require.False(testingT, decodeRoutesEnvelope(testingT, missing).Success)

	metricsResponse := serve(router, http.MethodGet, routeMetrics, "", nil)
	require.Equal(testingT, http.StatusOK, metricsResponse.Code)
	require.True(testingT, strings.Contains(metricsResponse.Body.String(), "societyhub_http_requests_total"))
}

func TestCORSPreflightUsesWildcardByDefault(testingT *testing.T) {
	router, _ := newTestRouter(testingT, []string{corsOriginWildcard})

	recorder := serve(router, http.MethodOptions, "/api/contacts", "", map[string]string{
		"Origin":                         "http://widget.example",
		"Access-Control-Request-Method":  http.MethodPost,
		"Access-Control-Request-Headers": "content-type",
	})

	require.Equal(testingT, http.StatusNoContent, recorder.Code)
	require.Equal(testingT, corsOriginWildcard, recorder.Header().Get("Access-Control-Allow-Origin"))
	require.Empty(testingT, recorder.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORSPreflightHonorsConfiguredOrigins(testingT *testing.T) {
	router, _ := newTestRouter(testingT, []string{"https://society.example.edu"})

	allowed := serve(router, http.MethodOptions, "/api/contacts", "", map[string]string{
		"Origin":                        "https://society.example.edu",
		"Access-Control-Request-Method": http.MethodPost,
	})
	require.Equal(testingT, http.StatusNoContent, allowed.Code)
	require.Equal(testingT, "https://society.example.edu", allowed.Header().Get("Access-Control-Allow-Origin"))

	rejected := serve(router, http.MethodOptions, "/api/contacts", "", map[string]string{
		"Origin":                        "https://evil.example",
		"Access-Control-Request-Method": http.MethodPost,
	})
	require.Equal(testingT, http.StatusForbidden, rejected.Code)
}

func TestBuildRouterDependenciesRejectsWeakSecret(testingT *testing.T) {
	configuration := newTestServerConfig(testingT, nil)
	configuration.JWTSecret = "short"
	database := testutil.OpenMigratedSQLiteDatabase(testingT)

	_, buildErr := buildRouterDependencies(configuration, zap.NewNop(), database, time.Now)
	require.ErrorIs(testingT, buildErr, auth.ErrWeakSecret)
}

func TestNewEmailSenderDisabledWithoutRelay(testingT *testing.T) {
	sender, senderErr := newEmailSender(ServerConfig{NotificationTo: "staff@example.edu"}, zap.NewNop())
	require.NoError(testingT, senderErr)
	require.Nil(testingT, sender)

	configured, configuredErr := newEmailSender(ServerConfig{
		SMTPHost:         "smtp.example.edu",
		SMTPPort:         587,
		NotificationFrom: "noreply@example.edu",
		NotificationTo:   "staff@example.edu",
	}, zap.NewNop())
	require.NoError(testingT, configuredErr)
	require.NotNil(testingT, configured)
}
