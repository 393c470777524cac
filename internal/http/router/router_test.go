package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/straye-as/lead-api/internal/auth"
	"github.com/straye-as/lead-api/internal/config"
	"github.com/straye-as/lead-api/internal/domain"
	"github.com/straye-as/lead-api/internal/http/handler"
	"github.com/straye-as/lead-api/internal/http/middleware"
	"github.com/straye-as/lead-api/internal/http/router"
	"github.com/straye-as/lead-api/internal/realtime"
	"github.com/straye-as/lead-api/internal/repository"
	"github.com/straye-as/lead-api/internal/service"
	"github.com/straye-as/lead-api/internal/session"
	"github.com/straye-as/lead-api/internal/store"
	"github.com/straye-as/lead-api/internal/testutil"
	"github.com/straye-as/lead-api/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testAPIKey = "test-api-key"

func newTestServer(t *testing.T, checks map[string]router.HealthCheck) http.Handler {
	t.Helper()
	ctx := context.Background()
	logger := zap.NewNop()

	db := testutil.SetupTestDB(t)
	testutil.CreateTestUser(t, db, 1, "admin", domain.RoleAdmin)
	testutil.CreateTestUser(t, db, 7, "sara", domain.RoleSales)
	testutil.CreateTestOpportunity(t, db, 1, "Alpha AS", 7)
	testutil.CreateTestOpportunity(t, db, 2, "Beta AS", 0)

	backend := repository.NewStore(db)
	opps := store.NewOpportunityStore(backend, logger)
	require.NoError(t, opps.Load(ctx))
	users := store.NewUserDirectory(backend, logger, store.WithNotifier(opps.Notifier()))
	require.NoError(t, users.Load(ctx))
	log := store.NewActivityLog(opps, backend, logger)
	require.NoError(t, log.Load(ctx))

	sessions := session.NewMemoryStore()
	tokens := auth.NewTokenIssuer("test-secret", "lead-api-test", time.Hour)
	oppSvc := service.NewOpportunityService(opps, log, users, workflow.New(opps, log, logger), logger)

	cfg := &config.Config{
		App:       config.AppConfig{Environment: "development"},
		RateLimit: config.RateLimitConfig{Enabled: false, RequestsPerMinute: 100, RequestsPerMinuteAuth: 100},
		Security:  config.SecurityConfig{ContentTypeNosniff: true},
	}
	if checks == nil {
		checks = map[string]router.HealthCheck{"datastore": backend.Ping}
	}

	rt := router.NewRouter(cfg, logger,
		auth.NewMiddleware(tokens, sessions, testAPIKey, logger),
		middleware.NewRateLimiter(&cfg.RateLimit, logger),
		router.Handlers{
			Auth:        handler.NewAuthHandler(service.NewAuthService(users, tokens, sessions, false, logger), logger),
			Opportunity: handler.NewOpportunityHandler(oppSvc, logger),
			Activity:    handler.NewActivityHandler(oppSvc, logger),
			User:        handler.NewUserHandler(service.NewUserService(users, opps, logger), logger),
			Dashboard:   handler.NewDashboardHandler(service.NewDashboardService(opps, users, service.Targets{}, logger), logger),
			Events:      handler.NewEventsHandler(realtime.NewHub(opps, logger), nil, logger),
		},
		checks,
	)
	return rt.Setup()
}

func request(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	switch {
	case token == testAPIKey:
		req.Header.Set("x-api-key", token)
	case token != "":
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHealth(t *testing.T) {
	h := newTestServer(t, nil)

	rr := request(t, h, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))

	rr = request(t, h, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"datastore"`)
}

func TestHealth_ReadyReportsFailures(t *testing.T) {
	h := newTestServer(t, map[string]router.HealthCheck{
		"datastore": func(ctx context.Context) error { return nil },
		"sessions":  func(ctx context.Context) error { return errors.New("connection refused") },
	})

	rr := request(t, h, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	var body struct {
		Status string                       `json:"status"`
		Checks map[string]map[string]string `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "unhealthy", body.Status)
	assert.Equal(t, "healthy", body.Checks["datastore"]["status"])
	assert.Equal(t, "connection refused", body.Checks["sessions"]["error"])
}

func TestAPI_Authentication(t *testing.T) {
	h := newTestServer(t, nil)

	assert.Equal(t, http.StatusUnauthorized, request(t, h, http.MethodGet, "/api/v1/opportunities", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, request(t, h, http.MethodGet, "/api/v1/opportunities", "not-a-token", nil).Code)
	assert.Equal(t, http.StatusOK, request(t, h, http.MethodGet, "/api/v1/opportunities", testAPIKey, nil).Code)
	assert.Equal(t, http.StatusOK, request(t, h, http.MethodGet, "/api/v1/users", testAPIKey, nil).Code)
}

func TestAPI_SalesSessionLifecycle(t *testing.T) {
	h := newTestServer(t, nil)

	rr := request(t, h, http.MethodPost, "/api/v1/auth/login", "", domain.LoginRequest{Username: "sara", Role: domain.RoleSales})
	require.Equal(t, http.StatusOK, rr.Code)
	var login domain.LoginResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &login))
	token := login.Token

	rr = request(t, h, http.MethodGet, "/api/v1/opportunities", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var page struct {
		Total int64 `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &page))
	assert.Equal(t, int64(1), page.Total)

	assert.Equal(t, http.StatusForbidden, request(t, h, http.MethodGet, "/api/v1/users", token, nil).Code)
	assert.Equal(t, http.StatusForbidden, request(t, h, http.MethodGet, "/api/v1/dashboard/admin", token, nil).Code)
	assert.Equal(t, http.StatusOK, request(t, h, http.MethodGet, "/api/v1/dashboard/me", token, nil).Code)

	assert.Equal(t, http.StatusNoContent, request(t, h, http.MethodPost, "/api/v1/auth/logout", token, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, request(t, h, http.MethodGet, "/api/v1/auth/me", token, nil).Code)
}
