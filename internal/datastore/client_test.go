package datastore_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/straye-as/lead-api/internal/datastore"
	"github.com/straye-as/lead-api/internal/domain"
	"github.com/straye-as/lead-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var _ store.DataStore = (*datastore.Client)(nil)

// mockServer is a minimal in-memory REST server in the shape the client expects
type mockServer struct {
	mu            sync.Mutex
	opportunities map[string]domain.Opportunity
	activities    []domain.Activity
	requests      []string
}

func newMockServer(t *testing.T) (*mockServer, *httptest.Server) {
	m := &mockServer{opportunities: map[string]domain.Opportunity{
		"1": {ID: 1, CustomerName: "Alpha AS", Status: domain.StatusNew},
	}}

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			m.mu.Lock()
			m.requests = append(m.requests, req.Method+" "+req.URL.Path)
			m.mu.Unlock()
			next.ServeHTTP(w, req)
		})
	})
	r.Get("/users", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, []domain.User{{ID: 1, Username: "admin", Role: domain.RoleAdmin}})
	})
	r.Get("/opportunities", func(w http.ResponseWriter, req *http.Request) {
		m.mu.Lock()
		defer m.mu.Unlock()
		out := make([]domain.Opportunity, 0, len(m.opportunities))
		for _, o := range m.opportunities {
			out = append(out, o)
		}
		writeJSON(w, out)
	})
	r.Patch("/opportunities/{id}", func(w http.ResponseWriter, req *http.Request) {
		m.mu.Lock()
		defer m.mu.Unlock()
		id := chi.URLParam(req, "id")
		if _, ok := m.opportunities[id]; !ok {
			http.NotFound(w, req)
			return
		}
		var opp domain.Opportunity
		if err := json.NewDecoder(req.Body).Decode(&opp); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		m.opportunities[id] = opp
		writeJSON(w, opp)
	})
	r.Delete("/opportunities/{id}", func(w http.ResponseWriter, req *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	r.Post("/activities", func(w http.ResponseWriter, req *http.Request) {
		m.mu.Lock()
		defer m.mu.Unlock()
		var a domain.Activity
		if err := json.NewDecoder(req.Body).Decode(&a); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		m.activities = append(m.activities, a)
		w.WriteHeader(http.StatusCreated)
		writeJSON(w, a)
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return m, srv
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newClient(t *testing.T, url string) *datastore.Client {
	c, err := datastore.NewClient(datastore.Config{BaseURL: url + "/", Timeout: time.Second}, nil, zap.NewNop())
	require.NoError(t, err)
	return c
}

func TestNewClient_RequiresBaseURL(t *testing.T) {
	_, err := datastore.NewClient(datastore.Config{}, nil, zap.NewNop())
	assert.Error(t, err)
}

func TestClient(t *testing.T) {
	ctx := context.Background()
	mock, srv := newMockServer(t)
	c := newClient(t, srv.URL)

	t.Run("ping", func(t *testing.T) {
		assert.NoError(t, c.Ping(ctx))
	})

	t.Run("list users", func(t *testing.T) {
		users, err := c.ListUsers(ctx)
		require.NoError(t, err)
		require.Len(t, users, 1)
		assert.Equal(t, "admin", users[0].Username)
	})

	t.Run("list opportunities", func(t *testing.T) {
		opps, err := c.ListOpportunities(ctx)
		require.NoError(t, err)
		require.Len(t, opps, 1)
		assert.Equal(t, "Alpha AS", opps[0].CustomerName)
	})

	t.Run("update sends patch", func(t *testing.T) {
		err := c.UpdateOpportunity(ctx, &domain.Opportunity{ID: 1, CustomerName: "Alpha AS", Status: domain.StatusRegistered})
		require.NoError(t, err)
		mock.mu.Lock()
		assert.Equal(t, domain.StatusRegistered, mock.opportunities["1"].Status)
		assert.Contains(t, mock.requests, "PATCH /opportunities/1")
		mock.mu.Unlock()
	})

	t.Run("update missing", func(t *testing.T) {
		err := c.UpdateOpportunity(ctx, &domain.Opportunity{ID: 5})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("server error", func(t *testing.T) {
		err := c.DeleteOpportunity(ctx, 1)
		require.Error(t, err)
		assert.ErrorIs(t, err, datastore.ErrUnexpectedStatus)
		assert.True(t, strings.Contains(err.Error(), "500"))
	})

	t.Run("create activity", func(t *testing.T) {
		err := c.CreateActivity(ctx, &domain.Activity{ID: 1, OpportunityID: 1, Type: domain.ActivityTypeCall})
		require.NoError(t, err)
		mock.mu.Lock()
		assert.Len(t, mock.activities, 1)
		mock.mu.Unlock()
	})
}

func TestClient_MissingCollectionIsUnexpectedStatus(t *testing.T) {
	ctx := context.Background()
	srv := httptest.NewServer(chi.NewRouter())
	t.Cleanup(srv.Close)
	c := newClient(t, srv.URL)

	_, err := c.ListUsers(ctx)
	assert.ErrorIs(t, err, datastore.ErrUnexpectedStatus)
	assert.NotErrorIs(t, err, domain.ErrNotFound)

	_, err = c.ListOpportunities(ctx)
	assert.ErrorIs(t, err, datastore.ErrUnexpectedStatus)
	assert.Contains(t, err.Error(), "GET /opportunities returned 404")

	_, err = c.ListActivities(ctx)
	assert.ErrorIs(t, err, datastore.ErrUnexpectedStatus)

	err = c.CreateActivity(ctx, &domain.Activity{OpportunityID: 1, Type: domain.ActivityTypeNote})
	assert.ErrorIs(t, err, datastore.ErrUnexpectedStatus)
}

func TestClient_FailedWriteLeavesStoreUnchanged(t *testing.T) {
	ctx := context.Background()
	_, srv := newMockServer(t)
	c := newClient(t, srv.URL)

	opps := store.NewOpportunityStore(c, zap.NewNop())
	require.NoError(t, opps.Load(ctx))
	require.Equal(t, 1, opps.Len())

	err := opps.Remove(ctx, 1)
	require.Error(t, err)
	assert.True(t, opps.Exists(1))
}
