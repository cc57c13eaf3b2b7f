// ABOUTME: Tests for the JSON API exposing the planner intents
// ABOUTME: Covers the four mutation routes, listing, validation errors, and auth status
package web

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/weekendly/models"
	"github.com/harperreed/weekendly/store"
	"github.com/harperreed/weekendly/sync"
)

// stubGateway always fails: exercises the remote-failure-is-non-fatal path.
type stubGateway struct{}

func (stubGateway) Insert(ctx context.Context, accessToken string, fields sync.EventFields) (string, error) {
	return "", fmt.Errorf("unreachable in tests")
}

func (stubGateway) Patch(ctx context.Context, accessToken, remoteID string, patch sync.EventPatch) error {
	return fmt.Errorf("unreachable in tests")
}

func (stubGateway) Delete(ctx context.Context, accessToken, remoteID string) error {
	return fmt.Errorf("unreachable in tests")
}

func newTestServer(t *testing.T) *Server {
	t.Helper()

	st, err := store.Open(store.NewMemoryStorage())
	require.NoError(t, err)

	tokens := sync.NewTokenManager(nil, nil) // unauthenticated session
	coordinator := sync.NewCoordinator(st, tokens, stubGateway{}, sync.LogNotifier{})

	return NewServer(st, coordinator, tokens)
}

func doRequest(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func draftBody(title string) map[string]any {
	return map[string]any{
		"title":    title,
		"date":     "2026-09-05T10:00:00Z",
		"end":      "2026-09-05T12:00:00Z",
		"activity": string(models.ActivityHiking),
	}
}

func TestAddAndListEvents(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/events", draftBody("Hike"))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Event   models.Event `json:"event"`
		Outcome string       `json:"outcome"`
		Notice  Notice       `json:"notice"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.NotEmpty(t, resp.Event.ID)
	assert.Equal(t, string(sync.OutcomeLocalSuccess), resp.Outcome, "unauthenticated add is local-only")
	assert.Equal(t, "success", resp.Notice.Severity)

	rec = doRequest(t, s, http.MethodGet, "/events", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var list struct {
		Events []models.Event `json:"events"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&list))
	require.Len(t, list.Events, 1)
	assert.Equal(t, "Hike", list.Events[0].Title)
}

func TestAddEventValidationError(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/events", draftBody(""))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp struct {
		Notice Notice `json:"notice"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "error", resp.Notice.Severity)
	assert.Contains(t, resp.Notice.Message, "title")
}

func TestAddEventMalformedBody(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/events", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateEvent(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/events", draftBody("Hike"))
	require.Equal(t, http.StatusOK, rec.Code)

	var created struct {
		Event models.Event `json:"event"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))

	rec = doRequest(t, s, http.MethodPatch, "/events/"+created.Event.ID, draftBody("Long hike"))
	require.Equal(t, http.StatusOK, rec.Code)

	stored, ok := s.store.Get(created.Event.ID)
	require.True(t, ok)
	assert.Equal(t, "Long hike", stored.Title)
}

func TestRemoveEvent(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/events", draftBody("Hike"))
	var created struct {
		Event models.Event `json:"event"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))

	rec = doRequest(t, s, http.MethodDelete, "/events/"+created.Event.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, s.store.Len())
}

func TestReorderEvents(t *testing.T) {
	s := newTestServer(t)

	start := time.Date(2026, 9, 5, 10, 0, 0, 0, time.UTC)
	a := models.Event{ID: "a", Title: "Hike", Start: start, End: start.Add(time.Hour), Activity: models.ActivityHiking}
	b := models.Event{ID: "b", Title: "Brunch", Start: start, End: start.Add(time.Hour), Activity: models.ActivityBrunch}
	require.NoError(t, s.store.Dispatch(store.Add{Event: a}))
	require.NoError(t, s.store.Dispatch(store.Add{Event: b}))

	rec := doRequest(t, s, http.MethodPost, "/events/reorder", []models.Event{b, a})
	require.Equal(t, http.StatusOK, rec.Code)

	events := s.store.Events()
	require.Len(t, events, 2)
	assert.Equal(t, "b", events[0].ID)
	assert.Equal(t, "a", events[1].ID)
}

func TestAuthStatus(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/auth/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var status struct {
		Authenticated bool `json:"authenticated"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&status))
	assert.False(t, status.Authenticated)
}
