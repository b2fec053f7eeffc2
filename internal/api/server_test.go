package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firewatch-worker-go/internal/alerts"
	"firewatch-worker-go/internal/config"
	"firewatch-worker-go/internal/models"
)

func newTestServer(t *testing.T) (*Server, *alerts.Store) {
	t.Helper()

	store := alerts.NewStore()
	cfg := &config.Config{
		Version:      "test",
		WorkerID:     "worker-test",
		Port:         0,
		PendingLimit: 5,
	}

	srv := NewServer(cfg, store)
	require.NoError(t, srv.Setup())
	return srv, store
}

func doRequest(srv *Server, method, target, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func addAlert(store *alerts.Store, label string) int64 {
	return store.Add([]byte{0xFF, 0xD8}, []models.Detection{
		{X1: 1, Y1: 1, X2: 10, Y2: 10, Confidence: 0.9, ClassID: 0, Label: label},
	}, "cam-1")
}

func TestListAlerts_DefaultsToPending(t *testing.T) {
	srv, store := newTestServer(t)

	id1 := addAlert(store, "fire")
	id2 := addAlert(store, "smoke")
	store.UpdateStatus(id2, models.AlertStatusRejected)

	rec := doRequest(srv, http.MethodGet, "/api/alerts", "")
	require.Equal(t, http.StatusOK, rec.Code)

	// The body is a bare JSON array of alerts, no envelope.
	var resp []models.Alert
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	require.Len(t, resp, 1)
	assert.Equal(t, id1, resp[0].ID)
	assert.Equal(t, models.AlertStatusPending, resp[0].Status)
}

func TestListAlerts_AllReturnsMostRecentFirst(t *testing.T) {
	srv, store := newTestServer(t)

	// 7 alerts against a limit of 5.
	for i := 0; i < 7; i++ {
		addAlert(store, "fire")
	}
	store.UpdateStatus(7, models.AlertStatusConfirmed)

	rec := doRequest(srv, http.MethodGet, "/api/alerts?status=all", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp []models.Alert
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	require.Len(t, resp, 5)
	assert.Equal(t, int64(7), resp[0].ID)
	assert.Equal(t, models.AlertStatusConfirmed, resp[0].Status)
}

func TestListAlerts_InvalidStatusFilter(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(srv, http.MethodGet, "/api/alerts?status=resolved", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid status")
}

func TestResolveAlert_Success(t *testing.T) {
	srv, store := newTestServer(t)
	id := addAlert(store, "fire")

	rec := doRequest(srv, http.MethodPost, "/api/alerts/1", `{"status":"confirmed"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success bool  `json:"success"`
		AlertID int64 `json:"alert_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, id, resp.AlertID)

	assert.Equal(t, models.AlertStatusConfirmed, store.Get(id).Status)
}

func TestResolveAlert_UnknownID(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(srv, http.MethodPost, "/api/alerts/99", `{"status":"confirmed"}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Alert not found")
}

func TestResolveAlert_InvalidStatusValue(t *testing.T) {
	srv, store := newTestServer(t)
	id := addAlert(store, "fire")

	rec := doRequest(srv, http.MethodPost, "/api/alerts/1", `{"status":"pending"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid status")

	// The alert is untouched.
	assert.Equal(t, models.AlertStatusPending, store.Get(id).Status)
}

func TestResolveAlert_BadIDAndBody(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(srv, http.MethodPost, "/api/alerts/abc", `{"status":"confirmed"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(srv, http.MethodPost, "/api/alerts/1", `not-json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthEndpoint(t *testing.T) {
	srv, store := newTestServer(t)
	addAlert(store, "fire")

	rec := doRequest(srv, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Status        string `json:"status"`
		WorkerID      string `json:"worker_id"`
		PendingAlerts int    `json:"pending_alerts"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "worker-test", resp.WorkerID)
	assert.Equal(t, 1, resp.PendingAlerts)
}
