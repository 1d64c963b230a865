package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workagent/internal/activity"
	"workagent/internal/config"
	"workagent/internal/models"
	"workagent/internal/tracker"
)

type fakeStore struct {
	deliveries []*models.Delivery
	summaries  []models.DeliverySummary
	err        error
	lastLimit  int
}

func (f *fakeStore) GetDeliverySummarySince(since time.Time) ([]models.DeliverySummary, error) {
	return f.summaries, f.err
}

func (f *fakeStore) GetRecentDeliveries(limit int) ([]*models.Delivery, error) {
	f.lastLimit = limit
	return f.deliveries, f.err
}

func (f *fakeStore) GetLatestDelivery(kind string) (*models.Delivery, error) {
	for _, d := range f.deliveries {
		if d.Kind == kind {
			return d, nil
		}
	}
	return nil, f.err
}

func newTestHandler(store Store) (*Handler, *tracker.State, *http.ServeMux) {
	cfg := config.Default()
	state := tracker.NewState()
	h := NewHandler(cfg, state, activity.New(), store, "01JNQ3V2E8Z5R6J1H9X4K7M2PA")
	mux := http.NewServeMux()
	h.SetupRoutes(mux)
	return h, state, mux
}

func serve(mux *http.ServeMux, method, target string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	_, _, mux := newTestHandler(nil)

	rec := serve(mux, http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"healthy"`)
}

func TestStatus(t *testing.T) {
	store := &fakeStore{deliveries: []*models.Delivery{
		{Kind: models.KindActivity, Success: true, StatusCode: 200},
	}}
	_, state, mux := newTestHandler(store)
	state.SetPaused(true)

	rec := serve(mux, http.MethodGet, "/api/status")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["running"])
	assert.Equal(t, true, body["paused"])
	assert.Equal(t, "working", body["status"])
	assert.Equal(t, "01JNQ3V2E8Z5R6J1H9X4K7M2PA", body["run_id"])
	assert.Contains(t, body, "last_activity_delivery")
	assert.NotContains(t, body, "last_screenshot_delivery")
}

func TestStatusHTMX(t *testing.T) {
	_, _, mux := newTestHandler(nil)

	rec := serve(mux, http.MethodGet, "/api/status", "HX-Request", "true")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "Active")
	assert.Contains(t, rec.Body.String(), "working")
}

func TestPauseResume(t *testing.T) {
	_, state, mux := newTestHandler(nil)

	rec := serve(mux, http.MethodPost, "/api/pause")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, state.IsPaused())
	assert.JSONEq(t, `{"paused":true}`, rec.Body.String())

	// idempotent
	serve(mux, http.MethodPost, "/api/pause")
	assert.True(t, state.IsPaused())

	rec = serve(mux, http.MethodPost, "/api/resume")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, state.IsPaused())
	assert.JSONEq(t, `{"paused":false}`, rec.Body.String())
}

func TestPauseRequiresPost(t *testing.T) {
	_, state, mux := newTestHandler(nil)

	rec := serve(mux, http.MethodGet, "/api/pause")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.False(t, state.IsPaused())
}

func TestDeliveries(t *testing.T) {
	store := &fakeStore{deliveries: []*models.Delivery{
		{ID: 2, Kind: models.KindScreenshot, Bytes: 48213, Success: true, StatusCode: 200},
		{ID: 1, Kind: models.KindActivity, AppName: "Inbox", Status: "working", Success: false, StatusCode: 502},
	}}
	_, _, mux := newTestHandler(store)

	rec := serve(mux, http.MethodGet, "/api/deliveries?limit=5")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, store.lastLimit)

	var got []models.Delivery
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, 502, got[1].StatusCode)
}

func TestDeliveriesLimit(t *testing.T) {
	store := &fakeStore{}
	_, _, mux := newTestHandler(store)

	rec := serve(mux, http.MethodGet, "/api/deliveries")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 50, store.lastLimit)
	assert.JSONEq(t, `[]`, rec.Body.String())

	serve(mux, http.MethodGet, "/api/deliveries?limit=100000")
	assert.Equal(t, 1000, store.lastLimit)

	rec = serve(mux, http.MethodGet, "/api/deliveries?limit=-1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeliveriesStoreError(t *testing.T) {
	_, _, mux := newTestHandler(&fakeStore{err: errors.New("database is locked")})

	rec := serve(mux, http.MethodGet, "/api/deliveries")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestJournalDisabled(t *testing.T) {
	_, _, mux := newTestHandler(nil)

	assert.Equal(t, http.StatusServiceUnavailable, serve(mux, http.MethodGet, "/api/deliveries").Code)
	assert.Equal(t, http.StatusServiceUnavailable, serve(mux, http.MethodGet, "/api/summary").Code)
}

func TestSummary(t *testing.T) {
	store := &fakeStore{summaries: []models.DeliverySummary{
		{Kind: models.KindActivity, Attempts: 10, Successes: 9, Failures: 1},
		{Kind: models.KindScreenshot, Attempts: 2, Successes: 2, Bytes: 2 << 20},
	}}
	_, _, mux := newTestHandler(store)

	rec := serve(mux, http.MethodGet, "/api/summary?period=week")
	require.Equal(t, http.StatusOK, rec.Code)

	var history models.History
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	assert.Equal(t, "week", history.Period.Type)
	assert.Equal(t, int64(12), history.Attempts)
	assert.Equal(t, int64(1), history.Failures)

	rec = serve(mux, http.MethodGet, "/api/summary?period=today", "HX-Request", "true")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "9 ok / 1 failed")
	assert.Contains(t, rec.Body.String(), "2.1 MB")
}

func TestSummaryInvalidPeriod(t *testing.T) {
	_, _, mux := newTestHandler(&fakeStore{})

	rec := serve(mux, http.MethodGet, "/api/summary?period=fortnight")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIndex(t *testing.T) {
	_, _, mux := newTestHandler(nil)

	rec := serve(mux, http.MethodGet, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Work Agent")

	assert.Equal(t, http.StatusNotFound, serve(mux, http.MethodGet, "/nope").Code)
}
