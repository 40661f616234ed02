package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/eldtechnologies/fileshare/internal/handlers"
	"github.com/eldtechnologies/fileshare/internal/models"
	"github.com/eldtechnologies/fileshare/internal/store"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	ds, err := store.NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "ops.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(ds.Close)

	h := handlers.NewHandler(ds, nil, nil, handlers.Options{OwnerID: 1}, zerolog.Nop())
	if err := h.EnsureOwner(context.Background()); err != nil {
		t.Fatal(err)
	}
	return NewRouter(zerolog.Nop(), h)
}

func TestHealth(t *testing.T) {
	r := newTestRouter(t)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body)
	}
	var resp handlers.HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != "healthy" || resp.Checks["store"].Status != "pass" {
		t.Errorf("resp = %+v", resp)
	}
	if _, ok := resp.Checks["redis"]; ok {
		t.Error("redis is not configured and should not be checked")
	}
}

func TestStats(t *testing.T) {
	r := newTestRouter(t)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var stats models.Stats
	if err := json.NewDecoder(rec.Body).Decode(&stats); err != nil {
		t.Fatal(err)
	}
	if stats.Admins != 1 {
		t.Errorf("admins = %d, want 1", stats.Admins)
	}
}

func TestMetricsAndNotFound(t *testing.T) {
	r := newTestRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("/metrics status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("/nope status = %d", rec.Code)
	}
}
