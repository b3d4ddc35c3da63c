package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lumina-frame/lumina-photoframe-backend/internal/domain/rotation"
	"github.com/lumina-frame/lumina-photoframe-backend/internal/infra/supply"
)

type fakeSource struct {
	photos  []rotation.Photo
	err     error
	history []rotation.HistoryEntry
	started time.Time
}

func (f *fakeSource) CurrentPhotos(ctx context.Context, now time.Time) ([]rotation.Photo, error) {
	return f.photos, f.err
}

func (f *fakeSource) HistorySnapshot() []rotation.HistoryEntry {
	entries := make([]rotation.HistoryEntry, len(f.history))
	copy(entries, f.history)
	return entries
}

func (f *fakeSource) WindowStartedAt() time.Time {
	return f.started
}

func newTestMux(src *fakeSource) *http.ServeMux {
	mux := http.NewServeMux()
	NewHandler(src).Register(mux)
	return mux
}

func TestHandleCurrentReturnsSet(t *testing.T) {
	started := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	src := &fakeSource{
		photos: []rotation.Photo{
			{ID: "a"}, {ID: "b"}, {ID: "c"},
		},
		started: started,
	}
	mux := newTestMux(src)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/photos/current", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var resp CurrentPhotosResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Count != 3 || len(resp.Photos) != 3 {
		t.Errorf("count = %d, photos = %d", resp.Count, len(resp.Photos))
	}
	if resp.Photos[0].ID != "a" {
		t.Errorf("first photo = %q", resp.Photos[0].ID)
	}
	if !resp.WindowStartedAt.Equal(started) {
		t.Errorf("window_started_at = %v", resp.WindowStartedAt)
	}
}

func TestHandleCurrentSupplyFailure(t *testing.T) {
	src := &fakeSource{err: errors.New("supply down")}
	mux := newTestMux(src)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/photos/current", nil))

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}

	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Error == "" {
		t.Error("expected error message in body")
	}
}

func TestHandleCurrentTemporarySupplyFailure(t *testing.T) {
	// The manager wraps supply errors; classification must survive the wrap
	src := &fakeSource{err: fmt.Errorf("refresh rotation window: %w", supply.ErrRateLimited)}
	mux := newTestMux(src)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/photos/current", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}

	src.err = fmt.Errorf("refresh rotation window: %w", supply.ErrSupplyUnavailable)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/photos/current", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestHandleCurrentRejectsPost(t *testing.T) {
	mux := newTestMux(&fakeSource{})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/photos/current", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}

func TestHandleHistoryNewestFirst(t *testing.T) {
	now := time.Now()
	src := &fakeSource{
		history: []rotation.HistoryEntry{
			{ID: "old", ServedAt: now.Add(-2 * time.Hour)},
			{ID: "mid", ServedAt: now.Add(-time.Hour)},
			{ID: "new", ServedAt: now},
		},
	}
	mux := newTestMux(src)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/photos/history", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp HistoryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Total != 3 {
		t.Errorf("total = %d", resp.Total)
	}
	if len(resp.Entries) != 3 {
		t.Fatalf("entries = %d", len(resp.Entries))
	}
	if resp.Entries[0].ID != "new" || resp.Entries[2].ID != "old" {
		t.Errorf("expected newest-first, got [%s .. %s]", resp.Entries[0].ID, resp.Entries[2].ID)
	}
}

func TestHandleHistoryLimit(t *testing.T) {
	src := &fakeSource{}
	for i := 0; i < 10; i++ {
		src.history = append(src.history, rotation.HistoryEntry{ID: fmt.Sprintf("p%d", i)})
	}
	mux := newTestMux(src)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/photos/history?limit=4", nil))

	var resp HistoryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Entries) != 4 {
		t.Errorf("entries = %d, want 4", len(resp.Entries))
	}
	if resp.Total != 10 {
		t.Errorf("total = %d, want 10", resp.Total)
	}
	// Newest entry (last recorded) comes first
	if resp.Entries[0].ID != "p9" {
		t.Errorf("first entry = %q, want p9", resp.Entries[0].ID)
	}
}

func TestHandleHistoryInvalidLimit(t *testing.T) {
	mux := newTestMux(&fakeSource{})

	for _, limit := range []string{"abc", "-1", "0"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/photos/history?limit="+limit, nil))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("limit=%s: status = %d, want 400", limit, rec.Code)
		}
	}
}
