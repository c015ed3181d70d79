package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"syncd/internal/model"
	"syncd/internal/repository"
	"testing"
)

type fakeHistory struct {
	entries []model.History
	lastN   int
	lastSrc string
	err     error
}

func (f *fakeHistory) GetRecent(limit int) ([]model.History, error) {
	f.lastN = limit
	return f.entries, f.err
}

func (f *fakeHistory) GetBySrc(src string, limit int) ([]model.History, error) {
	f.lastN, f.lastSrc = limit, src
	return f.entries, f.err
}

func (f *fakeHistory) GetStats() (repository.Stats, error) {
	return repository.Stats{Total: 4, Success: 3, Failed: 1}, f.err
}

func serve(t *testing.T, s *Server, target string) *httptest.ResponseRecorder {
	t.Helper()

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHealth(t *testing.T) {
	rec := serve(t, New(&fakeHistory{}, ""), "/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
}

func TestHistory(t *testing.T) {
	hist := &fakeHistory{entries: []model.History{{Src: "/a", Status: "SUCCESS"}}}
	s := New(hist, "")

	rec := serve(t, s, "/history")
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	if hist.lastN != defaultHistoryN {
		t.Errorf("n = %d, want default %d", hist.lastN, defaultHistoryN)
	}

	var got []model.History
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 1 || got[0].Src != "/a" {
		t.Errorf("body = %+v", got)
	}

	serve(t, s, "/history?n=5&src=/a")
	if hist.lastN != 5 || hist.lastSrc != "/a" {
		t.Errorf("n=%d src=%q", hist.lastN, hist.lastSrc)
	}
}

func TestHistoryBadN(t *testing.T) {
	for _, n := range []string{"x", "0", "-3"} {
		rec := serve(t, New(&fakeHistory{}, ""), "/history?n="+n)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("n=%s: code = %d, want 400", n, rec.Code)
		}
	}
}

func TestHistoryError(t *testing.T) {
	rec := serve(t, New(&fakeHistory{err: errors.New("db closed")}, ""), "/history")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("code = %d, want 500", rec.Code)
	}
}

func TestStats(t *testing.T) {
	rec := serve(t, New(&fakeHistory{}, ""), "/history/stats")
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}

	var stats repository.Stats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats.Total != 4 || stats.Failed != 1 {
		t.Errorf("stats = %+v", stats)
	}
}
