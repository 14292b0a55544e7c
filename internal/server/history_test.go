package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/timekeepco/timekeep/internal/domain"
	"github.com/timekeepco/timekeep/internal/logging"
	"github.com/timekeepco/timekeep/internal/repository"
)

type stubHistoryReader struct {
	runs     []domain.ComparisonRun
	entries  []domain.RecordHistoryEntry
	gotKey   domain.RecordKey
	gotLimit int
	err      error
}

func (s *stubHistoryReader) ListRuns(_ context.Context, limit int) ([]domain.ComparisonRun, error) {
	s.gotLimit = limit
	return s.runs, s.err
}

func (s *stubHistoryReader) GetRun(_ context.Context, runID string) (domain.ComparisonRun, error) {
	for _, run := range s.runs {
		if run.ID == runID {
			return run, nil
		}
	}
	return domain.ComparisonRun{}, repository.ErrRunNotFound
}

func (s *stubHistoryReader) RecordHistory(_ context.Context, key domain.RecordKey, limit int) ([]domain.RecordHistoryEntry, error) {
	s.gotKey = key
	s.gotLimit = limit
	return s.entries, s.err
}

var testRun = domain.ComparisonRun{
	ID:           "01HZZZZZZZZZZZZZZZZZZZZZZZ",
	StartedAt:    time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	TARName:      "ServiceCodes_TAR.csv",
	ECBName:      "ServiceCodes_ECB.csv",
	TotalRecords: 10,
	Summary:      domain.Summary{TotalDiscrepancies: 2, TotalRecords: 10, Percentage: 20},
}

func TestHistoryDisabled(t *testing.T) {
	handlers := &HistoryHandlers{}
	for _, target := range []string{"/api/runs", "/api/runs/abc", "/api/history?spa=1&service_code=2"} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, target, nil)
		switch target {
		case "/api/runs":
			handlers.handleRuns(rec, req)
		case "/api/runs/abc":
			handlers.handleRun(rec, req)
		default:
			handlers.handleRecordHistory(rec, req)
		}
		if rec.Code != http.StatusNotFound {
			t.Fatalf("%s: expected status 404, got %d", target, rec.Code)
		}
	}
}

func TestHandleRuns(t *testing.T) {
	reader := &stubHistoryReader{runs: []domain.ComparisonRun{testRun}}
	handlers := NewHistoryHandlers(logging.Discard(), reader)

	rec := httptest.NewRecorder()
	handlers.handleRuns(rec, httptest.NewRequest(http.MethodGet, "/api/runs?limit=5", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if reader.gotLimit != 5 {
		t.Fatalf("expected limit 5, got %d", reader.gotLimit)
	}
	var payload struct {
		Runs []runResponse `json:"runs"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(payload.Runs) != 1 || payload.Runs[0].StartedAt != "2024-05-01T12:00:00Z" {
		t.Fatalf("unexpected runs payload %+v", payload.Runs)
	}
}

func TestHandleRunsError(t *testing.T) {
	handlers := NewHistoryHandlers(logging.Discard(), &stubHistoryReader{err: errors.New("graph down")})

	rec := httptest.NewRecorder()
	handlers.handleRuns(rec, httptest.NewRequest(http.MethodGet, "/api/runs", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rec.Code)
	}
}

func TestHandleRun(t *testing.T) {
	handlers := NewHistoryHandlers(logging.Discard(), &stubHistoryReader{runs: []domain.ComparisonRun{testRun}})

	rec := httptest.NewRecorder()
	handlers.handleRun(rec, httptest.NewRequest(http.MethodGet, "/api/runs/"+testRun.ID, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var payload runResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if payload.ID != testRun.ID || payload.Summary.TotalDiscrepancies != 2 {
		t.Fatalf("unexpected run payload %+v", payload)
	}

	rec = httptest.NewRecorder()
	handlers.handleRun(rec, httptest.NewRequest(http.MethodGet, "/api/runs/missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
}

func TestHandleRecordHistory(t *testing.T) {
	tarValue := "$10.00"
	reader := &stubHistoryReader{entries: []domain.RecordHistoryEntry{{
		RunID:     testRun.ID,
		StartedAt: testRun.StartedAt,
		Type:      domain.ChargeMismatch,
		Title:     "Charge Mismatch",
		TARValue:  &tarValue,
	}}}
	handlers := NewHistoryHandlers(logging.Discard(), reader)

	rec := httptest.NewRecorder()
	handlers.handleRecordHistory(rec, httptest.NewRequest(http.MethodGet, "/api/history?spa=8000&service_code=VP00100001", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if reader.gotKey != (domain.RecordKey{SPA: "8000", ServiceCode: "VP00100001"}) {
		t.Fatalf("unexpected key %+v", reader.gotKey)
	}
	var payload struct {
		History []historyEntryResponse `json:"history"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(payload.History) != 1 || payload.History[0].ECBValue != nil {
		t.Fatalf("unexpected history payload %+v", payload.History)
	}
}

func TestHandleRecordHistoryRequiresKey(t *testing.T) {
	handlers := NewHistoryHandlers(logging.Discard(), &stubHistoryReader{})

	rec := httptest.NewRecorder()
	handlers.handleRecordHistory(rec, httptest.NewRequest(http.MethodGet, "/api/history?spa=8000", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}
