package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/timekeepco/timekeep/internal/domain"
	"github.com/timekeepco/timekeep/internal/repository"
)

// HistoryReader reads past comparison runs.
type HistoryReader interface {
	ListRuns(ctx context.Context, limit int) ([]domain.ComparisonRun, error)
	GetRun(ctx context.Context, runID string) (domain.ComparisonRun, error)
	RecordHistory(ctx context.Context, key domain.RecordKey, limit int) ([]domain.RecordHistoryEntry, error)
}

// HistoryHandlers serves the run history API. A zero value answers 404 on
// every route.
type HistoryHandlers struct {
	logger *slog.Logger
	reader HistoryReader
}

// NewHistoryHandlers constructs HistoryHandlers.
func NewHistoryHandlers(logger *slog.Logger, reader HistoryReader) *HistoryHandlers {
	return &HistoryHandlers{logger: logger, reader: reader}
}

type runResponse struct {
	ID           string         `json:"id"`
	StartedAt    string         `json:"started_at"`
	TARName      string         `json:"tar_name"`
	ECBName      string         `json:"ecb_name"`
	TotalRecords int            `json:"total_records"`
	Summary      domain.Summary `json:"summary"`
}

type historyEntryResponse struct {
	RunID     string                 `json:"run_id"`
	StartedAt string                 `json:"started_at"`
	Type      domain.DiscrepancyType `json:"type"`
	Title     string                 `json:"title"`
	TARValue  *string                `json:"tar_value"`
	ECBValue  *string                `json:"ecb_value"`
}

func (h *HistoryHandlers) enabled(w http.ResponseWriter) bool {
	if h == nil || h.reader == nil {
		writeError(w, http.StatusNotFound, "history is not enabled")
		return false
	}
	return true
}

func (h *HistoryHandlers) handleRuns(w http.ResponseWriter, r *http.Request) {
	if !h.enabled(w) {
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	runs, err := h.reader.ListRuns(r.Context(), parseInt(r.URL.Query().Get("limit"), 0))
	if err != nil {
		h.logger.Error("failed to list runs", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	response := make([]runResponse, 0, len(runs))
	for _, run := range runs {
		response = append(response, toRunResponse(run))
	}
	respondJSON(w, http.StatusOK, map[string]any{"runs": response})
}

func (h *HistoryHandlers) handleRun(w http.ResponseWriter, r *http.Request) {
	if !h.enabled(w) {
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/runs/"), "/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}

	run, err := h.reader.GetRun(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrRunNotFound) {
			writeError(w, http.StatusNotFound, "run not found")
			return
		}
		h.logger.Error("failed to load run", "run_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load run")
		return
	}
	respondJSON(w, http.StatusOK, toRunResponse(run))
}

func (h *HistoryHandlers) handleRecordHistory(w http.ResponseWriter, r *http.Request) {
	if !h.enabled(w) {
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	query := r.URL.Query()
	key := domain.RecordKey{
		SPA:         strings.TrimSpace(query.Get("spa")),
		ServiceCode: strings.TrimSpace(query.Get("service_code")),
	}
	if key.SPA == "" || key.ServiceCode == "" {
		writeError(w, http.StatusBadRequest, "spa and service_code are required")
		return
	}

	entries, err := h.reader.RecordHistory(r.Context(), key, parseInt(query.Get("limit"), 0))
	if err != nil {
		h.logger.Error("failed to load record history", "spa", key.SPA, "service_code", key.ServiceCode, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load record history")
		return
	}

	response := make([]historyEntryResponse, 0, len(entries))
	for _, e := range entries {
		response = append(response, historyEntryResponse{
			RunID:     e.RunID,
			StartedAt: formatTime(e.StartedAt),
			Type:      e.Type,
			Title:     e.Title,
			TARValue:  e.TARValue,
			ECBValue:  e.ECBValue,
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"spa":          key.SPA,
		"service_code": key.ServiceCode,
		"history":      response,
	})
}

func toRunResponse(run domain.ComparisonRun) runResponse {
	return runResponse{
		ID:           run.ID,
		StartedAt:    formatTime(run.StartedAt),
		TARName:      run.TARName,
		ECBName:      run.ECBName,
		TotalRecords: run.TotalRecords,
		Summary:      run.Summary,
	}
}
