package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/timekeepco/timekeep/internal/config"
	"github.com/timekeepco/timekeep/internal/domain"
	"github.com/timekeepco/timekeep/internal/reconcile"
	"github.com/timekeepco/timekeep/internal/service"
)

const (
	multipartMemory = 8 << 20

	msgFilesRequired = "Both files are required"
)

var errOutsideDevDir = errors.New("path is outside the dev data directory")

// Comparer runs a TAR/ECB comparison.
type Comparer interface {
	Compare(ctx context.Context, in service.CompareInput) (service.CompareResult, error)
	HistoryEnabled() bool
}

// CompareHandlers serves the discrepancy viewer API.
type CompareHandlers struct {
	logger  *slog.Logger
	service Comparer
	cfg     config.CompareConfig
}

// NewCompareHandlers constructs CompareHandlers.
func NewCompareHandlers(logger *slog.Logger, svc Comparer, cfg config.CompareConfig) *CompareHandlers {
	return &CompareHandlers{
		logger:  logger,
		service: svc,
		cfg:     cfg,
	}
}

type compareResponse struct {
	Discrepancies []domain.Discrepancy `json:"discrepancies"`
	TotalRecords  int                  `json:"total_records"`
	Summary       domain.Summary       `json:"summary"`
	RunID         string               `json:"run_id,omitempty"`
	Warnings      []string             `json:"warnings,omitempty"`
}

type viewerConfigResponse struct {
	DevMode        bool              `json:"dev_mode"`
	DefaultFiles   map[string]string `json:"default_files,omitempty"`
	Systems        []string          `json:"systems"`
	HistoryEnabled bool              `json:"history_enabled"`
}

func (h *CompareHandlers) handleCompare(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	if h.cfg.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadBytes)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		switch {
		case isBodyTooLarge(err):
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d bytes", h.cfg.MaxUploadBytes))
		case errors.Is(err, http.ErrNotMultipart):
			writeError(w, http.StatusBadRequest, msgFilesRequired)
		default:
			writeError(w, http.StatusBadRequest, "invalid multipart form")
		}
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	tar, err := h.openInput(r, "tar_file")
	if err != nil {
		h.writeOpenError(w, err)
		return
	}
	if tar != nil {
		defer tar.Close()
	}
	ecb, err := h.openInput(r, "ecb_file")
	if err != nil {
		h.writeOpenError(w, err)
		return
	}
	if ecb != nil {
		defer ecb.Close()
	}
	if tar == nil || ecb == nil {
		writeError(w, http.StatusBadRequest, msgFilesRequired)
		return
	}

	input := service.CompareInput{
		TAR: service.FileInput{Name: tar.name, Reader: tar},
		ECB: service.FileInput{Name: ecb.name, Reader: ecb},
	}
	if values, ok := r.Form["systems"]; ok {
		input.Filter = reconcile.NewFilter(reconcile.ParseSystems(strings.Join(values, ",")))
	}

	result, err := h.service.Compare(r.Context(), input)
	if err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("comparison failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to compare files")
		return
	}

	discrepancies := result.Discrepancies
	if discrepancies == nil {
		discrepancies = []domain.Discrepancy{}
	}

	if strings.EqualFold(r.URL.Query().Get("format"), "csv") {
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="discrepancies.csv"`)
		if err := reconcile.WriteCSV(w, discrepancies); err != nil {
			h.logger.Error("failed to write discrepancies csv", "error", err)
		}
		return
	}

	response := compareResponse{
		Discrepancies: discrepancies,
		TotalRecords:  result.TotalRecords,
		Summary:       result.Summary,
		RunID:         result.RunID,
	}
	for _, warning := range result.Warnings {
		response.Warnings = append(response.Warnings, warning.String())
	}
	respondJSON(w, http.StatusOK, response)
}

func (h *CompareHandlers) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	response := viewerConfigResponse{
		DevMode:        h.cfg.DevMode,
		Systems:        reconcile.SystemCodes,
		HistoryEnabled: h.service.HistoryEnabled(),
	}
	if h.cfg.DevMode {
		response.DefaultFiles = map[string]string{
			"tar": h.cfg.DefaultTARFile,
			"ecb": h.cfg.DefaultECBFile,
		}
	}
	respondJSON(w, http.StatusOK, response)
}

// namedReader is an opened upload or dev-mode file.
type namedReader struct {
	io.ReadCloser
	name string
}

// openInput returns the uploaded file for field, or in dev mode the file named
// by field+"_path". A nil reader means neither was supplied.
func (h *CompareHandlers) openInput(r *http.Request, field string) (*namedReader, error) {
	if headers := r.MultipartForm.File[field]; len(headers) > 0 && headers[0].Filename != "" {
		file, err := headers[0].Open()
		if err != nil {
			return nil, fmt.Errorf("open upload %s: %w", field, err)
		}
		return &namedReader{ReadCloser: file, name: filepath.Base(headers[0].Filename)}, nil
	}

	if !h.cfg.DevMode {
		return nil, nil
	}
	requested := strings.TrimSpace(r.FormValue(field + "_path"))
	if requested == "" {
		return nil, nil
	}
	path, err := resolveDevPath(h.cfg.DevDataDir, requested)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	h.logger.Debug("using dev data file", "field", field, "path", path)
	return &namedReader{ReadCloser: file, name: filepath.Base(path)}, nil
}

func (h *CompareHandlers) writeOpenError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errOutsideDevDir):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, os.ErrNotExist):
		writeError(w, http.StatusNotFound, "file not found")
	default:
		h.logger.Error("failed to open comparison input", "error", err)
		writeError(w, http.StatusBadRequest, "could not read uploaded file")
	}
}

// resolveDevPath maps a requested path onto dir, rejecting anything that
// escapes it. Relative paths are taken relative to dir.
func resolveDevPath(dir, requested string) (string, error) {
	if strings.TrimSpace(dir) == "" {
		return "", fmt.Errorf("%w: no dev data directory configured", errOutsideDevDir)
	}
	base, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve dev data directory: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(base); err == nil {
		base = resolved
	}
	path := requested
	if !filepath.IsAbs(path) {
		path = filepath.Join(base, path)
	}
	path = filepath.Clean(path)
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		path = resolved
	}

	rel, err := filepath.Rel(base, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errOutsideDevDir
	}
	return path, nil
}
