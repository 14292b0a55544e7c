package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/timekeepco/timekeep/internal/domain"
	"github.com/timekeepco/timekeep/internal/ledger"
	"github.com/timekeepco/timekeep/internal/reconcile"
)

// ErrInvalidInput marks comparison failures caused by the uploaded files.
var ErrInvalidInput = errors.New("invalid comparison input")

// ErrFilesRequired is returned when either export is missing.
var ErrFilesRequired = fmt.Errorf("%w: both files are required", ErrInvalidInput)

// RunRecorder persists a finished comparison.
type RunRecorder interface {
	Record(ctx context.Context, run domain.ComparisonRun, discrepancies []domain.Discrepancy) error
}

// ComparisonService loads two exports, reconciles them and optionally records
// the outcome.
type ComparisonService struct {
	recorder RunRecorder
	logger   *slog.Logger
	nowFn    func() time.Time
}

// ComparisonOption customises a ComparisonService.
type ComparisonOption func(*ComparisonService)

// WithRecorder enables history recording.
func WithRecorder(r RunRecorder) ComparisonOption {
	return func(s *ComparisonService) {
		s.recorder = r
	}
}

// WithNow overrides the clock used to stamp runs.
func WithNow(now func() time.Time) ComparisonOption {
	return func(s *ComparisonService) {
		s.nowFn = now
	}
}

// NewComparisonService creates a ComparisonService.
func NewComparisonService(logger *slog.Logger, opts ...ComparisonOption) *ComparisonService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &ComparisonService{
		logger: logger.With("component", "compare"),
		nowFn:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HistoryEnabled reports whether runs are recorded.
func (s *ComparisonService) HistoryEnabled() bool {
	return s.recorder != nil
}

// Compare reconciles the TAR export against the ECB export.
func (s *ComparisonService) Compare(ctx context.Context, in CompareInput) (CompareResult, error) {
	if in.TAR.Reader == nil || in.ECB.Reader == nil {
		return CompareResult{}, ErrFilesRequired
	}
	started := s.nowFn()

	var (
		mu       sync.Mutex
		warnings []ledger.Warning
		tar, ecb *domain.Ledger
	)
	collect := ledger.WithWarningHandler(func(w ledger.Warning) {
		mu.Lock()
		warnings = append(warnings, w)
		mu.Unlock()
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		l, err := ledger.LoadTAR(in.TAR.Reader, sourceName(in.TAR, "TAR"), collect)
		if err != nil {
			return fmt.Errorf("%w: TAR file: %w", ErrInvalidInput, err)
		}
		tar = l
		return nil
	})
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		l, err := ledger.LoadECB(in.ECB.Reader, sourceName(in.ECB, "ECB"), collect)
		if err != nil {
			return fmt.Errorf("%w: ECB file: %w", ErrInvalidInput, err)
		}
		ecb = l
		return nil
	})
	if err := g.Wait(); err != nil {
		return CompareResult{}, err
	}

	for _, w := range warnings {
		s.logger.Warn("coerced cell", "source", w.Source, "line", w.Line, "column", w.Column, "value", w.Value, "error", w.Err)
	}

	all := reconcile.Format(reconcile.Compare(tar, ecb))
	discrepancies := in.Filter.Apply(all)
	total := reconcile.TotalRecords(tar, ecb)
	summary := reconcile.Summarize(discrepancies, total)

	result := CompareResult{
		Discrepancies: discrepancies,
		TotalRecords:  total,
		Summary:       summary,
		Warnings:      warnings,
	}

	s.logger.Info("comparison finished",
		"tar", tar.Source,
		"ecb", ecb.Source,
		"records", total,
		"discrepancies", len(all),
		"returned", len(discrepancies),
		"duration", time.Since(started),
	)

	if s.recorder != nil {
		run := domain.ComparisonRun{
			ID:           ulid.Make().String(),
			StartedAt:    started.UTC(),
			TARName:      tar.Source,
			ECBName:      ecb.Source,
			TotalRecords: total,
			Summary:      reconcile.Summarize(all, total),
		}
		if err := s.recorder.Record(ctx, run, all); err != nil {
			s.logger.Error("record comparison run", "run_id", run.ID, "error", err)
		} else {
			result.RunID = run.ID
		}
	}

	return result, nil
}

func sourceName(f FileInput, fallback string) string {
	if name := sanitizeString(f.Name); name != "" {
		return name
	}
	return fallback
}
