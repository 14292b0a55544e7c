package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/timekeepco/timekeep/internal/domain"
)

const (
	defaultRecorderWorkers = 4
	defaultRecorderBatch   = 250
)

// TaskError accumulates the errors of failed batches.
type TaskError struct {
	Errors []error
}

func (e *TaskError) Error() string {
	switch len(e.Errors) {
	case 0:
		return "no errors"
	case 1:
		return e.Errors[0].Error()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d errors:", len(e.Errors))
	for _, err := range e.Errors {
		b.WriteString(" " + err.Error() + ";")
	}
	return b.String()
}

// Unwrap exposes the individual errors to errors.Is and errors.As.
func (e *TaskError) Unwrap() []error {
	return e.Errors
}

func (e *TaskError) append(err error) {
	if err == nil {
		return
	}
	e.Errors = append(e.Errors, err)
}

func (e *TaskError) asError() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e
}

// HistoryRecorder is the storage contract for comparison history.
type HistoryRecorder interface {
	SaveRun(ctx context.Context, run domain.ComparisonRun) error
	SaveDiscrepancies(ctx context.Context, runID string, batch []domain.Discrepancy) error
}

// BulkRecorder writes a run and then its discrepancies in batches spread over
// a fixed pool of workers.
type BulkRecorder struct {
	history   HistoryRecorder
	workers   int
	batchSize int
}

// NewBulkRecorder creates a BulkRecorder. Non-positive sizes fall back to defaults.
func NewBulkRecorder(history HistoryRecorder, workers, batchSize int) *BulkRecorder {
	if workers <= 0 {
		workers = defaultRecorderWorkers
	}
	if batchSize <= 0 {
		batchSize = defaultRecorderBatch
	}
	return &BulkRecorder{
		history:   history,
		workers:   workers,
		batchSize: batchSize,
	}
}

// Record persists the run node first, since discrepancy batches attach to it.
func (br *BulkRecorder) Record(ctx context.Context, run domain.ComparisonRun, discrepancies []domain.Discrepancy) error {
	if err := br.history.SaveRun(ctx, run); err != nil {
		return err
	}
	batches := chunk(discrepancies, br.batchSize)
	return br.run(ctx, len(batches), func(idx int) error {
		return br.history.SaveDiscrepancies(ctx, run.ID, batches[idx])
	})
}

func (br *BulkRecorder) run(ctx context.Context, total int, workerFn func(idx int) error) error {
	if total == 0 {
		return nil
	}
	indexCh := make(chan int)
	errCh := make(chan error, total)
	var wg sync.WaitGroup

	worker := func() {
		defer wg.Done()
		for idx := range indexCh {
			if err := workerFn(idx); err != nil {
				errCh <- fmt.Errorf("batch %d: %w", idx, err)
			}
		}
	}

	workers := min(br.workers, total)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go worker()
	}

	cancelled := false
Loop:
	for i := 0; i < total; i++ {
		if ctx.Err() != nil {
			cancelled = true
			break
		}
		select {
		case indexCh <- i:
		case <-ctx.Done():
			cancelled = true
			break Loop
		}
	}
	close(indexCh)
	wg.Wait()
	close(errCh)

	if cancelled {
		return ctx.Err()
	}

	var taskErr TaskError
	for err := range errCh {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		taskErr.append(err)
	}
	return taskErr.asError()
}

func chunk(items []domain.Discrepancy, size int) [][]domain.Discrepancy {
	var out [][]domain.Discrepancy
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		out = append(out, items[start:end])
	}
	return out
}
