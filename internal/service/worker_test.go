package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timekeepco/timekeep/internal/domain"
)

type stubHistory struct {
	mu       sync.Mutex
	runs     []domain.ComparisonRun
	batches  map[string][][]domain.Discrepancy
	runErr   error
	batchErr func(batch []domain.Discrepancy) error
}

func (s *stubHistory) SaveRun(_ context.Context, run domain.ComparisonRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runErr != nil {
		return s.runErr
	}
	s.runs = append(s.runs, run)
	return nil
}

func (s *stubHistory) SaveDiscrepancies(_ context.Context, runID string, batch []domain.Discrepancy) error {
	if s.batchErr != nil {
		if err := s.batchErr(batch); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.batches == nil {
		s.batches = make(map[string][][]domain.Discrepancy)
	}
	s.batches[runID] = append(s.batches[runID], batch)
	return nil
}

func discrepancies(n int) []domain.Discrepancy {
	out := make([]domain.Discrepancy, n)
	for i := range out {
		out[i] = domain.Discrepancy{
			Type:        domain.MissingFromECB,
			SPA:         "8000",
			ServiceCode: fmt.Sprintf("VP001%05d", i),
		}
	}
	return out
}

func TestBulkRecorderBatches(t *testing.T) {
	history := &stubHistory{}
	recorder := NewBulkRecorder(history, 3, 10)

	err := recorder.Record(context.Background(), domain.ComparisonRun{ID: "run-1"}, discrepancies(25))
	require.NoError(t, err)

	require.Len(t, history.runs, 1)
	batches := history.batches["run-1"]
	require.Len(t, batches, 3)

	total := 0
	for _, b := range batches {
		assert.LessOrEqual(t, len(b), 10)
		total += len(b)
	}
	assert.Equal(t, 25, total)
}

func TestBulkRecorderSavesRunWithoutDiscrepancies(t *testing.T) {
	history := &stubHistory{}
	require.NoError(t, NewBulkRecorder(history, 0, 0).Record(context.Background(), domain.ComparisonRun{ID: "clean"}, nil))
	assert.Len(t, history.runs, 1)
	assert.Empty(t, history.batches)
}

func TestBulkRecorderStopsWhenRunFails(t *testing.T) {
	boom := errors.New("graph down")
	history := &stubHistory{runErr: boom}

	err := NewBulkRecorder(history, 2, 5).Record(context.Background(), domain.ComparisonRun{ID: "run-1"}, discrepancies(5))
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, history.batches)
}

func TestBulkRecorderAggregatesBatchErrors(t *testing.T) {
	boom := errors.New("write failed")
	history := &stubHistory{batchErr: func(batch []domain.Discrepancy) error {
		if batch[0].ServiceCode == "VP00100000" || batch[0].ServiceCode == "VP00100010" {
			return boom
		}
		return nil
	}}

	err := NewBulkRecorder(history, 2, 5).Record(context.Background(), domain.ComparisonRun{ID: "run-1"}, discrepancies(20))
	require.Error(t, err)

	var taskErr *TaskError
	require.True(t, errors.As(err, &taskErr))
	assert.Len(t, taskErr.Errors, 2)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "2 errors:")
	assert.Len(t, history.batches["run-1"], 2)
}

func TestBulkRecorderHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewBulkRecorder(&stubHistory{}, 1, 1).Record(ctx, domain.ComparisonRun{ID: "run-1"}, discrepancies(3))
	assert.ErrorIs(t, err, context.Canceled)
}
