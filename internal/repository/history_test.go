package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timekeepco/timekeep/internal/domain"
	"github.com/timekeepco/timekeep/internal/graph"
)

func strPtr(s string) *string { return &s }

func TestStartedAtSortsChronologically(t *testing.T) {
	whole := time.Date(2024, 12, 11, 9, 30, 5, 0, time.UTC)
	later := whole.Add(100 * time.Millisecond)

	a := runProperties(domain.ComparisonRun{StartedAt: whole})["startedAt"].(string)
	b := runProperties(domain.ComparisonRun{StartedAt: later})["startedAt"].(string)
	assert.Len(t, b, len(a))
	assert.Less(t, a, b)

	parsed := graph.Record{"startedAt": a}.Time("startedAt")
	assert.True(t, whole.Equal(parsed))
}

func TestSaveRunWritesProperties(t *testing.T) {
	mem := graph.NewMemoryClient()
	repo := New(mem)
	started := time.Date(2024, 12, 11, 9, 30, 0, 0, time.UTC)

	err := repo.SaveRun(context.Background(), domain.ComparisonRun{
		ID:           "01JEXAMPLE",
		StartedAt:    started,
		TARName:      "ServiceCodes_TAR.csv",
		ECBName:      "ServiceCodes_ECB.csv",
		TotalRecords: 10,
		Summary: domain.Summary{
			TotalDiscrepancies: 3,
			TotalRecords:       10,
			Percentage:         30,
			ByType: []domain.TypeCount{
				{Type: domain.ChargeMismatch, Count: 2},
				{Type: domain.MissingFromTAR, Count: 1},
			},
		},
	})
	require.NoError(t, err)

	calls := mem.WriteCalls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].Query, "MERGE (r:ComparisonRun")
	assert.Equal(t, "01JEXAMPLE", calls[0].Params["runId"])

	props, ok := calls[0].Params["props"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, started.UTC().Format(startedAtLayout), props["startedAt"])
	assert.Equal(t, int64(10), props["totalRecords"])
	assert.Equal(t, []int64{0, 1, 2, 0, 0}, props["counts"])
}

func TestSaveRunRequiresID(t *testing.T) {
	repo := New(graph.NewMemoryClient())
	assert.Error(t, repo.SaveRun(context.Background(), domain.ComparisonRun{}))
}

func TestSaveDiscrepanciesUnwindsBatch(t *testing.T) {
	mem := graph.NewMemoryClient()
	repo := New(mem)
	batch := []domain.Discrepancy{
		{Type: domain.MissingFromECB, SPA: "8000", ServiceCode: "BAS", Title: "Transaction missing from ECB file"},
		{Type: domain.ChargeMismatch, SPA: "8000", ServiceCode: "HBO", Title: "Charge mismatch found", TARValue: strPtr("$10.00"), ECBValue: strPtr("$12.00")},
	}

	require.NoError(t, repo.SaveDiscrepancies(context.Background(), "run-1", batch))

	calls := mem.WriteCalls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].Query, "UNWIND $items AS item")
	items, ok := calls[0].Params["items"].([]map[string]any)
	require.True(t, ok)
	require.Len(t, items, 2)
	assert.Nil(t, items[0]["tarValue"])
	assert.Equal(t, "$12.00", items[1]["ecbValue"])
	assert.Equal(t, "charge_mismatch", items[1]["type"])
}

func TestSaveDiscrepanciesSkipsEmptyBatch(t *testing.T) {
	mem := graph.NewMemoryClient()
	require.NoError(t, New(mem).SaveDiscrepancies(context.Background(), "run-1", nil))
	assert.Empty(t, mem.WriteCalls())
}

func TestListRunsDecodesRecords(t *testing.T) {
	mem := graph.NewMemoryClient()
	started := time.Date(2024, 12, 11, 9, 30, 0, 0, time.UTC)
	mem.PushReadResult(graph.Result{Records: []graph.Record{{
		"runId":              "run-1",
		"startedAt":          started.Format(time.RFC3339Nano),
		"tarName":            "tar.csv",
		"ecbName":            "ecb.csv",
		"totalRecords":       int64(4),
		"totalDiscrepancies": int64(2),
		"percentage":         50.0,
		"counts":             []any{int64(1), int64(0), int64(1), int64(0), int64(0)},
	}}})

	runs, err := New(mem).ListRuns(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	run := runs[0]
	assert.Equal(t, "run-1", run.ID)
	assert.True(t, started.Equal(run.StartedAt))
	assert.Equal(t, 4, run.TotalRecords)
	assert.Equal(t, 2, run.Summary.TotalDiscrepancies)
	require.Len(t, run.Summary.ByType, len(domain.DiscrepancyTypes))
	assert.Equal(t, domain.MissingFromECB, run.Summary.ByType[0].Type)
	assert.Equal(t, 1, run.Summary.ByType[0].Count)
	assert.Equal(t, "Charge Mismatch", run.Summary.ByType[2].Label)

	assert.Equal(t, int64(defaultListLimit), mem.ReadCalls()[0].Params["limit"])
}

func TestListRunsClampsLimit(t *testing.T) {
	mem := graph.NewMemoryClient()
	_, err := New(mem).ListRuns(context.Background(), 10_000)
	require.NoError(t, err)
	assert.Equal(t, int64(maxListLimit), mem.ReadCalls()[0].Params["limit"])
}

func TestGetRunNotFound(t *testing.T) {
	_, err := New(graph.NewMemoryClient()).GetRun(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestRecordHistory(t *testing.T) {
	mem := graph.NewMemoryClient()
	mem.PushReadResult(graph.Result{Records: []graph.Record{
		{"runId": "run-2", "type": "charge_mismatch", "title": "Charge mismatch found", "tarValue": "$1.00", "ecbValue": "$2.00"},
		{"runId": "run-1", "type": "missing_from_tar", "title": "Transaction missing from TAR file", "tarValue": nil, "ecbValue": nil},
	}})

	entries, err := New(mem).RecordHistory(context.Background(), domain.RecordKey{SPA: "8000", ServiceCode: "HBO"}, 5)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, domain.ChargeMismatch, entries[0].Type)
	require.NotNil(t, entries[0].TARValue)
	assert.Equal(t, "$1.00", *entries[0].TARValue)
	assert.Nil(t, entries[1].ECBValue)

	params := mem.ReadCalls()[0].Params
	assert.Equal(t, "8000", params["spa"])
	assert.Equal(t, "HBO", params["serviceCode"])
}

func TestHistoryPropagatesClientErrors(t *testing.T) {
	boom := errors.New("bolt unavailable")
	repo := New(graph.NewMemoryClient().WithError(boom))

	_, err := repo.ListRuns(context.Background(), 1)
	assert.ErrorIs(t, err, boom)
	err = repo.SaveDiscrepancies(context.Background(), "run-1", []domain.Discrepancy{{Type: domain.MissingFromECB}})
	assert.ErrorIs(t, err, boom)
}
