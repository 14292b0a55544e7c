// Package repository persists comparison history in the graph database.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/timekeepco/timekeep/internal/domain"
	"github.com/timekeepco/timekeep/internal/graph"
)

const (
	defaultListLimit = 20
	maxListLimit     = 200
)

// ErrRunNotFound is returned when a run id is unknown.
// startedAtLayout is fixed width so ORDER BY on the stored string is chronological.
const startedAtLayout = "2006-01-02T15:04:05.000000000Z07:00"

var ErrRunNotFound = errors.New("comparison run not found")

// History stores comparison runs as (:ComparisonRun)-[:FLAGGED]->(:ServiceRecord) paths.
type History struct {
	client graph.Client
}

// New instantiates a History repository backed by the supplied graph client.
func New(client graph.Client) *History {
	return &History{client: client}
}

// SaveRun creates or refreshes the run node.
func (h *History) SaveRun(ctx context.Context, run domain.ComparisonRun) error {
	if run.ID == "" {
		return errors.New("run id is required")
	}
	params := map[string]any{
		"runId": run.ID,
		"props": runProperties(run),
	}
	if _, err := h.client.ExecuteWrite(ctx, saveRunCypher, params); err != nil {
		return fmt.Errorf("save run %s: %w", run.ID, err)
	}
	return nil
}

// SaveDiscrepancies links a batch of discrepancies to an existing run.
func (h *History) SaveDiscrepancies(ctx context.Context, runID string, batch []domain.Discrepancy) error {
	if runID == "" {
		return errors.New("run id is required")
	}
	if len(batch) == 0 {
		return nil
	}
	items := make([]map[string]any, 0, len(batch))
	for _, d := range batch {
		items = append(items, map[string]any{
			"spa":         d.SPA,
			"serviceCode": d.ServiceCode,
			"type":        string(d.Type),
			"title":       d.Title,
			"tarValue":    optional(d.TARValue),
			"ecbValue":    optional(d.ECBValue),
		})
	}
	params := map[string]any{
		"runId": runID,
		"items": items,
	}
	if _, err := h.client.ExecuteWrite(ctx, saveDiscrepanciesCypher, params); err != nil {
		return fmt.Errorf("save %d discrepancies for run %s: %w", len(batch), runID, err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (h *History) ListRuns(ctx context.Context, limit int) ([]domain.ComparisonRun, error) {
	res, err := h.client.ExecuteRead(ctx, listRunsCypher, map[string]any{"limit": clampLimit(limit)})
	if err != nil {
		return nil, fmt.Errorf("list runs query: %w", err)
	}
	runs := make([]domain.ComparisonRun, 0, len(res.Records))
	for _, record := range res.Records {
		runs = append(runs, runFromRecord(record))
	}
	return runs, nil
}

// GetRun loads a single run by id.
func (h *History) GetRun(ctx context.Context, runID string) (domain.ComparisonRun, error) {
	res, err := h.client.ExecuteRead(ctx, getRunCypher, map[string]any{"runId": runID})
	if err != nil {
		return domain.ComparisonRun{}, fmt.Errorf("get run %s: %w", runID, err)
	}
	if len(res.Records) == 0 {
		return domain.ComparisonRun{}, ErrRunNotFound
	}
	return runFromRecord(res.Records[0]), nil
}

// RecordHistory lists every run that flagged the given record, newest first.
func (h *History) RecordHistory(ctx context.Context, key domain.RecordKey, limit int) ([]domain.RecordHistoryEntry, error) {
	params := map[string]any{
		"spa":         key.SPA,
		"serviceCode": key.ServiceCode,
		"limit":       clampLimit(limit),
	}
	res, err := h.client.ExecuteRead(ctx, recordHistoryCypher, params)
	if err != nil {
		return nil, fmt.Errorf("record history %s: %w", key, err)
	}
	entries := make([]domain.RecordHistoryEntry, 0, len(res.Records))
	for _, record := range res.Records {
		entries = append(entries, domain.RecordHistoryEntry{
			RunID:     record.String("runId"),
			StartedAt: record.Time("startedAt"),
			Type:      domain.DiscrepancyType(record.String("type")),
			Title:     record.String("title"),
			TARValue:  record.StringPtr("tarValue"),
			ECBValue:  record.StringPtr("ecbValue"),
		})
	}
	return entries, nil
}

func runProperties(run domain.ComparisonRun) map[string]any {
	counts := make([]int64, 0, len(domain.DiscrepancyTypes))
	byType := make(map[domain.DiscrepancyType]int, len(run.Summary.ByType))
	for _, tc := range run.Summary.ByType {
		byType[tc.Type] = tc.Count
	}
	for _, t := range domain.DiscrepancyTypes {
		counts = append(counts, int64(byType[t]))
	}
	return map[string]any{
		"startedAt":          run.StartedAt.UTC().Format(startedAtLayout),
		"tarName":            run.TARName,
		"ecbName":            run.ECBName,
		"totalRecords":       int64(run.TotalRecords),
		"totalDiscrepancies": int64(run.Summary.TotalDiscrepancies),
		"percentage":         run.Summary.Percentage,
		"counts":             counts,
	}
}

func runFromRecord(record graph.Record) domain.ComparisonRun {
	run := domain.ComparisonRun{
		ID:           record.String("runId"),
		StartedAt:    record.Time("startedAt"),
		TARName:      record.String("tarName"),
		ECBName:      record.String("ecbName"),
		TotalRecords: int(record.Int("totalRecords")),
	}
	run.Summary = domain.Summary{
		TotalDiscrepancies: int(record.Int("totalDiscrepancies")),
		TotalRecords:       run.TotalRecords,
		Percentage:         record.Float("percentage"),
		ByType:             make([]domain.TypeCount, 0, len(domain.DiscrepancyTypes)),
	}
	counts := toInts(record["counts"])
	for i, t := range domain.DiscrepancyTypes {
		tc := domain.TypeCount{Type: t, Label: t.Label()}
		if i < len(counts) {
			tc.Count = counts[i]
		}
		run.Summary.ByType = append(run.Summary.ByType, tc)
	}
	return run
}

func toInts(val any) []int {
	switch v := val.(type) {
	case []int64:
		out := make([]int, len(v))
		for i, n := range v {
			out[i] = int(n)
		}
		return out
	case []any:
		out := make([]int, 0, len(v))
		for _, item := range v {
			out = append(out, int(graph.Record{"n": item}.Int("n")))
		}
		return out
	default:
		return nil
	}
}

func optional(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func clampLimit(limit int) int64 {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return int64(limit)
}

const saveRunCypher = `
MERGE (r:ComparisonRun {runId: $runId})
SET r += $props
RETURN r.runId AS runId
`

const saveDiscrepanciesCypher = `
MATCH (r:ComparisonRun {runId: $runId})
UNWIND $items AS item
MERGE (s:ServiceRecord {spa: item.spa, serviceCode: item.serviceCode})
CREATE (r)-[f:FLAGGED {type: item.type, title: item.title}]->(s)
SET f.tarValue = item.tarValue,
	f.ecbValue = item.ecbValue
RETURN count(f) AS flagged
`

const runColumns = `
RETURN r.runId AS runId,
	r.startedAt AS startedAt,
	r.tarName AS tarName,
	r.ecbName AS ecbName,
	r.totalRecords AS totalRecords,
	r.totalDiscrepancies AS totalDiscrepancies,
	r.percentage AS percentage,
	r.counts AS counts
`

const listRunsCypher = `
MATCH (r:ComparisonRun)` + runColumns + `ORDER BY r.startedAt DESC
LIMIT $limit
`

const getRunCypher = `
MATCH (r:ComparisonRun {runId: $runId})` + runColumns

const recordHistoryCypher = `
MATCH (r:ComparisonRun)-[f:FLAGGED]->(:ServiceRecord {spa: $spa, serviceCode: $serviceCode})
RETURN r.runId AS runId,
	r.startedAt AS startedAt,
	f.type AS type,
	f.title AS title,
	f.tarValue AS tarValue,
	f.ecbValue AS ecbValue
ORDER BY r.startedAt DESC
LIMIT $limit
`
