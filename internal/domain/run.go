package domain

import "time"

// ComparisonRun describes one completed TAR/ECB comparison.
type ComparisonRun struct {
	ID           string
	StartedAt    time.Time
	TARName      string
	ECBName      string
	TotalRecords int
	Summary      Summary
}

// RecordHistoryEntry is one appearance of a record in a past run's findings.
type RecordHistoryEntry struct {
	RunID     string
	StartedAt time.Time
	Type      DiscrepancyType
	Title     string
	TARValue  *string
	ECBValue  *string
}
