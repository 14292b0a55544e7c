package reconcile

import (
	"math"

	"github.com/timekeepco/timekeep/internal/domain"
)

// Summarize counts discrepancies per type. Every known type is listed, even
// with a zero count.
func Summarize(discrepancies []domain.Discrepancy, totalRecords int) domain.Summary {
	counts := make(map[domain.DiscrepancyType]int, len(domain.DiscrepancyTypes))
	for _, d := range discrepancies {
		counts[d.Type]++
	}

	summary := domain.Summary{
		ByType:             make([]domain.TypeCount, 0, len(domain.DiscrepancyTypes)),
		TotalDiscrepancies: len(discrepancies),
		TotalRecords:       totalRecords,
	}
	for _, t := range domain.DiscrepancyTypes {
		summary.ByType = append(summary.ByType, domain.TypeCount{
			Type:  t,
			Label: t.Label(),
			Count: counts[t],
		})
	}
	if totalRecords > 0 {
		pct := float64(len(discrepancies)) / float64(totalRecords) * 100
		summary.Percentage = math.Round(pct*100) / 100
	}
	return summary
}

// Group buckets discrepancies by type, keeping input order within a bucket.
func Group(discrepancies []domain.Discrepancy) map[domain.DiscrepancyType][]domain.Discrepancy {
	grouped := make(map[domain.DiscrepancyType][]domain.Discrepancy, len(domain.DiscrepancyTypes))
	for _, t := range domain.DiscrepancyTypes {
		grouped[t] = []domain.Discrepancy{}
	}
	for _, d := range discrepancies {
		grouped[d.Type] = append(grouped[d.Type], d)
	}
	return grouped
}
