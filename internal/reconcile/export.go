package reconcile

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/timekeepco/timekeep/internal/domain"
)

var exportHeader = []string{"type", "spa", "service_code", "title", "tar_value", "ecb_value"}

// WriteCSV writes discrepancies as CSV with a header row. Null values are
// written as empty cells.
func WriteCSV(w io.Writer, discrepancies []domain.Discrepancy) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(exportHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, d := range discrepancies {
		record := []string{string(d.Type), d.SPA, d.ServiceCode, d.Title, deref(d.TARValue), deref(d.ECBValue)}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write csv row %s_%s: %w", d.SPA, d.ServiceCode, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
