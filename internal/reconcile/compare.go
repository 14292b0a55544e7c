// Package reconcile compares TAR and ECB ledgers and shapes the findings for display.
package reconcile

import (
	"github.com/timekeepco/timekeep/internal/domain"
)

// Compare walks the TAR ledger in file order, reporting records absent from
// ECB and field mismatches on shared records, then reports ECB records absent
// from TAR in ECB order.
func Compare(tar, ecb *domain.Ledger) []domain.Finding {
	var findings []domain.Finding

	for _, key := range tar.Keys() {
		tarRec, _ := tar.Get(key)
		ecbRec, ok := ecb.Get(key)
		if !ok {
			findings = append(findings, domain.Finding{Type: domain.MissingFromECB, Key: key})
			continue
		}

		if !tarRec.Charge.Equal(ecbRec.Charge) {
			findings = append(findings, mismatch(domain.ChargeMismatch, key,
				domain.Amount(tarRec.Charge), domain.Amount(ecbRec.Charge)))
		}

		if tarRec.StopDate != ecbRec.StopDate {
			findings = append(findings, mismatch(domain.StopDateMismatch, key,
				domain.Text(tarRec.StopDate), domain.Text(ecbRec.StopDate)))
		}

		// A new charge only matters once either side has one.
		if (!tarRec.NewCharge.IsZero() || !ecbRec.NewCharge.IsZero()) && !tarRec.NewCharge.Equal(ecbRec.NewCharge) {
			findings = append(findings, mismatch(domain.NewChargeMismatch, key,
				domain.Amount(tarRec.NewCharge), domain.Amount(ecbRec.NewCharge)))
		}
	}

	for _, key := range ecb.Keys() {
		if !tar.Has(key) {
			findings = append(findings, domain.Finding{Type: domain.MissingFromTAR, Key: key})
		}
	}

	return findings
}

// TotalRecords counts the distinct keys across both ledgers.
func TotalRecords(tar, ecb *domain.Ledger) int {
	total := tar.Len()
	for _, key := range ecb.Keys() {
		if !tar.Has(key) {
			total++
		}
	}
	return total
}

func mismatch(t domain.DiscrepancyType, key domain.RecordKey, tarValue, ecbValue domain.Value) domain.Finding {
	return domain.Finding{
		Type:     t,
		Key:      key,
		TARValue: &tarValue,
		ECBValue: &ecbValue,
	}
}
