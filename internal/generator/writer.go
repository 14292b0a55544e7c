package generator

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/timekeepco/timekeep/internal/ledger"
)

// File names the viewer's dev mode expects.
const (
	TARFileName = "ServiceCodes_TAR.csv"
	ECBFileName = "ServiceCodes_ECB.csv"
)

var (
	tarHeader = []string{ledger.ColumnSPA, ledger.ColumnServiceCode, ledger.ColumnCharge, ledger.ColumnStopDate, ledger.ColumnNewCharge}
	ecbHeader = append(append([]string(nil), tarHeader...), ledger.ColumnRecordDesc, ledger.ColumnSystem, ledger.ColumnPrin, ledger.ColumnAgent)
)

// WriteDataset writes ServiceCodes_TAR.csv and ServiceCodes_ECB.csv under dir
// and returns their paths.
func WriteDataset(dataset Dataset, dir string) (tarPath, ecbPath string, err error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("create output dir: %w", err)
	}

	tarPath = filepath.Join(dir, TARFileName)
	if err := writeFile(tarPath, func(w io.Writer) error { return WriteTAR(w, dataset.TAR) }); err != nil {
		return "", "", err
	}
	ecbPath = filepath.Join(dir, ECBFileName)
	if err := writeFile(ecbPath, func(w io.Writer) error { return WriteECB(w, dataset.ECB) }); err != nil {
		return "", "", err
	}
	return tarPath, ecbPath, nil
}

// WriteTAR writes rows in the TAR column layout.
func WriteTAR(w io.Writer, rows []Row) error {
	return writeRows(w, tarHeader, rows, func(r Row) []string {
		rec := r.Record
		return []string{rec.Key.SPA, rec.Key.ServiceCode, r.Charge, rec.StopDate, r.NewCharge}
	})
}

// WriteECB writes rows in the ECB column layout.
func WriteECB(w io.Writer, rows []Row) error {
	return writeRows(w, ecbHeader, rows, func(r Row) []string {
		rec := r.Record
		return []string{
			rec.Key.SPA, rec.Key.ServiceCode, r.Charge, rec.StopDate, r.NewCharge,
			rec.RecordDesc, rec.System, rec.Prin, rec.Agent,
		}
	})
}

func writeRows(w io.Writer, header []string, rows []Row, fields func(Row) []string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, row := range rows {
		if err := cw.Write(fields(row)); err != nil {
			return fmt.Errorf("write row %s: %w", row.Record.Key, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeFile(path string, write func(io.Writer) error) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	if err := write(file); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return file.Sync()
}
