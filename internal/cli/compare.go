package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/timekeepco/timekeep/internal/domain"
	"github.com/timekeepco/timekeep/internal/reconcile"
	"github.com/timekeepco/timekeep/internal/service"
)

func compareCmd(root *rootOptions) *cobra.Command {
	var (
		tarPath string
		ecbPath string
		systems string
		csvPath string
		format  string
	)

	c := &cobra.Command{
		Use:   "compare",
		Short: "Compare a TAR export against an ECB export and print the discrepancies",
		RunE: func(cmd *cobra.Command, _ []string) error {
			tar, err := os.Open(tarPath)
			if err != nil {
				return err
			}
			defer tar.Close()
			ecb, err := os.Open(ecbPath)
			if err != nil {
				return err
			}
			defer ecb.Close()

			input := service.CompareInput{
				TAR: service.FileInput{Name: filepath.Base(tarPath), Reader: tar},
				ECB: service.FileInput{Name: filepath.Base(ecbPath), Reader: ecb},
			}
			if cmd.Flags().Changed("systems") {
				input.Filter = reconcile.NewFilter(reconcile.ParseSystems(systems))
			}

			svc := service.NewComparisonService(root.logger(cmd.ErrOrStderr()))
			result, err := svc.Compare(cmd.Context(), input)
			if err != nil {
				return err
			}

			if csvPath != "" {
				if err := writeCSVFile(csvPath, result.Discrepancies); err != nil {
					return err
				}
			}
			return printResult(cmd.OutOrStdout(), result, format)
		},
	}

	c.Flags().StringVar(&tarPath, "tar", "", "Path to the TAR export (required)")
	c.Flags().StringVar(&ecbPath, "ecb", "", "Path to the ECB export (required)")
	c.Flags().StringVar(&systems, "systems", "", "Comma separated system codes to keep, e.g. VP001,VP227")
	c.Flags().StringVar(&csvPath, "csv", "", "Also write the discrepancies to this CSV file")
	c.Flags().StringVar(&format, "format", "pretty", "Output format: pretty|json")

	_ = c.MarkFlagRequired("tar")
	_ = c.MarkFlagRequired("ecb")
	return c
}

func writeCSVFile(path string, discrepancies []domain.Discrepancy) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return reconcile.WriteCSV(f, discrepancies)
}

func printResult(w io.Writer, result service.CompareResult, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		discrepancies := result.Discrepancies
		if discrepancies == nil {
			discrepancies = []domain.Discrepancy{}
		}
		return enc.Encode(map[string]any{
			"discrepancies": discrepancies,
			"total_records": result.TotalRecords,
			"summary":       result.Summary,
		})
	case "pretty", "":
		printPrettyResult(w, result)
		return nil
	default:
		return fmt.Errorf("unsupported format %q (expected pretty|json)", format)
	}
}

func printPrettyResult(w io.Writer, result service.CompareResult) {
	s := result.Summary
	fmt.Fprintf(w, "Records:       %d\n", s.TotalRecords)
	fmt.Fprintf(w, "Discrepancies: %d (%.2f%%)\n", s.TotalDiscrepancies, s.Percentage)
	for _, tc := range s.ByType {
		fmt.Fprintf(w, "  %-20s %d\n", tc.Label, tc.Count)
	}
	if len(result.Warnings) > 0 {
		fmt.Fprintf(w, "Warnings:      %d\n", len(result.Warnings))
		for _, warn := range result.Warnings {
			fmt.Fprintf(w, "  %s\n", warn)
		}
	}

	grouped := reconcile.Group(result.Discrepancies)
	for _, t := range domain.DiscrepancyTypes {
		items := grouped[t]
		if len(items) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n%s (%d)\n", t.Label(), len(items))
		for _, d := range items {
			fmt.Fprintf(w, "  %s  %s", d.SPA, d.ServiceCode)
			if d.TARValue != nil || d.ECBValue != nil {
				fmt.Fprintf(w, "  TAR: %s  ECB: %s", orDash(d.TARValue), orDash(d.ECBValue))
			}
			fmt.Fprintln(w)
		}
	}
}

func orDash(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}
