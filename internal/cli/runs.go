package cli

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/timekeepco/timekeep/internal/config"
	"github.com/timekeepco/timekeep/internal/domain"
	"github.com/timekeepco/timekeep/internal/graph"
	"github.com/timekeepco/timekeep/internal/repository"
)

var errHistoryDisabled = errors.New("GRAPH_URI is not set; comparison history is disabled")

func runsCmd(root *rootOptions) *cobra.Command {
	var (
		limit       int
		spa         string
		serviceCode string
	)

	c := &cobra.Command{
		Use:   "runs",
		Short: "List recorded comparison runs, or one record's history with --spa and --service-code",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.Graph.URI == "" {
				return errHistoryDisabled
			}
			logger := root.logger(cmd.ErrOrStderr())

			ctx := cmd.Context()
			client, err := graph.NewNeo4jClient(ctx, graph.Options{
				URI:            cfg.Graph.URI,
				Database:       cfg.Graph.Database,
				Username:       cfg.Graph.Username,
				Password:       cfg.Graph.Password,
				MaxConnections: cfg.Graph.MaxConnections,
			})
			if err != nil {
				return err
			}
			defer func() {
				if err := client.Close(ctx); err != nil {
					logger.Warn("closing graph client failed", "error", err)
				}
			}()

			history := repository.New(client)
			if spa != "" || serviceCode != "" {
				if spa == "" || serviceCode == "" {
					return errors.New("--spa and --service-code must be given together")
				}
				entries, err := history.RecordHistory(ctx, domain.RecordKey{SPA: spa, ServiceCode: serviceCode}, limit)
				if err != nil {
					return err
				}
				return printHistory(cmd.OutOrStdout(), entries)
			}

			runs, err := history.ListRuns(ctx, limit)
			if err != nil {
				return err
			}
			return printRuns(cmd.OutOrStdout(), runs)
		},
	}

	c.Flags().IntVar(&limit, "limit", 20, "maximum number of rows")
	c.Flags().StringVar(&spa, "spa", "", "SPA of the record to trace")
	c.Flags().StringVar(&serviceCode, "service-code", "", "service code of the record to trace")
	return c
}

func printRuns(w io.Writer, runs []domain.ComparisonRun) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSTARTED\tTAR\tECB\tRECORDS\tDISCREPANCIES")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d (%.2f%%)\n",
			r.ID, r.StartedAt.Format(time.RFC3339), r.TARName, r.ECBName,
			r.TotalRecords, r.Summary.TotalDiscrepancies, r.Summary.Percentage)
	}
	return tw.Flush()
}

func printHistory(w io.Writer, entries []domain.RecordHistoryEntry) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSTARTED\tTYPE\tTAR\tECB")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			e.RunID, e.StartedAt.Format(time.RFC3339), e.Type.Label(), orDash(e.TARValue), orDash(e.ECBValue))
	}
	return tw.Flush()
}
