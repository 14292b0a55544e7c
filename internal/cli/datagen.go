package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/timekeepco/timekeep/internal/domain"
	"github.com/timekeepco/timekeep/internal/generator"
	"github.com/timekeepco/timekeep/internal/reconcile"
)

func datagenCmd() *cobra.Command {
	cfg := generator.DefaultConfig()
	var (
		systems   string
		outputDir string
	)

	c := &cobra.Command{
		Use:   "datagen",
		Short: "Generate a synthetic ServiceCodes_TAR.csv / ServiceCodes_ECB.csv pair",
		RunE: func(cmd *cobra.Command, _ []string) error {
			genCfg := cfg
			genCfg.MissingECBChance = clampProbability(cfg.MissingECBChance)
			genCfg.MissingTARChance = clampProbability(cfg.MissingTARChance)
			genCfg.ChargeChance = clampProbability(cfg.ChargeChance)
			genCfg.StopDateChance = clampProbability(cfg.StopDateChance)
			genCfg.NewChargeChance = clampProbability(cfg.NewChargeChance)
			genCfg.CurrencyNoise = clampProbability(cfg.CurrencyNoise)
			if cmd.Flags().Changed("systems") {
				genCfg.Systems = reconcile.ParseSystems(systems)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()

			gen := generator.New(genCfg)
			dataset, err := gen.Generate(ctx)
			if err != nil {
				return fmt.Errorf("generation failed: %w", err)
			}

			tarPath, ecbPath, err := generator.WriteDataset(dataset, outputDir)
			if err != nil {
				return fmt.Errorf("failed to write dataset: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Generated %d TAR rows and %d ECB rows (seed %d)\n", len(dataset.TAR), len(dataset.ECB), gen.Config().Seed)
			fmt.Fprintf(out, "  %s\n  %s\n", tarPath, ecbPath)
			for _, t := range domain.DiscrepancyTypes {
				fmt.Fprintf(out, "  expected %-20s %d\n", t.Label(), dataset.Expected[t])
			}
			return nil
		},
	}

	f := c.Flags()
	f.IntVar(&cfg.NumRecords, "records", cfg.NumRecords, "number of service records to generate")
	f.Float64Var(&cfg.MissingECBChance, "missing-ecb-chance", cfg.MissingECBChance, "probability a record is left out of the ECB file")
	f.Float64Var(&cfg.MissingTARChance, "missing-tar-chance", cfg.MissingTARChance, "probability a record is left out of the TAR file")
	f.Float64Var(&cfg.ChargeChance, "charge-chance", cfg.ChargeChance, "probability of a charge mismatch")
	f.Float64Var(&cfg.StopDateChance, "stop-date-chance", cfg.StopDateChance, "probability of a stop date mismatch")
	f.Float64Var(&cfg.NewChargeChance, "new-charge-chance", cfg.NewChargeChance, "probability of a new charge mismatch")
	f.Float64Var(&cfg.CurrencyNoise, "currency-noise", cfg.CurrencyNoise, "probability a TAR amount is written with a $ sign or padding")
	f.Int64Var(&cfg.Seed, "seed", cfg.Seed, "random seed for deterministic generation (0 picks one)")
	f.StringVar(&systems, "systems", "", "comma separated system codes to draw service codes from")
	f.StringVar(&outputDir, "output-dir", "data", "directory to write the CSV pair into")
	return c
}

func clampProbability(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 1 {
		return 1
	}
	return value
}
