// Package generator synthesises matching TAR and ECB exports with a known set
// of injected discrepancies.
package generator

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"

	"github.com/timekeepco/timekeep/internal/domain"
)

// Row is a generated record plus the exact amount text written to the CSV.
type Row struct {
	Record    domain.ServiceRecord
	Charge    string
	NewCharge string
}

// Dataset is a generated TAR/ECB pair and the discrepancies a correct
// comparison must report.
type Dataset struct {
	TAR      []Row
	ECB      []Row
	Expected map[domain.DiscrepancyType]int
}

// Generator produces synthetic service code exports.
type Generator struct {
	cfg  Config
	rand *rand.Rand
}

var recordDescriptions = []string{
	"Basic Cable", "Digital Preferred", "Sports Tier", "Premium Movies",
	"HD Technology Fee", "DVR Service", "Broadcast TV Fee", "Regional Sports Fee",
}

// New returns a configured Generator instance.
func New(cfg Config) *Generator {
	if cfg.NumRecords <= 0 {
		cfg.NumRecords = DefaultConfig().NumRecords
	}
	if len(cfg.Systems) == 0 {
		cfg.Systems = DefaultConfig().Systems
	}
	cfg.MissingECBChance = clamp(cfg.MissingECBChance)
	cfg.MissingTARChance = clamp(cfg.MissingTARChance)
	cfg.ChargeChance = clamp(cfg.ChargeChance)
	cfg.StopDateChance = clamp(cfg.StopDateChance)
	cfg.NewChargeChance = clamp(cfg.NewChargeChance)
	cfg.CurrencyNoise = clamp(cfg.CurrencyNoise)
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}

	return &Generator{
		cfg:  cfg,
		rand: rand.New(rand.NewSource(cfg.Seed)),
	}
}

// Config returns the effective configuration after defaults were applied.
func (g *Generator) Config() Config {
	return g.cfg
}

// Generate builds the dataset. It respects context cancellation.
func (g *Generator) Generate(ctx context.Context) (Dataset, error) {
	ds := Dataset{
		TAR:      make([]Row, 0, g.cfg.NumRecords),
		ECB:      make([]Row, 0, g.cfg.NumRecords),
		Expected: make(map[domain.DiscrepancyType]int, len(domain.DiscrepancyTypes)),
	}

	for i := 0; i < g.cfg.NumRecords; i++ {
		if err := ctx.Err(); err != nil {
			return Dataset{}, err
		}

		system := g.cfg.Systems[g.rand.Intn(len(g.cfg.Systems))]
		spa := fmt.Sprintf("%04d", 8000+g.rand.Intn(200))
		tar := domain.ServiceRecord{
			Key: domain.RecordKey{
				SPA:         spa,
				ServiceCode: fmt.Sprintf("%s%s%04d", system, spa, i),
			},
			Charge:    decimal.New(int64(100+g.rand.Intn(20000)), -2),
			StopDate:  g.randomStopDate(),
			NewCharge: g.randomNewCharge(),
		}
		ecb := tar
		ecb.RecordDesc = recordDescriptions[g.rand.Intn(len(recordDescriptions))]
		ecb.System = system
		ecb.Prin = spa
		ecb.Agent = fmt.Sprintf("%04d", 1+g.rand.Intn(20))

		switch {
		case g.roll(g.cfg.MissingECBChance):
			ds.TAR = append(ds.TAR, g.tarRow(tar))
			ds.Expected[domain.MissingFromECB]++
			continue
		case g.roll(g.cfg.MissingTARChance):
			ds.ECB = append(ds.ECB, ecbRow(ecb))
			ds.Expected[domain.MissingFromTAR]++
			continue
		}

		if g.roll(g.cfg.ChargeChance) {
			ecb.Charge = ecb.Charge.Add(g.randomDelta())
			ds.Expected[domain.ChargeMismatch]++
		}
		if g.roll(g.cfg.StopDateChance) {
			ecb.StopDate = g.differentStopDate(tar.StopDate)
			ds.Expected[domain.StopDateMismatch]++
		}
		if g.roll(g.cfg.NewChargeChance) {
			ecb.NewCharge = ecb.NewCharge.Add(g.randomDelta())
			ds.Expected[domain.NewChargeMismatch]++
		}

		ds.TAR = append(ds.TAR, g.tarRow(tar))
		ds.ECB = append(ds.ECB, ecbRow(ecb))
	}

	return ds, nil
}

// tarRow renders amounts the messy way TAR exports do: sometimes with a
// spaced dollar sign, and zero new charges sometimes left blank.
func (g *Generator) tarRow(rec domain.ServiceRecord) Row {
	row := Row{
		Record:    rec,
		Charge:    g.noisyAmount(rec.Charge),
		NewCharge: g.noisyAmount(rec.NewCharge),
	}
	if rec.NewCharge.IsZero() && g.rand.Intn(2) == 0 {
		row.NewCharge = ""
	}
	return row
}

func ecbRow(rec domain.ServiceRecord) Row {
	return Row{
		Record:    rec,
		Charge:    rec.Charge.StringFixed(2),
		NewCharge: rec.NewCharge.StringFixed(2),
	}
}

func (g *Generator) noisyAmount(d decimal.Decimal) string {
	if g.roll(g.cfg.CurrencyNoise) {
		if g.rand.Intn(2) == 0 {
			return " $ " + d.StringFixed(2) + " "
		}
		return "$" + d.StringFixed(2)
	}
	return d.StringFixed(2)
}

func (g *Generator) randomStopDate() string {
	day := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, g.rand.Intn(3*365))
	return day.Format("010206")
}

func (g *Generator) differentStopDate(current string) string {
	for {
		if next := g.randomStopDate(); next != current {
			return next
		}
	}
}

func (g *Generator) randomNewCharge() decimal.Decimal {
	if g.rand.Float64() < 0.3 {
		return decimal.New(int64(100+g.rand.Intn(5000)), -2)
	}
	return decimal.Zero
}

// randomDelta is always positive, so a shifted amount always differs.
func (g *Generator) randomDelta() decimal.Decimal {
	return decimal.New(int64(1+g.rand.Intn(2000)), -2)
}

func (g *Generator) roll(chance float64) bool {
	return chance > 0 && g.rand.Float64() < chance
}

func clamp(chance float64) float64 {
	switch {
	case chance < 0:
		return 0
	case chance > 1:
		return 1
	default:
		return chance
	}
}
