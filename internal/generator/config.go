package generator

// Config drives the synthetic TAR/ECB generator. Chances are probabilities in [0, 1].
type Config struct {
	NumRecords       int
	MissingECBChance float64
	MissingTARChance float64
	ChargeChance     float64
	StopDateChance   float64
	NewChargeChance  float64
	CurrencyNoise    float64
	Systems          []string
	Seed             int64
}

// DefaultConfig returns a small dataset with a few percent of each discrepancy.
func DefaultConfig() Config {
	return Config{
		NumRecords:       1000,
		MissingECBChance: 0.02,
		MissingTARChance: 0.02,
		ChargeChance:     0.03,
		StopDateChance:   0.02,
		NewChargeChance:  0.02,
		CurrencyNoise:    0.3,
		Systems:          []string{"VP001", "VP068", "VP227", "VP324"},
		Seed:             42,
	}
}
