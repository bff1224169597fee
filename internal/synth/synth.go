// Package synth generates the synthetic transaction dataset the risk model is
// trained on. Each signal is drawn independently from a fixed categorical
// distribution and the label is a hand-written risk formula plus Gaussian
// noise, clamped to the 0–100 score range.
package synth

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// Feature column order shared by the generator, the model and the scorer.
const (
	DeviceType = iota
	LocationMatch
	TimeAnomaly
	TransactionSensitivity
	RecentFailedAttempts
)

// FeatureNames lists the model inputs in column order.
var FeatureNames = []string{
	"device_type",
	"location_match",
	"time_anomaly",
	"transaction_sensitivity",
	"recent_failed_attempts",
}

// column describes how one feature is sampled.
type column struct {
	values  []float64
	weights []float64
}

// columns holds the sampling distribution of every feature, in column order.
var columns = [...]column{
	DeviceType:             {values: []float64{0, 1}, weights: []float64{0.3, 0.7}},
	LocationMatch:          {values: []float64{0, 1}, weights: []float64{0.25, 0.75}},
	TimeAnomaly:            {values: []float64{0, 1}, weights: []float64{0.8, 0.2}},
	TransactionSensitivity: {values: []float64{0, 1, 2}, weights: []float64{0.4, 0.35, 0.25}},
	RecentFailedAttempts:   {values: []float64{0, 1, 2, 3, 4, 5}, weights: []float64{0.5, 0.2, 0.15, 0.1, 0.04, 0.01}},
}

// Config controls dataset generation.
type Config struct {
	Samples     int
	Seed        uint64
	NoiseStdDev float64
}

// DefaultConfig returns the configuration the service trains with.
func DefaultConfig() Config {
	return Config{Samples: 5000, Seed: 42, NoiseStdDev: 3}
}

// Dataset is a generated training set. X is row-major with len(FeatureNames)
// columns; Y holds the matching labels.
type Dataset struct {
	X            [][]float64
	Y            []float64
	FeatureNames []string
}

// Len returns the number of rows.
func (d *Dataset) Len() int { return len(d.Y) }

// Generate draws a dataset. The output is fully determined by cfg.
func Generate(cfg Config) (*Dataset, error) {
	if cfg.Samples <= 0 {
		return nil, fmt.Errorf("samples must be positive, got %d", cfg.Samples)
	}
	if cfg.NoiseStdDev < 0 {
		return nil, errors.New("noise standard deviation must not be negative")
	}

	src := rand.NewPCG(cfg.Seed, cfg.Seed)

	n := cfg.Samples
	X := make([][]float64, n)
	for i := range X {
		X[i] = make([]float64, len(columns))
	}

	// Columns are drawn one at a time, then the noise row by row.
	for j, col := range columns {
		dist := distuv.NewCategorical(col.weights, src)
		for i := 0; i < n; i++ {
			X[i][j] = col.values[int(dist.Rand())]
		}
	}

	noise := distuv.Normal{Mu: 0, Sigma: cfg.NoiseStdDev, Src: src}
	Y := make([]float64, n)
	for i, row := range X {
		score := BaseScore(row)
		if cfg.NoiseStdDev > 0 {
			score += noise.Rand()
		}
		Y[i] = clamp(score)
	}

	names := make([]string, len(FeatureNames))
	copy(names, FeatureNames)
	return &Dataset{X: X, Y: Y, FeatureNames: names}, nil
}

// BaseScore is the noise-free risk formula used to label rows.
func BaseScore(row []float64) float64 {
	score := 10.0
	score += row[RecentFailedAttempts] * 14
	score += row[TransactionSensitivity] * 12.5
	if row[TimeAnomaly] == 1 {
		score += 20
	}
	if row[LocationMatch] == 0 {
		score += 10
	}
	if row[DeviceType] == 0 {
		score += 10
	}
	return score
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}
