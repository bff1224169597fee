package forest

import (
	"context"
	"math"
	"testing"

	"github.com/nabahah/riskscore/internal/synth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stepData() ([][]float64, []float64) {
	X := make([][]float64, 100)
	y := make([]float64, 100)
	for i := range X {
		X[i] = []float64{float64(i)}
		if i >= 50 {
			y[i] = 10
		}
	}
	return X, y
}

func smallParams() Params {
	p := DefaultParams()
	p.NEstimators = 20
	return p
}

func TestFit_singleTreeLearnsStep(t *testing.T) {
	X, y := stepData()
	params := Params{NEstimators: 1, MinSamplesSplit: 2, MinSamplesLeaf: 1, Seed: 1}

	m, err := Fit(context.Background(), X, y, []string{"x"}, params)
	require.NoError(t, err)

	for i, row := range X {
		got, err := m.Predict(row)
		require.NoError(t, err)
		assert.Equal(t, y[i], got, "row %d", i)
	}
	assert.InDelta(t, 1.0, m.R2(), 1e-12)
	assert.Equal(t, 3, len(m.trees[0].nodes), "one split, two leaves")
	assert.Equal(t, 49.5, m.trees[0].nodes[0].threshold)
}

func TestFit_deterministicAcrossWorkers(t *testing.T) {
	ds, err := synth.Generate(synth.Config{Samples: 800, Seed: 42, NoiseStdDev: 3})
	require.NoError(t, err)

	p1 := smallParams()
	p1.Workers = 1
	p4 := smallParams()
	p4.Workers = 4

	a, err := Fit(context.Background(), ds.X, ds.Y, ds.FeatureNames, p1)
	require.NoError(t, err)
	b, err := Fit(context.Background(), ds.X, ds.Y, ds.FeatureNames, p4)
	require.NoError(t, err)

	assert.Equal(t, a.FeatureImportances(), b.FeatureImportances())
	for _, row := range ds.X[:100] {
		pa, _ := a.Predict(row)
		pb, _ := b.Predict(row)
		assert.Equal(t, pa, pb)
	}
}

func TestFit_importancesOnSyntheticData(t *testing.T) {
	ds, err := synth.Generate(synth.Config{Samples: 1500, Seed: 42, NoiseStdDev: 3})
	require.NoError(t, err)

	m, err := Fit(context.Background(), ds.X, ds.Y, ds.FeatureNames, smallParams())
	require.NoError(t, err)

	imp := m.FeatureImportances()
	require.Len(t, imp, len(synth.FeatureNames))

	var total float64
	for _, v := range imp {
		assert.GreaterOrEqual(t, v, 0.0)
		total += v
	}
	assert.InDelta(t, 1.0, total, 1e-9)

	failed := imp["recent_failed_attempts"]
	sensitivity := imp["transaction_sensitivity"]
	for name, v := range imp {
		if name != "recent_failed_attempts" {
			assert.Greater(t, failed, v, name)
		}
		if name != "recent_failed_attempts" && name != "transaction_sensitivity" {
			assert.Greater(t, sensitivity, v, name)
		}
	}

	assert.Greater(t, m.R2(), 0.95)
}

func TestFit_respectsTreeLimits(t *testing.T) {
	ds, err := synth.Generate(synth.Config{Samples: 600, Seed: 9, NoiseStdDev: 3})
	require.NoError(t, err)

	params := Params{
		NEstimators:     5,
		MaxDepth:        4,
		MinSamplesSplit: 10,
		MinSamplesLeaf:  7,
		Seed:            5,
	}
	m, err := Fit(context.Background(), ds.X, ds.Y, ds.FeatureNames, params)
	require.NoError(t, err)

	assert.LessOrEqual(t, m.Info().MaxTreeDepth, 4)

	// Without bootstrap every training row lands in a leaf of every tree.
	for _, tr := range m.trees {
		counts := map[int32]int{}
		for _, row := range ds.X {
			counts[leafIndex(tr, row)]++
		}
		for idx, c := range counts {
			assert.GreaterOrEqual(t, c, 7, "leaf %d", idx)
		}
	}
}

func leafIndex(t *tree, x []float64) int32 {
	i := int32(0)
	for t.nodes[i].left != leaf {
		if x[t.nodes[i].feature] <= t.nodes[i].threshold {
			i = t.nodes[i].left
		} else {
			i = t.nodes[i].right
		}
	}
	return i
}

func TestFit_constantTargetIsSingleLeaf(t *testing.T) {
	X := [][]float64{{0}, {1}, {2}, {3}, {4}, {5}, {6}, {7}, {8}, {9}, {10}, {11}}
	y := make([]float64, len(X))
	for i := range y {
		y[i] = 42
	}

	m, err := Fit(context.Background(), X, y, []string{"x"}, smallParams())
	require.NoError(t, err)

	for _, tr := range m.trees {
		assert.Len(t, tr.nodes, 1)
	}
	got, err := m.Predict([]float64{3})
	require.NoError(t, err)
	assert.Equal(t, 42.0, got)
	assert.Equal(t, 0.0, m.FeatureImportances()["x"])
}

func TestFit_validation(t *testing.T) {
	ctx := context.Background()
	X, y := stepData()

	tests := []struct {
		name   string
		X      [][]float64
		y      []float64
		names  []string
		params Params
	}{
		{"empty", nil, nil, []string{"x"}, DefaultParams()},
		{"label mismatch", X, y[:10], []string{"x"}, DefaultParams()},
		{"ragged", [][]float64{{1}, {1, 2}}, []float64{1, 2}, []string{"x"}, DefaultParams()},
		{"name mismatch", X, y, []string{"x", "z"}, DefaultParams()},
		{"no trees", X, y, []string{"x"}, Params{NEstimators: 0, MinSamplesSplit: 2, MinSamplesLeaf: 1}},
		{"bad split", X, y, []string{"x"}, Params{NEstimators: 1, MinSamplesSplit: 1, MinSamplesLeaf: 1}},
		{"bad leaf", X, y, []string{"x"}, Params{NEstimators: 1, MinSamplesSplit: 2, MinSamplesLeaf: 0}},
		{"too many features", X, y, []string{"x"}, Params{NEstimators: 1, MinSamplesSplit: 2, MinSamplesLeaf: 1, MaxFeatures: 2}},
		{"negative depth", X, y, []string{"x"}, Params{NEstimators: 1, MaxDepth: -1, MinSamplesSplit: 2, MinSamplesLeaf: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Fit(ctx, tt.X, tt.y, tt.names, tt.params)
			assert.Error(t, err)
		})
	}
}

func TestFit_cancelled(t *testing.T) {
	X, y := stepData()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Fit(ctx, X, y, []string{"x"}, DefaultParams())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPredict_featureCount(t *testing.T) {
	X, y := stepData()
	m, err := Fit(context.Background(), X, y, []string{"x"}, smallParams())
	require.NoError(t, err)

	_, err = m.Predict([]float64{1, 2})
	assert.ErrorIs(t, err, ErrFeatureCount)
}

func TestScore(t *testing.T) {
	X, y := stepData()
	m, err := Fit(context.Background(), X, y, []string{"x"}, smallParams())
	require.NoError(t, err)

	r2, err := m.Score(X, y)
	require.NoError(t, err)
	assert.InDelta(t, m.R2(), r2, 1e-12)
	assert.False(t, math.IsNaN(r2))

	_, err = m.Score(X, y[:1])
	assert.Error(t, err)
}

func TestInfo(t *testing.T) {
	X, y := stepData()
	m, err := Fit(context.Background(), X, y, []string{"x"}, smallParams())
	require.NoError(t, err)

	info := m.Info()
	assert.Equal(t, 20, info.NEstimators)
	assert.Equal(t, 10, info.MaxDepth)
	assert.Equal(t, 10, info.MinSamplesSplit)
	assert.Equal(t, 5, info.MinSamplesLeaf)
	assert.Equal(t, 1, info.MaxFeatures)
	assert.Equal(t, 100, info.TrainingSamples)
	assert.Greater(t, info.Nodes, 20)
	assert.Equal(t, []string{"x"}, m.FeatureNames())
}
