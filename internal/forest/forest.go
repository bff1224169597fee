package forest

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
)

// ErrFeatureCount is returned when an input row does not match the number of
// features the model was fit on.
var ErrFeatureCount = errors.New("feature count mismatch")

// Model is a fitted random forest.
type Model struct {
	trees        []*tree
	featureNames []string
	importances  []float64
	params       Params
	nSamples     int
	r2           float64
	trainedIn    time.Duration
}

// Info summarises a fitted model.
type Info struct {
	NEstimators        int                `json:"n_estimators"`
	MaxDepth           int                `json:"max_depth"`
	MinSamplesSplit    int                `json:"min_samples_split"`
	MinSamplesLeaf     int                `json:"min_samples_leaf"`
	MaxFeatures        int                `json:"max_features"`
	TrainingSamples    int                `json:"training_samples"`
	R2                 float64            `json:"r2_score"`
	FeatureImportances map[string]float64 `json:"feature_importance"`
	Nodes              int                `json:"nodes"`
	MaxTreeDepth       int                `json:"max_tree_depth"`
	TrainingDuration   time.Duration      `json:"-"`
}

// Fit trains a forest on X (row-major) and y.
//
// Per-tree seeds are drawn from params.Seed before any tree is fit, so the
// result does not depend on params.Workers.
func Fit(ctx context.Context, X [][]float64, y []float64, featureNames []string, params Params) (*Model, error) {
	if len(X) == 0 {
		return nil, errors.New("training set is empty")
	}
	if len(X) != len(y) {
		return nil, fmt.Errorf("got %d rows but %d labels", len(X), len(y))
	}
	nFeatures := len(X[0])
	if nFeatures == 0 {
		return nil, errors.New("training rows have no features")
	}
	for i, row := range X {
		if len(row) != nFeatures {
			return nil, fmt.Errorf("row %d has %d features, want %d: %w", i, len(row), nFeatures, ErrFeatureCount)
		}
	}
	if len(featureNames) != nFeatures {
		return nil, fmt.Errorf("got %d feature names for %d features: %w", len(featureNames), nFeatures, ErrFeatureCount)
	}
	if err := params.validate(nFeatures); err != nil {
		return nil, err
	}

	start := time.Now()

	master := rand.New(rand.NewPCG(params.Seed, params.Seed))
	seeds := make([]uint64, params.NEstimators)
	for i := range seeds {
		seeds[i] = master.Uint64()
	}

	workers := params.Workers
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	trees := make([]*tree, params.NEstimators)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range trees {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			trees[i] = fitTree(X, y, params, seeds[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fit trees: %w", err)
	}

	names := make([]string, nFeatures)
	copy(names, featureNames)

	m := &Model{
		trees:        trees,
		featureNames: names,
		importances:  meanImportances(trees, nFeatures),
		params:       params,
		nSamples:     len(y),
	}

	estimates := make([]float64, len(y))
	for i, row := range X {
		estimates[i] = m.predict(row)
	}
	m.r2 = stat.RSquaredFrom(estimates, y, nil)
	m.trainedIn = time.Since(start)
	return m, nil
}

// meanImportances normalises each tree's impurity reductions, averages them
// across trees and renormalises so the result sums to 1.
func meanImportances(trees []*tree, nFeatures int) []float64 {
	out := make([]float64, nFeatures)
	for _, t := range trees {
		var total float64
		for _, v := range t.importance {
			total += v
		}
		if total == 0 {
			continue
		}
		for f, v := range t.importance {
			out[f] += v / total
		}
	}

	var total float64
	for _, v := range out {
		total += v
	}
	if total > 0 {
		for f := range out {
			out[f] /= total
		}
	}
	return out
}

func (m *Model) predict(x []float64) float64 {
	var sum float64
	for _, t := range m.trees {
		sum += t.predict(x)
	}
	return sum / float64(len(m.trees))
}

// Predict returns the forest's estimate for one row.
func (m *Model) Predict(x []float64) (float64, error) {
	if len(x) != len(m.featureNames) {
		return 0, fmt.Errorf("got %d features, want %d: %w", len(x), len(m.featureNames), ErrFeatureCount)
	}
	return m.predict(x), nil
}

// Score returns the coefficient of determination R² of the model on X, y.
func (m *Model) Score(X [][]float64, y []float64) (float64, error) {
	if len(X) != len(y) {
		return 0, fmt.Errorf("got %d rows but %d labels", len(X), len(y))
	}
	estimates := make([]float64, len(y))
	for i, row := range X {
		v, err := m.Predict(row)
		if err != nil {
			return 0, fmt.Errorf("row %d: %w", i, err)
		}
		estimates[i] = v
	}
	return stat.RSquaredFrom(estimates, y, nil), nil
}

// FeatureNames returns the input columns in order.
func (m *Model) FeatureNames() []string {
	out := make([]string, len(m.featureNames))
	copy(out, m.featureNames)
	return out
}

// FeatureImportances maps each feature to its mean decrease in impurity.
func (m *Model) FeatureImportances() map[string]float64 {
	out := make(map[string]float64, len(m.featureNames))
	for i, name := range m.featureNames {
		out[name] = m.importances[i]
	}
	return out
}

// NEstimators returns the number of trees.
func (m *Model) NEstimators() int { return len(m.trees) }

// TrainingSamples returns the number of rows the model was fit on.
func (m *Model) TrainingSamples() int { return m.nSamples }

// R2 returns the coefficient of determination on the training set.
func (m *Model) R2() float64 { return m.r2 }

// Info summarises the model.
func (m *Model) Info() Info {
	info := Info{
		NEstimators:        len(m.trees),
		MaxDepth:           m.params.MaxDepth,
		MinSamplesSplit:    m.params.MinSamplesSplit,
		MinSamplesLeaf:     m.params.MinSamplesLeaf,
		MaxFeatures:        m.params.MaxFeatures,
		TrainingSamples:    m.nSamples,
		R2:                 m.r2,
		FeatureImportances: m.FeatureImportances(),
		TrainingDuration:   m.trainedIn,
	}
	if info.MaxFeatures == 0 {
		info.MaxFeatures = len(m.featureNames)
	}
	for _, t := range m.trees {
		info.Nodes += len(t.nodes)
		info.MaxTreeDepth = max(info.MaxTreeDepth, t.depth())
	}
	return info
}
