// Package forest implements a random forest regressor: an ensemble of CART
// regression trees, each fit on a bootstrap resample of the training set with
// the squared-error criterion, whose predictions are averaged.
//
// A fitted Model is immutable and safe for concurrent use.
package forest

import "fmt"

// Params are the forest hyperparameters.
type Params struct {
	// NEstimators is the number of trees.
	NEstimators int
	// MaxDepth caps tree depth. 0 means unlimited.
	MaxDepth int
	// MinSamplesSplit is the minimum node size eligible for splitting.
	MinSamplesSplit int
	// MinSamplesLeaf is the minimum number of samples on each side of a split.
	MinSamplesLeaf int
	// MaxFeatures is how many features are tried per split. 0 means all.
	MaxFeatures int
	// Bootstrap fits each tree on a resample drawn with replacement.
	Bootstrap bool
	// Seed makes fitting reproducible.
	Seed uint64
	// Workers bounds concurrent tree fits. 0 means GOMAXPROCS.
	Workers int
}

// DefaultParams returns the hyperparameters the service trains with.
func DefaultParams() Params {
	return Params{
		NEstimators:     100,
		MaxDepth:        10,
		MinSamplesSplit: 10,
		MinSamplesLeaf:  5,
		Bootstrap:       true,
		Seed:            42,
	}
}

func (p Params) validate(nFeatures int) error {
	switch {
	case p.NEstimators < 1:
		return fmt.Errorf("n_estimators must be at least 1, got %d", p.NEstimators)
	case p.MaxDepth < 0:
		return fmt.Errorf("max_depth must not be negative, got %d", p.MaxDepth)
	case p.MinSamplesSplit < 2:
		return fmt.Errorf("min_samples_split must be at least 2, got %d", p.MinSamplesSplit)
	case p.MinSamplesLeaf < 1:
		return fmt.Errorf("min_samples_leaf must be at least 1, got %d", p.MinSamplesLeaf)
	case p.MaxFeatures < 0 || p.MaxFeatures > nFeatures:
		return fmt.Errorf("max_features must be in [0, %d], got %d", nFeatures, p.MaxFeatures)
	case p.Workers < 0:
		return fmt.Errorf("workers must not be negative, got %d", p.Workers)
	}
	return nil
}
