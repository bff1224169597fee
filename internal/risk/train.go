package risk

import (
	"context"
	"fmt"

	"github.com/nabahah/riskscore/internal/forest"
	"github.com/nabahah/riskscore/internal/synth"
	"go.uber.org/zap"
)

// Train generates the synthetic training set and fits the forest on it.
func Train(ctx context.Context, data synth.Config, params forest.Params, logger *zap.Logger) (*forest.Model, error) {
	ds, err := synth.Generate(data)
	if err != nil {
		return nil, fmt.Errorf("generate training data: %w", err)
	}
	logger.Info("training random forest",
		zap.Int("samples", ds.Len()),
		zap.Int("n_estimators", params.NEstimators),
		zap.Int("max_depth", params.MaxDepth),
	)

	model, err := forest.Fit(ctx, ds.X, ds.Y, ds.FeatureNames, params)
	if err != nil {
		return nil, fmt.Errorf("fit model: %w", err)
	}

	info := model.Info()
	fields := []zap.Field{
		zap.Float64("r2", info.R2),
		zap.Duration("took", info.TrainingDuration),
	}
	for _, name := range model.FeatureNames() {
		fields = append(fields, zap.Float64("importance."+name, info.FeatureImportances[name]))
	}
	logger.Info("model trained", fields...)
	return model, nil
}
