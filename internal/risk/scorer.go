// Package risk turns transaction signals into a 0–100 risk score and the
// level, recommendation and action derived from it.
package risk

import (
	"context"
	"fmt"
	"math"
)

// Predictor estimates a raw risk score from a feature vector.
type Predictor interface {
	Predict(x []float64) (float64, error)
}

// Assessment is the result of scoring one transaction.
type Assessment struct {
	RiskScore      int      `json:"risk_score"`
	Level          Level    `json:"level"`
	LevelAr        string   `json:"level_ar"`
	Recommendation string   `json:"recommendation"`
	Action         Action   `json:"action"`
	Input          Features `json:"input_data"`
}

// Scorer scores transactions with a fitted model. It is safe for concurrent
// use as long as the Predictor is.
type Scorer struct {
	model Predictor
}

// NewScorer returns a Scorer backed by model.
func NewScorer(model Predictor) *Scorer {
	return &Scorer{model: model}
}

// Score predicts the risk of f and derives the level and action.
func (s *Scorer) Score(ctx context.Context, f Features) (Assessment, error) {
	if err := ctx.Err(); err != nil {
		return Assessment{}, err
	}
	raw, err := s.model.Predict(f.Vector())
	if err != nil {
		return Assessment{}, fmt.Errorf("predict: %w", err)
	}
	score, err := ScoreFromPrediction(raw)
	if err != nil {
		return Assessment{}, err
	}
	return NewAssessment(score, f), nil
}

// NewAssessment builds the assessment for an already computed score.
func NewAssessment(score int, f Features) Assessment {
	level := LevelForScore(score)
	return Assessment{
		RiskScore:      score,
		Level:          level,
		LevelAr:        level.Arabic(),
		Recommendation: level.Recommendation(),
		Action:         level.Action(),
		Input:          f,
	}
}

// ScoreFromPrediction rounds a raw prediction half-to-even and clamps it to
// [0, 100].
func ScoreFromPrediction(raw float64) (int, error) {
	if math.IsNaN(raw) {
		return 0, fmt.Errorf("model returned NaN")
	}
	r := math.RoundToEven(raw)
	switch {
	case r < 0:
		return 0, nil
	case r > 100:
		return 100, nil
	default:
		return int(r), nil
	}
}
