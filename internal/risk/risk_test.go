package risk

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/nabahah/riskscore/internal/forest"
	"github.com/nabahah/riskscore/internal/synth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// ── Levels ────────────────────────────────────────────────────────────────

func TestLevelForScore_boundaries(t *testing.T) {
	tests := []struct {
		score  int
		level  Level
		action Action
	}{
		{0, LevelLow, ActionAllow},
		{39, LevelLow, ActionAllow},
		{40, LevelMedium, ActionVerify},
		{74, LevelMedium, ActionVerify},
		{75, LevelHigh, ActionBlock},
		{100, LevelHigh, ActionBlock},
	}
	for _, tt := range tests {
		level := LevelForScore(tt.score)
		assert.Equal(t, tt.level, level, "score %d", tt.score)
		assert.Equal(t, tt.action, level.Action(), "score %d", tt.score)
		assert.NotEmpty(t, level.Arabic())
		assert.NotEmpty(t, level.Recommendation())
	}
}

func TestNewAssessment_everyScoreConsistent(t *testing.T) {
	for score := 0; score <= 100; score++ {
		a := NewAssessment(score, DefaultFeatures())
		switch {
		case score <= 39:
			assert.Equal(t, LevelLow, a.Level)
			assert.Equal(t, ActionAllow, a.Action)
			assert.Equal(t, "منخفض", a.LevelAr)
		case score <= 74:
			assert.Equal(t, LevelMedium, a.Level)
			assert.Equal(t, ActionVerify, a.Action)
			assert.Equal(t, "متوسط", a.LevelAr)
		default:
			assert.Equal(t, LevelHigh, a.Level)
			assert.Equal(t, ActionBlock, a.Action)
			assert.Equal(t, "مرتفع", a.LevelAr)
		}
	}
}

// ── Parsing ───────────────────────────────────────────────────────────────

func TestParseFeatures_defaults(t *testing.T) {
	for _, body := range []string{"", "  ", "{}", `{"unrelated": "x"}`} {
		f, err := ParseFeatures([]byte(body))
		require.NoError(t, err, "body %q", body)
		assert.Equal(t, Features{DeviceType: 1, LocationMatch: 1}, f, "body %q", body)
	}
}

func TestParseFeatures_coercion(t *testing.T) {
	tests := []struct {
		name string
		body string
		want Features
	}{
		{
			name: "integers",
			body: `{"device_type":0,"location_match":0,"time_anomaly":1,"transaction_sensitivity":2,"recent_failed_attempts":5}`,
			want: Features{0, 0, 1, 2, 5},
		},
		{
			name: "partial",
			body: `{"recent_failed_attempts":3}`,
			want: Features{DeviceType: 1, LocationMatch: 1, RecentFailedAttempts: 3},
		},
		{
			name: "floats truncate",
			body: `{"transaction_sensitivity":1.9,"recent_failed_attempts":-0.5,"time_anomaly":1e0}`,
			want: Features{DeviceType: 1, LocationMatch: 1, TimeAnomaly: 1, TransactionSensitivity: 1},
		},
		{
			name: "booleans",
			body: `{"device_type":false,"time_anomaly":true}`,
			want: Features{LocationMatch: 1, TimeAnomaly: 1},
		},
		{
			name: "numeric strings",
			body: `{"recent_failed_attempts":" 4 ","transaction_sensitivity":"+2","device_type":"0"}`,
			want: Features{LocationMatch: 1, TransactionSensitivity: 2, RecentFailedAttempts: 4},
		},
		{
			name: "out of range ordinals kept",
			body: `{"recent_failed_attempts":12}`,
			want: Features{DeviceType: 1, LocationMatch: 1, RecentFailedAttempts: 12},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFeatures([]byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseFeatures_fieldErrors(t *testing.T) {
	tests := []struct {
		body  string
		field string
	}{
		{`{"device_type":"abc"}`, "device_type"},
		{`{"location_match":"2.5"}`, "location_match"},
		{`{"time_anomaly":null}`, "time_anomaly"},
		{`{"transaction_sensitivity":[1]}`, "transaction_sensitivity"},
		{`{"recent_failed_attempts":{"n":1}}`, "recent_failed_attempts"},
		{`{"recent_failed_attempts":1e300}`, "recent_failed_attempts"},
		{`{"device_type":"99999999999999999999"}`, "device_type"},
	}
	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			_, err := ParseFeatures([]byte(tt.body))
			var fe *FieldError
			require.True(t, errors.As(err, &fe), "got %v", err)
			assert.Equal(t, tt.field, fe.Field)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestParseFeatures_invalidBody(t *testing.T) {
	for _, body := range []string{`{`, `[1,2]`, `null`, `"x"`, `42`, `{} {}`, `not json`} {
		_, err := ParseFeatures([]byte(body))
		assert.ErrorIs(t, err, ErrInvalidBody, "body %q", body)
	}
}

func TestFeatures_vectorOrder(t *testing.T) {
	f := Features{DeviceType: 1, LocationMatch: 2, TimeAnomaly: 3, TransactionSensitivity: 4, RecentFailedAttempts: 5}
	assert.Equal(t, []float64{1, 2, 3, 4, 5}, f.Vector())
	assert.Len(t, f.Vector(), len(synth.FeatureNames))
}

// ── Scoring ───────────────────────────────────────────────────────────────

type fixedPredictor struct {
	value float64
	err   error
}

func (p fixedPredictor) Predict([]float64) (float64, error) { return p.value, p.err }

func TestScoreFromPrediction(t *testing.T) {
	tests := []struct {
		raw  float64
		want int
	}{
		{-12.3, 0},
		{0.4, 0},
		{39.5, 40},
		{40.5, 40},
		{74.49, 74},
		{74.5, 74},
		{75.5, 76},
		{100.2, 100},
		{250, 100},
	}
	for _, tt := range tests {
		got, err := ScoreFromPrediction(tt.raw)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "raw %v", tt.raw)
	}

	_, err := ScoreFromPrediction(math.NaN())
	assert.Error(t, err)
}

func TestScorer_clampsAndMaps(t *testing.T) {
	ctx := context.Background()

	a, err := NewScorer(fixedPredictor{value: 180}).Score(ctx, DefaultFeatures())
	require.NoError(t, err)
	assert.Equal(t, 100, a.RiskScore)
	assert.Equal(t, ActionBlock, a.Action)
	assert.Equal(t, DefaultFeatures(), a.Input)

	a, err = NewScorer(fixedPredictor{value: -4}).Score(ctx, DefaultFeatures())
	require.NoError(t, err)
	assert.Equal(t, 0, a.RiskScore)
	assert.Equal(t, ActionAllow, a.Action)
}

func TestScorer_predictError(t *testing.T) {
	_, err := NewScorer(fixedPredictor{err: forest.ErrFeatureCount}).Score(context.Background(), DefaultFeatures())
	assert.ErrorIs(t, err, forest.ErrFeatureCount)
}

func TestScorer_trainedModel(t *testing.T) {
	params := forest.DefaultParams()
	params.NEstimators = 20
	model, err := Train(context.Background(),
		synth.Config{Samples: 3000, Seed: 42, NoiseStdDev: 3},
		params, zap.NewNop())
	require.NoError(t, err)

	s := NewScorer(model)
	ctx := context.Background()

	// Every combination of in-range signals scores inside [0, 100].
	for dt := 0; dt <= 1; dt++ {
		for lm := 0; lm <= 1; lm++ {
			for ta := 0; ta <= 1; ta++ {
				for ts := 0; ts <= 2; ts++ {
					for rf := 0; rf <= 5; rf++ {
						a, err := s.Score(ctx, Features{dt, lm, ta, ts, rf})
						require.NoError(t, err)
						assert.GreaterOrEqual(t, a.RiskScore, 0)
						assert.LessOrEqual(t, a.RiskScore, 100)
						assert.Equal(t, LevelForScore(a.RiskScore), a.Level)
					}
				}
			}
		}
	}

	low, err := s.Score(ctx, Features{1, 1, 0, 0, 0})
	require.NoError(t, err)
	assert.Equal(t, ActionAllow, low.Action)

	medium, err := s.Score(ctx, Features{0, 0, 0, 1, 1})
	require.NoError(t, err)
	assert.Equal(t, ActionVerify, medium.Action)

	high, err := s.Score(ctx, Features{1, 1, 1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, ActionBlock, high.Action)
}
