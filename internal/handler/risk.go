package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nabahah/riskscore/internal/assessment"
	"github.com/nabahah/riskscore/internal/forest"
	"github.com/nabahah/riskscore/internal/risk"
	"go.uber.org/zap"
)

// Scorer scores a transaction.
type Scorer interface {
	Score(ctx context.Context, f risk.Features) (risk.Assessment, error)
}

// ModelInspector describes the fitted model.
type ModelInspector interface {
	Info() forest.Info
	TrainingSamples() int
}

// RiskHandler serves scoring, health and model introspection.
type RiskHandler struct {
	scorer Scorer
	model  ModelInspector
	store  assessment.Store // nil = assessments are not recorded
	logger *zap.Logger
}

// NewRiskHandler creates a RiskHandler. store may be nil.
func NewRiskHandler(scorer Scorer, model ModelInspector, store assessment.Store, logger *zap.Logger) *RiskHandler {
	return &RiskHandler{scorer: scorer, model: model, store: store, logger: logger}
}

// Register registers the risk routes on the given router group.
func (h *RiskHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/calculate-risk", h.CalculateRisk)
	rg.GET("/health", h.Health)
	rg.GET("/model-info", h.ModelInfo)
}

type calculateResponse struct {
	Success bool `json:"success"`
	risk.Assessment
	AssessmentID string `json:"assessment_id,omitempty"`
}

// CalculateRisk handles POST /calculate-risk. Every failure, malformed input
// or otherwise, is reported as 400 with success=false.
func (h *RiskHandler) CalculateRisk(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		failRequest(c, err)
		return
	}

	features, err := risk.ParseFeatures(body)
	if err != nil {
		failRequest(c, err)
		return
	}

	ctx := c.Request.Context()
	a, err := h.scorer.Score(ctx, features)
	if err != nil {
		h.logger.Error("score transaction", zap.Error(err))
		failRequest(c, err)
		return
	}
	RecordAssessment(a)

	resp := calculateResponse{Success: true, Assessment: a}

	// Recording is best effort; the caller still gets its score.
	if h.store != nil {
		rec := assessment.NewRecord(a, c.ClientIP())
		if err := h.store.Save(ctx, rec); err != nil {
			h.logger.Warn("store assessment failed (non-fatal)", zap.Error(err))
		} else {
			resp.AssessmentID = rec.ID.String()
		}
	}

	c.JSON(http.StatusOK, resp)
}

func failRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error":   err.Error(),
	})
}

// Health handles GET /health.
func (h *RiskHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":           "healthy",
		"message":          "Risk Score API is running",
		"model":            "Random Forest",
		"training_samples": h.model.TrainingSamples(),
	})
}

type modelInfoResponse struct {
	ModelType string `json:"model_type"`
	forest.Info
}

// ModelInfo handles GET /model-info.
func (h *RiskHandler) ModelInfo(c *gin.Context) {
	c.JSON(http.StatusOK, modelInfoResponse{
		ModelType: "Random Forest Regressor",
		Info:      h.model.Info(),
	})
}
