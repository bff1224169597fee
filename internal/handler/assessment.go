package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nabahah/riskscore/internal/assessment"
	"go.uber.org/zap"
)

// AssessmentHandler exposes the assessment log.
type AssessmentHandler struct {
	store  assessment.Store // nil = storage disabled
	logger *zap.Logger
}

// NewAssessmentHandler creates an AssessmentHandler. store may be nil.
func NewAssessmentHandler(store assessment.Store, logger *zap.Logger) *AssessmentHandler {
	return &AssessmentHandler{store: store, logger: logger}
}

// Register registers the assessment routes on the given router group.
func (h *AssessmentHandler) Register(rg *gin.RouterGroup) {
	a := rg.Group("/assessments", h.requireStore)
	{
		a.GET("", h.ListAssessments)
		a.GET("/:id", h.GetAssessment)
	}
}

func (h *AssessmentHandler) requireStore(c *gin.Context) {
	if h.store == nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "assessment storage is disabled"})
		return
	}
	c.Next()
}

// GetAssessment handles GET /assessments/:id.
func (h *AssessmentHandler) GetAssessment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid assessment ID"})
		return
	}

	rec, err := h.store.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, assessment.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "assessment not found"})
			return
		}
		h.logger.Error("get assessment", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load assessment"})
		return
	}
	c.JSON(http.StatusOK, rec)
}

// ListAssessments handles GET /assessments, newest first. ?limit= caps the
// page size.
func (h *AssessmentHandler) ListAssessments(c *gin.Context) {
	limit := 0
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	recs, err := h.store.List(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("list assessments", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list assessments"})
		return
	}
	if recs == nil {
		recs = []*assessment.Record{}
	}
	c.JSON(http.StatusOK, gin.H{
		"assessments": recs,
		"count":       len(recs),
	})
}
