package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nabahah/riskscore/internal/forest"
	"github.com/nabahah/riskscore/internal/risk"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	riskRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "riskscore_requests_total",
		Help: "Total HTTP requests by method, path, and response status.",
	}, []string{"method", "path", "status"})

	riskRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "riskscore_request_duration_seconds",
		Help:    "Request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	riskAssessmentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "riskscore_assessments_total",
		Help: "Total scored transactions by risk level.",
	}, []string{"level"})

	riskScore = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "riskscore_score",
		Help:    "Distribution of returned risk scores.",
		Buckets: prometheus.LinearBuckets(10, 10, 9),
	})

	riskModelR2 = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "riskscore_model_r2",
		Help: "Coefficient of determination of the model on its training set.",
	})

	riskModelTrainingSeconds = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "riskscore_model_training_seconds",
		Help: "Wall time spent fitting the model at startup.",
	})

	riskModelFeatureImportance = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "riskscore_model_feature_importance",
		Help: "Mean decrease in impurity per feature.",
	}, []string{"feature"})
)

// PrometheusMiddleware returns a Gin middleware that records per-request metrics.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method
		path := c.FullPath()
		if path == "" {
			// Static files and 404s share one label to keep cardinality bounded.
			path = "static"
		}

		riskRequestsTotal.WithLabelValues(method, path, status).Inc()
		riskRequestDuration.WithLabelValues(method, path).Observe(duration)
	}
}

// MetricsHandler returns a Gin handler that serves Prometheus metrics.
func MetricsHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// RecordAssessment records a scored transaction.
func RecordAssessment(a risk.Assessment) {
	riskAssessmentsTotal.WithLabelValues(a.Level.String()).Inc()
	riskScore.Observe(float64(a.RiskScore))
}

// RecordModel publishes the fitted model's summary.
func RecordModel(info forest.Info) {
	riskModelR2.Set(info.R2)
	riskModelTrainingSeconds.Set(info.TrainingDuration.Seconds())
	for name, v := range info.FeatureImportances {
		riskModelFeatureImportance.WithLabelValues(name).Set(v)
	}
}
