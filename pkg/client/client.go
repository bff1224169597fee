package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrNotFound is returned when the requested resource does not exist.
var ErrNotFound = errors.New("not found")

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server error %d: %s", e.StatusCode, e.Message)
}

// CalculateRequest is the payload for CalculateRisk. Nil fields are omitted.
type CalculateRequest struct {
	DeviceType             *int `json:"device_type,omitempty"`
	LocationMatch          *int `json:"location_match,omitempty"`
	TimeAnomaly            *int `json:"time_anomaly,omitempty"`
	TransactionSensitivity *int `json:"transaction_sensitivity,omitempty"`
	RecentFailedAttempts   *int `json:"recent_failed_attempts,omitempty"`
}

// Int returns a pointer to v, for building a CalculateRequest.
func Int(v int) *int { return &v }

// Input echoes the signals the server scored.
type Input struct {
	DeviceType             int `json:"device_type"`
	LocationMatch          int `json:"location_match"`
	TimeAnomaly            int `json:"time_anomaly"`
	TransactionSensitivity int `json:"transaction_sensitivity"`
	RecentFailedAttempts   int `json:"recent_failed_attempts"`
}

// Assessment is a scored transaction.
type Assessment struct {
	ID             string    `json:"id,omitempty"`
	AssessmentID   string    `json:"assessment_id,omitempty"`
	CreatedAt      time.Time `json:"created_at,omitempty"`
	RiskScore      int       `json:"risk_score"`
	Level          string    `json:"level"`
	LevelAr        string    `json:"level_ar"`
	Recommendation string    `json:"recommendation"`
	Action         string    `json:"action"`
	Input          Input     `json:"input_data"`
}

// Health is the response of GET /api/health.
type Health struct {
	Status          string `json:"status"`
	Message         string `json:"message"`
	Model           string `json:"model"`
	TrainingSamples int    `json:"training_samples"`
}

// ModelInfo is the response of GET /api/model-info.
type ModelInfo struct {
	ModelType          string             `json:"model_type"`
	NEstimators        int                `json:"n_estimators"`
	TrainingSamples    int                `json:"training_samples"`
	FeatureImportances map[string]float64 `json:"feature_importance"`
	MaxDepth           int                `json:"max_depth"`
	MinSamplesSplit    int                `json:"min_samples_split"`
	MinSamplesLeaf     int                `json:"min_samples_leaf"`
	R2                 float64            `json:"r2_score"`
}

// Client talks to a riskd server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option is a functional option for configuring a Client.
type Option func(*Client) error

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		if hc == nil {
			return errors.New("nil http client")
		}
		c.httpClient = hc
		return nil
	}
}

// WithTimeout sets the per-request timeout of the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) error {
		c.httpClient.Timeout = d
		return nil
	}
}

// New creates a Client for the server at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", baseURL)
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, o := range opts {
		if err := o(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// CalculateRisk scores a transaction.
func (c *Client) CalculateRisk(ctx context.Context, req CalculateRequest) (*Assessment, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	var out Assessment
	if err := c.call(ctx, http.MethodPost, "/api/calculate-risk", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health checks the server.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var out Health
	if err := c.call(ctx, http.MethodGet, "/api/health", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ModelInfo describes the server's model.
func (c *Client) ModelInfo(ctx context.Context) (*ModelInfo, error) {
	var out ModelInfo
	if err := c.call(ctx, http.MethodGet, "/api/model-info", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetAssessment fetches a recorded assessment.
func (c *Client) GetAssessment(ctx context.Context, id string) (*Assessment, error) {
	var out Assessment
	if err := c.call(ctx, http.MethodGet, "/api/assessments/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListAssessments returns up to limit recorded assessments, newest first.
// limit <= 0 uses the server default.
func (c *Client) ListAssessments(ctx context.Context, limit int) ([]Assessment, error) {
	path := "/api/assessments"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out struct {
		Assessments []Assessment `json:"assessments"`
	}
	if err := c.call(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Assessments, nil
}

// call executes a request and decodes a 2xx JSON response into out.
func (c *Client) call(ctx context.Context, method, path string, body []byte, out any) error {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s: %w", req.URL.Path, ErrNotFound)
	}
	if resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(respBody)}
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// errorMessage extracts the "error" field of a JSON error body, falling back
// to the raw body.
func errorMessage(body []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		return e.Error
	}
	return strings.TrimSpace(string(body))
}
