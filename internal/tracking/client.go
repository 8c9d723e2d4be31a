// Package tracking is a thin client for an MLflow-compatible experiment
// tracking server. The aggregation engine never depends on it; the boundary
// layer forwards events and model metrics here after the core has done its
// work, so a tracking failure can never disturb cache state.
package tracking

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"sleepsafe/internal/config"
	"sleepsafe/internal/model"
)

const apiPrefix = "/api/2.0/mlflow"

type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

type RunInfo struct {
	RunID     string `json:"run_id"`
	RunName   string `json:"run_name,omitempty"`
	Status    string `json:"status,omitempty"`
	StartTime int64  `json:"start_time,omitempty"`
	EndTime   int64  `json:"end_time,omitempty"`
}

// APIError is the tracking server's error envelope. Callers branch on Code
// to tell "already exists" apart from genuine failure.
type APIError struct {
	Code    string `json:"error_code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("tracking: %s: %s", e.Code, e.Message)
}

func IsAlreadyExists(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == "RESOURCE_ALREADY_EXISTS"
}

func NewClient(cfg config.TrackingConfig, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.URI, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

func (c *Client) URI() string {
	return c.baseURL
}

// GetOrCreateExperiment is idempotent: a RESOURCE_ALREADY_EXISTS answer from
// the create call resolves through get-by-name, anything else is an error.
func (c *Client) GetOrCreateExperiment(ctx context.Context, name string) (string, error) {
	var created struct {
		ExperimentID string `json:"experiment_id"`
	}
	err := c.post(ctx, "/experiments/create", map[string]any{"name": name}, &created)
	if err == nil {
		return created.ExperimentID, nil
	}
	if !IsAlreadyExists(err) {
		return "", err
	}
	var got struct {
		Experiment struct {
			ExperimentID string `json:"experiment_id"`
		} `json:"experiment"`
	}
	q := url.Values{"experiment_name": {name}}
	if err := c.get(ctx, "/experiments/get-by-name?"+q.Encode(), &got); err != nil {
		return "", err
	}
	return got.Experiment.ExperimentID, nil
}

func (c *Client) CreateRun(ctx context.Context, experimentID, runName string, start time.Time) (string, error) {
	var resp struct {
		Run struct {
			Info RunInfo `json:"info"`
		} `json:"run"`
	}
	body := map[string]any{
		"experiment_id": experimentID,
		"run_name":      runName,
		"start_time":    start.UnixMilli(),
	}
	if err := c.post(ctx, "/runs/create", body, &resp); err != nil {
		return "", err
	}
	return resp.Run.Info.RunID, nil
}

func (c *Client) LogMetric(ctx context.Context, runID, key string, value float64, ts time.Time) error {
	return c.post(ctx, "/runs/log-metric", map[string]any{
		"run_id":    runID,
		"key":       key,
		"value":     value,
		"timestamp": ts.UnixMilli(),
		"step":      0,
	}, nil)
}

func (c *Client) LogParam(ctx context.Context, runID, key, value string) error {
	return c.post(ctx, "/runs/log-parameter", map[string]any{
		"run_id": runID,
		"key":    key,
		"value":  value,
	}, nil)
}

func (c *Client) FinishRun(ctx context.Context, runID string) error {
	return c.post(ctx, "/runs/update", map[string]any{
		"run_id":   runID,
		"status":   "FINISHED",
		"end_time": time.Now().UTC().UnixMilli(),
	}, nil)
}

// LogDetectionRun records one detection event as a tracking run, mirroring
// what the event carries: the timestamp as a parameter and the readings as
// metrics. Returns the run id for the caller to report downstream.
func (c *Client) LogDetectionRun(ctx context.Context, experimentID string, ev model.DetectionEvent) (string, error) {
	runName := "detection_" + ev.Timestamp.UTC().Format(time.RFC3339)
	runID, err := c.CreateRun(ctx, experimentID, runName, ev.Timestamp)
	if err != nil {
		return "", err
	}
	if err := c.LogParam(ctx, runID, "timestamp", ev.Timestamp.UTC().Format(time.RFC3339Nano)); err != nil {
		return "", err
	}
	drowsy := 0.0
	if ev.IsDrowsy {
		drowsy = 1.0
	}
	metrics := map[string]float64{
		"ear_value":   ev.EARValue,
		"is_drowsy":   drowsy,
		"duration_ms": float64(ev.DurationMS),
	}
	for key, value := range metrics {
		if err := c.LogMetric(ctx, runID, key, value, ev.Timestamp); err != nil {
			return "", err
		}
	}
	if err := c.FinishRun(ctx, runID); err != nil {
		return "", err
	}
	return runID, nil
}

// LogModelMetrics records a model evaluation as a single finished run.
func (c *Client) LogModelMetrics(ctx context.Context, experimentID string, m model.ModelMetrics) (string, error) {
	runID, err := c.CreateRun(ctx, experimentID, "model_evaluation", time.Now().UTC())
	if err != nil {
		return "", err
	}
	now := time.Now().UTC()
	metrics := map[string]float64{
		"accuracy":  m.Accuracy,
		"precision": m.Precision,
		"recall":    m.Recall,
	}
	if m.F1Score != nil {
		metrics["f1_score"] = *m.F1Score
	}
	for key, value := range metrics {
		if err := c.LogMetric(ctx, runID, key, value, now); err != nil {
			return "", err
		}
	}
	if err := c.FinishRun(ctx, runID); err != nil {
		return "", err
	}
	return runID, nil
}

func (c *Client) SearchRecentRuns(ctx context.Context, experimentID string, maxResults int) ([]RunInfo, error) {
	if maxResults <= 0 {
		maxResults = 10
	}
	var resp struct {
		Runs []struct {
			Info RunInfo `json:"info"`
		} `json:"runs"`
	}
	body := map[string]any{
		"experiment_ids": []string{experimentID},
		"max_results":    maxResults,
		"order_by":       []string{"attributes.start_time DESC"},
	}
	if err := c.post(ctx, "/runs/search", body, &resp); err != nil {
		return nil, err
	}
	out := make([]RunInfo, 0, len(resp.Runs))
	for _, r := range resp.Runs {
		out = append(out, r.Info)
	}
	return out, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+apiPrefix+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+apiPrefix+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{}
		if json.Unmarshal(data, apiErr) == nil && apiErr.Code != "" {
			return apiErr
		}
		return fmt.Errorf("tracking: unexpected status %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}
