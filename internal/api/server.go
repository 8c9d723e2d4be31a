package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"sleepsafe/internal/config"
	"sleepsafe/internal/engine"
	"sleepsafe/internal/model"
	"sleepsafe/internal/storage"
	"sleepsafe/internal/tracking"
)

type Server struct {
	cfg          *config.Manager
	engine       *engine.Engine
	tracking     *tracking.Client
	experimentID string
	store        storage.Store
	logger       *slog.Logger
	version      string
	started      time.Time
}

type telemetryRequest struct {
	Timestamp  string   `json:"timestamp"`
	EARValue   *float64 `json:"ear_value"`
	IsDrowsy   *bool    `json:"is_drowsy"`
	DurationMS *int     `json:"duration_ms"`
}

type batchRequest struct {
	Events []telemetryRequest `json:"events"`
}

type modelMetricsRequest struct {
	Accuracy  *float64 `json:"accuracy"`
	Precision *float64 `json:"precision"`
	Recall    *float64 `json:"recall"`
	F1Score   *float64 `json:"f1_score"`
}

type telemetryResponse struct {
	Status    string         `json:"status"`
	EventID   string         `json:"event_id"`
	Timestamp time.Time      `json:"timestamp"`
	Severity  model.Severity `json:"severity"`
}

type errorResponse struct {
	Detail     string    `json:"detail"`
	StatusCode int       `json:"status_code"`
	Timestamp  time.Time `json:"timestamp"`
}

func Start(ctx context.Context, cfg *config.Manager, eng *engine.Engine, trk *tracking.Client, experimentID string, store storage.Store, logger *slog.Logger, version string) *http.Server {
	if cfg == nil {
		return nil
	}
	current := cfg.Get().API
	if !current.Enabled {
		if logger != nil {
			logger.Info("api disabled")
		}
		return nil
	}
	if logger != nil {
		logger.Info("api enabled", "addr", current.Addr)
	}
	server := &Server{
		cfg:          cfg,
		engine:       eng,
		tracking:     trk,
		experimentID: experimentID,
		store:        store,
		logger:       logger,
		version:      version,
		started:      time.Now().UTC(),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/", server.handleRoot)
	mux.HandleFunc("/health", server.handleHealth)
	mux.HandleFunc("/telemetry", server.handleTelemetry)
	mux.HandleFunc("/telemetry/batch", server.handleBatch)
	mux.HandleFunc("/statistics", server.handleStatistics)
	mux.HandleFunc("/dashboard", server.handleDashboard)
	mux.HandleFunc("/events/recent", server.handleRecentEvents)
	mux.HandleFunc("/events/cache", server.handleClearCache)
	mux.HandleFunc("/metrics/model", server.handleModelMetrics)
	mux.HandleFunc("/runs", server.handleRuns)

	httpServer := &http.Server{Addr: current.Addr, Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(ctxShutdown)
	}()
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if logger != nil {
				logger.Error("api server error", "err", err)
			}
		}
	}()
	return httpServer
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"service":   "SleepSafe Backend API",
		"version":   s.version,
		"status":    "online",
		"timestamp": time.Now().UTC(),
		"endpoints": map[string]string{
			"health":     "/health",
			"telemetry":  "/telemetry",
			"statistics": "/statistics",
			"dashboard":  "/dashboard",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	trackingURI := ""
	if s.tracking != nil {
		trackingURI = s.tracking.URI()
	}
	uptime := time.Since(s.started).Seconds()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "healthy",
		"tracking_uri":   trackingURI,
		"timestamp":      time.Now().UTC(),
		"uptime_seconds": math.Round(uptime*100) / 100,
	})
}

func (s *Server) handleTelemetry(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req telemetryRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	reading, err := req.validate()
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	ev := s.engine.Record(reading.EARValue, reading.IsDrowsy, reading.DurationMS, reading.Timestamp)

	eventID := ""
	if s.tracking != nil {
		runID, err := s.tracking.LogDetectionRun(r.Context(), s.experimentID, ev)
		if err != nil {
			if s.logger != nil {
				s.logger.Error("failed to log detection run", "err", err)
			}
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to log event: %v", err))
			return
		}
		eventID = runID
	}

	writeJSON(w, http.StatusOK, telemetryResponse{
		Status:    "logged",
		EventID:   eventID,
		Timestamp: ev.Timestamp,
		Severity:  ev.Severity,
	})
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req batchRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Events) == 0 || len(req.Events) > 100 {
		writeError(w, http.StatusUnprocessableEntity, "events must contain between 1 and 100 entries")
		return
	}
	readings := make([]model.TelemetryReading, 0, len(req.Events))
	for i, evReq := range req.Events {
		reading, err := evReq.validate()
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, fmt.Sprintf("events[%d]: %v", i, err))
			return
		}
		readings = append(readings, reading)
	}
	for _, reading := range readings {
		s.engine.Record(reading.EARValue, reading.IsDrowsy, reading.DurationMS, reading.Timestamp)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "success",
		"events_logged": len(readings),
		"timestamp":     time.Now().UTC(),
	})
}

func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.engine.Statistics())
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.engine.Dashboard())
}

func (s *Server) handleRecentEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	events := s.engine.Recent(limit)
	writeJSON(w, http.StatusOK, map[string]any{
		"events":    events,
		"count":     len(events),
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) handleClearCache(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	count := s.engine.Reset()
	if s.store != nil {
		_ = s.store.SaveSystemEvent(r.Context(), "cache_cleared", "info", "event cache cleared by admin request",
			map[string]any{"events_cleared": count})
	}
	if s.logger != nil {
		s.logger.Info("event cache cleared", "events_cleared", count)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "cleared",
		"events_cleared": count,
		"timestamp":      time.Now().UTC(),
	})
}

func (s *Server) handleModelMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req modelMetricsRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	metrics, err := req.validate()
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	runID := ""
	if s.tracking != nil {
		runID, err = s.tracking.LogModelMetrics(r.Context(), s.experimentID, metrics)
		if err != nil {
			if s.logger != nil {
				s.logger.Error("failed to log model metrics", "err", err)
			}
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to log metrics: %v", err))
			return
		}
	}
	if s.store != nil {
		_ = s.store.SaveModelMetrics(r.Context(), "drowsiness_detector", metrics, nil)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "logged",
		"run_id":    runID,
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	maxResults := 10
	if v := r.URL.Query().Get("max_results"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "max_results must be a positive integer")
			return
		}
		maxResults = n
	}
	runs := []tracking.RunInfo{}
	if s.tracking != nil {
		var err error
		runs, err = s.tracking.SearchRecentRuns(r.Context(), s.experimentID, maxResults)
		if err != nil {
			if s.logger != nil {
				s.logger.Error("failed to search runs", "err", err)
			}
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to retrieve runs: %v", err))
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"runs":      runs,
		"count":     len(runs),
		"timestamp": time.Now().UTC(),
	})
}

func (req telemetryRequest) validate() (model.TelemetryReading, error) {
	if req.EARValue == nil || req.IsDrowsy == nil || req.DurationMS == nil {
		return model.TelemetryReading{}, errors.New("ear_value, is_drowsy and duration_ms are required")
	}
	if *req.EARValue < 0 || *req.EARValue > 1 {
		return model.TelemetryReading{}, errors.New("ear_value must be within [0.0, 1.0]")
	}
	if *req.DurationMS < 0 {
		return model.TelemetryReading{}, errors.New("duration_ms must not be negative")
	}
	reading := model.TelemetryReading{
		EARValue:   *req.EARValue,
		IsDrowsy:   *req.IsDrowsy,
		DurationMS: *req.DurationMS,
	}
	if req.Timestamp != "" {
		ts, err := time.Parse(time.RFC3339, req.Timestamp)
		if err != nil {
			return model.TelemetryReading{}, fmt.Errorf("timestamp: %w", err)
		}
		reading.Timestamp = ts
	}
	return reading, nil
}

func (req modelMetricsRequest) validate() (model.ModelMetrics, error) {
	if req.Accuracy == nil || req.Precision == nil || req.Recall == nil {
		return model.ModelMetrics{}, errors.New("accuracy, precision and recall are required")
	}
	for name, v := range map[string]*float64{
		"accuracy":  req.Accuracy,
		"precision": req.Precision,
		"recall":    req.Recall,
		"f1_score":  req.F1Score,
	} {
		if v != nil && (*v < 0 || *v > 1) {
			return model.ModelMetrics{}, fmt.Errorf("%s must be within [0.0, 1.0]", name)
		}
	}
	return model.ModelMetrics{
		Accuracy:  *req.Accuracy,
		Precision: *req.Precision,
		Recall:    *req.Recall,
		F1Score:   req.F1Score,
	}, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, out any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 2<<20))
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{
		Detail:     detail,
		StatusCode: status,
		Timestamp:  time.Now().UTC(),
	})
}
