package tracking

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"sleepsafe/internal/config"
	"sleepsafe/internal/model"
)

type fakeTracker struct {
	mu          sync.Mutex
	experiments map[string]string
	nextRun     int
	metricKeys  []string
	paramKeys   []string
	finished    []string
}

func newFakeTracker() *fakeTracker {
	return &fakeTracker{experiments: make(map[string]string)}
}

func (f *fakeTracker) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/2.0/mlflow/experiments/create", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name string `json:"name"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.mu.Lock()
		defer f.mu.Unlock()
		if _, ok := f.experiments[req.Name]; ok {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"error_code": "RESOURCE_ALREADY_EXISTS",
				"message":    "experiment already exists",
			})
			return
		}
		id := "exp-1"
		f.experiments[req.Name] = id
		_ = json.NewEncoder(w).Encode(map[string]string{"experiment_id": id})
	})
	mux.HandleFunc("/api/2.0/mlflow/experiments/get-by-name", func(w http.ResponseWriter, r *http.Request) {
		name := r.URL.Query().Get("experiment_name")
		f.mu.Lock()
		defer f.mu.Unlock()
		id, ok := f.experiments[name]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]string{"error_code": "RESOURCE_DOES_NOT_EXIST"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"experiment": map[string]string{"experiment_id": id, "name": name},
		})
	})
	mux.HandleFunc("/api/2.0/mlflow/runs/create", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.nextRun++
		runID := "run-" + strconv.Itoa(f.nextRun)
		f.mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]any{
			"run": map[string]any{"info": map[string]string{"run_id": runID}},
		})
	})
	mux.HandleFunc("/api/2.0/mlflow/runs/log-metric", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Key string `json:"key"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.mu.Lock()
		f.metricKeys = append(f.metricKeys, req.Key)
		f.mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]any{})
	})
	mux.HandleFunc("/api/2.0/mlflow/runs/log-parameter", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Key string `json:"key"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.mu.Lock()
		f.paramKeys = append(f.paramKeys, req.Key)
		f.mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]any{})
	})
	mux.HandleFunc("/api/2.0/mlflow/runs/update", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			RunID string `json:"run_id"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.mu.Lock()
		f.finished = append(f.finished, req.RunID)
		f.mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]any{})
	})
	mux.HandleFunc("/api/2.0/mlflow/runs/search", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"runs": []map[string]any{
				{"info": map[string]any{"run_id": "run-b", "status": "FINISHED"}},
				{"info": map[string]any{"run_id": "run-a", "status": "FINISHED"}},
			},
		})
	})
	return mux
}

func newTestClient(t *testing.T) (*Client, *fakeTracker) {
	t.Helper()
	fake := newFakeTracker()
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)
	client := NewClient(config.TrackingConfig{URI: srv.URL, Timeout: 5 * time.Second}, nil)
	return client, fake
}

func TestGetOrCreateExperimentIdempotent(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	first, err := client.GetOrCreateExperiment(ctx, "drowsiness_detection")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	second, err := client.GetOrCreateExperiment(ctx, "drowsiness_detection")
	if err != nil {
		t.Fatalf("get-or-create on existing experiment: %v", err)
	}
	if first != second || first == "" {
		t.Fatalf("experiment ids differ: %q vs %q", first, second)
	}
}

func TestLogDetectionRun(t *testing.T) {
	client, fake := newTestClient(t)
	ctx := context.Background()

	expID, err := client.GetOrCreateExperiment(ctx, "drowsiness_detection")
	if err != nil {
		t.Fatalf("experiment: %v", err)
	}
	ev := model.DetectionEvent{
		Timestamp:  time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		EARValue:   0.15,
		IsDrowsy:   true,
		DurationMS: 3500,
		Severity:   model.SeverityMedium,
	}
	runID, err := client.LogDetectionRun(ctx, expID, ev)
	if err != nil {
		t.Fatalf("log detection run: %v", err)
	}
	if runID == "" {
		t.Fatalf("empty run id")
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()
	if len(fake.metricKeys) != 3 {
		t.Fatalf("metric keys: %v", fake.metricKeys)
	}
	if len(fake.paramKeys) != 1 || fake.paramKeys[0] != "timestamp" {
		t.Fatalf("param keys: %v", fake.paramKeys)
	}
	if len(fake.finished) != 1 || fake.finished[0] != runID {
		t.Fatalf("run not finished: %v", fake.finished)
	}
}

func TestSearchRecentRuns(t *testing.T) {
	client, _ := newTestClient(t)
	runs, err := client.SearchRecentRuns(context.Background(), "exp-1", 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(runs) != 2 || runs[0].RunID != "run-b" {
		t.Fatalf("runs: %+v", runs)
	}
}
