// Command trainmodel trains and evaluates a baseline drowsiness classifier
// on synthetic data and records the resulting parameters and metrics with
// the experiment tracking server. It is fully offline and never talks to
// the live aggregation service.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"sleepsafe/internal/config"
	"sleepsafe/internal/logging"
	"sleepsafe/internal/tracking"
)

type sample struct {
	ear       float64
	variance  float64
	duration  float64
	timeOfDay float64
	drowsy    bool
}

type thresholdModel struct {
	earThreshold      float64
	durationThreshold float64
}

func (m thresholdModel) predict(s sample) bool {
	return s.ear < m.earThreshold && s.duration > m.durationThreshold
}

type evaluation struct {
	accuracy  float64
	precision float64
	recall    float64
	f1        float64
}

func main() {
	_ = godotenv.Load()

	uri := flag.String("uri", "", "tracking server URI (defaults to TRACKING_URI)")
	samples := flag.Int("samples", 2000, "number of synthetic samples")
	seed := flag.Int64("seed", 42, "random seed")
	experiment := flag.String("experiment", "drowsiness_model_training", "tracking experiment name")
	flag.Parse()

	logger := logging.NewLogger("info")

	trackingURI := *uri
	if trackingURI == "" {
		trackingURI = os.Getenv("TRACKING_URI")
	}
	if trackingURI == "" {
		trackingURI = "http://127.0.0.1:5000"
	}

	logger.Info("generating synthetic training data", "samples", *samples, "seed", *seed)
	data := generateSyntheticData(*samples, *seed)
	split := len(data) * 8 / 10
	train, test := data[:split], data[split:]

	logger.Info("fitting threshold model", "train_samples", len(train))
	m := fitThresholds(train)
	eval := evaluate(m, test)

	logger.Info("model metrics",
		"ear_threshold", m.earThreshold,
		"duration_threshold", m.durationThreshold,
		"accuracy", fmt.Sprintf("%.4f", eval.accuracy),
		"precision", fmt.Sprintf("%.4f", eval.precision),
		"recall", fmt.Sprintf("%.4f", eval.recall),
		"f1_score", fmt.Sprintf("%.4f", eval.f1),
	)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	client := tracking.NewClient(config.TrackingConfig{URI: trackingURI, Timeout: 10 * time.Second}, logger)
	experimentID, err := client.GetOrCreateExperiment(ctx, *experiment)
	if err != nil {
		logger.Error("tracking experiment setup failed", "err", err)
		os.Exit(1)
	}
	runID, err := logTrainingRun(ctx, client, experimentID, m, eval, *samples, *seed)
	if err != nil {
		logger.Error("failed to log training run", "err", err)
		os.Exit(1)
	}
	logger.Info("training run logged", "run_id", runID, "experiment_id", experimentID)
}

// generateSyntheticData draws four features uniformly from [0,1) and labels
// a sample drowsy when the eye is closed enough for long enough, the same
// rule the live classifier uses in normalized form.
func generateSyntheticData(n int, seed int64) []sample {
	rng := rand.New(rand.NewSource(seed))
	out := make([]sample, n)
	for i := range out {
		s := sample{
			ear:       rng.Float64(),
			variance:  rng.Float64(),
			duration:  rng.Float64(),
			timeOfDay: rng.Float64(),
		}
		s.drowsy = s.ear < 0.25 && s.duration > 0.5
		out[i] = s
	}
	return out
}

// fitThresholds grid-searches the two decision thresholds for the best F1 on
// the training split.
func fitThresholds(train []sample) thresholdModel {
	best := thresholdModel{earThreshold: 0.25, durationThreshold: 0.5}
	bestF1 := -1.0
	for ear := 0.05; ear <= 0.50; ear += 0.01 {
		for dur := 0.10; dur <= 0.90; dur += 0.05 {
			m := thresholdModel{earThreshold: ear, durationThreshold: dur}
			if f1 := evaluate(m, train).f1; f1 > bestF1 {
				bestF1 = f1
				best = m
			}
		}
	}
	return best
}

func evaluate(m thresholdModel, data []sample) evaluation {
	var tp, fp, fn, tn float64
	for _, s := range data {
		switch pred := m.predict(s); {
		case pred && s.drowsy:
			tp++
		case pred && !s.drowsy:
			fp++
		case !pred && s.drowsy:
			fn++
		default:
			tn++
		}
	}
	var eval evaluation
	total := tp + fp + fn + tn
	if total > 0 {
		eval.accuracy = (tp + tn) / total
	}
	if tp+fp > 0 {
		eval.precision = tp / (tp + fp)
	}
	if tp+fn > 0 {
		eval.recall = tp / (tp + fn)
	}
	if eval.precision+eval.recall > 0 {
		eval.f1 = 2 * eval.precision * eval.recall / (eval.precision + eval.recall)
	}
	return eval
}

func logTrainingRun(ctx context.Context, client *tracking.Client, experimentID string, m thresholdModel, eval evaluation, samples int, seed int64) (string, error) {
	runID, err := client.CreateRun(ctx, experimentID, "threshold_baseline", time.Now().UTC())
	if err != nil {
		return "", err
	}
	params := map[string]string{
		"n_samples":          strconv.Itoa(samples),
		"test_size":          "0.2",
		"seed":               strconv.FormatInt(seed, 10),
		"ear_threshold":      fmt.Sprintf("%.2f", m.earThreshold),
		"duration_threshold": fmt.Sprintf("%.2f", m.durationThreshold),
	}
	for key, value := range params {
		if err := client.LogParam(ctx, runID, key, value); err != nil {
			return "", err
		}
	}
	now := time.Now().UTC()
	metrics := map[string]float64{
		"accuracy":  eval.accuracy,
		"precision": eval.precision,
		"recall":    eval.recall,
		"f1_score":  eval.f1,
	}
	for key, value := range metrics {
		if err := client.LogMetric(ctx, runID, key, value, now); err != nil {
			return "", err
		}
	}
	if err := client.FinishRun(ctx, runID); err != nil {
		return "", err
	}
	return runID, nil
}
