package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"sleepsafe/internal/config"
	"sleepsafe/internal/model"
)

type telemetryMessage struct {
	Timestamp  string   `json:"timestamp"`
	EARValue   *float64 `json:"ear_value"`
	IsDrowsy   *bool    `json:"is_drowsy"`
	DurationMS *int     `json:"duration_ms"`
}

// StartKafka consumes telemetry readings from a Kafka topic and feeds them
// into the engine channel. Malformed or out-of-range messages are dropped at
// this boundary; the engine never re-validates.
func StartKafka(ctx context.Context, cfg *config.Manager, out chan<- model.TelemetryReading, logger *slog.Logger) {
	current := cfg.Get().Ingest.Kafka
	if !current.Enabled {
		if logger != nil {
			logger.Info("kafka ingest disabled")
		}
		return
	}
	if logger != nil {
		logger.Info("kafka ingest enabled", "brokers", current.Brokers, "topic", current.Topic, "group_id", current.GroupID)
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  current.Brokers,
		Topic:    current.Topic,
		GroupID:  current.GroupID,
		MinBytes: 1e3,
		MaxBytes: 10e6,
	})
	go func() {
		defer reader.Close()
		for {
			m, err := reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				if logger != nil {
					logger.Warn("kafka read error", "err", err)
				}
				if !BackoffSleep(ctx, time.Second) {
					return
				}
				continue
			}
			r, err := decodeReading(m.Value)
			if err != nil {
				if logger != nil {
					logger.Warn("kafka message rejected", "err", err)
				}
				continue
			}
			SendNonBlocking(ctx, out, r, logger)
		}
	}()
}

func decodeReading(data []byte) (model.TelemetryReading, error) {
	var msg telemetryMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return model.TelemetryReading{}, err
	}
	if msg.EARValue == nil || msg.IsDrowsy == nil || msg.DurationMS == nil {
		return model.TelemetryReading{}, errors.New("ear_value, is_drowsy and duration_ms are required")
	}
	if *msg.EARValue < 0 || *msg.EARValue > 1 {
		return model.TelemetryReading{}, errors.New("ear_value must be within [0.0, 1.0]")
	}
	if *msg.DurationMS < 0 {
		return model.TelemetryReading{}, errors.New("duration_ms must not be negative")
	}
	r := model.TelemetryReading{
		EARValue:   *msg.EARValue,
		IsDrowsy:   *msg.IsDrowsy,
		DurationMS: *msg.DurationMS,
	}
	if msg.Timestamp != "" {
		ts, err := time.Parse(time.RFC3339, msg.Timestamp)
		if err != nil {
			return model.TelemetryReading{}, err
		}
		r.Timestamp = ts
	}
	return r, nil
}
