package engine

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"sleepsafe/internal/config"
	"sleepsafe/internal/model"
	"sleepsafe/internal/storage"
)

// Engine owns the event cache and exposes the aggregation operations to the
// boundary layer. The audit store is optional and strictly write-behind: a
// failed write never affects the cache or the returned event.
type Engine struct {
	logger *slog.Logger
	cache  *Cache
	store  storage.Store
	cfg    atomic.Value
	now    func() time.Time
}

func NewEngine(cfg *config.Config, logger *slog.Logger, store storage.Store) *Engine {
	e := &Engine{
		logger: logger,
		cache:  NewCache(cfg.Analytics.CacheSize),
		store:  store,
		now:    func() time.Time { return time.Now().UTC() },
	}
	e.cfg.Store(cfg)
	return e
}

func (e *Engine) UpdateConfig(cfg *config.Config) {
	e.cfg.Store(cfg)
}

func (e *Engine) config() *config.Config {
	if v := e.cfg.Load(); v != nil {
		return v.(*config.Config)
	}
	return config.DefaultConfig()
}

// Start consumes readings from a channel, for ingest paths that stream
// events in instead of calling Record directly.
func (e *Engine) Start(ctx context.Context, in <-chan model.TelemetryReading) {
	go func() {
		for {
			select {
			case r := <-in:
				e.Record(r.EARValue, r.IsDrowsy, r.DurationMS, r.Timestamp)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Record classifies the reading, constructs the event and appends it to the
// cache, evicting the oldest entry if the cache is full. A zero timestamp is
// resolved to the current instant.
func (e *Engine) Record(earValue float64, isDrowsy bool, durationMS int, ts time.Time) model.DetectionEvent {
	if ts.IsZero() {
		ts = e.now()
	}
	ev := model.DetectionEvent{
		Timestamp:  ts,
		EARValue:   earValue,
		IsDrowsy:   isDrowsy,
		DurationMS: durationMS,
		Severity:   ClassifySeverity(earValue, durationMS),
	}
	e.cache.Append(ev)
	if e.store != nil {
		if err := e.store.SaveEvent(context.Background(), ev); err != nil && e.logger != nil {
			e.logger.Warn("audit write failed", "err", err)
		}
	}
	return ev
}

func (e *Engine) Recent(limit int) []model.DetectionEvent {
	return e.cache.Recent(limit)
}

// Reset clears the cache and reports how many events were dropped.
func (e *Engine) Reset() int {
	return e.cache.Clear()
}

func (e *Engine) Statistics() model.Statistics {
	return Snapshot(e.cache.Snapshot())
}

func (e *Engine) Dashboard() model.DashboardSummary {
	cfg := e.config()
	return Dashboard(e.cache.Snapshot(), e.now(), cfg.Analytics.Window)
}
