package cache

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
)

// Dashboard keys. Every ticket event drops all of them.
const (
	KeyDashboardOverview    = "dashboard:overview"
	KeyDashboardLive        = "dashboard:live"
	KeyDashboardSLA         = "dashboard:sla"
	KeyDashboardPerformance = "dashboard:performance"
	KeyDashboardInsights    = "dashboard:insights"
)

var dashboardKeys = []string{
	KeyDashboardOverview,
	KeyDashboardLive,
	KeyDashboardSLA,
	KeyDashboardPerformance,
	KeyDashboardInsights,
}

// Dashboard caches JSON encoded dashboard payloads. A zero TTL disables caching.
// Cache failures are logged and fall through to the loader.
type Dashboard struct {
	store  Store
	ttl    time.Duration
	logger *zap.Logger
}

func NewDashboard(store Store, ttl time.Duration, logger *zap.Logger) *Dashboard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dashboard{store: store, ttl: ttl, logger: logger}
}

// Invalidate drops every dashboard payload.
func (d *Dashboard) Invalidate(ctx context.Context) error {
	if d == nil || d.store == nil {
		return nil
	}
	return d.store.Delete(ctx, dashboardKeys...)
}

// Remember returns the cached value under key or computes, stores and returns it.
func Remember[T any](ctx context.Context, d *Dashboard, key string, load func(context.Context) (T, error)) (T, error) {
	if d == nil || d.store == nil || d.ttl <= 0 {
		return load(ctx)
	}

	if raw, ok, err := d.store.Get(ctx, key); err != nil {
		d.logger.Warn("dashboard cache read failed", zap.String("key", key), zap.Error(err))
	} else if ok {
		var cached T
		if err := json.Unmarshal(raw, &cached); err == nil {
			return cached, nil
		}
		d.logger.Warn("dashboard cache entry unreadable", zap.String("key", key))
	}

	value, err := load(ctx)
	if err != nil {
		return value, err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		d.logger.Warn("dashboard cache encode failed", zap.String("key", key), zap.Error(err))
		return value, nil
	}
	if err := d.store.Set(ctx, key, raw, d.ttl); err != nil {
		d.logger.Warn("dashboard cache write failed", zap.String("key", key), zap.Error(err))
	}
	return value, nil
}
