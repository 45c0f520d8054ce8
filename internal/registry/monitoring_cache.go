package registry

import (
	"context"
	"time"

	"github.com/autonome/autonome/internal/cache"
)

type monitoringLookup interface {
	IsMonitoring(ctx context.Context, telegramUsername string) (bool, error)
}

// MonitoringCache remembers users known to be monitoring. Negative answers are not
// cached because monitoring is switched on by a different process.
type MonitoringCache struct {
	lookup monitoringLookup
	known  *cache.Cache[string, bool]
}

func NewMonitoringCache(lookup monitoringLookup, ttl time.Duration) *MonitoringCache {
	return &MonitoringCache{
		lookup: lookup,
		known:  cache.NewWithConfig[string, bool](cache.DefaultMaxSize, ttl, cache.DefaultCleanupInterval),
	}
}

func (m *MonitoringCache) IsMonitoring(ctx context.Context, telegramUsername string) (bool, error) {
	key := NormalizeUsername(telegramUsername)
	if _, ok := m.known.Get(key); ok {
		return true, nil
	}

	monitoring, err := m.lookup.IsMonitoring(ctx, key)
	if err != nil {
		return false, err
	}
	if monitoring {
		m.known.Set(key, true)
	}
	return monitoring, nil
}

func (m *MonitoringCache) Close() {
	m.known.Close()
}
