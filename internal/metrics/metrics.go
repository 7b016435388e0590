// Package metrics tracks the four monotonic counters spec §2 calls for
// (prefetched files/bytes, on-demand files/bytes) and mirrors them onto
// Prometheus collectors so a running mount can be scraped the way the
// teacher's metrics/monitor packages expose gcsfuse's counters.
package metrics

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/shameerind/fuseoverlay/internal/logger"
)

// Metrics are advisory counters updated with sync/atomic adds, per spec §5:
// they are not synchronized with the state they describe.
type Metrics struct {
	prefetchCount   atomic.Uint64
	prefetchBytes   atomic.Uint64
	onDemandCount   atomic.Uint64
	onDemandBytes   atomic.Uint64

	promPrefetchCount prometheus.Counter
	promPrefetchBytes prometheus.Counter
	promOnDemandCount prometheus.Counter
	promOnDemandBytes prometheus.Counter
}

// New builds a Metrics value and registers its Prometheus counters against
// reg. reg may be nil, in which case Prometheus registration is skipped and
// only the raw atomic counters are maintained.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		promPrefetchCount: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gitfs_prefetch_files_total",
			Help: "Files copied into the overlay by background prefetch.",
		}),
		promPrefetchBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gitfs_prefetch_bytes_total",
			Help: "Bytes copied into the overlay by background prefetch.",
		}),
		promOnDemandCount: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gitfs_on_demand_files_total",
			Help: "Files fetched from the object store to satisfy a read.",
		}),
		promOnDemandBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gitfs_on_demand_bytes_total",
			Help: "Bytes fetched from the object store to satisfy a read.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.promPrefetchCount,
			m.promPrefetchBytes,
			m.promOnDemandCount,
			m.promOnDemandBytes,
		)
	}

	return m
}

// AddPrefetch records a background-prefetched blob of n bytes.
func (m *Metrics) AddPrefetch(n uint64) {
	m.prefetchCount.Add(1)
	m.prefetchBytes.Add(n)
	m.promPrefetchCount.Add(1)
	m.promPrefetchBytes.Add(float64(n))
}

// AddOnDemand records a full on-demand fetch of a blob of n bytes.
func (m *Metrics) AddOnDemand(n uint64) {
	m.onDemandCount.Add(1)
	m.onDemandBytes.Add(n)
	m.promOnDemandCount.Add(1)
	m.promOnDemandBytes.Add(float64(n))
}

// Snapshot is a point-in-time read of the four counters.
type Snapshot struct {
	PrefetchCount uint64
	PrefetchBytes uint64
	OnDemandCount uint64
	OnDemandBytes uint64
}

// Stats returns a Snapshot of the current counter values.
func (m *Metrics) Stats() Snapshot {
	return Snapshot{
		PrefetchCount: m.prefetchCount.Load(),
		PrefetchBytes: m.prefetchBytes.Load(),
		OnDemandCount: m.onDemandCount.Load(),
		OnDemandBytes: m.onDemandBytes.Load(),
	}
}

// Log writes the current counters, plus a derived prefetch-hit-rate
// percentage, to the debug log. This supplements spec §2/§4.6 with the
// original's Metrics::log behavior (metrics.rs), which logged a hit-rate
// alongside the raw counts.
func (m *Metrics) Log() {
	s := m.Stats()
	logger.Debugf("----- gitfs metrics -----")
	logger.Debugf("prefetch: %d files, %d bytes", s.PrefetchCount, s.PrefetchBytes)
	logger.Debugf("on-demand: %d files, %d bytes", s.OnDemandCount, s.OnDemandBytes)

	total := s.PrefetchCount + s.OnDemandCount
	if total > 0 {
		pct := (s.PrefetchCount * 100) / total
		logger.Debugf("cache hit rate: %d%%", pct)
	}
}
