// Package metrics exposes backlog activity as Prometheus collectors.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"backlog-manager/internal/backlog"
	"backlog-manager/internal/model"
	"backlog-manager/internal/pkg/lock"
	"backlog-manager/internal/service"
)

const namespace = "backlog"

// Mutation results.
const (
	ResultOK        = "ok"
	ResultDuplicate = "duplicate"
	ResultNotFound  = "not_found"
	ResultInvalid   = "invalid"
	ResultTimeout   = "timeout"
	ResultError     = "error"
)

// Collector records mutation outcomes and keeps per-status gauges in sync
// with the latest snapshot of every backlog it has seen.
type Collector struct {
	registry *prometheus.Registry

	mutations *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	games     *prometheus.GaugeVec
	spent     prometheus.Gauge
	remaining prometheus.Gauge
	backlogs  prometheus.Gauge

	mu    sync.Mutex
	stats map[string]model.Stats
}

// NewCollector creates a Collector registered on its own registry, together
// with the Go runtime and process collectors.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mutations_total",
			Help:      "Backlog mutations by operation and result.",
		}, []string{"op", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "mutation_duration_seconds",
			Help:      "Time spent applying and persisting a mutation.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}, []string{"op"}),
		games: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "games",
			Help:      "Games across all loaded backlogs by status.",
		}, []string{"status"}),
		spent: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "spent_dollars",
			Help:      "Sum of prices of all priced games.",
		}),
		remaining: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "remaining_dollars",
			Help:      "Sum of prices of games not yet completed.",
		}),
		backlogs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "loaded",
			Help:      "Number of backlogs held in memory.",
		}),
		stats: make(map[string]model.Stats),
	}

	c.registry.MustRegister(
		c.mutations,
		c.duration,
		c.games,
		c.spent,
		c.remaining,
		c.backlogs,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Registry returns the registry the collectors live on.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// ObserveMutation implements service.MutationObserver.
func (c *Collector) ObserveMutation(op string, err error, elapsed time.Duration) {
	c.mutations.WithLabelValues(op, Result(err)).Inc()
	c.duration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// ObserveSnapshot replaces the stats of the snapshot's backlog and refreshes the gauges.
func (c *Collector) ObserveSnapshot(snap service.Snapshot) {
	st := backlog.CalculateStats(snap.Games)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.stats[snap.Key] = st

	var total model.Stats
	for _, s := range c.stats {
		total.NotStarted += s.NotStarted
		total.InProgress += s.InProgress
		total.Completed += s.Completed
		total.TotalSpent = total.TotalSpent.Add(s.TotalSpent)
		total.EstimatedRemaining = total.EstimatedRemaining.Add(s.EstimatedRemaining)
	}

	c.games.WithLabelValues(string(model.StatusNotStarted)).Set(float64(total.NotStarted))
	c.games.WithLabelValues(string(model.StatusInProgress)).Set(float64(total.InProgress))
	c.games.WithLabelValues(string(model.StatusCompleted)).Set(float64(total.Completed))
	c.spent.Set(total.TotalSpent.Float64())
	c.remaining.Set(total.EstimatedRemaining.Float64())
	c.backlogs.Set(float64(len(c.stats)))
}

// Attach wires the collector to svc and returns a function that detaches it.
func (c *Collector) Attach(svc *service.BacklogService) func() {
	return svc.Subscribe(c.ObserveSnapshot)
}

// Result maps a mutation error to its metric label.
func Result(err error) string {
	switch {
	case err == nil:
		return ResultOK
	case errors.Is(err, service.ErrDuplicateGame):
		return ResultDuplicate
	case errors.Is(err, service.ErrGameNotFound):
		return ResultNotFound
	case errors.Is(err, model.ErrEmptyTitle),
		errors.Is(err, model.ErrInvalidStatus),
		errors.Is(err, model.ErrInvalidPlatform),
		errors.Is(err, model.ErrNegativePrice):
		return ResultInvalid
	case errors.Is(err, lock.ErrLockTimeout), errors.Is(err, context.DeadlineExceeded):
		return ResultTimeout
	default:
		return ResultError
	}
}
