// Package metrics collects and exposes Prometheus metrics for the scheduler.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	classesAdded    prometheus.Counter
	classesDeleted  prometheus.Counter
	conflicts       prometheus.Counter
	slotLockLatency prometheus.Histogram
}

// NewCollector creates a Collector and registers its metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "schoolsched_http_requests_total",
			Help: "HTTP requests by method, route pattern and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "schoolsched_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		classesAdded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "schoolsched_classes_scheduled_total",
			Help: "Class sessions accepted by the conflict checker.",
		}),
		classesDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "schoolsched_classes_deleted_total",
			Help: "Class sessions removed.",
		}),
		conflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "schoolsched_schedule_conflicts_total",
			Help: "Class sessions rejected because they overlap an existing session.",
		}),
		slotLockLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "schoolsched_slot_transaction_seconds",
			Help:    "Time spent in room/day slot transactions, including lock wait.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.httpRequests,
		c.httpDuration,
		c.classesAdded,
		c.classesDeleted,
		c.conflicts,
		c.slotLockLatency,
	)

	return c
}

func (c *Collector) RecordHTTPRequest(method, route string, status int, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (c *Collector) ClassScheduled() {
	c.classesAdded.Inc()
}

func (c *Collector) ClassDeleted() {
	c.classesDeleted.Inc()
}

func (c *Collector) ScheduleConflict() {
	c.conflicts.Inc()
}

func (c *Collector) SlotTransaction(d time.Duration) {
	c.slotLockLatency.Observe(d.Seconds())
}

// Handler serves the Prometheus scrape endpoint.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
