// Package metrics exposes Prometheus collectors for the availability monitor.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JakeFAU/availmon/internal/monitor"
)

// Collectors holds every metric the monitor publishes. It implements monitor.Recorder.
type Collectors struct {
	registry *prometheus.Registry

	pollsTotal          *prometheus.CounterVec
	pollDuration        prometheus.Histogram
	availableCount      prometheus.Gauge
	lastPollTimestamp   prometheus.Gauge
	notificationsTotal  *prometheus.CounterVec
	historyWritesTotal  *prometheus.CounterVec
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// New registers the collectors on a fresh registry along with the Go and
// process collectors.
func New() *Collectors {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Collectors{
		registry: reg,
		pollsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "availmon_polls_total",
				Help: "Total number of poll cycles, labeled by outcome.",
			},
			[]string{"outcome"},
		),
		pollDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "availmon_poll_duration_seconds",
				Help:    "Histogram of poll cycle durations.",
				Buckets: []float64{0.5, 1, 2, 5, 10, 20, 45, 90},
			},
		),
		availableCount: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "availmon_available_count",
				Help: "Most recently observed number of bookable listings.",
			},
		),
		lastPollTimestamp: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "availmon_last_poll_timestamp_seconds",
				Help: "Unix time of the last completed poll cycle.",
			},
		),
		notificationsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "availmon_notifications_total",
				Help: "Total notification attempts, labeled by result.",
			},
			[]string{"result"},
		),
		historyWritesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "availmon_history_writes_total",
				Help: "Total history appends, labeled by result.",
			},
			[]string{"result"},
		),
		httpRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		),
		httpRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"method", "route"},
		),
	}
}

// Registry returns the underlying registry.
func (c *Collectors) Registry() *prometheus.Registry {
	return c.registry
}

// Handler returns an http.Handler exposing the registry.
func (c *Collectors) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// ObservePoll records one finished cycle.
func (c *Collectors) ObservePoll(outcome monitor.Outcome, d time.Duration) {
	c.pollsTotal.WithLabelValues(string(outcome)).Inc()
	c.pollDuration.Observe(d.Seconds())
	c.lastPollTimestamp.SetToCurrentTime()
}

// SetAvailable records the latest extracted count.
func (c *Collectors) SetAvailable(count int) {
	c.availableCount.Set(float64(count))
}

// ObserveNotification counts a notification attempt.
func (c *Collectors) ObserveNotification(err error) {
	c.notificationsTotal.WithLabelValues(result(err)).Inc()
}

// ObserveHistoryWrite counts a history append.
func (c *Collectors) ObserveHistoryWrite(err error) {
	c.historyWritesTotal.WithLabelValues(result(err)).Inc()
}

// ObserveHTTPRequest records one served API request.
func (c *Collectors) ObserveHTTPRequest(method, route string, code int, d time.Duration) {
	c.httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	c.httpRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
