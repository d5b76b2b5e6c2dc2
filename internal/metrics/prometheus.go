// Package metrics exposes flashlog's Prometheus collectors.
//
// A Collector owns a private registry and plugs into the storage, log and
// HTTP layers through their hook interfaces.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rzbill/flashlog/internal/eventlog"
	"github.com/rzbill/flashlog/internal/storage/flash"
	pebblestore "github.com/rzbill/flashlog/internal/storage/pebble"
)

const namespace = "flashlog"

var (
	_ eventlog.Observer     = (*Collector)(nil)
	_ eventlog.RotationHook = (*Collector)(nil)
	_ flash.MetricsHook     = (*Collector)(nil)
)

// Collector records log, storage and HTTP metrics.
type Collector struct {
	registry *prometheus.Registry

	appends        *prometheus.CounterVec // by result
	appendBytes    prometheus.Counter
	rotations      prometheus.Counter
	droppedRecords prometheus.Counter
	producerDrops  prometheus.Counter
	enabled        prometheus.Gauge

	flashOps     *prometheus.CounterVec   // by op, result
	flashLatency *prometheus.HistogramVec // by op
	flashBytes   *prometheus.CounterVec   // by op

	stateCommits prometheus.Counter
	stateBytes   prometheus.Counter

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New builds a Collector with its own registry. withRuntime adds the Go
// runtime and process collectors.
func New(withRuntime bool) *Collector {
	c := &Collector{registry: prometheus.NewRegistry()}
	c.register()
	if withRuntime {
		c.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return c
}

func (c *Collector) register() {
	c.appends = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "appends_total",
		Help:      "Number of log appends by result.",
	}, []string{"result"})

	c.appendBytes = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "append_bytes_total",
		Help:      "Bytes of log lines stored.",
	})

	c.rotations = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rotations_total",
		Help:      "Number of segments erased and formatted for new records.",
	})

	c.droppedRecords = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "dropped_records_total",
		Help:      "Records lost because their segment was recycled.",
	})

	c.producerDrops = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "producer_drops_total",
		Help:      "Lines rejected because the producer queue was full.",
	})

	c.enabled = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "enabled",
		Help:      "1 when producer writes reach storage.",
	})

	c.flashOps = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "flash",
		Name:      "operations_total",
		Help:      "Segment store operations by kind and result.",
	}, []string{"op", "result"})

	c.flashLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "flash",
		Name:      "operation_seconds",
		Help:      "Latency of segment store operations.",
		Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
	}, []string{"op"})

	c.flashBytes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "flash",
		Name:      "bytes_total",
		Help:      "Bytes moved by segment store reads and writes.",
	}, []string{"op"})

	c.stateCommits = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "state",
		Name:      "commits_total",
		Help:      "Pebble batch commits.",
	})

	c.stateBytes = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "state",
		Name:      "commit_bytes_total",
		Help:      "Bytes committed to Pebble.",
	})

	c.httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Management API requests by route and status code.",
	}, []string{"route", "code"})

	c.httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_seconds",
		Help:      "Management API latency by route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route"})

	c.registry.MustRegister(
		c.appends, c.appendBytes, c.rotations, c.droppedRecords, c.producerDrops, c.enabled,
		c.flashOps, c.flashLatency, c.flashBytes,
		c.stateCommits, c.stateBytes,
		c.httpRequests, c.httpDuration,
	)
}

// Registry returns the private registry.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

func appendResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, eventlog.ErrRecordTooLarge):
		return "too_large"
	case errors.Is(err, flash.ErrStorageFault):
		return "fault"
	default:
		return "error"
	}
}

func opResult(err error) string {
	if err != nil {
		return "fault"
	}
	return "ok"
}

func (c *Collector) ObserveAppend(bytes int, err error) {
	c.appends.WithLabelValues(appendResult(err)).Inc()
	if err == nil {
		c.appendBytes.Add(float64(bytes))
	}
}

func (c *Collector) ObserveRotation(int) { c.rotations.Inc() }

func (c *Collector) ObserveEnabled(enabled bool) {
	if enabled {
		c.enabled.Set(1)
	} else {
		c.enabled.Set(0)
	}
}

func (c *Collector) ObserveProducerDrop() { c.producerDrops.Inc() }

func (c *Collector) EmitDropped(_ int, minSeq, maxSeq uint64) {
	c.droppedRecords.Add(float64(maxSeq - minSeq + 1))
}

func (c *Collector) ObserveWrite(elapsed time.Duration, bytes int, err error) {
	c.observeFlash("write", elapsed, err)
	if err == nil {
		c.flashBytes.WithLabelValues("write").Add(float64(bytes))
	}
}

func (c *Collector) ObserveRead(elapsed time.Duration, bytes int, err error) {
	c.observeFlash("read", elapsed, err)
	c.flashBytes.WithLabelValues("read").Add(float64(bytes))
}

func (c *Collector) ObserveErase(elapsed time.Duration, _ int, err error) {
	c.observeFlash("erase", elapsed, err)
}

func (c *Collector) observeFlash(op string, elapsed time.Duration, err error) {
	c.flashOps.WithLabelValues(op, opResult(err)).Inc()
	c.flashLatency.WithLabelValues(op).Observe(elapsed.Seconds())
}

// ObserveHTTP records one management API request.
func (c *Collector) ObserveHTTP(route string, code int, elapsed time.Duration) {
	c.httpRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	c.httpDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// Pebble returns a hook for the Pebble state store.
func (c *Collector) Pebble() pebblestore.MetricsHook { return pebbleHook{c} }

type pebbleHook struct{ c *Collector }

func (h pebbleHook) ObserveWrite(time.Duration, int) {}
func (h pebbleHook) ObserveRead(time.Duration, int)  {}
func (h pebbleHook) ObserveBatchCommit(_ time.Duration, _ int, bytes int) {
	h.c.stateCommits.Inc()
	h.c.stateBytes.Add(float64(bytes))
}
