package metrics

import (
	"errors"

	"github.com/andys/customer_import/customer"
	"github.com/andys/customer_import/transform"
	"github.com/andys/customer_import/worker"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "customer_import"

// Collector records job outcomes on its own registry
type Collector struct {
	registry *prometheus.Registry

	RecordsTotal  *prometheus.CounterVec
	ChunksTotal   *prometheus.CounterVec
	WriteLatency  prometheus.Histogram
	WriteAttempts prometheus.Histogram
	LastSuccess   prometheus.Gauge
}

// NewCollector creates and registers the job metrics
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		RecordsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "records_total",
				Help:      "Records processed by result.",
			},
			[]string{"result"},
		),
		ChunksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "chunks_total",
				Help:      "Chunks processed by result.",
			},
			[]string{"result"},
		),
		WriteLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "chunk_write_seconds",
				Help:      "Time to persist a chunk, retries included.",
				Buckets:   prometheus.DefBuckets,
			},
		),
		WriteAttempts: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "chunk_write_attempts",
				Help:      "Attempts needed to persist a chunk.",
				Buckets:   []float64{1, 2, 3, 5, 10},
			},
		),
		LastSuccess: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_success_timestamp_seconds",
				Help:      "Unix time the job last completed.",
			},
		),
	}
	c.registry.MustRegister(c.RecordsTotal, c.ChunksTotal, c.WriteLatency, c.WriteAttempts, c.LastSuccess)
	return c
}

func (c *Collector) ChunkWritten(result worker.WriteResult) {
	c.ChunksTotal.WithLabelValues("written").Inc()
	c.RecordsTotal.WithLabelValues("written").Add(float64(result.Written))
	c.WriteLatency.Observe(result.Duration.Seconds())
	c.WriteAttempts.Observe(float64(result.Attempts))
}

func (c *Collector) ChunkFailed(chunk worker.Chunk, err error) {
	c.ChunksTotal.WithLabelValues("failed").Inc()
	c.RecordsTotal.WithLabelValues("write_failed").Add(float64(len(chunk.Records)))
}

func (c *Collector) RecordSkipped(line int, err error) {
	switch {
	case errors.Is(err, customer.ErrMalformedRecord):
		c.RecordsTotal.WithLabelValues("malformed").Inc()
	case errors.Is(err, transform.ErrTransform):
		c.RecordsTotal.WithLabelValues("transform_failed").Inc()
	default:
		c.RecordsTotal.WithLabelValues("skipped").Inc()
	}
}

// Finish stamps the success gauge when the job completed
func (c *Collector) Finish(summary *worker.Summary) {
	if summary.Status == worker.StatusCompleted {
		c.LastSuccess.Set(float64(summary.EndTime.Unix()))
	}
}

// Registry exposes the collector's registry
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// WriteFile writes the metrics in text format for a node exporter textfile collector
func (c *Collector) WriteFile(path string) error {
	return prometheus.WriteToTextfile(path, c.registry)
}
