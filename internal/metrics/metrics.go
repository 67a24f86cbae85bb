// Package metrics 注册采集管线的 Prometheus 指标。
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WriteQueueDepth 为写入队列中尚未执行的任务数。
	WriteQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "statlite_write_queue_depth",
		Help: "Number of write jobs waiting to be flushed",
	})

	WriteBatches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "statlite_write_batches_total",
		Help: "Write batches executed, by result",
	}, []string{"result"})

	WriteBatchSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "statlite_write_batch_size",
		Help:    "Number of jobs per write batch",
		Buckets: []float64{1, 2, 4, 8, 16, 32, 64, 128},
	})

	WriteBatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "statlite_write_batch_duration_seconds",
		Help:    "Time spent executing one write batch transaction",
		Buckets: prometheus.DefBuckets,
	})

	AdmissionRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "statlite_admission_rejections_total",
		Help: "Track requests rejected by admission control, by reason",
	}, []string{"reason"})

	AdmissionBuckets = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "statlite_admission_buckets",
		Help: "Live admission-control buckets after the last sweep",
	}, []string{"kind"})

	TrackEvents = promauto.NewCounter(prometheus.CounterOpts{
		Name: "statlite_track_events_total",
		Help: "Track events accepted and queued for storage",
	})
)

const (
	BatchCommitted = "committed"
	BatchFailed    = "failed"

	ReasonRateLimited = "rate_limited"
	ReasonAnomalous   = "anomalous"

	BucketRate    = "rate"
	BucketAnomaly = "anomaly"
)
