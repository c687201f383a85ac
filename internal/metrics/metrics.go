package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	LabelOp     = "op"
	LabelResult = "result"
	LabelKind   = "direction"
)

const (
	ResultOK = "ok"

	DirectionRead  = "read"
	DirectionWrite = "write"
)

// Metrics collects filesystem operation counters. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	opsTotal    *prometheus.CounterVec
	opDuration  *prometheus.HistogramVec
	bytesTotal  *prometheus.CounterVec
	filesystems prometheus.Gauge
	inodesLive  prometheus.Gauge
}

// New creates the collectors and registers them with reg. A nil reg leaves
// them unregistered, which is what tests want.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		opsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "snfs",
				Subsystem: "fs",
				Name:      "operations_total",
				Help:      "Total number of filesystem operations by result",
			},
			[]string{LabelOp, LabelResult},
		),
		opDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "snfs",
				Subsystem: "fs",
				Name:      "operation_duration_seconds",
				Help:      "Time spent serving a filesystem operation",
				Buckets:   []float64{0.00001, 0.0001, 0.001, 0.01, 0.1, 1},
			},
			[]string{LabelOp},
		),
		bytesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "snfs",
				Subsystem: "fs",
				Name:      "bytes_total",
				Help:      "Bytes moved by read and write",
			},
			[]string{LabelKind},
		),
		filesystems: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "snfs",
				Subsystem: "fs",
				Name:      "filesystems",
				Help:      "Number of mounted namespaces",
			},
		),
		inodesLive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "snfs",
				Subsystem: "fs",
				Name:      "inodes",
				Help:      "Live inodes across all namespaces as of the last mutation",
			},
		),
	}

	if reg != nil {
		reg.MustRegister(m.opsTotal, m.opDuration, m.bytesTotal, m.filesystems, m.inodesLive)
	}

	return m
}

// ObserveOp records one finished operation. result is ResultOK or an errno name.
func (m *Metrics) ObserveOp(op string, result string, took time.Duration) {
	if m == nil {
		return
	}
	m.opsTotal.WithLabelValues(op, result).Inc()
	m.opDuration.WithLabelValues(op).Observe(took.Seconds())
}

func (m *Metrics) AddBytes(direction string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.bytesTotal.WithLabelValues(direction).Add(float64(n))
}

func (m *Metrics) SetFilesystems(n int) {
	if m == nil {
		return
	}
	m.filesystems.Set(float64(n))
}

func (m *Metrics) SetInodes(n int) {
	if m == nil {
		return
	}
	m.inodesLive.Set(float64(n))
}
