// Package metrics exposes Prometheus collectors for capture outcomes and
// face detection latency.
package metrics

import (
	"context"
	"image"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"faceattend/internal/attendance"
)

// Metrics groups the collectors registered by New.
type Metrics struct {
	Captures        *prometheus.CounterVec
	Detection       prometheus.Histogram
	PublishFailures prometheus.Counter
}

// New registers the collectors with reg. Passing nil uses the default
// registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		Captures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "faceattend_captures_total",
			Help: "Captures processed, by outcome and rejection reason or failure kind.",
		}, []string{"outcome", "detail"}),
		Detection: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "faceattend_face_detection_seconds",
			Help:    "Time spent counting faces in one image.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}),
		PublishFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "faceattend_queue_publish_failures_total",
			Help: "Recorded events that could not be published to the queue.",
		}),
	}
}

// ObserveOutcome counts one capture.
func (m *Metrics) ObserveOutcome(o attendance.Outcome) {
	m.Captures.WithLabelValues(string(o.Status), o.Detail()).Inc()
}

// PublishFailure counts one failed queue publish.
func (m *Metrics) PublishFailure() {
	m.PublishFailures.Inc()
}

// InstrumentCounter wraps fc so every call is timed.
func (m *Metrics) InstrumentCounter(fc attendance.FaceCounter) attendance.FaceCounter {
	return &timedCounter{next: fc, hist: m.Detection}
}

type timedCounter struct {
	next attendance.FaceCounter
	hist prometheus.Histogram
}

func (t *timedCounter) CountFaces(ctx context.Context, img image.Image) (int, error) {
	timer := prometheus.NewTimer(t.hist)
	defer timer.ObserveDuration()
	return t.next.CountFaces(ctx, img)
}
