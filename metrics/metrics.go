// Package metrics exports cmaa frame statistics to Prometheus.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/gogpu/cmaa"
)

// Recorder turns per-frame Stats into Prometheus metrics labelled by
// device.
type Recorder struct {
	frames   *prometheus.CounterVec
	errors   *prometheus.CounterVec
	quads    *prometheus.CounterVec
	pixels   *prometheus.CounterVec
	entries  *prometheus.CounterVec
	dropped  *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewRecorder creates the metrics and registers them with reg.
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		frames: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cmaa_frames_total",
				Help: "Frames processed by device",
			},
			[]string{"device"},
		),
		errors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cmaa_frame_errors_total",
				Help: "Frames that failed by device",
			},
			[]string{"device"},
		),
		quads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cmaa_quads_applied_total",
				Help: "2x2 quads whose blend list was applied",
			},
			[]string{"device"},
		),
		pixels: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cmaa_pixels_applied_total",
				Help: "Pixels rewritten by deferred apply",
			},
			[]string{"device"},
		),
		entries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cmaa_entries_total",
				Help: "Stored candidates, blend items and list locations",
			},
			[]string{"device", "resource"},
		),
		dropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cmaa_entries_dropped_total",
				Help: "Allocations discarded because a buffer was full",
			},
			[]string{"device", "resource"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cmaa_frame_duration_seconds",
				Help:    "Frame processing time in seconds",
				Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
			},
			[]string{"device"},
		),
	}
	for _, c := range []prometheus.Collector{r.frames, r.errors, r.quads, r.pixels, r.entries, r.dropped, r.duration} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("metrics: register: %w", err)
		}
	}
	return r, nil
}

// Observe records one successful frame.
func (r *Recorder) Observe(s cmaa.Stats) {
	d := s.Device
	r.frames.WithLabelValues(d).Inc()
	r.quads.WithLabelValues(d).Add(float64(s.QuadsApplied))
	r.pixels.WithLabelValues(d).Add(float64(s.PixelsApplied))
	r.duration.WithLabelValues(d).Observe(s.Duration.Seconds())

	for _, e := range []struct {
		resource      string
		kept, dropped int
	}{
		{"candidates", s.Candidates, s.CandidatesDropped},
		{"items", s.Items, s.ItemsDropped},
		{"locations", s.Locations, s.LocationsDropped},
	} {
		r.entries.WithLabelValues(d, e.resource).Add(float64(e.kept))
		if e.dropped > 0 {
			r.dropped.WithLabelValues(d, e.resource).Add(float64(e.dropped))
		}
	}
}

// ObserveError records a failed frame on device.
func (r *Recorder) ObserveError(device string) {
	r.errors.WithLabelValues(device).Inc()
}
