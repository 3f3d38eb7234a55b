package profiler

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exports pipeline counters to Prometheus.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	framesRendered   prometheus.Counter
	volumesUploaded  prometheus.Counter
	uploadErrors     prometheus.Counter
	framesPublished  *prometheus.CounterVec
	handoffTimeouts  *prometheus.CounterVec
	handoffWait      prometheus.Histogram
	reconfigurations prometheus.Counter
	teardownFailures prometheus.Counter
	processorRuns    *prometheus.CounterVec
}

// NewMetrics registers the engine metrics on reg.
//
// Parameters:
//   - reg: the registerer, prometheus.DefaultRegisterer for the process-wide registry
//
// Returns:
//   - *Metrics: the registered metrics
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		framesRendered: f.NewCounter(prometheus.CounterOpts{
			Name: "oxyvol_frames_rendered_total",
			Help: "Render loop iterations",
		}),
		volumesUploaded: f.NewCounter(prometheus.CounterOpts{
			Name: "oxyvol_volumes_uploaded_total",
			Help: "Volume buffers handed to the renderer backend",
		}),
		uploadErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "oxyvol_upload_errors_total",
			Help: "Volume uploads rejected by the renderer backend",
		}),
		framesPublished: f.NewCounterVec(prometheus.CounterOpts{
			Name: "oxyvol_frames_published_total",
			Help: "Frames published to a render layer",
		}, []string{"layer"}),
		handoffTimeouts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "oxyvol_handoff_timeouts_total",
			Help: "Producer waits that expired before the render loop consumed the frame",
		}, []string{"layer"}),
		handoffWait: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "oxyvol_handoff_wait_seconds",
			Help:    "Time producers spent waiting for the render loop to consume a frame",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
		reconfigurations: f.NewCounter(prometheus.CounterOpts{
			Name: "oxyvol_reconfigurations_total",
			Help: "Renderer teardown and recreate cycles",
		}),
		teardownFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "oxyvol_teardown_failures_total",
			Help: "Errors swallowed while closing renderers and pools",
		}),
		processorRuns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "oxyvol_processor_runs_total",
			Help: "Processor executions by outcome",
		}, []string{"processor", "outcome"}),
	}
}

func (m *Metrics) FrameRendered() {
	if m == nil {
		return
	}
	m.framesRendered.Inc()
}

func (m *Metrics) VolumeUploaded(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.uploadErrors.Inc()
		return
	}
	m.volumesUploaded.Inc()
}

func (m *Metrics) FramePublished(layer int) {
	if m == nil {
		return
	}
	m.framesPublished.WithLabelValues(strconv.Itoa(layer)).Inc()
}

// HandoffWaited records a producer wait and whether it timed out.
func (m *Metrics) HandoffWaited(layer int, waited time.Duration, timedOut bool) {
	if m == nil {
		return
	}
	m.handoffWait.Observe(waited.Seconds())
	if timedOut {
		m.handoffTimeouts.WithLabelValues(strconv.Itoa(layer)).Inc()
	}
}

func (m *Metrics) Reconfigured(teardownFailures int) {
	if m == nil {
		return
	}
	m.reconfigurations.Inc()
	m.teardownFailures.Add(float64(teardownFailures))
}

func (m *Metrics) ProcessorRan(name string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.processorRuns.WithLabelValues(name, outcome).Inc()
}
