package profiler

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsCounters(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.FramePublished(1)
	m.FramePublished(1)
	m.HandoffWaited(1, 3*time.Millisecond, true)
	m.HandoffWaited(0, time.Millisecond, false)
	m.VolumeUploaded(nil)
	m.VolumeUploaded(errors.New("boom"))
	m.Reconfigured(2)
	m.ProcessorRan("com", nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.framesPublished.WithLabelValues("1")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.handoffTimeouts.WithLabelValues("1")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.handoffTimeouts.WithLabelValues("0")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.volumesUploaded))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.uploadErrors))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.reconfigurations))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.teardownFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.processorRuns.WithLabelValues("com", "ok")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.FrameRendered()
		m.FramePublished(0)
		m.HandoffWaited(0, time.Second, true)
		m.Reconfigured(1)
		m.ProcessorRan("x", nil)
		m.VolumeUploaded(nil)
	})
}

func TestProfilerTickLogsAfterInterval(t *testing.T) {
	p := NewProfiler("test")
	p.updateInterval = 0
	p.CountUpload()
	assert.True(t, p.Tick())
	assert.Equal(t, int64(0), p.uploadCount.Load())

	p.updateInterval = time.Hour
	assert.False(t, p.Tick())
}
