package sink

import (
	"time"

	"github.com/Carmen-Shannon/oxy-volume/engine/profiler"
)

// SinkBuilderOption is a functional option applied to a sink during construction via NewRendererSink.
type SinkBuilderOption func(*RendererSink)

// WithWaitTimeout sets how long SendFrame waits for the renderer to consume a frame.
//
// Parameters:
//   - timeout: the wait bound, ignored if not positive
//
// Returns:
//   - SinkBuilderOption: a function that applies the timeout to a sink
func WithWaitTimeout(timeout time.Duration) SinkBuilderOption {
	return func(s *RendererSink) {
		if timeout > 0 {
			s.waitTimeout = timeout
		}
	}
}

// WithStrictTimeouts makes SendFrame return an error when the renderer did not consume a frame
// in time. By default timeouts are only logged and counted.
//
// Parameters:
//   - strict: true to return timeout errors
//
// Returns:
//   - SinkBuilderOption: a function that applies the mode to a sink
func WithStrictTimeouts(strict bool) SinkBuilderOption {
	return func(s *RendererSink) {
		s.strictTimeouts = strict
	}
}

// WithMetrics records publishes and handoff waits on m.
//
// Parameters:
//   - m: the metrics sink, nil disables metrics
//
// Returns:
//   - SinkBuilderOption: a function that applies the metrics to a sink
func WithMetrics(m *profiler.Metrics) SinkBuilderOption {
	return func(s *RendererSink) {
		s.metrics = m
	}
}
