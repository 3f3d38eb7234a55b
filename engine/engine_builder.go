package engine

import (
	"time"

	"github.com/Carmen-Shannon/oxy-volume/engine/processor"
	"github.com/Carmen-Shannon/oxy-volume/engine/renderer"
	"github.com/prometheus/client_golang/prometheus"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithFactory overrides the renderer factory selected from the configured backend.
//
// Parameters:
//   - factory: the factory used for every renderer
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithFactory(factory renderer.Factory) EngineBuilderOption {
	return func(e *engine) {
		e.factory = factory
	}
}

// WithRegistry registers engine metrics on reg instead of a private registry.
//
// Parameters:
//   - reg: the registry
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRegistry(reg *prometheus.Registry) EngineBuilderOption {
	return func(e *engine) {
		e.registry = reg
	}
}

// WithProcessors puts a processor stage in front of the sink.
//
// Parameters:
//   - processors: the processors to run on every frame
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProcessors(processors ...processor.Processor) EngineBuilderOption {
	return func(e *engine) {
		e.processors = append(e.processors, processors...)
	}
}

// WithProcessorListener registers a listener for processor results.
// It has no effect without WithProcessors.
//
// Parameters:
//   - l: the listener
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProcessorListener(l processor.Listener) EngineBuilderOption {
	return func(e *engine) {
		e.listeners = append(e.listeners, l)
	}
}

// WithStatsInterval sets how often Run reports statistics. Values <= 0 disable reporting.
//
// Parameters:
//   - d: the reporting interval (default 1s)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithStatsInterval(d time.Duration) EngineBuilderOption {
	return func(e *engine) {
		e.statsInterval = d
	}
}

// WithStatsCallback registers a function called with every statistics report.
//
// Parameters:
//   - callback: the function receiving the statistics
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithStatsCallback(callback func(stats Stats)) EngineBuilderOption {
	return func(e *engine) {
		e.statsCallback = callback
	}
}
