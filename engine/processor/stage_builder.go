package processor

import "github.com/Carmen-Shannon/oxy-volume/engine/profiler"

// StageBuilderOption is a functional option applied to a stage during construction via NewStage.
type StageBuilderOption func(*Stage)

// WithWorkers sets the number of workers. Defaults to one per processor.
//
// Parameters:
//   - n: the worker count, ignored if not positive
//
// Returns:
//   - StageBuilderOption: a function that applies the worker count to a stage
func WithWorkers(n int) StageBuilderOption {
	return func(s *Stage) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithListener registers a result listener at construction.
//
// Parameters:
//   - l: the listener
//
// Returns:
//   - StageBuilderOption: a function that adds the listener to a stage
func WithListener(l Listener) StageBuilderOption {
	return func(s *Stage) {
		s.listeners = append(s.listeners, l)
	}
}

// WithMetrics records processor runs on m.
//
// Parameters:
//   - m: the metrics sink, nil disables metrics
//
// Returns:
//   - StageBuilderOption: a function that applies the metrics to a stage
func WithMetrics(m *profiler.Metrics) StageBuilderOption {
	return func(s *Stage) {
		s.metrics = m
	}
}
