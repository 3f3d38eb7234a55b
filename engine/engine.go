package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-volume/common"
	"github.com/Carmen-Shannon/oxy-volume/config"
	"github.com/Carmen-Shannon/oxy-volume/engine/gpu"
	"github.com/Carmen-Shannon/oxy-volume/engine/lifecycle"
	"github.com/Carmen-Shannon/oxy-volume/engine/processor"
	"github.com/Carmen-Shannon/oxy-volume/engine/profiler"
	"github.com/Carmen-Shannon/oxy-volume/engine/relay"
	"github.com/Carmen-Shannon/oxy-volume/engine/renderer"
	"github.com/Carmen-Shannon/oxy-volume/engine/sink"
	"github.com/Carmen-Shannon/oxy-volume/log"
	"github.com/prometheus/client_golang/prometheus"
)

var logger = log.New("engine")

const (
	defaultTitle      = "oxyvol"
	defaultWindowSize = 768
)

// Stats is a point-in-time summary of the engine, passed to the stats callback.
type Stats struct {
	State            lifecycle.State
	Layers           int
	BytesPerVoxel    int
	Reconfigurations uint64
	Frames           renderer.FrameStats
	Showing          bool
}

// engine is the implementation of the Engine interface.
type engine struct {
	cfg *config.Config

	factory    renderer.Factory
	registry   *prometheus.Registry
	metrics    *profiler.Metrics
	controller lifecycle.Controller
	sink       *sink.RendererSink
	stage      *processor.Stage
	pipeline   relay.Stage

	processors []processor.Processor
	listeners  []processor.Listener

	statsInterval time.Duration
	statsCallback func(stats Stats)

	wg          sync.WaitGroup
	quitChannel chan struct{}
	quitOnce    sync.Once
	closeErr    error
}

// Engine wires a renderer factory, the lifecycle controller, the renderer sink and an optional
// processor stage into a single pipeline that producers send frames through.
type Engine interface {
	// Pipeline returns the head of the frame pipeline. Producers send frames here and draw their
	// buffers from the head's Pool.
	//
	// Returns:
	//   - relay.Stage: the processor stage if processors are configured, otherwise the sink
	Pipeline() relay.Stage

	// Sink returns the renderer sink at the end of the pipeline.
	//
	// Returns:
	//   - *sink.RendererSink: the sink
	Sink() *sink.RendererSink

	// Controller returns the lifecycle controller owning the current renderer.
	//
	// Returns:
	//   - lifecycle.Controller: the controller
	Controller() lifecycle.Controller

	// Registry returns the prometheus registry engine metrics are registered on.
	//
	// Returns:
	//   - *prometheus.Registry: the registry
	Registry() *prometheus.Registry

	// Stats returns a summary of the engine state.
	//
	// Returns:
	//   - Stats: the summary
	Stats() Stats

	// SetVisible shows or hides the renderer window. The setting carries over reconfigurations.
	//
	// Parameters:
	//   - visible: the requested visibility
	SetVisible(visible bool)

	// Run blocks until Quit is called or ctx is done, then shuts the pipeline down.
	//
	// Parameters:
	//   - ctx: cancelling it stops the engine like Quit
	//
	// Returns:
	//   - error: errors collected while closing the pipeline
	Run(ctx context.Context) error

	// Quit signals Run to stop. Safe to call multiple times.
	Quit()
}

var _ Engine = &engine{}

// NewEngine builds the pipeline described by cfg.
//
// Parameters:
//   - cfg: the configuration, nil for defaults
//   - options: variadic list of EngineBuilderOption functions
//
// Returns:
//   - Engine: the engine, ready to accept frames
//   - error: an invalid configuration
func NewEngine(cfg *config.Config, options ...EngineBuilderOption) (Engine, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &engine{
		cfg:           cfg,
		quitChannel:   make(chan struct{}),
		statsInterval: time.Second,
	}
	for _, opt := range options {
		opt(e)
	}

	if e.registry == nil {
		e.registry = prometheus.NewRegistry()
	}
	e.metrics = profiler.NewMetrics(e.registry)

	if e.factory == nil {
		factory, err := newFactory(cfg, e.metrics)
		if err != nil {
			return nil, err
		}
		e.factory = factory
	}

	e.controller = lifecycle.NewController(e.factory,
		lifecycle.WithTitle(common.Coalesce(cfg.Window.Title, defaultTitle)),
		lifecycle.WithWindowSize(common.Coalesce(cfg.Window.Width, defaultWindowSize), common.Coalesce(cfg.Window.Height, defaultWindowSize)),
		lifecycle.WithMinLayers(cfg.Renderer.Layers),
		lifecycle.WithPoolCapacity(cfg.Pool.Capacity),
		lifecycle.WithMetrics(e.metrics),
	)
	e.sink = sink.NewRendererSink(e.controller,
		sink.WithWaitTimeout(cfg.Handoff.WaitTimeout),
		sink.WithStrictTimeouts(cfg.Handoff.StrictTimeouts),
		sink.WithMetrics(e.metrics),
	)
	e.pipeline = e.sink

	if len(e.processors) > 0 {
		stageOptions := []processor.StageBuilderOption{processor.WithMetrics(e.metrics)}
		for _, l := range e.listeners {
			stageOptions = append(stageOptions, processor.WithListener(l))
		}
		e.stage = processor.NewStage(e.processors, stageOptions...)
		e.pipeline = relay.Chain(e.stage, e.sink)
	}

	return e, nil
}

// newFactory selects the renderer factory named by the configured backend.
func newFactory(cfg *config.Config, metrics *profiler.Metrics) (renderer.Factory, error) {
	backendType, err := renderer.ParseBackendType(cfg.Renderer.Backend)
	if err != nil {
		return nil, err
	}

	rendererOptions := []renderer.RendererBuilderOption{
		renderer.WithRenderFrameLimit(cfg.Renderer.FrameLimit),
		renderer.WithProfiling(cfg.Renderer.Profiling),
		renderer.WithMetrics(metrics),
	}

	switch backendType {
	case renderer.BackendTypeWGPU:
		mode := renderer.PresentModeVSync
		if cfg.Renderer.FrameLimit > 0 {
			mode = renderer.PresentModeUncapped
		}
		return gpu.NewFactory([]gpu.BackendBuilderOption{gpu.WithPresentMode(mode)}, rendererOptions...), nil
	case renderer.BackendTypeHeadless:
		return renderer.NewHeadlessFactory(nil, rendererOptions...), nil
	default:
		return nil, fmt.Errorf("engine: no factory for backend %s", backendType)
	}
}

func (e *engine) Pipeline() relay.Stage {
	return e.pipeline
}

func (e *engine) Sink() *sink.RendererSink {
	return e.sink
}

func (e *engine) Controller() lifecycle.Controller {
	return e.controller
}

func (e *engine) Registry() *prometheus.Registry {
	return e.registry
}

func (e *engine) Stats() Stats {
	stats := Stats{
		State:            e.controller.State(),
		Reconfigurations: e.controller.Reconfigurations(),
	}
	if r := e.controller.Renderer(); r != nil {
		stats.Layers = r.LayerCount()
		stats.BytesPerVoxel = r.BytesPerVoxel()
		stats.Frames = r.Stats()
		stats.Showing = r.IsShowing()
	}
	return stats
}

func (e *engine) SetVisible(visible bool) {
	e.sink.SetVisible(visible)
}

func (e *engine) Run(ctx context.Context) error {
	e.handle(ctx)
	e.wg.Wait()
	return e.closeErr
}

// Quit signals all engine goroutines to stop.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.quitOnce.Do(func() {
		close(e.quitChannel)
	})
}

// handle launches the stats and quit goroutines.
// Each goroutine is tracked by the engine's WaitGroup.
func (e *engine) handle(ctx context.Context) {
	e.wg.Add(2)
	go e.handleStats()
	go e.handleQuit(ctx)
}

// handleStats reports engine statistics at the configured interval until quit.
func (e *engine) handleStats() {
	defer e.wg.Done()
	if e.statsInterval <= 0 {
		<-e.quitChannel
		return
	}

	ticker := time.NewTicker(e.statsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.quitChannel:
			return
		case <-ticker.C:
			stats := e.Stats()
			logger.Debugf("state=%s layers=%d bpv=%d frames=%d uploads=%d reconfigurations=%d",
				stats.State, stats.Layers, stats.BytesPerVoxel, stats.Frames.Frames, stats.Frames.Uploads, stats.Reconfigurations)
			if e.statsCallback != nil {
				e.statsCallback(stats)
			}
		}
	}
}

// handleQuit waits for Quit or ctx, then closes the pipeline front to back.
func (e *engine) handleQuit(ctx context.Context) {
	defer e.wg.Done()
	select {
	case <-ctx.Done():
		e.Quit()
	case <-e.quitChannel:
	}

	if e.stage != nil {
		e.stage.Close()
	}
	if err := e.sink.Close(); err != nil {
		e.closeErr = errors.Join(e.closeErr, err)
		logger.Warningf("closing renderer: %v", err)
	}
}
