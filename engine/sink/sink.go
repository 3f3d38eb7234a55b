package sink

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Carmen-Shannon/oxy-volume/engine/lifecycle"
	"github.com/Carmen-Shannon/oxy-volume/engine/profiler"
	"github.com/Carmen-Shannon/oxy-volume/engine/relay"
	"github.com/Carmen-Shannon/oxy-volume/engine/renderer"
	"github.com/Carmen-Shannon/oxy-volume/engine/transfer"
	"github.com/Carmen-Shannon/oxy-volume/engine/volume"
	"github.com/Carmen-Shannon/oxy-volume/log"
)

var logger = log.New("sink")

// DefaultWaitTimeout is how long SendFrame waits for the renderer to consume a published frame.
const DefaultWaitTimeout = 2 * time.Second

// RendererSink is the relay stage that hands frames to a renderer. Each frame goes to the layer
// selected by its channel id; the sink waits until the render loop has consumed it, then forwards
// it downstream (or releases it at the tail).
type RendererSink struct {
	relay.Adapter

	controller     lifecycle.Controller
	waitTimeout    time.Duration
	strictTimeouts bool
	metrics        *profiler.Metrics
}

var (
	_ relay.Linker       = &RendererSink{}
	_ relay.PoolProvider = &RendererSink{}
)

// NewRendererSink creates a sink publishing into the renderers owned by controller.
//
// Parameters:
//   - controller: builds and replaces renderers as frames demand
//   - options: variadic list of SinkBuilderOption functions
//
// Returns:
//   - *RendererSink: the sink, forwarding to relay.Null until SetNext is called
func NewRendererSink(controller lifecycle.Controller, options ...SinkBuilderOption) *RendererSink {
	s := &RendererSink{
		controller:  controller,
		waitTimeout: DefaultWaitTimeout,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// SendFrame publishes frame to its layer and waits for the renderer to consume it.
//
// The frame is always forwarded or released before SendFrame returns. A wait timeout does not
// unpublish the frame; it is logged, counted and, with strict timeouts, returned wrapping
// layer.ErrWaitTimeout.
//
// Parameters:
//   - ctx: bounds the wait together with the configured timeout
//   - frame: the frame to display
//
// Returns:
//   - error: a validation, reconfiguration, downstream or (strict mode) timeout error
func (s *RendererSink) SendFrame(ctx context.Context, frame *volume.Frame) error {
	if err := frame.Validate(); err != nil {
		return errors.Join(fmt.Errorf("sink: channel %d: %w", frame.ChannelID, err), relay.Null.Consume(ctx, frame))
	}

	var (
		index      int
		generation uint64
		waitErr    error
	)
	for attempt := 0; ; attempt++ {
		r, _, err := s.controller.Ensure(frame)
		if err != nil {
			if attempt > 0 && errors.Is(err, lifecycle.ErrControllerClosed) {
				break
			}
			return errors.Join(err, relay.Null.Consume(ctx, frame))
		}

		index, generation, waitErr = s.handoff(ctx, r, frame)
		// a renderer replaced or stopped during the handoff dropped the buffer unshown
		if attempt > 0 || !r.IsClosed() {
			break
		}
		logger.Debugf("channel %d: renderer closed during handoff, publishing again", frame.ChannelID)
	}

	if waitErr != nil {
		logger.Debugf("channel %d layer %d: generation %d not consumed in %v", frame.ChannelID, index, generation, s.waitTimeout)
	}

	forwardErr := s.Forward(ctx, frame)
	if waitErr != nil && s.strictTimeouts {
		return errors.Join(fmt.Errorf("sink: layer %d generation %d: %w", index, generation, waitErr), forwardErr)
	}
	return forwardErr
}

// handoff publishes frame into its layer of r and waits for the render loop to consume it.
// It does not wait on a renderer that is already closed; the caller checks IsClosed and retries.
func (s *RendererSink) handoff(ctx context.Context, r renderer.Renderer, frame *volume.Frame) (int, uint64, error) {
	layers := r.Layers()
	index := layerFor(frame.ChannelID, layers.Count())

	tf := transfer.GradientForIndex(index)
	if frame.Color != nil {
		tf = transfer.GradientForColor(*frame.Color)
	}
	if !layers.TransferFunction(index).Equal(tf) {
		layers.SetTransferFunction(index, tf)
	}

	generation := layers.Publish(index, frame.Data[:frame.SizeInBytes()], frame.Dimensions, frame.VoxelSize)
	s.metrics.FramePublished(index)
	if r.IsClosed() {
		return index, generation, nil
	}
	r.RequestDisplay()

	waitCtx, cancel := context.WithTimeout(ctx, s.waitTimeout)
	defer cancel()
	start := time.Now()
	err := layers.AwaitGeneration(waitCtx, index, generation)
	s.metrics.HandoffWaited(index, time.Since(start), err != nil)
	return index, generation, err
}

// layerFor maps a channel id onto a layer index.
func layerFor(channelID, layers int) int {
	return ((channelID % layers) + layers) % layers
}

// Consume implements relay.Stage by calling SendFrame.
func (s *RendererSink) Consume(ctx context.Context, frame *volume.Frame) error {
	return s.SendFrame(ctx, frame)
}

// Pool returns the pool producers should draw from: a downstream stage's pool if there is one,
// otherwise the pool compatible with the current renderer (nil before the first frame).
func (s *RendererSink) Pool() volume.Pool {
	if p := s.DownstreamPool(); p != nil {
		return p
	}
	return s.controller.Pool()
}

// SetVisible shows or hides the renderer.
func (s *RendererSink) SetVisible(visible bool) {
	s.controller.SetVisible(visible)
}

// IsShowing reports whether the renderer is showing, waiting out a reconfiguration in progress.
func (s *RendererSink) IsShowing(ctx context.Context) bool {
	return s.controller.IsShowing(ctx)
}

// IsRendererCreated reports whether a renderer exists.
func (s *RendererSink) IsRendererCreated() bool {
	return s.controller.IsRendererCreated()
}

// Controller returns the lifecycle controller backing the sink.
func (s *RendererSink) Controller() lifecycle.Controller {
	return s.controller
}

// Close closes the renderer and its pool.
func (s *RendererSink) Close() error {
	return s.controller.Close()
}
