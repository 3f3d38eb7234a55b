package lifecycle

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-volume/engine/profiler"
	"github.com/Carmen-Shannon/oxy-volume/engine/renderer"
	"github.com/Carmen-Shannon/oxy-volume/engine/volume"
	"github.com/Carmen-Shannon/oxy-volume/log"
)

var logger = log.New("lifecycle")

// State is the reconfiguration state of a Controller.
type State int32

const (
	// StateReady means the current renderer (if any) matches every frame seen so far.
	StateReady State = iota

	// StateReconfiguring means the renderer and pool are being replaced.
	StateReconfiguring

	// StateFailed means the last renderer construction failed; the controller stays unusable.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateReconfiguring:
		return "reconfiguring"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// showingPollInterval is how often IsShowing re-checks the state while a reconfiguration runs.
const showingPollInterval = time.Millisecond

// Controller owns the current renderer and its compatible frame pool, and replaces both when an
// incoming frame needs more layers or a different voxel format than the renderer was built for.
type Controller interface {
	// Ensure makes sure the current renderer can display frame, reconfiguring if needed.
	// The frame's channel id is recorded; the number of layers required is the number of
	// distinct channel ids seen so far (at least the configured minimum). A renderer whose
	// render loop died is replaced as well.
	//
	// Parameters:
	//   - frame: the incoming frame
	//
	// Returns:
	//   - renderer.Renderer: the renderer to publish into
	//   - bool: true if a new renderer was built for this frame
	//   - error: ErrReconfigurationFailed if a renderer could not be built, ErrControllerClosed after Close
	Ensure(frame *volume.Frame) (renderer.Renderer, bool, error)

	// Renderer returns the current renderer, or nil if none was built yet.
	//
	// Returns:
	//   - renderer.Renderer: the current renderer
	Renderer() renderer.Renderer

	// Pool returns the pool compatible with the current renderer, or nil if none was built yet.
	//
	// Returns:
	//   - volume.Pool: the current pool
	Pool() volume.Pool

	// State returns the reconfiguration state.
	//
	// Returns:
	//   - State: the state
	State() State

	// IsShowing reports whether the current renderer is showing. While a reconfiguration is in
	// progress it waits for it to finish or for ctx to end.
	//
	// Parameters:
	//   - ctx: bounds the wait
	//
	// Returns:
	//   - bool: true if a renderer exists and is showing
	IsShowing(ctx context.Context) bool

	// SetVisible shows or hides the current renderer. The choice also applies to renderers built later.
	//
	// Parameters:
	//   - visible: true to show
	SetVisible(visible bool)

	// IsRendererCreated reports whether a renderer currently exists.
	//
	// Returns:
	//   - bool: true if a renderer exists
	IsRendererCreated() bool

	// Reconfigurations returns how many times an existing renderer was replaced.
	//
	// Returns:
	//   - uint64: the replacement count
	Reconfigurations() uint64

	// LastTeardown returns the diagnostics of the most recent reconfiguration.
	//
	// Returns:
	//   - TeardownDiagnostics: the teardown errors, empty if teardown was clean
	LastTeardown() TeardownDiagnostics

	// Channels returns the channel ids seen so far and their names.
	//
	// Returns:
	//   - map[int]string: a copy of the channel id to name map
	Channels() map[int]string

	// Close closes the renderer and the pool. Further Ensure calls fail.
	//
	// Returns:
	//   - error: the joined close errors, if any
	Close() error
}

type controller struct {
	mu *sync.Mutex

	factory renderer.Factory
	state   atomic.Int32
	closed  bool
	failure error

	renderer      renderer.Renderer
	pool          volume.Pool
	bytesPerVoxel int
	layers        int
	channels      map[int]string
	visible       bool

	title        string
	width        int
	height       int
	minLayers    int
	poolCapacity int
	metrics      *profiler.Metrics

	reconfigurations atomic.Uint64
	lastTeardown     TeardownDiagnostics
}

var _ Controller = &controller{}

// NewController creates a Controller that builds renderers with factory. No renderer is built
// until the first Ensure call.
//
// Parameters:
//   - factory: builds renderers
//   - options: variadic list of ControllerBuilderOption functions
//
// Returns:
//   - Controller: the new controller
func NewController(factory renderer.Factory, options ...ControllerBuilderOption) Controller {
	c := &controller{
		mu:           &sync.Mutex{},
		factory:      factory,
		channels:     make(map[int]string),
		title:        "oxyvol",
		width:        768,
		height:       768,
		minLayers:    1,
		poolCapacity: 20,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

func (c *controller) Ensure(frame *volume.Frame) (renderer.Renderer, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, false, ErrControllerClosed
	}
	if c.State() == StateFailed {
		return nil, false, c.failure
	}
	if !volume.ValidBytesPerVoxel(frame.BytesPerVoxel) {
		return nil, false, fmt.Errorf("%w: got %d", volume.ErrInvalidVoxelFormat, frame.BytesPerVoxel)
	}

	if _, ok := c.channels[frame.ChannelID]; !ok {
		c.channels[frame.ChannelID] = frame.ChannelName
	}
	needed := max(len(c.channels), c.minLayers)

	if c.renderer != nil && c.renderer.IsClosed() {
		logger.Warningf("renderer stopped unexpectedly, rebuilding")
	} else if c.renderer != nil && frame.BytesPerVoxel == c.bytesPerVoxel && needed <= c.layers {
		return c.renderer, false, nil
	}

	if err := c.reconfigure(frame.BytesPerVoxel, needed); err != nil {
		return nil, false, err
	}
	return c.renderer, true, nil
}

// reconfigure replaces the renderer and pool. Must be called with c.mu held.
func (c *controller) reconfigure(bytesPerVoxel, layers int) error {
	c.state.Store(int32(StateReconfiguring))
	replacing := c.renderer != nil

	logger.Noticef("reconfiguring renderer: %d -> %d layers, %d -> %d bytes per voxel", c.layers, layers, c.bytesPerVoxel, bytesPerVoxel)

	var diag TeardownDiagnostics
	if c.renderer != nil {
		diag.add(c.renderer.Close())
		c.renderer = nil
	}

	r, err := c.factory(renderer.Params{
		Title:         c.title,
		Width:         c.width,
		Height:        c.height,
		BytesPerVoxel: bytesPerVoxel,
		Layers:        layers,
	})
	if err != nil {
		c.fail(&diag, err)
		return c.failure
	}

	if c.pool != nil {
		diag.add(c.pool.Close())
		c.pool = nil
	}

	pool, err := r.CreateCompatiblePool(c.poolCapacity)
	if err != nil {
		diag.add(r.Close())
		c.fail(&diag, err)
		return c.failure
	}

	r.SetVisible(c.visible)
	c.renderer = r
	c.pool = pool
	c.bytesPerVoxel = bytesPerVoxel
	c.layers = layers
	c.lastTeardown = diag

	if replacing {
		c.reconfigurations.Add(1)
		c.metrics.Reconfigured(len(diag.Errors))
	}
	if err := diag.Err(); err != nil {
		logger.Warningf("renderer teardown reported errors: %v", err)
	}
	c.state.Store(int32(StateReady))
	return nil
}

func (c *controller) fail(diag *TeardownDiagnostics, cause error) {
	if c.pool != nil {
		diag.add(c.pool.Close())
		c.pool = nil
	}
	c.lastTeardown = *diag
	c.failure = fmt.Errorf("%w: %w", ErrReconfigurationFailed, cause)
	if err := diag.Err(); err != nil {
		logger.Warningf("renderer teardown reported errors: %v", err)
	}
	logger.Errorf("%v", c.failure)
	c.state.Store(int32(StateFailed))
}

func (c *controller) Renderer() renderer.Renderer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.renderer
}

func (c *controller) Pool() volume.Pool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pool
}

func (c *controller) State() State {
	return State(c.state.Load())
}

func (c *controller) IsShowing(ctx context.Context) bool {
	for c.State() == StateReconfiguring {
		select {
		case <-ctx.Done():
			return false
		case <-time.After(showingPollInterval):
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.renderer != nil && c.renderer.IsShowing()
}

func (c *controller) SetVisible(visible bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.visible = visible
	if c.renderer != nil {
		c.renderer.SetVisible(visible)
	}
}

func (c *controller) IsRendererCreated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.renderer != nil
}

func (c *controller) Reconfigurations() uint64 {
	return c.reconfigurations.Load()
}

func (c *controller) LastTeardown() TeardownDiagnostics {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastTeardown
}

func (c *controller) Channels() map[int]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return maps.Clone(c.channels)
}

func (c *controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	var diag TeardownDiagnostics
	if c.renderer != nil {
		diag.add(c.renderer.Close())
		c.renderer = nil
	}
	if c.pool != nil {
		diag.add(c.pool.Close())
		c.pool = nil
	}
	return diag.Err()
}
