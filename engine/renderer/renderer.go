package renderer

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-volume/engine/camera"
	"github.com/Carmen-Shannon/oxy-volume/engine/layer"
	"github.com/Carmen-Shannon/oxy-volume/engine/profiler"
	"github.com/Carmen-Shannon/oxy-volume/engine/volume"
	"github.com/Carmen-Shannon/oxy-volume/log"
)

var logger = log.New("renderer")

// Params describes the renderer a Factory should build.
type Params struct {
	Title         string
	Width         int
	Height        int
	BytesPerVoxel int
	Layers        int
}

// Validate checks that the parameters describe a buildable renderer.
func (p Params) Validate() error {
	if !volume.ValidBytesPerVoxel(p.BytesPerVoxel) {
		return fmt.Errorf("%w: bytes per voxel %d", ErrInvalidParams, p.BytesPerVoxel)
	}
	if p.Layers < 1 {
		return fmt.Errorf("%w: layer count %d", ErrInvalidParams, p.Layers)
	}
	return nil
}

// Factory builds a renderer for the given parameters.
type Factory func(p Params) (Renderer, error)

// FrameStats counts render loop activity.
type FrameStats struct {
	Frames       uint64
	Uploads      uint64
	UploadErrors uint64
}

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	backendType RendererBackendType
	backend     RendererBackend
	params      Params

	layers layer.Manager
	cursor *layer.Cursor
	camera camera.Camera

	displayRequests chan struct{}
	quitChannel     chan struct{}
	quitOnce        sync.Once
	wg              sync.WaitGroup
	closed          atomic.Bool
	dead            atomic.Bool

	renderFrameLimit time.Duration // minimum frame duration; 0 = render on request only
	renderCallback   func(deltaTime float32)

	profiler         *profiler.Profiler
	profilingEnabled bool
	metrics          *profiler.Metrics

	frames       atomic.Uint64
	uploads      atomic.Uint64
	uploadErrors atomic.Uint64
}

// Renderer displays a fixed number of volume layers of one voxel format.
//
// A Renderer owns a render goroutine that wakes on RequestDisplay (or on the optional frame
// limit ticker), uploads every newly published layer buffer to its backend, marks those
// buffers consumed, refreshes render parameters when they changed and draws a frame.
// The layer count and voxel format are fixed; changing them means building a new Renderer.
type Renderer interface {
	// Layers returns the layer manager producers publish into.
	//
	// Returns:
	//   - layer.Manager: the layer manager
	Layers() layer.Manager

	// Cursor returns the current-layer façade over Layers, used by interactive controls.
	//
	// Returns:
	//   - *layer.Cursor: the cursor
	Cursor() *layer.Cursor

	// Camera returns the view transform of the volume stack.
	//
	// Returns:
	//   - camera.Camera: the camera
	Camera() camera.Camera

	// BackendType returns the backend implementation in use.
	//
	// Returns:
	//   - RendererBackendType: the backend type
	BackendType() RendererBackendType

	// BytesPerVoxel returns the voxel format the renderer was built for.
	//
	// Returns:
	//   - int: bytes per voxel
	BytesPerVoxel() int

	// LayerCount returns the number of layers the renderer was built for.
	//
	// Returns:
	//   - int: the layer count
	LayerCount() int

	// SetVisible shows or hides the renderer's output.
	//
	// Parameters:
	//   - visible: true to show
	SetVisible(visible bool)

	// IsShowing reports whether the renderer is open and its output shown.
	//
	// Returns:
	//   - bool: true if showing
	IsShowing() bool

	// IsClosed reports whether the renderer was closed or its render loop stopped after a panic.
	// A closed renderer never consumes another buffer and must be replaced.
	//
	// Returns:
	//   - bool: true if closed or dead
	IsClosed() bool

	// RequestDisplay asks the render loop to run one iteration soon. Never blocks;
	// requests made while one is pending are coalesced.
	RequestDisplay()

	// CreateCompatiblePool creates a frame pool producing frames in this renderer's voxel format.
	//
	// Parameters:
	//   - capacity: the maximum number of outstanding frames
	//
	// Returns:
	//   - volume.Pool: the new pool
	//   - error: ErrRendererClosed if the renderer is closed
	CreateCompatiblePool(capacity int) (volume.Pool, error)

	// Stats returns render loop counters.
	//
	// Returns:
	//   - FrameStats: the counters
	Stats() FrameStats

	// Close stops the render loop and releases the backend. Safe to call multiple times;
	// only the first call closes the backend and returns its error.
	//
	// Returns:
	//   - error: the backend close error, if any
	Close() error
}

var _ Renderer = &renderer{}

// NewRenderer creates a Renderer over an already initialized backend and starts its render loop.
//
// Parameters:
//   - backendType: the type of the supplied backend
//   - backend: the backend that uploads and draws
//   - params: the layer count and voxel format, already validated
//   - options: variadic list of RendererBuilderOption functions to configure the Renderer
//
// Returns:
//   - Renderer: the running renderer
func NewRenderer(backendType RendererBackendType, backend RendererBackend, params Params, options ...RendererBuilderOption) Renderer {
	r := &renderer{
		mu:              &sync.Mutex{},
		backendType:     backendType,
		backend:         backend,
		params:          params,
		displayRequests: make(chan struct{}, 1),
		quitChannel:     make(chan struct{}),
		profiler:        profiler.NewProfiler(fmt.Sprintf("%s/%dL/%dB", backendType, params.Layers, params.BytesPerVoxel)),
	}

	for _, opt := range options {
		opt(r)
	}

	r.layers = layer.NewManager(params.Layers, params.BytesPerVoxel, layer.WithChangeNotifier(r.RequestDisplay))
	r.cursor = layer.NewCursor(r.layers)
	r.camera = camera.NewCamera(
		camera.WithAspect(aspect(params.Width, params.Height)),
		camera.WithChangeCallback(r.layers.NotifyParametersChanged),
	)

	r.wg.Add(1)
	go r.handleRender()
	r.RequestDisplay()

	logger.Infof("renderer started: backend=%s layers=%d bytesPerVoxel=%d", backendType, params.Layers, params.BytesPerVoxel)
	return r
}

func aspect(width, height int) float32 {
	if width <= 0 || height <= 0 {
		return 1
	}
	return float32(width) / float32(height)
}

func (r *renderer) Layers() layer.Manager {
	return r.layers
}

func (r *renderer) Cursor() *layer.Cursor {
	return r.cursor
}

func (r *renderer) Camera() camera.Camera {
	return r.camera
}

func (r *renderer) BackendType() RendererBackendType {
	return r.backendType
}

func (r *renderer) BytesPerVoxel() int {
	return r.params.BytesPerVoxel
}

func (r *renderer) LayerCount() int {
	return r.params.Layers
}

func (r *renderer) SetVisible(visible bool) {
	if r.closed.Load() {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backend.SetVisible(visible)
}

func (r *renderer) IsShowing() bool {
	if r.IsClosed() {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.backend.IsShowing()
}

func (r *renderer) IsClosed() bool {
	return r.closed.Load() || r.dead.Load()
}

func (r *renderer) RequestDisplay() {
	select {
	case r.displayRequests <- struct{}{}:
	default:
	}
}

func (r *renderer) CreateCompatiblePool(capacity int) (volume.Pool, error) {
	if r.IsClosed() {
		return nil, ErrRendererClosed
	}
	return volume.NewPool(
		volume.WithCapacity(capacity),
		volume.WithBytesPerVoxel(r.params.BytesPerVoxel),
	), nil
}

func (r *renderer) Stats() FrameStats {
	return FrameStats{
		Frames:       r.frames.Load(),
		Uploads:      r.uploads.Load(),
		UploadErrors: r.uploadErrors.Load(),
	}
}

func (r *renderer) Close() error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	r.signalQuit()
	r.wg.Wait()
	r.releaseLayers()

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.backend.Close(); err != nil {
		return fmt.Errorf("renderer: closing %s backend: %w", r.backendType, err)
	}
	logger.Infof("renderer closed: backend=%s layers=%d", r.backendType, r.params.Layers)
	return nil
}

// signalQuit closes the quit channel to signal the render goroutine to exit.
// Uses sync.Once to ensure the channel is only closed once.
func (r *renderer) signalQuit() {
	r.quitOnce.Do(func() {
		close(r.quitChannel)
	})
}

// releaseLayers completes every layer so producers waiting on this renderer return.
func (r *renderer) releaseLayers() {
	for i := 0; i < r.layers.Count(); i++ {
		r.layers.ClearBuffer(i)
	}
}

// handleRender runs the render loop in its own goroutine.
// Wakes on display requests and on the frame limit ticker when one is configured.
// Recovers from panics to avoid crashing the process. A recovered renderer is dead: waiting
// producers are released and IsClosed reports true so its owner rebuilds it.
func (r *renderer) handleRender() {
	defer r.wg.Done()
	defer func() {
		if rec := recover(); rec != nil {
			logger.Errorf("render goroutine recovered from panic: %v", rec)
			r.dead.Store(true)
			r.signalQuit()
			r.releaseLayers()
		}
	}()

	var tick <-chan time.Time
	if r.renderFrameLimit > 0 {
		ticker := time.NewTicker(r.renderFrameLimit)
		defer ticker.Stop()
		tick = ticker.C
	}

	lastRender := time.Now()

	for {
		select {
		case <-r.quitChannel:
			return
		case <-r.displayRequests:
		case <-tick:
		}

		now := time.Now()
		dt := float32(now.Sub(lastRender).Seconds())
		lastRender = now

		r.renderFrame()

		if r.renderCallback != nil {
			r.renderCallback(dt)
		}

		if r.profilingEnabled && r.profiler != nil {
			r.profiler.Tick()
		}
	}
}

// renderFrame runs one iteration: upload every new layer buffer, refresh parameters, draw.
func (r *renderer) renderFrame() {
	r.mu.Lock()
	defer r.mu.Unlock()

	reallocate := r.layers.ConsumeDimensionsChanged()

	for i := 0; i < r.layers.Count(); i++ {
		data, ok := r.layers.Acquire(i)
		if !ok {
			continue
		}
		err := r.backend.UploadVolume(data, r.params.BytesPerVoxel, reallocate)
		if err != nil {
			r.uploadErrors.Add(1)
			logger.Warningf("layer %d: upload of generation %d failed: %v", i, data.Generation, err)
		} else {
			r.uploads.Add(1)
			r.profiler.CountUpload()
		}
		r.metrics.VolumeUploaded(err)
		r.layers.MarkConsumed(i, data.Generation)
	}

	if r.layers.ConsumeParametersChanged() {
		if err := r.backend.UpdateParameters(r.layers.Snapshots(), r.camera.ViewProjectionMatrix()); err != nil {
			logger.Warningf("parameter update failed: %v", err)
		}
	}

	if err := r.backend.DrawFrame(); err != nil {
		logger.Debugf("draw failed: %v", err)
	}
	r.frames.Add(1)
	r.metrics.FrameRendered()
}
