package renderer

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-volume/engine/layer"
	"github.com/Carmen-Shannon/oxy-volume/engine/volume"
	"github.com/go-gl/mathgl/mgl32"
)

var errHeadlessClosed = errors.New("headless backend closed")

// HeadlessBackend is a RendererBackend that keeps a host-memory copy of every uploaded layer.
// It backs tests, CI and the headless demo.
type HeadlessBackend interface {
	RendererBackend

	// Volume returns a copy of the last uploaded buffer of a layer.
	//
	// Parameters:
	//   - layer: the layer index
	//
	// Returns:
	//   - []byte: the uploaded voxels
	//   - volume.Dimensions: their dimensions
	//   - bool: false if nothing was uploaded for the layer
	Volume(layer int) ([]byte, volume.Dimensions, bool)

	// Parameters returns the layer snapshots passed to the last UpdateParameters call.
	//
	// Returns:
	//   - []layer.Snapshot: the snapshots
	Parameters() []layer.Snapshot

	// Draws returns how many frames were drawn.
	//
	// Returns:
	//   - uint64: the frame count
	Draws() uint64
}

type headlessVolume struct {
	data []byte
	dims volume.Dimensions
}

type headlessRendererBackend struct {
	mu *sync.Mutex

	volumes        map[int]*headlessVolume
	states         []layer.Snapshot
	viewProjection mgl32.Mat4

	visible bool
	closed  bool
	draws   uint64

	uploadDelay time.Duration
	closeErr    error
}

var _ HeadlessBackend = &headlessRendererBackend{}

// NewHeadlessBackend creates a headless backend. It starts hidden like a freshly created window.
//
// Parameters:
//   - options: functional options for the backend
//
// Returns:
//   - HeadlessBackend: the new backend
func NewHeadlessBackend(options ...HeadlessBackendOption) HeadlessBackend {
	b := &headlessRendererBackend{
		mu:             &sync.Mutex{},
		volumes:        make(map[int]*headlessVolume),
		viewProjection: mgl32.Ident4(),
	}
	for _, opt := range options {
		opt(b)
	}
	return b
}

// NewHeadlessFactory returns a Factory that builds renderers over fresh headless backends.
//
// Parameters:
//   - backendOptions: options applied to every backend
//   - options: options applied to every renderer
//
// Returns:
//   - Factory: the factory
func NewHeadlessFactory(backendOptions []HeadlessBackendOption, options ...RendererBuilderOption) Factory {
	return func(p Params) (Renderer, error) {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		return NewRenderer(BackendTypeHeadless, NewHeadlessBackend(backendOptions...), p, options...), nil
	}
}

func (b *headlessRendererBackend) UploadVolume(data layer.VolumeData, bytesPerVoxel int, reallocate bool) error {
	if b.uploadDelay > 0 {
		time.Sleep(b.uploadDelay)
	}

	need := data.Dimensions.Voxels() * uint64(bytesPerVoxel)
	if uint64(len(data.Buffer)) < need {
		return fmt.Errorf("%w: layer %d has %d bytes, needs %d", volume.ErrBufferTooSmall, data.Layer, len(data.Buffer), need)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return errHeadlessClosed
	}

	v, ok := b.volumes[data.Layer]
	if !ok || reallocate || v.dims != data.Dimensions || uint64(cap(v.data)) < need {
		v = &headlessVolume{data: make([]byte, need)}
		b.volumes[data.Layer] = v
	}
	v.dims = data.Dimensions
	v.data = v.data[:need]
	copy(v.data, data.Buffer[:need])
	return nil
}

func (b *headlessRendererBackend) UpdateParameters(states []layer.Snapshot, viewProjection mgl32.Mat4) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return errHeadlessClosed
	}
	b.states = states
	b.viewProjection = viewProjection
	return nil
}

func (b *headlessRendererBackend) DrawFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return errHeadlessClosed
	}
	b.draws++
	return nil
}

func (b *headlessRendererBackend) SetVisible(visible bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.visible = visible
}

func (b *headlessRendererBackend) IsShowing() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.visible && !b.closed
}

func (b *headlessRendererBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.volumes = make(map[int]*headlessVolume)
	return b.closeErr
}

func (b *headlessRendererBackend) Volume(index int) ([]byte, volume.Dimensions, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.volumes[index]
	if !ok {
		return nil, volume.Dimensions{}, false
	}
	return append([]byte(nil), v.data...), v.dims, true
}

func (b *headlessRendererBackend) Parameters() []layer.Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]layer.Snapshot(nil), b.states...)
}

func (b *headlessRendererBackend) Draws() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.draws
}
