package layer

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-volume/common"
	"github.com/Carmen-Shannon/oxy-volume/engine/transfer"
	"github.com/Carmen-Shannon/oxy-volume/engine/volume"
	"github.com/go-gl/mathgl/mgl64"
)

type manager struct {
	bytesPerVoxel int
	layers        []*layerState

	parametersChanged atomic.Bool
	dimensionsChanged atomic.Bool

	onChange func()
}

// Manager owns the layers of one renderer.
//
// Producers publish buffers and wait for completion, the render loop acquires buffers and
// marks them consumed, and any goroutine may tune render parameters. Every parameter change
// raises a single coalesced "parameters changed" flag that the render loop reads and clears
// once per frame. The layer count is fixed for the lifetime of a Manager.
//
// All indexed methods panic when the layer index is out of range.
type Manager interface {
	// Count returns the number of layers.
	//
	// Returns:
	//   - int: the layer count
	Count() int

	// BytesPerVoxel returns the voxel format the layers were created for.
	//
	// Returns:
	//   - int: bytes per voxel
	BytesPerVoxel() int

	// Snapshot returns a consistent copy of a layer's state.
	//
	// Parameters:
	//   - layer: the layer index
	//
	// Returns:
	//   - Snapshot: the copied state
	Snapshot(layer int) Snapshot

	// Snapshots returns a copy of every layer's state in index order.
	//
	// Returns:
	//   - []Snapshot: the copied states
	Snapshots() []Snapshot

	// SetParameter sets a scalar render parameter, clamping it into its valid range.
	// Brightness is clamped to [0,16] for 1-byte voxels and [0,256] otherwise, quality,
	// dithering and both transfer range bounds to [0,1]. Gamma is only kept non-negative.
	//
	// Parameters:
	//   - layer: the layer index
	//   - kind: the parameter to set
	//   - value: the requested value
	SetParameter(layer int, kind Parameter, value float64)

	// Parameter returns the current value of a scalar render parameter.
	//
	// Parameters:
	//   - layer: the layer index
	//   - kind: the parameter to read
	//
	// Returns:
	//   - float64: the current value
	Parameter(layer int, kind Parameter) float64

	// SetVisible shows or hides a layer.
	//
	// Parameters:
	//   - layer: the layer index
	//   - visible: true to render the layer
	SetVisible(layer int, visible bool)

	// IsVisible reports whether a layer is rendered.
	//
	// Parameters:
	//   - layer: the layer index
	//
	// Returns:
	//   - bool: the visibility
	IsVisible(layer int) bool

	// SetTransferFunction replaces a layer's transfer function.
	//
	// Parameters:
	//   - layer: the layer index
	//   - tf: the new transfer function
	SetTransferFunction(layer int, tf transfer.Function)

	// TransferFunction returns a layer's transfer function.
	//
	// Parameters:
	//   - layer: the layer index
	//
	// Returns:
	//   - transfer.Function: the transfer function
	TransferFunction(layer int) transfer.Function

	// SetTransferFunctionRange sets both transfer range bounds, each clamped to [0,1].
	//
	// Parameters:
	//   - layer: the layer index
	//   - lo: the lower bound
	//   - hi: the upper bound
	SetTransferFunctionRange(layer int, lo, hi float64)

	// AddBrightness adds delta to a layer's brightness, clamped like SetParameter.
	//
	// Parameters:
	//   - layer: the layer index
	//   - delta: the amount to add
	AddBrightness(layer int, delta float64)

	// AddTransferFunctionRangePosition shifts the transfer range by delta, keeping its width
	// and keeping both bounds inside [0,1].
	//
	// Parameters:
	//   - layer: the layer index
	//   - delta: the shift
	AddTransferFunctionRangePosition(layer int, delta float64)

	// AddTransferFunctionRangeWidth widens the transfer range by delta on both sides.
	// A negative delta narrows it down to at most a single point at its center.
	//
	// Parameters:
	//   - layer: the layer index
	//   - delta: the amount added on each side
	AddTransferFunctionRangeWidth(layer int, delta float64)

	// ResetPhotometry restores brightness, gamma and transfer range defaults on every layer.
	ResetPhotometry()

	// MaxRayCastSteps returns ceil(sqrt(x²+y²+z²) × quality) for the layer's volume size in voxels.
	//
	// Parameters:
	//   - layer: the layer index
	//
	// Returns:
	//   - int: the number of ray casting steps
	MaxRayCastSteps(layer int) int

	// Publish stages a new buffer for a layer and resets its completion.
	// Scale is recomputed as voxelSize[a] × dims[a] / max(dims). When the dimensions differ
	// from the layer's previous ones the dimensions-changed flag is raised.
	// The buffer must stay untouched until the returned generation completes.
	//
	// Parameters:
	//   - layer: the layer index
	//   - buffer: the voxel data
	//   - dims: the volume size in voxels
	//   - voxelSize: the physical size of one voxel
	//
	// Returns:
	//   - uint64: the generation of this publish, starting at 1
	Publish(layer int, buffer []byte, dims volume.Dimensions, voxelSize mgl64.Vec3) uint64

	// Acquire returns the layer's latest published buffer if it has not been consumed yet.
	// Intermediate publishes that were never acquired are skipped.
	//
	// Parameters:
	//   - layer: the layer index
	//
	// Returns:
	//   - VolumeData: the buffer and its generation
	//   - bool: false when there is nothing new
	Acquire(layer int) (VolumeData, bool)

	// MarkComplete marks the layer's latest publish as consumed.
	//
	// Parameters:
	//   - layer: the layer index
	MarkComplete(layer int)

	// MarkConsumed marks a specific generation as consumed. A newer publish stays pending.
	//
	// Parameters:
	//   - layer: the layer index
	//   - generation: the generation returned by Acquire
	MarkConsumed(layer int, generation uint64)

	// IsComplete reports whether the layer's latest publish has been consumed.
	//
	// Parameters:
	//   - layer: the layer index
	//
	// Returns:
	//   - bool: true when nothing is pending
	IsComplete(layer int) bool

	// AwaitCompletion waits up to timeout for the layer's latest publish to be consumed.
	// Completion is sticky: once done, every call returns false even with a zero timeout.
	// A timeout does not roll anything back.
	//
	// Parameters:
	//   - layer: the layer index
	//   - timeout: the maximum wait
	//
	// Returns:
	//   - bool: true if the wait timed out
	AwaitCompletion(layer int, timeout time.Duration) bool

	// AwaitGeneration waits until the given generation or a later one has been consumed.
	//
	// Parameters:
	//   - ctx: bounds the wait
	//   - layer: the layer index
	//   - generation: the generation returned by Publish
	//
	// Returns:
	//   - error: nil once consumed, an error wrapping ErrWaitTimeout otherwise
	AwaitGeneration(ctx context.Context, layer int, generation uint64) error

	// ClearBuffer drops the layer's buffer reference and releases any waiting producer.
	//
	// Parameters:
	//   - layer: the layer index
	ClearBuffer(layer int)

	// IsNewDataAvailable reports whether any layer has an unconsumed buffer.
	//
	// Returns:
	//   - bool: true when the render loop has something to upload
	IsNewDataAvailable() bool

	// NotifyParametersChanged raises the parameters-changed flag.
	NotifyParametersChanged()

	// ConsumeParametersChanged reads and clears the parameters-changed flag.
	// Only the render loop should call it.
	//
	// Returns:
	//   - bool: the flag value before clearing
	ConsumeParametersChanged() bool

	// ConsumeDimensionsChanged reads and clears the dimensions-changed flag.
	// Only the render loop should call it.
	//
	// Returns:
	//   - bool: the flag value before clearing
	ConsumeDimensionsChanged() bool
}

var _ Manager = &manager{}

// NewManager creates a Manager with layerCount layers for the given voxel format.
// Every layer starts visible with default photometry and the gradient transfer function of its index.
//
// Parameters:
//   - layerCount: the number of layers, at least 1
//   - bytesPerVoxel: the voxel format, determines the brightness ceiling
//   - options: functional options for the manager
//
// Returns:
//   - Manager: the new manager
func NewManager(layerCount, bytesPerVoxel int, options ...ManagerBuilderOption) Manager {
	if layerCount < 1 {
		layerCount = 1
	}
	m := &manager{
		bytesPerVoxel: bytesPerVoxel,
		layers:        make([]*layerState, layerCount),
	}
	for i := range m.layers {
		m.layers[i] = newLayerState(i)
	}
	m.parametersChanged.Store(true)

	for _, opt := range options {
		opt(m)
	}
	return m
}

func (m *manager) layer(index int) *layerState {
	if index < 0 || index >= len(m.layers) {
		panic(fmt.Sprintf("layer: index %d out of range [0,%d)", index, len(m.layers)))
	}
	return m.layers[index]
}

func (m *manager) Count() int {
	return len(m.layers)
}

func (m *manager) BytesPerVoxel() int {
	return m.bytesPerVoxel
}

func (m *manager) Snapshot(index int) Snapshot {
	s := m.layer(index)
	snap := Snapshot{Index: index}

	s.paramMu.Lock()
	snap.Visible = s.visible
	snap.Brightness = s.brightness
	snap.Gamma = s.gamma
	snap.Quality = s.quality
	snap.Dithering = s.dithering
	snap.RangeMin = s.rangeMin
	snap.RangeMax = s.rangeMax
	snap.TransferFunction = s.tf
	s.paramMu.Unlock()

	s.bufMu.Lock()
	snap.Dimensions = s.dims
	snap.VoxelSize = s.voxelSize
	snap.Scale = s.scale
	snap.HasData = s.buffer != nil
	s.bufMu.Unlock()

	snap.MaxRayCastSteps = maxRayCastSteps(snap.Dimensions, snap.Quality)
	snap.Generation = s.published.Load()
	snap.Completed = s.completed.Load()
	return snap
}

func (m *manager) Snapshots() []Snapshot {
	out := make([]Snapshot, len(m.layers))
	for i := range m.layers {
		out[i] = m.Snapshot(i)
	}
	return out
}

func (m *manager) SetParameter(index int, kind Parameter, value float64) {
	s := m.layer(index)
	s.paramMu.Lock()
	switch kind {
	case Brightness:
		s.brightness = common.Clamp(value, 0, MaxBrightness(m.bytesPerVoxel))
	case Gamma:
		s.gamma = math.Max(value, 0)
	case Quality:
		s.quality = common.Clamp(value, 0, 1)
	case Dithering:
		s.dithering = common.Clamp(value, 0, 1)
	case TransferRangeMin:
		s.rangeMin = common.Clamp(value, 0, 1)
	case TransferRangeMax:
		s.rangeMax = common.Clamp(value, 0, 1)
	default:
		s.paramMu.Unlock()
		panic(fmt.Sprintf("layer: unknown parameter %v", kind))
	}
	s.paramMu.Unlock()
	m.NotifyParametersChanged()
}

func (m *manager) Parameter(index int, kind Parameter) float64 {
	s := m.layer(index)
	s.paramMu.Lock()
	defer s.paramMu.Unlock()
	switch kind {
	case Brightness:
		return s.brightness
	case Gamma:
		return s.gamma
	case Quality:
		return s.quality
	case Dithering:
		return s.dithering
	case TransferRangeMin:
		return s.rangeMin
	case TransferRangeMax:
		return s.rangeMax
	default:
		panic(fmt.Sprintf("layer: unknown parameter %v", kind))
	}
}

func (m *manager) SetVisible(index int, visible bool) {
	s := m.layer(index)
	s.paramMu.Lock()
	s.visible = visible
	s.paramMu.Unlock()
	m.NotifyParametersChanged()
}

func (m *manager) IsVisible(index int) bool {
	s := m.layer(index)
	s.paramMu.Lock()
	defer s.paramMu.Unlock()
	return s.visible
}

func (m *manager) SetTransferFunction(index int, tf transfer.Function) {
	s := m.layer(index)
	s.paramMu.Lock()
	s.tf = tf
	s.paramMu.Unlock()
	m.NotifyParametersChanged()
}

func (m *manager) TransferFunction(index int) transfer.Function {
	s := m.layer(index)
	s.paramMu.Lock()
	defer s.paramMu.Unlock()
	return s.tf
}

func (m *manager) SetTransferFunctionRange(index int, lo, hi float64) {
	s := m.layer(index)
	s.paramMu.Lock()
	s.rangeMin = common.Clamp(lo, 0, 1)
	s.rangeMax = common.Clamp(hi, 0, 1)
	s.paramMu.Unlock()
	m.NotifyParametersChanged()
}

func (m *manager) AddBrightness(index int, delta float64) {
	s := m.layer(index)
	s.paramMu.Lock()
	s.brightness = common.Clamp(s.brightness+delta, 0, MaxBrightness(m.bytesPerVoxel))
	s.paramMu.Unlock()
	m.NotifyParametersChanged()
}

func (m *manager) AddTransferFunctionRangePosition(index int, delta float64) {
	s := m.layer(index)
	s.paramMu.Lock()
	delta = common.Clamp(delta, -s.rangeMin, 1-s.rangeMax)
	s.rangeMin += delta
	s.rangeMax += delta
	s.paramMu.Unlock()
	m.NotifyParametersChanged()
}

func (m *manager) AddTransferFunctionRangeWidth(index int, delta float64) {
	s := m.layer(index)
	s.paramMu.Lock()
	lo := common.Clamp(s.rangeMin-delta, 0, 1)
	hi := common.Clamp(s.rangeMax+delta, 0, 1)
	if lo > hi {
		mid := (s.rangeMin + s.rangeMax) / 2
		lo, hi = mid, mid
	}
	s.rangeMin, s.rangeMax = lo, hi
	s.paramMu.Unlock()
	m.NotifyParametersChanged()
}

func (m *manager) ResetPhotometry() {
	for _, s := range m.layers {
		s.paramMu.Lock()
		s.brightness = DefaultBrightness
		s.gamma = DefaultGamma
		s.rangeMin = 0
		s.rangeMax = 1
		s.paramMu.Unlock()
	}
	m.NotifyParametersChanged()
}

func (m *manager) MaxRayCastSteps(index int) int {
	s := m.layer(index)

	s.bufMu.Lock()
	dims := s.dims
	s.bufMu.Unlock()

	s.paramMu.Lock()
	quality := s.quality
	s.paramMu.Unlock()

	return maxRayCastSteps(dims, quality)
}

func maxRayCastSteps(dims volume.Dimensions, quality float64) int {
	x, y, z := float64(dims[0]), float64(dims[1]), float64(dims[2])
	return int(math.Ceil(math.Sqrt(x*x+y*y+z*z) * quality))
}

func (m *manager) NotifyParametersChanged() {
	m.parametersChanged.Store(true)
	if m.onChange != nil {
		m.onChange()
	}
}

func (m *manager) ConsumeParametersChanged() bool {
	return m.parametersChanged.Swap(false)
}

func (m *manager) ConsumeDimensionsChanged() bool {
	return m.dimensionsChanged.Swap(false)
}
