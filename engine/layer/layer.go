// Package layer holds the per-layer render state and the buffer handoff between
// producer goroutines and the render loop.
package layer

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-volume/engine/transfer"
	"github.com/Carmen-Shannon/oxy-volume/engine/volume"
	"github.com/go-gl/mathgl/mgl64"
)

// ErrWaitTimeout is returned when the render loop did not consume a published buffer in time.
var ErrWaitTimeout = errors.New("layer: timed out waiting for buffer completion")

// Parameter identifies a scalar render parameter of a layer.
type Parameter int

const (
	Brightness Parameter = iota
	Gamma
	Quality
	Dithering
	TransferRangeMin
	TransferRangeMax
)

func (p Parameter) String() string {
	switch p {
	case Brightness:
		return "brightness"
	case Gamma:
		return "gamma"
	case Quality:
		return "quality"
	case Dithering:
		return "dithering"
	case TransferRangeMin:
		return "transferRangeMin"
	case TransferRangeMax:
		return "transferRangeMax"
	default:
		return fmt.Sprintf("Parameter(%d)", int(p))
	}
}

// Defaults applied to every new layer and restored by ResetPhotometry.
const (
	DefaultBrightness = 1.0
	DefaultGamma      = 1.0
	DefaultQuality    = 0.75
	DefaultDithering  = 1.0
)

// MaxBrightness returns the brightness ceiling for a voxel format.
// 8-bit data saturates much earlier than wider formats.
func MaxBrightness(bytesPerVoxel int) float64 {
	if bytesPerVoxel == 1 {
		return 16
	}
	return 256
}

// Snapshot is a consistent copy of one layer's state.
type Snapshot struct {
	Index   int
	Visible bool

	Brightness float64
	Gamma      float64
	Quality    float64
	Dithering  float64
	RangeMin   float64
	RangeMax   float64

	// MaxRayCastSteps is the ray sampling budget derived from Dimensions and Quality.
	MaxRayCastSteps int

	TransferFunction transfer.Function

	Dimensions volume.Dimensions
	VoxelSize  mgl64.Vec3
	Scale      mgl64.Vec3

	HasData    bool
	Generation uint64
	Completed  uint64
}

// VolumeData is a published buffer handed to the render loop.
type VolumeData struct {
	Layer      int
	Buffer     []byte
	Dimensions volume.Dimensions
	VoxelSize  mgl64.Vec3
	Scale      mgl64.Vec3
	Generation uint64
}

// layerState is the state of one render layer.
//
// paramMu guards the render parameters. bufMu guards the buffer, dims, voxel size,
// scale and completion signal. The generation counters are atomic so readers never lock.
type layerState struct {
	paramMu *sync.Mutex

	visible    bool
	brightness float64
	gamma      float64
	quality    float64
	dithering  float64
	rangeMin   float64
	rangeMax   float64
	tf         transfer.Function

	bufMu *sync.Mutex

	buffer    []byte
	dims      volume.Dimensions
	voxelSize mgl64.Vec3
	scale     mgl64.Vec3

	published atomic.Uint64
	completed atomic.Uint64
	signal    chan struct{}
}

func newLayerState(index int) *layerState {
	return &layerState{
		paramMu:    &sync.Mutex{},
		visible:    true,
		brightness: DefaultBrightness,
		gamma:      DefaultGamma,
		quality:    DefaultQuality,
		dithering:  DefaultDithering,
		rangeMin:   0,
		rangeMax:   1,
		tf:         transfer.GradientForIndex(index),
		bufMu:      &sync.Mutex{},
		voxelSize:  mgl64.Vec3{1, 1, 1},
		scale:      mgl64.Vec3{1, 1, 1},
		signal:     make(chan struct{}),
	}
}

// done reports whether the last published buffer has been consumed.
func (s *layerState) done() bool {
	return s.completed.Load() >= s.published.Load()
}

// complete records gen as consumed and wakes every waiter. Caller holds bufMu.
func (s *layerState) complete(gen uint64) {
	if gen <= s.completed.Load() {
		return
	}
	s.completed.Store(gen)
	close(s.signal)
	s.signal = make(chan struct{})
}
