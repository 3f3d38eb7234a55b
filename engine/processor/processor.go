package processor

import (
	"context"
	"encoding/binary"
	"errors"
	"math"

	"github.com/Carmen-Shannon/oxy-volume/engine/volume"
)

var ErrZeroMass = errors.New("processor: volume has no intensity")

// Processor analyses a frame on its way to the renderer. Processors only read the frame and must
// not keep it after Process returns.
type Processor interface {
	// Name identifies the processor in listeners and metrics.
	//
	// Returns:
	//   - string: the processor name
	Name() string

	// Process computes a result for a frame.
	//
	// Parameters:
	//   - ctx: cancelled when the result is no longer wanted
	//   - channel: the frame's channel id
	//   - frame: the frame to read
	//
	// Returns:
	//   - any: the result handed to listeners
	//   - error: the processing error, if any
	Process(ctx context.Context, channel int, frame *volume.Frame) (any, error)
}

// Listener receives processor results together with the channel id of the analysed frame.
type Listener func(name string, channel int, result any)

// intensityAt decodes voxel i of a frame as a float. Multi-byte voxels are little-endian;
// 2-byte voxels are unsigned integers and 4-byte voxels are float32.
func intensityAt(f *volume.Frame, i int) float64 {
	switch f.BytesPerVoxel {
	case 2:
		return float64(binary.LittleEndian.Uint16(f.Data[2*i:]))
	case 4:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(f.Data[4*i:])))
	default:
		return float64(f.Data[i])
	}
}
