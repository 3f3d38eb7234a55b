package volume

import (
	"fmt"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
)

// Dimensions is a volume size in voxels along X, Y and Z.
type Dimensions [3]uint64

// Voxels returns the total number of voxels.
func (d Dimensions) Voxels() uint64 {
	return d[0] * d[1] * d[2]
}

// Max returns the largest of the three extents.
func (d Dimensions) Max() uint64 {
	return max(d[0], d[1], d[2])
}

// Frame is one immutable 3D volume produced for a single channel at a single time point.
// Frames drawn from a Pool must be returned exactly once via Release.
type Frame struct {
	Dimensions    Dimensions
	VoxelSize     mgl64.Vec3
	BytesPerVoxel int

	ChannelID   int
	ChannelName string

	// Color, when set, selects a gradient transfer function for this channel.
	Color *mgl32.Vec3

	TimeIndex int64
	Data      []byte

	pool     *pool
	released atomic.Bool
}

// NewFrame creates a standalone frame that is not backed by a pool.
// Releasing it is a no-op beyond marking it released.
//
// Parameters:
//   - dims: the volume size in voxels
//   - bytesPerVoxel: the voxel width in bytes
//   - data: the voxel data, at least dims.Voxels()*bytesPerVoxel bytes long
//
// Returns:
//   - *Frame: the new frame with unit voxel size
func NewFrame(dims Dimensions, bytesPerVoxel int, data []byte) *Frame {
	return &Frame{
		Dimensions:    dims,
		VoxelSize:     mgl64.Vec3{1, 1, 1},
		BytesPerVoxel: bytesPerVoxel,
		Data:          data,
	}
}

// SizeInBytes returns the number of bytes the dimensions and voxel format require.
func (f *Frame) SizeInBytes() uint64 {
	return f.Dimensions.Voxels() * uint64(f.BytesPerVoxel)
}

// Validate checks that the frame describes a renderable volume.
func (f *Frame) Validate() error {
	if f.Dimensions[0] == 0 || f.Dimensions[1] == 0 || f.Dimensions[2] == 0 {
		return fmt.Errorf("%w: %v", ErrInvalidDimensions, f.Dimensions)
	}
	if !ValidBytesPerVoxel(f.BytesPerVoxel) {
		return fmt.Errorf("%w: got %d", ErrInvalidVoxelFormat, f.BytesPerVoxel)
	}
	if uint64(len(f.Data)) < f.SizeInBytes() {
		return fmt.Errorf("%w: have %d, need %d", ErrBufferTooSmall, len(f.Data), f.SizeInBytes())
	}
	return nil
}

// Release hands the frame buffer back to the pool it came from.
// Only the first call has an effect, later calls return ErrAlreadyReleased.
func (f *Frame) Release() error {
	if !f.released.CompareAndSwap(false, true) {
		return ErrAlreadyReleased
	}
	if f.pool != nil {
		f.pool.release(f)
	}
	return nil
}

// Released reports whether Release has been called.
func (f *Frame) Released() bool {
	return f.released.Load()
}

// ValidBytesPerVoxel reports whether n is a supported voxel width.
func ValidBytesPerVoxel(n int) bool {
	return n == 1 || n == 2 || n == 4
}
