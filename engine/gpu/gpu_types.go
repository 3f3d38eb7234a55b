package gpu

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/Carmen-Shannon/oxy-volume/engine/layer"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
)

// GPULayerUniformSize is the size in bytes of a marshalled GPULayerUniform.
const GPULayerUniformSize = 176

// TransferTableSize is the number of texels in a transfer function lookup texture.
const TransferTableSize = 256

// GPULayerUniform is the per-layer uniform block a volume raycaster binds next to the layer's
// 3D texture and transfer function texture.
// Size: 176 bytes (std140 aligned).
type GPULayerUniform struct {
	ViewProjection        [16]float32 // offset   0: column-major view-projection matrix (64 bytes)
	Scale                 [4]float32  // offset  64: xyz = per-axis scale, w = 1 if visible else 0 (16 bytes)
	Photometry            [4]float32  // offset  80: brightness, gamma, quality, dithering (16 bytes)
	Range                 [4]float32  // offset  96: transfer range min, max, max ray cast steps, unused (16 bytes)
	InverseViewProjection [16]float32 // offset 112: inverse of ViewProjection, used to build rays (64 bytes)
}

// NewGPULayerUniform packs a layer snapshot and the camera transform into a uniform block.
//
// Parameters:
//   - s: the layer snapshot
//   - viewProjection: the camera view-projection matrix
//
// Returns:
//   - GPULayerUniform: the packed uniform
func NewGPULayerUniform(s layer.Snapshot, viewProjection mgl32.Mat4) GPULayerUniform {
	var visible float32
	if s.Visible {
		visible = 1
	}
	return GPULayerUniform{
		ViewProjection: viewProjection,
		Scale:          [4]float32{float32(s.Scale[0]), float32(s.Scale[1]), float32(s.Scale[2]), visible},
		Photometry:     [4]float32{float32(s.Brightness), float32(s.Gamma), float32(s.Quality), float32(s.Dithering)},
		Range:          [4]float32{float32(s.RangeMin), float32(s.RangeMax), float32(s.MaxRayCastSteps), 0},

		InverseViewProjection: viewProjection.Inv(),
	}
}

// Marshal serializes the uniform into a little-endian byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 176-byte buffer ready for GPU upload.
func (u *GPULayerUniform) Marshal() []byte {
	buf := make([]byte, GPULayerUniformSize)
	off := 0
	put := func(vs []float32) {
		for _, v := range vs {
			binary.LittleEndian.PutUint32(buf[off:off+4], math.Float32bits(v))
			off += 4
		}
	}
	put(u.ViewProjection[:])
	put(u.Scale[:])
	put(u.Photometry[:])
	put(u.Range[:])
	put(u.InverseViewProjection[:])
	return buf
}

// volumeTextureFormat maps a voxel format to the single-channel texture format it is uploaded as.
func volumeTextureFormat(bytesPerVoxel int) (wgpu.TextureFormat, error) {
	switch bytesPerVoxel {
	case 1:
		return wgpu.TextureFormatR8Unorm, nil
	case 2:
		return wgpu.TextureFormatR16Uint, nil
	case 4:
		return wgpu.TextureFormatR32Float, nil
	default:
		return 0, fmt.Errorf("gpu: no texture format for %d bytes per voxel", bytesPerVoxel)
	}
}
