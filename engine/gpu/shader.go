package gpu

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

//go:embed shaders/raycast.wgsl
var raycastSource string

const (
	raycastVertexEntryPoint   = "vs_main"
	raycastFragmentEntryPoint = "fs_main"
)

// volumeShader describes how the ray caster reads one voxel format.
type volumeShader struct {
	// texel is the WGSL sample type of the volume texture
	texel string
	// load decodes a voxel at `voxel` into [0,1]
	load string
	// sampleType is the matching bind group layout sample type
	sampleType wgpu.TextureSampleType
}

var volumeShaders = map[int]volumeShader{
	1: {
		texel:      "f32",
		load:       "textureLoad(volume_texture, voxel, 0).r",
		sampleType: wgpu.TextureSampleTypeUnfilterableFloat,
	},
	2: {
		texel:      "u32",
		load:       "f32(textureLoad(volume_texture, voxel, 0).r) / 65535.0",
		sampleType: wgpu.TextureSampleTypeUint,
	},
	4: {
		texel:      "f32",
		load:       "textureLoad(volume_texture, voxel, 0).r",
		sampleType: wgpu.TextureSampleTypeUnfilterableFloat,
	},
}

// raycastShader resolves the @oxy: annotations of the ray caster for a voxel format.
//
// Parameters:
//   - bytesPerVoxel: the voxel format
//
// Returns:
//   - string: WGSL source with every annotation replaced
//   - volumeShader: the format description used to build the bind group layout
//   - error: an error if the format has no shader variant
func raycastShader(bytesPerVoxel int) (string, volumeShader, error) {
	vs, ok := volumeShaders[bytesPerVoxel]
	if !ok {
		return "", volumeShader{}, fmt.Errorf("gpu: no ray caster for %d bytes per voxel", bytesPerVoxel)
	}
	source := strings.NewReplacer(
		"@oxy:texel", vs.texel,
		"@oxy:load", vs.load,
	).Replace(raycastSource)
	return source, vs, nil
}
