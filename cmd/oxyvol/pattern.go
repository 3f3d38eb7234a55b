package main

import (
	"encoding/binary"

	"github.com/Carmen-Shannon/oxy-volume/engine/volume"
)

// noiseFloor is the intensity below which generated voxels are cleared.
const noiseFloor = 12

// fillXOR writes an XOR test pattern into f. The pattern scrolls along x with t and odd
// channels get the inverted pattern, so overlapping layers stay distinguishable.
func fillXOR(f *volume.Frame, channel, t int) {
	nx, ny, nz := int(f.Dimensions[0]), int(f.Dimensions[1]), int(f.Dimensions[2])

	i := 0
	for z := 0; z < nz; z++ {
		for y := 0; y < ny; y++ {
			for x := 0; x < nx; x++ {
				v := ((x + t) ^ y ^ z) & 0xff
				if channel%2 == 1 {
					v = 255 - v
				}
				if v < noiseFloor {
					v = 0
				}

				switch f.BytesPerVoxel {
				case 2:
					binary.LittleEndian.PutUint16(f.Data[2*i:], uint16(v)*257)
				default:
					f.Data[i] = byte(v)
				}
				i++
			}
		}
	}
}
