package processor

import (
	"context"

	"github.com/Carmen-Shannon/oxy-volume/engine/volume"
	"gonum.org/v1/gonum/floats"
)

// CenterOfMassResult is an intensity-weighted centroid in voxel coordinates.
type CenterOfMassResult struct {
	X, Y, Z float64
	Mass    float64
}

// CenterOfMass computes the intensity-weighted centroid of a volume.
type CenterOfMass struct{}

var _ Processor = CenterOfMass{}

func (CenterOfMass) Name() string {
	return "center_of_mass"
}

func (CenterOfMass) Process(ctx context.Context, _ int, f *volume.Frame) (any, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	nx, ny, nz := int(f.Dimensions[0]), int(f.Dimensions[1]), int(f.Dimensions[2])

	// marginal mass along each axis
	mx := make([]float64, nx)
	my := make([]float64, ny)
	mz := make([]float64, nz)

	i := 0
	for z := 0; z < nz; z++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for y := 0; y < ny; y++ {
			for x := 0; x < nx; x++ {
				w := intensityAt(f, i)
				mx[x] += w
				my[y] += w
				mz[z] += w
				i++
			}
		}
	}

	mass := floats.Sum(mx)
	if mass == 0 {
		return nil, ErrZeroMass
	}
	return CenterOfMassResult{
		X:    floats.Dot(mx, axis(nx)) / mass,
		Y:    floats.Dot(my, axis(ny)) / mass,
		Z:    floats.Dot(mz, axis(nz)) / mass,
		Mass: mass,
	}, nil
}

// axis returns the coordinates 0..n-1.
func axis(n int) []float64 {
	out := make([]float64, n)
	if n < 2 {
		return out
	}
	floats.Span(out, 0, float64(n-1))
	return out
}
