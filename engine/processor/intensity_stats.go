package processor

import (
	"context"

	"github.com/Carmen-Shannon/oxy-volume/engine/volume"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// IntensityStatsResult summarizes the voxel intensities of a volume.
type IntensityStatsResult struct {
	Mean   float64
	StdDev float64
	Min    float64
	Max    float64
}

// IntensityStats computes mean, standard deviation and range of voxel intensities.
type IntensityStats struct{}

var _ Processor = IntensityStats{}

func (IntensityStats) Name() string {
	return "intensity_stats"
}

func (IntensityStats) Process(ctx context.Context, _ int, f *volume.Frame) (any, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	n := int(f.Dimensions.Voxels())
	values := make([]float64, n)
	for i := range values {
		values[i] = intensityAt(f, i)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mean, std := stat.MeanStdDev(values, nil)
	return IntensityStatsResult{
		Mean:   mean,
		StdDev: std,
		Min:    floats.Min(values),
		Max:    floats.Max(values),
	}, nil
}
