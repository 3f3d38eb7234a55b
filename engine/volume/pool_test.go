package volume

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolRequestSizesFrame(t *testing.T) {
	p := NewPool(WithBytesPerVoxel(2), WithCapacity(2))

	f, err := p.Request(context.Background(), Dimensions{4, 3, 2})
	require.NoError(t, err)
	assert.Len(t, f.Data, 4*3*2*2)
	assert.Equal(t, 2, f.BytesPerVoxel)
	assert.NoError(t, f.Validate())
}

func TestPoolBoundsOutstandingFrames(t *testing.T) {
	p := NewPool(WithCapacity(1))

	first, err := p.Request(context.Background(), Dimensions{2, 2, 2})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = p.Request(ctx, Dimensions{2, 2, 2})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, first.Release())
	second, err := p.Request(context.Background(), Dimensions{2, 2, 2})
	require.NoError(t, err)
	assert.NotNil(t, second)
}

func TestPoolReusesReleasedBuffers(t *testing.T) {
	p := NewPool(WithCapacity(2))

	f, err := p.Request(context.Background(), Dimensions{8, 8, 8})
	require.NoError(t, err)
	require.NoError(t, f.Release())

	g, err := p.Request(context.Background(), Dimensions{4, 4, 4})
	require.NoError(t, err)
	assert.Len(t, g.Data, 64)

	stats := p.Stats()
	assert.Equal(t, uint64(1), stats.Allocated)
	assert.Equal(t, uint64(2), stats.Requested)
	assert.Equal(t, uint64(1), stats.Outstanding)
}

func TestFrameReleaseIsIdempotent(t *testing.T) {
	p := NewPool(WithCapacity(1))
	f, err := p.Request(context.Background(), Dimensions{1, 1, 1})
	require.NoError(t, err)

	require.NoError(t, f.Release())
	assert.ErrorIs(t, f.Release(), ErrAlreadyReleased)
	assert.Equal(t, uint64(1), p.Stats().Released)
}

func TestPoolClose(t *testing.T) {
	p := NewPool(WithCapacity(2))
	f, err := p.Request(context.Background(), Dimensions{1, 1, 1})
	require.NoError(t, err)

	require.NoError(t, p.Close())
	_, err = p.Request(context.Background(), Dimensions{1, 1, 1})
	assert.ErrorIs(t, err, ErrPoolClosed)

	require.NoError(t, f.Release())
	assert.Equal(t, 0, p.Stats().Free)
}

func TestFrameValidate(t *testing.T) {
	assert.ErrorIs(t, NewFrame(Dimensions{0, 1, 1}, 1, nil).Validate(), ErrInvalidDimensions)
	assert.ErrorIs(t, NewFrame(Dimensions{1, 1, 1}, 3, make([]byte, 3)).Validate(), ErrInvalidVoxelFormat)
	assert.ErrorIs(t, NewFrame(Dimensions{2, 2, 2}, 1, make([]byte, 7)).Validate(), ErrBufferTooSmall)
	assert.NoError(t, NewFrame(Dimensions{2, 2, 2}, 1, make([]byte, 8)).Validate())
}

func TestDimensions(t *testing.T) {
	d := Dimensions{100, 50, 25}
	assert.Equal(t, uint64(125000), d.Voxels())
	assert.Equal(t, uint64(100), d.Max())
}
