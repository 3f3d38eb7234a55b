package relay

import (
	"context"
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-volume/engine/volume"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type poolStage struct {
	Adapter
	pool volume.Pool
}

func (p *poolStage) Consume(ctx context.Context, frame *volume.Frame) error {
	return p.Forward(ctx, frame)
}

func (p *poolStage) Pool() volume.Pool {
	return p.pool
}

func TestChainReleasesExactlyOnceAtTail(t *testing.T) {
	pool := volume.NewPool(volume.WithCapacity(1))
	defer pool.Close()

	var seen []int
	stage := func(id int) *Func {
		return NewFunc(func(_ context.Context, frame *volume.Frame) error {
			assert.False(t, frame.Released())
			seen = append(seen, id)
			return nil
		})
	}
	head := Chain(stage(1), stage(2), stage(3))

	frame, err := pool.Request(context.Background(), volume.Dimensions{2, 2, 2})
	require.NoError(t, err)
	require.NoError(t, head.Consume(context.Background(), frame))

	assert.Equal(t, []int{1, 2, 3}, seen)
	assert.True(t, frame.Released())
	assert.Equal(t, uint64(1), pool.Stats().Released)

	// capacity 1: the request only succeeds because the tail released the frame
	_, err = pool.Request(context.Background(), volume.Dimensions{2, 2, 2})
	assert.NoError(t, err)
}

func TestFuncErrorStillForwards(t *testing.T) {
	boom := errors.New("boom")
	head := Chain(NewFunc(func(context.Context, *volume.Frame) error { return boom }))

	frame := volume.NewFrame(volume.Dimensions{1, 1, 1}, 1, []byte{0})
	err := head.Consume(context.Background(), frame)
	assert.ErrorIs(t, err, boom)
	assert.True(t, frame.Released())
}

func TestNullToleratesReleasedFrames(t *testing.T) {
	frame := volume.NewFrame(volume.Dimensions{1, 1, 1}, 1, []byte{0})
	require.NoError(t, frame.Release())
	assert.NoError(t, Null.Consume(context.Background(), frame))
	assert.NoError(t, Null.Consume(context.Background(), nil))
}

func TestEmptyChainIsNull(t *testing.T) {
	assert.Equal(t, Null, Chain())
}

func TestAdapterDefaultsToNull(t *testing.T) {
	var a Adapter
	assert.Equal(t, Null, a.Next())
	assert.Nil(t, a.DownstreamPool())

	a.SetNext(nil)
	assert.Equal(t, Null, a.Next())
}

func TestDownstreamPool(t *testing.T) {
	pool := volume.NewPool(volume.WithBytesPerVoxel(2))
	head := NewFunc(func(context.Context, *volume.Frame) error { return nil })
	Chain(head, &poolStage{pool: pool})

	assert.Same(t, pool, head.Pool())
}

func TestChainPanicsOnUnlinkableStage(t *testing.T) {
	assert.Panics(t, func() {
		Chain(Null, Null)
	})
}
