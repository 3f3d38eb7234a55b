package processor

import (
	"context"
	"encoding/binary"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/Carmen-Shannon/oxy-volume/engine/relay"
	"github.com/Carmen-Shannon/oxy-volume/engine/volume"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCenterOfMassPointMass(t *testing.T) {
	dims := volume.Dimensions{4, 4, 4}
	data := make([]byte, dims.Voxels())
	data[1+4*(2+4*3)] = 10

	res, err := CenterOfMass{}.Process(context.Background(), 0, volume.NewFrame(dims, 1, data))
	require.NoError(t, err)
	com := res.(CenterOfMassResult)
	assert.InDelta(t, 1, com.X, 1e-9)
	assert.InDelta(t, 2, com.Y, 1e-9)
	assert.InDelta(t, 3, com.Z, 1e-9)
	assert.InDelta(t, 10, com.Mass, 1e-9)
}

func TestCenterOfMassSixteenBit(t *testing.T) {
	data := make([]byte, 4)
	binary.LittleEndian.PutUint16(data[0:], 1)
	binary.LittleEndian.PutUint16(data[2:], 3)

	res, err := CenterOfMass{}.Process(context.Background(), 0, volume.NewFrame(volume.Dimensions{2, 1, 1}, 2, data))
	require.NoError(t, err)
	com := res.(CenterOfMassResult)
	assert.InDelta(t, 0.75, com.X, 1e-9)
	assert.InDelta(t, 0, com.Y, 1e-9)
	assert.InDelta(t, 4, com.Mass, 1e-9)
}

func TestCenterOfMassEmptyVolume(t *testing.T) {
	_, err := CenterOfMass{}.Process(context.Background(), 0, volume.NewFrame(volume.Dimensions{2, 2, 2}, 1, make([]byte, 8)))
	assert.ErrorIs(t, err, ErrZeroMass)
}

func TestIntensityStats(t *testing.T) {
	data := make([]byte, 16)
	for i, v := range []float32{1, 2, 3, 4} {
		binary.LittleEndian.PutUint32(data[4*i:], math.Float32bits(v))
	}

	res, err := IntensityStats{}.Process(context.Background(), 0, volume.NewFrame(volume.Dimensions{2, 2, 1}, 4, data))
	require.NoError(t, err)
	st := res.(IntensityStatsResult)
	assert.InDelta(t, 2.5, st.Mean, 1e-9)
	assert.InDelta(t, math.Sqrt(5.0/3.0), st.StdDev, 1e-9)
	assert.Equal(t, 1.0, st.Min)
	assert.Equal(t, 4.0, st.Max)
}

type failing struct{ err error }

func (f failing) Name() string { return "failing" }

func (f failing) Process(context.Context, int, *volume.Frame) (any, error) {
	return nil, f.err
}

type panicking struct{}

func (panicking) Name() string { return "panicking" }

func (panicking) Process(context.Context, int, *volume.Frame) (any, error) {
	panic("bad voxel")
}

func pointFrame(channel int) *volume.Frame {
	f := volume.NewFrame(volume.Dimensions{2, 2, 2}, 1, []byte{0, 0, 0, 0, 0, 0, 0, 9})
	f.ChannelID = channel
	return f
}

func TestStageRunsAllProcessorsThenForwards(t *testing.T) {
	var mu sync.Mutex
	results := map[string]any{}
	var channels []int

	s := NewStage([]Processor{CenterOfMass{}, IntensityStats{}}, WithListener(func(name string, channel int, result any) {
		mu.Lock()
		defer mu.Unlock()
		results[name] = result
		channels = append(channels, channel)
	}))
	defer s.Close()

	var released bool
	relay.Chain(s, relay.NewFunc(func(_ context.Context, f *volume.Frame) error {
		mu.Lock()
		defer mu.Unlock()
		assert.Len(t, results, 2)
		released = f.Released()
		return nil
	}))

	f := pointFrame(3)
	require.NoError(t, s.Consume(context.Background(), f))
	assert.False(t, released)
	assert.True(t, f.Released())

	com := results["center_of_mass"].(CenterOfMassResult)
	assert.InDelta(t, 1, com.X, 1e-9)
	assert.InDelta(t, 1, com.Z, 1e-9)
	assert.Equal(t, []int{3, 3}, channels)
}

func TestStageReportsErrorsAndStillForwards(t *testing.T) {
	boom := errors.New("boom")
	s := NewStage([]Processor{failing{err: boom}, panicking{}, CenterOfMass{}})
	defer s.Close()

	var got []string
	s.AddListener(func(name string, _ int, _ any) {
		got = append(got, name)
	})

	f := pointFrame(0)
	err := s.Consume(context.Background(), f)
	assert.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, "panicking")
	assert.True(t, f.Released())
	assert.Equal(t, []string{"center_of_mass"}, got)
}

func TestStagePoolComesFromDownstream(t *testing.T) {
	s := NewStage(nil)
	defer s.Close()
	assert.Nil(t, s.Pool())

	pool := volume.NewPool()
	sinkLike := &poolStage{pool: pool}
	relay.Chain(s, sinkLike)
	assert.Same(t, pool, s.Pool())

	f := pointFrame(0)
	require.NoError(t, s.Consume(context.Background(), f))
	assert.True(t, f.Released())
}

type poolStage struct {
	relay.Adapter
	pool volume.Pool
}

func (p *poolStage) Consume(ctx context.Context, f *volume.Frame) error {
	return p.Forward(ctx, f)
}

func (p *poolStage) Pool() volume.Pool {
	return p.pool
}

type recordingChannel struct {
	seen *atomic.Int64
}

func (recordingChannel) Name() string { return "recording" }

func (r recordingChannel) Process(_ context.Context, channel int, _ *volume.Frame) (any, error) {
	r.seen.Store(int64(channel))
	return channel, nil
}

func TestProcessorsReceiveChannelID(t *testing.T) {
	var seen atomic.Int64
	var listened atomic.Int64
	s := NewStage([]Processor{recordingChannel{seen: &seen}}, WithListener(func(_ string, channel int, _ any) {
		listened.Store(int64(channel))
	}))
	defer s.Close()

	require.NoError(t, s.Consume(context.Background(), pointFrame(-7)))
	assert.Equal(t, int64(-7), seen.Load())
	assert.Equal(t, int64(-7), listened.Load())
}
