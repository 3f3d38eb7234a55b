package sink

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-volume/engine/layer"
	"github.com/Carmen-Shannon/oxy-volume/engine/lifecycle"
	"github.com/Carmen-Shannon/oxy-volume/engine/profiler"
	"github.com/Carmen-Shannon/oxy-volume/engine/relay"
	"github.com/Carmen-Shannon/oxy-volume/engine/renderer"
	"github.com/Carmen-Shannon/oxy-volume/engine/transfer"
	"github.com/Carmen-Shannon/oxy-volume/engine/volume"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSink(t *testing.T, backendOptions []renderer.HeadlessBackendOption, options ...SinkBuilderOption) *RendererSink {
	t.Helper()
	s := NewRendererSink(lifecycle.NewController(renderer.NewHeadlessFactory(backendOptions)), options...)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testFrame(channel int, fill byte) *volume.Frame {
	data := make([]byte, 8)
	for i := range data {
		data[i] = fill
	}
	f := volume.NewFrame(volume.Dimensions{2, 2, 2}, 1, data)
	f.ChannelID = channel
	return f
}

func TestSendFrameReachesRenderer(t *testing.T) {
	s := newTestSink(t, nil)

	f := testFrame(0, 7)
	require.NoError(t, s.SendFrame(context.Background(), f))
	assert.True(t, f.Released())

	r := s.Controller().Renderer()
	require.NotNil(t, r)
	assert.True(t, r.Layers().IsComplete(0))
	assert.Equal(t, uint64(1), r.Stats().Uploads)
	assert.True(t, r.Layers().TransferFunction(0).Equal(transfer.GradientForIndex(0)))
}

func TestChannelsMapToLayers(t *testing.T) {
	s := newTestSink(t, nil)

	require.NoError(t, s.SendFrame(context.Background(), testFrame(0, 1)))

	red := mgl32.Vec3{1, 0, 0}
	f := testFrame(5, 2)
	f.Color = &red
	require.NoError(t, s.SendFrame(context.Background(), f))

	r := s.Controller().Renderer()
	require.Equal(t, 2, r.LayerCount())
	// 5 mod 2
	assert.True(t, r.Layers().Snapshot(1).HasData)
	assert.True(t, r.Layers().TransferFunction(1).Equal(transfer.GradientForColor(red)))
	assert.Equal(t, uint64(1), s.Controller().Reconfigurations())
}

func TestTimeoutIsNotEscalatedByDefault(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := newTestSink(t,
		[]renderer.HeadlessBackendOption{renderer.WithUploadDelay(300 * time.Millisecond)},
		WithWaitTimeout(10*time.Millisecond),
		WithMetrics(profiler.NewMetrics(reg)),
	)

	f := testFrame(0, 1)
	assert.NoError(t, s.SendFrame(context.Background(), f))
	assert.True(t, f.Released())

	n, err := testutil.GatherAndCount(reg, "oxyvol_handoff_timeouts_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestStrictTimeoutReturnsError(t *testing.T) {
	s := newTestSink(t,
		[]renderer.HeadlessBackendOption{renderer.WithUploadDelay(300 * time.Millisecond)},
		WithWaitTimeout(10*time.Millisecond),
		WithStrictTimeouts(true),
	)

	f := testFrame(0, 1)
	err := s.SendFrame(context.Background(), f)
	assert.ErrorIs(t, err, layer.ErrWaitTimeout)
	assert.True(t, f.Released())
}

func TestInvalidFrameIsReleased(t *testing.T) {
	s := newTestSink(t, nil)

	f := volume.NewFrame(volume.Dimensions{2, 2, 2}, 1, make([]byte, 4))
	err := s.SendFrame(context.Background(), f)
	assert.ErrorIs(t, err, volume.ErrBufferTooSmall)
	assert.True(t, f.Released())
	assert.False(t, s.IsRendererCreated())
}

func TestSinkForwardsDownstream(t *testing.T) {
	s := newTestSink(t, nil)

	var forwarded atomic.Int32
	relay.Chain(s, relay.NewFunc(func(_ context.Context, f *volume.Frame) error {
		assert.False(t, f.Released())
		forwarded.Add(1)
		return nil
	}))

	f := testFrame(0, 1)
	require.NoError(t, s.Consume(context.Background(), f))
	assert.Equal(t, int32(1), forwarded.Load())
	assert.True(t, f.Released())
}

func TestSinkPool(t *testing.T) {
	s := newTestSink(t, nil)
	assert.Nil(t, s.Pool())

	require.NoError(t, s.SendFrame(context.Background(), testFrame(0, 1)))
	require.NotNil(t, s.Pool())
	assert.Equal(t, 1, s.Pool().BytesPerVoxel())
	assert.Same(t, s.Controller().Pool(), s.Pool())
}

func TestSinkVisibility(t *testing.T) {
	s := newTestSink(t, nil)
	ctx := context.Background()

	s.SetVisible(true)
	assert.False(t, s.IsShowing(ctx))

	require.NoError(t, s.SendFrame(ctx, testFrame(0, 1)))
	assert.True(t, s.IsRendererCreated())
	assert.True(t, s.IsShowing(ctx))
}

// replacingController hands out the current renderer, then replaces it once before the caller
// can publish, like a second producer reconfiguring concurrently.
type replacingController struct {
	lifecycle.Controller
	once sync.Once
}

func (c *replacingController) Ensure(f *volume.Frame) (renderer.Renderer, bool, error) {
	r, rebuilt, err := c.Controller.Ensure(f)
	if err != nil {
		return r, rebuilt, err
	}
	c.once.Do(func() {
		_, _, err = c.Controller.Ensure(testFrame(f.ChannelID+1, 0))
	})
	return r, rebuilt, err
}

func TestSendFrameRepublishesAfterConcurrentReconfiguration(t *testing.T) {
	c := &replacingController{Controller: lifecycle.NewController(renderer.NewHeadlessFactory(nil))}
	s := NewRendererSink(c, WithWaitTimeout(2*time.Second), WithStrictTimeouts(true))
	t.Cleanup(func() { _ = s.Close() })

	start := time.Now()
	f := testFrame(0, 3)
	require.NoError(t, s.SendFrame(context.Background(), f))
	assert.Less(t, time.Since(start), time.Second)
	assert.True(t, f.Released())

	r := c.Renderer()
	require.Equal(t, 2, r.LayerCount())
	assert.Equal(t, uint64(1), c.Reconfigurations())
	assert.True(t, r.Layers().IsComplete(0))
	assert.Equal(t, uint64(1), r.Stats().Uploads)
}

func TestSendFrameAfterCloseDoesNotWait(t *testing.T) {
	s := newTestSink(t, nil, WithWaitTimeout(2*time.Second), WithStrictTimeouts(true))
	require.NoError(t, s.SendFrame(context.Background(), testFrame(0, 1)))

	r := s.Controller().Renderer()
	require.NoError(t, r.Close())

	start := time.Now()
	f := testFrame(0, 2)
	require.NoError(t, s.SendFrame(context.Background(), f))
	assert.Less(t, time.Since(start), time.Second)
	assert.True(t, f.Released())
	assert.NotSame(t, r, s.Controller().Renderer())
}
