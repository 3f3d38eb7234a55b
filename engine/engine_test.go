package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-volume/config"
	"github.com/Carmen-Shannon/oxy-volume/engine/lifecycle"
	"github.com/Carmen-Shannon/oxy-volume/engine/processor"
	"github.com/Carmen-Shannon/oxy-volume/engine/volume"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pointFrame(channel int) *volume.Frame {
	data := make([]byte, 27)
	data[13] = 200
	f := volume.NewFrame(volume.Dimensions{3, 3, 3}, 1, data)
	f.ChannelID = channel
	return f
}

func newTestEngine(t *testing.T, options ...EngineBuilderOption) Engine {
	t.Helper()
	e, err := NewEngine(nil, append([]EngineBuilderOption{WithStatsInterval(0)}, options...)...)
	require.NoError(t, err)
	t.Cleanup(func() {
		e.Quit()
		_ = e.Run(context.Background())
	})
	return e
}

func TestNewEngineRejectsInvalidConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Renderer.Backend = "vulkan"

	_, err := NewEngine(cfg)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestHeadlessPipeline(t *testing.T) {
	e := newTestEngine(t)

	assert.Same(t, e.Sink(), e.Pipeline())
	assert.False(t, e.Controller().IsRendererCreated())

	ctx := context.Background()
	require.NoError(t, e.Pipeline().Consume(ctx, pointFrame(0)))
	require.NoError(t, e.Pipeline().Consume(ctx, pointFrame(1)))

	stats := e.Stats()
	assert.Equal(t, lifecycle.StateReady, stats.State)
	assert.Equal(t, 2, stats.Layers)
	assert.Equal(t, 1, stats.BytesPerVoxel)
	assert.Equal(t, uint64(1), stats.Reconfigurations)
	// counters restart with the replacement renderer
	assert.Equal(t, uint64(1), stats.Frames.Uploads)

	published, err := testutil.GatherAndCount(e.Registry(), "oxyvol_frames_published_total")
	require.NoError(t, err)
	assert.Equal(t, 2, published)
}

func TestProcessorsRunBeforeSink(t *testing.T) {
	var mu sync.Mutex
	results := make(map[string]any)

	e := newTestEngine(t,
		WithProcessors(processor.CenterOfMass{}),
		WithProcessorListener(func(name string, _ int, result any) {
			mu.Lock()
			defer mu.Unlock()
			results[name] = result
		}),
	)

	assert.NotSame(t, e.Sink(), e.Pipeline())

	f := pointFrame(0)
	require.NoError(t, e.Pipeline().Consume(context.Background(), f))
	assert.True(t, f.Released())
	assert.True(t, e.Controller().IsRendererCreated())

	mu.Lock()
	defer mu.Unlock()
	com, ok := results[processor.CenterOfMass{}.Name()].(processor.CenterOfMassResult)
	require.True(t, ok)
	assert.InDelta(t, 1.0, com.X, 1e-9)
	assert.InDelta(t, 1.0, com.Y, 1e-9)
	assert.InDelta(t, 1.0, com.Z, 1e-9)
}

func TestRunStopsOnContextAndClosesRenderer(t *testing.T) {
	reports := make(chan Stats, 16)
	e, err := NewEngine(nil,
		WithStatsInterval(5*time.Millisecond),
		WithStatsCallback(func(stats Stats) {
			select {
			case reports <- stats:
			default:
			}
		}),
	)
	require.NoError(t, err)
	require.NoError(t, e.Pipeline().Consume(context.Background(), pointFrame(0)))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	select {
	case stats := <-reports:
		assert.Equal(t, 1, stats.Layers)
	case <-time.After(2 * time.Second):
		t.Fatal("no stats reported")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}

	assert.False(t, e.Controller().IsRendererCreated())
	_, _, err = e.Controller().Ensure(pointFrame(0))
	assert.ErrorIs(t, err, lifecycle.ErrControllerClosed)
}

func TestQuitIsIdempotent(t *testing.T) {
	e, err := NewEngine(nil, WithStatsInterval(0))
	require.NoError(t, err)

	e.Quit()
	e.Quit()
	assert.NoError(t, e.Run(context.Background()))
}
