package layer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-volume/engine/volume"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var unitVoxel = mgl64.Vec3{1, 1, 1}

func TestAwaitCompletionTimesOutUntilMarked(t *testing.T) {
	m := NewManager(1, 1)
	m.Publish(0, []byte{1}, volume.Dimensions{1, 1, 1}, unitVoxel)

	assert.True(t, m.AwaitCompletion(0, 0))
	assert.True(t, m.AwaitCompletion(0, 5*time.Millisecond))

	m.MarkComplete(0)

	assert.False(t, m.AwaitCompletion(0, 0))
	assert.False(t, m.AwaitCompletion(0, time.Second))
	assert.False(t, m.AwaitCompletion(0, -time.Second))
}

func TestAwaitCompletionWakesOnMark(t *testing.T) {
	m := NewManager(1, 1)
	m.Publish(0, []byte{1}, volume.Dimensions{1, 1, 1}, unitVoxel)

	go func() {
		time.Sleep(10 * time.Millisecond)
		m.MarkComplete(0)
	}()

	start := time.Now()
	assert.False(t, m.AwaitCompletion(0, 5*time.Second))
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestTimeoutDoesNotRollBack(t *testing.T) {
	m := NewManager(1, 1)
	buf := []byte{7}
	m.Publish(0, buf, volume.Dimensions{1, 1, 1}, unitVoxel)

	require.True(t, m.AwaitCompletion(0, time.Millisecond))

	data, ok := m.Acquire(0)
	require.True(t, ok)
	assert.Equal(t, buf, data.Buffer)
}

func TestLastPublishWins(t *testing.T) {
	m := NewManager(1, 1)
	first := []byte{1}
	second := []byte{2}

	g1 := m.Publish(0, first, volume.Dimensions{1, 1, 1}, unitVoxel)
	g2 := m.Publish(0, second, volume.Dimensions{1, 1, 1}, unitVoxel)
	assert.Greater(t, g2, g1)

	data, ok := m.Acquire(0)
	require.True(t, ok)
	assert.Equal(t, second, data.Buffer)
	assert.Equal(t, g2, data.Generation)

	m.MarkConsumed(0, data.Generation)
	assert.NoError(t, m.AwaitGeneration(context.Background(), 0, g1))
	assert.NoError(t, m.AwaitGeneration(context.Background(), 0, g2))

	_, ok = m.Acquire(0)
	assert.False(t, ok)
}

func TestMarkConsumedKeepsNewerPublishPending(t *testing.T) {
	m := NewManager(1, 1)
	m.Publish(0, []byte{1}, volume.Dimensions{1, 1, 1}, unitVoxel)

	data, ok := m.Acquire(0)
	require.True(t, ok)

	g2 := m.Publish(0, []byte{2}, volume.Dimensions{1, 1, 1}, unitVoxel)
	m.MarkConsumed(0, data.Generation)

	assert.False(t, m.IsComplete(0))
	assert.True(t, m.AwaitCompletion(0, 0))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, m.AwaitGeneration(ctx, 0, g2), ErrWaitTimeout)

	next, ok := m.Acquire(0)
	require.True(t, ok)
	assert.Equal(t, []byte{2}, next.Buffer)
}

func TestLayersAreIndependent(t *testing.T) {
	m := NewManager(2, 1)
	m.Publish(0, []byte{1}, volume.Dimensions{1, 1, 1}, unitVoxel)
	m.Publish(1, []byte{2}, volume.Dimensions{1, 1, 1}, unitVoxel)

	m.MarkComplete(1)
	assert.False(t, m.IsComplete(0))
	assert.True(t, m.IsComplete(1))
	assert.True(t, m.IsNewDataAvailable())

	m.MarkComplete(0)
	assert.False(t, m.IsNewDataAvailable())
}

func TestClearBufferReleasesWaiters(t *testing.T) {
	m := NewManager(1, 1)
	gen := m.Publish(0, []byte{1}, volume.Dimensions{1, 1, 1}, unitVoxel)

	m.ClearBuffer(0)
	assert.NoError(t, m.AwaitGeneration(context.Background(), 0, gen))
	assert.False(t, m.Snapshot(0).HasData)
	_, ok := m.Acquire(0)
	assert.False(t, ok)
}

func TestConcurrentProducersAndConsumer(t *testing.T) {
	m := NewManager(2, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var consumer sync.WaitGroup
	consumer.Add(1)
	go func() {
		defer consumer.Done()
		for ctx.Err() == nil {
			for i := 0; i < m.Count(); i++ {
				if data, ok := m.Acquire(i); ok {
					m.MarkConsumed(i, data.Generation)
				}
			}
			time.Sleep(100 * time.Microsecond)
		}
	}()

	var producers sync.WaitGroup
	for p := 0; p < 4; p++ {
		producers.Add(1)
		go func(p int) {
			defer producers.Done()
			for n := 0; n < 50; n++ {
				gen := m.Publish(p%2, []byte{byte(n)}, volume.Dimensions{1, 1, 1}, unitVoxel)
				waitCtx, waitCancel := context.WithTimeout(ctx, 5*time.Second)
				assert.NoError(t, m.AwaitGeneration(waitCtx, p%2, gen))
				waitCancel()
			}
		}(p)
	}

	producers.Wait()
	cancel()
	consumer.Wait()
}
