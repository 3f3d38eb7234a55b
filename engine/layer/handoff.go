package layer

import (
	"context"
	"fmt"
	"time"

	"github.com/Carmen-Shannon/oxy-volume/engine/volume"
	"github.com/go-gl/mathgl/mgl64"
)

func (m *manager) Publish(index int, buffer []byte, dims volume.Dimensions, voxelSize mgl64.Vec3) uint64 {
	s := m.layer(index)

	s.bufMu.Lock()
	if dims != s.dims {
		m.dimensionsChanged.Store(true)
	}
	if maxDim := float64(dims.Max()); maxDim > 0 {
		for a := 0; a < 3; a++ {
			s.scale[a] = voxelSize[a] * float64(dims[a]) / maxDim
		}
	}
	s.buffer = buffer
	s.dims = dims
	s.voxelSize = voxelSize
	gen := s.published.Add(1)
	s.bufMu.Unlock()

	m.NotifyParametersChanged()
	return gen
}

func (m *manager) Acquire(index int) (VolumeData, bool) {
	s := m.layer(index)

	s.bufMu.Lock()
	defer s.bufMu.Unlock()

	gen := s.published.Load()
	if s.buffer == nil || gen <= s.completed.Load() {
		return VolumeData{}, false
	}
	return VolumeData{
		Layer:      index,
		Buffer:     s.buffer,
		Dimensions: s.dims,
		VoxelSize:  s.voxelSize,
		Scale:      s.scale,
		Generation: gen,
	}, true
}

func (m *manager) MarkComplete(index int) {
	s := m.layer(index)
	s.bufMu.Lock()
	s.complete(s.published.Load())
	s.bufMu.Unlock()
}

func (m *manager) MarkConsumed(index int, generation uint64) {
	s := m.layer(index)
	s.bufMu.Lock()
	s.complete(min(generation, s.published.Load()))
	s.bufMu.Unlock()
}

func (m *manager) IsComplete(index int) bool {
	return m.layer(index).done()
}

func (m *manager) AwaitCompletion(index int, timeout time.Duration) bool {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	s := m.layer(index)
	return m.wait(ctx, s, s.done) != nil
}

func (m *manager) AwaitGeneration(ctx context.Context, index int, generation uint64) error {
	s := m.layer(index)
	return m.wait(ctx, s, func() bool {
		return s.completed.Load() >= generation
	})
}

// wait blocks until done reports true or ctx ends. done is always checked before ctx,
// so a completed layer is reported as such even with an expired deadline.
func (m *manager) wait(ctx context.Context, s *layerState, done func() bool) error {
	for {
		s.bufMu.Lock()
		if done() {
			s.bufMu.Unlock()
			return nil
		}
		signal := s.signal
		s.bufMu.Unlock()

		select {
		case <-signal:
		case <-ctx.Done():
			if done() {
				return nil
			}
			return fmt.Errorf("%w: %w", ErrWaitTimeout, ctx.Err())
		}
	}
}

func (m *manager) ClearBuffer(index int) {
	s := m.layer(index)
	s.bufMu.Lock()
	s.buffer = nil
	s.complete(s.published.Load())
	s.bufMu.Unlock()
}

func (m *manager) IsNewDataAvailable() bool {
	for _, s := range m.layers {
		s.bufMu.Lock()
		pending := s.buffer != nil && !s.done()
		s.bufMu.Unlock()
		if pending {
			return true
		}
	}
	return false
}
