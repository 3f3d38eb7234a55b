package volume

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"golang.org/x/sync/semaphore"
)

// PoolStats is a point-in-time view of a Pool's counters.
type PoolStats struct {
	Requested   uint64
	Released    uint64
	Allocated   uint64
	Outstanding uint64
	Free        int
}

// Pool is a bounded source of reusable voxel buffers for producers.
// At most Capacity frames are outstanding at any time; Request blocks until one is released.
type Pool interface {
	// Request obtains a frame sized for the given dimensions in the pool's voxel format.
	// It blocks while Capacity frames are outstanding.
	//
	// Parameters:
	//   - ctx: bounds the wait for a free slot
	//   - dims: the volume size in voxels
	//
	// Returns:
	//   - *Frame: a frame whose Data has exactly dims.Voxels()*BytesPerVoxel bytes
	//   - error: ErrPoolClosed, ErrInvalidDimensions, or the context error
	Request(ctx context.Context, dims Dimensions) (*Frame, error)

	// BytesPerVoxel returns the voxel format of frames produced by this pool.
	//
	// Returns:
	//   - int: bytes per voxel
	BytesPerVoxel() int

	// Capacity returns the maximum number of outstanding frames.
	//
	// Returns:
	//   - int: the capacity
	Capacity() int

	// Stats returns the pool counters.
	//
	// Returns:
	//   - PoolStats: a snapshot of the counters
	Stats() PoolStats

	// Close stops the pool from handing out frames and drops cached buffers.
	// Frames still outstanding may be released after Close.
	//
	// Returns:
	//   - error: always nil, present to satisfy io.Closer
	Close() error
}

type pool struct {
	mu *sync.Mutex

	bytesPerVoxel int
	capacity      int
	sem           *semaphore.Weighted

	free   [][]byte
	closed bool

	requested uint64
	released  uint64
	allocated uint64
}

var _ Pool = &pool{}

// NewPool creates a Pool. Defaults to 1 byte per voxel and a capacity of 20 frames.
//
// Parameters:
//   - options: functional options for the pool
//
// Returns:
//   - Pool: the new pool
func NewPool(options ...PoolBuilderOption) Pool {
	p := &pool{
		mu:            &sync.Mutex{},
		bytesPerVoxel: 1,
		capacity:      20,
	}
	for _, opt := range options {
		opt(p)
	}
	if p.capacity < 1 {
		p.capacity = 1
	}
	p.sem = semaphore.NewWeighted(int64(p.capacity))
	return p
}

func (p *pool) Request(ctx context.Context, dims Dimensions) (*Frame, error) {
	if dims[0] == 0 || dims[1] == 0 || dims[2] == 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDimensions, dims)
	}

	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return nil, ErrPoolClosed
	}

	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("volume: waiting for a free frame: %w", err)
	}

	size := dims.Voxels() * uint64(p.bytesPerVoxel)

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.sem.Release(1)
		return nil, ErrPoolClosed
	}
	data := p.takeFree(size)
	if data == nil {
		data = make([]byte, size)
		p.allocated++
	}
	p.requested++
	p.mu.Unlock()

	return &Frame{
		Dimensions:    dims,
		VoxelSize:     mgl64.Vec3{1, 1, 1},
		BytesPerVoxel: p.bytesPerVoxel,
		Data:          data,
		pool:          p,
	}, nil
}

// takeFree removes the first cached buffer large enough for size bytes. Caller holds mu.
func (p *pool) takeFree(size uint64) []byte {
	for i, buf := range p.free {
		if uint64(cap(buf)) >= size {
			last := len(p.free) - 1
			p.free[i] = p.free[last]
			p.free[last] = nil
			p.free = p.free[:last]
			return buf[:size]
		}
	}
	return nil
}

func (p *pool) release(f *Frame) {
	p.mu.Lock()
	p.released++
	if !p.closed && len(p.free) < p.capacity && f.Data != nil {
		p.free = append(p.free, f.Data[:0])
	}
	p.mu.Unlock()
	p.sem.Release(1)
}

func (p *pool) BytesPerVoxel() int {
	return p.bytesPerVoxel
}

func (p *pool) Capacity() int {
	return p.capacity
}

func (p *pool) Stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PoolStats{
		Requested:   p.requested,
		Released:    p.released,
		Allocated:   p.allocated,
		Outstanding: p.requested - p.released,
		Free:        len(p.free),
	}
}

func (p *pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.free = nil
	return nil
}
