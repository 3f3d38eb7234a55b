package volume

// PoolBuilderOption is a functional option applied to a pool during construction via NewPool.
type PoolBuilderOption func(*pool)

// WithCapacity sets the maximum number of frames that may be outstanding at once.
// Values below 1 are raised to 1.
//
// Parameters:
//   - capacity: the maximum number of outstanding frames
//
// Returns:
//   - PoolBuilderOption: a function that applies the capacity option to a pool
func WithCapacity(capacity int) PoolBuilderOption {
	return func(p *pool) {
		p.capacity = capacity
	}
}

// WithBytesPerVoxel sets the voxel format of frames produced by the pool.
// Unsupported widths are ignored.
//
// Parameters:
//   - n: bytes per voxel (1, 2 or 4)
//
// Returns:
//   - PoolBuilderOption: a function that applies the voxel format option to a pool
func WithBytesPerVoxel(n int) PoolBuilderOption {
	return func(p *pool) {
		if ValidBytesPerVoxel(n) {
			p.bytesPerVoxel = n
		}
	}
}
