package volume

import "errors"

var (
	ErrPoolClosed         = errors.New("volume: pool closed")
	ErrAlreadyReleased    = errors.New("volume: frame already released")
	ErrInvalidDimensions  = errors.New("volume: invalid dimensions")
	ErrInvalidVoxelFormat = errors.New("volume: bytes per voxel must be 1, 2 or 4")
	ErrBufferTooSmall     = errors.New("volume: data buffer smaller than dimensions require")
	ErrIncompatibleFormat = errors.New("volume: frame format does not match pool format")
)
