package gpu

import "errors"

var (
	ErrBackendClosed = errors.New("gpu: backend closed")
	ErrNoAdapter     = errors.New("gpu: no compatible adapter")
)
