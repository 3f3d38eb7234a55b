package renderer

import "errors"

var (
	ErrRendererClosed = errors.New("renderer: closed")
	ErrInvalidParams  = errors.New("renderer: invalid parameters")
)
