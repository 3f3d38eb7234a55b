package renderer

import "time"

// HeadlessBackendOption is a functional option applied to a headless backend during construction.
type HeadlessBackendOption func(*headlessRendererBackend)

// WithUploadDelay makes every upload take at least d, simulating a slow device.
//
// Parameters:
//   - d: the delay per upload
//
// Returns:
//   - HeadlessBackendOption: a function that applies the delay to a backend
func WithUploadDelay(d time.Duration) HeadlessBackendOption {
	return func(b *headlessRendererBackend) {
		b.uploadDelay = d
	}
}

// WithCloseError makes Close return err, simulating a failing teardown.
//
// Parameters:
//   - err: the error Close returns
//
// Returns:
//   - HeadlessBackendOption: a function that applies the close error to a backend
func WithCloseError(err error) HeadlessBackendOption {
	return func(b *headlessRendererBackend) {
		b.closeErr = err
	}
}

// WithStartVisible makes the backend start shown.
//
// Parameters:
//   - visible: the initial visibility
//
// Returns:
//   - HeadlessBackendOption: a function that applies the visibility to a backend
func WithStartVisible(visible bool) HeadlessBackendOption {
	return func(b *headlessRendererBackend) {
		b.visible = visible
	}
}
