package layer

import "github.com/Carmen-Shannon/oxy-volume/engine/transfer"

// ManagerBuilderOption is a functional option applied to a manager during construction via NewManager.
type ManagerBuilderOption func(*manager)

// WithChangeNotifier registers a callback invoked after every parameter change and publish.
// The renderer uses it to schedule a redraw. The callback must not block.
//
// Parameters:
//   - fn: the callback
//
// Returns:
//   - ManagerBuilderOption: a function that applies the notifier option to a manager
func WithChangeNotifier(fn func()) ManagerBuilderOption {
	return func(m *manager) {
		m.onChange = fn
	}
}

// WithTransferFunctions overrides the initial transfer functions of the first len(fns) layers.
//
// Parameters:
//   - fns: transfer functions in layer order
//
// Returns:
//   - ManagerBuilderOption: a function that applies the transfer functions to a manager
func WithTransferFunctions(fns ...transfer.Function) ManagerBuilderOption {
	return func(m *manager) {
		for i, tf := range fns {
			if i >= len(m.layers) {
				break
			}
			m.layers[i].tf = tf
		}
	}
}
