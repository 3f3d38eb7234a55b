package gpu

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-volume/engine/controls"
	"github.com/Carmen-Shannon/oxy-volume/engine/renderer"
	"github.com/Carmen-Shannon/oxy-volume/engine/window"
)

// NewFactory returns a renderer.Factory that builds renderers over new wgpu backends and binds
// the interactive controls to each backend's window.
//
// Parameters:
//   - backendOptions: options applied to every backend
//   - options: options applied to every renderer
//
// Returns:
//   - renderer.Factory: the factory
func NewFactory(backendOptions []BackendBuilderOption, options ...renderer.RendererBuilderOption) renderer.Factory {
	return func(p renderer.Params) (renderer.Renderer, error) {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if _, err := volumeTextureFormat(p.BytesPerVoxel); err != nil {
			return nil, fmt.Errorf("%w: %w", renderer.ErrInvalidParams, err)
		}

		b, err := NewBackend(p, backendOptions...)
		if err != nil {
			return nil, err
		}
		r := renderer.NewRenderer(renderer.BackendTypeWGPU, b, p, options...)

		ctl := controls.NewControls(r.Cursor(), r.Camera())
		err = b.RunOnWindow(func(w window.Window) {
			ctl.Bind(w)
		})
		if err == nil {
			err = b.SetResizeCallback(func(width, height int) {
				if width > 0 && height > 0 {
					r.Camera().SetAspect(float32(width) / float32(height))
				}
			})
		}
		if err != nil {
			_ = r.Close()
			return nil, err
		}
		return r, nil
	}
}
