package gpu

import (
	"errors"
	"fmt"
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-volume/engine/layer"
	"github.com/Carmen-Shannon/oxy-volume/engine/renderer"
	"github.com/Carmen-Shannon/oxy-volume/engine/transfer"
	"github.com/Carmen-Shannon/oxy-volume/engine/volume"
	"github.com/Carmen-Shannon/oxy-volume/engine/window"
	"github.com/Carmen-Shannon/oxy-volume/log"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
)

var logger = log.New("gpu")

// Backend is the WebGPU RendererBackend. It owns a GLFW window and a wgpu device, keeps one 3D
// texture, one uniform buffer and one transfer function texture per layer, and ray casts every
// visible layer into the window on each draw.
//
// GLFW and the wgpu surface are bound to the OS thread that created them, so every call is
// executed on a dedicated thread-locked goroutine owned by the backend.
type Backend interface {
	renderer.RendererBackend

	// RunOnWindow runs fn on the backend thread with the backend's window, typically to
	// register input callbacks.
	//
	// Parameters:
	//   - fn: the function to run
	//
	// Returns:
	//   - error: ErrBackendClosed if the backend is closed
	RunOnWindow(fn func(w window.Window)) error

	// SetResizeCallback sets a function called on the backend thread after the surface was
	// reconfigured for a new framebuffer size.
	//
	// Parameters:
	//   - callback: function receiving the new width and height in pixels
	//
	// Returns:
	//   - error: ErrBackendClosed if the backend is closed
	SetResizeCallback(callback func(width, height int)) error
}

// layerResources holds the GPU objects of one render layer.
type layerResources struct {
	volume     *wgpu.Texture
	volumeView *wgpu.TextureView
	dims       volume.Dimensions
	format     wgpu.TextureFormat

	uniform *wgpu.Buffer

	transfer     *wgpu.Texture
	transferView *wgpu.TextureView
	tf           transfer.Function

	// bindGroup is rebuilt whenever one of the resources above is recreated
	bindGroup *wgpu.BindGroup
	visible   bool
}

func (l *layerResources) invalidate() {
	if l.bindGroup != nil {
		l.bindGroup.Release()
		l.bindGroup = nil
	}
}

func (l *layerResources) ready() bool {
	return l.volumeView != nil && l.uniform != nil && l.transferView != nil
}

func (l *layerResources) releaseVolume() {
	l.invalidate()
	if l.volumeView != nil {
		l.volumeView.Release()
		l.volumeView = nil
	}
	if l.volume != nil {
		l.volume.Release()
		l.volume = nil
	}
}

func (l *layerResources) release() {
	l.releaseVolume()
	l.invalidate()
	if l.uniform != nil {
		l.uniform.Release()
		l.uniform = nil
	}
	if l.transferView != nil {
		l.transferView.Release()
		l.transferView = nil
	}
	if l.transfer != nil {
		l.transfer.Release()
		l.transfer = nil
	}
}

type backend struct {
	mu *sync.Mutex

	calls     chan func()
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error

	params renderer.Params
	win    window.Window

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
	surface  *wgpu.Surface

	surfaceFormat wgpu.TextureFormat
	configured    bool
	onResize      func(width, height int)

	layers   map[int]*layerResources
	pipeline *raycastPipeline

	presentMode          wgpu.PresentMode
	forceFallbackAdapter bool
	clearColor           wgpu.Color
	pollInterval         time.Duration
	startVisible         bool
}

var _ Backend = &backend{}

// NewBackend creates the window and device on a new thread-locked goroutine and returns once
// both are ready.
//
// Parameters:
//   - params: the renderer parameters (title, size, layer count, voxel format)
//   - options: variadic list of BackendBuilderOption functions
//
// Returns:
//   - Backend: the initialized backend
//   - error: an error if the window, adapter, device or surface could not be created
func NewBackend(params renderer.Params, options ...BackendBuilderOption) (Backend, error) {
	b := &backend{
		mu:           &sync.Mutex{},
		calls:        make(chan func()),
		quit:         make(chan struct{}),
		done:         make(chan struct{}),
		params:       params,
		layers:       make(map[int]*layerResources),
		presentMode:  wgpu.PresentModeFifo,
		clearColor:   wgpu.Color{R: 0, G: 0, B: 0, A: 1},
		pollInterval: 10 * time.Millisecond,
	}
	for _, opt := range options {
		opt(b)
	}

	ready := make(chan error, 1)
	go b.run(ready)
	if err := <-ready; err != nil {
		return nil, err
	}
	return b, nil
}

// run is the backend thread. It serves calls, polls window events between them and releases
// every GPU object before exiting.
func (b *backend) run(ready chan<- error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(b.done)

	if err := b.init(); err != nil {
		b.closeErr = b.release()
		ready <- err
		return
	}
	ready <- nil

	poll := time.NewTicker(b.pollInterval)
	defer poll.Stop()

	for {
		select {
		case fn := <-b.calls:
			fn()
		case <-poll.C:
			b.win.PollEvents()
		case <-b.quit:
			b.closeErr = b.release()
			return
		}
	}
}

func (b *backend) init() error {
	win, err := window.NewWindow(
		window.WithTitle(b.params.Title),
		window.WithWidth(b.params.Width),
		window.WithHeight(b.params.Height),
		window.WithVisible(b.startVisible),
		window.WithCloseHides(true),
	)
	if err != nil {
		return err
	}
	b.win = win

	b.instance = wgpu.CreateInstance(nil)
	b.surface = b.instance.CreateSurface(win.SurfaceDescriptor())

	adapter, err := b.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: b.forceFallbackAdapter,
		CompatibleSurface:    b.surface,
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNoAdapter, err)
	}
	b.adapter = adapter

	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Volume Device",
	})
	if err != nil {
		return fmt.Errorf("gpu: requesting device: %w", err)
	}
	b.device = device
	b.queue = device.GetQueue()

	b.surfaceFormat = b.surface.GetCapabilities(adapter).Formats[0]
	b.configureSurface(win.Width(), win.Height())
	b.pipeline, err = newRaycastPipeline(device, b.params.BytesPerVoxel, b.surfaceFormat)
	if err != nil {
		return err
	}
	win.SetResizeCallback(func(width, height int) {
		b.configureSurface(width, height)
		if b.onResize != nil {
			b.onResize(width, height)
		}
	})

	logger.Infof("wgpu backend ready: %dx%d, %d layers, %d bytes per voxel", win.Width(), win.Height(), b.params.Layers, b.params.BytesPerVoxel)
	return nil
}

// configureSurface (re)configures the swapchain. A zero-sized (minimized) window leaves the
// surface unconfigured and frames are skipped until the next resize.
func (b *backend) configureSurface(width, height int) {
	if width <= 0 || height <= 0 {
		b.configured = false
		return
	}
	capabilities := b.surface.GetCapabilities(b.adapter)
	b.surfaceFormat = capabilities.Formats[0]

	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      b.surfaceFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: b.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})
	b.configured = true
}

// release destroys GPU objects in reverse creation order and closes the window.
func (b *backend) release() error {
	for i, l := range b.layers {
		l.release()
		delete(b.layers, i)
	}
	if b.pipeline != nil {
		b.pipeline.release()
		b.pipeline = nil
	}
	if b.surface != nil {
		b.surface.Release()
		b.surface = nil
	}
	if b.queue != nil {
		b.queue.Release()
		b.queue = nil
	}
	if b.device != nil {
		b.device.Release()
		b.device = nil
	}
	if b.adapter != nil {
		b.adapter.Release()
		b.adapter = nil
	}
	if b.instance != nil {
		b.instance.Release()
		b.instance = nil
	}
	if b.win != nil {
		err := b.win.Close()
		b.win = nil
		return err
	}
	return nil
}

// do runs fn on the backend thread and waits for its result.
func (b *backend) do(fn func() error) error {
	errc := make(chan error, 1)
	select {
	case b.calls <- func() { errc <- fn() }:
	case <-b.done:
		return ErrBackendClosed
	}
	return <-errc
}

func (b *backend) layer(index int) *layerResources {
	l, ok := b.layers[index]
	if !ok {
		l = &layerResources{}
		b.layers[index] = l
	}
	return l
}

func (b *backend) UploadVolume(data layer.VolumeData, bytesPerVoxel int, reallocate bool) error {
	format, err := volumeTextureFormat(bytesPerVoxel)
	if err != nil {
		return err
	}
	need := data.Dimensions.Voxels() * uint64(bytesPerVoxel)
	if uint64(len(data.Buffer)) < need {
		return fmt.Errorf("%w: layer %d has %d bytes, needs %d", volume.ErrBufferTooSmall, data.Layer, len(data.Buffer), need)
	}
	if need == 0 {
		return nil
	}

	return b.do(func() error {
		l := b.layer(data.Layer)
		extent := wgpu.Extent3D{
			Width:              uint32(data.Dimensions[0]),
			Height:             uint32(data.Dimensions[1]),
			DepthOrArrayLayers: uint32(data.Dimensions[2]),
		}

		if l.volume == nil || reallocate || l.dims != data.Dimensions || l.format != format {
			l.releaseVolume()
			tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
				Label:         fmt.Sprintf("Layer %d Volume", data.Layer),
				Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
				Dimension:     wgpu.TextureDimension3D,
				Size:          extent,
				Format:        format,
				MipLevelCount: 1,
				SampleCount:   1,
			})
			if err != nil {
				return err
			}
			view, err := tex.CreateView(nil)
			if err != nil {
				tex.Release()
				return err
			}
			l.volume, l.volumeView = tex, view
			l.dims, l.format = data.Dimensions, format
		}

		b.queue.WriteTexture(
			&wgpu.ImageCopyTexture{
				Texture:  l.volume,
				MipLevel: 0,
				Origin:   wgpu.Origin3D{},
				Aspect:   wgpu.TextureAspectAll,
			},
			data.Buffer[:need],
			&wgpu.TextureDataLayout{
				Offset:       0,
				BytesPerRow:  uint32(data.Dimensions[0]) * uint32(bytesPerVoxel),
				RowsPerImage: uint32(data.Dimensions[1]),
			},
			&extent,
		)
		return nil
	})
}

func (b *backend) UpdateParameters(states []layer.Snapshot, viewProjection mgl32.Mat4) error {
	return b.do(func() error {
		var errs []error
		for _, s := range states {
			l := b.layer(s.Index)
			if err := b.writeUniform(l, s, viewProjection); err != nil {
				errs = append(errs, fmt.Errorf("layer %d uniform: %w", s.Index, err))
			}
			if err := b.writeTransferFunction(l, s); err != nil {
				errs = append(errs, fmt.Errorf("layer %d transfer function: %w", s.Index, err))
			}
		}
		return errors.Join(errs...)
	})
}

func (b *backend) writeUniform(l *layerResources, s layer.Snapshot, viewProjection mgl32.Mat4) error {
	if l.uniform == nil {
		buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label:            fmt.Sprintf("Layer %d Uniform", s.Index),
			Size:             GPULayerUniformSize,
			Usage:            wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
			MappedAtCreation: false,
		})
		if err != nil {
			return err
		}
		l.uniform = buf
	}
	l.visible = s.Visible && s.HasData
	u := NewGPULayerUniform(s, viewProjection)
	b.queue.WriteBuffer(l.uniform, 0, u.Marshal())
	return nil
}

func (b *backend) writeTransferFunction(l *layerResources, s layer.Snapshot) error {
	if l.transfer != nil && l.tf.Equal(s.TransferFunction) {
		return nil
	}
	extent := wgpu.Extent3D{Width: TransferTableSize, Height: 1, DepthOrArrayLayers: 1}
	if l.transfer == nil {
		tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
			Label:         fmt.Sprintf("Layer %d Transfer Function", s.Index),
			Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
			Dimension:     wgpu.TextureDimension2D,
			Size:          extent,
			Format:        wgpu.TextureFormatRGBA8Unorm,
			MipLevelCount: 1,
			SampleCount:   1,
		})
		if err != nil {
			return err
		}
		view, err := tex.CreateView(nil)
		if err != nil {
			tex.Release()
			return err
		}
		l.transfer, l.transferView = tex, view
		l.invalidate()
	}

	b.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture: l.transfer,
			Aspect:  wgpu.TextureAspectAll,
		},
		s.TransferFunction.Table(TransferTableSize),
		&wgpu.TextureDataLayout{
			BytesPerRow:  TransferTableSize * 4,
			RowsPerImage: 1,
		},
		&extent,
	)
	l.tf = s.TransferFunction
	return nil
}

func (b *backend) DrawFrame() error {
	return b.do(func() error {
		if !b.win.PollEvents() || !b.win.IsVisible() || !b.configured {
			return nil
		}

		surfaceTexture, err := b.surface.GetCurrentTexture()
		if err != nil {
			return err
		}
		defer surfaceTexture.Release()

		view, err := surfaceTexture.CreateView(nil)
		if err != nil {
			return err
		}
		defer view.Release()

		encoder, err := b.device.CreateCommandEncoder(nil)
		if err != nil {
			return err
		}
		defer encoder.Release()

		pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
			ColorAttachments: []wgpu.RenderPassColorAttachment{
				{
					View:       view,
					LoadOp:     wgpu.LoadOpClear,
					StoreOp:    wgpu.StoreOpStore,
					ClearValue: b.clearColor,
				},
			},
		})
		for _, index := range b.drawOrder() {
			l := b.layers[index]
			if l.bindGroup == nil {
				bg, err := b.pipeline.bindGroup(b.device, index, l)
				if err != nil {
					logger.Warningf("layer %d bind group: %v", index, err)
					continue
				}
				l.bindGroup = bg
			}
			pass.SetPipeline(b.pipeline.pipeline)
			pass.SetBindGroup(0, l.bindGroup, nil)
			pass.Draw(3, 1, 0, 0)
		}
		pass.End()
		pass.Release()

		commandBuffer, err := encoder.Finish(nil)
		if err != nil {
			return err
		}
		defer commandBuffer.Release()

		b.queue.Submit(commandBuffer)
		b.surface.Present()
		return nil
	})
}

// drawOrder returns the visible layers that have every resource, in ascending index order.
func (b *backend) drawOrder() []int {
	order := make([]int, 0, len(b.layers))
	for index, l := range b.layers {
		if l.visible && l.ready() {
			order = append(order, index)
		}
	}
	slices.Sort(order)
	return order
}

func (b *backend) SetVisible(visible bool) {
	_ = b.do(func() error {
		b.win.SetVisible(visible)
		return nil
	})
}

func (b *backend) IsShowing() bool {
	var showing bool
	err := b.do(func() error {
		showing = b.win.IsRunning() && b.win.IsVisible()
		return nil
	})
	return err == nil && showing
}

func (b *backend) RunOnWindow(fn func(w window.Window)) error {
	return b.do(func() error {
		fn(b.win)
		return nil
	})
}

func (b *backend) SetResizeCallback(callback func(width, height int)) error {
	return b.do(func() error {
		b.onResize = callback
		return nil
	})
}

func (b *backend) Close() error {
	b.closeOnce.Do(func() {
		close(b.quit)
	})
	<-b.done
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closeErr
}
