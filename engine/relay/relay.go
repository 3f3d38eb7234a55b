package relay

import (
	"context"
	"errors"
	"sync"

	"github.com/Carmen-Shannon/oxy-volume/engine/volume"
	"github.com/Carmen-Shannon/oxy-volume/log"
)

var logger = log.New("relay")

// Stage consumes volume frames. A stage owns a frame from the moment Consume is called until it
// either forwards it downstream or releases it; it never touches the frame afterwards.
type Stage interface {
	// Consume processes a frame and forwards or releases it.
	//
	// Parameters:
	//   - ctx: bounds any blocking work
	//   - frame: the frame, owned by the stage for the duration of the call
	//
	// Returns:
	//   - error: the processing error, if any. The frame has still been forwarded or released.
	Consume(ctx context.Context, frame *volume.Frame) error
}

// PoolProvider is implemented by stages that can hand producers a pool of frames compatible
// with what they consume.
type PoolProvider interface {
	// Pool returns the pool producers should request frames from, or nil if none is available.
	//
	// Returns:
	//   - volume.Pool: the pool
	Pool() volume.Pool
}

// Linker is implemented by stages that have a downstream stage.
type Linker interface {
	Stage
	SetNext(next Stage)
	Next() Stage
}

// Adapter is embedded by stages to hold their downstream stage. The zero value forwards to Null.
type Adapter struct {
	mu   sync.RWMutex
	next Stage
}

// Next returns the downstream stage, Null if none was set.
func (a *Adapter) Next() Stage {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.next == nil {
		return Null
	}
	return a.next
}

// SetNext sets the downstream stage. nil resets it to Null.
func (a *Adapter) SetNext(next Stage) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.next = next
}

// Forward hands frame to the downstream stage, which then owns it.
//
// Parameters:
//   - ctx: passed downstream
//   - frame: the frame to forward
//
// Returns:
//   - error: the downstream error
func (a *Adapter) Forward(ctx context.Context, frame *volume.Frame) error {
	return a.Next().Consume(ctx, frame)
}

// DownstreamPool returns the pool of the first downstream stage that provides one, skipping
// the Null tail.
func (a *Adapter) DownstreamPool() volume.Pool {
	next := a.Next()
	if next == Null {
		return nil
	}
	if p, ok := next.(PoolProvider); ok {
		return p.Pool()
	}
	return nil
}

type nullStage struct{}

// Null is the tail of every pipeline: it releases frames back to their pool.
var Null Stage = nullStage{}

func (nullStage) Consume(_ context.Context, frame *volume.Frame) error {
	if frame == nil {
		return nil
	}
	err := frame.Release()
	if errors.Is(err, volume.ErrAlreadyReleased) {
		logger.Warningf("frame of channel %d reached the pipeline tail already released", frame.ChannelID)
		return nil
	}
	return err
}

// Func adapts a function into a stage that runs fn and then forwards the frame.
type Func struct {
	Adapter
	fn func(ctx context.Context, frame *volume.Frame) error
}

var _ Linker = &Func{}

// NewFunc creates a stage that calls fn for every frame, then forwards the frame even if fn failed.
//
// Parameters:
//   - fn: the function to run, must not keep the frame
//
// Returns:
//   - *Func: the stage
func NewFunc(fn func(ctx context.Context, frame *volume.Frame) error) *Func {
	return &Func{fn: fn}
}

func (f *Func) Consume(ctx context.Context, frame *volume.Frame) error {
	err := f.fn(ctx, frame)
	return errors.Join(err, f.Forward(ctx, frame))
}

// Pool returns the downstream pool.
func (f *Func) Pool() volume.Pool {
	return f.DownstreamPool()
}

// Chain links stages in order and returns the head. The last stage forwards to Null.
// Every stage but the last must implement Linker.
//
// Parameters:
//   - stages: the stages in processing order
//
// Returns:
//   - Stage: the head of the chain, Null if no stages were given
func Chain(stages ...Stage) Stage {
	if len(stages) == 0 {
		return Null
	}
	for i := 0; i < len(stages)-1; i++ {
		l, ok := stages[i].(Linker)
		if !ok {
			panic("relay: stage cannot forward to a next stage")
		}
		l.SetNext(stages[i+1])
	}
	if l, ok := stages[len(stages)-1].(Linker); ok {
		l.SetNext(Null)
	}
	return stages[0]
}
