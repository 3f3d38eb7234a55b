package processor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-volume/engine/profiler"
	"github.com/Carmen-Shannon/oxy-volume/engine/relay"
	"github.com/Carmen-Shannon/oxy-volume/engine/volume"
	"github.com/Carmen-Shannon/oxy-volume/log"
)

var logger = log.New("processor")

// Stage is a relay stage that runs every processor on each frame in parallel on a worker pool,
// waits for all of them, reports results to listeners and then forwards the frame.
type Stage struct {
	relay.Adapter

	mu         *sync.Mutex
	processors []Processor
	listeners  []Listener

	pool      worker.DynamicWorkerPool
	workers   int
	queueSize int
	taskID    atomic.Int64
	closeOnce sync.Once

	metrics *profiler.Metrics
}

var (
	_ relay.Linker       = &Stage{}
	_ relay.PoolProvider = &Stage{}
)

// NewStage creates a processor stage and starts its worker pool.
//
// Parameters:
//   - processors: the processors to run on every frame
//   - options: variadic list of StageBuilderOption functions
//
// Returns:
//   - *Stage: the stage, forwarding to relay.Null until SetNext is called
func NewStage(processors []Processor, options ...StageBuilderOption) *Stage {
	s := &Stage{
		mu:         &sync.Mutex{},
		processors: processors,
		workers:    max(len(processors), 1),
		queueSize:  64,
	}
	for _, opt := range options {
		opt(s)
	}
	s.pool = worker.NewDynamicWorkerPool(s.workers, s.queueSize, time.Second)
	return s
}

// AddListener registers a function receiving every successful processor result.
//
// Parameters:
//   - l: the listener, called from worker goroutines
func (s *Stage) AddListener(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

func (s *Stage) Consume(ctx context.Context, frame *volume.Frame) error {
	s.mu.Lock()
	processors := s.processors
	listeners := s.listeners
	s.mu.Unlock()

	errs := make([]error, len(processors))
	var wg sync.WaitGroup
	for i, p := range processors {
		wg.Add(1)
		s.pool.SubmitTask(worker.Task{
			ID:      int(s.taskID.Add(1)),
			Payload: p.Name(),
			Do: func() (result any, err error) {
				defer wg.Done()
				defer func() {
					if rec := recover(); rec != nil {
						err = fmt.Errorf("processor %s panicked: %v", p.Name(), rec)
						logger.Errorf("%v", err)
						errs[i] = err
					}
				}()

				result, err = p.Process(ctx, frame.ChannelID, frame)
				s.metrics.ProcessorRan(p.Name(), err)
				if err != nil {
					errs[i] = fmt.Errorf("processor %s: %w", p.Name(), err)
					logger.Debugf("%v", errs[i])
					return nil, err
				}
				for _, l := range listeners {
					l(p.Name(), frame.ChannelID, result)
				}
				return result, nil
			},
		})
	}
	wg.Wait()

	return errors.Join(errors.Join(errs...), s.Forward(ctx, frame))
}

// Pool returns the downstream pool.
func (s *Stage) Pool() volume.Pool {
	return s.DownstreamPool()
}

// Close stops the worker pool. Consume must not be called afterwards.
func (s *Stage) Close() {
	s.closeOnce.Do(func() {
		s.pool.Stop()
	})
}
