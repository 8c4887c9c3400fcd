// Package bridge provides the concurrent runtime of the swap daemon: a
// fixed pool of workers draining a task queue, plus a single timer loop
// owning all time-based transitions.
package bridge

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	// DefaultNumWorkers is the size of the worker pool when unset.
	DefaultNumWorkers = 2
	// DefaultTimerInterval is the period of the timer loop when unset.
	DefaultTimerInterval = 20 * time.Second

	taskQueueMaxSize = 100
)

// ErrBridgeStopped is returned by Dispatch once the runtime began
// shutting down.
var ErrBridgeStopped = errors.New("bridge runtime stopped")

// Task is a unit of work executed by one of the pool workers.
type Task func(ctx context.Context) error

// Service runs tasks on a bounded worker pool and fires a periodic tick.
type Service interface {
	// Start spawns the workers and the timer loop. It blocks until Stop
	// is called or the context is cancelled, and returns the first worker
	// error observed during shutdown, if any.
	Start(ctx context.Context) error
	// Stop initiates shutdown: queued tasks are drained, no new ones are
	// accepted.
	Stop()
	// Dispatch enqueues a task for the pool, blocking while the queue is
	// full. After Stop it rejects the task with ErrBridgeStopped.
	Dispatch(task Task) error
}

// Opts defines the parameters needed for creating a bridge runtime with
// the NewService method.
type Opts struct {
	// NumWorkers is the worker pool size. Zero means DefaultNumWorkers.
	NumWorkers int
	// TimerInterval is the tick period. Zero means DefaultTimerInterval.
	TimerInterval time.Duration
	// OnTick runs on every timer expiry, always from the timer goroutine,
	// never concurrently with itself.
	OnTick func(ctx context.Context)
	// ErrorHandler receives errors returned by tasks. Optional.
	ErrorHandler func(err error)
}

type bridgeService struct {
	numWorkers    int
	timerInterval time.Duration
	onTick        func(ctx context.Context)
	errorHandler  func(err error)

	taskChan chan Task
	quitChan chan struct{}
	stopOnce *sync.Once
}

// NewService returns a bridge runtime ready to be started.
func NewService(opts Opts) Service {
	numWorkers := opts.NumWorkers
	if numWorkers <= 0 {
		numWorkers = DefaultNumWorkers
	}
	timerInterval := opts.TimerInterval
	if timerInterval <= 0 {
		timerInterval = DefaultTimerInterval
	}

	return &bridgeService{
		numWorkers:    numWorkers,
		timerInterval: timerInterval,
		onTick:        opts.OnTick,
		errorHandler:  opts.ErrorHandler,
		taskChan:      make(chan Task, taskQueueMaxSize),
		quitChan:      make(chan struct{}),
		stopOnce:      &sync.Once{},
	}
}

func (b *bridgeService) Start(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	for i := 0; i < b.numWorkers; i++ {
		g.Go(func() error {
			return b.worker(gctx)
		})
	}
	g.Go(func() error {
		return b.timerLoop(gctx)
	})

	select {
	case <-b.quitChan:
	case <-ctx.Done():
		b.Stop()
	}
	return g.Wait()
}

func (b *bridgeService) Stop() {
	b.stopOnce.Do(func() {
		close(b.quitChan)
	})
}

func (b *bridgeService) Dispatch(task Task) error {
	select {
	case <-b.quitChan:
		return ErrBridgeStopped
	default:
	}

	select {
	case b.taskChan <- task:
		return nil
	case <-b.quitChan:
		return ErrBridgeStopped
	}
}

func (b *bridgeService) worker(ctx context.Context) error {
	for {
		select {
		case task := <-b.taskChan:
			b.runTask(ctx, task)
		case <-b.quitChan:
			// drain what was enqueued before the stop
			for {
				select {
				case task := <-b.taskChan:
					b.runTask(ctx, task)
				default:
					return nil
				}
			}
		}
	}
}

func (b *bridgeService) runTask(ctx context.Context, task Task) {
	if task == nil {
		return
	}
	if err := task(ctx); err != nil && b.errorHandler != nil {
		b.errorHandler(err)
	}
}

func (b *bridgeService) timerLoop(ctx context.Context) error {
	ticker := time.NewTicker(b.timerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if b.onTick != nil {
				b.onTick(ctx)
			}
		case <-b.quitChan:
			return nil
		case <-ctx.Done():
			return nil
		}
	}
}
