// File: internal/infra/worker/pool.go
package worker

import (
	"context"
	"errors"
	"runtime"
	"sync"

	"github.com/rs/zerolog"
)

// ErrQueueFull is returned by Submit when every queue slot is taken.
var ErrQueueFull = errors.New("worker queue full")

// A very small worker pool that runs fire-and-forget tasks such as audit writes.

type Task func(ctx context.Context) error

type Pool struct {
	wg   sync.WaitGroup
	jobs chan Task
	quit chan struct{}
	stop sync.Once
	n    int
	log  *zerolog.Logger
}

func NewPool(workers int, logger *zerolog.Logger) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Pool{
		jobs: make(chan Task, workers*64),
		quit: make(chan struct{}),
		n:    workers,
		log:  logger,
	}
}

func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.n; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case <-p.quit:
					p.drain(ctx, id)
					return
				case task := <-p.jobs:
					p.run(ctx, id, task)
				}
			}
		}(i)
	}
}

// drain runs whatever is still queued so accepted tasks are not lost on shutdown.
func (p *Pool) drain(ctx context.Context, id int) {
	for {
		select {
		case task := <-p.jobs:
			p.run(ctx, id, task)
		default:
			return
		}
	}
}

func (p *Pool) run(ctx context.Context, id int, task Task) {
	if task == nil {
		return
	}
	if err := task(ctx); err != nil {
		p.log.Warn().Err(err).Int("worker", id).Msg("worker task failed")
	}
}

// Stop signals workers to finish queued tasks and waits for them.
func (p *Pool) Stop() {
	p.stop.Do(func() { close(p.quit) })
	p.wg.Wait()
}

func (p *Pool) Submit(task Task) error {
	if task == nil {
		return errors.New("nil task")
	}
	select {
	case p.jobs <- task:
		return nil
	default:
		// drop when saturated; callers must not block on audit work
		return ErrQueueFull
	}
}
