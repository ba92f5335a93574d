package gateway

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// DefaultWorkers is the default number of concurrent outbound calls.
const DefaultWorkers = 10

// ErrPoolClosed is returned by Do once Close has been called.
var ErrPoolClosed = errors.New("worker pool is closed")

const (
	taskQueued int32 = iota
	taskRunning
	taskAbandoned
)

type task struct {
	ctx   context.Context
	fn    func(context.Context)
	state atomic.Int32
	done  chan struct{}
}

// Pool runs blocking work on a fixed set of workers started at
// construction. Callers wait for their own task only; excess tasks queue
// until a worker frees up.
type Pool struct {
	size    int
	tasks   chan *task
	group   *errgroup.Group
	quit    chan struct{}
	closing sync.Once

	queued   atomic.Int64
	inFlight atomic.Int64
}

// NewPool starts size workers. A non-positive size uses DefaultWorkers.
func NewPool(size int) *Pool {
	if size <= 0 {
		size = DefaultWorkers
	}

	p := &Pool{
		size:  size,
		tasks: make(chan *task),
		group: &errgroup.Group{},
		quit:  make(chan struct{}),
	}
	for i := 0; i < size; i++ {
		p.group.Go(p.work)
	}
	return p
}

func (p *Pool) work() error {
	for {
		select {
		case <-p.quit:
			return nil
		case t := <-p.tasks:
			p.queued.Add(-1)
			if !t.state.CompareAndSwap(taskQueued, taskRunning) {
				close(t.done)
				continue
			}
			p.inFlight.Add(1)
			t.fn(t.ctx)
			p.inFlight.Add(-1)
			close(t.done)
		}
	}
}

// Do runs fn on a worker and waits for it. If ctx ends while the task is
// still queued the task is dropped and ctx.Err() returned. Once a worker
// has started fn, Do waits for it to return; fn receives ctx and is
// expected to honor its cancellation.
func (p *Pool) Do(ctx context.Context, fn func(context.Context)) error {
	if ctx == nil {
		ctx = context.Background()
	}

	t := &task{ctx: ctx, fn: fn, done: make(chan struct{})}

	p.queued.Add(1)
	select {
	case p.tasks <- t:
	case <-ctx.Done():
		p.queued.Add(-1)
		return ctx.Err()
	case <-p.quit:
		p.queued.Add(-1)
		return ErrPoolClosed
	}

	select {
	case <-t.done:
		return nil
	case <-ctx.Done():
		if t.state.CompareAndSwap(taskQueued, taskAbandoned) {
			return ctx.Err()
		}
		<-t.done
		return nil
	}
}

// Size returns the fixed worker count.
func (p *Pool) Size() int {
	return p.size
}

// Queued returns the number of callers waiting for a worker.
func (p *Pool) Queued() int64 {
	return p.queued.Load()
}

// InFlight returns the number of tasks currently executing.
func (p *Pool) InFlight() int64 {
	return p.inFlight.Load()
}

// Running reports whether the pool still accepts work.
func (p *Pool) Running() bool {
	select {
	case <-p.quit:
		return false
	default:
		return true
	}
}

// Close stops the workers after their current task and waits for them.
func (p *Pool) Close() error {
	p.closing.Do(func() { close(p.quit) })
	return p.group.Wait()
}
