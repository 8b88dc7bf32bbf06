// Package parallel runs compute grids on a fixed set of goroutines.
package parallel

import (
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
)

// ErrPoolClosed is returned when work is submitted to a closed pool.
var ErrPoolClosed = errors.New("parallel: pool closed")

// WorkerPool is a pool of goroutines that executes batches of work items.
//
// Each worker owns a queue. Items are spread round-robin over the queues and
// an idle worker steals from the other queues, which keeps workgroups of
// uneven cost (dense edge regions next to flat sky) balanced.
//
// Thread safety: WorkerPool is safe for concurrent use. Batches submitted
// from different goroutines interleave but each Run waits only for its own
// items.
type WorkerPool struct {
	workers    int
	workQueues []chan func()
	done       chan struct{}
	wg         sync.WaitGroup
	running    atomic.Bool
}

// NewWorkerPool starts a pool with the given number of workers.
// If workers is 0 or negative, GOMAXPROCS is used.
func NewWorkerPool(workers int) *WorkerPool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	queueSize := max(workers*4, 8)

	p := &WorkerPool{
		workers:    workers,
		workQueues: make([]chan func(), workers),
		done:       make(chan struct{}),
	}
	for i := range workers {
		p.workQueues[i] = make(chan func(), queueSize)
	}
	p.running.Store(true)

	p.wg.Add(workers)
	for i := range workers {
		go p.worker(i)
	}
	return p
}

func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()
	own := p.workQueues[id]
	for {
		select {
		case <-p.done:
			p.drain(own)
			return
		case work := <-own:
			work()
			continue
		default:
		}

		if stolen := p.steal(id); stolen != nil {
			stolen()
			continue
		}
		select {
		case <-p.done:
			p.drain(own)
			return
		case work := <-own:
			work()
		}
	}
}

func (p *WorkerPool) drain(queue chan func()) {
	for {
		select {
		case work := <-queue:
			work()
		default:
			return
		}
	}
}

func (p *WorkerPool) steal(id int) func() {
	for i := range p.workers {
		if i == id {
			continue
		}
		select {
		case work := <-p.workQueues[i]:
			return work
		default:
		}
	}
	return nil
}

// Run executes every item and waits for all of them. Items may run in any
// order and concurrently.
func (p *WorkerPool) Run(work []func()) error {
	if !p.running.Load() {
		return ErrPoolClosed
	}
	if len(work) == 0 {
		return nil
	}

	var batch sync.WaitGroup
	batch.Add(len(work))
	for i, fn := range work {
		item := func() {
			defer batch.Done()
			fn()
		}
		select {
		case p.workQueues[i%p.workers] <- item:
		case <-p.done:
			// Workers are draining; run the rest here.
			item()
		}
	}
	batch.Wait()
	return nil
}

// Range splits [0, n) into contiguous chunks and calls fn(lo, hi) for each
// chunk on the pool. It returns when every chunk has finished.
func (p *WorkerPool) Range(n int, fn func(lo, hi int)) error {
	if n <= 0 {
		return nil
	}
	chunks := min(n, p.workers*4)
	size := (n + chunks - 1) / chunks
	work := make([]func(), 0, chunks)
	for lo := 0; lo < n; lo += size {
		hi := min(lo+size, n)
		work = append(work, func() { fn(lo, hi) })
	}
	return p.Run(work)
}

// Close stops the workers after the queued work finished. It is safe to call
// more than once.
func (p *WorkerPool) Close() {
	if !p.running.CompareAndSwap(true, false) {
		return
	}
	close(p.done)
	p.wg.Wait()
}

// Workers returns the number of workers.
func (p *WorkerPool) Workers() int { return p.workers }

// IsRunning reports whether the pool accepts work.
func (p *WorkerPool) IsRunning() bool { return p.running.Load() }
