// Package pool provides a bounded, self-scaling worker pool with a FIFO
// task queue and per-task futures.
package pool

import (
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// ErrClosed is returned by tasks submitted after Close.
var ErrClosed = errors.New("pool: closed")

// queuedTask is one deferred unit of work plus the bookkeeping used for
// queue-wait diagnostics.
type queuedTask struct {
	run        func()
	number     uint32
	enqueuedAt time.Time
}

// Pool executes submitted tasks on a bounded set of worker goroutines.
// Workers are pre-spawned at construction and grown lazily up to the
// configured maximum; the count never shrinks.
//
// With maxWorkers == 0 (or when the CPU count cannot be determined) the
// pool runs in degenerate mode: every task executes synchronously on the
// caller and ThreadCount stays 0.
type Pool struct {
	mu       sync.Mutex
	cond     *sync.Cond
	queue    []queuedTask
	idle     int
	spawned  int
	shutdown bool

	maxWorkers int
	preSpawn   int

	totalTasks atomic.Uint32
	wg         sync.WaitGroup
	log        *zap.Logger
}

// New creates a pool running at most maxWorkers workers, clamped to the
// number of CPUs. Half of the maximum (at least one) is spawned
// immediately so short workloads never pay spawn latency.
func New(maxWorkers int, log *zap.Logger) *Pool {
	if log == nil {
		log = zap.NewNop()
	}

	p := &Pool{log: log}
	p.cond = sync.NewCond(&p.mu)

	hw := runtime.NumCPU()
	if maxWorkers <= 0 || hw <= 0 {
		// Degenerate mode, run everything on the caller.
		return p
	}

	if maxWorkers > hw {
		maxWorkers = hw
	}
	p.maxWorkers = maxWorkers
	p.preSpawn = max(1, maxWorkers/2)
	if p.preSpawn > maxWorkers {
		p.preSpawn = maxWorkers
	}

	p.mu.Lock()
	for i := 0; i < p.preSpawn; i++ {
		p.spawnLocked()
	}
	p.mu.Unlock()

	return p
}

// ThreadCount reports how many workers have ever been spawned.
func (p *Pool) ThreadCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.spawned
}

// Close stops the pool. Queued tasks are drained before the workers exit;
// Close blocks until every worker has returned.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.shutdown {
		p.mu.Unlock()
		return
	}
	p.shutdown = true
	p.mu.Unlock()

	p.cond.Broadcast()
	p.wg.Wait()

	p.log.Info("pool closed",
		zap.Uint32("tasks_processed", p.totalTasks.Load()))
}

// enqueue pushes run onto the queue and wakes one worker. In degenerate
// mode run executes inline instead.
func (p *Pool) enqueue(run func()) error {
	p.mu.Lock()
	if p.shutdown {
		p.mu.Unlock()
		p.log.Warn("prevented enqueue on closed pool")
		return ErrClosed
	}

	if p.maxWorkers == 0 {
		p.mu.Unlock()
		run()
		return nil
	}

	number := p.totalTasks.Add(1)
	p.queue = append(p.queue, queuedTask{
		run:        run,
		number:     number,
		enqueuedAt: time.Now(),
	})

	// If every worker is busy and we are still under the cap, grow by one.
	if p.idle == 0 && p.spawned < p.maxWorkers {
		p.spawnLocked()
	}
	p.mu.Unlock()

	p.cond.Signal()
	return nil
}

// spawnLocked starts one worker. Caller holds p.mu.
func (p *Pool) spawnLocked() {
	id := p.spawned
	p.spawned++
	p.wg.Add(1)
	go p.worker(id)
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for {
		p.mu.Lock()
		p.idle++
		for !p.shutdown && len(p.queue) == 0 {
			p.cond.Wait()
		}
		// Drop out of the idle count before inspecting the queue so the
		// growth check in enqueue sees an accurate number.
		p.idle--

		if p.shutdown && len(p.queue) == 0 {
			p.mu.Unlock()
			return
		}

		qt := p.queue[0]
		p.queue = p.queue[1:]
		p.mu.Unlock()

		p.observe(qt, id)
		qt.run()
	}
}

// observe logs how long the task sat in the queue and why. Diagnostics
// only, never affects scheduling.
func (p *Pool) observe(qt queuedTask, workerID int) {
	wait := time.Since(qt.enqueuedAt)
	n := int(qt.number)

	switch {
	case n > p.preSpawn && n <= p.maxWorkers:
		p.log.Info("task waited before starting on new worker",
			zap.Uint32("task", qt.number),
			zap.Duration("wait", wait),
			zap.Int("worker", workerID))
	case n > p.maxWorkers:
		p.log.Info("task waited in queue before starting",
			zap.Uint32("task", qt.number),
			zap.Duration("wait", wait),
			zap.Int("worker", workerID))
	default:
		p.log.Debug("task assigned to already running worker",
			zap.Uint32("task", qt.number),
			zap.Int("worker", workerID))
	}
}
