// Package workerpool runs bounded batches of store writes, such as bulk
// imports, on a fixed set of goroutines.
package workerpool

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Task is one unit of work
type Task struct {
	ID string
	Fn func(context.Context) error
}

// ResultFunc observes every finished task
type ResultFunc func(task Task, err error, took time.Duration)

// Config holds worker pool configuration
type Config struct {
	Name       string
	MaxWorkers int
	QueueSize  int
	Logger     *zap.Logger
	OnResult   ResultFunc
}

type queued struct {
	task Task
	ctx  context.Context
}

// WorkerPool executes submitted tasks on MaxWorkers goroutines
type WorkerPool struct {
	name     string
	workers  int
	queue    chan queued
	logger   *zap.Logger
	onResult ResultFunc

	wg       sync.WaitGroup
	inflight sync.WaitGroup
	stopOnce sync.Once
	stopChan chan struct{}

	// held for reading while submitting so Stop never races an enqueue
	mu      sync.RWMutex
	stopped bool

	active    int32
	submitted uint64
	completed uint64
	failed    uint64
	rejected  uint64
}

// NewWorkerPool creates and starts a pool
func NewWorkerPool(cfg Config) *WorkerPool {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = cfg.MaxWorkers * 8
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	p := &WorkerPool{
		name:     cfg.Name,
		workers:  cfg.MaxWorkers,
		queue:    make(chan queued, cfg.QueueSize),
		logger:   cfg.Logger,
		onResult: cfg.OnResult,
		stopChan: make(chan struct{}),
	}

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}

	p.logger.Debug("Worker pool started",
		zap.String("name", p.name),
		zap.Int("max_workers", p.workers),
		zap.Int("queue_size", cfg.QueueSize))

	return p
}

func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopChan:
			// drain what was accepted before Stop
			for {
				select {
				case q := <-p.queue:
					p.execute(id, q)
				default:
					return
				}
			}
		case q := <-p.queue:
			p.execute(id, q)
		}
	}
}

func (p *WorkerPool) execute(workerID int, q queued) {
	defer p.inflight.Done()
	atomic.AddInt32(&p.active, 1)
	defer atomic.AddInt32(&p.active, -1)

	start := time.Now()
	err := p.safeExecute(q)
	took := time.Since(start)

	if err != nil {
		atomic.AddUint64(&p.failed, 1)
		p.logger.Debug("Task failed",
			zap.String("pool", p.name),
			zap.Int("worker_id", workerID),
			zap.String("task_id", q.task.ID),
			zap.Duration("duration", took),
			zap.Error(err))
	} else {
		atomic.AddUint64(&p.completed, 1)
	}

	if p.onResult != nil {
		p.onResult(q.task, err, took)
	}
}

func (p *WorkerPool) safeExecute(q queued) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
			p.logger.Error("Task panic recovered",
				zap.String("pool", p.name),
				zap.String("task_id", q.task.ID),
				zap.Any("panic", r))
		}
	}()

	if err := q.ctx.Err(); err != nil {
		return err
	}
	return q.task.Fn(q.ctx)
}

// Submit blocks until the task is queued, ctx is done or the pool stops
func (p *WorkerPool) Submit(ctx context.Context, task Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.stopped {
		atomic.AddUint64(&p.rejected, 1)
		return fmt.Errorf("worker pool '%s' is stopped", p.name)
	}

	p.inflight.Add(1)
	select {
	case <-ctx.Done():
		p.inflight.Done()
		atomic.AddUint64(&p.rejected, 1)
		return ctx.Err()
	case p.queue <- queued{task: task, ctx: ctx}:
		atomic.AddUint64(&p.submitted, 1)
		return nil
	}
}

// Wait blocks until every accepted task has finished
func (p *WorkerPool) Wait() {
	p.inflight.Wait()
}

// Stop stops accepting tasks, finishes the queued ones and waits for the
// workers to exit, at most timeout
func (p *WorkerPool) Stop(timeout time.Duration) error {
	var err error
	p.stopOnce.Do(func() {
		p.mu.Lock()
		p.stopped = true
		close(p.stopChan)
		p.mu.Unlock()

		done := make(chan struct{})
		go func() {
			p.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
			p.logger.Debug("Worker pool stopped", zap.String("name", p.name))
		case <-time.After(timeout):
			err = fmt.Errorf("worker pool '%s' stop timeout after %v", p.name, timeout)
			p.logger.Warn("Worker pool stop timeout", zap.String("name", p.name))
		}
	})
	return err
}

// Stats is a snapshot of pool counters
type Stats struct {
	Name          string
	MaxWorkers    int
	ActiveWorkers int
	QueuedTasks   int
	Submitted     uint64
	Completed     uint64
	Failed        uint64
	Rejected      uint64
}

// Stats returns current pool counters
func (p *WorkerPool) Stats() Stats {
	return Stats{
		Name:          p.name,
		MaxWorkers:    p.workers,
		ActiveWorkers: int(atomic.LoadInt32(&p.active)),
		QueuedTasks:   len(p.queue),
		Submitted:     atomic.LoadUint64(&p.submitted),
		Completed:     atomic.LoadUint64(&p.completed),
		Failed:        atomic.LoadUint64(&p.failed),
		Rejected:      atomic.LoadUint64(&p.rejected),
	}
}

// SuccessRate returns completed tasks as a percentage of finished ones
func (s Stats) SuccessRate() float64 {
	finished := s.Completed + s.Failed
	if finished == 0 {
		return 100.0
	}
	return float64(s.Completed) / float64(finished) * 100.0
}
