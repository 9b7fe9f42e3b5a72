// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package parallel provides the pausable worker pool that runs tile
// rendering jobs.
//
// Jobs are served in submission order by a fixed set of goroutines. The pool
// can be paused, which halts intake of queued jobs without interrupting jobs
// that are already running, and queued jobs can be dropped wholesale.
package parallel

import (
	"runtime"
	"sync"
)

// Job is a unit of work submitted to a WorkerPool.
type Job struct {
	// Run executes the job on a worker goroutine.
	Run func()

	// Drop, if non-nil, is called instead of Run when the job is discarded
	// before a worker picked it up.
	Drop func()
}

// WorkerPool is a pool of goroutines serving a shared FIFO queue.
//
// Thread safety: WorkerPool is safe for concurrent use.
type WorkerPool struct {
	workers int

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []Job
	paused bool
	closed bool
	active int

	wg sync.WaitGroup
}

// NewWorkerPool creates a new worker pool with the specified number of workers.
// If workers is 0 or negative, GOMAXPROCS is used.
// The pool starts immediately and workers begin waiting for work.
func NewWorkerPool(workers int) *WorkerPool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	p := &WorkerPool{workers: workers}
	p.cond = sync.NewCond(&p.mu)

	p.wg.Add(workers)
	for range workers {
		go p.worker()
	}
	return p
}

// worker is the main loop for each worker goroutine.
func (p *WorkerPool) worker() {
	defer p.wg.Done()

	for {
		p.mu.Lock()
		for !p.closed && (p.paused || len(p.queue) == 0) {
			p.cond.Wait()
		}
		if p.closed {
			p.mu.Unlock()
			return
		}
		job := p.queue[0]
		p.queue[0] = Job{}
		p.queue = p.queue[1:]
		p.active++
		p.mu.Unlock()

		if job.Run != nil {
			job.Run()
		}

		p.mu.Lock()
		p.active--
		p.cond.Broadcast()
		p.mu.Unlock()
	}
}

// Submit appends a job to the queue. Returns false if the pool is closed,
// in which case the job's Drop is called.
func (p *WorkerPool) Submit(job Job) bool {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		if job.Drop != nil {
			job.Drop()
		}
		return false
	}
	p.queue = append(p.queue, job)
	p.cond.Broadcast()
	p.mu.Unlock()
	return true
}

// SetPaused halts or resumes intake. Jobs already running are not affected.
func (p *WorkerPool) SetPaused(paused bool) {
	p.mu.Lock()
	p.paused = paused
	p.cond.Broadcast()
	p.mu.Unlock()
}

// Paused reports whether intake is halted.
func (p *WorkerPool) Paused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

// DropQueued discards every job not yet picked up by a worker and returns
// how many were dropped. It never waits for running jobs.
func (p *WorkerPool) DropQueued() int {
	p.mu.Lock()
	dropped := p.queue
	p.queue = nil
	p.cond.Broadcast()
	p.mu.Unlock()

	for _, job := range dropped {
		if job.Drop != nil {
			job.Drop()
		}
	}
	return len(dropped)
}

// Wait blocks until the queue is empty and no job is running.
// Waiting on a paused pool with queued jobs blocks until it is resumed.
func (p *WorkerPool) Wait() {
	p.mu.Lock()
	for len(p.queue) > 0 || p.active > 0 {
		p.cond.Wait()
	}
	p.mu.Unlock()
}

// Close drops queued jobs, waits for running jobs, and stops all workers.
// Close is safe to call multiple times.
func (p *WorkerPool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	p.DropQueued()
	p.wg.Wait()
}

// Workers returns the number of workers in the pool.
func (p *WorkerPool) Workers() int {
	return p.workers
}

// IsRunning returns true if the pool is still accepting work.
func (p *WorkerPool) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.closed
}

// QueuedWork returns the number of jobs waiting for a worker.
func (p *WorkerPool) QueuedWork() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// ActiveWork returns the number of jobs currently running.
func (p *WorkerPool) ActiveWork() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}
