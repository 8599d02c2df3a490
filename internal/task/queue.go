// Package task runs trading loops as queued jobs and exposes the
// orchestrator's start/stop/status operations.
package task

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// ErrUnknownJob means Enqueue was asked for a job name nobody registered.
var ErrUnknownJob = errors.New("unknown job")

// JobStatus is the queue's view of a dispatched job.
type JobStatus string

const (
	StatusPending JobStatus = "pending"
	StatusRunning JobStatus = "running"
	StatusSuccess JobStatus = "success"
	StatusFailure JobStatus = "failure"
	StatusRevoked JobStatus = "revoked"
	StatusUnknown JobStatus = "unknown"
)

// JobFunc is a job body. The context is cancelled when the job is revoked,
// which is the cooperative abort signal the loop checks every iteration.
type JobFunc func(ctx context.Context, args map[string]string) error

// Queue dispatches named jobs. The engine only needs enqueue, status, and
// best-effort revoke.
type Queue interface {
	Enqueue(job string, args map[string]string) (string, error)
	Status(id string) JobStatus
	Revoke(id string, force bool) error
}

// InProcessQueue runs each job on its own goroutine. It stands in for an
// external queue runtime while keeping the same contract.
type InProcessQueue struct {
	mu   sync.Mutex
	jobs map[string]JobFunc
	runs map[string]*jobRun
	wg   sync.WaitGroup
}

var _ Queue = (*InProcessQueue)(nil)

type jobRun struct {
	cancel  context.CancelFunc
	status  JobStatus
	revoked bool
}

func NewInProcessQueue() *InProcessQueue {
	return &InProcessQueue{
		jobs: make(map[string]JobFunc),
		runs: make(map[string]*jobRun),
	}
}

// Register makes a job name dispatchable. Call before any Enqueue.
func (q *InProcessQueue) Register(name string, fn JobFunc) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs[name] = fn
}

func (q *InProcessQueue) Enqueue(job string, args map[string]string) (string, error) {
	q.mu.Lock()
	fn, ok := q.jobs[job]
	if !ok {
		q.mu.Unlock()
		return "", fmt.Errorf("%w: %s", ErrUnknownJob, job)
	}

	id := uuid.NewString()
	ctx, cancel := context.WithCancel(context.Background())
	run := &jobRun{cancel: cancel, status: StatusPending}
	q.runs[id] = run
	q.wg.Add(1)
	q.mu.Unlock()

	go func() {
		defer q.wg.Done()
		q.setStatus(id, StatusRunning)
		err := fn(ctx, args)
		q.finish(id, err)
	}()
	return id, nil
}

func (q *InProcessQueue) Status(id string) JobStatus {
	q.mu.Lock()
	defer q.mu.Unlock()
	run, ok := q.runs[id]
	if !ok {
		return StatusUnknown
	}
	return run.status
}

// Revoke cancels the job's context. force has no extra power in-process;
// the job still exits through its own cooperative checks.
func (q *InProcessQueue) Revoke(id string, _ bool) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	run, ok := q.runs[id]
	if !ok {
		return fmt.Errorf("%w: job %s", ErrUnknownJob, id)
	}
	run.revoked = true
	if run.status == StatusPending || run.status == StatusRunning {
		run.status = StatusRevoked
	}
	run.cancel()
	return nil
}

// Wait blocks until every dispatched job has returned.
func (q *InProcessQueue) Wait() {
	q.wg.Wait()
}

func (q *InProcessQueue) setStatus(id string, status JobStatus) {
	q.mu.Lock()
	defer q.mu.Unlock()
	run := q.runs[id]
	if run == nil || run.revoked {
		return
	}
	run.status = status
}

func (q *InProcessQueue) finish(id string, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	run := q.runs[id]
	if run == nil || run.revoked {
		return
	}
	if err != nil {
		run.status = StatusFailure
		return
	}
	run.status = StatusSuccess
}
