// Package scheduler owns the job table and the bounded FIFO worker pool.
// All cross-goroutine access to job state goes through one mutex; a job's
// working data is only ever touched by the single worker executing it.
package scheduler

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/videorobot/api/internal/model"
)

// Runner executes one job. The production runner is the render pipeline;
// tests inject stubs.
type Runner interface {
	Run(ctx context.Context, job *model.Job, progress func(fraction float64, message string)) (*model.Report, error)
}

// Publisher moves a finished job's staged artifacts to their public
// location. Implemented by the report writer.
type Publisher interface {
	Publish(job *model.Job) error
}

// Notifier receives progress pushes. Implemented by the websocket hub;
// optional.
type Notifier interface {
	JobProgress(jobID string, state model.JobStatus, fraction float64, message string)
}

// Config bounds the pool.
type Config struct {
	Workers    int
	Depth      int // max queued+running jobs
	JobTimeout time.Duration
}

// Scheduler accepts validated jobs and runs them on W workers in strict
// submission order.
type Scheduler struct {
	cfg       Config
	runner    Runner
	publisher Publisher
	notifier  Notifier

	mu       sync.Mutex
	jobs     map[string]*model.Job
	inflight int

	queue chan string
	wg    sync.WaitGroup
}

func New(cfg Config, runner Runner, publisher Publisher, notifier Notifier) *Scheduler {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.Depth < 1 {
		cfg.Depth = 1
	}
	return &Scheduler{
		cfg:       cfg,
		runner:    runner,
		publisher: publisher,
		notifier:  notifier,
		jobs:      make(map[string]*model.Job),
		queue:     make(chan string, cfg.Depth),
	}
}

// Start launches the worker pool. Workers drain the queue until ctx is
// cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	for i := 0; i < s.cfg.Workers; i++ {
		s.wg.Add(1)
		go s.worker(ctx)
	}
}

// Wait blocks until every worker has exited.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// Submit registers a job and enqueues it, non-blocking. When queued plus
// running jobs already equal the configured depth it returns
// *model.CapacityError and the job table is left untouched.
func (s *Scheduler) Submit(job *model.Job) error {
	s.mu.Lock()
	if s.inflight >= s.cfg.Depth {
		s.mu.Unlock()
		return &model.CapacityError{Depth: s.cfg.Depth}
	}
	job.State = model.JobStatusQueued
	job.Fraction = 0
	job.Message = "queued"
	job.CreatedAt = time.Now()
	s.jobs[job.ID] = job
	s.inflight++
	s.mu.Unlock()

	// Buffered to depth, so this never blocks after the capacity check.
	s.queue <- job.ID
	return nil
}

// GetProgress returns a snapshot of the job's externally visible state.
func (s *Scheduler) GetProgress(jobID string) (model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return model.Job{}, &model.NotFoundError{JobID: jobID}
	}
	return *job, nil
}

// Snapshot lists every known job, for the health endpoint.
func (s *Scheduler) Snapshot() []model.Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		out = append(out, *job)
	}
	return out
}

func (s *Scheduler) worker(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case jobID, ok := <-s.queue:
			if !ok {
				return
			}
			s.runJob(ctx, jobID)
		}
	}
}

func (s *Scheduler) runJob(ctx context.Context, jobID string) {
	s.mu.Lock()
	job, ok := s.jobs[jobID]
	if !ok || job.State != model.JobStatusQueued {
		s.mu.Unlock()
		return
	}
	now := time.Now()
	job.State = model.JobStatusRunning
	job.StartedAt = &now
	job.Message = "starting"
	s.mu.Unlock()
	s.push(jobID, model.JobStatusRunning, 0, "starting")

	runCtx := ctx
	cancel := context.CancelFunc(func() {})
	if s.cfg.JobTimeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, s.cfg.JobTimeout)
	}
	defer cancel()

	report, err := s.runner.Run(runCtx, job, func(fraction float64, message string) {
		s.updateProgress(jobID, fraction, message)
	})

	if err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			err = &model.TimeoutError{Budget: s.cfg.JobTimeout}
		}
		s.finishFailed(job, err)
		return
	}

	s.mu.Lock()
	job.Report = report
	if s.publisher != nil {
		if perr := s.publisher.Publish(job); perr != nil {
			s.mu.Unlock()
			s.finishFailed(job, perr)
			return
		}
	}
	job.State = model.JobStatusSucceeded
	job.Fraction = 1.0
	job.Message = "completed"
	now = time.Now()
	job.CompletedAt = &now
	s.inflight--
	s.mu.Unlock()
	s.push(jobID, model.JobStatusSucceeded, 1.0, "completed")
}

func (s *Scheduler) finishFailed(job *model.Job, cause error) {
	msg := cause.Error()
	kind := model.ErrKind(cause)
	log.Printf("job %s failed (%s): %v", job.ID, kind, cause)

	s.mu.Lock()
	if job.Report == nil {
		job.Report = &model.Report{
			JobID:       job.ID,
			Fingerprint: job.Fingerprint,
			Error:       msg,
			Artifacts:   []string{"manifest_canonical.json", "inputs.sha256", "report.json"},
		}
	} else {
		job.Report.Error = msg
	}

	if s.publisher != nil {
		if perr := s.publisher.Publish(job); perr != nil {
			log.Printf("job %s: failed to publish failure report: %v", job.ID, perr)
		}
	}

	job.State = model.JobStatusFailed
	job.Error = &msg
	job.ErrorKind = kind
	job.Message = msg
	now := time.Now()
	job.CompletedAt = &now
	s.inflight--
	s.mu.Unlock()
	s.push(job.ID, model.JobStatusFailed, job.Fraction, msg)
}

// updateProgress raises a running job's fraction; it never lowers it and
// never touches terminal jobs.
func (s *Scheduler) updateProgress(jobID string, fraction float64, message string) {
	s.mu.Lock()
	job, ok := s.jobs[jobID]
	if !ok || job.State != model.JobStatusRunning {
		s.mu.Unlock()
		return
	}
	if fraction > job.Fraction {
		job.Fraction = fraction
	}
	job.Message = message
	fraction = job.Fraction
	s.mu.Unlock()
	s.push(jobID, model.JobStatusRunning, fraction, message)
}

func (s *Scheduler) push(jobID string, state model.JobStatus, fraction float64, message string) {
	if s.notifier != nil {
		s.notifier.JobProgress(jobID, state, fraction, message)
	}
}
