package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"spendwise/internal/log"
)

// Scheduler runs a job on a cron schedule. Runs never overlap.
type Scheduler struct {
	spec       string
	job        func(ctx context.Context)
	runOnStart bool
	logger     *log.Logger

	busy    sync.Mutex
	started sync.WaitGroup
	mu      sync.Mutex
	running bool
	cron    *cron.Cron
	cancel  context.CancelFunc
}

// NewScheduler validates spec, a standard five-field cron expression.
func NewScheduler(spec string, runOnStart bool, job func(ctx context.Context), logger *log.Logger) (*Scheduler, error) {
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", spec, err)
	}
	return &Scheduler{
		spec:       spec,
		job:        job,
		runOnStart: runOnStart,
		logger:     logger.WithComponent(log.ComponentSchedule),
	}, nil
}

// Start registers the job and returns immediately. Jobs receive a context
// derived from ctx that is cancelled by Stop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler is already running")
	}

	jobCtx, cancel := context.WithCancel(ctx)
	run := func() {
		if !s.busy.TryLock() {
			s.logger.WarnContext(jobCtx, "Previous run still in progress, skipping")
			return
		}
		defer s.busy.Unlock()
		s.job(jobCtx)
	}
	c := cron.New()
	if _, err := c.AddFunc(s.spec, run); err != nil {
		cancel()
		return fmt.Errorf("schedule job: %w", err)
	}

	s.cron = c
	s.cancel = cancel
	s.running = true
	c.Start()

	s.logger.InfoContext(ctx, "Scheduler started", "schedule", s.spec, "run_on_start", s.runOnStart)
	if s.runOnStart {
		s.started.Add(1)
		go func() {
			defer s.started.Done()
			run()
		}()
	}
	return nil
}

// Stop cancels the running job and waits for cron and the run-on-start job
// to drain, or for ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	c, cancel := s.cron, s.cancel
	s.running = false
	s.cron = nil
	s.cancel = nil
	s.mu.Unlock()

	cancel()
	stopped := c.Stop()
	drained := make(chan struct{})
	go func() {
		<-stopped.Done()
		s.started.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		s.logger.InfoContext(ctx, "Scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.WarnContext(ctx, "Scheduler stop timeout")
		return fmt.Errorf("stop timeout: %w", ctx.Err())
	}
}

// IsRunning reports whether the scheduler is currently started.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Next returns the next activation after t.
func (s *Scheduler) Next(t time.Time) time.Time {
	sched, _ := cron.ParseStandard(s.spec)
	return sched.Next(t)
}
