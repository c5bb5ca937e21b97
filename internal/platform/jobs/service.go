package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"hrdesk/internal/platform/metrics"
)

const (
	JobAbsenceSweep   = "attendance.absence_sweep"
	JobSessionCleanup = "auth.session_cleanup"

	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

var ErrUnknownJob = errors.New("unknown job type")

// Runner executes one job for one tenant and returns details recorded on the run.
type Runner func(ctx context.Context, tenantID string) (any, error)

type job struct {
	Type     string
	TenantID string
}

// task is fire-and-forget work handed off by request handlers. Tasks are not
// recorded in job_runs.
type task struct {
	name string
	fn   func(ctx context.Context) error
}

type Service struct {
	Store   RunStore
	Metrics *metrics.Collector

	cron    *cron.Cron
	mu      sync.RWMutex
	runners map[string]Runner
	queue   chan job
	tasks   chan task
}

func New(store RunStore, loc *time.Location, collector *metrics.Collector) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		Store:   store,
		Metrics: collector,
		cron:    cron.New(cron.WithLocation(loc)),
		runners: map[string]Runner{},
		queue:   make(chan job, 128),
		tasks:   make(chan task, 512),
	}
}

func (s *Service) Register(jobType string, run Runner) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runners[jobType] = run
}

func (s *Service) Types() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.runners))
	for name := range s.runners {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Schedule enqueues jobType for every tenant each time spec fires.
func (s *Service) Schedule(spec, jobType string) error {
	if _, ok := s.runner(jobType); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, jobType)
	}
	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		tenants, err := s.Store.ListTenants(ctx)
		if err != nil {
			slog.Warn("scheduler tenant lookup failed", "jobType", jobType, "err", err)
			return
		}
		for _, tenantID := range tenants {
			s.Enqueue(jobType, tenantID)
		}
	})
	return err
}

// Start runs the job and task workers and the cron scheduler until ctx ends.
// Without Schedule calls the scheduler never fires.
func (s *Service) Start(ctx context.Context) {
	go s.worker(ctx)
	go s.taskWorker(ctx)
	s.cron.Start()
}

// Stop halts the scheduler and waits for running cron callbacks.
func (s *Service) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Service) Enqueue(jobType, tenantID string) {
	select {
	case s.queue <- job{Type: jobType, TenantID: tenantID}:
	default:
		slog.Warn("job queue full", "jobType", jobType, "tenantId", tenantID)
	}
}

// Submit queues fn for the task worker. It reports false when the queue is
// full and the task was dropped.
func (s *Service) Submit(name string, fn func(ctx context.Context) error) bool {
	select {
	case s.tasks <- task{name: name, fn: fn}:
		return true
	default:
		s.Metrics.Inc("tasks.dropped")
		slog.Warn("task queue full", "task", name)
		return false
	}
}

func (s *Service) RunNow(ctx context.Context, jobType, tenantID string) (any, error) {
	if _, ok := s.runner(jobType); !ok {
		return nil, ErrUnknownJob
	}
	return s.runJob(ctx, job{Type: jobType, TenantID: tenantID})
}

func (s *Service) ListRuns(ctx context.Context, tenantID, jobType string, limit, offset int) ([]Run, int, error) {
	return s.Store.ListRuns(ctx, tenantID, jobType, limit, offset)
}

func (s *Service) runner(jobType string) (Runner, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runners[jobType]
	return run, ok
}

func (s *Service) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-s.queue:
			if _, err := s.runJob(ctx, j); err != nil {
				slog.Warn("job run failed", "jobType", j.Type, "tenantId", j.TenantID, "err", err)
			}
		}
	}
}

func (s *Service) taskWorker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-s.tasks:
			if err := t.fn(ctx); err != nil {
				s.Metrics.Inc("tasks.failed")
				slog.Warn("task failed", "task", t.name, "err", err)
			}
		}
	}
}

func (s *Service) runJob(ctx context.Context, j job) (any, error) {
	run, ok := s.runner(j.Type)
	if !ok {
		return nil, ErrUnknownJob
	}

	runID, err := s.Store.BeginRun(ctx, j.TenantID, j.Type)
	if err != nil {
		slog.Warn("job run insert failed", "jobType", j.Type, "err", err)
	}

	details, runErr := run(ctx, j.TenantID)
	status := StatusCompleted
	if runErr != nil {
		status = StatusFailed
		details = map[string]any{"error": runErr.Error(), "partial": details}
	}
	s.Metrics.Inc("jobs." + status)

	if runID != "" {
		detailsJSON, marshalErr := json.Marshal(details)
		if marshalErr != nil {
			slog.Warn("job details marshal failed", "err", marshalErr)
			detailsJSON = []byte("{}")
		}
		if err := s.Store.FinishRun(ctx, runID, status, detailsJSON); err != nil {
			slog.Warn("job run update failed", "runId", runID, "err", err)
		}
	}
	return details, runErr
}
