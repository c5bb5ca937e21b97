package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"hrdesk/internal/platform/metrics"
)

type fakeRunStore struct {
	mu       sync.Mutex
	tenants  []string
	began    []string
	finished map[string]string
}

func (f *fakeRunStore) ListTenants(context.Context) ([]string, error) {
	return f.tenants, nil
}

func (f *fakeRunStore) BeginRun(_ context.Context, tenantID, jobType string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.began = append(f.began, tenantID+":"+jobType)
	return "run-" + tenantID, nil
}

func (f *fakeRunStore) FinishRun(_ context.Context, runID, status string, _ []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.finished == nil {
		f.finished = map[string]string{}
	}
	f.finished[runID] = status
	return nil
}

func (f *fakeRunStore) ListRuns(context.Context, string, string, int, int) ([]Run, int, error) {
	return nil, 0, nil
}

func TestRunNowRecordsOutcome(t *testing.T) {
	store := &fakeRunStore{}
	collector := metrics.New()
	svc := New(store, time.UTC, collector)
	svc.Register("ok", func(ctx context.Context, tenantID string) (any, error) {
		return map[string]int{"marked": 3}, nil
	})
	svc.Register("boom", func(ctx context.Context, tenantID string) (any, error) {
		return nil, errors.New("boom")
	})

	if _, err := svc.RunNow(context.Background(), "ok", "t1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.RunNow(context.Background(), "boom", "t2"); err == nil {
		t.Fatal("expected failure")
	}

	if store.finished["run-t1"] != StatusCompleted {
		t.Fatalf("expected completed, got %q", store.finished["run-t1"])
	}
	if store.finished["run-t2"] != StatusFailed {
		t.Fatalf("expected failed, got %q", store.finished["run-t2"])
	}
	events := collector.Snapshot()["events"].(map[string]uint64)
	if events["jobs.completed"] != 1 || events["jobs.failed"] != 1 {
		t.Fatalf("unexpected job counters: %v", events)
	}
}

func TestRunNowUnknownJob(t *testing.T) {
	svc := New(&fakeRunStore{}, nil, nil)
	if _, err := svc.RunNow(context.Background(), "missing", "t1"); !errors.Is(err, ErrUnknownJob) {
		t.Fatalf("expected ErrUnknownJob, got %v", err)
	}
}

func TestScheduleRejectsUnregisteredJob(t *testing.T) {
	svc := New(&fakeRunStore{}, nil, nil)
	if err := svc.Schedule("@hourly", "missing"); !errors.Is(err, ErrUnknownJob) {
		t.Fatalf("expected ErrUnknownJob, got %v", err)
	}
}

func TestScheduleRejectsBadSpec(t *testing.T) {
	svc := New(&fakeRunStore{}, nil, nil)
	svc.Register("ok", func(context.Context, string) (any, error) { return nil, nil })
	if err := svc.Schedule("not a spec", "ok"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestWorkerDrainsQueue(t *testing.T) {
	store := &fakeRunStore{}
	svc := New(store, nil, nil)
	done := make(chan string, 1)
	svc.Register("ok", func(ctx context.Context, tenantID string) (any, error) {
		done <- tenantID
		return nil, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)
	defer svc.Stop()

	svc.Enqueue("ok", "tenant-9")
	select {
	case got := <-done:
		if got != "tenant-9" {
			t.Fatalf("unexpected tenant %s", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("job was not executed")
	}
}

func TestTypesSorted(t *testing.T) {
	svc := New(&fakeRunStore{}, nil, nil)
	svc.Register("b", func(context.Context, string) (any, error) { return nil, nil })
	svc.Register("a", func(context.Context, string) (any, error) { return nil, nil })
	types := svc.Types()
	if len(types) != 2 || types[0] != "a" || types[1] != "b" {
		t.Fatalf("unexpected types %v", types)
	}
}

func TestSubmitRunsTaskOffCaller(t *testing.T) {
	collector := metrics.New()
	svc := New(&fakeRunStore{}, nil, collector)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)
	defer svc.Stop()

	done := make(chan struct{})
	if !svc.Submit("mail", func(context.Context) error {
		close(done)
		return errors.New("smtp refused")
	}) {
		t.Fatal("expected task to be queued")
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task was not executed")
	}
}

func TestSubmitDropsWhenQueueFull(t *testing.T) {
	collector := metrics.New()
	svc := New(&fakeRunStore{}, nil, collector)
	for i := 0; i < cap(svc.tasks); i++ {
		if !svc.Submit("fill", func(context.Context) error { return nil }) {
			t.Fatalf("queue full after %d tasks", i)
		}
	}
	if svc.Submit("overflow", func(context.Context) error { return nil }) {
		t.Fatal("expected overflow to be dropped")
	}
	events := collector.Snapshot()["events"].(map[string]uint64)
	if events["tasks.dropped"] != 1 {
		t.Fatalf("unexpected counters %v", events)
	}
}
