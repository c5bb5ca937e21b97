package metrics

import (
	"testing"
	"time"
)

func TestCollectorSnapshot(t *testing.T) {
	c := New()
	c.Record(200, 10*time.Millisecond)
	c.Record(404, 20*time.Millisecond)
	c.Record(429, 0)
	c.Record(500, 30*time.Millisecond)
	c.Inc("jobs.completed")
	c.Inc("jobs.completed")

	snap := c.Snapshot()
	if snap["requestsTotal"].(uint64) != 4 {
		t.Fatalf("expected 4 requests, got %v", snap["requestsTotal"])
	}
	if snap["clientErrorsTotal"].(uint64) != 2 {
		t.Fatalf("expected 2 client errors, got %v", snap["clientErrorsTotal"])
	}
	if snap["serverErrorsTotal"].(uint64) != 1 {
		t.Fatalf("expected 1 server error, got %v", snap["serverErrorsTotal"])
	}
	if snap["avgDurationMs"].(float64) != 15 {
		t.Fatalf("expected avg 15ms, got %v", snap["avgDurationMs"])
	}
	events := snap["events"].(map[string]uint64)
	if events["jobs.completed"] != 2 {
		t.Fatalf("expected 2 completed jobs, got %d", events["jobs.completed"])
	}
}

func TestNilCollectorIsSafe(t *testing.T) {
	var c *Collector
	c.Record(200, time.Millisecond)
	c.Inc("anything")
}
