package audit

import (
	"testing"
	"time"
)

func TestBuildWhere(t *testing.T) {
	from := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	where, args := buildWhere("t1", Filter{Action: "expense.approve", ActorID: "u1", From: &from})

	want := "WHERE tenant_id = $1 AND action = $2 AND actor_user_id::text = $3 AND created_at >= $4"
	if where != want {
		t.Fatalf("unexpected where:\n got %s\nwant %s", where, want)
	}
	if len(args) != 4 || args[0] != "t1" || args[1] != "expense.approve" || args[2] != "u1" {
		t.Fatalf("unexpected args %v", args)
	}
}

func TestMarshalOptional(t *testing.T) {
	raw, err := marshalOptional(nil)
	if err != nil || raw != nil {
		t.Fatalf("expected nil for nil input, got %s %v", raw, err)
	}
	raw, err = marshalOptional(map[string]string{"status": "approved"})
	if err != nil || string(raw) != `{"status":"approved"}` {
		t.Fatalf("unexpected json %s %v", raw, err)
	}
}
