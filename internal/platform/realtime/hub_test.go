package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestPublishReachesOnlyRecipient(t *testing.T) {
	hub := New(nil, nil)
	defer hub.Close()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = hub.Serve(w, r, "t1", r.URL.Query().Get("user"))
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	alice, _, err := websocket.DefaultDialer.Dial(wsURL+"?user=alice", nil)
	if err != nil {
		t.Fatalf("dial alice: %v", err)
	}
	defer alice.Close()
	bob, _, err := websocket.DefaultDialer.Dial(wsURL+"?user=bob", nil)
	if err != nil {
		t.Fatalf("dial bob: %v", err)
	}
	defer bob.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Sessions() < 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if hub.Sessions() != 2 {
		t.Fatalf("expected 2 sessions, got %d", hub.Sessions())
	}

	if err := hub.Publish(context.Background(), "t1", "alice", map[string]string{"title": "hello"}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	_ = alice.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := alice.ReadMessage()
	if err != nil {
		t.Fatalf("alice read: %v", err)
	}
	if !strings.Contains(string(msg), "hello") {
		t.Fatalf("unexpected payload %s", msg)
	}

	_ = bob.SetReadDeadline(time.Now().Add(150 * time.Millisecond))
	if _, _, err := bob.ReadMessage(); err == nil {
		t.Fatal("bob should not receive alice's notification")
	}
}

func TestRunWithoutRedisReturns(t *testing.T) {
	hub := New(nil, nil)
	defer hub.Close()
	done := make(chan struct{})
	go func() {
		hub.Run(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run should return immediately without redis")
	}
}
