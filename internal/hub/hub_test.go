package hub

import (
	"context"
	"testing"
	"time"

	"github.com/DoyleJ11/selection-protocol/internal/session"
	"go.uber.org/zap/zaptest"
)

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return NewHub(ctx, nil, zaptest.NewLogger(t))
}

func TestHub_Create_Get_SamePointer(t *testing.T) {
	h := newTestHub(t)
	reply := make(chan *session.Session, 1)

	h.Inbox() <- CreateSession{Channel: "main", Reply: reply}
	s1 := <-reply

	h.Inbox() <- GetSession{Channel: "main", Reply: reply}
	s2 := <-reply

	if s1 == nil || s2 == nil || s1 != s2 {
		t.Fatalf("expected same session pointer")
	}
	if s1.Channel() != "main" {
		t.Fatalf("want channel main, got %q", s1.Channel())
	}
}

func TestHub_GetUnknownIsNil(t *testing.T) {
	h := newTestHub(t)

	s, err := h.Get(context.Background(), "nope")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if s != nil {
		t.Fatalf("expected nil session for unknown channel")
	}
}

func TestHub_EnsureCreatesOnce(t *testing.T) {
	h := newTestHub(t)
	ctx := context.Background()

	a, err := h.Ensure(ctx, "alpha")
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	b, _ := h.Ensure(ctx, "alpha")
	if a != b {
		t.Fatalf("ensure should return the existing session")
	}
	h.Ensure(ctx, "beta")

	reply := make(chan []string, 1)
	h.Inbox() <- ListChannels{Reply: reply}
	got := <-reply
	if len(got) != 2 || got[0] != "alpha" || got[1] != "beta" {
		t.Fatalf("unexpected channels: %v", got)
	}
}

func TestHub_RemoveStopsSession(t *testing.T) {
	h := newTestHub(t)
	s, _ := h.Ensure(context.Background(), "main")

	h.Inbox() <- RemoveSession{Channel: "main"}
	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatalf("session still running after remove")
	}

	again, _ := h.Get(context.Background(), "main")
	if again != nil {
		t.Fatalf("removed channel should be gone")
	}
}

func TestHub_ShutdownStopsEverything(t *testing.T) {
	h := newTestHub(t)
	s, _ := h.Ensure(context.Background(), "main")

	h.Inbox() <- ShutdownHub{}
	select {
	case <-h.Done():
	case <-time.After(time.Second):
		t.Fatalf("hub did not stop")
	}
	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatalf("session did not stop")
	}

	if _, err := h.Ensure(context.Background(), "main"); err != ErrHubClosed {
		t.Fatalf("want ErrHubClosed, got %v", err)
	}
}
