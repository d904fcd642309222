package realtime

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	h := NewHub(nil)
	go h.Run(ctx)
	return h
}

func waitConnections(t *testing.T, h *Hub, user uuid.UUID, want int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for h.Connections(user) != want {
		if time.Now().After(deadline) {
			t.Fatalf("connections = %d, want %d", h.Connections(user), want)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestSendToUserReachesEveryConnection(t *testing.T) {
	h := startHub(t)
	user, other := uuid.New(), uuid.New()
	a, b, c := NewClient(user, nil), NewClient(user, nil), NewClient(other, nil)
	for _, cl := range []*Client{a, b, c} {
		if !h.RegisterClient(cl) {
			t.Fatal("register failed")
		}
	}
	waitConnections(t, h, user, 2)

	if n := h.SendToUser(user, map[string]string{"type": "ping"}); n != 2 {
		t.Fatalf("delivered = %d, want 2", n)
	}
	for _, cl := range []*Client{a, b} {
		var got map[string]string
		if err := json.Unmarshal(<-cl.Send, &got); err != nil || got["type"] != "ping" {
			t.Fatalf("payload = %v, %v", got, err)
		}
	}
	select {
	case <-c.Send:
		t.Fatal("other user received a message")
	default:
	}
}

func TestUnregisterClosesSend(t *testing.T) {
	h := startHub(t)
	user := uuid.New()
	cl := NewClient(user, nil)
	h.RegisterClient(cl)
	waitConnections(t, h, user, 1)

	h.UnregisterClient(cl)
	waitConnections(t, h, user, 0)
	if _, open := <-cl.Send; open {
		t.Fatal("send channel still open")
	}
}

func TestFullBufferDropsInsteadOfBlocking(t *testing.T) {
	h := startHub(t)
	user := uuid.New()
	cl := NewClient(user, nil)
	h.RegisterClient(cl)
	waitConnections(t, h, user, 1)

	for i := 0; i < sendBuffer; i++ {
		h.SendToUser(user, i)
	}
	if n := h.SendToUser(user, "overflow"); n != 0 {
		t.Fatalf("delivered = %d on a full buffer", n)
	}
}

func TestStoppedHubRejectsRegistration(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := NewHub(nil)
	stopped := make(chan struct{})
	go func() { h.Run(ctx); close(stopped) }()
	cancel()
	<-stopped

	if h.RegisterClient(NewClient(uuid.New(), nil)) {
		t.Fatal("register succeeded on a stopped hub")
	}
}
