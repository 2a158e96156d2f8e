package web

import (
	"context"
	"testing"
	"time"
)

func recv(t *testing.T, c *Client) ([]byte, bool) {
	t.Helper()
	select {
	case msg, ok := <-c.send:
		return msg, ok
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for message")
		return nil, false
	}
}

func waitClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for h.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("clients = %d, want %d", h.ClientCount(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHub_BroadcastAndReplay(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := NewHub("test", discardLogger)
	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()

	a := &Client{hub: h, send: make(chan []byte, sendBuffer)}
	if !h.add(a) {
		t.Fatalf("register failed")
	}
	if err := h.BroadcastJSON(map[string]int{"n": 1}); err != nil {
		t.Fatalf("broadcast: %v", err)
	}
	if msg, _ := recv(t, a); string(msg) != `{"n":1}` {
		t.Fatalf("got %s", msg)
	}

	// late joiners get the last message
	b := &Client{hub: h, send: make(chan []byte, sendBuffer)}
	h.add(b)
	if msg, _ := recv(t, b); string(msg) != `{"n":1}` {
		t.Fatalf("replay got %s", msg)
	}

	h.remove(a)
	waitClients(t, h, 1)
	if _, ok := recv(t, a); ok {
		t.Fatalf("removed client channel should be closed")
	}

	cancel()
	<-done
	if _, ok := recv(t, b); ok {
		t.Fatalf("stop should close client channels")
	}
	if h.add(&Client{hub: h, send: make(chan []byte, 1)}) {
		t.Fatalf("register after stop must fail")
	}
}

func TestHub_DropsSlowClient(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := NewHub("test", discardLogger)
	go h.Run(ctx)

	slow := &Client{hub: h, send: make(chan []byte)}
	h.add(slow)
	waitClients(t, h, 1)
	h.Broadcast([]byte("x"))
	waitClients(t, h, 0)
}
