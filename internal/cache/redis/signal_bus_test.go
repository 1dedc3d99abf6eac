package redis

import (
	"context"
	"testing"
	"time"
)

func receive(t *testing.T, ch <-chan []byte) []byte {
	t.Helper()
	select {
	case msg, ok := <-ch:
		if !ok {
			t.Fatal("subscription closed early")
		}
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a message")
	}
	return nil
}

func TestSignalBusDelivers(t *testing.T) {
	c, _ := newTestClient(t)
	bus := NewSignalBus(c)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub, err := bus.Subscribe(ctx, "ch:markets")
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	if err := bus.Publish(ctx, "ch:markets", []byte(`{"count":2}`)); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if got := string(receive(t, sub)); got != `{"count":2}` {
		t.Errorf("unexpected payload %s", got)
	}

	cancel()
	select {
	case _, ok := <-sub:
		if ok {
			t.Error("expected no further messages after cancel")
		}
	case <-time.After(2 * time.Second):
		t.Error("subscription channel not closed after cancel")
	}
}

func TestSignalBusPatternSubscribe(t *testing.T) {
	c, _ := newTestClient(t)
	bus := NewSignalBus(c)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub, err := bus.Subscribe(ctx, "ch:*")
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	if err := bus.Publish(ctx, "ch:trending", []byte("t")); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if got := string(receive(t, sub)); got != "t" {
		t.Errorf("unexpected payload %s", got)
	}
}
