package memory

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSignalBusPublishSubscribe(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := NewSignalBus(testLogger())
	a, _ := bus.Subscribe(ctx, "ch:markets")
	b, _ := bus.Subscribe(ctx, "ch:markets")
	other, _ := bus.Subscribe(ctx, "ch:trending")

	if err := bus.Publish(ctx, "ch:markets", []byte("snap")); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	for name, ch := range map[string]<-chan []byte{"a": a, "b": b} {
		select {
		case msg := <-ch:
			if string(msg) != "snap" {
				t.Errorf("subscriber %s got %q", name, msg)
			}
		case <-time.After(time.Second):
			t.Errorf("subscriber %s received nothing", name)
		}
	}

	select {
	case msg := <-other:
		t.Errorf("unrelated channel received %q", msg)
	default:
	}
}

func TestSignalBusUnsubscribeOnCancel(t *testing.T) {
	bus := NewSignalBus(testLogger())
	ctx, cancel := context.WithCancel(context.Background())

	ch, _ := bus.Subscribe(ctx, "ch:markets")
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancel")
	}

	// Publishing after the subscriber left must not panic or block.
	if err := bus.Publish(context.Background(), "ch:markets", []byte("late")); err != nil {
		t.Errorf("Publish failed: %v", err)
	}
}

func TestSignalBusDropsWhenFull(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := NewSignalBus(testLogger())
	ch, _ := bus.Subscribe(ctx, "ch:markets")

	for i := 0; i < subscriberBuffer+5; i++ {
		bus.Publish(ctx, "ch:markets", []byte{byte(i)})
	}
	if got := len(ch); got != subscriberBuffer {
		t.Errorf("expected %d buffered messages, got %d", subscriberBuffer, got)
	}
}
