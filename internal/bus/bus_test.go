package bus

import (
	"io"
	"log/slog"
	"testing"
	"time"
)

func newTestBus() *PubSubBus {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestPublishReachesSubscribersOfTopic(t *testing.T) {
	b := newTestBus()
	defer b.Close()

	sub := b.Subscribe("a", "b")
	other := b.Subscribe("c")

	b.Publish("a", 1)
	b.Publish("b", 2)

	for _, want := range []int{1, 2} {
		select {
		case got := <-sub:
			if got != want {
				t.Fatalf("expected %d, got %v", want, got)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for %d", want)
		}
	}

	select {
	case got := <-other:
		t.Fatalf("unexpected message on other topic: %v", got)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCloseIsIdempotentAndDropsLatePublishes(t *testing.T) {
	b := newTestBus()
	sub := b.Subscribe("a")
	b.Close()
	b.Close()

	b.Publish("a", 1)
	b.Unsubscribe(sub, "a")

	select {
	case _, ok := <-sub:
		if ok {
			t.Fatalf("expected subscription to be closed after shutdown")
		}
	case <-time.After(time.Second):
		t.Fatalf("subscription was not closed")
	}
}
