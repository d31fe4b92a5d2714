package websocket

import (
	"io"
	"log/slog"
	"sync"
	"testing"
)

func newQuietHub(buffer int) *Hub {
	return NewHub(buffer, NewMetrics(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestHub_PublishReachesEverySubscriber(t *testing.T) {
	hub := newQuietHub(4)
	a := hub.Subscribe()
	b := hub.Subscribe()

	env := &Envelope{Type: TypeUserJoined, RoomID: "r1"}
	res := hub.Publish(env)
	if res.Delivered != 2 || res.Dropped != 0 {
		t.Fatalf("Publish() = %+v, want 2 delivered", res)
	}

	for name, sub := range map[string]*Subscription{"a": a, "b": b} {
		select {
		case got := <-sub.C():
			if got != env {
				t.Errorf("%s received %+v", name, got)
			}
		default:
			t.Errorf("%s received nothing", name)
		}
	}
}

func TestHub_SubscribeSeesOnlyLaterEnvelopes(t *testing.T) {
	hub := newQuietHub(4)
	hub.Publish(&Envelope{Type: TypeUserJoined, RoomID: "r1"})

	sub := hub.Subscribe()
	select {
	case env := <-sub.C():
		t.Fatalf("late subscriber received %+v", env)
	default:
	}
}

func TestHub_FullSubscriberDropsNewest(t *testing.T) {
	hub := newQuietHub(2)
	slow := hub.Subscribe()
	fast := hub.Subscribe()

	first := &Envelope{Type: TypeChat, RoomID: "r1", Content: "1"}
	hub.Publish(first)
	<-fast.C()
	hub.Publish(&Envelope{Type: TypeChat, RoomID: "r1", Content: "2"})
	<-fast.C()

	res := hub.Publish(&Envelope{Type: TypeChat, RoomID: "r1", Content: "3"})
	if res.Delivered != 1 || res.Dropped != 1 {
		t.Fatalf("Publish() = %+v, want 1 delivered 1 dropped", res)
	}
	if slow.Dropped() != 1 || fast.Dropped() != 0 {
		t.Errorf("dropped slow=%d fast=%d", slow.Dropped(), fast.Dropped())
	}
	if got := <-slow.C(); got != first {
		t.Errorf("slow subscriber head = %+v, want the oldest envelope kept", got)
	}
	if n := hub.Metrics().DroppedOnFull.Load(); n != 1 {
		t.Errorf("DroppedOnFull = %d, want 1", n)
	}
}

func TestHub_UnsubscribeAndClose(t *testing.T) {
	hub := newQuietHub(1)
	a := hub.Subscribe()
	b := hub.Subscribe()

	hub.Unsubscribe(a)
	hub.Unsubscribe(a)
	if _, ok := <-a.C(); ok {
		t.Error("unsubscribed channel is still open")
	}
	if n := hub.SubscriberCount(); n != 1 {
		t.Errorf("SubscriberCount() = %d, want 1", n)
	}

	hub.Close()
	hub.Close()
	if _, ok := <-b.C(); ok {
		t.Error("channel still open after Close")
	}
	hub.Unsubscribe(b)

	late := hub.Subscribe()
	if _, ok := <-late.C(); ok {
		t.Error("subscription on closed hub is open")
	}
	if res := hub.Publish(&Envelope{Type: TypeChat}); res.Delivered != 0 {
		t.Errorf("Publish() on closed hub delivered %d", res.Delivered)
	}
}

func TestHub_ConcurrentPublishers(t *testing.T) {
	const publishers, each = 8, 50
	hub := newQuietHub(publishers * each)
	sub := hub.Subscribe()

	var wg sync.WaitGroup
	for i := 0; i < publishers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < each; j++ {
				hub.Publish(&Envelope{Type: TypeTyping, RoomID: "r1"})
			}
		}()
	}
	wg.Wait()

	if n := len(sub.C()); n != publishers*each {
		t.Errorf("buffered %d envelopes, want %d", n, publishers*each)
	}
	if n := hub.Metrics().Published.Load(); n != publishers*each {
		t.Errorf("Published = %d, want %d", n, publishers*each)
	}
}
