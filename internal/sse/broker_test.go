package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients")
	}
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}
	b.Unsubscribe(ch)
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after unsub")
	}
}

func TestPublishChangeDelivery(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishChange("character.collected", 7)

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.Contains(s, "event: character.collected") {
			t.Errorf("missing event type in %q", s)
		}
		if !strings.Contains(s, `"id":7`) {
			t.Errorf("missing data in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestPublishSearchState_Throttle(t *testing.T) {
	b := NewBroker(500 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// Two rapid state flips; only the first should go out in the window.
	b.PublishSearchState("loading")
	b.PublishSearchState("success")

	// Mutation events are never throttled.
	b.PublishChange("note.added", 1)
	b.PublishChange("note.removed", 1)

	time.Sleep(50 * time.Millisecond)
	searchCount := 0
	changeCount := 0
loop:
	for {
		select {
		case msg := <-ch:
			s := string(msg)
			if strings.Contains(s, "search.updated") {
				searchCount++
			} else {
				changeCount++
			}
		default:
			break loop
		}
	}

	if searchCount != 1 {
		t.Errorf("search events = %d, want 1 (throttled)", searchCount)
	}
	if changeCount != 2 {
		t.Errorf("change events = %d, want 2", changeCount)
	}
}

func TestConnectivityEvent(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: "connectivity.changed", Data: map[string]string{"status": "unavailable"}})

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.Contains(s, "event: connectivity.changed") {
			t.Errorf("missing event type in %q", s)
		}
		if !strings.Contains(s, `"status":"unavailable"`) {
			t.Errorf("missing status in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req = req.WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	// Give handler time to subscribe.
	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client from handler")
	}

	b.PublishChange("character.removed", 3)
	time.Sleep(50 * time.Millisecond)

	cancel()
	<-done

	body := w.Body.String()
	if !strings.Contains(body, "event: character.removed") {
		t.Errorf("handler output missing event: %q", body)
	}

	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 0 {
		t.Errorf("client not cleaned up after disconnect")
	}
}

func TestPublishAfterCloseIsNoop(t *testing.T) {
	b := NewBroker(time.Second)
	b.Close()
	b.Publish(Event{Type: "x", Data: map[string]string{}})
	b.PublishChange("note.added", 1)
	if b.ClientCount() != 0 {
		t.Error("expected 0 clients after close")
	}
}
