package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jponter/proxyforge/internal/models"
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

func TestPublishDelivery(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: "import.completed", Data: map[string]any{"order_id": 7}})

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.Contains(s, "event: import.completed") {
			t.Errorf("missing event type in %q", s)
		}
		if !strings.Contains(s, `"order_id":7`) {
			t.Errorf("missing data in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestPublishCardEvent_CatalogThrottle(t *testing.T) {
	b := NewBroker(500 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// First event should trigger catalog.updated.
	b.PublishCardEvent("resolved", CardEvent{CardID: "001", Status: "resolved"})
	// Second event immediately should NOT trigger another catalog.updated.
	b.PublishCardEvent("failed", CardEvent{CardID: "002", Status: "failed", Failure: "boom"})

	// Drain and count events.
	time.Sleep(50 * time.Millisecond)
	catalogCount := 0
	cardCount := 0
loop:
	for {
		select {
		case msg := <-ch:
			s := string(msg)
			if strings.Contains(s, "catalog.updated") {
				catalogCount++
			} else {
				cardCount++
			}
		default:
			break loop
		}
	}

	if cardCount != 2 {
		t.Errorf("card events = %d, want 2", cardCount)
	}
	if catalogCount != 1 {
		t.Errorf("catalog events = %d, want 1 (throttled)", catalogCount)
	}
}

func TestImportEventsAdapter(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	card := models.NewCard(models.CardSpec{ID: "001", Name: "A"}, true)
	card.MarkFailed("lookup down")
	ImportEvents{Broker: b}.CardFailed(card)

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.Contains(s, "event: card.failed") {
			t.Errorf("missing event type in %q", s)
		}
		if !strings.Contains(s, "lookup down") {
			t.Errorf("missing failure reason in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for adapter event")
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

	b.PublishCardEvent("resolved", CardEvent{CardID: "001", Status: "resolved"})
	time.Sleep(50 * time.Millisecond)

	cancel()
	<-done

	body := w.Body.String()
	if !strings.Contains(body, "event: card.resolved") {
		t.Errorf("handler output missing event: %q", body)
	}

	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 0 {
		t.Errorf("client not cleaned up after disconnect")
	}
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}

	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected subscriber channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}

	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after close")
	}

	// Safe no-ops after close.
	b.Publish(Event{Type: "import.completed", Data: nil})
	b.PublishCardEvent("resolved", CardEvent{CardID: "001"})
}
