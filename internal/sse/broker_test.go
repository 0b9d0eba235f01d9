package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/starford/inkpad/internal/pipeline"
)

func stage(name, status string) pipeline.Event {
	return pipeline.Event{Stage: name, Status: status, Time: time.Now()}
}

func drain(ch chan []byte) []string {
	time.Sleep(50 * time.Millisecond)
	var out []string
	for {
		select {
		case msg := <-ch:
			out = append(out, string(msg))
		default:
			return out
		}
	}
}

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker(8)
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
	b := NewBroker(8)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: "drawing.inserted", Data: map[string]string{"note": "a.md"}})

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.Contains(s, "event: drawing.inserted") {
			t.Errorf("missing event type in %q", s)
		}
		if !strings.Contains(s, `"note":"a.md"`) {
			t.Errorf("missing data in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestPublishStage(t *testing.T) {
	b := NewBroker(8)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	ev := stage(pipeline.StageEditor, pipeline.StatusStarted)
	ev.Path = "/w/seed.xopp"
	b.PublishStage(ev)

	msgs := drain(ch)
	if len(msgs) != 1 {
		t.Fatalf("messages = %d, want 1", len(msgs))
	}
	if !strings.Contains(msgs[0], "event: stage.started") {
		t.Errorf("event type missing: %q", msgs[0])
	}
	if !strings.Contains(msgs[0], `"stage":"editor"`) || !strings.Contains(msgs[0], `"path":"/w/seed.xopp"`) {
		t.Errorf("event data missing: %q", msgs[0])
	}
}

func TestSubscribeReplaysCurrentSession(t *testing.T) {
	b := NewBroker(8)
	defer b.Close()

	// An earlier session, then the start of a new one.
	b.PublishStage(stage(pipeline.StageValidate, pipeline.StatusStarted))
	b.PublishStage(stage(pipeline.StageClean, pipeline.StatusFinished))
	b.PublishStage(stage(pipeline.StageValidate, pipeline.StatusStarted))
	b.PublishStage(stage(pipeline.StageValidate, pipeline.StatusFinished))

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	msgs := drain(ch)
	if len(msgs) != 2 {
		t.Fatalf("replayed %d events, want 2: %v", len(msgs), msgs)
	}
	if strings.Contains(strings.Join(msgs, ""), `"stage":"clean"`) {
		t.Error("previous session should not be replayed")
	}
}

func TestReplayCapped(t *testing.T) {
	b := NewBroker(3)
	defer b.Close()
	b.PublishStage(stage(pipeline.StageValidate, pipeline.StatusStarted))
	for i := 0; i < 5; i++ {
		b.PublishStage(stage(pipeline.StageSelect, pipeline.StatusStarted))
	}

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)
	if msgs := drain(ch); len(msgs) != 3 {
		t.Errorf("replayed %d events, want 3", len(msgs))
	}
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker(8)
	defer b.Close()

	// Start handler in background.
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

	b.PublishStage(stage(pipeline.StageDeliver, pipeline.StatusFinished))
	time.Sleep(50 * time.Millisecond)

	// Cancel context to disconnect.
	cancel()
	<-done

	body := w.Body.String()
	if !strings.Contains(body, "event: stage.finished") {
		t.Errorf("handler output missing event: %q", body)
	}

	// Client should be cleaned up.
	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 0 {
		t.Errorf("client not cleaned up after disconnect")
	}
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := NewBroker(8)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// Fill buffer (capacity 64) and then one more should not block.
	for i := 0; i < 70; i++ {
		b.Publish(Event{Type: "test", Data: map[string]string{"i": "x"}})
	}
	// If we reach here without deadlock, the test passes.
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	b := NewBroker(8)
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

	// Should be safe no-op after close.
	b.Publish(Event{Type: "stage.started", Data: map[string]string{"stage": "editor"}})
	b.PublishStage(stage(pipeline.StageEditor, pipeline.StatusStarted))
}
