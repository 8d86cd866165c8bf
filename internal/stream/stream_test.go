package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dgnsrekt/netpanel/internal/capture"
	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

func TestBrokerFanOut(t *testing.T) {
	b := NewBroker()
	id1, ch1 := b.Subscribe()
	_, ch2 := b.Subscribe()
	if got := b.ClientCount(); got != 2 {
		t.Fatalf("ClientCount() = %d; want 2", got)
	}

	b.Publish(Event{Kind: "k", Payload: []byte(`{}`)})
	for _, ch := range []<-chan Event{ch1, ch2} {
		if evt := <-ch; evt.Kind != "k" {
			t.Fatalf("Kind = %q; want k", evt.Kind)
		}
	}

	b.Unsubscribe(id1)
	if _, ok := <-ch1; ok {
		t.Fatalf("channel still open after Unsubscribe")
	}
	b.Unsubscribe(id1)
}

func TestBrokerDropsForSlowClients(t *testing.T) {
	b := NewBroker()
	b.Subscribe()
	for i := 0; i < subscriberBufSize+5; i++ {
		b.Publish(Event{Kind: "k"})
	}
	if got := b.Dropped(); got != 5 {
		t.Fatalf("Dropped() = %d; want 5", got)
	}
}

func TestPublishLog(t *testing.T) {
	b := NewBroker()
	_, ch := b.Subscribe()
	l := capture.NewLog()
	PublishLog(l, b)

	l.Clear()
	evt := <-ch
	if evt.Kind != string(capture.EventCleared) {
		t.Fatalf("Kind = %q; want %q", evt.Kind, capture.EventCleared)
	}
	var decoded map[string]any
	if err := json.Unmarshal(evt.Payload, &decoded); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if decoded["kind"] != string(capture.EventCleared) {
		t.Fatalf("payload kind = %v", decoded["kind"])
	}
}

func waitForClients(t *testing.T, b *Broker, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for b.ClientCount() < n {
		if time.Now().After(deadline) {
			t.Fatalf("ClientCount() = %d; want %d", b.ClientCount(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker()
	srv := httptest.NewServer(SSEHandler(b))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"?kinds=request.added", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q", ct)
	}

	waitForClients(t, b, 1)
	b.Publish(Event{Kind: "log.cleared", Payload: []byte(`{"skip":true}`)})
	b.Publish(Event{Kind: "request.added", Payload: []byte(`{"id":"req-1"}`)})

	r := bufio.NewReader(resp.Body)
	var lines []string
	for len(lines) < 2 {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("read error = %v", err)
		}
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	if lines[0] != "event: request.added" || lines[1] != `data: {"id":"req-1"}` {
		t.Fatalf("SSE lines = %q", lines)
	}
}

func TestWSHandler(t *testing.T) {
	b := NewBroker()
	srv := httptest.NewServer(WSHandler(b))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, _, err := ws.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"))
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}

	waitForClients(t, b, 1)
	b.Publish(Event{Kind: "request.completed", Payload: []byte(`{"id":"req-2"}`)})

	msg, err := wsutil.ReadServerText(conn)
	if err != nil {
		t.Fatalf("ReadServerText() error = %v", err)
	}
	if string(msg) != `{"id":"req-2"}` {
		t.Fatalf("message = %s", msg)
	}

	conn.Close()
	deadline := time.Now().Add(2 * time.Second)
	for b.ClientCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("subscriber not released after client close")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
