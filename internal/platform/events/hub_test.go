package events

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorillawebsocket "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func receive(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case msg := <-c.Send:
		var e Event
		if err := json.Unmarshal(msg, &e); err != nil {
			t.Fatalf("failed to unmarshal event: %v", err)
		}
		return e
	case <-time.After(time.Second):
		t.Fatal("client did not receive event")
	}
	return Event{}
}

func TestHub_RegisterUnregister(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	client := NewClient("senior", "JUNIOR")

	hub.Register(client)
	if hub.ClientCount() != 1 {
		t.Fatalf("expected 1 client, got %d", hub.ClientCount())
	}
	if hub.TopicCount("SENIOR") != 1 || hub.TopicCount("junior") != 1 {
		t.Fatal("expected client on both tiers")
	}

	hub.Unregister(client)
	hub.Unregister(client)
	if hub.ClientCount() != 0 || hub.TopicCount("SENIOR") != 0 {
		t.Fatal("expected hub to be empty")
	}
	if _, ok := <-client.Send; ok {
		t.Fatal("expected Send to be closed")
	}
}

func TestHub_PublishByTier(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	senior := NewClient("SENIOR")
	junior := NewClient("JUNIOR")
	hub.Register(senior)
	hub.Register(junior)

	err := hub.Publish(context.Background(), Event{Type: VisitCreated, Tier: "SENIOR", VisitID: 42, At: time.Now()})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}

	got := receive(t, senior)
	if got.Type != VisitCreated || got.VisitID != 42 {
		t.Errorf("unexpected event %+v", got)
	}
	select {
	case <-junior.Send:
		t.Fatal("junior dashboard should not see senior events")
	default:
	}
}

func TestHub_SlowClientDoesNotBlock(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	slow := &Client{ID: "slow", Topics: []string{"JUNIOR"}, Send: make(chan []byte, 1)}
	hub.Register(slow)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			hub.Publish(context.Background(), Event{Type: VisitCreated, Tier: "JUNIOR", VisitID: int64(i)})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full client buffer")
	}
	if len(slow.Send) != 1 {
		t.Errorf("expected one buffered event, got %d", len(slow.Send))
	}
}

func TestHandler_EndToEnd(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	e := echo.New()
	valid := func(tier string) bool {
		up := strings.ToUpper(tier)
		return up == "JUNIOR" || up == "SENIOR"
	}
	NewHandler(hub, valid, []string{"*"}).RegisterRoutes(e)
	srv := httptest.NewServer(e)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/queue?tier=senior"
	ws, _, err := gorillawebsocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer ws.Close()

	deadline := time.Now().Add(time.Second)
	for hub.TopicCount("SENIOR") == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	hub.Publish(context.Background(), Event{Type: VisitCompleted, Tier: "SENIOR", VisitID: 9})

	ws.SetReadDeadline(time.Now().Add(time.Second))
	_, msg, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got Event
	json.Unmarshal(msg, &got)
	if got.Type != VisitCompleted || got.VisitID != 9 {
		t.Errorf("unexpected event %+v", got)
	}
}

func TestHandler_RejectsUnknownTier(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	h := NewHandler(hub, func(string) bool { return false }, nil)

	e := echo.New()
	for _, target := range []string{"/ws/queue", "/ws/queue?tier=attending"} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		c := e.NewContext(req, httptest.NewRecorder())
		err := h.HandleConnect(c)
		he, ok := err.(*echo.HTTPError)
		if !ok || he.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %v", target, err)
		}
	}
}
