package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type recordingPublisher struct {
	events []Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e Event) error {
	p.events = append(p.events, e)
	return p.err
}

func TestRelay_Handle(t *testing.T) {
	local := &recordingPublisher{}
	r := NewRelay(nil, "", local, zerolog.Nop())
	if r.channel != DefaultChannel {
		t.Errorf("expected default channel, got %q", r.channel)
	}

	data, _ := encode(Event{Type: VisitCreated, Tier: "JUNIOR", VisitID: 3, At: time.Now()})
	r.handle(context.Background(), string(data))
	r.handle(context.Background(), "not json")
	r.handle(context.Background(), `{"type":"visit.deleted","tier":"JUNIOR"}`)
	r.handle(context.Background(), `{"type":"visit.created"}`)

	if len(local.events) != 1 {
		t.Fatalf("expected only the valid event to be relayed, got %d", len(local.events))
	}
	if local.events[0].VisitID != 3 || local.events[0].Topic() != "JUNIOR" {
		t.Errorf("unexpected relayed event %+v", local.events[0])
	}
}

func TestRelay_LocalErrorIsSwallowed(t *testing.T) {
	local := &recordingPublisher{err: errors.New("hub closed")}
	r := NewRelay(nil, "queue:test", local, zerolog.Nop())

	data, _ := encode(Event{Type: VisitCompleted, Tier: "SENIOR", VisitID: 1})
	r.handle(context.Background(), string(data))
	if len(local.events) != 1 {
		t.Error("expected event handed to local publisher")
	}
}

func TestNewRedisPublisher_DefaultChannel(t *testing.T) {
	if p := NewRedisPublisher(nil, ""); p.channel != DefaultChannel {
		t.Errorf("expected %q, got %q", DefaultChannel, p.channel)
	}
}
