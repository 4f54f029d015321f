// Package events carries queue change hints to dashboards. Delivery is best
// effort: dashboards keep polling, so a lost event only delays a refresh.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type Type string

const (
	VisitCreated   Type = "visit.created"
	VisitCompleted Type = "visit.completed"
)

// Event says that the live queue of Tier changed.
type Event struct {
	Type    Type      `json:"type"`
	Tier    string    `json:"tier"`
	VisitID int64     `json:"visit_id"`
	At      time.Time `json:"at"`
}

// Topic is the hub topic an event is delivered on.
func (e Event) Topic() string {
	return TierTopic(e.Tier)
}

// TierTopic normalises a tier name into its topic.
func TierTopic(tier string) string {
	return strings.ToUpper(strings.TrimSpace(tier))
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

func encode(e Event) ([]byte, error) {
	return json.Marshal(e)
}

func decode(data []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return Event{}, fmt.Errorf("decode queue event: %w", err)
	}
	if e.Type != VisitCreated && e.Type != VisitCompleted {
		return Event{}, fmt.Errorf("unknown queue event type %q", e.Type)
	}
	if e.Tier == "" {
		return Event{}, fmt.Errorf("queue event without tier")
	}
	return e, nil
}
