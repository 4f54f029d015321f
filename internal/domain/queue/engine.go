// Package queue derives each tier's live queue from the visit ledger.
package queue

import (
	"context"
	"sort"
	"time"

	"github.com/aarogya/queue/internal/domain/triage"
	"github.com/aarogya/queue/internal/domain/visit"
	"github.com/aarogya/queue/internal/platform/apperr"
)

const DefaultMinutesPerPatient = 8

// Ledger is the part of the visit ledger the engine reads.
type Ledger interface {
	ListWaiting(ctx context.Context, tier triage.Tier) ([]*visit.Visit, error)
	CountWaiting(ctx context.Context, tier triage.Tier) (int, error)
}

// DepthRecorder is told the depth observed by every snapshot.
type DepthRecorder interface {
	QueueDepth(tier string, depth int)
}

type Options struct {
	MinutesPerPatient int
	// AgingPerMinute raises a waiting visit's effective priority by this much
	// per minute waited. Zero keeps the ledger order.
	AgingPerMinute float64
	PollInterval   time.Duration
}

type Engine struct {
	ledger   Ledger
	opts     Options
	recorder DepthRecorder
	now      func() time.Time
}

func NewEngine(ledger Ledger, opts Options) *Engine {
	if opts.MinutesPerPatient <= 0 {
		opts.MinutesPerPatient = DefaultMinutesPerPatient
	}
	if opts.AgingPerMinute < 0 {
		opts.AgingPerMinute = 0
	}
	return &Engine{ledger: ledger, opts: opts, now: time.Now}
}

func (e *Engine) SetRecorder(r DepthRecorder) { e.recorder = r }

func checkTier(tier triage.Tier) error {
	if !tier.Valid() {
		return apperr.Validation("invalid tier %q", tier)
	}
	return nil
}

// QueuePosition is the number of visits waiting in the tier right now. It is
// a depth, not a rank: a visit created moments ago is counted in it.
func (e *Engine) QueuePosition(ctx context.Context, tier triage.Tier) (int, error) {
	if err := checkTier(tier); err != nil {
		return 0, err
	}
	return e.ledger.CountWaiting(ctx, tier)
}

// WaitFor converts a queue position into an estimated wait.
func (e *Engine) WaitFor(position int) time.Duration {
	return time.Duration(position*e.opts.MinutesPerPatient) * time.Minute
}

func (e *Engine) EstimatedWait(ctx context.Context, tier triage.Tier) (time.Duration, error) {
	pos, err := e.QueuePosition(ctx, tier)
	if err != nil {
		return 0, err
	}
	return e.WaitFor(pos), nil
}

// ListWaiting returns the tier's queue, head first.
func (e *Engine) ListWaiting(ctx context.Context, tier triage.Tier) ([]*visit.Visit, error) {
	if err := checkTier(tier); err != nil {
		return nil, err
	}
	items, err := e.ledger.ListWaiting(ctx, tier)
	if err != nil {
		return nil, err
	}
	if e.opts.AgingPerMinute > 0 {
		rerank(items, e.opts.AgingPerMinute, e.now())
	}
	return items, nil
}

// NextForTier returns the visit a doctor of tier should see next, or nil
// when nobody is waiting.
func (e *Engine) NextForTier(ctx context.Context, tier triage.Tier) (*visit.Visit, error) {
	items, err := e.ListWaiting(ctx, tier)
	if err != nil || len(items) == 0 {
		return nil, err
	}
	return items[0], nil
}

// Priority is the aged priority of v at now.
func Priority(v *visit.Visit, agingPerMinute float64, now time.Time) float64 {
	waited := now.Sub(v.CreatedAt).Minutes()
	if waited < 0 {
		waited = 0
	}
	return v.RiskScore + agingPerMinute*waited
}

func rerank(items []*visit.Visit, aging float64, now time.Time) {
	sort.SliceStable(items, func(i, j int) bool {
		pi, pj := Priority(items[i], aging, now), Priority(items[j], aging, now)
		if pi != pj {
			return pi > pj
		}
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.Before(items[j].CreatedAt)
		}
		return items[i].ID < items[j].ID
	})
}

// Snapshot is what a doctor dashboard renders on every poll.
type Snapshot struct {
	Tier                 triage.Tier    `json:"tier"`
	Depth                int            `json:"depth"`
	EstimatedWaitMinutes int            `json:"estimated_wait_minutes"`
	Next                 *visit.Visit   `json:"next,omitempty"`
	Visits               []*visit.Visit `json:"visits"`
	PollIntervalSeconds  int            `json:"poll_interval_seconds,omitempty"`
	GeneratedAt          time.Time      `json:"generated_at"`
}

func (e *Engine) Snapshot(ctx context.Context, tier triage.Tier) (*Snapshot, error) {
	items, err := e.ListWaiting(ctx, tier)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*visit.Visit{}
	}

	snap := &Snapshot{
		Tier:                 tier,
		Depth:                len(items),
		EstimatedWaitMinutes: int(e.WaitFor(len(items)).Minutes()),
		Visits:               items,
		PollIntervalSeconds:  int(e.opts.PollInterval.Seconds()),
		GeneratedAt:          e.now().UTC(),
	}
	if len(items) > 0 {
		snap.Next = items[0]
	}
	if e.recorder != nil {
		e.recorder.QueueDepth(string(tier), snap.Depth)
	}
	return snap, nil
}
