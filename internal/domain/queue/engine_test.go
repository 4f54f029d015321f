package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aarogya/queue/internal/domain/triage"
	"github.com/aarogya/queue/internal/domain/visit"
	"github.com/aarogya/queue/internal/platform/apperr"
)

// -- Mock Ledger --

// fakeLedger returns its visits in the order they were added, which tests
// arrange to be the storage order.
type fakeLedger struct {
	waiting map[triage.Tier][]*visit.Visit
	err     error
}

func (f *fakeLedger) ListWaiting(_ context.Context, tier triage.Tier) ([]*visit.Visit, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]*visit.Visit, len(f.waiting[tier]))
	copy(out, f.waiting[tier])
	return out, nil
}

func (f *fakeLedger) CountWaiting(_ context.Context, tier triage.Tier) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	return len(f.waiting[tier]), nil
}

type depthRecorder map[string]int

func (d depthRecorder) QueueDepth(tier string, depth int) { d[tier] = depth }

var base = time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)

func waiting(id int64, score float64, minutesAfterOpen int) *visit.Visit {
	c, _ := triage.DefaultPolicy().Classify(score)
	return &visit.Visit{
		ID:        id,
		RiskScore: score,
		RiskLevel: c.Level,
		Tier:      c.Tier,
		Status:    visit.StatusWaiting,
		CreatedAt: base.Add(time.Duration(minutesAfterOpen) * time.Minute),
	}
}

func ids(items []*visit.Visit) []int64 {
	out := make([]int64, len(items))
	for i, v := range items {
		out[i] = v.ID
	}
	return out
}

func sameIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func newTestEngine(opts Options, junior ...*visit.Visit) *Engine {
	e := NewEngine(&fakeLedger{waiting: map[triage.Tier][]*visit.Visit{triage.TierJunior: junior}}, opts)
	e.now = func() time.Time { return base.Add(time.Hour) }
	return e
}

func TestEngine_PositionAndWait(t *testing.T) {
	e := newTestEngine(Options{}, waiting(1, 0.5, 0), waiting(2, 0.3, 1), waiting(3, 0.2, 2))
	ctx := context.Background()

	pos, err := e.QueuePosition(ctx, triage.TierJunior)
	if err != nil || pos != 3 {
		t.Fatalf("QueuePosition = %d, %v", pos, err)
	}
	wait, _ := e.EstimatedWait(ctx, triage.TierJunior)
	if wait != 24*time.Minute {
		t.Errorf("expected 24m with the default 8 minutes per patient, got %v", wait)
	}

	pos, _ = e.QueuePosition(ctx, triage.TierSenior)
	if pos != 0 {
		t.Errorf("expected empty senior queue, got %d", pos)
	}

	if _, err := e.QueuePosition(ctx, "INTERN"); !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestEngine_WaitFor_Configured(t *testing.T) {
	e := newTestEngine(Options{MinutesPerPatient: 5})
	if got := e.WaitFor(4); got != 20*time.Minute {
		t.Errorf("WaitFor(4) = %v", got)
	}
}

func TestEngine_NextForTier(t *testing.T) {
	e := newTestEngine(Options{}, waiting(4, 0.6, 3), waiting(1, 0.2, 0))
	next, err := e.NextForTier(context.Background(), triage.TierJunior)
	if err != nil || next == nil || next.ID != 4 {
		t.Fatalf("NextForTier = %+v, %v", next, err)
	}

	next, err = e.NextForTier(context.Background(), triage.TierSenior)
	if err != nil || next != nil {
		t.Errorf("expected nil for an empty queue, got %+v, %v", next, err)
	}
}

func TestEngine_NoAgingKeepsLedgerOrder(t *testing.T) {
	items := []*visit.Visit{waiting(3, 0.6, 30), waiting(1, 0.2, 0), waiting(2, 0.2, 5)}
	e := newTestEngine(Options{}, items...)

	got, _ := e.ListWaiting(context.Background(), triage.TierJunior)
	if !sameIDs(ids(got), []int64{3, 1, 2}) {
		t.Errorf("expected ledger order, got %v", ids(got))
	}
}

func TestEngine_AgingPromotesLongWaits(t *testing.T) {
	// At base+1h visit 1 has waited 60 minutes and visit 3 only 10.
	items := []*visit.Visit{waiting(3, 0.6, 50), waiting(1, 0.2, 0), waiting(2, 0.2, 0)}
	e := newTestEngine(Options{AgingPerMinute: 0.01}, items...)

	got, _ := e.ListWaiting(context.Background(), triage.TierJunior)
	// 1: 0.2+0.6=0.8, 2: same score and arrival so id breaks the tie, 3: 0.6+0.1=0.7
	if !sameIDs(ids(got), []int64{1, 2, 3}) {
		t.Errorf("unexpected aged order %v", ids(got))
	}
}

func TestPriority(t *testing.T) {
	v := waiting(1, 0.3, 0)
	if got := Priority(v, 0.01, base.Add(-time.Minute)); got != 0.3 {
		t.Errorf("future arrival should not age negatively, got %v", got)
	}
	if got := Priority(v, 0, base.Add(time.Hour)); got != 0.3 {
		t.Errorf("zero aging changed the priority: %v", got)
	}
}

func TestEngine_Snapshot(t *testing.T) {
	rec := depthRecorder{}
	e := newTestEngine(Options{PollInterval: 5 * time.Second}, waiting(2, 0.5, 1), waiting(1, 0.1, 0))
	e.SetRecorder(rec)

	snap, err := e.Snapshot(context.Background(), triage.TierJunior)
	if err != nil {
		t.Fatal(err)
	}
	if snap.Depth != 2 || snap.EstimatedWaitMinutes != 16 || snap.PollIntervalSeconds != 5 {
		t.Errorf("unexpected snapshot %+v", snap)
	}
	if snap.Next == nil || snap.Next.ID != 2 {
		t.Errorf("expected visit 2 at the head")
	}
	if rec["JUNIOR"] != 2 {
		t.Errorf("depth not recorded: %v", rec)
	}

	empty, _ := e.Snapshot(context.Background(), triage.TierSenior)
	if empty.Next != nil || empty.Visits == nil || rec["SENIOR"] != 0 {
		t.Errorf("unexpected empty snapshot %+v", empty)
	}
}

func TestEngine_LedgerError(t *testing.T) {
	boom := errors.New("connection reset")
	e := NewEngine(&fakeLedger{err: boom}, Options{})
	if _, err := e.Snapshot(context.Background(), triage.TierJunior); !errors.Is(err, boom) {
		t.Errorf("expected ledger error, got %v", err)
	}
}
