package checkin

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aarogya/queue/internal/domain/triage"
	"github.com/aarogya/queue/internal/domain/visit"
)

type fakeSummaryStore struct {
	visits  []*visit.Visit
	written map[int64]string
}

func (f *fakeSummaryStore) ListMissingSummary(_ context.Context, limit int) ([]*visit.Visit, error) {
	var out []*visit.Visit
	for _, v := range f.visits {
		if v.AISummary == nil && len(out) < limit {
			out = append(out, v)
		}
	}
	return out, nil
}

func (f *fakeSummaryStore) SetSummary(_ context.Context, id int64, summary string) (bool, error) {
	if f.written == nil {
		f.written = make(map[int64]string)
	}
	if _, ok := f.written[id]; ok {
		return false, nil
	}
	f.written[id] = summary
	return true, nil
}

func TestBackfillSummaries(t *testing.T) {
	f := newFixture(0.3)
	ctx := context.Background()

	// An earlier completed visit and a later one for the same patient: only
	// the earlier one belongs in the history of the visit being backfilled.
	earlier := &visit.Visit{PatientPhone: "+919876543210", SymptomsRaw: "cold", RiskScore: 0.1,
		RiskLevel: triage.RiskLow, Tier: triage.TierJunior}
	f.visits.CreateVisit(ctx, earlier)
	f.visits.complete(earlier.ID, "rest")

	yob := 1990
	target := &visit.Visit{PatientPhone: "+919876543210", SymptomsRaw: "fever", RiskScore: 0.5,
		RiskLevel: triage.RiskMedium, Tier: triage.TierJunior}
	f.visits.CreateVisit(ctx, target)
	target.PatientYOB = &yob

	later := &visit.Visit{PatientPhone: "+919876543210", SymptomsRaw: "rash", RiskScore: 0.2,
		RiskLevel: triage.RiskLow, Tier: triage.TierJunior}
	f.visits.CreateVisit(ctx, later)
	f.visits.complete(later.ID, "cream")

	store := &fakeSummaryStore{visits: []*visit.Visit{target}}
	n, err := f.svc.BackfillSummaries(ctx, store, 10)
	if err != nil {
		t.Fatalf("BackfillSummaries: %v", err)
	}
	if n != 1 || store.written[target.ID] != "summary for fever" {
		t.Errorf("expected one summary written, got %d %v", n, store.written)
	}

	in := f.summarizer.last
	if in.Age != target.CreatedAt.Year()-yob || in.Level != triage.RiskMedium {
		t.Errorf("unexpected summary input %+v", in)
	}
	if len(in.History) != 1 || in.History[0].Symptoms != "cold" {
		t.Errorf("expected only the earlier visit in history, got %+v", in.History)
	}
}

func TestBackfillSummaries_SummarizerDown(t *testing.T) {
	f := newFixture(0.3)
	f.summarizer.err = errors.New("model offline")
	store := &fakeSummaryStore{visits: []*visit.Visit{{ID: 7, PatientPhone: "+919876543210",
		SymptomsRaw: "cough", RiskLevel: triage.RiskLow, CreatedAt: time.Now()}}}

	n, err := f.svc.BackfillSummaries(context.Background(), store, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 0 || len(store.written) != 0 {
		t.Errorf("nothing should be written while the summarizer fails, got %d", n)
	}
}
