package checkin

import (
	"context"

	"github.com/aarogya/queue/internal/domain/visit"
)

// SummaryStore is the part of the ledger the summary backfill reads and fills.
type SummaryStore interface {
	ListMissingSummary(ctx context.Context, limit int) ([]*visit.Visit, error)
	SetSummary(ctx context.Context, id int64, summary string) (bool, error)
}

// BackfillSummaries writes a summary for up to limit visits that were stored
// without one and returns how many it filled. History is limited to visits
// older than the one being summarised; age is taken at check-in time.
func (s *Service) BackfillSummaries(ctx context.Context, store SummaryStore, limit int) (int, error) {
	pending, err := store.ListMissingSummary(ctx, limit)
	if err != nil {
		return 0, err
	}

	filled := 0
	for _, v := range pending {
		if err := ctx.Err(); err != nil {
			return filled, err
		}
		age := 0
		if v.PatientYOB != nil {
			age = v.CreatedAt.Year() - *v.PatientYOB
		}
		summary := s.summarize(ctx, v.PatientPhone, v.SymptomsRaw, age, v.RiskLevel, v.ID)
		if summary == nil {
			continue
		}
		wrote, err := store.SetSummary(ctx, v.ID, *summary)
		if err != nil {
			return filled, err
		}
		if wrote {
			filled++
		}
	}

	s.logger.Info().Int("pending", len(pending)).Int("filled", filled).Msg("summary backfill finished")
	return filled, nil
}
