package visit

import (
	"context"

	"github.com/aarogya/queue/internal/domain/triage"
)

// Completion carries what a doctor records when closing a visit.
type Completion struct {
	Notes        string
	Prescription *string
	DoctorID     *int64
}

// Repository is the visit ledger's storage. Implementations must make
// Complete a single conditional write so that racing completions of the same
// visit produce exactly one winner.
type Repository interface {
	Create(ctx context.Context, v *Visit) error
	// GetByID returns nil, nil when the visit does not exist.
	GetByID(ctx context.Context, id int64) (*Visit, error)
	// Complete fails with NotFound for an unknown id and InvalidState for a
	// visit that is no longer WAITING.
	Complete(ctx context.Context, id int64, c Completion) (*Visit, error)
	ListWaiting(ctx context.Context, tier triage.Tier) ([]*Visit, error)
	ListCompleted(ctx context.Context, tier *triage.Tier, limit, offset int) ([]*Visit, error)
	ListByPatient(ctx context.Context, phone string, status *Status, limit, offset int) ([]*Visit, error)
	CountWaiting(ctx context.Context, tier triage.Tier) (int, error)
	// ListMissingSummary returns visits stored without a summary, oldest first.
	ListMissingSummary(ctx context.Context, limit int) ([]*Visit, error)
	// SetSummary fills an empty summary and reports whether it wrote one.
	SetSummary(ctx context.Context, id int64, summary string) (bool, error)
}
