package doctor

import (
	"context"

	"github.com/aarogya/queue/internal/domain/triage"
)

type Repository interface {
	Create(ctx context.Context, d *Doctor) error
	ListByTier(ctx context.Context, tier triage.Tier) ([]*Doctor, error)
	List(ctx context.Context) ([]*Doctor, error)
}
