package doctor

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aarogya/queue/internal/domain/triage"
	"github.com/aarogya/queue/internal/platform/db"
)

type doctorRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &doctorRepoPG{pool: pool}
}

func (r *doctorRepoPG) conn(ctx context.Context) db.Queryable {
	return db.Conn(ctx, r.pool)
}

const doctorCols = `id, name, role_tier, access_code_hash, created_at`

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	var tier string
	if err := row.Scan(&d.ID, &d.Name, &tier, &d.AccessCodeHash, &d.CreatedAt); err != nil {
		return nil, err
	}
	d.Tier = triage.Tier(tier)
	return &d, nil
}

func (r *doctorRepoPG) Create(ctx context.Context, d *Doctor) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO doctors (name, role_tier, access_code_hash)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`,
		d.Name, string(d.Tier), d.AccessCodeHash).Scan(&d.ID, &d.CreatedAt)
	if err != nil {
		return fmt.Errorf("create doctor: %w", err)
	}
	return nil
}

func (r *doctorRepoPG) list(ctx context.Context, sql string, args ...interface{}) ([]*Doctor, error) {
	rows, err := r.conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Doctor
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return items, rows.Err()
}

func (r *doctorRepoPG) ListByTier(ctx context.Context, tier triage.Tier) ([]*Doctor, error) {
	items, err := r.list(ctx, `SELECT `+doctorCols+` FROM doctors WHERE role_tier = $1 ORDER BY id`, string(tier))
	if err != nil {
		return nil, fmt.Errorf("list doctors by tier: %w", err)
	}
	return items, nil
}

func (r *doctorRepoPG) List(ctx context.Context) ([]*Doctor, error) {
	items, err := r.list(ctx, `SELECT `+doctorCols+` FROM doctors ORDER BY role_tier DESC, name`)
	if err != nil {
		return nil, fmt.Errorf("list doctors: %w", err)
	}
	return items, nil
}
