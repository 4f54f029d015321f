package patient

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aarogya/queue/internal/platform/apperr"
	"github.com/aarogya/queue/internal/platform/db"
)

type patientRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &patientRepoPG{pool: pool}
}

func (r *patientRepoPG) conn(ctx context.Context) db.Queryable {
	return db.Conn(ctx, r.pool)
}

const patientCols = `phone_number, yob, name, created_at`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	if err := row.Scan(&p.Phone, &p.YOB, &p.Name, &p.CreatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *patientRepoPG) GetByPhone(ctx context.Context, phone string) (*Patient, error) {
	p, err := scanPatient(r.conn(ctx).QueryRow(ctx,
		`SELECT `+patientCols+` FROM patients WHERE phone_number = $1`, phone))
	if db.IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get patient: %w", err)
	}
	return p, nil
}

func (r *patientRepoPG) Create(ctx context.Context, p *Patient) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patients (phone_number, yob, name)
		VALUES ($1, $2, $3)
		RETURNING created_at`,
		p.Phone, p.YOB, p.Name).Scan(&p.CreatedAt)
	if db.IsUniqueViolation(err) {
		return apperr.Conflict("patient with phone %s already exists", p.Phone)
	}
	if err != nil {
		return fmt.Errorf("create patient: %w", err)
	}
	return nil
}

func (r *patientRepoPG) CreateIfAbsent(ctx context.Context, p *Patient) (bool, error) {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patients (phone_number, yob, name)
		VALUES ($1, $2, $3)
		ON CONFLICT (phone_number) DO NOTHING
		RETURNING created_at`,
		p.Phone, p.YOB, p.Name).Scan(&p.CreatedAt)
	if db.IsNoRows(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("register patient: %w", err)
	}
	return true, nil
}

func (r *patientRepoPG) UpdateName(ctx context.Context, phone, name string) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE patients SET name = $2 WHERE phone_number = $1`, phone, name)
	if err != nil {
		return fmt.Errorf("update patient name: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("patient %s not found", phone)
	}
	return nil
}

func (r *patientRepoPG) List(ctx context.Context, limit, offset int) ([]*Patient, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+patientCols+` FROM patients ORDER BY created_at DESC, phone_number LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list patients: %w", err)
	}
	defer rows.Close()

	var items []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, fmt.Errorf("scan patient: %w", err)
		}
		items = append(items, p)
	}
	return items, rows.Err()
}
