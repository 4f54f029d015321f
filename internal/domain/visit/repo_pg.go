package visit

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aarogya/queue/internal/domain/triage"
	"github.com/aarogya/queue/internal/platform/apperr"
	"github.com/aarogya/queue/internal/platform/db"
)

type visitRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &visitRepoPG{pool: pool}
}

func (r *visitRepoPG) conn(ctx context.Context) db.Queryable {
	return db.Conn(ctx, r.pool)
}

const visitCols = `v.id, v.patient_phone, v.symptoms_raw, v.symptoms_structured, v.risk_score,
	v.risk_level, v.assigned_tier, v.status, v.ai_summary, v.doctor_notes, v.prescription,
	v.completed_by, v.created_at, v.completed_at, p.name, p.yob`

const visitFrom = ` FROM visits v JOIN patients p ON p.phone_number = v.patient_phone`

// waitingOrder is the live queue order: riskiest first, then first come.
const waitingOrder = ` ORDER BY v.risk_score DESC, v.created_at ASC, v.id ASC`

func scanVisit(row pgx.Row) (*Visit, error) {
	var v Visit
	var level, tier, status string
	var yob int
	if err := row.Scan(&v.ID, &v.PatientPhone, &v.SymptomsRaw, &v.Symptoms, &v.RiskScore,
		&level, &tier, &status, &v.AISummary, &v.DoctorNotes, &v.Prescription,
		&v.CompletedBy, &v.CreatedAt, &v.CompletedAt, &v.PatientName, &yob); err != nil {
		return nil, err
	}
	v.RiskLevel = triage.RiskLevel(level)
	v.Tier = triage.Tier(tier)
	v.Status = Status(status)
	v.PatientYOB = &yob
	return &v, nil
}

func (r *visitRepoPG) query(ctx context.Context, sql string, args ...interface{}) ([]*Visit, error) {
	rows, err := r.conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Visit
	for rows.Next() {
		v, err := scanVisit(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, v)
	}
	return items, rows.Err()
}

func (r *visitRepoPG) Create(ctx context.Context, v *Visit) error {
	symptoms := v.Symptoms
	if symptoms == nil {
		symptoms = []string{}
	}
	var status string
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO visits (patient_phone, symptoms_raw, symptoms_structured,
			risk_score, risk_level, assigned_tier, ai_summary)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, status, created_at`,
		v.PatientPhone, v.SymptomsRaw, symptoms,
		v.RiskScore, string(v.RiskLevel), string(v.Tier), v.AISummary,
	).Scan(&v.ID, &status, &v.CreatedAt)
	switch {
	case db.IsForeignKeyViolation(err):
		return apperr.Validation("patient %s is not registered", v.PatientPhone)
	case db.IsCheckViolation(err):
		return apperr.Validation("visit rejected by %s", db.ConstraintName(err))
	case err != nil:
		return fmt.Errorf("create visit: %w", err)
	}
	v.Symptoms = symptoms
	v.Status = Status(status)
	return nil
}

func (r *visitRepoPG) GetByID(ctx context.Context, id int64) (*Visit, error) {
	v, err := scanVisit(r.conn(ctx).QueryRow(ctx,
		`SELECT `+visitCols+visitFrom+` WHERE v.id = $1`, id))
	if db.IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get visit: %w", err)
	}
	return v, nil
}

func (r *visitRepoPG) Complete(ctx context.Context, id int64, c Completion) (*Visit, error) {
	v, err := scanVisit(r.conn(ctx).QueryRow(ctx, `
		WITH v AS (
			UPDATE visits
			SET status = 'COMPLETED', doctor_notes = $2, prescription = $3,
				completed_by = $4, completed_at = NOW()
			WHERE id = $1 AND status = 'WAITING'
			RETURNING *
		)
		SELECT `+visitCols+` FROM v JOIN patients p ON p.phone_number = v.patient_phone`,
		id, c.Notes, c.Prescription, c.DoctorID))
	switch {
	case err == nil:
		return v, nil
	case db.IsForeignKeyViolation(err):
		return nil, apperr.Validation("doctor %d not found", *c.DoctorID)
	case !db.IsNoRows(err):
		return nil, fmt.Errorf("complete visit: %w", err)
	}

	var exists bool
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM visits WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, fmt.Errorf("probe visit: %w", err)
	}
	if !exists {
		return nil, apperr.NotFound("visit %d not found", id)
	}
	return nil, apperr.InvalidState("visit %d is already completed", id)
}

func (r *visitRepoPG) ListWaiting(ctx context.Context, tier triage.Tier) ([]*Visit, error) {
	items, err := r.query(ctx, `SELECT `+visitCols+visitFrom+`
		WHERE v.status = 'WAITING' AND v.assigned_tier = $1`+waitingOrder, string(tier))
	if err != nil {
		return nil, fmt.Errorf("list waiting visits: %w", err)
	}
	return items, nil
}

func (r *visitRepoPG) ListCompleted(ctx context.Context, tier *triage.Tier, limit, offset int) ([]*Visit, error) {
	var tierArg *string
	if tier != nil {
		t := string(*tier)
		tierArg = &t
	}
	items, err := r.query(ctx, `SELECT `+visitCols+visitFrom+`
		WHERE v.status = 'COMPLETED' AND ($1::text IS NULL OR v.assigned_tier = $1)
		ORDER BY v.completed_at DESC, v.id DESC
		LIMIT $2 OFFSET $3`, tierArg, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list completed visits: %w", err)
	}
	return items, nil
}

func (r *visitRepoPG) ListByPatient(ctx context.Context, phone string, status *Status, limit, offset int) ([]*Visit, error) {
	var statusArg *string
	if status != nil {
		s := string(*status)
		statusArg = &s
	}
	items, err := r.query(ctx, `SELECT `+visitCols+visitFrom+`
		WHERE v.patient_phone = $1 AND ($2::text IS NULL OR v.status = $2)
		ORDER BY v.created_at DESC, v.id DESC
		LIMIT $3 OFFSET $4`, phone, statusArg, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list patient visits: %w", err)
	}
	return items, nil
}

func (r *visitRepoPG) CountWaiting(ctx context.Context, tier triage.Tier) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM visits WHERE status = 'WAITING' AND assigned_tier = $1`,
		string(tier)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count waiting visits: %w", err)
	}
	return n, nil
}

func (r *visitRepoPG) ListMissingSummary(ctx context.Context, limit int) ([]*Visit, error) {
	items, err := r.query(ctx, `SELECT `+visitCols+visitFrom+`
		WHERE v.ai_summary IS NULL
		ORDER BY v.created_at ASC, v.id ASC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list visits without summary: %w", err)
	}
	return items, nil
}

func (r *visitRepoPG) SetSummary(ctx context.Context, id int64, summary string) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE visits SET ai_summary = $2 WHERE id = $1 AND ai_summary IS NULL`, id, summary)
	if err != nil {
		return false, fmt.Errorf("set visit summary: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
