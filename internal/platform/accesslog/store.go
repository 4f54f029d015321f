// Package accesslog keeps a durable record of doctors reading and completing
// visits, next to the audit line written to the request log.
package accesslog

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aarogya/queue/internal/platform/db"
	"github.com/aarogya/queue/internal/platform/middleware"
)

// writeTimeout bounds a single insert. Audit writes happen after the
// response and must not hold the request goroutine for long.
const writeTimeout = 2 * time.Second

// Store writes audit entries to the access_log table.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// RecordAccess implements middleware.AuditRecorder.
func (s *Store) RecordAccess(entry middleware.AuditEntry) error {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	return s.Record(ctx, entry)
}

func (s *Store) Record(ctx context.Context, entry middleware.AuditEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	_, err := db.Conn(ctx, s.pool).Exec(ctx, `
		INSERT INTO access_log (doctor_id, doctor_tier, action, resource, resource_id,
			method, route, status_code, ip_address, request_id, accessed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		entry.DoctorID, entry.DoctorTier, entry.Action, entry.Resource, entry.ResourceID,
		entry.Method, entry.Route, entry.StatusCode, entry.IPAddress, entry.RequestID, entry.Timestamp)
	if err != nil {
		return fmt.Errorf("access log: insert entry: %w", err)
	}
	return nil
}

// Recent returns the newest entries, optionally for one doctor only.
func (s *Store) Recent(ctx context.Context, doctorID *int64, limit int) ([]middleware.AuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Conn(ctx, s.pool).Query(ctx, `
		SELECT doctor_id, doctor_tier, action, resource, resource_id,
			method, route, status_code, ip_address, request_id, accessed_at
		FROM access_log
		WHERE ($1::bigint IS NULL OR doctor_id = $1)
		ORDER BY accessed_at DESC, id DESC
		LIMIT $2`, doctorID, limit)
	if err != nil {
		return nil, fmt.Errorf("access log: query: %w", err)
	}
	defer rows.Close()

	var entries []middleware.AuditEntry
	for rows.Next() {
		var e middleware.AuditEntry
		if err := rows.Scan(&e.DoctorID, &e.DoctorTier, &e.Action, &e.Resource, &e.ResourceID,
			&e.Method, &e.Route, &e.StatusCode, &e.IPAddress, &e.RequestID, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("access log: scan: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
