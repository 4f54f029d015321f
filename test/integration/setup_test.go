//go:build integration

package integration

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/aarogya/queue/internal/domain/patient"
	"github.com/aarogya/queue/internal/domain/triage"
	"github.com/aarogya/queue/internal/domain/visit"
	"github.com/aarogya/queue/internal/platform/db"
	"github.com/aarogya/queue/migrations"
)

// globalPool is shared by every test and reset between them with resetDB.
var globalPool *pgxpool.Pool

func TestMain(m *testing.M) {
	ctx := context.Background()

	connStr, cleanup, err := startPostgres(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start postgres container: %v\n", err)
		os.Exit(1)
	}

	pool, err := db.NewPool(ctx, connStr, 20, 1)
	if err != nil {
		cleanup()
		fmt.Fprintf(os.Stderr, "failed to connect: %v\n", err)
		os.Exit(1)
	}
	if _, err := db.NewMigrator(pool, migrations.FS).Up(ctx, db.DefaultSchema); err != nil {
		pool.Close()
		cleanup()
		fmt.Fprintf(os.Stderr, "failed to migrate: %v\n", err)
		os.Exit(1)
	}

	globalPool = pool
	code := m.Run()
	pool.Close()
	cleanup()
	os.Exit(code)
}

func resetDB(t *testing.T) {
	t.Helper()
	_, err := globalPool.Exec(context.Background(),
		`TRUNCATE access_log, visits, patients, doctors RESTART IDENTITY CASCADE`)
	if err != nil {
		t.Fatalf("reset database: %v", err)
	}
}

func newPatientService() *patient.Service {
	return patient.NewService(patient.NewRepoPG(globalPool), patient.DefaultRegion)
}

func newVisitService() *visit.Service {
	return visit.NewService(visit.NewRepoPG(globalPool), zerolog.Nop())
}

func registerPatient(t *testing.T, phone string, yob int) *patient.Patient {
	t.Helper()
	p, _, err := newPatientService().Register(context.Background(), phone, yob, nil)
	if err != nil {
		t.Fatalf("register patient: %v", err)
	}
	return p
}

func createVisit(t *testing.T, svc *visit.Service, phone string, score float64) *visit.Visit {
	t.Helper()
	c, err := triage.DefaultPolicy().Classify(score)
	if err != nil {
		t.Fatal(err)
	}
	v := &visit.Visit{
		PatientPhone: phone,
		SymptomsRaw:  "fever, cough",
		Symptoms:     []string{"fever", "cough"},
		RiskScore:    c.Score,
		RiskLevel:    c.Level,
		Tier:         c.Tier,
	}
	if err := svc.CreateVisit(context.Background(), v); err != nil {
		t.Fatalf("create visit: %v", err)
	}
	return v
}
