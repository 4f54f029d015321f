//go:build integration

package integration

import (
	"context"
	"sync"
	"testing"

	"github.com/aarogya/queue/internal/domain/patient"
	"github.com/aarogya/queue/internal/platform/apperr"
)

func TestPatient_CreateRace(t *testing.T) {
	resetDB(t)
	svc := newPatientService()
	ctx := context.Background()

	const kiosks = 10
	var wg sync.WaitGroup
	errs := make(chan error, kiosks)
	for i := 0; i < kiosks; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Create(ctx, "9876543210", 1980, nil)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	created := 0
	for err := range errs {
		switch {
		case err == nil:
			created++
		case !apperr.IsKind(err, apperr.KindConflict):
			t.Errorf("unexpected error %v", err)
		}
	}
	if created != 1 {
		t.Errorf("expected exactly one create to succeed, got %d", created)
	}

	var rows int
	globalPool.QueryRow(ctx, `SELECT COUNT(*) FROM patients`).Scan(&rows)
	if rows != 1 {
		t.Errorf("expected one stored patient, got %d", rows)
	}
}

func TestPatient_RegisterRace(t *testing.T) {
	resetDB(t)
	svc := newPatientService()
	ctx := context.Background()

	const kiosks = 10
	var wg sync.WaitGroup
	var mu sync.Mutex
	newCount := 0
	for i := 0; i < kiosks; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, created, err := svc.Register(ctx, "+91 98123 45678", 1975, nil)
			if err != nil {
				t.Errorf("register: %v", err)
				return
			}
			if p.Phone != "+919812345678" || p.YOB != 1975 {
				t.Errorf("unexpected patient %+v", p)
			}
			if created {
				mu.Lock()
				newCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if newCount != 1 {
		t.Errorf("expected exactly one registration to create the patient, got %d", newCount)
	}
}

func TestPatient_VerifyAndRename(t *testing.T) {
	resetDB(t)
	svc := newPatientService()
	ctx := context.Background()
	registerPatient(t, "9876543210", 1990)

	if err := svc.UpdateName(ctx, "9876543210", "Kavya"); err != nil {
		t.Fatalf("UpdateName: %v", err)
	}
	p, err := svc.Verify(ctx, "9876543210", 1990)
	if err != nil || p == nil || p.Name == nil || *p.Name != "Kavya" {
		t.Fatalf("Verify = %+v, %v", p, err)
	}
	if p, _ := svc.Verify(ctx, "9876543210", 1991); p != nil {
		t.Error("verify accepted a wrong year of birth")
	}
	if err := svc.UpdateName(ctx, "9812345678", "Nobody"); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestPatient_YOBConstraint(t *testing.T) {
	resetDB(t)
	repo := patient.NewRepoPG(globalPool)
	err := repo.Create(context.Background(), &patient.Patient{Phone: "+919876543210", YOB: 1800})
	if err == nil {
		t.Error("storage accepted a year of birth before 1900")
	}
}

func TestPatient_List(t *testing.T) {
	resetDB(t)
	svc := newPatientService()
	registerPatient(t, "9876543210", 1980)
	registerPatient(t, "9812345678", 1990)

	all, err := svc.List(context.Background(), 10, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 patients, got %d", len(all))
	}
	if all[0].Phone != "+919812345678" {
		t.Errorf("expected newest registration first, got %s", all[0].Phone)
	}

	rest, _ := svc.List(context.Background(), 10, 1)
	if len(rest) != 1 || rest[0].Phone != "+919876543210" {
		t.Errorf("unexpected offset page %+v", rest)
	}
}
