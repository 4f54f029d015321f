package visit

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aarogya/queue/internal/domain/triage"
	"github.com/aarogya/queue/internal/platform/apperr"
	"github.com/aarogya/queue/internal/platform/events"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// Recorder receives ledger outcomes for metrics.
type Recorder interface {
	VisitCompleted(tier string)
	CompletionRejected(reason string)
}

// Service is the visit ledger.
type Service struct {
	repo      Repository
	logger    zerolog.Logger
	publisher events.Publisher
	recorder  Recorder
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// SetPublisher attaches the queue event publisher.
func (s *Service) SetPublisher(p events.Publisher) { s.publisher = p }

func (s *Service) SetRecorder(r Recorder) { s.recorder = r }

func (s *Service) publish(ctx context.Context, typ events.Type, v *Visit) {
	if s.publisher == nil {
		return
	}
	e := events.Event{Type: typ, Tier: string(v.Tier), VisitID: v.ID, At: time.Now().UTC()}
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.logger.Warn().Err(err).Str("event", string(typ)).Int64("visit_id", v.ID).
			Msg("queue event not published")
	}
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}

// CreateVisit records a new WAITING visit. ID, status and creation time are
// assigned by storage.
func (s *Service) CreateVisit(ctx context.Context, v *Visit) error {
	if err := v.Validate(); err != nil {
		return err
	}
	v.Status = StatusWaiting
	v.CompletedAt = nil
	if err := s.repo.Create(ctx, v); err != nil {
		return err
	}
	s.publish(ctx, events.VisitCreated, v)
	return nil
}

// CompleteVisit closes a WAITING visit. Completing a visit twice fails with
// InvalidState; an unknown id fails with NotFound.
func (s *Service) CompleteVisit(ctx context.Context, id int64, notes string, prescription *string, doctorID *int64) (*Visit, error) {
	notes = strings.TrimSpace(notes)
	if notes == "" {
		s.rejected("notes_missing")
		return nil, apperr.Validation("doctor notes are required")
	}
	if prescription != nil {
		p := strings.TrimSpace(*prescription)
		if p == "" {
			prescription = nil
		} else {
			prescription = &p
		}
	}

	v, err := s.repo.Complete(ctx, id, Completion{Notes: notes, Prescription: prescription, DoctorID: doctorID})
	if err != nil {
		switch apperr.KindOf(err) {
		case apperr.KindInvalidState:
			s.rejected("already_completed")
		case apperr.KindNotFound:
			s.rejected("not_found")
		}
		return nil, err
	}

	if s.recorder != nil {
		s.recorder.VisitCompleted(string(v.Tier))
	}
	s.publish(ctx, events.VisitCompleted, v)
	return v, nil
}

func (s *Service) rejected(reason string) {
	if s.recorder != nil {
		s.recorder.CompletionRejected(reason)
	}
}

// GetVisit returns nil, nil for an unknown id.
func (s *Service) GetVisit(ctx context.Context, id int64) (*Visit, error) {
	return s.repo.GetByID(ctx, id)
}

// ListWaiting returns the tier's live queue, head first.
func (s *Service) ListWaiting(ctx context.Context, tier triage.Tier) ([]*Visit, error) {
	if !tier.Valid() {
		return nil, apperr.Validation("invalid tier %q", tier)
	}
	return s.repo.ListWaiting(ctx, tier)
}

// ListCompleted returns the most recently completed visits, optionally for
// one tier only.
func (s *Service) ListCompleted(ctx context.Context, tier *triage.Tier, limit, offset int) ([]*Visit, error) {
	if tier != nil && !tier.Valid() {
		return nil, apperr.Validation("invalid tier %q", *tier)
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListCompleted(ctx, tier, clampLimit(limit), offset)
}

// ListHistory returns a patient's visits, newest first. A nil status means
// COMPLETED visits only.
func (s *Service) ListHistory(ctx context.Context, phone string, limit int, status *Status) ([]*Visit, error) {
	if strings.TrimSpace(phone) == "" {
		return nil, apperr.Validation("patient phone is required")
	}
	st := StatusCompleted
	if status != nil {
		if !status.Valid() {
			return nil, apperr.Validation("invalid status %q", *status)
		}
		st = *status
	}
	return s.repo.ListByPatient(ctx, phone, &st, clampLimit(limit), 0)
}

func (s *Service) CountWaiting(ctx context.Context, tier triage.Tier) (int, error) {
	if !tier.Valid() {
		return 0, apperr.Validation("invalid tier %q", tier)
	}
	return s.repo.CountWaiting(ctx, tier)
}

// ListMissingSummary returns up to limit visits that have no summary yet.
func (s *Service) ListMissingSummary(ctx context.Context, limit int) ([]*Visit, error) {
	return s.repo.ListMissingSummary(ctx, clampLimit(limit))
}

// SetSummary never replaces an existing summary.
func (s *Service) SetSummary(ctx context.Context, id int64, summary string) (bool, error) {
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return false, apperr.Validation("summary is required")
	}
	return s.repo.SetSummary(ctx, id, summary)
}
