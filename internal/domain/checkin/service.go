// Package checkin runs the kiosk flow: identify the patient, score and
// classify the complaint, summarise it for the doctor and place the visit in
// its tier's queue.
package checkin

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/aarogya/queue/internal/domain/patient"
	"github.com/aarogya/queue/internal/domain/triage"
	"github.com/aarogya/queue/internal/domain/visit"
	"github.com/aarogya/queue/internal/platform/apperr"
)

const (
	DefaultHistoryLimit = 3
	maxAge              = 150
)

type Patients interface {
	Register(ctx context.Context, phone string, yob int, name *string) (*patient.Patient, bool, error)
	UpdateName(ctx context.Context, phone, name string) error
	Now() time.Time
}

type Visits interface {
	CreateVisit(ctx context.Context, v *visit.Visit) error
	GetVisit(ctx context.Context, id int64) (*visit.Visit, error)
	ListHistory(ctx context.Context, phone string, limit int, status *visit.Status) ([]*visit.Visit, error)
}

type Queue interface {
	QueuePosition(ctx context.Context, tier triage.Tier) (int, error)
	WaitFor(position int) time.Duration
}

// Recorder counts accepted check-ins.
type Recorder interface {
	CheckIn(tier, level string)
}

type Request struct {
	Phone       string   `json:"phone"`
	YOB         int      `json:"yob"`
	Name        *string  `json:"name,omitempty"`
	Age         *int     `json:"age,omitempty"`
	Symptoms    string   `json:"symptoms"`
	SymptomList []string `json:"symptom_list,omitempty"`
}

// Ticket is what the kiosk prints. QueuePosition counts every visit waiting
// in the tier right after this one was added, this one included.
type Ticket struct {
	Visit                *visit.Visit `json:"visit"`
	Token                string       `json:"token"`
	NewPatient           bool         `json:"new_patient"`
	QueuePosition        int          `json:"queue_position"`
	EstimatedWaitMinutes int          `json:"estimated_wait_minutes"`
}

type Service struct {
	patients     Patients
	visits       Visits
	queue        Queue
	scorer       triage.Scorer
	summarizer   triage.Summarizer
	policy       triage.Policy
	historyLimit int
	logger       zerolog.Logger
	recorder     Recorder
}

type Config struct {
	Policy       triage.Policy
	HistoryLimit int
}

func NewService(patients Patients, visits Visits, queue Queue, scorer triage.Scorer,
	summarizer triage.Summarizer, cfg Config, logger zerolog.Logger) *Service {
	if cfg.HistoryLimit < 0 {
		cfg.HistoryLimit = 0
	}
	return &Service{
		patients:     patients,
		visits:       visits,
		queue:        queue,
		scorer:       scorer,
		summarizer:   summarizer,
		policy:       cfg.Policy,
		historyLimit: cfg.HistoryLimit,
		logger:       logger,
	}
}

func (s *Service) SetRecorder(r Recorder) { s.recorder = r }

func symptomsOf(req Request) (string, []string) {
	list := lo.Compact(lo.Map(req.SymptomList, func(item string, _ int) string {
		return strings.TrimSpace(item)
	}))
	list = lo.UniqBy(list, strings.ToLower)

	raw := strings.TrimSpace(req.Symptoms)
	if raw == "" {
		raw = strings.Join(list, ", ")
	}
	if len(list) == 0 {
		list = triage.SplitSymptoms(raw)
	}
	return raw, list
}

func (s *Service) CheckIn(ctx context.Context, req Request) (*Ticket, error) {
	raw, list := symptomsOf(req)
	if raw == "" {
		return nil, apperr.Validation("symptoms are required")
	}
	if req.Age != nil && (*req.Age < 0 || *req.Age > maxAge) {
		return nil, apperr.Validation("age must be between 0 and %d", maxAge)
	}

	p, created, err := s.patients.Register(ctx, req.Phone, req.YOB, req.Name)
	if err != nil {
		return nil, err
	}
	if !created {
		if p.YOB != req.YOB {
			return nil, apperr.Unauthorized("phone number and year of birth do not match")
		}
		s.refreshName(ctx, p, req.Name)
	}

	age := p.AgeAt(s.patients.Now())
	if req.Age != nil {
		age = *req.Age
	}

	score, err := s.scorer.Score(ctx, raw, age)
	if err != nil {
		return nil, err
	}
	class, err := s.policy.Classify(score)
	if err != nil {
		return nil, err
	}

	v := &visit.Visit{
		PatientPhone: p.Phone,
		SymptomsRaw:  raw,
		Symptoms:     list,
		RiskScore:    class.Score,
		RiskLevel:    class.Level,
		Tier:         class.Tier,
		AISummary:    s.summarize(ctx, p.Phone, raw, age, class.Level, 0),
	}
	if err := s.visits.CreateVisit(ctx, v); err != nil {
		return nil, err
	}
	if s.recorder != nil {
		s.recorder.CheckIn(string(v.Tier), string(v.RiskLevel))
	}

	// The visit is stored; a failed count must not fail the check-in.
	pos, err := s.queue.QueuePosition(ctx, v.Tier)
	if err != nil {
		s.logger.Warn().Err(err).Int64("visit_id", v.ID).Msg("queue position unavailable")
		pos = 0
	}

	s.logger.Info().
		Int64("visit_id", v.ID).
		Str("tier", string(v.Tier)).
		Str("risk_level", string(v.RiskLevel)).
		Int("queue_position", pos).
		Msg("patient checked in")

	return &Ticket{
		Visit:                v,
		Token:                v.Token(),
		NewPatient:           created,
		QueuePosition:        pos,
		EstimatedWaitMinutes: int(s.queue.WaitFor(pos).Minutes()),
	}, nil
}

// refreshName stores a newly given name. Failing to do so does not block the
// check-in.
func (s *Service) refreshName(ctx context.Context, p *patient.Patient, name *string) {
	if name == nil {
		return
	}
	n := strings.TrimSpace(*name)
	if n == "" || (p.Name != nil && *p.Name == n) {
		return
	}
	if err := s.patients.UpdateName(ctx, p.Phone, n); err != nil {
		s.logger.Warn().Err(err).Str("phone", p.Phone).Msg("patient name not updated")
		return
	}
	p.Name = &n
}

// summarize returns nil when no summary could be produced. A non-zero before
// limits the history to visits older than that id.
func (s *Service) summarize(ctx context.Context, phone, symptoms string, age int, level triage.RiskLevel, before int64) *string {
	in := triage.SummaryInput{Symptoms: symptoms, Age: age, Level: level}

	if s.historyLimit > 0 {
		past, err := s.visits.ListHistory(ctx, phone, s.historyLimit, nil)
		if err != nil {
			s.logger.Warn().Err(err).Str("phone", phone).Msg("visit history unavailable for summary")
		}
		for _, v := range past {
			if before > 0 && v.ID >= before {
				continue
			}
			entry := triage.HistoryEntry{Symptoms: v.SymptomsRaw, CompletedAt: v.CompletedAt}
			if v.DoctorNotes != nil {
				entry.DoctorNotes = *v.DoctorNotes
			}
			in.History = append(in.History, entry)
		}
	}

	summary, err := s.summarizer.Summarize(ctx, in)
	if err != nil || strings.TrimSpace(summary) == "" {
		s.logger.Warn().Err(err).Msg("visit created without summary")
		return nil
	}
	return &summary
}

// StatusView is the kiosk's "check my place" answer. It leaves out clinical
// content.
type StatusView struct {
	VisitID              int64            `json:"visit_id"`
	Token                string           `json:"token"`
	Status               visit.Status     `json:"status"`
	Tier                 triage.Tier      `json:"tier"`
	RiskLevel            triage.RiskLevel `json:"risk_level"`
	QueuePosition        int              `json:"queue_position"`
	EstimatedWaitMinutes int              `json:"estimated_wait_minutes"`
	CreatedAt            time.Time        `json:"created_at"`
	CompletedAt          *time.Time       `json:"completed_at,omitempty"`
}

// Status reports a visit with the current depth of its tier. Completed
// visits report zero.
func (s *Service) Status(ctx context.Context, visitID int64) (*StatusView, error) {
	v, err := s.visits.GetVisit(ctx, visitID)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, apperr.NotFound("visit %d not found", visitID)
	}

	view := &StatusView{
		VisitID:     v.ID,
		Token:       v.Token(),
		Status:      v.Status,
		Tier:        v.Tier,
		RiskLevel:   v.RiskLevel,
		CreatedAt:   v.CreatedAt,
		CompletedAt: v.CompletedAt,
	}
	if v.Status == visit.StatusWaiting {
		pos, err := s.queue.QueuePosition(ctx, v.Tier)
		if err != nil {
			return nil, err
		}
		view.QueuePosition = pos
		view.EstimatedWaitMinutes = int(s.queue.WaitFor(pos).Minutes())
	}
	return view, nil
}
