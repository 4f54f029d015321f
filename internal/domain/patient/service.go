package patient

import (
	"context"
	"strings"
	"time"

	"github.com/aarogya/queue/internal/platform/apperr"
)

const MinYOB = 1900

const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

type Service struct {
	repo   Repository
	region string
	now    func() time.Time
}

func NewService(repo Repository, region string) *Service {
	return &Service{repo: repo, region: region, now: time.Now}
}

// Now is the clock used for year-of-birth validation and age derivation.
func (s *Service) Now() time.Time { return s.now() }

func (s *Service) Normalize(phone string) (string, error) {
	return NormalizePhone(phone, s.region)
}

func (s *Service) validateYOB(yob int) error {
	if yob < MinYOB || yob > s.now().Year() {
		return apperr.Validation("year of birth must be between %d and %d", MinYOB, s.now().Year())
	}
	return nil
}

func cleanName(name *string) *string {
	if name == nil {
		return nil
	}
	n := strings.TrimSpace(*name)
	if n == "" {
		return nil
	}
	return &n
}

// GetByPhone returns nil, nil when the patient is unknown.
func (s *Service) GetByPhone(ctx context.Context, phone string) (*Patient, error) {
	normalized, err := s.Normalize(phone)
	if err != nil {
		return nil, err
	}
	return s.repo.GetByPhone(ctx, normalized)
}

// Create fails with a conflict when the phone is already registered.
func (s *Service) Create(ctx context.Context, phone string, yob int, name *string) (*Patient, error) {
	normalized, err := s.Normalize(phone)
	if err != nil {
		return nil, err
	}
	if err := s.validateYOB(yob); err != nil {
		return nil, err
	}
	p := &Patient{Phone: normalized, YOB: yob, Name: cleanName(name)}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) UpdateName(ctx context.Context, phone, name string) error {
	normalized, err := s.Normalize(phone)
	if err != nil {
		return err
	}
	n := cleanName(&name)
	if n == nil {
		return apperr.Validation("name is required")
	}
	return s.repo.UpdateName(ctx, normalized, *n)
}

// Verify returns the patient only when both phone and year of birth match,
// and nil otherwise.
func (s *Service) Verify(ctx context.Context, phone string, yob int) (*Patient, error) {
	p, err := s.GetByPhone(ctx, phone)
	if err != nil || p == nil {
		return nil, err
	}
	if p.YOB != yob {
		return nil, nil
	}
	return p, nil
}

// Register returns the patient for phone, creating it when absent. Two
// kiosks registering the same phone concurrently both get the stored row.
// The returned patient may carry a different yob or name than requested;
// callers decide what a mismatch means.
func (s *Service) Register(ctx context.Context, phone string, yob int, name *string) (*Patient, bool, error) {
	normalized, err := s.Normalize(phone)
	if err != nil {
		return nil, false, err
	}
	if err := s.validateYOB(yob); err != nil {
		return nil, false, err
	}

	p := &Patient{Phone: normalized, YOB: yob, Name: cleanName(name)}
	created, err := s.repo.CreateIfAbsent(ctx, p)
	if err != nil {
		return nil, false, err
	}
	if created {
		return p, true, nil
	}

	existing, err := s.repo.GetByPhone(ctx, normalized)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		return nil, false, apperr.NotFound("patient %s vanished during registration", normalized)
	}
	return existing, false, nil
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Patient, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, limit, offset)
}
