package doctor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/aarogya/queue/internal/domain/triage"
	"github.com/aarogya/queue/internal/platform/apperr"
	"github.com/aarogya/queue/internal/platform/auth"
)

const (
	MinCodeLength = 4
	maxCodeLength = 72
)

type Service struct {
	repo   Repository
	issuer *auth.Issuer
	cost   int
}

func NewService(repo Repository, issuer *auth.Issuer) *Service {
	return &Service{repo: repo, issuer: issuer, cost: bcrypt.DefaultCost}
}

func (s *Service) hashCode(code string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(code), s.cost)
	if err != nil {
		return "", fmt.Errorf("hash access code: %w", err)
	}
	return string(hashed), nil
}

func codeMatches(hash, code string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(code))
	if err == bcrypt.ErrMismatchedHashAndPassword {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("verify access code: %w", err)
	}
	return true, nil
}

// find returns the doctor of tier whose code is code, or nil.
func (s *Service) find(ctx context.Context, tier triage.Tier, code string) (*Doctor, error) {
	doctors, err := s.repo.ListByTier(ctx, tier)
	if err != nil {
		return nil, err
	}
	for _, d := range doctors {
		ok, err := codeMatches(d.AccessCodeHash, code)
		if err != nil {
			return nil, err
		}
		if ok {
			return d, nil
		}
	}
	return nil, nil
}

// Create adds a doctor. Codes identify a doctor within a tier, so a code
// already used in the same tier is rejected.
func (s *Service) Create(ctx context.Context, name string, tier triage.Tier, code string) (*Doctor, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Validation("doctor name is required")
	}
	if !tier.Valid() {
		return nil, apperr.Validation("invalid tier %q", tier)
	}
	if len(code) < MinCodeLength || len(code) > maxCodeLength {
		return nil, apperr.Validation("access code must have %d to %d characters", MinCodeLength, maxCodeLength)
	}

	existing, err := s.find(ctx, tier, code)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperr.Conflict("access code already in use for %s doctors", tier)
	}

	hash, err := s.hashCode(code)
	if err != nil {
		return nil, err
	}
	d := &Doctor{Name: name, Tier: tier, AccessCodeHash: hash}
	if err := s.repo.Create(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Service) List(ctx context.Context) ([]*Doctor, error) {
	return s.repo.List(ctx)
}

// Authenticate fails with Unauthorized when no doctor of tier has code.
func (s *Service) Authenticate(ctx context.Context, tier triage.Tier, code string) (*Doctor, error) {
	if !tier.Valid() {
		return nil, apperr.Validation("invalid tier %q", tier)
	}
	d, err := s.find(ctx, tier, code)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, apperr.Unauthorized("invalid access code")
	}
	return d, nil
}

type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Doctor    *Doctor   `json:"doctor"`
}

func (s *Service) Login(ctx context.Context, tier triage.Tier, code string) (*LoginResult, error) {
	d, err := s.Authenticate(ctx, tier, code)
	if err != nil {
		return nil, err
	}
	session := &auth.Session{DoctorID: d.ID, Name: d.Name, Tier: string(d.Tier)}
	token, err := s.issuer.Issue(session)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, ExpiresAt: session.ExpiresAt, Doctor: d}, nil
}

// Seed installs roster into an empty directory and reports how many doctors
// were added. A directory that already has doctors is left alone.
func (s *Service) Seed(ctx context.Context, roster []SeedDoctor) (int, error) {
	existing, err := s.repo.List(ctx)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		return 0, nil
	}
	for i, sd := range roster {
		if _, err := s.Create(ctx, sd.Name, sd.Tier, sd.Code); err != nil {
			return i, fmt.Errorf("seed %s: %w", sd.Name, err)
		}
	}
	return len(roster), nil
}
