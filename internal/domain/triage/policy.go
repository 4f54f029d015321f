// Package triage turns a risk score into a risk level and a doctor tier, and
// hosts the risk scorer and summary collaborators together with their local
// fallbacks.
package triage

import (
	"math"
	"strings"

	"github.com/aarogya/queue/internal/platform/apperr"
)

type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

func (l RiskLevel) Valid() bool {
	switch l {
	case RiskLow, RiskMedium, RiskHigh:
		return true
	}
	return false
}

// ParseRiskLevel accepts any letter case.
func ParseRiskLevel(s string) (RiskLevel, error) {
	l := RiskLevel(strings.ToUpper(strings.TrimSpace(s)))
	if !l.Valid() {
		return "", apperr.Validation("unknown risk level %q", s)
	}
	return l, nil
}

type Tier string

const (
	TierJunior Tier = "JUNIOR"
	TierSenior Tier = "SENIOR"
)

// Tiers lists every doctor tier in display order.
var Tiers = []Tier{TierJunior, TierSenior}

func (t Tier) Valid() bool {
	return t == TierJunior || t == TierSenior
}

// ParseTier accepts any letter case, so "senior" in a URL resolves to SENIOR.
func ParseTier(s string) (Tier, error) {
	t := Tier(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", apperr.Validation("unknown tier %q", s)
	}
	return t, nil
}

const (
	DefaultHighThreshold   = 0.7
	DefaultMediumThreshold = 0.4
)

// Policy maps scores onto levels and tiers. Both thresholds are exclusive:
// a score equal to High is MEDIUM and routed to the JUNIOR tier.
type Policy struct {
	High   float64
	Medium float64
}

func DefaultPolicy() Policy {
	return Policy{High: DefaultHighThreshold, Medium: DefaultMediumThreshold}
}

func NewPolicy(high, medium float64) (Policy, error) {
	p := Policy{High: high, Medium: medium}
	if err := p.Validate(); err != nil {
		return Policy{}, err
	}
	return p, nil
}

func (p Policy) Validate() error {
	if !(p.Medium >= 0 && p.Medium < p.High && p.High <= 1) {
		return apperr.Validation("thresholds must satisfy 0 <= medium < high <= 1, got medium=%v high=%v", p.Medium, p.High)
	}
	return nil
}

func (p Policy) RiskLevel(score float64) RiskLevel {
	switch {
	case score > p.High:
		return RiskHigh
	case score > p.Medium:
		return RiskMedium
	default:
		return RiskLow
	}
}

func (p Policy) Tier(score float64) Tier {
	if score > p.High {
		return TierSenior
	}
	return TierJunior
}

// Classification is the stored outcome of triage for one visit.
type Classification struct {
	Score float64   `json:"risk_score"`
	Level RiskLevel `json:"risk_level"`
	Tier  Tier      `json:"tier"`
}

// ValidScore reports whether score is a finite value in [0, 1].
func ValidScore(score float64) bool {
	return !math.IsNaN(score) && score >= 0 && score <= 1
}

func (p Policy) Classify(score float64) (Classification, error) {
	if !ValidScore(score) {
		return Classification{}, apperr.Validation("risk score %v outside [0, 1]", score)
	}
	return Classification{Score: score, Level: p.RiskLevel(score), Tier: p.Tier(score)}, nil
}

// Urgency is the wording used in visit summaries. An emergency keyword raises
// any level to "high".
func Urgency(level RiskLevel, emergency bool) string {
	switch {
	case level == RiskHigh || emergency:
		return "high"
	case level == RiskMedium:
		return "moderate"
	default:
		return "standard"
	}
}
