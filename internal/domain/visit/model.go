package visit

import (
	"fmt"
	"strings"
	"time"

	"github.com/aarogya/queue/internal/domain/triage"
	"github.com/aarogya/queue/internal/platform/apperr"
)

type Status string

const (
	StatusWaiting   Status = "WAITING"
	StatusCompleted Status = "COMPLETED"
)

func (s Status) Valid() bool {
	return s == StatusWaiting || s == StatusCompleted
}

func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", apperr.Validation("unknown visit status %q", s)
	}
	return st, nil
}

// Visit is one check-in. Level and tier are fixed when the visit is created;
// the only transition is WAITING to COMPLETED.
type Visit struct {
	ID           int64            `json:"id"`
	PatientPhone string           `json:"patient_phone"`
	SymptomsRaw  string           `json:"symptoms_raw"`
	Symptoms     []string         `json:"symptoms_structured"`
	RiskScore    float64          `json:"risk_score"`
	RiskLevel    triage.RiskLevel `json:"risk_level"`
	Tier         triage.Tier      `json:"assigned_tier"`
	Status       Status           `json:"status"`
	AISummary    *string          `json:"ai_summary,omitempty"`
	DoctorNotes  *string          `json:"doctor_notes,omitempty"`
	Prescription *string          `json:"prescription,omitempty"`
	CompletedBy  *int64           `json:"completed_by,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	CompletedAt  *time.Time       `json:"completed_at,omitempty"`

	PatientName *string `json:"patient_name,omitempty"`
	PatientYOB  *int    `json:"patient_yob,omitempty"`
}

// Token is the ticket number printed for the patient.
func (v *Visit) Token() string {
	return FormatToken(v.ID)
}

func FormatToken(id int64) string {
	return fmt.Sprintf("T-%08d", id)
}

// Validate checks a visit about to be created.
func (v *Visit) Validate() error {
	if strings.TrimSpace(v.PatientPhone) == "" {
		return apperr.Validation("patient phone is required")
	}
	if strings.TrimSpace(v.SymptomsRaw) == "" {
		return apperr.Validation("symptoms are required")
	}
	if !triage.ValidScore(v.RiskScore) {
		return apperr.Validation("risk score must be between 0 and 1, got %v", v.RiskScore)
	}
	if !v.RiskLevel.Valid() {
		return apperr.Validation("invalid risk level %q", v.RiskLevel)
	}
	if !v.Tier.Valid() {
		return apperr.Validation("invalid tier %q", v.Tier)
	}
	return nil
}
