package triage

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// HistoryEntry is one earlier completed visit handed to the summarizer.
type HistoryEntry struct {
	Symptoms    string     `json:"symptoms"`
	DoctorNotes string     `json:"doctor_notes,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

type SummaryInput struct {
	Symptoms string         `json:"symptoms"`
	Age      int            `json:"age"`
	Level    RiskLevel      `json:"risk_level"`
	History  []HistoryEntry `json:"history"`
}

// Summarizer writes the short clinical note shown to the doctor.
type Summarizer interface {
	Summarize(ctx context.Context, in SummaryInput) (string, error)
}

var summaryEmergencyWords = []string{"chest pain", "heart attack", "stroke", "bleeding", "unconscious", "severe"}

const presentingMaxRunes = 50

// RuleSummarizer builds a four line summary from the inputs alone.
type RuleSummarizer struct{}

func (RuleSummarizer) Summarize(_ context.Context, in SummaryInput) (string, error) {
	return RuleSummary(in), nil
}

func ageGroup(age int) string {
	switch {
	case age < 18:
		return "Pediatric"
	case age < 65:
		return "Adult"
	default:
		return "Elderly"
	}
}

func RuleSummary(in SummaryInput) string {
	emergency := containsAny(strings.ToLower(in.Symptoms), summaryEmergencyWords)

	presenting := []rune(in.Symptoms)
	ellipsis := ""
	if len(presenting) > presentingMaxRunes {
		presenting = presenting[:presentingMaxRunes]
		ellipsis = "..."
	}

	lines := make([]string, 0, 4)
	lines = append(lines, fmt.Sprintf("%s patient (%d years) presenting with %s%s.",
		ageGroup(in.Age), in.Age, string(presenting), ellipsis))

	if n := len(in.History); n > 0 {
		lines = append(lines, fmt.Sprintf("Previous visit history available (%d recorded visits).", n))
	} else {
		lines = append(lines, "No previous visit history on record.")
	}

	lines = append(lines, fmt.Sprintf("Risk assessment indicates %s urgency level.", Urgency(in.Level, emergency)))

	switch {
	case emergency:
		lines = append(lines, "Immediate medical evaluation strongly recommended.")
	case in.Level == RiskHigh:
		lines = append(lines, "Prompt medical evaluation recommended.")
	default:
		lines = append(lines, "Standard consultation and evaluation recommended.")
	}
	return strings.Join(lines, "\n")
}
