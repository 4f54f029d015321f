package triage

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// Collaborator names used in logs and metrics.
const (
	CollaboratorScorer     = "risk_scorer"
	CollaboratorSummarizer = "summary"
)

// FallbackRecorder counts collaborator degradations.
type FallbackRecorder interface {
	CollaboratorFallback(collaborator string)
}

// FallbackScorer calls the primary scorer and answers with the keyword scorer
// when the primary is absent, fails, or returns a score outside [0, 1]. It
// never returns an error.
type FallbackScorer struct {
	primary  Scorer
	local    KeywordScorer
	logger   zerolog.Logger
	recorder FallbackRecorder
}

// NewFallbackScorer accepts a nil primary; every call then goes local.
func NewFallbackScorer(primary Scorer, logger zerolog.Logger) *FallbackScorer {
	return &FallbackScorer{primary: primary, logger: logger}
}

func (f *FallbackScorer) SetRecorder(r FallbackRecorder) { f.recorder = r }

func (f *FallbackScorer) Score(ctx context.Context, symptoms string, age int) (float64, error) {
	if f.primary != nil {
		score, err := f.primary.Score(ctx, symptoms, age)
		if err == nil && !ValidScore(score) {
			err = fmt.Errorf("score %v outside [0, 1]", score)
		}
		if err == nil {
			return score, nil
		}
		degraded(f.logger, f.recorder, CollaboratorScorer, err)
	}
	return f.local.Score(ctx, symptoms, age)
}

func degraded(logger zerolog.Logger, recorder FallbackRecorder, name string, err error) {
	logger.Warn().Err(err).Str("collaborator", name).Msg("collaborator failed, using local fallback")
	if recorder != nil {
		recorder.CollaboratorFallback(name)
	}
}

// FallbackSummarizer mirrors FallbackScorer for summaries. A blank remote
// summary counts as a failure.
type FallbackSummarizer struct {
	primary  Summarizer
	logger   zerolog.Logger
	recorder FallbackRecorder
}

func NewFallbackSummarizer(primary Summarizer, logger zerolog.Logger) *FallbackSummarizer {
	return &FallbackSummarizer{primary: primary, logger: logger}
}

func (f *FallbackSummarizer) SetRecorder(r FallbackRecorder) { f.recorder = r }

func (f *FallbackSummarizer) Summarize(ctx context.Context, in SummaryInput) (string, error) {
	if f.primary != nil {
		summary, err := f.primary.Summarize(ctx, in)
		if err == nil && strings.TrimSpace(summary) == "" {
			err = fmt.Errorf("empty summary")
		}
		if err == nil {
			return strings.TrimSpace(summary), nil
		}
		degraded(f.logger, f.recorder, CollaboratorSummarizer, err)
	}
	return RuleSummary(in), nil
}
