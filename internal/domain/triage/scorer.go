package triage

import (
	"context"
	"strings"
)

// Scorer estimates how urgent a presentation is, in [0, 1].
type Scorer interface {
	Score(ctx context.Context, symptoms string, age int) (float64, error)
}

var (
	chestWords     = []string{"chest", "heart", "cardiac"}
	breathingWords = []string{"breath", "breathing", "shortness"}
	feverWords     = []string{"fever", "temperature", "hot"}
	headacheWords  = []string{"head", "headache", "migraine"}
	emergencyWords = []string{"heart attack", "stroke", "unconscious", "bleeding"}
)

// Features are the keyword signals the local scorer reads from free text.
type Features struct {
	AgeNormalized float64
	ChestPain     bool
	Breathing     bool
	Fever         bool
	Headache      bool
	Emergency     bool
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

func ExtractFeatures(symptoms string, age int) Features {
	text := strings.ToLower(symptoms)
	return Features{
		AgeNormalized: float64(age) / 100,
		ChestPain:     containsAny(text, chestWords),
		Breathing:     containsAny(text, breathingWords),
		Fever:         containsAny(text, feverWords),
		Headache:      containsAny(text, headacheWords),
		Emergency:     containsAny(text, emergencyWords),
	}
}

func weight(on bool, w float64) float64 {
	if on {
		return w
	}
	return 0
}

// KeywordScorer is the deterministic scorer used when no remote model is
// configured or the remote one misbehaves. Headache is extracted but carries
// no weight.
type KeywordScorer struct{}

func (KeywordScorer) Score(_ context.Context, symptoms string, age int) (float64, error) {
	f := ExtractFeatures(symptoms, age)
	score := f.AgeNormalized*0.3 +
		weight(f.ChestPain, 0.4) +
		weight(f.Breathing, 0.3) +
		weight(f.Emergency, 0.8) +
		weight(f.Fever, 0.1)
	return clamp(score), nil
}

func clamp(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
