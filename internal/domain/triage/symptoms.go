package triage

import (
	"regexp"
	"strings"

	"github.com/samber/lo"
)

var symptomSeparators = regexp.MustCompile(`(?i)[,;\n]|\s+and\s+`)

// SplitSymptoms turns free text into a list of distinct symptoms, keeping the
// first spelling of duplicates that differ only in case.
func SplitSymptoms(text string) []string {
	parts := lo.Map(symptomSeparators.Split(text, -1), func(s string, _ int) string {
		return strings.TrimSpace(s)
	})
	parts = lo.Compact(parts)
	return lo.UniqBy(parts, strings.ToLower)
}
