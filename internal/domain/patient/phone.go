package patient

import (
	"strings"

	"github.com/nyaruka/phonenumbers"

	"github.com/aarogya/queue/internal/platform/apperr"
)

// DefaultRegion is used for numbers typed without a country code.
const DefaultRegion = "IN"

// NormalizePhone parses raw in the given default region and returns it in
// E.164 form, so "98765 43210" and "+91-9876543210" name the same patient.
func NormalizePhone(raw, region string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", apperr.Validation("phone number is required")
	}
	if region == "" {
		region = DefaultRegion
	}
	num, err := phonenumbers.Parse(raw, strings.ToUpper(region))
	if err != nil {
		return "", apperr.Validation("invalid phone number %q", raw)
	}
	if !phonenumbers.IsValidNumber(num) {
		return "", apperr.Validation("invalid phone number %q", raw)
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}
