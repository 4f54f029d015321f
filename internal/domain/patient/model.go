package patient

import "time"

// Patient is identified by phone number; the year of birth doubles as the
// kiosk's lightweight identity check.
type Patient struct {
	Phone     string    `json:"phone"`
	YOB       int       `json:"yob"`
	Name      *string   `json:"name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// AgeAt is the age in whole years as the kiosk computes it, ignoring the
// birthday within the year.
func (p *Patient) AgeAt(now time.Time) int {
	return now.Year() - p.YOB
}
