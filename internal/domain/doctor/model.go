package doctor

import (
	"time"

	"github.com/aarogya/queue/internal/domain/triage"
)

// Doctor signs in with their tier and a short access code. Only the bcrypt
// hash of the code is stored.
type Doctor struct {
	ID             int64       `json:"id"`
	Name           string      `json:"name"`
	Tier           triage.Tier `json:"tier"`
	AccessCodeHash string      `json:"-"`
	CreatedAt      time.Time   `json:"created_at"`
}

// SeedDoctor is a directory entry created by the seed command.
type SeedDoctor struct {
	Name string
	Tier triage.Tier
	Code string
}

// SampleDoctors is the demo roster installed into an empty directory.
var SampleDoctors = []SeedDoctor{
	{Name: "Dr. Priya Sharma", Tier: triage.TierSenior, Code: "1234"},
	{Name: "Dr. Amit Kumar", Tier: triage.TierJunior, Code: "5678"},
	{Name: "Dr. Sunita Patel", Tier: triage.TierSenior, Code: "9999"},
}
