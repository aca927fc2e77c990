package domain

import "time"

// Policy is an administrator-defined placement check expressed in CEL over
// internship facts. Its score is mapped to an outcome through bands.
type Policy struct {
	ID          string `json:"id"`
	TenantID    string `json:"tenantId"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Version     string `json:"version"`

	Expression string       `json:"expression"`
	Bands      []PolicyBand `json:"bands"`

	// Weight of the policy in the combined risk score.
	Weight  float64 `json:"weight"`
	Enabled bool    `json:"enabled"`

	CreatedAt time.Time `json:"createdAt,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// PolicyBand maps a score range [LowerLimit, UpperLimit) to an outcome.
type PolicyBand struct {
	LowerLimit *float64 `json:"lowerLimit,omitempty"`
	UpperLimit *float64 `json:"upperLimit,omitempty"`
	Outcome    string   `json:"outcome"`
	Reason     string   `json:"reason"`
}

// PolicyResult is the output of one policy for one internship.
type PolicyResult struct {
	PolicyID     string  `json:"policyId"`
	InternshipID string  `json:"internshipId"`
	Outcome      string  `json:"outcome"`
	Score        float64 `json:"score"`
	Reason       string  `json:"reason"`
	Weight       float64 `json:"weight"`
	ProcessMs    int64   `json:"processMs"`
}

// Policy outcomes.
const (
	OutcomeOK    = ".ok"
	OutcomeWatch = ".watch"
	OutcomeRisk  = ".risk"
	OutcomeError = ".err"
)

// Assessment combines the policy results for one internship.
type Assessment struct {
	ID           string         `json:"id"`
	TenantID     string         `json:"tenantId"`
	InternshipID string         `json:"internshipId"`
	Score        float64        `json:"score"`
	AtRisk       bool           `json:"atRisk"`
	Threshold    float64        `json:"threshold"`
	Results      []PolicyResult `json:"results"`
	Reasons      []string       `json:"reasons,omitempty"`
	AssessedAt   time.Time      `json:"assessedAt"`
}

// Assessment status labels used by the API.
const (
	AssessmentOnTrack = "ON_TRACK"
	AssessmentAtRisk  = "AT_RISK"
)

// Label returns AT_RISK or ON_TRACK.
func (a *Assessment) Label() string {
	if a.AtRisk {
		return AssessmentAtRisk
	}
	return AssessmentOnTrack
}
