package policy

import (
	"time"

	"github.com/opensource-finance/praxis/internal/domain"
)

// Facts is the flattened view of a placement that policies see.
type Facts struct {
	InternshipID string

	Progress      int
	Status        string
	AverageScore  float64
	DaysRemaining int
	WorkingHours  int
	Salary        float64
	HasStudent    bool
	HasMentor     bool

	// ContractStatus is empty when the placement has no contract.
	ContractStatus      string
	ContractFullySigned bool

	EvaluationCount   int
	CompletionRate    int
	AveragePercentage float64
}

// BuildFacts derives facts from an internship, its most relevant contract
// and its evaluation statistics. c and st may be nil.
func BuildFacts(in *domain.Internship, c *domain.Contract, st *domain.Statistics, now time.Time) Facts {
	f := Facts{
		InternshipID:  in.ID,
		Progress:      in.Progress(now),
		Status:        string(in.Status),
		DaysRemaining: in.DaysRemaining(now),
		WorkingHours:  in.WorkingHours,
		Salary:        in.Salary,
		HasStudent:    in.Student.IsSet(),
		HasMentor:     in.Mentor.IsSet(),
	}
	if avg := in.AverageScore(); avg != nil {
		f.AverageScore = *avg
	}
	if c != nil {
		f.ContractStatus = string(c.Status)
		f.ContractFullySigned = c.IsFullySigned()
	}
	if st != nil {
		f.EvaluationCount = st.Total
		f.CompletionRate = st.CompletionRate
		if st.AveragePercent != nil {
			f.AveragePercentage = *st.AveragePercent
		}
	}
	return f
}

func (f Facts) activation() map[string]any {
	return map[string]any{
		"progress":              int64(f.Progress),
		"status":                f.Status,
		"average_score":         f.AverageScore,
		"days_remaining":        int64(f.DaysRemaining),
		"working_hours":         int64(f.WorkingHours),
		"salary":                f.Salary,
		"has_student":           f.HasStudent,
		"has_mentor":            f.HasMentor,
		"contract_status":       f.ContractStatus,
		"contract_fully_signed": f.ContractFullySigned,
		"evaluation_count":      int64(f.EvaluationCount),
		"completion_rate":       int64(f.CompletionRate),
		"average_percentage":    f.AveragePercentage,
	}
}
