package api

import (
	"time"

	"github.com/opensource-finance/praxis/internal/domain"
)

// nearExpirationDays is the window in which contract views flag expiry.
const nearExpirationDays = 30

type batchView struct {
	Batch   *domain.Batch `json:"batch"`
	Metrics batchMetrics  `json:"metrics"`
}

type batchMetrics struct {
	Phase                domain.BatchStatus `json:"phase"`
	AvailableSlots       int                `json:"availableSlots"`
	EnrollmentPercentage int                `json:"enrollmentPercentage"`
	IsFull               bool               `json:"isFull"`
	RegistrationOpen     bool               `json:"registrationOpen"`
	CanRegister          bool               `json:"canRegister"`
	DurationDays         int                `json:"durationDays"`
}

func viewBatch(b *domain.Batch, now time.Time) batchView {
	return batchView{
		Batch: b,
		Metrics: batchMetrics{
			Phase:                b.Phase(now),
			AvailableSlots:       b.AvailableSlots(),
			EnrollmentPercentage: b.EnrollmentPercentage(),
			IsFull:               b.IsFull(),
			RegistrationOpen:     b.IsRegistrationOpen(now),
			CanRegister:          b.CanRegister(now),
			DurationDays:         b.DurationDays(),
		},
	}
}

type internshipView struct {
	Internship *domain.Internship `json:"internship"`
	Metrics    internshipMetrics  `json:"metrics"`
}

type internshipMetrics struct {
	Progress      int      `json:"progress"`
	DaysRemaining int      `json:"daysRemaining"`
	DurationDays  int      `json:"durationDays"`
	DurationWeeks int      `json:"durationWeeks"`
	AverageScore  *float64 `json:"averageScore"`
	Assigned      bool     `json:"assigned"`
	Terminal      bool     `json:"terminal"`
}

func viewInternship(in *domain.Internship, now time.Time) internshipView {
	return internshipView{
		Internship: in,
		Metrics: internshipMetrics{
			Progress:      in.Progress(now),
			DaysRemaining: in.DaysRemaining(now),
			DurationDays:  in.DurationDays(),
			DurationWeeks: in.DurationWeeks(),
			AverageScore:  in.AverageScore(),
			Assigned:      in.IsAssigned(),
			Terminal:      in.IsTerminal(),
		},
	}
}

type contractView struct {
	Contract *domain.Contract `json:"contract"`
	Metrics  contractMetrics  `json:"metrics"`
}

type contractMetrics struct {
	SignatureProgress int     `json:"signatureProgress"`
	SignedCount       int     `json:"signedCount"`
	FullySigned       bool    `json:"fullySigned"`
	CanActivate       bool    `json:"canActivate"`
	DaysRemaining     int     `json:"daysRemaining"`
	NearExpiration    bool    `json:"nearExpiration"`
	Expired           bool    `json:"expired"`
	DurationDays      int     `json:"durationDays"`
	TotalValue        float64 `json:"totalValue"`
}

func viewContract(c *domain.Contract, now time.Time) contractView {
	return contractView{
		Contract: c,
		Metrics: contractMetrics{
			SignatureProgress: c.SignatureProgress(),
			SignedCount:       c.SignedCount(),
			FullySigned:       c.IsFullySigned(),
			CanActivate:       c.CanActivate(),
			DaysRemaining:     c.DaysRemaining(now),
			NearExpiration:    c.IsNearExpiration(now, nearExpirationDays),
			Expired:           c.HasExpired(now),
			DurationDays:      c.DurationDays(),
			TotalValue:        c.TotalContractValue(),
		},
	}
}

type evaluationView struct {
	Evaluation *domain.Evaluation `json:"evaluation"`
	Metrics    evaluationMetrics  `json:"metrics"`
}

type evaluationMetrics struct {
	Percent           int                     `json:"percent"`
	Grade             domain.LetterGrade      `json:"grade"`
	PerformanceLevel  domain.PerformanceLevel `json:"performanceLevel"`
	AverageSkillScore *float64                `json:"averageSkillScore"`
	EffectiveTotal    *float64                `json:"effectiveTotal"`
	MissingCriteria   []domain.Criterion      `json:"missingCriteria"`
	Complete          bool                    `json:"complete"`
	Overdue           bool                    `json:"overdue"`
	TopSkills         []domain.SkillScore     `json:"topSkills"`
	WeakestSkills     []domain.SkillScore     `json:"weakestSkills"`
}

func viewEvaluation(e *domain.Evaluation, now time.Time) evaluationView {
	missing := e.MissingCriteria()
	if missing == nil {
		missing = []domain.Criterion{}
	}
	return evaluationView{
		Evaluation: e,
		Metrics: evaluationMetrics{
			Percent:           e.Percent(),
			Grade:             e.LetterGrade(),
			PerformanceLevel:  e.PerformanceLevel(),
			AverageSkillScore: e.AverageSkillScore(),
			EffectiveTotal:    e.EffectiveTotal(),
			MissingCriteria:   missing,
			Complete:          e.IsComplete(),
			Overdue:           e.IsOverdue(now),
			TopSkills:         e.TopSkills(3),
			WeakestSkills:     e.WeakestSkills(3),
		},
	}
}

type assessmentView struct {
	*domain.Assessment
	Status string `json:"status"`
}

func mapViews[T any, V any](items []T, now time.Time, view func(T, time.Time) V) []V {
	out := make([]V, len(items))
	for i, item := range items {
		out[i] = view(item, now)
	}
	return out
}
