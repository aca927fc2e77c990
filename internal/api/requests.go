package api

import (
	"reflect"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/opensource-finance/praxis/internal/domain"
	"github.com/opensource-finance/praxis/internal/workflow"
)

// newValidator returns a validator that sees a Ref as its id, so "required"
// on a Ref field means the reference must be set.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterCustomTypeFunc(refID,
		domain.Ref[domain.Student]{},
		domain.Ref[domain.Company]{},
		domain.Ref[domain.Mentor]{},
		domain.Ref[domain.Teacher]{},
		domain.Ref[domain.BatchSummary]{},
		domain.Ref[domain.InternshipSummary]{},
		domain.Ref[domain.Evaluator]{},
	)
	return v
}

func refID(field reflect.Value) interface{} {
	if id := field.FieldByName("ID"); id.IsValid() {
		return id.String()
	}
	return nil
}

type createBatchRequest struct {
	Name              string     `json:"name" validate:"required,max=200"`
	Code              string     `json:"code" validate:"required,max=50"`
	Description       string     `json:"description" validate:"max=2000"`
	AcademicYear      string     `json:"academicYear" validate:"max=20"`
	Semester          string     `json:"semester"`
	Status            string     `json:"status"`
	RegistrationStart *time.Time `json:"registrationStart"`
	RegistrationEnd   *time.Time `json:"registrationEnd"`
	StartDate         *time.Time `json:"startDate"`
	EndDate           *time.Time `json:"endDate"`
	MaxStudents       int        `json:"maxStudents" validate:"gte=0"`
	Active            *bool      `json:"active"`
}

func (req createBatchRequest) params() domain.BatchParams {
	return domain.BatchParams{
		Name:              req.Name,
		Code:              req.Code,
		Description:       req.Description,
		AcademicYear:      req.AcademicYear,
		Semester:          req.Semester,
		Status:            req.Status,
		RegistrationStart: req.RegistrationStart,
		RegistrationEnd:   req.RegistrationEnd,
		StartDate:         req.StartDate,
		EndDate:           req.EndDate,
		MaxStudents:       req.MaxStudents,
		Active:            req.Active,
	}
}

type createInternshipRequest struct {
	Code         string                          `json:"code" validate:"max=50"`
	Title        string                          `json:"title" validate:"required,max=200"`
	Description  string                          `json:"description" validate:"required"`
	Requirements []string                        `json:"requirements"`
	Skills       []string                        `json:"skills"`
	Location     string                          `json:"location"`
	StartDate    *time.Time                      `json:"startDate" validate:"required"`
	EndDate      *time.Time                      `json:"endDate" validate:"required"`
	WorkingHours int                             `json:"workingHours" validate:"gte=0"`
	Salary       float64                         `json:"salary" validate:"gte=0"`
	Student      domain.Ref[domain.Student]      `json:"student"`
	Company      domain.Ref[domain.Company]      `json:"company"`
	Batch        domain.Ref[domain.BatchSummary] `json:"batch"`
}

func (req createInternshipRequest) params() domain.InternshipParams {
	return domain.InternshipParams{
		Code:         req.Code,
		Title:        req.Title,
		Description:  req.Description,
		Requirements: req.Requirements,
		Skills:       req.Skills,
		Location:     req.Location,
		StartDate:    req.StartDate,
		EndDate:      req.EndDate,
		WorkingHours: req.WorkingHours,
		Salary:       req.Salary,
		Student:      req.Student,
		Company:      req.Company,
		Batch:        req.Batch,
	}
}

type reasonRequest struct {
	Reason string `json:"reason" validate:"max=1000"`
}

type rejectRequest struct {
	Reason string `json:"reason" validate:"required,max=1000"`
}

type assignRequest struct {
	Student domain.Ref[domain.Student]  `json:"student" validate:"required"`
	Company domain.Ref[domain.Company]  `json:"company" validate:"required"`
	Mentor  *domain.Ref[domain.Mentor]  `json:"mentor"`
	Teacher *domain.Ref[domain.Teacher] `json:"teacher"`
}

func (req assignRequest) assignment() workflow.Assignment {
	return workflow.Assignment{
		Student: req.Student,
		Company: req.Company,
		Mentor:  req.Mentor,
		Teacher: req.Teacher,
	}
}

type supervisorsRequest struct {
	Mentor  *domain.Ref[domain.Mentor]  `json:"mentor"`
	Teacher *domain.Ref[domain.Teacher] `json:"teacher"`
}

type recordScoreRequest struct {
	Role  string  `json:"role" validate:"required,oneof=TEACHER MENTOR"`
	Score float64 `json:"score" validate:"gte=0,lte=100"`
}

type createContractRequest struct {
	ContractNumber string                               `json:"contractNumber" validate:"max=50"`
	Title          string                               `json:"title" validate:"required,max=200"`
	Type           string                               `json:"type"`
	Terms          string                               `json:"terms"`
	Internship     domain.Ref[domain.InternshipSummary] `json:"internship" validate:"required"`
	Student        domain.Ref[domain.Student]           `json:"student"`
	Company        domain.Ref[domain.Company]           `json:"company"`
	StartDate      *time.Time                           `json:"startDate"`
	EndDate        *time.Time                           `json:"endDate"`
	ExpirationDate *time.Time                           `json:"expirationDate"`
	Salary         float64                              `json:"salary" validate:"gte=0"`
	PayPeriod      string                               `json:"payPeriod"`
	HoursPerWeek   int                                  `json:"hoursPerWeek" validate:"gte=0,lte=168"`
}

func (req createContractRequest) params() domain.ContractParams {
	return domain.ContractParams{
		ContractNumber: req.ContractNumber,
		Title:          req.Title,
		Type:           req.Type,
		Terms:          req.Terms,
		Internship:     req.Internship,
		Student:        req.Student,
		Company:        req.Company,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		ExpirationDate: req.ExpirationDate,
		Salary:         req.Salary,
		PayPeriod:      req.PayPeriod,
		HoursPerWeek:   req.HoursPerWeek,
	}
}

type signRequest struct {
	Party      string `json:"party" validate:"required"`
	SignerID   string `json:"signerId" validate:"required"`
	SignerName string `json:"signerName"`
	SignerRole string `json:"signerRole"`
	Reason     string `json:"reason" validate:"max=1000"`
}

func (req signRequest) signer() domain.Evaluator {
	return domain.Evaluator{ID: req.SignerID, Name: req.SignerName, Role: req.SignerRole}
}

type terminateRequest struct {
	Reason        string     `json:"reason" validate:"required,max=1000"`
	EffectiveDate *time.Time `json:"effectiveDate"`
	NoticeDays    int        `json:"noticeDays" validate:"gte=0"`
}

type createEvaluationRequest struct {
	Title      string                               `json:"title" validate:"max=200"`
	Type       string                               `json:"type"`
	Internship domain.Ref[domain.InternshipSummary] `json:"internship" validate:"required"`
	Student    domain.Ref[domain.Student]           `json:"student"`
	Evaluator  domain.Ref[domain.Evaluator]         `json:"evaluator" validate:"required"`
	Batch      domain.Ref[domain.BatchSummary]      `json:"batch"`
	Scale      string                               `json:"scale"`
	MaxScore   float64                              `json:"maxScore" validate:"gte=0"`
	Weights    map[string]float64                   `json:"weights" validate:"omitempty,dive,gte=0"`
	DueDate    *time.Time                           `json:"dueDate"`
}

func (req createEvaluationRequest) params() domain.EvaluationParams {
	p := domain.EvaluationParams{
		Title:      req.Title,
		Type:       req.Type,
		Internship: req.Internship,
		Student:    req.Student,
		Evaluator:  req.Evaluator,
		Batch:      req.Batch,
		Scale:      req.Scale,
		MaxScore:   req.MaxScore,
		DueDate:    req.DueDate,
	}
	if len(req.Weights) > 0 {
		p.Weights = criterionMap(req.Weights)
	}
	return p
}

type scoreRequest struct {
	Scores map[string]float64 `json:"scores" validate:"omitempty,dive,gte=0"`
	Total  *float64           `json:"total" validate:"omitempty,gte=0"`
}

func (req scoreRequest) update() workflow.ScoreUpdate {
	return workflow.ScoreUpdate{Scores: criterionMap(req.Scores), Total: req.Total}
}

// criterionMap canonicalizes criterion names. Unknown names are kept as-is so
// the engines can reject them.
func criterionMap(raw map[string]float64) map[domain.Criterion]float64 {
	out := make(map[domain.Criterion]float64, len(raw))
	for name, v := range raw {
		c, ok := domain.ParseCriterion(name)
		if !ok {
			c = domain.Criterion(name)
		}
		out[c] = v
	}
	return out
}

type reviewRequest struct {
	Reviewer domain.Ref[domain.Evaluator] `json:"reviewer" validate:"required"`
	Notes    string                       `json:"notes" validate:"max=2000"`
}

type policyRequest struct {
	ID          string              `json:"id" validate:"max=100"`
	Name        string              `json:"name" validate:"required,max=200"`
	Description string              `json:"description"`
	Expression  string              `json:"expression" validate:"required"`
	Bands       []domain.PolicyBand `json:"bands" validate:"required,min=1"`
	Weight      float64             `json:"weight" validate:"gte=0"`
	Enabled     *bool               `json:"enabled"`
}

func (req policyRequest) policy() *domain.Policy {
	p := &domain.Policy{
		ID:          req.ID,
		Name:        req.Name,
		Description: req.Description,
		Expression:  req.Expression,
		Bands:       req.Bands,
		Weight:      req.Weight,
		Enabled:     true,
	}
	if req.Enabled != nil {
		p.Enabled = *req.Enabled
	}
	if p.Weight == 0 {
		p.Weight = 1
	}
	return p
}
