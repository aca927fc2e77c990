package domain

import (
	"encoding/json"
	"math"
	"strings"
	"time"
)

const (
	MinWorkingHours = 1
	MaxWorkingHours = 60
)

// internshipTransitions is the placement state machine.
var internshipTransitions = map[InternshipStatus][]InternshipStatus{
	InternshipPending:  {InternshipApproved, InternshipRejected, InternshipCancelled},
	InternshipApproved: {InternshipActive, InternshipCancelled},
	InternshipActive:   {InternshipCompleted, InternshipCancelled},
}

// Internship is one placement of a student at a company for a time window.
type Internship struct {
	ID           string           `json:"id"`
	TenantID     string           `json:"tenantId"`
	Code         string           `json:"code"`
	Title        string           `json:"title"`
	Description  string           `json:"description"`
	Requirements []string         `json:"requirements"`
	Skills       []string         `json:"skills"`
	Location     string           `json:"location,omitempty"`
	StartDate    *time.Time       `json:"startDate,omitempty"`
	EndDate      *time.Time       `json:"endDate,omitempty"`
	WorkingHours int              `json:"workingHours"`
	Salary       float64          `json:"salary"`
	Status       InternshipStatus `json:"status"`

	Student Ref[Student]      `json:"student"`
	Teacher Ref[Teacher]      `json:"teacher"`
	Mentor  Ref[Mentor]       `json:"mentor"`
	Company Ref[Company]      `json:"company"`
	Batch   Ref[BatchSummary] `json:"batch"`

	TeacherScore *float64 `json:"teacherScore,omitempty"`
	MentorScore  *float64 `json:"mentorScore,omitempty"`

	StatusReason string     `json:"statusReason,omitempty"`
	ApprovedAt   *time.Time `json:"approvedAt,omitempty"`
	AssignedAt   *time.Time `json:"assignedAt,omitempty"`
	StartedAt    *time.Time `json:"startedAt,omitempty"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
	ClosedAt     *time.Time `json:"closedAt,omitempty"`

	Version   int       `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// InternshipParams holds what a student application or admin form supplies.
type InternshipParams struct {
	ID           string
	TenantID     string
	Code         string
	Title        string
	Description  string
	Requirements []string
	Skills       []string
	Location     string
	StartDate    *time.Time
	EndDate      *time.Time
	WorkingHours int
	Salary       float64
	Student      Ref[Student]
	Company      Ref[Company]
	Batch        Ref[BatchSummary]
}

// NewInternship creates a PENDING internship. Nil slices become empty.
func NewInternship(p InternshipParams, now time.Time) *Internship {
	in := &Internship{
		ID:           p.ID,
		TenantID:     p.TenantID,
		Code:         strings.TrimSpace(p.Code),
		Title:        strings.TrimSpace(p.Title),
		Description:  strings.TrimSpace(p.Description),
		Requirements: p.Requirements,
		Skills:       p.Skills,
		Location:     p.Location,
		StartDate:    p.StartDate,
		EndDate:      p.EndDate,
		WorkingHours: p.WorkingHours,
		Salary:       p.Salary,
		Status:       InternshipPending,
		Student:      p.Student,
		Company:      p.Company,
		Batch:        p.Batch,
		CreatedAt:    now.UTC(),
		UpdatedAt:    now.UTC(),
	}
	in.applyDefaults()
	return in
}

// UnmarshalJSON decodes a stored record and applies the same defaults as NewInternship.
func (in *Internship) UnmarshalJSON(data []byte) error {
	type raw Internship
	var r raw
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	*in = Internship(r)
	in.applyDefaults()
	return nil
}

func (in *Internship) applyDefaults() {
	if in.Requirements == nil {
		in.Requirements = []string{}
	}
	if in.Skills == nil {
		in.Skills = []string{}
	}
	if s, ok := ParseInternshipStatus(string(in.Status)); ok {
		in.Status = s
	} else {
		in.Status = InternshipPending
	}
}

// Summary returns the snapshot contracts and evaluations cache for this internship.
func (in *Internship) Summary() InternshipSummary {
	return InternshipSummary{ID: in.ID, Code: in.Code, Title: in.Title}
}

// ─── predicates ─────────────────────────────────────────────────────────────

// CanTransitionTo reports whether the state machine allows moving to target.
func (in *Internship) CanTransitionTo(target InternshipStatus) bool {
	for _, next := range internshipTransitions[in.Status] {
		if next == target {
			return true
		}
	}
	return false
}

func (in *Internship) IsPending() bool  { return in.Status == InternshipPending }
func (in *Internship) IsApproved() bool { return in.Status == InternshipApproved }
func (in *Internship) IsActive() bool   { return in.Status == InternshipActive }
func (in *Internship) IsTerminal() bool { return in.Status.IsTerminal() }

func (in *Internship) CanApprove() bool { return in.CanTransitionTo(InternshipApproved) }
func (in *Internship) CanReject() bool  { return in.CanTransitionTo(InternshipRejected) }
func (in *Internship) CanCancel() bool  { return in.CanTransitionTo(InternshipCancelled) }

// CanAssign reports whether student and company can be set. Only approved
// placements are assigned.
func (in *Internship) CanAssign() bool {
	return in.Status == InternshipApproved
}

// IsAssigned reports whether both the student and the company are set.
func (in *Internship) IsAssigned() bool {
	return in.Student.IsSet() && in.Company.IsSet()
}

// CanStart reports whether the placement can become ACTIVE.
func (in *Internship) CanStart() bool {
	return in.CanTransitionTo(InternshipActive) && in.IsAssigned()
}

func (in *Internship) CanComplete() bool { return in.CanTransitionTo(InternshipCompleted) }

// ─── transitions ────────────────────────────────────────────────────────────

func (in *Internship) reject(to InternshipStatus, reason string) error {
	return transitionError("internship", in.ID, in.Status, to, reason)
}

func (in *Internship) moveTo(to InternshipStatus, now time.Time) {
	in.Status = to
	in.UpdatedAt = now.UTC()
}

// Approve moves a pending application to APPROVED.
func (in *Internship) Approve(now time.Time) error {
	if !in.CanApprove() {
		return in.reject(InternshipApproved, "")
	}
	in.ApprovedAt = timePtr(now.UTC())
	in.moveTo(InternshipApproved, now)
	return nil
}

// Reject turns down a pending application.
func (in *Internship) Reject(reason string, now time.Time) error {
	if !in.CanReject() {
		return in.reject(InternshipRejected, "")
	}
	in.StatusReason = reason
	in.ClosedAt = timePtr(now.UTC())
	in.moveTo(InternshipRejected, now)
	return nil
}

// Assign fills the student and company slots, plus mentor and teacher when
// given. Mentor and teacher may also be filled later with AssignSupervisors.
func (in *Internship) Assign(student Ref[Student], company Ref[Company], mentor *Ref[Mentor], teacher *Ref[Teacher], now time.Time) error {
	if !in.CanAssign() {
		return in.reject(InternshipActive, "assignment requires an approved internship")
	}
	if !student.IsSet() || !company.IsSet() {
		return in.reject(InternshipActive, "student and company are required")
	}
	in.Student = student
	in.Company = company
	if mentor != nil {
		in.Mentor = *mentor
	}
	if teacher != nil {
		in.Teacher = *teacher
	}
	in.AssignedAt = timePtr(now.UTC())
	in.UpdatedAt = now.UTC()
	return nil
}

// AssignSupervisors sets mentor and/or teacher on a placement that is not closed.
func (in *Internship) AssignSupervisors(mentor *Ref[Mentor], teacher *Ref[Teacher], now time.Time) error {
	if in.IsTerminal() || in.IsPending() {
		return in.reject(in.Status, "supervisors can only be set on approved or active internships")
	}
	if mentor != nil {
		in.Mentor = *mentor
	}
	if teacher != nil {
		in.Teacher = *teacher
	}
	in.UpdatedAt = now.UTC()
	return nil
}

// Start moves an assigned placement to ACTIVE.
func (in *Internship) Start(now time.Time) error {
	if !in.CanTransitionTo(InternshipActive) {
		return in.reject(InternshipActive, "")
	}
	if !in.IsAssigned() {
		return in.reject(InternshipActive, "student and company must be assigned first")
	}
	in.StartedAt = timePtr(now.UTC())
	in.moveTo(InternshipActive, now)
	return nil
}

// Complete closes an active placement successfully.
func (in *Internship) Complete(now time.Time) error {
	if !in.CanComplete() {
		return in.reject(InternshipCompleted, "")
	}
	in.CompletedAt = timePtr(now.UTC())
	in.ClosedAt = in.CompletedAt
	in.moveTo(InternshipCompleted, now)
	return nil
}

// Cancel abandons a placement that has not reached a terminal state.
func (in *Internship) Cancel(reason string, now time.Time) error {
	if !in.CanCancel() {
		return in.reject(InternshipCancelled, "")
	}
	in.StatusReason = reason
	in.ClosedAt = timePtr(now.UTC())
	in.moveTo(InternshipCancelled, now)
	return nil
}

// RecordScore stores the overall teacher or mentor score.
func (in *Internship) RecordScore(role EvaluationType, score float64, now time.Time) error {
	if score < 0 || math.IsNaN(score) {
		return ErrValueOutOfRange
	}
	switch role {
	case EvaluationTeacher:
		in.TeacherScore = floatPtr(score)
	case EvaluationMentor:
		in.MentorScore = floatPtr(score)
	default:
		return ErrInvalidInput
	}
	in.UpdatedAt = now.UTC()
	return nil
}

// ─── derived values ─────────────────────────────────────────────────────────

// Progress is the elapsed share of the window as a rounded percentage:
// 0 before start, 100 after end. Missing dates yield 0.
func (in *Internship) Progress(now time.Time) int {
	if in.StartDate == nil || in.EndDate == nil {
		return 0
	}
	start, end := *in.StartDate, *in.EndDate
	switch {
	case now.Before(start):
		return 0
	case !now.Before(end):
		return 100
	}
	return percent(float64(now.Sub(start)), float64(end.Sub(start)))
}

// AverageScore is the mean of the teacher and mentor scores that are set,
// nil if neither is.
func (in *Internship) AverageScore() *float64 {
	var sum float64
	var n int
	for _, s := range []*float64{in.TeacherScore, in.MentorScore} {
		if s != nil {
			sum += *s
			n++
		}
	}
	if n == 0 {
		return nil
	}
	return floatPtr(sum / float64(n))
}

// DurationDays is ceil((end-start)/1 day), 0 without both dates.
func (in *Internship) DurationDays() int {
	if in.StartDate == nil || in.EndDate == nil {
		return 0
	}
	return ceilDays(in.EndDate.Sub(*in.StartDate))
}

// DurationWeeks is ceil(DurationDays/7).
func (in *Internship) DurationWeeks() int {
	return ceilDiv(in.DurationDays(), 7)
}

// DaysRemaining counts whole days until the end date, 0 once passed.
func (in *Internship) DaysRemaining(now time.Time) int {
	if in.EndDate == nil {
		return 0
	}
	return ceilDays(in.EndDate.Sub(now))
}

// Validate lists every problem with the internship form.
func (in *Internship) Validate() []string {
	problems := []string{}
	if strings.TrimSpace(in.Title) == "" {
		problems = append(problems, "title is required")
	}
	if strings.TrimSpace(in.Description) == "" {
		problems = append(problems, "description is required")
	}
	if in.StartDate == nil {
		problems = append(problems, "start date is required")
	}
	if in.EndDate == nil {
		problems = append(problems, "end date is required")
	}
	if in.StartDate != nil && in.EndDate != nil && !in.EndDate.After(*in.StartDate) {
		problems = append(problems, "end date must be after start date")
	}
	if in.WorkingHours < MinWorkingHours || in.WorkingHours > MaxWorkingHours {
		problems = append(problems, "working hours must be between 1 and 60 per week")
	}
	if in.Salary < 0 {
		problems = append(problems, "salary cannot be negative")
	}
	return problems
}
