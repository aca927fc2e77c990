package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// Batch is a cohort of an internship program with its registration window,
// internship window and capacity.
type Batch struct {
	ID           string      `json:"id"`
	TenantID     string      `json:"tenantId"`
	Name         string      `json:"name"`
	Code         string      `json:"code"`
	Description  string      `json:"description,omitempty"`
	AcademicYear string      `json:"academicYear"`
	Semester     Semester    `json:"semester"`
	Status       BatchStatus `json:"status"`

	RegistrationStart *time.Time `json:"registrationStart,omitempty"`
	RegistrationEnd   *time.Time `json:"registrationEnd,omitempty"`
	StartDate         *time.Time `json:"startDate,omitempty"`
	EndDate           *time.Time `json:"endDate,omitempty"`

	MaxStudents   int  `json:"maxStudents"`
	EnrolledCount int  `json:"enrolledCount"`
	Active        bool `json:"active"`

	Version   int       `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BatchParams holds the fields an administrator supplies when creating a batch.
// Missing dates are allowed; batches are often set up incrementally.
type BatchParams struct {
	ID                string
	TenantID          string
	Name              string
	Code              string
	Description       string
	AcademicYear      string
	Semester          string
	Status            string
	RegistrationStart *time.Time
	RegistrationEnd   *time.Time
	StartDate         *time.Time
	EndDate           *time.Time
	MaxStudents       int
	Active            *bool
}

// NewBatch builds a batch applying defaults: SPRING semester, PLANNED status,
// active unless told otherwise, zero enrolled.
func NewBatch(p BatchParams, now time.Time) *Batch {
	semester, ok := ParseSemester(p.Semester)
	if !ok {
		semester = SemesterSpring
	}
	status, ok := ParseBatchStatus(p.Status)
	if !ok {
		status = BatchPlanned
	}
	active := true
	if p.Active != nil {
		active = *p.Active
	}
	capacity := p.MaxStudents
	if capacity < 0 {
		capacity = 0
	}

	return &Batch{
		ID:                p.ID,
		TenantID:          p.TenantID,
		Name:              strings.TrimSpace(p.Name),
		Code:              strings.TrimSpace(p.Code),
		Description:       p.Description,
		AcademicYear:      p.AcademicYear,
		Semester:          semester,
		Status:            status,
		RegistrationStart: p.RegistrationStart,
		RegistrationEnd:   p.RegistrationEnd,
		StartDate:         p.StartDate,
		EndDate:           p.EndDate,
		MaxStudents:       capacity,
		Active:            active,
		CreatedAt:         now.UTC(),
		UpdatedAt:         now.UTC(),
	}
}

// UnmarshalJSON decodes a stored record and fills missing enums with defaults.
func (b *Batch) UnmarshalJSON(data []byte) error {
	type raw Batch
	var r raw
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	*b = Batch(r)
	b.applyDefaults()
	return nil
}

// applyDefaults replaces missing or unknown enums with SPRING and PLANNED.
func (b *Batch) applyDefaults() {
	if s, ok := ParseSemester(string(b.Semester)); ok {
		b.Semester = s
	} else {
		b.Semester = SemesterSpring
	}
	if s, ok := ParseBatchStatus(string(b.Status)); ok {
		b.Status = s
	} else {
		b.Status = BatchPlanned
	}
}

// Summary returns the snapshot internships cache for this batch.
func (b *Batch) Summary() BatchSummary {
	return BatchSummary{ID: b.ID, Name: b.Name, Code: b.Code}
}

// IsRegistrationOpen reports whether now lies inside the registration window,
// bounds included. Both bounds must be set.
func (b *Batch) IsRegistrationOpen(now time.Time) bool {
	if b.RegistrationStart == nil || b.RegistrationEnd == nil {
		return false
	}
	return !now.Before(*b.RegistrationStart) && !now.After(*b.RegistrationEnd)
}

// CanRegister reports whether a student may register right now. It does not
// reserve anything.
func (b *Batch) CanRegister(now time.Time) bool {
	return b.Active && b.IsRegistrationOpen(now) && b.EnrolledCount < b.MaxStudents
}

// AvailableSlots returns the remaining capacity, never negative.
func (b *Batch) AvailableSlots() int {
	if free := b.MaxStudents - b.EnrolledCount; free > 0 {
		return free
	}
	return 0
}

// IsFull reports whether no slot is left.
func (b *Batch) IsFull() bool {
	return b.AvailableSlots() == 0
}

// EnrollmentPercentage returns round(enrolled/capacity*100) within [0,100];
// 0 when capacity is 0.
func (b *Batch) EnrollmentPercentage() int {
	return percent(float64(b.EnrolledCount), float64(b.MaxStudents))
}

// HasValidDates checks regStart < regEnd <= start < end. Registration may
// close on the day the internship starts. Missing dates make it false.
func (b *Batch) HasValidDates() bool {
	if b.RegistrationStart == nil || b.RegistrationEnd == nil || b.StartDate == nil || b.EndDate == nil {
		return false
	}
	return b.RegistrationStart.Before(*b.RegistrationEnd) &&
		!b.RegistrationEnd.After(*b.StartDate) &&
		b.StartDate.Before(*b.EndDate)
}

// DurationDays is the internship window length in whole days.
func (b *Batch) DurationDays() int {
	if b.StartDate == nil || b.EndDate == nil {
		return 0
	}
	return ceilDays(b.EndDate.Sub(*b.StartDate))
}

// Phase derives where the batch stands at now from its windows. Cancelled
// and closed batches keep their administrative status.
func (b *Batch) Phase(now time.Time) BatchStatus {
	if b.Status == BatchCancelled || b.Status == BatchClosed {
		return b.Status
	}
	switch {
	case b.EndDate != nil && now.After(*b.EndDate):
		return BatchClosed
	case b.StartDate != nil && !now.Before(*b.StartDate):
		return BatchInProgress
	case b.IsRegistrationOpen(now):
		return BatchOpen
	default:
		return BatchPlanned
	}
}

// Validate lists every problem with the batch as human-readable messages.
func (b *Batch) Validate() []string {
	problems := []string{}
	if strings.TrimSpace(b.Name) == "" {
		problems = append(problems, "name is required")
	}
	if strings.TrimSpace(b.Code) == "" {
		problems = append(problems, "code is required")
	}
	if b.MaxStudents < 0 {
		problems = append(problems, "max students cannot be negative")
	}
	if b.EnrolledCount < 0 {
		problems = append(problems, "enrolled count cannot be negative")
	}
	if b.RegistrationStart == nil || b.RegistrationEnd == nil {
		problems = append(problems, "registration window is required")
	}
	if b.StartDate == nil || b.EndDate == nil {
		problems = append(problems, "internship window is required")
	}
	if len(problems) == 0 && !b.HasValidDates() {
		problems = append(problems, "dates must satisfy registration start < registration end <= start < end")
	}
	return problems
}

// ReserveSlot takes one slot for an assignment. The orchestration layer
// calls it alongside Internship.Assign and persists both together.
func (b *Batch) ReserveSlot() error {
	if !b.Active {
		return ErrBatchInactive
	}
	if b.IsFull() {
		return ErrBatchFull
	}
	b.EnrolledCount++
	return nil
}

// ReleaseSlot gives a slot back, e.g. when an assigned internship is cancelled.
func (b *Batch) ReleaseSlot() {
	if b.EnrolledCount > 0 {
		b.EnrolledCount--
	}
}
