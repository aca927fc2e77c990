package domain

import "strings"

// BatchStatus is the administrative status of an internship batch.
type BatchStatus string

const (
	BatchPlanned    BatchStatus = "PLANNED"
	BatchOpen       BatchStatus = "OPEN"
	BatchInProgress BatchStatus = "IN_PROGRESS"
	BatchClosed     BatchStatus = "CLOSED"
	BatchCancelled  BatchStatus = "CANCELLED"
)

// IsValid reports whether s is a known batch status.
func (s BatchStatus) IsValid() bool {
	switch s {
	case BatchPlanned, BatchOpen, BatchInProgress, BatchClosed, BatchCancelled:
		return true
	}
	return false
}

// ParseBatchStatus normalizes a raw value. Empty input yields PLANNED.
func ParseBatchStatus(raw string) (BatchStatus, bool) {
	if raw == "" {
		return BatchPlanned, true
	}
	s := BatchStatus(strings.ToUpper(raw))
	return s, s.IsValid()
}

// Semester of the academic year a batch runs in.
type Semester string

const (
	SemesterSpring Semester = "SPRING"
	SemesterSummer Semester = "SUMMER"
	SemesterFall   Semester = "FALL"
	SemesterWinter Semester = "WINTER"
)

// IsValid reports whether s is a known semester.
func (s Semester) IsValid() bool {
	switch s {
	case SemesterSpring, SemesterSummer, SemesterFall, SemesterWinter:
		return true
	}
	return false
}

// ParseSemester normalizes a raw value. Empty input yields SPRING.
func ParseSemester(raw string) (Semester, bool) {
	if raw == "" {
		return SemesterSpring, true
	}
	s := Semester(strings.ToUpper(raw))
	return s, s.IsValid()
}

// InternshipStatus is the placement state.
type InternshipStatus string

const (
	InternshipPending   InternshipStatus = "PENDING"
	InternshipApproved  InternshipStatus = "APPROVED"
	InternshipActive    InternshipStatus = "ACTIVE"
	InternshipCompleted InternshipStatus = "COMPLETED"
	InternshipCancelled InternshipStatus = "CANCELLED"
	InternshipRejected  InternshipStatus = "REJECTED"
)

// IsValid reports whether s is a known internship status.
func (s InternshipStatus) IsValid() bool {
	switch s {
	case InternshipPending, InternshipApproved, InternshipActive,
		InternshipCompleted, InternshipCancelled, InternshipRejected:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is possible from s.
func (s InternshipStatus) IsTerminal() bool {
	return s == InternshipCompleted || s == InternshipCancelled || s == InternshipRejected
}

// ParseInternshipStatus normalizes a raw value. Empty input yields PENDING;
// the legacy ASSIGNED and IN_PROGRESS values map to ACTIVE.
func ParseInternshipStatus(raw string) (InternshipStatus, bool) {
	switch strings.ToUpper(raw) {
	case "":
		return InternshipPending, true
	case "ASSIGNED", "IN_PROGRESS":
		return InternshipActive, true
	}
	s := InternshipStatus(strings.ToUpper(raw))
	return s, s.IsValid()
}

// ContractType classifies the legal agreement.
type ContractType string

const (
	ContractInternship       ContractType = "INTERNSHIP"
	ContractEmployment       ContractType = "EMPLOYMENT"
	ContractPartnership      ContractType = "PARTNERSHIP"
	ContractNDA              ContractType = "NDA"
	ContractServiceAgreement ContractType = "SERVICE_AGREEMENT"
)

// IsValid reports whether t is a known contract type.
func (t ContractType) IsValid() bool {
	switch t {
	case ContractInternship, ContractEmployment, ContractPartnership, ContractNDA, ContractServiceAgreement:
		return true
	}
	return false
}

// ParseContractType normalizes a raw value. Empty input yields INTERNSHIP.
func ParseContractType(raw string) (ContractType, bool) {
	if raw == "" {
		return ContractInternship, true
	}
	t := ContractType(strings.ToUpper(raw))
	return t, t.IsValid()
}

// ContractStatus is the coarse contract state.
type ContractStatus string

const (
	ContractDraft      ContractStatus = "DRAFT"
	ContractPending    ContractStatus = "PENDING"
	ContractSigned     ContractStatus = "SIGNED"
	ContractActive     ContractStatus = "ACTIVE"
	ContractExpired    ContractStatus = "EXPIRED"
	ContractTerminated ContractStatus = "TERMINATED"
	ContractCancelled  ContractStatus = "CANCELLED"
)

// IsValid reports whether s is a known contract status.
func (s ContractStatus) IsValid() bool {
	switch s {
	case ContractDraft, ContractPending, ContractSigned, ContractActive,
		ContractExpired, ContractTerminated, ContractCancelled:
		return true
	}
	return false
}

// ParseContractStatus normalizes a raw value. Empty input yields DRAFT.
func ParseContractStatus(raw string) (ContractStatus, bool) {
	if raw == "" {
		return ContractDraft, true
	}
	s := ContractStatus(strings.ToUpper(raw))
	return s, s.IsValid()
}

// SignatureStatus is one party's signing state.
type SignatureStatus string

const (
	SignaturePending  SignatureStatus = "PENDING"
	SignatureSigned   SignatureStatus = "SIGNED"
	SignatureRejected SignatureStatus = "REJECTED"
)

// IsValid reports whether s is a known signature status.
func (s SignatureStatus) IsValid() bool {
	return s == SignaturePending || s == SignatureSigned || s == SignatureRejected
}

// SignatureParty identifies who signs a contract.
type SignatureParty string

const (
	PartyStudent SignatureParty = "STUDENT"
	PartyCompany SignatureParty = "COMPANY"
	PartySchool  SignatureParty = "SCHOOL"
)

// SignatureParties lists the parties in the order signatures are reported.
var SignatureParties = []SignatureParty{PartyStudent, PartyCompany, PartySchool}

// ParseSignatureParty parses a party name case-insensitively.
func ParseSignatureParty(raw string) (SignatureParty, bool) {
	p := SignatureParty(strings.ToUpper(raw))
	switch p {
	case PartyStudent, PartyCompany, PartySchool:
		return p, true
	}
	return "", false
}

// PayPeriod is the unit a contract salary is expressed in.
type PayPeriod string

const (
	PayHourly  PayPeriod = "HOURLY"
	PayWeekly  PayPeriod = "WEEKLY"
	PayMonthly PayPeriod = "MONTHLY"
	PayLumpSum PayPeriod = "LUMP_SUM"
)

// IsValid reports whether p is a known pay period.
func (p PayPeriod) IsValid() bool {
	switch p {
	case PayHourly, PayWeekly, PayMonthly, PayLumpSum:
		return true
	}
	return false
}

// ParsePayPeriod normalizes a raw value. Empty input yields MONTHLY.
func ParsePayPeriod(raw string) (PayPeriod, bool) {
	if raw == "" {
		return PayMonthly, true
	}
	p := PayPeriod(strings.ToUpper(raw))
	return p, p.IsValid()
}

// EvaluationType is the role of whoever produced the evaluation.
type EvaluationType string

const (
	EvaluationMentor      EvaluationType = "MENTOR"
	EvaluationTeacher     EvaluationType = "TEACHER"
	EvaluationStudentSelf EvaluationType = "STUDENT_SELF"
	EvaluationCompany     EvaluationType = "COMPANY"
	EvaluationPeer        EvaluationType = "PEER"
	EvaluationFinal       EvaluationType = "FINAL"
	EvaluationMidterm     EvaluationType = "MIDTERM"
)

// IsValid reports whether t is a known evaluation type.
func (t EvaluationType) IsValid() bool {
	switch t {
	case EvaluationMentor, EvaluationTeacher, EvaluationStudentSelf, EvaluationCompany,
		EvaluationPeer, EvaluationFinal, EvaluationMidterm:
		return true
	}
	return false
}

// ParseEvaluationType normalizes a raw value. Empty input yields MENTOR.
func ParseEvaluationType(raw string) (EvaluationType, bool) {
	if raw == "" {
		return EvaluationMentor, true
	}
	t := EvaluationType(strings.ToUpper(raw))
	return t, t.IsValid()
}

// EvaluationStatus is the linear evaluation state.
type EvaluationStatus string

const (
	EvaluationPending    EvaluationStatus = "PENDING"
	EvaluationInProgress EvaluationStatus = "IN_PROGRESS"
	EvaluationCompleted  EvaluationStatus = "COMPLETED"
	EvaluationSubmitted  EvaluationStatus = "SUBMITTED"
	EvaluationReviewed   EvaluationStatus = "REVIEWED"
)

// IsValid reports whether s is a known evaluation status.
func (s EvaluationStatus) IsValid() bool {
	switch s {
	case EvaluationPending, EvaluationInProgress, EvaluationCompleted, EvaluationSubmitted, EvaluationReviewed:
		return true
	}
	return false
}

// IsSubmitted reports whether the evaluation has been handed in.
// COMPLETED is a closed submission that skipped review.
func (s EvaluationStatus) IsSubmitted() bool {
	return s == EvaluationSubmitted || s == EvaluationReviewed || s == EvaluationCompleted
}

// ParseEvaluationStatus normalizes a raw value. Empty input yields PENDING.
func ParseEvaluationStatus(raw string) (EvaluationStatus, bool) {
	if raw == "" {
		return EvaluationPending, true
	}
	s := EvaluationStatus(strings.ToUpper(raw))
	return s, s.IsValid()
}

// ScoreScale is the maximum a single criterion can score.
type ScoreScale string

const (
	ScaleFive    ScoreScale = "FIVE"
	ScaleTen     ScoreScale = "TEN"
	ScaleHundred ScoreScale = "HUNDRED"
)

// Max returns the numeric maximum of the scale. Unknown scales fall back to 10.
func (s ScoreScale) Max() float64 {
	switch s {
	case ScaleFive:
		return 5
	case ScaleHundred:
		return 100
	default:
		return 10
	}
}

// IsValid reports whether s is a known scale.
func (s ScoreScale) IsValid() bool {
	return s == ScaleFive || s == ScaleTen || s == ScaleHundred
}

// Criterion names one of the eight scored skills.
type Criterion string

const (
	CriterionTechnical       Criterion = "technical"
	CriterionCommunication   Criterion = "communication"
	CriterionTeamwork        Criterion = "teamwork"
	CriterionProblemSolving  Criterion = "problem_solving"
	CriterionAdaptability    Criterion = "adaptability"
	CriterionProfessionalism Criterion = "professionalism"
	CriterionAttendance      Criterion = "attendance"
	CriterionInitiative      Criterion = "initiative"
)

// Criteria lists every criterion in canonical order. Ties in skill
// rankings are broken by this order.
var Criteria = []Criterion{
	CriterionTechnical,
	CriterionCommunication,
	CriterionTeamwork,
	CriterionProblemSolving,
	CriterionAdaptability,
	CriterionProfessionalism,
	CriterionAttendance,
	CriterionInitiative,
}

// MandatoryCriteria must all be scored before an evaluation can be submitted.
var MandatoryCriteria = []Criterion{
	CriterionTechnical,
	CriterionCommunication,
	CriterionTeamwork,
	CriterionProblemSolving,
}

// ParseCriterion parses a criterion name. Hyphens and camel case are accepted.
func ParseCriterion(raw string) (Criterion, bool) {
	norm := strings.ToLower(strings.ReplaceAll(raw, "-", "_"))
	if norm == "problemsolving" {
		norm = string(CriterionProblemSolving)
	}
	for _, c := range Criteria {
		if string(c) == norm {
			return c, true
		}
	}
	return "", false
}

// LetterGrade is the banded grade derived from a percentage.
type LetterGrade string

const (
	GradeA LetterGrade = "A"
	GradeB LetterGrade = "B"
	GradeC LetterGrade = "C"
	GradeD LetterGrade = "D"
	GradeF LetterGrade = "F"
)

// Grades lists grades from best to worst.
var Grades = []LetterGrade{GradeA, GradeB, GradeC, GradeD, GradeF}

// PerformanceLevel is the qualitative ranking of an evaluation.
type PerformanceLevel string

const (
	PerformanceExcellent        PerformanceLevel = "EXCELLENT"
	PerformanceGood             PerformanceLevel = "GOOD"
	PerformanceSatisfactory     PerformanceLevel = "SATISFACTORY"
	PerformanceNeedsImprovement PerformanceLevel = "NEEDS_IMPROVEMENT"
	PerformanceUnsatisfactory   PerformanceLevel = "UNSATISFACTORY"
)
