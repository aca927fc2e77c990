package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"
)

// CriterionScores holds the eight optional criterion scores. A nil field
// means the criterion has not been scored.
type CriterionScores struct {
	Technical       *float64 `json:"technical,omitempty"`
	Communication   *float64 `json:"communication,omitempty"`
	Teamwork        *float64 `json:"teamwork,omitempty"`
	ProblemSolving  *float64 `json:"problemSolving,omitempty"`
	Adaptability    *float64 `json:"adaptability,omitempty"`
	Professionalism *float64 `json:"professionalism,omitempty"`
	Attendance      *float64 `json:"attendance,omitempty"`
	Initiative      *float64 `json:"initiative,omitempty"`
}

func (s *CriterionScores) field(c Criterion) **float64 {
	switch c {
	case CriterionTechnical:
		return &s.Technical
	case CriterionCommunication:
		return &s.Communication
	case CriterionTeamwork:
		return &s.Teamwork
	case CriterionProblemSolving:
		return &s.ProblemSolving
	case CriterionAdaptability:
		return &s.Adaptability
	case CriterionProfessionalism:
		return &s.Professionalism
	case CriterionAttendance:
		return &s.Attendance
	case CriterionInitiative:
		return &s.Initiative
	}
	return nil
}

// Get returns the score for c, nil when unset or unknown.
func (s CriterionScores) Get(c Criterion) *float64 {
	if f := s.field(c); f != nil && *f != nil {
		v := **f
		return &v
	}
	return nil
}

// Set stores a score for c. A nil value clears it.
func (s *CriterionScores) Set(c Criterion, v *float64) bool {
	f := s.field(c)
	if f == nil {
		return false
	}
	if v == nil {
		*f = nil
		return true
	}
	*f = floatPtr(*v)
	return true
}

// Pairs returns the set scores in canonical criterion order.
func (s CriterionScores) Pairs() []SkillScore {
	out := []SkillScore{}
	for _, c := range Criteria {
		if v := s.Get(c); v != nil {
			out = append(out, SkillScore{Criterion: c, Score: *v})
		}
	}
	return out
}

// SkillScore is one scored criterion.
type SkillScore struct {
	Criterion Criterion `json:"criterion"`
	Score     float64   `json:"score"`
}

// Evaluation is one scored assessment of a student on an internship.
type Evaluation struct {
	ID       string           `json:"id"`
	TenantID string           `json:"tenantId"`
	Title    string           `json:"title,omitempty"`
	Type     EvaluationType   `json:"type"`
	Status   EvaluationStatus `json:"status"`

	Internship Ref[InternshipSummary] `json:"internship"`
	Student    Ref[Student]           `json:"student"`
	Evaluator  Ref[Evaluator]         `json:"evaluator"`
	Batch      Ref[BatchSummary]      `json:"batch"`

	Scale    ScoreScale            `json:"scale"`
	MaxScore float64               `json:"maxScore"`
	Scores   CriterionScores       `json:"scores"`
	Weights  map[Criterion]float64 `json:"weights,omitempty"`

	// TotalScore overrides the criterion mean when set.
	TotalScore *float64    `json:"totalScore,omitempty"`
	Percentage int         `json:"percentage"`
	Grade      LetterGrade `json:"grade,omitempty"`

	Strengths       string `json:"strengths,omitempty"`
	Weaknesses      string `json:"weaknesses,omitempty"`
	Comments        string `json:"comments,omitempty"`
	Recommendations string `json:"recommendations,omitempty"`

	DueDate     *time.Time     `json:"dueDate,omitempty"`
	SubmittedAt *time.Time     `json:"submittedAt,omitempty"`
	ReviewedAt  *time.Time     `json:"reviewedAt,omitempty"`
	ReviewedBy  Ref[Evaluator] `json:"reviewedBy"`
	ReviewNotes string         `json:"reviewNotes,omitempty"`
	CompletedAt *time.Time     `json:"completedAt,omitempty"`

	Version   int       `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// EvaluationParams holds what is known when an evaluation is opened.
type EvaluationParams struct {
	ID         string
	TenantID   string
	Title      string
	Type       string
	Internship Ref[InternshipSummary]
	Student    Ref[Student]
	Evaluator  Ref[Evaluator]
	Batch      Ref[BatchSummary]
	Scale      string
	MaxScore   float64
	Weights    map[Criterion]float64
	DueDate    *time.Time
}

// NewEvaluation opens a PENDING evaluation. The scale defaults to TEN and the
// max score to the scale maximum.
func NewEvaluation(p EvaluationParams, now time.Time) *Evaluation {
	e := &Evaluation{
		ID:         p.ID,
		TenantID:   p.TenantID,
		Title:      strings.TrimSpace(p.Title),
		Type:       EvaluationType(p.Type),
		Status:     EvaluationPending,
		Internship: p.Internship,
		Student:    p.Student,
		Evaluator:  p.Evaluator,
		Batch:      p.Batch,
		Scale:      ScoreScale(strings.ToUpper(p.Scale)),
		MaxScore:   p.MaxScore,
		Weights:    p.Weights,
		DueDate:    p.DueDate,
		CreatedAt:  now.UTC(),
		UpdatedAt:  now.UTC(),
	}
	e.applyDefaults()
	if e.MaxScore <= 0 {
		e.MaxScore = e.Scale.Max()
	}
	return e
}

// UnmarshalJSON decodes a stored record and applies the enum defaults.
func (e *Evaluation) UnmarshalJSON(data []byte) error {
	type raw Evaluation
	var r raw
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	*e = Evaluation(r)
	e.applyDefaults()
	return nil
}

func (e *Evaluation) applyDefaults() {
	if t, ok := ParseEvaluationType(string(e.Type)); ok {
		e.Type = t
	} else {
		e.Type = EvaluationMentor
	}
	if s, ok := ParseEvaluationStatus(string(e.Status)); ok {
		e.Status = s
	} else {
		e.Status = EvaluationPending
	}
	if !e.Scale.IsValid() {
		e.Scale = ScaleTen
	}
}

// ─── scoring ────────────────────────────────────────────────────────────────

// AverageSkillScore is the mean of the set criterion scores, nil if none.
func (e *Evaluation) AverageSkillScore() *float64 {
	pairs := e.Scores.Pairs()
	if len(pairs) == 0 {
		return nil
	}
	var sum float64
	for _, p := range pairs {
		sum += p.Score
	}
	return floatPtr(sum / float64(len(pairs)))
}

// WeightedScore is the weighted mean of the set criterion scores. Criteria
// missing from weights count with weight 1; non-positive weights drop the
// criterion. Nil when nothing contributes.
func (e *Evaluation) WeightedScore(weights map[Criterion]float64) *float64 {
	var sum, total float64
	for _, p := range e.Scores.Pairs() {
		w := 1.0
		if v, ok := weights[p.Criterion]; ok {
			w = v
		}
		if w <= 0 {
			continue
		}
		sum += p.Score * w
		total += w
	}
	if total == 0 {
		return nil
	}
	return floatPtr(sum / total)
}

// EffectiveTotal is TotalScore when set, otherwise the weighted criterion mean.
func (e *Evaluation) EffectiveTotal() *float64 {
	if e.TotalScore != nil {
		return floatPtr(*e.TotalScore)
	}
	return e.WeightedScore(e.Weights)
}

// Percent is round(total/maxScore*100) in [0,100]; 0 when maxScore is 0 or
// nothing is scored.
func (e *Evaluation) Percent() int {
	total := e.EffectiveTotal()
	if total == nil {
		return 0
	}
	return percent(*total, e.MaxScore)
}

// LetterGrade maps the current percentage to a grade.
func (e *Evaluation) LetterGrade() LetterGrade {
	return LetterGradeFor(e.Percent())
}

// LetterGradeFor bands a percentage: >=90 A, >=80 B, >=70 C, >=60 D, else F.
func LetterGradeFor(pct int) LetterGrade {
	switch {
	case pct >= 90:
		return GradeA
	case pct >= 80:
		return GradeB
	case pct >= 70:
		return GradeC
	case pct >= 60:
		return GradeD
	default:
		return GradeF
	}
}

// PerformanceLevel ranks the evaluation on the same bands as the letter grade.
func (e *Evaluation) PerformanceLevel() PerformanceLevel {
	switch LetterGradeFor(e.Percent()) {
	case GradeA:
		return PerformanceExcellent
	case GradeB:
		return PerformanceGood
	case GradeC:
		return PerformanceSatisfactory
	case GradeD:
		return PerformanceNeedsImprovement
	default:
		return PerformanceUnsatisfactory
	}
}

// TopSkills returns up to n set criteria with the highest scores. Ties keep
// canonical criterion order.
func (e *Evaluation) TopSkills(n int) []SkillScore {
	return rankSkills(e.Scores.Pairs(), n, func(a, b SkillScore) int {
		return cmpFloat(b.Score, a.Score)
	})
}

// WeakestSkills returns up to n set criteria with the lowest scores.
func (e *Evaluation) WeakestSkills(n int) []SkillScore {
	return rankSkills(e.Scores.Pairs(), n, func(a, b SkillScore) int {
		return cmpFloat(a.Score, b.Score)
	})
}

func rankSkills(pairs []SkillScore, n int, cmp func(a, b SkillScore) int) []SkillScore {
	if n <= 0 {
		return []SkillScore{}
	}
	slices.SortStableFunc(pairs, cmp)
	if n < len(pairs) {
		pairs = pairs[:n]
	}
	return pairs
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// MissingCriteria lists the mandatory criteria not yet scored.
func (e *Evaluation) MissingCriteria() []Criterion {
	missing := []Criterion{}
	for _, c := range MandatoryCriteria {
		if e.Scores.Get(c) == nil {
			missing = append(missing, c)
		}
	}
	return missing
}

// IsComplete reports whether every mandatory criterion is scored.
func (e *Evaluation) IsComplete() bool {
	return len(e.MissingCriteria()) == 0
}

// IsSubmitted reports whether the evaluation was handed in.
func (e *Evaluation) IsSubmitted() bool {
	return e.Status.IsSubmitted()
}

// CanSubmit requires completeness and a PENDING or IN_PROGRESS status.
func (e *Evaluation) CanSubmit() bool {
	return e.IsComplete() && (e.Status == EvaluationPending || e.Status == EvaluationInProgress)
}

// IsOverdue reports whether the due date passed before submission.
func (e *Evaluation) IsOverdue(now time.Time) bool {
	return e.DueDate != nil && now.After(*e.DueDate) && !e.IsSubmitted()
}

// ─── mutations ──────────────────────────────────────────────────────────────

func (e *Evaluation) reject(to EvaluationStatus, reason string) error {
	return transitionError("evaluation", e.ID, e.Status, to, reason)
}

func (e *Evaluation) checkRange(v float64) error {
	if math.IsNaN(v) || v < 0 || (e.MaxScore > 0 && v > e.MaxScore) {
		return fmt.Errorf("%w: score %.2f outside [0, %.2f]", ErrValueOutOfRange, v, e.MaxScore)
	}
	return nil
}

func (e *Evaluation) touch(now time.Time) {
	if e.Status == EvaluationPending {
		e.Status = EvaluationInProgress
	}
	e.UpdatedAt = now.UTC()
}

// SetScore records one criterion score. The first score moves the evaluation
// to IN_PROGRESS. Submitted evaluations are read-only.
func (e *Evaluation) SetScore(c Criterion, v float64, now time.Time) error {
	if e.IsSubmitted() {
		return e.reject(EvaluationInProgress, "evaluation already submitted")
	}
	if err := e.checkRange(v); err != nil {
		return err
	}
	if !e.Scores.Set(c, &v) {
		return fmt.Errorf("%w: unknown criterion %q", ErrInvalidInput, c)
	}
	e.touch(now)
	return nil
}

// SetTotalScore overrides the computed total.
func (e *Evaluation) SetTotalScore(v float64, now time.Time) error {
	if e.IsSubmitted() {
		return e.reject(EvaluationInProgress, "evaluation already submitted")
	}
	if err := e.checkRange(v); err != nil {
		return err
	}
	e.TotalScore = floatPtr(v)
	e.touch(now)
	return nil
}

// Submit freezes the percentage and grade and moves to SUBMITTED.
func (e *Evaluation) Submit(now time.Time) error {
	if !e.CanSubmit() {
		reason := ""
		if missing := e.MissingCriteria(); len(missing) > 0 {
			names := make([]string, len(missing))
			for i, c := range missing {
				names[i] = string(c)
			}
			reason = "missing " + strings.Join(names, ", ")
		}
		return e.reject(EvaluationSubmitted, reason)
	}
	e.Percentage = e.Percent()
	e.Grade = LetterGradeFor(e.Percentage)
	e.SubmittedAt = timePtr(now.UTC())
	e.Status = EvaluationSubmitted
	e.UpdatedAt = now.UTC()
	return nil
}

// Review marks a submitted evaluation as reviewed.
func (e *Evaluation) Review(reviewer Ref[Evaluator], notes string, now time.Time) error {
	if e.Status != EvaluationSubmitted {
		return e.reject(EvaluationReviewed, "")
	}
	e.ReviewedBy = reviewer
	e.ReviewNotes = notes
	e.ReviewedAt = timePtr(now.UTC())
	e.Status = EvaluationReviewed
	e.UpdatedAt = now.UTC()
	return nil
}

// Close finalizes a submitted evaluation without review.
func (e *Evaluation) Close(now time.Time) error {
	if e.Status != EvaluationSubmitted {
		return e.reject(EvaluationCompleted, "")
	}
	e.CompletedAt = timePtr(now.UTC())
	e.Status = EvaluationCompleted
	e.UpdatedAt = now.UTC()
	return nil
}

// Validate lists every problem with the evaluation form.
func (e *Evaluation) Validate() []string {
	problems := []string{}
	if !e.Internship.IsSet() {
		problems = append(problems, "internship is required")
	}
	if e.MaxScore <= 0 {
		problems = append(problems, "max score must be positive")
	}
	for _, p := range e.Scores.Pairs() {
		if e.checkRange(p.Score) != nil {
			problems = append(problems, fmt.Sprintf("%s score is out of range", p.Criterion))
		}
	}
	for _, c := range Criteria {
		if w, ok := e.Weights[c]; ok && w < 0 {
			problems = append(problems, fmt.Sprintf("%s weight cannot be negative", c))
		}
	}
	return problems
}
