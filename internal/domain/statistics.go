package domain

import "math"

// Statistics summarizes a set of evaluations.
type Statistics struct {
	Total          int                    `json:"total"`
	Completed      int                    `json:"completed"`
	Pending        int                    `json:"pending"`
	CompletionRate int                    `json:"completionRate"`
	Scored         int                    `json:"scored"`
	AverageScore   *float64               `json:"averageScore"`
	MinScore       *float64               `json:"minScore"`
	MaxScore       *float64               `json:"maxScore"`
	AveragePercent *float64               `json:"averagePercent"`
	Grades         map[LetterGrade]int    `json:"grades"`
	SkillAverages  map[Criterion]float64  `json:"skillAverages"`
	ByType         map[EvaluationType]int `json:"byType"`
}

// Summarize reduces evaluations into statistics. Submitted, reviewed and
// completed evaluations count as completed. Score aggregates cover every
// evaluation that has a total; grades only cover completed ones. Empty input
// yields zero counts and nil averages.
func Summarize(evals []*Evaluation) Statistics {
	st := Statistics{
		Grades:        make(map[LetterGrade]int, len(Grades)),
		SkillAverages: map[Criterion]float64{},
		ByType:        map[EvaluationType]int{},
	}
	for _, g := range Grades {
		st.Grades[g] = 0
	}

	var scoreSum, pctSum float64
	minScore, maxScore := math.Inf(1), math.Inf(-1)
	skillSum := map[Criterion]float64{}
	skillN := map[Criterion]int{}

	for _, e := range evals {
		if e == nil {
			continue
		}
		st.Total++
		st.ByType[e.Type]++

		if e.IsSubmitted() {
			st.Completed++
			st.Grades[LetterGradeFor(e.Percent())]++
		}

		if total := e.EffectiveTotal(); total != nil {
			st.Scored++
			scoreSum += *total
			pctSum += float64(e.Percent())
			minScore = math.Min(minScore, *total)
			maxScore = math.Max(maxScore, *total)
		}

		for _, p := range e.Scores.Pairs() {
			skillSum[p.Criterion] += p.Score
			skillN[p.Criterion]++
		}
	}

	st.Pending = st.Total - st.Completed
	st.CompletionRate = percent(float64(st.Completed), float64(st.Total))

	if st.Scored > 0 {
		st.AverageScore = floatPtr(round2(scoreSum / float64(st.Scored)))
		st.AveragePercent = floatPtr(round2(pctSum / float64(st.Scored)))
		st.MinScore = floatPtr(minScore)
		st.MaxScore = floatPtr(maxScore)
	}
	for c, n := range skillN {
		st.SkillAverages[c] = round2(skillSum[c] / float64(n))
	}
	return st
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
