package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		st := Summarize(nil)
		assert.Equal(t, 0, st.Total)
		assert.Equal(t, 0, st.CompletionRate)
		assert.Nil(t, st.AverageScore)
		assert.Nil(t, st.MinScore)
		assert.Equal(t, 0, st.Grades[GradeA])
		assert.Len(t, st.Grades, len(Grades))
	})

	t.Run("Mixed", func(t *testing.T) {
		submitted := openEvaluation(10)
		score(t, submitted, map[Criterion]float64{
			CriterionTechnical: 9, CriterionCommunication: 8, CriterionTeamwork: 9, CriterionProblemSolving: 10,
		})
		require.NoError(t, submitted.Submit(at(2024, 3, 5)))

		draft := openEvaluation(10)
		score(t, draft, map[Criterion]float64{CriterionTechnical: 6})

		untouched := openEvaluation(10)
		untouched.Type = EvaluationTeacher

		st := Summarize([]*Evaluation{submitted, draft, untouched, nil})
		assert.Equal(t, 3, st.Total)
		assert.Equal(t, 1, st.Completed)
		assert.Equal(t, 2, st.Pending)
		assert.Equal(t, 33, st.CompletionRate)
		assert.Equal(t, 2, st.Scored)

		require.NotNil(t, st.AverageScore)
		assert.Equal(t, 7.5, *st.AverageScore)
		assert.Equal(t, 6.0, *st.MinScore)
		assert.Equal(t, 9.0, *st.MaxScore)
		assert.Equal(t, 75.0, *st.AveragePercent)

		assert.Equal(t, 1, st.Grades[GradeA], "only completed evaluations are graded")
		assert.Equal(t, 0, st.Grades[GradeD])
		assert.Equal(t, 7.5, st.SkillAverages[CriterionTechnical])
		assert.Equal(t, 2, st.ByType[EvaluationMentor])
		assert.Equal(t, 1, st.ByType[EvaluationTeacher])
	})
}
