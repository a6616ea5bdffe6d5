package exam

import (
	"time"

	"github.com/google/uuid"

	"bookexam/internal/model"
)

// Aggregate combines a finished session's evaluations into a test
// result. Questions with no recorded evaluation are marked skipped with
// a zero score, so every question in the set is accounted for. The
// total is the sum of the constituent scores.
func Aggregate(session *model.TestSession, scale model.GradeScale) model.TestResult {
	result := model.TestResult{
		ID:          uuid.NewString(),
		ChapterID:   session.Set.ChapterID,
		SetID:       session.Set.ID,
		StartedAt:   session.StartedAt,
		CompletedAt: time.Now(),
	}

	for _, q := range session.Set.Questions {
		ev, answered := session.Evaluations[q.ID]
		if !answered {
			ev = model.Evaluation{
				QuestionID: q.ID,
				Score:      0,
				MaxScore:   q.Marks,
				Feedback:   "Question was skipped.",
				Skipped:    true,
			}
		}

		item := model.TestItem{Question: q, Evaluation: ev}
		if a, ok := session.Answers[q.ID]; ok {
			answer := a
			item.Answer = &answer
		}
		result.Items = append(result.Items, item)

		result.TotalScore += ev.Score
		result.MaxTotal += q.Marks
	}

	if result.MaxTotal > 0 {
		result.Percentage = result.TotalScore / float64(result.MaxTotal) * 100
	}
	result.Grade = scale.Grade(result.Percentage)
	return result
}
