package exam

import (
	"testing"
	"time"

	"bookexam/internal/model"
)

func testSession(t *testing.T) *model.TestSession {
	t.Helper()
	set := model.QuestionSet{
		ID:        "set-1",
		ChapterID: "ch-1",
		Spec:      model.QuestionSpec{Type: model.TypeSubjective, Marks: 5, Count: 3},
		Questions: []model.Question{
			{ID: "q-1", Marks: 5, Type: model.TypeSubjective},
			{ID: "q-2", Marks: 5, Type: model.TypeSubjective},
			{ID: "q-3", Marks: 5, Type: model.TypeSubjective},
		},
	}
	return &model.TestSession{
		ID:          "test-1",
		Set:         set,
		Answers:     map[string]model.Answer{},
		Evaluations: map[string]model.Evaluation{},
		StartedAt:   time.Now().Add(-time.Minute),
	}
}

func TestAggregate(t *testing.T) {
	sess := testSession(t)
	sess.Answers["q-1"] = model.Answer{QuestionID: "q-1", Text: "a"}
	sess.Answers["q-2"] = model.Answer{QuestionID: "q-2", Text: "b"}
	sess.Evaluations["q-1"] = model.Evaluation{QuestionID: "q-1", Score: 4, MaxScore: 5}
	sess.Evaluations["q-2"] = model.Evaluation{QuestionID: "q-2", Score: 2.5, MaxScore: 5}

	result := Aggregate(sess, model.DefaultGradeScale)

	if result.TotalScore != 6.5 {
		t.Errorf("TotalScore = %v, want 6.5", result.TotalScore)
	}
	if result.MaxTotal != 15 {
		t.Errorf("MaxTotal = %d, want 15", result.MaxTotal)
	}
	if len(result.Items) != 3 {
		t.Fatalf("got %d items, want one per question", len(result.Items))
	}

	// q-3 was never answered.
	skipped := result.Items[2]
	if !skipped.Evaluation.Skipped || skipped.Evaluation.Score != 0 {
		t.Errorf("unanswered question should yield a skipped zero evaluation, got %+v", skipped.Evaluation)
	}
	if skipped.Answer != nil {
		t.Error("skipped item should carry no answer")
	}
	if result.Items[0].Answer == nil {
		t.Error("answered item should carry its answer")
	}

	wantPct := 6.5 / 15 * 100
	if result.Percentage != wantPct {
		t.Errorf("Percentage = %v, want %v", result.Percentage, wantPct)
	}
	if result.Grade != "D" {
		t.Errorf("Grade = %q, want D for %.1f%%", result.Grade, wantPct)
	}
	if result.CompletedAt.Before(result.StartedAt) {
		t.Error("CompletedAt precedes StartedAt")
	}
}

func TestAggregateAllSkipped(t *testing.T) {
	result := Aggregate(testSession(t), model.DefaultGradeScale)
	if result.TotalScore != 0 || result.Percentage != 0 {
		t.Errorf("got total=%v pct=%v, want zeros", result.TotalScore, result.Percentage)
	}
	if result.Grade != "F" {
		t.Errorf("Grade = %q, want F", result.Grade)
	}
	for i, item := range result.Items {
		if !item.Evaluation.Skipped {
			t.Errorf("item %d not marked skipped", i)
		}
	}
}

func TestGradeScale(t *testing.T) {
	tests := []struct {
		pct  float64
		want string
	}{
		{100, "A"}, {90, "A"}, {89.9, "B"}, {75, "B"},
		{74.9, "C"}, {60, "C"}, {59.9, "D"}, {40, "D"},
		{39.9, "F"}, {0, "F"},
	}
	for _, tt := range tests {
		if got := model.DefaultGradeScale.Grade(tt.pct); got != tt.want {
			t.Errorf("Grade(%v) = %q, want %q", tt.pct, got, tt.want)
		}
	}
}
