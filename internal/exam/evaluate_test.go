package exam

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"bookexam/internal/model"
)

func mcqQuestion() model.Question {
	return model.Question{
		ID:            "q-1",
		Type:          model.TypeMCQ,
		Marks:         1,
		Prompt:        "What drives photosynthesis?",
		Options:       map[string]string{"A": "Sunlight", "B": "Soil", "C": "Wind", "D": "Gravity"},
		CorrectAnswer: "A",
		Explanation:   "Light energy drives the reaction.",
	}
}

func subjectiveQuestion() model.Question {
	return model.Question{
		ID:            "q-2",
		Type:          model.TypeSubjective,
		Marks:         5,
		Prompt:        "Explain photosynthesis.",
		CorrectAnswer: "Plants convert light energy into glucose inside chloroplasts.",
		KeyPoints:     []string{"light energy", "chloroplasts", "glucose"},
		Explanation:   "light energy; chloroplasts; glucose",
	}
}

func answer(text string) model.Answer {
	return model.Answer{QuestionID: "q", Text: text, Via: model.ViaTyped}
}

func TestEvaluateEmptyAnswer(t *testing.T) {
	e := NewEvaluator(&stubCompleter{})
	for _, text := range []string{"", "   ", "\n\t"} {
		ev := e.Evaluate(context.Background(), subjectiveQuestion(), answer(text))
		if ev.Score != 0 {
			t.Errorf("empty answer %q scored %v, want 0", text, ev.Score)
		}
		if !ev.Degraded {
			t.Errorf("empty answer %q should be marked degraded", text)
		}
		if ev.MaxScore != 5 {
			t.Errorf("MaxScore = %d, want 5", ev.MaxScore)
		}
	}
}

func TestEvaluateMCQ(t *testing.T) {
	stub := &stubCompleter{}
	e := NewEvaluator(stub)

	tests := []struct {
		name      string
		text      string
		wantScore float64
	}{
		{"correct", "A", 1},
		{"correct lowercase", "a", 1},
		{"correct padded", " A ", 1},
		{"wrong", "C", 0},
		{"not a letter", "Sunlight", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := e.Evaluate(context.Background(), mcqQuestion(), answer(tt.text))
			if ev.Score != tt.wantScore {
				t.Errorf("Score = %v, want %v", ev.Score, tt.wantScore)
			}
			if ev.Degraded {
				t.Error("local MCQ grading is not a degraded path")
			}
		})
	}
	if stub.calls != 0 {
		t.Errorf("model called %d times for MCQ answers, want 0", stub.calls)
	}
}

func TestEvaluateSubjectiveViaModel(t *testing.T) {
	stub := &stubCompleter{response: `{"score": 4, "feedback": "Solid answer.", "suggestions": "Mention oxygen."}`}
	e := NewEvaluator(stub)

	ev := e.Evaluate(context.Background(), subjectiveQuestion(), answer("Plants use light to make glucose."))
	if ev.Score != 4 {
		t.Errorf("Score = %v, want 4", ev.Score)
	}
	if ev.Degraded {
		t.Error("model-scored evaluation should not be degraded")
	}
	if ev.Feedback != "Solid answer." {
		t.Errorf("Feedback = %q", ev.Feedback)
	}
}

func TestEvaluateSubjectiveFallsBackToHeuristic(t *testing.T) {
	tests := []struct {
		name string
		stub *stubCompleter
	}{
		{"gateway error", &stubCompleter{err: errors.New("timeout")}},
		{"missing score", &stubCompleter{response: `{"feedback": "nice try"}`}},
		{"no JSON", &stubCompleter{response: "great answer, well done"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEvaluator(tt.stub)
			ev := e.Evaluate(context.Background(), subjectiveQuestion(),
				answer("Chlorophyll in chloroplasts captures light energy to build glucose."))
			if !ev.Degraded {
				t.Fatal("evaluation should be marked degraded")
			}
			if ev.Score < 0 || ev.Score > 5 {
				t.Errorf("Score = %v, out of range [0,5]", ev.Score)
			}
			if len(ev.MatchedKeywords) == 0 {
				t.Error("heuristic should record matched keywords for this answer")
			}
		})
	}
}

func TestHeuristicScoreDeterministic(t *testing.T) {
	q := subjectiveQuestion()
	a := answer("Plants convert light energy into glucose inside chloroplasts.")
	first := HeuristicScore(q, a)
	second := HeuristicScore(q, a)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("heuristic differs between identical runs:\n%+v\n%+v", first, second)
	}
	// The answer restates the reference, so the score lands at the top.
	if first.Score != float64(q.Marks) {
		t.Errorf("Score = %v, want %v for a full-coverage answer", first.Score, q.Marks)
	}
}

func TestHeuristicScoreNoOverlap(t *testing.T) {
	ev := HeuristicScore(subjectiveQuestion(), answer("completely unrelated ramble about trains"))
	if ev.Score != 0 {
		t.Errorf("Score = %v, want 0 for zero keyword overlap", ev.Score)
	}
	if !ev.Degraded {
		t.Error("heuristic evaluations are degraded")
	}
}
