package exam

import (
	"context"
	"log/slog"
	"math"
	"strings"

	"bookexam/internal/llm/prompts"
	"bookexam/internal/model"
)

// Evaluator scores answers. MCQ answers are checked locally; subjective
// answers go through the model with a deterministic keyword-overlap
// scorer as the degraded path. Evaluate never fails.
type Evaluator struct {
	llm Completer
}

func NewEvaluator(llm Completer) *Evaluator {
	return &Evaluator{llm: llm}
}

// Evaluate scores one answer against its question.
func (e *Evaluator) Evaluate(ctx context.Context, q model.Question, a model.Answer) model.Evaluation {
	if strings.TrimSpace(a.Text) == "" {
		return model.Evaluation{
			QuestionID: q.ID,
			Score:      0,
			MaxScore:   q.Marks,
			Feedback:   "No answer provided.",
			Degraded:   true,
		}
	}

	if q.Type == model.TypeMCQ {
		return evaluateMCQ(q, a)
	}

	ev, err := e.evaluateSubjective(ctx, q, a)
	if err != nil {
		slog.Warn("model evaluation failed, using heuristic scorer",
			"question", q.ID, "error", err)
		return HeuristicScore(q, a)
	}
	return ev
}

// evaluateMCQ compares the submitted letter to the designated correct
// option. No model call involved.
func evaluateMCQ(q model.Question, a model.Answer) model.Evaluation {
	submitted := strings.ToUpper(strings.TrimSpace(a.Text))
	ev := model.Evaluation{
		QuestionID: q.ID,
		MaxScore:   q.Marks,
	}
	if submitted == q.CorrectAnswer {
		ev.Score = float64(q.Marks)
		ev.Feedback = "Correct. " + q.Explanation
		return ev
	}
	ev.Feedback = "Incorrect. The correct answer is " + q.CorrectAnswer + ". " + q.Explanation
	ev.Suggestions = "Review the topic and try to understand the concepts better."
	return ev
}

func (e *Evaluator) evaluateSubjective(ctx context.Context, q model.Question, a model.Answer) (model.Evaluation, error) {
	prompt, err := prompts.BuildEvaluationPrompt(q, a)
	if err != nil {
		return model.Evaluation{}, err
	}
	raw, err := e.llm.Complete(ctx, prompt)
	if err != nil {
		return model.Evaluation{}, err
	}
	return ParseEvaluation(raw, q)
}

// HeuristicScore is the degraded scorer: keyword overlap between the
// answer and the question's reference material, scaled to the mark
// value. Deterministic for a given question and answer.
func HeuristicScore(q model.Question, a model.Answer) model.Evaluation {
	reference := strings.Join([]string{q.CorrectAnswer, strings.Join(q.KeyPoints, " "), q.Explanation}, " ")
	keywords := extractKeywords(reference, 0)

	answerWords := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(a.Text)) {
		answerWords[strings.Trim(w, ".,;:!?\"'()[]")] = true
	}

	var matched []string
	for _, k := range keywords {
		if answerWords[k] {
			matched = append(matched, k)
		}
	}

	score := 0.0
	if len(keywords) > 0 {
		score = math.Round(float64(q.Marks) * float64(len(matched)) / float64(len(keywords)))
	}
	if score > float64(q.Marks) {
		score = float64(q.Marks)
	}

	return model.Evaluation{
		QuestionID:      q.ID,
		Score:           score,
		MaxScore:        q.Marks,
		Feedback:        "Automatic evaluation was unavailable; the answer was scored by keyword coverage.",
		Suggestions:     "Make sure your answer addresses all key points of the question.",
		MatchedKeywords: matched,
		Degraded:        true,
	}
}
