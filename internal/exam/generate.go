// Package exam holds the question pipeline: prompt-driven generation
// with parsing and fallback substitution, answer evaluation with a
// heuristic degraded path, and test-level aggregation.
package exam

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"bookexam/internal/llm/prompts"
	"bookexam/internal/model"
)

// Completer is the gateway surface the pipeline needs.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Generator runs the generation pipeline for one chapter+spec request.
type Generator struct {
	llm           Completer
	fallback      Fallback
	truncateChars int
}

// NewGenerator creates a generator. truncateChars bounds the chapter
// text included in prompts.
func NewGenerator(llm Completer, truncateChars int) *Generator {
	return &Generator{llm: llm, truncateChars: truncateChars}
}

// Generate produces a question set for the chapter. The pipeline is
// total: gateway and parse failures substitute fallback questions and
// mark the set degraded, so the returned set always holds exactly
// spec.Count questions. Only an invalid spec is reported as an error.
func (g *Generator) Generate(ctx context.Context, chapter model.Chapter, spec model.QuestionSpec) (model.QuestionSet, error) {
	if err := spec.Validate(); err != nil {
		return model.QuestionSet{}, err
	}

	set := model.QuestionSet{
		ID:        uuid.NewString(),
		ChapterID: chapter.ID,
		Spec:      spec,
		CreatedAt: time.Now(),
	}

	questions, degraded := g.generateQuestions(ctx, chapter, spec)
	set.Questions = questions
	set.Degraded = degraded
	return set, nil
}

func (g *Generator) generateQuestions(ctx context.Context, chapter model.Chapter, spec model.QuestionSpec) ([]model.Question, bool) {
	prompt, err := prompts.BuildGenerationPrompt(chapter.Text, spec, g.truncateChars)
	if err != nil {
		slog.Warn("prompt build failed, using fallback questions", "chapter", chapter.ID, "error", err)
		return g.fallback.Generate(chapter, spec), true
	}

	raw, err := g.llm.Complete(ctx, prompt)
	if err != nil {
		slog.Warn("generation call failed, using fallback questions", "chapter", chapter.ID, "error", err)
		return g.fallback.Generate(chapter, spec), true
	}

	questions, err := ParseQuestions(raw, chapter.ID, spec)
	if err != nil {
		// Malformed output is never retried with the same prompt.
		slog.Warn("generation output rejected, using fallback questions", "chapter", chapter.ID, "error", err)
		return g.fallback.Generate(chapter, spec), true
	}

	if len(questions) < spec.Count {
		// Model returned fewer questions than asked; top up so the
		// set length matches the spec.
		slog.Warn("generation shortfall, topping up from fallback",
			"chapter", chapter.ID, "got", len(questions), "want", spec.Count)
		topUp := g.fallback.Generate(chapter, model.QuestionSpec{
			Type:  spec.Type,
			Marks: spec.Marks,
			Count: spec.Count - len(questions),
		})
		return append(questions, topUp...), true
	}

	return questions, false
}
