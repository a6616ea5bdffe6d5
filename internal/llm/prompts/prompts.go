// Package prompts builds generation and evaluation prompts from
// text/template files. Building is a pure function of its inputs:
// identical chapter text and spec always produce byte-identical output.
package prompts

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"strings"
	"sync"
	"text/template"

	"bookexam/internal/model"
)

//go:embed templates/*.txt
var templateFS embed.FS

// TruncationMarker is appended whenever chapter text is cut to the
// configured budget.
const TruncationMarker = "\n\n[chapter text truncated]"

var (
	loadOnce sync.Once
	loadErr  error
	tmpls    map[string]*template.Template
)

var templateNames = []string{"generate_mcq", "generate_subjective", "evaluate"}

// Load parses the embedded templates. Safe to call more than once.
func Load() error {
	loadOnce.Do(func() {
		tmpls = make(map[string]*template.Template)
		for _, name := range templateNames {
			content, err := templateFS.ReadFile("templates/" + name + ".txt")
			if err != nil {
				loadErr = fmt.Errorf("read prompt template %s: %w", name, err)
				return
			}
			t, err := template.New(name).Parse(string(content))
			if err != nil {
				loadErr = fmt.Errorf("parse prompt template %s: %w", name, err)
				return
			}
			tmpls[name] = t
		}
	})
	return loadErr
}

// GenerationData holds template data for generation prompts.
type GenerationData struct {
	ChapterText string
	Count       int
	Marks       int
	Depth       string
}

// EvaluationData holds template data for answer evaluation prompts.
type EvaluationData struct {
	QuestionText string
	Marks        int
	KeyPoints    string
	SampleAnswer string
	ExpectedLen  string
	Answer       string
}

// Truncate cuts text to at most budget characters, appending the
// truncation marker when anything was dropped. Deterministic.
func Truncate(text string, budget int) string {
	if budget <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= budget {
		return text
	}
	return string(runes[:budget]) + TruncationMarker
}

// BuildGenerationPrompt builds the question-generation prompt for a
// chapter and spec. chapterText must be non-empty.
func BuildGenerationPrompt(chapterText string, spec model.QuestionSpec, truncateChars int) (string, error) {
	if err := Load(); err != nil {
		return "", err
	}
	if strings.TrimSpace(chapterText) == "" {
		return "", errors.New("chapter text is empty")
	}
	if err := spec.Validate(); err != nil {
		return "", err
	}

	name := "generate_subjective"
	if spec.Type == model.TypeMCQ {
		name = "generate_mcq"
	}

	data := GenerationData{
		ChapterText: Truncate(chapterText, truncateChars),
		Count:       spec.Count,
		Marks:       spec.Marks,
		Depth:       answerDepth(spec.Marks),
	}

	var buf bytes.Buffer
	if err := tmpls[name].Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute %s: %w", name, err)
	}
	return buf.String(), nil
}

// BuildEvaluationPrompt builds the answer-evaluation prompt for a
// subjective question. Both question prompt and answer must be non-empty.
func BuildEvaluationPrompt(q model.Question, a model.Answer) (string, error) {
	if err := Load(); err != nil {
		return "", err
	}
	if strings.TrimSpace(q.Prompt) == "" {
		return "", errors.New("question prompt is empty")
	}
	if strings.TrimSpace(a.Text) == "" {
		return "", errors.New("answer text is empty")
	}

	data := EvaluationData{
		QuestionText: q.Prompt,
		Marks:        q.Marks,
		KeyPoints:    strings.Join(q.KeyPoints, "; "),
		SampleAnswer: q.CorrectAnswer,
		ExpectedLen:  q.ExpectedLen,
		Answer:       a.Text,
	}

	var buf bytes.Buffer
	if err := tmpls["evaluate"].Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute evaluate: %w", err)
	}
	return buf.String(), nil
}

// answerDepth describes the expected answer length for a mark value.
func answerDepth(marks int) string {
	switch {
	case marks <= 2:
		return "Brief"
	case marks <= 3:
		return "Detailed"
	default:
		return "Comprehensive"
	}
}
