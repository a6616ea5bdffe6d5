package exam

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"bookexam/internal/model"
)

// ParseError signals structurally invalid model output. The caller must
// switch to the fallback path; the same prompt is never retried.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return "parse model output: " + e.Reason
}

func parseErrorf(format string, args ...any) *ParseError {
	return &ParseError{Reason: fmt.Sprintf(format, args...)}
}

// mcqWire is the JSON shape the generation prompt asks for.
type mcqWire struct {
	Question      string            `json:"question"`
	Options       map[string]string `json:"options"`
	CorrectAnswer string            `json:"correct_answer"`
	Explanation   string            `json:"explanation"`
}

type subjectiveWire struct {
	Question     string   `json:"question"`
	Marks        int      `json:"marks"`
	ExpectedLen  string   `json:"expected_length"`
	KeyPoints    []string `json:"key_points"`
	SampleAnswer string   `json:"sample_answer"`
}

type evaluationWire struct {
	Score       *json.Number `json:"score"`
	Feedback    string       `json:"feedback"`
	Suggestions string       `json:"suggestions"`
}

// ParseQuestions turns raw model text into questions for the given
// chapter and spec. Every element must be structurally valid; a single
// malformed question fails the whole batch. The model returning more
// questions than requested is tolerated (extras are dropped); returning
// fewer is not an error here, the generation pipeline tops up.
func ParseQuestions(raw, chapterID string, spec model.QuestionSpec) ([]model.Question, error) {
	payload := extractJSON(raw, '[', ']')
	if payload == "" {
		return nil, parseErrorf("no JSON array in output")
	}

	var questions []model.Question
	if spec.Type == model.TypeMCQ {
		var wires []mcqWire
		if err := json.Unmarshal([]byte(payload), &wires); err != nil {
			return nil, parseErrorf("decode mcq array: %v", err)
		}
		for i, w := range wires {
			q, err := mcqFromWire(w, chapterID)
			if err != nil {
				return nil, parseErrorf("question %d: %v", i+1, err)
			}
			questions = append(questions, q)
		}
	} else {
		var wires []subjectiveWire
		if err := json.Unmarshal([]byte(payload), &wires); err != nil {
			return nil, parseErrorf("decode subjective array: %v", err)
		}
		for i, w := range wires {
			q, err := subjectiveFromWire(w, chapterID, spec.Marks)
			if err != nil {
				return nil, parseErrorf("question %d: %v", i+1, err)
			}
			questions = append(questions, q)
		}
	}

	if len(questions) == 0 {
		return nil, parseErrorf("output contained no questions")
	}
	if len(questions) > spec.Count {
		questions = questions[:spec.Count]
	}
	return questions, nil
}

func mcqFromWire(w mcqWire, chapterID string) (model.Question, error) {
	if strings.TrimSpace(w.Question) == "" {
		return model.Question{}, fmt.Errorf("empty question text")
	}
	if len(w.Options) != 4 {
		return model.Question{}, fmt.Errorf("expected 4 options, got %d", len(w.Options))
	}
	for _, letter := range model.OptionLetters {
		if strings.TrimSpace(w.Options[letter]) == "" {
			return model.Question{}, fmt.Errorf("missing option %s", letter)
		}
	}
	correct := strings.ToUpper(strings.TrimSpace(w.CorrectAnswer))
	if _, ok := w.Options[correct]; !ok {
		return model.Question{}, fmt.Errorf("correct answer %q is not an option", w.CorrectAnswer)
	}

	return model.Question{
		ID:            uuid.NewString(),
		ChapterID:     chapterID,
		Type:          model.TypeMCQ,
		Marks:         1,
		Prompt:        w.Question,
		Options:       w.Options,
		CorrectAnswer: correct,
		Explanation:   w.Explanation,
	}, nil
}

func subjectiveFromWire(w subjectiveWire, chapterID string, marks int) (model.Question, error) {
	if strings.TrimSpace(w.Question) == "" {
		return model.Question{}, fmt.Errorf("empty question text")
	}
	if strings.TrimSpace(w.SampleAnswer) == "" {
		return model.Question{}, fmt.Errorf("missing sample answer")
	}
	if len(w.KeyPoints) == 0 {
		return model.Question{}, fmt.Errorf("missing key points")
	}

	return model.Question{
		ID:            uuid.NewString(),
		ChapterID:     chapterID,
		Type:          model.TypeSubjective,
		Marks:         marks,
		Prompt:        w.Question,
		CorrectAnswer: w.SampleAnswer,
		Explanation:   strings.Join(w.KeyPoints, "; "),
		KeyPoints:     w.KeyPoints,
		ExpectedLen:   w.ExpectedLen,
	}, nil
}

// ParseEvaluation turns raw model text into an evaluation for q.
// A missing or non-numeric score is a structural fault; an out-of-range
// score is a leniency matter and clamps to the boundary.
func ParseEvaluation(raw string, q model.Question) (model.Evaluation, error) {
	payload := extractJSON(raw, '{', '}')
	if payload == "" {
		return model.Evaluation{}, parseErrorf("no JSON object in output")
	}

	var w evaluationWire
	dec := json.NewDecoder(strings.NewReader(payload))
	dec.UseNumber()
	if err := dec.Decode(&w); err != nil {
		return model.Evaluation{}, parseErrorf("decode evaluation: %v", err)
	}
	if w.Score == nil {
		return model.Evaluation{}, parseErrorf("missing score")
	}
	score, err := w.Score.Float64()
	if err != nil {
		return model.Evaluation{}, parseErrorf("non-numeric score %q", w.Score.String())
	}

	if score < 0 {
		score = 0
	}
	if score > float64(q.Marks) {
		score = float64(q.Marks)
	}

	return model.Evaluation{
		QuestionID:  q.ID,
		Score:       score,
		MaxScore:    q.Marks,
		Feedback:    w.Feedback,
		Suggestions: w.Suggestions,
	}, nil
}

// extractJSON returns the outermost open..close span in raw, trimming
// any prose or markdown fences the model wrapped around it.
func extractJSON(raw string, open, close byte) string {
	start := strings.IndexByte(raw, open)
	end := strings.LastIndexByte(raw, close)
	if start < 0 || end <= start {
		return ""
	}
	return raw[start : end+1]
}
