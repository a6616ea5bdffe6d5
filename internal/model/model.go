package model

import (
	"fmt"
	"time"
)

// QuestionType distinguishes multiple-choice from free-text questions.
type QuestionType string

const (
	// TypeMCQ is a four-option multiple choice question worth one mark.
	TypeMCQ QuestionType = "mcq"
	// TypeSubjective is a free-text question worth 1, 2, 3 or 5 marks.
	TypeSubjective QuestionType = "subjective"
)

// ValidMarks lists the mark values a subjective question may carry.
var ValidMarks = []int{1, 2, 3, 5}

// AnswerVia records how an answer was captured.
type AnswerVia string

const (
	ViaTyped AnswerVia = "typed"
	ViaVoice AnswerVia = "voice"
)

// Document represents an uploaded source file.
type Document struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	MimeType string    `json:"mime_type"`
	Uploaded time.Time `json:"uploaded_at"`
}

// Chapter is a logical unit of text extracted from a document.
// Immutable once ingested.
type Chapter struct {
	ID         string `json:"id"`
	DocumentID string `json:"document_id"`
	Index      int    `json:"index"`
	Title      string `json:"title"`
	Text       string `json:"text"`
	Summary    string `json:"summary"`
}

// QuestionSpec describes what to generate for a chapter.
type QuestionSpec struct {
	Type  QuestionType `json:"type"`
	Marks int          `json:"marks"`
	Count int          `json:"count"`
}

// Validate checks that the spec is internally consistent.
func (s QuestionSpec) Validate() error {
	switch s.Type {
	case TypeMCQ:
		if s.Marks != 1 {
			return fmt.Errorf("mcq questions are worth 1 mark, got %d", s.Marks)
		}
	case TypeSubjective:
		valid := false
		for _, m := range ValidMarks {
			if s.Marks == m {
				valid = true
				break
			}
		}
		if !valid {
			return fmt.Errorf("marks must be one of %v, got %d", ValidMarks, s.Marks)
		}
	default:
		return fmt.Errorf("unknown question type %q", s.Type)
	}
	if s.Count < 1 {
		return fmt.Errorf("count must be at least 1, got %d", s.Count)
	}
	return nil
}

// Key returns the cache key for a chapter+spec combination. The same
// chapter and spec always map to the same question set.
func (s QuestionSpec) Key(chapterID string) string {
	return fmt.Sprintf("%s:%s:%d:%d", chapterID, s.Type, s.Marks, s.Count)
}

// Question is a single generated question. Immutable after creation.
type Question struct {
	ID            string            `json:"id"`
	ChapterID     string            `json:"chapter_id"`
	Type          QuestionType      `json:"type"`
	Marks         int               `json:"marks"`
	Prompt        string            `json:"prompt"`
	Options       map[string]string `json:"options,omitempty"` // keyed A-D, MCQ only
	CorrectAnswer string            `json:"correct_answer"`
	Explanation   string            `json:"explanation"`
	KeyPoints     []string          `json:"key_points,omitempty"`      // subjective only
	ExpectedLen   string            `json:"expected_length,omitempty"` // subjective only
}

// OptionLetters is the fixed option key order for MCQ questions.
var OptionLetters = []string{"A", "B", "C", "D"}

// QuestionSet is an ordered collection of questions generated for one
// chapter+spec combination.
type QuestionSet struct {
	ID        string       `json:"id"`
	ChapterID string       `json:"chapter_id"`
	Spec      QuestionSpec `json:"spec"`
	Questions []Question   `json:"questions"`
	CreatedAt time.Time    `json:"created_at"`
	// Degraded is true when any question came from the fallback
	// generator instead of the model.
	Degraded bool `json:"degraded"`
}

// Answer is a user's response to a question. Never mutated.
type Answer struct {
	QuestionID  string    `json:"question_id"`
	Text        string    `json:"text"`
	SubmittedAt time.Time `json:"submitted_at"`
	Via         AnswerVia `json:"via"`
}

// Evaluation scores a single answer.
type Evaluation struct {
	QuestionID      string   `json:"question_id"`
	Score           float64  `json:"score"`
	MaxScore        int      `json:"max_score"`
	Feedback        string   `json:"feedback"`
	Suggestions     string   `json:"suggestions,omitempty"`
	MatchedKeywords []string `json:"matched_keywords,omitempty"`
	// Degraded is true when the heuristic scorer produced this
	// evaluation instead of the model.
	Degraded bool `json:"degraded"`
	Skipped  bool `json:"skipped"`
}

// TestItem pairs a question with its answer and evaluation.
// Answer is nil for skipped questions.
type TestItem struct {
	Question   Question   `json:"question"`
	Answer     *Answer    `json:"answer,omitempty"`
	Evaluation Evaluation `json:"evaluation"`
}

// TestResult is the aggregated outcome of one completed test.
type TestResult struct {
	ID          string     `json:"id"`
	ChapterID   string     `json:"chapter_id"`
	SetID       string     `json:"set_id"`
	Items       []TestItem `json:"items"`
	TotalScore  float64    `json:"total_score"`
	MaxTotal    int        `json:"max_total"`
	Percentage  float64    `json:"percentage"`
	Grade       string     `json:"grade"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt time.Time  `json:"completed_at"`
}

// TestSession is the in-progress state of a test: the question set plus
// answers and evaluations accumulated so far. One per running test,
// discarded once the test completes.
type TestSession struct {
	ID          string
	Set         QuestionSet
	Answers     map[string]Answer     // by question ID
	Evaluations map[string]Evaluation // by question ID
	StartedAt   time.Time
}

// GradeBand maps a minimum percentage to a letter grade.
type GradeBand struct {
	Letter string
	Min    float64
}

// GradeScale is an ordered list of bands, highest threshold first.
type GradeScale []GradeBand

// DefaultGradeScale is the documented default threshold table.
var DefaultGradeScale = GradeScale{
	{Letter: "A", Min: 90},
	{Letter: "B", Min: 75},
	{Letter: "C", Min: 60},
	{Letter: "D", Min: 40},
	{Letter: "F", Min: 0},
}

// Grade returns the letter for a percentage.
func (gs GradeScale) Grade(pct float64) string {
	for _, b := range gs {
		if pct >= b.Min {
			return b.Letter
		}
	}
	if len(gs) == 0 {
		return ""
	}
	return gs[len(gs)-1].Letter
}

// Config holds runtime parameters set via CLI flags.
type Config struct {
	TruncateChars  int           // prompt truncation budget in characters
	LLMTimeout     time.Duration // per-attempt gateway timeout
	MaxRetries     int           // gateway attempt budget
	GradeScale     GradeScale
	MaxUploadBytes int64
	Lang           string
}
