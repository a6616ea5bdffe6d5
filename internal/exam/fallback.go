package exam

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"bookexam/internal/model"
)

// Fallback produces deterministic template questions straight from the
// chapter text. It has no external dependencies and never fails, so the
// generation pipeline stays total when the model path breaks down.
type Fallback struct{}

// maxKeywords bounds the keyword pool extracted from a chapter.
const maxKeywords = 20

// placeholderTerms pad the keyword pool for very short chapters.
var placeholderTerms = []string{"the topic", "concepts", "principles", "methods"}

// Generate returns exactly spec.Count questions built from the chapter.
func (Fallback) Generate(chapter model.Chapter, spec model.QuestionSpec) []model.Question {
	keywords := extractKeywords(chapter.Text, maxKeywords)
	sentences := splitSentences(chapter.Text)

	questions := make([]model.Question, 0, spec.Count)
	for i := 0; i < spec.Count; i++ {
		if spec.Type == model.TypeMCQ {
			questions = append(questions, fallbackMCQ(chapter, i, keywords, sentences))
		} else {
			questions = append(questions, fallbackSubjective(chapter, spec.Marks, i, keywords, sentences))
		}
	}
	return questions
}

func fallbackMCQ(chapter model.Chapter, i int, keywords, sentences []string) model.Question {
	term := keywordAt(keywords, i)
	sentence := sentenceFor(sentences, term)

	// The correct option is the chapter's own sentence; distractors are
	// generic statements about neighboring terms. The correct slot is
	// derived from the question index so identical input yields
	// identical questions.
	correctLetter := model.OptionLetters[i%len(model.OptionLetters)]
	distractors := []string{
		fmt.Sprintf("The chapter argues that %s is unrelated to the subject discussed.", keywordAt(keywords, i+1)),
		fmt.Sprintf("The chapter defines %s only in a footnote.", keywordAt(keywords, i+2)),
		fmt.Sprintf("The chapter rejects the common view of %s.", keywordAt(keywords, i+3)),
	}

	options := make(map[string]string, 4)
	d := 0
	for _, letter := range model.OptionLetters {
		if letter == correctLetter {
			options[letter] = sentence
			continue
		}
		options[letter] = distractors[d]
		d++
	}

	return model.Question{
		ID:            uuid.NewString(),
		ChapterID:     chapter.ID,
		Type:          model.TypeMCQ,
		Marks:         1,
		Prompt:        fmt.Sprintf("Which statement about %s is supported by the chapter?", term),
		Options:       options,
		CorrectAnswer: correctLetter,
		Explanation:   fmt.Sprintf("The chapter states: %q", sentence),
	}
}

func fallbackSubjective(chapter model.Chapter, marks, i int, keywords, sentences []string) model.Question {
	term := keywordAt(keywords, i)
	sentence := sentenceFor(sentences, term)

	keyPoints := []string{
		fmt.Sprintf("Definition of %s as given in the chapter", term),
		fmt.Sprintf("How %s relates to %s", term, keywordAt(keywords, i+1)),
		fmt.Sprintf("An example involving %s", keywordAt(keywords, i+2)),
	}

	return model.Question{
		ID:            uuid.NewString(),
		ChapterID:     chapter.ID,
		Type:          model.TypeSubjective,
		Marks:         marks,
		Prompt:        fmt.Sprintf("Explain the concept of %s discussed in the chapter.", term),
		CorrectAnswer: sentence,
		Explanation:   strings.Join(keyPoints, "; "),
		KeyPoints:     keyPoints,
		ExpectedLen:   expectedLength(marks),
	}
}

func expectedLength(marks int) string {
	switch {
	case marks <= 2:
		return "Brief explanation"
	case marks <= 3:
		return "Detailed explanation"
	default:
		return "Comprehensive explanation"
	}
}

// extractKeywords returns distinct lowercase words longer than four
// characters, in order of first appearance. limit <= 0 means unbounded.
func extractKeywords(text string, limit int) []string {
	seen := make(map[string]bool)
	var keywords []string
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,;:!?\"'()[]")
		if len(w) <= 4 || seen[w] {
			continue
		}
		seen[w] = true
		keywords = append(keywords, w)
		if limit > 0 && len(keywords) == limit {
			break
		}
	}
	return keywords
}

// keywordAt returns the i-th keyword, wrapping around, or a placeholder
// term when the chapter yielded too few keywords.
func keywordAt(keywords []string, i int) string {
	if len(keywords) == 0 {
		return placeholderTerms[i%len(placeholderTerms)]
	}
	return keywords[i%len(keywords)]
}

// splitSentences breaks text into trimmed sentences.
func splitSentences(text string) []string {
	var sentences []string
	var sb strings.Builder
	for _, r := range text {
		sb.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			if s := strings.TrimSpace(sb.String()); s != "" {
				sentences = append(sentences, s)
			}
			sb.Reset()
		}
	}
	if s := strings.TrimSpace(sb.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

// sentenceFor returns the first sentence containing the term, or the
// first sentence of the text.
func sentenceFor(sentences []string, term string) string {
	for _, s := range sentences {
		if strings.Contains(strings.ToLower(s), term) {
			return s
		}
	}
	if len(sentences) > 0 {
		return sentences[0]
	}
	return "The chapter covers " + term + "."
}
