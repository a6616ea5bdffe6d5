package ingest

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/ledongthuc/pdf"

	"bookexam/internal/model"
)

// ErrorKind classifies ingestion failures.
type ErrorKind string

const (
	KindUnsupported ErrorKind = "unsupported_format"
	KindEmpty       ErrorKind = "empty_content"
	KindCorrupt     ErrorKind = "corrupt_file"
)

// Error is an ingestion failure surfaced to the user. Never retried.
type Error struct {
	Kind ErrorKind
	File string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ingest %s: %s: %v", e.File, e.Kind, e.Err)
	}
	return fmt.Sprintf("ingest %s: %s", e.File, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// chapterPrefixes are the heading patterns that start a new chapter.
var chapterPrefixes = []string{"Chapter ", "CHAPTER ", "chapter ", "Ch. ", "CH. "}

// Ingestor extracts chapters from uploaded files.
type Ingestor struct{}

func New() *Ingestor {
	return &Ingestor{}
}

// Ingest extracts plain text from the uploaded file and splits it into
// chapters. The filename extension decides the format; mimeHint is used
// only when the extension is missing.
func (ing *Ingestor) Ingest(name, mimeHint string, data []byte) (model.Document, []model.Chapter, error) {
	var (
		text string
		err  error
	)

	switch format(name, mimeHint) {
	case ".pdf":
		text, err = extractPDF(data)
	case ".docx":
		text, err = extractDOCX(data)
	case ".txt":
		text = extractTXT(data)
	default:
		return model.Document{}, nil, &Error{Kind: KindUnsupported, File: name}
	}
	if err != nil {
		return model.Document{}, nil, &Error{Kind: KindCorrupt, File: name, Err: err}
	}
	if strings.TrimSpace(text) == "" {
		return model.Document{}, nil, &Error{Kind: KindEmpty, File: name}
	}

	doc := model.Document{
		ID:       uuid.NewString(),
		Name:     name,
		MimeType: mimeHint,
		Uploaded: time.Now(),
	}
	return doc, SplitChapters(doc.ID, text), nil
}

func format(name, mimeHint string) string {
	if ext := strings.ToLower(filepath.Ext(name)); ext != "" {
		return ext
	}
	switch mimeHint {
	case "application/pdf":
		return ".pdf"
	case "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return ".docx"
	case "text/plain":
		return ".txt"
	}
	return ""
}

func extractPDF(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	var sb strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		content, err := p.GetPlainText(nil)
		if err != nil {
			// Skip unreadable pages rather than failing the whole file.
			continue
		}
		sb.WriteString(content)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

func extractTXT(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	return string(bytes.ToValidUTF8(data, []byte("�")))
}

// SplitChapters splits text into chapters on heading lines. Text before
// the first heading becomes an "Introduction" chapter.
func SplitChapters(documentID, text string) []model.Chapter {
	var chapters []model.Chapter

	currentTitle := "Introduction"
	var currentLines []string

	flush := func() {
		if len(currentLines) == 0 {
			return
		}
		body := strings.Join(currentLines, "\n")
		chapters = append(chapters, model.Chapter{
			ID:         uuid.NewString(),
			DocumentID: documentID,
			Index:      len(chapters),
			Title:      currentTitle,
			Text:       body,
			Summary:    Summarize(body),
		})
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if isChapterHeading(line) {
			flush()
			currentTitle = line
			currentLines = nil
			continue
		}
		currentLines = append(currentLines, line)
	}
	flush()

	return chapters
}

func isChapterHeading(line string) bool {
	for _, p := range chapterPrefixes {
		if strings.HasPrefix(line, p) {
			return true
		}
	}
	return false
}

// Summarize returns the first 200 words of a chapter as a preview.
func Summarize(text string) string {
	words := strings.Fields(text)
	if len(words) <= 200 {
		return text
	}
	return strings.Join(words[:200], " ") + "..."
}

// ReadAll is a convenience for multipart uploads with a size cap.
func ReadAll(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("file exceeds %d byte limit", limit)
	}
	return data, nil
}
