package ingest

import (
	"errors"
	"strings"
	"testing"
)

const bookText = `Some front matter before any heading.

Chapter 1: Photosynthesis
Plants convert light energy into chemical energy.
The process happens in chloroplasts.

Chapter 2: Respiration
Cells break down glucose to release energy.

CH. 3 Fermentation
Yeast produces ethanol without oxygen.`

func TestIngestTXT(t *testing.T) {
	ing := New()
	doc, chapters, err := ing.Ingest("biology.txt", "text/plain", []byte(bookText))
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if doc.ID == "" || doc.Name != "biology.txt" {
		t.Errorf("document metadata wrong: %+v", doc)
	}
	if len(chapters) != 4 {
		t.Fatalf("got %d chapters, want 4 (intro + 3 headings)", len(chapters))
	}

	if chapters[0].Title != "Introduction" {
		t.Errorf("chapter 0 title = %q, want Introduction", chapters[0].Title)
	}
	wantTitles := []string{"Chapter 1: Photosynthesis", "Chapter 2: Respiration", "CH. 3 Fermentation"}
	for i, want := range wantTitles {
		ch := chapters[i+1]
		if ch.Title != want {
			t.Errorf("chapter %d title = %q, want %q", i+1, ch.Title, want)
		}
		if ch.Index != i+1 {
			t.Errorf("chapter %d index = %d", i+1, ch.Index)
		}
		if ch.DocumentID != doc.ID {
			t.Errorf("chapter %d not linked to document", i+1)
		}
		if ch.Summary == "" {
			t.Errorf("chapter %d has no summary", i+1)
		}
	}
	if !strings.Contains(chapters[1].Text, "chloroplasts") {
		t.Errorf("chapter 1 text = %q", chapters[1].Text)
	}
}

func TestIngestNoHeadings(t *testing.T) {
	_, chapters, err := New().Ingest("notes.txt", "", []byte("Just one block of text.\nNo headings at all."))
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if len(chapters) != 1 || chapters[0].Title != "Introduction" {
		t.Errorf("got %d chapters (title %q), want a single Introduction", len(chapters), chapters[0].Title)
	}
}

func TestIngestErrors(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		mime     string
		data     []byte
		wantKind ErrorKind
	}{
		{"unknown extension", "book.epub", "", []byte("data"), KindUnsupported},
		{"no extension no hint", "README", "", []byte("data"), KindUnsupported},
		{"empty txt", "empty.txt", "", []byte("   \n\t "), KindEmpty},
		{"corrupt pdf", "broken.pdf", "", []byte("not a pdf at all"), KindCorrupt},
		{"corrupt docx", "broken.docx", "", []byte("not a zip"), KindCorrupt},
	}

	ing := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ing.Ingest(tt.file, tt.mime, tt.data)
			var ingErr *Error
			if !errors.As(err, &ingErr) {
				t.Fatalf("Ingest() error = %v, want *Error", err)
			}
			if ingErr.Kind != tt.wantKind {
				t.Errorf("Kind = %s, want %s", ingErr.Kind, tt.wantKind)
			}
		})
	}
}

func TestIngestMimeFallback(t *testing.T) {
	_, chapters, err := New().Ingest("upload", "text/plain", []byte("Plain content."))
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if len(chapters) != 1 {
		t.Errorf("got %d chapters, want 1", len(chapters))
	}
}

func TestExtractTXTInvalidUTF8(t *testing.T) {
	got := extractTXT([]byte{'o', 'k', 0xff, '!'})
	if !strings.Contains(got, "ok") || strings.Contains(got, "\xff") {
		t.Errorf("extractTXT() = %q, invalid bytes should be replaced", got)
	}
}

func TestSummarize(t *testing.T) {
	short := "a few words only"
	if got := Summarize(short); got != short {
		t.Errorf("Summarize(short) = %q", got)
	}

	long := strings.Repeat("word ", 250)
	got := Summarize(long)
	if !strings.HasSuffix(got, "...") {
		t.Error("long summary should end with ellipsis")
	}
	if n := len(strings.Fields(got)); n != 200 {
		t.Errorf("summary has %d words, want 200", n)
	}
}

func TestReadAll(t *testing.T) {
	data, err := ReadAll(strings.NewReader("hello"), 10)
	if err != nil || string(data) != "hello" {
		t.Errorf("ReadAll() = %q, %v", data, err)
	}
	if _, err := ReadAll(strings.NewReader("this is too long"), 5); err == nil {
		t.Error("ReadAll() should reject input over the limit")
	}
}
