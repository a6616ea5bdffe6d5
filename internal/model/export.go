package model

import "time"

// HistoryExport is the top-level JSON structure for the export command.
type HistoryExport struct {
	ExportedAt time.Time    `json:"exported_at"`
	NumTests   int          `json:"num_tests"`
	Results    []TestResult `json:"results"`
}

// ResultSummary is the compact form used by the history listing.
type ResultSummary struct {
	ID          string    `json:"id"`
	ChapterID   string    `json:"chapter_id"`
	TotalScore  float64   `json:"total_score"`
	MaxTotal    int       `json:"max_total"`
	Percentage  float64   `json:"percentage"`
	Grade       string    `json:"grade"`
	CompletedAt time.Time `json:"completed_at"`
}

// Summary reduces a full result to its listing form.
func (r TestResult) Summary() ResultSummary {
	return ResultSummary{
		ID:          r.ID,
		ChapterID:   r.ChapterID,
		TotalScore:  r.TotalScore,
		MaxTotal:    r.MaxTotal,
		Percentage:  r.Percentage,
		Grade:       r.Grade,
		CompletedAt: r.CompletedAt,
	}
}
