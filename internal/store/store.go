// Package store persists documents, chapters and the append-only test
// result history in SQLite, and keeps in-memory session state for
// question sets and in-progress tests.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"bookexam/internal/model"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		mime_type TEXT NOT NULL DEFAULT '',
		uploaded_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS chapters (
		id TEXT PRIMARY KEY,
		document_id TEXT NOT NULL,
		idx INTEGER NOT NULL,
		title TEXT NOT NULL,
		text TEXT NOT NULL,
		summary TEXT NOT NULL DEFAULT '',
		FOREIGN KEY (document_id) REFERENCES documents(id)
	);

	CREATE TABLE IF NOT EXISTS test_results (
		id TEXT PRIMARY KEY,
		chapter_id TEXT NOT NULL,
		set_id TEXT NOT NULL,
		total_score REAL NOT NULL,
		max_total INTEGER NOT NULL,
		percentage REAL NOT NULL,
		grade TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		completed_at DATETIME NOT NULL,
		items_json TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// InsertDocument stores a document and its chapters in one transaction.
func (s *Store) InsertDocument(doc model.Document, chapters []model.Chapter) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO documents (id, name, mime_type, uploaded_at) VALUES (?, ?, ?, ?)`,
		doc.ID, doc.Name, doc.MimeType, doc.Uploaded,
	)
	if err != nil {
		return err
	}

	for _, ch := range chapters {
		_, err := tx.Exec(
			`INSERT INTO chapters (id, document_id, idx, title, text, summary) VALUES (?, ?, ?, ?, ?, ?)`,
			ch.ID, ch.DocumentID, ch.Index, ch.Title, ch.Text, ch.Summary,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetDocument returns a document by ID.
func (s *Store) GetDocument(id string) (model.Document, error) {
	var d model.Document
	err := s.db.QueryRow(
		`SELECT id, name, mime_type, uploaded_at FROM documents WHERE id = ?`, id,
	).Scan(&d.ID, &d.Name, &d.MimeType, &d.Uploaded)
	return d, err
}

// ListChapters returns a document's chapters in order.
func (s *Store) ListChapters(documentID string) ([]model.Chapter, error) {
	rows, err := s.db.Query(
		`SELECT id, document_id, idx, title, text, summary FROM chapters WHERE document_id = ? ORDER BY idx`,
		documentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var chapters []model.Chapter
	for rows.Next() {
		var ch model.Chapter
		if err := rows.Scan(&ch.ID, &ch.DocumentID, &ch.Index, &ch.Title, &ch.Text, &ch.Summary); err != nil {
			return nil, err
		}
		chapters = append(chapters, ch)
	}
	return chapters, rows.Err()
}

// GetChapter returns a chapter by ID.
func (s *Store) GetChapter(id string) (model.Chapter, error) {
	var ch model.Chapter
	err := s.db.QueryRow(
		`SELECT id, document_id, idx, title, text, summary FROM chapters WHERE id = ?`, id,
	).Scan(&ch.ID, &ch.DocumentID, &ch.Index, &ch.Title, &ch.Text, &ch.Summary)
	return ch, err
}

// AppendResult appends a completed test to the history. Results are
// written once and never updated.
func (s *Store) AppendResult(r model.TestResult) error {
	items, err := json.Marshal(r.Items)
	if err != nil {
		return fmt.Errorf("marshal items: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO test_results (id, chapter_id, set_id, total_score, max_total, percentage, grade, started_at, completed_at, items_json)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.ChapterID, r.SetID, r.TotalScore, r.MaxTotal, r.Percentage, r.Grade,
		r.StartedAt, r.CompletedAt, string(items),
	)
	return err
}

// GetResult returns one full test result.
func (s *Store) GetResult(id string) (model.TestResult, error) {
	var r model.TestResult
	var items string
	err := s.db.QueryRow(
		`SELECT id, chapter_id, set_id, total_score, max_total, percentage, grade, started_at, completed_at, items_json
		 FROM test_results WHERE id = ?`, id,
	).Scan(&r.ID, &r.ChapterID, &r.SetID, &r.TotalScore, &r.MaxTotal, &r.Percentage, &r.Grade,
		&r.StartedAt, &r.CompletedAt, &items)
	if err != nil {
		return r, err
	}
	if err := json.Unmarshal([]byte(items), &r.Items); err != nil {
		return r, fmt.Errorf("unmarshal items: %w", err)
	}
	return r, nil
}

// ListResults returns history summaries, newest first.
func (s *Store) ListResults() ([]model.ResultSummary, error) {
	rows, err := s.db.Query(
		`SELECT id, chapter_id, total_score, max_total, percentage, grade, completed_at
		 FROM test_results ORDER BY completed_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var summaries []model.ResultSummary
	for rows.Next() {
		var sum model.ResultSummary
		if err := rows.Scan(&sum.ID, &sum.ChapterID, &sum.TotalScore, &sum.MaxTotal,
			&sum.Percentage, &sum.Grade, &sum.CompletedAt); err != nil {
			return nil, err
		}
		summaries = append(summaries, sum)
	}
	return summaries, rows.Err()
}

// ExportAllResults returns every stored test result for the export
// command, newest first.
func (s *Store) ExportAllResults() (model.HistoryExport, error) {
	summaries, err := s.ListResults()
	if err != nil {
		return model.HistoryExport{}, fmt.Errorf("list results: %w", err)
	}

	export := model.HistoryExport{
		ExportedAt: time.Now(),
		NumTests:   len(summaries),
	}
	for _, sum := range summaries {
		r, err := s.GetResult(sum.ID)
		if err != nil {
			return model.HistoryExport{}, fmt.Errorf("get result %s: %w", sum.ID, err)
		}
		export.Results = append(export.Results, r)
	}
	return export, nil
}

// ResultCount returns the number of stored test results.
func (s *Store) ResultCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM test_results`).Scan(&count)
	return count, err
}
