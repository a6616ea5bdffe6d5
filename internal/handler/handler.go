// Package handler exposes the pipeline over a JSON HTTP API.
package handler

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"bookexam/internal/audio"
	"bookexam/internal/exam"
	"bookexam/internal/i18n"
	"bookexam/internal/ingest"
	"bookexam/internal/model"
	"bookexam/internal/store"
)

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store     *store.Store
	sessions  *store.Sessions
	ingestor  *ingest.Ingestor
	generator *exam.Generator
	evaluator *exam.Evaluator
	speech    *audio.Service // nil when the audio boundary is disabled
	config    model.Config
}

// New creates a Handler.
func New(s *store.Store, sessions *store.Sessions, g *exam.Generator, e *exam.Evaluator, speech *audio.Service, cfg model.Config) *Handler {
	return &Handler{
		store:     s,
		sessions:  sessions,
		ingestor:  ingest.New(),
		generator: g,
		evaluator: e,
		speech:    speech,
		config:    cfg,
	}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/documents", h.handleUpload)
	r.Get("/documents/{documentID}/chapters", h.handleListChapters)
	r.Post("/chapters/{chapterID}/questions", h.handleGenerate)
	r.Get("/sets/{setID}", h.handleGetSet)
	r.Post("/sets/{setID}/tests", h.handleStartTest)
	r.Post("/tests/{testID}/answers/{questionID}", h.handleAnswer)
	r.Post("/tests/{testID}/complete", h.handleComplete)
	r.Get("/results", h.handleListResults)
	r.Get("/results/{resultID}", h.handleGetResult)
	r.Post("/speech", h.handleSpeech)
	r.Post("/transcribe", h.handleTranscribe)
}

// chapterView is the chapter shape returned by listing endpoints; the
// full text stays server-side.
type chapterView struct {
	ID      string `json:"id"`
	Index   int    `json:"index"`
	Title   string `json:"title"`
	Summary string `json:"summary"`
}

func chapterViews(chapters []model.Chapter) []chapterView {
	views := make([]chapterView, 0, len(chapters))
	for _, ch := range chapters {
		views = append(views, chapterView{ID: ch.ID, Index: ch.Index, Title: ch.Title, Summary: ch.Summary})
	}
	return views
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	data, err := ingest.ReadAll(file, h.config.MaxUploadBytes)
	if err != nil {
		respondError(w, http.StatusRequestEntityTooLarge, i18n.T(r.Context(), "file_too_large"))
		return
	}

	doc, chapters, err := h.ingestor.Ingest(header.Filename, header.Header.Get("Content-Type"), data)
	if err != nil {
		var ingErr *ingest.Error
		if errors.As(err, &ingErr) {
			respondError(w, http.StatusUnprocessableEntity, i18n.T(r.Context(), ingestMessageID(ingErr.Kind)))
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if err := h.store.InsertDocument(doc, chapters); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	slog.Info("document ingested", "document", doc.ID, "name", doc.Name, "chapters", len(chapters))
	respondJSON(w, http.StatusCreated, map[string]any{
		"document": doc,
		"chapters": chapterViews(chapters),
	})
}

func ingestMessageID(kind ingest.ErrorKind) string {
	switch kind {
	case ingest.KindUnsupported:
		return "unsupported_format"
	case ingest.KindEmpty:
		return "empty_document"
	default:
		return "corrupt_file"
	}
}

func (h *Handler) handleListChapters(w http.ResponseWriter, r *http.Request) {
	documentID := chi.URLParam(r, "documentID")
	if _, err := h.store.GetDocument(documentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "document not found")
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	chapters, err := h.store.ListChapters(documentID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"chapters": chapterViews(chapters)})
}

func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	chapterID := chi.URLParam(r, "chapterID")

	var spec model.QuestionSpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if spec.Type == model.TypeMCQ && spec.Marks == 0 {
		spec.Marks = 1
	}
	if err := spec.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	chapter, err := h.store.GetChapter(chapterID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "chapter not found")
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Same chapter+spec returns the cached set.
	if set, ok := h.sessions.SetForSpec(chapterID, spec); ok {
		h.respondSet(w, r, http.StatusOK, set)
		return
	}

	set, err := h.generator.Generate(r.Context(), chapter, spec)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.sessions.PutSet(set)

	slog.Info("question set generated",
		"set", set.ID, "chapter", chapterID,
		"type", spec.Type, "count", len(set.Questions), "degraded", set.Degraded)
	h.respondSet(w, r, http.StatusCreated, set)
}

func (h *Handler) respondSet(w http.ResponseWriter, r *http.Request, status int, set model.QuestionSet) {
	resp := map[string]any{"set": set}
	if set.Degraded {
		resp["notice"] = i18n.T(r.Context(), "degraded_generation")
	}
	respondJSON(w, status, resp)
}

func (h *Handler) handleGetSet(w http.ResponseWriter, r *http.Request) {
	set, ok := h.sessions.GetSet(chi.URLParam(r, "setID"))
	if !ok {
		respondError(w, http.StatusNotFound, "question set not found")
		return
	}
	h.respondSet(w, r, http.StatusOK, set)
}

func (h *Handler) handleStartTest(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.StartTest(chi.URLParam(r, "setID"))
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{
		"test_id":    sess.ID,
		"set_id":     sess.Set.ID,
		"started_at": sess.StartedAt,
	})
}

type answerRequest struct {
	Text string          `json:"text"`
	Via  model.AnswerVia `json:"via"`
}

func (h *Handler) handleAnswer(w http.ResponseWriter, r *http.Request) {
	testID := chi.URLParam(r, "testID")
	questionID := chi.URLParam(r, "questionID")

	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Via == "" {
		req.Via = model.ViaTyped
	}

	sess, ok := h.sessions.GetTest(testID)
	if !ok {
		respondError(w, http.StatusNotFound, "test not found")
		return
	}

	var question *model.Question
	for i := range sess.Set.Questions {
		if sess.Set.Questions[i].ID == questionID {
			question = &sess.Set.Questions[i]
			break
		}
	}
	if question == nil {
		respondError(w, http.StatusNotFound, "question not part of this test")
		return
	}

	answer := model.Answer{
		QuestionID:  questionID,
		Text:        req.Text,
		SubmittedAt: time.Now(),
		Via:         req.Via,
	}
	evaluation := h.evaluator.Evaluate(r.Context(), *question, answer)

	if err := h.sessions.RecordAnswer(testID, answer, evaluation); err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	resp := map[string]any{"evaluation": evaluation}
	if evaluation.Degraded {
		resp["notice"] = i18n.T(r.Context(), "degraded_evaluation")
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleComplete(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.FinishTest(chi.URLParam(r, "testID"))
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	result := exam.Aggregate(sess, h.config.GradeScale)
	if err := h.store.AppendResult(result); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	skipped := 0
	for _, item := range result.Items {
		if item.Evaluation.Skipped {
			skipped++
		}
	}

	slog.Info("test completed",
		"test", sess.ID, "result", result.ID,
		"score", result.TotalScore, "max", result.MaxTotal,
		"skipped", skipped, "grade", result.Grade)
	resp := map[string]any{
		"result": result,
		"notice": i18n.T(r.Context(), "test_complete"),
	}
	if skipped > 0 {
		resp["skipped_notice"] = i18n.Td(r.Context(), "question_skipped", map[string]any{"Count": skipped})
	}
	respondJSON(w, http.StatusCreated, resp)
}

func (h *Handler) handleListResults(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.store.ListResults()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"results": summaries})
}

func (h *Handler) handleGetResult(w http.ResponseWriter, r *http.Request) {
	result, err := h.store.GetResult(chi.URLParam(r, "resultID"))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "result not found")
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"result": result})
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}
