package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"bookexam/internal/audio"
	"bookexam/internal/i18n"
	"bookexam/internal/ingest"
)

type speechRequest struct {
	Text string `json:"text"`
}

func (h *Handler) handleSpeech(w http.ResponseWriter, r *http.Request) {
	if h.speech == nil {
		respondError(w, http.StatusServiceUnavailable, i18n.T(r.Context(), "speech_unavailable"))
		return
	}

	var req speechRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Text == "" {
		respondError(w, http.StatusBadRequest, "missing text")
		return
	}

	data, err := h.speech.Synthesize(r.Context(), req.Text)
	if err != nil {
		slog.Warn("speech synthesis failed", "error", err)
		respondError(w, http.StatusBadGateway, i18n.T(r.Context(), "speech_unavailable"))
		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		slog.Error("write audio response", "error", err)
	}
}

func (h *Handler) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	if h.speech == nil {
		respondError(w, http.StatusServiceUnavailable, i18n.T(r.Context(), "speech_unavailable"))
		return
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		respondError(w, http.StatusBadRequest, "missing audio field")
		return
	}
	defer file.Close()

	data, err := ingest.ReadAll(file, h.config.MaxUploadBytes)
	if err != nil {
		respondError(w, http.StatusRequestEntityTooLarge, i18n.T(r.Context(), "file_too_large"))
		return
	}

	text, err := h.speech.Transcribe(r.Context(), bytes.NewReader(data), header.Filename)
	if err != nil {
		if errors.Is(err, audio.ErrNoSpeech) || errors.Is(err, io.EOF) {
			// Recognition failure means no answer was captured; the
			// client submits an empty answer in that case.
			respondJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"text":   "",
				"notice": i18n.T(r.Context(), "no_answer_captured"),
			})
			return
		}
		slog.Warn("transcription failed", "error", err)
		respondError(w, http.StatusBadGateway, i18n.T(r.Context(), "speech_unavailable"))
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"text": text})
}
