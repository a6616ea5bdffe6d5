// Package audio is the optional speech boundary: question text out to a
// synthesis endpoint, recorded answers in through transcription. Both
// directions are best effort; failures never abort a test.
package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// ErrNoSpeech is returned when transcription produced no usable text.
// Callers treat it as "no answer captured".
var ErrNoSpeech = errors.New("no speech recognized")

// Service talks to the OpenAI-compatible audio endpoints.
type Service struct {
	api     *openai.Client
	timeout time.Duration
}

func New(baseURL, apiKey string, timeout time.Duration) *Service {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Service{api: openai.NewClientWithConfig(config), timeout: timeout}
}

// Synthesize converts text to speech and returns the MP3 bytes.
func (s *Service) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("nothing to synthesize")
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.api.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model: openai.TTSModel1,
		Input: text,
		Voice: openai.VoiceAlloy,
	})
	if err != nil {
		return nil, fmt.Errorf("synthesize speech: %w", err)
	}
	defer resp.Close()

	data, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("read audio stream: %w", err)
	}
	return data, nil
}

// Transcribe converts recorded answer audio to text. Empty output maps
// to ErrNoSpeech.
func (s *Service) Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.api.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		Reader:   audio,
		FilePath: filename,
	})
	if err != nil {
		return "", fmt.Errorf("transcribe audio: %w", err)
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", ErrNoSpeech
	}
	return text, nil
}
