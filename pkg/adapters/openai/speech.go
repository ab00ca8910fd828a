package openai

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aretw0/jarvis/pkg/ports"
	sdk "github.com/openai/openai-go"
)

const (
	DefaultSpeechModel = sdk.SpeechModelGPT4oMiniTTS
	DefaultVoice       = string(sdk.AudioSpeechNewParamsVoiceAlloy)

	// maxSpeechInput is the longest input the speech endpoint accepts.
	maxSpeechInput = 4096
)

// Speaker turns text into MP3 audio with the speech endpoint.
type Speaker struct {
	client sdk.Client
	model  string
	voice  string
	logger *slog.Logger
}

var _ ports.Speaker = (*Speaker)(nil)

// NewSpeaker validates cfg and returns a Speaker.
func NewSpeaker(cfg Config) (*Speaker, error) {
	client, _, err := newClient(cfg)
	if err != nil {
		return nil, err
	}
	model := strings.TrimSpace(cfg.SpeechModel)
	if model == "" {
		model = DefaultSpeechModel
	}
	voice := strings.TrimSpace(cfg.Voice)
	if voice == "" {
		voice = DefaultVoice
	}
	return &Speaker{client: client, model: model, voice: voice, logger: loggerOrNop(cfg.Logger)}, nil
}

// Speak implements ports.Speaker.
func (s *Speaker) Speak(ctx context.Context, text string) (io.ReadCloser, string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, "", fmt.Errorf("openai: speech input is empty")
	}
	if len(text) > maxSpeechInput {
		return nil, "", fmt.Errorf("openai: speech input exceeds %d characters", maxSpeechInput)
	}
	resp, err := s.client.Audio.Speech.New(ctx, sdk.AudioSpeechNewParams{
		Input:          text,
		Model:          s.model,
		Voice:          sdk.AudioSpeechNewParamsVoice(s.voice),
		Speed:          sdk.Float(1.0),
		ResponseFormat: sdk.AudioSpeechNewParamsResponseFormatMP3,
	})
	if err != nil {
		return nil, "", wrapError(err)
	}
	s.logger.DebugContext(ctx, "Speech synthesized", "model", s.model, "voice", s.voice, "chars", len(text))
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" || strings.HasPrefix(contentType, "application/octet-stream") {
		contentType = "audio/mpeg"
	}
	return resp.Body, contentType, nil
}
