// Package moderation screens user audio greetings and photos with OpenAI
// models.
package moderation

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const (
	audioModel   = openai.Whisper1
	verdictModel = openai.GPT4oMini
	temperature  = 0.3
	maxTokens    = 500
)

var (
	ErrNotConfigured = errors.New("OpenAI API key not configured")
	ErrInvalidMedia  = errors.New("invalid base64 payload")
)

var photoTypes = map[string]struct{}{"avatar": {}, "profile": {}, "catalog": {}}

// UpstreamError wraps a failed model call.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Model is the part of *openai.Client the moderator uses.
type Model interface {
	CreateTranscription(ctx context.Context, request openai.AudioRequest) (openai.AudioResponse, error)
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type Moderator struct {
	model  Model
	logger *zap.Logger
}

// NewClient builds the OpenAI client for apiKey, or nil when the key is empty.
func NewClient(apiKey, baseURL string) Model {
	if apiKey == "" {
		return nil
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return openai.NewClientWithConfig(cfg)
}

func NewModerator(model Model, logger *zap.Logger) *Moderator {
	return &Moderator{model: model, logger: logger.With(zap.String("component", "moderation"))}
}

type AudioRequest struct {
	AudioBase64   string
	AdTitle       string
	AdDescription string
}

type PhotoRequest struct {
	ImageBase64 string
	UserName    string
	PhotoType   string
}

// ModerateAudio transcribes the greeting and asks the model for a verdict on
// it. The transcript in the result is always Whisper's.
func (m *Moderator) ModerateAudio(ctx context.Context, req AudioRequest) (Verdict, error) {
	audio, err := DecodeMedia(req.AudioBase64)
	if err != nil {
		return Verdict{}, err
	}
	if m.model == nil {
		return Verdict{}, ErrNotConfigured
	}
	transcription, err := m.model.CreateTranscription(ctx, openai.AudioRequest{
		Model:    audioModel,
		FilePath: "audio.webm",
		Reader:   bytes.NewReader(audio),
		Language: "ru",
	})
	if err != nil {
		return Verdict{}, &UpstreamError{Op: "transcribe audio", Err: err}
	}

	resp, err := m.model.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: verdictModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: audioSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: audioPrompt(req.AdTitle, req.AdDescription, transcription.Text)},
		},
		Temperature: temperature,
	})
	if err != nil {
		return Verdict{}, &UpstreamError{Op: "classify audio", Err: err}
	}
	verdict := m.verdictFrom(resp, "audio")
	verdict.Transcript = transcription.Text
	return verdict, nil
}

func (m *Moderator) ModeratePhoto(ctx context.Context, req PhotoRequest) (Verdict, error) {
	image := stripDataURL(req.ImageBase64)
	if _, err := DecodeMedia(image); err != nil {
		return Verdict{}, err
	}
	if m.model == nil {
		return Verdict{}, ErrNotConfigured
	}
	photoType := req.PhotoType
	if _, ok := photoTypes[photoType]; !ok {
		photoType = "profile"
	}

	resp, err := m.model.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: verdictModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: photoSystemPrompt},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: photoPrompt(req.UserName, photoType)},
					{
						Type:     openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{URL: "data:image/jpeg;base64," + image},
					},
				},
			},
		},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return Verdict{}, &UpstreamError{Op: "classify photo", Err: err}
	}
	verdict := m.verdictFrom(resp, "photo")
	verdict.Transcript = ""
	return verdict, nil
}

func (m *Moderator) verdictFrom(resp openai.ChatCompletionResponse, kind string) Verdict {
	if len(resp.Choices) == 0 {
		m.logger.Warn("model returned no choices", zap.String("kind", kind))
		return Fallback()
	}
	verdict, ok := ParseVerdict(resp.Choices[0].Message.Content)
	if !ok {
		m.logger.Warn("unparseable moderation verdict", zap.String("kind", kind))
	}
	return verdict
}

// DecodeMedia decodes a base64 payload, tolerating a data: URL prefix and
// missing padding.
func DecodeMedia(payload string) ([]byte, error) {
	payload = stripDataURL(payload)
	if payload == "" {
		return nil, ErrInvalidMedia
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
	}
	if err != nil || len(data) == 0 {
		return nil, ErrInvalidMedia
	}
	return data, nil
}

func stripDataURL(payload string) string {
	payload = strings.TrimSpace(payload)
	if strings.HasPrefix(payload, "data:") {
		if idx := strings.Index(payload, ","); idx >= 0 {
			return payload[idx+1:]
		}
	}
	return payload
}
