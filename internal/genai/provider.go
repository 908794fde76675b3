package genai

import (
	"context"

	"lesson_video/internal/models"
)

// TextRequest is one text completion. When JSONSchema is set the provider
// is asked for JSON matching it.
type TextRequest struct {
	System      string
	Prompt      string
	JSONSchema  map[string]any
	Temperature float64
}

// TextModel produces text; implementations make exactly one attempt.
type TextModel interface {
	GenerateText(ctx context.Context, req TextRequest) (string, error)
}

// ImageModel produces one image for a prompt.
type ImageModel interface {
	GenerateImage(ctx context.Context, prompt string) (*models.ImageAsset, error)
}

// SpeechModel returns raw 16-bit little-endian mono PCM at 24 kHz.
type SpeechModel interface {
	GenerateSpeech(ctx context.Context, text string) ([]byte, error)
}
