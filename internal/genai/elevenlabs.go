package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const elevenLabsBaseURL = "https://api.elevenlabs.io/v1"

type elevenLabsRequest struct {
	Text          string                 `json:"text"`
	ModelID       string                 `json:"model_id"`
	VoiceSettings map[string]interface{} `json:"voice_settings"`
}

// ElevenLabsClient is a SpeechModel. It requests pcm_24000 output so the
// payload matches the narration audio format without transcoding.
type ElevenLabsClient struct {
	APIKey  string
	VoiceID string
	BaseURL string
	Limiter *RateLimiter
	client  *http.Client
}

func NewElevenLabsClient(apiKey, voiceID string, limiter *RateLimiter) *ElevenLabsClient {
	return &ElevenLabsClient{
		APIKey:  apiKey,
		VoiceID: voiceID,
		BaseURL: elevenLabsBaseURL,
		Limiter: limiter,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *ElevenLabsClient) GenerateSpeech(ctx context.Context, text string) ([]byte, error) {
	if c.APIKey == "" {
		return nil, Permanent(fmt.Errorf("elevenlabs: %w", ErrNotConfigured))
	}
	if err := c.Limiter.Wait(ctx); err != nil {
		return nil, err
	}

	jsonData, err := json.Marshal(elevenLabsRequest{
		Text:    text,
		ModelID: "eleven_multilingual_v2",
		VoiceSettings: map[string]interface{}{
			"stability":        0.5,
			"similarity_boost": 0.75,
		},
	})
	if err != nil {
		return nil, Permanent(fmt.Errorf("marshalling JSON: %w", err))
	}

	url := fmt.Sprintf("%s/text-to-speech/%s?output_format=pcm_24000", c.BaseURL, c.VoiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, Permanent(fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", c.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &APIError{Provider: "elevenlabs", Status: resp.StatusCode, Body: truncate(string(body), 512)}
	}

	audioData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if len(audioData) == 0 {
		return nil, ErrNoAudio
	}
	return audioData, nil
}
