package genai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"lesson_video/internal/models"
)

const (
	geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"
	geminiTimeout = 120 * time.Second
)

type geminiRequest struct {
	SystemInstruction *geminiContent   `json:"systemInstruction,omitempty"`
	Contents          []geminiContent  `json:"contents"`
	GenerationConfig  *geminiGenConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiGenConfig struct {
	Temperature        *float64       `json:"temperature,omitempty"`
	ResponseMimeType   string         `json:"responseMimeType,omitempty"`
	ResponseSchema     map[string]any `json:"responseSchema,omitempty"`
	ResponseModalities []string       `json:"responseModalities,omitempty"`
	SpeechConfig       *geminiSpeech  `json:"speechConfig,omitempty"`
}

type geminiSpeech struct {
	VoiceConfig struct {
		PrebuiltVoiceConfig struct {
			VoiceName string `json:"voiceName"`
		} `json:"prebuiltVoiceConfig"`
	} `json:"voiceConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// GeminiOptions configures GeminiClient. Empty models fall back to defaults.
type GeminiOptions struct {
	APIKey     string
	BaseURL    string
	TextModel  string
	ImageModel string
	TTSModel   string
	Voice      string
	Limiter    *RateLimiter
	HTTPClient *http.Client
}

// GeminiClient handles all Gemini API interactions. It implements
// TextModel, ImageModel and SpeechModel.
type GeminiClient struct {
	opts   GeminiOptions
	client *http.Client
}

func NewGeminiClient(opts GeminiOptions) *GeminiClient {
	if opts.BaseURL == "" {
		opts.BaseURL = geminiBaseURL
	}
	if opts.TextModel == "" {
		opts.TextModel = "gemini-2.5-flash"
	}
	if opts.ImageModel == "" {
		opts.ImageModel = "gemini-2.5-flash-image"
	}
	if opts.TTSModel == "" {
		opts.TTSModel = "gemini-2.5-flash-preview-tts"
	}
	if opts.Voice == "" {
		opts.Voice = "Kore"
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: geminiTimeout}
	}
	return &GeminiClient{opts: opts, client: client}
}

func (g *GeminiClient) GenerateText(ctx context.Context, req TextRequest) (string, error) {
	body := geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: req.Prompt}}}},
	}
	if req.System != "" {
		body.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: req.System}}}
	}
	cfg := &geminiGenConfig{}
	if req.Temperature > 0 {
		t := req.Temperature
		cfg.Temperature = &t
	}
	if req.JSONSchema != nil {
		cfg.ResponseMimeType = "application/json"
		cfg.ResponseSchema = req.JSONSchema
	}
	body.GenerationConfig = cfg

	resp, err := g.call(ctx, g.opts.TextModel, body)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, part := range firstParts(resp) {
		sb.WriteString(part.Text)
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func (g *GeminiClient) GenerateImage(ctx context.Context, prompt string) (*models.ImageAsset, error) {
	body := geminiRequest{
		Contents:         []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}},
		GenerationConfig: &geminiGenConfig{ResponseModalities: []string{"IMAGE", "TEXT"}},
	}
	resp, err := g.call(ctx, g.opts.ImageModel, body)
	if err != nil {
		return nil, err
	}
	for _, part := range firstParts(resp) {
		if part.InlineData != nil && strings.HasPrefix(part.InlineData.MimeType, "image/") && part.InlineData.Data != "" {
			return &models.ImageAsset{MIMEType: part.InlineData.MimeType, Data: part.InlineData.Data}, nil
		}
	}
	return nil, Permanent(ErrNoImage)
}

func (g *GeminiClient) GenerateSpeech(ctx context.Context, text string) ([]byte, error) {
	speech := &geminiSpeech{}
	speech.VoiceConfig.PrebuiltVoiceConfig.VoiceName = g.opts.Voice
	body := geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: text}}}},
		GenerationConfig: &geminiGenConfig{
			ResponseModalities: []string{"AUDIO"},
			SpeechConfig:       speech,
		},
	}
	resp, err := g.call(ctx, g.opts.TTSModel, body)
	if err != nil {
		return nil, err
	}
	for _, part := range firstParts(resp) {
		if part.InlineData != nil && part.InlineData.Data != "" {
			pcm, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
			if err != nil {
				return nil, Permanent(fmt.Errorf("decoding audio part: %w", err))
			}
			return pcm, nil
		}
	}
	return nil, Permanent(ErrNoAudio)
}

func (g *GeminiClient) call(ctx context.Context, model string, body geminiRequest) (*geminiResponse, error) {
	if g.opts.APIKey == "" {
		return nil, Permanent(fmt.Errorf("gemini: %w", ErrNotConfigured))
	}
	if err := g.opts.Limiter.Wait(ctx); err != nil {
		return nil, err
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, Permanent(fmt.Errorf("marshalling JSON: %w", err))
	}

	url := fmt.Sprintf("%s/%s:generateContent?key=%s", g.opts.BaseURL, model, g.opts.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, Permanent(fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Provider: "gemini", Status: resp.StatusCode, Body: truncate(string(raw), 512)}
	}

	var out geminiResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("unmarshalling response: %w", err)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return nil, ErrEmptyResponse
	}
	return &out, nil
}

func firstParts(resp *geminiResponse) []geminiPart {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil
	}
	return resp.Candidates[0].Content.Parts
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
