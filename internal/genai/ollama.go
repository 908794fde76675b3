package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OllamaClient is a TextModel backed by a local Ollama server.
type OllamaClient struct {
	BaseURL string
	Model   string
	Limiter *RateLimiter
	client  *http.Client
}

func NewOllamaClient(baseURL, model string, limiter *RateLimiter) *OllamaClient {
	return &OllamaClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Model:   model,
		Limiter: limiter,
		client:  &http.Client{Timeout: 10 * time.Minute},
	}
}

func (o *OllamaClient) GenerateText(ctx context.Context, req TextRequest) (string, error) {
	if err := o.Limiter.Wait(ctx); err != nil {
		return "", err
	}

	reqData := map[string]interface{}{
		"model":  o.Model,
		"system": req.System,
		"prompt": req.Prompt,
		"stream": false,
		"options": map[string]interface{}{
			"temperature": req.Temperature,
			"num_ctx":     8192,
		},
	}
	if req.JSONSchema != nil {
		reqData["format"] = req.JSONSchema
	}

	payload, err := json.Marshal(reqData)
	if err != nil {
		return "", Permanent(fmt.Errorf("marshalling JSON: %w", err))
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.BaseURL+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return "", Permanent(fmt.Errorf("creating request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", &APIError{Provider: "ollama", Status: resp.StatusCode, Body: fmt.Sprintf("model %q: %s", o.Model, truncate(string(body), 256))}
	}

	var ollamaResp struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&ollamaResp); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}

	result := cleanModelOutput(ollamaResp.Response)
	if result == "" {
		return "", ErrEmptyResponse
	}
	return result, nil
}

// cleanModelOutput strips the code fences and quoting small local models
// like to wrap their answers in.
func cleanModelOutput(s string) string {
	s = strings.TrimSpace(s)
	for _, prefix := range []string{"```json", "```text", "```"} {
		if strings.HasPrefix(s, prefix) {
			s = strings.TrimPrefix(s, prefix)
			break
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	s = strings.TrimPrefix(s, `"""`)
	s = strings.TrimSuffix(s, `"""`)
	return strings.TrimSpace(s)
}
