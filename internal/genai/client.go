package genai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"lesson_video/internal/logger"
	"lesson_video/internal/models"
)

// Options wires a Client. Any model may be nil; the matching operation then
// degrades the same way a provider failure does.
type Options struct {
	Text           TextModel
	Image          ImageModel
	Speech         SpeechModel
	Retry          RetryPolicy
	Language       Language
	MaxSpeechChars int
	Logger         *logger.Logger
}

// Client is the retrying facade over the generation providers. Only
// SegmentText reports errors; the other operations convert failures into
// sentinel text or a nil asset.
type Client struct {
	text           TextModel
	image          ImageModel
	speech         SpeechModel
	policy         RetryPolicy
	lang           Language
	maxSpeechChars int
	log            *logger.Logger
}

func New(opts Options) *Client {
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = DefaultRetryPolicy()
	}
	if opts.Language.Name == "" {
		opts.Language = Language{Name: "English", Code: "en"}
	}
	c := &Client{
		text:           opts.Text,
		image:          opts.Image,
		speech:         opts.Speech,
		policy:         opts.Retry,
		lang:           opts.Language,
		maxSpeechChars: opts.MaxSpeechChars,
		log:            logger.OrNop(opts.Logger),
	}
	return c
}

// Language returns the lesson target language.
func (c *Client) Language() Language { return c.lang }

func (c *Client) policyFor(op string) RetryPolicy {
	p := c.policy
	prev := p.OnRetry
	p.OnRetry = func(attempt int, delay time.Duration, err error) {
		c.log.Warn("generation call failed, retrying", "op", op, "attempt", attempt, "max_attempts", p.MaxAttempts, "delay", delay, "error", err)
		if prev != nil {
			prev(attempt, delay, err)
		}
	}
	return p
}

// SegmentText asks the provider to split text into lesson units and falls
// back to FallbackSegments on any failure. ErrNoSegments is returned only
// when both produce nothing.
func (c *Client) SegmentText(ctx context.Context, text string) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrNoSegments
	}

	segments, err := c.segmentRemote(ctx, text)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.log.Warn("segmentation failed, using local splitter", "error", err)
		segments = FallbackSegments(text)
	}
	if len(segments) == 0 {
		return nil, ErrNoSegments
	}
	return segments, nil
}

func (c *Client) segmentRemote(ctx context.Context, text string) ([]string, error) {
	if c.text == nil {
		return nil, ErrNotConfigured
	}
	return Retry(ctx, c.policyFor("segment"), func(ctx context.Context) ([]string, error) {
		raw, err := c.text.GenerateText(ctx, TextRequest{System: segmentSystem, Prompt: text, JSONSchema: segmentSchema})
		if err != nil {
			return nil, err
		}
		segments, err := parseSegments(raw)
		if err != nil {
			return nil, Permanent(err)
		}
		return segments, nil
	})
}

// parseSegments requires a JSON array of strings with at least one
// non-blank entry. Blank entries are dropped.
func parseSegments(raw string) ([]string, error) {
	var items []interface{}
	if err := json.Unmarshal([]byte(cleanModelOutput(raw)), &items); err != nil {
		return nil, fmt.Errorf("segment response is not a JSON array: %w", err)
	}
	out := make([]string, 0, len(items))
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("segment %d is %T, not a string", i, item)
		}
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil, ErrNoSegments
	}
	return out, nil
}

// Translate returns the translation, or the language's failure sentinel.
func (c *Client) Translate(ctx context.Context, text, lessonContext string) string {
	system, prompt := translatePrompt(c.lang, text, lessonContext)
	out, err := c.generate(ctx, "translate", TextRequest{System: system, Prompt: prompt, Temperature: 0.2})
	if err != nil {
		c.log.Warn("translation failed", "error", err)
		return c.lang.TranslationFailed()
	}
	return out
}

// Explain returns the narration script, or the language's failure sentinel.
func (c *Client) Explain(ctx context.Context, text, lessonContext string) string {
	system, prompt := explainPrompt(c.lang, text, lessonContext)
	out, err := c.generate(ctx, "explain", TextRequest{System: system, Prompt: prompt, Temperature: 0.7})
	if err != nil {
		c.log.Warn("explanation failed", "error", err)
		return c.lang.ExplanationFailed()
	}
	return out
}

func (c *Client) generate(ctx context.Context, op string, req TextRequest) (string, error) {
	if c.text == nil {
		return "", ErrNotConfigured
	}
	return Retry(ctx, c.policyFor(op), func(ctx context.Context) (string, error) {
		return c.text.GenerateText(ctx, req)
	})
}

// SynthesizeImage returns nil when no image could be produced.
func (c *Client) SynthesizeImage(ctx context.Context, text, explanation, lessonContext string) *models.ImageAsset {
	if c.image == nil {
		return nil
	}
	prompt := imagePrompt(text, explanation, lessonContext)
	asset, err := Retry(ctx, c.policyFor("image"), func(ctx context.Context) (*models.ImageAsset, error) {
		return c.image.GenerateImage(ctx, prompt)
	})
	if err != nil {
		c.log.Warn("image synthesis failed", "error", err)
		return nil
	}
	return asset
}

// SynthesizeSpeech returns nil without calling the provider when script is
// blank, and nil on failure. Long scripts are synthesized in chunks and the
// PCM is concatenated.
func (c *Client) SynthesizeSpeech(ctx context.Context, script string) *models.AudioAsset {
	script = strings.TrimSpace(script)
	if script == "" || c.speech == nil {
		return nil
	}

	var pcm []byte
	for i, chunk := range ChunkByCharLimit(script, c.maxSpeechChars) {
		part, err := Retry(ctx, c.policyFor("speech"), func(ctx context.Context) ([]byte, error) {
			return c.speech.GenerateSpeech(ctx, chunk)
		})
		if err != nil {
			c.log.Warn("speech synthesis failed", "chunk", i, "error", err)
			return nil
		}
		// Keep sample alignment across chunk boundaries.
		pcm = append(pcm, part[:len(part)&^1]...)
	}
	if len(pcm) == 0 {
		c.log.Warn("speech synthesis returned no samples")
		return nil
	}
	return &models.AudioAsset{Data: base64.StdEncoding.EncodeToString(pcm)}
}
