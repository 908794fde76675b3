package models

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// ImageStatus tells a slide that is still waiting for its image apart from
// one whose image synthesis failed.
type ImageStatus string

const (
	ImagePending ImageStatus = "pending"
	ImageReady   ImageStatus = "ready"
	ImageFailed  ImageStatus = "failed"
)

// ImageAsset is a provider-returned image, kept base64 encoded.
type ImageAsset struct {
	MIMEType string `json:"mime_type" yaml:"mime_type"`
	Data     string `json:"data" yaml:"data"` // base64 encoded image bytes
}

// DataURI renders the asset the way a browser would embed it.
func (a *ImageAsset) DataURI() string {
	if a == nil {
		return ""
	}
	mime := a.MIMEType
	if mime == "" {
		mime = "image/png"
	}
	return fmt.Sprintf("data:%s;base64,%s", mime, a.Data)
}

// Bytes decodes the base64 payload.
func (a *ImageAsset) Bytes() ([]byte, error) {
	if a == nil || a.Data == "" {
		return nil, fmt.Errorf("image asset is empty")
	}
	raw, err := base64.StdEncoding.DecodeString(a.Data)
	if err != nil {
		return nil, fmt.Errorf("decoding image payload: %w", err)
	}
	return raw, nil
}

// AudioAsset is base64 encoded raw PCM (16-bit LE, mono, 24 kHz).
type AudioAsset struct {
	Data string `json:"data" yaml:"data"`
}

// Slide is one pedagogical unit of a lesson. ID equals the slide's
// position in Lesson.Slides and is never reused.
type Slide struct {
	ID              int         `json:"id" yaml:"id"`
	SourceText      string      `json:"source_text" yaml:"source_text"`
	TranslatedText  string      `json:"translated_text" yaml:"translated_text"`
	NarrationScript string      `json:"narration_script" yaml:"narration_script"`
	ImageStatus     ImageStatus `json:"image_status" yaml:"image_status"`
	Image           *ImageAsset `json:"image,omitempty" yaml:"image,omitempty"`
	NarrationAudio  *AudioAsset `json:"narration_audio,omitempty" yaml:"narration_audio,omitempty"`
}

// HasScript reports whether the slide carries a non-blank narration script.
func (s Slide) HasScript() bool {
	return strings.TrimSpace(s.NarrationScript) != ""
}

// Lesson is an ordered slide sequence plus the continuity context that was
// supplied when the lesson was created.
type Lesson struct {
	ID          string  `json:"id" yaml:"id"`
	Title       string  `json:"title,omitempty" yaml:"title,omitempty"`
	ContextText string  `json:"context_text" yaml:"context_text"`
	SourceText  string  `json:"source_text,omitempty" yaml:"source_text,omitempty"`
	Language    string  `json:"language,omitempty" yaml:"language,omitempty"`
	Slides      []Slide `json:"slides" yaml:"slides"`
}

// Validate checks the dense zero-based id invariant.
func (l Lesson) Validate() error {
	for i, s := range l.Slides {
		if s.ID != i {
			return fmt.Errorf("slide at position %d has id %d", i, s.ID)
		}
	}
	return nil
}

// CloneSlides returns a copy of the slice. Slide values are copied; the
// asset pointers are shared because assets are never mutated once set.
func CloneSlides(slides []Slide) []Slide {
	if slides == nil {
		return nil
	}
	out := make([]Slide, len(slides))
	copy(out, slides)
	return out
}
