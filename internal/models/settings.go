package models

// Settings contains global render and export settings
type Settings struct {
	Width              int     `json:"width,omitempty" yaml:"width,omitempty"`
	Height             int     `json:"height,omitempty" yaml:"height,omitempty"`
	FPS                int     `json:"fps,omitempty" yaml:"fps,omitempty"`
	TransitionDuration float64 `json:"transition_duration" yaml:"transition_duration"` // seconds, 0 keeps transitions degenerate
	FinalHold          float64 `json:"final_hold,omitempty" yaml:"final_hold,omitempty"`
	WatermarkText      string  `json:"watermark_text,omitempty" yaml:"watermark_text,omitempty"`
	VoiceVolume        float64 `json:"voice_volume,omitempty" yaml:"voice_volume,omitempty"`
	UseGPU             bool    `json:"use_gpu" yaml:"use_gpu"`
	Realtime           bool    `json:"realtime" yaml:"realtime"`

	// Ken-Burns settings
	AnimationPreset string  `json:"animation_preset,omitempty" yaml:"animation_preset,omitempty"` // "gentle", "moderate", "dynamic", "custom"
	ZoomAmount      float64 `json:"zoom_amount,omitempty" yaml:"zoom_amount,omitempty"`
	PanX            float64 `json:"pan_x,omitempty" yaml:"pan_x,omitempty"`
	PanY            float64 `json:"pan_y,omitempty" yaml:"pan_y,omitempty"`
}

// DefaultSettings returns settings for a 1920x1080, 30 fps export.
func DefaultSettings() Settings {
	var s Settings
	s.ApplyDefaults()
	return s
}

// ApplyDefaults replaces zero values with defaults.
func (s *Settings) ApplyDefaults() {
	if s.Width <= 0 {
		s.Width = 1920
	}
	if s.Height <= 0 {
		s.Height = 1080
	}
	if s.FPS <= 0 {
		s.FPS = 30
	}
	if s.TransitionDuration < 0 {
		s.TransitionDuration = 0
	}
	if s.FinalHold <= 0 {
		s.FinalHold = 0.5
	}
	if s.WatermarkText == "" {
		s.WatermarkText = "Bilingual Lesson"
	}
	if s.VoiceVolume <= 0 {
		s.VoiceVolume = 1.0
	}
	if s.AnimationPreset == "" {
		s.AnimationPreset = "gentle"
	}
	s.applyAnimationPreset()
}

// applyAnimationPreset fills Ken-Burns amounts that were left unset
func (s *Settings) applyAnimationPreset() {
	zoom, panX, panY := 0.05, 10.0, 5.0
	switch s.AnimationPreset {
	case "moderate":
		zoom, panX, panY = 0.08, 20, 10
	case "dynamic":
		zoom, panX, panY = 0.12, 35, 18
	}
	if s.ZoomAmount <= 0 {
		s.ZoomAmount = zoom
	}
	if s.PanX <= 0 {
		s.PanX = panX
	}
	if s.PanY <= 0 {
		s.PanY = panY
	}
}

// FrameInterval is the duration of one frame in seconds.
func (s Settings) FrameInterval() float64 {
	if s.FPS <= 0 {
		return 1.0 / 30
	}
	return 1.0 / float64(s.FPS)
}
