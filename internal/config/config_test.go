package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("RETRY_ATTEMPTS", "")
	t.Setenv("STAGE_DELAY", "")
	t.Setenv("VIDEO_WIDTH", "")
	t.Setenv("TRANSITION_DURATION", "")

	cfg, _ := Load()
	if cfg.RetryAttempts != 3 {
		t.Fatalf("RetryAttempts: want=3 got=%d", cfg.RetryAttempts)
	}
	if cfg.RetryBaseDelay != 2*time.Second {
		t.Fatalf("RetryBaseDelay: want=2s got=%s", cfg.RetryBaseDelay)
	}
	if cfg.StageDelay != 2*time.Second {
		t.Fatalf("StageDelay: want=2s got=%s", cfg.StageDelay)
	}
	if cfg.Render.Width != 1920 || cfg.Render.Height != 1080 || cfg.Render.FPS != 30 {
		t.Fatalf("render defaults: got=%+v", cfg.Render)
	}
	if cfg.Render.TransitionDuration != 0 {
		t.Fatalf("TransitionDuration: want=0 got=%v", cfg.Render.TransitionDuration)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("RETRY_ATTEMPTS", "5")
	t.Setenv("STAGE_DELAY", "250")
	t.Setenv("RETRY_BASE_DELAY", "1500ms")
	t.Setenv("TRANSITION_DURATION", "0.4")
	t.Setenv("TEXT_PROVIDER", "Ollama")
	t.Setenv("USE_GPU", "yes")
	t.Setenv("FONT_REGULAR", "/fonts/NotoSans-Regular.ttf")
	t.Setenv("FONT_BOLD", "")
	t.Setenv("LESSON_RETENTION", "10m")

	cfg, _ := Load()
	if cfg.RetryAttempts != 5 {
		t.Fatalf("RetryAttempts: want=5 got=%d", cfg.RetryAttempts)
	}
	if cfg.StageDelay != 250*time.Millisecond {
		t.Fatalf("StageDelay: want=250ms got=%s", cfg.StageDelay)
	}
	if cfg.RetryBaseDelay != 1500*time.Millisecond {
		t.Fatalf("RetryBaseDelay: want=1.5s got=%s", cfg.RetryBaseDelay)
	}
	if cfg.Render.TransitionDuration != 0.4 {
		t.Fatalf("TransitionDuration: want=0.4 got=%v", cfg.Render.TransitionDuration)
	}
	if cfg.TextProvider != "ollama" {
		t.Fatalf("TextProvider: want=%q got=%q", "ollama", cfg.TextProvider)
	}
	if !cfg.Render.UseGPU {
		t.Fatalf("UseGPU: want=true")
	}
	if cfg.FontRegular != "/fonts/NotoSans-Regular.ttf" || cfg.FontBold != "" {
		t.Fatalf("fonts: got regular=%q bold=%q", cfg.FontRegular, cfg.FontBold)
	}
	if cfg.LessonRetention != 10*time.Minute {
		t.Fatalf("LessonRetention: want=10m got=%s", cfg.LessonRetention)
	}
}

func TestHelpersFallBackOnGarbage(t *testing.T) {
	tests := []struct {
		name string
		set  string
		run  func() bool
	}{
		{name: "int", set: "abc", run: func() bool { return Int("X_VAL", 7) == 7 }},
		{name: "float", set: "1.2.3", run: func() bool { return Float("X_VAL", 1.5) == 1.5 }},
		{name: "bool", set: "maybe", run: func() bool { return Bool("X_VAL", true) }},
		{name: "duration", set: "soon", run: func() bool { return Duration("X_VAL", time.Second) == time.Second }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("X_VAL", tt.set)
			if !tt.run() {
				t.Fatalf("expected default for %q", tt.set)
			}
		})
	}
}
