package app

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/font/gofont/goregular"

	"lesson_video/internal/config"
	"lesson_video/internal/logger"
	"lesson_video/internal/render"
)

func testConfig(code string) *config.Config {
	return &config.Config{
		TextProvider:       "gemini",
		SpeechProvider:     "gemini",
		TargetLanguage:     code,
		TargetLanguageCode: code,
		RetryAttempts:      1,
	}
}

func TestNew(t *testing.T) {
	a, err := New(testConfig("en"), logger.Nop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if a.Exporter == nil || a.Pipeline == nil || a.Content == nil {
		t.Errorf("app = %+v", a)
	}
}

func TestNewRejectsFontsWithoutLanguageGlyphs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "goregular.ttf")
	if err := os.WriteFile(path, goregular.TTF, 0644); err != nil {
		t.Fatal(err)
	}
	cfg := testConfig("vi")
	cfg.FontRegular = path

	_, err := New(cfg, logger.Nop())
	if !errors.Is(err, render.ErrMissingGlyphs) {
		t.Fatalf("New() error = %v, want ErrMissingGlyphs", err)
	}
}

func TestNewUnknownProvider(t *testing.T) {
	cfg := testConfig("en")
	cfg.TextProvider = "openai"
	if _, err := New(cfg, logger.Nop()); err == nil {
		t.Fatal("expected an error for an unknown text provider")
	}
}
