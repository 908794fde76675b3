package main

import (
	"testing"

	"lesson_video/internal/models"
)

func TestRenderSettings(t *testing.T) {
	env := models.DefaultSettings()
	file := models.DefaultSettings()
	file.TransitionDuration = 0.3
	file.FPS = 24

	tests := []struct {
		name           string
		file           *models.Settings
		transition     float64
		wantTransition float64
		wantFPS        int
	}{
		{"environment only", nil, -1, 0, 30},
		{"flag over environment", nil, 0.5, 0.5, 30},
		{"lesson file over environment", &file, -1, 0.3, 24},
		{"flag over lesson file", &file, 0.8, 0.8, 24},
		{"flag disables lesson file transition", &file, 0, 0, 24},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := renderSettings(env, tt.file, options{transition: tt.transition})
			if got.TransitionDuration != tt.wantTransition || got.FPS != tt.wantFPS {
				t.Errorf("renderSettings() transition = %v fps = %d, want %v and %d", got.TransitionDuration, got.FPS, tt.wantTransition, tt.wantFPS)
			}
		})
	}
	if file.TransitionDuration != 0.3 {
		t.Errorf("lesson file settings were modified: %v", file.TransitionDuration)
	}
}
