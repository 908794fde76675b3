package models

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LessonFile is the on-disk form of a generated lesson. Settings are
// optional and override the environment when present.
type LessonFile struct {
	Version  string    `yaml:"version"`
	Settings *Settings `yaml:"settings,omitempty"`
	Lesson   Lesson    `yaml:"lesson"`
}

const lessonFileVersion = "1"

// LoadLessonFile reads a lesson YAML file
func LoadLessonFile(path string) (*LessonFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading lesson file: %w", err)
	}

	var lf LessonFile
	if err := yaml.Unmarshal(data, &lf); err != nil {
		return nil, fmt.Errorf("parsing lesson file %s: %w", path, err)
	}
	if err := lf.Lesson.Validate(); err != nil {
		return nil, fmt.Errorf("invalid lesson in %s: %w", path, err)
	}
	if lf.Settings != nil {
		lf.Settings.ApplyDefaults()
	}
	for i := range lf.Lesson.Slides {
		s := &lf.Lesson.Slides[i]
		if s.ImageStatus == "" {
			if s.Image != nil {
				s.ImageStatus = ImageReady
			} else {
				s.ImageStatus = ImageFailed
			}
		}
	}
	return &lf, nil
}

// SaveLessonFile writes the lesson as YAML
func SaveLessonFile(path string, lesson Lesson, settings *Settings) error {
	lf := LessonFile{Version: lessonFileVersion, Settings: settings, Lesson: lesson}
	data, err := yaml.Marshal(&lf)
	if err != nil {
		return fmt.Errorf("encoding lesson file: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing lesson file: %w", err)
	}
	return nil
}
