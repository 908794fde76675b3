package engine

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
)

var (
	// ErrFFmpegMissing is returned when ffmpeg or ffprobe is not on PATH.
	ErrFFmpegMissing = errors.New("ffmpeg not found in PATH, please install FFmpeg")
	// ErrShortOutput is returned when the written video is shorter than
	// the rendered timeline.
	ErrShortOutput = errors.New("output video is shorter than the timeline")
)

// DurationFunc reports a media file's duration in seconds.
type DurationFunc func(ctx context.Context, path string) (float64, error)

// ValidateFFmpegInstalled checks that FFmpeg and FFprobe are installed.
func ValidateFFmpegInstalled() error {
	for _, tool := range []string{"ffmpeg", "ffprobe"} {
		if _, err := exec.LookPath(tool); err != nil {
			return fmt.Errorf("%w: %s", ErrFFmpegMissing, tool)
		}
	}
	return nil
}

// ProbeDuration reads a media file's duration in seconds with ffprobe.
func ProbeDuration(ctx context.Context, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, "ffprobe", "-v", "quiet", "-show_entries",
		"format=duration", "-of", "csv=p=0", path)
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("failed to get media duration: %w", err)
	}
	return parseDuration(output)
}

func parseDuration(output []byte) (float64, error) {
	duration, err := strconv.ParseFloat(strings.TrimSpace(string(output)), 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse duration: %w", err)
	}
	return duration, nil
}

// checkDuration allows the output to come up one frame short of want,
// which is what aac priming and -shortest can cost.
func checkDuration(got, want float64, fps int) error {
	slack := 0.0
	if fps > 0 {
		slack = 1 / float64(fps)
	}
	if got+slack < want {
		return fmt.Errorf("%w: %.3fs written, %.3fs expected", ErrShortOutput, got, want)
	}
	return nil
}

var invalidFilenameChars = regexp.MustCompile(`[<>:"/\\|?*\s]+`)

// SanitizeFilename replaces characters that are unsafe in file names.
func SanitizeFilename(name string) string {
	sanitized := invalidFilenameChars.ReplaceAllString(name, "_")
	sanitized = strings.Trim(sanitized, " ._")
	if sanitized == "" {
		return "lesson"
	}
	if runes := []rune(sanitized); len(runes) > 80 {
		sanitized = string(runes[:80])
	}
	return sanitized
}
