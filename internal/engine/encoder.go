package engine

import (
	"context"
	"errors"
	"os/exec"

	"lesson_video/internal/logger"
)

// ErrUnsupportedEncoding is returned when no H.264 encoder in the local
// ffmpeg build can encode a test clip.
var ErrUnsupportedEncoding = errors.New("no supported H.264 encoder found; install an ffmpeg build with libx264")

// Encoder is an ffmpeg video codec and its tuning flags.
type Encoder struct {
	Name string
	Args []string
}

var (
	nvidiaEncoder = Encoder{Name: "h264_nvenc", Args: []string{
		"-preset", "default",
		"-rc", "cbr",
		"-b:v", "4M",
		"-profile:v", "high",
	}}
	intelEncoder = Encoder{Name: "h264_qsv", Args: []string{
		"-preset", "fast",
		"-global_quality", "20",
		"-b:v", "4M",
		"-maxrate", "6M",
	}}
	amdEncoder = Encoder{Name: "h264_amf", Args: []string{
		"-quality", "speed",
		"-rc", "vbr_peak",
		"-b:v", "5M",
		"-maxrate", "8M",
	}}
	cpuEncoder = Encoder{Name: "libx264", Args: []string{
		"-preset", "medium",
		"-crf", "21",
		"-threads", "0",
	}}
)

// Candidates lists encoders in preference order.
func Candidates(useGPU bool) []Encoder {
	if useGPU {
		return []Encoder{nvidiaEncoder, intelEncoder, amdEncoder, cpuEncoder}
	}
	return []Encoder{cpuEncoder}
}

// ProbeFunc reports whether ffmpeg can encode with the named encoder.
type ProbeFunc func(ctx context.Context, encoder string) bool

// ProbeEncoder test-encodes a one second clip with encoder.
func ProbeEncoder(ctx context.Context, encoder string) bool {
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-hide_banner", "-loglevel", "panic",
		"-f", "lavfi", "-i", "testsrc=duration=1:size=320x240:rate=1",
		"-t", "1",
		"-c:v", encoder,
		"-f", "null", "-")
	return cmd.Run() == nil
}

// NegotiateEncoder returns the first candidate that passes probe. It runs
// before any frame is rendered so an unusable ffmpeg fails the export
// immediately.
func NegotiateEncoder(ctx context.Context, useGPU bool, probe ProbeFunc, log *logger.Logger) (Encoder, error) {
	log = logger.OrNop(log)
	if probe == nil {
		probe = ProbeEncoder
	}
	for _, enc := range Candidates(useGPU) {
		if err := ctx.Err(); err != nil {
			return Encoder{}, err
		}
		if probe(ctx, enc.Name) {
			log.Info("using video encoder", "encoder", enc.Name)
			return enc, nil
		}
		log.Debug("encoder unavailable", "encoder", enc.Name)
	}
	return Encoder{}, ErrUnsupportedEncoding
}
