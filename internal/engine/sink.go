package engine

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"

	"lesson_video/internal/audio"
	"lesson_video/internal/logger"
)

// SinkOptions configures an FFmpegSink.
type SinkOptions struct {
	Width       int
	Height      int
	FPS         int
	OutputPath  string
	Encoder     Encoder
	VoiceVolume float64

	// MinDuration, when positive, is the shortest acceptable output in
	// seconds; Finalize checks it with Probe.
	MinDuration float64
	Probe       DurationFunc
}

// FFmpegSink pipes raw RGBA frames into ffmpeg and mixes scheduled
// narration into one track. Finalize muxes both into OutputPath.
type FFmpegSink struct {
	opts SinkOptions
	log  *logger.Logger

	mu      sync.Mutex
	origin  float64
	mix     *mixer
	frames  *frameWriter
	workDir string
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	stderr  bytes.Buffer
	cancel  context.CancelFunc
}

func NewFFmpegSink(opts SinkOptions, log *logger.Logger) *FFmpegSink {
	if opts.VoiceVolume <= 0 {
		opts.VoiceVolume = 1
	}
	if opts.Probe == nil {
		opts.Probe = ProbeDuration
	}
	return &FFmpegSink{
		opts: opts,
		log:  logger.OrNop(log),
		mix:  newMixer(audio.SampleRate, opts.VoiceVolume),
	}
}

// Begin starts the video encoder process.
func (s *FFmpegSink) Begin(origin float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.origin = origin

	if err := os.MkdirAll(filepath.Dir(s.opts.OutputPath), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	dir, err := os.MkdirTemp(filepath.Dir(s.opts.OutputPath), ".render-*")
	if err != nil {
		return fmt.Errorf("failed to create work directory: %w", err)
	}
	s.workDir = dir

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-s", fmt.Sprintf("%dx%d", s.opts.Width, s.opts.Height),
		"-r", strconv.Itoa(s.opts.FPS),
		"-i", "pipe:0",
		"-c:v", s.opts.Encoder.Name,
	}
	args = append(args, s.opts.Encoder.Args...)
	args = append(args, "-pix_fmt", "yuv420p", "-an", s.videoPath())

	s.cmd = exec.CommandContext(ctx, "ffmpeg", args...)
	s.cmd.Stderr = &s.stderr
	stdin, err := s.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("failed to open ffmpeg stdin: %w", err)
	}
	s.stdin = stdin
	if err := s.cmd.Start(); err != nil {
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}
	s.frames = newFrameWriter(stdin, s.opts.FPS, s.opts.Width*s.opts.Height*4)
	s.log.Debug("encoder started", "encoder", s.opts.Encoder.Name, "work_dir", dir)
	return nil
}

func (s *FFmpegSink) videoPath() string { return filepath.Join(s.workDir, "video.mp4") }
func (s *FFmpegSink) audioPath() string { return filepath.Join(s.workDir, "narration.wav") }

func (s *FFmpegSink) AcceptFrame(frame *image.RGBA, pts float64) error {
	if s.frames == nil {
		return fmt.Errorf("encoder not started")
	}
	return s.frames.write(packed(frame), pts)
}

// AcceptAudio mixes samples into the narration track at clock time at.
func (s *FFmpegSink) AcceptAudio(samples []float32, sampleRate int, at float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mix.add(samples, sampleRate, at-s.origin)
	return nil
}

// Finalize closes the video stream, writes the narration as WAV and muxes
// both into the output file.
func (s *FFmpegSink) Finalize(ctx context.Context) (string, error) {
	if s.cmd == nil {
		return "", fmt.Errorf("encoder not started")
	}
	defer os.RemoveAll(s.workDir)

	if err := s.stdin.Close(); err != nil {
		return "", fmt.Errorf("failed to close ffmpeg stdin: %w", err)
	}
	if err := s.cmd.Wait(); err != nil {
		s.log.Error("ffmpeg video encode failed", "output", s.stderr.String())
		return "", fmt.Errorf("failed to encode video: %w", err)
	}

	duration := float64(s.frames.written) / float64(s.opts.FPS)
	s.mu.Lock()
	samples := s.mix.samples(duration)
	s.mu.Unlock()

	f, err := os.Create(s.audioPath())
	if err != nil {
		return "", fmt.Errorf("failed to create narration track: %w", err)
	}
	if err := audio.WriteWAV(f, samples, audio.SampleRate); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}

	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", s.videoPath(),
		"-i", s.audioPath(),
		"-map", "0:v",
		"-map", "1:a",
		"-c:v", "copy",
		"-c:a", "aac",
		"-b:a", "128k",
		"-ar", "44100",
		"-ac", "2",
		"-movflags", "+faststart",
		"-shortest",
		s.opts.OutputPath,
	}
	output, err := exec.CommandContext(ctx, "ffmpeg", args...).CombinedOutput()
	if err != nil {
		s.log.Error("ffmpeg mux failed", "output", string(output))
		os.Remove(s.opts.OutputPath)
		return "", fmt.Errorf("failed to mux narration: %w", err)
	}
	if err := s.verifyDuration(ctx); err != nil {
		os.Remove(s.opts.OutputPath)
		return "", err
	}
	s.log.Info("video written", "path", s.opts.OutputPath, "frames", s.frames.written, "duration", duration)
	return s.opts.OutputPath, nil
}

func (s *FFmpegSink) verifyDuration(ctx context.Context) error {
	if s.opts.MinDuration <= 0 {
		return nil
	}
	got, err := s.opts.Probe(ctx, s.opts.OutputPath)
	if err != nil {
		return fmt.Errorf("verifying output: %w", err)
	}
	return checkDuration(got, s.opts.MinDuration, s.opts.FPS)
}

// Abort kills the encoder and removes partial output.
func (s *FFmpegSink) Abort() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.cmd != nil && s.cmd.Process != nil {
		s.stdin.Close()
		s.cmd.Wait()
	}
	if s.workDir != "" {
		os.RemoveAll(s.workDir)
	}
	os.Remove(s.opts.OutputPath)
}

// packed returns frame pixels without row padding.
func packed(frame *image.RGBA) []byte {
	b := frame.Bounds()
	rowLen := b.Dx() * 4
	if frame.Stride == rowLen && b.Min == (image.Point{}) {
		return frame.Pix[:rowLen*b.Dy()]
	}
	out := make([]byte, 0, rowLen*b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		i := frame.PixOffset(b.Min.X, y)
		out = append(out, frame.Pix[i:i+rowLen]...)
	}
	return out
}

// frameWriter turns time-stamped frames into a constant frame rate stream.
// Gaps are filled by repeating the previous frame; frames landing on an
// already written slot are dropped.
type frameWriter struct {
	w         io.Writer
	fps       int
	frameSize int
	written   int
	prev      []byte
}

func newFrameWriter(w io.Writer, fps, frameSize int) *frameWriter {
	return &frameWriter{w: w, fps: fps, frameSize: frameSize}
}

func (fw *frameWriter) write(pix []byte, pts float64) error {
	if len(pix) != fw.frameSize {
		return fmt.Errorf("frame is %d bytes, want %d", len(pix), fw.frameSize)
	}
	target := int(math.Round(pts * float64(fw.fps)))
	if target < fw.written {
		fw.keep(pix)
		return nil
	}
	for fw.prev != nil && fw.written < target {
		if _, err := fw.w.Write(fw.prev); err != nil {
			return err
		}
		fw.written++
	}
	if _, err := fw.w.Write(pix); err != nil {
		return err
	}
	fw.written++
	fw.keep(pix)
	return nil
}

func (fw *frameWriter) keep(pix []byte) {
	if fw.prev == nil {
		fw.prev = make([]byte, len(pix))
	}
	copy(fw.prev, pix)
}

// mixer sums clips into one mono track.
type mixer struct {
	rate   int
	volume float64
	buf    []float32
}

func newMixer(rate int, volume float64) *mixer {
	return &mixer{rate: rate, volume: volume}
}

// add mixes samples starting at offset seconds. Clips at another sample
// rate are resampled by nearest neighbour.
func (m *mixer) add(samples []float32, sampleRate int, offset float64) {
	if len(samples) == 0 {
		return
	}
	if offset < 0 {
		offset = 0
	}
	if sampleRate <= 0 {
		sampleRate = m.rate
	}
	start := int(math.Round(offset * float64(m.rate)))
	n := int(int64(len(samples)) * int64(m.rate) / int64(sampleRate))
	if need := start + n; need > len(m.buf) {
		m.buf = append(m.buf, make([]float32, need-len(m.buf))...)
	}
	for i := 0; i < n; i++ {
		src := samples[i*sampleRate/m.rate]
		m.buf[start+i] += src * float32(m.volume)
	}
}

// samples returns the track padded with silence or cut to duration seconds,
// clamped to [-1, 1].
func (m *mixer) samples(duration float64) []float32 {
	n := int(math.Round(duration * float64(m.rate)))
	out := make([]float32, n)
	copy(out, m.buf)
	for i, v := range out {
		if v > 1 {
			out[i] = 1
		} else if v < -1 {
			out[i] = -1
		}
	}
	return out
}
