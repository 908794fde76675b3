package export

import (
	"context"
	"errors"
	"fmt"
	"image/png"
	"io"
	"os"
	"runtime"

	"golang.org/x/sync/errgroup"

	"lesson_video/internal/audio"
	"lesson_video/internal/capture"
	"lesson_video/internal/engine"
	"lesson_video/internal/logger"
	"lesson_video/internal/models"
	"lesson_video/internal/render"
	"lesson_video/internal/timeline"
)

// ErrEmptyLesson is returned for a lesson without slides.
var ErrEmptyLesson = errors.New("lesson has no slides to export")

// SinkFactory creates the encoder sink for one export.
type SinkFactory func(opts engine.SinkOptions, log *logger.Logger) capture.EncoderSink

// Options wires an Exporter. Zero values select ffmpeg, the embedded
// fonts and a private audio context per export.
type Options struct {
	Settings models.Settings
	Fonts    *render.Fonts

	// AudioContext is shared with other users of the audio output when
	// set; an export fails with audio.ErrContextBusy while it is held.
	AudioContext *audio.Context

	Probe   engine.ProbeFunc
	NewSink SinkFactory
	Workers int
}

// Exporter turns a finished lesson into a video file.
type Exporter struct {
	settings models.Settings
	fonts    *render.Fonts
	audioCtx *audio.Context
	probe    engine.ProbeFunc
	newSink  SinkFactory
	workers  int
	log      *logger.Logger
}

func New(opts Options, log *logger.Logger) (*Exporter, error) {
	opts.Settings.ApplyDefaults()
	if opts.Fonts == nil {
		fonts, err := render.DefaultFonts()
		if err != nil {
			return nil, err
		}
		opts.Fonts = fonts
	}
	if opts.NewSink == nil {
		opts.NewSink = func(o engine.SinkOptions, log *logger.Logger) capture.EncoderSink {
			return engine.NewFFmpegSink(o, log)
		}
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	return &Exporter{
		settings: opts.Settings,
		fonts:    opts.Fonts,
		audioCtx: opts.AudioContext,
		probe:    opts.Probe,
		newSink:  opts.NewSink,
		workers:  opts.Workers,
		log:      logger.OrNop(log),
	}, nil
}

// Settings returns the render settings in effect.
func (e *Exporter) Settings() models.Settings { return e.settings }

func (e *Exporter) renderer() *render.Renderer {
	return render.NewRenderer(e.settings, render.GGFactory(e.fonts))
}

// Export renders lesson to outPath. onProgress may be nil. Partial output
// is removed on failure.
func (e *Exporter) Export(ctx context.Context, lesson models.Lesson, outPath string, onProgress func(elapsed, total float64)) (path string, err error) {
	if len(lesson.Slides) == 0 {
		return "", ErrEmptyLesson
	}
	if err := lesson.Validate(); err != nil {
		return "", err
	}
	log := e.log.With("lesson_id", lesson.ID, "output", outPath)

	defer func() {
		if err != nil {
			if rmErr := os.Remove(outPath); rmErr != nil && !os.IsNotExist(rmErr) {
				log.Warn("failed to remove partial output", "error", rmErr)
			}
		}
	}()

	enc, err := engine.NegotiateEncoder(ctx, e.settings.UseGPU, e.probe, log)
	if err != nil {
		return "", err
	}

	clips, durations := DecodeNarration(lesson.Slides, log)
	tl := timeline.Build(durations, e.settings.TransitionDuration)
	log.Info("timeline built", "slides", tl.SlideCount(), "duration", tl.TotalDuration)

	r := e.renderer()
	assets, err := PrepareAssets(ctx, r, lesson.Slides, e.workers, log)
	if err != nil {
		return "", err
	}

	sink := e.newSink(engine.SinkOptions{
		Width:       e.settings.Width,
		Height:      e.settings.Height,
		FPS:         e.settings.FPS,
		OutputPath:  outPath,
		Encoder:     enc,
		VoiceVolume: e.settings.VoiceVolume,
		MinDuration: tl.TotalDuration,
	}, log)

	audioCtx := e.audioCtx
	if audioCtx == nil {
		var clock audio.Clock = audio.NewVirtualClock()
		if e.settings.Realtime {
			clock = audio.NewRealtimeClock()
		}
		audioCtx = audio.NewContext(clock)
	}

	c := capture.NewController(r, audioCtx, sink, capture.Options{
		FPS:        e.settings.FPS,
		FinalHold:  e.settings.FinalHold,
		Owner:      "export:" + lesson.ID,
		OnProgress: onProgress,
	}, log)
	path, err = c.Run(ctx, capture.Plan{Timeline: tl, Slides: assets, Audio: clips})
	if err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}
	return path, nil
}

// DecodeNarration decodes every slide's narration once. A slide whose
// payload is missing or malformed is silent and gets duration 0, which
// the timeline turns into the default slide length.
func DecodeNarration(slides []models.Slide, log *logger.Logger) ([]*audio.Decoded, []float64) {
	log = logger.OrNop(log)
	clips := make([]*audio.Decoded, len(slides))
	durations := make([]float64, len(slides))
	for i, s := range slides {
		if s.NarrationAudio == nil {
			continue
		}
		clip, err := audio.Decode(s.NarrationAudio.Data)
		if err != nil {
			log.Warn("narration could not be decoded, slide will be silent", "slide", i, "error", err)
			continue
		}
		clips[i] = clip
		durations[i] = clip.Duration()
	}
	return clips, durations
}

// PrepareAssets builds every slide's text layer and image panel before the
// render loop starts. An undecodable image is drawn as unavailable.
func PrepareAssets(ctx context.Context, r *render.Renderer, slides []models.Slide, workers int, log *logger.Logger) ([]capture.SlideAssets, error) {
	log = logger.OrNop(log)
	assets := make([]capture.SlideAssets, len(slides))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, s := range slides {
		i, s := i, s
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			a := capture.SlideAssets{Text: r.BuildTextLayer(s), Status: s.ImageStatus}
			panel, err := r.PrepareImage(s.Image)
			switch {
			case err != nil:
				log.Warn("slide image could not be decoded", "slide", i, "error", err)
				a.Status = models.ImageFailed
			case panel != nil:
				a.Image = panel
				a.Status = models.ImageReady
			case a.Status == models.ImageReady:
				a.Status = models.ImageFailed
			}
			assets[i] = a
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return assets, nil
}

// WritePreview renders slide index of lesson at progress p as PNG.
func (e *Exporter) WritePreview(w io.Writer, lesson models.Lesson, index int, p float64) error {
	if index < 0 || index >= len(lesson.Slides) {
		return fmt.Errorf("slide %d out of range (lesson has %d)", index, len(lesson.Slides))
	}
	img := e.renderer().RenderPreview(lesson.Slides[index], p)
	return png.Encode(w, img)
}
