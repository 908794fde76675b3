package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lesson_video/internal/genai"
	"lesson_video/internal/logger"
	"lesson_video/internal/models"
)

// ErrNoSegments aborts a lesson when segmentation produced nothing.
var ErrNoSegments = errors.New("no lesson segments could be extracted")

type Stage string

const (
	StageIdle        Stage = "idle"
	StageSegmenting  Stage = "segmenting"
	StageTranslating Stage = "translating"
	StageImaging     Stage = "imaging"
	StageNarrating   Stage = "narrating"
	StageDone        Stage = "done"
	StageError       Stage = "error"
)

// Progress is published after every unit of work. Slides is a snapshot
// owned by the receiver.
type Progress struct {
	Stage   Stage
	Label   string
	Current int
	Total   int
	Slides  []models.Slide
	Err     error
}

// ContentGenerator is the subset of genai.Client the orchestrator drives.
type ContentGenerator interface {
	SegmentText(ctx context.Context, text string) ([]string, error)
	Translate(ctx context.Context, text, lessonContext string) string
	Explain(ctx context.Context, text, lessonContext string) string
	SynthesizeImage(ctx context.Context, text, explanation, lessonContext string) *models.ImageAsset
	SynthesizeSpeech(ctx context.Context, script string) *models.AudioAsset
}

// Options controls one pipeline run.
type Options struct {
	Explain bool
	Context string
}

// Orchestrator runs the generation stages strictly one request at a time
// with a fixed delay between units of work.
type Orchestrator struct {
	gen   ContentGenerator
	delay time.Duration
	sleep genai.SleepFunc
	log   *logger.Logger
}

func NewOrchestrator(gen ContentGenerator, delay time.Duration, log *logger.Logger) *Orchestrator {
	return &Orchestrator{gen: gen, delay: delay, sleep: genai.Sleep, log: logger.OrNop(log)}
}

// WithSleep replaces the delay implementation; tests use it to run without
// waiting.
func (o *Orchestrator) WithSleep(sleep genai.SleepFunc) *Orchestrator {
	o.sleep = sleep
	return o
}

// Run builds the lesson slides for text. Only segmentation can fail the
// run; later stages degrade per slide. progress may be nil; sends on it
// block, so observers must keep reading until Run returns. A cancelled ctx
// stops the run between units and returns the slides built so far with
// ctx.Err().
func (o *Orchestrator) Run(ctx context.Context, text string, opts Options, progress chan<- Progress) ([]models.Slide, error) {
	publish := func(p Progress) {
		if progress == nil {
			return
		}
		select {
		case progress <- p:
		case <-ctx.Done():
		}
	}

	publish(Progress{Stage: StageSegmenting, Label: "Segmenting text"})
	segments, err := o.gen.SegmentText(ctx, text)
	if err == nil && len(segments) == 0 {
		err = ErrNoSegments
	}
	if err != nil {
		if errors.Is(err, genai.ErrNoSegments) {
			err = ErrNoSegments
		}
		o.log.Error("segmentation failed", "error", err)
		publish(Progress{Stage: StageError, Label: "Segmentation failed", Err: err})
		return nil, err
	}
	o.log.Info("text segmented", "segments", len(segments))

	var slides []models.Slide
	total := len(segments)

	for i, segment := range segments {
		translated := o.gen.Translate(ctx, segment, opts.Context)
		script := ""
		if opts.Explain {
			script = o.gen.Explain(ctx, segment, opts.Context)
		}
		slides = AppendSlide(slides, segment, translated, script)
		publish(Progress{Stage: StageTranslating, Label: fmt.Sprintf("Translating %d/%d", i+1, total), Current: i + 1, Total: total, Slides: models.CloneSlides(slides)})
		if err := o.pause(ctx, i, total); err != nil {
			return slides, err
		}
	}

	for i := range slides {
		asset := o.gen.SynthesizeImage(ctx, slides[i].SourceText, slides[i].NarrationScript, opts.Context)
		if asset == nil {
			o.log.Warn("slide image unavailable", "slide", i)
		}
		slides = WithImage(slides, i, asset)
		publish(Progress{Stage: StageImaging, Label: fmt.Sprintf("Generating image %d/%d", i+1, total), Current: i + 1, Total: total, Slides: models.CloneSlides(slides)})
		if err := o.pause(ctx, i, total); err != nil {
			return slides, err
		}
	}

	for i := range slides {
		var audio *models.AudioAsset
		if slides[i].HasScript() {
			audio = o.gen.SynthesizeSpeech(ctx, slides[i].NarrationScript)
			if audio == nil {
				o.log.Warn("slide narration unavailable", "slide", i)
			}
		}
		slides = WithNarration(slides, i, audio)
		publish(Progress{Stage: StageNarrating, Label: fmt.Sprintf("Generating narration %d/%d", i+1, total), Current: i + 1, Total: total, Slides: models.CloneSlides(slides)})
		if err := o.pause(ctx, i, total); err != nil {
			return slides, err
		}
	}

	publish(Progress{Stage: StageDone, Label: "Done", Current: total, Total: total, Slides: models.CloneSlides(slides)})
	o.log.Info("lesson generated", "slides", len(slides))
	return slides, nil
}

// pause sleeps between units of work, never after the last one.
func (o *Orchestrator) pause(ctx context.Context, i, total int) error {
	if i >= total-1 {
		return ctx.Err()
	}
	return o.sleep(ctx, o.delay)
}
