package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	"golang.org/x/sync/errgroup"

	"lesson_video/internal/audio"
	"lesson_video/internal/logger"
	"lesson_video/internal/models"
	"lesson_video/internal/render"
	"lesson_video/internal/timeline"
)

// ErrNoSurface is returned when no drawing surface can be created.
var ErrNoSurface = errors.New("no drawing surface available")

// EncoderSink consumes rendered frames and scheduled narration and
// produces the output container.
type EncoderSink interface {
	audio.Destination

	// Begin marks the clock time that corresponds to output time zero.
	Begin(origin float64) error
	// AcceptFrame shows frame from pts (seconds) onward. The sink must not
	// keep frame after returning.
	AcceptFrame(frame *image.RGBA, pts float64) error
	// Finalize flushes everything and returns the output path.
	Finalize(ctx context.Context) (string, error)
	// Abort stops encoding and discards partial output.
	Abort()
}

// SlideAssets are a slide's pre-built render inputs.
type SlideAssets struct {
	Text   *render.TextLayer
	Image  *render.ImagePanel
	Status models.ImageStatus
}

// Plan is everything the render loop needs, built before it starts.
type Plan struct {
	Timeline timeline.Timeline
	Slides   []SlideAssets
	Audio    []*audio.Decoded // per slide, nil for silent slides
}

type Options struct {
	FPS       int
	FinalHold float64
	Owner     string

	// OnProgress is called after each rendered frame.
	OnProgress func(elapsed, total float64)
}

// Controller drives the render loop against the audio clock. Frame content
// is a function of elapsed audio time only, so late ticks skip ahead
// instead of drifting.
type Controller struct {
	renderer *render.Renderer
	audioCtx *audio.Context
	sink     EncoderSink
	opts     Options
	log      *logger.Logger
}

func NewController(r *render.Renderer, audioCtx *audio.Context, sink EncoderSink, opts Options, log *logger.Logger) *Controller {
	if opts.FPS <= 0 {
		opts.FPS = 30
	}
	if opts.FinalHold < 0 {
		opts.FinalHold = 0
	}
	if opts.Owner == "" {
		opts.Owner = "export"
	}
	return &Controller{renderer: r, audioCtx: audioCtx, sink: sink, opts: opts, log: logger.OrNop(log)}
}

type frame struct {
	img *image.RGBA
	pts float64
}

// Run renders the plan and finalizes the sink. On any error the sink is
// aborted.
func (c *Controller) Run(ctx context.Context, plan Plan) (path string, err error) {
	if c.renderer == nil {
		return "", ErrNoSurface
	}
	surface := c.renderer.NewSurface()
	if surface == nil {
		return "", ErrNoSurface
	}
	if len(plan.Slides) != plan.Timeline.SlideCount() {
		return "", fmt.Errorf("plan has %d slides but timeline has %d", len(plan.Slides), plan.Timeline.SlideCount())
	}

	session, err := c.audioCtx.Acquire(c.opts.Owner)
	if err != nil {
		return "", err
	}
	defer session.Release()

	defer func() {
		if err != nil {
			c.sink.Abort()
		}
	}()

	session.Connect(c.sink)
	start := session.Now()
	if err := c.sink.Begin(start); err != nil {
		return "", fmt.Errorf("starting encoder: %w", err)
	}
	if err := scheduleNarration(session, plan, start); err != nil {
		return "", err
	}

	b := surface.Image().Bounds()
	pool := sync.Pool{New: func() any { return image.NewRGBA(b) }}
	frames := make(chan frame, 4)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for f := range frames {
			err := c.sink.AcceptFrame(f.img, f.pts)
			pool.Put(f.img)
			if err != nil {
				return fmt.Errorf("encoding frame at %.3fs: %w", f.pts, err)
			}
		}
		return nil
	})
	g.Go(func() error {
		defer close(frames)
		emit := func(pts float64) error {
			img := pool.Get().(*image.RGBA)
			copy(img.Pix, surface.Image().Pix)
			select {
			case frames <- frame{img: img, pts: pts}:
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return c.loop(gctx, session.Clock(), start, plan, surface, emit)
	})
	if err := g.Wait(); err != nil {
		return "", err
	}

	path, err = c.sink.Finalize(ctx)
	if err != nil {
		return "", fmt.Errorf("finalizing output: %w", err)
	}
	return path, nil
}

// scheduleNarration queues every slide's narration up front at the slide's
// start offset.
func scheduleNarration(session *audio.Session, plan Plan, start float64) error {
	for i, clip := range plan.Audio {
		if clip == nil {
			continue
		}
		at, ok := plan.Timeline.SlideStart(i)
		if !ok {
			continue
		}
		if err := session.Schedule(clip, start+at); err != nil {
			return fmt.Errorf("scheduling narration for slide %d: %w", i, err)
		}
	}
	return nil
}

func (c *Controller) loop(ctx context.Context, clock audio.Clock, start float64, plan Plan, s render.Surface, emit func(pts float64) error) error {
	tl := plan.Timeline
	slideEvents := make([]timeline.Event, len(plan.Slides))
	for _, e := range tl.Events {
		if e.Kind == timeline.SlideEvent {
			slideEvents[e.SlideIndex] = e
		}
	}
	interval := 1 / float64(c.opts.FPS)
	last := len(plan.Slides) - 1

	input := func(slide int, elapsed float64) render.FrameInput {
		a := plan.Slides[slide]
		e := slideEvents[slide]
		return render.FrameInput{
			SlideIndex: slide,
			Text:       a.Text,
			Image:      a.Image,
			Status:     a.Status,
			Now:        clock.Now(),
			Elapsed:    elapsed - e.Start,
			Duration:   e.Duration,
			First:      slide == 0,
			Last:       slide == last,
		}
	}

	for tick := 1; ; tick++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		elapsed := clock.Now() - start
		if elapsed >= tl.TotalDuration {
			break
		}

		idx := tl.Find(elapsed)
		if idx < 0 {
			break
		}
		switch e := tl.Events[idx]; e.Kind {
		case timeline.TransitionEvent:
			c.renderer.RenderTransition(s, input(e.From, elapsed), input(e.To, elapsed), e.Progress(elapsed))
		default:
			c.renderer.RenderFrame(s, input(e.SlideIndex, elapsed))
		}
		if err := emit(elapsed); err != nil {
			return err
		}
		if c.opts.OnProgress != nil {
			c.opts.OnProgress(elapsed, tl.TotalDuration)
		}

		next := start + float64(tick)*interval
		if err := clock.Sleep(ctx, next-clock.Now()); err != nil {
			return err
		}
	}

	// One last frame at the final state, held briefly before the sink is
	// closed.
	if last >= 0 {
		c.renderer.RenderFrame(s, input(last, tl.TotalDuration))
	}
	if err := emit(tl.TotalDuration); err != nil {
		return err
	}
	if c.opts.FinalHold > 0 {
		if err := clock.Sleep(ctx, c.opts.FinalHold); err != nil {
			return err
		}
		if err := emit(tl.TotalDuration + c.opts.FinalHold); err != nil {
			return err
		}
	}
	if c.opts.OnProgress != nil {
		c.opts.OnProgress(tl.TotalDuration, tl.TotalDuration)
	}
	c.log.Debug("render loop finished", "duration", tl.TotalDuration)
	return nil
}
