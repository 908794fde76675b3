package render

import (
	"image"
	"image/color"
	"math"

	"lesson_video/internal/models"
)

const (
	entranceDuration = 0.75
	entranceRise     = 40.0
)

// FrameInput is everything needed to paint one slide frame. Elapsed is
// measured from the start of the slide's event.
type FrameInput struct {
	SlideIndex int
	Text       *TextLayer
	Image      *ImagePanel
	Status     models.ImageStatus
	Now        float64 // wall-clock seconds, drives the divider pulse
	Elapsed    float64
	Duration   float64
	First      bool
	Last       bool
}

// Progress is Elapsed/Duration clamped to [0, 1].
func (in FrameInput) Progress() float64 {
	if in.Duration <= 0 {
		return 1
	}
	return clamp01(in.Elapsed / in.Duration)
}

// Renderer paints frames for one export. RenderFrame only touches the
// surface it is given; RenderTransition reuses two scratch surfaces and
// must not be called concurrently.
type Renderer struct {
	settings models.Settings
	factory  SurfaceFactory

	outgoing Surface
	incoming Surface
}

func NewRenderer(settings models.Settings, factory SurfaceFactory) *Renderer {
	settings.ApplyDefaults()
	return &Renderer{settings: settings, factory: factory}
}

func (r *Renderer) Settings() models.Settings { return r.settings }

// NewSurface returns a blank frame-sized surface.
func (r *Renderer) NewSurface() Surface {
	return r.newSurface(r.settings.Width, r.settings.Height)
}

func (r *Renderer) newSurface(w, h int) Surface {
	return r.factory(w, h)
}

// KenBurns returns the zoom factor and pan offset for a slide at progress
// p. Even slides drift right and up, odd slides left and down.
func (r *Renderer) KenBurns(slideIndex int, p float64) (zoom, dx, dy float64) {
	e := EaseInOutSine(p)
	dir := 1.0
	if slideIndex%2 == 1 {
		dir = -1
	}
	return 1 + e*r.settings.ZoomAmount, dir * e * r.settings.PanX, -dir * e * r.settings.PanY
}

// TextEntrance returns the text layer's opacity and downward offset at
// elapsed seconds into a slide.
func TextEntrance(elapsed float64) (alpha, offset float64) {
	e := EaseOutCubic(elapsed / entranceDuration)
	return e, (1 - e) * entranceRise
}

// RenderFrame paints one slide frame onto s.
func (r *Renderer) RenderFrame(s Surface, in FrameInput) {
	w, h := float64(s.Width()), float64(s.Height())
	DrawBackground(s)

	if in.Image != nil && in.Image.Image != nil {
		zoom, dx, dy := r.KenBurns(in.SlideIndex, in.Progress())
		b := in.Image.Image.Bounds()
		s.Push()
		s.ClipRect(w/2, 0, w/2, h)
		s.Translate(w*3/4+dx, h/2+dy)
		s.Scale(zoom, zoom)
		s.DrawImage(in.Image.Image, -float64(b.Dx())/2, -float64(b.Dy())/2)
		s.Pop()
		s.ResetClip()
	} else {
		DrawPlaceholder(s, in.Status)
	}

	if in.Text != nil && in.Text.Image != nil {
		alpha, offset := TextEntrance(in.Elapsed)
		s.Composite(in.Text.Image, 0, int(math.Round(offset)), alpha)
	}

	DrawDivider(s, in.Now)
	DrawWatermark(s, r.settings.WatermarkText, WatermarkOpacity(in.Elapsed, in.Duration, in.First, in.Last))
}

// RenderTransition paints a horizontal push from out to in at progress p.
// The outgoing slide is shown in its final state and the incoming one in
// its initial state.
func (r *Renderer) RenderTransition(s Surface, out, in FrameInput, p float64) {
	if r.outgoing == nil || r.outgoing.Width() != s.Width() || r.outgoing.Height() != s.Height() {
		r.outgoing = r.newSurface(s.Width(), s.Height())
		r.incoming = r.newSurface(s.Width(), s.Height())
	}
	out.Elapsed = out.Duration
	in.Elapsed = 0
	r.RenderFrame(r.outgoing, out)
	r.RenderFrame(r.incoming, in)

	e := EaseInOutSine(p)
	w := float64(s.Width())
	s.Clear(color.Black)
	s.Composite(r.outgoing.Image(), -int(math.Round(e*w)), 0, 1)
	s.Composite(r.incoming.Image(), int(math.Round((1-e)*w)), 0, 1)
}

// RenderPreview paints a slide at progress p onto a fresh surface. An image
// that fails to decode is drawn as unavailable.
func (r *Renderer) RenderPreview(slide models.Slide, p float64) *image.RGBA {
	status := slide.ImageStatus
	panel, err := r.PrepareImage(slide.Image)
	if err != nil {
		status = models.ImageFailed
	}
	duration := 3.0
	s := r.NewSurface()
	r.RenderFrame(s, FrameInput{
		SlideIndex: slide.ID,
		Text:       r.BuildTextLayer(slide),
		Image:      panel,
		Status:     status,
		Elapsed:    clamp01(p) * duration,
		Duration:   duration,
	})
	return s.Image()
}
