package render

import (
	"image/color"
	"math"

	"lesson_video/internal/models"
)

const (
	gridPitch       = 60.0
	dividerMargin   = 80.0
	watermarkSize   = 28.0
	watermarkInsetX = 40.0
	watermarkInsetY = 30.0
	watermarkFade   = 1.5
	pulsePeriod     = 400.0
)

var (
	backgroundGradient = []ColorStop{
		{Offset: 0, Color: color.RGBA{R: 0x0F, G: 0x17, B: 0x2A, A: 0xFF}},
		{Offset: 0.55, Color: color.RGBA{R: 0x1E, G: 0x1B, B: 0x4B, A: 0xFF}},
		{Offset: 1, Color: color.RGBA{R: 0x31, G: 0x2E, B: 0x81, A: 0xFF}},
	}
	gridColor       = color.NRGBA{R: 255, G: 255, B: 255, A: 10}
	placeholderFill = color.NRGBA{R: 255, G: 255, B: 255, A: 18}
	placeholderText = color.NRGBA{R: 255, G: 255, B: 255, A: 140}
)

// DrawBackground paints the gradient and the grid over the whole surface.
func DrawBackground(s Surface) {
	w, h := float64(s.Width()), float64(s.Height())
	s.FillGradient(0, 0, w, h, Gradient{X0: 0, Y0: 0, X1: w, Y1: h, Stops: backgroundGradient})
	for x := gridPitch; x < w; x += gridPitch {
		s.StrokeLine(x, 0, x, h, 1, gridColor)
	}
	for y := gridPitch; y < h; y += gridPitch {
		s.StrokeLine(0, y, w, y, 1, gridColor)
	}
}

// DividerPulse is the glow intensity in [0, 1] at wall-clock time now
// (seconds).
func DividerPulse(now float64) float64 {
	return 0.5 + 0.5*math.Sin(now*1000/pulsePeriod)
}

// DrawDivider strokes the glowing vertical line at the horizontal midpoint.
func DrawDivider(s Surface, now float64) {
	w, h := float64(s.Width()), float64(s.Height())
	x := w / 2
	pulse := DividerPulse(now)
	glow := []struct {
		width float64
		alpha float64
	}{
		{14, 0.06 + 0.08*pulse},
		{8, 0.12 + 0.12*pulse},
		{4, 0.25 + 0.2*pulse},
	}
	for _, g := range glow {
		s.StrokeLine(x, dividerMargin, x, h-dividerMargin, g.width, color.NRGBA{R: 129, G: 140, B: 248, A: alphaByte(g.alpha)})
	}
	s.StrokeLine(x, dividerMargin, x, h-dividerMargin, 1.5, color.NRGBA{R: 224, G: 231, B: 255, A: 230})
}

// WatermarkOpacity fades the watermark in over the first seconds of the
// first slide and out over the last seconds of the last slide.
func WatermarkOpacity(elapsed, duration float64, first, last bool) float64 {
	opacity := 1.0
	if first && elapsed < watermarkFade {
		opacity = math.Min(opacity, elapsed/watermarkFade)
	}
	if last {
		if remaining := duration - elapsed; remaining < watermarkFade {
			opacity = math.Min(opacity, remaining/watermarkFade)
		}
	}
	return clamp01(opacity)
}

// DrawWatermark draws text anchored at the bottom-right corner.
func DrawWatermark(s Surface, text string, opacity float64) {
	if text == "" || opacity <= 0 {
		return
	}
	s.SetFont(watermarkSize, true)
	x := float64(s.Width()) - watermarkInsetX
	y := float64(s.Height()) - watermarkInsetY
	s.DrawString(text, x, y, 1, 0, color.NRGBA{R: 255, G: 255, B: 255, A: alphaByte(0.55 * opacity)})
}

// PlaceholderLabel is the caption shown in place of a missing image.
func PlaceholderLabel(status models.ImageStatus) string {
	if status == models.ImagePending {
		return "Generating image…"
	}
	return "Image unavailable"
}

// DrawPlaceholder draws a rounded panel centered in the right half.
func DrawPlaceholder(s Surface, status models.ImageStatus) {
	w, h := float64(s.Width()), float64(s.Height())
	pw, ph := w/2*0.7, h*0.5
	cx, cy := w*3/4, h/2
	s.FillRect(cx-pw/2, cy-ph/2, pw, ph, 24, placeholderFill)
	s.SetFont(32, false)
	s.DrawString(PlaceholderLabel(status), cx, cy, 0.5, 0.5, placeholderText)
}

func alphaByte(a float64) uint8 {
	return uint8(clamp01(a)*255 + 0.5)
}
