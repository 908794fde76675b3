package render

import (
	"image"
	"image/color"

	"github.com/fogleman/gg"
	"golang.org/x/image/draw"
)

// ColorStop is one stop of a linear gradient.
type ColorStop struct {
	Offset float64
	Color  color.Color
}

// Gradient is a linear gradient from (X0, Y0) to (X1, Y1).
type Gradient struct {
	X0, Y0, X1, Y1 float64
	Stops          []ColorStop
}

// Measurer measures text advance widths.
type Measurer interface {
	Measure(text string, size float64, bold bool) float64
}

// Surface is the drawing capability the renderer needs. Transforms set by
// Translate and Scale apply to DrawString, DrawImage and the fill and
// stroke calls; Composite works in raw pixel coordinates.
type Surface interface {
	Measurer

	Width() int
	Height() int

	Clear(c color.Color)
	Push()
	Pop()
	Translate(x, y float64)
	Scale(sx, sy float64)
	ClipRect(x, y, w, h float64)
	ResetClip()

	SetFont(size float64, bold bool)
	DrawString(s string, x, y, ax, ay float64, c color.Color)
	FillRect(x, y, w, h, radius float64, c color.Color)
	FillGradient(x, y, w, h float64, g Gradient)
	StrokeLine(x1, y1, x2, y2, width float64, c color.Color)
	DrawImage(img image.Image, x, y float64)
	Composite(img image.Image, x, y int, alpha float64)

	Image() *image.RGBA
}

// SurfaceFactory creates blank surfaces.
type SurfaceFactory func(w, h int) Surface

// GGSurface implements Surface on a gg context.
type GGSurface struct {
	dc    *gg.Context
	faces *FaceCache
}

func NewGGSurface(w, h int, fonts *Fonts) *GGSurface {
	return &GGSurface{dc: gg.NewContext(w, h), faces: NewFaceCache(fonts)}
}

// GGFactory returns a SurfaceFactory producing GGSurfaces.
func GGFactory(fonts *Fonts) SurfaceFactory {
	return func(w, h int) Surface { return NewGGSurface(w, h, fonts) }
}

func (s *GGSurface) Width() int  { return s.dc.Width() }
func (s *GGSurface) Height() int { return s.dc.Height() }

func (s *GGSurface) Measure(text string, size float64, bold bool) float64 {
	return s.faces.Measure(text, size, bold)
}

func (s *GGSurface) Clear(c color.Color) {
	s.dc.SetColor(c)
	s.dc.Clear()
}

func (s *GGSurface) Push()                  { s.dc.Push() }
func (s *GGSurface) Pop()                   { s.dc.Pop() }
func (s *GGSurface) Translate(x, y float64) { s.dc.Translate(x, y) }
func (s *GGSurface) Scale(sx, sy float64)   { s.dc.Scale(sx, sy) }

func (s *GGSurface) ClipRect(x, y, w, h float64) {
	s.dc.DrawRectangle(x, y, w, h)
	s.dc.Clip()
}

func (s *GGSurface) ResetClip() { s.dc.ResetClip() }

func (s *GGSurface) SetFont(size float64, bold bool) {
	s.dc.SetFontFace(s.faces.Face(size, bold))
}

func (s *GGSurface) DrawString(str string, x, y, ax, ay float64, c color.Color) {
	s.dc.SetColor(c)
	s.dc.DrawStringAnchored(str, x, y, ax, ay)
}

func (s *GGSurface) FillRect(x, y, w, h, radius float64, c color.Color) {
	if radius > 0 {
		s.dc.DrawRoundedRectangle(x, y, w, h, radius)
	} else {
		s.dc.DrawRectangle(x, y, w, h)
	}
	s.dc.SetColor(c)
	s.dc.Fill()
}

func (s *GGSurface) FillGradient(x, y, w, h float64, g Gradient) {
	grad := gg.NewLinearGradient(g.X0, g.Y0, g.X1, g.Y1)
	for _, stop := range g.Stops {
		grad.AddColorStop(stop.Offset, stop.Color)
	}
	s.dc.SetFillStyle(grad)
	s.dc.DrawRectangle(x, y, w, h)
	s.dc.Fill()
}

func (s *GGSurface) StrokeLine(x1, y1, x2, y2, width float64, c color.Color) {
	s.dc.SetColor(c)
	s.dc.SetLineWidth(width)
	s.dc.SetLineCap(gg.LineCapRound)
	s.dc.DrawLine(x1, y1, x2, y2)
	s.dc.Stroke()
}

func (s *GGSurface) DrawImage(img image.Image, x, y float64) {
	s.dc.Push()
	s.dc.Translate(x, y)
	s.dc.DrawImage(img, 0, 0)
	s.dc.Pop()
}

func (s *GGSurface) Composite(img image.Image, x, y int, alpha float64) {
	if alpha <= 0 {
		return
	}
	dst := s.Image()
	b := img.Bounds()
	r := image.Rect(x, y, x+b.Dx(), y+b.Dy()).Intersect(dst.Bounds())
	if r.Empty() {
		return
	}
	sp := b.Min.Add(r.Min.Sub(image.Pt(x, y)))
	if alpha >= 1 {
		draw.Draw(dst, r, img, sp, draw.Over)
		return
	}
	mask := image.NewUniform(color.Alpha{A: uint8(alpha*255 + 0.5)})
	draw.DrawMask(dst, r, img, sp, mask, image.Point{}, draw.Over)
}

func (s *GGSurface) Image() *image.RGBA {
	return s.dc.Image().(*image.RGBA)
}
