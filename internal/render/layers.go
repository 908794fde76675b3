package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"lesson_video/internal/models"
)

var (
	sourceColor      = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	translationColor = color.RGBA{R: 255, G: 212, B: 121, A: 255}
)

// TextLayer is a slide's text, laid out and rasterized once. Image covers
// the left half of the frame.
type TextLayer struct {
	Layout TextLayout
	Image  *image.RGBA
}

// BuildTextLayer fits and rasterizes the slide's source and translated
// text. It allocates its own surface and is safe to call concurrently.
func (r *Renderer) BuildTextLayer(slide models.Slide) *TextLayer {
	w, h := r.settings.Width, r.settings.Height
	layerW := w / 2
	s := r.newSurface(layerW, h)

	layout := LayoutText(s, slide.SourceText, slide.TranslatedText, w, h)
	cx := float64(layerW) / 2
	y := (float64(h) - layout.Height) / 2

	s.SetFont(layout.FontSize, true)
	lh := layout.SourceLineHeight()
	for _, line := range layout.Source {
		s.DrawString(line, cx, y+lh/2, 0.5, 0.5, sourceColor)
		y += lh
	}
	y += layout.Gap()

	s.SetFont(layout.FontSize, false)
	lh = layout.TranslationLineHeight()
	for _, line := range layout.Translation {
		s.DrawString(line, cx, y+lh/2, 0.5, 0.5, translationColor)
		y += lh
	}

	return &TextLayer{Layout: layout, Image: s.Image()}
}

// ImagePanel is a decoded slide image pre-scaled to fit the right half of
// the frame.
type ImagePanel struct {
	Image *image.RGBA
}

// panelFill is how much of the right half a contained image may cover.
const panelFill = 0.9

// PrepareImage decodes the asset and scales it to fit (contain) 90% of the
// right half of the frame. A nil asset yields a nil panel.
func (r *Renderer) PrepareImage(asset *models.ImageAsset) (*ImagePanel, error) {
	if asset == nil {
		return nil, nil
	}
	raw, err := asset.Bytes()
	if err != nil {
		return nil, err
	}
	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decoding slide image: %w", err)
	}

	w, h := ContainSize(src.Bounds().Dx(), src.Bounds().Dy(), r.settings.Width/2, r.settings.Height, panelFill)
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("slide image has no pixels")
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	return &ImagePanel{Image: dst}, nil
}

// ContainSize scales (srcW, srcH) to fit inside fill*(boxW, boxH) keeping
// the aspect ratio.
func ContainSize(srcW, srcH, boxW, boxH int, fill float64) (int, int) {
	if srcW <= 0 || srcH <= 0 {
		return 0, 0
	}
	sx := float64(boxW) / float64(srcW)
	sy := float64(boxH) / float64(srcH)
	scale := sx
	if sy < scale {
		scale = sy
	}
	scale *= fill
	return int(float64(srcW)*scale + 0.5), int(float64(srcH)*scale + 0.5)
}
