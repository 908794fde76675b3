package render

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"math"
	"strings"
	"testing"

	"lesson_video/internal/models"
)

// fixedMeasurer gives every rune half the font size in width.
type fixedMeasurer struct{}

func (fixedMeasurer) Measure(text string, size float64, bold bool) float64 {
	return float64(len([]rune(text))) * size * 0.5
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestWrapText(t *testing.T) {
	m := fixedMeasurer{}
	// At size 10 every rune is 5 wide, so 50 fits ten runes.
	lines := WrapText(m, "one two three four", 10, false, 50)
	want := []string{"one two", "three four"}
	if len(lines) != len(want) {
		t.Fatalf("WrapText() = %q, want %q", lines, want)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}

	if got := WrapText(m, "   ", 10, false, 50); got != nil {
		t.Errorf("WrapText(blank) = %q, want nil", got)
	}
	if got := WrapText(m, "supercalifragilistic", 10, false, 50); len(got) != 1 {
		t.Errorf("overlong word should keep its own line, got %q", got)
	}
}

func TestLayoutText(t *testing.T) {
	m := fixedMeasurer{}

	t.Run("short text keeps the largest size", func(t *testing.T) {
		l := LayoutText(m, "Hello", "Hola", 1920, 1080)
		if l.FontSize != maxFontSize {
			t.Errorf("FontSize = %v, want %v", l.FontSize, maxFontSize)
		}
		wantH := l.SourceLineHeight() + blockGap + l.TranslationLineHeight()
		if !approx(l.Height, wantH) {
			t.Errorf("Height = %v, want %v", l.Height, wantH)
		}
	})

	t.Run("long text shrinks", func(t *testing.T) {
		text := strings.Repeat("word ", 400)
		l := LayoutText(m, text, text, 1920, 1080)
		if l.FontSize >= maxFontSize {
			t.Errorf("FontSize = %v, expected a smaller size", l.FontSize)
		}
		if l.FontSize > minFontSize && l.Height > 1080-2*textMargin {
			t.Errorf("layout at %v does not fit: %v", l.FontSize, l.Height)
		}
	})

	t.Run("overflow falls back to the floor", func(t *testing.T) {
		text := strings.Repeat("word ", 20000)
		l := LayoutText(m, text, "", 1920, 1080)
		if l.FontSize != minFontSize {
			t.Errorf("FontSize = %v, want %v", l.FontSize, minFontSize)
		}
	})

	t.Run("deterministic", func(t *testing.T) {
		a := LayoutText(m, "The quick brown fox", "El zorro marrón", 1280, 720)
		b := LayoutText(m, "The quick brown fox", "El zorro marrón", 1280, 720)
		if a.FontSize != b.FontSize || a.Height != b.Height || len(a.Source) != len(b.Source) {
			t.Errorf("layouts differ: %+v vs %+v", a, b)
		}
	})

	t.Run("empty translation has no gap", func(t *testing.T) {
		l := LayoutText(m, "Hello", "", 1920, 1080)
		if l.Gap() != 0 {
			t.Errorf("Gap() = %v, want 0", l.Gap())
		}
	})
}

func TestEasing(t *testing.T) {
	tests := []struct {
		name string
		fn   func(float64) float64
		in   float64
		want float64
	}{
		{"cubic start", EaseOutCubic, 0, 0},
		{"cubic end", EaseOutCubic, 1, 1},
		{"cubic clamps", EaseOutCubic, 2, 1},
		{"cubic half", EaseOutCubic, 0.5, 0.875},
		{"sine start", EaseInOutSine, 0, 0},
		{"sine half", EaseInOutSine, 0.5, 0.5},
		{"sine end", EaseInOutSine, 1, 1},
		{"sine clamps", EaseInOutSine, -1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.fn(tt.in); !approx(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWatermarkOpacity(t *testing.T) {
	tests := []struct {
		name              string
		elapsed, duration float64
		first, last       bool
		want              float64
	}{
		{"first slide start", 0, 5, true, false, 0},
		{"first slide fading in", 0.75, 5, true, false, 0.5},
		{"first slide after fade", 2, 5, true, false, 1},
		{"middle slide start", 0, 5, false, false, 1},
		{"last slide fading out", 4.25, 5, false, true, 0.5},
		{"last slide end", 5, 5, false, true, 0},
		{"middle slide end", 5, 5, false, false, 1},
		{"single short slide", 0.5, 1, true, true, 1.0 / 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WatermarkOpacity(tt.elapsed, tt.duration, tt.first, tt.last)
			if !approx(got, tt.want) {
				t.Errorf("WatermarkOpacity() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestContainSize(t *testing.T) {
	tests := []struct {
		srcW, srcH, boxW, boxH int
		wantW, wantH           int
	}{
		{1000, 1000, 960, 1080, 864, 864},
		{2000, 1000, 960, 1080, 864, 432},
		{500, 1000, 960, 1080, 486, 972},
		{0, 10, 960, 1080, 0, 0},
	}
	for _, tt := range tests {
		w, h := ContainSize(tt.srcW, tt.srcH, tt.boxW, tt.boxH, panelFill)
		if w != tt.wantW || h != tt.wantH {
			t.Errorf("ContainSize(%d, %d) = %d x %d, want %d x %d", tt.srcW, tt.srcH, w, h, tt.wantW, tt.wantH)
		}
	}
}

func TestKenBurns(t *testing.T) {
	r := NewRenderer(models.Settings{}, nil)

	zoom, dx, dy := r.KenBurns(0, 0)
	if zoom != 1 || dx != 0 || dy != 0 {
		t.Errorf("start = %v %v %v, want 1 0 0", zoom, dx, dy)
	}

	zoom, dx, dy = r.KenBurns(0, 1)
	if !approx(zoom, 1.05) || !approx(dx, 10) || !approx(dy, -5) {
		t.Errorf("even end = %v %v %v, want 1.05 10 -5", zoom, dx, dy)
	}

	_, dx, dy = r.KenBurns(1, 1)
	if !approx(dx, -10) || !approx(dy, 5) {
		t.Errorf("odd end = %v %v, want -10 5", dx, dy)
	}
}

func TestTextEntrance(t *testing.T) {
	alpha, offset := TextEntrance(0)
	if alpha != 0 || offset != entranceRise {
		t.Errorf("TextEntrance(0) = %v, %v", alpha, offset)
	}
	alpha, offset = TextEntrance(entranceDuration)
	if alpha != 1 || offset != 0 {
		t.Errorf("TextEntrance(end) = %v, %v", alpha, offset)
	}
}

func TestPlaceholderLabel(t *testing.T) {
	if PlaceholderLabel(models.ImagePending) == PlaceholderLabel(models.ImageFailed) {
		t.Error("pending and failed placeholders should differ")
	}
}

func testRenderer(t *testing.T) *Renderer {
	t.Helper()
	fonts, err := DefaultFonts()
	if err != nil {
		t.Fatalf("DefaultFonts() error = %v", err)
	}
	return NewRenderer(models.Settings{Width: 320, Height: 180}, GGFactory(fonts))
}

func pngAsset(t *testing.T, w, h int) *models.ImageAsset {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 200
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode() error = %v", err)
	}
	return &models.ImageAsset{MIMEType: "image/png", Data: base64.StdEncoding.EncodeToString(buf.Bytes())}
}

func TestPrepareImage(t *testing.T) {
	r := testRenderer(t)

	panel, err := r.PrepareImage(pngAsset(t, 100, 100))
	if err != nil {
		t.Fatalf("PrepareImage() error = %v", err)
	}
	if b := panel.Image.Bounds(); b.Dx() != 144 || b.Dy() != 144 {
		t.Errorf("panel = %v, want 144x144", b)
	}

	if panel, err := r.PrepareImage(nil); panel != nil || err != nil {
		t.Errorf("PrepareImage(nil) = %v, %v", panel, err)
	}
	if _, err := r.PrepareImage(&models.ImageAsset{Data: base64.StdEncoding.EncodeToString([]byte("nope"))}); err == nil {
		t.Error("expected an error for undecodable image")
	}
}

func TestRenderFrame(t *testing.T) {
	r := testRenderer(t)
	slide := models.Slide{ID: 0, SourceText: "Hello world", TranslatedText: "Hola mundo", ImageStatus: models.ImageReady, Image: pngAsset(t, 64, 48)}

	layer := r.BuildTextLayer(slide)
	if b := layer.Image.Bounds(); b.Dx() != 160 || b.Dy() != 180 {
		t.Errorf("text layer = %v, want 160x180", b)
	}
	if len(layer.Layout.Source) == 0 || len(layer.Layout.Translation) == 0 {
		t.Errorf("layout is missing blocks: %+v", layer.Layout)
	}

	panel, err := r.PrepareImage(slide.Image)
	if err != nil {
		t.Fatalf("PrepareImage() error = %v", err)
	}

	s := r.NewSurface()
	r.RenderFrame(s, FrameInput{Text: layer, Image: panel, Elapsed: 1, Duration: 2})
	img := s.Image()
	if b := img.Bounds(); b.Dx() != 320 || b.Dy() != 180 {
		t.Fatalf("frame = %v, want 320x180", b)
	}
	// The top-left corner only has background on it.
	if c := img.RGBAAt(1, 1); c == (color.RGBA{}) {
		t.Error("background was not painted")
	}
}

func TestRenderTransition(t *testing.T) {
	r := testRenderer(t)
	out := FrameInput{SlideIndex: 0, Status: models.ImageFailed, Duration: 2}
	in := FrameInput{SlideIndex: 1, Status: models.ImageFailed, Duration: 2}

	s := r.NewSurface()
	r.RenderTransition(s, out, in, 0)

	ref := r.NewSurface()
	out.Elapsed = out.Duration
	r.RenderFrame(ref, out)

	// At progress 0 the outgoing slide fills the frame untouched.
	if !bytes.Equal(s.Image().Pix, ref.Image().Pix) {
		t.Error("transition at progress 0 should show the outgoing frame")
	}
}

func TestRenderPreview(t *testing.T) {
	r := testRenderer(t)
	img := r.RenderPreview(models.Slide{SourceText: "Hi", Image: &models.ImageAsset{Data: "%%%"}}, 0.5)
	if b := img.Bounds(); b.Dx() != 320 || b.Dy() != 180 {
		t.Errorf("preview = %v", b)
	}
}
