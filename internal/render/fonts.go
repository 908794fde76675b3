package render

import (
	"errors"
	"fmt"
	"os"
	"unicode"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/math/fixed"
)

// Fonts holds parsed regular and bold typefaces. It is read-only once
// built and may be shared between goroutines; faces are not, so each
// surface keeps its own FaceCache.
type Fonts struct {
	Regular *truetype.Font
	Bold    *truetype.Font
}

// DefaultFonts returns the embedded Go fonts.
func DefaultFonts() (*Fonts, error) {
	regular, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parsing regular font: %w", err)
	}
	bold, err := truetype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("parsing bold font: %w", err)
	}
	return &Fonts{Regular: regular, Bold: bold}, nil
}

// LoadFonts reads TTF files from disk. An empty path keeps the embedded
// default for that weight; non-Latin target languages need a font with the
// right glyph coverage.
func LoadFonts(regularPath, boldPath string) (*Fonts, error) {
	fonts, err := DefaultFonts()
	if err != nil {
		return nil, err
	}
	if regularPath != "" {
		if fonts.Regular, err = parseFontFile(regularPath); err != nil {
			return nil, err
		}
	}
	if boldPath != "" {
		if fonts.Bold, err = parseFontFile(boldPath); err != nil {
			return nil, err
		}
	}
	return fonts, nil
}

// ErrMissingGlyphs is returned when the fonts cannot draw the lesson
// language.
var ErrMissingGlyphs = errors.New("font has no glyphs for the target language")

// FontPair names a regular and bold TTF file.
type FontPair struct {
	Regular string
	Bold    string
}

// SystemFontPairs are well-known font locations tried when the embedded
// fonts do not cover the target language.
var SystemFontPairs = []FontPair{
	{"/usr/share/fonts/truetype/noto/NotoSans-Regular.ttf", "/usr/share/fonts/truetype/noto/NotoSans-Bold.ttf"},
	{"/usr/share/fonts/noto/NotoSans-Regular.ttf", "/usr/share/fonts/noto/NotoSans-Bold.ttf"},
	{"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf", "/usr/share/fonts/truetype/dejavu/DejaVuSans-Bold.ttf"},
	{"/usr/share/fonts/TTF/DejaVuSans.ttf", "/usr/share/fonts/TTF/DejaVuSans-Bold.ttf"},
	{"/usr/share/fonts/dejavu/DejaVuSans.ttf", "/usr/share/fonts/dejavu/DejaVuSans-Bold.ttf"},
	{"/Library/Fonts/Arial Unicode.ttf", "/Library/Fonts/Arial Unicode.ttf"},
	{`C:\Windows\Fonts\arial.ttf`, `C:\Windows\Fonts\arialbd.ttf`},
}

// MissingGlyphs returns the runes of sample that the regular or the bold
// face cannot draw, in order of first appearance.
func (f *Fonts) MissingGlyphs(sample string) []rune {
	var missing []rune
	seen := make(map[rune]bool)
	for _, r := range sample {
		if unicode.IsSpace(r) || seen[r] {
			continue
		}
		seen[r] = true
		if f.Regular.Index(r) == 0 || f.Bold.Index(r) == 0 {
			missing = append(missing, r)
		}
	}
	return missing
}

// ResolveFonts picks fonts able to draw sample. Explicit paths are used as
// given and must cover it. Without them the embedded fonts are tried first,
// then each candidate pair in order.
func ResolveFonts(regularPath, boldPath, sample string, candidates []FontPair) (*Fonts, error) {
	if regularPath != "" || boldPath != "" {
		fonts, err := LoadFonts(regularPath, boldPath)
		if err != nil {
			return nil, err
		}
		if missing := fonts.MissingGlyphs(sample); len(missing) > 0 {
			return nil, fmt.Errorf("%w: FONT_REGULAR/FONT_BOLD cannot draw %q", ErrMissingGlyphs, string(missing))
		}
		return fonts, nil
	}

	fonts, err := DefaultFonts()
	if err != nil {
		return nil, err
	}
	missing := fonts.MissingGlyphs(sample)
	if len(missing) == 0 {
		return fonts, nil
	}
	for _, c := range candidates {
		alt, err := LoadFonts(c.Regular, c.Bold)
		if err != nil {
			continue
		}
		if len(alt.MissingGlyphs(sample)) == 0 {
			return alt, nil
		}
	}
	return nil, fmt.Errorf("%w: embedded fonts cannot draw %q, set FONT_REGULAR and FONT_BOLD to a TTF that covers it", ErrMissingGlyphs, string(missing))
}

func parseFontFile(path string) (*truetype.Font, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading font %s: %w", path, err)
	}
	f, err := truetype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing font %s: %w", path, err)
	}
	return f, nil
}

type faceKey struct {
	size float64
	bold bool
}

// FaceCache builds font faces lazily, one per size and weight.
type FaceCache struct {
	fonts *Fonts
	faces map[faceKey]font.Face
}

func NewFaceCache(fonts *Fonts) *FaceCache {
	return &FaceCache{fonts: fonts, faces: make(map[faceKey]font.Face)}
}

func (c *FaceCache) Face(size float64, bold bool) font.Face {
	key := faceKey{size: size, bold: bold}
	if f, ok := c.faces[key]; ok {
		return f
	}
	tt := c.fonts.Regular
	if bold {
		tt = c.fonts.Bold
	}
	f := truetype.NewFace(tt, &truetype.Options{Size: size, Hinting: font.HintingNone})
	c.faces[key] = f
	return f
}

// Measure returns the advance width of text.
func (c *FaceCache) Measure(text string, size float64, bold bool) float64 {
	return fixedToFloat(font.MeasureString(c.Face(size, bold), text))
}

func fixedToFloat(v fixed.Int26_6) float64 {
	return float64(v) / 64
}
