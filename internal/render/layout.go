package render

import "strings"

const (
	maxFontSize        = 48.0
	minFontSize        = 10.0
	fontSizeStep       = 2.0
	sourceSpacing      = 1.3
	translationSpacing = 1.5
	blockGap           = 25.0
	textMargin         = 80.0
)

// TextLayout is the fitted arrangement of a slide's two text blocks.
type TextLayout struct {
	FontSize    float64
	Source      []string
	Translation []string
	Height      float64
}

// SourceLineHeight is the distance between source-text baselines.
func (l TextLayout) SourceLineHeight() float64 { return l.FontSize * sourceSpacing }

// TranslationLineHeight is the distance between translation baselines.
func (l TextLayout) TranslationLineHeight() float64 { return l.FontSize * translationSpacing }

// Gap is the space between the two blocks, zero when either is empty.
func (l TextLayout) Gap() float64 {
	if len(l.Source) == 0 || len(l.Translation) == 0 {
		return 0
	}
	return blockGap
}

// LayoutText finds the largest font size, stepping down from 48 by 2 to a
// floor of 10, at which the wrapped source and translation fit in a frame
// of the given size (left half width minus margin, height minus top and
// bottom margins). If nothing fits, the floor size is returned.
func LayoutText(m Measurer, source, translation string, frameW, frameH int) TextLayout {
	maxWidth := float64(frameW)/2 - textMargin
	maxHeight := float64(frameH) - 2*textMargin

	var layout TextLayout
	for size := maxFontSize; size >= minFontSize; size -= fontSizeStep {
		layout = TextLayout{
			FontSize:    size,
			Source:      WrapText(m, source, size, true, maxWidth),
			Translation: WrapText(m, translation, size, false, maxWidth),
		}
		layout.Height = float64(len(layout.Source))*layout.SourceLineHeight() +
			layout.Gap() +
			float64(len(layout.Translation))*layout.TranslationLineHeight()
		if layout.Height <= maxHeight {
			break
		}
	}
	return layout
}

// WrapText greedily packs words into lines no wider than maxWidth. A word
// wider than maxWidth gets a line of its own.
func WrapText(m Measurer, text string, size float64, bold bool, maxWidth float64) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	var lines []string
	line := words[0]
	for _, w := range words[1:] {
		candidate := line + " " + w
		if m.Measure(candidate, size, bold) <= maxWidth {
			line = candidate
			continue
		}
		lines = append(lines, line)
		line = w
	}
	return append(lines, line)
}
