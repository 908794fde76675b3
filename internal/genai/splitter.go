package genai

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	fallbackBoundary = regexp.MustCompile(`[\n.]+`)
	sentencePattern  = regexp.MustCompile(`[^.!?]+(?:[.!?]+|$)`)
)

// minSegmentRunes: fallback fragments of this many runes or fewer are noise.
const minSegmentRunes = 2

// FallbackSegments is the local splitter used when the provider cannot
// segment a passage: split on runs of newlines or periods, trim, and drop
// fragments of two characters or fewer.
func FallbackSegments(text string) []string {
	var out []string
	for _, part := range fallbackBoundary.Split(text, -1) {
		part = strings.TrimSpace(part)
		if utf8.RuneCountInString(part) <= minSegmentRunes {
			continue
		}
		out = append(out, part)
	}
	return out
}

// ChunkByCharLimit groups whole sentences into chunks of at most limit
// characters. A sentence longer than limit is split between words, and a
// single word longer than limit becomes its own chunk.
func ChunkByCharLimit(text string, limit int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	var (
		chunks  []string
		current strings.Builder
	)
	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			chunks = append(chunks, s)
		}
		current.Reset()
	}
	add := func(piece string) {
		if current.Len() > 0 && utf8.RuneCountInString(current.String())+1+utf8.RuneCountInString(piece) > limit {
			flush()
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(piece)
	}

	for _, sentence := range sentencePattern.FindAllString(text, -1) {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}
		if utf8.RuneCountInString(sentence) <= limit {
			add(sentence)
			continue
		}
		for _, word := range strings.Fields(sentence) {
			if utf8.RuneCountInString(word) > limit {
				flush()
				chunks = append(chunks, word)
				continue
			}
			add(word)
		}
	}
	flush()
	return chunks
}
