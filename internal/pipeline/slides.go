package pipeline

import "lesson_video/internal/models"

// The helpers below never modify their input slice; each returns a fresh
// slice so snapshots already handed to observers stay intact.

// AppendSlide adds a slide whose id is its position.
func AppendSlide(slides []models.Slide, source, translated, script string) []models.Slide {
	out := make([]models.Slide, len(slides), len(slides)+1)
	copy(out, slides)
	return append(out, models.Slide{
		ID:              len(slides),
		SourceText:      source,
		TranslatedText:  translated,
		NarrationScript: script,
		ImageStatus:     models.ImagePending,
	})
}

// WithImage records the image outcome for slide i. A nil asset marks the
// image as failed.
func WithImage(slides []models.Slide, i int, asset *models.ImageAsset) []models.Slide {
	out := models.CloneSlides(slides)
	out[i].Image = asset
	out[i].ImageStatus = models.ImageReady
	if asset == nil {
		out[i].ImageStatus = models.ImageFailed
	}
	return out
}

// WithNarration records the narration outcome for slide i.
func WithNarration(slides []models.Slide, i int, audio *models.AudioAsset) []models.Slide {
	out := models.CloneSlides(slides)
	out[i].NarrationAudio = audio
	return out
}
