package genai

import "strings"

// Language is the lesson's target language.
type Language struct {
	Name string
	Code string
}

type failureText struct {
	translation string
	explanation string
}

var failureTexts = map[string]failureText{
	"en": {"[Translation unavailable]", "[Explanation unavailable]"},
	"vi": {"Lỗi dịch thuật", "Lỗi tạo lời giảng"},
	"es": {"Error de traducción", "Error al generar la explicación"},
	"fr": {"Erreur de traduction", "Erreur lors de la génération de l'explication"},
	"de": {"Übersetzungsfehler", "Fehler bei der Erklärung"},
	"zh": {"翻译出错", "讲解生成出错"},
	"ja": {"翻訳エラー", "解説の生成エラー"},
}

func (l Language) texts() failureText {
	if t, ok := failureTexts[strings.ToLower(l.Code)]; ok {
		return t
	}
	return failureTexts["en"]
}

// TranslationFailed is the sentinel stored when translation fails.
func (l Language) TranslationFailed() string { return l.texts().translation }

// ExplanationFailed is the sentinel stored when explanation fails.
func (l Language) ExplanationFailed() string { return l.texts().explanation }

// Letters a slide font must be able to draw for each language, on top of
// the failure sentinels.
var glyphSamples = map[string]string{
	"vi": "ĂÂĐÊÔƠƯăâđêôơư ạảấầẩẫậắằẳẵặẹẻẽếềểễệỉịọỏốồổỗộớờởỡợụủứừửữựỳỵỷỹ",
	"es": "áéíóúñü¿¡",
	"fr": "àâçéèêëîïôûùüÿœæ",
	"de": "äöüß",
}

// GlyphSample is text in the target language used to check font coverage.
func (l Language) GlyphSample() string {
	t := l.texts()
	return t.translation + t.explanation + glyphSamples[strings.ToLower(l.Code)]
}
