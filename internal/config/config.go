package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"lesson_video/internal/models"
)

// Config holds everything read from the environment.
type Config struct {
	LogMode string

	// Providers
	TextProvider     string
	SpeechProvider   string
	GeminiAPIKey     string
	GeminiTextModel  string
	GeminiImageModel string
	GeminiTTSModel   string
	GeminiVoice      string
	OllamaHost       string
	OllamaModel      string
	ElevenLabsAPIKey string
	ElevenLabsVoice  string

	TargetLanguage     string
	TargetLanguageCode string
	RequestsPerMinute  int
	MaxSpeechChars     int

	RetryAttempts    int
	RetryBaseDelay   time.Duration
	RetryMultiplier  float64
	RetryMaxDelay    time.Duration
	StageDelay       time.Duration
	ExplainByDefault bool

	Render models.Settings

	// TTF files for slide text. Empty keeps the embedded Go fonts, which
	// only cover Latin-1 and a few other blocks.
	FontRegular string
	FontBold    string

	// Service
	Port                 string
	OutputDir            string
	PublicBaseURL        string
	MongoURI             string
	MongoDB              string
	RabbitMQURL          string
	EventsQueue          string
	MaxConcurrentExports int
	LessonRetention      time.Duration
}

// Load reads .env (when present) and the process environment. The returned
// bool is false when no .env file could be loaded.
func Load() (*Config, bool) {
	envLoaded := godotenv.Load() == nil

	cfg := &Config{
		LogMode: String("LOG_MODE", "development"),

		TextProvider:     strings.ToLower(String("TEXT_PROVIDER", "gemini")),
		SpeechProvider:   strings.ToLower(String("SPEECH_PROVIDER", "gemini")),
		GeminiAPIKey:     String("GEMINI_API_KEY", ""),
		GeminiTextModel:  String("GEMINI_TEXT_MODEL", "gemini-2.5-flash"),
		GeminiImageModel: String("GEMINI_IMAGE_MODEL", "gemini-2.5-flash-image"),
		GeminiTTSModel:   String("GEMINI_TTS_MODEL", "gemini-2.5-flash-preview-tts"),
		GeminiVoice:      String("GEMINI_VOICE", "Kore"),
		OllamaHost:       String("OLLAMA_HOST", "http://localhost:11434"),
		OllamaModel:      String("OLLAMA_MODEL", "llama3.1"),
		ElevenLabsAPIKey: String("ELEVENLABS_API_KEY", ""),
		ElevenLabsVoice:  String("ELEVENLABS_VOICE_ID", "21m00Tcm4TlvDq8ikWAM"),

		TargetLanguage:     String("TARGET_LANGUAGE", "Vietnamese"),
		TargetLanguageCode: strings.ToLower(String("TARGET_LANGUAGE_CODE", "vi")),
		RequestsPerMinute:  Int("REQUESTS_PER_MINUTE", 0),
		MaxSpeechChars:     Int("MAX_SPEECH_CHARS", 4000),

		RetryAttempts:    Int("RETRY_ATTEMPTS", 3),
		RetryBaseDelay:   Duration("RETRY_BASE_DELAY", 2*time.Second),
		RetryMultiplier:  Float("RETRY_MULTIPLIER", 2),
		RetryMaxDelay:    Duration("RETRY_MAX_DELAY", 30*time.Second),
		StageDelay:       Duration("STAGE_DELAY", 2*time.Second),
		ExplainByDefault: Bool("EXPLAIN", true),

		Render: models.Settings{
			Width:              Int("VIDEO_WIDTH", 1920),
			Height:             Int("VIDEO_HEIGHT", 1080),
			FPS:                Int("VIDEO_FPS", 30),
			TransitionDuration: Float("TRANSITION_DURATION", 0),
			FinalHold:          Float("FINAL_HOLD", 0.5),
			WatermarkText:      String("WATERMARK_TEXT", ""),
			UseGPU:             Bool("USE_GPU", false),
			Realtime:           Bool("REALTIME_CAPTURE", false),
			AnimationPreset:    String("ANIMATION_PRESET", "gentle"),
		},

		Port:                 String("PORT", "8080"),
		OutputDir:            String("OUTPUT_DIR", "output"),
		PublicBaseURL:        strings.TrimRight(String("PUBLIC_BASE_URL", ""), "/"),
		MongoURI:             String("MONGO_URI", ""),
		MongoDB:              String("MONGO_DB", "lesson_video"),
		RabbitMQURL:          String("RABBITMQ_URL", ""),
		EventsQueue:          String("EVENTS_QUEUE", "lesson.export.events"),
		MaxConcurrentExports: Int("MAX_CONCURRENT_EXPORTS", 2),
		LessonRetention:      Duration("LESSON_RETENTION", time.Hour),

		FontRegular: String("FONT_REGULAR", ""),
		FontBold:    String("FONT_BOLD", ""),
	}
	cfg.Render.ApplyDefaults()
	if cfg.RetryAttempts < 1 {
		cfg.RetryAttempts = 1
	}
	if cfg.MaxConcurrentExports < 1 {
		cfg.MaxConcurrentExports = 1
	}
	return cfg, envLoaded
}

func String(name, def string) string {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	return v
}

func Int(name string, def int) int {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func Float(name string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func Bool(name string, def bool) bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	switch v {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}

// Duration accepts Go duration strings ("2s", "1500ms") or plain
// milliseconds.
func Duration(name string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(v); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return def
}
