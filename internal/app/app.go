package app

import (
	"context"
	"fmt"

	"lesson_video/internal/config"
	"lesson_video/internal/export"
	"lesson_video/internal/genai"
	"lesson_video/internal/jobs"
	"lesson_video/internal/logger"
	"lesson_video/internal/pipeline"
	"lesson_video/internal/render"
)

// App holds the long-lived services shared by the CLI and the server.
type App struct {
	Config   *config.Config
	Log      *logger.Logger
	Content  *genai.Client
	Pipeline *pipeline.Orchestrator
	Exporter *export.Exporter
}

func New(cfg *config.Config, log *logger.Logger) (*App, error) {
	log.Info("Wiring services...")

	lang := genai.Language{Name: cfg.TargetLanguage, Code: cfg.TargetLanguageCode}
	content, err := wireContent(cfg, lang, log)
	if err != nil {
		return nil, err
	}
	fonts, err := render.ResolveFonts(cfg.FontRegular, cfg.FontBold, lang.GlyphSample(), render.SystemFontPairs)
	if err != nil {
		return nil, fmt.Errorf("init fonts for %s: %w", cfg.TargetLanguage, err)
	}
	exporter, err := export.New(export.Options{Settings: cfg.Render, Fonts: fonts}, log.With("component", "export"))
	if err != nil {
		return nil, fmt.Errorf("init exporter: %w", err)
	}

	return &App{
		Config:   cfg,
		Log:      log,
		Content:  content,
		Pipeline: pipeline.NewOrchestrator(content, cfg.StageDelay, log.With("component", "pipeline")),
		Exporter: exporter,
	}, nil
}

func wireContent(cfg *config.Config, lang genai.Language, log *logger.Logger) (*genai.Client, error) {
	limiter := genai.NewRateLimiter(cfg.RequestsPerMinute)

	var gemini *genai.GeminiClient
	if cfg.GeminiAPIKey != "" {
		gemini = genai.NewGeminiClient(genai.GeminiOptions{
			APIKey:     cfg.GeminiAPIKey,
			TextModel:  cfg.GeminiTextModel,
			ImageModel: cfg.GeminiImageModel,
			TTSModel:   cfg.GeminiTTSModel,
			Voice:      cfg.GeminiVoice,
			Limiter:    limiter,
		})
	}

	opts := genai.Options{
		Retry: genai.RetryPolicy{
			MaxAttempts: cfg.RetryAttempts,
			BaseDelay:   cfg.RetryBaseDelay,
			Multiplier:  cfg.RetryMultiplier,
			MaxDelay:    cfg.RetryMaxDelay,
		},
		Language:       lang,
		MaxSpeechChars: cfg.MaxSpeechChars,
		Logger:         log.With("component", "genai"),
	}
	if gemini != nil {
		opts.Image = gemini
	} else {
		log.Warn("GEMINI_API_KEY is not set, slides will have no images")
	}

	switch cfg.TextProvider {
	case "gemini":
		if gemini != nil {
			opts.Text = gemini
		}
	case "ollama":
		opts.Text = genai.NewOllamaClient(cfg.OllamaHost, cfg.OllamaModel, limiter)
	default:
		return nil, fmt.Errorf("unknown TEXT_PROVIDER %q", cfg.TextProvider)
	}
	if opts.Text == nil {
		log.Warn("no text provider available, segmentation falls back to sentence splitting")
	}

	switch cfg.SpeechProvider {
	case "gemini":
		if gemini != nil {
			opts.Speech = gemini
		}
	case "elevenlabs":
		if cfg.ElevenLabsAPIKey == "" {
			return nil, fmt.Errorf("SPEECH_PROVIDER is elevenlabs but ELEVENLABS_API_KEY is not set")
		}
		opts.Speech = genai.NewElevenLabsClient(cfg.ElevenLabsAPIKey, cfg.ElevenLabsVoice, limiter)
	default:
		return nil, fmt.Errorf("unknown SPEECH_PROVIDER %q", cfg.SpeechProvider)
	}
	if opts.Speech == nil {
		log.Warn("no speech provider available, slides will be silent")
	}

	log.Info("content providers ready",
		"text_provider", cfg.TextProvider,
		"speech_provider", cfg.SpeechProvider,
		"language", cfg.TargetLanguage,
		"requests_per_minute", cfg.RequestsPerMinute)
	return genai.New(opts), nil
}

// Jobs is the background job manager with its store and event publisher.
type Jobs struct {
	Manager *jobs.Manager
	store   *jobs.MongoStore
	events  jobs.Publisher
}

// NewJobs wires the job manager. MongoDB and RabbitMQ are used when their
// URLs are configured; otherwise jobs live in memory and events are dropped.
func (a *App) NewJobs(ctx context.Context) (*Jobs, error) {
	cfg := a.Config
	j := &Jobs{events: jobs.NoopPublisher{}}

	var store jobs.Store = jobs.NewMemoryStore()
	if cfg.MongoURI != "" {
		s, err := jobs.NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDB, a.Log.With("component", "mongo"))
		if err != nil {
			return nil, fmt.Errorf("init job store: %w", err)
		}
		j.store = s
		store = s
	} else {
		a.Log.Info("MONGO_URI not set, keeping jobs in memory")
	}

	if cfg.RabbitMQURL != "" {
		p, err := jobs.NewRabbitPublisher(cfg.RabbitMQURL, cfg.EventsQueue)
		if err != nil {
			j.closeStore()
			return nil, fmt.Errorf("init job events: %w", err)
		}
		j.events = p
		a.Log.Info("publishing job events", "queue", cfg.EventsQueue)
	}

	j.Manager = jobs.NewManager(jobs.ManagerConfig{
		Store:           store,
		Events:          j.events,
		Generator:       a.Pipeline,
		Exporter:        a.Exporter,
		OutputDir:       cfg.OutputDir,
		MaxConcurrent:   cfg.MaxConcurrentExports,
		LessonRetention: cfg.LessonRetention,
		Language:        cfg.TargetLanguage,
		Logger:          a.Log.With("component", "jobs"),
	})
	return j, nil
}

// Close stops running jobs and releases the store and publisher.
func (j *Jobs) Close() error {
	j.Manager.Shutdown()
	err := j.events.Close()
	j.closeStore()
	return err
}

func (j *Jobs) closeStore() {
	if j.store != nil {
		j.store.Close(context.Background())
	}
}
