package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/google/uuid"

	"lesson_video/internal/app"
	"lesson_video/internal/config"
	"lesson_video/internal/engine"
	"lesson_video/internal/export"
	"lesson_video/internal/logger"
	"lesson_video/internal/models"
	"lesson_video/internal/pipeline"
)

type options struct {
	input      string
	lessonFile string
	title      string
	context    string
	out        string
	saveLesson string
	noExplain  bool
	transition float64
	preview    int
	previewAt  float64
}

func parseFlags() options {
	var o options
	flag.StringVar(&o.input, "input", "", "text file to turn into a lesson")
	flag.StringVar(&o.lessonFile, "lesson", "", "previously saved lesson YAML to export")
	flag.StringVar(&o.title, "title", "", "lesson title (defaults to the input file name)")
	flag.StringVar(&o.context, "context", "", "file with earlier lesson content used as continuity context")
	flag.StringVar(&o.out, "out", "", "output MP4 path (defaults to OUTPUT_DIR/<title>.mp4)")
	flag.StringVar(&o.saveLesson, "save-lesson", "", "write the generated lesson to this YAML file")
	flag.BoolVar(&o.noExplain, "no-explain", false, "skip explanations and narration")
	flag.Float64Var(&o.transition, "transition", -1, "transition duration in seconds (overrides TRANSITION_DURATION)")
	flag.IntVar(&o.preview, "preview", -1, "render a PNG of this slide instead of exporting a video")
	flag.Float64Var(&o.previewAt, "preview-at", 0.5, "slide progress in [0,1] for -preview")
	flag.Parse()
	return o
}

func main() {
	opts := parseFlags()
	cfg, envLoaded := config.Load()

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if !envLoaded {
		log.Debug("No .env file found, using environment variables")
	}
	if (opts.input == "") == (opts.lessonFile == "") {
		fmt.Fprintln(os.Stderr, "exactly one of -input or -lesson is required")
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, opts, log); err != nil {
		log.Error("lessonvideo failed", "error", err)
		stop()
		log.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, opts options, log *logger.Logger) error {
	var lesson models.Lesson
	var fileSettings *models.Settings
	if opts.lessonFile != "" {
		lf, err := models.LoadLessonFile(opts.lessonFile)
		if err != nil {
			return err
		}
		lesson = lf.Lesson
		fileSettings = lf.Settings
		log.Info("lesson loaded", "path", opts.lessonFile, "slides", len(lesson.Slides))
	}
	cfg.Render = renderSettings(cfg.Render, fileSettings, opts)

	a, err := app.New(cfg, log)
	if err != nil {
		return err
	}

	if opts.input != "" {
		lesson, err = generate(ctx, a, opts)
		if err != nil {
			return err
		}
		if opts.saveLesson != "" {
			settings := cfg.Render
			if err := models.SaveLessonFile(opts.saveLesson, lesson, &settings); err != nil {
				return err
			}
			log.Info("lesson saved", "path", opts.saveLesson)
		}
	}

	if opts.preview >= 0 {
		return writePreview(a.Exporter, lesson, opts)
	}

	if err := engine.ValidateFFmpegInstalled(); err != nil {
		return err
	}
	out := opts.out
	if out == "" {
		out = filepath.Join(cfg.OutputDir, engine.SanitizeFilename(lesson.Title)+".mp4")
	}
	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	last := -1
	path, err := a.Exporter.Export(ctx, lesson, out, func(elapsed, total float64) {
		pct := int(100 * elapsed / total)
		if pct/10 != last/10 {
			last = pct
			log.Info("rendering", "progress", fmt.Sprintf("%d%%", pct))
		}
	})
	if err != nil {
		return err
	}
	fmt.Printf("✅ Video written to %s\n", path)
	return nil
}

// renderSettings layers the lesson file's settings over the environment and
// the command line flags over both.
func renderSettings(env models.Settings, file *models.Settings, opts options) models.Settings {
	settings := env
	if file != nil {
		settings = *file
	}
	if opts.transition >= 0 {
		settings.TransitionDuration = opts.transition
	}
	return settings
}

func generate(ctx context.Context, a *app.App, opts options) (models.Lesson, error) {
	text, err := os.ReadFile(opts.input)
	if err != nil {
		return models.Lesson{}, fmt.Errorf("reading input: %w", err)
	}
	var lessonContext []byte
	if opts.context != "" {
		if lessonContext, err = os.ReadFile(opts.context); err != nil {
			return models.Lesson{}, fmt.Errorf("reading context: %w", err)
		}
	}
	title := opts.title
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(opts.input), filepath.Ext(opts.input))
	}

	progress := make(chan pipeline.Progress)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for p := range progress {
			if p.Total > 0 {
				a.Log.Info(p.Label, "stage", p.Stage, "current", p.Current, "total", p.Total)
			} else {
				a.Log.Info(p.Label, "stage", p.Stage)
			}
		}
	}()

	slides, err := a.Pipeline.Run(ctx, string(text), pipeline.Options{
		Explain: a.Config.ExplainByDefault && !opts.noExplain,
		Context: string(lessonContext),
	}, progress)
	close(progress)
	<-done
	if err != nil {
		return models.Lesson{}, err
	}

	return models.Lesson{
		ID:          uuid.New().String(),
		Title:       title,
		ContextText: string(lessonContext),
		SourceText:  string(text),
		Language:    a.Config.TargetLanguage,
		Slides:      slides,
	}, nil
}

func writePreview(exp *export.Exporter, lesson models.Lesson, opts options) error {
	if opts.preview >= len(lesson.Slides) {
		return fmt.Errorf("slide %d does not exist (lesson has %d)", opts.preview, len(lesson.Slides))
	}
	out := opts.out
	if out == "" {
		out = fmt.Sprintf("slide_%d.png", opts.preview)
	}
	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("creating preview file: %w", err)
	}
	if err := exp.WritePreview(f, lesson, opts.preview, opts.previewAt); err != nil {
		f.Close()
		os.Remove(out)
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Printf("🖼️  Preview written to %s\n", out)
	return nil
}
