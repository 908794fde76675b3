package jobs

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"lesson_video/internal/engine"
	"lesson_video/internal/logger"
	"lesson_video/internal/models"
	"lesson_video/internal/pipeline"
)

// Generator builds lesson slides from text.
type Generator interface {
	Run(ctx context.Context, text string, opts pipeline.Options, progress chan<- pipeline.Progress) ([]models.Slide, error)
}

// Exporter renders a lesson to a video file.
type Exporter interface {
	Export(ctx context.Context, lesson models.Lesson, outPath string, onProgress func(elapsed, total float64)) (string, error)
}

// LessonRequest asks for a lesson to be generated and exported.
type LessonRequest struct {
	Title   string `json:"title"`
	Text    string `json:"text" binding:"required"`
	Context string `json:"context"`
	Explain *bool  `json:"explain,omitempty"`
}

type ManagerConfig struct {
	Store         Store
	Events        Publisher
	Generator     Generator
	Exporter      Exporter
	OutputDir     string
	MaxConcurrent int
	Language      string
	Logger        *logger.Logger

	// LessonRetention is how long a finished job's lesson snapshot stays
	// available. Zero means one hour.
	LessonRetention time.Duration
}

// Manager runs lesson and export jobs in the background, at most
// MaxConcurrent at a time, and keeps the latest lesson snapshot of each job
// in memory until LessonRetention after it finishes.
type Manager struct {
	store     Store
	events    Publisher
	gen       Generator
	exp       Exporter
	outputDir string
	language  string
	retention time.Duration
	sem       chan struct{}
	log       *logger.Logger

	baseCtx  context.Context
	shutdown context.CancelFunc
	wg       sync.WaitGroup

	mu      sync.Mutex
	live    map[string]*Job
	cancels map[string]context.CancelFunc
	lessons map[string]models.Lesson
}

func NewManager(cfg ManagerConfig) *Manager {
	if cfg.Store == nil {
		cfg.Store = NewMemoryStore()
	}
	if cfg.Events == nil {
		cfg.Events = NoopPublisher{}
	}
	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = 1
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "output"
	}
	if cfg.LessonRetention <= 0 {
		cfg.LessonRetention = time.Hour
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		store:     cfg.Store,
		events:    cfg.Events,
		gen:       cfg.Generator,
		exp:       cfg.Exporter,
		outputDir: cfg.OutputDir,
		language:  cfg.Language,
		retention: cfg.LessonRetention,
		sem:       make(chan struct{}, cfg.MaxConcurrent),
		log:       logger.OrNop(cfg.Logger),
		baseCtx:   ctx,
		shutdown:  cancel,
		live:      make(map[string]*Job),
		cancels:   make(map[string]context.CancelFunc),
		lessons:   make(map[string]models.Lesson),
	}
}

// OutputDir is where finished videos are written.
func (m *Manager) OutputDir() string { return m.outputDir }

// SubmitLesson queues a generate-then-export job.
func (m *Manager) SubmitLesson(ctx context.Context, req LessonRequest) (*Job, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, fmt.Errorf("lesson text is required")
	}
	if m.gen == nil {
		return nil, fmt.Errorf("lesson generation is not configured")
	}
	explain := true
	if req.Explain != nil {
		explain = *req.Explain
	}
	lesson := models.Lesson{
		ID:          uuid.New().String(),
		Title:       req.Title,
		ContextText: req.Context,
		SourceText:  req.Text,
		Language:    m.language,
	}
	return m.submit(ctx, KindLesson, lesson, func(jobCtx context.Context, job *Job) error {
		return m.runLesson(jobCtx, job, lesson, explain)
	})
}

// SubmitExport queues an export of an existing lesson.
func (m *Manager) SubmitExport(ctx context.Context, lesson models.Lesson) (*Job, error) {
	if len(lesson.Slides) == 0 {
		return nil, fmt.Errorf("lesson has no slides")
	}
	if err := lesson.Validate(); err != nil {
		return nil, err
	}
	if lesson.ID == "" {
		lesson.ID = uuid.New().String()
	}
	return m.submit(ctx, KindExport, lesson, func(jobCtx context.Context, job *Job) error {
		return m.runExport(jobCtx, job, lesson, 0)
	})
}

func (m *Manager) submit(ctx context.Context, kind Kind, lesson models.Lesson, run func(context.Context, *Job) error) (*Job, error) {
	now := time.Now()
	job := &Job{
		ID:         uuid.New().String(),
		Kind:       kind,
		Title:      lesson.Title,
		Status:     StatusPending,
		Message:    "Waiting for a free worker",
		LessonID:   lesson.ID,
		SlideCount: len(lesson.Slides),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := m.store.Save(ctx, job); err != nil {
		return nil, err
	}

	jobCtx, cancel := context.WithCancel(m.baseCtx)
	m.mu.Lock()
	m.live[job.ID] = job
	m.cancels[job.ID] = cancel
	m.lessons[job.ID] = lesson
	snapshot := job.clone()
	m.mu.Unlock()

	m.publish("job.created", snapshot)
	m.wg.Add(1)
	go m.execute(jobCtx, cancel, job, run)
	return snapshot, nil
}

func (m *Manager) execute(ctx context.Context, cancel context.CancelFunc, job *Job, run func(context.Context, *Job) error) {
	defer m.wg.Done()
	defer cancel()
	defer func() {
		m.mu.Lock()
		delete(m.live, job.ID)
		delete(m.cancels, job.ID)
		m.mu.Unlock()
	}()

	select {
	case m.sem <- struct{}{}:
		defer func() { <-m.sem }()
	case <-ctx.Done():
		m.finish(job, ctx.Err())
		return
	}

	m.update(job, func(j *Job) {
		j.Status = StatusProcessing
		j.Message = "Started"
	})
	m.finish(job, run(ctx, job))
}

func (m *Manager) finish(job *Job, err error) {
	now := time.Now()
	m.update(job, func(j *Job) {
		j.CompletedAt = &now
		switch {
		case err == nil:
			j.Status = StatusCompleted
			j.Progress = 100
			j.Message = "Video generation completed"
		case errors.Is(err, context.Canceled):
			j.Status = StatusCancelled
			j.Message = "Job was cancelled"
		default:
			j.Status = StatusFailed
			j.Error = err.Error()
			j.Message = "Job failed"
		}
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		m.log.Error("job failed", "job_id", job.ID, "error", err)
	} else {
		m.log.Info("job finished", "job_id", job.ID, "status", job.Status)
	}

	id := job.ID
	time.AfterFunc(m.retention, func() {
		m.mu.Lock()
		delete(m.lessons, id)
		m.mu.Unlock()
	})
}

// Generation covers the first half of a lesson job's progress, the export
// the second.
const generationShare = 50

func (m *Manager) runLesson(ctx context.Context, job *Job, lesson models.Lesson, explain bool) error {
	progress := make(chan pipeline.Progress)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for p := range progress {
			m.mu.Lock()
			if p.Slides != nil {
				l := m.lessons[job.ID]
				l.Slides = p.Slides
				m.lessons[job.ID] = l
			}
			m.mu.Unlock()
			m.update(job, func(j *Job) {
				j.Stage = string(p.Stage)
				j.Message = p.Label
				if p.Slides != nil {
					j.SlideCount = len(p.Slides)
				}
				j.Progress = generationProgress(p)
			})
		}
	}()

	slides, err := m.gen.Run(ctx, lesson.SourceText, pipeline.Options{Explain: explain, Context: lesson.ContextText}, progress)
	close(progress)
	<-done
	if err != nil {
		return err
	}

	lesson.Slides = slides
	m.mu.Lock()
	m.lessons[job.ID] = lesson
	m.mu.Unlock()
	return m.runExport(ctx, job, lesson, generationShare)
}

// generationProgress maps pipeline stages onto 0..generationShare.
func generationProgress(p pipeline.Progress) int {
	stages := []pipeline.Stage{pipeline.StageTranslating, pipeline.StageImaging, pipeline.StageNarrating}
	for i, s := range stages {
		if p.Stage == s && p.Total > 0 {
			frac := (float64(i) + float64(p.Current)/float64(p.Total)) / float64(len(stages))
			return int(frac * generationShare)
		}
	}
	if p.Stage == pipeline.StageDone {
		return generationShare
	}
	return 0
}

func (m *Manager) runExport(ctx context.Context, job *Job, lesson models.Lesson, base int) error {
	if m.exp == nil {
		return fmt.Errorf("video export is not configured")
	}
	name := engine.SanitizeFilename(lesson.Title)
	outPath := filepath.Join(m.outputDir, fmt.Sprintf("%s_%s.mp4", name, job.ID[:8]))

	m.update(job, func(j *Job) {
		j.Stage = "rendering"
		j.Message = "Rendering video"
		j.Progress = base
		j.SlideCount = len(lesson.Slides)
	})

	last := base
	path, err := m.exp.Export(ctx, lesson, outPath, func(elapsed, total float64) {
		if total <= 0 {
			return
		}
		pct := base + int(float64(100-base)*elapsed/total)
		if pct >= 100 {
			pct = 99
		}
		if pct <= last {
			return
		}
		last = pct
		m.update(job, func(j *Job) { j.Progress = pct })
	})
	if err != nil {
		return err
	}
	m.update(job, func(j *Job) { j.VideoPath = path })
	return nil
}

// update applies fn to the live job, saves it and publishes status
// changes.
func (m *Manager) update(job *Job, fn func(*Job)) {
	m.mu.Lock()
	before := job.Status
	fn(job)
	job.UpdatedAt = time.Now()
	snapshot := job.clone()
	m.mu.Unlock()

	if err := m.store.Save(context.Background(), snapshot); err != nil {
		m.log.Warn("failed to save job", "job_id", job.ID, "error", err)
	}
	if snapshot.Status != before {
		m.publish("job."+string(snapshot.Status), snapshot)
	}
}

func (m *Manager) publish(eventType string, job *Job) {
	if err := m.events.Publish(context.Background(), eventFor(eventType, job)); err != nil {
		m.log.Warn("failed to publish job event", "job_id", job.ID, "event", eventType, "error", err)
	}
}

// Get returns the live state of a running job, or the stored record.
func (m *Manager) Get(ctx context.Context, id string) (*Job, error) {
	m.mu.Lock()
	if job, ok := m.live[id]; ok {
		snapshot := job.clone()
		m.mu.Unlock()
		return snapshot, nil
	}
	m.mu.Unlock()
	return m.store.Get(ctx, id)
}

// List returns recent jobs, newest first.
func (m *Manager) List(ctx context.Context, limit int) ([]*Job, error) {
	return m.store.List(ctx, limit)
}

// Lesson returns the latest lesson snapshot for a job.
func (m *Manager) Lesson(id string) (models.Lesson, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.lessons[id]
	if ok {
		l.Slides = models.CloneSlides(l.Slides)
	}
	return l, ok
}

// Cancel stops a pending or running job.
func (m *Manager) Cancel(ctx context.Context, id string) error {
	m.mu.Lock()
	cancel, ok := m.cancels[id]
	m.mu.Unlock()
	if ok {
		cancel()
		m.log.Info("job cancellation requested", "job_id", id)
		return nil
	}
	job, err := m.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if job.Status.Terminal() {
		return ErrJobFinished
	}
	return ErrJobNotFound
}

// Shutdown cancels every job and waits for them to stop.
func (m *Manager) Shutdown() {
	m.shutdown()
	m.wg.Wait()
}

// Wait blocks until all submitted jobs have finished.
func (m *Manager) Wait() {
	m.wg.Wait()
}
