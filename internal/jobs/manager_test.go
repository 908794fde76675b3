package jobs

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"lesson_video/internal/models"
	"lesson_video/internal/pipeline"
)

type fakeGenerator struct {
	slides []models.Slide
	err    error
}

func (g *fakeGenerator) Run(ctx context.Context, text string, opts pipeline.Options, progress chan<- pipeline.Progress) ([]models.Slide, error) {
	if g.err != nil {
		return nil, g.err
	}
	progress <- pipeline.Progress{Stage: pipeline.StageTranslating, Current: 1, Total: 1, Slides: g.slides}
	progress <- pipeline.Progress{Stage: pipeline.StageDone, Current: 1, Total: 1, Slides: g.slides}
	return g.slides, nil
}

type fakeExporter struct {
	mu      sync.Mutex
	paths   []string
	lessons []models.Lesson
	block   chan struct{}
	err     error
}

func (e *fakeExporter) Export(ctx context.Context, lesson models.Lesson, outPath string, onProgress func(elapsed, total float64)) (string, error) {
	e.mu.Lock()
	e.paths = append(e.paths, outPath)
	e.lessons = append(e.lessons, lesson)
	e.mu.Unlock()
	if e.block != nil {
		select {
		case <-e.block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if e.err != nil {
		return "", e.err
	}
	onProgress(1, 2)
	onProgress(2, 2)
	return outPath, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
}

func (p *recordingPublisher) Publish(ctx context.Context, event Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

func oneSlide() []models.Slide {
	return []models.Slide{{ID: 0, SourceText: "Hi", TranslatedText: "Hola", ImageStatus: models.ImageFailed}}
}

func TestSubmitLesson(t *testing.T) {
	events := &recordingPublisher{}
	exp := &fakeExporter{}
	m := NewManager(ManagerConfig{
		Events:    events,
		Generator: &fakeGenerator{slides: oneSlide()},
		Exporter:  exp,
		OutputDir: "videos",
	})

	job, err := m.SubmitLesson(context.Background(), LessonRequest{Title: "Greetings 101", Text: "Hi."})
	if err != nil {
		t.Fatalf("SubmitLesson() error = %v", err)
	}
	if job.Status != StatusPending || job.Kind != KindLesson {
		t.Errorf("submitted job = %+v", job)
	}
	m.Wait()

	got, err := m.Get(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Status != StatusCompleted || got.Progress != 100 || got.CompletedAt == nil {
		t.Errorf("finished job = %+v", got)
	}
	if !strings.HasPrefix(got.VideoPath, "videos/Greetings_101_") || !strings.HasSuffix(got.VideoPath, ".mp4") {
		t.Errorf("video path = %q", got.VideoPath)
	}
	if got.SlideCount != 1 {
		t.Errorf("slide count = %d, want 1", got.SlideCount)
	}

	lesson, ok := m.Lesson(job.ID)
	if !ok || len(lesson.Slides) != 1 || lesson.SourceText != "Hi." {
		t.Errorf("lesson snapshot = %+v, %v", lesson, ok)
	}
	if len(exp.lessons) != 1 || exp.lessons[0].Slides[0].TranslatedText != "Hola" {
		t.Errorf("exported lessons = %+v", exp.lessons)
	}

	want := []string{"job.created", "job.processing", "job.completed"}
	if strings.Join(events.types(), ",") != strings.Join(want, ",") {
		t.Errorf("events = %v, want %v", events.types(), want)
	}
}

func TestSubmitLessonGenerationFailure(t *testing.T) {
	m := NewManager(ManagerConfig{
		Generator: &fakeGenerator{err: pipeline.ErrNoSegments},
		Exporter:  &fakeExporter{},
	})
	job, err := m.SubmitLesson(context.Background(), LessonRequest{Text: "x"})
	if err != nil {
		t.Fatalf("SubmitLesson() error = %v", err)
	}
	m.Wait()

	got, _ := m.Get(context.Background(), job.ID)
	if got.Status != StatusFailed || !strings.Contains(got.Error, "segments") {
		t.Errorf("job = %+v", got)
	}
}

func TestSubmitValidation(t *testing.T) {
	m := NewManager(ManagerConfig{Generator: &fakeGenerator{}, Exporter: &fakeExporter{}})
	if _, err := m.SubmitLesson(context.Background(), LessonRequest{Text: "  "}); err == nil {
		t.Error("expected an error for blank text")
	}
	if _, err := m.SubmitExport(context.Background(), models.Lesson{}); err == nil {
		t.Error("expected an error for an empty lesson")
	}
	sparse := models.Lesson{Slides: []models.Slide{{ID: 3}}}
	if _, err := m.SubmitExport(context.Background(), sparse); err == nil {
		t.Error("expected an error for sparse slide ids")
	}
}

func TestCancelRunningExport(t *testing.T) {
	exp := &fakeExporter{block: make(chan struct{})}
	m := NewManager(ManagerConfig{Exporter: exp})

	job, err := m.SubmitExport(context.Background(), models.Lesson{Slides: oneSlide()})
	if err != nil {
		t.Fatalf("SubmitExport() error = %v", err)
	}
	waitFor(t, func() bool {
		exp.mu.Lock()
		defer exp.mu.Unlock()
		return len(exp.paths) == 1
	})

	if err := m.Cancel(context.Background(), job.ID); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	m.Wait()

	got, _ := m.Get(context.Background(), job.ID)
	if got.Status != StatusCancelled {
		t.Errorf("status = %s, want cancelled", got.Status)
	}
	if err := m.Cancel(context.Background(), job.ID); !errors.Is(err, ErrJobFinished) {
		t.Errorf("second Cancel() error = %v, want ErrJobFinished", err)
	}
	if err := m.Cancel(context.Background(), "missing"); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("Cancel(missing) error = %v, want ErrJobNotFound", err)
	}
}

func TestConcurrencyLimit(t *testing.T) {
	exp := &fakeExporter{block: make(chan struct{})}
	m := NewManager(ManagerConfig{Exporter: exp, MaxConcurrent: 1})

	first, _ := m.SubmitExport(context.Background(), models.Lesson{Slides: oneSlide()})
	second, _ := m.SubmitExport(context.Background(), models.Lesson{Slides: oneSlide()})

	waitFor(t, func() bool {
		exp.mu.Lock()
		defer exp.mu.Unlock()
		return len(exp.paths) == 1
	})
	time.Sleep(20 * time.Millisecond)

	exp.mu.Lock()
	started := len(exp.paths)
	exp.mu.Unlock()
	if started != 1 {
		t.Fatalf("%d exports running, want 1", started)
	}

	statuses := map[Status]int{}
	for _, id := range []string{first.ID, second.ID} {
		j, _ := m.Get(context.Background(), id)
		statuses[j.Status]++
	}
	if statuses[StatusProcessing] != 1 || statuses[StatusPending] != 1 {
		t.Errorf("statuses = %v", statuses)
	}

	close(exp.block)
	m.Wait()
	for _, id := range []string{first.ID, second.ID} {
		if j, _ := m.Get(context.Background(), id); j.Status != StatusCompleted {
			t.Errorf("job %s = %s", id, j.Status)
		}
	}
}

func TestLessonSnapshotEviction(t *testing.T) {
	m := NewManager(ManagerConfig{Exporter: &fakeExporter{}, LessonRetention: 20 * time.Millisecond})
	job, err := m.SubmitExport(context.Background(), models.Lesson{Slides: oneSlide()})
	if err != nil {
		t.Fatalf("SubmitExport() error = %v", err)
	}
	m.Wait()

	waitFor(t, func() bool {
		_, ok := m.Lesson(job.ID)
		return !ok
	})
	if got, err := m.Get(context.Background(), job.ID); err != nil || got.Status != StatusCompleted {
		t.Errorf("job record after eviction = %+v, %v", got, err)
	}
}

func TestMemoryStoreList(t *testing.T) {
	s := NewMemoryStore()
	base := time.Now()
	for i, id := range []string{"a", "b", "c"} {
		s.Save(context.Background(), &Job{ID: id, CreatedAt: base.Add(time.Duration(i) * time.Second)})
	}
	list, _ := s.List(context.Background(), 2)
	if len(list) != 2 || list[0].ID != "c" || list[1].ID != "b" {
		t.Errorf("List() = %v", list)
	}
	if _, err := s.Get(context.Background(), "zzz"); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("Get(missing) error = %v", err)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}
