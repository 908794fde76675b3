package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"lesson_video/internal/jobs"
	"lesson_video/internal/models"
	"lesson_video/internal/pipeline"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubGenerator struct{}

func (stubGenerator) Run(ctx context.Context, text string, opts pipeline.Options, progress chan<- pipeline.Progress) ([]models.Slide, error) {
	return []models.Slide{{ID: 0, SourceText: text, TranslatedText: "T", ImageStatus: models.ImageFailed}}, nil
}

// stubExporter writes a small file so the media route can serve it.
type stubExporter struct{}

func (stubExporter) Export(ctx context.Context, lesson models.Lesson, outPath string, onProgress func(elapsed, total float64)) (string, error) {
	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return "", err
	}
	return outPath, os.WriteFile(outPath, []byte("mp4 bytes"), 0644)
}

type stubPreviewer struct {
	index int
	p     float64
}

func (s *stubPreviewer) WritePreview(w io.Writer, lesson models.Lesson, index int, p float64) error {
	s.index, s.p = index, p
	_, err := w.Write([]byte("\x89PNG"))
	return err
}

func newTestServer(t *testing.T) (*Server, *jobs.Manager, *stubPreviewer) {
	t.Helper()
	m := jobs.NewManager(jobs.ManagerConfig{
		Generator: stubGenerator{},
		Exporter:  stubExporter{},
		OutputDir: t.TempDir(),
	})
	prev := &stubPreviewer{}
	return NewServer(m, prev, nil), m, prev
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decoding %q: %v", w.Body.String(), err)
	}
	return v
}

func TestHealth(t *testing.T) {
	s, _, _ := newTestServer(t)
	w := do(t, s.Router(), http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if got := decode[HealthResponse](t, w); got.Status != "healthy" {
		t.Errorf("health = %+v", got)
	}
}

func TestLessonLifecycle(t *testing.T) {
	s, m, prev := newTestServer(t)
	h := s.Router()

	w := do(t, h, http.MethodPost, "/api/lessons", jobs.LessonRequest{Title: "Intro", Text: "Hello there."})
	if w.Code != http.StatusAccepted {
		t.Fatalf("create status = %d: %s", w.Code, w.Body.String())
	}
	created := decode[JobResponse](t, w)
	if created.ID == "" || created.StatusURL != "/api/status/"+created.ID {
		t.Fatalf("created = %+v", created)
	}
	m.Wait()

	w = do(t, h, http.MethodGet, "/api/status/"+created.ID, nil)
	status := decode[JobResponse](t, w)
	if status.Status != jobs.StatusCompleted || !strings.HasPrefix(status.VideoURL, "/media/videos/Intro_") {
		t.Fatalf("status = %+v", status)
	}

	w = do(t, h, http.MethodGet, status.VideoURL, nil)
	if w.Code != http.StatusOK || w.Body.String() != "mp4 bytes" {
		t.Errorf("video = %d %q", w.Code, w.Body.String())
	}

	w = do(t, h, http.MethodGet, "/api/jobs/"+created.ID+"/lesson", nil)
	lesson := decode[models.Lesson](t, w)
	if len(lesson.Slides) != 1 || lesson.Slides[0].SourceText != "Hello there." {
		t.Errorf("lesson = %+v", lesson)
	}

	w = do(t, h, http.MethodGet, "/media/jobs/"+created.ID+"/slides/0/preview.png?t=0.25", nil)
	if w.Code != http.StatusOK || w.Header().Get("Content-Type") != "image/png" {
		t.Errorf("preview = %d %s", w.Code, w.Header().Get("Content-Type"))
	}
	if prev.index != 0 || prev.p != 0.25 {
		t.Errorf("preview args = %d %v", prev.index, prev.p)
	}

	w = do(t, h, http.MethodGet, "/media/jobs/"+created.ID+"/slides/7/preview.png", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing slide preview = %d", w.Code)
	}

	w = do(t, h, http.MethodGet, "/api/jobs", nil)
	list := decode[struct {
		Jobs  []JobResponse `json:"jobs"`
		Count int           `json:"count"`
	}](t, w)
	if list.Count != 1 || list.Jobs[0].ID != created.ID {
		t.Errorf("list = %+v", list)
	}

	w = do(t, h, http.MethodDelete, "/api/cancel/"+created.ID, nil)
	if w.Code != http.StatusConflict {
		t.Errorf("cancel finished job = %d", w.Code)
	}
}

func TestCreateExport(t *testing.T) {
	s, m, _ := newTestServer(t)
	h := s.Router()

	lesson := models.Lesson{Title: "Saved", Slides: []models.Slide{{ID: 0, SourceText: "a", TranslatedText: "b"}}}
	w := do(t, h, http.MethodPost, "/api/exports", lesson)
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	m.Wait()
	created := decode[JobResponse](t, w)
	if created.Kind != jobs.KindExport {
		t.Errorf("kind = %s", created.Kind)
	}
}

func TestBadRequests(t *testing.T) {
	s, _, _ := newTestServer(t)
	h := s.Router()

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"missing text", http.MethodPost, "/api/lessons", map[string]string{"title": "x"}, http.StatusBadRequest},
		{"empty lesson", http.MethodPost, "/api/exports", models.Lesson{}, http.StatusBadRequest},
		{"unknown job", http.MethodGet, "/api/status/nope", nil, http.StatusNotFound},
		{"cancel unknown", http.MethodDelete, "/api/cancel/nope", nil, http.StatusNotFound},
		{"unknown lesson", http.MethodGet, "/api/jobs/nope/lesson", nil, http.StatusNotFound},
		{"bad video name", http.MethodGet, "/media/videos/notes.txt", nil, http.StatusBadRequest},
		{"missing video", http.MethodGet, "/media/videos/none.mp4", nil, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, tt.method, tt.path, tt.body)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d (%s)", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestCORSPreflight(t *testing.T) {
	s, _, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/lessons", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	if w.Code != http.StatusNoContent || w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("preflight = %d %v", w.Code, w.Header())
	}
}

func TestPublicBaseURL(t *testing.T) {
	s, _, _ := newTestServer(t)
	s.WithPublicBaseURL("https://lessons.example.com/")
	resp := s.toResponse(&jobs.Job{ID: "abc", Status: jobs.StatusCompleted, VideoPath: "output/Intro_abc.mp4"})
	if resp.StatusURL != "https://lessons.example.com/api/status/abc" {
		t.Errorf("status url = %q", resp.StatusURL)
	}
	if resp.VideoURL != "https://lessons.example.com/media/videos/Intro_abc.mp4" {
		t.Errorf("video url = %q", resp.VideoURL)
	}
}
