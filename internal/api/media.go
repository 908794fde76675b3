package api

import (
	"bytes"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gorilla/mux"
)

// mediaRouter serves finished videos and slide previews. It is mounted
// under /media in the gin engine.
func (s *Server) mediaRouter() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/media/videos/{file}", s.serveVideo).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/media/jobs/{id}/slides/{index:[0-9]+}/preview.png", s.servePreview).Methods(http.MethodGet)
	return r
}

func (s *Server) serveVideo(w http.ResponseWriter, r *http.Request) {
	file := mux.Vars(r)["file"]
	if file != filepath.Base(file) || filepath.Ext(file) != ".mp4" {
		http.Error(w, "Invalid file name", http.StatusBadRequest)
		return
	}
	path := filepath.Join(s.jobs.OutputDir(), file)
	if _, err := os.Stat(path); err != nil {
		http.Error(w, "Video not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "video/mp4")
	http.ServeFile(w, r, path)
}

func (s *Server) servePreview(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	lesson, ok := s.jobs.Lesson(vars["id"])
	if !ok {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}
	index, _ := strconv.Atoi(vars["index"])
	if index >= len(lesson.Slides) {
		http.Error(w, "Slide not found", http.StatusNotFound)
		return
	}
	progress := 0.5
	if v := r.URL.Query().Get("t"); v != "" {
		p, err := strconv.ParseFloat(v, 64)
		if err != nil || p < 0 || p > 1 {
			http.Error(w, "t must be between 0 and 1", http.StatusBadRequest)
			return
		}
		progress = p
	}

	var buf bytes.Buffer
	if err := s.preview.WritePreview(&buf, lesson, index, progress); err != nil {
		s.log.Error("preview render failed", "job_id", vars["id"], "slide", index, "error", err)
		http.Error(w, "Preview failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(buf.Bytes())
}
