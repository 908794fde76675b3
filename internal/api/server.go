package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"lesson_video/internal/jobs"
	"lesson_video/internal/logger"
	"lesson_video/internal/models"
)

const version = "1.0.0"

// Previewer renders a single slide frame as PNG.
type Previewer interface {
	WritePreview(w io.Writer, lesson models.Lesson, index int, p float64) error
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// JobResponse is a job plus the URLs a client needs to follow it.
type JobResponse struct {
	*jobs.Job
	StatusURL string `json:"status_url"`
	VideoURL  string `json:"video_url,omitempty"`
}

type Server struct {
	jobs    *jobs.Manager
	preview Previewer
	baseURL string
	log     *logger.Logger
}

func NewServer(manager *jobs.Manager, preview Previewer, log *logger.Logger) *Server {
	return &Server{jobs: manager, preview: preview, log: logger.OrNop(log)}
}

// WithPublicBaseURL makes the URLs in job responses absolute.
func (s *Server) WithPublicBaseURL(base string) *Server {
	s.baseURL = strings.TrimRight(base, "/")
	return s
}

// Router builds the gin engine with the JSON API and the media routes.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(s.requestLogger())
	r.Use(corsMiddleware())

	r.GET("/health", s.healthCheck)

	api := r.Group("/api")
	api.POST("/lessons", s.createLesson)
	api.POST("/exports", s.createExport)
	api.GET("/status/:id", s.jobStatus)
	api.GET("/jobs", s.listJobs)
	api.GET("/jobs/:id/lesson", s.jobLesson)
	api.DELETE("/cancel/:id", s.cancelJob)

	media := gin.WrapH(s.mediaRouter())
	r.GET("/media/*path", media)
	r.HEAD("/media/*path", media)
	return r
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}

func respondWithError(c *gin.Context, status int, code, message string) {
	c.JSON(status, ErrorResponse{Error: code, Message: message})
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().Format(time.RFC3339),
		Version:   version,
	})
}

func (s *Server) toResponse(job *jobs.Job) JobResponse {
	resp := JobResponse{Job: job, StatusURL: s.baseURL + "/api/status/" + job.ID}
	if job.Status == jobs.StatusCompleted && job.VideoPath != "" {
		resp.VideoURL = s.baseURL + "/media/videos/" + filepath.Base(job.VideoPath)
	}
	return resp
}

func (s *Server) createLesson(c *gin.Context) {
	var req jobs.LessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, http.StatusBadRequest, "invalid_request", "Invalid JSON format: "+err.Error())
		return
	}
	job, err := s.jobs.SubmitLesson(c.Request.Context(), req)
	if err != nil {
		respondWithError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	c.JSON(http.StatusAccepted, s.toResponse(job))
}

func (s *Server) createExport(c *gin.Context) {
	var lesson models.Lesson
	if err := c.ShouldBindJSON(&lesson); err != nil {
		respondWithError(c, http.StatusBadRequest, "invalid_request", "Invalid JSON format: "+err.Error())
		return
	}
	job, err := s.jobs.SubmitExport(c.Request.Context(), lesson)
	if err != nil {
		respondWithError(c, http.StatusBadRequest, "invalid_lesson", err.Error())
		return
	}
	c.JSON(http.StatusAccepted, s.toResponse(job))
}

func (s *Server) jobStatus(c *gin.Context) {
	job, err := s.jobs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.jobError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.toResponse(job))
}

func (s *Server) listJobs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	list, err := s.jobs.List(c.Request.Context(), limit)
	if err != nil {
		respondWithError(c, http.StatusInternalServerError, "failed_to_list_jobs", err.Error())
		return
	}
	out := make([]JobResponse, 0, len(list))
	for _, job := range list {
		out = append(out, s.toResponse(job))
	}
	c.JSON(http.StatusOK, gin.H{"jobs": out, "count": len(out)})
}

func (s *Server) jobLesson(c *gin.Context) {
	lesson, ok := s.jobs.Lesson(c.Param("id"))
	if !ok {
		respondWithError(c, http.StatusNotFound, "not_found", "No lesson for this job")
		return
	}
	c.JSON(http.StatusOK, lesson)
}

func (s *Server) cancelJob(c *gin.Context) {
	id := c.Param("id")
	if err := s.jobs.Cancel(c.Request.Context(), id); err != nil {
		s.jobError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "message": "Cancellation requested"})
}

func (s *Server) jobError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, jobs.ErrJobNotFound):
		respondWithError(c, http.StatusNotFound, "not_found", "Job not found")
	case errors.Is(err, jobs.ErrJobFinished):
		respondWithError(c, http.StatusConflict, "job_finished", "Job already finished")
	default:
		s.log.Error("job lookup failed", "error", err)
		respondWithError(c, http.StatusInternalServerError, "internal_error", fmt.Sprintf("%v", err))
	}
}
