package jobs

import (
	"errors"
	"time"
)

var (
	ErrJobNotFound = errors.New("job not found")
	ErrJobFinished = errors.New("job already finished")
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// Terminal reports whether the job will not change any more.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Kind tells lesson jobs (generate then export) from export-only jobs.
type Kind string

const (
	KindLesson Kind = "lesson"
	KindExport Kind = "export"
)

// Job is the persisted record of a background job. Lesson content is kept
// in memory by the Manager, not here.
type Job struct {
	ID          string     `json:"id" bson:"_id"`
	Kind        Kind       `json:"kind" bson:"kind"`
	Title       string     `json:"title,omitempty" bson:"title,omitempty"`
	Status      Status     `json:"status" bson:"status"`
	Stage       string     `json:"stage,omitempty" bson:"stage,omitempty"`
	Progress    int        `json:"progress" bson:"progress"` // 0-100
	Message     string     `json:"message,omitempty" bson:"message,omitempty"`
	LessonID    string     `json:"lesson_id,omitempty" bson:"lesson_id,omitempty"`
	SlideCount  int        `json:"slide_count" bson:"slide_count"`
	VideoPath   string     `json:"video_path,omitempty" bson:"video_path,omitempty"`
	Error       string     `json:"error,omitempty" bson:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" bson:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" bson:"completed_at,omitempty"`
}

func (j *Job) clone() *Job {
	c := *j
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}
