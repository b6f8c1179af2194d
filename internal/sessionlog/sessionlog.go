// Package sessionlog records one request's task tree for admin debugging.
// A Recorder buffers tasks in memory and is flushed once, append-only,
// when the request finishes.
package sessionlog

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mtech-resorts/cashdesk/models"
)

type Store interface {
	CreateSessionLog(ctx context.Context, log *models.SessionLog) error
}

type Recorder struct {
	id      string
	created time.Time

	mu    sync.Mutex
	tasks []models.SessionTask
}

func NewRecorder() *Recorder {
	return &Recorder{
		id:      uuid.New().String(),
		created: time.Now(),
	}
}

func (r *Recorder) ID() string {
	return r.id
}

// Start opens a task. parentID may be empty for root tasks.
func (r *Recorder) Start(name, parentID string) *Task {
	return &Task{
		rec:      r,
		id:       uuid.New().String(),
		parentID: parentID,
		name:     name,
		started:  time.Now(),
	}
}

// Flush persists the recorded tree. Safe to call with zero tasks.
func (r *Recorder) Flush(ctx context.Context, store Store) error {
	r.mu.Lock()
	log := &models.SessionLog{
		ID:        r.id,
		CreatedAt: r.created,
		Tasks:     append([]models.SessionTask(nil), r.tasks...),
	}
	r.mu.Unlock()

	return store.CreateSessionLog(ctx, log)
}

type Task struct {
	rec      *Recorder
	id       string
	parentID string
	name     string
	started  time.Time
}

func (t *Task) ID() string {
	return t.id
}

// Done closes the task, recording failure detail when err is non-nil.
func (t *Task) Done(err error) {
	task := models.SessionTask{
		ID:        t.id,
		SessionID: t.rec.id,
		ParentID:  t.parentID,
		Name:      t.name,
		Status:    models.TaskSucceeded,
		StartedAt: t.started,
		Duration:  time.Since(t.started),
	}
	if err != nil {
		task.Status = models.TaskFailed
		task.ErrorDetail = err.Error()
	}

	t.rec.mu.Lock()
	t.rec.tasks = append(t.rec.tasks, task)
	t.rec.mu.Unlock()
}
