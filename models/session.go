package models

import "time"

type TaskStatus string

const (
	TaskRunning   TaskStatus = "RUNNING"
	TaskSucceeded TaskStatus = "SUCCEEDED"
	TaskFailed    TaskStatus = "FAILED"
)

// SessionTask is one node of a session's task tree. ParentID is empty for
// root tasks.
type SessionTask struct {
	ID          string        `json:"id"`
	SessionID   string        `json:"sessionId"`
	ParentID    string        `json:"parentId,omitempty"`
	Name        string        `json:"name"`
	Status      TaskStatus    `json:"status"`
	StartedAt   time.Time     `json:"startedAt"`
	Duration    time.Duration `json:"duration"`
	ErrorDetail string        `json:"errorDetail,omitempty"`
}

// SessionLog records one backend request's execution for admin debugging.
// Append-only; readers get the whole tree.
type SessionLog struct {
	ID        string        `json:"id"`
	CreatedAt time.Time     `json:"createdAt"`
	Tasks     []SessionTask `json:"tasks"`
}
