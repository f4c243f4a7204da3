package models

import (
	"time"

	"github.com/google/uuid"
)

// TaskStatus is the closed set of task lifecycle states. The task row is
// owned by the client; only the engagement engine moves it past "open".
type TaskStatus string

const (
	TaskStatusOpen       TaskStatus = "open"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusCancelled  TaskStatus = "cancelled"
)

// taskTransitions encodes legal task status moves.
var taskTransitions = map[TaskStatus][]TaskStatus{
	TaskStatusOpen:       {TaskStatusInProgress, TaskStatusCancelled},
	TaskStatusInProgress: {TaskStatusCompleted, TaskStatusCancelled},
	TaskStatusCompleted:  {},
	TaskStatusCancelled:  {},
}

// CanTransition reports whether a task may move from its current status to next.
func (s TaskStatus) CanTransition(next TaskStatus) bool {
	for _, allowed := range taskTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further task transitions are possible.
func (s TaskStatus) Terminal() bool {
	return len(taskTransitions[s]) == 0
}

type Task struct {
	ID          uuid.UUID  `json:"id"`
	ClientID    uuid.UUID  `json:"client_id"`
	CategoryID  uuid.UUID  `json:"category_id"`
	Description string     `json:"description"`
	Latitude    *float64   `json:"latitude,omitempty"`
	Longitude   *float64   `json:"longitude,omitempty"`
	BudgetCents *int64     `json:"budget_cents,omitempty"`
	Status      TaskStatus `json:"status"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// HasCoordinates reports whether the task can participate in geo matching.
func (t *Task) HasCoordinates() bool {
	return t.Latitude != nil && t.Longitude != nil
}
