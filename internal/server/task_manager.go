package server

import (
	"sync"

	"github.com/google/uuid"
)

// TaskStatus defines the possible states of a correction task.
type TaskStatus string

const (
	TaskStatusStarted   TaskStatus = "started"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
)

// Task represents one long-running correction.
type Task struct {
	ID        string
	Dataset   string
	Weighting string

	mu     sync.RWMutex
	status TaskStatus
	errMsg string
}

// TaskView is the read-only JSON shape of a task.
type TaskView struct {
	ID        string     `json:"id"`
	Dataset   string     `json:"dataset"`
	Weighting string     `json:"weighting"`
	Status    TaskStatus `json:"status"`
	Error     string     `json:"error,omitempty"`
}

// TaskManager tracks all running asynchronous tasks.
type TaskManager struct {
	tasks map[string]*Task
	mu    sync.RWMutex
}

// NewTaskManager creates a new task manager.
func NewTaskManager() *TaskManager {
	return &TaskManager{
		tasks: make(map[string]*Task),
	}
}

// NewTask creates a task, registers it, and returns it.
func (tm *TaskManager) NewTask(dataset, weighting string) *Task {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	task := &Task{
		ID:        uuid.New().String(),
		Dataset:   dataset,
		Weighting: weighting,
		status:    TaskStatusStarted,
	}
	tm.tasks[task.ID] = task
	return task
}

// GetTask safely retrieves a task by its ID.
func (tm *TaskManager) GetTask(id string) (*Task, bool) {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	task, found := tm.tasks[id]
	return task, found
}

// SetStatus updates the status of the task.
func (t *Task) SetStatus(status TaskStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = status
}

// SetError marks the task as failed and records the error message.
func (t *Task) SetError(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = TaskStatusFailed
	t.errMsg = err.Error()
}

// View returns a consistent snapshot for serialization.
func (t *Task) View() TaskView {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return TaskView{
		ID:        t.ID,
		Dataset:   t.Dataset,
		Weighting: t.Weighting,
		Status:    t.status,
		Error:     t.errMsg,
	}
}
