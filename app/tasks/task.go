package tasks

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type TaskType string

const (
	TaskTypeRunBatch      TaskType = "run_batch"
	TaskTypeReloadSources TaskType = "reload_sources"
)

const (
	DefaultMaxRetries = 3
	maxRetryDelay     = 30 * time.Second
)

type TaskInterface interface {
	Execute(ctx context.Context) error
	GetID() string
	GetType() TaskType
	GetTarget() string
	GetRetryCount() int
	GetMaxRetries() int
	IncrementRetryCount()
	CanRetry() bool
	RetryDelay(base time.Duration) time.Duration
	Start()
	GetDuration() time.Duration
}

// Task carries the bookkeeping shared by every background job. Target names
// what the job acts on ("all" for a full batch).
type Task struct {
	ID         string
	Type       TaskType
	Target     string
	RetryCount int
	MaxRetries int
	StartedAt  time.Time
}

func NewTask(taskType TaskType, target string) Task {
	return Task{
		ID:         uuid.NewString(),
		Type:       taskType,
		Target:     target,
		MaxRetries: DefaultMaxRetries,
	}
}

func (t *Task) GetID() string { return t.ID }
func (t *Task) GetType() TaskType { return t.Type }
func (t *Task) GetTarget() string { return t.Target }
func (t *Task) GetRetryCount() int { return t.RetryCount }
func (t *Task) GetMaxRetries() int { return t.MaxRetries }
func (t *Task) IncrementRetryCount() { t.RetryCount++ }
func (t *Task) CanRetry() bool { return t.RetryCount < t.MaxRetries }
func (t *Task) Start() { t.StartedAt = time.Now() }

// RetryDelay doubles base for every retry already taken, capped at 30s.
func (t *Task) RetryDelay(base time.Duration) time.Duration {
	delay := base
	for i := 1; i < t.RetryCount && delay < maxRetryDelay; i++ {
		delay *= 2
	}
	return min(delay, maxRetryDelay)
}

// GetDuration is zero until Start is called.
func (t *Task) GetDuration() time.Duration {
	if t.StartedAt.IsZero() {
		return 0
	}
	return time.Since(t.StartedAt)
}
