package task

import "time"

// Statuses of an embedding task. pending and processing are active;
// completed and failed are terminal.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Task tracks background embedding computation for one document.
type Task struct {
	ID           string    `json:"id"`
	DocumentID   string    `json:"document_id"`
	Status       string    `json:"status"`
	Current      int       `json:"current"`
	Total        int       `json:"total"`
	Progress     int       `json:"progress"`
	SuccessCount int       `json:"success_count"`
	FailCount    int       `json:"fail_count"`
	Error        string    `json:"error,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Active reports whether the task is still pending or running.
func (t *Task) Active() bool {
	return t.Status == StatusPending || t.Status == StatusProcessing
}
