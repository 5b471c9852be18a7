package progress

import "time"

type EventType string

const (
	EventRunStarted        EventType = "run_started"
	EventRunWarning        EventType = "run_warning"
	EventRunFinished       EventType = "run_finished"
	EventTargetStarted     EventType = "target_started"
	EventTargetProgress    EventType = "target_progress"
	EventTargetFileScanned EventType = "target_file_scanned"
	EventTargetFinished    EventType = "target_finished"
)

type Event struct {
	Type         EventType `json:"type"`
	At           time.Time `json:"at"`
	RunID        string    `json:"run_id,omitempty"`
	Target       string    `json:"target,omitempty"`
	Status       string    `json:"status,omitempty"`
	Message      string    `json:"message,omitempty"`
	Error        string    `json:"error,omitempty"`
	FindingCount int       `json:"finding_count,omitempty"`
	DurationMS   int64     `json:"duration_ms,omitempty"`
}
