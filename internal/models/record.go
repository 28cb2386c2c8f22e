package models

import "time"

// TaskStatus is the lifecycle state of a task execution.
type TaskStatus string

const (
	StatusPending         TaskStatus = "pending"
	StatusRunning         TaskStatus = "running"
	StatusAwaitingBackend TaskStatus = "awaiting_backend"
	StatusCompleted       TaskStatus = "completed"
	StatusFailed          TaskStatus = "failed"
)

// Message is one transcript turn. Role is the agent name for agent turns,
// or "user" for the seeding turn. Reasoning holds any chain-of-thought text
// split off from a </think>-style reply.
type Message struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Reasoning string `json:"reasoning,omitempty"`
}

// ExecutionInfo records which backend produced a transcript and when.
type ExecutionInfo struct {
	Backend    string    `json:"backend"`
	ModelName  string    `json:"model_name"`
	Timestamp  time.Time `json:"timestamp"`
	DurationMs int64     `json:"duration_ms"`
	Turns      int       `json:"turns"`
}

// ResultFile is the per-task artifact written after a workflow run: the task
// identity, the full transcript, and execution metadata. Append-only while
// the run is live, immutable once the run terminates.
type ResultFile struct {
	Scenario  string            `json:"scenario,omitempty"`
	TaskID    string            `json:"task_id"`
	Task      map[string]string `json:"task"`
	Status    TaskStatus        `json:"status"`
	Messages  []Message         `json:"messages"`
	Execution ExecutionInfo     `json:"execution_info"`
	ErrorMsg  string            `json:"error_msg,omitempty"`
}

// Question returns the first user turn, the content that seeded the task.
func (r *ResultFile) Question() string {
	for _, m := range r.Messages {
		if m.Role == "user" {
			return m.Content
		}
	}
	return ""
}

// FinalAnswer returns the content of the last non-user turn.
func (r *ResultFile) FinalAnswer() string {
	for i := len(r.Messages) - 1; i >= 0; i-- {
		if r.Messages[i].Role != "user" {
			return r.Messages[i].Content
		}
	}
	return ""
}

// EvalRecord is the per-transcript evaluation artifact. Payload matches the
// synthesized contract shape in the tool path; in the prompt/legacy path it
// is whatever nested mapping could be recovered from the reply text.
// Immutable once written.
type EvalRecord struct {
	OriginalFile string         `json:"original_file"`
	Scenario     string         `json:"scenario,omitempty"`
	TaskID       string         `json:"task_id"`
	Backend      string         `json:"evaluation_backend"`
	ModelName    string         `json:"evaluation_model"`
	Rubric       string         `json:"rubric,omitempty"`
	Payload      map[string]any `json:"payload,omitempty"`
	RawText      string         `json:"raw_text,omitempty"`
	ParseFailure bool           `json:"parse_failure,omitempty"`
	Timestamp    time.Time      `json:"evaluation_timestamp"`
}
