// Package runner drives compiled conversation graphs: it dispatches turns
// to backends, accumulates transcripts, and persists one result file per
// task.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/elmes-ai/elmes/internal/backend"
	"github.com/elmes-ai/elmes/internal/config"
	"github.com/elmes-ai/elmes/internal/graph"
	"github.com/elmes-ai/elmes/internal/models"
	"github.com/elmes-ai/elmes/internal/store"
)

// EventType labels progress events.
type EventType string

const (
	EventRunStart     EventType = "run_start"
	EventRunComplete  EventType = "run_complete"
	EventTaskStart    EventType = "task_start"
	EventTaskComplete EventType = "task_complete"
	EventTurn         EventType = "turn"
)

// ProgressEvent is a progress update delivered to listeners.
type ProgressEvent struct {
	EventType  EventType
	TaskID     string
	TaskNum    int
	TotalTasks int
	Turn       int
	Agent      string
	Status     models.TaskStatus
	DurationMs int64
}

// ProgressListener receives progress updates.
type ProgressListener func(event ProgressEvent)

// TaskOutcome pairs a task with its persisted result.
type TaskOutcome struct {
	TaskID   string
	Status   models.TaskStatus
	Location string
	Err      error
}

// Runner executes all tasks of a spec against a compiled graph. The graph
// and backend pool are shared read-only; each task's transcript is owned by
// its own goroutine.
type Runner struct {
	cfg   *config.RunConfig
	graph *graph.CompiledGraph
	pool  *backend.Pool
	st    store.Store
	retry backend.RetryPolicy

	progressMu sync.Mutex
	listeners  []ProgressListener
}

// Option configures a Runner.
type Option func(*Runner)

// WithRetryPolicy overrides the default backend retry policy.
func WithRetryPolicy(p backend.RetryPolicy) Option {
	return func(r *Runner) { r.retry = p }
}

// New creates a Runner.
func New(cfg *config.RunConfig, g *graph.CompiledGraph, pool *backend.Pool, st store.Store, opts ...Option) *Runner {
	r := &Runner{
		cfg:   cfg,
		graph: g,
		pool:  pool,
		st:    st,
		retry: backend.DefaultRetryPolicy(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// OnProgress registers a progress listener.
func (r *Runner) OnProgress(listener ProgressListener) {
	r.progressMu.Lock()
	defer r.progressMu.Unlock()
	r.listeners = append(r.listeners, listener)
}

func (r *Runner) notify(event ProgressEvent) {
	r.progressMu.Lock()
	listeners := make([]ProgressListener, len(r.listeners))
	copy(listeners, r.listeners)
	r.progressMu.Unlock()

	for _, l := range listeners {
		l(event)
	}
}

// RunAll expands the spec's tasks and executes them on a bounded worker
// pool. Per-task failures never abort sibling tasks; the returned outcomes
// are in task-submission order.
func (r *Runner) RunAll(ctx context.Context) ([]TaskOutcome, error) {
	spec := r.cfg.Spec()
	tasks, err := spec.ExpandTasks()
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, &models.ConfigError{Msg: "task spec expands to no tasks"}
	}

	r.notify(ProgressEvent{EventType: EventRunStart, TotalTasks: len(tasks)})
	start := time.Now()

	workers := r.cfg.Workers()
	semaphore := make(chan struct{}, workers)
	outcomes := make([]TaskOutcome, len(tasks))

	var wg sync.WaitGroup
	for i, task := range tasks {
		wg.Add(1)
		go func(idx int, task models.Task) {
			defer wg.Done()

			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			r.notify(ProgressEvent{
				EventType:  EventTaskStart,
				TaskID:     task.ID,
				TaskNum:    idx + 1,
				TotalTasks: len(tasks),
			})

			outcome := r.runTask(ctx, task)
			outcomes[idx] = outcome

			r.notify(ProgressEvent{
				EventType:  EventTaskComplete,
				TaskID:     task.ID,
				TaskNum:    idx + 1,
				TotalTasks: len(tasks),
				Status:     outcome.Status,
			})
		}(i, task)
	}
	wg.Wait()

	r.notify(ProgressEvent{
		EventType:  EventRunComplete,
		TotalTasks: len(tasks),
		DurationMs: time.Since(start).Milliseconds(),
	})

	return outcomes, nil
}

// runTask executes one task to a terminal state and persists its result.
// All errors end up in the result file; only the store write itself can
// surface as an outcome error.
func (r *Runner) runTask(ctx context.Context, task models.Task) TaskOutcome {
	spec := r.cfg.Spec()
	started := time.Now()

	result := &models.ResultFile{
		Scenario: spec.Name,
		TaskID:   task.ID,
		Task:     task.Variables,
		Status:   models.StatusPending,
	}

	seed := models.RenderTemplate(spec.Tasks.StartPrompt.Content, task.Variables)
	result.Messages = append(result.Messages, models.Message{Role: "user", Content: seed})
	result.Status = models.StatusRunning

	current := r.graph.Start()
	lastReply := seed
	turn := 0

	for {
		// Cancellation is only honored between turns; an in-flight call
		// finishes and its reply is discarded.
		if err := ctx.Err(); err != nil {
			r.fail(result, fmt.Sprintf("cancelled before turn %d: %v", turn+1, err))
			break
		}

		if turn >= r.graph.MaxTurns() {
			if r.graph.EndAtMaxTurns() {
				result.Status = models.StatusCompleted
			} else {
				r.fail(result, fmt.Sprintf("turn limit %d reached without termination", r.graph.MaxTurns()))
			}
			break
		}

		agentDef := spec.Agents[current]
		b, err := r.pool.Get(agentDef.Model)
		if err != nil {
			r.fail(result, err.Error())
			break
		}

		messages := r.projectMessages(agentDef, current, task, result.Messages)

		result.Status = models.StatusAwaitingBackend
		reply, err := r.retry.Send(ctx, b, messages, nil)
		result.Status = models.StatusRunning
		if err != nil {
			r.fail(result, fmt.Sprintf("agent %q turn %d: %v", current, turn+1, err))
			break
		}
		if ctx.Err() != nil {
			r.fail(result, fmt.Sprintf("cancelled during turn %d; reply discarded", turn+1))
			break
		}

		content, reasoning := splitReasoning(reply.Content)
		result.Messages = append(result.Messages, models.Message{
			Role:      current,
			Content:   content,
			Reasoning: reasoning,
		})
		lastReply = content
		turn++

		r.notify(ProgressEvent{
			EventType: EventTurn,
			TaskID:    task.ID,
			Turn:      turn,
			Agent:     current,
		})

		next, done, err := r.graph.Next(current, turn, lastReply)
		if err != nil {
			r.fail(result, err.Error())
			break
		}
		if done {
			result.Status = models.StatusCompleted
			break
		}
		current = next
	}

	agentModel := spec.Agents[r.graph.Start()].Model
	def := spec.Models[agentModel]
	result.Execution = models.ExecutionInfo{
		Backend:    string(def.Kind),
		ModelName:  def.Model,
		Timestamp:  started,
		DurationMs: time.Since(started).Milliseconds(),
		Turns:      turn,
	}

	location, err := r.st.SaveResult(result)
	if err != nil {
		slog.Error("saving result", "task", task.ID, "error", err)
		return TaskOutcome{TaskID: task.ID, Status: result.Status, Err: err}
	}

	return TaskOutcome{TaskID: task.ID, Status: result.Status, Location: location}
}

func (r *Runner) fail(result *models.ResultFile, msg string) {
	result.Status = models.StatusFailed
	result.ErrorMsg = msg
	slog.Debug("task failed", "task", result.TaskID, "reason", msg)
}

// projectMessages builds the message list one agent sees: its rendered
// persona prompts followed by the transcript, with its own prior turns as
// assistant messages and every other speaker's as user messages.
func (r *Runner) projectMessages(agentDef models.AgentDefinition, agentName string, task models.Task, history []models.Message) []backend.Message {
	persona := models.RenderPrompts(agentDef.Prompt, task.Variables)

	messages := make([]backend.Message, 0, len(persona)+len(history))
	for _, p := range persona {
		messages = append(messages, backend.Message{Role: p.Role, Content: p.Content})
	}
	for _, m := range history {
		role := "user"
		if m.Role == agentName {
			role = "assistant"
		}
		messages = append(messages, backend.Message{Role: role, Content: m.Content})
	}
	return messages
}

// splitReasoning separates chain-of-thought text emitted before a
// </think> marker from the visible reply.
func splitReasoning(content string) (reply, reasoning string) {
	if i := strings.Index(content, "</think>"); i >= 0 {
		reasoning = strings.TrimSpace(strings.TrimPrefix(content[:i], "<think>"))
		reply = strings.TrimSpace(content[i+len("</think>"):])
		return reply, reasoning
	}
	return strings.TrimSpace(content), ""
}
