// Package eval scores stored transcripts against a rubric using an
// evaluation-capable backend and the contract synthesized from the rubric.
package eval

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/elmes-ai/elmes/internal/backend"
	"github.com/elmes-ai/elmes/internal/config"
	"github.com/elmes-ai/elmes/internal/models"
	"github.com/elmes-ai/elmes/internal/schema"
	"github.com/elmes-ai/elmes/internal/store"
)

// Evaluator scores transcripts. The contract is synthesized once per run
// and reused for every transcript.
type Evaluator struct {
	spec     *models.EvaluationSpec
	backend  backend.Backend
	contract *schema.Contract
	rubric   string
	retry    backend.RetryPolicy
	workers  int
}

// New builds an Evaluator from the run config. It fails with a SchemaError
// before any backend call when the rubric is malformed.
func New(cfg *config.RunConfig, pool *backend.Pool) (*Evaluator, error) {
	es := cfg.Spec().Evaluation
	if es == nil {
		return nil, &models.ConfigError{Msg: "spec has no evaluation section"}
	}

	contract, err := schema.Synthesize(es.Format, es.Mode)
	if err != nil {
		return nil, err
	}

	b, err := pool.Get(es.Model)
	if err != nil {
		return nil, err
	}

	return &Evaluator{
		spec:     es,
		backend:  b,
		contract: contract,
		rubric:   rubricName(es.Format),
		retry:    backend.DefaultRetryPolicy(),
		workers:  cfg.Workers(),
	}, nil
}

// rubricName names the rubric by its top-level dimensions, for traceability
// in stored evaluation records.
func rubricName(fields []models.RubricField) string {
	names := make([]string, 0, len(fields))
	for _, f := range fields {
		names = append(names, f.Field)
	}
	return strings.Join(names, ",")
}

// Contract exposes the synthesized contract, mainly for callers that report
// on it.
func (e *Evaluator) Contract() *schema.Contract { return e.contract }

// EvalOutcome pairs an evaluation record with its persisted location.
type EvalOutcome struct {
	Record   *models.EvalRecord
	Location string
	Err      error
}

// EvaluateAll scores every stored result on a bounded worker pool. A failed
// evaluation never aborts its siblings; outcomes are in listing order.
func (e *Evaluator) EvaluateAll(ctx context.Context, st store.Store) ([]EvalOutcome, error) {
	locations, err := st.ListResults()
	if err != nil {
		return nil, err
	}

	outcomes := make([]EvalOutcome, len(locations))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for i, location := range locations {
		g.Go(func() error {
			result, err := st.LoadResult(location)
			if err != nil {
				mu.Lock()
				outcomes[i] = EvalOutcome{Err: err}
				mu.Unlock()
				return nil
			}

			rec, err := e.Evaluate(ctx, result, location)
			if err != nil {
				slog.Error("evaluating transcript", "result", location, "error", err)
				mu.Lock()
				outcomes[i] = EvalOutcome{Err: err}
				mu.Unlock()
				return nil
			}

			loc, err := st.SaveEval(rec)
			mu.Lock()
			outcomes[i] = EvalOutcome{Record: rec, Location: loc, Err: err}
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

// Evaluate scores one transcript. A reply that cannot be coerced to the
// contract produces a record flagged with ParseFailure and carrying the raw
// text; only backend failures return an error.
func (e *Evaluator) Evaluate(ctx context.Context, result *models.ResultFile, location string) (*models.EvalRecord, error) {
	messages := e.renderPrompts(result)

	var tools []backend.ToolDescriptor
	if e.contract.Mode == models.FormatTool {
		tools = []backend.ToolDescriptor{e.contract.Tool}
	}

	reply, err := e.retry.Send(ctx, e.backend, messages, tools)
	if err != nil {
		return nil, err
	}

	rec := &models.EvalRecord{
		OriginalFile: location,
		Scenario:     result.Scenario,
		TaskID:       result.TaskID,
		Backend:      e.backend.Name(),
		ModelName:    e.backend.ModelName(),
		Rubric:       e.rubric,
		Timestamp:    time.Now(),
	}

	switch {
	case reply.ToolCall != nil && reply.ToolCall.Name == schema.ExtractionToolName:
		// Shape-constrained by construction; arguments taken verbatim.
		rec.Payload = reply.ToolCall.Arguments
		if err := e.contract.Validate(rec.Payload); err != nil {
			// Kept anyway: flattening surfaces any nonconforming members
			// as unscored dimensions instead of discarding the record.
			slog.Debug("tool payload does not match contract", "task", result.TaskID, "error", err)
		}
	default:
		payload, perr := ExtractStructured(reply.Content)
		if perr != nil {
			rec.ParseFailure = true
			rec.RawText = reply.Content
			slog.Warn("could not coerce evaluation reply", "task", result.TaskID, "error", perr)
		} else {
			rec.Payload = payload
		}
	}

	return rec, nil
}

// renderPrompts expands the evaluation prompt templates for one transcript.
// Available placeholders: every task variable, plus {question}, {answer},
// and {messages} (the full transcript, one "name: content" line per turn).
func (e *Evaluator) renderPrompts(result *models.ResultFile) []backend.Message {
	vars := map[string]string{
		"question": result.Question(),
		"answer":   result.FinalAnswer(),
		"messages": renderTranscript(result.Messages),
	}
	for k, v := range result.Task {
		vars[k] = v
	}

	prompts := models.RenderPrompts(e.spec.Prompt, vars)
	messages := make([]backend.Message, 0, len(prompts)+1)
	for _, p := range prompts {
		messages = append(messages, backend.Message{Role: p.Role, Content: p.Content})
	}

	switch e.contract.Mode {
	case models.FormatPrompt:
		messages = append(messages, backend.Message{
			Role: "user",
			Content: "Reply with a single JSON object of exactly this shape, and nothing else:\n" +
				e.contract.Example,
		})
	default:
		messages = append(messages, backend.Message{
			Role:    "user",
			Content: "Call the " + schema.ExtractionToolName + " tool to store the evaluation results.",
		})
	}
	return messages
}

func renderTranscript(messages []models.Message) string {
	var sb strings.Builder
	for _, m := range messages {
		sb.WriteString(m.Role)
		sb.WriteString(": ")
		sb.WriteString(m.Content)
		sb.WriteString("\n")
	}
	return sb.String()
}
