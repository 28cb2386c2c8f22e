package models

import (
	"fmt"
	"sort"
	"strings"
)

// BackendKind identifies the chat backend protocol for a model definition.
type BackendKind string

const (
	BackendOpenAI   BackendKind = "openai"
	BackendDeepSeek BackendKind = "deepseek"
	BackendOllama   BackendKind = "ollama"
)

// GlobalConfig controls run-wide behavior.
type GlobalConfig struct {
	Concurrency int    `yaml:"concurrency" json:"concurrency"`
	MaxTurns    int    `yaml:"max_turns" json:"max_turns"`
	OutputDir   string `yaml:"output_dir" json:"output_dir"`

	// EndAtMaxTurns marks turn exhaustion as a valid terminal state instead
	// of a task failure.
	EndAtMaxTurns bool `yaml:"end_at_max_turns,omitempty" json:"end_at_max_turns,omitempty"`
}

// ModelDefinition describes one named chat model and how to reach it.
// Immutable once loaded.
type ModelDefinition struct {
	Kind     BackendKind    `yaml:"type" json:"kind"`
	Endpoint string         `yaml:"api_base,omitempty" json:"endpoint,omitempty"`
	APIKey   string         `yaml:"api_key,omitempty" json:"-"`
	Model    string         `yaml:"model" json:"model"`
	Params   map[string]any `yaml:"kargs,omitempty" json:"params,omitempty"`
}

// Prompt is a single {role, content} message template.
type Prompt struct {
	Role    string `yaml:"role" json:"role"`
	Content string `yaml:"content" json:"content"`
}

// AgentDefinition binds a persona to a model.
type AgentDefinition struct {
	Model  string   `yaml:"model" json:"model"`
	Prompt []Prompt `yaml:"prompt" json:"prompt"`
}

// TaskSpec declares how the task list is produced.
//
// Mode "iter" takes Content as an explicit list of variable maps. Mode
// "union" takes Content as a map of variable name to value list and expands
// the cartesian product.
type TaskSpec struct {
	Mode        string `yaml:"mode" json:"mode"`
	StartPrompt Prompt `yaml:"start_prompt" json:"start_prompt"`
	Content     any    `yaml:"content" json:"content"`
}

// Task is one expanded unit of work. Each task produces exactly one
// transcript.
type Task struct {
	ID        string            `json:"id"`
	Variables map[string]string `json:"variables"`
}

// RubricKind is the declared value kind of a rubric field.
type RubricKind string

const (
	RubricString RubricKind = "str"
	RubricInt    RubricKind = "int"
	RubricFloat  RubricKind = "float"
	RubricBool   RubricKind = "bool"
	RubricGroup  RubricKind = "dict"
)

// RubricField is one named evaluation dimension. Fields of kind "dict" nest
// child fields, forming a tree.
type RubricField struct {
	Field       string        `yaml:"field" json:"field"`
	Kind        RubricKind    `yaml:"type" json:"type"`
	Description string        `yaml:"description,omitempty" json:"description,omitempty"`
	Items       []RubricField `yaml:"items,omitempty" json:"items,omitempty"`
}

// FormatMode selects how the evaluation contract is enforced.
type FormatMode string

const (
	// FormatTool offers a tool-calling extraction contract so the reply is
	// shape-constrained by the backend.
	FormatTool FormatMode = "tool"
	// FormatPrompt renders the schema into the prompt and relies on
	// best-effort text parsing. This path has a materially higher failure
	// rate; failures are recorded, not dropped.
	FormatPrompt FormatMode = "prompt"
)

// EvaluationSpec configures transcript scoring.
type EvaluationSpec struct {
	Model  string        `yaml:"model" json:"model"`
	Prompt []Prompt      `yaml:"prompt" json:"prompt"`
	Format []RubricField `yaml:"format" json:"format"`
	Mode   FormatMode    `yaml:"mode,omitempty" json:"mode"`
}

// Spec is the complete loaded configuration. Constructed once at startup and
// shared read-only.
type Spec struct {
	Name       string                     `yaml:"name,omitempty" json:"name,omitempty"`
	Globals    GlobalConfig               `yaml:"globals" json:"globals"`
	Models     map[string]ModelDefinition `yaml:"models" json:"models"`
	Agents     map[string]AgentDefinition `yaml:"agents" json:"agents"`
	Directions []string                   `yaml:"directions" json:"directions"`
	Tasks      TaskSpec                   `yaml:"tasks" json:"tasks"`
	Evaluation *EvaluationSpec            `yaml:"evaluation,omitempty" json:"evaluation,omitempty"`
}

// Validate checks cross-references and fills defaults.
func (s *Spec) Validate() error {
	if s.Globals.Concurrency <= 0 {
		s.Globals.Concurrency = 8
	}
	if s.Globals.MaxTurns <= 0 {
		s.Globals.MaxTurns = 25
	}
	if s.Globals.OutputDir == "" {
		s.Globals.OutputDir = "results"
	}
	if len(s.Models) == 0 {
		return &ConfigError{Msg: "no models defined"}
	}
	if len(s.Agents) == 0 {
		return &ConfigError{Msg: "no agents defined"}
	}
	for name, agent := range s.Agents {
		if _, ok := s.Models[agent.Model]; !ok {
			return &ConfigError{Msg: fmt.Sprintf("agent %q references undefined model %q", name, agent.Model)}
		}
	}
	if len(s.Directions) == 0 {
		return &ConfigError{Msg: "no directions defined"}
	}
	if s.Evaluation != nil {
		if _, ok := s.Models[s.Evaluation.Model]; !ok {
			return &ConfigError{Msg: fmt.Sprintf("evaluation references undefined model %q", s.Evaluation.Model)}
		}
		if s.Evaluation.Mode == "" {
			s.Evaluation.Mode = FormatTool
		}
		if s.Evaluation.Mode != FormatTool && s.Evaluation.Mode != FormatPrompt {
			return &ConfigError{Msg: fmt.Sprintf("evaluation mode %q is not one of tool, prompt", s.Evaluation.Mode)}
		}
	}
	return nil
}

// ExpandTasks materializes the task list from the task spec.
func (s *Spec) ExpandTasks() ([]Task, error) {
	switch strings.ToLower(s.Tasks.Mode) {
	case "", "iter":
		return expandIter(s.Tasks.Content)
	case "union":
		return expandUnion(s.Tasks.Content)
	default:
		return nil, &ConfigError{Msg: fmt.Sprintf("unknown task mode %q", s.Tasks.Mode)}
	}
}

func expandIter(content any) ([]Task, error) {
	items, ok := content.([]any)
	if !ok {
		return nil, &ConfigError{Msg: "iter tasks require a list of variable maps"}
	}
	tasks := make([]Task, 0, len(items))
	for i, item := range items {
		vars, err := toStringMap(item)
		if err != nil {
			return nil, &ConfigError{Msg: fmt.Sprintf("task %d: %v", i, err)}
		}
		tasks = append(tasks, Task{ID: taskID(i), Variables: vars})
	}
	return tasks, nil
}

func expandUnion(content any) ([]Task, error) {
	raw, ok := content.(map[string]any)
	if !ok {
		return nil, &ConfigError{Msg: "union tasks require a map of variable name to value list"}
	}

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	values := make([][]string, len(keys))
	for i, k := range keys {
		list, ok := raw[k].([]any)
		if !ok {
			return nil, &ConfigError{Msg: fmt.Sprintf("union variable %q is not a list", k)}
		}
		for _, v := range list {
			values[i] = append(values[i], fmt.Sprint(v))
		}
		if len(values[i]) == 0 {
			return nil, &ConfigError{Msg: fmt.Sprintf("union variable %q has no values", k)}
		}
	}

	// Cartesian product, first key varying slowest.
	tasks := []Task{}
	idx := make([]int, len(keys))
	for {
		vars := make(map[string]string, len(keys))
		for i, k := range keys {
			vars[k] = values[i][idx[i]]
		}
		tasks = append(tasks, Task{ID: taskID(len(tasks)), Variables: vars})

		i := len(keys) - 1
		for ; i >= 0; i-- {
			idx[i]++
			if idx[i] < len(values[i]) {
				break
			}
			idx[i] = 0
		}
		if i < 0 {
			return tasks, nil
		}
	}
}

func toStringMap(v any) (map[string]string, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected a map, got %T", v)
	}
	out := make(map[string]string, len(m))
	for k, val := range m {
		out[k] = fmt.Sprint(val)
	}
	return out, nil
}

func taskID(n int) string {
	return fmt.Sprintf("task-%03d", n)
}

// RenderPrompts substitutes {name} placeholders from vars into a copy of the
// given prompt list. The originals are never modified.
func RenderPrompts(prompts []Prompt, vars map[string]string) []Prompt {
	out := make([]Prompt, len(prompts))
	for i, p := range prompts {
		out[i] = Prompt{Role: p.Role, Content: RenderTemplate(p.Content, vars)}
	}
	return out
}

// RenderTemplate substitutes {name} placeholders from vars into s.
func RenderTemplate(s string, vars map[string]string) string {
	for k, v := range vars {
		s = strings.ReplaceAll(s, "{"+k+"}", v)
	}
	return s
}
