// Package backend provides the uniform chat capability the rest of the
// system consumes: send an ordered message list, optionally offering tool
// descriptors, and get back a reply that is either text or a tool call.
package backend

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-viper/mapstructure/v2"

	"github.com/elmes-ai/elmes/internal/models"
)

// Message is one chat message sent to a backend.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ToolDescriptor describes a callable tool offered to the backend.
// Parameters is a JSON-schema object describing the argument shape.
type ToolDescriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// ToolCall is a structured function-call-shaped reply.
type ToolCall struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// Reply is a backend response: free text, and possibly a tool call.
type Reply struct {
	Content  string    `json:"content"`
	ToolCall *ToolCall `json:"tool_call,omitempty"`
	Model    string    `json:"model,omitempty"`
}

// Backend is the single capability interface the core requires from a chat
// API. Implementations must be safe for concurrent use.
type Backend interface {
	// Send dispatches the message list and blocks until a reply or error.
	// Tools may be nil; when non-nil and the request forces a tool choice,
	// the reply's ToolCall carries the extracted arguments.
	Send(ctx context.Context, messages []Message, tools []ToolDescriptor) (*Reply, error)

	// Name identifies the backend kind, e.g. "openai" or "ollama".
	Name() string

	// ModelName identifies the concrete model.
	ModelName() string
}

// GenerationParams are the common sampling knobs decoded from a model
// definition's free-form kargs map.
type GenerationParams struct {
	Temperature *float64 `mapstructure:"temperature"`
	MaxTokens   *int     `mapstructure:"max_tokens"`
	TopP        *float64 `mapstructure:"top_p"`
	Seed        *int     `mapstructure:"seed"`
}

func decodeParams(raw map[string]any) (GenerationParams, error) {
	var p GenerationParams
	if raw == nil {
		return p, nil
	}
	if err := mapstructure.Decode(raw, &p); err != nil {
		return p, fmt.Errorf("decoding model kargs: %w", err)
	}
	return p, nil
}

// defaultTimeout bounds one backend call unless the model definition
// overrides it.
const defaultTimeout = 120 * time.Second

// New constructs a backend for the given model definition.
func New(def models.ModelDefinition) (Backend, error) {
	params, err := decodeParams(def.Params)
	if err != nil {
		return nil, err
	}

	client := &http.Client{Timeout: defaultTimeout}

	switch def.Kind {
	case models.BackendOpenAI, "":
		return newOpenAI(def, params, client, "openai", "https://api.openai.com/v1"), nil
	case models.BackendDeepSeek:
		// DeepSeek speaks the OpenAI chat/completions dialect.
		return newOpenAI(def, params, client, "deepseek", "https://api.deepseek.com/v1"), nil
	case models.BackendOllama:
		return newOllama(def, params, client), nil
	default:
		return nil, &models.ConfigError{Msg: fmt.Sprintf("unknown backend type %q", def.Kind)}
	}
}

// Pool holds one backend per model definition, built once and shared
// read-only across concurrent tasks.
type Pool struct {
	backends map[string]Backend
}

// NewPool builds backends for every model in the spec.
func NewPool(defs map[string]models.ModelDefinition) (*Pool, error) {
	backends := make(map[string]Backend, len(defs))
	for name, def := range defs {
		b, err := New(def)
		if err != nil {
			return nil, fmt.Errorf("model %q: %w", name, err)
		}
		backends[name] = b
	}
	return &Pool{backends: backends}, nil
}

// NewStaticPool wraps pre-built backends. Used for injecting test doubles.
func NewStaticPool(backends map[string]Backend) *Pool {
	return &Pool{backends: backends}
}

// Get returns the backend for a model name.
func (p *Pool) Get(model string) (Backend, error) {
	b, ok := p.backends[model]
	if !ok {
		return nil, &models.ConfigError{Msg: fmt.Sprintf("no backend for model %q", model)}
	}
	return b, nil
}
