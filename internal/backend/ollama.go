package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/elmes-ai/elmes/internal/models"
)

// ollamaBackend speaks Ollama's native /api/chat protocol.
type ollamaBackend struct {
	endpoint string
	model    string
	params   GenerationParams
	client   *http.Client
}

func newOllama(def models.ModelDefinition, params GenerationParams, client *http.Client) *ollamaBackend {
	endpoint := def.Endpoint
	if endpoint == "" {
		endpoint = "http://localhost:11434"
	}
	return &ollamaBackend{
		endpoint: endpoint,
		model:    def.Model,
		params:   params,
		client:   client,
	}
}

func (b *ollamaBackend) Name() string      { return "ollama" }
func (b *ollamaBackend) ModelName() string { return b.model }

func (b *ollamaBackend) Send(ctx context.Context, messages []Message, tools []ToolDescriptor) (*Reply, error) {
	options := map[string]any{}
	if b.params.Temperature != nil {
		options["temperature"] = *b.params.Temperature
	}
	if b.params.MaxTokens != nil {
		options["num_predict"] = *b.params.MaxTokens
	}
	if b.params.TopP != nil {
		options["top_p"] = *b.params.TopP
	}

	body := map[string]any{
		"model":    b.model,
		"messages": messages,
		"stream":   false,
	}
	if len(options) > 0 {
		body["options"] = options
	}
	if len(tools) > 0 {
		wire := make([]map[string]any, 0, len(tools))
		for _, t := range tools {
			wire = append(wire, map[string]any{
				"type": "function",
				"function": map[string]any{
					"name":        t.Name,
					"description": t.Description,
					"parameters":  t.Parameters,
				},
			})
		}
		body["tools"] = wire
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := b.client.Do(req)
	if err != nil {
		return nil, &Error{Backend: "ollama", Msg: err.Error(), Transient: true}
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &Error{Backend: "ollama", Msg: "reading response: " + err.Error(), Transient: true}
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, classifyStatus("ollama", httpResp.StatusCode, truncate(string(raw), 300), 0)
	}

	var resp struct {
		Model   string `json:"model"`
		Message struct {
			Content   string `json:"content"`
			ToolCalls []struct {
				Function struct {
					Name      string         `json:"name"`
					Arguments map[string]any `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"message"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, &Error{Backend: "ollama", Msg: "parsing response: " + err.Error()}
	}

	reply := &Reply{Content: resp.Message.Content, Model: resp.Model}
	if len(resp.Message.ToolCalls) > 0 {
		tc := resp.Message.ToolCalls[0]
		reply.ToolCall = &ToolCall{Name: tc.Function.Name, Arguments: tc.Function.Arguments}
	}
	return reply, nil
}
