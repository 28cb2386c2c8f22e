package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/elmes-ai/elmes/internal/models"
)

// openAIBackend speaks the chat/completions dialect used by OpenAI,
// DeepSeek, and compatible servers.
type openAIBackend struct {
	name     string
	endpoint string
	apiKey   string
	model    string
	params   GenerationParams
	client   *http.Client
}

func newOpenAI(def models.ModelDefinition, params GenerationParams, client *http.Client, name, defaultEndpoint string) *openAIBackend {
	endpoint := def.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	return &openAIBackend{
		name:     name,
		endpoint: endpoint,
		apiKey:   def.APIKey,
		model:    def.Model,
		params:   params,
		client:   client,
	}
}

func (b *openAIBackend) Name() string      { return b.name }
func (b *openAIBackend) ModelName() string { return b.model }

func (b *openAIBackend) Send(ctx context.Context, messages []Message, tools []ToolDescriptor) (*Reply, error) {
	body := map[string]any{
		"model":    b.model,
		"messages": messages,
	}
	if b.params.Temperature != nil {
		body["temperature"] = *b.params.Temperature
	}
	if b.params.MaxTokens != nil {
		body["max_tokens"] = *b.params.MaxTokens
	}
	if b.params.TopP != nil {
		body["top_p"] = *b.params.TopP
	}
	if b.params.Seed != nil {
		body["seed"] = *b.params.Seed
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
		// Force the single extraction tool so the reply is shape-constrained.
		if len(tools) == 1 {
			body["tool_choice"] = map[string]any{
				"type":     "function",
				"function": map[string]any{"name": tools[0].Name},
			}
		}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if b.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+b.apiKey)
	}

	httpResp, err := b.client.Do(req)
	if err != nil {
		return nil, &Error{Backend: b.name, Msg: err.Error(), Transient: true}
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &Error{Backend: b.name, Msg: "reading response: " + err.Error(), Transient: true}
	}

	if httpResp.StatusCode != http.StatusOK {
		retryAfter, _ := strconv.Atoi(httpResp.Header.Get("Retry-After"))
		return nil, classifyStatus(b.name, httpResp.StatusCode, truncate(string(raw), 300), retryAfter)
	}

	var resp struct {
		Model   string `json:"model"`
		Choices []struct {
			Message struct {
				Content   string `json:"content"`
				ToolCalls []struct {
					Function struct {
						Name      string `json:"name"`
						Arguments string `json:"arguments"`
					} `json:"function"`
				} `json:"tool_calls"`
			} `json:"message"`
			FinishReason string `json:"finish_reason"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, &Error{Backend: b.name, Msg: "parsing response: " + err.Error()}
	}
	if len(resp.Choices) == 0 {
		return nil, &Error{Backend: b.name, Msg: "response has no choices"}
	}

	choice := resp.Choices[0]
	reply := &Reply{Content: choice.Message.Content, Model: resp.Model}

	if len(choice.Message.ToolCalls) > 0 {
		tc := choice.Message.ToolCalls[0]
		args := map[string]any{}
		if tc.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
				return nil, &Error{Backend: b.name, Msg: fmt.Sprintf("tool call %q has malformed arguments: %v", tc.Function.Name, err)}
			}
		}
		reply.ToolCall = &ToolCall{Name: tc.Function.Name, Arguments: args}
	}

	return reply, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
