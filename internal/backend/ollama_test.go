package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elmes-ai/elmes/internal/models"
)

func TestOllama_Send(t *testing.T) {
	var gotBody map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		_, _ = w.Write([]byte(`{
			"model": "llama3",
			"message": {"content": "A fraction is part of a whole."}
		}`))
	}))
	defer server.Close()

	b, err := New(models.ModelDefinition{
		Kind:     models.BackendOllama,
		Endpoint: server.URL,
		Model:    "llama3",
		Params:   map[string]any{"temperature": 0.1, "max_tokens": 32},
	})
	require.NoError(t, err)

	reply, err := b.Send(context.Background(), []Message{{Role: "user", Content: "What is a fraction?"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, "A fraction is part of a whole.", reply.Content)

	assert.Equal(t, false, gotBody["stream"])
	options, ok := gotBody["options"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 0.1, options["temperature"])
	// Ollama names the token cap num_predict.
	assert.Equal(t, float64(32), options["num_predict"])
}

func TestOllama_ToolCallArguments(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"message": {
				"content": "",
				"tool_calls": [{"function": {"name": "save_result_to_database", "arguments": {"clarity": 5}}}]
			}
		}`))
	}))
	defer server.Close()

	b, err := New(models.ModelDefinition{Kind: models.BackendOllama, Endpoint: server.URL, Model: "llama3"})
	require.NoError(t, err)

	reply, err := b.Send(context.Background(), nil, []ToolDescriptor{{Name: "save_result_to_database"}})
	require.NoError(t, err)
	require.NotNil(t, reply.ToolCall)
	assert.Equal(t, map[string]any{"clarity": float64(5)}, reply.ToolCall.Arguments)
}
