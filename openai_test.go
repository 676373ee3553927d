package gptcommands

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sseBody(payloads ...string) string {
	out := ""
	for _, p := range payloads {
		out += "data: " + p + "\n\n"
	}
	return out + "data: [DONE]\n\n"
}

func newTestTransport(t *testing.T, handler http.HandlerFunc) *openAITransport {
	t.Helper()
	srv := httptest.NewServer(handler)
	client := srv.Client()
	t.Cleanup(func() {
		client.CloseIdleConnections()
		srv.Close()
	})
	return newOpenAITransport(clientOptions{
		apiKey:     "test-key",
		baseURL:    srv.URL,
		httpClient: client,
	})
}

func TestOpenAITransport_RequestShape(t *testing.T) {
	var got chatRequest
	var auth, accept string
	tr := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat/completions", r.URL.Path)
		auth = r.Header.Get("Authorization")
		accept = r.Header.Get("Accept")
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &got))
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, sseBody())
	})

	cmd := MustCommand("alohomora", "Unlock the door.", func() {})
	stream, err := tr.Open(context.Background(), Request{
		Model:       "gpt-4",
		Messages:    []Message{{Role: RoleSystem, Content: "be helpful"}},
		Tools:       []FunctionSpec{cmd.Spec()},
		MaxTokens:   512,
		Temperature: 0.2,
	})
	require.NoError(t, err)
	defer stream.Close()
	_, err = stream.Next()
	assert.Equal(t, io.EOF, err)

	assert.Equal(t, "Bearer test-key", auth)
	assert.Equal(t, "text/event-stream", accept)
	assert.Equal(t, "gpt-4", got.Model)
	assert.True(t, got.Stream)
	assert.Equal(t, 1, got.N)
	assert.Equal(t, 512, got.MaxTokens)
	assert.InDelta(t, 0.2, got.Temperature, 1e-9)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "system", got.Messages[0].Role)
	require.Len(t, got.Tools, 1)
	assert.Equal(t, "function", got.Tools[0].Type)
	assert.Equal(t, "alohomora", got.Tools[0].Function["name"])
}

func TestOpenAITransport_TextStream(t *testing.T) {
	tr := newTestTransport(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, sseBody(
			`{"choices":[{"delta":{"content":"Hel"},"finish_reason":""}]}`,
			`{"choices":[{"delta":{"content":"lo"},"finish_reason":""}]}`,
			`{"choices":[{"delta":{},"finish_reason":"stop"}]}`,
		))
	})

	stream, err := tr.Open(context.Background(), Request{Model: "gpt-4"})
	require.NoError(t, err)
	defer stream.Close()

	d, err := stream.Next()
	require.NoError(t, err)
	assert.Equal(t, "Hel", d.Text)

	d, err = stream.Next()
	require.NoError(t, err)
	assert.Equal(t, "lo", d.Text)

	d, err = stream.Next()
	require.NoError(t, err)
	assert.Equal(t, FinishStop, d.FinishReason)

	_, err = stream.Next()
	assert.Equal(t, io.EOF, err)
	_, err = stream.Next()
	assert.Equal(t, io.EOF, err)
}

func TestOpenAITransport_ToolCallStream(t *testing.T) {
	tr := newTestTransport(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, sseBody(
			`{"choices":[{"delta":{"tool_calls":[{"index":0,"id":"call_1","function":{"name":"expelliarmus","arguments":""}}]},"finish_reason":""}]}`,
			`{"choices":[{"delta":{"tool_calls":[{"index":0,"function":{"arguments":"{\"targ"}}]},"finish_reason":""}]}`,
			`{"choices":[{"delta":{"tool_calls":[{"index":0,"function":{"arguments":"et\": \"Voldemort\"}"}}]},"finish_reason":""}]}`,
			`{"choices":[{"delta":{},"finish_reason":"tool_calls"}]}`,
		))
	})

	stream, err := tr.Open(context.Background(), Request{Model: "gpt-4"})
	require.NoError(t, err)
	defer stream.Close()

	d, err := stream.Next()
	require.NoError(t, err)
	require.NotNil(t, d.Call)
	assert.Equal(t, "call_1", d.Call.ID)
	assert.Equal(t, "expelliarmus", d.Call.Name)

	args := ""
	for {
		d, err = stream.Next()
		require.NoError(t, err)
		if d.FinishReason != "" {
			break
		}
		require.NotNil(t, d.Call)
		args += d.Call.Arguments
	}
	assert.Equal(t, `{"target": "Voldemort"}`, args)
	assert.Equal(t, FinishToolCalls, d.FinishReason)
}

func TestOpenAITransport_SkipsKeepalivesAndEmptyChoices(t *testing.T) {
	tr := newTestTransport(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, ": keepalive comment\n\n")
		io.WriteString(w, "data: {\"choices\":[]}\n\n")
		io.WriteString(w, "data: {\"choices\":[{\"delta\":{\"content\":\"hi\"},\"finish_reason\":\"\"}]}\n\n")
		io.WriteString(w, "data: [DONE]\n\n")
	})

	stream, err := tr.Open(context.Background(), Request{Model: "gpt-4"})
	require.NoError(t, err)
	defer stream.Close()

	d, err := stream.Next()
	require.NoError(t, err)
	assert.Equal(t, "hi", d.Text)
	_, err = stream.Next()
	assert.Equal(t, io.EOF, err)
}

func TestOpenAITransport_HTTPError(t *testing.T) {
	tr := newTestTransport(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error": {"message": "invalid api key"}}`, http.StatusUnauthorized)
	})

	_, err := tr.Open(context.Background(), Request{Model: "gpt-4"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.Contains(t, err.Error(), "invalid api key")
}

func TestOpenAITransport_ErrorChunk(t *testing.T) {
	tr := newTestTransport(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, sseBody(`{"error":{"message":"rate limited"}}`))
	})

	stream, err := tr.Open(context.Background(), Request{Model: "gpt-4"})
	require.NoError(t, err)
	defer stream.Close()

	_, err = stream.Next()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}

func TestFromMessage_ToolCallRoundTrip(t *testing.T) {
	m := fromMessage(Message{
		Role: RoleAssistant,
		ToolCall: &ToolCallRef{
			ID:        "call_1",
			Name:      "alohomora",
			Arguments: "{}",
		},
	})
	require.Len(t, m.ToolCalls, 1)
	assert.Equal(t, "function", m.ToolCalls[0].Type)
	assert.Equal(t, "alohomora", m.ToolCalls[0].Function.Name)

	m = fromMessage(Message{
		Role:       RoleTool,
		Content:    `["wand"]`,
		ToolCallID: "call_1",
		Name:       "get_inventory",
	})
	assert.Equal(t, "tool", m.Role)
	assert.Equal(t, "call_1", m.ToolCallID)
	assert.Equal(t, "get_inventory", m.Name)
}
