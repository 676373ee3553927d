package gptcommands

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

const defaultBaseURL = "https://api.openai.com/v1"

// openAITransport is the default Transport: OpenAI chat completions with SSE
// streaming and function tools.
type openAITransport struct {
	apiKey       string
	organization string
	baseURL      string
	client       *http.Client
}

func newOpenAITransport(o clientOptions) *openAITransport {
	t := &openAITransport{
		apiKey:       o.apiKey,
		organization: o.organization,
		baseURL:      o.baseURL,
		client:       o.httpClient,
	}
	if t.apiKey == "" {
		t.apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if t.organization == "" {
		t.organization = os.Getenv("OPENAI_ORGANIZATION")
	}
	if t.baseURL == "" {
		t.baseURL = defaultBaseURL
	}
	if t.client == nil {
		t.client = &http.Client{}
	}
	return t
}

// Request/response wire types for the chat completions endpoint.

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Tools       []chatTool    `json:"tools,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	N           int           `json:"n"`
	Temperature float64       `json:"temperature"`
	Stream      bool          `json:"stream"`
}

type chatMessage struct {
	Role       string         `json:"role"`
	Content    string         `json:"content"`
	ToolCalls  []chatToolCall `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
	Name       string         `json:"name,omitempty"`
}

type chatToolCall struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"` // always "function"
	Function chatFunctionCall `json:"function"`
}

type chatFunctionCall struct {
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
}

type chatTool struct {
	Type     string         `json:"type"` // always "function"
	Function map[string]any `json:"function"`
}

// chatChunk is one streamed completion chunk.
type chatChunk struct {
	Choices []struct {
		Delta struct {
			Content   string `json:"content"`
			ToolCalls []struct {
				Index    int              `json:"index"`
				ID       string           `json:"id"`
				Function chatFunctionCall `json:"function"`
			} `json:"tool_calls"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func fromMessage(m Message) chatMessage {
	out := chatMessage{
		Role:       string(m.Role),
		Content:    m.Content,
		ToolCallID: m.ToolCallID,
		Name:       m.Name,
	}
	if m.ToolCall != nil {
		out.ToolCalls = []chatToolCall{{
			ID:   m.ToolCall.ID,
			Type: "function",
			Function: chatFunctionCall{
				Name:      m.ToolCall.Name,
				Arguments: m.ToolCall.Arguments,
			},
		}}
	}
	return out
}

// Open sends one streaming chat completion request. The returned stream owns
// the response body and must be closed by the caller on all paths.
func (t *openAITransport) Open(ctx context.Context, req Request) (DeltaStream, error) {
	body := chatRequest{
		Model:       req.Model,
		Messages:    make([]chatMessage, 0, len(req.Messages)),
		MaxTokens:   req.MaxTokens,
		N:           1,
		Temperature: req.Temperature,
		Stream:      true,
	}
	for _, m := range req.Messages {
		body.Messages = append(body.Messages, fromMessage(m))
	}
	for _, spec := range req.Tools {
		body.Tools = append(body.Tools, chatTool{Type: "function", Function: spec.JSONMap()})
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+t.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	if t.organization != "" {
		httpReq.Header.Set("OpenAI-Organization", t.organization)
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		msg, readErr := io.ReadAll(io.LimitReader(resp.Body, 1024))
		if readErr != nil {
			return nil, fmt.Errorf("chat api error: status=%s (failed to read body: %w)", resp.Status, readErr)
		}
		return nil, fmt.Errorf("chat api error: status=%s, body=%s", resp.Status, string(msg))
	}

	return &sseStream{
		body:   resp.Body,
		reader: bufio.NewReaderSize(resp.Body, 16*1024),
	}, nil
}

// sseStream pulls deltas off a chat completions SSE body. In SSE newlines are
// field delimiters; only `data:` fields matter here, and the API sends one
// full JSON chunk per data line, terminated by the `[DONE]` sentinel.
type sseStream struct {
	body   io.ReadCloser
	reader *bufio.Reader
	done   bool
}

func (s *sseStream) Next() (Delta, error) {
	if s.done {
		return Delta{}, io.EOF
	}
	for {
		line, err := s.reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				s.done = true
				return Delta{}, io.EOF
			}
			return Delta{}, err
		}
		line = strings.TrimRight(line, "\r\n")

		payload, ok := strings.CutPrefix(line, "data:")
		if !ok {
			continue
		}
		payload = strings.TrimSpace(payload)
		if payload == "" {
			continue
		}
		if payload == "[DONE]" {
			s.done = true
			return Delta{}, io.EOF
		}

		var chunk chatChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			return Delta{}, fmt.Errorf("decode stream chunk: %w", err)
		}
		if chunk.Error != nil {
			return Delta{}, fmt.Errorf("chat api error: %s", chunk.Error.Message)
		}
		if len(chunk.Choices) == 0 {
			continue
		}

		choice := chunk.Choices[0]
		delta := Delta{
			Text:         choice.Delta.Content,
			FinishReason: choice.FinishReason,
		}
		if len(choice.Delta.ToolCalls) > 0 {
			tc := choice.Delta.ToolCalls[0]
			delta.Call = &CallDelta{
				ID:        tc.ID,
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			}
		}
		return delta, nil
	}
}

func (s *sseStream) Close() error {
	s.done = true
	return s.body.Close()
}

var _ Transport = (*openAITransport)(nil)
