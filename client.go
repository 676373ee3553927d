package gptcommands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

// Client drives tool-calling conversations against a chat model. One Client
// owns one conversation: the system prompt, the accumulated history, and the
// transport connection. Not safe for concurrent use; a conversation is a
// single logical sequence of turns.
type Client struct {
	model      string
	registry   *Registry
	transport  Transport
	httpClient *http.Client
	logger     *slog.Logger

	maxTokens   int
	temperature float64
	history     []Message
}

// New creates a Client for the given model, system prompt, and command
// registry. The default transport speaks OpenAI chat completions with
// credentials from the options or the environment.
func New(model, systemPrompt string, registry *Registry, opts ...ClientOption) *Client {
	o := clientOptions{
		maxTokens:   2000,
		temperature: 0.7,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.httpClient == nil {
		o.httpClient = &http.Client{}
	}
	transport := o.transport
	if transport == nil {
		transport = newOpenAITransport(o)
	}
	logger := o.logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{
		model:       model,
		registry:    registry,
		transport:   transport,
		httpClient:  o.httpClient,
		logger:      logger,
		maxTokens:   o.maxTokens,
		temperature: o.temperature,
		history:     []Message{{Role: RoleSystem, Content: systemPrompt}},
	}
}

// History returns a snapshot of the conversation so far.
func (c *Client) History() []Message {
	return append([]Message(nil), c.history...)
}

// Close releases the transport's idle connections. The client must not be
// used afterwards.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// pendingToolCall accumulates one tool call across stream fragments. The
// argument buffer is append-only concatenation; it is parsed only after the
// stream's terminal marker confirms the call is complete.
type pendingToolCall struct {
	id   string
	name string
	args strings.Builder
}

// ChatStream sends a user prompt and streams the model's text response to
// yield, chunk by chunk, as it arrives. When the model requests a tool call
// instead, the matching command is invoked and its result fed back, repeating
// until a plain-text turn ends the call.
//
// If yield returns an error, forwarding stops, no partially-accumulated tool
// call is invoked, and ChatStream returns ErrStreamAborted. Each call advances
// the conversation; the stream is finite and not restartable.
func (c *Client) ChatStream(ctx context.Context, prompt string, yield func(chunk string) error) error {
	c.history = append(c.history, Message{Role: RoleUser, Content: prompt})
	for {
		done, err := c.turn(ctx, yield)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}

// Chat is ChatStream with the text chunks accumulated into one string.
func (c *Client) Chat(ctx context.Context, prompt string) (string, error) {
	var b strings.Builder
	err := c.ChatStream(ctx, prompt, func(chunk string) error {
		b.WriteString(chunk)
		return nil
	})
	return b.String(), err
}

// turn runs one assistant turn: open a stream, branch on the first fragment
// into text or tool-call mode, and finish the turn. Returns done=true when the
// turn resolved as plain text (the terminal condition for one ChatStream call).
func (c *Client) turn(ctx context.Context, yield func(string) error) (done bool, err error) {
	stream, err := c.transport.Open(ctx, Request{
		Model:       c.model,
		Messages:    c.history,
		Tools:       c.registry.Export(),
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	})
	if err != nil {
		return false, err
	}
	defer stream.Close()

	var text strings.Builder
	var pending *pendingToolCall
	finished := false

	for {
		delta, err := stream.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return false, err
		}

		if delta.Call != nil {
			if text.Len() > 0 {
				return false, fmt.Errorf("protocol violation: tool call after text in one turn")
			}
			if pending == nil {
				if delta.Call.Name == "" {
					return false, fmt.Errorf("protocol violation: tool call fragment without a function name")
				}
				pending = &pendingToolCall{id: delta.Call.ID, name: delta.Call.Name}
			}
			pending.args.WriteString(delta.Call.Arguments)
		}

		if delta.Text != "" {
			if pending != nil {
				return false, fmt.Errorf("protocol violation: text after tool call in one turn")
			}
			text.WriteString(delta.Text)
			if err := yield(delta.Text); err != nil {
				return false, fmt.Errorf("%w: %v", ErrStreamAborted, err)
			}
		}

		if delta.FinishReason != "" {
			finished = true
			break
		}
	}

	if pending == nil {
		c.logger.Debug("text turn finished", "chars", text.Len())
		c.history = append(c.history, Message{Role: RoleAssistant, Content: text.String()})
		return true, nil
	}

	// Tool-call turn. The call is invoked only once the stream's explicit
	// terminal marker confirmed the argument buffer is complete.
	if !finished {
		return false, fmt.Errorf("stream ended without a terminal marker for tool call %q", pending.name)
	}
	c.history = append(c.history, Message{
		Role: RoleAssistant,
		ToolCall: &ToolCallRef{
			ID:        pending.id,
			Name:      pending.name,
			Arguments: pending.args.String(),
		},
	})

	raw := pending.args.String()
	if raw == "" {
		raw = "{}"
	}
	var args map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return false, fmt.Errorf("%w: %v", ErrMalformedArguments, err)
	}
	if _, err := c.registry.Resolve(pending.name); err != nil {
		return false, err
	}

	c.logger.Debug("invoking command", "command", pending.name, "call_id", pending.id)
	result, err := c.registry.Invoke(ctx, pending.name, args)
	if err != nil {
		// Invocation failures are conversational: the model sees the error and
		// can retry with corrected arguments.
		c.logger.Debug("command failed", "command", pending.name, "error", err)
		result = "error: " + err.Error()
	}
	c.history = append(c.history, Message{
		Role:       RoleTool,
		Content:    result,
		ToolCallID: pending.id,
		Name:       pending.name,
	})
	return false, nil
}
