package gptcommands

import "context"

// Request is one outbound chat request: the full message history plus the
// registry's exported tool schemas.
type Request struct {
	Model       string
	Messages    []Message
	Tools       []FunctionSpec
	MaxTokens   int
	Temperature float64
}

// CallDelta is the tool-call portion of a streamed fragment. Name is present
// only on the first fragment of a call; Arguments fragments are concatenated
// verbatim in arrival order (out-of-order delivery is not supported).
type CallDelta struct {
	ID        string
	Name      string
	Arguments string
}

// Delta is one streamed fragment of an assistant turn: either a text fragment
// or a tool-call fragment, optionally carrying the terminal marker.
type Delta struct {
	Text         string
	Call         *CallDelta
	FinishReason string // non-empty on the terminal fragment
}

// Finish reasons reported by the terminal fragment.
const (
	FinishStop      = "stop"
	FinishToolCalls = "tool_calls"
)

// DeltaStream is a pull-based stream of fragments for one assistant turn.
// Next returns io.EOF once the turn is exhausted. Close releases the
// underlying connection and is safe to call at any point, including mid-turn
// when the consumer abandons the stream.
type DeltaStream interface {
	Next() (Delta, error)
	Close() error
}

// Transport is the narrow boundary to the remote chat API. The default
// implementation speaks OpenAI chat completions with SSE streaming; tests
// substitute a scripted transport.
type Transport interface {
	Open(ctx context.Context, req Request) (DeltaStream, error)
}
