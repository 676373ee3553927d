package gptcommands

// Role identifies the author of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCallRef records a completed tool call on an assistant message: the call
// ID assigned by the model, the command name, and the raw argument JSON as it
// arrived off the stream.
type ToolCallRef struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Message is one entry of the conversation history. The history is append-only;
// a streaming assistant message is accumulated off the wire and appended only
// once the turn's terminal marker has been seen.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`

	// ToolCall is set on assistant messages that requested a tool invocation.
	ToolCall *ToolCallRef `json:"tool_call,omitempty"`

	// ToolCallID and Name tag tool-result messages with the originating call.
	ToolCallID string `json:"tool_call_id,omitempty"`
	Name       string `json:"name,omitempty"`
}
