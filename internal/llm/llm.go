package llm

import "context"

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one entry of a conversation. Role selects the variant:
// assistant messages may carry ToolCalls, tool messages carry CallID.
type Message struct {
	Role      Role
	Text      string
	ToolCalls []ToolCall
	CallID    string
}

type ToolCall struct {
	ID        string
	Name      string
	Arguments map[string]any
}

// ToolSpec declares a capability the model may request.
// Parameters is a JSON schema object.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  map[string]any
}

type Reply struct {
	Text      string
	ToolCalls []ToolCall
}

func (r Reply) HasToolCalls() bool { return len(r.ToolCalls) > 0 }

// Model runs one inference over an ordered history. tools may be nil.
type Model interface {
	Complete(ctx context.Context, messages []Message, tools []ToolSpec) (Reply, error)
}

func System(text string) Message { return Message{Role: RoleSystem, Text: text} }

func User(text string) Message { return Message{Role: RoleUser, Text: text} }

func Assistant(text string, calls ...ToolCall) Message {
	return Message{Role: RoleAssistant, Text: text, ToolCalls: calls}
}

func ToolResult(callID, text string) Message {
	return Message{Role: RoleTool, CallID: callID, Text: text}
}
