package agent

// MessageRole distinguishes the two sides of the conversation log.
type MessageRole string

const (
	RoleHuman     MessageRole = "human"
	RoleAssistant MessageRole = "assistant"
)

// ToolStatus tracks one tool call through its lifecycle.
type ToolStatus string

const (
	ToolRunning ToolStatus = "running"
	ToolDone    ToolStatus = "done"
	ToolError   ToolStatus = "error"
)

// ToolActivity records one model-issued tool call: what was called, with
// which raw arguments, how it ended, and what it returned. Activities appear
// in the order the model emitted the calls.
type ToolActivity struct {
	Name      string     `json:"name"`
	Arguments string     `json:"arguments"`
	Status    ToolStatus `json:"status"`
	Result    string     `json:"result,omitempty"`
}

// AgentMessage is one entry of the conversation log: a human prompt, or an
// assistant turn with its accumulated text, optional reasoning trace, and
// the tool activity that produced it.
type AgentMessage struct {
	Role      MessageRole    `json:"role"`
	Content   string         `json:"content"`
	Reasoning string         `json:"reasoning,omitempty"`
	Tools     []ToolActivity `json:"tools,omitempty"`
	// Aborted marks a turn cut short by cancellation. Whatever text and
	// tool results arrived before the cut are kept.
	Aborted bool `json:"aborted,omitempty"`
}
