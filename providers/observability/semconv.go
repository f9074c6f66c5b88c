package observability

// Semantic conventions for observability attributes. These constants define
// standard attribute names to keep signals consistent across components.

// --- Chat model attributes ---

const (
	// AttrChatEndpoint is the chat completions endpoint URL
	AttrChatEndpoint = "chat.endpoint"

	// AttrChatModel is the model identifier sent with the request
	AttrChatModel = "chat.model"

	// AttrChatFinishReason is the reason the generation finished
	AttrChatFinishReason = "chat.finish_reason"

	// AttrRequestMessagesCount is the number of transcript messages in the request
	AttrRequestMessagesCount = "request.messages_count"

	// AttrRequestToolsCount is the number of tool descriptors in the request
	AttrRequestToolsCount = "request.tools_count"
)

// --- Tool execution attributes ---

const (
	// AttrToolName is the name of the tool being executed
	AttrToolName = "tool.name"

	// AttrToolInput is the serialized tool input
	AttrToolInput = "tool.input"

	// AttrToolOutput is the serialized tool output
	AttrToolOutput = "tool.output"

	// AttrToolDuration is the execution duration
	AttrToolDuration = "tool.duration"

	// AttrToolError is the error message if tool execution failed
	AttrToolError = "tool.error"
)

// --- Graph store attributes ---

const (
	// AttrGraphNodeID is the id of the node a mutation targets
	AttrGraphNodeID = "graph.node_id"

	// AttrGraphNodeKind is the kind tag of the node
	AttrGraphNodeKind = "graph.node_kind"

	// AttrGraphEdge is an edge rendered as "source->target"
	AttrGraphEdge = "graph.edge"

	// AttrGraphSlot is the persistence slot name
	AttrGraphSlot = "graph.slot"
)

// --- HTTP attributes ---

const (
	AttrHTTPMethod           = "http.method"
	AttrHTTPURL              = "http.url"
	AttrHTTPStatusCode       = "http.status_code"
	AttrHTTPRequestBodySize  = "http.request.body_size"
	AttrHTTPResponseBodySize = "http.response.body_size"
)

// --- Span event names ---

const (
	// EventChatRequestStart marks the dispatch of a chat request
	EventChatRequestStart = "chat.request.start"

	// EventChatStreamEnd marks the end of a streamed chat response
	EventChatStreamEnd = "chat.stream.end"

	// EventToolExecutionStart marks the beginning of a tool handler call
	EventToolExecutionStart = "tool.execution.start"

	// EventToolExecutionEnd marks the completion of a tool handler call
	EventToolExecutionEnd = "tool.execution.end"
)
