package openrouter

import (
	"encoding/json"

	"github.com/parallaxfi/weft/internal/jsonschema"
	"github.com/parallaxfi/weft/internal/utils"
	"github.com/parallaxfi/weft/providers/ai"
)

/*
	CHAT COMPLETIONS API - INPUT
*/

// chatCompletionRequest represents the /chat/completions request format.
type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	Stream      *bool         `json:"stream,omitempty"`
	Tools       []chatTool    `json:"tools,omitempty"`
}

type chatMessage struct {
	Role       string         `json:"role"`              // system, user, assistant, tool
	Content    string         `json:"content,omitempty"` // plain text
	Name       string         `json:"name,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"` // For role=tool
	ToolCalls  []chatToolCall `json:"tool_calls,omitempty"`   // For role=assistant
}

type chatTool struct {
	Type     string       `json:"type"` // "function"
	Function chatFunction `json:"function"`
}

type chatFunction struct {
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Parameters  *jsonschema.Schema `json:"parameters,omitempty"`
}

type chatToolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"` // "function"
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"` // JSON string
	} `json:"function"`
}

/*
	CHAT COMPLETIONS STREAMING API - RESPONSE TYPES

	These types model the SSE chunks returned by the /chat/completions
	endpoint when stream=true. Each chunk carries incremental deltas for
	content and tool calls.
*/

// chatCompletionStreamChunk represents a single SSE chunk from the streaming
// chat completions endpoint.
type chatCompletionStreamChunk struct {
	ID      string         `json:"id"`
	Object  string         `json:"object"` // "chat.completion.chunk"
	Created int64          `json:"created"`
	Model   string         `json:"model"`
	Choices []streamChoice `json:"choices"`
}

// streamChoice represents a single choice in a streaming chunk.
type streamChoice struct {
	Index        int         `json:"index"`
	Delta        streamDelta `json:"delta"`
	FinishReason *string     `json:"finish_reason"` // Nullable; nil until the final chunk for this choice
}

// streamDelta carries the incremental content for a streaming chunk.
// All fields are optional — a chunk may carry only content, only tool calls,
// only a role, etc.
type streamDelta struct {
	Role      string               `json:"role,omitempty"`
	Content   *string              `json:"content,omitempty"`   // Nullable to distinguish empty string from absent
	Reasoning *string              `json:"reasoning,omitempty"` // Reasoning/thinking delta
	ToolCalls []streamToolCallPart `json:"tool_calls,omitempty"`
}

// streamToolCallPart represents an incremental tool call delta in a streaming
// chunk. The first chunk for a tool call carries the ID and function name;
// subsequent chunks carry argument fragments.
type streamToolCallPart struct {
	Index    int    `json:"index"`
	ID       string `json:"id,omitempty"` // Present only in the first chunk for this tool call
	Type     string `json:"type,omitempty"`
	Function struct {
		Name      string `json:"name,omitempty"`
		Arguments string `json:"arguments,omitempty"`
	} `json:"function"`
}

// unmarshalStreamChunk parses a raw SSE data payload into a chatCompletionStreamChunk.
func unmarshalStreamChunk(data string) (*chatCompletionStreamChunk, error) {
	var chunk chatCompletionStreamChunk
	if err := json.Unmarshal([]byte(data), &chunk); err != nil {
		return nil, err
	}
	return &chunk, nil
}

// requestToChatCompletion converts the generic ChatRequest into the chat
// completions wire format. The system prompt, when present, is prepended as
// the first message.
func requestToChatCompletion(request ai.ChatRequest, model string) chatCompletionRequest {
	wireRequest := chatCompletionRequest{
		Model: request.Model,
	}
	if wireRequest.Model == "" {
		wireRequest.Model = model
	}
	if request.Temperature != 0 {
		wireRequest.Temperature = utils.Ptr(float64(request.Temperature))
	}

	if request.SystemPrompt != "" {
		wireRequest.Messages = append(wireRequest.Messages, chatMessage{
			Role:    string(ai.RoleSystem),
			Content: request.SystemPrompt,
		})
	}

	for _, message := range request.Messages {
		wireMessage := chatMessage{
			Role:       string(message.Role),
			Content:    message.Content,
			Name:       message.Name,
			ToolCallID: message.ToolCallID,
		}
		for _, toolCall := range message.ToolCalls {
			wireToolCall := chatToolCall{
				ID:   toolCall.ID,
				Type: "function",
			}
			wireToolCall.Function.Name = toolCall.Function.Name
			wireToolCall.Function.Arguments = toolCall.Function.Arguments
			wireMessage.ToolCalls = append(wireMessage.ToolCalls, wireToolCall)
		}
		wireRequest.Messages = append(wireRequest.Messages, wireMessage)
	}

	for _, toolDescription := range request.Tools {
		wireRequest.Tools = append(wireRequest.Tools, chatTool{
			Type: "function",
			Function: chatFunction{
				Name:        toolDescription.Name,
				Description: toolDescription.Description,
				Parameters:  toolDescription.Parameters,
			},
		})
	}

	return wireRequest
}
