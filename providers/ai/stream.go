package ai

import (
	"iter"
	"strings"
)

// StreamEventType identifies the kind of delta carried by a StreamEvent.
type StreamEventType string

const (
	// StreamEventContent indicates a text content delta.
	StreamEventContent StreamEventType = "content"
	// StreamEventToolCall indicates an incremental tool call delta (name or arguments chunk).
	StreamEventToolCall StreamEventType = "tool_call"
	// StreamEventReasoning indicates a reasoning/thinking content delta.
	StreamEventReasoning StreamEventType = "reasoning"
	// StreamEventDone signals that the stream has finished normally.
	StreamEventDone StreamEventType = "done"
)

// ToolCallDelta represents an incremental update to a tool call being
// streamed. The Index field identifies which tool call is being updated
// (there may be several in one turn). ID and Name are only present on the
// first chunk for a given index; subsequent chunks carry only Arguments
// fragments, so arguments must not be parsed until the stream ends.
type ToolCallDelta struct {
	Index     int    `json:"index"`               // Position in the tool calls list
	ID        string `json:"id,omitempty"`        // Tool call ID (first chunk only)
	Name      string `json:"name,omitempty"`      // Function name (first chunk only)
	Arguments string `json:"arguments,omitempty"` // Incremental JSON argument fragment
}

// StreamEvent represents a single delta yielded during response streaming.
// Each event carries exactly one type of payload, identified by the Type field.
type StreamEvent struct {
	Type         StreamEventType `json:"type"`
	Content      string          `json:"content,omitempty"`       // Text delta (Type == StreamEventContent)
	Reasoning    string          `json:"reasoning,omitempty"`     // Reasoning delta (Type == StreamEventReasoning)
	ToolCall     *ToolCallDelta  `json:"tool_call,omitempty"`     // Tool call delta (Type == StreamEventToolCall)
	FinishReason string          `json:"finish_reason,omitempty"` // Present on StreamEventDone
}

// ChatStream wraps a streaming iterator and provides automatic accumulation
// of deltas into a final ChatResponse. It supports both range-based iteration
// for live token processing and a convenience Collect() method for callers
// who want the complete response.
//
// Important: callers must consume the stream, either by iterating with Iter()
// (including breaking out of the loop early) or by calling Collect(). The
// underlying provider may hold open resources (such as an HTTP response body)
// that are only released when the iterator completes or is abandoned via a
// loop break.
type ChatStream struct {
	iterator iter.Seq2[StreamEvent, error]
}

// NewChatStream creates a ChatStream from a raw streaming iterator.
// The iterator is expected to yield StreamEvent values (with nil error) for
// normal deltas, and may yield a non-nil error to signal a mid-stream failure.
func NewChatStream(iterator iter.Seq2[StreamEvent, error]) *ChatStream {
	return &ChatStream{iterator: iterator}
}

// Iter returns the underlying iterator for use with range-over-func loops.
//
// Example:
//
//	for event, err := range stream.Iter() {
//	    if err != nil { handle error }
//	    fmt.Print(event.Content)
//	}
func (stream *ChatStream) Iter() iter.Seq2[StreamEvent, error] {
	return stream.iterator
}

// Collect consumes the entire stream and returns the accumulated ChatResponse.
// Any mid-stream error terminates collection and returns a partial response
// with the error.
func (stream *ChatStream) Collect() (*ChatResponse, error) {
	accumulated := &ChatResponse{}
	var builders []*ToolCallBuilder

	for event, err := range stream.iterator {
		if err != nil {
			return accumulated, err
		}

		switch event.Type {
		case StreamEventContent:
			accumulated.Content += event.Content

		case StreamEventReasoning:
			accumulated.Reasoning += event.Reasoning

		case StreamEventToolCall:
			if event.ToolCall != nil {
				builders = AccumulateToolCallDelta(builders, event.ToolCall)
			}

		case StreamEventDone:
			accumulated.FinishReason = event.FinishReason
		}
	}

	accumulated.ToolCalls = BuildToolCalls(builders)
	return accumulated, nil
}

// ToolCallBuilder accumulates incremental tool call deltas into a complete
// ToolCall. The shared invariant with the wire format: ID and Name arrive on
// the first chunk for a given Index; subsequent chunks carry only Arguments
// fragments. Builders are held by pointer so the embedded strings.Builder is
// never copied once written to (growing the slice would otherwise move it).
type ToolCallBuilder struct {
	id        string
	name      string
	arguments strings.Builder
}

// AccumulateToolCallDelta merges a ToolCallDelta into the running list of
// builders, growing the slice as new tool call indices appear.
func AccumulateToolCallDelta(builders []*ToolCallBuilder, delta *ToolCallDelta) []*ToolCallBuilder {
	for len(builders) <= delta.Index {
		builders = append(builders, &ToolCallBuilder{})
	}

	builder := builders[delta.Index]

	if delta.ID != "" {
		builder.id = delta.ID
	}
	if delta.Name != "" {
		builder.name = delta.Name
	}
	if delta.Arguments != "" {
		builder.arguments.WriteString(delta.Arguments)
	}

	return builders
}

// BuildToolCalls finalizes accumulated tool call deltas into a slice of
// complete ToolCall values ready for execution. Returns nil when no tool
// calls were accumulated.
func BuildToolCalls(builders []*ToolCallBuilder) []ToolCall {
	if len(builders) == 0 {
		return nil
	}
	toolCalls := make([]ToolCall, 0, len(builders))
	for i := range builders {
		toolCalls = append(toolCalls, ToolCall{
			ID:   builders[i].id,
			Type: "function",
			Function: ToolCallFunction{
				Name:      builders[i].name,
				Arguments: builders[i].arguments.String(),
			},
		})
	}
	return toolCalls
}
