package ai

import (
	"fmt"
	"testing"
)

func TestAccumulateToolCallDelta(t *testing.T) {
	var builders []*ToolCallBuilder

	// Arguments arrive fragmented; ID and Name only on the first chunk.
	builders = AccumulateToolCallDelta(builders, &ToolCallDelta{Index: 0, ID: "call_1", Name: "add_node"})
	builders = AccumulateToolCallDelta(builders, &ToolCallDelta{Index: 0, Arguments: `{"kind":`})
	builders = AccumulateToolCallDelta(builders, &ToolCallDelta{Index: 0, Arguments: `"wallet"}`})

	toolCalls := BuildToolCalls(builders)
	if len(toolCalls) != 1 {
		t.Fatalf("got %d tool calls", len(toolCalls))
	}
	call := toolCalls[0]
	if call.ID != "call_1" || call.Function.Name != "add_node" {
		t.Errorf("identity = %q %q", call.ID, call.Function.Name)
	}
	if call.Function.Arguments != `{"kind":"wallet"}` {
		t.Errorf("arguments = %q", call.Function.Arguments)
	}
	if call.Type != "function" {
		t.Errorf("type = %q", call.Type)
	}
}

func TestAccumulateToolCallDeltaInterleavedIndices(t *testing.T) {
	var builders []*ToolCallBuilder
	builders = AccumulateToolCallDelta(builders, &ToolCallDelta{Index: 0, ID: "a", Name: "first"})
	builders = AccumulateToolCallDelta(builders, &ToolCallDelta{Index: 1, ID: "b", Name: "second"})
	builders = AccumulateToolCallDelta(builders, &ToolCallDelta{Index: 0, Arguments: `{"x":1}`})
	builders = AccumulateToolCallDelta(builders, &ToolCallDelta{Index: 1, Arguments: `{"y":2}`})

	toolCalls := BuildToolCalls(builders)
	if len(toolCalls) != 2 {
		t.Fatalf("got %d tool calls", len(toolCalls))
	}
	if toolCalls[0].Function.Arguments != `{"x":1}` || toolCalls[1].Function.Arguments != `{"y":2}` {
		t.Errorf("interleaved arguments crossed: %q / %q",
			toolCalls[0].Function.Arguments, toolCalls[1].Function.Arguments)
	}
}

func TestAccumulateToolCallDeltaGrowsAfterArgumentsWritten(t *testing.T) {
	// A second tool call may start only after the first one already streamed
	// argument fragments. Growing the slice then must not invalidate the
	// first builder's accumulated state (strings.Builder panics if it is
	// copied by value after a write).
	var builders []*ToolCallBuilder
	builders = AccumulateToolCallDelta(builders, &ToolCallDelta{Index: 0, ID: "a", Name: "add_node"})
	builders = AccumulateToolCallDelta(builders, &ToolCallDelta{Index: 0, Arguments: `{"kind":`})
	builders = AccumulateToolCallDelta(builders, &ToolCallDelta{Index: 1, ID: "b", Name: "add_edge"})
	builders = AccumulateToolCallDelta(builders, &ToolCallDelta{Index: 0, Arguments: `"wallet"}`})
	builders = AccumulateToolCallDelta(builders, &ToolCallDelta{Index: 1, Arguments: `{"from":"w1"}`})

	toolCalls := BuildToolCalls(builders)
	if len(toolCalls) != 2 {
		t.Fatalf("got %d tool calls", len(toolCalls))
	}
	if toolCalls[0].Function.Arguments != `{"kind":"wallet"}` {
		t.Errorf("first arguments = %q", toolCalls[0].Function.Arguments)
	}
	if toolCalls[1].Function.Arguments != `{"from":"w1"}` {
		t.Errorf("second arguments = %q", toolCalls[1].Function.Arguments)
	}
}

func TestBuildToolCallsEmpty(t *testing.T) {
	if got := BuildToolCalls(nil); got != nil {
		t.Errorf("BuildToolCalls(nil) = %v, want nil", got)
	}
}

func TestChatStreamCollect(t *testing.T) {
	events := []StreamEvent{
		{Type: StreamEventReasoning, Reasoning: "thinking "},
		{Type: StreamEventContent, Content: "Hello"},
		{Type: StreamEventContent, Content: ", world"},
		{Type: StreamEventToolCall, ToolCall: &ToolCallDelta{Index: 0, ID: "c1", Name: "auto_layout"}},
		{Type: StreamEventToolCall, ToolCall: &ToolCallDelta{Index: 0, Arguments: "{}"}},
		{Type: StreamEventDone, FinishReason: "tool_calls"},
	}
	stream := NewChatStream(func(yield func(StreamEvent, error) bool) {
		for _, event := range events {
			if !yield(event, nil) {
				return
			}
		}
	})

	response, err := stream.Collect()
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if response.Content != "Hello, world" {
		t.Errorf("content = %q", response.Content)
	}
	if response.Reasoning != "thinking " {
		t.Errorf("reasoning = %q", response.Reasoning)
	}
	if len(response.ToolCalls) != 1 || response.ToolCalls[0].Function.Name != "auto_layout" {
		t.Errorf("tool calls = %+v", response.ToolCalls)
	}
	if response.FinishReason != "tool_calls" {
		t.Errorf("finish reason = %q", response.FinishReason)
	}
}

func TestChatStreamCollectReturnsPartialOnError(t *testing.T) {
	streamErr := fmt.Errorf("connection reset")
	stream := NewChatStream(func(yield func(StreamEvent, error) bool) {
		if !yield(StreamEvent{Type: StreamEventContent, Content: "partial"}, nil) {
			return
		}
		yield(StreamEvent{}, streamErr)
	})

	response, err := stream.Collect()
	if err == nil {
		t.Fatal("mid-stream error lost")
	}
	if response.Content != "partial" {
		t.Errorf("partial content lost: %q", response.Content)
	}
}
