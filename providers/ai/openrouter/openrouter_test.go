package openrouter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/parallaxfi/weft/providers/ai"
)

func sseHandler(t *testing.T, frames []string) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") != "text/event-stream" {
			t.Errorf("accept header = %q", r.Header.Get("Accept"))
		}
		if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
			t.Errorf("authorization header = %q", r.Header.Get("Authorization"))
		}
		w.Header().Set("Content-Type", "text/event-stream")
		for _, frame := range frames {
			_, _ = w.Write([]byte("data: " + frame + "\n\n"))
		}
		_, _ = w.Write([]byte("data: [DONE]\n\n"))
	}
}

func newTestProvider(server *httptest.Server) *Provider {
	provider := New().WithModel("test/model")
	provider.WithAPIKey("test-key")
	provider.WithBaseURL(server.URL)
	provider.WithHttpClient(server.Client())
	return provider
}

func TestStreamMessageYieldsDeltas(t *testing.T) {
	frames := []string{
		`{"choices":[{"delta":{"content":"Hel"}}]}`,
		`{"choices":[{"delta":{"content":"lo"}}]}`,
		`{"choices":[{"delta":{"tool_calls":[{"index":0,"id":"c1","function":{"name":"add_node","arguments":"{\"kind\":"}}]}}]}`,
		`{"choices":[{"delta":{"tool_calls":[{"index":0,"function":{"arguments":"\"wallet\"}"}}]}}]}`,
		`{"choices":[{"delta":{},"finish_reason":"tool_calls"}]}`,
	}
	server := httptest.NewServer(sseHandler(t, frames))
	defer server.Close()

	stream, err := newTestProvider(server).StreamMessage(context.Background(), ai.ChatRequest{
		Model:    "test/model",
		Messages: []ai.Message{{Role: "user", Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("StreamMessage: %v", err)
	}

	response, err := stream.Collect()
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if response.Content != "Hello" {
		t.Errorf("content = %q", response.Content)
	}
	if len(response.ToolCalls) != 1 {
		t.Fatalf("got %d tool calls", len(response.ToolCalls))
	}
	if response.ToolCalls[0].Function.Name != "add_node" {
		t.Errorf("tool name = %q", response.ToolCalls[0].Function.Name)
	}
	if response.ToolCalls[0].Function.Arguments != `{"kind":"wallet"}` {
		t.Errorf("arguments = %q", response.ToolCalls[0].Function.Arguments)
	}
	if response.FinishReason != "tool_calls" {
		t.Errorf("finish reason = %q", response.FinishReason)
	}
}

func TestStreamMessageSkipsMalformedFrames(t *testing.T) {
	frames := []string{
		`{"choices":[{"delta":{"content":"first"}}]}`,
		`{not json at all`,
		`{"choices":[{"delta":{"content":" second"}}]}`,
	}
	server := httptest.NewServer(sseHandler(t, frames))
	defer server.Close()

	stream, err := newTestProvider(server).StreamMessage(context.Background(), ai.ChatRequest{})
	if err != nil {
		t.Fatalf("StreamMessage: %v", err)
	}
	response, err := stream.Collect()
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if response.Content != "first second" {
		t.Errorf("content = %q, want both valid deltas", response.Content)
	}
}

func TestStreamMessageRequiresAPIKey(t *testing.T) {
	provider := New().WithModel("test/model")
	provider.WithAPIKey("")
	if _, err := provider.StreamMessage(context.Background(), ai.ChatRequest{}); err == nil {
		t.Fatal("missing API key accepted")
	}
}

func TestStreamMessageNon2xxFailsBeforeStreaming(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	defer server.Close()

	if _, err := newTestProvider(server).StreamMessage(context.Background(), ai.ChatRequest{}); err == nil {
		t.Fatal("429 response did not fail the request")
	}
}

func TestStreamMessageStopsOnCancellation(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"x\"}}]}\n\n"))
		if flusher, ok := w.(http.Flusher); ok {
			flusher.Flush()
		}
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	stream, err := newTestProvider(server).StreamMessage(ctx, ai.ChatRequest{})
	if err != nil {
		t.Fatalf("StreamMessage: %v", err)
	}

	var sawError bool
	for event, iterErr := range stream.Iter() {
		if iterErr != nil {
			if !strings.Contains(iterErr.Error(), context.Canceled.Error()) {
				t.Errorf("iterator error = %v", iterErr)
			}
			sawError = true
			break
		}
		if event.Content == "x" {
			cancel()
		}
	}
	if !sawError {
		t.Fatal("cancellation never surfaced through the iterator")
	}
	cancel()
}
