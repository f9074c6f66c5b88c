// Package agent drives the bounded, cancellable, multi-turn streaming
// conversation that lets a remote model edit the strategy graph. Each turn
// streams the model's response, accumulates any tool-call fragments, executes
// the calls strictly in emission order against the graph store and the
// external collaborators, feeds the results back, and loops until the model
// stops calling tools or the iteration ceiling is hit.
package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/parallaxfi/weft/core/store"
	"github.com/parallaxfi/weft/internal/utils"
	"github.com/parallaxfi/weft/providers/ai"
	"github.com/parallaxfi/weft/providers/observability"
	"github.com/parallaxfi/weft/providers/tool"
)

// defaultMaxIterations bounds the model/tool loop within one Send call.
const defaultMaxIterations = 10

// ErrMaxIterations is returned when a turn keeps requesting tools past the
// iteration ceiling.
var ErrMaxIterations = errors.New("tool loop exceeded the iteration ceiling")

// ErrRateLimited wraps a 429 from the chat endpoint so callers can back off
// instead of failing the conversation.
var ErrRateLimited = errors.New("chat endpoint rate limited")

// Runtime conducts the conversation. It owns the transcript; the graph
// store and tool catalog are injected, so independent conversations over
// independent graphs can coexist.
type Runtime struct {
	provider      ai.Provider
	catalog       *tool.Catalog
	graph         *store.Store
	observer      observability.Provider
	systemPrompt  string
	model         string
	temperature   float32
	maxIterations int

	transcript []ai.Message
	log        []AgentMessage

	onText      func(delta string)
	onReasoning func(delta string)
	onTool      func(activity ToolActivity)
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithSystemPrompt sets the system prompt sent with every request.
func WithSystemPrompt(prompt string) Option {
	return func(r *Runtime) { r.systemPrompt = prompt }
}

// WithModel names the model to request.
func WithModel(model string) Option {
	return func(r *Runtime) { r.model = model }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(temperature float32) Option {
	return func(r *Runtime) { r.temperature = temperature }
}

// WithMaxIterations overrides the model/tool loop ceiling.
func WithMaxIterations(max int) Option {
	return func(r *Runtime) {
		if max > 0 {
			r.maxIterations = max
		}
	}
}

// WithStore attaches the graph store whose persistence is flushed after a
// tool-executing turn.
func WithStore(graph *store.Store) Option {
	return func(r *Runtime) { r.graph = graph }
}

// WithObserver attaches an observability provider.
func WithObserver(observer observability.Provider) Option {
	return func(r *Runtime) { r.observer = observer }
}

// WithOnText registers a callback for live text deltas.
func WithOnText(handler func(delta string)) Option {
	return func(r *Runtime) { r.onText = handler }
}

// WithOnReasoning registers a callback for live reasoning deltas.
func WithOnReasoning(handler func(delta string)) Option {
	return func(r *Runtime) { r.onReasoning = handler }
}

// WithOnTool registers a callback fired when a tool call starts (status
// running) and again when it finishes (done or error).
func WithOnTool(handler func(activity ToolActivity)) Option {
	return func(r *Runtime) { r.onTool = handler }
}

// New creates a Runtime speaking through provider with the given catalog.
func New(provider ai.Provider, catalog *tool.Catalog, options ...Option) *Runtime {
	r := &Runtime{
		provider:      provider,
		catalog:       catalog,
		maxIterations: defaultMaxIterations,
	}
	for _, option := range options {
		option(r)
	}
	return r
}

// Log returns the conversation log, one entry per human prompt or assistant
// turn.
func (r *Runtime) Log() []AgentMessage {
	log := make([]AgentMessage, len(r.log))
	copy(log, r.log)
	return log
}

// Send runs one full conversational turn: it appends the user's text to the
// transcript, then cycles between streaming the model's response and
// executing its tool calls until the model answers without tools or the
// iteration ceiling trips.
//
// Cancellation is swallowed: the returned message is marked Aborted, holds
// everything that arrived before the signal, and err is nil. Every other
// transport failure is surfaced, with rate limiting distinguishable via
// errors.Is(err, ErrRateLimited).
func (r *Runtime) Send(ctx context.Context, text string) (*AgentMessage, error) {
	r.transcript = append(r.transcript, ai.Message{Role: ai.RoleUser, Content: text})
	r.log = append(r.log, AgentMessage{Role: RoleHuman, Content: text})

	reply := &AgentMessage{Role: RoleAssistant}
	r.log = append(r.log, AgentMessage{})
	logIndex := len(r.log) - 1
	defer func() { r.log[logIndex] = *reply }()

	for iteration := 0; iteration < r.maxIterations; iteration++ {
		toolCalls, aborted, err := r.streamOnce(ctx, reply)
		if err != nil {
			return reply, err
		}
		if aborted {
			reply.Aborted = true
			return reply, nil
		}
		if len(toolCalls) == 0 {
			return reply, nil
		}

		executed, aborted := r.executeToolCalls(ctx, toolCalls, reply)
		if executed && r.graph != nil {
			// Mutations from this turn hit disk before the next model read.
			r.graph.Autosave(true)
		}
		if aborted {
			reply.Aborted = true
			return reply, nil
		}
	}

	return reply, fmt.Errorf("%w (%d)", ErrMaxIterations, r.maxIterations)
}

// streamOnce runs a single model request, appending text and reasoning
// deltas to reply as they arrive and accumulating tool-call fragments.
// Arguments are only assembled once the stream ends, because they arrive as
// pieces of a single encoded string.
func (r *Runtime) streamOnce(ctx context.Context, reply *AgentMessage) (toolCalls []ai.ToolCall, aborted bool, err error) {
	request := ai.ChatRequest{
		Model:        r.model,
		Messages:     r.transcript,
		SystemPrompt: r.systemPrompt,
		Tools:        r.catalog.Descriptions(),
		Temperature:  r.temperature,
	}

	stream, err := r.provider.StreamMessage(ctx, request)
	if err != nil {
		if isCancellation(ctx, err) {
			return nil, true, nil
		}
		return nil, false, r.classifyTransportError(ctx, err)
	}

	var content, reasoning string
	var builders []*ai.ToolCallBuilder

	for event, streamErr := range stream.Iter() {
		if streamErr != nil {
			if isCancellation(ctx, streamErr) {
				r.appendAssistant(content, reasoning, nil, reply)
				return nil, true, nil
			}
			return nil, false, r.classifyTransportError(ctx, streamErr)
		}

		switch event.Type {
		case ai.StreamEventContent:
			content += event.Content
			if r.onText != nil {
				r.onText(event.Content)
			}
		case ai.StreamEventReasoning:
			reasoning += event.Reasoning
			if r.onReasoning != nil {
				r.onReasoning(event.Reasoning)
			}
		case ai.StreamEventToolCall:
			if event.ToolCall != nil {
				builders = ai.AccumulateToolCallDelta(builders, event.ToolCall)
			}
		}
	}

	toolCalls = ai.BuildToolCalls(builders)
	r.appendAssistant(content, reasoning, toolCalls, reply)
	return toolCalls, false, nil
}

func (r *Runtime) appendAssistant(content, reasoning string, toolCalls []ai.ToolCall, reply *AgentMessage) {
	reply.Content += content
	reply.Reasoning += reasoning
	r.transcript = append(r.transcript, ai.Message{
		Role:      ai.RoleAssistant,
		Content:   content,
		ToolCalls: toolCalls,
	})
}

// executeToolCalls runs the accumulated calls strictly in emission order,
// appending a tool-result transcript entry for each. A cancellation observed
// before a call starts stops the turn; calls already dispatched run to
// completion. Returns whether any call executed and whether the turn was
// aborted.
func (r *Runtime) executeToolCalls(ctx context.Context, toolCalls []ai.ToolCall, reply *AgentMessage) (executed, aborted bool) {
	for _, call := range toolCalls {
		if ctx.Err() != nil {
			return executed, true
		}

		activity := ToolActivity{
			Name:      call.Function.Name,
			Arguments: call.Function.Arguments,
			Status:    ToolRunning,
		}
		if r.onTool != nil {
			r.onTool(activity)
		}

		result := r.dispatch(ctx, call)
		executed = true

		if result.err != nil {
			activity.Status = ToolError
			activity.Result = result.err.Error()
		} else {
			activity.Status = ToolDone
			activity.Result = result.output
		}
		reply.Tools = append(reply.Tools, activity)
		if r.onTool != nil {
			r.onTool(activity)
		}

		r.transcript = append(r.transcript, ai.Message{
			Role:       ai.RoleTool,
			Content:    activity.Result,
			ToolCallID: call.ID,
			Name:       call.Function.Name,
		})
	}
	return executed, false
}

type toolResult struct {
	output string
	err    error
}

// dispatch resolves and runs one tool call. An unknown tool name and a
// handler failure both become error strings fed back to the model, never a
// crashed turn; a panicking handler is contained the same way.
func (r *Runtime) dispatch(ctx context.Context, call ai.ToolCall) toolResult {
	named, exists := r.catalog.Get(call.Function.Name)
	if !exists {
		return toolResult{err: fmt.Errorf("unknown tool %q", call.Function.Name)}
	}

	output, err := safeCall(ctx, named, call.Function.Arguments)
	if err != nil {
		if r.observer != nil {
			r.observer.Warn(ctx, "Tool execution failed",
				observability.String(observability.AttrToolName, call.Function.Name),
				observability.Error(err),
			)
		}
		return toolResult{err: err}
	}
	return toolResult{output: output}
}

func safeCall(ctx context.Context, named tool.GenericTool, arguments string) (output string, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("tool panicked: %v", recovered)
		}
	}()
	return named.Call(ctx, arguments)
}

func isCancellation(ctx context.Context, err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil
}

// classifyTransportError surfaces the service's own error message when the
// body carried one and tags throttling so callers can back off.
func (r *Runtime) classifyTransportError(_ context.Context, err error) error {
	var httpErr *utils.HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.IsRateLimited() {
			return fmt.Errorf("%w: %s", ErrRateLimited, httpErr.Message())
		}
		return fmt.Errorf("chat request failed (%d): %s", httpErr.StatusCode, httpErr.Message())
	}
	return err
}
