// Package ai defines the provider-agnostic chat types used by the agent
// runtime: requests, transcript messages, tool descriptors, streaming deltas,
// and the ChatStream iterator with tool-call accumulation. Concrete wire
// implementations live in subpackages (see openrouter).
package ai
