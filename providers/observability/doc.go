// Package observability defines the tracing and structured-logging interfaces
// used across the engine, plus the context plumbing that carries an observer
// and the current span through graph mutations, chat streaming, and tool
// execution. The slogobs subpackage provides the standard implementation
// backed by log/slog.
package observability
