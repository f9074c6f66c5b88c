// Package slogobs provides an observability.Provider implementation backed by
// Go's standard library log/slog package. The main entry point is [New].
package slogobs
