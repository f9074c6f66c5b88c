// Package utils provides shared low-level helpers used throughout the engine
// internals. It covers HTTP request helpers for synchronous JSON round-trips
// and streaming (SSE) communication with the chat and collaborator services,
// plus small string and pointer utilities.
//
// Key entry points: [DoPostSync] for synchronous JSON round-trips,
// [DoPostStream] together with [SSEScanner] for Server-Sent Events streaming,
// and [HTTPError] for status-aware error handling.
package utils
