// Package openrouter implements the streaming chat provider against an
// OpenAI-compatible /chat/completions endpoint. OpenRouter is the default
// base URL; any compatible gateway works via WithBaseURL.
package openrouter
