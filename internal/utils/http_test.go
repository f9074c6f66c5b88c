package utils

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSSEScannerSingleEvents(t *testing.T) {
	stream := "data: {\"a\":1}\n\ndata: {\"b\":2}\n\ndata: [DONE]\n\n"
	scanner := NewSSEScanner(strings.NewReader(stream))

	first, err := scanner.Next()
	if err != nil || first != `{"a":1}` {
		t.Fatalf("first = %q, %v", first, err)
	}
	second, err := scanner.Next()
	if err != nil || second != `{"b":2}` {
		t.Fatalf("second = %q, %v", second, err)
	}
	if _, err := scanner.Next(); err != io.EOF {
		t.Fatalf("after [DONE]: %v, want io.EOF", err)
	}
}

func TestSSEScannerJoinsMultiLineData(t *testing.T) {
	stream := "data: line one\ndata: line two\n\n"
	scanner := NewSSEScanner(strings.NewReader(stream))

	payload, err := scanner.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if payload != "line one\nline two" {
		t.Errorf("payload = %q", payload)
	}
}

func TestSSEScannerSkipsCommentsAndOtherFields(t *testing.T) {
	stream := ": keep-alive\nevent: message\nid: 7\ndata: payload\n\n"
	scanner := NewSSEScanner(strings.NewReader(stream))

	payload, err := scanner.Next()
	if err != nil || payload != "payload" {
		t.Errorf("payload = %q, %v", payload, err)
	}
}

func TestSSEScannerFlushesTrailingData(t *testing.T) {
	// Stream truncated before the terminating blank line.
	scanner := NewSSEScanner(strings.NewReader("data: partial"))

	payload, err := scanner.Next()
	if err != nil || payload != "partial" {
		t.Errorf("payload = %q, %v", payload, err)
	}
	if _, err := scanner.Next(); err != io.EOF {
		t.Errorf("after flush: %v, want io.EOF", err)
	}
}

func TestSSEScannerEmptyStream(t *testing.T) {
	scanner := NewSSEScanner(strings.NewReader(""))
	if _, err := scanner.Next(); err != io.EOF {
		t.Errorf("empty stream: %v, want io.EOF", err)
	}
}

func TestHTTPErrorMessageShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"string error", `{"error":"boom"}`, "boom"},
		{"object error", `{"error":{"message":"rate limit exceeded"}}`, "rate limit exceeded"},
		{"non-json body", "gateway timeout", "gateway timeout"},
		{"json without error field", `{"detail":"x"}`, `{"detail":"x"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			httpErr := &HTTPError{StatusCode: 500, Body: tt.body}
			if got := httpErr.Message(); got != tt.want {
				t.Errorf("Message() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHTTPErrorIsRateLimited(t *testing.T) {
	if !(&HTTPError{StatusCode: http.StatusTooManyRequests}).IsRateLimited() {
		t.Error("429 not classified as rate limited")
	}
	if (&HTTPError{StatusCode: http.StatusInternalServerError}).IsRateLimited() {
		t.Error("500 classified as rate limited")
	}
}

func TestDoPostSyncParsesResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer key123" {
			t.Errorf("missing bearer header: %q", r.Header.Get("Authorization"))
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("content type = %q", r.Header.Get("Content-Type"))
		}
		_, _ = w.Write([]byte(`{"ok":true,"count":3}`))
	}))
	defer server.Close()

	type output struct {
		OK    bool `json:"ok"`
		Count int  `json:"count"`
	}
	_, parsed, err := DoPostSync[output](context.Background(), server.Client(), server.URL, "key123", map[string]any{"q": 1})
	if err != nil {
		t.Fatalf("DoPostSync: %v", err)
	}
	if !parsed.OK || parsed.Count != 3 {
		t.Errorf("parsed = %+v", parsed)
	}
}

func TestDoPostSyncNon2xxReturnsHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"slow down"}}`))
	}))
	defer server.Close()

	type output struct{}
	_, _, err := DoPostSync[output](context.Background(), server.Client(), server.URL, "", nil)
	httpErr, ok := err.(*HTTPError)
	if !ok {
		t.Fatalf("err = %T %v, want *HTTPError", err, err)
	}
	if !httpErr.IsRateLimited() {
		t.Error("429 not rate limited")
	}
	if httpErr.Message() != "slow down" {
		t.Errorf("Message() = %q", httpErr.Message())
	}
}

func TestDoGetSyncParsesResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %s", r.Method)
		}
		_, _ = w.Write([]byte(`{"items":["a","b"]}`))
	}))
	defer server.Close()

	type output struct {
		Items []string `json:"items"`
	}
	_, parsed, err := DoGetSync[output](context.Background(), server.Client(), server.URL, "")
	if err != nil {
		t.Fatalf("DoGetSync: %v", err)
	}
	if len(parsed.Items) != 2 {
		t.Errorf("parsed = %+v", parsed)
	}
}

func TestTruncateString(t *testing.T) {
	if got := TruncateString("hello", 10); got != "hello" {
		t.Errorf("short string changed: %q", got)
	}
	long := strings.Repeat("x", 600)
	truncated := TruncateStringDefault(long)
	if len(truncated) >= 600 {
		t.Errorf("not truncated: %d bytes", len(truncated))
	}
	if !strings.Contains(truncated, "...") {
		t.Errorf("no ellipsis marker: %q", truncated[len(truncated)-20:])
	}
}
