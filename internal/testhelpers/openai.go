package testhelpers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// FakeOpenAI is an httptest server speaking the chat completions wire format.
type FakeOpenAI struct {
	server *httptest.Server

	mu       sync.Mutex
	chunks   []string
	reply    string
	failOpen bool
	failMid  bool
	failSync bool
	requests []ChatRequest
}

// ChatMessage mirrors the provider's message object.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is a recorded completion request.
type ChatRequest struct {
	Model    string        `json:"model"`
	Stream   bool          `json:"stream"`
	Messages []ChatMessage `json:"messages"`
}

// NewFakeOpenAI starts a fake provider that streams chunks and answers synchronous requests with their concatenation.
func NewFakeOpenAI(t *testing.T, chunks ...string) *FakeOpenAI {
	t.Helper()
	f := &FakeOpenAI{chunks: chunks, reply: strings.Join(chunks, "")} //nolint:exhaustruct // server set below
	f.server = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.server.Close)
	return f
}

// BaseURL is the value for the client's base URL.
func (f *FakeOpenAI) BaseURL() string {
	return f.server.URL + "/v1"
}

// SetReply sets the synchronous response text.
func (f *FakeOpenAI) SetReply(reply string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reply = reply
}

// FailStreamOpen makes streaming requests fail with a server error before any chunk.
func (f *FakeOpenAI) FailStreamOpen() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failOpen = true
}

// FailStreamMidway makes streaming requests send all chunks and then a corrupt event.
func (f *FakeOpenAI) FailStreamMidway() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failMid = true
}

// FailSync makes synchronous requests fail.
func (f *FakeOpenAI) FailSync() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failSync = true
}

// Requests returns the recorded requests.
func (f *FakeOpenAI) Requests() []ChatRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ChatRequest(nil), f.requests...)
}

func (f *FakeOpenAI) handle(w http.ResponseWriter, r *http.Request) {
	if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
		http.NotFound(w, r)
		return
	}
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	f.requests = append(f.requests, req)
	chunks := append([]string(nil), f.chunks...)
	reply, failOpen, failMid, failSync := f.reply, f.failOpen, f.failMid, f.failSync
	f.mu.Unlock()

	if !req.Stream {
		if failSync {
			writeAPIError(w)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		body, _ := json.Marshal(map[string]any{
			"id":      "chatcmpl-test",
			"object":  "chat.completion",
			"model":   req.Model,
			"choices": []any{map[string]any{"index": 0, "message": ChatMessage{Role: "assistant", Content: reply}}},
		})
		_, _ = w.Write(body)
		return
	}

	if failOpen {
		writeAPIError(w)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	flusher, _ := w.(http.Flusher)
	for _, chunk := range chunks {
		body, _ := json.Marshal(map[string]any{
			"id":      "chatcmpl-test",
			"object":  "chat.completion.chunk",
			"model":   req.Model,
			"choices": []any{map[string]any{"index": 0, "delta": map[string]string{"content": chunk}}},
		})
		_, _ = fmt.Fprintf(w, "data: %s\n\n", body)
		if flusher != nil {
			flusher.Flush()
		}
	}
	if failMid {
		_, _ = fmt.Fprint(w, "data: {corrupt\n\n")
		return
	}
	_, _ = fmt.Fprint(w, "data: [DONE]\n\n")
}

func writeAPIError(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	_, _ = w.Write([]byte(`{"error":{"message":"upstream unavailable","type":"server_error"}}`))
}
