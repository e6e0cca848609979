package localmodel

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestChatNormalizesResponse(t *testing.T) {
	var captured generateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("path = %s, want /api/generate", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(generateResponse{
			Model:           "qwen2.5-coder:7b",
			Response:        "done",
			DoneReason:      "stop",
			PromptEvalCount: 12,
			EvalCount:       30,
			TotalDuration:   int64(250 * time.Millisecond),
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, "qwen2.5-coder:7b")
	resp, err := client.Chat(context.Background(), "say done", ChatOptions{MaxTokens: 64, Format: "json"})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}

	if resp.Response != "done" || resp.Model != "qwen2.5-coder:7b" {
		t.Fatalf("response = %+v", resp)
	}
	if resp.TokensUsed != 42 {
		t.Fatalf("tokens = %d, want prompt+eval 42", resp.TokensUsed)
	}
	if resp.DurationMs != 250 {
		t.Fatalf("duration = %dms, want 250", resp.DurationMs)
	}

	if captured.Model != "qwen2.5-coder:7b" {
		t.Fatalf("request model = %q", captured.Model)
	}
	if captured.Stream {
		t.Fatal("request asked for streaming")
	}
	if captured.Format != "json" {
		t.Fatalf("request format = %q, want json", captured.Format)
	}
	if got := captured.Options["num_predict"]; got != float64(64) {
		t.Fatalf("num_predict = %v, want 64", got)
	}
}

func TestChatUsesDefaultModel(t *testing.T) {
	var captured generateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&captured)
		json.NewEncoder(w).Encode(generateResponse{Response: "ok"})
	}))
	defer server.Close()

	client := NewClient(server.URL, "fallback-model")
	if _, err := client.Chat(context.Background(), "hi", ChatOptions{}); err != nil {
		t.Fatalf("chat: %v", err)
	}
	if captured.Model != "fallback-model" {
		t.Fatalf("request model = %q, want the default", captured.Model)
	}
}

func TestChatNonOKStatusIsRequestError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(server.URL, "missing")
	_, err := client.Chat(context.Background(), "hi", ChatOptions{})
	if err == nil {
		t.Fatal("expected an error")
	}

	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("error type = %T, want *RequestError", err)
	}
	if reqErr.Status != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", reqErr.Status)
	}
	if !IsTransport(err) {
		t.Fatal("request error not classified as transport failure")
	}
}

func TestChatUnreachableServerIsTemporary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // nothing listening

	client := NewClient(server.URL, "any")
	_, err := client.Chat(context.Background(), "hi", ChatOptions{TimeoutMs: 500})
	if err == nil {
		t.Fatal("expected an error")
	}
	var reqErr *RequestError
	if !errors.As(err, &reqErr) || !reqErr.Temporary {
		t.Fatalf("error = %v, want a temporary RequestError", err)
	}
}

func TestHealthListsModels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			t.Errorf("path = %s, want /api/tags", r.URL.Path)
		}
		w.Write([]byte(`{"models":[{"name":"qwen2.5-coder:7b"},{"name":"llama3.2:3b"}]}`))
	}))
	defer server.Close()

	status := NewClient(server.URL, "any").Health(context.Background(), 1000)
	if !status.Healthy {
		t.Fatalf("status = %+v, want healthy", status)
	}
	if len(status.Models) != 2 || status.Models[0] != "qwen2.5-coder:7b" {
		t.Fatalf("models = %v", status.Models)
	}
}

func TestHealthFailureIsStatusNotError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	status := NewClient(server.URL, "any").Health(context.Background(), 500)
	if status.Healthy {
		t.Fatal("unreachable runtime reported healthy")
	}
	if status.Error == "" {
		t.Fatal("unhealthy status carries no error detail")
	}
}

func TestMockChatterScriptsAndEchoes(t *testing.T) {
	mock := NewMockChatter()
	mock.EnqueueText("scripted", 5, 1)
	mock.EnqueueError(errors.New("boom"))

	resp, err := mock.Chat(context.Background(), "first", ChatOptions{})
	if err != nil || resp.Response != "scripted" {
		t.Fatalf("scripted turn = %v, %v", resp, err)
	}
	if _, err := mock.Chat(context.Background(), "second", ChatOptions{}); err == nil {
		t.Fatal("scripted error not returned")
	}
	resp, err = mock.Chat(context.Background(), "third", ChatOptions{})
	if err != nil {
		t.Fatalf("echo turn errored: %v", err)
	}
	if resp.Response == "" {
		t.Fatal("echo turn returned empty response")
	}
	if mock.Calls != 3 || len(mock.Prompts) != 3 {
		t.Fatalf("calls = %d prompts = %d, want 3 each", mock.Calls, len(mock.Prompts))
	}
}
