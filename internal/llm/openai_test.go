package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sashabaranov/go-openai"

	"github.com/ppiankov/syllogos/internal/stream"
)

func TestOpenAIProvider_StreamAnalysis_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("Expected path /chat/completions, got %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("Expected Authorization header Bearer test-key, got %s", r.Header.Get("Authorization"))
		}

		var req openai.ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			return
		}
		if !req.Stream {
			t.Error("Expected stream=true")
		}
		if req.Model != "gpt-4o-mini" {
			t.Errorf("Expected configured model, got %s", req.Model)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != openai.ChatMessageRoleSystem {
			t.Errorf("Unexpected messages: %+v", req.Messages)
		}

		w.Header().Set("Content-Type", "text/event-stream")
		for _, chunk := range []string{`{"bias": `, ``, `{}}`} {
			data, _ := json.Marshal(openai.ChatCompletionStreamResponse{
				ID:     "chatcmpl-1",
				Object: "chat.completion.chunk",
				Model:  "gpt-4o-mini",
				Choices: []openai.ChatCompletionStreamChoice{
					{Index: 0, Delta: openai.ChatCompletionStreamChoiceDelta{Content: chunk}},
				},
			})
			_, _ = io.WriteString(w, "data: "+string(data)+"\n\n")
		}
		_, _ = io.WriteString(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	provider, err := NewOpenAIProvider(Config{APIKey: "test-key", BaseURL: server.URL, Model: "gpt-4o-mini", Timeout: 5}, nil)
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	src, err := provider.StreamAnalysis(context.Background(), AnalysisRequest{System: "sys", Prompt: "analyze"})
	if err != nil {
		t.Fatalf("StreamAnalysis failed: %v", err)
	}
	if src.Kind() != stream.KindChunkIterable {
		t.Errorf("Expected chunk-iterable source, got %s", src.Kind())
	}

	text, err := drain(t, src)
	if err != nil {
		t.Fatalf("drain failed: %v", err)
	}
	if text != `{"bias": {}}` {
		t.Errorf("Unexpected text: %q", text)
	}
}

func TestOpenAIProvider_StreamAnalysis_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":{"message":"Invalid API key","type":"invalid_request_error"}}`)
	}))
	defer server.Close()

	provider, _ := NewOpenAIProvider(Config{APIKey: "bad-key", BaseURL: server.URL}, nil)
	_, err := provider.StreamAnalysis(context.Background(), AnalysisRequest{Prompt: "x"})
	if err == nil {
		t.Fatal("Expected error for 401 response")
	}

	var apiErr *openai.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected *openai.APIError, got %T: %v", err, err)
	}
	if apiErr.HTTPStatusCode != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", apiErr.HTTPStatusCode)
	}
}

func TestOpenAIProvider_NoAPIKey(t *testing.T) {
	_, err := NewOpenAIProvider(Config{}, nil)
	if !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("Expected ErrNoAPIKey, got %v", err)
	}
}

func TestOpenAIProvider_IsAvailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = io.WriteString(w, `{"object":"list","data":[{"id":"gpt-4o-mini","object":"model"}]}`)
	}))
	defer server.Close()

	provider, _ := NewOpenAIProvider(Config{APIKey: "test-key", BaseURL: server.URL}, nil)
	if !provider.IsAvailable(context.Background()) {
		t.Error("Expected provider to be available")
	}
}
