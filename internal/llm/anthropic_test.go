package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/ppiankov/syllogos/internal/stream"
)

func drain(t *testing.T, src stream.Source) (string, error) {
	t.Helper()
	defer src.Close()
	var b strings.Builder
	for {
		text, err := src.Next(context.Background())
		if errors.Is(err, io.EOF) {
			return b.String(), nil
		}
		if err != nil {
			return b.String(), err
		}
		b.WriteString(text)
	}
}

func TestAnthropicProvider_StreamAnalysis_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("Expected path /v1/messages, got %s", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "test-key" {
			t.Errorf("Expected x-api-key header test-key, got %s", r.Header.Get("x-api-key"))
		}
		if r.Header.Get("anthropic-version") != "2023-06-01" {
			t.Errorf("Expected anthropic-version header 2023-06-01, got %s", r.Header.Get("anthropic-version"))
		}

		var req anthropicRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			return
		}
		if !req.Stream {
			t.Error("Expected stream=true")
		}
		if req.System != "sys" {
			t.Errorf("Expected system prompt, got %q", req.System)
		}
		if len(req.Messages) != 1 || len(req.Messages[0].Content) != 2 {
			t.Errorf("Expected one message with document and text blocks, got %+v", req.Messages)
			return
		}
		doc := req.Messages[0].Content[0]
		if doc.Type != "document" || doc.Source == nil || doc.Source.MediaType != "application/pdf" || doc.Source.Data != "JVBERi0=" {
			t.Errorf("Unexpected document block: %+v", doc)
		}

		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, "event: message_start\n"+
			`data: {"type":"message_start","message":{"id":"msg_1"}}`+"\n\n"+
			`data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"{\"bias\": "}}`+"\n\n"+
			`data: {"type":"ping"}`+"\n\n"+
			`data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"{}}"}}`+"\n\n"+
			`data: {"type":"message_stop"}`+"\n\n")
	}))
	defer server.Close()

	provider, err := NewAnthropicProvider(Config{APIKey: "test-key", BaseURL: server.URL, Timeout: 5}, nil)
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	src, err := provider.StreamAnalysis(context.Background(), AnalysisRequest{
		System: "sys",
		Prompt: "analyze",
		PDF:    []byte("%PDF-"),
	})
	if err != nil {
		t.Fatalf("StreamAnalysis failed: %v", err)
	}
	if src.Kind() != stream.KindEventFramed {
		t.Errorf("Expected event-framed source, got %s", src.Kind())
	}

	text, err := drain(t, src)
	if err != nil {
		t.Fatalf("drain failed: %v", err)
	}
	if text != `{"bias": {}}` {
		t.Errorf("Unexpected text: %q", text)
	}
}

func TestAnthropicProvider_StreamAnalysis_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`)
	}))
	defer server.Close()

	provider, err := NewAnthropicProvider(Config{APIKey: "test-key", BaseURL: server.URL}, nil)
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	_, err = provider.StreamAnalysis(context.Background(), AnalysisRequest{Prompt: "x"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected *APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusTooManyRequests || apiErr.Type != "rate_limit_error" || apiErr.Message != "slow down" {
		t.Errorf("Unexpected API error: %+v", apiErr)
	}
}

func TestAnthropicProvider_StreamAnalysis_InStreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `data: {"type":"content_block_delta","delta":{"text":"{"}}`+"\n"+
			`data: {"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`+"\n")
	}))
	defer server.Close()

	provider, _ := NewAnthropicProvider(Config{APIKey: "test-key", BaseURL: server.URL}, nil)
	src, err := provider.StreamAnalysis(context.Background(), AnalysisRequest{Prompt: "x"})
	if err != nil {
		t.Fatalf("StreamAnalysis failed: %v", err)
	}

	text, err := drain(t, src)
	var upErr *stream.UpstreamError
	if !errors.As(err, &upErr) {
		t.Fatalf("Expected *stream.UpstreamError, got %v", err)
	}
	if upErr.Type != "overloaded_error" {
		t.Errorf("Unexpected error type %q", upErr.Type)
	}
	if text != "{" {
		t.Errorf("Expected text before the error, got %q", text)
	}
}

func TestAnthropicProvider_NoAPIKey(t *testing.T) {
	_, err := NewAnthropicProvider(Config{}, nil)
	if !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("Expected ErrNoAPIKey, got %v", err)
	}
}

func TestAnthropicProvider_IsAvailable(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusOK)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(int(status.Load()))
		_, _ = io.WriteString(w, `{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`)
	}))
	defer server.Close()

	provider, _ := NewAnthropicProvider(Config{APIKey: "test-key", BaseURL: server.URL}, nil)
	if !provider.IsAvailable(context.Background()) {
		t.Error("Expected provider to be available")
	}

	status.Store(http.StatusUnauthorized)
	if provider.IsAvailable(context.Background()) {
		t.Error("Expected provider to be unavailable on 401")
	}
}
