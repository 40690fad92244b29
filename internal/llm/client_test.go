package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/solenne/wayfarer/internal/domain"
)

func TestChat(t *testing.T) {
	var captured chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("path = %s, want /api/chat", r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %s", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"message":    map[string]string{"role": "assistant", "content": "Visit Kyoto in autumn."},
			"eval_count": 42,
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "llama3.2")
	result, err := c.Chat(context.Background(), []Message{{Role: "user", Content: "where to go"}}, Options{})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}

	if result.Content != "Visit Kyoto in autumn." {
		t.Errorf("Content = %q", result.Content)
	}
	if result.Model != "llama3.2" || result.Tokens != 42 {
		t.Errorf("result = %+v", result)
	}

	if captured.Model != "llama3.2" {
		t.Errorf("request model = %q", captured.Model)
	}
	if captured.Stream {
		t.Error("streaming must be disabled")
	}
	if captured.Options.Temperature != DefaultTemperature {
		t.Errorf("temperature = %v, want default %v", captured.Options.Temperature, DefaultTemperature)
	}
	if captured.Options.TopP != DefaultTopP {
		t.Errorf("top_p = %v, want default %v", captured.Options.TopP, DefaultTopP)
	}
	if captured.Options.NumPredict != DefaultMaxTokens {
		t.Errorf("num_predict = %v, want default %v", captured.Options.NumPredict, DefaultMaxTokens)
	}
}

func TestChatExplicitOptions(t *testing.T) {
	var captured chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&captured)
		json.NewEncoder(w).Encode(map[string]any{"message": map[string]string{"content": "ok"}})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "llama3.2")
	_, err := c.Chat(context.Background(), nil, Options{Temperature: 0.2, TopP: 0.5, MaxTokens: 64})
	if err != nil {
		t.Fatal(err)
	}

	if captured.Options.Temperature != 0.2 || captured.Options.TopP != 0.5 || captured.Options.NumPredict != 64 {
		t.Errorf("options = %+v", captured.Options)
	}
}

func TestChatBackendErrorWrapsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model is loading", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "llama3.2")
	_, err := c.Chat(context.Background(), nil, Options{})
	if !errors.Is(err, domain.ErrGenerationUnavailable) {
		t.Errorf("err = %v, want ErrGenerationUnavailable", err)
	}
}

func TestChatUnreachableBackend(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", "llama3.2")
	_, err := c.Chat(context.Background(), nil, Options{})
	if !errors.Is(err, domain.ErrGenerationUnavailable) {
		t.Errorf("err = %v, want ErrGenerationUnavailable", err)
	}
}

func TestHealthCheckModelLoaded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			t.Errorf("path = %s, want /api/tags", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"models": []map[string]string{{"name": "llama3.2:latest"}, {"name": "qwen2.5"}},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "llama3.2")
	h := c.HealthCheck(context.Background())
	if !h.Available || !h.ModelLoaded {
		t.Errorf("health = %+v", h)
	}
	if h.Message != "Ollama is running with llama3.2" {
		t.Errorf("message = %q", h.Message)
	}
}

func TestHealthCheckModelMissing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"models": []map[string]string{{"name": "qwen2.5"}}})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "llama3.2")
	h := c.HealthCheck(context.Background())
	if !h.Available {
		t.Error("backend is up, Available should be true")
	}
	if h.ModelLoaded {
		t.Error("model is absent, ModelLoaded should be false")
	}
	if h.Message != "Ollama is running but llama3.2 is not available. Run: ollama pull llama3.2" {
		t.Errorf("message = %q", h.Message)
	}
}

func TestHealthCheckUnreachable(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", "llama3.2")
	h := c.HealthCheck(context.Background())
	if h.Available {
		t.Error("unreachable backend reported available")
	}
	if h.Error == "" {
		t.Error("expected the probe error to be surfaced")
	}
	if h.Message != "Ollama is not running. Start it with: ollama serve" {
		t.Errorf("message = %q", h.Message)
	}
}
