// Package llm talks to an Ollama-compatible generation backend.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/solenne/wayfarer/internal/domain"
	"github.com/solenne/wayfarer/internal/metrics"
	"github.com/solenne/wayfarer/shared/httpclient"
)

var tracer = otel.GetTracerProvider().Tracer("internal/llm")

const (
	DefaultTemperature = 0.7
	DefaultTopP        = 0.9
	DefaultMaxTokens   = 1000
)

// Message is a role-tagged chat entry in the backend's wire format.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Options are per-call sampling parameters. Zero values fall back to the
// package defaults.
type Options struct {
	Temperature float64
	TopP        float64
	MaxTokens   int
}

// Result is a completed generation.
type Result struct {
	Content string
	Model   string
	Tokens  int
}

// Health reports backend reachability and model presence. HealthCheck never
// fails; unreachability is a state, not an error.
type Health struct {
	Available   bool   `json:"available"`
	ModelLoaded bool   `json:"modelLoaded"`
	Model       string `json:"model"`
	Message     string `json:"message"`
	Error       string `json:"error,omitempty"`
}

type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func NewClient(baseURL, model string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		model:      model,
		httpClient: httpclient.NewLong(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Model() string { return c.model }

type chatRequest struct {
	Model    string      `json:"model"`
	Messages []Message   `json:"messages"`
	Stream   bool        `json:"stream"`
	Options  chatOptions `json:"options"`
}

type chatOptions struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
	NumPredict  int     `json:"num_predict"`
}

type chatResponse struct {
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	EvalCount int `json:"eval_count"`
}

// Chat performs one generation call. Any transport or backend failure wraps
// domain.ErrGenerationUnavailable; retry policy belongs to the caller.
func (c *Client) Chat(ctx context.Context, messages []Message, opts Options) (Result, error) {
	ctx, span := tracer.Start(ctx, "llm.chat", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	if opts.Temperature == 0 {
		opts.Temperature = DefaultTemperature
	}
	if opts.TopP == 0 {
		opts.TopP = DefaultTopP
	}
	if opts.MaxTokens == 0 {
		opts.MaxTokens = DefaultMaxTokens
	}

	span.SetAttributes(
		attribute.String("llm.model", c.model),
		attribute.Int("llm.request.messages", len(messages)),
		attribute.Float64("llm.request.temperature", opts.Temperature),
	)

	body, err := json.Marshal(chatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   false,
		Options: chatOptions{
			Temperature: opts.Temperature,
			TopP:        opts.TopP,
			NumPredict:  opts.MaxTokens,
		},
	})
	if err != nil {
		return Result{}, fmt.Errorf("marshal chat request: %w", err)
	}

	start := time.Now()
	resp, err := c.post(ctx, "/api/chat", body)
	metrics.LLMRequestDuration.WithLabelValues(c.model).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.LLMRequestsTotal.WithLabelValues(c.model, "error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Result{}, fmt.Errorf("%w: %v", domain.ErrGenerationUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		metrics.LLMRequestsTotal.WithLabelValues(c.model, "error").Inc()
		err := fmt.Errorf("%w: backend returned %d: %s", domain.ErrGenerationUnavailable, resp.StatusCode, strings.TrimSpace(string(payload)))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Result{}, err
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		metrics.LLMRequestsTotal.WithLabelValues(c.model, "error").Inc()
		return Result{}, fmt.Errorf("%w: decode response: %v", domain.ErrGenerationUnavailable, err)
	}

	metrics.LLMRequestsTotal.WithLabelValues(c.model, "ok").Inc()
	span.SetAttributes(
		attribute.Int("llm.usage.output_tokens", parsed.EvalCount),
		attribute.Int("llm.response.content_length", len(parsed.Message.Content)),
	)

	return Result{
		Content: parsed.Message.Content,
		Model:   c.model,
		Tokens:  parsed.EvalCount,
	}, nil
}

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// HealthCheck probes the backend's model list.
func (c *Client) HealthCheck(ctx context.Context) Health {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return c.unavailable(err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.unavailable(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.unavailable(fmt.Errorf("backend returned %d", resp.StatusCode))
	}

	var parsed tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return c.unavailable(err)
	}

	loaded := false
	for _, m := range parsed.Models {
		if strings.Contains(m.Name, c.model) {
			loaded = true
			break
		}
	}

	message := fmt.Sprintf("Ollama is running with %s", c.model)
	if !loaded {
		message = fmt.Sprintf("Ollama is running but %s is not available. Run: ollama pull %s", c.model, c.model)
	}

	return Health{
		Available:   true,
		ModelLoaded: loaded,
		Model:       c.model,
		Message:     message,
	}
}

func (c *Client) unavailable(err error) Health {
	return Health{
		Available: false,
		Model:     c.model,
		Message:   "Ollama is not running. Start it with: ollama serve",
		Error:     err.Error(),
	}
}

func (c *Client) post(ctx context.Context, path string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.httpClient.Do(req)
}
