package localmodel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Chatter is the call contract the pipeline depends on. The concrete client
// talks to an Ollama server; tests substitute a mock.
type Chatter interface {
	Chat(ctx context.Context, prompt string, opts ChatOptions) (*ChatResponse, error)
}

// ChatOptions configures a single generation call.
type ChatOptions struct {
	Model        string
	SystemPrompt string
	Temperature  float64
	MaxTokens    int
	TimeoutMs    int
	Format       string // "json" to request JSON output
}

// ChatResponse is the normalized result of a local generation call.
type ChatResponse struct {
	Response   string `json:"response"`
	Thinking   string `json:"thinking,omitempty"`
	Model      string `json:"model"`
	TokensUsed int    `json:"tokens_used"`
	DurationMs int64  `json:"duration_ms"`
	DoneReason string `json:"done_reason,omitempty"`
}

// HealthStatus reports local runtime availability.
type HealthStatus struct {
	Healthy   bool     `json:"healthy"`
	Models    []string `json:"models,omitempty"`
	LatencyMs int64    `json:"latency_ms,omitempty"`
	Error     string   `json:"error,omitempty"`
}

// Client is an HTTP client for a local Ollama server.
type Client struct {
	endpoint     string
	defaultModel string
	httpClient   *http.Client
}

// NewClient creates a client for the given endpoint and default model.
func NewClient(endpoint, model string) *Client {
	if endpoint == "" {
		endpoint = "http://localhost:11434"
	}
	return &Client{
		endpoint:     endpoint,
		defaultModel: model,
		// Per-call timeouts come from ChatOptions via context.
		httpClient: &http.Client{},
	}
}

// DefaultModel returns the model used when ChatOptions does not name one.
func (c *Client) DefaultModel() string {
	return c.defaultModel
}

type generateRequest struct {
	Model   string                 `json:"model"`
	Prompt  string                 `json:"prompt"`
	System  string                 `json:"system,omitempty"`
	Format  string                 `json:"format,omitempty"`
	Stream  bool                   `json:"stream"`
	Options map[string]interface{} `json:"options,omitempty"`
}

type generateResponse struct {
	Model           string `json:"model"`
	Response        string `json:"response"`
	Thinking        string `json:"thinking,omitempty"`
	DoneReason      string `json:"done_reason,omitempty"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
	TotalDuration   int64  `json:"total_duration"` // nanoseconds
}

// Chat sends a prompt to the local model and returns the normalized response.
func (c *Client) Chat(ctx context.Context, prompt string, opts ChatOptions) (*ChatResponse, error) {
	model := opts.Model
	if model == "" {
		model = c.defaultModel
	}

	req := generateRequest{
		Model:  model,
		Prompt: prompt,
		System: opts.SystemPrompt,
		Format: opts.Format,
		Stream: false,
	}
	options := map[string]interface{}{}
	if opts.Temperature > 0 {
		options["temperature"] = opts.Temperature
	}
	if opts.MaxTokens > 0 {
		options["num_predict"] = opts.MaxTokens
	}
	if len(options) > 0 {
		req.Options = options
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	if opts.TimeoutMs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(opts.TimeoutMs)*time.Millisecond)
		defer cancel()
	}

	start := time.Now()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &RequestError{Temporary: true, Err: fmt.Errorf("local model request failed: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, &RequestError{
			Status: resp.StatusCode,
			Err:    fmt.Errorf("local model returned status %d: %s", resp.StatusCode, string(bodyBytes)),
		}
	}

	var result generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &RequestError{Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	durationMs := result.TotalDuration / int64(time.Millisecond)
	if durationMs <= 0 {
		durationMs = time.Since(start).Milliseconds()
	}

	return &ChatResponse{
		Response:   result.Response,
		Thinking:   result.Thinking,
		Model:      result.Model,
		TokensUsed: result.PromptEvalCount + result.EvalCount,
		DurationMs: durationMs,
		DoneReason: result.DoneReason,
	}, nil
}

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// Health probes the local runtime. Failures are reported in the status,
// never as an error.
func (c *Client) Health(ctx context.Context, timeoutMs int) *HealthStatus {
	if timeoutMs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(timeoutMs)*time.Millisecond)
		defer cancel()
	}

	start := time.Now()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/api/tags", nil)
	if err != nil {
		return &HealthStatus{Healthy: false, Error: err.Error()}
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return &HealthStatus{Healthy: false, Error: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &HealthStatus{
			Healthy: false,
			Error:   fmt.Sprintf("status %d", resp.StatusCode),
		}
	}

	var tags tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return &HealthStatus{Healthy: false, Error: err.Error()}
	}

	status := &HealthStatus{Healthy: true, LatencyMs: time.Since(start).Milliseconds()}
	for _, m := range tags.Models {
		status.Models = append(status.Models, m.Name)
	}
	return status
}
