// Package inference asks an OpenAI-compatible vision model what to do next.
package inference

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// Config captures the settings needed to reach the inference service.
type Config struct {
	BaseURL      string
	Model        string
	APIKey       string
	Temperature  float32
	MaxTokens    int
	Timeout      time.Duration
	SystemPrompt string
}

// DefaultConfig targets a local LM Studio server.
func DefaultConfig() Config {
	return Config{
		BaseURL:      "http://localhost:1234/v1",
		Model:        "qwen3-vl-2b-instruct",
		Temperature:  1.0,
		MaxTokens:    300,
		Timeout:      120 * time.Second,
		SystemPrompt: DefaultSystemPrompt,
	}
}

// Client sends one frame per request and returns the chosen action.
type Client struct {
	cfg        Config
	api        *openai.Client
	httpClient *http.Client
	tools      []openai.Tool
	log        *slog.Logger
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// New constructs a client. Empty fields of cfg fall back to DefaultConfig.
func New(cfg Config, logger *slog.Logger, opts ...Option) *Client {
	def := DefaultConfig()
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = def.BaseURL
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = def.Model
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = def.MaxTokens
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if strings.TrimSpace(cfg.SystemPrompt) == "" {
		cfg.SystemPrompt = def.SystemPrompt
	}

	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		tools:      Tools(),
		log:        logger.With("component", "inference", "model", cfg.Model),
	}
	for _, opt := range opts {
		opt(c)
	}

	apiCfg := openai.DefaultConfig(cfg.APIKey)
	apiCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	apiCfg.HTTPClient = c.httpClient
	c.api = openai.NewClientWithConfig(apiCfg)
	return c
}

// Decide sends the encoded frame and parses the model's single tool call.
func (c *Client) Decide(ctx context.Context, png []byte) (Decision, error) {
	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, c.request(png))
	if err != nil {
		return Decision{}, &Error{Op: "request", Err: err}
	}

	if len(resp.Choices) == 0 {
		return Decision{}, &Error{Op: "response", Err: ErrNoChoices}
	}
	msg := resp.Choices[0].Message
	if len(msg.ToolCalls) == 0 {
		return Decision{}, &Error{Op: "response", Err: fmt.Errorf("%w (finish reason %q)", ErrNoToolCall, resp.Choices[0].FinishReason)}
	}
	if len(msg.ToolCalls) > 1 {
		c.log.Debug("ignoring extra tool calls", "count", len(msg.ToolCalls))
	}

	call := msg.ToolCalls[0].Function
	d, err := ParseToolCall(call.Name, call.Arguments)
	if err != nil {
		return d, err
	}
	c.log.Debug("decision received",
		"action", d.Action,
		"has_narrative", d.HasNarrative,
		"elapsed", time.Since(start),
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
	)
	return d, nil
}

func (c *Client) request(png []byte) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: c.cfg.SystemPrompt,
			},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL: DataURL(png),
						},
					},
				},
			},
		},
		Tools:       c.tools,
		ToolChoice:  "required",
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	}
}

// DataURL embeds a PNG as a base64 data URL.
func DataURL(png []byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
}
