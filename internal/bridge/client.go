// Package bridge talks to the hosted chat-completion model: it shapes the
// conversation into a request, sends it, and turns the reply into records.
package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"aidance/internal/core"
	applog "aidance/internal/log"
)

const (
	DefaultAPIURL      = "https://open.bigmodel.cn/api/paas/v4/chat/completions"
	DefaultTextModel   = "glm-4-flash"
	DefaultVisionModel = "glm-4v-flash"
	DefaultTimeout     = 60 * time.Second
)

// Config holds the endpoint and sampling parameters.
type Config struct {
	APIURL      string
	APIKey      string
	TextModel   string
	VisionModel string
	Temperature float64
	MaxTokens   int
	TopP        float64
	Timeout     time.Duration
}

func DefaultConfig() Config {
	return Config{
		APIURL:      DefaultAPIURL,
		TextModel:   DefaultTextModel,
		VisionModel: DefaultVisionModel,
		Temperature: 0.8,
		MaxTokens:   1024,
		TopP:        0.9,
		Timeout:     DefaultTimeout,
	}
}

// Classifier turns the conversation into a structured reply. Implementations
// never fail; problems are reported through the reply text.
type Classifier interface {
	Classify(ctx context.Context, history []core.Message, todos core.TodoList) Result
}

// Client is the HTTP Classifier.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *applog.Logger
}

type ClientOption func(*Client)

// WithHTTPClient replaces the default client, whose timeout is cfg.Timeout.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) { cl.http = c }
}

func NewClient(cfg Config, logger *applog.Logger, opts ...ClientOption) *Client {
	if logger == nil {
		logger = applog.Default(applog.ComponentBridge)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: timeout},
		logger: logger.WithComponent(applog.ComponentBridge),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Classify sends the conversation and parses the reply. Transport failures
// and non-2xx answers become fixed fallback replies.
func (c *Client) Classify(ctx context.Context, history []core.Message, todos core.TodoList) Result {
	req := BuildRequest(history, todos, c.cfg)
	logger := c.logger.With(applog.FieldModel, req.Model, applog.FieldOperation, applog.OpClassify)
	start := time.Now()

	body, err := json.Marshal(req)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to encode completion request", applog.FieldError, err)
		return Fallback(ReplyNetworkFailure)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIURL, bytes.NewReader(body))
	if err != nil {
		logger.ErrorContext(ctx, "Failed to create completion request", applog.FieldError, err)
		return Fallback(ReplyNetworkFailure)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		logger.ErrorContext(ctx, "Completion request failed",
			applog.FieldError, err, applog.FieldDuration, time.Since(start).Milliseconds())
		return Fallback(ReplyNetworkFailure)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		logger.ErrorContext(ctx, "Completion returned non-OK status",
			applog.FieldStatusCode, resp.StatusCode, applog.FieldError, string(errBody),
			applog.FieldDuration, time.Since(start).Milliseconds())
		return Fallback(fmt.Sprintf(apiErrorFormat, resp.StatusCode))
	}

	var data completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		logger.ErrorContext(ctx, "Failed to decode completion response", applog.FieldError, err)
		return Fallback(ReplyNetworkFailure)
	}

	content := "{}"
	if len(data.Choices) > 0 && data.Choices[0].Message.Content != "" {
		content = data.Choices[0].Message.Content
	}

	res := ParseReply(content)
	logger.InfoContext(ctx, "Classification completed",
		applog.FieldDuration, time.Since(start).Milliseconds(),
		"moods", len(res.Moods), "expenses", len(res.Expenses), "events", len(res.Events),
		"todos", len(res.Todos), "todo_updates", len(res.TodoUpdates))
	return res
}
