// Package generator calls the messages API that produces training plans.
package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	DefaultBaseURL   = "https://api.anthropic.com"
	DefaultModel     = "claude-3-opus-20240229"
	DefaultMaxTokens = 4000
	apiVersion       = "2023-06-01"
	messagesPath     = "/v1/messages"
)

// ErrEmptyResponse is returned when the reply carries no text block.
var ErrEmptyResponse = errors.New("generator returned no text content")

// Config holds the generator endpoint settings.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
	System      string
	Timeout     time.Duration
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
	System      string    `json:"system,omitempty"`
	Messages    []message `json:"messages"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type messagesResponse struct {
	ID      string         `json:"id"`
	Model   string         `json:"model"`
	Content []contentBlock `json:"content"`
	Usage   struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type apiError struct {
	Type  string `json:"type"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Client talks to the messages API.
type Client struct {
	httpClient *resty.Client
	cfg        Config
	logger     *zap.Logger
}

// NewClient creates a generator client. An API key is required.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("generator API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetRetryCount(3).
		SetRetryWaitTime(1*time.Second).
		SetRetryMaxWaitTime(5*time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err == nil && (r.StatusCode() == 429 || r.StatusCode() >= 500)
		}).
		SetHeader("Content-Type", "application/json").
		SetHeader("x-api-key", cfg.APIKey).
		SetHeader("anthropic-version", apiVersion)

	return &Client{httpClient: client, cfg: cfg, logger: logger}, nil
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.cfg.Model
}

// Generate sends prompt and returns the concatenated text blocks of the reply.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	c.logger.Info("Calling generator API",
		zap.String("model", c.cfg.Model),
		zap.Int("max_tokens", c.cfg.MaxTokens),
		zap.Int("prompt_length", len(prompt)),
	)

	var (
		response messagesResponse
		failure  apiError
	)
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(messagesRequest{
			Model:       c.cfg.Model,
			MaxTokens:   c.cfg.MaxTokens,
			Temperature: c.cfg.Temperature,
			System:      c.cfg.System,
			Messages:    []message{{Role: "user", Content: prompt}},
		}).
		SetResult(&response).
		SetError(&failure).
		Post(messagesPath)
	if err != nil {
		c.logger.Error("Generator API call failed", zap.Error(err))
		return "", fmt.Errorf("failed to call generator API: %w", err)
	}
	if resp.IsError() {
		c.logger.Error("Generator API returned error",
			zap.Int("status_code", resp.StatusCode()),
			zap.String("error_type", failure.Error.Type),
			zap.String("msg", failure.Error.Message),
		)
		return "", fmt.Errorf("generator API error: %s (status: %d)", failure.Error.Message, resp.StatusCode())
	}

	var sb strings.Builder
	for _, block := range response.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", ErrEmptyResponse
	}

	c.logger.Info("Generator response received",
		zap.String("message_id", response.ID),
		zap.Int("input_tokens", response.Usage.InputTokens),
		zap.Int("output_tokens", response.Usage.OutputTokens),
	)
	return sb.String(), nil
}
