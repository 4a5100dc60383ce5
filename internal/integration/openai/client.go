// Package openai polishes outreach email drafts through the chat completions API.
package openai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/lead-outreach-service/internal/apperrors"
	"gitlab.com/timkado/api/lead-outreach-service/pkg/logger"
)

const providerName = "openai"

const systemPrompt = "You are an expert email copywriter. Polish the following sales email content. " +
	"Make it more professional, concise, and engaging. Ensure a friendly yet assertive tone. " +
	"Correct any grammatical errors or awkward phrasing. The email is intended for a business lead."

const (
	defaultTemperature = 0.7
	defaultMaxTokens   = 1000
)

// Polisher rewrites free text into a polished version.
type Polisher interface {
	Polish(ctx context.Context, text string) (string, error)
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Client calls the OpenAI chat completions endpoint.
type Client struct {
	httpClient *resty.Client
	apiKey     string
	model      string
}

// Ensure Client implements Polisher
var _ Polisher = (*Client)(nil)

// NewClient creates a polishing client. An empty apiKey yields a client
// whose Polish returns apperrors.ErrNotConfigured.
func NewClient(baseURL, apiKey, model string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{
		httpClient: httpClient,
		apiKey:     apiKey,
		model:      model,
	}
}

// Polish sends text to the model and returns the trimmed rewrite.
func (c *Client) Polish(ctx context.Context, text string) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("%w: openai api key is not set", apperrors.ErrNotConfigured)
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: textToPolish is required and must be a non-empty string", apperrors.ErrValidation)
	}

	log := logger.FromContext(ctx)
	request := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: text},
		},
		Temperature: defaultTemperature,
		MaxTokens:   defaultMaxTokens,
	}

	var result chatResponse
	var apiErr errorResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetAuthToken(c.apiKey).
		SetBody(request).
		SetResult(&result).
		SetError(&apiErr).
		Post("/chat/completions")
	if err != nil {
		log.Error("OpenAI API call failed", zap.Error(err))
		return "", apperrors.NewUpstream(providerName, 0, "request failed", err)
	}

	if resp.IsError() {
		detail := apiErr.Error.Message
		if detail == "" {
			detail = "Unknown error"
		}
		log.Error("OpenAI API returned error",
			zap.Int("status_code", resp.StatusCode()),
			zap.String("detail", detail),
		)
		return "", apperrors.NewUpstream(providerName, resp.StatusCode(), detail, nil)
	}

	if len(result.Choices) == 0 || strings.TrimSpace(result.Choices[0].Message.Content) == "" {
		log.Error("Unexpected OpenAI API response structure", zap.Int("status_code", resp.StatusCode()))
		return "", apperrors.NewUpstream(providerName, resp.StatusCode(), "unexpected response structure", nil)
	}

	return strings.TrimSpace(result.Choices[0].Message.Content), nil
}
