// Package llm talks to an OpenAI-compatible chat completion endpoint.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"caku/internal/clients/httpx"
	"caku/internal/config"
)

var ErrEmptyCompletion = errors.New("empty completion")

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
}

type completionResponse struct {
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
}

type Client struct {
	http        *httpx.Client
	baseURL     string
	apiKey      string
	model       string
	temperature float64
}

func New(cfg config.LLMConfig) *Client {
	return &Client{
		http:        httpx.New(cfg.Timeout, 0),
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		temperature: cfg.Temperature,
	}
}

// Complete sends a single user prompt and returns the first choice.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	req := completionRequest{
		Model:       c.model,
		Messages:    []message{{Role: "user", Content: prompt}},
		Temperature: c.temperature,
	}
	headers := map[string]string{"Authorization": "Bearer " + c.apiKey}

	var resp completionResponse
	if err := c.http.JSON(ctx, http.MethodPost, c.baseURL+"/chat/completions", headers, req, &resp); err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}
