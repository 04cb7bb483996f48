package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

// socketEndpoint is the chat completions path of Docker Model Runner.
const socketEndpoint = "http://localhost/exp/vDD4.40/engines/llama.cpp/v1/chat/completions"

// Config holds LLM client configuration. Either SocketPath (a local Docker
// Model Runner) or BaseURL (an OpenAI-compatible API, which needs APIKey)
// must be set.
type Config struct {
	SocketPath string        // Unix socket path for Docker Model Runner
	BaseURL    string        // e.g. "https://api.openai.com/v1"
	APIKey     string        // required with BaseURL
	Model      string        // e.g. "ai/gemma3" or "gpt-4o-mini"
	Timeout    time.Duration // per request; 0 means 2 minutes
}

// Client wraps an OpenAI-compatible chat completions API.
type Client struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
	model      string
}

// New creates a new LLM client and checks that its endpoint is configured.
func New(config Config) (*Client, error) {
	if config.Model == "" {
		return nil, fmt.Errorf("model is required")
	}
	if config.Timeout == 0 {
		config.Timeout = 2 * time.Minute
	}

	switch {
	case config.SocketPath != "":
		transport := &http.Transport{
			DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, "unix", config.SocketPath)
			},
		}
		return &Client{
			httpClient: &http.Client{Transport: transport, Timeout: config.Timeout},
			endpoint:   socketEndpoint,
			model:      config.Model,
		}, nil
	case config.BaseURL != "":
		if config.APIKey == "" {
			return nil, fmt.Errorf("api key is required")
		}
		return &Client{
			httpClient: &http.Client{Timeout: config.Timeout},
			endpoint:   strings.TrimSuffix(config.BaseURL, "/") + "/chat/completions",
			apiKey:     config.APIKey,
			model:      config.Model,
		}, nil
	}
	return nil, fmt.Errorf("socket path or base url is required")
}

// Model returns the model identifier used for every call.
func (c *Client) Model() string {
	return c.model
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Complete sends a system and a user message and returns the reply.
func (c *Client) Complete(ctx context.Context, system, prompt string) (string, error) {
	req := chatRequest{Model: c.model}
	if system != "" {
		req.Messages = append(req.Messages, chatMessage{Role: "system", Content: system})
	}
	req.Messages = append(req.Messages, chatMessage{Role: "user", Content: prompt})

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if chatResp.Error != nil {
		return "", fmt.Errorf("API error: %s", chatResp.Error.Message)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("no response returned")
	}
	return strings.TrimSpace(chatResp.Choices[0].Message.Content), nil
}
