package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Generated is a piece of content produced from a prompt.
type Generated struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

const generateSystem = `You write finished content for the author described in the prompt.
Reply with a single JSON object and nothing else: {"title": "...", "content": "..."}`

// Generate runs a fully rendered prompt and returns a title and body.
// A reply that is not JSON is still accepted: its first line becomes the title.
func (c *Client) Generate(ctx context.Context, prompt string) (*Generated, error) {
	slog.Debug("generating content", "prompt_chars", len(prompt))
	reply, err := c.Complete(ctx, generateSystem, prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to generate: %w", err)
	}

	var g Generated
	if err := decodeJSONReply(reply, &g); err != nil || g.Content == "" {
		g = splitTitle(reply)
	}
	if strings.TrimSpace(g.Content) == "" {
		return nil, fmt.Errorf("generation returned no content")
	}
	return &g, nil
}

func splitTitle(reply string) Generated {
	reply = strings.TrimSpace(reply)
	first, rest, _ := strings.Cut(reply, "\n")
	title := strings.TrimSpace(strings.TrimLeft(first, "# "))
	if strings.TrimSpace(rest) == "" {
		return Generated{Title: title, Content: reply}
	}
	return Generated{Title: title, Content: strings.TrimSpace(rest)}
}
