package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
)

// MaxContentForExtraction limits the text sent for insight extraction.
const MaxContentForExtraction = 20000

// Insight is the structured result of an extraction.
type Insight struct {
	Summary   string   `json:"summary"`
	KeyPoints []string `json:"key_points"`
	Topics    []string `json:"topics"`
}

const extractSystem = `You extract insight from content for a writer who turns it into newsletters and posts.
Reply with a single JSON object and nothing else:
{"summary": "2-4 sentences", "key_points": ["..."], "topics": ["lowercase topic", "..."]}`

// Extract summarises text. kindHint says what the text is ("document",
// "transcript", "voice_note") so the model can weigh it.
func (c *Client) Extract(ctx context.Context, text, kindHint string) (*Insight, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("empty text")
	}
	if len(text) > MaxContentForExtraction {
		text = text[:MaxContentForExtraction]
	}
	if kindHint == "" {
		kindHint = "document"
	}

	prompt := fmt.Sprintf("Content kind: %s\n\nContent:\n%s", kindHint, text)

	slog.Debug("extracting insight", "kind", kindHint, "chars", len(text))
	reply, err := c.Complete(ctx, extractSystem, prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to extract: %w", err)
	}

	var insight Insight
	if err := decodeJSONReply(reply, &insight); err != nil {
		return nil, err
	}
	if insight.Summary == "" {
		return nil, fmt.Errorf("extraction returned no summary")
	}
	insight.Topics = dedupeTopics(insight.Topics)
	return &insight, nil
}

// decodeJSONReply tolerates code fences and prose around the object.
func decodeJSONReply(reply string, v any) error {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end < start {
		return fmt.Errorf("reply is not JSON: %.80q", reply)
	}
	if err := json.Unmarshal([]byte(reply[start:end+1]), v); err != nil {
		return fmt.Errorf("failed to parse reply: %w", err)
	}
	return nil
}

func dedupeTopics(topics []string) []string {
	seen := make(map[string]bool, len(topics))
	out := make([]string, 0, len(topics))
	for _, t := range topics {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
