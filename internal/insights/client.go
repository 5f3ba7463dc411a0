// Package insights generates short narrative summaries of attendance
// statistics through an OpenAI-compatible chat completions API. Everything
// here is best-effort: callers receive a fallback string instead of an error
// so analytics never fails because of the narrative step.
package insights

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Unavailable is returned whenever a summary cannot be produced.
const Unavailable = "AI insights temporarily unavailable"

// Client calls the chat completions endpoint.
type Client struct {
	BaseURL string
	APIKey  string
	Model   string
	HTTP    *http.Client
}

// New creates a client. An empty apiKey disables the integration; Summarize
// then always returns the unavailable fallback.
func New(baseURL, apiKey, model string) *Client {
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Model:   model,
		HTTP: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Summarize asks the model for a short narrative over the aggregated numbers.
func (c *Client) Summarize(ctx context.Context, totalSessions int, avgAttendanceRate float64) (string, error) {
	if c.APIKey == "" {
		return Unavailable, nil
	}

	prompt := fmt.Sprintf(
		"Analyze this attendance data and provide brief insights:\n"+
			"Total Sessions: %d\n"+
			"Average Attendance Rate: %.1f%%\n\n"+
			"Provide 3-4 bullet points with actionable insights about attendance patterns and recommendations.",
		totalSessions, avgAttendanceRate)

	body, _ := json.Marshal(chatRequest{
		Model:    c.Model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("insights request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("insights error %s: %s", resp.Status, string(bodyBytes))
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("empty completion response")
	}

	return out.Choices[0].Message.Content, nil
}
