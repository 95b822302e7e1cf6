package cohere

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Document is a grounding passage passed to the chat API.
type Document struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

type chatReq struct {
	Model       string     `json:"model"`
	Message     string     `json:"message"`
	Preamble    string     `json:"preamble,omitempty"`
	Documents   []Document `json:"documents,omitempty"`
	Temperature float64    `json:"temperature"`
}

type chatResp struct {
	Text string `json:"text"`
}

// Chat generates a grounded answer for message using the given documents.
// Calls run through the circuit breaker; while it is open Chat fails fast
// with resilience.ErrCircuitOpen.
func (c *Client) Chat(ctx context.Context, message string, docs []Document, preamble string) (string, error) {
	var text string
	err := c.breaker.Call(ctx, func(ctx context.Context) error {
		var callErr error
		text, callErr = c.chat(ctx, message, docs, preamble)
		return callErr
	})
	return text, err
}

func (c *Client) chat(ctx context.Context, message string, docs []Document, preamble string) (string, error) {
	body, _ := json.Marshal(chatReq{
		Model:       c.chatModel,
		Message:     message,
		Preamble:    preamble,
		Documents:   docs,
		Temperature: c.temp,
	})
	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("cohere chat: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("cohere chat: %w", &APIError{StatusCode: resp.StatusCode, Body: string(b)})
	}

	var result chatResp
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("cohere chat decode: %w", err)
	}
	return result.Text, nil
}
