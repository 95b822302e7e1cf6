package cohere

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

type embedReq struct {
	Model          string   `json:"model"`
	Texts          []string `json:"texts"`
	InputType      string   `json:"input_type"`
	EmbeddingTypes []string `json:"embedding_types"`
}

type embedResp struct {
	Embeddings struct {
		Float [][]float32 `json:"float"`
	} `json:"embeddings"`
}

// Embed returns one vector per input text. The caller is responsible for
// batching; the API rejects requests over its batch limit.
func (c *Client) Embed(ctx context.Context, texts []string, inputType InputType) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	body, _ := json.Marshal(embedReq{
		Model:          c.embedModel,
		Texts:          texts,
		InputType:      string(inputType),
		EmbeddingTypes: []string{"float"},
	})
	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/embed", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cohere embed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("cohere embed: %w", &APIError{StatusCode: resp.StatusCode, Body: string(b)})
	}

	var result embedResp
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("cohere embed decode: %w", err)
	}
	if len(result.Embeddings.Float) != len(texts) {
		return nil, fmt.Errorf("cohere embed: got %d vectors for %d texts", len(result.Embeddings.Float), len(texts))
	}
	return result.Embeddings.Float, nil
}
