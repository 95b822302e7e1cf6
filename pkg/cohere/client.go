// Package cohere provides HTTP clients for the Cohere embed and chat APIs.
package cohere

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/pagelore/pagelore/pkg/resilience"
)

const defaultBaseURL = "https://api.cohere.com/v1"

// InputType tells the embed API how a text will be used.
type InputType string

const (
	InputDocument InputType = "search_document"
	InputQuery    InputType = "search_query"
)

// APIError is a non-2xx response from the Cohere API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("cohere: status %d: %s", e.StatusCode, e.Body)
}

// Transient reports whether the call is worth retrying.
func (e *APIError) Transient() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// IsTransient reports whether err is a retryable API or network failure.
func IsTransient(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Transient()
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// Client calls the Cohere HTTP API. Chat calls go through a circuit breaker;
// embed calls are retried by the embedding gateway instead.
type Client struct {
	baseURL    string
	apiKey     string
	embedModel string
	chatModel  string
	temp       float64
	http       *http.Client
	breaker    *resilience.Breaker
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL. Used in tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithEmbedModel sets the embedding model.
func WithEmbedModel(m string) Option {
	return func(c *Client) { c.embedModel = m }
}

// WithChatModel sets the generation model.
func WithChatModel(m string) Option {
	return func(c *Client) { c.chatModel = m }
}

// WithTemperature sets the generation temperature.
func WithTemperature(t float64) Option {
	return func(c *Client) { c.temp = t }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// New creates a Cohere API client.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		apiKey:     apiKey,
		embedModel: "embed-english-v3.0",
		chatModel:  "command-r-plus-08-2024",
		temp:       0.3,
		http:       &http.Client{Timeout: 60 * time.Second},
		breaker:    resilience.NewBreaker(resilience.DefaultBreakerOpts),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// EmbedModel returns the configured embedding model name.
func (c *Client) EmbedModel() string { return c.embedModel }

// ChatModel returns the configured generation model name.
func (c *Client) ChatModel() string { return c.chatModel }

// Temperature returns the configured generation temperature.
func (c *Client) Temperature() float64 { return c.temp }
