package render

import (
	"net/http"
	"time"
)

// OpenAIOption applies a configuration option to the OpenAIRenderer.
type OpenAIOption func(*OpenAIRenderer)

// WithModel sets the completions model.
func WithModel(model string) OpenAIOption {
	return func(r *OpenAIRenderer) {
		if model != "" {
			r.model = model
		}
	}
}

// WithBaseURL points the renderer at a different API host, mainly for tests.
func WithBaseURL(baseURL string) OpenAIOption {
	return func(r *OpenAIRenderer) {
		if baseURL != "" {
			r.baseURL = baseURL
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) OpenAIOption {
	return func(r *OpenAIRenderer) {
		if c != nil {
			r.httpClient = c
		}
	}
}

// WithTimeout bounds one completions call.
func WithTimeout(d time.Duration) OpenAIOption {
	return func(r *OpenAIRenderer) {
		if d > 0 {
			r.httpClient.Timeout = d
		}
	}
}
