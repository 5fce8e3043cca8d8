package render

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/celebratehub/confetti/internal/domain/model"
)

// Default OpenAI renderer configuration constants.
const (
	defaultOpenAIBaseURL = "https://api.openai.com"
	defaultOpenAIModel   = "gpt-3.5-turbo"
	defaultOpenAITimeout = 10 * time.Second
	completionMaxTokens  = 150
	completionTemp       = 0.8

	systemPrompt = "You are a social media expert who creates engaging, celebratory posts " +
		"for developer achievements. Keep responses concise, fun, and professional."
)

// OpenAIRenderer phrases celebration posts through the chat-completions API.
// Any transport, status, or empty-completion problem is an error; the caller
// is expected to fall back to the template renderer.
type OpenAIRenderer struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewOpenAIRenderer creates a renderer with configuration options. An empty
// api key yields ErrNotConfigured on every Render call so wiring stays
// uniform whether or not a key is present.
func NewOpenAIRenderer(apiKey string, opts ...OpenAIOption) *OpenAIRenderer {
	r := &OpenAIRenderer{
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    defaultOpenAIBaseURL,
		model:      defaultOpenAIModel,
		httpClient: &http.Client{Timeout: defaultOpenAITimeout},
	}
	for _, opt := range opts {
		opt(r)
	}
	r.baseURL = strings.TrimRight(r.baseURL, "/")
	return r
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Render calls the completions endpoint and returns the trimmed post.
func (r *OpenAIRenderer) Render(ctx context.Context, m model.Milestone) (string, error) {
	const op = "render.openai"

	if r.apiKey == "" {
		return "", NewKind(op, ErrNotConfigured)
	}

	payload, err := json.Marshal(chatRequest{
		Model: r.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt(m)},
		},
		MaxTokens:   completionMaxTokens,
		Temperature: completionTemp,
	})
	if err != nil {
		return "", WrapKind(op, ErrRenderFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		r.baseURL+"/v1/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", WrapKind(op, ErrRenderFailed, err)
	}
	req.Header.Set("Authorization", "Bearer "+r.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", WrapKind(op, ErrRenderFailed, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", WrapKind(op, ErrRenderFailed, fmt.Errorf("status %d", resp.StatusCode))
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", WrapKind(op, ErrRenderFailed, err)
	}
	if len(out.Choices) == 0 {
		return "", NewKind(op, ErrRenderFailed)
	}
	post := strings.TrimSpace(out.Choices[0].Message.Content)
	if post == "" {
		return "", NewKind(op, ErrRenderFailed)
	}
	return post, nil
}

func userPrompt(m model.Milestone) string {
	return fmt.Sprintf(`Generate a short, fun, and professional celebration post for this GitHub milestone:

Repository: %s
Contributor: %s
Event Type: %s
Milestone: %d

Requirements:
- Keep it under 250 characters
- Make it energetic and celebratory
- Professional but fun tone
- Include relevant emojis
- Mention the specific achievement
- Suitable for LinkedIn, Discord, or Slack

Generate a single celebration post that captures the excitement of this achievement.`,
		m.Repository, m.Contributor, m.Category, m.Count)
}
