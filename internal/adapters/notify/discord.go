package notify

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/celebratehub/confetti/internal/domain/model"
)

// discordEmbedColor is the green the dashboard uses for celebration embeds.
const discordEmbedColor = 0x00ff00

// DiscordChannel posts milestones to a Discord webhook using the embed
// message schema.
type DiscordChannel struct {
	webhookURL string
	httpClient *http.Client
	now        func() time.Time
}

// NewDiscordChannel creates a Discord channel. An empty URL is allowed;
// every Send then reports not-configured.
func NewDiscordChannel(webhookURL string, opts ...ChannelOption) *DiscordChannel {
	c := &DiscordChannel{
		webhookURL: strings.TrimSpace(webhookURL),
		httpClient: &http.Client{},
		now:        time.Now,
	}
	cfg := channelConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.httpClient != nil {
		c.httpClient = cfg.httpClient
	}
	if cfg.now != nil {
		c.now = cfg.now
	}
	return c
}

// Name implements Channel.
func (c *DiscordChannel) Name() string { return "discord" }

type discordField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type discordFooter struct {
	Text string `json:"text"`
}

type discordEmbed struct {
	Title     string         `json:"title"`
	Color     int            `json:"color"`
	Fields    []discordField `json:"fields"`
	Footer    discordFooter  `json:"footer"`
	Timestamp string         `json:"timestamp"`
}

type discordMessage struct {
	Content string         `json:"content"`
	Embeds  []discordEmbed `json:"embeds"`
}

// Send implements Channel.
func (c *DiscordChannel) Send(ctx context.Context, m model.Milestone, text string) error {
	const op = "notify.discord"
	if c.webhookURL == "" {
		return NewKind(op, ErrNotConfigured)
	}

	msg := discordMessage{
		Content: text,
		Embeds: []discordEmbed{{
			Title: "🎉 New Milestone Achieved!",
			Color: discordEmbedColor,
			Fields: []discordField{
				{Name: "Repository", Value: m.Repository, Inline: true},
				{Name: "Contributor", Value: m.Contributor, Inline: true},
				{Name: "Milestone", Value: milestoneLabel(m), Inline: true},
			},
			Footer:    discordFooter{Text: "CelebrateHub"},
			Timestamp: c.now().UTC().Format(time.RFC3339),
		}},
	}
	return postJSON(ctx, c.httpClient, op, c.webhookURL, msg)
}
