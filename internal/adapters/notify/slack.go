package notify

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/celebratehub/confetti/internal/domain/model"
)

// SlackChannel posts milestones to an incoming-webhook URL using the
// attachment message schema the dashboard has always emitted.
type SlackChannel struct {
	webhookURL string
	httpClient *http.Client
	now        func() time.Time
}

// NewSlackChannel creates a Slack channel. An empty URL is allowed; every
// Send then reports not-configured.
func NewSlackChannel(webhookURL string, opts ...ChannelOption) *SlackChannel {
	c := &SlackChannel{
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
func (c *SlackChannel) Name() string { return "slack" }

type slackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

type slackAttachment struct {
	Color  string       `json:"color"`
	Fields []slackField `json:"fields"`
	Footer string       `json:"footer"`
	TS     int64        `json:"ts"`
}

type slackMessage struct {
	Text        string            `json:"text"`
	Attachments []slackAttachment `json:"attachments"`
}

// Send implements Channel.
func (c *SlackChannel) Send(ctx context.Context, m model.Milestone, text string) error {
	const op = "notify.slack"
	if c.webhookURL == "" {
		return NewKind(op, ErrNotConfigured)
	}

	msg := slackMessage{
		Text: text,
		Attachments: []slackAttachment{{
			Color: "good",
			Fields: []slackField{
				{Title: "Repository", Value: m.Repository, Short: true},
				{Title: "Contributor", Value: m.Contributor, Short: true},
				{Title: "Milestone", Value: milestoneLabel(m), Short: true},
			},
			Footer: "CelebrateHub",
			TS:     c.now().Unix(),
		}},
	}
	return postJSON(ctx, c.httpClient, op, c.webhookURL, msg)
}

// milestoneLabel renders "10 pull request" style labels for message fields.
func milestoneLabel(m model.Milestone) string {
	label := strings.ReplaceAll(string(m.Category), "_", " ")
	return strconv.Itoa(m.Count) + " " + label
}
