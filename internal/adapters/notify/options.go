package notify

import (
	"net/http"
	"time"

	"github.com/celebratehub/confetti/pkg/logger"
)

// FanOutOption applies a configuration option to the FanOut.
type FanOutOption func(*FanOut)

// WithChannelTimeout bounds each channel's delivery attempt so a stalled
// channel cannot hold the pipeline past a fixed ceiling.
func WithChannelTimeout(d time.Duration) FanOutOption {
	return func(f *FanOut) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithLogger sets a custom logger for the fan-out.
func WithLogger(l logger.Logger) FanOutOption {
	return func(f *FanOut) {
		if l != nil {
			f.logger = l
		}
	}
}

// channelConfig collects tunables shared by the chat-webhook channels.
type channelConfig struct {
	httpClient *http.Client
	now        func() time.Time
}

// ChannelOption applies a configuration option to a chat-webhook channel.
type ChannelOption func(*channelConfig)

// WithChannelHTTPClient sets a custom HTTP client.
func WithChannelHTTPClient(c *http.Client) ChannelOption {
	return func(cfg *channelConfig) {
		cfg.httpClient = c
	}
}

// WithChannelClock overrides the timestamp source, mainly for tests.
func WithChannelClock(now func() time.Time) ChannelOption {
	return func(cfg *channelConfig) {
		cfg.now = now
	}
}
