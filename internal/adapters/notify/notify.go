// Package notify delivers rendered milestones to chat-webhook channels.
//
// Fan-out is best effort: channels are attempted in parallel, each under its
// own timeout, and one channel's failure never blocks or fails another's.
// The publish report is the only surface a failure reaches; the inbound
// webhook response never depends on it.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/celebratehub/confetti/internal/domain/model"
	"github.com/celebratehub/confetti/pkg/logger"
	"github.com/celebratehub/confetti/pkg/metrics"
)

// Default fan-out configuration constants.
const (
	defaultChannelTimeout = 5 * time.Second
)

// Channel is one external notification target.
type Channel interface {
	Name() string
	Send(ctx context.Context, m model.Milestone, text string) error
}

// Outcome classifies one delivery attempt.
type Outcome string

const (
	OutcomeDelivered     Outcome = "delivered"
	OutcomeUnreachable   Outcome = "unreachable"
	OutcomeRejected      Outcome = "rejected"
	OutcomeNotConfigured Outcome = "not_configured"
)

// Attempt records the result for one (milestone, channel) pair. Attempts are
// ephemeral; they exist only inside the publish report.
type Attempt struct {
	Channel string
	Outcome Outcome
	Err     error
}

// Report collects the per-channel attempts of one publish call.
type Report struct {
	Attempts []Attempt
}

// Delivered counts successful attempts.
func (r Report) Delivered() int {
	n := 0
	for _, a := range r.Attempts {
		if a.Outcome == OutcomeDelivered {
			n++
		}
	}
	return n
}

// FanOut publishes milestones to a fixed set of channels.
type FanOut struct {
	channels []Channel
	timeout  time.Duration
	logger   logger.Logger
}

// NewFanOut creates a fan-out over channels with configuration options.
func NewFanOut(channels []Channel, opts ...FanOutOption) *FanOut {
	f := &FanOut{
		channels: channels,
		timeout:  defaultChannelTimeout,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.logger == nil {
		f.logger = logger.Get().Named("notify")
	}
	return f
}

// Publish attempts delivery to every channel in parallel and returns the
// per-channel report. It never returns an error.
func (f *FanOut) Publish(ctx context.Context, m model.Milestone, text string) Report {
	attempts := make([]Attempt, len(f.channels))

	var wg sync.WaitGroup
	for i, ch := range f.channels {
		wg.Add(1)
		go func(i int, ch Channel) {
			defer wg.Done()

			chCtx, cancel := context.WithTimeout(ctx, f.timeout)
			defer cancel()

			err := ch.Send(chCtx, m, text)
			attempts[i] = Attempt{
				Channel: ch.Name(),
				Outcome: classify(err),
				Err:     err,
			}
		}(i, ch)
	}
	wg.Wait()

	for _, a := range attempts {
		metrics.RecordNotification(a.Channel, string(a.Outcome))
		if a.Err != nil {
			f.logger.Warn(ctx, "channel delivery failed",
				logger.String("channel", a.Channel),
				logger.String("outcome", string(a.Outcome)),
				logger.Error(a.Err),
			)
			continue
		}
		f.logger.Info(ctx, "milestone sent to channel",
			logger.String("channel", a.Channel),
			logger.String("repository", m.Repository),
			logger.String("contributor", m.Contributor),
		)
	}

	return Report{Attempts: attempts}
}

func classify(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeDelivered
	case errors.Is(err, ErrNotConfigured):
		return OutcomeNotConfigured
	case errors.Is(err, ErrRejected):
		return OutcomeRejected
	default:
		return OutcomeUnreachable
	}
}

// postJSON performs the single POST shared by chat-webhook channels and
// classifies the failure mode: transport problems (including timeouts) are
// unreachable, non-2xx statuses are rejections.
func postJSON(ctx context.Context, client *http.Client, op, url string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return WrapKind(op, ErrRejected, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return WrapKind(op, ErrUnreachable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return WrapKind(op, ErrUnreachable, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return NewKind(op, ErrRejected)
	}
	return nil
}
