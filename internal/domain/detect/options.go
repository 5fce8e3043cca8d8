package detect

import (
	"time"

	"github.com/celebratehub/confetti/pkg/logger"
)

// Option applies a configuration option to the Detector.
type Option func(*Detector)

// WithDirectory enables best-effort user-id resolution for emitted
// milestones.
func WithDirectory(dir UserDirectory) Option {
	return func(d *Detector) {
		d.directory = dir
	}
}

// WithMaxAttempts bounds the load-modify-CAS retry cycle.
func WithMaxAttempts(n int) Option {
	return func(d *Detector) {
		if n > 0 {
			d.maxAttempts = n
		}
	}
}

// WithRetryBackoff sets the base backoff between conflicting attempts.
func WithRetryBackoff(backoff time.Duration) Option {
	return func(d *Detector) {
		if backoff > 0 {
			d.retryBackoff = backoff
		}
	}
}

// WithLogger sets a custom logger for the detector.
func WithLogger(l logger.Logger) Option {
	return func(d *Detector) {
		if l != nil {
			d.logger = l
		}
	}
}
