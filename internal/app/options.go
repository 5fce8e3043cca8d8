package app

import (
	"github.com/celebratehub/confetti/internal/adapters/notify"
	"github.com/celebratehub/confetti/internal/adapters/store"
	"github.com/celebratehub/confetti/internal/domain/dedupe"
	"github.com/celebratehub/confetti/internal/domain/detect"
	"github.com/celebratehub/confetti/internal/domain/render"
	"github.com/celebratehub/confetti/pkg/logger"
)

// Option applies a configuration option to the Service. Options mainly exist
// so tests can swap components for fakes; production wiring comes from the
// Config.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithCounterStore injects a counter store.
func WithCounterStore(cs detect.CounterStore) Option {
	return func(s *Service) {
		s.counters = cs
	}
}

// WithMilestoneStore injects a milestone store.
func WithMilestoneStore(ms store.MilestoneStore) Option {
	return func(s *Service) {
		s.milestones = ms
	}
}

// WithDirectory injects a user directory.
func WithDirectory(dir store.UserDirectory) Option {
	return func(s *Service) {
		s.directory = dir
	}
}

// WithRenderer injects a renderer, bypassing the OpenAI/template pair.
func WithRenderer(r render.Renderer) Option {
	return func(s *Service) {
		s.renderer = r
	}
}

// WithFanOut injects a notification fan-out.
func WithFanOut(f *notify.FanOut) Option {
	return func(s *Service) {
		s.fanout = f
	}
}

// WithDeduper injects a delivery-id deduper.
func WithDeduper(d dedupe.Deduper) Option {
	return func(s *Service) {
		s.deduper = d
	}
}
