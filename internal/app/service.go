// Package app wires the webhook pipeline behind the HTTP API: detector,
// stores, renderer, and notification fan-out.
package app

import (
	"context"
	"sync"
	"time"

	"github.com/celebratehub/confetti/internal/adapters/notify"
	"github.com/celebratehub/confetti/internal/adapters/store"
	"github.com/celebratehub/confetti/internal/config"
	"github.com/celebratehub/confetti/internal/domain/dedupe"
	"github.com/celebratehub/confetti/internal/domain/detect"
	"github.com/celebratehub/confetti/internal/domain/model"
	"github.com/celebratehub/confetti/internal/domain/render"
	"github.com/celebratehub/confetti/internal/domain/thresholds"
	"github.com/celebratehub/confetti/pkg/logger"
	"github.com/celebratehub/confetti/pkg/metrics"
)

// Service implements the API dependencies for the celebration pipeline.
type Service struct {
	mu sync.RWMutex

	cfg *config.Config

	// Core components; any may be injected via options, the rest are built
	// from config at Start.
	counters   detect.CounterStore
	milestones store.MilestoneStore
	directory  store.UserDirectory
	detector   *detect.Detector
	renderer   render.Renderer
	fanout     *notify.FanOut
	deduper    dedupe.Deduper

	pg *store.PostgresStore // retained for Close when the postgres backend is active

	started bool

	logger logger.Logger
}

// New constructs a Service from configuration plus options.
func New(cfg *config.Config, opts ...Option) *Service {
	s := &Service{cfg: cfg}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start builds the remaining components and marks the service ready.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("app")
	}

	table := thresholds.Defaults()
	if len(s.cfg.Thresholds) > 0 {
		byCategory := make(map[model.Category][]int, len(s.cfg.Thresholds))
		for cat, values := range s.cfg.Thresholds {
			byCategory[model.Category(cat)] = values
		}
		t, err := thresholds.New(byCategory)
		if err != nil {
			return err
		}
		table = t
	}

	if err := s.buildStores(ctx); err != nil {
		return err
	}

	if s.detector == nil {
		s.detector = detect.NewDetector(s.counters, table,
			detect.WithDirectory(s.directory),
			detect.WithMaxAttempts(s.cfg.DetectMaxAttempts),
			detect.WithRetryBackoff(time.Duration(s.cfg.DetectRetryBackoffMS)*time.Millisecond),
			detect.WithLogger(s.logger.Named("detect")),
		)
	}

	if s.renderer == nil {
		primary := render.NewOpenAIRenderer(s.cfg.OpenAIAPIKey,
			render.WithModel(s.cfg.OpenAIModel),
			render.WithBaseURL(s.cfg.OpenAIBaseURL),
			render.WithTimeout(time.Duration(s.cfg.RenderTimeoutMS)*time.Millisecond),
		)
		s.renderer = render.WithFallback(primary, render.NewTemplateRenderer())
	}

	if s.fanout == nil {
		var channels []notify.Channel
		if s.cfg.SlackWebhookURL != "" {
			channels = append(channels, notify.NewSlackChannel(s.cfg.SlackWebhookURL))
		}
		if s.cfg.DiscordWebhookURL != "" {
			channels = append(channels, notify.NewDiscordChannel(s.cfg.DiscordWebhookURL))
		}
		s.fanout = notify.NewFanOut(channels,
			notify.WithChannelTimeout(time.Duration(s.cfg.ChannelTimeoutMS)*time.Millisecond),
			notify.WithLogger(s.logger.Named("notify")),
		)
	}

	if s.deduper == nil && s.cfg.DedupeDeliveries {
		s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.cfg.DedupeSize))
	}

	s.started = true
	s.logger.Info(ctx, "celebration pipeline started",
		logger.String("store", s.cfg.Store),
		logger.Bool("dedupe_deliveries", s.deduper != nil),
	)
	return nil
}

func (s *Service) buildStores(ctx context.Context) error {
	if s.cfg.Store == "postgres" && (s.counters == nil || s.milestones == nil || s.directory == nil) {
		pg, err := store.NewPostgresStore(s.cfg.PostgresDSN)
		if err != nil {
			return err
		}
		s.pg = pg
		if s.counters == nil {
			s.counters = pg
		}
		if s.milestones == nil {
			s.milestones = pg
		}
		if s.directory == nil {
			s.directory = pg
		}
		return nil
	}
	if s.counters == nil {
		s.counters = store.NewMemoryCounterStore(store.WithShardCount(s.cfg.ShardCount))
	}
	if s.milestones == nil {
		s.milestones = store.NewMemoryMilestoneStore()
	}
	if s.directory == nil {
		s.directory = store.NewMemoryDirectory(nil)
	}
	return nil
}

// Stop shuts the service down.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	if s.pg != nil {
		_ = s.pg.Close()
	}
	s.started = false
	s.logger.Info(context.Background(), "celebration pipeline stopped")
}

// ProcessEvent drives one normalized event through the pipeline:
// dedupe -> detect -> render -> append -> fan-out.
//
// Only counter-store unavailability is returned as an error; rendering and
// channel failures degrade inside the call. Writes that completed before a
// dropped connection stand; the milestone-id layer makes a retried delivery
// converge instead of double-recording.
func (s *Service) ProcessEvent(ctx context.Context, ev model.Event) (model.PipelineResult, error) {
	if s.deduper != nil && ev.DeliveryID != "" {
		if s.deduper.SeenAndRecord(ctx, ev.DeliveryID) {
			metrics.RecordDeliveryDuplicate()
			s.logger.Debug(ctx, "duplicate delivery skipped",
				logger.String("delivery_id", ev.DeliveryID))
			return model.PipelineResult{DuplicateDelivery: true}, nil
		}
	}

	milestone, err := s.detector.Detect(ctx, ev)
	if err != nil {
		// Let the sender retry the whole delivery.
		if s.deduper != nil && ev.DeliveryID != "" {
			s.deduper.Unrecord(ctx, ev.DeliveryID)
		}
		return model.PipelineResult{}, err
	}
	if milestone == nil {
		return model.PipelineResult{}, nil
	}

	start := time.Now()
	post, err := s.renderer.Render(ctx, *milestone)
	if err != nil {
		// Only reachable with an injected renderer that has no fallback.
		s.logger.Warn(ctx, "render failed without fallback", logger.Error(err))
		post = ""
	}
	metrics.RecordRenderLatency(float64(time.Since(start).Milliseconds()))
	milestone.CelebrationPost = post

	created, err := s.milestones.Append(ctx, *milestone)
	if err != nil {
		// The counter update already stands; losing the milestone row is
		// recoverable on redelivery only if the threshold is re-observed, so
		// log loudly but keep the acknowledgement path intact.
		s.logger.Error(ctx, "milestone append failed", logger.Error(err))
		return model.PipelineResult{}, nil
	}
	if !created {
		metrics.RecordDuplicateMilestone()
		s.logger.Debug(ctx, "milestone already recorded",
			logger.String("id", milestone.ID))
		return model.PipelineResult{}, nil
	}

	s.fanout.Publish(ctx, *milestone, post)

	return model.PipelineResult{Milestone: milestone, CelebrationPost: post}, nil
}

// ListMilestones returns stored milestones newest-first.
func (s *Service) ListMilestones(ctx context.Context, contributor, repository string, limit int) ([]model.Milestone, error) {
	if limit <= 0 || limit > s.cfg.MaxListLimit {
		limit = s.cfg.MaxListLimit
	}
	return s.milestones.List(ctx, store.MilestoneFilter{
		Contributor: contributor,
		Repository:  repository,
		Limit:       limit,
	})
}

// MilestoneStats aggregates totals for the dashboard.
func (s *Service) MilestoneStats(ctx context.Context) (model.MilestoneStats, error) {
	return s.milestones.Stats(ctx)
}

// RenderPreview phrases a milestone without persisting or notifying.
func (s *Service) RenderPreview(ctx context.Context, m model.Milestone) (string, error) {
	return s.renderer.Render(ctx, m)
}
