package render

import (
	"context"

	"github.com/celebratehub/confetti/internal/domain/model"
	"github.com/celebratehub/confetti/pkg/logger"
	"github.com/celebratehub/confetti/pkg/metrics"
)

// fallbackRenderer tries primary and silently degrades to fallback. The
// fallback's own error (the template renderer has none) is still returned so
// miswiring cannot hide.
type fallbackRenderer struct {
	primary  Renderer
	fallback Renderer
	logger   logger.Logger
}

// WithFallback composes a renderer that never surfaces primary's failures to
// the pipeline.
func WithFallback(primary, fallback Renderer) Renderer {
	return &fallbackRenderer{
		primary:  primary,
		fallback: fallback,
		logger:   logger.Get().Named("render"),
	}
}

func (r *fallbackRenderer) Render(ctx context.Context, m model.Milestone) (string, error) {
	post, err := r.primary.Render(ctx, m)
	if err == nil {
		return post, nil
	}
	r.logger.Warn(ctx, "renderer failed, using template fallback", logger.Error(err))
	metrics.RecordRenderFallback()
	return r.fallback.Render(ctx, m)
}
