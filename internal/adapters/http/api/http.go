// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/celebratehub/confetti/internal/domain/model"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// ProcessEvent drives one normalized delivery through the pipeline.
	ProcessEvent(ctx context.Context, ev model.Event) (model.PipelineResult, error)

	// Read operations expose the milestone store to the dashboard.
	ListMilestones(ctx context.Context, contributor, repository string, limit int) ([]model.Milestone, error)
	MilestoneStats(ctx context.Context) (model.MilestoneStats, error)

	// RenderPreview phrases a milestone without persisting it.
	RenderPreview(ctx context.Context, m model.Milestone) (string, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	webhookHandler    *WebhookHandler
	milestonesHandler *MilestonesHandler
	previewHandler    *PreviewHandler
	healthHandler     *HealthHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		webhookHandler:    NewWebhookHandler(deps),
		milestonesHandler: NewMilestonesHandler(deps),
		previewHandler:    NewPreviewHandler(deps),
		healthHandler:     NewHealthHandler(),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/webhook", MetricsMiddleware(s.webhookHandler.HandleWebhook, "webhook"))
	mux.HandleFunc("/milestones", MetricsMiddleware(s.milestonesHandler.HandleMilestones, "milestones"))
	mux.HandleFunc("/milestones/", MetricsMiddleware(s.milestonesHandler.HandleMilestones, "milestones"))
	mux.HandleFunc("/celebrations/preview", MetricsMiddleware(s.previewHandler.HandlePreview, "preview"))
	mux.HandleFunc("/healthz", s.healthHandler.HandleHealth)
	mux.Handle("/metrics", s.healthHandler.MetricsHandler())
}

// webhookResponse is the acknowledgement returned to the webhook sender.
type webhookResponse struct {
	Success         bool             `json:"success"`
	Milestone       *model.Milestone `json:"milestone,omitempty"`
	CelebrationPost string           `json:"celebration_post,omitempty"`
	Message         string           `json:"message,omitempty"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
