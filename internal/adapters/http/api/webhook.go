package api

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/celebratehub/confetti/internal/domain/detect"
	"github.com/celebratehub/confetti/internal/domain/model"
	"github.com/celebratehub/confetti/pkg/metrics"
)

// Provider header names for GitHub webhook deliveries.
const (
	headerEvent    = "X-GitHub-Event"
	headerDelivery = "X-GitHub-Delivery"

	maxWebhookBody = 10 << 20 // GitHub caps payloads well below this
)

// WebhookHandler is the stateless ingress for webhook deliveries.
type WebhookHandler struct {
	deps Dependencies
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(deps Dependencies) *WebhookHandler {
	return &WebhookHandler{deps: deps}
}

// HandleWebhook handles POST /webhook.
//
// The sender only needs acknowledgement that the delivery was accepted, so
// the response is 200 whether or not a milestone fired and whatever happened
// to rendering or channel delivery. 4xx is reserved for malformed requests
// and 5xx for counter-store unavailability, the one case worth redelivering.
func (h *WebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	const op = "api.webhook"

	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	if ct := r.Header.Get("Content-Type"); ct != "" {
		mediaType, _, err := mime.ParseMediaType(ct)
		if err != nil || mediaType != "application/json" {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrUnsupportedContentType))
			return
		}
	}
	eventType := r.Header.Get(headerEvent)
	if eventType == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrMissingEventHeader))
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	ev, err := model.Normalize(eventType, r.Header.Get(headerDelivery), body, time.Now())
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	metrics.RecordWebhookReceived(ev.Kind.String())

	result, err := h.deps.ProcessEvent(r.Context(), ev)
	if err != nil {
		if errors.Is(err, detect.ErrCountersUnavailable) {
			writeError(w, http.StatusServiceUnavailable, "store_unavailable", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}

	switch {
	case result.DuplicateDelivery:
		writeJSON(w, http.StatusOK, webhookResponse{
			Success: true,
			Message: "Duplicate delivery ignored",
		})
	case result.Milestone != nil:
		writeJSON(w, http.StatusOK, webhookResponse{
			Success:         true,
			Milestone:       result.Milestone,
			CelebrationPost: result.CelebrationPost,
		})
	default:
		writeJSON(w, http.StatusOK, webhookResponse{
			Success: true,
			Message: "Event processed, no milestone reached",
		})
	}
}
