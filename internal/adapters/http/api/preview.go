package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/celebratehub/confetti/internal/domain/model"
)

// PreviewHandler renders celebration posts on demand, without persisting or
// notifying. The dashboard uses it to preview custom posts.
type PreviewHandler struct {
	deps Dependencies
}

// NewPreviewHandler creates a new preview handler.
func NewPreviewHandler(deps Dependencies) *PreviewHandler {
	return &PreviewHandler{deps: deps}
}

// previewRequest carries the milestone fields needed for phrasing.
type previewRequest struct {
	Repository  string `json:"repository"`
	Contributor string `json:"contributor"`
	Category    string `json:"type"`
	Count       int    `json:"count"`
}

func (p previewRequest) validate() error {
	switch {
	case strings.TrimSpace(p.Repository) == "":
		return NewKind("api.preview", ErrBadRequest)
	case strings.TrimSpace(p.Contributor) == "":
		return NewKind("api.preview", ErrBadRequest)
	case strings.TrimSpace(p.Category) == "":
		return NewKind("api.preview", ErrBadRequest)
	case p.Count <= 0:
		return NewKind("api.preview", ErrBadRequest)
	}
	return nil
}

type previewResponse struct {
	Success         bool   `json:"success"`
	CelebrationPost string `json:"celebration_post"`
}

// HandlePreview handles POST /celebrations/preview.
func (h *PreviewHandler) HandlePreview(w http.ResponseWriter, r *http.Request) {
	const op = "api.preview"

	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req previewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	m := model.Milestone{
		Repository:  req.Repository,
		Contributor: req.Contributor,
		Category:    model.Category(req.Category),
		Count:       req.Count,
		Threshold:   req.Count,
	}
	post, err := h.deps.RenderPreview(r.Context(), m)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, previewResponse{Success: true, CelebrationPost: post})
}
