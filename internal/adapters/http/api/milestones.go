package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/celebratehub/confetti/internal/domain/model"
)

// MilestonesHandler serves the dashboard's read-only projections over the
// milestone store.
type MilestonesHandler struct {
	deps Dependencies
}

// NewMilestonesHandler creates a new milestones handler.
func NewMilestonesHandler(deps Dependencies) *MilestonesHandler {
	return &MilestonesHandler{deps: deps}
}

// milestonesResponse mirrors the list shape the dashboard consumes.
type milestonesResponse struct {
	Milestones []model.Milestone `json:"milestones"`
}

// HandleMilestones routes GET /milestones and its subpaths:
//
//	/milestones                      -> all, newest first
//	/milestones/contributor/{login}  -> by contributor
//	/milestones/repository/{owner}/{name} -> by repository
//	/milestones/stats                -> aggregate statistics
func (h *MilestonesHandler) HandleMilestones(w http.ResponseWriter, r *http.Request) {
	const op = "api.milestones"

	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/milestones"), "/")

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		limit = n
	}

	var contributor, repository string
	switch {
	case rest == "":
	case rest == "stats":
		h.handleStats(w, r)
		return
	case strings.HasPrefix(rest, "contributor/"):
		contributor = strings.TrimPrefix(rest, "contributor/")
		if contributor == "" || strings.Contains(contributor, "/") {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
	case strings.HasPrefix(rest, "repository/"):
		// Repository names contain a slash ("owner/name"), so the remainder
		// of the path is taken whole.
		repository = strings.TrimPrefix(rest, "repository/")
		if repository == "" || strings.Count(repository, "/") != 1 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
	default:
		http.NotFound(w, r)
		return
	}

	milestones, err := h.deps.ListMilestones(r.Context(), contributor, repository, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	if milestones == nil {
		milestones = []model.Milestone{}
	}
	writeJSON(w, http.StatusOK, milestonesResponse{Milestones: milestones})
}

func (h *MilestonesHandler) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.deps.MilestoneStats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
