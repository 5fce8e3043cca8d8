// Package render turns milestones into human-readable celebration text.
//
// The pipeline treats text generation as a capability that may fail: the
// LLM-backed renderer returns errors, and the template renderer is the
// deterministic fallback that never does.
package render

import (
	"context"
	"fmt"

	"github.com/celebratehub/confetti/internal/domain/model"
)

// Renderer produces a celebration post for a milestone.
type Renderer interface {
	Render(ctx context.Context, m model.Milestone) (string, error)
}

// TemplateRenderer is the deterministic per-category fallback. It never
// fails.
type TemplateRenderer struct{}

// NewTemplateRenderer creates the fallback renderer.
func NewTemplateRenderer() *TemplateRenderer {
	return &TemplateRenderer{}
}

// Render formats the per-category celebration template.
func (r *TemplateRenderer) Render(_ context.Context, m model.Milestone) (string, error) {
	switch m.Category {
	case model.CategoryPullRequest:
		return fmt.Sprintf("🎉 Amazing! %s just merged their %d%s PR in %s! 🚀",
			m.Contributor, m.Count, ordinalSuffix(m.Count), m.Repository), nil
	case model.CategoryStar:
		return fmt.Sprintf("🌟 Incredible! %s just hit %d stars! Thanks to the amazing community! ⭐",
			m.Repository, m.Count), nil
	case model.CategoryIssue:
		return fmt.Sprintf("🐛 Great work! %s opened their %d%s issue in %s! 🐛",
			m.Contributor, m.Count, ordinalSuffix(m.Count), m.Repository), nil
	case model.CategoryCommit:
		return fmt.Sprintf("💻 Awesome! %s just made their %d%s commit in %s! 💻",
			m.Contributor, m.Count, ordinalSuffix(m.Count), m.Repository), nil
	case model.CategoryContributionDays:
		return fmt.Sprintf("📅 Fantastic! %s has been contributing to %s for %d days straight! 📅",
			m.Contributor, m.Repository, m.Count), nil
	default:
		return fmt.Sprintf("🎉 Congratulations to %s for reaching %d %s in %s! 🎉",
			m.Contributor, m.Count, m.Category, m.Repository), nil
	}
}

// ordinalSuffix matches the dashboard's suffix rule: only the literal counts
// 1, 2, and 3 get st/nd/rd, everything else gets th.
func ordinalSuffix(count int) string {
	switch count {
	case 1:
		return "st"
	case 2:
		return "nd"
	case 3:
		return "rd"
	default:
		return "th"
	}
}
