package http

import (
	"context"

	"github.com/loops-hq/loops-backend/internal/logging"
	"github.com/loops-hq/loops-backend/internal/loops/domain"
	"github.com/loops-hq/loops-backend/internal/loops/render"
)

func (h *Handler) renderOrEmpty(ctx context.Context, r render.Renderer, src string) string {
	if src == "" {
		return ""
	}
	out, err := r.Render(src)
	if err != nil {
		logging.NewLogger(ctx).LogWarn("loops.render", "markdown render failed", "error", err)
		return ""
	}
	return out
}

func (h *Handler) loopView(ctx context.Context, l *domain.Loop) loopView {
	nuggets := l.Nuggets
	if nuggets == nil {
		nuggets = []string{}
	}
	return loopView{
		ID:                 l.ID,
		ProjectID:          l.ProjectID,
		Name:               l.Name,
		Status:             string(l.Status),
		StatusLabel:        l.DisplayStatus(),
		Open:               l.IsOpen(),
		Description:        l.Description,
		DisplayDescription: h.renderOrEmpty(ctx, h.description, l.Description),
		AssigneeID:         l.UserID,
		Nuggets:            nuggets,
		CreatedAt:          l.CreatedAt,
		UpdatedAt:          l.UpdatedAt,
	}
}

func (h *Handler) loopViews(ctx context.Context, loops []domain.Loop) []loopView {
	out := make([]loopView, 0, len(loops))
	for i := range loops {
		out = append(out, h.loopView(ctx, &loops[i]))
	}
	return out
}

func (h *Handler) noteView(ctx context.Context, n *domain.Note) noteView {
	return noteView{
		ID:          n.ID,
		AuthorID:    n.AuthorID,
		AuthorName:  n.AuthorName,
		Body:        n.Body,
		DisplayBody: h.renderOrEmpty(ctx, h.body, n.Body),
		CreatedAt:   n.CreatedAt,
	}
}

func (h *Handler) noteViews(ctx context.Context, notes []domain.Note) []noteView {
	out := make([]noteView, 0, len(notes))
	for i := range notes {
		out = append(out, h.noteView(ctx, &notes[i]))
	}
	return out
}

// detailView fills the note-derived fields; they stay null for a loop without notes.
func (h *Handler) detailView(ctx context.Context, d *domain.LoopDetail) loopDetailView {
	v := loopDetailView{
		loopView: h.loopView(ctx, &d.Loop),
		Notes:    h.noteViews(ctx, d.Notes),
	}

	if by, err := d.OpenedBy(); err == nil {
		v.OpenedBy = by
	}
	if first, err := d.EarliestNote(); err == nil {
		fv := h.noteView(ctx, first)
		v.FirstNote = &fv
	}
	if newest, err := d.NewestNote(); err == nil {
		nv := h.noteView(ctx, newest)
		v.NewestNote = &nv
	}
	return v
}

func (h *Handler) summaryView(ctx context.Context, s *domain.Summary) summaryView {
	return summaryView{
		UserID:      s.UserID,
		OpenCount:   s.OpenCount,
		ClosedCount: s.ClosedCount,
		OpenLoops:   h.loopViews(ctx, s.OpenLoops),
		GeneratedAt: s.GeneratedAt,
	}
}
