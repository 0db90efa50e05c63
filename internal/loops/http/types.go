package http

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/loops-hq/loops-backend/internal/loops/domain"
	"github.com/loops-hq/loops-backend/internal/loops/render"
	"github.com/loops-hq/loops-backend/internal/loops/service"
)

// LoopService is the behaviour the loop handlers depend on.
type LoopService interface {
	Create(ctx context.Context, req domain.CreateLoopRequest) (*domain.Loop, error)
	Open(ctx context.Context, req domain.TransitionRequest) (*domain.Loop, error)
	Close(ctx context.Context, req domain.TransitionRequest) (*domain.Loop, error)
	AssignTo(ctx context.Context, req domain.AssignRequest) (*domain.Loop, error)
	AddNote(ctx context.Context, viewerID, loopID uuid.UUID, body string) (*domain.Note, error)
	Notes(ctx context.Context, viewerID, loopID uuid.UUID, order domain.NoteOrder) ([]domain.Note, error)
	EdgeNote(ctx context.Context, viewerID, loopID uuid.UUID, order domain.NoteOrder) (*domain.Note, error)
	AddNugget(ctx context.Context, viewerID, loopID uuid.UUID, label string) (*domain.Nugget, error)
	RemoveNugget(ctx context.Context, viewerID, loopID uuid.UUID, label string) error
	Nuggets(ctx context.Context, viewerID, loopID uuid.UUID) ([]domain.Nugget, error)
	Get(ctx context.Context, viewerID, loopID uuid.UUID) (*domain.LoopDetail, error)
	List(ctx context.Context, f domain.ListFilter) ([]domain.Loop, error)
	Dashboard(ctx context.Context, userID uuid.UUID) (*domain.Summary, error)
	ProjectForViewer(ctx context.Context, viewerID uuid.UUID, publicID string) (uuid.UUID, error)
	Metrics() *service.Metrics
}

// EventSubscriber streams loop events of one project.
type EventSubscriber interface {
	Subscribe(ctx context.Context, projectID uuid.UUID) (<-chan domain.LoopEvent, func() error, error)
}

// Handler handles HTTP requests for loops
type Handler struct {
	svc    LoopService
	events EventSubscriber
	// body renders note bodies; description renders loop descriptions with hard line breaks.
	body        render.Renderer
	description render.Renderer
	keepAlive   time.Duration
}

// New creates a new Handler. events may be nil, in which case the stream endpoint is unavailable.
func New(svc LoopService, events EventSubscriber) *Handler {
	return &Handler{
		svc:         svc,
		events:      events,
		body:        render.NewMarkdown(),
		description: render.NewMarkdownWithBreaks(),
		keepAlive:   15 * time.Second,
	}
}

type createLoopReq struct {
	ProjectID  string  `json:"project_id"`
	Name       string  `json:"name"`
	Body       string  `json:"body"`
	AssigneeID *string `json:"assignee_id"`
}

type transitionReq struct {
	Note string `json:"note"`
}

type assignReq struct {
	// null or omitted unassigns
	AssigneeID *string `json:"assignee_id"`
}

type noteReq struct {
	Body string `json:"body"`
}

type nuggetReq struct {
	Label string `json:"label"`
}

type loopView struct {
	ID                 uuid.UUID  `json:"id"`
	ProjectID          uuid.UUID  `json:"project_id"`
	Name               string     `json:"name"`
	Status             string     `json:"status"`
	StatusLabel        string     `json:"status_label"`
	Open               bool       `json:"open"`
	Description        string     `json:"description"`
	DisplayDescription string     `json:"display_description"`
	AssigneeID         *uuid.UUID `json:"assignee_id"`
	Nuggets            []string   `json:"nuggets"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

type noteView struct {
	ID          uuid.UUID  `json:"id"`
	AuthorID    *uuid.UUID `json:"author_id"`
	AuthorName  string     `json:"author_name,omitempty"`
	Body        string     `json:"body"`
	DisplayBody string     `json:"display_body"`
	CreatedAt   time.Time  `json:"created_at"`
}

type loopDetailView struct {
	loopView
	OpenedBy   *uuid.UUID `json:"opened_by"`
	FirstNote  *noteView  `json:"first_note"`
	NewestNote *noteView  `json:"newest_note"`
	Notes      []noteView `json:"notes"`
}

type summaryView struct {
	UserID      uuid.UUID  `json:"user_id"`
	OpenCount   int        `json:"open_count"`
	ClosedCount int        `json:"closed_count"`
	OpenLoops   []loopView `json:"open_loops"`
	GeneratedAt time.Time  `json:"generated_at"`
}
