package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/loops-hq/loops-backend/internal/logging"
	"github.com/loops-hq/loops-backend/internal/loops/domain"
	"github.com/loops-hq/loops-backend/internal/loops/repository"
	projdomain "github.com/loops-hq/loops-backend/internal/projects/domain"
)

const dashboardLoopLimit = 50

// ProjectResolver finds a live project owned by the user.
type ProjectResolver interface {
	GetByPublicID(ctx context.Context, userID uuid.UUID, publicID string) (*projdomain.Project, error)
}

// EventPublisher fans loop events out to subscribers.
type EventPublisher interface {
	Publish(ctx context.Context, ev domain.LoopEvent) error
}

// SummaryCache caches per-user dashboards.
type SummaryCache interface {
	Get(ctx context.Context, userID uuid.UUID) (*domain.Summary, bool, error)
	Set(ctx context.Context, s *domain.Summary) error
	Invalidate(ctx context.Context, userIDs ...uuid.UUID) error
}

// LoopService handles loop business logic
type LoopService struct {
	store    *repository.Store
	notes    domain.NoteCollection
	nuggets  domain.TagCollection
	projects ProjectResolver
	events   EventPublisher
	cache    SummaryCache
	metrics  *Metrics
	now      func() time.Time
}

type Option func(*LoopService)

// WithEvents publishes every mutation through p.
func WithEvents(p EventPublisher) Option {
	return func(s *LoopService) { s.events = p }
}

// WithSummaryCache caches dashboards in c.
func WithSummaryCache(c SummaryCache) Option {
	return func(s *LoopService) { s.cache = c }
}

// NewLoopService creates a new loop service
func NewLoopService(store *repository.Store, projects ProjectResolver, opts ...Option) *LoopService {
	s := &LoopService{
		store:    store,
		notes:    store.Notes,
		nuggets:  store.Nuggets,
		projects: projects,
		metrics:  &Metrics{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *LoopService) Metrics() *Metrics {
	return s.metrics
}

// ProjectForViewer resolves a project public id to its id for the owner.
func (s *LoopService) ProjectForViewer(ctx context.Context, viewerID uuid.UUID, publicID string) (uuid.UUID, error) {
	p, err := s.projects.GetByPublicID(ctx, viewerID, publicID)
	if err != nil {
		if errors.Is(err, projdomain.ErrNotFound) {
			return uuid.Nil, domain.ErrProjectNotFound
		}
		return uuid.Nil, err
	}
	return p.ID, nil
}

// Create inserts an open loop in the caller's project. A non-empty body becomes both the
// description and the opening note.
func (s *LoopService) Create(ctx context.Context, req domain.CreateLoopRequest) (*domain.Loop, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	projectID, err := s.ProjectForViewer(ctx, req.UserID, req.ProjectPublicID)
	if err != nil {
		return nil, err
	}

	body := req.Body
	if strings.TrimSpace(body) == "" {
		body = ""
	}

	l := &domain.Loop{
		ProjectID:   projectID,
		Name:        name,
		Status:      domain.StatusOpen,
		Description: body,
	}
	l.AssignTo(req.AssigneeID)

	err = s.store.WithTx(ctx, func(tx *repository.Store) error {
		if err := tx.Loops.Create(ctx, l); err != nil {
			return err
		}
		if body == "" {
			return nil
		}
		author := req.UserID
		return tx.Notes.AddNote(ctx, l.ID, &domain.Note{AuthorID: &author, Body: body})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.created.Add(1)
	s.afterMutation(ctx, domain.EventLoopCreated, l, &req.UserID, req.UserID, l.UserID)
	return l, nil
}

// Open reopens a loop. A note, when given, is appended and replaces the description.
// A blank note is rejected with ErrInvalidNote.
func (s *LoopService) Open(ctx context.Context, req domain.TransitionRequest) (*domain.Loop, error) {
	l, err := s.transition(ctx, req, func(l *domain.Loop, note *domain.Note) { l.Open(note) })
	if err != nil {
		return nil, err
	}
	s.metrics.opened.Add(1)
	s.afterMutation(ctx, domain.EventLoopOpened, l, actor(req), req.ViewerID, l.UserID)
	return l, nil
}

// Close closes a loop. A note, when given, is appended; the description never changes.
func (s *LoopService) Close(ctx context.Context, req domain.TransitionRequest) (*domain.Loop, error) {
	l, err := s.transition(ctx, req, func(l *domain.Loop, _ *domain.Note) { l.Close() })
	if err != nil {
		return nil, err
	}
	s.metrics.closed.Add(1)
	s.afterMutation(ctx, domain.EventLoopClosed, l, actor(req), req.ViewerID, l.UserID)
	return l, nil
}

func (s *LoopService) transition(ctx context.Context, req domain.TransitionRequest, apply func(*domain.Loop, *domain.Note)) (*domain.Loop, error) {
	note := req.Note
	if note != nil && strings.TrimSpace(note.Body) == "" {
		return nil, domain.ErrInvalidNote
	}

	var out *domain.Loop
	err := s.store.WithTx(ctx, func(tx *repository.Store) error {
		l, err := tx.Loops.LockVisible(ctx, req.LoopID, req.ViewerID)
		if err != nil {
			return err
		}
		if note != nil {
			if note.AuthorID == nil {
				note.AuthorID = req.Author
			}
			if err := tx.Notes.AddNote(ctx, l.ID, note); err != nil {
				return err
			}
		}
		apply(l, note)
		if err := tx.Loops.SaveStatus(ctx, l); err != nil {
			return err
		}
		out = l
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// AssignTo sets or clears the assignee with a single update.
func (s *LoopService) AssignTo(ctx context.Context, req domain.AssignRequest) (*domain.Loop, error) {
	var (
		out      *domain.Loop
		previous *uuid.UUID
	)
	err := s.store.WithTx(ctx, func(tx *repository.Store) error {
		l, err := tx.Loops.LockVisible(ctx, req.LoopID, req.ViewerID)
		if err != nil {
			return err
		}
		previous = l.UserID
		l.AssignTo(req.AssigneeID)
		if err := tx.Loops.Assign(ctx, l); err != nil {
			return err
		}
		out = l
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.assigned.Add(1)
	s.afterMutation(ctx, domain.EventLoopAssigned, out, &req.ViewerID, req.ViewerID, previous, out.UserID)
	return out, nil
}

// AddNote appends an authored note to a visible loop.
func (s *LoopService) AddNote(ctx context.Context, viewerID, loopID uuid.UUID, body string) (*domain.Note, error) {
	if strings.TrimSpace(body) == "" {
		return nil, domain.ErrInvalidNote
	}

	var (
		l    *domain.Loop
		note = &domain.Note{AuthorID: &viewerID, Body: body}
	)
	err := s.store.WithTx(ctx, func(tx *repository.Store) error {
		var err error
		if l, err = tx.Loops.LockVisible(ctx, loopID, viewerID); err != nil {
			return err
		}
		if err := tx.Notes.AddNote(ctx, l.ID, note); err != nil {
			return err
		}
		return tx.Loops.Touch(ctx, l)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.notes.Add(1)
	s.afterMutation(ctx, domain.EventNoteAdded, l, &viewerID, viewerID, l.UserID)
	return note, nil
}

// Notes lists a visible loop's notes in the given order.
func (s *LoopService) Notes(ctx context.Context, viewerID, loopID uuid.UUID, order domain.NoteOrder) ([]domain.Note, error) {
	if _, err := s.store.Loops.GetVisible(ctx, loopID, viewerID); err != nil {
		return nil, err
	}
	return s.notes.Notes(ctx, loopID, order)
}

// EdgeNote returns the earliest (OldestFirst) or newest (NewestFirst) note of a visible loop.
func (s *LoopService) EdgeNote(ctx context.Context, viewerID, loopID uuid.UUID, order domain.NoteOrder) (*domain.Note, error) {
	if _, err := s.store.Loops.GetVisible(ctx, loopID, viewerID); err != nil {
		return nil, err
	}
	if order == domain.NewestFirst {
		return s.notes.NewestNote(ctx, loopID)
	}
	return s.notes.EarliestNote(ctx, loopID)
}

// AddNugget tags a visible loop. Tagging counts as activity on the loop.
func (s *LoopService) AddNugget(ctx context.Context, viewerID, loopID uuid.UUID, label string) (*domain.Nugget, error) {
	var (
		l *domain.Loop
		n = &domain.Nugget{Label: label}
	)
	err := s.store.WithTx(ctx, func(tx *repository.Store) error {
		var err error
		if l, err = tx.Loops.LockVisible(ctx, loopID, viewerID); err != nil {
			return err
		}
		if err := tx.Nuggets.AddNugget(ctx, l.ID, n); err != nil {
			return err
		}
		return tx.Loops.Touch(ctx, l)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.nuggets.Add(1)
	s.afterMutation(ctx, domain.EventNuggetAdded, l, &viewerID, viewerID, l.UserID)
	return n, nil
}

// RemoveNugget removes a tag from a visible loop.
func (s *LoopService) RemoveNugget(ctx context.Context, viewerID, loopID uuid.UUID, label string) error {
	var l *domain.Loop
	err := s.store.WithTx(ctx, func(tx *repository.Store) error {
		var err error
		if l, err = tx.Loops.LockVisible(ctx, loopID, viewerID); err != nil {
			return err
		}
		if err := tx.Nuggets.RemoveNugget(ctx, l.ID, label); err != nil {
			return err
		}
		return tx.Loops.Touch(ctx, l)
	})
	if err != nil {
		return err
	}

	s.afterMutation(ctx, domain.EventNuggetRemoved, l, &viewerID, viewerID, l.UserID)
	return nil
}

// Nuggets lists the tags of a visible loop.
func (s *LoopService) Nuggets(ctx context.Context, viewerID, loopID uuid.UUID) ([]domain.Nugget, error) {
	if _, err := s.store.Loops.GetVisible(ctx, loopID, viewerID); err != nil {
		return nil, err
	}
	return s.nuggets.Nuggets(ctx, loopID)
}

// Get returns a visible loop with notes (oldest first) and nuggets.
func (s *LoopService) Get(ctx context.Context, viewerID, loopID uuid.UUID) (*domain.LoopDetail, error) {
	l, err := s.store.Loops.GetVisible(ctx, loopID, viewerID)
	if err != nil {
		return nil, err
	}

	notes, err := s.notes.Notes(ctx, l.ID, domain.OldestFirst)
	if err != nil {
		return nil, err
	}
	nuggets, err := s.nuggets.Nuggets(ctx, l.ID)
	if err != nil {
		return nil, err
	}

	l.Nuggets = make([]string, 0, len(nuggets))
	for _, n := range nuggets {
		l.Nuggets = append(l.Nuggets, n.Label)
	}

	return &domain.LoopDetail{Loop: *l, Notes: domain.NoteList(notes), Nuggets: nuggets}, nil
}

// List returns the loops of one of the viewer's projects.
func (s *LoopService) List(ctx context.Context, f domain.ListFilter) ([]domain.Loop, error) {
	projectID, err := s.ProjectForViewer(ctx, f.ViewerID, f.ProjectPublicID)
	if err != nil {
		return nil, err
	}

	scopes := []repository.Scope{repository.InProject(projectID)}
	if f.Status != nil {
		if !f.Status.Valid() {
			return nil, domain.ErrInvalidStatus
		}
		scopes = append(scopes, repository.StatusScope(*f.Status))
	}
	switch {
	case f.Unassigned:
		scopes = append(scopes, repository.AssignedToUser(nil))
	case f.Assignee != nil:
		scopes = append(scopes, repository.AssignedToUser(f.Assignee))
	}

	return s.listWithLabels(ctx, scopes...)
}

// Dashboard summarises the loops assigned to the user. Results are cached when a cache is set.
func (s *LoopService) Dashboard(ctx context.Context, userID uuid.UUID) (*domain.Summary, error) {
	log := logging.NewLogger(ctx)

	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, userID)
		if err != nil {
			log.LogWarn("loops.dashboard", "summary cache read failed", "error", err)
		}
		if ok {
			s.metrics.cacheHits.Add(1)
			return cached, nil
		}
		s.metrics.cacheMisses.Add(1)
	}

	mine := repository.AssignedToUser(&userID)
	counts, err := s.store.Loops.CountByStatus(ctx, mine)
	if err != nil {
		return nil, err
	}
	open, err := s.listWithLabels(ctx, mine, repository.OpenScope(), repository.Limit(dashboardLoopLimit))
	if err != nil {
		return nil, err
	}

	summary := &domain.Summary{
		UserID:      userID,
		OpenCount:   counts[domain.StatusOpen],
		ClosedCount: counts[domain.StatusClosed],
		OpenLoops:   open,
		GeneratedAt: s.now().UTC(),
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, summary); err != nil {
			log.LogWarn("loops.dashboard", "summary cache write failed", "error", err)
		}
	}
	return summary, nil
}

// SweepStale publishes a stale event for every open loop untouched for longer than after.
func (s *LoopService) SweepStale(ctx context.Context, now time.Time, after time.Duration) (int, error) {
	stale, err := s.store.Loops.List(ctx, repository.OpenScope(), repository.StaleSince(now.Add(-after)))
	if err != nil {
		return 0, err
	}

	for i := range stale {
		s.publish(ctx, domain.NewLoopEvent(domain.EventLoopStale, &stale[i], nil))
	}
	s.metrics.stale.Add(int64(len(stale)))
	return len(stale), nil
}

func (s *LoopService) listWithLabels(ctx context.Context, scopes ...repository.Scope) ([]domain.Loop, error) {
	loops, err := s.store.Loops.List(ctx, scopes...)
	if err != nil {
		return nil, err
	}
	if len(loops) == 0 {
		return loops, nil
	}

	ids := make([]uuid.UUID, len(loops))
	for i := range loops {
		ids[i] = loops[i].ID
	}
	labels, err := s.store.Nuggets.LabelsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range loops {
		loops[i].Nuggets = labels[loops[i].ID]
	}
	return loops, nil
}

// afterMutation drops cached dashboards of everyone affected and publishes the event.
func (s *LoopService) afterMutation(ctx context.Context, t domain.EventType, l *domain.Loop, by *uuid.UUID, viewer uuid.UUID, assignees ...*uuid.UUID) {
	if s.cache != nil {
		ids := []uuid.UUID{viewer}
		for _, a := range assignees {
			if a != nil && *a != viewer {
				ids = append(ids, *a)
			}
		}
		if err := s.cache.Invalidate(ctx, ids...); err != nil {
			logging.NewLogger(ctx).LogWarn(string(t), "summary cache invalidate failed", "error", err)
		}
	}
	s.publish(ctx, domain.NewLoopEvent(t, l, by))
}

func (s *LoopService) publish(ctx context.Context, ev domain.LoopEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		s.metrics.publishErrs.Add(1)
		logging.NewLogger(ctx).LogWarn(string(ev.Type), "event publish failed", "loop_id", ev.LoopID, "error", err)
	}
}

func actor(req domain.TransitionRequest) *uuid.UUID {
	if req.Author != nil {
		return req.Author
	}
	id := req.ViewerID
	return &id
}
