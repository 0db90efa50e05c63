package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/loops-hq/loops-backend/internal/logging"
	"github.com/loops-hq/loops-backend/internal/projects/domain"
	"github.com/loops-hq/loops-backend/internal/projects/repository"
)

// SummaryCache drops cached per-user dashboards.
type SummaryCache interface {
	Invalidate(ctx context.Context, userIDs ...uuid.UUID) error
}

// ProjectService handles project-related business logic
type ProjectService struct {
	repo  *repository.ProjectRepository
	cache SummaryCache
}

type Option func(*ProjectService)

// WithSummaryCache clears affected dashboards when a project is deleted.
func WithSummaryCache(c SummaryCache) Option {
	return func(s *ProjectService) { s.cache = c }
}

// NewProjectService creates a new project service
func NewProjectService(repo *repository.ProjectRepository, opts ...Option) *ProjectService {
	s := &ProjectService{
		repo: repo,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create creates a new project
func (s *ProjectService) Create(ctx context.Context, userID uuid.UUID, name, description string) (*domain.Project, error) {
	return s.repo.Create(ctx, userID, strings.TrimSpace(name), strings.TrimSpace(description))
}

// List returns all projects for a user
func (s *ProjectService) List(ctx context.Context, userID uuid.UUID) ([]domain.Project, error) {
	return s.repo.List(ctx, userID)
}

// GetByPublicID returns one project owned by the user
func (s *ProjectService) GetByPublicID(ctx context.Context, userID uuid.UUID, publicID string) (*domain.Project, error) {
	publicID = strings.TrimSpace(publicID)
	if publicID == "" {
		return nil, domain.ErrNotFound
	}
	return s.repo.GetByPublicID(ctx, userID, publicID)
}

// Rename updates a project's name
func (s *ProjectService) Rename(ctx context.Context, userID uuid.UUID, publicID, newName string) (*domain.Project, error) {
	return s.repo.Rename(ctx, userID, publicID, strings.TrimSpace(newName))
}

// Delete soft-deletes a project. The owner's and the assignees' dashboards are
// invalidated because the project's loops drop out of them.
func (s *ProjectService) Delete(ctx context.Context, userID uuid.UUID, publicID string) (bool, error) {
	log := logging.NewLogger(ctx)

	var affected []uuid.UUID
	if s.cache != nil {
		assignees, err := s.repo.Assignees(ctx, userID, publicID)
		if err != nil {
			log.LogWarn("projects.delete", "assignee lookup failed", "error", err)
		}
		affected = append([]uuid.UUID{userID}, assignees...)
	}

	ok, err := s.repo.SoftDelete(ctx, userID, publicID)
	if err != nil || !ok {
		return ok, err
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, affected...); err != nil {
			log.LogWarn("projects.delete", "summary cache invalidate failed", "error", err)
		}
	}
	return true, nil
}
