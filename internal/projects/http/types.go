package http

import (
	"context"

	"github.com/google/uuid"

	"github.com/loops-hq/loops-backend/internal/projects/domain"
)

// ProjectService is the behaviour the project handlers depend on.
type ProjectService interface {
	Create(ctx context.Context, userID uuid.UUID, name, description string) (*domain.Project, error)
	List(ctx context.Context, userID uuid.UUID) ([]domain.Project, error)
	Rename(ctx context.Context, userID uuid.UUID, publicID, newName string) (*domain.Project, error)
	Delete(ctx context.Context, userID uuid.UUID, publicID string) (bool, error)
}

// Handler bundles the dependencies for projects HTTP endpoints.
type Handler struct {
	svc ProjectService
}

func New(svc ProjectService) *Handler {
	return &Handler{svc: svc}
}

type createReq struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type renameReq struct {
	Name string `json:"name"`
}
