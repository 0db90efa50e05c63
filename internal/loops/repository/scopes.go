package repository

import (
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/loops-hq/loops-backend/internal/loops/domain"
)

// Scope narrows a loop query. Scopes compose in the order given.
type Scope func(squirrel.SelectBuilder) squirrel.SelectBuilder

func StatusScope(status domain.Status) Scope {
	return func(b squirrel.SelectBuilder) squirrel.SelectBuilder {
		return b.Where(squirrel.Eq{"l.status": string(status)})
	}
}

func OpenScope() Scope {
	return StatusScope(domain.StatusOpen)
}

func ClosedScope() Scope {
	return StatusScope(domain.StatusClosed)
}

// AssignedToUser filters by assignee. A nil user selects unassigned loops.
func AssignedToUser(userID *uuid.UUID) Scope {
	return func(b squirrel.SelectBuilder) squirrel.SelectBuilder {
		if userID == nil {
			return b.Where(squirrel.Eq{"l.user_id": nil})
		}
		return b.Where(squirrel.Eq{"l.user_id": userID.String()})
	}
}

func InProject(projectID uuid.UUID) Scope {
	return func(b squirrel.SelectBuilder) squirrel.SelectBuilder {
		return b.Where(squirrel.Eq{"l.project_id": projectID.String()})
	}
}

// StaleSince selects loops whose last update is older than t.
func StaleSince(t time.Time) Scope {
	return func(b squirrel.SelectBuilder) squirrel.SelectBuilder {
		return b.Where(squirrel.Lt{"l.updated_at": t})
	}
}

func Limit(n uint64) Scope {
	return func(b squirrel.SelectBuilder) squirrel.SelectBuilder {
		return b.Limit(n)
	}
}
