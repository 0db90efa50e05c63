package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a loop. Only StatusOpen and StatusClosed are valid.
type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

// ParseStatus accepts a status in any letter case.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", ErrInvalidStatus
	}
	return st, nil
}

func (s Status) Valid() bool {
	return s == StatusOpen || s == StatusClosed
}

// Display returns the status with a leading capital, e.g. "Open".
func (s Status) Display() string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(string(s[:1])) + string(s[1:])
}

// Loop is a task-like record tied to a project and optionally assigned to a user.
type Loop struct {
	ID          uuid.UUID  `json:"id"`
	ProjectID   uuid.UUID  `json:"project_id"`
	Name        string     `json:"name"`
	Status      Status     `json:"status"`
	Description string     `json:"description"`
	UserID      *uuid.UUID `json:"user_id,omitempty"` // assignee, nil when unassigned
	Nuggets     []string   `json:"nuggets,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (l *Loop) IsOpen() bool {
	return l.Status == StatusOpen
}

func (l *Loop) IsClosed() bool {
	return l.Status == StatusClosed
}

func (l *Loop) DisplayStatus() string {
	return l.Status.Display()
}

// Open marks the loop open. When a note is given its body replaces the description.
func (l *Loop) Open(note *Note) {
	if note != nil {
		l.Description = note.Body
	}
	l.Status = StatusOpen
}

// Close marks the loop closed. The description is left untouched.
func (l *Loop) Close() {
	l.Status = StatusClosed
}

// AssignTo sets the assignee; nil clears it.
func (l *Loop) AssignTo(userID *uuid.UUID) {
	if userID == nil {
		l.UserID = nil
		return
	}
	id := *userID
	l.UserID = &id
}

// IsAssignedTo reports whether userID is the current assignee.
func (l *Loop) IsAssignedTo(userID uuid.UUID) bool {
	return l.UserID != nil && *l.UserID == userID
}

// CreateLoopRequest represents data needed to create a loop inside a project.
type CreateLoopRequest struct {
	UserID          uuid.UUID
	ProjectPublicID string
	Name            string
	// Body is the opening note; it also becomes the description.
	Body       string
	AssigneeID *uuid.UUID
}

// TransitionRequest carries an open or close of a loop.
type TransitionRequest struct {
	ViewerID uuid.UUID
	LoopID   uuid.UUID
	Note     *Note
	Author   *uuid.UUID
}

// AssignRequest reassigns a loop; a nil AssigneeID unassigns it.
type AssignRequest struct {
	ViewerID   uuid.UUID
	LoopID     uuid.UUID
	AssigneeID *uuid.UUID
}

// Summary is the per-user dashboard: counts and open loops assigned to the user.
type Summary struct {
	UserID      uuid.UUID `json:"user_id"`
	OpenCount   int       `json:"open_count"`
	ClosedCount int       `json:"closed_count"`
	OpenLoops   []Loop    `json:"open_loops"`
	GeneratedAt time.Time `json:"generated_at"`
}
