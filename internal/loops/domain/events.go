package domain

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventLoopCreated   EventType = "loop.created"
	EventLoopOpened    EventType = "loop.opened"
	EventLoopClosed    EventType = "loop.closed"
	EventLoopAssigned  EventType = "loop.assigned"
	EventLoopStale     EventType = "loop.stale"
	EventNoteAdded     EventType = "loop.note_added"
	EventNuggetAdded   EventType = "loop.nugget_added"
	EventNuggetRemoved EventType = "loop.nugget_removed"
)

// LoopEvent is published to the loop's project channel after every change.
type LoopEvent struct {
	Type       EventType  `json:"type"`
	LoopID     uuid.UUID  `json:"loop_id"`
	ProjectID  uuid.UUID  `json:"project_id"`
	Status     Status     `json:"status"`
	ActorID    *uuid.UUID `json:"actor_id,omitempty"`
	AssigneeID *uuid.UUID `json:"assignee_id,omitempty"`
	At         time.Time  `json:"at"`
}

// NewLoopEvent snapshots the loop into an event of the given type.
func NewLoopEvent(t EventType, l *Loop, actor *uuid.UUID) LoopEvent {
	return LoopEvent{
		Type:       t,
		LoopID:     l.ID,
		ProjectID:  l.ProjectID,
		Status:     l.Status,
		ActorID:    actor,
		AssigneeID: l.UserID,
		At:         time.Now().UTC(),
	}
}
