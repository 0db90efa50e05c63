package domain

import "github.com/google/uuid"

// LoopDetail is a loop with its notes (oldest first) and nuggets.
type LoopDetail struct {
	Loop    Loop
	Notes   NoteList
	Nuggets []Nugget
}

// OpenedBy is the author of the earliest note.
func (d *LoopDetail) OpenedBy() (*uuid.UUID, error) {
	return d.Notes.OpenedBy()
}

func (d *LoopDetail) EarliestNote() (*Note, error) {
	return d.Notes.Earliest()
}

func (d *LoopDetail) NewestNote() (*Note, error) {
	return d.Notes.Newest()
}

// ListFilter narrows a project's loops. Assignee nil with Unassigned false means any assignee.
type ListFilter struct {
	ViewerID        uuid.UUID
	ProjectPublicID string
	Status          *Status
	Assignee        *uuid.UUID
	Unassigned      bool
}
