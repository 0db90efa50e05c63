package domain

import "errors"

var (
	ErrLoopNotFound    = errors.New("loop not found")
	ErrProjectNotFound = errors.New("project not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrNoNotes         = errors.New("loop has no notes")
	ErrInvalidStatus   = errors.New("invalid loop status")
	ErrInvalidName     = errors.New("loop name required")
	ErrInvalidNote     = errors.New("note body required")
	ErrInvalidNugget   = errors.New("nugget label required")
	ErrDuplicateNugget = errors.New("nugget already attached")
	ErrNuggetNotFound  = errors.New("nugget not found")
)
