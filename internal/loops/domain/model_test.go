package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusPredicates(t *testing.T) {
	for _, st := range []Status{StatusOpen, StatusClosed} {
		l := &Loop{Status: st}
		assert.Equal(t, st == StatusOpen, l.IsOpen())
		assert.Equal(t, st == StatusClosed, l.IsClosed())
		assert.NotEqual(t, l.IsOpen(), l.IsClosed(), "open and closed must be exclusive")
	}
}

func TestParseStatus(t *testing.T) {
	st, err := ParseStatus(" Open ")
	require.NoError(t, err)
	assert.Equal(t, StatusOpen, st)

	st, err = ParseStatus("CLOSED")
	require.NoError(t, err)
	assert.Equal(t, StatusClosed, st)

	_, err = ParseStatus("pending")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = ParseStatus("")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestDisplayStatus(t *testing.T) {
	assert.Equal(t, "Open", (&Loop{Status: StatusOpen}).DisplayStatus())
	assert.Equal(t, "Closed", (&Loop{Status: StatusClosed}).DisplayStatus())
	assert.Equal(t, "", Status("").Display())
}

func TestLoopOpen(t *testing.T) {
	t.Run("with note copies body into description", func(t *testing.T) {
		l := &Loop{Status: StatusClosed, Description: "old"}
		l.Open(&Note{Body: "reopened because **reasons**"})

		assert.True(t, l.IsOpen())
		assert.Equal(t, "reopened because **reasons**", l.Description)
	})

	t.Run("without note keeps description", func(t *testing.T) {
		l := &Loop{Status: StatusClosed, Description: "old"}
		l.Open(nil)

		assert.True(t, l.IsOpen())
		assert.Equal(t, "old", l.Description)
	})
}

func TestLoopClose(t *testing.T) {
	l := &Loop{Status: StatusOpen, Description: "keep me"}
	l.Close()

	assert.True(t, l.IsClosed())
	assert.Equal(t, "keep me", l.Description)
}

func TestLoopAssignTo(t *testing.T) {
	user := uuid.New()
	l := &Loop{}

	l.AssignTo(&user)
	require.NotNil(t, l.UserID)
	assert.Equal(t, user, *l.UserID)
	assert.True(t, l.IsAssignedTo(user))

	// the loop keeps its own copy
	user = uuid.New()
	assert.NotEqual(t, user, *l.UserID)

	l.AssignTo(nil)
	assert.Nil(t, l.UserID)
	assert.False(t, l.IsAssignedTo(user))
}

func TestNoteList(t *testing.T) {
	t.Run("empty list reports no notes", func(t *testing.T) {
		var notes NoteList

		_, err := notes.Earliest()
		assert.ErrorIs(t, err, ErrNoNotes)
		_, err = notes.Newest()
		assert.ErrorIs(t, err, ErrNoNotes)
		_, err = notes.OpenedBy()
		assert.ErrorIs(t, err, ErrNoNotes)
	})

	t.Run("earliest and newest", func(t *testing.T) {
		a1, a2 := uuid.New(), uuid.New()
		t1 := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
		notes := NoteList{
			{ID: uuid.New(), AuthorID: &a1, Body: "N1", CreatedAt: t1},
			{ID: uuid.New(), AuthorID: &a2, Body: "N2", CreatedAt: t1.Add(time.Hour)},
		}

		openedBy, err := notes.OpenedBy()
		require.NoError(t, err)
		assert.Equal(t, a1, *openedBy)

		first, err := notes.Earliest()
		require.NoError(t, err)
		assert.Equal(t, "N1", first.Body)

		newest, err := notes.Newest()
		require.NoError(t, err)
		assert.Equal(t, "N2", newest.Body)
	})

	t.Run("anonymous opening note", func(t *testing.T) {
		notes := NoteList{{ID: uuid.New(), Body: "N1"}}

		openedBy, err := notes.OpenedBy()
		require.NoError(t, err)
		assert.Nil(t, openedBy)
	})
}

func TestNormalizeLabel(t *testing.T) {
	l, err := NormalizeLabel("  Backend ")
	require.NoError(t, err)
	assert.Equal(t, "backend", l)

	_, err = NormalizeLabel("   ")
	assert.ErrorIs(t, err, ErrInvalidNugget)
}

func TestNewLoopEvent(t *testing.T) {
	actor, assignee := uuid.New(), uuid.New()
	l := &Loop{ID: uuid.New(), ProjectID: uuid.New(), Status: StatusClosed, UserID: &assignee}

	ev := NewLoopEvent(EventLoopClosed, l, &actor)

	assert.Equal(t, EventLoopClosed, ev.Type)
	assert.Equal(t, l.ID, ev.LoopID)
	assert.Equal(t, l.ProjectID, ev.ProjectID)
	assert.Equal(t, StatusClosed, ev.Status)
	assert.Equal(t, actor, *ev.ActorID)
	assert.Equal(t, assignee, *ev.AssigneeID)
	assert.False(t, ev.At.IsZero())
}
