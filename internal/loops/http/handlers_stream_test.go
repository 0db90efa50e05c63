package http

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loops-hq/loops-backend/internal/loops/domain"
)

type fakeSubscriber struct {
	ch        chan domain.LoopEvent
	projectID uuid.UUID
	closed    bool
}

func (f *fakeSubscriber) Subscribe(_ context.Context, projectID uuid.UUID) (<-chan domain.LoopEvent, func() error, error) {
	f.projectID = projectID
	return f.ch, func() error { f.closed = true; return nil }, nil
}

func TestStreamProjectEvents(t *testing.T) {
	svc := newFake()
	sub := &fakeSubscriber{ch: make(chan domain.LoopEvent, 2)}
	r := setupRouter(svc, sub, uuid.New())

	sub.ch <- domain.NewLoopEvent(domain.EventLoopClosed, svc.loop, nil)
	close(sub.ch)

	w := do(r, http.MethodGet, "/projects/proj-12345-6789/loops/events", "")
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.Equal(t, svc.projectID, sub.projectID)
	assert.True(t, sub.closed)

	body := w.Body.String()
	assert.Contains(t, body, "event: ready\n")
	assert.Contains(t, body, "event: loop.closed\ndata: {")
	assert.Contains(t, body, `"loop_id":"`+svc.loop.ID.String()+`"`)
}

func TestStreamProjectEvents_Disabled(t *testing.T) {
	r := setupRouter(newFake(), nil, uuid.New())

	w := do(r, http.MethodGet, "/projects/proj-12345-6789/loops/events", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestStreamProjectEvents_UnknownProject(t *testing.T) {
	svc := newFake()
	svc.err = domain.ErrProjectNotFound
	r := setupRouter(svc, &fakeSubscriber{ch: make(chan domain.LoopEvent)}, uuid.New())

	w := do(r, http.MethodGet, "/projects/proj-00000-0000/loops/events", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
