package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/loops-hq/loops-backend/internal/auth"
	"github.com/loops-hq/loops-backend/internal/logging"
	"github.com/loops-hq/loops-backend/internal/loops/domain"
)

func currentUser(c *gin.Context) (uuid.UUID, bool) {
	id, ok := auth.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "unauthenticated"})
	}
	return id, ok
}

func loopID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid loop id"})
		return uuid.Nil, false
	}
	return id, true
}

// bindOptionalJSON binds the body when one is sent; an empty body is not an error.
func bindOptionalJSON(c *gin.Context, dst any) error {
	err := c.ShouldBindJSON(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func parseUUIDPtr(s *string) (*uuid.UUID, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil, nil
	}
	id, err := uuid.Parse(strings.TrimSpace(*s))
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// Dashboard returns the current user's summary
func (h *Handler) Dashboard(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	s, err := h.svc.Dashboard(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, "loops.dashboard", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "dashboard": h.summaryView(c.Request.Context(), s)})
}

// CreateLoop creates a loop in one of the user's projects
func (h *Handler) CreateLoop(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req createLoopReq
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.ProjectID) == "" || strings.TrimSpace(req.Name) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}
	assignee, err := parseUUIDPtr(req.AssigneeID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid assignee_id"})
		return
	}

	l, err := h.svc.Create(c.Request.Context(), domain.CreateLoopRequest{
		UserID:          userID,
		ProjectPublicID: strings.TrimSpace(req.ProjectID),
		Name:            req.Name,
		Body:            req.Body,
		AssigneeID:      assignee,
	})
	if err != nil {
		h.fail(c, "loops.create", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "loop": h.loopView(c.Request.Context(), l)})
}

// GetLoop returns a loop with its notes and nuggets
func (h *Handler) GetLoop(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := loopID(c)
	if !ok {
		return
	}

	d, err := h.svc.Get(c.Request.Context(), userID, id)
	if err != nil {
		h.fail(c, "loops.get", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "loop": h.detailView(c.Request.Context(), d)})
}

func (h *Handler) OpenLoop(c *gin.Context) {
	h.transition(c, "loops.open", h.svc.Open)
}

func (h *Handler) CloseLoop(c *gin.Context) {
	h.transition(c, "loops.close", h.svc.Close)
}

func (h *Handler) transition(c *gin.Context, op string, apply func(context.Context, domain.TransitionRequest) (*domain.Loop, error)) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := loopID(c)
	if !ok {
		return
	}

	var req transitionReq
	if err := bindOptionalJSON(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	tr := domain.TransitionRequest{ViewerID: userID, LoopID: id, Author: &userID}
	if req.Note != "" {
		tr.Note = &domain.Note{Body: req.Note}
	}

	l, err := apply(c.Request.Context(), tr)
	if err != nil {
		h.fail(c, op, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "loop": h.loopView(c.Request.Context(), l)})
}

// AssignLoop sets or clears the assignee
func (h *Handler) AssignLoop(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := loopID(c)
	if !ok {
		return
	}

	var req assignReq
	if err := bindOptionalJSON(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}
	assignee, err := parseUUIDPtr(req.AssigneeID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid assignee_id"})
		return
	}

	l, err := h.svc.AssignTo(c.Request.Context(), domain.AssignRequest{ViewerID: userID, LoopID: id, AssigneeID: assignee})
	if err != nil {
		h.fail(c, "loops.assign", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "loop": h.loopView(c.Request.Context(), l)})
}

// AddNote appends a note authored by the current user
func (h *Handler) AddNote(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := loopID(c)
	if !ok {
		return
	}

	var req noteReq
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Body) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	n, err := h.svc.AddNote(c.Request.Context(), userID, id, req.Body)
	if err != nil {
		h.fail(c, "loops.add_note", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "note": h.noteView(c.Request.Context(), n)})
}

// ListNotes lists notes, oldest first unless order=newest
func (h *Handler) ListNotes(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := loopID(c)
	if !ok {
		return
	}

	order := domain.OldestFirst
	switch strings.ToLower(c.Query("order")) {
	case "", "oldest":
	case "newest":
		order = domain.NewestFirst
	default:
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "order must be oldest or newest"})
		return
	}

	notes, err := h.svc.Notes(c.Request.Context(), userID, id, order)
	if err != nil {
		h.fail(c, "loops.notes", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "notes": h.noteViews(c.Request.Context(), notes)})
}

// EdgeNote returns the earliest or newest note
func (h *Handler) EdgeNote(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := loopID(c)
	if !ok {
		return
	}

	var order domain.NoteOrder
	switch c.Param("edge") {
	case "earliest":
		order = domain.OldestFirst
	case "newest":
		order = domain.NewestFirst
	default:
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "not found"})
		return
	}

	n, err := h.svc.EdgeNote(c.Request.Context(), userID, id, order)
	if err != nil {
		h.fail(c, "loops.edge_note", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "note": h.noteView(c.Request.Context(), n)})
}

func (h *Handler) ListNuggets(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := loopID(c)
	if !ok {
		return
	}

	items, err := h.svc.Nuggets(c.Request.Context(), userID, id)
	if err != nil {
		h.fail(c, "loops.nuggets", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "nuggets": items})
}

func (h *Handler) AddNugget(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := loopID(c)
	if !ok {
		return
	}

	var req nuggetReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	n, err := h.svc.AddNugget(c.Request.Context(), userID, id, req.Label)
	if err != nil {
		h.fail(c, "loops.add_nugget", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "nugget": n})
}

func (h *Handler) RemoveNugget(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := loopID(c)
	if !ok {
		return
	}

	if err := h.svc.RemoveNugget(c.Request.Context(), userID, id, c.Param("label")); err != nil {
		h.fail(c, "loops.remove_nugget", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// ListProjectLoops lists a project's loops, filtered by ?status= and ?assignee=me|none|<uuid>
func (h *Handler) ListProjectLoops(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	f := domain.ListFilter{ViewerID: userID, ProjectPublicID: c.Param("public_id")}

	if raw := c.Query("status"); raw != "" {
		st, err := domain.ParseStatus(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "status must be open or closed"})
			return
		}
		f.Status = &st
	}

	switch raw := strings.TrimSpace(c.Query("assignee")); raw {
	case "":
	case "me":
		f.Assignee = &userID
	case "none":
		f.Unassigned = true
	default:
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "assignee must be me, none or a user id"})
			return
		}
		f.Assignee = &id
	}

	loops, err := h.svc.List(c.Request.Context(), f)
	if err != nil {
		h.fail(c, "loops.list", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "loops": h.loopViews(c.Request.Context(), loops)})
}

// Metrics returns loop operation counters
func (h *Handler) Metrics(c *gin.Context) {
	snap := h.svc.Metrics().Snapshot()
	c.JSON(http.StatusOK, gin.H{"ok": true, "metrics": snap, "cache_hit_rate": snap.CacheHitRate()})
}

func (h *Handler) fail(c *gin.Context, op string, err error) {
	status, msg := http.StatusInternalServerError, "internal error"

	switch {
	case errors.Is(err, domain.ErrLoopNotFound),
		errors.Is(err, domain.ErrProjectNotFound),
		errors.Is(err, domain.ErrNuggetNotFound),
		errors.Is(err, domain.ErrNoNotes):
		status, msg = http.StatusNotFound, err.Error()
	case errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrInvalidStatus),
		errors.Is(err, domain.ErrInvalidName),
		errors.Is(err, domain.ErrInvalidNote),
		errors.Is(err, domain.ErrInvalidNugget):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrDuplicateNugget):
		status, msg = http.StatusConflict, err.Error()
	default:
		logging.NewLogger(c.Request.Context()).LogError(op, err)
	}

	c.JSON(status, gin.H{"ok": false, "error": msg})
}
