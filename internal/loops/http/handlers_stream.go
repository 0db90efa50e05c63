package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/loops-hq/loops-backend/internal/logging"
)

// StreamProjectEvents streams loop events of a project using Server-Sent Events (SSE)
func (h *Handler) StreamProjectEvents(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	if h.events == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false, "error": "event stream disabled"})
		return
	}

	ctx := c.Request.Context()

	projectID, err := h.svc.ProjectForViewer(ctx, userID, c.Param("public_id"))
	if err != nil {
		h.fail(c, "loops.stream", err)
		return
	}

	events, closeSub, err := h.events.Subscribe(ctx, projectID)
	if err != nil {
		h.fail(c, "loops.stream", err)
		return
	}
	defer func() {
		if err := closeSub(); err != nil {
			logging.NewLogger(ctx).LogWarn("loops.stream", "close subscription failed", "error", err)
		}
	}()

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "streaming unsupported"})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no") // nginx: disable buffering
	c.Status(http.StatusOK)

	fmt.Fprintf(c.Writer, "event: ready\ndata: {\"project_id\":%q}\n\n", projectID.String())
	flusher.Flush()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			fmt.Fprint(c.Writer, ": keep-alive\n\n")
			flusher.Flush()

		case ev, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", ev.Type, data)
			flusher.Flush()
		}
	}
}
