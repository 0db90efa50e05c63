package http

import "github.com/gin-gonic/gin"

// Register registers the loop routes. mutate runs in front of every state-changing route.
func (h *Handler) Register(rg gin.IRouter, mutate ...gin.HandlerFunc) {
	with := func(fn gin.HandlerFunc) []gin.HandlerFunc {
		return append(append([]gin.HandlerFunc{}, mutate...), fn)
	}

	rg.GET("/dashboard", h.Dashboard)

	rg.POST("/loops", with(h.CreateLoop)...)
	rg.GET("/loops/:id", h.GetLoop)
	rg.POST("/loops/:id/open", with(h.OpenLoop)...)
	rg.POST("/loops/:id/close", with(h.CloseLoop)...)
	rg.PUT("/loops/:id/assignee", with(h.AssignLoop)...)
	rg.GET("/loops/:id/notes", h.ListNotes)
	rg.POST("/loops/:id/notes", with(h.AddNote)...)
	rg.GET("/loops/:id/notes/:edge", h.EdgeNote)
	rg.GET("/loops/:id/nuggets", h.ListNuggets)
	rg.POST("/loops/:id/nuggets", with(h.AddNugget)...)
	rg.DELETE("/loops/:id/nuggets/:label", with(h.RemoveNugget)...)

	rg.GET("/projects/:public_id/loops", h.ListProjectLoops)
	rg.GET("/projects/:public_id/loops/events", h.StreamProjectEvents)
}

// RegisterInternal registers operational endpoints.
func (h *Handler) RegisterInternal(rg gin.IRouter) {
	rg.GET("/internal/metrics", h.Metrics)
}
