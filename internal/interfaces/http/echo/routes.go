package echo

import e "github.com/labstack/echo/v4"

// Handlers groups the route handlers. Nil handlers leave their routes
// unregistered.
type Handlers struct {
	Import *ImportHandler
	Job    *JobHandler
	Queue  *QueueHandler
}

func RegisterRoutes(server *e.Echo, h Handlers) {
	if server.Validator == nil {
		server.Validator = NewRequestValidator()
	}

	v1 := server.Group("/api/v1")

	if h.Import != nil {
		v1.POST("/imports", h.Import.StartImport)
		v1.GET("/imports", h.Import.ListImportRuns)
		v1.GET("/imports/stats", h.Import.ImportStats)
		v1.GET("/imports/:id", h.Import.GetImportRun)
		v1.POST("/imports/:id/retry", h.Import.RetryImport)
	}

	if h.Job != nil {
		v1.GET("/jobs/:id", h.Job.GetJob)
	}

	if h.Queue != nil {
		v1.GET("/queue/stats", h.Queue.Stats)
		v1.GET("/queue/health", h.Queue.Health)
		v1.GET("/queue/jobs/:state", h.Queue.List)
		v1.POST("/queue/jobs/:id/retry", h.Queue.Retry)
		v1.DELETE("/queue/jobs/:state", h.Queue.Clean)
		v1.POST("/queue/pause", h.Queue.Pause)
		v1.POST("/queue/resume", h.Queue.Resume)
	}
}
