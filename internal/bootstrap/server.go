package bootstrap

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	httpecho "github.com/mohammadpnp/job-feed-import/internal/interfaces/http/echo"
)

func NewHTTPServer(c *Container) *echo.Echo {
	server := echo.New()
	server.HideBanner = true
	server.Validator = httpecho.NewRequestValidator()

	server.Use(middleware.Recover())
	server.Use(middleware.RequestID())
	server.Use(middleware.BodyLimit("10M"))

	httpecho.RegisterRoutes(server, httpecho.Handlers{
		Import: httpecho.NewImportHandler(c.StartImport, c.RetryImport, c.GetRun, c.ListRuns),
		Job:    httpecho.NewJobHandler(c.GetJob),
		Queue:  httpecho.NewQueueHandler(c.QueueAdmin),
	})

	server.GET("/ws", echo.WrapHandler(c.Hub))
	server.GET("/metrics", echo.WrapHandler(c.Metrics.Handler()))
	server.GET("/healthz", func(ctx echo.Context) error {
		return ctx.JSON(200, map[string]string{"status": "ok"})
	})

	return server
}
