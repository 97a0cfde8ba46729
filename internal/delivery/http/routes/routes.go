package routes

import (
	"feedpulse/internal/delivery/http/handler"
	"feedpulse/internal/ws"

	"github.com/gofiber/fiber/v3"
)

type Registry struct {
	health    *handler.HealthHandler
	scheduler *handler.SchedulerHandler
	sources   *handler.SourceHandler
	monitor   *handler.MonitorHandler
	alerts    *ws.Handler
}

func NewRegistry(
	health *handler.HealthHandler,
	scheduler *handler.SchedulerHandler,
	sources *handler.SourceHandler,
	monitor *handler.MonitorHandler,
	alerts *ws.Handler,
) *Registry {
	return &Registry{
		health:    health,
		scheduler: scheduler,
		sources:   sources,
		monitor:   monitor,
		alerts:    alerts,
	}
}

func (r *Registry) Register(app *fiber.App) {
	if app == nil {
		return
	}

	r.health.RegisterRoutes(app)

	api := app.Group("/api")
	v1 := api.Group("/v1")

	r.scheduler.RegisterRoutes(v1)
	r.sources.RegisterRoutes(v1)
	r.monitor.RegisterRoutes(v1)

	if r.alerts != nil {
		v1.Get("/ws/alerts", r.alerts.HandleHealthWS)
	}
}
