package app

import (
	"fmt"
	"strings"

	"feedpulse/internal/config"
	"feedpulse/internal/delivery/http/handler"
	"feedpulse/internal/delivery/http/middleware"
	"feedpulse/internal/delivery/http/routes"
	"feedpulse/internal/ws"

	"github.com/gofiber/fiber/v3"
)

type App struct {
	Fiber     *fiber.App
	Container *Container
}

// Bootstrap builds the container, the fiber app and the route registry,
// and starts the websocket hub. The returned cleanup closes storage and
// cache connections; stopping the scheduler is the caller's job because
// it needs to happen before the HTTP listener goes away.
func Bootstrap(cfg config.Config) (*App, func() error, error) {
	container, err := NewContainer(cfg)
	if err != nil {
		return nil, nil, err
	}

	f := fiber.New(fiber.Config{AppName: cfg.App.AppName})

	registerGlobalMiddleware(f, container)
	registerRoutes(f, container)

	go container.Hub.Run()

	cleanup := func() error { return container.Close() }
	return &App{Fiber: f, Container: container}, cleanup, nil
}

func registerGlobalMiddleware(app *fiber.App, c *Container) {
	if app == nil {
		return
	}

	accessMw := middleware.NewAccessLogMiddleware(c.Logger)
	app.Use(accessMw.Middleware())

	errMw := middleware.NewErrorMiddleware()
	app.Use(errMw.Middleware())
}

func registerRoutes(app *fiber.App, c *Container) {
	if app == nil {
		return
	}

	registry := routes.NewRegistry(
		handler.NewHealthHandler(c.Config.App.AppName),
		handler.NewSchedulerHandler(c.SchedulerControl),
		handler.NewSourceHandler(c.SourceAdmin),
		handler.NewMonitorHandler(c.Monitor),
		ws.NewHandler(c.Hub, c.Logger),
	)
	registry.Register(app)
}

func ListenAddr(port string) (string, error) {
	p := strings.TrimSpace(port)
	if p == "" {
		return "", fmt.Errorf("empty HTTP port")
	}
	if strings.HasPrefix(p, ":") {
		return p, nil
	}
	return ":" + p, nil
}
