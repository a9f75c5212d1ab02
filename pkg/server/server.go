// Package server exposes the assistant over HTTP and websockets.
package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	observer "github.com/gofiber/websocket/v2"

	"github.com/teslashibe/medi-voice/pkg/assistant"
	"github.com/teslashibe/medi-voice/pkg/hub"
	"github.com/teslashibe/medi-voice/pkg/session"
)

// Server is the medi-voice HTTP server.
type Server struct {
	app      *fiber.App
	resolver *assistant.Resolver
	sessions *session.Manager
	events   *hub.Hub
	config   *Config
	logger   *slog.Logger
}

// New builds the Fiber app. events may be nil, in which case /ws/events
// is not served.
func New(resolver *assistant.Resolver, sessions *session.Manager, events *hub.Hub, opts ...Option) *Server {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	s := &Server{
		resolver: resolver,
		sessions: sessions,
		events:   events,
		config:   cfg,
		logger:   cfg.Logger.With("component", "server"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "Medi-Voice",
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})

	app.Use(recover.New())
	app.Use(cors.New())
	if cfg.Debug {
		app.Use(logger.New())
	}

	api := app.Group("/api")
	if cfg.RateLimit > 0 {
		api.Post("/medical-ai", limiter.New(limiter.Config{
			Max:        cfg.RateLimit,
			Expiration: time.Minute,
			LimitReached: func(c *fiber.Ctx) error {
				return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
					"error": "Too many requests",
				})
			},
		}), s.handleMedicalAI)
	} else {
		api.Post("/medical-ai", s.handleMedicalAI)
	}
	api.Get("/topics", s.handleTopics)
	api.Get("/knowledge", s.handleKnowledge)

	api.Post("/sessions", s.handleCreateSession)
	api.Get("/sessions/:id/conversation", s.handleGetConversation)
	api.Post("/sessions/:id/messages", s.handleSessionMessage)
	api.Delete("/sessions/:id", s.handleDeleteSession)

	app.Get("/health", s.handleHealth)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/session", websocket.New(s.handleSessionWS))
	app.Get("/ws/session/:id", websocket.New(s.handleSessionWS))
	if events != nil {
		app.Get("/ws/events", observer.New(s.handleEventsWS))
	}

	if cfg.StaticDir != "" {
		app.Static("/", cfg.StaticDir)
	}

	s.app = app
	return s
}

// App returns the underlying Fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until Shutdown.
func (s *Server) Listen(addr string) error {
	s.logger.Info("listening", "addr", addr)
	return s.app.Listen(addr)
}

// Shutdown stops accepting connections and waits for active requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	if code >= fiber.StatusInternalServerError {
		s.logger.Error("request failed", "path", c.Path(), "error", err)
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}
