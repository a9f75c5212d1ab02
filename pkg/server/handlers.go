package server

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/teslashibe/medi-voice/pkg/assistant"
	"github.com/teslashibe/medi-voice/pkg/conversation"
	"github.com/teslashibe/medi-voice/pkg/session"
)

// MedicalAIRequest is the body of POST /api/medical-ai.
type MedicalAIRequest struct {
	Message      string         `json:"message"`
	Conversation []HistoryEntry `json:"conversation"`
}

// HistoryEntry is one prior turn supplied by the client. Timestamps are
// accepted in any shape and ignored.
type HistoryEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (r MedicalAIRequest) history() []conversation.Message {
	out := make([]conversation.Message, 0, len(r.Conversation))
	for _, e := range r.Conversation {
		out = append(out, conversation.Message{
			Role:    conversation.Role(e.Role),
			Content: e.Content,
		})
	}
	return out
}

// handleMedicalAI answers one stateless question. Every failure past input
// validation still produces a 200 with a usable reply.
func (s *Server) handleMedicalAI(c *fiber.Ctx) (err error) {
	defer func() {
		if p := recover(); p != nil {
			s.logger.Error("medical-ai panicked", "panic", p)
			err = c.JSON(assistant.TechnicalDifficulty())
		}
	}()

	// Bodies without a content type are read as JSON.
	if len(c.Request().Header.ContentType()) == 0 {
		c.Request().Header.SetContentType(fiber.MIMEApplicationJSON)
	}

	var req MedicalAIRequest
	if err := c.BodyParser(&req); err != nil {
		s.logger.Warn("invalid request body", "error", err)
		return c.JSON(assistant.TechnicalDifficulty())
	}
	if req.Message == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Message is required",
		})
	}

	res := s.resolver.Respond(c.UserContext(), req.Message, req.history())
	return c.JSON(res)
}

func (s *Server) handleTopics(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"topics": s.resolver.Responder().TopicNames(),
	})
}

func (s *Server) handleKnowledge(c *fiber.Ctx) error {
	return c.JSON(s.config.Panel)
}

// SessionInfo describes a newly created session.
type SessionInfo struct {
	ID      string    `json:"id"`
	Created time.Time `json:"created"`
}

func (s *Server) handleCreateSession(c *fiber.Ctx) error {
	sess, err := s.sessions.Create(c.UserContext())
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(SessionInfo{
		ID:      sess.ID(),
		Created: sess.Created(),
	})
}

func (s *Server) handleGetConversation(c *fiber.Ctx) error {
	sess, err := s.session(c)
	if err != nil {
		return err
	}
	msgs, err := sess.History(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"session_id": sess.ID(),
		"messages":   msgs,
	})
}

// SessionMessageRequest is the body of POST /api/sessions/:id/messages.
type SessionMessageRequest struct {
	Message string `json:"message"`
}

func (s *Server) handleSessionMessage(c *fiber.Ctx) error {
	sess, err := s.session(c)
	if err != nil {
		return err
	}

	var req SessionMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid JSON body")
	}
	if strings.TrimSpace(req.Message) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Message is required")
	}

	res, _, err := sess.Ask(c.UserContext(), req.Message)
	if errors.Is(err, session.ErrClosed) {
		return fiber.NewError(fiber.StatusGone, err.Error())
	}
	if err != nil {
		return err
	}
	return c.JSON(res)
}

func (s *Server) handleDeleteSession(c *fiber.Ctx) error {
	err := s.sessions.Close(c.UserContext(), c.Params("id"))
	if errors.Is(err, session.ErrNotFound) {
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	}
	if err != nil {
		s.logger.Warn("close session", "error", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) session(c *fiber.Ctx) (*session.Session, error) {
	sess, err := s.sessions.Get(c.Params("id"))
	if err != nil {
		return nil, fiber.NewError(fiber.StatusNotFound, err.Error())
	}
	return sess, nil
}

// HealthStatus is the body of GET /health.
type HealthStatus struct {
	Status    string `json:"status"`
	Provider  string `json:"provider"`
	Sessions  int    `json:"sessions"`
	Observers int    `json:"observers"`
}

// Provider health values.
const (
	ProviderOK            = "ok"
	ProviderUnavailable   = "unavailable"
	ProviderNotConfigured = "not_configured"
)

// handleHealth always answers 200: without the remote service every reply
// still comes from the fallback responder.
func (s *Server) handleHealth(c *fiber.Ctx) error {
	status := HealthStatus{
		Status:   "ok",
		Provider: ProviderNotConfigured,
		Sessions: s.sessions.Count(),
	}
	if s.events != nil {
		status.Observers = s.events.ClientCount()
	}
	if p := s.config.Provider; p != nil {
		if err := p.Health(c.UserContext()); err != nil {
			s.logger.Warn("provider health check failed", "error", err)
			status.Provider = ProviderUnavailable
		} else {
			status.Provider = ProviderOK
		}
	}
	return c.JSON(status)
}
