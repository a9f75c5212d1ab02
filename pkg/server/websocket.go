package server

import (
	"context"
	"errors"

	"github.com/gofiber/contrib/websocket"
	observer "github.com/gofiber/websocket/v2"

	"github.com/teslashibe/medi-voice/pkg/hub"
	"github.com/teslashibe/medi-voice/pkg/protocol"
	"github.com/teslashibe/medi-voice/pkg/session"
	"github.com/teslashibe/medi-voice/pkg/voice"
)

// handleSessionWS bridges the browser's speech engines to a session.
// Without an ID a new session is created and closed on disconnect.
func (s *Server) handleSessionWS(c *websocket.Conn) {
	id := c.Params("id")
	ephemeral := id == ""

	var (
		sess *session.Session
		err  error
	)
	if ephemeral {
		sess, err = s.sessions.Create(context.Background())
	} else {
		sess, err = s.sessions.Get(id)
	}
	if err != nil {
		s.closeWith(c, websocket.CloseNormalClosure, err.Error())
		return
	}
	if err := sess.Attach(); err != nil {
		s.closeWith(c, websocket.ClosePolicyViolation, err.Error())
		return
	}
	defer sess.Detach()
	if ephemeral {
		defer s.sessions.Close(context.Background(), sess.ID())
	}

	log := s.logger.With("session_id", sess.ID())
	log.Debug("session socket connected")

	// greet with the session identity and recognizer state before the
	// writer goroutine owns the connection
	hello, _ := protocol.NewSessionMessage(sess.ID(), session.EventOpened)
	state, _ := protocol.NewStateMessage(sess.Recognizer().State())
	for _, m := range []*protocol.Message{hello, state} {
		if err := writeMessage(c, m); err != nil {
			return
		}
	}

	done := make(chan struct{})
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for {
			select {
			case <-done:
				return
			case msg, ok := <-sess.Events():
				if !ok {
					c.WriteMessage(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"))
					c.Close()
					return
				}
				if err := writeMessage(c, msg); err != nil {
					log.Debug("write failed", "error", err)
					c.Close()
					return
				}
			}
		}
	}()

	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			break
		}
		msg, err := protocol.ParseMessage(data)
		if err != nil {
			log.Debug("unparseable message", "error", err)
			continue
		}
		if err := sess.Handle(msg); err != nil {
			if errors.Is(err, session.ErrClosed) {
				break
			}
			log.Debug("message rejected", "type", msg.Type, "error", err)
		}
	}

	close(done)
	<-writerDone

	// an utterance cut off mid-recognition does not linger
	if sess.Recognizer().State() != voice.StateIdle {
		sess.Recognizer().End()
	}
	log.Debug("session socket disconnected")
}

func writeMessage(c *websocket.Conn, msg *protocol.Message) error {
	data, err := msg.Bytes()
	if err != nil {
		return err
	}
	return c.WriteMessage(websocket.TextMessage, data)
}

func (s *Server) closeWith(c *websocket.Conn, code int, reason string) {
	c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason))
}

// handleEventsWS streams every session's messages and processing changes
// to an observer.
func (s *Server) handleEventsWS(c *observer.Conn) {
	client := hub.NewClient(s.events, c)
	if client == nil {
		return
	}
	client.Run()
}
