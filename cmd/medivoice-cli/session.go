package main

import (
	"bufio"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/medi-voice/internal/log"
	"github.com/teslashibe/medi-voice/pkg/conversation"
	"github.com/teslashibe/medi-voice/pkg/protocol"
)

// sessionURL turns the HTTP base URL into the session websocket URL.
func sessionURL(base string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws/session"
	return u.String(), nil
}

// runSession opens a fresh session. Every typed line is sent as one
// final recognition result, the way the browser reports speech.
func runSession(base string, in io.Reader, out io.Writer) error {
	wsURL, err := sessionURL(base)
	if err != nil {
		return err
	}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", wsURL, err)
	}
	defer conn.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			msg, err := protocol.ParseMessage(data)
			if err != nil {
				log.Debug("unparseable event", "error", err)
				continue
			}
			printEvent(out, msg)
		}
	}()

	fmt.Fprintln(out, "Type a question and press enter. Ctrl-D to quit.")
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		for _, m := range utterance(line) {
			b, err := m.Bytes()
			if err != nil {
				return err
			}
			if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return err
			}
		}
	}

	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	<-done
	return scanner.Err()
}

// utterance is the start, result, end sequence a browser recognizer
// produces for one spoken line.
func utterance(text string) []*protocol.Message {
	start, _ := protocol.NewMessage(protocol.TypeStart, nil)
	result, _ := protocol.NewResultMessage(text, true)
	end, _ := protocol.NewMessage(protocol.TypeEnd, nil)
	return []*protocol.Message{start, result, end}
}

func printEvent(w io.Writer, msg *protocol.Message) {
	switch msg.Type {
	case protocol.TypeSession:
		var d protocol.SessionData
		if msg.ParseData(&d) == nil {
			fmt.Fprintf(w, "[session %s]\n", d.SessionID)
		}
	case protocol.TypeMessage:
		d, err := msg.GetChatData()
		if err != nil {
			return
		}
		who := "you"
		if d.Message.Role == conversation.RoleAssistant {
			who = "medi"
		}
		fmt.Fprintf(w, "%s> %s\n", who, d.Message.Content)
	case protocol.TypeProcessing:
		var d protocol.ProcessingData
		if msg.ParseData(&d) == nil && d.Processing {
			fmt.Fprintln(w, "...")
		}
	case protocol.TypeNotice:
		d, err := msg.GetNoticeData()
		if err == nil {
			fmt.Fprintf(w, "[%s] %s\n", d.Level, d.Text)
		}
	}
}
