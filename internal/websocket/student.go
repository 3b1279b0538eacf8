package websocket

import (
	"context"
	"encoding/base64"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/WIlski54/dialoglab-english-coach/internal/conversation"
	"github.com/WIlski54/dialoglab-english-coach/internal/protocol"
	"github.com/WIlski54/dialoglab-english-coach/internal/session"
)

// SessionArchiver persists a finished session. Implemented by database.Archive.
type SessionArchiver interface {
	SaveSession(ctx context.Context, s *session.Session) error
}

// StudentHandler owns the student-facing WebSocket endpoint. Each accepted
// connection gets a fresh session whose lifetime is bound to the socket.
type StudentHandler struct {
	store       *session.Store
	engine      *conversation.Engine
	broadcaster *Broadcaster
	archive     SessionArchiver
	upgrader    websocket.Upgrader
}

// NewStudentHandler creates the handler. An empty allowedOrigins slice or a
// "*" entry permits every origin, matching local classroom deployments where
// students connect from file:// pages. archive may be nil to disable session
// archiving.
func NewStudentHandler(store *session.Store, engine *conversation.Engine, broadcaster *Broadcaster, archive SessionArchiver, allowedOrigins []string) *StudentHandler {
	return &StudentHandler{
		store:       store,
		engine:      engine,
		broadcaster: broadcaster,
		archive:     archive,
		upgrader: websocket.Upgrader{
			CheckOrigin:      originChecker(allowedOrigins),
			HandshakeTimeout: 10 * time.Second,
		},
	}
}

func originChecker(allowed []string) func(*http.Request) bool {
	permitted := make(map[string]bool, len(allowed))
	for _, origin := range allowed {
		if origin == "*" {
			return func(*http.Request) bool { return true }
		}
		permitted[origin] = true
	}
	if len(permitted) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		return permitted[r.Header.Get("Origin")]
	}
}

// HandleWebSocket upgrades the request and runs the student read loop until
// the socket closes.
func (h *StudentHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Student WebSocket upgrade failed: %v", err)
		return
	}

	wsConn := NewConnection(conn)
	sessionID := h.store.Create()
	log.Printf("Student connected, session %s", sessionID)

	go h.handleConnection(wsConn, sessionID)
}

func (h *StudentHandler) handleConnection(conn *Connection, sessionID string) {
	defer func() {
		h.finishSession(sessionID)
		_ = conn.Close()
	}()

	if err := conn.conn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
		log.Printf("Failed to set read deadline: %v", err)
		return
	}
	conn.conn.SetPongHandler(func(string) error {
		return conn.conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ticker.C:
				if err := conn.conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(10*time.Second)); err != nil {
					return
				}
			case <-conn.ctx.Done():
				return
			}
		}
	}()

	// One message at a time per connection; the read loop is the serialization
	// point for all turns of this session.
	for {
		messageType, data, err := conn.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("Student WebSocket error on session %s: %v", sessionID, err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		h.dispatch(conn, sessionID, data)
	}
}

func (h *StudentHandler) dispatch(conn *Connection, sessionID string, data []byte) {
	msg, err := protocol.ParseInbound(data)
	if err != nil {
		h.reply(conn, protocol.NewError("invalid message"))
		return
	}

	ctx := context.Background()

	switch m := msg.(type) {
	case protocol.SelectScenario:
		result, err := h.engine.SelectScenario(ctx, sessionID, m.Scenario, m.Level)
		if err != nil {
			h.turnFailed(conn, sessionID, err)
			return
		}
		h.reply(conn, protocol.NewScenarioChanged(string(result.Session.Scenario), string(result.Session.Level)))
		h.deliverTurn(conn, result)

	case protocol.SubmitText:
		result, err := h.engine.SubmitText(ctx, sessionID, m.Text)
		if err != nil {
			if errors.Is(err, conversation.ErrEmptyText) {
				return
			}
			h.turnFailed(conn, sessionID, err)
			return
		}
		h.deliverTurn(conn, result)

	case protocol.Unknown:
		log.Printf("Ignoring unknown message type %q on session %s", m.Type, sessionID)
	}
}

func (h *StudentHandler) deliverTurn(conn *Connection, result *conversation.TurnResult) {
	audio := ""
	if len(result.Audio) > 0 {
		audio = base64.StdEncoding.EncodeToString(result.Audio)
	}
	h.reply(conn, protocol.NewServerResponse(result.Text, audio))
	h.broadcaster.Update(result.Session.View())
}

func (h *StudentHandler) turnFailed(conn *Connection, sessionID string, err error) {
	if errors.Is(err, session.ErrSessionNotFound) {
		return
	}
	log.Printf("Turn failed on session %s: %v", sessionID, err)
	h.reply(conn, protocol.NewError("assistant is unavailable, please try again"))
}

func (h *StudentHandler) reply(conn *Connection, v interface{}) {
	if err := conn.WriteJSON(v); err != nil {
		log.Printf("Failed to write to student connection: %v", err)
	}
}

// finishSession removes the session, notifies observers and archives the
// terminal snapshot.
func (h *StudentHandler) finishSession(sessionID string) {
	sess := h.store.Remove(sessionID)
	if sess == nil {
		return
	}
	h.broadcaster.Remove(sessionID)
	log.Printf("Student disconnected, session %s removed", sessionID)

	if h.archive == nil || sess.Status == session.StatusAwaitingScenario {
		return
	}
	now := time.Now()
	sess.Status = session.StatusFinished
	sess.EndedAt = &now

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := h.archive.SaveSession(ctx, sess); err != nil {
		log.Printf("Failed to archive session %s: %v", sessionID, err)
	}
}
