package websocket

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/WIlski54/dialoglab-english-coach/internal/session"
)

// ObserverHandler owns the dashboard-facing WebSocket endpoint. Observers are
// read-only: they get a full snapshot on connect and incremental updates
// afterwards, and anything they send is discarded.
type ObserverHandler struct {
	store       *session.Store
	broadcaster *Broadcaster
	upgrader    websocket.Upgrader
}

// NewObserverHandler creates the handler.
func NewObserverHandler(store *session.Store, broadcaster *Broadcaster, allowedOrigins []string) *ObserverHandler {
	return &ObserverHandler{
		store:       store,
		broadcaster: broadcaster,
		upgrader: websocket.Upgrader{
			CheckOrigin:      originChecker(allowedOrigins),
			HandshakeTimeout: 10 * time.Second,
		},
	}
}

// HandleWebSocket upgrades the request, seeds the observer with the current
// snapshot and keeps it registered until the socket closes.
func (h *ObserverHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Observer WebSocket upgrade failed: %v", err)
		return
	}

	wsConn := NewConnection(conn)

	// Snapshot before registration would race with concurrent updates in the
	// other direction; registering first means the worst case is a duplicate
	// update, which the dashboard applies idempotently.
	h.broadcaster.Register(wsConn)
	if err := wsConn.WriteJSON(h.store.Snapshot()); err != nil {
		log.Printf("Failed to send snapshot to observer: %v", err)
		h.broadcaster.Unregister(wsConn)
		_ = wsConn.Close()
		return
	}
	log.Printf("Observer connected (%d total)", h.broadcaster.ObserverCount())

	go h.drainConnection(wsConn)
}

func (h *ObserverHandler) drainConnection(conn *Connection) {
	defer func() {
		h.broadcaster.Unregister(conn)
		_ = conn.Close()
		log.Printf("Observer disconnected (%d remaining)", h.broadcaster.ObserverCount())
	}()

	if err := conn.conn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
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

	for {
		if _, _, err := conn.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("Observer WebSocket error: %v", err)
			}
			return
		}
	}
}
