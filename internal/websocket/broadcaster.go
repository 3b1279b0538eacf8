package websocket

import (
	"log"
	"sync"

	"github.com/WIlski54/dialoglab-english-coach/internal/protocol"
	"github.com/WIlski54/dialoglab-english-coach/internal/session"
)

// ObserverWriter is the piece of Connection the broadcaster needs. Tests
// substitute a recording fake.
type ObserverWriter interface {
	WriteJSON(v interface{}) error
}

// Broadcaster fans session updates out to every connected dashboard observer.
// Delivery is best effort; an observer whose write fails is dropped and will
// resync with a fresh snapshot when it reconnects.
type Broadcaster struct {
	mu        sync.RWMutex
	observers map[ObserverWriter]bool
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{observers: make(map[ObserverWriter]bool)}
}

// Register adds an observer to the broadcast set.
func (b *Broadcaster) Register(w ObserverWriter) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.observers[w] = true
}

// Unregister removes an observer.
func (b *Broadcaster) Unregister(w ObserverWriter) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.observers, w)
}

// ObserverCount returns the number of connected observers.
func (b *Broadcaster) ObserverCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.observers)
}

// Update pushes one changed session to all observers. The wire shape is a
// single-element array; the dashboard consumes snapshots and updates with the
// same code path.
func (b *Broadcaster) Update(view *session.View) {
	b.send([]*session.View{view})
}

// Remove tells observers a session is gone.
func (b *Broadcaster) Remove(sessionID string) {
	b.send(protocol.NewSessionRemove(sessionID))
}

func (b *Broadcaster) send(v interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for w := range b.observers {
		if err := w.WriteJSON(v); err != nil {
			log.Printf("Dropping observer after failed write: %v", err)
			delete(b.observers, w)
		}
	}
}
