package session

import (
	"time"

	"github.com/WIlski54/dialoglab-english-coach/internal/scenario"
)

// Turn roles as they appear in history and on the wire.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Session status values. A session is visible to observers only while active.
const (
	StatusAwaitingScenario = "awaiting_scenario"
	StatusActive           = "active"
	StatusFinished         = "finished"
)

// Turn is one user-or-assistant message in a session's history.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Session is the server-side state for one student's ongoing conversation.
// History resets on scenario change; VocabularyHits and ErrorFlags accumulate
// for the whole connection lifetime regardless of scenario changes.
type Session struct {
	ID             string            `json:"id"`
	Scenario       scenario.Scenario `json:"scenario"`
	Level          scenario.Level    `json:"level"`
	History        []Turn            `json:"history"`
	LastUtterance  string            `json:"lastUtterance"`
	VocabularyHits []string          `json:"vocabularyHits"`
	ErrorFlags     []string          `json:"errorFlags"`
	Status         string            `json:"status"`
	StartedAt      time.Time         `json:"startedAt"`
	EndedAt        *time.Time        `json:"endedAt,omitempty"`
}

// View is the trimmed shape broadcast to observers. Field names match what
// the dashboard client reads.
type View struct {
	ID       string   `json:"id"`
	Scenario string   `json:"scenario"`
	Level    string   `json:"level"`
	LastText string   `json:"lastText"`
	VocaHit  []string `json:"vocaHit"`
	Errs     []string `json:"errs"`
}

// View returns the observer-facing projection of the session.
func (s *Session) View() *View {
	return &View{
		ID:       s.ID,
		Scenario: string(s.Scenario),
		Level:    string(s.Level),
		LastText: s.LastUtterance,
		VocaHit:  append([]string(nil), s.VocabularyHits...),
		Errs:     append([]string(nil), s.ErrorFlags...),
	}
}

// clone returns a deep copy so callers can read without holding store locks.
func (s *Session) clone() *Session {
	copied := *s
	copied.History = append([]Turn(nil), s.History...)
	copied.VocabularyHits = append([]string(nil), s.VocabularyHits...)
	copied.ErrorFlags = append([]string(nil), s.ErrorFlags...)
	if s.EndedAt != nil {
		ended := *s.EndedAt
		copied.EndedAt = &ended
	}
	return &copied
}
