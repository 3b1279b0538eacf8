// Package conversation holds the per-session state machine that turns
// student events into assistant turns.
package conversation

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/WIlski54/dialoglab-english-coach/internal/gateway"
	"github.com/WIlski54/dialoglab-english-coach/internal/scenario"
	"github.com/WIlski54/dialoglab-english-coach/internal/session"
)

// beginInstruction is the synthetic first turn that makes the assistant greet
// the student before any input.
const beginInstruction = "Please greet the student and start the conversation."

// flagMissingPunctuation is appended to a session's error flags when a
// student utterance has no terminal punctuation.
const flagMissingPunctuation = "missing terminal punctuation"

// Engine drives one session per call. Callers serialize calls per session
// (each session is owned by exactly one connection read loop); across
// sessions calls run concurrently.
type Engine struct {
	store *session.Store
	gw    gateway.Client
}

// NewEngine creates a conversation engine.
func NewEngine(store *session.Store, gw gateway.Client) *Engine {
	return &Engine{store: store, gw: gw}
}

// TurnResult is one outbound assistant turn plus the session state after the
// turn, for mirroring to observers. Audio is nil when synthesis failed; the
// text still gets delivered.
type TurnResult struct {
	Text    string
	Audio   []byte
	Session *session.Session
}

// SelectScenario restarts the conversation in the given scenario and level
// and requests the automatic opening turn. Unknown values fall back to the
// defaults. The session is mutated only after the chat call succeeds, so a
// gateway failure leaves it exactly as it was.
func (e *Engine) SelectScenario(ctx context.Context, id, rawScenario, rawLevel string) (*TurnResult, error) {
	if _, err := e.store.Get(id); err != nil {
		return nil, err
	}

	scen := scenario.Normalize(rawScenario)
	level := scenario.NormalizeLevel(rawLevel)
	systemPrompt := scenario.Prompt(scen, level)

	greeting, err := e.gw.Chat(ctx, []gateway.Message{
		{Role: gateway.RoleSystem, Content: systemPrompt},
		{Role: gateway.RoleUser, Content: beginInstruction},
	})
	if err != nil {
		return nil, fmt.Errorf("opening turn: %w", err)
	}

	// History resets to the new system prompt; vocabulary hits and error
	// flags accumulate across scenario changes and are left untouched.
	updated, err := e.store.Mutate(id, func(s *session.Session) {
		s.Scenario = scen
		s.Level = level
		s.Status = session.StatusActive
		s.History = []session.Turn{
			{Role: session.RoleSystem, Content: systemPrompt},
			{Role: session.RoleAssistant, Content: greeting},
		}
	})
	if err != nil {
		return nil, err
	}

	return &TurnResult{
		Text:    greeting,
		Audio:   e.synthesize(ctx, id, greeting),
		Session: updated,
	}, nil
}

// SubmitText processes one student utterance: append the user turn, run the
// heuristic assessment, request the assistant turn over the full history and
// synthesize its audio. Blank input is rejected with ErrEmptyText and changes
// nothing.
func (e *Engine) SubmitText(ctx context.Context, id, text string) (*TurnResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyText
	}

	withUser, err := e.store.Mutate(id, func(s *session.Session) {
		// A student can start typing before selecting a scenario; the
		// conversation then runs against the defaults.
		if len(s.History) == 0 {
			s.History = []session.Turn{
				{Role: session.RoleSystem, Content: scenario.Prompt(s.Scenario, s.Level)},
			}
		}
		s.Status = session.StatusActive
		s.History = append(s.History, session.Turn{Role: session.RoleUser, Content: text})
		s.LastUtterance = text

		hits, flags := Assess(text, s.Scenario)
		s.VocabularyHits = append(s.VocabularyHits, hits...)
		s.ErrorFlags = append(s.ErrorFlags, flags...)
	})
	if err != nil {
		return nil, err
	}

	messages := make([]gateway.Message, 0, len(withUser.History))
	for _, turn := range withUser.History {
		messages = append(messages, gateway.Message{Role: turn.Role, Content: turn.Content})
	}

	reply, err := e.gw.Chat(ctx, messages)
	if err != nil {
		// The turn aborts with no assistant turn appended; the student
		// retries by sending another message.
		return nil, fmt.Errorf("assistant turn: %w", err)
	}

	updated, err := e.store.Mutate(id, func(s *session.Session) {
		s.History = append(s.History, session.Turn{Role: session.RoleAssistant, Content: reply})
	})
	if err != nil {
		return nil, err
	}

	return &TurnResult{
		Text:    reply,
		Audio:   e.synthesize(ctx, id, reply),
		Session: updated,
	}, nil
}

// synthesize requests speech audio for a turn. Synthesis failure is not an
// error for the turn; spoken feedback is an enhancement, not the primary
// channel.
func (e *Engine) synthesize(ctx context.Context, id, text string) []byte {
	audio, err := e.gw.Speak(ctx, text)
	if err != nil {
		log.Printf("Speech synthesis failed for session %s: %v", id, err)
		return nil
	}
	return audio
}

// Assess runs the lightweight heuristics over one utterance: case-insensitive
// substring matches against the scenario's target vocabulary, and a terminal
// punctuation check.
func Assess(text string, scen scenario.Scenario) (hits, flags []string) {
	lowered := strings.ToLower(text)
	for _, word := range scenario.TargetVocabulary(scen) {
		if strings.Contains(lowered, strings.ToLower(word)) {
			hits = append(hits, word)
		}
	}

	trimmed := strings.TrimSpace(text)
	if trimmed != "" && !strings.ContainsAny(trimmed[len(trimmed)-1:], ".!?") {
		flags = append(flags, flagMissingPunctuation)
	}

	return hits, flags
}
