package conversation

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/WIlski54/dialoglab-english-coach/internal/gateway"
	"github.com/WIlski54/dialoglab-english-coach/internal/scenario"
	"github.com/WIlski54/dialoglab-english-coach/internal/session"
)

// Mock gateway client for testing
type mockGateway struct {
	chatReply  string
	chatErr    error
	speakAudio []byte
	speakErr   error

	chatCalls [][]gateway.Message
}

func (m *mockGateway) Chat(ctx context.Context, messages []gateway.Message) (string, error) {
	copied := append([]gateway.Message(nil), messages...)
	m.chatCalls = append(m.chatCalls, copied)
	return m.chatReply, m.chatErr
}

func (m *mockGateway) Speak(ctx context.Context, text string) ([]byte, error) {
	return m.speakAudio, m.speakErr
}

func (m *mockGateway) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	return "", nil
}

func (m *mockGateway) Describe(ctx context.Context, question, imageURL string) (string, error) {
	return "", nil
}

func newTestEngine(gw *mockGateway) (*Engine, *session.Store, string) {
	store := session.NewStore()
	return NewEngine(store, gw), store, store.Create()
}

func TestEngine_SelectScenarioOpeningTurn(t *testing.T) {
	gw := &mockGateway{chatReply: "Welcome to our restaurant!", speakAudio: []byte("mp3")}
	engine, _, id := newTestEngine(gw)

	result, err := engine.SelectScenario(context.Background(), id, "restaurant", "A2")
	if err != nil {
		t.Fatalf("SelectScenario failed: %v", err)
	}

	if result.Text != "Welcome to our restaurant!" {
		t.Errorf("Expected greeting text, got %q", result.Text)
	}
	if string(result.Audio) != "mp3" {
		t.Error("Expected synthesized audio in the result")
	}
	if result.Session.Status != session.StatusActive {
		t.Errorf("Session should be active, got %q", result.Session.Status)
	}
	if len(result.Session.History) != 2 {
		t.Fatalf("Expected system prompt plus greeting in history, got %d turns", len(result.Session.History))
	}
	if result.Session.History[0].Role != session.RoleSystem {
		t.Error("History should start with the system prompt")
	}
	if result.Session.History[1].Role != session.RoleAssistant {
		t.Error("Greeting should be recorded as an assistant turn")
	}

	// The opening request carries the begin instruction, not conversation
	// history.
	if len(gw.chatCalls) != 1 {
		t.Fatalf("Expected 1 chat call, got %d", len(gw.chatCalls))
	}
	opening := gw.chatCalls[0]
	if len(opening) != 2 || opening[1].Content != beginInstruction {
		t.Errorf("Opening turn should send the begin instruction, got %+v", opening)
	}
}

func TestEngine_SelectScenarioUnknownValuesFallBack(t *testing.T) {
	gw := &mockGateway{chatReply: "Hello!"}
	engine, _, id := newTestEngine(gw)

	result, err := engine.SelectScenario(context.Background(), id, "spaceship", "C2")
	if err != nil {
		t.Fatalf("SelectScenario failed: %v", err)
	}
	if result.Session.Scenario != scenario.DefaultScenario {
		t.Errorf("Expected default scenario, got %q", result.Session.Scenario)
	}
	if result.Session.Level != scenario.DefaultLevel {
		t.Errorf("Expected default level, got %q", result.Session.Level)
	}
}

func TestEngine_SelectScenarioChatFailureLeavesSessionUntouched(t *testing.T) {
	gw := &mockGateway{chatErr: errors.New("backend down")}
	engine, store, id := newTestEngine(gw)

	if _, err := engine.SelectScenario(context.Background(), id, "hotel", "B1"); err == nil {
		t.Fatal("Expected error when the chat call fails")
	}

	sess, _ := store.Get(id)
	if sess.Status != session.StatusAwaitingScenario {
		t.Errorf("Session should still await a scenario, got %q", sess.Status)
	}
	if len(sess.History) != 0 {
		t.Error("A failed selection should leave no history behind")
	}
	if sess.Scenario != scenario.DefaultScenario {
		t.Error("A failed selection should not change the scenario")
	}
}

func TestEngine_ScenarioChangeResetsHistoryKeepsAccumulators(t *testing.T) {
	gw := &mockGateway{chatReply: "Hello!"}
	engine, store, id := newTestEngine(gw)

	engine.SelectScenario(context.Background(), id, "shop", "A2")
	engine.SubmitText(context.Background(), id, "How much is it")

	before, _ := store.Get(id)
	if len(before.VocabularyHits) == 0 {
		t.Fatal("Expected vocabulary hits before the change")
	}
	if len(before.ErrorFlags) == 0 {
		t.Fatal("Expected error flags before the change")
	}

	result, err := engine.SelectScenario(context.Background(), id, "airport", "A2")
	if err != nil {
		t.Fatalf("Scenario change failed: %v", err)
	}

	if len(result.Session.History) != 2 {
		t.Errorf("History should reset to prompt plus greeting, got %d turns", len(result.Session.History))
	}
	if len(result.Session.VocabularyHits) != len(before.VocabularyHits) {
		t.Error("Vocabulary hits should accumulate across scenario changes")
	}
	if len(result.Session.ErrorFlags) != len(before.ErrorFlags) {
		t.Error("Error flags should accumulate across scenario changes")
	}
	if result.Session.Scenario != scenario.Airport {
		t.Errorf("Expected airport scenario, got %q", result.Session.Scenario)
	}
}

func TestEngine_SubmitTextFullTurn(t *testing.T) {
	gw := &mockGateway{chatReply: "It costs two pounds.", speakAudio: []byte("mp3")}
	engine, store, id := newTestEngine(gw)
	engine.SelectScenario(context.Background(), id, "shop", "A2")
	gw.chatCalls = nil

	result, err := engine.SubmitText(context.Background(), id, "How much is the apple?")
	if err != nil {
		t.Fatalf("SubmitText failed: %v", err)
	}

	if result.Text != "It costs two pounds." {
		t.Errorf("Unexpected reply %q", result.Text)
	}
	hit := false
	for _, h := range result.Session.VocabularyHits {
		if h == "how much" {
			hit = true
		}
	}
	if !hit {
		t.Errorf("Expected \"how much\" vocabulary hit, got %v", result.Session.VocabularyHits)
	}
	if len(result.Session.ErrorFlags) != 0 {
		t.Errorf("Punctuated utterance should raise no flags, got %v", result.Session.ErrorFlags)
	}
	if result.Session.LastUtterance != "How much is the apple?" {
		t.Errorf("Last utterance not recorded, got %q", result.Session.LastUtterance)
	}

	// History after the turn: system, greeting, user, assistant.
	sess, _ := store.Get(id)
	if len(sess.History) != 4 {
		t.Fatalf("Expected 4 history turns, got %d", len(sess.History))
	}
	if sess.History[2].Role != session.RoleUser || sess.History[3].Role != session.RoleAssistant {
		t.Error("User and assistant turns should be appended in order")
	}

	// The chat request carries the history up to and including the user turn.
	if len(gw.chatCalls) != 1 {
		t.Fatalf("Expected 1 chat call, got %d", len(gw.chatCalls))
	}
	sent := gw.chatCalls[0]
	if len(sent) != 3 || sent[2].Content != "How much is the apple?" {
		t.Errorf("Chat request should end with the user turn, got %+v", sent)
	}
}

func TestEngine_SubmitTextBeforeScenarioUsesDefaults(t *testing.T) {
	gw := &mockGateway{chatReply: "Of course!"}
	engine, store, id := newTestEngine(gw)

	if _, err := engine.SubmitText(context.Background(), id, "I would like a table."); err != nil {
		t.Fatalf("SubmitText failed: %v", err)
	}

	sess, _ := store.Get(id)
	if sess.Status != session.StatusActive {
		t.Error("Typing before selecting a scenario should activate the session")
	}
	if len(sess.History) != 3 {
		t.Fatalf("Expected system, user and assistant turns, got %d", len(sess.History))
	}
	if sess.History[0].Role != session.RoleSystem {
		t.Error("A default system prompt should be inserted lazily")
	}
	if !strings.Contains(sess.History[0].Content, "waiter") {
		t.Error("The lazy system prompt should describe the default scenario")
	}
}

func TestEngine_SubmitTextEmptyInput(t *testing.T) {
	gw := &mockGateway{}
	engine, store, id := newTestEngine(gw)

	for _, input := range []string{"", "   ", "\n\t"} {
		if _, err := engine.SubmitText(context.Background(), id, input); err != ErrEmptyText {
			t.Errorf("SubmitText(%q): expected ErrEmptyText, got %v", input, err)
		}
	}
	sess, _ := store.Get(id)
	if len(sess.History) != 0 {
		t.Error("Empty input should change nothing")
	}
	if len(gw.chatCalls) != 0 {
		t.Error("Empty input should not reach the gateway")
	}
}

func TestEngine_SubmitTextChatFailureAbortsTurn(t *testing.T) {
	gw := &mockGateway{chatReply: "Hello!"}
	engine, store, id := newTestEngine(gw)
	engine.SelectScenario(context.Background(), id, "shop", "A2")

	gw.chatErr = errors.New("backend down")
	if _, err := engine.SubmitText(context.Background(), id, "How much?"); err == nil {
		t.Fatal("Expected error when the chat call fails")
	}

	// The user turn stays recorded but no assistant turn is fabricated.
	sess, _ := store.Get(id)
	last := sess.History[len(sess.History)-1]
	if last.Role != session.RoleUser {
		t.Errorf("Failed turn should end with the user turn, got role %q", last.Role)
	}
}

func TestEngine_SpeechFailureIsNotATurnError(t *testing.T) {
	gw := &mockGateway{chatReply: "Hello!", speakErr: errors.New("tts down")}
	engine, _, id := newTestEngine(gw)

	result, err := engine.SelectScenario(context.Background(), id, "shop", "A2")
	if err != nil {
		t.Fatalf("Speech failure must not fail the turn: %v", err)
	}
	if result.Audio != nil {
		t.Error("Audio should be nil when synthesis fails")
	}
	if result.Text != "Hello!" {
		t.Error("Text delivery must not depend on synthesis")
	}
}

func TestEngine_UnknownSession(t *testing.T) {
	gw := &mockGateway{chatReply: "Hello!"}
	store := session.NewStore()
	engine := NewEngine(store, gw)

	if _, err := engine.SelectScenario(context.Background(), "missing", "shop", "A2"); !errors.Is(err, session.ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
	if _, err := engine.SubmitText(context.Background(), "missing", "Hello."); !errors.Is(err, session.ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}

func TestAssess(t *testing.T) {
	hits, flags := Assess("How much is the apple", scenario.Shop)
	if len(hits) != 1 || hits[0] != "how much" {
		t.Errorf("Expected [how much], got %v", hits)
	}
	if len(flags) != 1 {
		t.Errorf("Missing punctuation should be flagged, got %v", flags)
	}

	hits, flags = Assess("I want to PAY, it is cheap!", scenario.Shop)
	if len(hits) != 2 {
		t.Errorf("Matching should be case-insensitive, got %v", hits)
	}
	if len(flags) != 0 {
		t.Errorf("Punctuated utterance should raise no flags, got %v", flags)
	}
}
