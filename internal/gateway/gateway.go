package gateway

import "context"

// Message roles understood by the chat endpoint.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one chat turn sent to the inference backend.
type Message struct {
	Role    string
	Content string
}

// Client is the remote inference facade. Every call is a single
// request/response round trip; callers own retries and error presentation.
type Client interface {
	// Chat requests one completion over the given conversation.
	Chat(ctx context.Context, messages []Message) (string, error)
	// Speak synthesizes spoken audio (MP3) for the given text.
	Speak(ctx context.Context, text string) ([]byte, error)
	// Transcribe converts recorded audio into text. The filename hint tells
	// the backend which container format the bytes are in.
	Transcribe(ctx context.Context, audio []byte, filename string) (string, error)
	// Describe answers a question about an image reachable at imageURL.
	Describe(ctx context.Context, question, imageURL string) (string, error)
}
