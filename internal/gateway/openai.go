package gateway

import (
	"bytes"
	"context"
	"fmt"
	"io"

	openai "github.com/sashabaranov/go-openai"

	"github.com/WIlski54/dialoglab-english-coach/internal/config"
)

// Conversation replies stay short and conversational for young learners.
const (
	chatTemperature = 0.7
	chatMaxTokens   = 200
	visionMaxTokens = 300
)

// OpenAIClient implements Client against the OpenAI API.
type OpenAIClient struct {
	client *openai.Client
	cfg    *config.OpenAIConfig
}

// NewOpenAIClient creates the inference facade from validated configuration.
func NewOpenAIClient(cfg *config.OpenAIConfig) (*OpenAIClient, error) {
	if cfg == nil || cfg.APIKey == "" {
		return nil, fmt.Errorf("openai API key is required")
	}

	return &OpenAIClient{
		client: openai.NewClient(cfg.APIKey),
		cfg:    cfg,
	}, nil
}

// Chat requests one completion over the given conversation.
func (c *OpenAIClient) Chat(ctx context.Context, messages []Message) (string, error) {
	chatMessages := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		chatMessages = append(chatMessages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.cfg.ChatModel,
		Messages:    chatMessages,
		Temperature: chatTemperature,
		MaxTokens:   chatMaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}

	return resp.Choices[0].Message.Content, nil
}

// Speak synthesizes MP3 audio for the given text.
func (c *OpenAIClient) Speak(ctx context.Context, text string) ([]byte, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	resp, err := c.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model: openai.SpeechModel(c.cfg.TTSModel),
		Voice: openai.SpeechVoice(c.cfg.TTSVoice),
		Input: text,
	})
	if err != nil {
		return nil, fmt.Errorf("speech synthesis: %w", err)
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("read speech response: %w", err)
	}

	return audio, nil
}

// Transcribe converts recorded audio into text.
func (c *OpenAIClient) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	resp, err := c.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    c.cfg.TranscribeModel,
		FilePath: filename,
		Reader:   bytes.NewReader(audio),
	})
	if err != nil {
		return "", fmt.Errorf("transcription: %w", err)
	}

	return resp.Text, nil
}

// Describe answers a question about an image using the vision model.
func (c *OpenAIClient) Describe(ctx context.Context, question, imageURL string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     c.cfg.VisionModel,
		MaxTokens: visionMaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are an English teacher helping students practice English by answering questions about images. Answer in clear, simple English. Be encouraging and educational.",
			},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: question},
					{
						Type:     openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{URL: imageURL},
					},
				},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("image analysis: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}

	return resp.Choices[0].Message.Content, nil
}
