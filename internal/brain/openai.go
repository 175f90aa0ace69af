package brain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/sashabaranov/go-openai"
)

const DefaultSystemPrompt = "You are ARIA, a futuristic AI voice assistant. You are helpful, intelligent, and have a slightly futuristic personality. Keep your responses conversational and engaging, but concise enough for speech."

// OpenAIConfig holds the chat completion settings.
type OpenAIConfig struct {
	BaseURL         string
	Model           string
	MaxTokens       int
	Temperature     float32
	SystemPrompt    string
	HistoryMessages int
	HTTPClient      *http.Client
}

// OpenAICompleter calls the OpenAI chat completion API and keeps a bounded
// in-memory history so follow-up questions have context.
type OpenAICompleter struct {
	cfg OpenAIConfig

	mu        sync.Mutex
	history   []openai.ChatCompletionMessage
	client    *openai.Client
	clientKey string
}

func NewOpenAICompleter(cfg OpenAIConfig) *OpenAICompleter {
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = openai.GPT4
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 500
	}
	if strings.TrimSpace(cfg.SystemPrompt) == "" {
		cfg.SystemPrompt = DefaultSystemPrompt
	}
	if cfg.HistoryMessages < 0 {
		cfg.HistoryMessages = 0
	}
	// History is trimmed in user/assistant pairs so it never opens with a reply.
	cfg.HistoryMessages -= cfg.HistoryMessages % 2
	return &OpenAICompleter{cfg: cfg}
}

func (c *OpenAICompleter) Complete(ctx context.Context, prompt, credential string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	user := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt}
	messages := make([]openai.ChatCompletionMessage, 0, len(c.history)+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: c.cfg.SystemPrompt,
	})
	messages = append(messages, c.history...)
	messages = append(messages, user)

	resp, err := c.clientFor(credential).CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		Messages:    messages,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	})
	if err != nil {
		return "", wrapOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices", ErrMalformedResponse)
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("%w: empty content", ErrMalformedResponse)
	}

	c.history = append(c.history, user, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleAssistant,
		Content: text,
	})
	if over := len(c.history) - c.cfg.HistoryMessages; over > 0 {
		c.history = append([]openai.ChatCompletionMessage(nil), c.history[over:]...)
	}
	return text, nil
}

func (c *OpenAICompleter) ResetHistory() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = nil
}

// HistoryLen reports how many non-system messages are kept.
func (c *OpenAICompleter) HistoryLen() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.history)
}

func (c *OpenAICompleter) clientFor(credential string) *openai.Client {
	if c.client != nil && c.clientKey == credential {
		return c.client
	}
	oc := openai.DefaultConfig(credential)
	if base := strings.TrimSpace(c.cfg.BaseURL); base != "" {
		oc.BaseURL = strings.TrimRight(base, "/")
	}
	if c.cfg.HTTPClient != nil {
		oc.HTTPClient = c.cfg.HTTPClient
	}
	c.client = openai.NewClientWithConfig(oc)
	c.clientKey = credential
	return c.client
}

func wrapOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode > 0 {
		return &StatusError{Code: apiErr.HTTPStatusCode, Err: err}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode > 0 {
		return &StatusError{Code: reqErr.HTTPStatusCode, Err: err}
	}
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return err
}
