// Package completion builds the chat completion envelope and calls the
// OpenAI backend, translating backend pressure into user-facing guidance.
package completion

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/openai/openai-go/v3"

	"github.com/ambr-tech/chat-gpt-slack/internal/thread"
)

const (
	rateLimitedMessage = "OpenAIのAPIレート制限に達しました。しばらく待ってから再度お試しください。"
	unavailableMessage = "OpenAIのサービスが混み合っています。しばらく待ってから再度お試しください。"
	fallbackReplyText  = "回答を取得できませんでした"

	DefaultModel      = "gpt-3.5-turbo"
	DefaultMaxTokens  = 1000
	DefaultMaxReplies = 7
)

// BackendUnavailableError signals a rate limit or outage at the completion
// backend. Message carries the retry guidance shown to the user; the raw
// backend error stays wrapped underneath.
type BackendUnavailableError struct {
	Message string
	Cause   error
}

func (e *BackendUnavailableError) Error() string {
	return fmt.Sprintf("completion backend unavailable: %v", e.Cause)
}

func (e *BackendUnavailableError) Unwrap() error { return e.Cause }

type Options struct {
	Client openai.Client
	Model  string
	// MaxTokens bounds the response; MaxReplies bounds how many trailing
	// history turns are sent.
	MaxTokens  int64
	MaxReplies int
	// SystemRoleContent is the global default system prompt; empty means
	// no global system message.
	SystemRoleContent string
}

type Orchestrator struct {
	client            openai.Client
	model             string
	maxTokens         int64
	maxReplies        int
	systemRoleContent string
}

func New(opts Options) *Orchestrator {
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = DefaultModel
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	maxReplies := opts.MaxReplies
	if maxReplies <= 0 {
		maxReplies = DefaultMaxReplies
	}
	return &Orchestrator{
		client:            opts.Client,
		model:             model,
		maxTokens:         maxTokens,
		maxReplies:        maxReplies,
		systemRoleContent: strings.TrimSpace(opts.SystemRoleContent),
	}
}

// Generate sends the envelope (global system prompt, optional per-user
// override, then the trailing maxReplies history turns) and returns the
// first choice's text. A backend with nothing to say yields a fixed
// fallback string, not an error.
func (o *Orchestrator) Generate(ctx context.Context, history []thread.Message, userSystemRoleContent string) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+2)
	if o.systemRoleContent != "" {
		messages = append(messages, openai.SystemMessage(o.systemRoleContent))
	}
	if override := strings.TrimSpace(userSystemRoleContent); override != "" {
		messages = append(messages, openai.SystemMessage(override))
	}
	tail := history
	if len(tail) > o.maxReplies {
		tail = tail[len(tail)-o.maxReplies:]
	}
	for _, m := range tail {
		switch m.Role {
		case thread.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(m.Content))
		case thread.RoleSystem:
			messages = append(messages, openai.SystemMessage(m.Content))
		default:
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}

	res, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:     openai.ChatModel(o.model),
		Messages:  messages,
		MaxTokens: openai.Int(o.maxTokens),
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			switch {
			case apiErr.StatusCode == http.StatusTooManyRequests:
				return "", &BackendUnavailableError{Message: rateLimitedMessage, Cause: err}
			case apiErr.StatusCode >= 500:
				return "", &BackendUnavailableError{Message: unavailableMessage, Cause: err}
			}
		}
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(res.Choices) == 0 {
		return fallbackReplyText, nil
	}
	content := strings.TrimSpace(res.Choices[0].Message.Content)
	if content == "" {
		return fallbackReplyText, nil
	}
	return content, nil
}
