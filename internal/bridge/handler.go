// Package bridge wires one inbound Slack event through classification,
// command routing, thread assembly and completion, and writes the result
// back into the thread.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/ambr-tech/chat-gpt-slack/internal/chunk"
	"github.com/ambr-tech/chat-gpt-slack/internal/command"
	"github.com/ambr-tech/chat-gpt-slack/internal/completion"
	"github.com/ambr-tech/chat-gpt-slack/internal/mention"
	"github.com/ambr-tech/chat-gpt-slack/internal/signature"
	"github.com/ambr-tech/chat-gpt-slack/internal/slackapi"
	"github.com/ambr-tech/chat-gpt-slack/internal/slackevent"
	"github.com/ambr-tech/chat-gpt-slack/internal/thread"
	"github.com/ambr-tech/chat-gpt-slack/internal/userconfig"
)

const (
	// HeaderRetryNum marks a redelivery of an event Slack already sent.
	// Redeliveries must become no-ops before any side-effecting call.
	HeaderRetryNum = "X-Slack-Retry-Num"

	DefaultProgressMessage = "回答を考え中です..."
	DefaultMaxMessageBytes = 4000

	mentionRequiredMessage = "メンション付きで送信してください"
	emptyTextMessage       = "空文字は処理できません！"
	unexpectedErrorMessage = "予期しないエラーが発生しちゃいました！ :("
)

type Handler struct {
	Slack      *slackapi.Client
	Store      *userconfig.Store
	Completion *completion.Orchestrator
	Verifier   *signature.Verifier
	Router     *command.Router
	Logger     *slog.Logger

	ProgressMessage string
	MaxMessageBytes int
}

func (h *Handler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

func (h *Handler) progressMessage() string {
	if h.ProgressMessage != "" {
		return h.ProgressMessage
	}
	return DefaultProgressMessage
}

func (h *Handler) maxMessageBytes() int {
	if h.MaxMessageBytes > 0 {
		return h.MaxMessageBytes
	}
	return DefaultMaxMessageBytes
}

// HandleEvent processes one webhook delivery: retry short-circuit, signature
// check, then the shared callback path.
func (h *Handler) HandleEvent(ctx context.Context, headers http.Header, rawBody []byte) Response {
	logger := h.logger().With("request_id", uuid.NewString())

	if strings.TrimSpace(headers.Get(HeaderRetryNum)) != "" {
		logger.Debug("bridge_retry_skipped", "retry_num", headers.Get(HeaderRetryNum))
		return successResponse("")
	}
	if !h.Verifier.Verify(headers, rawBody) {
		logger.Warn("bridge_invalid_signature")
		return unauthorizedResponse("")
	}

	var cb slackevent.Callback
	if err := json.Unmarshal(rawBody, &cb); err != nil {
		logger.Error("bridge_body_parse_error", "error", err.Error())
		return unexpectedResponse("Unexpected error!")
	}
	if cb.Type == slackevent.TypeURLVerification {
		return challengeResponse(cb.Challenge)
	}
	return h.HandleCallback(ctx, logger, cb)
}

// HandleCallback runs the classification pipeline for an already
// authenticated callback envelope. The Socket Mode runner calls this
// directly; transport-level retry and signature concerns stay out of it.
func (h *Handler) HandleCallback(ctx context.Context, logger *slog.Logger, cb slackevent.Callback) Response {
	if logger == nil {
		logger = h.logger()
	}
	ev, err := slackevent.ParseEvent(cb.Event)
	if err != nil {
		logger.Error("bridge_event_parse_error", "event_id", cb.EventID, "error", err.Error())
		return unexpectedResponse("Unexpected error!")
	}

	channel := strings.TrimSpace(ev.Channel)
	threadRoot := ev.ThreadRoot()
	logger = logger.With("channel", channel, "thread_ts", threadRoot)
	logger.Info("bridge_event",
		"event_id", cb.EventID,
		"type", ev.Type,
		"subtype", ev.Subtype,
	)

	disp, err := slackevent.Classify(ev)
	if err != nil {
		return h.unexpected(ctx, logger, channel, "", err)
	}
	if disp.Kind == slackevent.KindIgnore {
		logger.Debug("bridge_event_ignored")
		return successResponse("")
	}

	// Both notices go to the channel, not the thread.
	if !mention.Matches(disp.Text) {
		if _, err := h.Slack.PostMessage(ctx, channel, mentionRequiredMessage, ""); err != nil {
			return h.unexpected(ctx, logger, channel, "", err)
		}
		return successResponse("")
	}
	text := mention.Strip(disp.Text)
	if text == "" {
		if _, err := h.Slack.PostMessage(ctx, channel, emptyTextMessage, ""); err != nil {
			return h.unexpected(ctx, logger, channel, "", err)
		}
		return successResponse("")
	}

	userID := ev.AuthorID()

	if inv, ok := command.Detect(text); ok {
		return h.handleCommand(ctx, logger, inv, channel, userID)
	}
	return h.handleCompletion(ctx, logger, disp, text, channel, threadRoot, userID)
}

func (h *Handler) handleCommand(ctx context.Context, logger *slog.Logger, inv command.Invocation, channel, userID string) Response {
	logger.Info("bridge_command", "command", inv.Name, "user_id", userID)
	result, err := h.Router.Route(ctx, inv, userID)
	if err != nil {
		var parseErr *command.ParseError
		var niErr *command.NotImplementedError
		if errors.As(err, &parseErr) || errors.As(err, &niErr) {
			// Command-syntax mistakes are user errors, not system failures.
			if _, postErr := h.Slack.PostMessage(ctx, channel, err.Error(), ""); postErr != nil {
				return h.unexpected(ctx, logger, channel, "", postErr)
			}
			return successResponse("")
		}
		return h.unexpected(ctx, logger, channel, "", err)
	}
	if _, err := h.Slack.PostMessage(ctx, channel, result, ""); err != nil {
		return h.unexpected(ctx, logger, channel, "", err)
	}
	return successResponse("")
}

func (h *Handler) handleCompletion(ctx context.Context, logger *slog.Logger, disp slackevent.Disposition, text, channel, threadRoot, userID string) Response {
	progressTS, err := h.Slack.PostMessage(ctx, channel, h.progressMessage(), threadRoot)
	if err != nil {
		return h.unexpected(ctx, logger, channel, "", err)
	}

	msgs, err := h.Slack.ConversationsReplies(ctx, channel, threadRoot)
	if err != nil {
		return h.unexpected(ctx, logger, channel, progressTS, err)
	}
	editedText := ""
	if disp.IsEdit {
		editedText = text
	}
	history := thread.Assemble(msgs, thread.Options{
		ProgressMessage: h.progressMessage(),
		EditedText:      editedText,
	})

	override := ""
	if userID != "" {
		cfg, err := h.Store.Get(ctx, userID)
		if err != nil {
			return h.unexpected(ctx, logger, channel, progressTS, err)
		}
		if cfg != nil {
			override = cfg.SystemRoleContent
		}
	}

	reply, err := h.Completion.Generate(ctx, history, override)
	if err != nil {
		var be *completion.BackendUnavailableError
		if errors.As(err, &be) {
			logger.Warn("bridge_backend_unavailable", "error", err.Error())
			if _, postErr := h.Slack.PostMessage(ctx, channel, be.Message, ""); postErr != nil {
				logger.Warn("bridge_notify_error", "error", postErr.Error())
			}
			h.deleteProgress(ctx, logger, channel, progressTS)
			return unexpectedResponse("Unexpected error!")
		}
		return h.unexpected(ctx, logger, channel, progressTS, err)
	}

	head, tail := chunk.Split(withUserPrefix(userID, reply), h.maxMessageBytes())
	if err := h.Slack.UpdateMessage(ctx, channel, progressTS, head); err != nil {
		return h.unexpected(ctx, logger, channel, progressTS, err)
	}
	for tail != "" {
		var piece string
		piece, tail = chunk.Split(tail, h.maxMessageBytes())
		if _, err := h.Slack.PostMessage(ctx, channel, withUserPrefix(userID, piece), threadRoot); err != nil {
			return h.unexpected(ctx, logger, channel, "", err)
		}
	}
	logger.Info("bridge_reply_sent", "reply_bytes", len(reply), "history_messages", len(history))
	return successResponse("")
}

// unexpected logs the failure, tells the channel something went wrong,
// removes a dangling progress placeholder, and reports 500.
func (h *Handler) unexpected(ctx context.Context, logger *slog.Logger, channel, progressTS string, err error) Response {
	logger.Error("bridge_unexpected_error", "error", err.Error())
	if channel != "" {
		if _, postErr := h.Slack.PostMessage(ctx, channel, unexpectedErrorMessage, ""); postErr != nil {
			logger.Warn("bridge_notify_error", "error", postErr.Error())
		}
	}
	h.deleteProgress(ctx, logger, channel, progressTS)
	return unexpectedResponse("Unexpected error!")
}

func (h *Handler) deleteProgress(ctx context.Context, logger *slog.Logger, channel, progressTS string) {
	if channel == "" || progressTS == "" {
		return
	}
	if err := h.Slack.DeleteMessage(ctx, channel, progressTS); err != nil {
		logger.Warn("bridge_progress_delete_error", "ts", progressTS, "error", err.Error())
	}
}

func withUserPrefix(userID, text string) string {
	if userID == "" {
		return text
	}
	return fmt.Sprintf("<@%s>\n%s", userID, text)
}
