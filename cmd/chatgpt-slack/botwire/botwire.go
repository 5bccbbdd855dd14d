// Package botwire loads the bot configuration shared by the serve and
// socket commands and wires the handler from it.
package botwire

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/spf13/cobra"

	"github.com/ambr-tech/chat-gpt-slack/internal/bridge"
	"github.com/ambr-tech/chat-gpt-slack/internal/command"
	"github.com/ambr-tech/chat-gpt-slack/internal/completion"
	"github.com/ambr-tech/chat-gpt-slack/internal/configutil"
	"github.com/ambr-tech/chat-gpt-slack/internal/signature"
	"github.com/ambr-tech/chat-gpt-slack/internal/slackapi"
	"github.com/ambr-tech/chat-gpt-slack/internal/userconfig"
)

type Config struct {
	SlackBotToken      string
	SlackAppToken      string
	SlackSigningSecret string

	OpenAIAPIKey  string
	OpenAIBaseURL string
	Model         string
	MaxTokens     int
	MaxReplies    int

	SystemRoleContent string
	ProgressMessage   string
	DBDSN             string
	MaxMessageBytes   int
	HealthListen      string
}

// RegisterFlags declares the flags both bot commands share. Every flag has
// a matching viper key under the CHAT_GPT_SLACK_ environment prefix.
func RegisterFlags(cmd *cobra.Command) {
	cmd.Flags().String("slack-bot-token", "", "Slack bot token (xoxb-...).")
	cmd.Flags().String("slack-signing-secret", "", "Slack request signing secret.")
	cmd.Flags().String("openai-api-key", "", "OpenAI API key.")
	cmd.Flags().String("openai-base-url", "", "OpenAI API base URL override.")
	cmd.Flags().String("openai-model", completion.DefaultModel, "Chat completion model.")
	cmd.Flags().Int("openai-max-tokens", completion.DefaultMaxTokens, "Max tokens per completion response.")
	cmd.Flags().Int("max-replies", completion.DefaultMaxReplies, "Max number of trailing thread turns sent to the model.")
	cmd.Flags().String("system-role-content", "", "Global system prompt; per-user settings override it.")
	cmd.Flags().String("progress-message", bridge.DefaultProgressMessage, "Placeholder posted to the thread while generating.")
	cmd.Flags().String("db-dsn", "", "SQLite path for per-user settings (default ~/.chatgpt-slack/chatgpt-slack.sqlite).")
	cmd.Flags().Int("max-message-bytes", bridge.DefaultMaxMessageBytes, "Split Slack replies longer than this many bytes.")
	cmd.Flags().String("health-listen", "", "Health endpoint listen address (empty disables it).")
}

// Load resolves the shared configuration, flag over viper key.
func Load(cmd *cobra.Command) (Config, error) {
	cfg := Config{
		SlackBotToken:      strings.TrimSpace(configutil.FlagOrViperString(cmd, "slack-bot-token", "slack.bot_token")),
		SlackAppToken:      strings.TrimSpace(configutil.FlagOrViperString(cmd, "slack-app-token", "slack.app_token")),
		SlackSigningSecret: strings.TrimSpace(configutil.FlagOrViperString(cmd, "slack-signing-secret", "slack.signing_secret")),
		OpenAIAPIKey:       strings.TrimSpace(configutil.FlagOrViperString(cmd, "openai-api-key", "openai.api_key")),
		OpenAIBaseURL:      strings.TrimSpace(configutil.FlagOrViperString(cmd, "openai-base-url", "openai.base_url")),
		Model:              strings.TrimSpace(configutil.FlagOrViperString(cmd, "openai-model", "openai.model")),
		MaxTokens:          configutil.FlagOrViperInt(cmd, "openai-max-tokens", "openai.max_tokens"),
		MaxReplies:         configutil.FlagOrViperInt(cmd, "max-replies", "chat.max_replies"),
		SystemRoleContent:  configutil.FlagOrViperString(cmd, "system-role-content", "chat.system_role_content"),
		ProgressMessage:    configutil.FlagOrViperString(cmd, "progress-message", "slack.progress_message"),
		DBDSN:              strings.TrimSpace(configutil.FlagOrViperString(cmd, "db-dsn", "db.dsn")),
		MaxMessageBytes:    configutil.FlagOrViperInt(cmd, "max-message-bytes", "slack.max_message_bytes"),
		HealthListen:       strings.TrimSpace(configutil.FlagOrViperString(cmd, "health-listen", "health.listen")),
	}
	if cfg.SlackBotToken == "" {
		return Config{}, fmt.Errorf("missing slack.bot_token (set via --slack-bot-token or CHAT_GPT_SLACK_SLACK_BOT_TOKEN)")
	}
	if cfg.OpenAIAPIKey == "" {
		return Config{}, fmt.Errorf("missing openai.api_key (set via --openai-api-key or CHAT_GPT_SLACK_OPENAI_API_KEY)")
	}
	return cfg, nil
}

// Build wires the webhook handler and returns it with a cleanup func that
// closes the settings store.
func Build(cfg Config, logger *slog.Logger) (*bridge.Handler, func(), error) {
	dsn, err := userconfig.ResolveDSN(cfg.DBDSN)
	if err != nil {
		return nil, nil, err
	}
	storeCfg := userconfig.DefaultConfig()
	storeCfg.DSN = dsn
	store, err := userconfig.Open(storeCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open user config store: %w", err)
	}

	openaiOpts := []option.RequestOption{option.WithAPIKey(cfg.OpenAIAPIKey)}
	if cfg.OpenAIBaseURL != "" {
		openaiOpts = append(openaiOpts, option.WithBaseURL(cfg.OpenAIBaseURL))
	}

	handler := &bridge.Handler{
		Slack: slackapi.New(nil, "", cfg.SlackBotToken, cfg.SlackAppToken),
		Store: store,
		Completion: completion.New(completion.Options{
			Client:            openai.NewClient(openaiOpts...),
			Model:             cfg.Model,
			MaxTokens:         int64(cfg.MaxTokens),
			MaxReplies:        cfg.MaxReplies,
			SystemRoleContent: cfg.SystemRoleContent,
		}),
		Verifier:        &signature.Verifier{SigningSecret: cfg.SlackSigningSecret},
		Router:          &command.Router{Store: store},
		Logger:          logger,
		ProgressMessage: cfg.ProgressMessage,
		MaxMessageBytes: cfg.MaxMessageBytes,
	}
	cleanup := func() { _ = store.Close() }
	return handler, cleanup, nil
}
