// Package socketcmd runs the bot over Slack Socket Mode instead of the
// public webhook. Useful when the host cannot accept inbound traffic.
package socketcmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/ambr-tech/chat-gpt-slack/cmd/chatgpt-slack/botwire"
	"github.com/ambr-tech/chat-gpt-slack/internal/healthcheck"
	"github.com/ambr-tech/chat-gpt-slack/internal/logging"
	"github.com/ambr-tech/chat-gpt-slack/internal/slackevent"
)

type socketEnvelope struct {
	EnvelopeID string          `json:"envelope_id,omitempty"`
	Type       string          `json:"type,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

const reconnectDelay = 2 * time.Second

func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "socket",
		Short: "Run the bot over Slack Socket Mode",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logging.FromViper()
			if err != nil {
				return err
			}

			cfg, err := botwire.Load(cmd)
			if err != nil {
				return err
			}
			if cfg.SlackAppToken == "" {
				return fmt.Errorf("missing slack.app_token (set via --slack-app-token or CHAT_GPT_SLACK_SLACK_APP_TOKEN)")
			}

			handler, cleanup, err := botwire.Build(cfg, logger)
			if err != nil {
				return err
			}
			defer cleanup()

			auth, err := handler.Slack.AuthTest(cmd.Context())
			if err != nil {
				return fmt.Errorf("slack auth.test: %w", err)
			}
			logger.Info("socket_start",
				"bot_user_id", auth.UserID,
				"team_id", auth.TeamID,
				"model", cfg.Model,
			)

			if healthListen := healthcheck.NormalizeListen(cfg.HealthListen); healthListen != "" {
				healthServer, err := healthcheck.StartServer(cmd.Context(), logger, healthListen, "socket")
				if err != nil {
					logger.Warn("socket_health_server_start_error", "addr", healthListen, "error", err.Error())
				} else {
					defer func() {
						shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
						_ = healthServer.Shutdown(shutdownCtx)
						cancel()
					}()
				}
			}

			for {
				if cmd.Context().Err() != nil {
					logger.Info("socket_stop", "reason", "context_canceled")
					return nil
				}
				conn, err := handler.Slack.ConnectSocket(cmd.Context())
				if err != nil {
					if cmd.Context().Err() != nil {
						logger.Info("socket_stop", "reason", "context_canceled")
						return nil
					}
					logger.Warn("socket_connect_error", "error", err.Error())
					if err := sleepWithContext(cmd.Context(), reconnectDelay); err != nil {
						return nil
					}
					continue
				}
				logger.Info("socket_connected")
				readErr := consumeSocket(cmd.Context(), conn, func(envelope socketEnvelope) error {
					cb, ok, err := callbackFromEnvelope(envelope)
					if err != nil {
						logger.Warn("socket_payload_parse_error", "error", err.Error())
						return nil
					}
					if !ok {
						return nil
					}
					resp := handler.HandleCallback(cmd.Context(), logger, cb)
					if resp.Status >= 500 {
						logger.Warn("socket_event_failed", "event_id", cb.EventID, "status", resp.Status)
					}
					return nil
				})
				_ = conn.Close()
				if readErr != nil && !errors.Is(readErr, context.Canceled) && !errors.Is(readErr, context.DeadlineExceeded) {
					logger.Warn("socket_read_error", "error", readErr.Error())
				}
			}
		},
	}

	cmd.Flags().String("slack-app-token", "", "Slack app-level token for Socket Mode (xapp-...).")
	botwire.RegisterFlags(cmd)
	return cmd
}

// consumeSocket reads envelopes until the connection breaks, acking each
// one before handing it to onEnvelope.
func consumeSocket(ctx context.Context, conn *websocket.Conn, onEnvelope func(envelope socketEnvelope) error) error {
	if conn == nil {
		return fmt.Errorf("slack websocket connection is nil")
	}
	for {
		if ctx != nil && ctx.Err() != nil {
			return ctx.Err()
		}
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var envelope socketEnvelope
		if err := json.Unmarshal(raw, &envelope); err != nil {
			continue
		}
		if strings.TrimSpace(envelope.EnvelopeID) != "" {
			if err := conn.WriteJSON(map[string]string{"envelope_id": envelope.EnvelopeID}); err != nil {
				return err
			}
		}
		if onEnvelope == nil {
			continue
		}
		if err := onEnvelope(envelope); err != nil {
			return err
		}
	}
}

func callbackFromEnvelope(envelope socketEnvelope) (slackevent.Callback, bool, error) {
	if strings.TrimSpace(envelope.Type) != "events_api" || len(envelope.Payload) == 0 {
		return slackevent.Callback{}, false, nil
	}
	var cb slackevent.Callback
	if err := json.Unmarshal(envelope.Payload, &cb); err != nil {
		return slackevent.Callback{}, false, err
	}
	if cb.Type != slackevent.TypeEventCallback || len(cb.Event) == 0 {
		return slackevent.Callback{}, false, nil
	}
	return cb, true, nil
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
