// Package servecmd runs the Slack Events API webhook server.
package servecmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ambr-tech/chat-gpt-slack/cmd/chatgpt-slack/botwire"
	"github.com/ambr-tech/chat-gpt-slack/internal/bridge"
	"github.com/ambr-tech/chat-gpt-slack/internal/configutil"
	"github.com/ambr-tech/chat-gpt-slack/internal/healthcheck"
	"github.com/ambr-tech/chat-gpt-slack/internal/logging"
)

const maxRequestBodyBytes = 1 << 20

func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the Slack Events API webhook",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logging.FromViper()
			if err != nil {
				return err
			}

			cfg, err := botwire.Load(cmd)
			if err != nil {
				return err
			}
			if cfg.SlackSigningSecret == "" {
				return fmt.Errorf("missing slack.signing_secret (set via --slack-signing-secret or CHAT_GPT_SLACK_SLACK_SIGNING_SECRET)")
			}

			listen := strings.TrimSpace(configutil.FlagOrViperString(cmd, "listen", "serve.listen"))
			if listen == "" {
				listen = ":8080"
			}

			handler, cleanup, err := botwire.Build(cfg, logger)
			if err != nil {
				return err
			}
			defer cleanup()

			if healthListen := healthcheck.NormalizeListen(cfg.HealthListen); healthListen != "" {
				healthServer, err := healthcheck.StartServer(cmd.Context(), logger, healthListen, "serve")
				if err != nil {
					logger.Warn("serve_health_server_start_error", "addr", healthListen, "error", err.Error())
				} else {
					defer func() {
						shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
						_ = healthServer.Shutdown(shutdownCtx)
						cancel()
					}()
				}
			}

			mux := http.NewServeMux()
			mux.HandleFunc("POST /slack/events", func(w http.ResponseWriter, r *http.Request) {
				body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))
				if err != nil {
					http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
					return
				}
				resp := handler.HandleEvent(r.Context(), r.Header, body)
				writeJSON(w, resp)
			})

			srv := &http.Server{
				Addr:              listen,
				Handler:           mux,
				ReadHeaderTimeout: 5 * time.Second,
			}
			go func() {
				<-cmd.Context().Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				_ = srv.Shutdown(shutdownCtx)
				cancel()
			}()

			logger.Info("serve_start",
				"addr", listen,
				"model", cfg.Model,
				"max_replies", cfg.MaxReplies,
			)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			logger.Info("serve_stop")
			return nil
		},
	}

	cmd.Flags().String("listen", ":8080", "Webhook listen address.")
	botwire.RegisterFlags(cmd)
	return cmd
}

func writeJSON(w http.ResponseWriter, resp bridge.Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.Status)
	_ = json.NewEncoder(w).Encode(resp.Body)
}
