// Package healthcheck runs a tiny HTTP liveness endpoint alongside the
// long-running commands.
package healthcheck

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"
)

// NormalizeListen cleans up a listen address: empty stays empty (health
// server disabled), a bare port gains a leading colon.
func NormalizeListen(listen string) string {
	listen = strings.TrimSpace(listen)
	if listen == "" {
		return ""
	}
	if !strings.Contains(listen, ":") {
		return ":" + listen
	}
	return listen
}

// StartServer serves GET /healthz on listen until ctx is canceled. The
// component name is echoed in the response body so one host running
// several modes stays tellable apart.
func StartServer(ctx context.Context, logger *slog.Logger, listen, component string) (*http.Server, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if logger == nil {
		logger = slog.Default()
	}
	listen = NormalizeListen(listen)
	if listen == "" {
		return nil, errors.New("empty health listen address")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodHead {
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status":    "ok",
			"component": component,
		})
	})

	ln, err := net.Listen("tcp", listen)
	if err != nil {
		return nil, err
	}

	srv := &http.Server{
		// Addr reflects the bound listener so a ":0" port stays resolvable.
		Addr:              ln.Addr().String(),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		_ = srv.Shutdown(shutdownCtx)
		cancel()
	}()

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("health_server_error", "addr", listen, "error", err.Error())
		}
	}()

	logger.Info("health_server_start", "addr", srv.Addr, "component", component)
	return srv, nil
}
