package healthcheck

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"
)

func TestNormalizeListen(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"  ", ""},
		{"9090", ":9090"},
		{":9090", ":9090"},
		{"127.0.0.1:9090", "127.0.0.1:9090"},
	}
	for _, tc := range cases {
		if got := NormalizeListen(tc.in); got != tc.want {
			t.Errorf("NormalizeListen(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestStartServerServesHealthz(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	srv, err := StartServer(ctx, logger, "127.0.0.1:0", "serve")
	if err != nil {
		t.Fatalf("StartServer() error = %v", err)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Second)
		_ = srv.Shutdown(shutdownCtx)
		shutdownCancel()
	}()

	resp, err := http.Get(fmt.Sprintf("http://%s/healthz", srv.Addr))
	if err != nil {
		t.Fatalf("GET /healthz error = %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "ok" || body["component"] != "serve" {
		t.Fatalf("body = %v", body)
	}
}

func TestStartServerRejectsEmptyListen(t *testing.T) {
	t.Parallel()

	if _, err := StartServer(context.Background(), nil, "   ", "serve"); err == nil {
		t.Fatal("StartServer() error = nil, want error")
	}
}
