package userconfig

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

type SQLiteConfig struct {
	BusyTimeoutMs int
	WAL           bool
	ForeignKeys   bool
}

type Config struct {
	DSN    string
	SQLite SQLiteConfig
}

func DefaultConfig() Config {
	return Config{
		SQLite: SQLiteConfig{
			BusyTimeoutMs: 5000,
			WAL:           true,
			ForeignKeys:   true,
		},
	}
}

// ResolveDSN picks the database file path.
func ResolveDSN(dsn string) (string, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn != "" {
		return dsn, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	homeDir := filepath.Join(home, ".chatgpt-slack")
	homeDB := filepath.Join(homeDir, "chatgpt-slack.sqlite")
	localDB := filepath.Clean("./chatgpt-slack.sqlite")

	// Precedence:
	// 1) existing $HOME/.chatgpt-slack/chatgpt-slack.sqlite
	if _, err := os.Stat(homeDB); err == nil {
		return homeDB, nil
	}
	// 2) existing ./chatgpt-slack.sqlite
	if _, err := os.Stat(localDB); err == nil {
		return localDB, nil
	}
	// 3) create + use $HOME/.chatgpt-slack/chatgpt-slack.sqlite
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		return "", err
	}
	return homeDB, nil
}

func (c Config) connString() string {
	params := url.Values{}
	if c.SQLite.BusyTimeoutMs > 0 {
		params.Set("_busy_timeout", fmt.Sprintf("%d", c.SQLite.BusyTimeoutMs))
	}
	if c.SQLite.WAL {
		params.Set("_journal_mode", "WAL")
	}
	if c.SQLite.ForeignKeys {
		params.Set("_foreign_keys", "on")
	}
	if len(params) == 0 {
		return c.DSN
	}
	return c.DSN + "?" + params.Encode()
}
