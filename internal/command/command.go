// Package command parses and executes the configuration commands a user can
// send instead of a completion request: set, list, clear.
package command

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/ambr-tech/chat-gpt-slack/internal/userconfig"
)

const (
	NameSet   = "set"
	NameList  = "list"
	NameClear = "clear"

	keySystemRoleContent = "system_role_content"
	keyUserConfig        = "user_config"
)

var commandPattern = regexp.MustCompile(`^(set|list|clear)(\s|$)`)

// ParseError marks a malformed invocation (missing key or value). The
// message is user-facing and sent to the channel verbatim.
type ParseError struct {
	Message string
}

func (e *ParseError) Error() string { return e.Message }

// NotImplementedError marks a recognized command with an unrecognized key.
type NotImplementedError struct {
	Message string
}

func (e *NotImplementedError) Error() string { return e.Message }

// Invocation is a detected command: its name and the full stripped text.
type Invocation struct {
	Name string
	Text string
}

// Detect reports whether stripped text invokes a command. The command name
// is the first whitespace-delimited token.
func Detect(text string) (Invocation, bool) {
	if !commandPattern.MatchString(text) {
		return Invocation{}, false
	}
	name := text
	if i := strings.IndexAny(text, " \t\n"); i >= 0 {
		name = text[:i]
	}
	return Invocation{Name: name, Text: text}, true
}

// Router executes command invocations against the user config store.
type Router struct {
	Store *userconfig.Store
}

// Route runs the invocation for userID and returns the message to echo to
// the channel. Malformed input yields *ParseError, unknown keys yield
// *NotImplementedError; anything else is a store failure.
func (r *Router) Route(ctx context.Context, inv Invocation, userID string) (string, error) {
	switch inv.Name {
	case NameSet:
		return r.set(ctx, inv.Text, userID)
	case NameList:
		return r.list(ctx, inv.Text, userID)
	case NameClear:
		return r.clear(ctx, inv.Text, userID)
	default:
		return "", fmt.Errorf("command: unknown command %q", inv.Name)
	}
}

func (r *Router) set(ctx context.Context, text, userID string) (string, error) {
	parts := strings.SplitN(text, " ", 3)
	if len(parts) < 3 {
		return "", &ParseError{
			Message: "キーまたは設定する値を指定してください。\n使用可能なキーは" + keySystemRoleContent + "です。",
		}
	}
	key := strings.TrimSpace(parts[1])
	value := strings.TrimSpace(parts[2])
	if key != keySystemRoleContent {
		return "", &NotImplementedError{
			Message: fmt.Sprintf("setコマンドで%sのキーは使用できません\n使用可能なキーは%sです。", key, keySystemRoleContent),
		}
	}
	if err := r.Store.Put(ctx, userconfig.UserConfig{UserID: userID, SystemRoleContent: value}); err != nil {
		return "", err
	}
	return fmt.Sprintf("set %s: %s", keySystemRoleContent, value), nil
}

func (r *Router) list(ctx context.Context, text, userID string) (string, error) {
	parts := strings.SplitN(text, " ", 2)
	if len(parts) < 2 {
		return "", &ParseError{
			Message: "キーを指定してください。\n使用可能なキーは" + keyUserConfig + "です。",
		}
	}
	key := strings.TrimSpace(parts[1])
	if key != keyUserConfig {
		return "", &NotImplementedError{
			Message: fmt.Sprintf("listコマンドで%sのキーは存在しません\n参照可能なキーは%sです。", key, keyUserConfig),
		}
	}
	cfg, err := r.Store.Get(ctx, userID)
	if err != nil {
		return "", err
	}
	if cfg == nil {
		return "何も設定されていません", nil
	}
	return cfg.String(), nil
}

func (r *Router) clear(ctx context.Context, text, userID string) (string, error) {
	parts := strings.SplitN(text, " ", 2)
	if len(parts) < 2 {
		return "", &ParseError{
			Message: "キーを指定してください。\n削除可能なキーは" + keySystemRoleContent + "です。",
		}
	}
	key := strings.TrimSpace(parts[1])
	if key != keySystemRoleContent {
		return "", &NotImplementedError{
			Message: fmt.Sprintf("clearコマンドで%sのキーは存在しません\n削除可能なキーは%sです。", key, keySystemRoleContent),
		}
	}
	if err := r.Store.Put(ctx, userconfig.UserConfig{UserID: userID, SystemRoleContent: ""}); err != nil {
		return "", err
	}
	return "clear " + keySystemRoleContent, nil
}
