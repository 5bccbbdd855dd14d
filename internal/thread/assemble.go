// Package thread turns a fetched Slack thread into the ordered conversation
// history sent to the completion backend.
package thread

import (
	"github.com/ambr-tech/chat-gpt-slack/internal/mention"
	"github.com/ambr-tech/chat-gpt-slack/internal/slackapi"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one conversational turn; ordering is insertion order, which
// matches chronological thread order.
type Message struct {
	Role    Role
	Content string
}

type Options struct {
	// ProgressMessage is the transient work-in-progress placeholder; any
	// thread message whose raw text equals it is dropped.
	ProgressMessage string
	// EditedText, when non-empty, is appended as the final user turn. An
	// edit always wins: it is appended even if an equivalent message is
	// already present in the fetched thread.
	EditedText string
}

// Assemble tags each thread message with a role, oldest first: bot-authored
// messages become assistant turns (mentions stripped, since the bot may echo
// a mention back), mention-bearing user messages become user turns with the
// mention stripped, and everything else is dropped. Pure-mention messages
// that strip to nothing are dropped too. No truncation happens here; the
// completion orchestrator keeps the trailing window.
func Assemble(msgs []slackapi.ThreadMessage, opts Options) []Message {
	out := make([]Message, 0, len(msgs)+1)
	for _, m := range msgs {
		if opts.ProgressMessage != "" && m.Text == opts.ProgressMessage {
			continue
		}
		if m.BotID != "" {
			out = append(out, Message{Role: RoleAssistant, Content: mention.Strip(m.Text)})
			continue
		}
		if mention.Matches(m.Text) {
			stripped := mention.Strip(m.Text)
			if stripped != "" {
				out = append(out, Message{Role: RoleUser, Content: stripped})
			}
		}
	}
	if opts.EditedText != "" {
		out = append(out, Message{Role: RoleUser, Content: opts.EditedText})
	}
	return out
}
