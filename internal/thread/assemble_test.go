package thread

import (
	"testing"

	"github.com/ambr-tech/chat-gpt-slack/internal/slackapi"
)

const progress = "回答を考え中です..."

func TestAssembleRolesAndFiltering(t *testing.T) {
	t.Parallel()

	msgs := []slackapi.ThreadMessage{
		{Text: "<@U9> what is Go?", User: "U1"},
		{Text: progress, BotID: "B1"},
		{Text: "<@U1>\nGo is a programming language.", BotID: "B1"},
		{Text: "unrelated chatter without a mention", User: "U2"},
		{Text: "<@U9>   ", User: "U1"},
		{Text: "<@U9> and generics?", User: "U1"},
	}
	got := Assemble(msgs, Options{ProgressMessage: progress})

	want := []Message{
		{Role: RoleUser, Content: "what is Go?"},
		{Role: RoleAssistant, Content: "Go is a programming language."},
		{Role: RoleUser, Content: "and generics?"},
	}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("message %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestAssembleNeverIncludesProgressPlaceholder(t *testing.T) {
	t.Parallel()

	msgs := []slackapi.ThreadMessage{
		{Text: progress, BotID: "B1"},
		{Text: progress, User: "U1"},
	}
	got := Assemble(msgs, Options{ProgressMessage: progress})
	for _, m := range got {
		if m.Content == progress {
			t.Fatalf("progress placeholder leaked into history: %+v", got)
		}
	}
	if len(got) != 0 {
		t.Fatalf("len = %d, want 0", len(got))
	}
}

func TestAssembleAppendsEditLast(t *testing.T) {
	t.Parallel()

	msgs := []slackapi.ThreadMessage{
		{Text: "<@U9> original question", User: "U1"},
		{Text: "<@U1>\nanswer", BotID: "B1"},
	}
	got := Assemble(msgs, Options{ProgressMessage: progress, EditedText: "revised question"})
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3: %+v", len(got), got)
	}
	last := got[len(got)-1]
	if last.Role != RoleUser || last.Content != "revised question" {
		t.Fatalf("last = %+v, want the edited text as a user turn", last)
	}
}

func TestAssembleEmptyThread(t *testing.T) {
	t.Parallel()

	if got := Assemble(nil, Options{ProgressMessage: progress}); len(got) != 0 {
		t.Fatalf("Assemble(nil) = %+v, want empty", got)
	}
}
