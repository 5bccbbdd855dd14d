package slackevent

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestClassifyBotMessageIsIgnored(t *testing.T) {
	t.Parallel()

	disp, err := Classify(Event{Type: "message", Text: "hi", BotID: "B001"})
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if disp.Kind != KindIgnore {
		t.Fatalf("Kind = %v, want KindIgnore", disp.Kind)
	}
}

func TestClassifyBotEditAndDeleteAreIgnored(t *testing.T) {
	t.Parallel()

	for _, subtype := range []string{SubtypeMessageChanged, SubtypeMessageDeleted} {
		disp, err := Classify(Event{
			Type:    "message",
			Subtype: subtype,
			Message: &NestedMessage{Text: "bot text", BotID: "B001"},
		})
		if err != nil {
			t.Fatalf("Classify(%s) error = %v", subtype, err)
		}
		if disp.Kind != KindIgnore {
			t.Fatalf("Classify(%s) Kind = %v, want KindIgnore", subtype, disp.Kind)
		}
	}
}

func TestClassifyUserDMDeleteIsIgnored(t *testing.T) {
	t.Parallel()

	disp, err := Classify(Event{
		Type:            "message",
		Subtype:         SubtypeMessageDeleted,
		PreviousMessage: &NestedMessage{ClientMsgID: "c1"},
	})
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if disp.Kind != KindIgnore {
		t.Fatalf("Kind = %v, want KindIgnore", disp.Kind)
	}
}

func TestClassifyTombstoneArtifactIsIgnored(t *testing.T) {
	t.Parallel()

	disp, err := Classify(Event{
		Type:    "message",
		Subtype: SubtypeMessageChanged,
		Message: &NestedMessage{Subtype: SubtypeTombstone},
	})
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if disp.Kind != KindIgnore {
		t.Fatalf("Kind = %v, want KindIgnore", disp.Kind)
	}
}

func TestClassifyDMEditUsesNestedText(t *testing.T) {
	t.Parallel()

	disp, err := Classify(Event{
		Type:    "message",
		Subtype: SubtypeMessageChanged,
		Message: &NestedMessage{Text: "<@U1> updated question", ClientMsgID: "c1", User: "U2"},
	})
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if disp.Kind != KindRespond {
		t.Fatalf("Kind = %v, want KindRespond", disp.Kind)
	}
	if disp.Text != "<@U1> updated question" {
		t.Fatalf("Text = %q, want nested text", disp.Text)
	}
	if !disp.IsEdit {
		t.Fatalf("IsEdit = false, want true")
	}
}

func TestClassifyChannelEditUsesTopLevelText(t *testing.T) {
	t.Parallel()

	disp, err := Classify(Event{
		Type:        "message",
		Text:        "<@U1> edited in channel",
		ClientMsgID: "c2",
		Edited:      &Edited{User: "U2", TS: "1700000000.000200"},
	})
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if disp.Kind != KindRespond || disp.Text != "<@U1> edited in channel" || !disp.IsEdit {
		t.Fatalf("got %+v, want respond/edit with top-level text", disp)
	}
}

func TestClassifyPlainMessage(t *testing.T) {
	t.Parallel()

	disp, err := Classify(Event{Type: "app_mention", Text: "<@U1> hello", User: "U2"})
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if disp.Kind != KindRespond || disp.Text != "<@U1> hello" || disp.IsEdit {
		t.Fatalf("got %+v, want respond with top-level text and IsEdit=false", disp)
	}
}

func TestClassifyNoTextFails(t *testing.T) {
	t.Parallel()

	_, err := Classify(Event{Type: "message", Subtype: SubtypeMessageDeleted})
	if !errors.Is(err, ErrNoEffectiveText) {
		t.Fatalf("Classify() error = %v, want ErrNoEffectiveText", err)
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	t.Parallel()

	ev := Event{
		Type:    "message",
		Subtype: SubtypeMessageChanged,
		Message: &NestedMessage{Text: "again", ClientMsgID: "c1"},
	}
	first, err := Classify(ev)
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	for i := 0; i < 3; i++ {
		next, err := Classify(ev)
		if err != nil {
			t.Fatalf("Classify() error = %v", err)
		}
		if next != first {
			t.Fatalf("Classify() is not stable: %+v vs %+v", next, first)
		}
	}
}

func TestThreadRootResolution(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		ev   Event
		want string
	}{
		{"explicit thread_ts", Event{ThreadTS: "1.0", TS: "2.0"}, "1.0"},
		{"nested thread_ts", Event{Message: &NestedMessage{ThreadTS: "3.0"}, TS: "2.0"}, "3.0"},
		{"falls back to ts", Event{TS: "2.0"}, "2.0"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.ev.ThreadRoot(); got != tc.want {
				t.Fatalf("ThreadRoot() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestAuthorIDResolution(t *testing.T) {
	t.Parallel()

	if got := (Event{User: "U1"}).AuthorID(); got != "U1" {
		t.Fatalf("AuthorID() = %q, want U1", got)
	}
	if got := (Event{Message: &NestedMessage{User: "U2"}}).AuthorID(); got != "U2" {
		t.Fatalf("AuthorID() = %q, want U2", got)
	}
}

func TestParseEventDecodesCallbackPayload(t *testing.T) {
	t.Parallel()

	raw := json.RawMessage(`{
		"type": "message",
		"subtype": "message_changed",
		"channel": "D111",
		"message": {"text": "updated", "client_msg_id": "c1", "user": "U2", "thread_ts": "1.0"},
		"previous_message": {"client_msg_id": "c0"}
	}`)
	ev, err := ParseEvent(raw)
	if err != nil {
		t.Fatalf("ParseEvent() error = %v", err)
	}
	if ev.Subtype != SubtypeMessageChanged {
		t.Fatalf("Subtype = %q, want %q", ev.Subtype, SubtypeMessageChanged)
	}
	if ev.Message == nil || ev.Message.ClientMsgID != "c1" {
		t.Fatalf("nested message not decoded: %+v", ev.Message)
	}
	if ev.PreviousMessage == nil || ev.PreviousMessage.ClientMsgID != "c0" {
		t.Fatalf("previous message not decoded: %+v", ev.PreviousMessage)
	}
}
