// Package slackevent defines the typed shapes of inbound Slack Events API
// payloads and classifies each event into a single disposition.
package slackevent

import (
	"encoding/json"
	"strings"
)

const (
	TypeEventCallback   = "event_callback"
	TypeURLVerification = "url_verification"

	SubtypeMessageChanged = "message_changed"
	SubtypeMessageDeleted = "message_deleted"
	SubtypeTombstone      = "tombstone"
)

// Callback is the outer Events API envelope delivered per webhook call.
type Callback struct {
	Token     string          `json:"token,omitempty"`
	Type      string          `json:"type,omitempty"`
	Challenge string          `json:"challenge,omitempty"`
	TeamID    string          `json:"team_id,omitempty"`
	EventID   string          `json:"event_id,omitempty"`
	EventTime int64           `json:"event_time,omitempty"`
	Event     json.RawMessage `json:"event,omitempty"`
}

// Edited marks a top-level message event as an edit of an earlier message.
type Edited struct {
	User string `json:"user,omitempty"`
	TS   string `json:"ts,omitempty"`
}

// NestedMessage is the `message` / `previous_message` object carried by
// message_changed and message_deleted events.
type NestedMessage struct {
	Type        string `json:"type,omitempty"`
	Subtype     string `json:"subtype,omitempty"`
	Text        string `json:"text,omitempty"`
	User        string `json:"user,omitempty"`
	TS          string `json:"ts,omitempty"`
	ThreadTS    string `json:"thread_ts,omitempty"`
	BotID       string `json:"bot_id,omitempty"`
	ClientMsgID string `json:"client_msg_id,omitempty"`
}

// Event is the inner event object, parsed once at the boundary instead of
// being poked at as a raw map throughout the pipeline.
type Event struct {
	Type            string         `json:"type,omitempty"`
	Subtype         string         `json:"subtype,omitempty"`
	Text            string         `json:"text,omitempty"`
	User            string         `json:"user,omitempty"`
	Channel         string         `json:"channel,omitempty"`
	ChannelType     string         `json:"channel_type,omitempty"`
	TS              string         `json:"ts,omitempty"`
	ThreadTS        string         `json:"thread_ts,omitempty"`
	BotID           string         `json:"bot_id,omitempty"`
	ClientMsgID     string         `json:"client_msg_id,omitempty"`
	Edited          *Edited        `json:"edited,omitempty"`
	Message         *NestedMessage `json:"message,omitempty"`
	PreviousMessage *NestedMessage `json:"previous_message,omitempty"`
}

// ParseEvent decodes the inner event object of a callback envelope.
func ParseEvent(raw json.RawMessage) (Event, error) {
	var ev Event
	if len(raw) == 0 {
		return ev, nil
	}
	if err := json.Unmarshal(raw, &ev); err != nil {
		return Event{}, err
	}
	return ev, nil
}

// ThreadRoot resolves the thread identifier for the event: the explicit
// thread_ts, else the nested message's thread_ts for edit events, else the
// event's own ts (a top-level message roots its own thread).
func (ev Event) ThreadRoot() string {
	if ts := strings.TrimSpace(ev.ThreadTS); ts != "" {
		return ts
	}
	if ev.Message != nil {
		if ts := strings.TrimSpace(ev.Message.ThreadTS); ts != "" {
			return ts
		}
	}
	return strings.TrimSpace(ev.TS)
}

// AuthorID resolves the acting user: the top-level user, else the nested
// message's user for edit events.
func (ev Event) AuthorID() string {
	if user := strings.TrimSpace(ev.User); user != "" {
		return user
	}
	if ev.Message != nil {
		return strings.TrimSpace(ev.Message.User)
	}
	return ""
}
