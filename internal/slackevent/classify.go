package slackevent

import "errors"

// ErrNoEffectiveText is returned when an event carries neither a top-level
// text nor an edited-message text to act on. Callers treat it as an
// unexpected condition, not a normal ignore.
var ErrNoEffectiveText = errors.New("slackevent: cannot derive text nor updated text")

// Kind is the terminal state of classification.
type Kind int

const (
	// KindIgnore means the event must not trigger any action: bot echoes,
	// bot-originated edits and deletions, DM delete artifacts.
	KindIgnore Kind = iota
	// KindRespond means Text holds the authoritative user text to act on.
	KindRespond
)

// Disposition is derived once per event and consumed exactly once.
type Disposition struct {
	Kind   Kind
	Text   string
	IsEdit bool
}

// Classify derives the disposition for an inbound event. It is a pure
// function of the event's fields; rules are evaluated in priority order:
//
//  1. bot-originated (top-level bot_id, or changed/deleted with a nested
//     bot marker) → ignore
//  2. message_deleted whose previous message carries a client_msg_id
//     (a user deleted their own DM message) → ignore
//  3. message_changed whose nested message is a tombstone (the edit-shaped
//     artifact of a delete on DM) → ignore
//  4. message_changed whose nested message carries a client_msg_id → the
//     nested text is authoritative, as an edit
//  5. top-level text with an edited marker → top-level text, as an edit
//  6. top-level text → top-level text, as a new message
//  7. otherwise ErrNoEffectiveText
func Classify(ev Event) (Disposition, error) {
	if triggeredByBot(ev) {
		return Disposition{Kind: KindIgnore}, nil
	}
	if triggeredByUserMessageDeleteOnDM(ev) {
		return Disposition{Kind: KindIgnore}, nil
	}
	if ev.Subtype == SubtypeMessageChanged && ev.Message != nil && ev.Message.ClientMsgID != "" {
		return Disposition{Kind: KindRespond, Text: ev.Message.Text, IsEdit: true}, nil
	}
	if ev.Text != "" {
		return Disposition{Kind: KindRespond, Text: ev.Text, IsEdit: ev.Edited != nil}, nil
	}
	return Disposition{}, ErrNoEffectiveText
}

func triggeredByBot(ev Event) bool {
	if ev.BotID != "" {
		return true
	}
	if ev.Subtype == SubtypeMessageChanged || ev.Subtype == SubtypeMessageDeleted {
		if ev.Message != nil && ev.Message.BotID != "" {
			return true
		}
	}
	return false
}

func triggeredByUserMessageDeleteOnDM(ev Event) bool {
	if ev.Subtype == SubtypeMessageDeleted {
		if ev.PreviousMessage != nil && ev.PreviousMessage.ClientMsgID != "" {
			return true
		}
	}
	// Deleting a message on DM surfaces a follow-up message_changed event
	// whose nested message has turned into a tombstone.
	if ev.Subtype == SubtypeMessageChanged {
		if ev.Message != nil && ev.Message.Subtype == SubtypeTombstone {
			return true
		}
	}
	return false
}
