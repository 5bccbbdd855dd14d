package socketcmd

import (
	"encoding/json"
	"testing"
)

func TestCallbackFromEnvelope(t *testing.T) {
	t.Parallel()

	payload := json.RawMessage(`{"type":"event_callback","event_id":"Ev1","event":{"type":"app_mention","text":"<@U1> hi","channel":"C1","ts":"1.1"}}`)

	cb, ok, err := callbackFromEnvelope(socketEnvelope{Type: "events_api", EnvelopeID: "env-1", Payload: payload})
	if err != nil {
		t.Fatalf("callbackFromEnvelope() error = %v", err)
	}
	if !ok {
		t.Fatal("callbackFromEnvelope() ok = false, want true")
	}
	if cb.EventID != "Ev1" {
		t.Fatalf("EventID = %q, want %q", cb.EventID, "Ev1")
	}
	if len(cb.Event) == 0 {
		t.Fatal("Event payload is empty")
	}
}

func TestCallbackFromEnvelopeSkipsNonEvents(t *testing.T) {
	t.Parallel()

	cases := []socketEnvelope{
		{Type: "hello"},
		{Type: "disconnect", Payload: json.RawMessage(`{"reason":"refresh_requested"}`)},
		{Type: "events_api"},
		{Type: "events_api", Payload: json.RawMessage(`{"type":"url_verification"}`)},
	}
	for _, envelope := range cases {
		_, ok, err := callbackFromEnvelope(envelope)
		if err != nil {
			t.Fatalf("callbackFromEnvelope(%q) error = %v", envelope.Type, err)
		}
		if ok {
			t.Fatalf("callbackFromEnvelope(%q) ok = true, want false", envelope.Type)
		}
	}
}

func TestCallbackFromEnvelopeReportsBadPayload(t *testing.T) {
	t.Parallel()

	_, ok, err := callbackFromEnvelope(socketEnvelope{Type: "events_api", Payload: json.RawMessage(`{`)})
	if err == nil {
		t.Fatal("callbackFromEnvelope() error = nil, want error")
	}
	if ok {
		t.Fatal("callbackFromEnvelope() ok = true, want false")
	}
}
