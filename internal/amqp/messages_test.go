package amqp

import (
	"strings"
	"testing"
)

func TestReconcileMessageRoundTrip(t *testing.T) {
	msg := NewReconcileMessage("user-42", "transfer")
	if msg.Timestamp.IsZero() {
		t.Fatal("timestamp should be set")
	}

	data, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"user_id":"user-42"`) {
		t.Fatalf("wire format: %s", data)
	}

	got, err := ReconcileMessageFromJSON(data)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.UserID != msg.UserID || got.Reason != msg.Reason {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestReconcileMessageFromJSONRejectsGarbage(t *testing.T) {
	if _, err := ReconcileMessageFromJSON([]byte("{not json")); err == nil {
		t.Fatal("expected error")
	}
}
