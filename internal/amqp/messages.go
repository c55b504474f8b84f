package amqp

import (
	"encoding/json"
	"time"
)

// ReconcileMessage asks the background worker to recompute one user's
// overall balance. It carries only the user id; the worker reads the
// authoritative account balances from storage.
type ReconcileMessage struct {
	UserID    string    `json:"user_id"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

func NewReconcileMessage(userID, reason string) *ReconcileMessage {
	return &ReconcileMessage{
		UserID:    userID,
		Reason:    reason,
		Timestamp: time.Now(),
	}
}

func (m *ReconcileMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ReconcileMessageFromJSON(data []byte) (*ReconcileMessage, error) {
	var msg ReconcileMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
