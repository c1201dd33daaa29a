package amqp

import (
	"encoding/json"
	"time"

	"ledgerbot/internal/core"
)

// EntryRecordedMessage is a lightweight notification that an entry was
// written to the ledger. The export worker fetches the full entry from
// the database by kind and id.
type EntryRecordedMessage struct {
	Kind      core.EntryKind `json:"kind"`
	EntryID   int64          `json:"entry_id"`
	UserID    int64          `json:"user_id"`
	Timestamp time.Time      `json:"timestamp"`
}

func NewEntryRecordedMessage(kind core.EntryKind, entryID, userID int64) *EntryRecordedMessage {
	return &EntryRecordedMessage{
		Kind:      kind,
		EntryID:   entryID,
		UserID:    userID,
		Timestamp: time.Now(),
	}
}

func (m *EntryRecordedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func EntryRecordedMessageFromJSON(data []byte) (*EntryRecordedMessage, error) {
	var msg EntryRecordedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
