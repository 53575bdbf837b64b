package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// ImportCompletedMessage announces that a batch landed in the ledger.
// Consumers use it to drop anything derived from the old ledger state.
type ImportCompletedMessage struct {
	BatchID   string    `json:"batch_id"`
	Source    string    `json:"source"`
	RowsRead  int       `json:"rows_read"`
	Inserted  int       `json:"inserted"`
	Skipped   int       `json:"skipped"`
	Timestamp time.Time `json:"timestamp"`
}

func NewImportCompletedMessage(batchID, source string, rowsRead, inserted, skipped int) *ImportCompletedMessage {
	return &ImportCompletedMessage{
		BatchID:   batchID,
		Source:    source,
		RowsRead:  rowsRead,
		Inserted:  inserted,
		Skipped:   skipped,
		Timestamp: time.Now().UTC(),
	}
}

func (m *ImportCompletedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ImportCompletedMessageFromJSON decodes a message and rejects one without a batch ID.
func ImportCompletedMessageFromJSON(data []byte) (*ImportCompletedMessage, error) {
	var msg ImportCompletedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.BatchID == "" {
		return nil, errors.New("import completed message without batch_id")
	}
	return &msg, nil
}
