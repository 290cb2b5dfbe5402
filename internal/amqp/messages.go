package amqp

import (
	"encoding/json"
	"time"
)

// ExpenseSyncMessage asks the export worker to push one expense to the
// backup spreadsheet. Only the id travels; the worker fetches the full
// record from storage.
type ExpenseSyncMessage struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewExpenseSyncMessage(id string) *ExpenseSyncMessage {
	return &ExpenseSyncMessage{ID: id, Timestamp: time.Now()}
}

func (m *ExpenseSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ExpenseSyncMessageFromJSON(data []byte) (*ExpenseSyncMessage, error) {
	var msg ExpenseSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// ReceiptScanMessage is the payload published by the receipt-scan (OCR)
// pipeline when extraction finishes. Amount is a decimal string to keep
// the value exact across the wire.
type ReceiptScanMessage struct {
	JobID       string    `json:"job_id"`
	UserID      string    `json:"user_id"`
	Amount      string    `json:"amount"`
	Description string    `json:"description"`
	Category    string    `json:"category,omitempty"`
	SpentAt     time.Time `json:"spent_at"`
	Confidence  float64   `json:"confidence"`
	FileURL     string    `json:"file_url,omitempty"`
}

func ReceiptScanMessageFromJSON(data []byte) (*ReceiptScanMessage, error) {
	var msg ReceiptScanMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (m *ReceiptScanMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}
