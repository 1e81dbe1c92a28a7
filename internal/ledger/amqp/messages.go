package amqp

import (
	"encoding/json"
	"time"

	"budget/internal/core"
)

// TransactionMessage is the body published for every appended transaction.
// Consumers dedup on ID.
type TransactionMessage struct {
	ID    string    `json:"id"`
	Name  string    `json:"name"`
	Value int64     `json:"value"`
	Date  time.Time `json:"date"`
}

func NewTransactionMessage(t core.Transaction) *TransactionMessage {
	return &TransactionMessage{
		ID:    t.ID(),
		Name:  t.Name,
		Value: t.Value,
		Date:  t.Date.UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *TransactionMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionMessageFromJSON decodes a published body.
func TransactionMessageFromJSON(data []byte) (*TransactionMessage, error) {
	var msg TransactionMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// Transaction converts the message back into the domain record.
func (m *TransactionMessage) Transaction() core.Transaction {
	return core.Transaction{Name: m.Name, Value: m.Value, Date: m.Date.UTC()}
}
