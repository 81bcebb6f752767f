package amqp

import (
	"encoding/json"
	"time"

	"fintrack/internal/core"
)

// TransactionPayload is one transaction as it appears in the backing file.
type TransactionPayload struct {
	Amount string `json:"amount"`
	Type   string `json:"type"`
	Date   string `json:"date"`
}

// LedgerChangeMessage announces one persisted mutation of the ledger.
type LedgerChangeMessage struct {
	Operation        string               `json:"operation"`
	Category         string               `json:"category"`
	PreviousCategory string               `json:"previous_category,omitempty"`
	Transactions     []TransactionPayload `json:"transactions"`
	Timestamp        time.Time            `json:"timestamp"`
}

func NewLedgerChangeMessage(operation, category string, txns ...core.Transaction) *LedgerChangeMessage {
	payload := make([]TransactionPayload, 0, len(txns))
	for _, t := range txns {
		payload = append(payload, TransactionPayload{
			Amount: t.Amount.String(),
			Type:   t.Type.String(),
			Date:   t.Date.String(),
		})
	}
	return &LedgerChangeMessage{
		Operation:    operation,
		Category:     category,
		Transactions: payload,
		Timestamp:    time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerChangeMessageFromJSON parses a message published by PublishLedgerChange.
func LedgerChangeMessageFromJSON(data []byte) (*LedgerChangeMessage, error) {
	var msg LedgerChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
