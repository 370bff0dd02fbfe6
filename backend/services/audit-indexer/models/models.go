package models

import (
	"encoding/json"
	"time"
)

// AuditEvent is one committed chaincode event as stored by the indexer.
type AuditEvent struct {
	ID          int64           `json:"id"`
	TxID        string          `json:"tx_id"`
	EventName   string          `json:"event_name"`
	BlockNumber uint64          `json:"block_number"`
	AccountIDs  []string        `json:"account_ids"`
	Payload     json.RawMessage `json:"payload"`
	IndexedAt   time.Time       `json:"indexed_at"`
}

type EventFilter struct {
	AccountID string
	EventName string
	Limit     int
}
