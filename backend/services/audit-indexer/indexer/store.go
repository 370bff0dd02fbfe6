package indexer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/centralbank/usdw/backend/services/audit-indexer/models"
)

const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

// PGStore keeps indexed events in the audit_events table.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Save(ctx context.Context, ev *models.AuditEvent) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO audit_events (tx_id, event_name, block_number, account_ids, payload, indexed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (tx_id, event_name) DO NOTHING
		RETURNING id`,
		ev.TxID, ev.EventName, int64(ev.BlockNumber), pq.Array(ev.AccountIDs), []byte(ev.Payload), ev.IndexedAt).
		Scan(&ev.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// List returns the newest events first. Empty filter fields match anything.
func (s *PGStore) List(ctx context.Context, filter models.EventFilter) ([]models.AuditEvent, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tx_id, event_name, block_number, account_ids, payload, indexed_at
		FROM audit_events
		WHERE ($1 = '' OR $1 = ANY(account_ids))
		  AND ($2 = '' OR event_name = $2)
		ORDER BY id DESC
		LIMIT $3`,
		filter.AccountID, filter.EventName, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	events := []models.AuditEvent{}
	for rows.Next() {
		var (
			ev      models.AuditEvent
			block   int64
			payload []byte
		)
		if err := rows.Scan(&ev.ID, &ev.TxID, &ev.EventName, &block, pq.Array(&ev.AccountIDs), &payload, &ev.IndexedAt); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		ev.BlockNumber = uint64(block)
		ev.Payload = payload
		events = append(events, ev)
	}
	return events, rows.Err()
}
