// Package indexer follows the USDw contract's event stream and records each
// committed event in the audit store.
package indexer

//go:generate mockgen -source=indexer.go -destination=mocks/mocks.go -package=mocks Source,EventStore,Publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/centralbank/usdw/backend/pkg/fabricclient"
	"github.com/centralbank/usdw/backend/services/audit-indexer/models"
)

// ErrDuplicate is returned by EventStore.Save when the (txId, name) pair is
// already indexed. Replayed blocks hit this after a restart.
var ErrDuplicate = errors.New("event already indexed")

// Source delivers committed contract events.
type Source interface {
	Subscribe(ctx context.Context, filter string) (<-chan fabricclient.Event, error)
}

// EventStore persists and lists indexed events.
type EventStore interface {
	Save(ctx context.Context, ev *models.AuditEvent) error
	List(ctx context.Context, filter models.EventFilter) ([]models.AuditEvent, error)
}

// Publisher fans indexed events out to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, ev *models.AuditEvent) error
}

type Indexer struct {
	source    Source
	store     EventStore
	publisher Publisher
	metrics   *Metrics
	log       *zap.Logger
	now       func() time.Time
}

type Option func(*Indexer)

func WithPublisher(p Publisher) Option {
	return func(ix *Indexer) { ix.publisher = p }
}

func WithMetrics(m *Metrics) Option {
	return func(ix *Indexer) { ix.metrics = m }
}

func WithLogger(log *zap.Logger) Option {
	return func(ix *Indexer) { ix.log = log }
}

func WithClock(now func() time.Time) Option {
	return func(ix *Indexer) { ix.now = now }
}

func New(source Source, store EventStore, opts ...Option) (*Indexer, error) {
	if source == nil {
		return nil, errors.New("event source is required")
	}
	if store == nil {
		return nil, errors.New("event store is required")
	}
	ix := &Indexer{
		source: source,
		store:  store,
		log:    zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix, nil
}

// Run indexes events until ctx is cancelled or the source closes. A single
// bad event is logged and counted but never stops the loop.
func (ix *Indexer) Run(ctx context.Context) error {
	events, err := ix.source.Subscribe(ctx, ".*")
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	ix.log.Info("indexer subscribed")

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return errors.New("event source closed")
			}
			if err := ix.Handle(ctx, ev); err != nil {
				ix.log.Error("failed to index event",
					zap.String("event", ev.Name),
					zap.String("txId", ev.TxID),
					zap.Error(err))
			}
		}
	}
}

// Handle stores one event and publishes it. Events already stored are
// published again, so delivery to the topic is at-least-once.
func (ix *Indexer) Handle(ctx context.Context, ev fabricclient.Event) error {
	record, err := ix.decode(ev)
	if err != nil {
		ix.metrics.IncrementError("decode")
		return err
	}

	err = ix.store.Save(ctx, record)
	switch {
	case errors.Is(err, ErrDuplicate):
		// A replay after a failed publish must still reach the topic;
		// consumers dedupe on the tx id key.
		ix.metrics.IncrementDuplicate()
		ix.log.Debug("event already indexed", zap.String("txId", ev.TxID), zap.String("event", ev.Name))
	case err != nil:
		ix.metrics.IncrementError("store")
		return fmt.Errorf("save: %w", err)
	default:
		ix.metrics.IncrementIndexed(record.EventName)
		ix.metrics.SetLastBlock(record.BlockNumber)
	}

	if ix.publisher != nil {
		if err := ix.publisher.Publish(ctx, record); err != nil {
			ix.metrics.IncrementError("publish")
			return fmt.Errorf("publish: %w", err)
		}
	}
	return nil
}

// accountRefs picks out every account-bearing field used by the contract's
// event payloads.
type accountRefs struct {
	AccountID string   `json:"accountId"`
	To        string   `json:"to"`
	From      string   `json:"from"`
	Accounts  []string `json:"accounts"`
}

func (ix *Indexer) decode(ev fabricclient.Event) (*models.AuditEvent, error) {
	if ev.Name == "" || ev.TxID == "" {
		return nil, errors.New("event without name or transaction id")
	}
	var refs accountRefs
	if err := json.Unmarshal(ev.Payload, &refs); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", ev.Name, err)
	}

	ids := []string{}
	seen := map[string]bool{}
	for _, id := range append([]string{refs.AccountID, refs.From, refs.To}, refs.Accounts...) {
		if id != "" && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	return &models.AuditEvent{
		TxID:        ev.TxID,
		EventName:   ev.Name,
		BlockNumber: ev.BlockNumber,
		AccountIDs:  ids,
		Payload:     json.RawMessage(ev.Payload),
		IndexedAt:   ix.now().UTC(),
	}, nil
}
