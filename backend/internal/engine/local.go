package engine

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/centralbank/usdw/backend/internal/audit"
	"github.com/centralbank/usdw/backend/internal/identity"
	"github.com/centralbank/usdw/backend/internal/store"
)

// Local runs invocations against an in-memory store. Each invocation is its
// own transaction: it commits when the operation succeeds and is discarded
// otherwise, and its events are kept only if it commits.
type Local struct {
	mem   *store.Memory
	cfg   Config
	log   *zap.Logger
	clock func() time.Time

	mu     sync.Mutex
	events []audit.Record
}

type LocalOption func(*Local)

// WithClock overrides the transaction timestamp source.
func WithClock(clock func() time.Time) LocalOption {
	return func(l *Local) { l.clock = clock }
}

func WithLogger(log *zap.Logger) LocalOption {
	return func(l *Local) { l.log = log }
}

func NewLocal(mem *store.Memory, cfg Config, opts ...LocalOption) *Local {
	l := &Local{
		mem:   mem,
		cfg:   cfg,
		log:   zap.NewNop(),
		clock: func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Invocation is one staged transaction.
type Invocation struct {
	Ledger   *Ledger
	TxID     string
	tx       *store.Tx
	recorder *audit.Recorder
	local    *Local
}

// Begin stages a transaction for mspID without running anything. Callers
// must Commit or Discard it.
func (l *Local) Begin(mspID string) *Invocation {
	txID := uuid.NewString()
	ts := l.clock()
	tx := l.mem.Begin(txID, ts)
	rec := &audit.Recorder{}
	caller := identity.Static{MSP: mspID, Tx: txID, Timestamp: ts}
	return &Invocation{
		Ledger:   New(tx, caller, rec, l.cfg, l.log),
		TxID:     txID,
		tx:       tx,
		recorder: rec,
		local:    l,
	}
}

// Commit applies the staged writes and publishes the staged events. On a
// conflict nothing is applied or published.
func (inv *Invocation) Commit() ([]audit.Record, error) {
	if err := inv.tx.Commit(); err != nil {
		return nil, err
	}
	records := inv.recorder.Records()
	inv.local.mu.Lock()
	inv.local.events = append(inv.local.events, records...)
	inv.local.mu.Unlock()
	return records, nil
}

func (inv *Invocation) Discard() {
	inv.tx.Discard()
}

// Events returns every event published by committed invocations, in commit
// order.
func (l *Local) Events() []audit.Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]audit.Record(nil), l.events...)
}

// Invoke runs fn as mspID in a fresh transaction and commits it if fn
// succeeds.
func Invoke[T any](l *Local, mspID string, fn func(*Ledger) (T, error)) (T, error) {
	inv := l.Begin(mspID)
	out, err := fn(inv.Ledger)
	if err != nil {
		inv.Discard()
		var zero T
		return zero, err
	}
	if _, err := inv.Commit(); err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}
