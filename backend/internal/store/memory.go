package store

import (
	"iter"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/centralbank/usdw/backend/internal/ledgererr"
)

type entry struct {
	value   []byte
	version uint64
}

// Memory is an in-memory multi-version key-value store with optimistic
// concurrency control. Transactions read committed state, buffer their
// writes, and are rejected at commit if anything they read has changed.
type Memory struct {
	mu      sync.RWMutex
	seq     uint64
	state   map[string]entry
	history map[string][]Version
}

func NewMemory() *Memory {
	return &Memory{
		state:   make(map[string]entry),
		history: make(map[string][]Version),
	}
}

// Begin opens a transaction identified by txID and stamped with ts.
func (m *Memory) Begin(txID string, ts time.Time) *Tx {
	return &Tx{
		m:      m,
		txID:   txID,
		ts:     ts,
		reads:  make(map[string]uint64),
		writes: make(map[string][]byte),
	}
}

// Update runs fn in a new transaction and commits it if fn succeeds.
func (m *Memory) Update(txID string, ts time.Time, fn func(Store) error) error {
	tx := m.Begin(txID, ts)
	if err := fn(tx); err != nil {
		tx.Discard()
		return err
	}
	return tx.Commit()
}

type rangeRead struct {
	start, end string
	seen       map[string]uint64
}

// Tx is one transaction on a Memory store. It implements Store. Reads never
// observe the transaction's own pending writes.
type Tx struct {
	m      *Memory
	txID   string
	ts     time.Time
	reads  map[string]uint64
	ranges []rangeRead
	writes map[string][]byte
	done   bool
}

var _ Store = (*Tx)(nil)

func (t *Tx) Get(key string) ([]byte, error) {
	if t.done {
		return nil, ledgererr.New(ledgererr.KindInvalidState, "transaction %s already finished", t.txID)
	}
	t.m.mu.RLock()
	e, ok := t.m.state[key]
	t.m.mu.RUnlock()

	if _, seen := t.reads[key]; !seen {
		t.reads[key] = e.version
	}
	if !ok {
		return nil, nil
	}
	return slices.Clone(e.value), nil
}

func (t *Tx) Put(key string, value []byte) error {
	if t.done {
		return ledgererr.New(ledgererr.KindInvalidState, "transaction %s already finished", t.txID)
	}
	if key == "" {
		return ledgererr.New(ledgererr.KindInvalidArgument, "key must not be empty")
	}
	t.writes[key] = slices.Clone(value)
	return nil
}

// Range scans committed keys in [startKey, endKey). An empty endKey means
// no upper bound.
func (t *Tx) Range(startKey, endKey string) (iter.Seq2[KV, error], error) {
	if t.done {
		return nil, ledgererr.New(ledgererr.KindInvalidState, "transaction %s already finished", t.txID)
	}
	t.m.mu.RLock()
	seen := t.m.scan(startKey, endKey)
	snapshot := make([]KV, 0, len(seen))
	for key := range seen {
		snapshot = append(snapshot, KV{Key: key, Value: slices.Clone(t.m.state[key].value)})
	}
	t.m.mu.RUnlock()

	sort.Slice(snapshot, func(i, j int) bool { return snapshot[i].Key < snapshot[j].Key })
	t.ranges = append(t.ranges, rangeRead{start: startKey, end: endKey, seen: seen})

	return once(snapshot), nil
}

func (t *Tx) History(key string) (iter.Seq2[Version, error], error) {
	if t.done {
		return nil, ledgererr.New(ledgererr.KindInvalidState, "transaction %s already finished", t.txID)
	}
	t.m.mu.RLock()
	versions := slices.Clone(t.m.history[key])
	t.m.mu.RUnlock()
	return once(versions), nil
}

// Commit validates the read set and applies the buffered writes atomically.
// A read-write conflict fails with CONFLICT and applies nothing.
func (t *Tx) Commit() error {
	if t.done {
		return ledgererr.New(ledgererr.KindInvalidState, "transaction %s already finished", t.txID)
	}
	t.done = true

	t.m.mu.Lock()
	defer t.m.mu.Unlock()

	for key, version := range t.reads {
		if t.m.state[key].version != version {
			return ledgererr.New(ledgererr.KindConflict, "read conflict on key %q in transaction %s", key, t.txID)
		}
	}
	for _, r := range t.ranges {
		current := t.m.scan(r.start, r.end)
		if len(current) != len(r.seen) {
			return ledgererr.New(ledgererr.KindConflict, "phantom read in range [%q, %q) in transaction %s", r.start, r.end, t.txID)
		}
		for key, version := range current {
			if seen, ok := r.seen[key]; !ok || seen != version {
				return ledgererr.New(ledgererr.KindConflict, "range conflict on key %q in transaction %s", key, t.txID)
			}
		}
	}

	if len(t.writes) == 0 {
		return nil
	}
	t.m.seq++
	keys := make([]string, 0, len(t.writes))
	for key := range t.writes {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		value := t.writes[key]
		t.m.state[key] = entry{value: value, version: t.m.seq}
		t.m.history[key] = append(t.m.history[key], Version{
			TxID:      t.txID,
			Timestamp: t.ts,
			Value:     slices.Clone(value),
		})
	}
	return nil
}

// Discard drops the buffered writes.
func (t *Tx) Discard() {
	t.done = true
	t.writes = nil
}

// scan returns the keys in range with their versions. Callers hold m.mu.
func (m *Memory) scan(start, end string) map[string]uint64 {
	out := make(map[string]uint64)
	for key, e := range m.state {
		if key < start {
			continue
		}
		if end != "" && key >= end {
			continue
		}
		out[key] = e.version
	}
	return out
}

// once yields items a single time; later iterations produce nothing.
func once[T any](items []T) iter.Seq2[T, error] {
	var used bool
	return func(yield func(T, error) bool) {
		if used {
			return
		}
		used = true
		for _, item := range items {
			if !yield(item, nil) {
				return
			}
		}
	}
}
