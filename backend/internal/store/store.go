// Package store is the boundary to the versioned key-value ledger the
// accounting engine runs against.
//
// The engine never caches records between invocations: every operation reads
// through a Store bound to one transaction and writes back through it. On
// Fabric the Store is the chaincode stub; in tests and the simulator it is a
// transaction on Memory.
package store

import (
	"iter"
	"time"
)

// KV is one entry of a range scan.
type KV struct {
	Key   string
	Value []byte
}

// Version is one historical state of a key.
type Version struct {
	TxID      string
	Timestamp time.Time
	IsDelete  bool
	Value     []byte
}

// Store is the read/write surface of one ledger transaction.
//
// Get returns nil for an absent key. Range and History return single-use
// sequences: ranging over them twice yields nothing the second time.
type Store interface {
	Get(key string) ([]byte, error)
	Put(key string, value []byte) error
	Range(startKey, endKey string) (iter.Seq2[KV, error], error)
	History(key string) (iter.Seq2[Version, error], error)
}
