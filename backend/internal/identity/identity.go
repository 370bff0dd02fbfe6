// Package identity resolves who is invoking the ledger and which transaction
// the invocation belongs to.
package identity

import "time"

// Resolver exposes the caller's organizational identity and the current
// transaction's metadata.
type Resolver interface {
	MSPID() (string, error)
	TxID() string
	TxTimestamp() (time.Time, error)
}

// Static is a fixed Resolver for local invocations and tests.
type Static struct {
	MSP       string
	Tx        string
	Timestamp time.Time
}

func (s Static) MSPID() (string, error)          { return s.MSP, nil }
func (s Static) TxID() string                    { return s.Tx }
func (s Static) TxTimestamp() (time.Time, error) { return s.Timestamp, nil }
