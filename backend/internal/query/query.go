// Package query provides read-only projections of ledger state. Nothing here
// writes or applies compliance gating.
package query

import (
	"encoding/json"
	"fmt"
	"iter"
	"time"

	"github.com/centralbank/usdw/backend/internal/accounts"
	"github.com/centralbank/usdw/backend/internal/amount"
	"github.com/centralbank/usdw/backend/internal/reserve"
	"github.com/centralbank/usdw/backend/internal/store"
)

// Entry is one result of an account scan: a decoded account, or the raw
// key and value of a record that could not be decoded.
type Entry struct {
	Account *accounts.Account
	Key     string
	Raw     string
}

// MarshalJSON renders a decoded account as itself and a raw entry as
// {"key", "raw"}.
func (e Entry) MarshalJSON() ([]byte, error) {
	if e.Account != nil {
		return json.Marshal(e.Account)
	}
	return json.Marshal(struct {
		Key string `json:"key"`
		Raw string `json:"raw"`
	}{e.Key, e.Raw})
}

// Stats is the aggregate supply view.
type Stats struct {
	Supply   string    `json:"supply"`
	Reserves string    `json:"reserves"`
	Ts       time.Time `json:"ts"`
}

// HistoryEntry is one committed version of an account record.
type HistoryEntry struct {
	TxID     string    `json:"txId"`
	Ts       time.Time `json:"ts"`
	IsDelete bool      `json:"isDelete"`
	Value    *string   `json:"value"`
}

type Service struct {
	store    store.Store
	registry *accounts.Registry
}

func NewService(st store.Store, registry *accounts.Registry) *Service {
	return &Service{store: st, registry: registry}
}

func (s *Service) GetAccount(id string) (*accounts.Account, error) {
	return s.registry.Load(id)
}

// GetAllAccounts scans the keyspace for account records. Undecodable
// records are returned raw instead of failing the scan.
func (s *Service) GetAllAccounts() ([]Entry, error) {
	seq, err := s.store.Range("", "")
	if err != nil {
		return nil, fmt.Errorf("failed to scan ledger: %w", err)
	}

	out := []Entry{}
	for kv, err := range seq {
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger: %w", err)
		}
		if !accounts.IsKey(kv.Key) {
			continue
		}
		acct, derr := accounts.Decode(kv.Key[len(accounts.KeyPrefix):], kv.Value)
		if derr != nil {
			out = append(out, Entry{Key: kv.Key, Raw: string(kv.Value)})
			continue
		}
		out = append(out, Entry{Account: acct})
	}
	return out, nil
}

func (s *Service) GetSupply() (string, error) {
	d, err := reserve.ReadSupply(s.store)
	if err != nil {
		return "", err
	}
	return amount.Format(d), nil
}

func (s *Service) GetReserves() (string, error) {
	d, err := reserve.ReadReserves(s.store)
	if err != nil {
		return "", err
	}
	return amount.Format(d), nil
}

// GetStats reports supply and reserves stamped with ts.
func (s *Service) GetStats(ts time.Time) (*Stats, error) {
	supply, err := s.GetSupply()
	if err != nil {
		return nil, err
	}
	reserves, err := s.GetReserves()
	if err != nil {
		return nil, err
	}
	return &Stats{Supply: supply, Reserves: reserves, Ts: ts}, nil
}

// TxHistory returns the committed versions of an account record, oldest
// first. The sequence can be consumed once.
func (s *Service) TxHistory(id string) (iter.Seq2[HistoryEntry, error], error) {
	if err := accounts.ValidateID(id); err != nil {
		return nil, err
	}
	versions, err := s.store.History(accounts.Key(id))
	if err != nil {
		return nil, fmt.Errorf("failed to read history of %s: %w", id, err)
	}
	return func(yield func(HistoryEntry, error) bool) {
		for v, err := range versions {
			if err != nil {
				yield(HistoryEntry{}, err)
				return
			}
			entry := HistoryEntry{TxID: v.TxID, Ts: v.Timestamp, IsDelete: v.IsDelete}
			if v.Value != nil {
				value := string(v.Value)
				entry.Value = &value
			}
			if !yield(entry, nil) {
				return
			}
		}
	}, nil
}

// Collect drains a history sequence.
func Collect(seq iter.Seq2[HistoryEntry, error]) ([]HistoryEntry, error) {
	out := []HistoryEntry{}
	for entry, err := range seq {
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, nil
}
