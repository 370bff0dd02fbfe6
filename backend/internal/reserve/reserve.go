// Package reserve tracks attested reserves and issued supply and enforces the
// issuance ceiling supply <= reserves.
package reserve

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/centralbank/usdw/backend/internal/accounts"
	"github.com/centralbank/usdw/backend/internal/amount"
	"github.com/centralbank/usdw/backend/internal/audit"
	"github.com/centralbank/usdw/backend/internal/compliance"
	"github.com/centralbank/usdw/backend/internal/identity"
	"github.com/centralbank/usdw/backend/internal/ledgererr"
	"github.com/centralbank/usdw/backend/internal/store"
)

// Singleton keys. Neither carries the account prefix.
const (
	SupplyKey   = "SUPPLY"
	ReservesKey = "RESERVES"
)

// SupplyRecord is the stored total of issued units.
type SupplyRecord struct {
	Value string `json:"value"`
}

// ReservesRecord is the latest reserve attestation.
type ReservesRecord struct {
	Value     string    `json:"value"`
	By        string    `json:"by"`
	Timestamp time.Time `json:"ts"`
}

// ReadSupply returns the issued supply. A missing record reads as zero.
func ReadSupply(st store.Store) (decimal.Decimal, error) {
	var rec SupplyRecord
	found, err := readJSON(st, SupplyKey, &rec)
	if err != nil || !found {
		return amount.Zero, err
	}
	return amount.ParseStored(rec.Value)
}

// ReadReserves returns the attested reserves. A missing record reads as zero.
func ReadReserves(st store.Store) (decimal.Decimal, error) {
	var rec ReservesRecord
	found, err := readJSON(st, ReservesKey, &rec)
	if err != nil || !found {
		return amount.Zero, err
	}
	return amount.ParseStored(rec.Value)
}

func readJSON(st store.Store, key string, v any) (bool, error) {
	b, err := st.Get(key)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", key, err)
	}
	if len(b) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(b, v); err != nil {
		return false, ledgererr.Wrap(err, ledgererr.KindMalformedRecord, "record %s", key)
	}
	return true, nil
}

func writeJSON(st store.Store, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := st.Put(key, b); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

// Ledger runs the issuer operations for one invocation.
type Ledger struct {
	store     store.Store
	registry  *accounts.Registry
	emitter   audit.Emitter
	caller    identity.Resolver
	issuerMSP string
}

func NewLedger(st store.Store, registry *accounts.Registry, emitter audit.Emitter, caller identity.Resolver, issuerMSP string) *Ledger {
	return &Ledger{store: st, registry: registry, emitter: emitter, caller: caller, issuerMSP: issuerMSP}
}

// RequireIssuer fails with UNAUTHORIZED unless the caller belongs to the
// issuer organization. It returns the caller's MSP id.
func (l *Ledger) RequireIssuer(op string) (string, error) {
	mspID, err := l.caller.MSPID()
	if err != nil {
		return "", fmt.Errorf("failed to get MSPID: %w", err)
	}
	if mspID != l.issuerMSP {
		return "", ledgererr.New(ledgererr.KindUnauthorized, "only issuer (%s) may %s", l.issuerMSP, op)
	}
	return mspID, nil
}

// SetReserveReport replaces the reserve attestation. An attestation below
// the outstanding supply is refused.
func (l *Ledger) SetReserveReport(amountStr string) (string, error) {
	mspID, err := l.RequireIssuer("set reserves")
	if err != nil {
		return "", err
	}
	amt, err := amount.ParseNonNegative(amountStr)
	if err != nil {
		return "", err
	}
	supply, err := ReadSupply(l.store)
	if err != nil {
		return "", err
	}
	if amt.LessThan(supply) {
		return "", ledgererr.New(ledgererr.KindReserveCeilingExceeded,
			"reserves %s would fall below supply %s", amount.Format(amt), amount.Format(supply))
	}
	ts, err := l.caller.TxTimestamp()
	if err != nil {
		return "", fmt.Errorf("failed to get tx timestamp: %w", err)
	}

	value := amount.Format(amt)
	if err := writeJSON(l.store, ReservesKey, ReservesRecord{Value: value, By: mspID, Timestamp: ts}); err != nil {
		return "", err
	}
	l.emitter.Emit(audit.ReserveUpdated{Reserves: value})
	return fmt.Sprintf("Reserves set to %s", value), nil
}

// Mint credits new supply to a compliant account without letting supply
// exceed reserves.
func (l *Ledger) Mint(toID, amountStr string) (string, error) {
	// 1. Issuer only
	if _, err := l.RequireIssuer("mint"); err != nil {
		return "", err
	}
	amt, err := amount.ParsePositive(amountStr)
	if err != nil {
		return "", err
	}

	// 2. Ceiling
	supply, err := ReadSupply(l.store)
	if err != nil {
		return "", err
	}
	reserves, err := ReadReserves(l.store)
	if err != nil {
		return "", err
	}
	newSupply := supply.Add(amt)
	if newSupply.GreaterThan(reserves) {
		return "", ledgererr.New(ledgererr.KindReserveCeilingExceeded,
			"mint of %s would raise supply to %s above reserves %s",
			amount.Format(amt), amount.Format(newSupply), amount.Format(reserves))
	}

	// 3. Recipient
	to, err := l.registry.Load(toID)
	if err != nil {
		return "", err
	}
	if err := compliance.CheckMint(to); err != nil {
		return "", err
	}
	balance, err := to.BalanceAmount()
	if err != nil {
		return "", err
	}

	// 4. Credit and grow supply together
	to.SetBalance(balance.Add(amt))
	if err := l.registry.Save(to); err != nil {
		return "", err
	}
	if err := writeJSON(l.store, SupplyKey, SupplyRecord{Value: amount.Format(newSupply)}); err != nil {
		return "", err
	}

	l.emitter.Emit(audit.Mint{To: toID, Amount: amount.Format(amt), Supply: amount.Format(newSupply)})
	return fmt.Sprintf("Minted %s to %s", amount.Format(amt), toID), nil
}

// Provision writes zero supply and zero reserves attested by the caller. It
// fails with ALREADY_EXISTS if either singleton is present.
func (l *Ledger) Provision() error {
	mspID, err := l.RequireIssuer("initialize the ledger")
	if err != nil {
		return err
	}
	for _, key := range []string{SupplyKey, ReservesKey} {
		b, err := l.store.Get(key)
		if err != nil {
			return fmt.Errorf("read %s: %w", key, err)
		}
		if len(b) > 0 {
			return ledgererr.New(ledgererr.KindAlreadyExists, "ledger already initialized: %s is set", key)
		}
	}
	ts, err := l.caller.TxTimestamp()
	if err != nil {
		return fmt.Errorf("failed to get tx timestamp: %w", err)
	}

	zero := amount.Format(amount.Zero)
	if err := writeJSON(l.store, SupplyKey, SupplyRecord{Value: zero}); err != nil {
		return err
	}
	return writeJSON(l.store, ReservesKey, ReservesRecord{Value: zero, By: mspID, Timestamp: ts})
}

