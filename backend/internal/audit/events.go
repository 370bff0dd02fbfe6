// Package audit defines the events every state-changing ledger operation
// publishes and the emitter they are published through.
//
// Events are a side channel attached to the enclosing transaction: they are
// emitted only after the state mutation is staged, and they never fail the
// operation that emits them.
package audit

import "time"

// Event names as seen by external indexers.
const (
	NameAccountRegistered   = "AccountRegistered"
	NameKYCUploaded         = "KYCUploaded"
	NameKYCVerified         = "KYCVerified"
	NameAccountFrozen       = "AccountFrozen"
	NameAccountUnfrozen     = "AccountUnfrozen"
	NameAccountSanctioned   = "AccountSanctioned"
	NameAccountUnsanctioned = "AccountUnsanctioned"
	NameReserveUpdated      = "ReserveUpdated"
	NameMint                = "Mint"
	NameTransfer            = "Transfer"
	NameLedgerInitialized   = "LedgerInitialized"
)

// Event is a payload with a stable name.
type Event interface {
	EventName() string
}

// AccountEvent covers every event whose payload is just the account id.
type AccountEvent struct {
	Name      string `json:"-"`
	AccountID string `json:"accountId"`
}

func (e AccountEvent) EventName() string { return e.Name }

func AccountRegistered(id string) AccountEvent {
	return AccountEvent{Name: NameAccountRegistered, AccountID: id}
}

func KYCUploaded(id string) AccountEvent {
	return AccountEvent{Name: NameKYCUploaded, AccountID: id}
}

func KYCVerified(id string) AccountEvent {
	return AccountEvent{Name: NameKYCVerified, AccountID: id}
}

func AccountFrozen(id string) AccountEvent {
	return AccountEvent{Name: NameAccountFrozen, AccountID: id}
}

func AccountUnfrozen(id string) AccountEvent {
	return AccountEvent{Name: NameAccountUnfrozen, AccountID: id}
}

func AccountSanctioned(id string) AccountEvent {
	return AccountEvent{Name: NameAccountSanctioned, AccountID: id}
}

func AccountUnsanctioned(id string) AccountEvent {
	return AccountEvent{Name: NameAccountUnsanctioned, AccountID: id}
}

// ReserveUpdated reports a new reserve attestation.
type ReserveUpdated struct {
	Reserves string `json:"reserves"`
}

func (ReserveUpdated) EventName() string { return NameReserveUpdated }

// Mint reports new supply credited to one account.
type Mint struct {
	To     string `json:"to"`
	Amount string `json:"amount"`
	Supply string `json:"supply"`
}

func (Mint) EventName() string { return NameMint }

// Transfer carries the transaction identity for off-ledger travel-rule
// correlation.
type Transfer struct {
	From          string    `json:"from"`
	To            string    `json:"to"`
	Amount        string    `json:"amount"`
	TravelRuleRef string    `json:"travelRuleRef"`
	Timestamp     time.Time `json:"ts"`
	TxID          string    `json:"txId"`
}

func (Transfer) EventName() string { return NameTransfer }

// LedgerInitialized lists the bootstrap accounts created by InitLedger.
type LedgerInitialized struct {
	Accounts []string `json:"accounts"`
}

func (LedgerInitialized) EventName() string { return NameLedgerInitialized }
