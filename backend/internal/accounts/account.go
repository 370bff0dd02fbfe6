// Package accounts holds the account record and the registry that creates,
// loads and persists it.
package accounts

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/centralbank/usdw/backend/internal/amount"
)

// KeyPrefix namespaces account records away from the singleton keys.
const KeyPrefix = "acct:"

// Key returns the ledger key of an account.
func Key(id string) string {
	return KeyPrefix + id
}

// IsKey reports whether a ledger key addresses an account record.
func IsKey(key string) bool {
	return strings.HasPrefix(key, KeyPrefix)
}

// KYCStatus is the position of an account in the KYC state machine.
type KYCStatus string

const (
	KYCPending   KYCStatus = "PENDING"
	KYCSubmitted KYCStatus = "SUBMITTED"
	KYCVerified  KYCStatus = "VERIFIED"
)

// Account is the persisted account record. Balance is a non-negative
// integer kept as a decimal string.
type Account struct {
	ID         string         `json:"id"`
	OwnerMSP   string         `json:"ownerMSP"`
	KYCStatus  KYCStatus      `json:"kycStatus"`
	KYCHash    string         `json:"kycHash,omitempty"`
	Frozen     bool           `json:"frozen"`
	Sanctioned bool           `json:"sanctioned"`
	Balance    string         `json:"balance"`
	Meta       map[string]any `json:"meta"`
}

// New returns a freshly registered account.
func New(id, ownerMSP string) *Account {
	return &Account{
		ID:        id,
		OwnerMSP:  ownerMSP,
		KYCStatus: KYCPending,
		Balance:   "0",
		Meta:      map[string]any{},
	}
}

// BalanceAmount parses the stored balance.
func (a *Account) BalanceAmount() (decimal.Decimal, error) {
	return amount.ParseStored(a.Balance)
}

// SetBalance stores d as the balance.
func (a *Account) SetBalance(d decimal.Decimal) {
	a.Balance = amount.Format(d)
}
