// Package compliance decides whether an account may take part in a
// balance-affecting operation. Every check is a pure function of the record.
package compliance

import (
	"fmt"

	"github.com/centralbank/usdw/backend/internal/accounts"
	"github.com/centralbank/usdw/backend/internal/ledgererr"
)

// Reason names the condition that failed.
type Reason string

const (
	ReasonKYCNotVerified Reason = "KYC_NOT_VERIFIED"
	ReasonFrozen         Reason = "FROZEN"
	ReasonSanctioned     Reason = "SANCTIONED"
)

// Party names the role of the failing account in the operation.
type Party string

const (
	PartySender    Party = "sender"
	PartyRecipient Party = "recipient"
)

// Violation is a COMPLIANCE_VIOLATION that records which account failed
// which condition.
type Violation struct {
	AccountID string
	Party     Party
	Reason    Reason
}

func (v *Violation) Error() string {
	return fmt.Sprintf("%s: %s %s: %s", ledgererr.KindComplianceViolation, v.Party, v.AccountID, v.describe())
}

func (v *Violation) describe() string {
	switch v.Reason {
	case ReasonKYCNotVerified:
		return "KYC not verified"
	case ReasonFrozen:
		return "account is frozen"
	case ReasonSanctioned:
		return "account is sanctioned"
	}
	return string(v.Reason)
}

// Is makes every Violation match ledgererr.ErrComplianceViolation.
func (v *Violation) Is(target error) bool {
	return target == ledgererr.ErrComplianceViolation
}

// Unwrap exposes the kind to ledgererr.KindOf.
func (v *Violation) Unwrap() error {
	return &ledgererr.Error{Kind: ledgererr.KindComplianceViolation, Message: v.describe()}
}

// CanReceiveMint reports whether acct may be credited new supply.
func CanReceiveMint(acct *accounts.Account) bool {
	return firstFailure(acct) == ""
}

// CanParticipateInTransfer reports whether acct may send or receive a
// transfer.
func CanParticipateInTransfer(acct *accounts.Account) bool {
	return firstFailure(acct) == ""
}

// CheckMint returns the violation that stops acct from receiving a mint.
func CheckMint(acct *accounts.Account) error {
	if reason := firstFailure(acct); reason != "" {
		return &Violation{AccountID: acct.ID, Party: PartyRecipient, Reason: reason}
	}
	return nil
}

// CheckTransfer evaluates both parties. KYC is checked for both before
// freezes, and freezes for both before sanctions.
func CheckTransfer(from, to *accounts.Account) error {
	parties := []struct {
		acct  *accounts.Account
		party Party
	}{{from, PartySender}, {to, PartyRecipient}}

	for _, p := range parties {
		if p.acct.KYCStatus != accounts.KYCVerified {
			return &Violation{AccountID: p.acct.ID, Party: p.party, Reason: ReasonKYCNotVerified}
		}
	}
	for _, p := range parties {
		if p.acct.Frozen {
			return &Violation{AccountID: p.acct.ID, Party: p.party, Reason: ReasonFrozen}
		}
	}
	for _, p := range parties {
		if p.acct.Sanctioned {
			return &Violation{AccountID: p.acct.ID, Party: p.party, Reason: ReasonSanctioned}
		}
	}
	return nil
}

func firstFailure(acct *accounts.Account) Reason {
	switch {
	case acct.KYCStatus != accounts.KYCVerified:
		return ReasonKYCNotVerified
	case acct.Frozen:
		return ReasonFrozen
	case acct.Sanctioned:
		return ReasonSanctioned
	}
	return ""
}
