package compliance

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/centralbank/usdw/backend/internal/accounts"
	"github.com/centralbank/usdw/backend/internal/ledgererr"
)

func verified(id string) *accounts.Account {
	a := accounts.New(id, "Org1MSP")
	a.KYCStatus = accounts.KYCVerified
	return a
}

func TestCheckMint(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(a *accounts.Account)
		reason Reason
	}{
		{name: "verified and clear", mutate: func(*accounts.Account) {}},
		{name: "pending KYC", mutate: func(a *accounts.Account) { a.KYCStatus = accounts.KYCPending }, reason: ReasonKYCNotVerified},
		{name: "submitted KYC", mutate: func(a *accounts.Account) { a.KYCStatus = accounts.KYCSubmitted }, reason: ReasonKYCNotVerified},
		{name: "frozen", mutate: func(a *accounts.Account) { a.Frozen = true }, reason: ReasonFrozen},
		{name: "sanctioned", mutate: func(a *accounts.Account) { a.Sanctioned = true }, reason: ReasonSanctioned},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acct := verified("alice")
			tt.mutate(acct)

			err := CheckMint(acct)
			if tt.reason == "" {
				assert.NoError(t, err)
				assert.True(t, CanReceiveMint(acct))
				return
			}

			assert.False(t, CanReceiveMint(acct))
			assert.ErrorIs(t, err, ledgererr.ErrComplianceViolation)
			assert.Equal(t, ledgererr.KindComplianceViolation, ledgererr.KindOf(err))

			var v *Violation
			require.True(t, errors.As(err, &v))
			assert.Equal(t, tt.reason, v.Reason)
			assert.Equal(t, PartyRecipient, v.Party)
		})
	}
}

func TestCheckTransferNamesFailingParty(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(from, to *accounts.Account)
		party  Party
		reason Reason
	}{
		{name: "sender unverified", mutate: func(f, _ *accounts.Account) { f.KYCStatus = accounts.KYCPending }, party: PartySender, reason: ReasonKYCNotVerified},
		{name: "recipient unverified", mutate: func(_, r *accounts.Account) { r.KYCStatus = accounts.KYCSubmitted }, party: PartyRecipient, reason: ReasonKYCNotVerified},
		{name: "sender frozen", mutate: func(f, _ *accounts.Account) { f.Frozen = true }, party: PartySender, reason: ReasonFrozen},
		{name: "recipient frozen", mutate: func(_, r *accounts.Account) { r.Frozen = true }, party: PartyRecipient, reason: ReasonFrozen},
		{name: "sender sanctioned", mutate: func(f, _ *accounts.Account) { f.Sanctioned = true }, party: PartySender, reason: ReasonSanctioned},
		{name: "recipient sanctioned", mutate: func(_, r *accounts.Account) { r.Sanctioned = true }, party: PartyRecipient, reason: ReasonSanctioned},
		{
			name: "recipient KYC reported before sender freeze",
			mutate: func(f, r *accounts.Account) {
				f.Frozen = true
				r.KYCStatus = accounts.KYCPending
			},
			party: PartyRecipient, reason: ReasonKYCNotVerified,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			from, to := verified("alice"), verified("bob")
			tt.mutate(from, to)

			var v *Violation
			require.True(t, errors.As(CheckTransfer(from, to), &v))
			assert.Equal(t, tt.party, v.Party)
			assert.Equal(t, tt.reason, v.Reason)
		})
	}

	assert.NoError(t, CheckTransfer(verified("alice"), verified("bob")))
}

func TestPolicyAuthorize(t *testing.T) {
	open := Policy{IssuerMSP: "Org1MSP"}
	assert.NoError(t, open.Authorize("AnyMSP"))

	restricted := Policy{IssuerMSP: "Org1MSP", Operators: []string{"RegulatorMSP"}}
	assert.NoError(t, restricted.Authorize("Org1MSP"))
	assert.NoError(t, restricted.Authorize("RegulatorMSP"))
	assert.ErrorIs(t, restricted.Authorize("Org2MSP"), ledgererr.ErrUnauthorized)
}
