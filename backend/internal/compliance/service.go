package compliance

import (
	"fmt"
	"slices"
	"strings"

	"github.com/centralbank/usdw/backend/internal/accounts"
	"github.com/centralbank/usdw/backend/internal/audit"
	"github.com/centralbank/usdw/backend/internal/ledgererr"
)

// Policy lists the organizations allowed to change compliance state. With no
// operators configured any member may do so.
type Policy struct {
	IssuerMSP string
	Operators []string
}

// Authorize checks that mspID may run a compliance operation.
func (p Policy) Authorize(mspID string) error {
	if len(p.Operators) == 0 {
		return nil
	}
	if mspID == p.IssuerMSP || slices.Contains(p.Operators, mspID) {
		return nil
	}
	return ledgererr.New(ledgererr.KindUnauthorized, "%s may not change compliance state", mspID)
}

// Service applies KYC, freeze and sanction transitions.
type Service struct {
	registry *accounts.Registry
	emitter  audit.Emitter
	policy   Policy
	caller   string
}

// NewService binds the transitions to one invocation. caller is the
// invoking organization.
func NewService(registry *accounts.Registry, emitter audit.Emitter, policy Policy, caller string) *Service {
	return &Service{registry: registry, emitter: emitter, policy: policy, caller: caller}
}

// SubmitKYC records the evidence hash and moves the account to SUBMITTED.
func (s *Service) SubmitKYC(id, kycHash string) (string, error) {
	if strings.TrimSpace(kycHash) == "" {
		return "", ledgererr.New(ledgererr.KindInvalidArgument, "KYC evidence hash is required")
	}
	acct, err := s.registry.Load(id)
	if err != nil {
		return "", err
	}
	if acct.KYCStatus == accounts.KYCVerified {
		return "", ledgererr.New(ledgererr.KindInvalidState, "KYC for %s is already verified", id)
	}

	acct.KYCHash = kycHash
	acct.KYCStatus = accounts.KYCSubmitted
	if err := s.registry.Save(acct); err != nil {
		return "", err
	}
	s.emitter.Emit(audit.KYCUploaded(id))
	return fmt.Sprintf("KYC submitted for %s", id), nil
}

// VerifyKYC moves a SUBMITTED account to VERIFIED. Verification is final.
func (s *Service) VerifyKYC(id string) (string, error) {
	if err := s.policy.Authorize(s.caller); err != nil {
		return "", err
	}
	acct, err := s.registry.Load(id)
	if err != nil {
		return "", err
	}
	if acct.KYCStatus == accounts.KYCPending {
		return "", ledgererr.New(ledgererr.KindInvalidState, "no KYC evidence submitted for %s", id)
	}

	acct.KYCStatus = accounts.KYCVerified
	if err := s.registry.Save(acct); err != nil {
		return "", err
	}
	s.emitter.Emit(audit.KYCVerified(id))
	return fmt.Sprintf("KYC verified for %s", id), nil
}

// Freeze sets the frozen flag. Freezing a frozen account only reports it.
func (s *Service) Freeze(id string) (string, error) {
	if err := s.policy.Authorize(s.caller); err != nil {
		return "", err
	}
	acct, err := s.registry.Load(id)
	if err != nil {
		return "", err
	}
	if acct.Frozen {
		return fmt.Sprintf("Account %s already frozen", id), nil
	}

	acct.Frozen = true
	if err := s.registry.Save(acct); err != nil {
		return "", err
	}
	s.emitter.Emit(audit.AccountFrozen(id))
	return fmt.Sprintf("Account %s frozen", id), nil
}

// Unfreeze clears the frozen flag. Unfreezing an active account only
// reports it.
func (s *Service) Unfreeze(id string) (string, error) {
	if err := s.policy.Authorize(s.caller); err != nil {
		return "", err
	}
	acct, err := s.registry.Load(id)
	if err != nil {
		return "", err
	}
	if !acct.Frozen {
		return fmt.Sprintf("Account %s is already unfrozen", id), nil
	}

	acct.Frozen = false
	if err := s.registry.Save(acct); err != nil {
		return "", err
	}
	s.emitter.Emit(audit.AccountUnfrozen(id))
	return fmt.Sprintf("Account %s unfrozen", id), nil
}

// Sanction sets the sanctioned flag. It always writes and always emits.
func (s *Service) Sanction(id string) (string, error) {
	return s.setSanctioned(id, true)
}

// Unsanction clears the sanctioned flag. It always writes and always emits.
func (s *Service) Unsanction(id string) (string, error) {
	return s.setSanctioned(id, false)
}

func (s *Service) setSanctioned(id string, sanctioned bool) (string, error) {
	if err := s.policy.Authorize(s.caller); err != nil {
		return "", err
	}
	acct, err := s.registry.Load(id)
	if err != nil {
		return "", err
	}

	acct.Sanctioned = sanctioned
	if err := s.registry.Save(acct); err != nil {
		return "", err
	}
	if sanctioned {
		s.emitter.Emit(audit.AccountSanctioned(id))
		return fmt.Sprintf("Account %s sanctioned", id), nil
	}
	s.emitter.Emit(audit.AccountUnsanctioned(id))
	return fmt.Sprintf("Account %s unsanctioned", id), nil
}
