// Package engine exposes the ledger operations over an injected store,
// caller identity and audit emitter. A Ledger lives for one invocation.
package engine

import (
	"fmt"
	"iter"

	"go.uber.org/zap"

	"github.com/centralbank/usdw/backend/internal/accounts"
	"github.com/centralbank/usdw/backend/internal/audit"
	"github.com/centralbank/usdw/backend/internal/compliance"
	"github.com/centralbank/usdw/backend/internal/identity"
	"github.com/centralbank/usdw/backend/internal/ledgererr"
	"github.com/centralbank/usdw/backend/internal/query"
	"github.com/centralbank/usdw/backend/internal/reserve"
	"github.com/centralbank/usdw/backend/internal/store"
	"github.com/centralbank/usdw/backend/internal/transfer"
)

type Ledger struct {
	store    store.Store
	caller   identity.Resolver
	emitter  audit.Emitter
	cfg      Config
	log      *zap.Logger
	registry *accounts.Registry
	reserve  *reserve.Ledger
	transfer *transfer.Engine
	query    *query.Service
}

func New(st store.Store, caller identity.Resolver, emitter audit.Emitter, cfg Config, log *zap.Logger) *Ledger {
	if log == nil {
		log = zap.NewNop()
	}
	registry := accounts.NewRegistry(st, emitter)
	return &Ledger{
		store:    st,
		caller:   caller,
		emitter:  emitter,
		cfg:      cfg,
		log:      log.With(zap.String("txId", caller.TxID())),
		registry: registry,
		reserve:  reserve.NewLedger(st, registry, emitter, caller, cfg.IssuerMSP),
		transfer: transfer.NewEngine(registry, emitter, caller),
		query:    query.NewService(st, registry),
	}
}

func (l *Ledger) observe(op string, err error) {
	if err != nil {
		l.log.Warn("operation failed",
			zap.String("op", op),
			zap.String("kind", string(ledgererr.KindOf(err))),
			zap.Error(err))
		return
	}
	l.log.Debug("operation succeeded", zap.String("op", op))
}

func (l *Ledger) complianceService() (*compliance.Service, error) {
	mspID, err := l.caller.MSPID()
	if err != nil {
		return nil, fmt.Errorf("failed to get MSPID: %w", err)
	}
	policy := compliance.Policy{IssuerMSP: l.cfg.IssuerMSP, Operators: l.cfg.ComplianceMSPs}
	return compliance.NewService(l.registry, l.emitter, policy, mspID), nil
}

func (l *Ledger) withCompliance(op string, fn func(*compliance.Service) (string, error)) (msg string, err error) {
	defer func() { l.observe(op, err) }()
	svc, err := l.complianceService()
	if err != nil {
		return "", err
	}
	return fn(svc)
}

// RegisterAccount creates a PENDING account owned by the caller's
// organization.
func (l *Ledger) RegisterAccount(id string) (msg string, err error) {
	defer func() { l.observe("RegisterAccount", err) }()
	mspID, err := l.caller.MSPID()
	if err != nil {
		return "", fmt.Errorf("failed to get MSPID: %w", err)
	}
	if _, err := l.registry.Register(id, mspID); err != nil {
		return "", err
	}
	return fmt.Sprintf("Account %s registered", id), nil
}

func (l *Ledger) SubmitKYC(id, kycHash string) (string, error) {
	return l.withCompliance("SubmitKYC", func(s *compliance.Service) (string, error) { return s.SubmitKYC(id, kycHash) })
}

func (l *Ledger) VerifyKYC(id string) (string, error) {
	return l.withCompliance("VerifyKYC", func(s *compliance.Service) (string, error) { return s.VerifyKYC(id) })
}

func (l *Ledger) FreezeAccount(id string) (string, error) {
	return l.withCompliance("FreezeAccount", func(s *compliance.Service) (string, error) { return s.Freeze(id) })
}

func (l *Ledger) UnfreezeAccount(id string) (string, error) {
	return l.withCompliance("UnfreezeAccount", func(s *compliance.Service) (string, error) { return s.Unfreeze(id) })
}

func (l *Ledger) SanctionAccount(id string) (string, error) {
	return l.withCompliance("SanctionAccount", func(s *compliance.Service) (string, error) { return s.Sanction(id) })
}

func (l *Ledger) UnsanctionAccount(id string) (string, error) {
	return l.withCompliance("UnsanctionAccount", func(s *compliance.Service) (string, error) { return s.Unsanction(id) })
}

func (l *Ledger) SetReserveReport(amount string) (msg string, err error) {
	defer func() { l.observe("SetReserveReport", err) }()
	return l.reserve.SetReserveReport(amount)
}

func (l *Ledger) Mint(toID, amount string) (msg string, err error) {
	defer func() { l.observe("Mint", err) }()
	return l.reserve.Mint(toID, amount)
}

// Transfer moves amount between two accounts. travelRuleRef may be empty.
func (l *Ledger) Transfer(fromID, toID, amount, travelRuleRef string) (msg string, err error) {
	defer func() { l.observe("Transfer", err) }()
	return l.transfer.Transfer(fromID, toID, amount, travelRuleRef)
}

func (l *Ledger) GetAccount(id string) (*accounts.Account, error) {
	return l.query.GetAccount(id)
}

func (l *Ledger) GetAllAccounts() ([]query.Entry, error) {
	return l.query.GetAllAccounts()
}

func (l *Ledger) GetSupply() (string, error) {
	return l.query.GetSupply()
}

func (l *Ledger) GetReserves() (string, error) {
	return l.query.GetReserves()
}

// GetStats reports supply and reserves stamped with the transaction time.
func (l *Ledger) GetStats() (*query.Stats, error) {
	ts, err := l.caller.TxTimestamp()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx timestamp: %w", err)
	}
	return l.query.GetStats(ts)
}

func (l *Ledger) TxHistory(id string) (iter.Seq2[query.HistoryEntry, error], error) {
	return l.query.TxHistory(id)
}

// InitLedger provisions zero supply and reserves and the configured
// bootstrap accounts. It runs once: any existing singleton or bootstrap
// account fails it with ALREADY_EXISTS.
func (l *Ledger) InitLedger() (msg string, err error) {
	defer func() { l.observe("InitLedger", err) }()

	mspID, err := l.reserve.RequireIssuer("initialize the ledger")
	if err != nil {
		return "", err
	}
	for _, b := range l.cfg.Bootstrap {
		exists, err := l.registry.Exists(b.ID)
		if err != nil {
			return "", err
		}
		if exists {
			return "", ledgererr.New(ledgererr.KindAlreadyExists, "bootstrap account %s already exists", b.ID)
		}
	}
	if err := l.reserve.Provision(); err != nil {
		return "", err
	}

	ids := make([]string, 0, len(l.cfg.Bootstrap))
	for _, b := range l.cfg.Bootstrap {
		acct := accounts.New(b.ID, mspID)
		acct.KYCStatus = accounts.KYCVerified
		if b.Role != "" {
			acct.Meta["role"] = b.Role
		}
		if err := l.registry.Save(acct); err != nil {
			return "", err
		}
		ids = append(ids, b.ID)
	}

	l.emitter.Emit(audit.LedgerInitialized{Accounts: ids})
	return fmt.Sprintf("Initialized %d accounts", len(ids)), nil
}
