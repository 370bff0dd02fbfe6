package chaincode

import (
	"encoding/json"
	"fmt"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"go.uber.org/zap"

	"github.com/centralbank/usdw/backend/internal/audit"
	"github.com/centralbank/usdw/backend/internal/engine"
	"github.com/centralbank/usdw/backend/internal/query"
)

// ContractName is the name clients address the contract by.
const ContractName = "USDwContract"

// SmartContract exposes the USDw ledger operations as chaincode
// transactions. Structured results are returned as JSON strings.
type SmartContract struct {
	contractapi.Contract
	cfg engine.Config
	log *zap.Logger
}

// NewSmartContract builds the contract for the given issuer and compliance
// configuration.
func NewSmartContract(cfg engine.Config, log *zap.Logger) *SmartContract {
	if log == nil {
		log = zap.NewNop()
	}
	return &SmartContract{
		Contract: contractapi.Contract{Name: ContractName},
		cfg:      cfg,
		log:      log,
	}
}

// ledger binds the engine to one transaction.
func (s *SmartContract) ledger(ctx contractapi.TransactionContextInterface) *engine.Ledger {
	stub := ctx.GetStub()
	emitter := audit.NewPublishingEmitter(stub.SetEvent, s.log)
	return engine.New(stubStore{stub: stub}, txIdentity{ctx: ctx}, emitter, s.cfg, s.log)
}

// InitLedger provisions the bootstrap accounts and zero supply/reserves.
// Only the issuer may call it, and only once.
func (s *SmartContract) InitLedger(ctx contractapi.TransactionContextInterface) (string, error) {
	return s.ledger(ctx).InitLedger()
}

// RegisterAccount creates a PENDING account owned by the caller's MSP.
func (s *SmartContract) RegisterAccount(ctx contractapi.TransactionContextInterface, id string) (string, error) {
	return s.ledger(ctx).RegisterAccount(id)
}

// SubmitKYC attaches an off-ledger KYC evidence hash.
func (s *SmartContract) SubmitKYC(ctx contractapi.TransactionContextInterface, id string, kycHash string) (string, error) {
	return s.ledger(ctx).SubmitKYC(id, kycHash)
}

// VerifyKYC marks submitted KYC as verified.
func (s *SmartContract) VerifyKYC(ctx contractapi.TransactionContextInterface, id string) (string, error) {
	return s.ledger(ctx).VerifyKYC(id)
}

// FreezeAccount blocks an account from minting and transfers
func (s *SmartContract) FreezeAccount(ctx contractapi.TransactionContextInterface, id string) (string, error) {
	return s.ledger(ctx).FreezeAccount(id)
}

func (s *SmartContract) UnfreezeAccount(ctx contractapi.TransactionContextInterface, id string) (string, error) {
	return s.ledger(ctx).UnfreezeAccount(id)
}

func (s *SmartContract) SanctionAccount(ctx contractapi.TransactionContextInterface, id string) (string, error) {
	return s.ledger(ctx).SanctionAccount(id)
}

func (s *SmartContract) UnsanctionAccount(ctx contractapi.TransactionContextInterface, id string) (string, error) {
	return s.ledger(ctx).UnsanctionAccount(id)
}

// SetReserveReport records attested reserves. Only the issuer can call this.
func (s *SmartContract) SetReserveReport(ctx contractapi.TransactionContextInterface, amount string) (string, error) {
	return s.ledger(ctx).SetReserveReport(amount)
}

// Mint issues new USDw to a verified account. Only the issuer can call this.
func (s *SmartContract) Mint(ctx contractapi.TransactionContextInterface, toID string, amount string) (string, error) {
	return s.ledger(ctx).Mint(toID, amount)
}

// Transfer moves funds between accounts. Pass an empty travelRuleRef when
// there is none.
func (s *SmartContract) Transfer(ctx contractapi.TransactionContextInterface, fromID string, toID string, amount string, travelRuleRef string) (string, error) {
	return s.ledger(ctx).Transfer(fromID, toID, amount, travelRuleRef)
}

// GetAccount returns the account record as JSON.
func (s *SmartContract) GetAccount(ctx contractapi.TransactionContextInterface, id string) (string, error) {
	acct, err := s.ledger(ctx).GetAccount(id)
	if err != nil {
		return "", err
	}
	return marshal(acct)
}

// GetAllAccounts returns every account record as a JSON array. Records that
// cannot be decoded appear as {"key","raw"}.
func (s *SmartContract) GetAllAccounts(ctx contractapi.TransactionContextInterface) (string, error) {
	entries, err := s.ledger(ctx).GetAllAccounts()
	if err != nil {
		return "", err
	}
	return marshal(entries)
}

func (s *SmartContract) GetSupply(ctx contractapi.TransactionContextInterface) (string, error) {
	return s.ledger(ctx).GetSupply()
}

func (s *SmartContract) GetReserves(ctx contractapi.TransactionContextInterface) (string, error) {
	return s.ledger(ctx).GetReserves()
}

// GetStats returns {supply, reserves, ts} as JSON.
func (s *SmartContract) GetStats(ctx contractapi.TransactionContextInterface) (string, error) {
	stats, err := s.ledger(ctx).GetStats()
	if err != nil {
		return "", err
	}
	return marshal(stats)
}

// TxHistory returns every committed version of an account as a JSON array.
func (s *SmartContract) TxHistory(ctx contractapi.TransactionContextInterface, id string) (string, error) {
	seq, err := s.ledger(ctx).TxHistory(id)
	if err != nil {
		return "", err
	}
	entries, err := query.Collect(seq)
	if err != nil {
		return "", fmt.Errorf("failed to read history of %s: %w", id, err)
	}
	return marshal(entries)
}

func marshal(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode result: %w", err)
	}
	return string(b), nil
}
