package chaincode

import (
	"crypto/x509"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/hyperledger/fabric-chaincode-go/shim"
	"github.com/hyperledger/fabric-chaincode-go/shimtest"
	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/hyperledger/fabric-protos-go-apiv2/ledger/queryresult"
	"github.com/hyperledger/fabric-protos-go-apiv2/peer"
	"github.com/stretchr/testify/suite"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/centralbank/usdw/backend/internal/accounts"
	"github.com/centralbank/usdw/backend/internal/engine"
	"github.com/centralbank/usdw/backend/internal/ledgererr"
)

const (
	issuerMSP = "Org1MSP"
	bankMSP   = "Org2MSP"
)

type clientIdentity struct {
	msp string
}

func (c clientIdentity) GetID() (string, error)    { return "x509::CN=" + c.msp, nil }
func (c clientIdentity) GetMSPID() (string, error) { return c.msp, nil }
func (c clientIdentity) GetAttributeValue(string) (string, bool, error) {
	return "", false, nil
}
func (c clientIdentity) AssertAttributeValue(name, value string) error {
	return fmt.Errorf("attribute %s not found", name)
}
func (c clientIdentity) GetX509Certificate() (*x509.Certificate, error) { return nil, nil }

// historyStub records key history on PutState, which MockStub does not
// implement.
type historyStub struct {
	*shimtest.MockStub
	history map[string][]*queryresult.KeyModification
}

func (h *historyStub) PutState(key string, value []byte) error {
	if err := h.MockStub.PutState(key, value); err != nil {
		return err
	}
	h.history[key] = append(h.history[key], &queryresult.KeyModification{
		TxId:      h.GetTxID(),
		Value:     value,
		Timestamp: h.TxTimestamp,
	})
	return nil
}

func (h *historyStub) GetHistoryForKey(key string) (shim.HistoryQueryIteratorInterface, error) {
	return &historyIterator{items: h.history[key]}, nil
}

type historyIterator struct {
	items []*queryresult.KeyModification
	pos   int
}

func (it *historyIterator) HasNext() bool { return it.pos < len(it.items) }
func (it *historyIterator) Close() error  { return nil }
func (it *historyIterator) Next() (*queryresult.KeyModification, error) {
	if !it.HasNext() {
		return nil, fmt.Errorf("iterator exhausted")
	}
	km := it.items[it.pos]
	it.pos++
	return km, nil
}

type ChaincodeSuite struct {
	suite.Suite
	stub     *historyStub
	contract *SmartContract
	seq      int
	now      time.Time
}

func TestChaincodeSuite(t *testing.T) {
	suite.Run(t, new(ChaincodeSuite))
}

func (s *ChaincodeSuite) SetupTest() {
	s.stub = &historyStub{
		MockStub: shimtest.NewMockStub("usdw", nil),
		history:  map[string][]*queryresult.KeyModification{},
	}
	s.contract = NewSmartContract(engine.DefaultConfig(), nil)
	s.seq = 0
	s.now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
}

func (s *ChaincodeSuite) invoke(msp string, fn func(ctx contractapi.TransactionContextInterface) (string, error)) (string, error) {
	s.seq++
	txID := fmt.Sprintf("tx-%d", s.seq)
	s.stub.MockTransactionStart(txID)
	defer s.stub.MockTransactionEnd(txID)
	s.stub.TxTimestamp = timestamppb.New(s.now.Add(time.Duration(s.seq) * time.Second))

	ctx := &contractapi.TransactionContext{}
	ctx.SetStub(s.stub)
	ctx.SetClientIdentity(clientIdentity{msp: msp})
	return fn(ctx)
}

func (s *ChaincodeSuite) ok(msp string, fn func(ctx contractapi.TransactionContextInterface) (string, error)) string {
	out, err := s.invoke(msp, fn)
	s.Require().NoError(err)
	return out
}

func (s *ChaincodeSuite) events() []*peer.ChaincodeEvent {
	var out []*peer.ChaincodeEvent
	for {
		select {
		case ev := <-s.stub.ChaincodeEventsChannel:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func (s *ChaincodeSuite) account(id string) accounts.Account {
	raw := s.ok(bankMSP, func(ctx contractapi.TransactionContextInterface) (string, error) {
		return s.contract.GetAccount(ctx, id)
	})
	var acct accounts.Account
	s.Require().NoError(json.Unmarshal([]byte(raw), &acct))
	return acct
}

func (s *ChaincodeSuite) onboard(id string) {
	c := s.contract
	s.ok(bankMSP, func(ctx contractapi.TransactionContextInterface) (string, error) { return c.RegisterAccount(ctx, id) })
	s.ok(bankMSP, func(ctx contractapi.TransactionContextInterface) (string, error) { return c.SubmitKYC(ctx, id, "h-"+id) })
	s.ok(issuerMSP, func(ctx contractapi.TransactionContextInterface) (string, error) { return c.VerifyKYC(ctx, id) })
}

func (s *ChaincodeSuite) TestScenario() {
	c := s.contract
	s.onboard("alice")
	s.Equal(accounts.KYCVerified, s.account("alice").KYCStatus)
	s.Equal(bankMSP, s.account("alice").OwnerMSP)

	s.ok(issuerMSP, func(ctx contractapi.TransactionContextInterface) (string, error) { return c.SetReserveReport(ctx, "1000") })
	s.Equal("Minted 500 to alice",
		s.ok(issuerMSP, func(ctx contractapi.TransactionContextInterface) (string, error) { return c.Mint(ctx, "alice", "500") }))
	s.Equal("500", s.ok(bankMSP, func(ctx contractapi.TransactionContextInterface) (string, error) { return c.GetSupply(ctx) }))

	s.onboard("bob")
	s.events()

	s.ok(bankMSP, func(ctx contractapi.TransactionContextInterface) (string, error) {
		return c.Transfer(ctx, "alice", "bob", "200", "tr-42")
	})
	s.Equal("300", s.account("alice").Balance)
	s.Equal("200", s.account("bob").Balance)
	s.Equal("500", s.ok(bankMSP, func(ctx contractapi.TransactionContextInterface) (string, error) { return c.GetSupply(ctx) }))

	evs := s.events()
	s.Require().Len(evs, 1)
	s.Equal("Transfer", evs[0].EventName)
	var payload map[string]any
	s.Require().NoError(json.Unmarshal(evs[0].Payload, &payload))
	s.Equal("alice", payload["from"])
	s.Equal("bob", payload["to"])
	s.Equal("200", payload["amount"])
	s.Equal("tr-42", payload["travelRuleRef"])
	s.Equal(fmt.Sprintf("tx-%d", s.seq-3), payload["txId"])

	stats := s.ok(bankMSP, func(ctx contractapi.TransactionContextInterface) (string, error) { return c.GetStats(ctx) })
	s.JSONEq(fmt.Sprintf(`{"supply":"500","reserves":"1000","ts":%q}`,
		s.now.Add(time.Duration(s.seq)*time.Second).Format(time.RFC3339)), stats)
}

func (s *ChaincodeSuite) TestSanctionBlocksTransfer() {
	c := s.contract
	s.onboard("alice")
	s.onboard("bob")
	s.ok(issuerMSP, func(ctx contractapi.TransactionContextInterface) (string, error) { return c.SetReserveReport(ctx, "10") })
	s.ok(issuerMSP, func(ctx contractapi.TransactionContextInterface) (string, error) { return c.Mint(ctx, "alice", "10") })
	s.ok(issuerMSP, func(ctx contractapi.TransactionContextInterface) (string, error) { return c.SanctionAccount(ctx, "alice") })
	s.events()

	_, err := s.invoke(bankMSP, func(ctx contractapi.TransactionContextInterface) (string, error) {
		return c.Transfer(ctx, "alice", "bob", "1", "")
	})
	s.ErrorIs(err, ledgererr.ErrComplianceViolation)
	s.Contains(err.Error(), "COMPLIANCE_VIOLATION")
	s.Empty(s.events())
	s.Equal("10", s.account("alice").Balance)
}

func (s *ChaincodeSuite) TestZeroAmountTransfer() {
	c := s.contract
	s.onboard("alice")
	s.onboard("bob")
	_, err := s.invoke(bankMSP, func(ctx contractapi.TransactionContextInterface) (string, error) {
		return c.Transfer(ctx, "alice", "bob", "0", "")
	})
	s.ErrorIs(err, ledgererr.ErrInvalidAmount)
}

func (s *ChaincodeSuite) TestIssuerOnly() {
	c := s.contract
	_, err := s.invoke(bankMSP, func(ctx contractapi.TransactionContextInterface) (string, error) {
		return c.SetReserveReport(ctx, "100")
	})
	s.ErrorIs(err, ledgererr.ErrUnauthorized)
	s.Equal("0", s.ok(bankMSP, func(ctx contractapi.TransactionContextInterface) (string, error) { return c.GetReserves(ctx) }))
}

func (s *ChaincodeSuite) TestInitLedgerAndGetAllAccounts() {
	c := s.contract
	s.Equal("Initialized 2 accounts",
		s.ok(issuerMSP, func(ctx contractapi.TransactionContextInterface) (string, error) { return c.InitLedger(ctx) }))

	evs := s.events()
	s.Require().Len(evs, 1)
	s.Equal("LedgerInitialized", evs[0].EventName)
	s.JSONEq(`{"accounts":["treasury","ops"]}`, string(evs[0].Payload))

	s.ok(issuerMSP, func(ctx contractapi.TransactionContextInterface) (string, error) {
		return "", s.stub.PutState(accounts.Key("corrupt"), []byte("<xml/>"))
	})

	raw := s.ok(bankMSP, func(ctx contractapi.TransactionContextInterface) (string, error) { return c.GetAllAccounts(ctx) })
	var entries []map[string]any
	s.Require().NoError(json.Unmarshal([]byte(raw), &entries))
	s.Require().Len(entries, 3)
	s.Equal("acct:corrupt", entries[0]["key"])
	s.Equal("<xml/>", entries[0]["raw"])
	s.Equal("ops", entries[1]["id"])
	s.Equal("treasury", entries[2]["id"])

	_, err := s.invoke(issuerMSP, func(ctx contractapi.TransactionContextInterface) (string, error) { return c.InitLedger(ctx) })
	s.ErrorIs(err, ledgererr.ErrAlreadyExists)
}

func (s *ChaincodeSuite) TestTxHistory() {
	c := s.contract
	s.onboard("alice")

	raw := s.ok(bankMSP, func(ctx contractapi.TransactionContextInterface) (string, error) { return c.TxHistory(ctx, "alice") })
	var entries []struct {
		TxID     string    `json:"txId"`
		Ts       time.Time `json:"ts"`
		IsDelete bool      `json:"isDelete"`
		Value    string    `json:"value"`
	}
	s.Require().NoError(json.Unmarshal([]byte(raw), &entries))
	s.Require().Len(entries, 3)
	s.Equal([]string{"tx-1", "tx-2", "tx-3"}, []string{entries[0].TxID, entries[1].TxID, entries[2].TxID})
	s.Equal(s.now.Add(3*time.Second), entries[2].Ts)
	s.Contains(entries[2].Value, `"kycStatus":"VERIFIED"`)
}

func (s *ChaincodeSuite) TestFreezeIdempotentReport() {
	c := s.contract
	s.onboard("alice")
	s.events()

	s.Equal("Account alice frozen",
		s.ok(issuerMSP, func(ctx contractapi.TransactionContextInterface) (string, error) { return c.FreezeAccount(ctx, "alice") }))
	s.Len(s.events(), 1)
	s.Equal("Account alice already frozen",
		s.ok(issuerMSP, func(ctx contractapi.TransactionContextInterface) (string, error) { return c.FreezeAccount(ctx, "alice") }))
	s.Empty(s.events())
}

func (s *ChaincodeSuite) TestComplianceOperators() {
	cfg := engine.DefaultConfig()
	cfg.ComplianceMSPs = []string{"RegulatorMSP"}
	s.contract = NewSmartContract(cfg, nil)
	c := s.contract

	s.ok(bankMSP, func(ctx contractapi.TransactionContextInterface) (string, error) { return c.RegisterAccount(ctx, "alice") })
	s.ok(bankMSP, func(ctx contractapi.TransactionContextInterface) (string, error) { return c.SubmitKYC(ctx, "alice", "h") })

	_, err := s.invoke(bankMSP, func(ctx contractapi.TransactionContextInterface) (string, error) { return c.VerifyKYC(ctx, "alice") })
	s.ErrorIs(err, ledgererr.ErrUnauthorized)
	s.ok("RegulatorMSP", func(ctx contractapi.TransactionContextInterface) (string, error) { return c.VerifyKYC(ctx, "alice") })
	s.Equal(accounts.KYCVerified, s.account("alice").KYCStatus)
}

func TestContractRegisters(t *testing.T) {
	cc, err := contractapi.NewChaincode(NewSmartContract(engine.DefaultConfig(), nil))
	if err != nil {
		t.Fatalf("contract rejected by contractapi: %v", err)
	}
	if cc == nil {
		t.Fatal("nil chaincode")
	}
}
