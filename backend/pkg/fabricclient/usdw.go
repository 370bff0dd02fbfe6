package fabricclient

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/centralbank/usdw/backend/internal/accounts"
	"github.com/centralbank/usdw/backend/internal/query"
)

// Typed wrappers over the USDw contract. Submits return the contract's
// status message.

func (c *Client) submit(name string, args ...string) (string, error) {
	out, err := c.contract.SubmitTransaction(name, args...)
	if err != nil {
		return "", fmt.Errorf("%s: %w", name, err)
	}
	return string(out), nil
}

func (c *Client) evaluate(name string, v any, args ...string) error {
	out, err := c.contract.EvaluateTransaction(name, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if err := json.Unmarshal(out, v); err != nil {
		return fmt.Errorf("%s: decode result: %w", name, err)
	}
	return nil
}

func (c *Client) InitLedger() (string, error) { return c.submit("InitLedger") }

func (c *Client) RegisterAccount(id string) (string, error) { return c.submit("RegisterAccount", id) }

func (c *Client) SubmitKYC(id, kycHash string) (string, error) {
	return c.submit("SubmitKYC", id, kycHash)
}

func (c *Client) VerifyKYC(id string) (string, error) { return c.submit("VerifyKYC", id) }

func (c *Client) FreezeAccount(id string) (string, error) { return c.submit("FreezeAccount", id) }

func (c *Client) UnfreezeAccount(id string) (string, error) { return c.submit("UnfreezeAccount", id) }

func (c *Client) SanctionAccount(id string) (string, error) { return c.submit("SanctionAccount", id) }

func (c *Client) UnsanctionAccount(id string) (string, error) {
	return c.submit("UnsanctionAccount", id)
}

func (c *Client) SetReserveReport(amount string) (string, error) {
	return c.submit("SetReserveReport", amount)
}

func (c *Client) Mint(toID, amount string) (string, error) { return c.submit("Mint", toID, amount) }

func (c *Client) Transfer(fromID, toID, amount, travelRuleRef string) (string, error) {
	return c.submit("Transfer", fromID, toID, amount, travelRuleRef)
}

func (c *Client) GetAccount(id string) (*accounts.Account, error) {
	var acct accounts.Account
	if err := c.evaluate("GetAccount", &acct, id); err != nil {
		return nil, err
	}
	return &acct, nil
}

// GetAllAccounts returns the raw JSON entries; undecodable records come back
// as {"key","raw"} objects.
func (c *Client) GetAllAccounts() ([]json.RawMessage, error) {
	var out []json.RawMessage
	if err := c.evaluate("GetAllAccounts", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetSupply() (string, error) {
	out, err := c.contract.EvaluateTransaction("GetSupply")
	if err != nil {
		return "", fmt.Errorf("GetSupply: %w", err)
	}
	return string(out), nil
}

func (c *Client) GetReserves() (string, error) {
	out, err := c.contract.EvaluateTransaction("GetReserves")
	if err != nil {
		return "", fmt.Errorf("GetReserves: %w", err)
	}
	return string(out), nil
}

func (c *Client) GetStats() (*query.Stats, error) {
	var stats query.Stats
	if err := c.evaluate("GetStats", &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (c *Client) TxHistory(id string) ([]query.HistoryEntry, error) {
	var out []query.HistoryEntry
	if err := c.evaluate("TxHistory", &out, id); err != nil {
		return nil, err
	}
	return out, nil
}

// Event is a chaincode event delivered by the peer after commit.
type Event struct {
	Name        string
	Payload     []byte
	TxID        string
	BlockNumber uint64
}

// Subscribe delivers contract events whose name matches filter (a regular
// expression; ".*" for all) until ctx is cancelled. The returned channel is
// closed after the registration is released.
func (c *Client) Subscribe(ctx context.Context, filter string) (<-chan Event, error) {
	reg, notifier, err := c.contract.RegisterEvent(filter)
	if err != nil {
		return nil, fmt.Errorf("failed to register for events: %w", err)
	}

	out := make(chan Event)
	go func() {
		defer close(out)
		defer c.contract.Unregister(reg)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-notifier:
				if !ok {
					return
				}
				select {
				case out <- Event{Name: ev.EventName, Payload: ev.Payload, TxID: ev.TxID, BlockNumber: ev.BlockNumber}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
