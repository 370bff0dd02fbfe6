// Package transfer moves value between two accounts under compliance and
// sufficiency checks.
package transfer

import (
	"fmt"

	"github.com/centralbank/usdw/backend/internal/accounts"
	"github.com/centralbank/usdw/backend/internal/amount"
	"github.com/centralbank/usdw/backend/internal/audit"
	"github.com/centralbank/usdw/backend/internal/compliance"
	"github.com/centralbank/usdw/backend/internal/identity"
	"github.com/centralbank/usdw/backend/internal/ledgererr"
)

// Engine performs transfers for one invocation.
type Engine struct {
	registry *accounts.Registry
	emitter  audit.Emitter
	tx       identity.Resolver
}

func NewEngine(registry *accounts.Registry, emitter audit.Emitter, tx identity.Resolver) *Engine {
	return &Engine{registry: registry, emitter: emitter, tx: tx}
}

// Transfer debits fromID and credits toID by the same amount. Every check
// runs before the first write.
func (e *Engine) Transfer(fromID, toID, amountStr, travelRuleRef string) (string, error) {
	amt, err := amount.ParsePositive(amountStr)
	if err != nil {
		return "", err
	}
	if fromID == toID {
		return "", ledgererr.New(ledgererr.KindInvalidArgument, "cannot transfer from %s to itself", fromID)
	}

	// 1. Get Sender
	from, err := e.registry.Load(fromID)
	if err != nil {
		return "", err
	}

	// 2. Get Receiver
	to, err := e.registry.Load(toID)
	if err != nil {
		return "", err
	}

	// 3. Compliance and balance
	if err := compliance.CheckTransfer(from, to); err != nil {
		return "", err
	}
	fromBalance, err := from.BalanceAmount()
	if err != nil {
		return "", err
	}
	toBalance, err := to.BalanceAmount()
	if err != nil {
		return "", err
	}
	if fromBalance.LessThan(amt) {
		return "", ledgererr.New(ledgererr.KindInsufficientBalance,
			"account %s has %s, needs %s", fromID, amount.Format(fromBalance), amount.Format(amt))
	}

	ts, err := e.tx.TxTimestamp()
	if err != nil {
		return "", fmt.Errorf("failed to get tx timestamp: %w", err)
	}

	// 4. Move
	from.SetBalance(fromBalance.Sub(amt))
	to.SetBalance(toBalance.Add(amt))
	if err := e.registry.Save(from); err != nil {
		return "", err
	}
	if err := e.registry.Save(to); err != nil {
		return "", err
	}

	e.emitter.Emit(audit.Transfer{
		From:          fromID,
		To:            toID,
		Amount:        amount.Format(amt),
		TravelRuleRef: travelRuleRef,
		Timestamp:     ts,
		TxID:          e.tx.TxID(),
	})
	return fmt.Sprintf("Transferred %s from %s to %s", amount.Format(amt), fromID, toID), nil
}
