package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/centralbank/usdw/backend/internal/engine"
	"github.com/centralbank/usdw/backend/internal/ledgererr"
	"github.com/centralbank/usdw/backend/internal/transfer"
)

type actor int

const (
	asIssuer actor = iota
	asClient
)

type step struct {
	op       string
	as       actor
	call     func(*engine.Ledger) (string, error)
	rejected bool
	// attest is signed after the step commits, when signing is on.
	attest map[string]any
}

type scenario []step

func register(id string) step {
	return step{op: "RegisterAccount", as: asClient, call: func(l *engine.Ledger) (string, error) { return l.RegisterAccount(id) }}
}

func onboard(id, kycHash string) []step {
	return []step{
		register(id),
		{op: "SubmitKYC", as: asClient, call: func(l *engine.Ledger) (string, error) { return l.SubmitKYC(id, kycHash) }},
		{op: "VerifyKYC", as: asIssuer, call: func(l *engine.Ledger) (string, error) { return l.VerifyKYC(id) }},
	}
}

func reserves(amount string) step {
	return step{op: "SetReserveReport", as: asIssuer, call: func(l *engine.Ledger) (string, error) { return l.SetReserveReport(amount) }}
}

func mint(to, amount string) step {
	return step{op: "Mint", as: asIssuer, call: func(l *engine.Ledger) (string, error) { return l.Mint(to, amount) }}
}

func move(from, to, amount, ref string) step {
	return step{op: "Transfer", as: asClient, call: func(l *engine.Ledger) (string, error) { return l.Transfer(from, to, amount, ref) }}
}

func compliance(op, id string, fn func(*engine.Ledger, string) (string, error)) step {
	return step{op: op, as: asIssuer, call: func(l *engine.Ledger) (string, error) { return fn(l, id) }}
}

func blocked(s step) step {
	s.rejected = true
	return s
}

func signed(s step, from, to, amount, ref string) step {
	s.attest = map[string]any{"from": from, "to": to, "amount": amount, "travelRuleHash": ref}
	return s
}

func happyPath() scenario {
	ref, err := transfer.TravelRuleRef(map[string]any{"sender": "alice", "recipient": "bob", "amount": 120})
	if err != nil {
		panic(err)
	}
	var sc scenario
	sc = append(sc, onboard("alice", "hashA")...)
	sc = append(sc, onboard("bob", "hashB")...)
	return append(sc,
		reserves("1000"),
		mint("alice", "500"),
		signed(move("alice", "bob", "120", ref), "alice", "bob", "120", ref),
	)
}

func freezeFlow() scenario {
	var sc scenario
	sc = append(sc, onboard("carol", "hashC")...)
	sc = append(sc, onboard("dave", "hashD")...)
	return append(sc,
		reserves("1000"),
		mint("carol", "400"),
		compliance("FreezeAccount", "dave", (*engine.Ledger).FreezeAccount),
		blocked(move("carol", "dave", "50", "")),
		compliance("UnfreezeAccount", "dave", (*engine.Ledger).UnfreezeAccount),
		move("carol", "dave", "50", ""),
	)
}

var scenarios = map[string]func() scenario{
	"happy":  happyPath,
	"freeze": freezeFlow,
}

type stepLine struct {
	Step    string         `json:"step"`
	Message string         `json:"message,omitempty"`
	Kind    string         `json:"kind,omitempty"`
	Error   string         `json:"error,omitempty"`
	Attest  map[string]any `json:"attest,omitempty"`
	PQCSig  string         `json:"pqcSig,omitempty"`
}

type signerLine struct {
	Algorithm string `json:"signer"`
	PublicKey string `json:"publicKey"`
}

type eventLine struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

type simulator struct {
	local  *engine.Local
	issuer string
	client string
	signer *transferSigner
	out    io.Writer
}

func (s *simulator) play(build func() scenario) error {
	enc := json.NewEncoder(s.out)
	for _, st := range build() {
		msp := s.client
		if st.as == asIssuer {
			msp = s.issuer
		}
		msg, err := engine.Invoke(s.local, msp, st.call)
		switch {
		case err == nil && st.rejected:
			return fmt.Errorf("%s: expected rejection, got %q", st.op, msg)
		case err != nil && !st.rejected:
			return fmt.Errorf("%s: %w", st.op, err)
		case err != nil:
			if encErr := enc.Encode(stepLine{Step: st.op, Kind: string(ledgererr.KindOf(err)), Error: err.Error()}); encErr != nil {
				return encErr
			}
		default:
			line := stepLine{Step: st.op, Message: msg}
			if st.attest != nil && s.signer != nil {
				sig, err := s.signer.Sign(st.attest)
				if err != nil {
					return fmt.Errorf("%s: %w", st.op, err)
				}
				line.Attest, line.PQCSig = st.attest, sig
			}
			if encErr := enc.Encode(line); encErr != nil {
				return encErr
			}
		}
	}

	for _, rec := range s.local.Events() {
		if err := enc.Encode(eventLine{Event: rec.Name, Payload: rec.Payload}); err != nil {
			return err
		}
	}

	stats, err := engine.Invoke(s.local, s.client, (*engine.Ledger).GetStats)
	if err != nil {
		return err
	}
	if err := enc.Encode(map[string]any{"stats": stats}); err != nil {
		return err
	}
	if s.signer != nil {
		pk, err := s.signer.PublicKey()
		if err != nil {
			return err
		}
		return enc.Encode(signerLine{Algorithm: signatureAlgorithm, PublicKey: pk})
	}
	return nil
}
