package engine

import (
	"strings"

	"github.com/centralbank/usdw/backend/internal/ledgererr"
)

// Bootstrap is an account created VERIFIED by InitLedger.
type Bootstrap struct {
	ID   string
	Role string
}

type Config struct {
	// IssuerMSP is the only organization that may attest reserves, mint
	// and initialize the ledger.
	IssuerMSP string
	// ComplianceMSPs may run KYC verification, freezes and sanctions in
	// addition to the issuer. Empty leaves those operations open.
	ComplianceMSPs []string
	Bootstrap      []Bootstrap
}

// DefaultConfig matches the stock network: Org1MSP issues and two demo
// accounts are provisioned.
func DefaultConfig() Config {
	return Config{
		IssuerMSP: "Org1MSP",
		Bootstrap: []Bootstrap{
			{ID: "treasury", Role: "ISSUER_TREASURY"},
			{ID: "ops", Role: "RETAIL"},
		},
	}
}

// ParseBootstrap reads "id:role,id:role". A missing role is left empty.
func ParseBootstrap(s string) ([]Bootstrap, error) {
	var out []Bootstrap
	seen := map[string]bool{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, role, _ := strings.Cut(part, ":")
		id = strings.TrimSpace(id)
		if id == "" {
			return nil, ledgererr.New(ledgererr.KindInvalidArgument, "bootstrap entry %q has no account id", part)
		}
		if seen[id] {
			return nil, ledgererr.New(ledgererr.KindInvalidArgument, "bootstrap account %s listed twice", id)
		}
		seen[id] = true
		out = append(out, Bootstrap{ID: id, Role: strings.TrimSpace(role)})
	}
	return out, nil
}
