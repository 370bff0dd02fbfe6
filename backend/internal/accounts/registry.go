package accounts

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/centralbank/usdw/backend/internal/audit"
	"github.com/centralbank/usdw/backend/internal/ledgererr"
	"github.com/centralbank/usdw/backend/internal/store"
)

// Registry creates, loads and persists account records for one invocation.
type Registry struct {
	store   store.Store
	emitter audit.Emitter
}

func NewRegistry(st store.Store, emitter audit.Emitter) *Registry {
	return &Registry{store: st, emitter: emitter}
}

// ValidateID rejects ids that cannot address an account.
func ValidateID(id string) error {
	if strings.TrimSpace(id) == "" {
		return ledgererr.New(ledgererr.KindInvalidArgument, "account id is required")
	}
	return nil
}

// Exists reports whether a record for id is present.
func (r *Registry) Exists(id string) (bool, error) {
	b, err := r.store.Get(Key(id))
	if err != nil {
		return false, fmt.Errorf("read account %s: %w", id, err)
	}
	return len(b) > 0, nil
}

// Register creates a PENDING account owned by ownerMSP.
func (r *Registry) Register(id, ownerMSP string) (*Account, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	exists, err := r.Exists(id)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ledgererr.New(ledgererr.KindAlreadyExists, "account %s already exists", id)
	}

	acct := New(id, ownerMSP)
	if err := r.Save(acct); err != nil {
		return nil, err
	}
	r.emitter.Emit(audit.AccountRegistered(id))
	return acct, nil
}

// Load returns the current record for id.
func (r *Registry) Load(id string) (*Account, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	b, err := r.store.Get(Key(id))
	if err != nil {
		return nil, fmt.Errorf("read account %s: %w", id, err)
	}
	if len(b) == 0 {
		return nil, ledgererr.New(ledgererr.KindNotFound, "account %s not found", id)
	}
	return Decode(id, b)
}

// Save overwrites the full record.
func (r *Registry) Save(acct *Account) error {
	if acct.Meta == nil {
		acct.Meta = map[string]any{}
	}
	b, err := json.Marshal(acct)
	if err != nil {
		return fmt.Errorf("encode account %s: %w", acct.ID, err)
	}
	if err := r.store.Put(Key(acct.ID), b); err != nil {
		return fmt.Errorf("write account %s: %w", acct.ID, err)
	}
	return nil
}

// Decode parses a stored account record.
func Decode(id string, b []byte) (*Account, error) {
	var acct Account
	if err := json.Unmarshal(b, &acct); err != nil {
		return nil, ledgererr.Wrap(err, ledgererr.KindMalformedRecord, "account %s", id)
	}
	if _, err := acct.BalanceAmount(); err != nil {
		return nil, ledgererr.Wrap(err, ledgererr.KindMalformedRecord, "account %s balance", id)
	}
	return &acct, nil
}
