package chaincode

import (
	"fmt"
	"iter"
	"time"

	"github.com/hyperledger/fabric-chaincode-go/shim"
	"github.com/hyperledger/fabric-contract-api-go/contractapi"

	"github.com/centralbank/usdw/backend/internal/store"
)

// stubStore reads and writes world state through the chaincode stub.
type stubStore struct {
	stub shim.ChaincodeStubInterface
}

var _ store.Store = stubStore{}

func (s stubStore) Get(key string) ([]byte, error) {
	return s.stub.GetState(key)
}

func (s stubStore) Put(key string, value []byte) error {
	return s.stub.PutState(key, value)
}

func (s stubStore) Range(startKey, endKey string) (iter.Seq2[store.KV, error], error) {
	it, err := s.stub.GetStateByRange(startKey, endKey)
	if err != nil {
		return nil, fmt.Errorf("failed to get state by range: %w", err)
	}
	var used bool
	return func(yield func(store.KV, error) bool) {
		if used {
			return
		}
		used = true
		defer it.Close()
		for it.HasNext() {
			kv, err := it.Next()
			if err != nil {
				yield(store.KV{}, err)
				return
			}
			if !yield(store.KV{Key: kv.Key, Value: kv.Value}, nil) {
				return
			}
		}
	}, nil
}

func (s stubStore) History(key string) (iter.Seq2[store.Version, error], error) {
	it, err := s.stub.GetHistoryForKey(key)
	if err != nil {
		return nil, fmt.Errorf("failed to get history for %s: %w", key, err)
	}
	var used bool
	return func(yield func(store.Version, error) bool) {
		if used {
			return
		}
		used = true
		defer it.Close()
		for it.HasNext() {
			km, err := it.Next()
			if err != nil {
				yield(store.Version{}, err)
				return
			}
			v := store.Version{
				TxID:      km.TxId,
				Timestamp: km.GetTimestamp().AsTime(),
				IsDelete:  km.IsDelete,
				Value:     km.Value,
			}
			if !yield(v, nil) {
				return
			}
		}
	}, nil
}

// txIdentity resolves the caller and transaction from the contract context.
type txIdentity struct {
	ctx contractapi.TransactionContextInterface
}

func (t txIdentity) MSPID() (string, error) {
	return t.ctx.GetClientIdentity().GetMSPID()
}

func (t txIdentity) TxID() string {
	return t.ctx.GetStub().GetTxID()
}

func (t txIdentity) TxTimestamp() (time.Time, error) {
	ts, err := t.ctx.GetStub().GetTxTimestamp()
	if err != nil {
		return time.Time{}, err
	}
	return ts.AsTime(), nil
}
