package fabricclient

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hyperledger/fabric-sdk-go/pkg/common/providers/fab"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	name string
	args []string
}

type fakeContract struct {
	submits    []call
	results    map[string]string
	err        error
	events     chan *fab.CCEvent
	unregister chan fab.Registration
}

func (f *fakeContract) SubmitTransaction(name string, args ...string) ([]byte, error) {
	f.submits = append(f.submits, call{name, args})
	if f.err != nil {
		return nil, f.err
	}
	return []byte(f.results[name]), nil
}

func (f *fakeContract) EvaluateTransaction(name string, args ...string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []byte(f.results[name]), nil
}

func (f *fakeContract) RegisterEvent(filter string) (fab.Registration, <-chan *fab.CCEvent, error) {
	return filter, f.events, nil
}

func (f *fakeContract) Unregister(reg fab.Registration) {
	f.unregister <- reg
}

func TestTypedSubmits(t *testing.T) {
	fake := &fakeContract{results: map[string]string{"Transfer": "Transferred 5 from a to b"}}
	c := &Client{contract: fake}

	msg, err := c.Transfer("a", "b", "5", "")
	require.NoError(t, err)
	assert.Equal(t, "Transferred 5 from a to b", msg)
	assert.Equal(t, []call{{"Transfer", []string{"a", "b", "5", ""}}}, fake.submits)

	fake.err = errors.New("endorsement failure: COMPLIANCE_VIOLATION")
	_, err = c.Mint("a", "1")
	assert.ErrorContains(t, err, "Mint: endorsement failure")
}

func TestTypedQueries(t *testing.T) {
	fake := &fakeContract{results: map[string]string{
		"GetAccount": `{"id":"alice","ownerMSP":"Org2MSP","kycStatus":"VERIFIED","frozen":false,"sanctioned":false,"balance":"300","meta":{}}`,
		"GetStats":   `{"supply":"500","reserves":"1000","ts":"2025-03-01T12:00:00Z"}`,
		"GetSupply":  "500",
		"TxHistory":  `[{"txId":"t1","ts":"2025-03-01T12:00:00Z","isDelete":false,"value":"{}"}]`,
	}}
	c := &Client{contract: fake}

	acct, err := c.GetAccount("alice")
	require.NoError(t, err)
	assert.Equal(t, "300", acct.Balance)

	stats, err := c.GetStats()
	require.NoError(t, err)
	assert.Equal(t, "1000", stats.Reserves)

	supply, err := c.GetSupply()
	require.NoError(t, err)
	assert.Equal(t, "500", supply)

	history, err := c.TxHistory("alice")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "t1", history[0].TxID)
}

func TestSubscribeForwardsUntilCancelled(t *testing.T) {
	fake := &fakeContract{
		events:     make(chan *fab.CCEvent, 1),
		unregister: make(chan fab.Registration, 1),
	}
	c := &Client{contract: fake}

	ctx, cancel := context.WithCancel(context.Background())
	events, err := c.Subscribe(ctx, ".*")
	require.NoError(t, err)

	fake.events <- &fab.CCEvent{TxID: "tx-1", EventName: "Mint", Payload: []byte(`{"to":"alice"}`), BlockNumber: 7}
	select {
	case ev := <-events:
		assert.Equal(t, Event{Name: "Mint", Payload: []byte(`{"to":"alice"}`), TxID: "tx-1", BlockNumber: 7}, ev)
	case <-time.After(time.Second):
		t.Fatal("event not forwarded")
	}

	cancel()
	select {
	case reg := <-fake.unregister:
		assert.Equal(t, ".*", reg)
	case <-time.After(time.Second):
		t.Fatal("registration not released")
	}
	_, open := <-events
	assert.False(t, open)
}
