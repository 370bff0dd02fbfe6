package indexer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/centralbank/usdw/backend/pkg/fabricclient"
	"github.com/centralbank/usdw/backend/services/audit-indexer/indexer/mocks"
	"github.com/centralbank/usdw/backend/services/audit-indexer/models"
)

var indexedAt = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type IndexerSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	source    *mocks.MockSource
	store     *mocks.MockEventStore
	publisher *mocks.MockPublisher
	metrics   *Metrics
	indexer   *Indexer
}

func TestIndexerSuite(t *testing.T) {
	suite.Run(t, new(IndexerSuite))
}

func (s *IndexerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.source = mocks.NewMockSource(s.ctrl)
	s.store = mocks.NewMockEventStore(s.ctrl)
	s.publisher = mocks.NewMockPublisher(s.ctrl)
	s.metrics = NewMetrics(prometheus.NewRegistry())

	var err error
	s.indexer, err = New(s.source, s.store,
		WithPublisher(s.publisher),
		WithMetrics(s.metrics),
		WithClock(func() time.Time { return indexedAt }),
	)
	s.Require().NoError(err)
}

func (s *IndexerSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *IndexerSuite) TestNew() {
	s.Run("nil source returns error", func() {
		_, err := New(nil, s.store)
		s.ErrorContains(err, "event source is required")
	})

	s.Run("nil store returns error", func() {
		_, err := New(s.source, nil)
		s.ErrorContains(err, "event store is required")
	})
}

func (s *IndexerSuite) TestHandleTransfer() {
	payload := `{"from":"alice","to":"bob","amount":"120","travelRuleRef":"abc","ts":"2025-03-01T12:00:00Z","txId":"tx-9"}`
	want := &models.AuditEvent{
		TxID:        "tx-9",
		EventName:   "Transfer",
		BlockNumber: 12,
		AccountIDs:  []string{"alice", "bob"},
		Payload:     json.RawMessage(payload),
		IndexedAt:   indexedAt,
	}

	gomock.InOrder(
		s.store.EXPECT().Save(gomock.Any(), want).Return(nil),
		s.publisher.EXPECT().Publish(gomock.Any(), want).Return(nil),
	)

	err := s.indexer.Handle(context.Background(), fabricclient.Event{
		Name: "Transfer", TxID: "tx-9", BlockNumber: 12, Payload: []byte(payload),
	})
	s.Require().NoError(err)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Indexed.WithLabelValues("Transfer")))
	s.Equal(12.0, testutil.ToFloat64(s.metrics.LastBlock))
}

func (s *IndexerSuite) TestAccountExtraction() {
	cases := []struct {
		name    string
		payload string
		want    []string
	}{
		{"account event", `{"accountId":"alice"}`, []string{"alice"}},
		{"mint", `{"to":"bob","amount":"5","supply":"5"}`, []string{"bob"}},
		{"ledger initialized", `{"accounts":["treasury","ops"]}`, []string{"treasury", "ops"}},
		{"reserve update", `{"reserves":"1000"}`, []string{}},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			ev, err := s.indexer.decode(fabricclient.Event{Name: "X", TxID: "tx-1", Payload: []byte(tc.payload)})
			s.Require().NoError(err)
			s.Equal(tc.want, ev.AccountIDs)
		})
	}
}

func (s *IndexerSuite) TestDuplicateIsRepublished() {
	gomock.InOrder(
		s.store.EXPECT().Save(gomock.Any(), gomock.Any()).Return(ErrDuplicate),
		s.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil),
	)

	err := s.indexer.Handle(context.Background(), fabricclient.Event{
		Name: "Mint", TxID: "tx-1", Payload: []byte(`{"to":"alice"}`),
	})
	s.NoError(err)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Duplicates))
	s.Equal(0.0, testutil.ToFloat64(s.metrics.Indexed.WithLabelValues("Mint")))
}

func (s *IndexerSuite) TestFailedPublishIsRetriedOnReplay() {
	ev := fabricclient.Event{Name: "Transfer", TxID: "tx-7", BlockNumber: 3, Payload: []byte(`{"from":"alice","to":"bob"}`)}

	gomock.InOrder(
		s.store.EXPECT().Save(gomock.Any(), gomock.Any()).Return(nil),
		s.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(errors.New("broker down")),
		s.store.EXPECT().Save(gomock.Any(), gomock.Any()).Return(ErrDuplicate),
		s.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, got *models.AuditEvent) error {
				s.Equal("tx-7", got.TxID)
				s.Equal([]string{"alice", "bob"}, got.AccountIDs)
				return nil
			}),
	)

	s.ErrorContains(s.indexer.Handle(context.Background(), ev), "publish: broker down")
	s.NoError(s.indexer.Handle(context.Background(), ev))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Errors.WithLabelValues("publish")))
}

func (s *IndexerSuite) TestFailuresAreCountedByStage() {
	s.Run("malformed payload", func() {
		err := s.indexer.Handle(context.Background(), fabricclient.Event{Name: "Mint", TxID: "tx-1", Payload: []byte("{")})
		s.Error(err)
		s.Equal(1.0, testutil.ToFloat64(s.metrics.Errors.WithLabelValues("decode")))
	})

	s.Run("store failure", func() {
		s.store.EXPECT().Save(gomock.Any(), gomock.Any()).Return(errors.New("connection reset"))
		err := s.indexer.Handle(context.Background(), fabricclient.Event{Name: "Mint", TxID: "tx-2", Payload: []byte(`{}`)})
		s.ErrorContains(err, "save: connection reset")
		s.Equal(1.0, testutil.ToFloat64(s.metrics.Errors.WithLabelValues("store")))
	})

	s.Run("publish failure", func() {
		s.store.EXPECT().Save(gomock.Any(), gomock.Any()).Return(nil)
		s.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(errors.New("broker down"))
		err := s.indexer.Handle(context.Background(), fabricclient.Event{Name: "Mint", TxID: "tx-3", Payload: []byte(`{}`)})
		s.ErrorContains(err, "publish: broker down")
		s.Equal(1.0, testutil.ToFloat64(s.metrics.Errors.WithLabelValues("publish")))
	})
}

func (s *IndexerSuite) TestRun() {
	s.Run("indexes until cancelled", func() {
		events := make(chan fabricclient.Event, 1)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		s.source.EXPECT().Subscribe(gomock.Any(), ".*").Return((<-chan fabricclient.Event)(events), nil)
		saved := make(chan struct{})
		s.store.EXPECT().Save(gomock.Any(), gomock.Any()).DoAndReturn(func(context.Context, *models.AuditEvent) error {
			close(saved)
			return nil
		})
		s.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil)

		done := make(chan error, 1)
		go func() { done <- s.indexer.Run(ctx) }()

		events <- fabricclient.Event{Name: "KYCVerified", TxID: "tx-1", Payload: []byte(`{"accountId":"alice"}`)}
		select {
		case <-saved:
		case <-time.After(time.Second):
			s.FailNow("event not indexed")
		}
		cancel()
		s.NoError(<-done)
	})

	s.Run("closed source is an error", func() {
		events := make(chan fabricclient.Event)
		close(events)
		s.source.EXPECT().Subscribe(gomock.Any(), ".*").Return((<-chan fabricclient.Event)(events), nil)
		s.ErrorContains(s.indexer.Run(context.Background()), "event source closed")
	})

	s.Run("subscribe failure", func() {
		s.source.EXPECT().Subscribe(gomock.Any(), ".*").Return(nil, errors.New("no peer"))
		s.ErrorContains(s.indexer.Run(context.Background()), "subscribe: no peer")
	})
}

func TestNilMetricsRecordNothing(t *testing.T) {
	var m *Metrics
	m.IncrementIndexed("Mint")
	m.IncrementDuplicate()
	m.IncrementError("store")
	m.SetLastBlock(3)
}
