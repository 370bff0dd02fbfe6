package indexer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/centralbank/usdw/backend/services/audit-indexer/models"
)

// KafkaPublisher writes each indexed event to a topic, keyed by transaction
// id so events of one transaction land on one partition.
type KafkaPublisher struct {
	client *kgo.Client
}

func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &KafkaPublisher{client: client}, nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, ev *models.AuditEvent) error {
	value, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	record := &kgo.Record{
		Key:   []byte(ev.TxID),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "event", Value: []byte(ev.EventName)},
		},
	}
	return p.client.ProduceSync(ctx, record).FirstErr()
}

func (p *KafkaPublisher) Close() {
	p.client.Close()
}
