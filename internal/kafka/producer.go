package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/IBM/sarama"

	"github.com/evently-hq/evently/pkg/logger"
)

type Producer interface {
	PublishPurchaseConfirmed(ctx context.Context, event PurchaseConfirmedEvent) error
	PublishCredentialIssued(ctx context.Context, event CredentialIssuedEvent) error
	PublishPaymentFlagged(ctx context.Context, event PaymentFlaggedEvent) error
	Close() error
}

type implProducer struct {
	l    logger.Logger
	prod sarama.SyncProducer
}

func NewProducer(prod sarama.SyncProducer, l logger.Logger) Producer {
	return &implProducer{
		l:    l,
		prod: prod,
	}
}

func (p *implProducer) PublishPurchaseConfirmed(ctx context.Context, event PurchaseConfirmedEvent) error {
	event.Timestamp = time.Now()
	return p.publish(ctx, TopicPurchaseConfirmed, event.TierID, event)
}

func (p *implProducer) PublishCredentialIssued(ctx context.Context, event CredentialIssuedEvent) error {
	event.Timestamp = time.Now()
	return p.publish(ctx, TopicCredentialIssued, event.TierID, event)
}

func (p *implProducer) PublishPaymentFlagged(ctx context.Context, event PaymentFlaggedEvent) error {
	event.Timestamp = time.Now()
	return p.publish(ctx, TopicPaymentFlagged, event.TierID, event)
}

func (p *implProducer) publish(ctx context.Context, topic, key string, event any) error {
	val, err := json.Marshal(event)
	if err != nil {
		p.l.Errorf(ctx, "kafka.Producer.publish: %v", err)
		return err
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key), // Partition by tier_id for ordering
		Value: sarama.ByteEncoder(val),
		Headers: []sarama.RecordHeader{
			{
				Key:   []byte("timestamp"),
				Value: []byte(time.Now().Format(time.RFC3339)),
			},
		},
	}

	_, _, err = p.prod.SendMessage(msg)
	return err
}

func (p *implProducer) Close() error {
	return p.prod.Close()
}
