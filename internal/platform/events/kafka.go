package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
)

// NewKafkaWriter returns a synchronous writer. Messages with the same key
// land on the same partition, so events for one visit stay ordered.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		Async:                  false,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	w       messageWriter
	timeout time.Duration
}

func NewKafkaPublisher(w messageWriter, timeout time.Duration) *KafkaPublisher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &KafkaPublisher{w: w, timeout: timeout}
}

func (p *KafkaPublisher) Publish(ctx context.Context, msg Message) error {
	value, err := json.Marshal(msg)
	if err != nil {
		return errors.Wrap(err, "failed to marshal event")
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err = p.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.Key),
		Value: value,
		Time:  msg.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(msg.Type)},
		},
	})
	if err != nil {
		return errors.Wrapf(err, "failed to write %s event", msg.Type)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return errors.Wrap(p.w.Close(), "failed to close kafka writer")
}
