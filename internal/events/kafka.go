package events

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/segmentio/kafka-go"
)

// KafkaPublisher writes events as JSON messages, keyed by feed id so a feed's
// events stay ordered within a partition. Writers are created lazily per topic.
type KafkaPublisher struct {
	brokers []string
	topic   string

	mu      sync.Mutex
	writers map[string]*kafka.Writer
}

// NewKafkaPublisher creates a KafkaPublisher writing to topic.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		brokers: brokers,
		topic:   topic,
		writers: make(map[string]*kafka.Writer),
	}
}

// Publish writes evt to the configured topic.
func (p *KafkaPublisher) Publish(ctx context.Context, evt Event) error {
	msg, err := message(evt)
	if err != nil {
		return err
	}
	return p.writerForTopic(p.topic).WriteMessages(ctx, msg)
}

func message(evt Event) (kafka.Message, error) {
	value, err := json.Marshal(evt)
	if err != nil {
		return kafka.Message{}, err
	}
	key := evt.FeedID
	if key == "" {
		key = evt.ForeignID
	}
	return kafka.Message{
		Key:   []byte(key),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(evt.Type)},
		},
		Time: evt.Time,
	}, nil
}

func (p *KafkaPublisher) writerForTopic(topic string) *kafka.Writer {
	p.mu.Lock()
	defer p.mu.Unlock()

	if writer, ok := p.writers[topic]; ok {
		return writer
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(p.brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
	}
	p.writers[topic] = writer
	return writer
}

// Close releases all writers.
func (p *KafkaPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	for topic, writer := range p.writers {
		if err := writer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(p.writers, topic)
	}
	return firstErr
}
