package dispatch

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
)

const ackTimeout = 10 * time.Second

// MessageReader abstracts kafka.Reader.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// MessageWriter abstracts kafka.Writer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSource reads job ids from a topic with at-least-once delivery:
// a message is committed only after the crawl attempt, via the AckFunc.
type KafkaSource struct {
	reader MessageReader
}

func NewKafkaSource(reader MessageReader) *KafkaSource {
	return &KafkaSource{reader: reader}
}

// NewKafkaReader builds the consumer the source wraps in production.
func NewKafkaReader(brokers []string, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       1 << 20,
		CommitInterval: 0, // explicit commits only
	})
}

func (s *KafkaSource) Next(ctx context.Context) (string, AckFunc, error) {
	msg, err := s.reader.FetchMessage(ctx)
	if err != nil {
		return "", nil, err
	}
	ack := func(ctx context.Context) error {
		return s.reader.CommitMessages(ctx, msg)
	}
	return string(msg.Value), ack, nil
}

func (s *KafkaSource) Close() error {
	return s.reader.Close()
}

// KafkaQueue publishes job ids for remote runners.
type KafkaQueue struct {
	writer MessageWriter
}

func NewKafkaQueue(writer MessageWriter) *KafkaQueue {
	return &KafkaQueue{writer: writer}
}

// NewKafkaWriter builds the producer the queue wraps in production.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
	}
}

func (q *KafkaQueue) Enqueue(ctx context.Context, jobID string) error {
	return q.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(jobID),
		Value: []byte(jobID),
	})
}

func (q *KafkaQueue) Close() error {
	return q.writer.Close()
}
