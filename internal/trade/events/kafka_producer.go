// Package events carries committed status changes to Kafka and back. The
// producer never blocks the request path: events are buffered and written
// by a single background goroutine.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gartstein/linktrade/internal/trade/metrics"
	"github.com/gartstein/linktrade/internal/trade/models"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

var jsonMarshal = json.Marshal

const (
	// DefaultTopic receives every Link, Order and Complaint status event.
	DefaultTopic = "trade.status-events"

	bufferSize     = 1000
	writeTimeout   = 10 * time.Second
	topicRetries   = 5
	topicPartition = 3
)

type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	writer    KafkaWriter
	events    chan models.StatusEvent
	metrics   *metrics.Metrics
	logger    *zap.Logger
	closeChan chan struct{}
	done      chan struct{}
}

// EnsureTopic creates the topic if it does not exist, retrying with
// exponential backoff while the broker comes up.
func EnsureTopic(brokers []string, topic string, logger *zap.Logger) error {
	if len(brokers) == 0 {
		return fmt.Errorf("no kafka brokers configured")
	}
	create := func() error {
		conn, err := kafka.Dial("tcp", brokers[0])
		if err != nil {
			return err
		}
		defer conn.Close()

		return conn.CreateTopics(kafka.TopicConfig{
			Topic:             topic,
			NumPartitions:     topicPartition,
			ReplicationFactor: 1,
		})
	}
	notify := func(err error, wait time.Duration) {
		logger.Warn("Kafka not ready, retrying topic creation",
			zap.Error(err),
			zap.Duration("wait", wait),
		)
	}
	return backoff.RetryNotify(create, backoff.WithMaxRetries(backoff.NewExponentialBackOff(), topicRetries), notify)
}

// NewProducer starts a producer writing to topic. Messages are keyed by
// entity id so every change of one entity lands on the same partition.
func NewProducer(brokers []string, topic string, m *metrics.Metrics, logger *zap.Logger) *Producer {
	p := &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Balancer:     &kafka.Hash{},
			Topic:        topic,
			WriteTimeout: writeTimeout,
		},
		events:    make(chan models.StatusEvent, bufferSize),
		metrics:   m,
		logger:    logger.Named("kafka_producer"),
		closeChan: make(chan struct{}),
		done:      make(chan struct{}),
	}

	go p.eventLoop()
	return p
}

// Produce queues the event. When the buffer is full the event is dropped
// and counted.
func (p *Producer) Produce(event models.StatusEvent) {
	select {
	case p.events <- event:
	default:
		p.metrics.RecordDroppedEvent()
		p.logger.Warn("Kafka producer queue full, dropping event",
			zap.String("entity_type", string(event.EntityType)),
			zap.String("entity_id", event.EntityID.String()),
			zap.String("new_status", event.NewStatus),
		)
	}
}

func (p *Producer) eventLoop() {
	defer close(p.done)
	for {
		select {
		case event := <-p.events:
			p.sendEvent(context.Background(), event)
		case <-p.closeChan:
			p.drain()
			return
		}
	}
}

// drain flushes whatever is still buffered at shutdown.
func (p *Producer) drain() {
	for {
		select {
		case event := <-p.events:
			p.sendEvent(context.Background(), event)
		default:
			return
		}
	}
}

func (p *Producer) sendEvent(ctx context.Context, event models.StatusEvent) {
	value, err := jsonMarshal(event)
	if err != nil {
		p.logger.Error("Failed to serialize event",
			zap.Error(err),
			zap.String("entity_id", event.EntityID.String()),
		)
		return
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.EntityID.String()),
		Value: value,
		Headers: []kafka.Header{
			{Key: "entity_type", Value: []byte(event.EntityType)},
		},
	})
	if err != nil {
		p.logger.Error("Failed to produce event",
			zap.Error(err),
			zap.String("entity_type", string(event.EntityType)),
			zap.String("entity_id", event.EntityID.String()),
		)
		return
	}
}

// Close stops accepting work, flushes the buffer and closes the writer.
func (p *Producer) Close() {
	close(p.closeChan)
	if p.done != nil {
		<-p.done
	}
	if err := p.writer.Close(); err != nil {
		p.logger.Error("Failed to close Kafka writer", zap.Error(err))
	}
}
