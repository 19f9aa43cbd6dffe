package events

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
)

// MessageWriter is the part of *kafka.Writer the forwarder uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaForwarder mirrors bus events to a Kafka topic so other services can
// follow basket activity. Publishing on the bus never waits on the broker:
// events are queued and written by Run.
type KafkaForwarder struct {
	writer  MessageWriter
	queue   chan Event
	timeout time.Duration
}

func NewKafkaWriter(topic string, brokers ...string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
}

func NewKafkaForwarder(writer MessageWriter, buffer int) *KafkaForwarder {
	return &KafkaForwarder{
		writer:  writer,
		queue:   make(chan Event, buffer),
		timeout: 5 * time.Second,
	}
}

// Handle is a bus Handler. Events are dropped when the queue is full.
func (f *KafkaForwarder) Handle(e Event) {
	select {
	case f.queue <- e:
	default:
		log.Printf("kafka forwarder queue full, dropping event %s for basket %s", e.Topic, e.BasketID)
	}
}

func (f *KafkaForwarder) Run(ctx context.Context) {
	for {
		select {
		case e := <-f.queue:
			if err := f.publish(ctx, e); err != nil {
				log.Printf("failed to forward event %s for basket %s: %v", e.Topic, e.BasketID, err)
			}
		case <-ctx.Done():
			f.drain()
			return
		}
	}
}

// drain writes what is still queued at shutdown, giving up after the
// forwarder's write timeout.
func (f *KafkaForwarder) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), f.timeout)
	defer cancel()
	for {
		select {
		case e := <-f.queue:
			if err := f.publish(ctx, e); err != nil {
				log.Printf("failed to forward event %s for basket %s on shutdown: %v", e.Topic, e.BasketID, err)
			}
		default:
			return
		}
		if ctx.Err() != nil {
			log.Printf("kafka forwarder dropped %d queued events on shutdown", len(f.queue))
			return
		}
	}
}

func (f *KafkaForwarder) Close() {
	if err := f.writer.Close(); err != nil {
		log.Printf("error closing kafka writer: %v", err)
	}
}

func (f *KafkaForwarder) publish(ctx context.Context, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(e.BasketID), // basket id keeps one session's events ordered
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(e.Topic)},
		},
	}

	writeCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()
	return f.writer.WriteMessages(writeCtx, msg)
}
