package bus

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// Kafka is the production bus. Every relay instance reads with its own
// consumer group so each one sees every frame and can deliver to its local
// connections.
type Kafka struct {
	writer *kafka.Writer
	reader *kafka.Reader
}

func NewKafka(brokers []string, topic string) *Kafka {
	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		Topic:       topic,
		GroupID:     "relay-" + uuid.NewString(),
		StartOffset: kafka.LastOffset,
		MinBytes:    10e3,
		MaxBytes:    10e6,
	})

	return &Kafka{writer: writer, reader: reader}
}

func (k *Kafka) Publish(ctx context.Context, f Frame) error {
	value, err := json.Marshal(f)
	if err != nil {
		return err
	}
	return k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(f.Target),
		Value: value,
		Time:  time.Now(),
	})
}

func (k *Kafka) Run(ctx context.Context, h Handler) {
	for {
		m, err := k.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("bus: read error: %v, retrying in 1s", err)
			time.Sleep(time.Second)
			continue
		}

		var f Frame
		if err := json.Unmarshal(m.Value, &f); err != nil {
			log.Printf("bus: dropping malformed frame: %v", err)
			continue
		}
		h(f)
	}
}

func (k *Kafka) Close() error {
	if err := k.writer.Close(); err != nil {
		k.reader.Close()
		return err
	}
	return k.reader.Close()
}
