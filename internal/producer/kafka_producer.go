package producer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/tagsight/tagsight/internal/config"
)

type KafkaProducer struct {
	writers map[string]*kafka.Writer
	topics  map[string]string
}

func NewKafkaProducer(cfg config.KafkaConfig) (*KafkaProducer, error) {
	writers := make(map[string]*kafka.Writer)

	for name, topic := range cfg.Topics {
		writers[name] = &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			BatchSize:    100,
			BatchTimeout: time.Millisecond * 100,
			Async:        true,
		}
	}

	return &KafkaProducer{
		writers: writers,
		topics:  cfg.Topics,
	}, nil
}

func (p *KafkaProducer) ProduceHit(ctx context.Context, projectID string, hit interface{}) error {
	data, err := json.Marshal(hit)
	if err != nil {
		return err
	}

	return p.writers["hits"].WriteMessages(ctx, kafka.Message{
		Key:   []byte(projectID),
		Value: data,
	})
}

// ProducePreview publishes a schema preview on the hits topic. The
// processor routes on the message kind field.
func (p *KafkaProducer) ProducePreview(ctx context.Context, projectID string, preview interface{}) error {
	data, err := json.Marshal(preview)
	if err != nil {
		return err
	}

	return p.writers["hits"].WriteMessages(ctx, kafka.Message{
		Key:   []byte(projectID),
		Value: data,
	})
}

func (p *KafkaProducer) Close() error {
	for _, w := range p.writers {
		w.Close()
	}
	return nil
}
