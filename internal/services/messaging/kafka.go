package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"

	"vigil-worker-go/internal/models"
)

// KafkaPublisher publishes alert events to a Kafka topic keyed by camera
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
}

func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("create Kafka producer: %w", err)
	}
	return NewKafkaPublisherWithProducer(producer, topic), nil
}

func NewKafkaPublisherWithProducer(producer sarama.SyncProducer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) Name() string { return SinkKafka }

func (p *KafkaPublisher) Publish(_ string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Value: sarama.ByteEncoder(payload),
	}
	if event, ok := data.(models.AlertEvent); ok {
		msg.Key = sarama.StringEncoder(event.CameraID)
	}

	_, _, err = p.producer.SendMessage(msg)
	return err
}

func (p *KafkaPublisher) Shutdown(ctx context.Context) error {
	if err := p.producer.Close(); err != nil {
		return fmt.Errorf("failed to close Kafka producer: %w", err)
	}
	return nil
}
