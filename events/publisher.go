package events

import (
	"log"
	"time"

	"github.com/IBM/sarama"
)

type Publisher interface {
	Publish(topic string, message []byte) error
	Close() error
}

type SaramaPublisher struct {
	producer sarama.SyncProducer
}

func NewSaramaPublisher(brokers []string) (*SaramaPublisher, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.Timeout = 5 * time.Second
	// bounded retry at the transport layer only; the caller never waits
	config.Producer.Retry.Max = 3
	prod, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, err
	}
	return &SaramaPublisher{producer: prod}, nil
}

func (p *SaramaPublisher) Publish(topic string, message []byte) error {
	msg := &sarama.ProducerMessage{
		Topic: topic,
		Value: sarama.ByteEncoder(message),
	}
	_, _, err := p.producer.SendMessage(msg)
	return err
}

func (p *SaramaPublisher) Close() error {
	return p.producer.Close()
}

// NopPublisher stands in when no event channel is configured; the
// service keeps working, facts are just not delivered.
type NopPublisher struct{}

func (NopPublisher) Publish(topic string, message []byte) error {
	log.Printf("event channel unconfigured, dropping event for topic %s", topic)
	return nil
}

func (NopPublisher) Close() error { return nil }
