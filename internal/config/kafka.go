package config

import "github.com/segmentio/kafka-go"

// NewKafkaWriter returns nil when no brokers are configured.
func NewKafkaWriter(cfg KafkaConfig) *kafka.Writer {
	if len(cfg.Brokers) == 0 {
		return nil
	}
	return &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.OrderTopic,
		Balancer:               &kafka.Hash{}, // same order key lands on the same partition
		AllowAutoTopicCreation: true,
	}
}
