// Package kafka publishes cover events for downstream consumers.
package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

const (
	DefaultTopic = "cover-rendered"
	writeTimeout = 10 * time.Second
	dialTimeout  = 10 * time.Second
)

type Producer interface {
	SendMessage(ctx context.Context, key string, message any) error
	Close() error
}

type kafkaProducer struct {
	writer *kafka.Writer
}

// NewProducer connects to the first reachable broker setup. Without
// brokers, or when the cluster cannot be reached, events are only logged.
func NewProducer(brokers []string, topic string) Producer {
	if len(brokers) == 0 {
		logrus.Info("no kafka brokers configured, cover events are only logged")
		return &mockProducer{}
	}
	if topic == "" {
		topic = DefaultTopic
	}

	log := logrus.WithFields(logrus.Fields{"brokers": brokers, "topic": topic})

	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()

	conn, err := kafka.DialContext(ctx, "tcp", brokers[0])
	if err != nil {
		log.WithError(err).Warn("kafka connection failed, using mock producer")
		return &mockProducer{}
	}
	defer conn.Close()

	err = conn.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	})
	if err != nil {
		log.WithError(err).Debug("could not create topic, it might already exist")
	}

	log.Info("connected to kafka")
	return &kafkaProducer{writer: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}}
}

func (p *kafkaProducer) SendMessage(ctx context.Context, key string, message any) error {
	msg, err := newMessage(key, message, time.Now())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return err
	}
	logrus.WithField("key", key).Debug("cover event sent")
	return nil
}

func (p *kafkaProducer) Close() error {
	return p.writer.Close()
}

func newMessage(key string, message any, at time.Time) (kafka.Message, error) {
	value, err := json.Marshal(message)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Key:   []byte(key),
		Value: value,
		Time:  at,
	}, nil
}

// mockProducer stands in when kafka is not available
type mockProducer struct{}

func (m *mockProducer) SendMessage(_ context.Context, key string, message any) error {
	logrus.WithFields(logrus.Fields{"key": key, "event": message}).Info("MOCK: cover event")
	return nil
}

func (m *mockProducer) Close() error {
	return nil
}
