// Package events provides event publishing functionality.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"sign-landmark-service/internal/observability/metrics"
)

// messageWriter is the part of *kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher publishes landmark events to separate Kafka topics.
type Publisher struct {
	writerContribution messageWriter
	writerPrediction   messageWriter
	principal          string
	topicContribution  string
	topicPrediction    string
	enabled            bool
	metrics            *metrics.Metrics
}

// Config holds Kafka publisher configuration.
type Config struct {
	Brokers           []string
	TopicContribution string
	TopicPrediction   string
	Principal         string
	Enabled           bool
}

// New creates a new Kafka event publisher with separate topics for
// contributions and predictions.
func New(cfg *Config) *Publisher {
	m := metrics.DefaultMetrics

	if cfg == nil {
		log.Info().Msg("Kafka disabled (nil config), using log-only mode")
		return &Publisher{
			enabled: false,
			metrics: m,
		}
	}

	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		log.Info().Msg("Kafka disabled, using log-only mode")
		return &Publisher{
			principal:         cfg.Principal,
			topicContribution: cfg.TopicContribution,
			topicPrediction:   cfg.TopicPrediction,
			enabled:           false,
			metrics:           m,
		}
	}

	// Longer dial timeout for DNS resolution in Kubernetes
	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}

	transport := &kafka.Transport{
		Dial: dialer.DialFunc,
	}

	newWriter := func(topic string) *kafka.Writer {
		return &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 10 * time.Millisecond,
			WriteTimeout: 10 * time.Second,
			RequiredAcks: kafka.RequireOne,
			Transport:    transport,
		}
	}

	log.Info().
		Strs("brokers", cfg.Brokers).
		Str("topicContribution", cfg.TopicContribution).
		Str("topicPrediction", cfg.TopicPrediction).
		Str("principal", cfg.Principal).
		Msg("Kafka publisher initialized")

	return &Publisher{
		writerContribution: newWriter(cfg.TopicContribution),
		writerPrediction:   newWriter(cfg.TopicPrediction),
		principal:          cfg.Principal,
		topicContribution:  cfg.TopicContribution,
		topicPrediction:    cfg.TopicPrediction,
		enabled:            true,
		metrics:            m,
	}
}

// Enabled reports whether events are written to Kafka.
func (p *Publisher) Enabled() bool {
	return p.enabled
}

// PublishContribution publishes a contribution event, keyed by sign so that
// all samples of one sign land on the same partition.
func (p *Publisher) PublishContribution(ctx context.Context, key string, event any) error {
	return p.publish(ctx, p.writerContribution, p.topicContribution, "contribution", key, event)
}

// PublishPrediction publishes a prediction event.
func (p *Publisher) PublishPrediction(ctx context.Context, key string, event any) error {
	return p.publish(ctx, p.writerPrediction, p.topicPrediction, "prediction", key, event)
}

func (p *Publisher) publish(ctx context.Context, writer messageWriter, topic, eventType, key string, event any) error {
	start := time.Now()

	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("Failed to marshal event")
		return err
	}

	log.Debug().
		Str("principal", p.principal).
		Str("topic", topic).
		Str("key", key).
		Int("bytes", len(payload)).
		Msg("Publishing event")

	// If Kafka is disabled, just log
	if !p.enabled || writer == nil {
		p.metrics.RecordKafkaPublish(topic, eventType, nil, time.Since(start).Seconds())
		return nil
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(eventType)},
			{Key: "principal", Value: []byte(p.principal)},
		},
	}

	if err := writer.WriteMessages(ctx, msg); err != nil {
		log.Error().
			Err(err).
			Str("topic", topic).
			Str("key", key).
			Msg("Failed to write to Kafka")
		p.metrics.RecordKafkaPublish(topic, eventType, err, time.Since(start).Seconds())
		return err
	}

	p.metrics.RecordKafkaPublish(topic, eventType, nil, time.Since(start).Seconds())
	return nil
}

// Close closes both Kafka writers.
func (p *Publisher) Close() error {
	var err error
	if p.writerContribution != nil {
		if e := p.writerContribution.Close(); e != nil {
			log.Error().Err(e).Msg("Error closing contribution writer")
			err = e
		}
	}
	if p.writerPrediction != nil {
		if e := p.writerPrediction.Close(); e != nil {
			log.Error().Err(e).Msg("Error closing prediction writer")
			err = e
		}
	}
	return err
}
