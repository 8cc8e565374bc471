// Package kafka publishes persisted tree requests to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/tree-request-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// EventTypeSubmitted tags messages for newly submitted requests.
const EventTypeSubmitted = "tree_request.submitted"

// Writer produces tree request events to a Kafka topic.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for topic.
func NewWriter(brokers []string, topic string, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		BatchTimeout: 50 * time.Millisecond,
	}
	return &Writer{writer: w, logger: logger}
}

// Publish writes a single tree request event keyed by its SR number.
func (w *Writer) Publish(ctx context.Context, req domain.TreeRequest) error {
	msg, err := serializeToMessage(req)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish tree request %s: %w", req.SRNumber, err)
	}
	w.logger.Debug("tree request published", "sr_number", req.SRNumber, "topic", w.writer.Topic)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a TreeRequest into a Kafka message.
func serializeToMessage(req domain.TreeRequest) (kafkago.Message, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize tree request: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(req.SRNumber),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(EventTypeSubmitted)},
			{Key: "requested_at", Value: []byte(req.RequestedAt.Format(time.RFC3339))},
		},
	}, nil
}
