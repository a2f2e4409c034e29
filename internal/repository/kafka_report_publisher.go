package repository

import (
	"context"

	"github.com/carlcj05/Astrozee/internal/domain/models"
	domrepo "github.com/carlcj05/Astrozee/internal/domain/repository"
	pkgkafka "github.com/carlcj05/Astrozee/pkg/kafka"
)

// ReportSink is the part of the Kafka producer the publisher needs.
type ReportSink interface {
	PublishBatch(ctx context.Context, topic string, messages []pkgkafka.Message) error
	Close() error
}

// KafkaReportPublisher publishes each report keyed by profile so that a
// profile's reports keep their order within a partition.
type KafkaReportPublisher struct {
	producer ReportSink
	topic    string
}

func NewKafkaReportPublisher(producer ReportSink, topic string) *KafkaReportPublisher {
	return &KafkaReportPublisher{producer: producer, topic: topic}
}

func (p *KafkaReportPublisher) PublishReport(ctx context.Context, r *models.TransitReport) error {
	return p.producer.PublishBatch(ctx, p.topic, []pkgkafka.Message{reportMessage(ctx, r)})
}

func reportMessage(ctx context.Context, r *models.TransitReport) pkgkafka.Message {
	key := r.ProfileID
	if key == "" {
		key = r.ID.String()
	}
	headers := map[string]string{"report_id": r.ID.String()}
	if id := pkgkafka.RequestIDFromContext(ctx); id != "" {
		headers[pkgkafka.HeaderRequestID] = id
	}
	return pkgkafka.Message{Key: []byte(key), Value: r, Headers: headers}
}

func (p *KafkaReportPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

var _ domrepo.ReportPublisher = (*KafkaReportPublisher)(nil)
