package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/carlcj05/Astrozee/internal/domain/models"
	domrepo "github.com/carlcj05/Astrozee/internal/domain/repository"
	pkghttp "github.com/carlcj05/Astrozee/pkg/http"
	pkgkafka "github.com/carlcj05/Astrozee/pkg/kafka"
	applogger "github.com/carlcj05/Astrozee/pkg/logger"
)

// KafkaRequestsHandler consumes compute requests and publishes the resulting reports.
type KafkaRequestsHandler struct {
	topic   string
	reports *TransitReportUseCase
	metrics domrepo.Metrics
	l       *applogger.Logger
}

func NewKafkaRequestsHandler(topic string, reports *TransitReportUseCase, metrics domrepo.Metrics, l *applogger.Logger) *KafkaRequestsHandler {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &KafkaRequestsHandler{topic: topic, reports: reports, metrics: metrics, l: l}
}

func (h *KafkaRequestsHandler) Topic() string { return h.topic }

// incoming message schema: models.ComputeMessage
func (h *KafkaRequestsHandler) Handle(ctx context.Context, b []byte) error {
	var m models.ComputeMessage
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return pkgkafka.Permanent(err)
	}
	if m.RequestID == "" {
		m.RequestID = pkgkafka.RequestIDFromContext(ctx)
	}
	if verrs := pkghttp.ValidateStruct(ctx, &m.Request); verrs != nil {
		h.metrics.RecordError("consumer_invalid")
		return pkgkafka.Permanent(fmt.Errorf("invalid compute request %q: %v", m.RequestID, verrs))
	}

	profile, err := ProfileFromRequest(m.Request)
	if err != nil {
		h.metrics.RecordError("consumer_invalid")
		return pkgkafka.Permanent(err)
	}

	start := time.Now()
	report, err := h.reports.Generate(ctx, ReportParams{
		Profile: profile,
		Month:   m.Request.Month,
		Year:    m.Request.Year,
		Persist: m.Request.Persist,
	})
	h.metrics.RecordLatency("consumer_compute", time.Since(start).Seconds())
	if err != nil {
		if isInputError(err) {
			return pkgkafka.Permanent(err)
		}
		return err
	}
	// The report is the only output of a request; a failed publish is retried.
	if err := h.reports.Publish(ctx, report); err != nil {
		return err
	}

	if h.l != nil {
		h.l.Info("compute request handled",
			applogger.String("request_id", m.RequestID),
			applogger.String("report", report.ID.String()),
			applogger.Int("episodes", len(report.Episodes)),
		)
	}
	return nil
}

// isInputError reports errors that would fail again on retry. ErrNoSamples is
// left out: an ephemeris outage can clear up.
func isInputError(err error) bool {
	return errors.Is(err, models.ErrInvalidWindow) ||
		errors.Is(err, models.ErrMissingBirthInstant) ||
		errors.Is(err, models.ErrInvalidProfile) ||
		errors.Is(err, models.ErrUnknownBody)
}

var _ pkgkafka.MessageHandler = (*KafkaRequestsHandler)(nil)
