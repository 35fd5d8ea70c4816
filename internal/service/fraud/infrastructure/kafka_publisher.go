// internal/service/fraud/infrastructure/kafka_publisher.go
package infrastructure

import (
	"context"
	"encoding/json"

	"antifraud/internal/pkg/logger"
	"antifraud/internal/pkg/mq"
	"antifraud/internal/service/fraud/domain"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// messageWriter 抽象出 kafka.Writer 的发送原语，便于测试。
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaResultPublisher 把裁定结论发布到 transactions_result 主题。
// 消息以 account_id 作为 Key，同一账户的结果落在同一分区；
// 入站的 x-request-id 原样透传。
type KafkaResultPublisher struct {
	writer messageWriter
	tracer trace.Tracer
}

func NewKafkaResultPublisher(writer messageWriter, tracer trace.Tracer) *KafkaResultPublisher {
	return &KafkaResultPublisher{writer: writer, tracer: tracer}
}

func (p *KafkaResultPublisher) PublishResult(ctx context.Context, ev *domain.InvoiceEvent, verdict domain.Verdict) error {
	ctx, span := p.tracer.Start(ctx, "publisher.PublishResult", trace.WithSpanKind(trace.SpanKindProducer))
	defer span.End()

	out := domain.NewProcessedInvoiceEvent(ev, verdict)
	value, err := json.Marshal(out)
	if err != nil {
		span.RecordError(err)
		return &domain.PublishError{EventID: ev.EventID, Err: err}
	}

	var headers []kafka.Header
	if ev.RequestID != "" {
		headers = append(headers, kafka.Header{Key: "x-request-id", Value: []byte(ev.RequestID)})
	}

	msg := kafka.Message{
		Key:     []byte(ev.AccountID),
		Value:   value,
		Headers: headers,
	}
	mq.InjectTraceContext(ctx, &msg.Headers)

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "kafka write failed")
		return &domain.PublishError{EventID: ev.EventID, Err: err}
	}

	logger.Ctx(ctx).Info().
		Str("event_id", ev.EventID).
		Str("invoice_id", ev.InvoiceID).
		Str("status", out.Status).
		Msg("processed event published")
	return nil
}
