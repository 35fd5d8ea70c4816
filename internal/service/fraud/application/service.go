// internal/service/fraud/application/service.go
package application

import (
	"context"
	"time"

	"antifraud/internal/metrics"
	"antifraud/internal/pkg/logger"
	"antifraud/internal/service/fraud/domain"
	"antifraud/internal/service/fraud/domain/rule"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// FraudApplicationService 负责单条消息的完整处理流程编排：
// 解码 → 认领 → 评估 → 发布 → 记账。对同一 event_id 的总顺序
// （claim → evaluate → send → complete）必须成立，即使同一事件被
// 两个实例并发处理；认领步骤的唯一约束是唯一的同步原语。
type FraudApplicationService struct {
	ledger    domain.EventLedger
	history   domain.HistoryRepository
	publisher domain.ResultPublisher
	cache     domain.CompletedEventCache // 可选，nil 表示不启用缓存快路径
	engine    rule.Specification
	recorder  *metrics.Recorder
	tracer    trace.Tracer

	processingTimeout time.Duration
}

func NewFraudApplicationService(
	ledger domain.EventLedger,
	history domain.HistoryRepository,
	publisher domain.ResultPublisher,
	cache domain.CompletedEventCache,
	engine rule.Specification,
	recorder *metrics.Recorder,
	tracer trace.Tracer,
	processingTimeout time.Duration,
) *FraudApplicationService {
	return &FraudApplicationService{
		ledger:            ledger,
		history:           history,
		publisher:         publisher,
		cache:             cache,
		engine:            engine,
		recorder:          recorder,
		tracer:            tracer,
		processingTimeout: processingTimeout,
	}
}

// HandlePendingInvoice 处理一条入站消息。
// 返回 nil 表示处理完结（成功或重复跳过），消息可以提交；
// 返回 MalformedEventError 表示消息本身不合法，计入 failed 后同样可以提交；
// 其余错误均已在台账中留下 FAILED 记录（认领失败除外），消息不应提交，等待重投递。
func (s *FraudApplicationService) HandlePendingInvoice(ctx context.Context, raw []byte, requestID string) error {
	if s.processingTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.processingTimeout)
		defer cancel()
	}

	ctx, span := s.tracer.Start(ctx, "fraud.HandlePendingInvoice", trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()

	// 1. 解码。畸形消息在任何副作用之前被拒绝：不认领、不发布，只计 failed。
	ev, err := domain.DecodePendingInvoice(raw, requestID)
	if err != nil {
		s.recorder.RecordFailed()
		span.RecordError(err)
		span.SetStatus(codes.Error, "malformed event")
		logger.Ctx(ctx).Warn().
			Err(err).
			Str("request_id", orDash(requestID)).
			Msg("dropping malformed invoice event")
		return err
	}

	span.SetAttributes(
		attribute.String("event.id", ev.EventID),
		attribute.String("invoice.id", ev.InvoiceID),
		attribute.String("account.id", ev.AccountID),
	)
	log := logger.Ctx(ctx).With().
		Str("event_id", ev.EventID).
		Str("invoice_id", ev.InvoiceID).
		Str("request_id", orDash(ev.RequestID)).
		Logger()
	log.Info().Msg("processing invoice")

	// 2. 缓存快路径：已完成的事件直接跳过，省一次 DB 往返。未命中不下结论。
	if s.cache != nil && s.cache.IsCompleted(ctx, ev.EventID) {
		s.recorder.RecordDuplicate()
		log.Info().Msg("duplicate delivery skipped (cache)")
		return nil
	}

	// 3. 认领。必须在评估开始前完成并持久可见。
	claim, err := s.ledger.Claim(ctx, ev.EventID)
	if err != nil {
		// 认领失败发生在台账留痕之前，不做 markFailed
		s.recorder.RecordFailed()
		span.RecordError(err)
		span.SetStatus(codes.Error, "claim failed")
		log.Error().Err(err).Msg("failed to claim event")
		return err
	}
	if claim == domain.ClaimSkipDuplicate {
		s.recorder.RecordDuplicate()
		if s.cache != nil {
			s.cache.MarkCompleted(ctx, ev.EventID)
		}
		log.Info().Msg("duplicate delivery skipped")
		return nil
	}

	// 4. 评估。历史查询失败必须显式失败，绝不按“无欺诈”放行。
	hist, err := s.history.Snapshot(ctx, ev.AccountID, ev.InvoiceID)
	if err != nil {
		return s.fail(ctx, span, &log, ev, err, "history query failed")
	}
	verdict, err := s.engine.Evaluate(ev, hist)
	if err != nil {
		return s.fail(ctx, span, &log, ev, err, "rule evaluation failed")
	}
	span.SetAttributes(attribute.Bool("fraud.detected", verdict.HasFraud))

	// 5. 发布。发送失败时事件标记 FAILED 而不是 COMPLETED，保持可重试。
	if err := s.publisher.PublishResult(ctx, ev, verdict); err != nil {
		return s.fail(ctx, span, &log, ev, err, "publish failed")
	}

	// 6. 发送成功之后才允许记录完成。
	if err := s.ledger.MarkCompleted(ctx, ev.EventID); err != nil {
		return s.fail(ctx, span, &log, ev, err, "mark completed failed")
	}
	if s.cache != nil {
		s.cache.MarkCompleted(ctx, ev.EventID)
	}

	s.recorder.RecordProcessed(verdict.HasFraud)
	log.Info().
		Bool("has_fraud", verdict.HasFraud).
		Str("reason", string(verdict.Reason)).
		Msg("invoice processed")
	return nil
}

// fail 统一处理认领之后的失败路径：先在台账落下 FAILED，再向上传播错误，
// 保证台账始终处于可重试状态。
func (s *FraudApplicationService) fail(ctx context.Context, span trace.Span, log *zerolog.Logger, ev *domain.InvoiceEvent, cause error, msg string) error {
	span.RecordError(cause)
	span.SetStatus(codes.Error, msg)
	log.Error().Err(cause).Msg(msg)

	// 主流程的 ctx 可能已经超时；标记失败用一个仅保留链路信息的独立上下文，
	// 避免因超时而连失败都记不下来。
	markCtx := trace.ContextWithRemoteSpanContext(context.Background(), trace.SpanContextFromContext(ctx))
	markCtx, cancel := context.WithTimeout(markCtx, 5*time.Second)
	defer cancel()

	if err := s.ledger.MarkFailed(markCtx, ev.EventID, cause); err != nil {
		log.Error().Err(err).Msg("failed to record FAILED status in ledger")
	}
	s.recorder.RecordFailed()
	return cause
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
