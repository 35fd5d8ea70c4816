// internal/service/fraud/infrastructure/kafka_consumer.go
package infrastructure

import (
	"context"
	"time"

	"antifraud/internal/pkg/logger"
	"antifraud/internal/pkg/mq"
	"antifraud/internal/service/fraud/domain"

	"github.com/segmentio/kafka-go"
)

// invoicePipeline 是消费适配器驱动的应用层入口。
type invoicePipeline interface {
	HandlePendingInvoice(ctx context.Context, raw []byte, requestID string) error
}

// messageReader 抽象出 kafka.Reader 的读取/提交原语，便于测试。
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

// PendingInvoiceConsumer 是驱动适配器：监听 pending_transactions 主题，
// 逐条驱动流水线，并只在流水线完结（成功或终态失败）后提交 offset。
type PendingInvoiceConsumer struct {
	reader   messageReader
	pipeline invoicePipeline
	// 可重试错误后的退避间隔，防止快速失败循环
	retryBackoff time.Duration
}

func NewPendingInvoiceConsumer(reader messageReader, pipeline invoicePipeline) *PendingInvoiceConsumer {
	return &PendingInvoiceConsumer{
		reader:       reader,
		pipeline:     pipeline,
		retryBackoff: time.Second,
	}
}

// Run 阻塞消费直到 ctx 取消。
func (c *PendingInvoiceConsumer) Run(ctx context.Context) error {
	logger.L().Info().Msg("✅ pending invoice consumer started")
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				logger.L().Info().Msg("🛑 pending invoice consumer shutting down")
				return nil
			}
			logger.L().Error().Err(err).Msg("could not fetch message, retrying")
			time.Sleep(c.retryBackoff)
			continue
		}
		c.processMessage(ctx, msg)
	}
}

// processMessage 执行单条消息的处理与提交决策：
//   - 成功 / 重复跳过 ⇒ 提交；
//   - 畸形消息 ⇒ 已计 failed，属终态，提交丢弃；
//   - 其余（历史不可用、发布失败、台账故障）⇒ 不提交，等待重投递，
//     幂等台账保证重投递是安全的。
func (c *PendingInvoiceConsumer) processMessage(parentCtx context.Context, msg kafka.Message) {
	ctx := mq.ExtractTraceContext(parentCtx, msg.Headers)
	requestID := mq.GetHeader(msg.Headers, "x-request-id")

	err := c.pipeline.HandlePendingInvoice(ctx, msg.Value, requestID)
	if err != nil && !domain.IsMalformed(err) {
		logger.Ctx(ctx).Error().Err(err).
			Str("request_id", requestID).
			Msg("pipeline failed, leaving message uncommitted for redelivery")
		time.Sleep(c.retryBackoff)
		return
	}

	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		logger.Ctx(ctx).Error().Err(err).Msg("failed to commit message offset")
	}
}
