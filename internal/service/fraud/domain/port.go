// internal/service/fraud/domain/port.go
package domain

import "context"

// ResultPublisher 把裁定结论交给 broker 的发送原语。发送失败必须向上传播，
// 调用方据此把事件标记为 FAILED；在发送成功之前绝不能记录完成。
type ResultPublisher interface {
	PublishResult(ctx context.Context, ev *InvoiceEvent, verdict Verdict) error
}
