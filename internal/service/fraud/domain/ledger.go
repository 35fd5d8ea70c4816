// internal/service/fraud/domain/ledger.go
package domain

import (
	"context"
	"time"
)

// EventStatus 是幂等台账中一条记录的状态。
// 状态机：(none) → PROCESSING → {COMPLETED | FAILED}；FAILED → PROCESSING 允许重试；
// COMPLETED 为终态。
type EventStatus string

const (
	EventProcessing EventStatus = "PROCESSING"
	EventCompleted  EventStatus = "COMPLETED"
	EventFailed     EventStatus = "FAILED"
)

// ProcessedEvent 是台账中的一条记录，每个 event_id 至多一条，永不删除。
type ProcessedEvent struct {
	EventID   string
	Status    EventStatus
	LastError string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ClaimResult 是认领操作的结论。
type ClaimResult int

const (
	// ClaimProceed 表示认领成功（首次或重试），可以开始评估
	ClaimProceed ClaimResult = iota
	// ClaimSkipDuplicate 表示该事件已完成处理，本次投递应被静默丢弃
	ClaimSkipDuplicate
)

// EventLedger 是幂等台账。正确性完全依赖存储层对 event_id 的唯一约束，
// 不使用任何进程内或外部锁。
type EventLedger interface {
	// Claim 以插入 PROCESSING 记录的方式认领事件；唯一键冲突时回退为
	// 条件更新（COMPLETED ⇒ 跳过，其余 ⇒ 置回 PROCESSING 并清空错误）。
	Claim(ctx context.Context, eventID string) (ClaimResult, error)
	// MarkCompleted 只能在出站消息发送成功之后调用。
	MarkCompleted(ctx context.Context, eventID string) error
	// MarkFailed 记录失败原因，事件可被后续重投递重试。
	MarkFailed(ctx context.Context, eventID string, cause error) error
}

// CompletedEventCache 是台账前的尽力而为缓存：命中即可跳过 DB 认领，
// 任何缓存故障都不影响正确性（退回唯一约束路径）。
type CompletedEventCache interface {
	IsCompleted(ctx context.Context, eventID string) bool
	MarkCompleted(ctx context.Context, eventID string)
}
