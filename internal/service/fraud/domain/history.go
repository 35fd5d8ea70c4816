// internal/service/fraud/domain/history.go
package domain

import (
	"context"
	"time"
)

// InvoiceRecord 是账户历史中一张发票的只读视图。
type InvoiceRecord struct {
	InvoiceID   string
	AmountCents int64
	Status      string
	CreatedAt   time.Time
}

// AccountHistory 是规则评估所需的账户历史快照。快照在一次查询中采集，
// 评估期间不再访问存储，保证规则是 (事件, 快照, 配置) 的纯函数。
type AccountHistory struct {
	AccountID string
	// AsOf 是快照采集时刻，账龄等相对时间量以它为基准
	AsOf time.Time
	// Recent 是基线窗口内最近的发票（不含当前发票），新在前
	Recent []InvoiceRecord
	// HighValueRecentCount 是时间窗内金额达到阈值的发票数
	HighValueRecentCount int
	// RejectedCount 是账户历史上被拒绝的发票总数
	RejectedCount int
	// InvoiceCount 是账户历史发票总数
	InvoiceCount int
	// FirstSeenAt 是账户最早一张发票的时间，零值表示无历史
	FirstSeenAt time.Time
}

// HistoryRepository 查询账户发票历史。存储不可用时必须返回
// HistoryUnavailableError，绝不允许把查询失败当作“账户干净”。
type HistoryRepository interface {
	Snapshot(ctx context.Context, accountID, excludeInvoiceID string) (*AccountHistory, error)
}
