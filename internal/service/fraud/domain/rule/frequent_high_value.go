// internal/service/fraud/domain/rule/frequent_high_value.go
package rule

import (
	"fmt"

	"antifraud/internal/service/fraud/domain"
)

// FrequentHighValue 统计时间窗内达到金额门槛的发票数量，
// 达到配置的可疑数量即触发。计数在历史快照采集时已完成。
type FrequentHighValue struct {
	suspiciousCount int
	timeframeHours  int
	highValueCents  int64
}

func NewFrequentHighValue(cfg Config) *FrequentHighValue {
	return &FrequentHighValue{
		suspiciousCount: cfg.SuspiciousCount,
		timeframeHours:  cfg.TimeframeHours,
		highValueCents:  cfg.HighValueCents,
	}
}

func (r *FrequentHighValue) Name() string { return "frequent-high-value" }

func (r *FrequentHighValue) Evaluate(ev *domain.InvoiceEvent, hist *domain.AccountHistory) (domain.Verdict, error) {
	if r.suspiciousCount <= 0 || hist.HighValueRecentCount < r.suspiciousCount {
		return domain.Verdict{}, nil
	}

	return domain.Verdict{
		HasFraud: true,
		Reason:   domain.ReasonFrequentHighValue,
		Description: fmt.Sprintf("%d invoices at or above %d cents within the last %dh (threshold %d)",
			hist.HighValueRecentCount, r.highValueCents, r.timeframeHours, r.suspiciousCount),
	}, nil
}
