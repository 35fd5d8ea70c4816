// internal/service/fraud/domain/rule/unusual_amount.go
package rule

import (
	"fmt"
	"math"

	"antifraud/internal/service/fraud/domain"
)

// UnusualAmount 把本次金额与账户最近 N 张发票的均值比较，
// 相对偏差超过配置的百分比即触发。
type UnusualAmount struct {
	variationPct float64
}

func NewUnusualAmount(cfg Config) *UnusualAmount {
	return &UnusualAmount{variationPct: cfg.VariationPercentage}
}

func (r *UnusualAmount) Name() string { return "unusual-amount" }

func (r *UnusualAmount) Evaluate(ev *domain.InvoiceEvent, hist *domain.AccountHistory) (domain.Verdict, error) {
	// 历史不足两张，基线无意义，规则不触发
	if len(hist.Recent) < 2 {
		return domain.Verdict{}, nil
	}

	var sum int64
	for _, inv := range hist.Recent {
		sum += inv.AmountCents
	}
	mean := float64(sum) / float64(len(hist.Recent))
	if mean == 0 {
		// 均值为零时相对偏差无定义，交给其他规则
		return domain.Verdict{}, nil
	}

	deviation := math.Abs(float64(ev.AmountCents)-mean) / mean * 100
	if deviation <= r.variationPct {
		return domain.Verdict{}, nil
	}

	return domain.Verdict{
		HasFraud: true,
		Reason:   domain.ReasonUnusualAmount,
		Description: fmt.Sprintf("amount %d deviates %.1f%% from the recent average of %.0f (threshold %.1f%%)",
			ev.AmountCents, deviation, mean, r.variationPct),
	}, nil
}
