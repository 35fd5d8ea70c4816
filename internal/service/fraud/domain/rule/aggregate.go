// internal/service/fraud/domain/rule/aggregate.go
package rule

import (
	"antifraud/internal/service/fraud/domain"
)

// Aggregate 按固定顺序（异常金额 → 高频高额 → 可疑账户）评估各条规则，
// 逻辑或聚合：任一触发即判定欺诈，结论报告第一条触发的规则。
type Aggregate struct {
	specs []Specification
}

// NewAggregate 按配置构造标准的三规则聚合器。
func NewAggregate(cfg Config) (*Aggregate, error) {
	suspicious, err := NewSuspiciousAccount(cfg)
	if err != nil {
		return nil, err
	}
	return &Aggregate{specs: []Specification{
		NewUnusualAmount(cfg),
		NewFrequentHighValue(cfg),
		suspicious,
	}}, nil
}

// NewAggregateOf 用给定规则构造聚合器，评估顺序即传入顺序。
func NewAggregateOf(specs ...Specification) *Aggregate {
	return &Aggregate{specs: specs}
}

func (a *Aggregate) Name() string { return "aggregate" }

func (a *Aggregate) Evaluate(ev *domain.InvoiceEvent, hist *domain.AccountHistory) (domain.Verdict, error) {
	for _, s := range a.specs {
		verdict, err := s.Evaluate(ev, hist)
		if err != nil {
			return domain.Verdict{}, err
		}
		if verdict.HasFraud {
			return verdict, nil
		}
	}
	return domain.Verdict{}, nil
}
