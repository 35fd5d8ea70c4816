// internal/service/fraud/domain/rule/spec.go
package rule

import (
	"antifraud/internal/service/fraud/domain"
)

// Config 是规则引擎的全部可调参数，运行期注入，不允许硬编码。
type Config struct {
	// 金额偏离基线均值超过该百分比即触发异常金额规则
	VariationPercentage float64
	// 基线窗口：参与均值计算的历史发票条数
	HistoryWindow int
	// 时间窗内达到该数量即触发高频规则
	SuspiciousCount int
	// 高频规则的时间窗（小时）
	TimeframeHours int
	// 高频规则只统计金额不低于该值（分）的发票；0 表示统计全部
	HighValueCents int64
	// 可疑账户规则的 CEL 断言表达式
	SuspiciousAccountExpression string
}

// Specification 是单条欺诈规则的能力抽象。评估必须是
// (事件, 只读历史快照, 配置) 的纯函数：不修改历史、同输入同输出、
// 容忍空历史（数据不足只意味着“不触发”，不是错误）。
type Specification interface {
	Name() string
	Evaluate(ev *domain.InvoiceEvent, hist *domain.AccountHistory) (domain.Verdict, error)
}
