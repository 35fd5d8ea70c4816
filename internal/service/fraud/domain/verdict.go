// internal/service/fraud/domain/verdict.go
package domain

// FraudReason 标识触发裁定的规则。
type FraudReason string

const (
	ReasonUnusualAmount     FraudReason = "UNUSUAL_AMOUNT"
	ReasonFrequentHighValue FraudReason = "FREQUENT_HIGH_VALUE"
	ReasonSuspiciousAccount FraudReason = "SUSPICIOUS_ACCOUNT"
)

// Verdict 是规则引擎的输出。Reason/Description 报告按固定评估顺序
// 第一条触发的规则；未触发任何规则时两者为零值。
type Verdict struct {
	HasFraud    bool
	Reason      FraudReason
	Description string
}
