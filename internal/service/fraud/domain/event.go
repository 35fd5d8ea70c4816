// internal/service/fraud/domain/event.go
package domain

import (
	"encoding/json"
	"math"
)

const centsFactor = 100

// ResultSchemaVersion 是出站结果消息的契约版本。
const ResultSchemaVersion = 2

const (
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// PendingInvoiceMessage 是 pending_transactions 主题上的原始消息体。
// amount 为主单位小数，amount_cents 为预先换算好的分值；两者同时存在时以后者为准。
type PendingInvoiceMessage struct {
	SchemaVersion int     `json:"schema_version,omitempty"`
	EventID       string  `json:"event_id"`
	AccountID     string  `json:"account_id"`
	Amount        float64 `json:"amount"`
	AmountCents   *int64  `json:"amount_cents,omitempty"`
	InvoiceID     string  `json:"invoice_id"`
}

// InvoiceEvent 是解码后的入站事件，金额统一为整数分值。接收后不可变。
type InvoiceEvent struct {
	EventID     string
	InvoiceID   string
	AccountID   string
	AmountCents int64
	// RequestID 来自传输层 x-request-id 头，缺失时为空串，原样向下游透传
	RequestID string
}

// AmountToCents 把主单位金额换算为分，四舍五入（远离零方向）。
func AmountToCents(amount float64) int64 {
	return int64(math.Round(amount * centsFactor))
}

// DecodePendingInvoice 解析入站消息。event_id 缺失、JSON 非法或金额为负都属于
// 畸形消息，必须在产生任何副作用（认领、发布）之前拒绝。
func DecodePendingInvoice(value []byte, requestID string) (*InvoiceEvent, error) {
	var msg PendingInvoiceMessage
	if err := json.Unmarshal(value, &msg); err != nil {
		return nil, &MalformedEventError{Reason: "invalid json", Err: err}
	}
	if msg.EventID == "" {
		return nil, &MalformedEventError{Reason: "event_id is required", InvoiceID: msg.InvoiceID}
	}

	// 整数分值为权威字段，存在时不重新计算
	var cents int64
	if msg.AmountCents != nil {
		cents = *msg.AmountCents
	} else {
		cents = AmountToCents(msg.Amount)
	}
	if cents < 0 {
		return nil, &MalformedEventError{Reason: "amount must not be negative", InvoiceID: msg.InvoiceID}
	}

	return &InvoiceEvent{
		EventID:     msg.EventID,
		InvoiceID:   msg.InvoiceID,
		AccountID:   msg.AccountID,
		AmountCents: cents,
		RequestID:   requestID,
	}, nil
}

// ProcessedInvoiceEvent 是 transactions_result 主题上的出站消息体。
type ProcessedInvoiceEvent struct {
	SchemaVersion int    `json:"schema_version"`
	EventID       string `json:"event_id"`
	InvoiceID     string `json:"invoice_id"`
	Status        string `json:"status"`
}

// NewProcessedInvoiceEvent 根据裁定结论构造出站消息：有欺诈即 rejected。
func NewProcessedInvoiceEvent(ev *InvoiceEvent, verdict Verdict) ProcessedInvoiceEvent {
	status := StatusApproved
	if verdict.HasFraud {
		status = StatusRejected
	}
	return ProcessedInvoiceEvent{
		SchemaVersion: ResultSchemaVersion,
		EventID:       ev.EventID,
		InvoiceID:     ev.InvoiceID,
		Status:        status,
	}
}
