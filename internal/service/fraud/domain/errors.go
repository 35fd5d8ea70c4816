// internal/service/fraud/domain/errors.go
package domain

import (
	"errors"
	"fmt"
)

// MalformedEventError 表示入站消息在产生任何副作用之前即被拒绝：
// 计入 failed，但不触碰台账，也不重试。
type MalformedEventError struct {
	Reason    string
	InvoiceID string
	Err       error
}

func (e *MalformedEventError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed event: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("malformed event: %s", e.Reason)
}

func (e *MalformedEventError) Unwrap() error { return e.Err }

// IsMalformed 判断错误是否属于畸形消息（终态，不重投递）。
func IsMalformed(err error) bool {
	var me *MalformedEventError
	return errors.As(err, &me)
}

// HistoryUnavailableError 表示评估期间历史查询失败。事件必须置为 FAILED
// 等待重试，绝不能静默按“无欺诈”放行。
type HistoryUnavailableError struct {
	AccountID string
	Err       error
}

func (e *HistoryUnavailableError) Error() string {
	return fmt.Sprintf("account history unavailable for %s: %v", e.AccountID, e.Err)
}

func (e *HistoryUnavailableError) Unwrap() error { return e.Err }

// PublishError 表示评估成功后出站发送失败。事件置为 FAILED，重试时
// 重新评估是安全的（评估是纯函数，效果幂等）。
type PublishError struct {
	EventID string
	Err     error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish result for event %s: %v", e.EventID, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }

// PersistenceError 表示与唯一约束无关的台账读写失败。
type PersistenceError struct {
	Op      string
	EventID string
	Err     error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("ledger %s for event %s: %v", e.Op, e.EventID, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
