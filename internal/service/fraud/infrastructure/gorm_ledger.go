// internal/service/fraud/infrastructure/gorm_ledger.go
package infrastructure

import (
	"context"
	"errors"
	"time"

	"antifraud/internal/service/fraud/domain"

	gomysql "github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

const maxLastErrorLen = 1024

// ProcessedEventModel 对应 processed_events 表，每个 event_id 一行。
type ProcessedEventModel struct {
	EventID   string `gorm:"primaryKey;size:64;column:event_id"`
	Status    string `gorm:"size:16;not null"`
	LastError string `gorm:"column:last_error;type:text"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (ProcessedEventModel) TableName() string {
	return "processed_events"
}

// GormEventLedger 是 domain.EventLedger 的 GORM 实现。
// 认领的竞态安全完全由主键唯一约束保证：插入即认领，冲突即回退为条件更新。
type GormEventLedger struct {
	db *gorm.DB
}

func NewGormEventLedger(db *gorm.DB) *GormEventLedger {
	return &GormEventLedger{db: db}
}

// AutoMigrate 建表。台账归本服务所有，启动时迁移即可。
func (l *GormEventLedger) AutoMigrate() error {
	return l.db.AutoMigrate(&ProcessedEventModel{})
}

func (l *GormEventLedger) Claim(ctx context.Context, eventID string) (domain.ClaimResult, error) {
	// 1. 乐观路径：直接插入 PROCESSING 记录
	rec := ProcessedEventModel{EventID: eventID, Status: string(domain.EventProcessing)}
	err := l.db.WithContext(ctx).Create(&rec).Error
	if err == nil {
		return domain.ClaimProceed, nil
	}
	if !isDuplicateKey(err) {
		return 0, &domain.PersistenceError{Op: "claim", EventID: eventID, Err: err}
	}

	// 2. 唯一键冲突：读出既有记录再决定
	var existing ProcessedEventModel
	err = l.db.WithContext(ctx).First(&existing, "event_id = ?", eventID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// 插入和读取之间记录消失（极少见），按首次认领处理
		if err := l.db.WithContext(ctx).Create(&rec).Error; err == nil {
			return domain.ClaimProceed, nil
		}
		// 再次冲突说明有并发认领者刚写入，落到下面的更新路径
	} else if err != nil {
		return 0, &domain.PersistenceError{Op: "claim read", EventID: eventID, Err: err}
	}

	// COMPLETED 是终态：重复投递静默跳过
	if existing.Status == string(domain.EventCompleted) {
		return domain.ClaimSkipDuplicate, nil
	}

	// PROCESSING / FAILED：上一次尝试未走完，重置回 PROCESSING 并清空错误
	err = l.db.WithContext(ctx).Model(&ProcessedEventModel{}).
		Where("event_id = ?", eventID).
		Updates(map[string]interface{}{
			"status":     string(domain.EventProcessing),
			"last_error": "",
		}).Error
	if err != nil {
		return 0, &domain.PersistenceError{Op: "claim retry", EventID: eventID, Err: err}
	}
	return domain.ClaimProceed, nil
}

func (l *GormEventLedger) MarkCompleted(ctx context.Context, eventID string) error {
	err := l.db.WithContext(ctx).Model(&ProcessedEventModel{}).
		Where("event_id = ?", eventID).
		Updates(map[string]interface{}{
			"status":     string(domain.EventCompleted),
			"last_error": "",
		}).Error
	if err != nil {
		return &domain.PersistenceError{Op: "mark completed", EventID: eventID, Err: err}
	}
	return nil
}

func (l *GormEventLedger) MarkFailed(ctx context.Context, eventID string, cause error) error {
	msg := cause.Error()
	if len(msg) > maxLastErrorLen {
		msg = msg[:maxLastErrorLen]
	}
	err := l.db.WithContext(ctx).Model(&ProcessedEventModel{}).
		Where("event_id = ?", eventID).
		Updates(map[string]interface{}{
			"status":     string(domain.EventFailed),
			"last_error": msg,
		}).Error
	if err != nil {
		return &domain.PersistenceError{Op: "mark failed", EventID: eventID, Err: err}
	}
	return nil
}

// Find 按 event_id 读取一条台账记录，不存在时返回 nil。
func (l *GormEventLedger) Find(ctx context.Context, eventID string) (*domain.ProcessedEvent, error) {
	var m ProcessedEventModel
	err := l.db.WithContext(ctx).First(&m, "event_id = ?", eventID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, &domain.PersistenceError{Op: "find", EventID: eventID, Err: err}
	}
	return &domain.ProcessedEvent{
		EventID:   m.EventID,
		Status:    domain.EventStatus(m.Status),
		LastError: m.LastError,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}, nil
}

// isDuplicateKey 识别唯一约束冲突。优先使用 GORM 的翻译错误，
// 同时兼容未开启 TranslateError 时裸露的 MySQL 1062。
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var myErr *gomysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == 1062
}
