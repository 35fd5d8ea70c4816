// internal/service/fraud/infrastructure/gorm_history.go
package infrastructure

import (
	"context"
	"time"

	"antifraud/internal/service/fraud/domain"

	"gorm.io/gorm"
)

// InvoiceModel 是网关侧 invoices 表的只读视图，本服务不写入。
type InvoiceModel struct {
	ID          string `gorm:"primaryKey;column:id"`
	AccountID   string `gorm:"column:account_id"`
	AmountCents int64  `gorm:"column:amount_cents"`
	Status      string `gorm:"column:status"`
	CreatedAt   time.Time
}

func (InvoiceModel) TableName() string {
	return "invoices"
}

// GormHistoryRepository 在一次 Snapshot 调用里采齐规则评估所需的
// 全部历史数据，之后的评估不再触达存储。
type GormHistoryRepository struct {
	db             *gorm.DB
	window         int
	timeframe      time.Duration
	highValueCents int64
}

func NewGormHistoryRepository(db *gorm.DB, window, timeframeHours int, highValueCents int64) *GormHistoryRepository {
	return &GormHistoryRepository{
		db:             db,
		window:         window,
		timeframe:      time.Duration(timeframeHours) * time.Hour,
		highValueCents: highValueCents,
	}
}

func (r *GormHistoryRepository) Snapshot(ctx context.Context, accountID, excludeInvoiceID string) (*domain.AccountHistory, error) {
	now := time.Now().UTC()

	base := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&InvoiceModel{}).Where("account_id = ?", accountID)
		if excludeInvoiceID != "" {
			// 当前发票可能已由网关落库，基线里要排除它自己
			q = q.Where("id <> ?", excludeInvoiceID)
		}
		return q
	}

	var rows []InvoiceModel
	if err := base().Order("created_at DESC").Limit(r.window).Find(&rows).Error; err != nil {
		return nil, &domain.HistoryUnavailableError{AccountID: accountID, Err: err}
	}

	highValue := base().Where("created_at >= ?", now.Add(-r.timeframe))
	if r.highValueCents > 0 {
		highValue = highValue.Where("amount_cents >= ?", r.highValueCents)
	}
	var highValueCount int64
	if err := highValue.Count(&highValueCount).Error; err != nil {
		return nil, &domain.HistoryUnavailableError{AccountID: accountID, Err: err}
	}

	var rejectedCount int64
	if err := base().Where("status = ?", "rejected").Count(&rejectedCount).Error; err != nil {
		return nil, &domain.HistoryUnavailableError{AccountID: accountID, Err: err}
	}

	var agg struct {
		Total     int64      `gorm:"column:total"`
		FirstSeen *time.Time `gorm:"column:first_seen"`
	}
	if err := base().Select("COUNT(*) AS total, MIN(created_at) AS first_seen").Scan(&agg).Error; err != nil {
		return nil, &domain.HistoryUnavailableError{AccountID: accountID, Err: err}
	}

	hist := &domain.AccountHistory{
		AccountID:            accountID,
		AsOf:                 now,
		Recent:               make([]domain.InvoiceRecord, 0, len(rows)),
		HighValueRecentCount: int(highValueCount),
		RejectedCount:        int(rejectedCount),
		InvoiceCount:         int(agg.Total),
	}
	if agg.FirstSeen != nil {
		hist.FirstSeenAt = *agg.FirstSeen
	}
	for _, row := range rows {
		hist.Recent = append(hist.Recent, domain.InvoiceRecord{
			InvoiceID:   row.ID,
			AmountCents: row.AmountCents,
			Status:      row.Status,
			CreatedAt:   row.CreatedAt,
		})
	}
	return hist, nil
}
