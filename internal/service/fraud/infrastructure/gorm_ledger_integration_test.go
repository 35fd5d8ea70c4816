//go:build integration

package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"

	"antifraud/internal/service/fraud/domain"

	"github.com/google/uuid"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// 需要一个真实的 MySQL 实例：
//
//	DATABASE_URL="user:pass@tcp(127.0.0.1:3306)/antifraud?parseTime=true" go test -tags=integration ./...
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("could not open database: %v", err)
	}
	return db
}

func newTestLedger(t *testing.T) *GormEventLedger {
	t.Helper()
	ledger := NewGormEventLedger(openTestDB(t))
	if err := ledger.AutoMigrate(); err != nil {
		t.Fatalf("migration failed: %v", err)
	}
	return ledger
}

func TestLedgerClaimLifecycle(t *testing.T) {
	ledger := newTestLedger(t)
	ctx := context.Background()
	eventID := "it-" + uuid.NewString()

	claim, err := ledger.Claim(ctx, eventID)
	if err != nil {
		t.Fatalf("first claim failed: %v", err)
	}
	if claim != domain.ClaimProceed {
		t.Fatalf("expected first claim to proceed, got %v", claim)
	}

	// PROCESSING 状态的再次认领允许继续（崩溃恢复路径）
	claim, err = ledger.Claim(ctx, eventID)
	if err != nil {
		t.Fatalf("re-claim failed: %v", err)
	}
	if claim != domain.ClaimProceed {
		t.Fatalf("expected re-claim of a stuck event to proceed, got %v", claim)
	}

	if err := ledger.MarkCompleted(ctx, eventID); err != nil {
		t.Fatalf("mark completed failed: %v", err)
	}

	// COMPLETED 是终态：之后的每次认领都必须跳过
	claim, err = ledger.Claim(ctx, eventID)
	if err != nil {
		t.Fatalf("claim after completion failed: %v", err)
	}
	if claim != domain.ClaimSkipDuplicate {
		t.Fatalf("expected duplicate skip after completion, got %v", claim)
	}
}

func TestLedgerFailedEventIsRetryable(t *testing.T) {
	ledger := newTestLedger(t)
	ctx := context.Background()
	eventID := "it-" + uuid.NewString()

	if _, err := ledger.Claim(ctx, eventID); err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if err := ledger.MarkFailed(ctx, eventID, errors.New("history unavailable")); err != nil {
		t.Fatalf("mark failed failed: %v", err)
	}

	rec, err := ledger.Find(ctx, eventID)
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if rec == nil || rec.Status != domain.EventFailed || rec.LastError != "history unavailable" {
		t.Fatalf("expected FAILED record with cause, got %+v", rec)
	}

	claim, err := ledger.Claim(ctx, eventID)
	if err != nil {
		t.Fatalf("re-claim failed: %v", err)
	}
	if claim != domain.ClaimProceed {
		t.Fatalf("expected a failed event to be claimable again, got %v", claim)
	}

	rec, err = ledger.Find(ctx, eventID)
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if rec.Status != domain.EventProcessing || rec.LastError != "" {
		t.Fatalf("expected re-claim to reset status and clear the error, got %+v", rec)
	}
}

func TestLedgerConcurrentClaimSingleWinner(t *testing.T) {
	ledger := newTestLedger(t)
	ctx := context.Background()

	// 多个并发认领者抢同一个新事件，唯一约束必须保证只有一个拿到首次插入
	const workers = 8
	eventID := "it-" + uuid.NewString()

	var wg sync.WaitGroup
	results := make(chan domain.ClaimResult, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			claim, err := ledger.Claim(ctx, eventID)
			if err != nil {
				results <- -1
				return
			}
			results <- claim
		}()
	}
	wg.Wait()
	close(results)

	var proceed, failed int
	for r := range results {
		switch r {
		case domain.ClaimProceed:
			proceed++
		case -1:
			failed++
		}
	}
	if failed > 0 {
		t.Fatalf("%d claims returned errors", failed)
	}
	// 所有认领者都应拿到 Proceed（事件尚未 COMPLETED），但表里只能有一行
	if proceed != workers {
		t.Fatalf("expected all %d claims to proceed on an uncompleted event, got %d", workers, proceed)
	}
	rec, err := ledger.Find(ctx, eventID)
	if err != nil || rec == nil {
		t.Fatalf("expected exactly one ledger row, got rec=%v err=%v", rec, err)
	}

	// 完成后并发重投递必须全部跳过
	if err := ledger.MarkCompleted(ctx, eventID); err != nil {
		t.Fatalf("mark completed failed: %v", err)
	}
	for i := 0; i < workers; i++ {
		claim, err := ledger.Claim(ctx, eventID)
		if err != nil {
			t.Fatalf("claim %d after completion failed: %v", i, err)
		}
		if claim != domain.ClaimSkipDuplicate {
			t.Fatalf("claim %d: expected duplicate skip after completion, got %v", i, claim)
		}
	}
}

func TestLedgerTruncatesLongErrors(t *testing.T) {
	ledger := newTestLedger(t)
	ctx := context.Background()
	eventID := "it-" + uuid.NewString()

	if _, err := ledger.Claim(ctx, eventID); err != nil {
		t.Fatalf("claim failed: %v", err)
	}

	long := fmt.Sprintf("%01500d", 0)
	if err := ledger.MarkFailed(ctx, eventID, errors.New(long)); err != nil {
		t.Fatalf("mark failed failed: %v", err)
	}

	rec, err := ledger.Find(ctx, eventID)
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if len(rec.LastError) != maxLastErrorLen {
		t.Fatalf("expected last_error truncated to %d bytes, got %d", maxLastErrorLen, len(rec.LastError))
	}
}
