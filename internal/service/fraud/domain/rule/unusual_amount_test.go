package rule

import (
	"testing"
	"time"

	"antifraud/internal/service/fraud/domain"
)

func historyOf(amounts ...int64) *domain.AccountHistory {
	hist := &domain.AccountHistory{
		AccountID: "acc-1",
		AsOf:      time.Now().UTC(),
	}
	for i, a := range amounts {
		hist.Recent = append(hist.Recent, domain.InvoiceRecord{
			InvoiceID:   "inv-" + string(rune('a'+i)),
			AmountCents: a,
			Status:      "approved",
		})
	}
	hist.InvoiceCount = len(amounts)
	return hist
}

func TestUnusualAmountFiresOnLargeDeviation(t *testing.T) {
	r := NewUnusualAmount(Config{VariationPercentage: 50})
	ev := &domain.InvoiceEvent{EventID: "ev-1", AmountCents: 1000}

	verdict, err := r.Evaluate(ev, historyOf(100, 100, 100))
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if !verdict.HasFraud {
		t.Fatal("expected rule to fire: 1000 deviates 900% from a baseline of 100")
	}
	if verdict.Reason != domain.ReasonUnusualAmount {
		t.Fatalf("expected reason %s, got %s", domain.ReasonUnusualAmount, verdict.Reason)
	}
}

func TestUnusualAmountStaysQuietWithinThreshold(t *testing.T) {
	r := NewUnusualAmount(Config{VariationPercentage: 50})
	ev := &domain.InvoiceEvent{EventID: "ev-1", AmountCents: 120}

	verdict, err := r.Evaluate(ev, historyOf(100, 100, 100))
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if verdict.HasFraud {
		t.Fatalf("expected rule not to fire for a 20%% deviation, got %+v", verdict)
	}
}

func TestUnusualAmountNeedsBaseline(t *testing.T) {
	r := NewUnusualAmount(Config{VariationPercentage: 50})
	// 金额再离谱，历史不足两张也不触发
	ev := &domain.InvoiceEvent{EventID: "ev-1", AmountCents: 100000000}

	for _, hist := range []*domain.AccountHistory{historyOf(), historyOf(100)} {
		verdict, err := r.Evaluate(ev, hist)
		if err != nil {
			t.Fatalf("expected nil error, got %v", err)
		}
		if verdict.HasFraud {
			t.Fatalf("expected no verdict with %d prior invoices", len(hist.Recent))
		}
	}
}

func TestUnusualAmountZeroBaselineDoesNotFire(t *testing.T) {
	r := NewUnusualAmount(Config{VariationPercentage: 50})
	ev := &domain.InvoiceEvent{EventID: "ev-1", AmountCents: 500}

	verdict, err := r.Evaluate(ev, historyOf(0, 0))
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if verdict.HasFraud {
		t.Fatal("relative deviation is undefined for a zero baseline, rule must stay quiet")
	}
}
