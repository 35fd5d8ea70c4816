package metrics

import (
	"strings"
	"testing"
)

func TestRecorderCountsOutcomesSeparately(t *testing.T) {
	r := NewRecorder()

	r.RecordProcessed(false)
	r.RecordProcessed(false)
	r.RecordProcessed(true)
	r.RecordFailed()
	r.RecordDuplicate()

	s := r.Snapshot()
	if s.ProcessedTotal != 3 {
		t.Fatalf("expected 3 processed, got %d", s.ProcessedTotal)
	}
	if s.ApprovedTotal != 2 || s.RejectedTotal != 1 {
		t.Fatalf("expected 2 approved / 1 rejected, got %d / %d", s.ApprovedTotal, s.RejectedTotal)
	}
	if s.FailedTotal != 1 {
		t.Fatalf("expected 1 failed, got %d", s.FailedTotal)
	}
	// 重复跳过单独计数，不污染 processed / failed
	if s.DuplicateTotal != 1 {
		t.Fatalf("expected 1 duplicate, got %d", s.DuplicateTotal)
	}
	if s.LastProcessedAt == nil {
		t.Fatal("expected last_processed_at to be set after activity")
	}
}

func TestRecorderFreshSnapshot(t *testing.T) {
	s := NewRecorder().Snapshot()
	if s.ProcessedTotal != 0 || s.FailedTotal != 0 || s.DuplicateTotal != 0 {
		t.Fatalf("expected zeroed counters on a fresh recorder, got %+v", s)
	}
	if s.LastProcessedAt != nil {
		t.Fatalf("expected nil last_processed_at before any activity, got %v", s.LastProcessedAt)
	}
}

func TestRecorderSnapshotIsReadOnly(t *testing.T) {
	r := NewRecorder()
	r.RecordProcessed(true)

	first := r.Snapshot()
	second := r.Snapshot()
	if first.ProcessedTotal != second.ProcessedTotal || first.RejectedTotal != second.RejectedTotal {
		t.Fatalf("snapshot must not mutate state: %+v vs %+v", first, second)
	}
}

func TestPrometheusTextExposesCounters(t *testing.T) {
	r := NewRecorder()
	r.RecordProcessed(true)
	r.RecordFailed()

	text, err := r.PrometheusText()
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	for _, want := range []string{
		"antifraud_invoices_processed_total 1",
		"antifraud_invoices_rejected_total 1",
		"antifraud_invoices_failed_total 1",
		"antifraud_last_processed_timestamp_seconds",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected exposition to contain %q, got:\n%s", want, text)
		}
	}
}
