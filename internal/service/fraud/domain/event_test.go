package domain

import "testing"

func TestDecodeRejectsMissingEventID(t *testing.T) {
	_, err := DecodePendingInvoice([]byte(`{"account_id":"acc-1","amount":10,"invoice_id":"inv-1"}`), "")
	if err == nil {
		t.Fatal("expected error for missing event_id")
	}
	if !IsMalformed(err) {
		t.Fatalf("expected malformed event error, got %T: %v", err, err)
	}
}

func TestDecodeRejectsInvalidJSON(t *testing.T) {
	_, err := DecodePendingInvoice([]byte(`{not json`), "")
	if !IsMalformed(err) {
		t.Fatalf("expected malformed event error, got %v", err)
	}
}

func TestDecodeRejectsNegativeAmount(t *testing.T) {
	_, err := DecodePendingInvoice([]byte(`{"event_id":"ev-1","account_id":"acc-1","amount":-10,"invoice_id":"inv-1"}`), "")
	if !IsMalformed(err) {
		t.Fatalf("expected malformed event error, got %v", err)
	}
}

func TestDecodeAmountCentsIsAuthoritative(t *testing.T) {
	ev, err := DecodePendingInvoice([]byte(`{"event_id":"ev-1","account_id":"acc-1","amount":99.99,"amount_cents":1234,"invoice_id":"inv-1"}`), "")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if ev.AmountCents != 1234 {
		t.Fatalf("expected amount_cents 1234 to win over amount, got %d", ev.AmountCents)
	}
}

func TestDecodeConvertsDecimalAmount(t *testing.T) {
	tests := []struct {
		name   string
		amount string
		want   int64
	}{
		{"whole", "10", 1000},
		{"two decimals", "10.25", 1025},
		{"rounds to nearest", "19.99", 1999},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := []byte(`{"event_id":"ev-1","account_id":"acc-1","amount":` + tt.amount + `,"invoice_id":"inv-1"}`)
			ev, err := DecodePendingInvoice(raw, "")
			if err != nil {
				t.Fatalf("expected nil error, got %v", err)
			}
			if ev.AmountCents != tt.want {
				t.Fatalf("amount %s: expected %d cents, got %d", tt.amount, tt.want, ev.AmountCents)
			}
		})
	}
}

func TestAmountToCentsRoundsHalfAwayFromZero(t *testing.T) {
	// 1.125 是精确的二进制小数，乘以 100 正好落在 .5 上
	if got := AmountToCents(1.125); got != 113 {
		t.Fatalf("expected 1.125 to round to 113 cents, got %d", got)
	}
	if got := AmountToCents(-1.125); got != -113 {
		t.Fatalf("expected -1.125 to round to -113 cents, got %d", got)
	}
}

func TestDecodePropagatesRequestID(t *testing.T) {
	ev, err := DecodePendingInvoice([]byte(`{"event_id":"ev-1","account_id":"acc-1","amount":10,"invoice_id":"inv-1"}`), "req-42")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if ev.RequestID != "req-42" {
		t.Fatalf("expected request id req-42, got %q", ev.RequestID)
	}
}

func TestProcessedEventRoundTrip(t *testing.T) {
	ev := &InvoiceEvent{EventID: "ev-1", InvoiceID: "inv-1", AccountID: "acc-1", AmountCents: 1000}

	approved := NewProcessedInvoiceEvent(ev, Verdict{HasFraud: false})
	if approved.EventID != ev.EventID || approved.InvoiceID != ev.InvoiceID {
		t.Fatalf("outbound ids must equal inbound ids, got %+v", approved)
	}
	if approved.Status != StatusApproved {
		t.Fatalf("expected approved status, got %q", approved.Status)
	}
	if approved.SchemaVersion != ResultSchemaVersion {
		t.Fatalf("expected schema version %d, got %d", ResultSchemaVersion, approved.SchemaVersion)
	}

	rejected := NewProcessedInvoiceEvent(ev, Verdict{HasFraud: true, Reason: ReasonUnusualAmount})
	if rejected.Status != StatusRejected {
		t.Fatalf("expected rejected status, got %q", rejected.Status)
	}
}
