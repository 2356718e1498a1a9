package app

import (
	"testing"
	"time"

	"github.com/achpay/payments-service/internal/domain"
)

func recordAt(id int64, source domain.RecordSource, createdAt time.Time) domain.PaymentRecord {
	rec := baseRecord(source)
	rec.ID = id
	rec.CreatedAt = createdAt
	return rec
}

func TestMergeRecords_OrdersNewestFirst(t *testing.T) {
	transactions := []domain.PaymentRecord{
		recordAt(1, domain.SourceTransaction, date(2025, time.March, 10)),
		recordAt(2, domain.SourceTransaction, date(2025, time.March, 14)),
	}
	receivables := []domain.PaymentRecord{
		recordAt(3, domain.SourceReceivable, date(2025, time.March, 12)),
	}

	page := MergeRecords(transactions, receivables, 1, 10)
	if len(page.Records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(page.Records))
	}
	gotIDs := []int64{page.Records[0].ID, page.Records[1].ID, page.Records[2].ID}
	wantIDs := []int64{2, 3, 1}
	for i := range wantIDs {
		if gotIDs[i] != wantIDs[i] {
			t.Fatalf("record order = %v, want %v", gotIDs, wantIDs)
		}
	}
}

func TestMergeRecords_StableTieKeepsTransactionsFirst(t *testing.T) {
	when := date(2025, time.March, 10)
	transactions := []domain.PaymentRecord{recordAt(1, domain.SourceTransaction, when)}
	receivables := []domain.PaymentRecord{recordAt(2, domain.SourceReceivable, when)}

	page := MergeRecords(transactions, receivables, 1, 10)
	if len(page.Records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(page.Records))
	}
	if page.Records[0].Source != domain.SourceTransaction {
		t.Fatalf("tie order: first record source = %s", page.Records[0].Source)
	}
	if page.Records[1].Source != domain.SourceReceivable {
		t.Fatalf("tie order: second record source = %s", page.Records[1].Source)
	}
}

func TestMergeRecords_Pagination(t *testing.T) {
	var transactions []domain.PaymentRecord
	for i := 1; i <= 5; i++ {
		transactions = append(transactions,
			recordAt(int64(i), domain.SourceTransaction, date(2025, time.March, i)))
	}

	page := MergeRecords(transactions, nil, 2, 2)
	if len(page.Records) != 2 {
		t.Fatalf("expected 2 records on page 2, got %d", len(page.Records))
	}
	p := page.Pagination
	if p.Total != 5 || p.PerPage != 2 || p.CurrentPage != 2 || p.LastPage != 3 {
		t.Fatalf("pagination = %+v", p)
	}
	if p.From == nil || *p.From != 3 || p.To == nil || *p.To != 4 {
		t.Fatalf("from/to = %v/%v, want 3/4", p.From, p.To)
	}
	// Newest first, so page 2 holds March 3 and March 2.
	if page.Records[0].ID != 3 || page.Records[1].ID != 2 {
		t.Fatalf("page 2 records = %d, %d", page.Records[0].ID, page.Records[1].ID)
	}
}

func TestMergeRecords_PageBeyondEnd(t *testing.T) {
	transactions := []domain.PaymentRecord{
		recordAt(1, domain.SourceTransaction, date(2025, time.March, 10)),
	}

	page := MergeRecords(transactions, nil, 9, 15)
	if len(page.Records) != 0 {
		t.Fatalf("expected empty page, got %d records", len(page.Records))
	}
	p := page.Pagination
	if p.Total != 1 || p.CurrentPage != 9 || p.LastPage != 1 {
		t.Fatalf("pagination = %+v", p)
	}
	if p.From != nil || p.To != nil {
		t.Fatalf("from/to should be nil on an empty page, got %v/%v", p.From, p.To)
	}
}

func TestMergeRecords_EmptyInput(t *testing.T) {
	page := MergeRecords(nil, nil, 1, 15)
	if len(page.Records) != 0 {
		t.Fatalf("expected no records, got %d", len(page.Records))
	}
	p := page.Pagination
	if p.Total != 0 || p.LastPage != 1 {
		t.Fatalf("pagination = %+v", p)
	}
	if p.From != nil || p.To != nil {
		t.Fatalf("from/to should be nil, got %v/%v", p.From, p.To)
	}
}

func TestMergeRecords_ClampsPageParams(t *testing.T) {
	transactions := []domain.PaymentRecord{
		recordAt(1, domain.SourceTransaction, date(2025, time.March, 10)),
	}

	page := MergeRecords(transactions, nil, 0, -4)
	p := page.Pagination
	if p.CurrentPage != 1 || p.PerPage != 1 {
		t.Fatalf("expected clamped page params, got %+v", p)
	}
	if len(page.Records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(page.Records))
	}
}

func TestMergeRecords_SkipsMalformedRecords(t *testing.T) {
	good := recordAt(1, domain.SourceTransaction, date(2025, time.March, 10))
	bad := recordAt(2, domain.SourceTransaction, time.Time{})

	page := MergeRecords([]domain.PaymentRecord{good, bad}, nil, 1, 15)
	if len(page.Records) != 1 {
		t.Fatalf("expected malformed record to be skipped, got %d records", len(page.Records))
	}
	if page.Records[0].ID != 1 {
		t.Fatalf("surviving record = %d", page.Records[0].ID)
	}
	if page.Pagination.Total != 1 {
		t.Fatalf("total = %d, want 1", page.Pagination.Total)
	}
}
