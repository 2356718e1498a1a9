package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/achpay/payments-service/internal/domain"
)

type returnCall struct {
	source       domain.RecordSource
	confirmation string
	returnCode   string
	returnedAt   time.Time
}

func returnStubRepo(applied bool, err error, calls *[]returnCall) *stubRepository {
	repo := &stubRepository{}
	repo.applyReturnFn = func(ctx context.Context, source domain.RecordSource, confirmation, returnCode string, returnedAt time.Time) (bool, error) {
		*calls = append(*calls, returnCall{source, confirmation, returnCode, returnedAt})
		return applied, err
	}
	return repo
}

func TestReturnConsumer_AppliesReturn(t *testing.T) {
	var calls []returnCall
	consumer := NewReturnConsumer(returnStubRepo(true, nil, &calls))

	body := []byte(`{"source":"receivables","confirmation":"CONF-100","rtn_code":"R01","returned_at":"2025-03-12T00:00:00Z"}`)
	if !consumer.HandleMessage(body) {
		t.Fatalf("expected message to be acknowledged")
	}
	if len(calls) != 1 {
		t.Fatalf("expected one repository call, got %d", len(calls))
	}
	call := calls[0]
	if call.source != domain.SourceReceivable || call.confirmation != "CONF-100" || call.returnCode != "R01" {
		t.Fatalf("call = %+v", call)
	}
	if !call.returnedAt.Equal(date(2025, time.March, 12)) {
		t.Fatalf("returned at = %v", call.returnedAt)
	}
}

func TestReturnConsumer_DefaultsSourceAndDate(t *testing.T) {
	var calls []returnCall
	consumer := NewReturnConsumer(returnStubRepo(true, nil, &calls))

	if !consumer.HandleMessage([]byte(`{"confirmation":"CONF-100","rtn_code":"R02"}`)) {
		t.Fatalf("expected message to be acknowledged")
	}
	call := calls[0]
	if call.source != domain.SourceTransaction {
		t.Fatalf("source = %s, want transactions default", call.source)
	}
	if call.returnedAt.IsZero() {
		t.Fatalf("returned at should default to now")
	}
}

func TestReturnConsumer_DropsMalformedPayloads(t *testing.T) {
	var calls []returnCall
	consumer := NewReturnConsumer(returnStubRepo(true, nil, &calls))

	if !consumer.HandleMessage([]byte(`{not json`)) {
		t.Fatalf("malformed payload should be acknowledged to drop")
	}
	if !consumer.HandleMessage([]byte(`{"confirmation":"CONF-100"}`)) {
		t.Fatalf("payload missing return code should be acknowledged to drop")
	}
	if !consumer.HandleMessage([]byte(`{"rtn_code":"R01"}`)) {
		t.Fatalf("payload missing confirmation should be acknowledged to drop")
	}
	if len(calls) != 0 {
		t.Fatalf("repository should not be called for dropped payloads, got %d calls", len(calls))
	}
}

func TestReturnConsumer_RequeuesOnRepositoryError(t *testing.T) {
	var calls []returnCall
	consumer := NewReturnConsumer(returnStubRepo(false, errors.New("db down"), &calls))

	if consumer.HandleMessage([]byte(`{"confirmation":"CONF-100","rtn_code":"R01"}`)) {
		t.Fatalf("repository errors should requeue the message")
	}
}

func TestReturnConsumer_DropsUnknownConfirmation(t *testing.T) {
	var calls []returnCall
	consumer := NewReturnConsumer(returnStubRepo(false, nil, &calls))

	if !consumer.HandleMessage([]byte(`{"confirmation":"UNKNOWN","rtn_code":"R01"}`)) {
		t.Fatalf("unknown confirmations should be acknowledged to drop")
	}
}
