package app

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/achpay/payments-service/internal/domain"
	"github.com/achpay/payments-service/internal/store"
)

// ReturnConsumer applies return notifications from the banking-network
// integration to payment records. A returned record ends its lifecycle: the
// return code and date are stamped on, the status flips to returned and the
// record stops being editable.
type ReturnConsumer struct {
	repo store.Repository
}

func NewReturnConsumer(repo store.Repository) *ReturnConsumer {
	return &ReturnConsumer{repo: repo}
}

// HandleMessage processes one return event. Returning true acknowledges the
// message; malformed payloads are acknowledged to drop, transient failures
// are re-queued.
func (c *ReturnConsumer) HandleMessage(body []byte) bool {
	var event domain.ReturnPostedEvent
	if err := json.Unmarshal(body, &event); err != nil {
		log.Printf("return-consumer: failed to unmarshal payload: %v", err)
		return true
	}

	if event.Confirmation == "" || event.ReturnCode == "" {
		log.Printf("return-consumer: missing confirmation or return code in event %+v", event)
		return true
	}

	source := event.Source
	if source != domain.SourceReceivable {
		source = domain.SourceTransaction
	}
	returnedAt := event.ReturnedAt
	if returnedAt.IsZero() {
		returnedAt = time.Now().UTC()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	applied, err := c.repo.ApplyReturn(ctx, source, event.Confirmation, event.ReturnCode, returnedAt)
	if err != nil {
		log.Printf("return-consumer: processing error for confirmation %s: %v", event.Confirmation, err)
		return false
	}
	if !applied {
		// Unknown confirmation. The record may belong to another environment;
		// dropping is safer than an endless redelivery loop.
		log.Printf("return-consumer: no %s record found for confirmation %s; acknowledging", source, event.Confirmation)
		return true
	}

	log.Printf("level=info component=return_consumer msg=\"return applied\" source=%s confirmation=%s rtn_code=%s", source, event.Confirmation, event.ReturnCode)
	return true
}
