/**
 * @description
 * Scheduled job implementations for the payments-service. The due-schedule job
 * walks active recurring schedules whose next bill date has arrived, submits a
 * payment to the ACH processor for each, records the pending transaction and
 * advances the schedule's bookkeeping. A schedule that has produced its full
 * payment count stops itself.
 */
package app

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/achpay/payments-service/internal/domain"
	"github.com/achpay/payments-service/pkg/achclient"
	"github.com/achpay/payments-service/pkg/rabbitmq"
)

// scheduledTransferMode is the channel stamped on payments originated by the
// due-schedule job. Standard ACH, so the normalizer applies the posting lag.
const scheduledTransferMode = "ACH"

// Scheduler manages the cron jobs.
type Scheduler struct {
	cron     *cron.Cron
	service  *Service
	schedule string
}

// NewScheduler creates a new scheduler instance. schedule is a cron
// expression for the due-schedule job.
func NewScheduler(service *Service, schedule string) *Scheduler {
	c := cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger)))
	return &Scheduler{
		cron:     c,
		service:  service,
		schedule: schedule,
	}
}

// Start registers the jobs and starts the cron scheduler.
func (s *Scheduler) Start() {
	if _, err := s.cron.AddFunc(s.schedule, s.runDueSchedules); err != nil {
		log.Printf("CRITICAL: level=error component=scheduler msg=\"failed to register due-schedule job\" schedule=%q error=%v", s.schedule, err)
		return
	}
	log.Printf("level=info component=scheduler msg=\"due-schedule job registered\" schedule=%q", s.schedule)
	s.cron.Start()
}

// Stop gracefully stops the cron scheduler.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Scheduler) runDueSchedules() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if err := s.service.ProcessDueSchedules(ctx); err != nil {
		log.Printf("WARN: level=warn component=scheduler msg=\"due-schedule run finished with errors\" error=%v", err)
	}
}

// ProcessDueSchedules bills every active schedule whose next bill date is on
// or before now. A failure on one schedule is logged and does not block the
// rest; the failed schedule is retried on the next run.
func (s *Service) ProcessDueSchedules(ctx context.Context) error {
	asOf := s.now()
	due, err := s.repo.FindDueSchedules(ctx, asOf)
	if err != nil {
		return err
	}
	if len(due) == 0 {
		return nil
	}
	log.Printf("level=info component=service msg=\"processing due schedules\" count=%d", len(due))

	var lastErr error
	for i := range due {
		if err := s.billSchedule(ctx, &due[i]); err != nil {
			log.Printf("WARN: level=warn component=service msg=\"failed to bill schedule\" schedule_id=%d error=%v", due[i].ID, err)
			lastErr = err
		}
	}
	return lastErr
}

// billSchedule originates one payment for a due schedule and advances its
// bookkeeping. Insert and advance commit atomically, so a crash between the
// processor call and the database write is the only double-submit window and
// the processor deduplicates on memo + amount + date.
func (s *Service) billSchedule(ctx context.Context, schedule *domain.RecurringSchedule) error {
	payeeID, accountNo, err := s.resolvePayer(ctx, schedule.UserID, schedule.Payer)
	if err != nil {
		return err
	}
	source, err := s.repo.FindBankAccountByID(ctx, schedule.UserID, schedule.PayableTo)
	if err != nil {
		return err
	}

	resp, err := s.achClient.OriginatePayment(ctx, achclient.OriginatePaymentRequest{
		RoutingNumber: source.RoutingNo,
		AccountNumber: source.AccountNo,
		Amount:        schedule.Amount,
		Memo:          schedule.Purpose,
		TransferMode:  scheduledTransferMode,
	})
	if err != nil {
		return err
	}

	billDate := time.Time{}
	if schedule.NextBillDate != nil {
		billDate = *schedule.NextBillDate
	}

	recurringID := strconv.FormatInt(schedule.ID, 10)
	record := &domain.PaymentRecord{
		UserID:         schedule.UserID,
		Source:         domain.SourceTransaction,
		Confirmation:   resp.Confirmation,
		PayeeID:        &payeeID,
		StatusCode:     domain.StatusCodePending,
		Channel:        scheduledTransferMode,
		Memo:           schedule.Purpose,
		Amount:         schedule.Amount,
		PayeeAccountNo: accountNo,
		RecurringID:    &recurringID,
		Editable:       true,
	}

	schedule.CountPayments++
	if schedule.CountPayments >= schedule.NumberOfPayments {
		schedule.Status = domain.ScheduleStopped
		schedule.NextBillDate = nil
	} else if schedule.CountPayments < len(schedule.BillingDates) {
		next := RollToBusinessDay(schedule.BillingDates[schedule.CountPayments])
		schedule.NextBillDate = &next
	} else {
		// Billing dates were not persisted for this row; fall back to
		// advancing from the current bill date.
		next := RollToBusinessDay(Advance(billDate, schedule.Recurrence))
		schedule.NextBillDate = &next
	}

	if err := s.repo.OriginateScheduledPayment(ctx, schedule, record); err != nil {
		return err
	}
	log.Printf("level=info component=service msg=\"scheduled payment originated\" schedule_id=%d confirmation=%s payment=%d/%d", schedule.ID, record.Confirmation, schedule.CountPayments, schedule.NumberOfPayments)

	event := domain.SchedulePaymentOriginatedEvent{
		ScheduleID:   schedule.ID,
		UserID:       schedule.UserID,
		Confirmation: record.Confirmation,
		Amount:       record.Amount,
		BillDate:     billDate,
		OriginatedAt: s.now().UTC(),
	}
	if err := s.eventProducer.Publish(ctx, rabbitmq.PaymentEventsExchange, rabbitmq.RoutingKeyScheduleOriginated, event); err != nil {
		log.Printf("WARN: level=warn component=service msg=\"failed to publish origination event\" schedule_id=%d error=%v", schedule.ID, err)
	}
	return nil
}
