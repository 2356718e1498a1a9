/**
 * @description
 * This file contains the core business logic for the payments-service. The `Service`
 * struct orchestrates payment-record reads, cancellations, recurring schedule
 * management, payee and bank account CRUD, coordinating between the database
 * repository, the ACH processor client, and the message broker.
 *
 * Key features:
 * - All read paths produce normalized records; raw status codes and unmasked
 *   account numbers never leave this layer.
 * - Recurring schedules expand to billing dates on create and whenever the
 *   recurrence definition changes.
 * - Publishes events to RabbitMQ for asynchronous processing by other services.
 *
 * @dependencies
 * - context, errors, fmt, log, strconv, strings, time: Standard Go libraries.
 * - github.com/google/uuid: Confirmation and external id generation.
 * - internal/domain, internal/store: For domain models and data access.
 * - pkg/achclient, pkg/rabbitmq: For external service communication.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/achpay/payments-service/internal/domain"
	"github.com/achpay/payments-service/internal/store"
	"github.com/achpay/payments-service/pkg/achclient"
	"github.com/achpay/payments-service/pkg/rabbitmq"
)

var (
	ErrInvalidDateRange      = errors.New("invalid date range")
	ErrConflictingFilters    = errors.New("payee and recurring filters are mutually exclusive")
	ErrAccountNumberMismatch = errors.New("account numbers do not match")
	ErrValidation            = errors.New("validation failed")
)

// payloadDateLayout is the wire format for dates supplied by clients.
const payloadDateLayout = "2006-01-02"

// dateRangePadDays widens date-range queries on both ends so records created
// near midnight in the caller's timezone are not cut off.
const dateRangePadDays = 1

// BankStatus values for asynchronous account verification.
const (
	BankStatusPending  = "pending_verification"
	BankStatusVerified = "verified"
	BankStatusFailed   = "failed"
)

// ACHVerifier is the subset of the processor client the service needs. The
// concrete achclient.Client satisfies it; tests substitute a stub.
type ACHVerifier interface {
	VerifyAccount(ctx context.Context, req achclient.VerifyAccountRequest) (*achclient.VerifyAccountResponse, error)
	OriginatePayment(ctx context.Context, req achclient.OriginatePaymentRequest) (*achclient.OriginatePaymentResponse, error)
}

// Service provides the core business logic for payment operations.
type Service struct {
	repo          store.Repository
	achClient     ACHVerifier
	eventProducer rabbitmq.Publisher
	now           func() time.Time
}

// NewService creates a new payments service instance.
func NewService(repo store.Repository, ach ACHVerifier, producer rabbitmq.Publisher) *Service {
	return &Service{
		repo:          repo,
		achClient:     ach,
		eventProducer: producer,
		now:           time.Now,
	}
}

// ------------------------------------------------------------------
// Payment records
// ------------------------------------------------------------------

// buildPagination computes the list envelope for a SQL-paginated listing.
func buildPagination(total, page, perPage, returned int) domain.Pagination {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 1
	}
	lastPage := (total + perPage - 1) / perPage
	if lastPage < 1 {
		lastPage = 1
	}
	p := domain.Pagination{
		Total:       total,
		PerPage:     perPage,
		CurrentPage: page,
		LastPage:    lastPage,
	}
	if returned > 0 {
		from := (page-1)*perPage + 1
		to := from + returned - 1
		p.From = &from
		p.To = &to
	}
	return p
}

func validateRecordFilters(opts domain.RecordListOptions) error {
	if opts.PayeeID != nil && opts.RecurringID != nil {
		return ErrConflictingFilters
	}
	return nil
}

func (s *Service) listRecords(ctx context.Context, rc domain.RequestContext, source domain.RecordSource, opts domain.RecordListOptions) (*domain.MergedPage, error) {
	if err := validateRecordFilters(opts); err != nil {
		return nil, err
	}

	var (
		records []domain.PaymentRecord
		total   int
		err     error
	)
	if source == domain.SourceReceivable {
		records, total, err = s.repo.ListReceivables(ctx, rc.UserID, opts)
	} else {
		records, total, err = s.repo.ListTransactions(ctx, rc.UserID, opts)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", source, err)
	}

	views := make([]domain.NormalizedRecord, 0, len(records))
	for _, rec := range records {
		view, err := NormalizeRecord(rec)
		if err != nil {
			log.Printf("WARN: level=warn component=service request_id=%s msg=\"skipping malformed record\" source=%s record_id=%d error=%v", rc.RequestID, source, rec.ID, err)
			continue
		}
		views = append(views, view)
	}

	page := &domain.MergedPage{
		Records:    views,
		Pagination: buildPagination(total, opts.Page, opts.PerPage, len(views)),
	}
	return page, nil
}

// ListTransactions returns one normalized page of the user's originated
// payments.
func (s *Service) ListTransactions(ctx context.Context, rc domain.RequestContext, opts domain.RecordListOptions) (*domain.MergedPage, error) {
	return s.listRecords(ctx, rc, domain.SourceTransaction, opts)
}

// ListReceivables returns one normalized page of the user's incoming payments.
func (s *Service) ListReceivables(ctx context.Context, rc domain.RequestContext, opts domain.RecordListOptions) (*domain.MergedPage, error) {
	return s.listRecords(ctx, rc, domain.SourceReceivable, opts)
}

// GetRecord resolves a confirmation number to a normalized record, checking
// transactions before receivables.
func (s *Service) GetRecord(ctx context.Context, rc domain.RequestContext, confirmation string) (*domain.NormalizedRecord, error) {
	rec, err := s.repo.FindRecordByConfirmation(ctx, domain.SourceTransaction, rc.UserID, confirmation)
	if errors.Is(err, store.ErrRecordNotFound) {
		rec, err = s.repo.FindRecordByConfirmation(ctx, domain.SourceReceivable, rc.UserID, confirmation)
	}
	if err != nil {
		return nil, err
	}

	view, err := NormalizeRecord(*rec)
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// ListByDateRange returns the combined transactions + receivables timeline for
// a window, merged and paginated in memory. The query window is widened by one
// day on each side.
func (s *Service) ListByDateRange(ctx context.Context, rc domain.RequestContext, opts domain.DateRangeOptions) (*domain.MergedPage, error) {
	if opts.From.IsZero() || opts.To.IsZero() || opts.To.Before(opts.From) {
		return nil, ErrInvalidDateRange
	}

	from := opts.From.AddDate(0, 0, -dateRangePadDays)
	to := opts.To.AddDate(0, 0, dateRangePadDays)

	transactions, err := s.repo.FindRecordsInRange(ctx, domain.SourceTransaction, rc.UserID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions by range: %w", err)
	}
	receivables, err := s.repo.FindRecordsInRange(ctx, domain.SourceReceivable, rc.UserID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query receivables by range: %w", err)
	}

	page := MergeRecords(transactions, receivables, opts.Page, opts.PerPage)
	return &page, nil
}

// CancelRecord cancels a pending transaction, publishes the cancellation event
// and returns the normalized updated record.
func (s *Service) CancelRecord(ctx context.Context, rc domain.RequestContext, transactionID int64) (*domain.NormalizedRecord, error) {
	rec, err := s.repo.CancelTransaction(ctx, rc.UserID, transactionID)
	if err != nil {
		return nil, err
	}
	log.Printf("level=info component=service request_id=%s msg=\"transaction cancelled\" transaction_id=%d confirmation=%s", rc.RequestID, rec.ID, rec.Confirmation)

	event := domain.RecordCancelledEvent{
		RequestID:    rc.RequestID,
		Source:       domain.SourceTransaction,
		Confirmation: rec.Confirmation,
		UserID:       rec.UserID,
		Amount:       rec.Amount,
		CancelledAt:  s.now().UTC(),
	}
	if err := s.eventProducer.Publish(ctx, rabbitmq.PaymentEventsExchange, rabbitmq.RoutingKeyRecordCancelled, event); err != nil {
		// The cancellation is already committed; downstream consumers catch up
		// from the database.
		log.Printf("WARN: level=warn component=service request_id=%s msg=\"failed to publish cancellation event\" confirmation=%s error=%v", rc.RequestID, rec.Confirmation, err)
	}

	view, err := NormalizeRecord(*rec)
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// ------------------------------------------------------------------
// Recurring schedules
// ------------------------------------------------------------------

// composePurpose joins the schedule name and purpose into the stored
// composite; SplitMemo reverses it on the way out.
func composePurpose(name, purpose string) string {
	name = strings.TrimSpace(name)
	purpose = strings.TrimSpace(purpose)
	if purpose == "" {
		return name
	}
	return name + " - " + purpose
}

// resolvePayer validates a payer reference and returns the payee id behind it
// together with the account number to debit.
func (s *Service) resolvePayer(ctx context.Context, userID int64, payer string) (payeeID int64, accountNo string, err error) {
	if strings.HasPrefix(payer, domain.AdditionalBankPrefix) {
		bank, err := s.repo.FindAdditionalBankByUniqueID(ctx, userID, strings.TrimPrefix(payer, domain.AdditionalBankPrefix))
		if err != nil {
			return 0, "", err
		}
		return bank.PayeeID, bank.AccountNo, nil
	}

	bankID, convErr := strconv.ParseInt(payer, 10, 64)
	if convErr != nil {
		return 0, "", fmt.Errorf("%w: payer must be a payee bank id or %s-prefixed reference", ErrValidation, domain.AdditionalBankPrefix)
	}
	bank, err := s.repo.FindPayeeBankByID(ctx, userID, bankID)
	if err != nil {
		return 0, "", err
	}
	return bank.PayeeID, bank.AccountNo, nil
}

// CreateSchedule validates the payer and destination references, expands the
// billing dates and persists the schedule.
func (s *Service) CreateSchedule(ctx context.Context, rc domain.RequestContext, payload domain.CreateSchedulePayload) (*domain.ScheduleView, error) {
	firstDate, err := time.Parse(payloadDateLayout, payload.FirstPaymentDate)
	if err != nil {
		return nil, fmt.Errorf("%w: first_payment_date must be YYYY-MM-DD", ErrValidation)
	}
	if payload.Amount.Sign() <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}

	// Both ends of the schedule must exist before anything is stored.
	if _, _, err := s.resolvePayer(ctx, rc.UserID, payload.Payer); err != nil {
		return nil, err
	}
	if _, err := s.repo.FindBankAccountByID(ctx, rc.UserID, payload.PayableTo); err != nil {
		return nil, err
	}

	kind := ParseRecurrence(payload.Recurring)
	dates, lastBill := ExpandSchedule(firstDate, kind, payload.NumberOfPayments)

	schedule := &domain.RecurringSchedule{
		UserID:           rc.UserID,
		Status:           ParseScheduleStatus(payload.Status),
		Recurrence:       kind,
		FirstPaymentDate: firstDate,
		NumberOfPayments: payload.NumberOfPayments,
		Amount:           payload.Amount,
		Payer:            payload.Payer,
		PayableTo:        payload.PayableTo,
		Purpose:          composePurpose(payload.ScheduleName, payload.SchedulePurpose),
		BillingDates:     dates,
		LastBillDate:     lastBill,
	}
	if len(dates) > 0 {
		next := NextBillDate(dates[0])
		schedule.NextBillDate = &next
	}

	if err := s.repo.CreateSchedule(ctx, schedule); err != nil {
		return nil, fmt.Errorf("failed to create schedule: %w", err)
	}
	log.Printf("level=info component=service request_id=%s msg=\"schedule created\" schedule_id=%d recurring=%s payments=%d", rc.RequestID, schedule.ID, schedule.Recurrence, schedule.NumberOfPayments)

	return s.buildScheduleView(ctx, rc, schedule), nil
}

// buildScheduleView resolves the payer and destination references to display
// names and formats dates. Resolution failures degrade to nil names rather
// than failing the read.
func (s *Service) buildScheduleView(ctx context.Context, rc domain.RequestContext, schedule *domain.RecurringSchedule) *domain.ScheduleView {
	name, purpose := SplitMemo(schedule.Purpose)

	view := &domain.ScheduleView{
		ID:               schedule.ID,
		Status:           schedule.Status,
		UserID:           schedule.UserID,
		Recurrence:       schedule.Recurrence,
		NumberOfPayments: schedule.NumberOfPayments,
		Amount:           schedule.Amount,
		ScheduleName:     name,
		SchedulePurpose:  purpose,
		CountPayments:    schedule.CountPayments,
	}

	first := formatDate(schedule.FirstPaymentDate)
	view.FirstPaymentDate = &first
	if schedule.LastBillDate != nil {
		last := formatDate(*schedule.LastBillDate)
		view.LastBillDate = &last
	}
	if schedule.NextBillDate != nil {
		next := formatDate(*schedule.NextBillDate)
		view.NextBillDate = &next
	}
	created := formatDate(schedule.CreatedAt)
	view.CreatedAt = &created
	updated := formatDate(schedule.UpdatedAt)
	view.UpdatedAt = &updated

	payerID := schedule.Payer
	view.PayerID = &payerID
	if payeeID, _, err := s.resolvePayer(ctx, schedule.UserID, schedule.Payer); err == nil {
		if payee, err := s.repo.FindPayeeByID(ctx, schedule.UserID, payeeID); err == nil {
			view.Payer = &payee.PayeeName
		}
	} else {
		log.Printf("WARN: level=warn component=service request_id=%s msg=\"failed to resolve schedule payer\" schedule_id=%d payer=%s error=%v", rc.RequestID, schedule.ID, schedule.Payer, err)
	}

	payableToID := schedule.PayableTo
	view.PayableToID = &payableToID
	if account, err := s.repo.FindBankAccountByID(ctx, schedule.UserID, schedule.PayableTo); err == nil {
		view.PayableTo = &account.Name
	} else {
		log.Printf("WARN: level=warn component=service request_id=%s msg=\"failed to resolve schedule destination\" schedule_id=%d payable_to=%d error=%v", rc.RequestID, schedule.ID, schedule.PayableTo, err)
	}

	return view
}

// GetSchedule fetches one schedule as its API view.
func (s *Service) GetSchedule(ctx context.Context, rc domain.RequestContext, scheduleID int64) (*domain.ScheduleView, error) {
	schedule, err := s.repo.FindScheduleByID(ctx, rc.UserID, scheduleID)
	if err != nil {
		return nil, err
	}
	return s.buildScheduleView(ctx, rc, schedule), nil
}

// ListSchedules returns one page of the user's schedules as API views.
func (s *Service) ListSchedules(ctx context.Context, rc domain.RequestContext, opts domain.ScheduleListOptions) ([]domain.ScheduleView, domain.Pagination, error) {
	schedules, total, err := s.repo.ListSchedules(ctx, rc.UserID, opts)
	if err != nil {
		return nil, domain.Pagination{}, fmt.Errorf("failed to list schedules: %w", err)
	}

	views := make([]domain.ScheduleView, 0, len(schedules))
	for i := range schedules {
		views = append(views, *s.buildScheduleView(ctx, rc, &schedules[i]))
	}
	return views, buildPagination(total, opts.Page, opts.PerPage, len(views)), nil
}

// UpdateSchedule applies a partial update. Billing dates are recomputed when
// the recurrence, first payment date or payment count changes.
func (s *Service) UpdateSchedule(ctx context.Context, rc domain.RequestContext, scheduleID int64, payload domain.UpdateSchedulePayload) (*domain.ScheduleView, error) {
	schedule, err := s.repo.FindScheduleByID(ctx, rc.UserID, scheduleID)
	if err != nil {
		return nil, err
	}

	recompute := false
	if payload.Recurring != nil {
		schedule.Recurrence = ParseRecurrence(*payload.Recurring)
		recompute = true
	}
	if payload.FirstPaymentDate != nil {
		firstDate, err := time.Parse(payloadDateLayout, *payload.FirstPaymentDate)
		if err != nil {
			return nil, fmt.Errorf("%w: first_payment_date must be YYYY-MM-DD", ErrValidation)
		}
		schedule.FirstPaymentDate = firstDate
		recompute = true
	}
	if payload.NumberOfPayments != nil {
		schedule.NumberOfPayments = *payload.NumberOfPayments
		recompute = true
	}
	if payload.Amount != nil {
		if payload.Amount.Sign() <= 0 {
			return nil, fmt.Errorf("%w: amount must be positive", ErrValidation)
		}
		schedule.Amount = *payload.Amount
	}
	if payload.Payer != nil {
		if _, _, err := s.resolvePayer(ctx, rc.UserID, *payload.Payer); err != nil {
			return nil, err
		}
		schedule.Payer = *payload.Payer
	}
	if payload.PayableTo != nil {
		if _, err := s.repo.FindBankAccountByID(ctx, rc.UserID, *payload.PayableTo); err != nil {
			return nil, err
		}
		schedule.PayableTo = *payload.PayableTo
	}
	if payload.ScheduleName != nil || payload.SchedulePurpose != nil {
		name, purpose := SplitMemo(schedule.Purpose)
		if payload.ScheduleName != nil {
			name = *payload.ScheduleName
		}
		if payload.SchedulePurpose != nil {
			purpose = *payload.SchedulePurpose
		}
		schedule.Purpose = composePurpose(name, purpose)
	}

	if recompute {
		dates, lastBill := ExpandSchedule(schedule.FirstPaymentDate, schedule.Recurrence, schedule.NumberOfPayments)
		schedule.BillingDates = dates
		schedule.LastBillDate = lastBill
		schedule.NextBillDate = nil
		if len(dates) > 0 {
			next := NextBillDate(dates[0])
			schedule.NextBillDate = &next
		}
	}

	if err := s.repo.UpdateSchedule(ctx, schedule); err != nil {
		return nil, fmt.Errorf("failed to update schedule: %w", err)
	}
	log.Printf("level=info component=service request_id=%s msg=\"schedule updated\" schedule_id=%d recomputed=%v", rc.RequestID, schedule.ID, recompute)

	return s.buildScheduleView(ctx, rc, schedule), nil
}

// ChangeScheduleStatus applies a pause/resume/stop action under the
// lifecycle rules. Same-state and out-of-Stopped transitions are rejected.
func (s *Service) ChangeScheduleStatus(ctx context.Context, rc domain.RequestContext, scheduleID int64, action string) (*domain.ScheduleView, error) {
	parsed, err := ParseScheduleAction(action)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	schedule, err := s.repo.TransitionScheduleStatus(ctx, rc.UserID, scheduleID, func(current domain.ScheduleStatus) (domain.ScheduleStatus, error) {
		return Transition(current, parsed)
	})
	if err != nil {
		return nil, err
	}
	log.Printf("level=info component=service request_id=%s msg=\"schedule status changed\" schedule_id=%d action=%s status=%s", rc.RequestID, scheduleID, parsed, schedule.Status)

	return s.buildScheduleView(ctx, rc, schedule), nil
}

// DeleteSchedule removes a schedule entirely.
func (s *Service) DeleteSchedule(ctx context.Context, rc domain.RequestContext, scheduleID int64) error {
	deleted, err := s.repo.DeleteSchedule(ctx, rc.UserID, scheduleID)
	if err != nil {
		return fmt.Errorf("failed to delete schedule: %w", err)
	}
	if !deleted {
		return store.ErrScheduleNotFound
	}
	log.Printf("level=info component=service request_id=%s msg=\"schedule deleted\" schedule_id=%d", rc.RequestID, scheduleID)
	return nil
}

// ------------------------------------------------------------------
// Bank accounts
// ------------------------------------------------------------------

// CreateBankAccount stores a funding account as pending and kicks off
// asynchronous processor verification.
func (s *Service) CreateBankAccount(ctx context.Context, rc domain.RequestContext, payload domain.CreateBankPayload) (*domain.BankAccount, error) {
	if payload.AccountNo != payload.ConfirmAccountNumber {
		return nil, ErrAccountNumberMismatch
	}
	if payload.RoutingNo == "" || payload.AccountNo == "" {
		return nil, fmt.Errorf("%w: routing and account numbers are required", ErrValidation)
	}

	account := &domain.BankAccount{
		UserID:          rc.UserID,
		Name:            payload.Name,
		BankAccountType: payload.BankAccountType,
		AccountName:     payload.AccountName,
		RoutingNo:       payload.RoutingNo,
		AccountNo:       payload.AccountNo,
		AccountType:     payload.AccountType,
		BankName:        payload.BankName,
		Status:          BankStatusPending,
	}
	if err := s.repo.CreateBankAccount(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to create bank account: %w", err)
	}
	log.Printf("level=info component=service request_id=%s msg=\"bank account created, verification pending\" account_id=%d", rc.RequestID, account.ID)

	go s.verifyBankAccount(rc, *account)

	masked := maskBankAccount(*account)
	return &masked, nil
}

// maskBankAccount hides the sensitive digits of a funding account before it
// leaves the service layer. Both the account and routing numbers are masked.
func maskBankAccount(account domain.BankAccount) domain.BankAccount {
	account.AccountNo = MaskAccountNumber(account.AccountNo)
	account.RoutingNo = MaskAccountNumber(account.RoutingNo)
	return account
}

// verifyBankAccount runs processor verification off the request path and
// records the outcome.
func (s *Service) verifyBankAccount(rc domain.RequestContext, account domain.BankAccount) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	status := BankStatusVerified
	routingKey := rabbitmq.RoutingKeyBankVerified
	resp, err := s.achClient.VerifyAccount(ctx, achclient.VerifyAccountRequest{
		RoutingNumber: account.RoutingNo,
		AccountNumber: account.AccountNo,
		AccountName:   account.AccountName,
		AccountType:   account.AccountType,
	})
	if err != nil || !resp.Verified {
		status = BankStatusFailed
		routingKey = rabbitmq.RoutingKeyBankVerificationErr
		log.Printf("WARN: level=warn component=service request_id=%s msg=\"bank account verification failed\" account_id=%d error=%v", rc.RequestID, account.ID, err)
	}

	if err := s.repo.UpdateBankAccountStatus(ctx, account.ID, status); err != nil {
		log.Printf("CRITICAL: level=error component=service request_id=%s msg=\"failed to record verification outcome\" account_id=%d status=%s error=%v", rc.RequestID, account.ID, status, err)
		return
	}

	if err := s.eventProducer.Publish(ctx, rabbitmq.PaymentEventsExchange, routingKey, map[string]interface{}{
		"account_id": account.ID,
		"user_id":    account.UserID,
		"status":     status,
	}); err != nil {
		log.Printf("WARN: level=warn component=service request_id=%s msg=\"failed to publish verification event\" account_id=%d error=%v", rc.RequestID, account.ID, err)
	}
}

// GetBankAccount returns one funding account with its account and routing
// numbers masked.
func (s *Service) GetBankAccount(ctx context.Context, rc domain.RequestContext, accountID int64) (*domain.BankAccount, error) {
	account, err := s.repo.FindBankAccountByID(ctx, rc.UserID, accountID)
	if err != nil {
		return nil, err
	}
	masked := maskBankAccount(*account)
	return &masked, nil
}

// ListBankAccounts returns one page of funding accounts with account and
// routing numbers masked.
func (s *Service) ListBankAccounts(ctx context.Context, rc domain.RequestContext, opts domain.BankListOptions) ([]domain.BankAccount, domain.Pagination, error) {
	accounts, total, err := s.repo.ListBankAccounts(ctx, rc.UserID, opts)
	if err != nil {
		return nil, domain.Pagination{}, fmt.Errorf("failed to list bank accounts: %w", err)
	}
	for i := range accounts {
		accounts[i] = maskBankAccount(accounts[i])
	}
	return accounts, buildPagination(total, opts.Page, opts.PerPage, len(accounts)), nil
}

// DeleteBankAccount removes a funding account.
func (s *Service) DeleteBankAccount(ctx context.Context, rc domain.RequestContext, accountID int64) error {
	deleted, err := s.repo.DeleteBankAccount(ctx, rc.UserID, accountID)
	if err != nil {
		return fmt.Errorf("failed to delete bank account: %w", err)
	}
	if !deleted {
		return store.ErrBankAccountNotFound
	}
	log.Printf("level=info component=service request_id=%s msg=\"bank account deleted\" account_id=%d", rc.RequestID, accountID)
	return nil
}

// ------------------------------------------------------------------
// Payees
// ------------------------------------------------------------------

// CreatePayee stores a new counterparty. A missing display name falls back to
// "First Last".
func (s *Service) CreatePayee(ctx context.Context, rc domain.RequestContext, payload domain.CreatePayeePayload) (*domain.Payee, error) {
	name := strings.TrimSpace(payload.PayeeName)
	if name == "" {
		name = strings.TrimSpace(payload.FirstName + " " + payload.LastName)
	}
	if name == "" {
		return nil, fmt.Errorf("%w: payee name is required", ErrValidation)
	}

	uniqueID := strings.TrimSpace(payload.PayeeExternalID)
	if uniqueID == "" {
		uniqueID = uuid.NewString()
	}

	payee := &domain.Payee{
		UserID:    rc.UserID,
		UniqueID:  uniqueID,
		PayeeType: payload.PayeeType,
		PayeeName: name,
		Address1:  payload.AddressLine1,
		Address2:  payload.AddressLine2,
		City:      payload.City,
		State:     payload.State,
		Zip:       payload.Zip,
		Country:   payload.Country,
		PhoneNo:   payload.Phone,
	}
	if payload.Email != "" {
		email := payload.Email
		payee.Email = &email
	}

	if err := s.repo.CreatePayee(ctx, payee); err != nil {
		return nil, fmt.Errorf("failed to create payee: %w", err)
	}
	log.Printf("level=info component=service request_id=%s msg=\"payee created\" payee_id=%d", rc.RequestID, payee.ID)
	return payee, nil
}

// GetPayee returns a payee together with its linked banks, account numbers
// masked.
func (s *Service) GetPayee(ctx context.Context, rc domain.RequestContext, payeeID int64) (*domain.PayeeWithBanks, error) {
	payee, err := s.repo.FindPayeeByID(ctx, rc.UserID, payeeID)
	if err != nil {
		return nil, err
	}
	primary, additional, err := s.repo.ListPayeeBanks(ctx, rc.UserID, payeeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payee banks: %w", err)
	}

	if primary != nil {
		p := *primary
		p.AccountNo = MaskAccountNumber(p.AccountNo)
		primary = &p
	}
	for i := range additional {
		additional[i].AccountNo = MaskAccountNumber(additional[i].AccountNo)
	}

	return &domain.PayeeWithBanks{
		Payee:           *payee,
		PrimaryAccount:  primary,
		AdditionalBanks: additional,
	}, nil
}

// ListPayees returns one page of the user's payees, each with its linked
// banks resolved and masked. A bank lookup failure degrades that row to a
// bare payee rather than failing the page.
func (s *Service) ListPayees(ctx context.Context, rc domain.RequestContext, opts domain.PayeeListOptions) ([]domain.PayeeWithBanks, domain.Pagination, error) {
	payees, total, err := s.repo.ListPayees(ctx, rc.UserID, opts)
	if err != nil {
		return nil, domain.Pagination{}, fmt.Errorf("failed to list payees: %w", err)
	}

	views := make([]domain.PayeeWithBanks, 0, len(payees))
	for _, payee := range payees {
		view := domain.PayeeWithBanks{Payee: payee}
		primary, additional, err := s.repo.ListPayeeBanks(ctx, rc.UserID, payee.ID)
		if err != nil {
			log.Printf("WARN: level=warn component=service request_id=%s msg=\"failed to resolve payee banks\" payee_id=%d error=%v", rc.RequestID, payee.ID, err)
		} else {
			if primary != nil {
				p := *primary
				p.AccountNo = MaskAccountNumber(p.AccountNo)
				view.PrimaryAccount = &p
			}
			for i := range additional {
				additional[i].AccountNo = MaskAccountNumber(additional[i].AccountNo)
			}
			view.AdditionalBanks = additional
		}
		views = append(views, view)
	}
	return views, buildPagination(total, opts.Page, opts.PerPage, len(views)), nil
}

// UpdatePayee applies a partial update to a payee.
func (s *Service) UpdatePayee(ctx context.Context, rc domain.RequestContext, payeeID int64, payload domain.UpdatePayeePayload) (*domain.Payee, error) {
	payee, err := s.repo.FindPayeeByID(ctx, rc.UserID, payeeID)
	if err != nil {
		return nil, err
	}

	if payload.PayeeType != nil {
		payee.PayeeType = *payload.PayeeType
	}
	if payload.PayeeName != nil && strings.TrimSpace(*payload.PayeeName) != "" {
		payee.PayeeName = strings.TrimSpace(*payload.PayeeName)
	} else if payload.FirstName != nil || payload.LastName != nil {
		first, last := "", ""
		if payload.FirstName != nil {
			first = *payload.FirstName
		}
		if payload.LastName != nil {
			last = *payload.LastName
		}
		if combined := strings.TrimSpace(first + " " + last); combined != "" {
			payee.PayeeName = combined
		}
	}
	if payload.Email != nil {
		payee.Email = payload.Email
	}
	if payload.Phone != nil {
		payee.PhoneNo = payload.Phone
	}
	if payload.AddressLine1 != nil {
		payee.Address1 = *payload.AddressLine1
	}
	if payload.AddressLine2 != nil {
		payee.Address2 = payload.AddressLine2
	}
	if payload.City != nil {
		payee.City = *payload.City
	}
	if payload.State != nil {
		payee.State = *payload.State
	}
	if payload.Zip != nil {
		payee.Zip = *payload.Zip
	}
	if payload.Country != nil {
		payee.Country = *payload.Country
	}

	if err := s.repo.UpdatePayee(ctx, payee); err != nil {
		return nil, fmt.Errorf("failed to update payee: %w", err)
	}
	return payee, nil
}

// DeletePayee soft-deletes a payee.
func (s *Service) DeletePayee(ctx context.Context, rc domain.RequestContext, payeeID int64) error {
	deleted, err := s.repo.DeletePayee(ctx, rc.UserID, payeeID)
	if err != nil {
		return fmt.Errorf("failed to delete payee: %w", err)
	}
	if !deleted {
		return store.ErrPayeeNotFound
	}
	log.Printf("level=info component=service request_id=%s msg=\"payee deleted\" payee_id=%d", rc.RequestID, payeeID)
	return nil
}

// LinkPayeeBank attaches a bank account to a payee. The first linked account
// becomes the primary bank; later ones become additional banks addressable by
// their prefixed short id.
func (s *Service) LinkPayeeBank(ctx context.Context, rc domain.RequestContext, payeeID int64, payload domain.LinkPayeeBankPayload) (*domain.PayeeWithBanks, error) {
	if payload.AccountNumber != payload.ConfirmAccountNumber {
		return nil, ErrAccountNumberMismatch
	}
	if _, err := s.repo.FindPayeeByID(ctx, rc.UserID, payeeID); err != nil {
		return nil, err
	}

	// The account must pass processor verification before it is stored;
	// nothing should ever originate against an unverifiable destination.
	resp, err := s.achClient.VerifyAccount(ctx, achclient.VerifyAccountRequest{
		RoutingNumber: payload.RoutingNumber,
		AccountNumber: payload.AccountNumber,
		AccountName:   payload.AccountName,
		AccountType:   payload.AccountType,
	})
	if err != nil {
		log.Printf("WARN: level=warn component=service request_id=%s msg=\"payee bank verification call failed\" payee_id=%d error=%v", rc.RequestID, payeeID, err)
		return nil, fmt.Errorf("%w: account verification failed", ErrValidation)
	}
	if !resp.Verified {
		return nil, fmt.Errorf("%w: account could not be verified: %s", ErrValidation, resp.Reason)
	}

	_, err = s.repo.FindPrimaryPayeeBank(ctx, rc.UserID, payeeID)
	switch {
	case errors.Is(err, store.ErrPayeeBankNotFound):
		bank := &domain.PayeeBank{
			UserID:            rc.UserID,
			PayeeID:           payeeID,
			AccountHolderName: payload.AccountName,
			RoutingNo:         payload.RoutingNumber,
			AccountNo:         payload.AccountNumber,
			AccountType:       payload.AccountType,
		}
		if err := s.repo.CreatePayeeBank(ctx, bank); err != nil {
			return nil, fmt.Errorf("failed to link primary payee bank: %w", err)
		}
		log.Printf("level=info component=service request_id=%s msg=\"primary payee bank linked\" payee_id=%d bank_id=%d", rc.RequestID, payeeID, bank.ID)
	case err != nil:
		return nil, err
	default:
		bank := &domain.AdditionalBank{
			UniqueID:          shortBankID(),
			UserID:            rc.UserID,
			PayeeID:           payeeID,
			AccountHolderName: payload.AccountName,
			BankAccName:       payload.BankAccName,
			RoutingNo:         payload.RoutingNumber,
			AccountNo:         payload.AccountNumber,
			AccountType:       payload.AccountType,
		}
		if err := s.repo.CreateAdditionalBank(ctx, bank); err != nil {
			return nil, fmt.Errorf("failed to link additional payee bank: %w", err)
		}
		log.Printf("level=info component=service request_id=%s msg=\"additional payee bank linked\" payee_id=%d unique_id=%s", rc.RequestID, payeeID, bank.UniqueID)
	}

	return s.GetPayee(ctx, rc, payeeID)
}

// shortBankID generates the external short id for an additional bank.
func shortBankID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}
