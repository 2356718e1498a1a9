package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/achpay/payments-service/internal/domain"
	"github.com/achpay/payments-service/internal/store"
	"github.com/achpay/payments-service/pkg/achclient"
)

// stubRepository embeds the Repository interface so tests only implement the
// methods a code path actually touches; anything else panics loudly.
type stubRepository struct {
	store.Repository

	listTransactionsFn        func(ctx context.Context, userID int64, opts domain.RecordListOptions) ([]domain.PaymentRecord, int, error)
	findRecordFn              func(ctx context.Context, source domain.RecordSource, userID int64, confirmation string) (*domain.PaymentRecord, error)
	findRecordsInRangeFn      func(ctx context.Context, source domain.RecordSource, userID int64, from, to time.Time) ([]domain.PaymentRecord, error)
	cancelTransactionFn       func(ctx context.Context, userID, transactionID int64) (*domain.PaymentRecord, error)
	applyReturnFn             func(ctx context.Context, source domain.RecordSource, confirmation, returnCode string, returnedAt time.Time) (bool, error)
	createScheduleFn          func(ctx context.Context, schedule *domain.RecurringSchedule) error
	transitionScheduleFn      func(ctx context.Context, userID, scheduleID int64, apply func(domain.ScheduleStatus) (domain.ScheduleStatus, error)) (*domain.RecurringSchedule, error)
	findDueSchedulesFn        func(ctx context.Context, asOf time.Time) ([]domain.RecurringSchedule, error)
	originateScheduledFn      func(ctx context.Context, schedule *domain.RecurringSchedule, record *domain.PaymentRecord) error
	findPayeeFn               func(ctx context.Context, userID, payeeID int64) (*domain.Payee, error)
	listPayeesFn              func(ctx context.Context, userID int64, opts domain.PayeeListOptions) ([]domain.Payee, int, error)
	findPayeeBankFn           func(ctx context.Context, userID, bankID int64) (*domain.PayeeBank, error)
	findPrimaryPayeeBankFn    func(ctx context.Context, userID, payeeID int64) (*domain.PayeeBank, error)
	createPayeeBankFn         func(ctx context.Context, bank *domain.PayeeBank) error
	createAdditionalBankFn    func(ctx context.Context, bank *domain.AdditionalBank) error
	findAdditionalBankFn      func(ctx context.Context, userID int64, uniqueID string) (*domain.AdditionalBank, error)
	listPayeeBanksFn          func(ctx context.Context, userID, payeeID int64) (*domain.PayeeBank, []domain.AdditionalBank, error)
	findBankAccountFn         func(ctx context.Context, userID, accountID int64) (*domain.BankAccount, error)
	createBankAccountFn       func(ctx context.Context, account *domain.BankAccount) error
	listBankAccountsFn        func(ctx context.Context, userID int64, opts domain.BankListOptions) ([]domain.BankAccount, int, error)
	updateBankAccountStatusFn func(ctx context.Context, accountID int64, status string) error
}

func (s *stubRepository) ListTransactions(ctx context.Context, userID int64, opts domain.RecordListOptions) ([]domain.PaymentRecord, int, error) {
	return s.listTransactionsFn(ctx, userID, opts)
}

func (s *stubRepository) FindRecordByConfirmation(ctx context.Context, source domain.RecordSource, userID int64, confirmation string) (*domain.PaymentRecord, error) {
	return s.findRecordFn(ctx, source, userID, confirmation)
}

func (s *stubRepository) FindRecordsInRange(ctx context.Context, source domain.RecordSource, userID int64, from, to time.Time) ([]domain.PaymentRecord, error) {
	return s.findRecordsInRangeFn(ctx, source, userID, from, to)
}

func (s *stubRepository) CancelTransaction(ctx context.Context, userID, transactionID int64) (*domain.PaymentRecord, error) {
	return s.cancelTransactionFn(ctx, userID, transactionID)
}

func (s *stubRepository) ApplyReturn(ctx context.Context, source domain.RecordSource, confirmation, returnCode string, returnedAt time.Time) (bool, error) {
	return s.applyReturnFn(ctx, source, confirmation, returnCode, returnedAt)
}

func (s *stubRepository) CreateSchedule(ctx context.Context, schedule *domain.RecurringSchedule) error {
	return s.createScheduleFn(ctx, schedule)
}

func (s *stubRepository) TransitionScheduleStatus(ctx context.Context, userID, scheduleID int64, apply func(domain.ScheduleStatus) (domain.ScheduleStatus, error)) (*domain.RecurringSchedule, error) {
	return s.transitionScheduleFn(ctx, userID, scheduleID, apply)
}

func (s *stubRepository) FindDueSchedules(ctx context.Context, asOf time.Time) ([]domain.RecurringSchedule, error) {
	return s.findDueSchedulesFn(ctx, asOf)
}

func (s *stubRepository) OriginateScheduledPayment(ctx context.Context, schedule *domain.RecurringSchedule, record *domain.PaymentRecord) error {
	return s.originateScheduledFn(ctx, schedule, record)
}

func (s *stubRepository) FindPayeeByID(ctx context.Context, userID, payeeID int64) (*domain.Payee, error) {
	return s.findPayeeFn(ctx, userID, payeeID)
}

func (s *stubRepository) ListPayees(ctx context.Context, userID int64, opts domain.PayeeListOptions) ([]domain.Payee, int, error) {
	return s.listPayeesFn(ctx, userID, opts)
}

func (s *stubRepository) FindPayeeBankByID(ctx context.Context, userID, bankID int64) (*domain.PayeeBank, error) {
	return s.findPayeeBankFn(ctx, userID, bankID)
}

func (s *stubRepository) FindPrimaryPayeeBank(ctx context.Context, userID, payeeID int64) (*domain.PayeeBank, error) {
	return s.findPrimaryPayeeBankFn(ctx, userID, payeeID)
}

func (s *stubRepository) CreatePayeeBank(ctx context.Context, bank *domain.PayeeBank) error {
	return s.createPayeeBankFn(ctx, bank)
}

func (s *stubRepository) CreateAdditionalBank(ctx context.Context, bank *domain.AdditionalBank) error {
	return s.createAdditionalBankFn(ctx, bank)
}

func (s *stubRepository) FindAdditionalBankByUniqueID(ctx context.Context, userID int64, uniqueID string) (*domain.AdditionalBank, error) {
	return s.findAdditionalBankFn(ctx, userID, uniqueID)
}

func (s *stubRepository) ListPayeeBanks(ctx context.Context, userID, payeeID int64) (*domain.PayeeBank, []domain.AdditionalBank, error) {
	return s.listPayeeBanksFn(ctx, userID, payeeID)
}

func (s *stubRepository) FindBankAccountByID(ctx context.Context, userID, accountID int64) (*domain.BankAccount, error) {
	return s.findBankAccountFn(ctx, userID, accountID)
}

func (s *stubRepository) CreateBankAccount(ctx context.Context, account *domain.BankAccount) error {
	return s.createBankAccountFn(ctx, account)
}

func (s *stubRepository) ListBankAccounts(ctx context.Context, userID int64, opts domain.BankListOptions) ([]domain.BankAccount, int, error) {
	return s.listBankAccountsFn(ctx, userID, opts)
}

func (s *stubRepository) UpdateBankAccountStatus(ctx context.Context, accountID int64, status string) error {
	return s.updateBankAccountStatusFn(ctx, accountID, status)
}

// stubPublisher records published messages. Safe for the verification
// goroutine, which may publish off the test goroutine.
type stubPublisher struct {
	mu        sync.Mutex
	exchanges []string
	keys      []string
	err       error
}

func (p *stubPublisher) Publish(ctx context.Context, exchange, routingKey string, body interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.exchanges = append(p.exchanges, exchange)
	p.keys = append(p.keys, routingKey)
	return p.err
}

func (p *stubPublisher) Close() {}

func (p *stubPublisher) published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.keys...)
}

type stubACH struct {
	verifyFn    func(ctx context.Context, req achclient.VerifyAccountRequest) (*achclient.VerifyAccountResponse, error)
	originateFn func(ctx context.Context, req achclient.OriginatePaymentRequest) (*achclient.OriginatePaymentResponse, error)
}

func (a *stubACH) VerifyAccount(ctx context.Context, req achclient.VerifyAccountRequest) (*achclient.VerifyAccountResponse, error) {
	return a.verifyFn(ctx, req)
}

func (a *stubACH) OriginatePayment(ctx context.Context, req achclient.OriginatePaymentRequest) (*achclient.OriginatePaymentResponse, error) {
	return a.originateFn(ctx, req)
}

func newTestService(repo *stubRepository, ach *stubACH, pub *stubPublisher) *Service {
	if ach == nil {
		ach = &stubACH{}
	}
	if pub == nil {
		pub = &stubPublisher{}
	}
	svc := NewService(repo, ach, pub)
	svc.now = func() time.Time { return date(2025, time.March, 10) }
	return svc
}

func testRC() domain.RequestContext {
	return domain.NewRequestContext(7)
}

func TestListTransactions_RejectsConflictingFilters(t *testing.T) {
	svc := newTestService(&stubRepository{}, nil, nil)

	payeeID := int64(3)
	recurringID := "9"
	_, err := svc.ListTransactions(context.Background(), testRC(), domain.RecordListOptions{
		PayeeID:     &payeeID,
		RecurringID: &recurringID,
	})
	if !errors.Is(err, ErrConflictingFilters) {
		t.Fatalf("expected ErrConflictingFilters, got %v", err)
	}
}

func TestListTransactions_NormalizesRecords(t *testing.T) {
	repo := &stubRepository{
		listTransactionsFn: func(ctx context.Context, userID int64, opts domain.RecordListOptions) ([]domain.PaymentRecord, int, error) {
			return []domain.PaymentRecord{baseRecord(domain.SourceTransaction)}, 31, nil
		},
	}
	svc := newTestService(repo, nil, nil)

	page, err := svc.ListTransactions(context.Background(), testRC(), domain.RecordListOptions{Page: 2, PerPage: 15})
	if err != nil {
		t.Fatalf("ListTransactions returned error: %v", err)
	}
	if len(page.Records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(page.Records))
	}
	if page.Records[0].PayeeAccountNo != "XXXXX6789" {
		t.Fatalf("account not masked: %q", page.Records[0].PayeeAccountNo)
	}
	p := page.Pagination
	if p.Total != 31 || p.CurrentPage != 2 || p.LastPage != 3 {
		t.Fatalf("pagination = %+v", p)
	}
	if p.From == nil || *p.From != 16 || p.To == nil || *p.To != 16 {
		t.Fatalf("from/to = %v/%v", p.From, p.To)
	}
}

func TestGetRecord_FallsBackToReceivables(t *testing.T) {
	var sources []domain.RecordSource
	repo := &stubRepository{
		findRecordFn: func(ctx context.Context, source domain.RecordSource, userID int64, confirmation string) (*domain.PaymentRecord, error) {
			sources = append(sources, source)
			if source == domain.SourceTransaction {
				return nil, store.ErrRecordNotFound
			}
			rec := baseRecord(domain.SourceReceivable)
			rec.Channel = domain.ChannelWallet
			return &rec, nil
		},
	}
	svc := newTestService(repo, nil, nil)

	view, err := svc.GetRecord(context.Background(), testRC(), "CONF-100")
	if err != nil {
		t.Fatalf("GetRecord returned error: %v", err)
	}
	if len(sources) != 2 || sources[0] != domain.SourceTransaction || sources[1] != domain.SourceReceivable {
		t.Fatalf("lookup order = %v", sources)
	}
	if view.Source != domain.SourceReceivable {
		t.Fatalf("source = %s", view.Source)
	}
	if view.SettlementDate == nil {
		t.Fatalf("wallet receivable should settle same day")
	}
}

func TestGetRecord_NotFoundAnywhere(t *testing.T) {
	repo := &stubRepository{
		findRecordFn: func(ctx context.Context, source domain.RecordSource, userID int64, confirmation string) (*domain.PaymentRecord, error) {
			return nil, store.ErrRecordNotFound
		},
	}
	svc := newTestService(repo, nil, nil)

	if _, err := svc.GetRecord(context.Background(), testRC(), "missing"); !errors.Is(err, store.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestListByDateRange_Validation(t *testing.T) {
	svc := newTestService(&stubRepository{}, nil, nil)

	from := date(2025, time.March, 10)
	to := date(2025, time.March, 1)
	if _, err := svc.ListByDateRange(context.Background(), testRC(), domain.DateRangeOptions{From: from, To: to}); !errors.Is(err, ErrInvalidDateRange) {
		t.Fatalf("expected ErrInvalidDateRange for inverted range, got %v", err)
	}
	if _, err := svc.ListByDateRange(context.Background(), testRC(), domain.DateRangeOptions{To: to}); !errors.Is(err, ErrInvalidDateRange) {
		t.Fatalf("expected ErrInvalidDateRange for zero from, got %v", err)
	}
}

func TestListByDateRange_WidensWindow(t *testing.T) {
	var gotFrom, gotTo time.Time
	repo := &stubRepository{
		findRecordsInRangeFn: func(ctx context.Context, source domain.RecordSource, userID int64, from, to time.Time) ([]domain.PaymentRecord, error) {
			gotFrom, gotTo = from, to
			return nil, nil
		},
	}
	svc := newTestService(repo, nil, nil)

	_, err := svc.ListByDateRange(context.Background(), testRC(), domain.DateRangeOptions{
		From:    date(2025, time.March, 10),
		To:      date(2025, time.March, 20),
		Page:    1,
		PerPage: 15,
	})
	if err != nil {
		t.Fatalf("ListByDateRange returned error: %v", err)
	}
	if !gotFrom.Equal(date(2025, time.March, 9)) || !gotTo.Equal(date(2025, time.March, 21)) {
		t.Fatalf("query window = %v .. %v, want padded by one day", gotFrom, gotTo)
	}
}

func TestCancelRecord_PublishesEvent(t *testing.T) {
	repo := &stubRepository{
		cancelTransactionFn: func(ctx context.Context, userID, transactionID int64) (*domain.PaymentRecord, error) {
			rec := baseRecord(domain.SourceTransaction)
			rec.ID = transactionID
			rec.StatusCode = domain.StatusCodeCancelled
			return &rec, nil
		},
	}
	pub := &stubPublisher{}
	svc := newTestService(repo, nil, pub)

	view, err := svc.CancelRecord(context.Background(), testRC(), 42)
	if err != nil {
		t.Fatalf("CancelRecord returned error: %v", err)
	}
	if view.StatusText != "Cancelled" {
		t.Fatalf("status = %q", view.StatusText)
	}
	keys := pub.published()
	if len(keys) != 1 || keys[0] != "payment.record.cancelled" {
		t.Fatalf("published keys = %v", keys)
	}
}

func TestCancelRecord_PublishFailureDoesNotFailCancel(t *testing.T) {
	repo := &stubRepository{
		cancelTransactionFn: func(ctx context.Context, userID, transactionID int64) (*domain.PaymentRecord, error) {
			rec := baseRecord(domain.SourceTransaction)
			rec.StatusCode = domain.StatusCodeCancelled
			return &rec, nil
		},
	}
	pub := &stubPublisher{err: errors.New("broker down")}
	svc := newTestService(repo, nil, pub)

	if _, err := svc.CancelRecord(context.Background(), testRC(), 42); err != nil {
		t.Fatalf("cancel should survive a publish failure, got %v", err)
	}
}

func scheduleStubRepo(created **domain.RecurringSchedule) *stubRepository {
	return &stubRepository{
		findPayeeBankFn: func(ctx context.Context, userID, bankID int64) (*domain.PayeeBank, error) {
			return &domain.PayeeBank{ID: bankID, PayeeID: 5, AccountNo: "987654321"}, nil
		},
		findBankAccountFn: func(ctx context.Context, userID, accountID int64) (*domain.BankAccount, error) {
			return &domain.BankAccount{ID: accountID, Name: "Operating", RoutingNo: "021000021", AccountNo: "123456789"}, nil
		},
		findPayeeFn: func(ctx context.Context, userID, payeeID int64) (*domain.Payee, error) {
			return &domain.Payee{ID: payeeID, PayeeName: "Acme Corp"}, nil
		},
		createScheduleFn: func(ctx context.Context, schedule *domain.RecurringSchedule) error {
			schedule.ID = 11
			*created = schedule
			return nil
		},
	}
}

func TestCreateSchedule_ExpandsBillingDates(t *testing.T) {
	var created *domain.RecurringSchedule
	svc := newTestService(scheduleStubRepo(&created), nil, nil)

	view, err := svc.CreateSchedule(context.Background(), testRC(), domain.CreateSchedulePayload{
		Recurring:        "monthly",
		FirstPaymentDate: "2025-01-31",
		NumberOfPayments: 3,
		Amount:           decimal.NewFromInt(250),
		ScheduleName:     "Rent",
		SchedulePurpose:  "Office lease",
		Payer:            "4",
		PayableTo:        9,
	})
	if err != nil {
		t.Fatalf("CreateSchedule returned error: %v", err)
	}
	if created == nil {
		t.Fatalf("schedule was not persisted")
	}
	if created.Purpose != "Rent - Office lease" {
		t.Fatalf("stored purpose = %q", created.Purpose)
	}
	if len(created.BillingDates) != 3 {
		t.Fatalf("billing dates = %v", created.BillingDates)
	}
	if !created.BillingDates[1].Equal(date(2025, time.February, 28)) {
		t.Fatalf("second billing date = %v, want Feb 28", created.BillingDates[1])
	}
	if created.LastBillDate == nil || !created.LastBillDate.Equal(date(2025, time.March, 28)) {
		t.Fatalf("last bill date = %v", created.LastBillDate)
	}
	if created.NextBillDate == nil || !created.NextBillDate.Equal(date(2025, time.January, 31)) {
		t.Fatalf("next bill date = %v", created.NextBillDate)
	}
	if created.Status != domain.ScheduleActive {
		t.Fatalf("status = %s, want default Active", created.Status)
	}
	if view.ScheduleName != "Rent" || view.SchedulePurpose != "Office lease" {
		t.Fatalf("view split = (%q, %q)", view.ScheduleName, view.SchedulePurpose)
	}
	if view.Payer == nil || *view.Payer != "Acme Corp" {
		t.Fatalf("payer name = %v", view.Payer)
	}
	if view.PayableTo == nil || *view.PayableTo != "Operating" {
		t.Fatalf("payable_to name = %v", view.PayableTo)
	}
}

func TestCreateSchedule_WeekendFirstPaymentRollsNextBill(t *testing.T) {
	var created *domain.RecurringSchedule
	svc := newTestService(scheduleStubRepo(&created), nil, nil)

	// 2025-03-08 is a Saturday; weekly billing keeps the date but the next
	// bill date rolls to Monday.
	_, err := svc.CreateSchedule(context.Background(), testRC(), domain.CreateSchedulePayload{
		Recurring:        "weekly",
		FirstPaymentDate: "2025-03-08",
		NumberOfPayments: 2,
		Amount:           decimal.NewFromInt(50),
		ScheduleName:     "Dues",
		Payer:            "4",
		PayableTo:        9,
	})
	if err != nil {
		t.Fatalf("CreateSchedule returned error: %v", err)
	}
	if !created.BillingDates[0].Equal(date(2025, time.March, 8)) {
		t.Fatalf("first billing date = %v", created.BillingDates[0])
	}
	if created.NextBillDate == nil || !created.NextBillDate.Equal(date(2025, time.March, 10)) {
		t.Fatalf("next bill date = %v, want rolled to Monday", created.NextBillDate)
	}
}

func TestCreateSchedule_Validation(t *testing.T) {
	var created *domain.RecurringSchedule
	svc := newTestService(scheduleStubRepo(&created), nil, nil)

	payload := domain.CreateSchedulePayload{
		Recurring:        "daily",
		FirstPaymentDate: "31-01-2025",
		NumberOfPayments: 2,
		Amount:           decimal.NewFromInt(10),
		Payer:            "4",
		PayableTo:        9,
	}
	if _, err := svc.CreateSchedule(context.Background(), testRC(), payload); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for bad date, got %v", err)
	}

	payload.FirstPaymentDate = "2025-01-31"
	payload.Amount = decimal.Zero
	if _, err := svc.CreateSchedule(context.Background(), testRC(), payload); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for non-positive amount, got %v", err)
	}

	payload.Amount = decimal.NewFromInt(10)
	payload.Payer = "not-a-bank"
	if _, err := svc.CreateSchedule(context.Background(), testRC(), payload); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for malformed payer, got %v", err)
	}
}

func TestCreateSchedule_ResolvesAdditionalBankPayer(t *testing.T) {
	var created *domain.RecurringSchedule
	repo := scheduleStubRepo(&created)
	var lookedUp string
	repo.findAdditionalBankFn = func(ctx context.Context, userID int64, uniqueID string) (*domain.AdditionalBank, error) {
		lookedUp = uniqueID
		return &domain.AdditionalBank{UniqueID: uniqueID, PayeeID: 5, AccountNo: "111222333"}, nil
	}
	svc := newTestService(repo, nil, nil)

	_, err := svc.CreateSchedule(context.Background(), testRC(), domain.CreateSchedulePayload{
		Recurring:        "daily",
		FirstPaymentDate: "2025-03-10",
		NumberOfPayments: 1,
		Amount:           decimal.NewFromInt(10),
		Payer:            "abank_a1b2c3d4e5f6",
		PayableTo:        9,
	})
	if err != nil {
		t.Fatalf("CreateSchedule returned error: %v", err)
	}
	if lookedUp != "a1b2c3d4e5f6" {
		t.Fatalf("additional bank looked up by %q, want prefix stripped", lookedUp)
	}
}

func TestChangeScheduleStatus(t *testing.T) {
	var applied domain.ScheduleStatus
	repo := scheduleStubRepo(new(*domain.RecurringSchedule))
	repo.transitionScheduleFn = func(ctx context.Context, userID, scheduleID int64, apply func(domain.ScheduleStatus) (domain.ScheduleStatus, error)) (*domain.RecurringSchedule, error) {
		next, err := apply(domain.ScheduleActive)
		if err != nil {
			return nil, err
		}
		applied = next
		return &domain.RecurringSchedule{ID: scheduleID, UserID: userID, Status: next, Payer: "4", PayableTo: 9}, nil
	}
	svc := newTestService(repo, nil, nil)

	view, err := svc.ChangeScheduleStatus(context.Background(), testRC(), 11, "pause")
	if err != nil {
		t.Fatalf("ChangeScheduleStatus returned error: %v", err)
	}
	if applied != domain.SchedulePaused || view.Status != domain.SchedulePaused {
		t.Fatalf("applied=%s view=%s", applied, view.Status)
	}

	if _, err := svc.ChangeScheduleStatus(context.Background(), testRC(), 11, "resume"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition for same-state resume, got %v", err)
	}

	if _, err := svc.ChangeScheduleStatus(context.Background(), testRC(), 11, "archive"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for unknown action, got %v", err)
	}
}

func dueScheduleRepo(t *testing.T, schedule domain.RecurringSchedule, saved **domain.RecurringSchedule, record **domain.PaymentRecord) *stubRepository {
	t.Helper()
	return &stubRepository{
		findDueSchedulesFn: func(ctx context.Context, asOf time.Time) ([]domain.RecurringSchedule, error) {
			return []domain.RecurringSchedule{schedule}, nil
		},
		findPayeeBankFn: func(ctx context.Context, userID, bankID int64) (*domain.PayeeBank, error) {
			return &domain.PayeeBank{ID: bankID, PayeeID: 5, AccountNo: "987654321"}, nil
		},
		findBankAccountFn: func(ctx context.Context, userID, accountID int64) (*domain.BankAccount, error) {
			return &domain.BankAccount{ID: accountID, RoutingNo: "021000021", AccountNo: "123456789"}, nil
		},
		originateScheduledFn: func(ctx context.Context, sched *domain.RecurringSchedule, rec *domain.PaymentRecord) error {
			*saved = sched
			*record = rec
			return nil
		},
	}
}

func dueSchedule() domain.RecurringSchedule {
	next := date(2025, time.March, 10)
	return domain.RecurringSchedule{
		ID:               11,
		UserID:           7,
		Status:           domain.ScheduleActive,
		Recurrence:       domain.RecurOnceAWeek,
		NumberOfPayments: 3,
		CountPayments:    1,
		Amount:           decimal.NewFromInt(50),
		Payer:            "4",
		PayableTo:        9,
		Purpose:          "Dues - Club",
		BillingDates: []time.Time{
			date(2025, time.March, 3),
			date(2025, time.March, 10),
			date(2025, time.March, 15), // Saturday
		},
		NextBillDate: &next,
	}
}

func TestProcessDueSchedules_AdvancesNextBillDate(t *testing.T) {
	var saved *domain.RecurringSchedule
	var record *domain.PaymentRecord
	repo := dueScheduleRepo(t, dueSchedule(), &saved, &record)
	ach := &stubACH{
		originateFn: func(ctx context.Context, req achclient.OriginatePaymentRequest) (*achclient.OriginatePaymentResponse, error) {
			if req.TransferMode != "ACH" {
				t.Fatalf("transfer mode = %q", req.TransferMode)
			}
			return &achclient.OriginatePaymentResponse{Confirmation: "SCHED-1"}, nil
		},
	}
	pub := &stubPublisher{}
	svc := newTestService(repo, ach, pub)

	if err := svc.ProcessDueSchedules(context.Background()); err != nil {
		t.Fatalf("ProcessDueSchedules returned error: %v", err)
	}
	if saved == nil || record == nil {
		t.Fatalf("origination was not persisted")
	}
	if record.Confirmation != "SCHED-1" || record.StatusCode != domain.StatusCodePending {
		t.Fatalf("record = %+v", record)
	}
	if record.RecurringID == nil || *record.RecurringID != "11" {
		t.Fatalf("recurring id = %v", record.RecurringID)
	}
	if saved.CountPayments != 2 {
		t.Fatalf("count payments = %d", saved.CountPayments)
	}
	if saved.Status != domain.ScheduleActive {
		t.Fatalf("status = %s", saved.Status)
	}
	// The third billing date is a Saturday and rolls to Monday the 17th.
	if saved.NextBillDate == nil || !saved.NextBillDate.Equal(date(2025, time.March, 17)) {
		t.Fatalf("next bill date = %v", saved.NextBillDate)
	}
	keys := pub.published()
	if len(keys) != 1 || keys[0] != "payment.schedule.originated" {
		t.Fatalf("published keys = %v", keys)
	}
}

func TestProcessDueSchedules_FinalPaymentStopsSchedule(t *testing.T) {
	schedule := dueSchedule()
	schedule.CountPayments = 2

	var saved *domain.RecurringSchedule
	var record *domain.PaymentRecord
	repo := dueScheduleRepo(t, schedule, &saved, &record)
	ach := &stubACH{
		originateFn: func(ctx context.Context, req achclient.OriginatePaymentRequest) (*achclient.OriginatePaymentResponse, error) {
			return &achclient.OriginatePaymentResponse{Confirmation: "SCHED-2"}, nil
		},
	}
	svc := newTestService(repo, ach, nil)

	if err := svc.ProcessDueSchedules(context.Background()); err != nil {
		t.Fatalf("ProcessDueSchedules returned error: %v", err)
	}
	if saved.CountPayments != 3 {
		t.Fatalf("count payments = %d", saved.CountPayments)
	}
	if saved.Status != domain.ScheduleStopped {
		t.Fatalf("status = %s, want Stopped after final payment", saved.Status)
	}
	if saved.NextBillDate != nil {
		t.Fatalf("next bill date = %v, want nil", saved.NextBillDate)
	}
}

func TestProcessDueSchedules_ProcessorFailureDoesNotOriginate(t *testing.T) {
	var saved *domain.RecurringSchedule
	var record *domain.PaymentRecord
	repo := dueScheduleRepo(t, dueSchedule(), &saved, &record)
	ach := &stubACH{
		originateFn: func(ctx context.Context, req achclient.OriginatePaymentRequest) (*achclient.OriginatePaymentResponse, error) {
			return nil, errors.New("processor unavailable")
		},
	}
	svc := newTestService(repo, ach, nil)

	if err := svc.ProcessDueSchedules(context.Background()); err == nil {
		t.Fatalf("expected error to surface from failed billing")
	}
	if saved != nil || record != nil {
		t.Fatalf("nothing should be persisted when the processor call fails")
	}
}

func TestCreateBankAccount_MismatchedNumbers(t *testing.T) {
	svc := newTestService(&stubRepository{}, nil, nil)

	_, err := svc.CreateBankAccount(context.Background(), testRC(), domain.CreateBankPayload{
		RoutingNo:            "021000021",
		AccountNo:            "123456789",
		ConfirmAccountNumber: "123456780",
	})
	if !errors.Is(err, ErrAccountNumberMismatch) {
		t.Fatalf("expected ErrAccountNumberMismatch, got %v", err)
	}
}

func TestCreateBankAccount_MasksResponse(t *testing.T) {
	var verified sync.WaitGroup
	verified.Add(1)
	repo := &stubRepository{
		createBankAccountFn: func(ctx context.Context, account *domain.BankAccount) error {
			account.ID = 21
			return nil
		},
		updateBankAccountStatusFn: func(ctx context.Context, accountID int64, status string) error {
			defer verified.Done()
			if status != BankStatusVerified {
				return errors.New("unexpected status " + status)
			}
			return nil
		},
	}
	ach := &stubACH{
		verifyFn: func(ctx context.Context, req achclient.VerifyAccountRequest) (*achclient.VerifyAccountResponse, error) {
			return &achclient.VerifyAccountResponse{Verified: true}, nil
		},
	}
	svc := newTestService(repo, ach, &stubPublisher{})

	account, err := svc.CreateBankAccount(context.Background(), testRC(), domain.CreateBankPayload{
		Name:                 "Operating",
		RoutingNo:            "021000021",
		AccountNo:            "123456789",
		ConfirmAccountNumber: "123456789",
	})
	if err != nil {
		t.Fatalf("CreateBankAccount returned error: %v", err)
	}
	if account.Status != BankStatusPending {
		t.Fatalf("status = %q, want pending", account.Status)
	}
	if account.AccountNo != "XXXXX6789" {
		t.Fatalf("account number not masked: %q", account.AccountNo)
	}
	verified.Wait()
}

func verifyingACH() *stubACH {
	return &stubACH{
		verifyFn: func(ctx context.Context, req achclient.VerifyAccountRequest) (*achclient.VerifyAccountResponse, error) {
			return &achclient.VerifyAccountResponse{Verified: true}, nil
		},
	}
}

func TestLinkPayeeBank_FirstAccountBecomesPrimary(t *testing.T) {
	var createdPrimary *domain.PayeeBank
	repo := &stubRepository{
		findPayeeFn: func(ctx context.Context, userID, payeeID int64) (*domain.Payee, error) {
			return &domain.Payee{ID: payeeID, PayeeName: "Acme Corp"}, nil
		},
		findPrimaryPayeeBankFn: func(ctx context.Context, userID, payeeID int64) (*domain.PayeeBank, error) {
			return nil, store.ErrPayeeBankNotFound
		},
		createPayeeBankFn: func(ctx context.Context, bank *domain.PayeeBank) error {
			bank.ID = 31
			createdPrimary = bank
			return nil
		},
		listPayeeBanksFn: func(ctx context.Context, userID, payeeID int64) (*domain.PayeeBank, []domain.AdditionalBank, error) {
			return createdPrimary, nil, nil
		},
	}
	svc := newTestService(repo, verifyingACH(), nil)

	result, err := svc.LinkPayeeBank(context.Background(), testRC(), 5, domain.LinkPayeeBankPayload{
		AccountName:          "Acme Operating",
		RoutingNumber:        "021000021",
		AccountNumber:        "987654321",
		ConfirmAccountNumber: "987654321",
		AccountType:          "checking",
	})
	if err != nil {
		t.Fatalf("LinkPayeeBank returned error: %v", err)
	}
	if createdPrimary == nil || createdPrimary.PayeeID != 5 {
		t.Fatalf("primary bank = %+v", createdPrimary)
	}
	if result.PrimaryAccount == nil {
		t.Fatalf("response missing primary account")
	}
	if result.PrimaryAccount.AccountNo != "XXXXX4321" {
		t.Fatalf("primary account not masked: %q", result.PrimaryAccount.AccountNo)
	}
}

func TestLinkPayeeBank_SecondAccountBecomesAdditional(t *testing.T) {
	var createdAdditional *domain.AdditionalBank
	repo := &stubRepository{
		findPayeeFn: func(ctx context.Context, userID, payeeID int64) (*domain.Payee, error) {
			return &domain.Payee{ID: payeeID, PayeeName: "Acme Corp"}, nil
		},
		findPrimaryPayeeBankFn: func(ctx context.Context, userID, payeeID int64) (*domain.PayeeBank, error) {
			return &domain.PayeeBank{ID: 31, PayeeID: payeeID}, nil
		},
		createAdditionalBankFn: func(ctx context.Context, bank *domain.AdditionalBank) error {
			createdAdditional = bank
			return nil
		},
		listPayeeBanksFn: func(ctx context.Context, userID, payeeID int64) (*domain.PayeeBank, []domain.AdditionalBank, error) {
			return &domain.PayeeBank{ID: 31, PayeeID: payeeID}, []domain.AdditionalBank{*createdAdditional}, nil
		},
	}
	svc := newTestService(repo, verifyingACH(), nil)

	result, err := svc.LinkPayeeBank(context.Background(), testRC(), 5, domain.LinkPayeeBankPayload{
		AccountName:          "Acme Savings",
		RoutingNumber:        "021000021",
		AccountNumber:        "111222333",
		ConfirmAccountNumber: "111222333",
		AccountType:          "savings",
	})
	if err != nil {
		t.Fatalf("LinkPayeeBank returned error: %v", err)
	}
	if createdAdditional == nil {
		t.Fatalf("additional bank was not created")
	}
	if len(createdAdditional.UniqueID) != 12 {
		t.Fatalf("unique id = %q, want 12 characters", createdAdditional.UniqueID)
	}
	if len(result.AdditionalBanks) != 1 {
		t.Fatalf("additional banks = %v", result.AdditionalBanks)
	}
}

func TestLinkPayeeBank_RejectsUnverifiableAccount(t *testing.T) {
	repo := &stubRepository{
		findPayeeFn: func(ctx context.Context, userID, payeeID int64) (*domain.Payee, error) {
			return &domain.Payee{ID: payeeID, PayeeName: "Acme Corp"}, nil
		},
		createPayeeBankFn: func(ctx context.Context, bank *domain.PayeeBank) error {
			t.Fatalf("no bank should be linked when verification fails")
			return nil
		},
	}
	payload := domain.LinkPayeeBankPayload{
		AccountName:          "Acme Operating",
		RoutingNumber:        "021000021",
		AccountNumber:        "987654321",
		ConfirmAccountNumber: "987654321",
		AccountType:          "checking",
	}

	ach := &stubACH{
		verifyFn: func(ctx context.Context, req achclient.VerifyAccountRequest) (*achclient.VerifyAccountResponse, error) {
			return &achclient.VerifyAccountResponse{Verified: false, Reason: "account closed"}, nil
		},
	}
	svc := newTestService(repo, ach, nil)
	if _, err := svc.LinkPayeeBank(context.Background(), testRC(), 5, payload); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for unverified account, got %v", err)
	}

	ach.verifyFn = func(ctx context.Context, req achclient.VerifyAccountRequest) (*achclient.VerifyAccountResponse, error) {
		return nil, errors.New("processor unavailable")
	}
	if _, err := svc.LinkPayeeBank(context.Background(), testRC(), 5, payload); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation on verification call failure, got %v", err)
	}
}

func TestListPayees_ResolvesLinkedBanks(t *testing.T) {
	repo := &stubRepository{
		listPayeesFn: func(ctx context.Context, userID int64, opts domain.PayeeListOptions) ([]domain.Payee, int, error) {
			return []domain.Payee{
				{ID: 5, PayeeName: "Acme Corp"},
				{ID: 6, PayeeName: "Beta LLC"},
			}, 2, nil
		},
		listPayeeBanksFn: func(ctx context.Context, userID, payeeID int64) (*domain.PayeeBank, []domain.AdditionalBank, error) {
			if payeeID == 5 {
				return &domain.PayeeBank{ID: 31, PayeeID: payeeID, AccountNo: "987654321"},
					[]domain.AdditionalBank{{UniqueID: "a1b2c3d4e5f6", PayeeID: payeeID, AccountNo: "111222333"}}, nil
			}
			return nil, nil, nil
		},
	}
	svc := newTestService(repo, nil, nil)

	views, pagination, err := svc.ListPayees(context.Background(), testRC(), domain.PayeeListOptions{Page: 1, PerPage: 15})
	if err != nil {
		t.Fatalf("ListPayees returned error: %v", err)
	}
	if len(views) != 2 || pagination.Total != 2 {
		t.Fatalf("views = %d, total = %d", len(views), pagination.Total)
	}
	first := views[0]
	if first.PrimaryAccount == nil || first.PrimaryAccount.AccountNo != "XXXXX4321" {
		t.Fatalf("primary account = %+v", first.PrimaryAccount)
	}
	if len(first.AdditionalBanks) != 1 || first.AdditionalBanks[0].AccountNo != "XXXXX2333" {
		t.Fatalf("additional banks = %+v", first.AdditionalBanks)
	}
	if views[1].PrimaryAccount != nil || len(views[1].AdditionalBanks) != 0 {
		t.Fatalf("payee without banks should carry none, got %+v", views[1])
	}
}

func TestGetBankAccount_MasksRoutingAndAccountNumbers(t *testing.T) {
	repo := &stubRepository{
		findBankAccountFn: func(ctx context.Context, userID, accountID int64) (*domain.BankAccount, error) {
			return &domain.BankAccount{ID: accountID, RoutingNo: "021000021", AccountNo: "123456789"}, nil
		},
	}
	svc := newTestService(repo, nil, nil)

	account, err := svc.GetBankAccount(context.Background(), testRC(), 21)
	if err != nil {
		t.Fatalf("GetBankAccount returned error: %v", err)
	}
	if account.AccountNo != "XXXXX6789" {
		t.Fatalf("account number not masked: %q", account.AccountNo)
	}
	if account.RoutingNo != "XXXXX0021" {
		t.Fatalf("routing number not masked: %q", account.RoutingNo)
	}
}

func TestListBankAccounts_MasksRoutingAndAccountNumbers(t *testing.T) {
	repo := &stubRepository{
		listBankAccountsFn: func(ctx context.Context, userID int64, opts domain.BankListOptions) ([]domain.BankAccount, int, error) {
			return []domain.BankAccount{
				{ID: 21, RoutingNo: "123456789", AccountNo: "987654321"},
			}, 1, nil
		},
	}
	svc := newTestService(repo, nil, nil)

	accounts, _, err := svc.ListBankAccounts(context.Background(), testRC(), domain.BankListOptions{Page: 1, PerPage: 15})
	if err != nil {
		t.Fatalf("ListBankAccounts returned error: %v", err)
	}
	if accounts[0].RoutingNo != "XXXXX6789" {
		t.Fatalf("routing number returned in the clear: %q", accounts[0].RoutingNo)
	}
	if accounts[0].AccountNo != "XXXXX4321" {
		t.Fatalf("account number returned in the clear: %q", accounts[0].AccountNo)
	}
}
