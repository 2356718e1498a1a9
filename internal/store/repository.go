/**
 * @description
 * This file defines the `Repository` interface, which specifies the contract for all
 * data access operations required by the payments-service. By defining an interface,
 * we decouple the application's business logic from the specific database implementation
 * (e.g., PostgreSQL), making the code more modular and easier to test.
 *
 * @dependencies
 * - context, time: Standard Go libraries.
 * - internal/domain: For the service's domain models.
 */

package store

import (
	"context"
	"time"

	"github.com/achpay/payments-service/internal/domain"
)

// Repository defines the set of methods for interacting with the database.
type Repository interface {
	// Payment record methods. Listings return the matching rows for the
	// requested page plus the unpaginated total.
	ListTransactions(ctx context.Context, userID int64, opts domain.RecordListOptions) ([]domain.PaymentRecord, int, error)
	ListReceivables(ctx context.Context, userID int64, opts domain.RecordListOptions) ([]domain.PaymentRecord, int, error)
	FindRecordByConfirmation(ctx context.Context, source domain.RecordSource, userID int64, confirmation string) (*domain.PaymentRecord, error)
	FindRecordsInRange(ctx context.Context, source domain.RecordSource, userID int64, from, to time.Time) ([]domain.PaymentRecord, error)
	// CancelTransaction marks a pending, editable transaction cancelled and
	// returns the updated row.
	CancelTransaction(ctx context.Context, userID int64, transactionID int64) (*domain.PaymentRecord, error)
	// ApplyReturn stamps a return code and date onto the record matching the
	// confirmation. Returns false when no row matched.
	ApplyReturn(ctx context.Context, source domain.RecordSource, confirmation string, returnCode string, returnedAt time.Time) (bool, error)

	// Recurring schedule methods
	CreateSchedule(ctx context.Context, schedule *domain.RecurringSchedule) error
	FindScheduleByID(ctx context.Context, userID int64, scheduleID int64) (*domain.RecurringSchedule, error)
	ListSchedules(ctx context.Context, userID int64, opts domain.ScheduleListOptions) ([]domain.RecurringSchedule, int, error)
	UpdateSchedule(ctx context.Context, schedule *domain.RecurringSchedule) error
	// TransitionScheduleStatus loads the schedule row-locked, asks apply for
	// the next status, and persists it in the same transaction. The apply
	// error aborts the transaction and is returned unchanged.
	TransitionScheduleStatus(ctx context.Context, userID int64, scheduleID int64, apply func(current domain.ScheduleStatus) (domain.ScheduleStatus, error)) (*domain.RecurringSchedule, error)
	DeleteSchedule(ctx context.Context, userID int64, scheduleID int64) (bool, error)
	// FindDueSchedules returns active schedules whose next bill date is on or
	// before asOf.
	FindDueSchedules(ctx context.Context, asOf time.Time) ([]domain.RecurringSchedule, error)
	// OriginateScheduledPayment inserts the pending transaction and persists
	// the schedule's advanced bookkeeping fields atomically.
	OriginateScheduledPayment(ctx context.Context, schedule *domain.RecurringSchedule, record *domain.PaymentRecord) error

	// Payee methods
	CreatePayee(ctx context.Context, payee *domain.Payee) error
	FindPayeeByID(ctx context.Context, userID int64, payeeID int64) (*domain.Payee, error)
	ListPayees(ctx context.Context, userID int64, opts domain.PayeeListOptions) ([]domain.Payee, int, error)
	UpdatePayee(ctx context.Context, payee *domain.Payee) error
	DeletePayee(ctx context.Context, userID int64, payeeID int64) (bool, error)
	CreatePayeeBank(ctx context.Context, bank *domain.PayeeBank) error
	FindPayeeBankByID(ctx context.Context, userID int64, bankID int64) (*domain.PayeeBank, error)
	FindPrimaryPayeeBank(ctx context.Context, userID int64, payeeID int64) (*domain.PayeeBank, error)
	CreateAdditionalBank(ctx context.Context, bank *domain.AdditionalBank) error
	FindAdditionalBankByUniqueID(ctx context.Context, userID int64, uniqueID string) (*domain.AdditionalBank, error)
	ListPayeeBanks(ctx context.Context, userID int64, payeeID int64) (*domain.PayeeBank, []domain.AdditionalBank, error)

	// Bank account methods
	CreateBankAccount(ctx context.Context, account *domain.BankAccount) error
	FindBankAccountByID(ctx context.Context, userID int64, accountID int64) (*domain.BankAccount, error)
	ListBankAccounts(ctx context.Context, userID int64, opts domain.BankListOptions) ([]domain.BankAccount, int, error)
	UpdateBankAccountStatus(ctx context.Context, accountID int64, status string) error
	DeleteBankAccount(ctx context.Context, userID int64, accountID int64) (bool, error)
}
