/**
 * @description
 * This file provides the PostgreSQL implementation of the `Repository` interface.
 * It contains all the necessary SQL queries to interact with the database tables
 * for transactions, receivables, recurring schedules, payees and bank accounts.
 *
 * @dependencies
 * - context, time, errors: Standard Go libraries.
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - internal/domain: Contains the domain models used for data transfer.
 */

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/achpay/payments-service/internal/domain"
)

var (
	ErrRecordNotFound         = errors.New("payment record not found")
	ErrRecordNotCancelable    = errors.New("payment record is not cancelable")
	ErrScheduleNotFound       = errors.New("recurring schedule not found")
	ErrPayeeNotFound          = errors.New("payee not found")
	ErrPayeeBankNotFound      = errors.New("payee bank not found")
	ErrAdditionalBankNotFound = errors.New("additional bank not found")
	ErrBankAccountNotFound    = errors.New("bank account not found")
)

// PostgresRepository is a concrete implementation of the Repository interface for PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// recordTable maps a record source to its table and channel column. The two
// tables share a shape except for the column naming the transfer channel.
func recordTable(source domain.RecordSource) (table, channelCol string) {
	if source == domain.SourceReceivable {
		return "receivables", "payment_from"
	}
	return "transactions", "transfer_mode"
}

func recordSelectColumns(table, channelCol string) string {
	return fmt.Sprintf(`r.id, r.user_id, r.confirmation, r.payee_id, p.payee_name, r.status, r.%s,
		COALESCE(r.memo, ''), r.amount, COALESCE(r.payee_account_no, ''), r.recurring_id,
		r.rtn_code, r.rtn_date, r.is_deleted, r.editable, r.created_at, r.updated_at`, channelCol)
}

func scanRecord(row pgx.Row, source domain.RecordSource) (*domain.PaymentRecord, error) {
	var rec domain.PaymentRecord
	rec.Source = source
	err := row.Scan(
		&rec.ID,
		&rec.UserID,
		&rec.Confirmation,
		&rec.PayeeID,
		&rec.PayeeName,
		&rec.StatusCode,
		&rec.Channel,
		&rec.Memo,
		&rec.Amount,
		&rec.PayeeAccountNo,
		&rec.RecurringID,
		&rec.ReturnCode,
		&rec.ReturnDate,
		&rec.IsDeleted,
		&rec.Editable,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// listRecords runs one paginated listing over either source table with the
// shared payee_id / recurring_id filters.
func (r *PostgresRepository) listRecords(ctx context.Context, source domain.RecordSource, userID int64, opts domain.RecordListOptions) ([]domain.PaymentRecord, int, error) {
	table, channelCol := recordTable(source)

	where := "r.user_id = $1 AND r.is_deleted = FALSE"
	args := []interface{}{userID}
	if opts.PayeeID != nil {
		args = append(args, *opts.PayeeID)
		where += fmt.Sprintf(" AND r.payee_id = $%d", len(args))
	}
	if opts.RecurringID != nil {
		args = append(args, *opts.RecurringID)
		where += fmt.Sprintf(" AND r.recurring_id = $%d", len(args))
	}

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s r WHERE %s", table, where)
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count %s: %w", table, err)
	}

	page := opts.Page
	if page < 1 {
		page = 1
	}
	perPage := opts.PerPage
	if perPage < 1 {
		perPage = 1
	}
	args = append(args, perPage, (page-1)*perPage)

	query := fmt.Sprintf(`
		SELECT %s
		FROM %s r
		LEFT JOIN payees p ON p.id = r.payee_id
		WHERE %s
		ORDER BY r.created_at DESC, r.id DESC
		LIMIT $%d OFFSET $%d
	`, recordSelectColumns(table, channelCol), table, where, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query %s: %w", table, err)
	}
	defer rows.Close()

	var records []domain.PaymentRecord
	for rows.Next() {
		rec, err := scanRecord(rows, source)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan %s row: %w", table, err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// ListTransactions returns one page of the user's originated payments.
func (r *PostgresRepository) ListTransactions(ctx context.Context, userID int64, opts domain.RecordListOptions) ([]domain.PaymentRecord, int, error) {
	return r.listRecords(ctx, domain.SourceTransaction, userID, opts)
}

// ListReceivables returns one page of the user's incoming payments.
func (r *PostgresRepository) ListReceivables(ctx context.Context, userID int64, opts domain.RecordListOptions) ([]domain.PaymentRecord, int, error) {
	return r.listRecords(ctx, domain.SourceReceivable, userID, opts)
}

// FindRecordByConfirmation fetches a single record by its processor
// confirmation number.
func (r *PostgresRepository) FindRecordByConfirmation(ctx context.Context, source domain.RecordSource, userID int64, confirmation string) (*domain.PaymentRecord, error) {
	table, channelCol := recordTable(source)
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s r
		LEFT JOIN payees p ON p.id = r.payee_id
		WHERE r.user_id = $1 AND r.confirmation = $2 AND r.is_deleted = FALSE
	`, recordSelectColumns(table, channelCol), table)

	rec, err := scanRecord(r.db.QueryRow(ctx, query, userID, confirmation), source)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return rec, nil
}

// FindRecordsInRange returns all of a user's non-deleted records created
// within [from, to]. Pagination happens in memory after merging sources.
func (r *PostgresRepository) FindRecordsInRange(ctx context.Context, source domain.RecordSource, userID int64, from, to time.Time) ([]domain.PaymentRecord, error) {
	table, channelCol := recordTable(source)
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s r
		LEFT JOIN payees p ON p.id = r.payee_id
		WHERE r.user_id = $1 AND r.is_deleted = FALSE AND r.created_at >= $2 AND r.created_at <= $3
		ORDER BY r.created_at DESC, r.id DESC
	`, recordSelectColumns(table, channelCol), table)

	rows, err := r.db.Query(ctx, query, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s by range: %w", table, err)
	}
	defer rows.Close()

	var records []domain.PaymentRecord
	for rows.Next() {
		rec, err := scanRecord(rows, source)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", table, err)
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// CancelTransaction flips a pending, editable transaction to cancelled and
// returns the updated row. Cancellation of a non-pending or ineditable row
// yields ErrRecordNotCancelable.
func (r *PostgresRepository) CancelTransaction(ctx context.Context, userID int64, transactionID int64) (*domain.PaymentRecord, error) {
	query := `
		UPDATE transactions
		SET status = $3, editable = FALSE, updated_at = NOW()
		WHERE id = $1 AND user_id = $2 AND status = $4 AND editable = TRUE AND is_deleted = FALSE
		RETURNING id, user_id, confirmation, payee_id,
			(SELECT payee_name FROM payees p WHERE p.id = transactions.payee_id),
			status, transfer_mode, COALESCE(memo, ''), amount, COALESCE(payee_account_no, ''),
			recurring_id, rtn_code, rtn_date, is_deleted, editable, created_at, updated_at
	`

	rec, err := scanRecord(r.db.QueryRow(ctx, query, transactionID, userID, domain.StatusCodeCancelled, domain.StatusCodePending), domain.SourceTransaction)
	if err == nil {
		return rec, nil
	}
	if err != pgx.ErrNoRows {
		return nil, err
	}

	// Distinguish a missing row from one that exists but cannot be cancelled.
	var exists bool
	checkErr := r.db.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM transactions WHERE id = $1 AND user_id = $2 AND is_deleted = FALSE)",
		transactionID, userID,
	).Scan(&exists)
	if checkErr != nil {
		return nil, checkErr
	}
	if exists {
		return nil, ErrRecordNotCancelable
	}
	return nil, ErrRecordNotFound
}

// ApplyReturn stamps the return code and date onto the record matching the
// confirmation, regardless of owner. Returned records stop being editable.
func (r *PostgresRepository) ApplyReturn(ctx context.Context, source domain.RecordSource, confirmation string, returnCode string, returnedAt time.Time) (bool, error) {
	table, _ := recordTable(source)
	query := fmt.Sprintf(`
		UPDATE %s
		SET rtn_code = $2, rtn_date = $3, status = $4, editable = FALSE, updated_at = NOW()
		WHERE confirmation = $1 AND is_deleted = FALSE
	`, table)

	tag, err := r.db.Exec(ctx, query, confirmation, returnCode, returnedAt, domain.StatusCodeReturned)
	if err != nil {
		return false, fmt.Errorf("failed to apply return to %s: %w", table, err)
	}
	return tag.RowsAffected() > 0, nil
}

const scheduleColumns = `id, user_id, status, recurring, first_payment_date, number_of_payments,
	amount, payer, payable_to, COALESCE(purpose, ''), billing_dates, last_bill_date, next_bill_date,
	count_payments, created_at, updated_at`

func scanSchedule(row pgx.Row) (*domain.RecurringSchedule, error) {
	var s domain.RecurringSchedule
	var billingDates []byte
	err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.Status,
		&s.Recurrence,
		&s.FirstPaymentDate,
		&s.NumberOfPayments,
		&s.Amount,
		&s.Payer,
		&s.PayableTo,
		&s.Purpose,
		&billingDates,
		&s.LastBillDate,
		&s.NextBillDate,
		&s.CountPayments,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(billingDates) > 0 {
		if err := json.Unmarshal(billingDates, &s.BillingDates); err != nil {
			return nil, fmt.Errorf("failed to decode billing dates for schedule %d: %w", s.ID, err)
		}
	}
	return &s, nil
}

// CreateSchedule inserts a schedule and backfills its generated id and
// timestamps.
func (r *PostgresRepository) CreateSchedule(ctx context.Context, schedule *domain.RecurringSchedule) error {
	billingDates, err := json.Marshal(schedule.BillingDates)
	if err != nil {
		return fmt.Errorf("failed to encode billing dates: %w", err)
	}
	query := `
		INSERT INTO recurring_schedules
			(user_id, status, recurring, first_payment_date, number_of_payments, amount,
			 payer, payable_to, purpose, billing_dates, last_bill_date, next_bill_date, count_payments)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at, updated_at
	`
	return r.db.QueryRow(ctx, query,
		schedule.UserID,
		schedule.Status,
		schedule.Recurrence,
		schedule.FirstPaymentDate,
		schedule.NumberOfPayments,
		schedule.Amount,
		schedule.Payer,
		schedule.PayableTo,
		schedule.Purpose,
		billingDates,
		schedule.LastBillDate,
		schedule.NextBillDate,
		schedule.CountPayments,
	).Scan(&schedule.ID, &schedule.CreatedAt, &schedule.UpdatedAt)
}

// FindScheduleByID fetches one of the user's schedules.
func (r *PostgresRepository) FindScheduleByID(ctx context.Context, userID int64, scheduleID int64) (*domain.RecurringSchedule, error) {
	query := fmt.Sprintf("SELECT %s FROM recurring_schedules WHERE id = $1 AND user_id = $2", scheduleColumns)
	s, err := scanSchedule(r.db.QueryRow(ctx, query, scheduleID, userID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrScheduleNotFound
		}
		return nil, err
	}
	return s, nil
}

// ListSchedules returns one page of the user's schedules, newest first.
func (r *PostgresRepository) ListSchedules(ctx context.Context, userID int64, opts domain.ScheduleListOptions) ([]domain.RecurringSchedule, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM recurring_schedules WHERE user_id = $1", userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count schedules: %w", err)
	}

	page := opts.Page
	if page < 1 {
		page = 1
	}
	perPage := opts.PerPage
	if perPage < 1 {
		perPage = 1
	}

	query := fmt.Sprintf(`
		SELECT %s FROM recurring_schedules
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, scheduleColumns)

	rows, err := r.db.Query(ctx, query, userID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query schedules: %w", err)
	}
	defer rows.Close()

	var schedules []domain.RecurringSchedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan schedule row: %w", err)
		}
		schedules = append(schedules, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return schedules, total, nil
}

// UpdateSchedule persists the full editable state of a schedule.
func (r *PostgresRepository) UpdateSchedule(ctx context.Context, schedule *domain.RecurringSchedule) error {
	billingDates, err := json.Marshal(schedule.BillingDates)
	if err != nil {
		return fmt.Errorf("failed to encode billing dates: %w", err)
	}
	query := `
		UPDATE recurring_schedules
		SET recurring = $3, first_payment_date = $4, number_of_payments = $5, amount = $6,
			payer = $7, payable_to = $8, purpose = $9, billing_dates = $10,
			last_bill_date = $11, next_bill_date = $12, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING updated_at
	`
	err = r.db.QueryRow(ctx, query,
		schedule.ID,
		schedule.UserID,
		schedule.Recurrence,
		schedule.FirstPaymentDate,
		schedule.NumberOfPayments,
		schedule.Amount,
		schedule.Payer,
		schedule.PayableTo,
		schedule.Purpose,
		billingDates,
		schedule.LastBillDate,
		schedule.NextBillDate,
	).Scan(&schedule.UpdatedAt)
	if err == pgx.ErrNoRows {
		return ErrScheduleNotFound
	}
	return err
}

// TransitionScheduleStatus applies a status change under a row lock so
// concurrent actions on one schedule serialize instead of racing.
func (r *PostgresRepository) TransitionScheduleStatus(ctx context.Context, userID int64, scheduleID int64, apply func(current domain.ScheduleStatus) (domain.ScheduleStatus, error)) (*domain.RecurringSchedule, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := fmt.Sprintf("SELECT %s FROM recurring_schedules WHERE id = $1 AND user_id = $2 FOR UPDATE", scheduleColumns)
	schedule, err := scanSchedule(tx.QueryRow(ctx, query, scheduleID, userID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrScheduleNotFound
		}
		return nil, err
	}

	next, err := apply(schedule.Status)
	if err != nil {
		return nil, err
	}

	err = tx.QueryRow(ctx,
		"UPDATE recurring_schedules SET status = $3, updated_at = NOW() WHERE id = $1 AND user_id = $2 RETURNING updated_at",
		scheduleID, userID, next,
	).Scan(&schedule.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to update schedule status: %w", err)
	}
	schedule.Status = next

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit status transition: %w", err)
	}
	return schedule, nil
}

// DeleteSchedule removes a schedule. Returns false when no row matched.
func (r *PostgresRepository) DeleteSchedule(ctx context.Context, userID int64, scheduleID int64) (bool, error) {
	tag, err := r.db.Exec(ctx, "DELETE FROM recurring_schedules WHERE id = $1 AND user_id = $2", scheduleID, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// FindDueSchedules returns active schedules whose next bill date has arrived.
func (r *PostgresRepository) FindDueSchedules(ctx context.Context, asOf time.Time) ([]domain.RecurringSchedule, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM recurring_schedules
		WHERE status = $1 AND next_bill_date IS NOT NULL AND next_bill_date <= $2
		ORDER BY next_bill_date ASC, id ASC
	`, scheduleColumns)

	rows, err := r.db.Query(ctx, query, domain.ScheduleActive, asOf)
	if err != nil {
		return nil, fmt.Errorf("failed to query due schedules: %w", err)
	}
	defer rows.Close()

	var schedules []domain.RecurringSchedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan due schedule: %w", err)
		}
		schedules = append(schedules, *s)
	}
	return schedules, rows.Err()
}

// OriginateScheduledPayment inserts the pending transaction for a billing
// date and advances the schedule's bookkeeping in one database transaction,
// so a crash between the two cannot double-bill.
func (r *PostgresRepository) OriginateScheduledPayment(ctx context.Context, schedule *domain.RecurringSchedule, record *domain.PaymentRecord) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	insert := `
		INSERT INTO transactions
			(user_id, confirmation, payee_id, status, transfer_mode, memo, amount,
			 payee_account_no, recurring_id, is_deleted, editable)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, FALSE, TRUE)
		RETURNING id, created_at, updated_at
	`
	err = tx.QueryRow(ctx, insert,
		record.UserID,
		record.Confirmation,
		record.PayeeID,
		record.StatusCode,
		record.Channel,
		record.Memo,
		record.Amount,
		record.PayeeAccountNo,
		record.RecurringID,
	).Scan(&record.ID, &record.CreatedAt, &record.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert scheduled transaction: %w", err)
	}

	update := `
		UPDATE recurring_schedules
		SET status = $3, count_payments = $4, next_bill_date = $5, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
	`
	tag, err := tx.Exec(ctx, update,
		schedule.ID,
		schedule.UserID,
		schedule.Status,
		schedule.CountPayments,
		schedule.NextBillDate,
	)
	if err != nil {
		return fmt.Errorf("failed to advance schedule %d: %w", schedule.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrScheduleNotFound
	}

	return tx.Commit(ctx)
}

const payeeColumns = `id, user_id, unique_id, payee_type, payee_name, COALESCE(nickname, ''),
	email, phone_no, address1, address2, city, state, zip, country, created_at, updated_at`

func scanPayee(row pgx.Row) (*domain.Payee, error) {
	var p domain.Payee
	err := row.Scan(
		&p.ID, &p.UserID, &p.UniqueID, &p.PayeeType, &p.PayeeName, &p.Nickname,
		&p.Email, &p.PhoneNo, &p.Address1, &p.Address2, &p.City, &p.State, &p.Zip, &p.Country,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreatePayee inserts a payee and backfills its generated id and timestamps.
func (r *PostgresRepository) CreatePayee(ctx context.Context, payee *domain.Payee) error {
	query := `
		INSERT INTO payees
			(user_id, unique_id, payee_type, payee_name, nickname, email, phone_no,
			 address1, address2, city, state, zip, country, is_deleted)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, FALSE)
		RETURNING id, created_at, updated_at
	`
	return r.db.QueryRow(ctx, query,
		payee.UserID, payee.UniqueID, payee.PayeeType, payee.PayeeName, payee.Nickname,
		payee.Email, payee.PhoneNo, payee.Address1, payee.Address2,
		payee.City, payee.State, payee.Zip, payee.Country,
	).Scan(&payee.ID, &payee.CreatedAt, &payee.UpdatedAt)
}

// FindPayeeByID fetches one of the user's payees.
func (r *PostgresRepository) FindPayeeByID(ctx context.Context, userID int64, payeeID int64) (*domain.Payee, error) {
	query := fmt.Sprintf("SELECT %s FROM payees WHERE id = $1 AND user_id = $2 AND is_deleted = FALSE", payeeColumns)
	p, err := scanPayee(r.db.QueryRow(ctx, query, payeeID, userID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrPayeeNotFound
		}
		return nil, err
	}
	return p, nil
}

// ListPayees returns one page of the user's payees ordered by name.
func (r *PostgresRepository) ListPayees(ctx context.Context, userID int64, opts domain.PayeeListOptions) ([]domain.Payee, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM payees WHERE user_id = $1 AND is_deleted = FALSE", userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count payees: %w", err)
	}

	page := opts.Page
	if page < 1 {
		page = 1
	}
	perPage := opts.PerPage
	if perPage < 1 {
		perPage = 1
	}

	query := fmt.Sprintf(`
		SELECT %s FROM payees
		WHERE user_id = $1 AND is_deleted = FALSE
		ORDER BY payee_name ASC, id ASC
		LIMIT $2 OFFSET $3
	`, payeeColumns)

	rows, err := r.db.Query(ctx, query, userID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query payees: %w", err)
	}
	defer rows.Close()

	var payees []domain.Payee
	for rows.Next() {
		p, err := scanPayee(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan payee row: %w", err)
		}
		payees = append(payees, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return payees, total, nil
}

// UpdatePayee persists the editable fields of a payee.
func (r *PostgresRepository) UpdatePayee(ctx context.Context, payee *domain.Payee) error {
	query := `
		UPDATE payees
		SET payee_type = $3, payee_name = $4, nickname = $5, email = $6, phone_no = $7,
			address1 = $8, address2 = $9, city = $10, state = $11, zip = $12, country = $13,
			updated_at = NOW()
		WHERE id = $1 AND user_id = $2 AND is_deleted = FALSE
		RETURNING updated_at
	`
	err := r.db.QueryRow(ctx, query,
		payee.ID, payee.UserID, payee.PayeeType, payee.PayeeName, payee.Nickname,
		payee.Email, payee.PhoneNo, payee.Address1, payee.Address2,
		payee.City, payee.State, payee.Zip, payee.Country,
	).Scan(&payee.UpdatedAt)
	if err == pgx.ErrNoRows {
		return ErrPayeeNotFound
	}
	return err
}

// DeletePayee soft-deletes a payee so historical records keep resolving its
// name. Returns false when no row matched.
func (r *PostgresRepository) DeletePayee(ctx context.Context, userID int64, payeeID int64) (bool, error) {
	tag, err := r.db.Exec(ctx,
		"UPDATE payees SET is_deleted = TRUE, updated_at = NOW() WHERE id = $1 AND user_id = $2 AND is_deleted = FALSE",
		payeeID, userID,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

const payeeBankColumns = "id, user_id, payee_id, account_holder_name, routing_no, account_no, account_type, created_at, updated_at"

func scanPayeeBank(row pgx.Row) (*domain.PayeeBank, error) {
	var b domain.PayeeBank
	err := row.Scan(&b.ID, &b.UserID, &b.PayeeID, &b.AccountHolderName, &b.RoutingNo, &b.AccountNo, &b.AccountType, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// CreatePayeeBank inserts the primary bank account for a payee.
func (r *PostgresRepository) CreatePayeeBank(ctx context.Context, bank *domain.PayeeBank) error {
	query := `
		INSERT INTO payee_banks (user_id, payee_id, account_holder_name, routing_no, account_no, account_type)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`
	return r.db.QueryRow(ctx, query,
		bank.UserID, bank.PayeeID, bank.AccountHolderName, bank.RoutingNo, bank.AccountNo, bank.AccountType,
	).Scan(&bank.ID, &bank.CreatedAt, &bank.UpdatedAt)
}

// FindPayeeBankByID fetches a payee bank owned by the user.
func (r *PostgresRepository) FindPayeeBankByID(ctx context.Context, userID int64, bankID int64) (*domain.PayeeBank, error) {
	query := fmt.Sprintf("SELECT %s FROM payee_banks WHERE id = $1 AND user_id = $2", payeeBankColumns)
	b, err := scanPayeeBank(r.db.QueryRow(ctx, query, bankID, userID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrPayeeBankNotFound
		}
		return nil, err
	}
	return b, nil
}

// FindPrimaryPayeeBank fetches the primary bank for a payee.
func (r *PostgresRepository) FindPrimaryPayeeBank(ctx context.Context, userID int64, payeeID int64) (*domain.PayeeBank, error) {
	query := fmt.Sprintf("SELECT %s FROM payee_banks WHERE payee_id = $1 AND user_id = $2 ORDER BY id ASC LIMIT 1", payeeBankColumns)
	b, err := scanPayeeBank(r.db.QueryRow(ctx, query, payeeID, userID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrPayeeBankNotFound
		}
		return nil, err
	}
	return b, nil
}

const additionalBankColumns = "id, unique_id, user_id, payee_id, account_holder_name, bank_acc_name, routing_no, account_no, account_type, created_at, updated_at"

func scanAdditionalBank(row pgx.Row) (*domain.AdditionalBank, error) {
	var b domain.AdditionalBank
	err := row.Scan(&b.ID, &b.UniqueID, &b.UserID, &b.PayeeID, &b.AccountHolderName, &b.BankAccName, &b.RoutingNo, &b.AccountNo, &b.AccountType, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// CreateAdditionalBank inserts a secondary bank account for a payee.
func (r *PostgresRepository) CreateAdditionalBank(ctx context.Context, bank *domain.AdditionalBank) error {
	query := `
		INSERT INTO additional_banks (unique_id, user_id, payee_id, account_holder_name, bank_acc_name, routing_no, account_no, account_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`
	return r.db.QueryRow(ctx, query,
		bank.UniqueID, bank.UserID, bank.PayeeID, bank.AccountHolderName, bank.BankAccName,
		bank.RoutingNo, bank.AccountNo, bank.AccountType,
	).Scan(&bank.ID, &bank.CreatedAt, &bank.UpdatedAt)
}

// FindAdditionalBankByUniqueID fetches a secondary payee bank by its external
// short id.
func (r *PostgresRepository) FindAdditionalBankByUniqueID(ctx context.Context, userID int64, uniqueID string) (*domain.AdditionalBank, error) {
	query := fmt.Sprintf("SELECT %s FROM additional_banks WHERE unique_id = $1 AND user_id = $2", additionalBankColumns)
	b, err := scanAdditionalBank(r.db.QueryRow(ctx, query, uniqueID, userID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrAdditionalBankNotFound
		}
		return nil, err
	}
	return b, nil
}

// ListPayeeBanks returns the primary bank (nil when none linked yet) and all
// additional banks for a payee.
func (r *PostgresRepository) ListPayeeBanks(ctx context.Context, userID int64, payeeID int64) (*domain.PayeeBank, []domain.AdditionalBank, error) {
	primary, err := r.FindPrimaryPayeeBank(ctx, userID, payeeID)
	if err != nil && err != ErrPayeeBankNotFound {
		return nil, nil, err
	}

	query := fmt.Sprintf("SELECT %s FROM additional_banks WHERE payee_id = $1 AND user_id = $2 ORDER BY id ASC", additionalBankColumns)
	rows, err := r.db.Query(ctx, query, payeeID, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query additional banks: %w", err)
	}
	defer rows.Close()

	var additional []domain.AdditionalBank
	for rows.Next() {
		b, err := scanAdditionalBank(rows)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to scan additional bank: %w", err)
		}
		additional = append(additional, *b)
	}
	return primary, additional, rows.Err()
}

const bankAccountColumns = `id, user_id, name, bank_account_type, account_name, routing_no,
	account_no, account_type, bank_name, status, created_at, updated_at`

func scanBankAccount(row pgx.Row) (*domain.BankAccount, error) {
	var b domain.BankAccount
	err := row.Scan(&b.ID, &b.UserID, &b.Name, &b.BankAccountType, &b.AccountName, &b.RoutingNo,
		&b.AccountNo, &b.AccountType, &b.BankName, &b.Status, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// CreateBankAccount inserts one of the user's own funding accounts.
func (r *PostgresRepository) CreateBankAccount(ctx context.Context, account *domain.BankAccount) error {
	query := `
		INSERT INTO bank_accounts
			(user_id, name, bank_account_type, account_name, routing_no, account_no, account_type, bank_name, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`
	return r.db.QueryRow(ctx, query,
		account.UserID, account.Name, account.BankAccountType, account.AccountName,
		account.RoutingNo, account.AccountNo, account.AccountType, account.BankName, account.Status,
	).Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt)
}

// FindBankAccountByID fetches one of the user's funding accounts.
func (r *PostgresRepository) FindBankAccountByID(ctx context.Context, userID int64, accountID int64) (*domain.BankAccount, error) {
	query := fmt.Sprintf("SELECT %s FROM bank_accounts WHERE id = $1 AND user_id = $2", bankAccountColumns)
	b, err := scanBankAccount(r.db.QueryRow(ctx, query, accountID, userID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrBankAccountNotFound
		}
		return nil, err
	}
	return b, nil
}

// ListBankAccounts returns one page of the user's funding accounts with
// optional bank-name and account-type filters.
func (r *PostgresRepository) ListBankAccounts(ctx context.Context, userID int64, opts domain.BankListOptions) ([]domain.BankAccount, int, error) {
	where := "user_id = $1"
	args := []interface{}{userID}
	if opts.BankName != "" {
		args = append(args, "%"+opts.BankName+"%")
		where += fmt.Sprintf(" AND bank_name ILIKE $%d", len(args))
	}
	if opts.AccountType != "" {
		args = append(args, opts.AccountType)
		where += fmt.Sprintf(" AND account_type = $%d", len(args))
	}

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM bank_accounts WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count bank accounts: %w", err)
	}

	page := opts.Page
	if page < 1 {
		page = 1
	}
	perPage := opts.PerPage
	if perPage < 1 {
		perPage = 1
	}
	args = append(args, perPage, (page-1)*perPage)

	query := fmt.Sprintf(`
		SELECT %s FROM bank_accounts
		WHERE %s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d
	`, bankAccountColumns, where, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query bank accounts: %w", err)
	}
	defer rows.Close()

	var accounts []domain.BankAccount
	for rows.Next() {
		b, err := scanBankAccount(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan bank account: %w", err)
		}
		accounts = append(accounts, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return accounts, total, nil
}

// UpdateBankAccountStatus records the outcome of asynchronous account
// verification.
func (r *PostgresRepository) UpdateBankAccountStatus(ctx context.Context, accountID int64, status string) error {
	tag, err := r.db.Exec(ctx,
		"UPDATE bank_accounts SET status = $2, updated_at = NOW() WHERE id = $1",
		accountID, status,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrBankAccountNotFound
	}
	return nil
}

// DeleteBankAccount removes a funding account. Returns false when no row
// matched.
func (r *PostgresRepository) DeleteBankAccount(ctx context.Context, userID int64, accountID int64) (bool, error) {
	tag, err := r.db.Exec(ctx, "DELETE FROM bank_accounts WHERE id = $1 AND user_id = $2", accountID, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
