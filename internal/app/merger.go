/**
 * @description
 * Combined view of transactions and receivables. The two collections are
 * normalized, interleaved into a single timeline ordered newest-first by
 * origination date, and paginated in memory with Laravel-style envelope
 * metadata so existing consumers of the combined endpoint see an unchanged
 * shape.
 *
 * @notes
 * - Sorting is stable and transactions are appended before receivables, so a
 *   transaction and a receivable originated the same day keep a deterministic
 *   order across requests.
 * - Normalization failures are skipped rather than failing the whole page; a
 *   single malformed row must not take down the combined view.
 */

package app

import (
	"log"
	"sort"

	"github.com/achpay/payments-service/internal/domain"
)

// MergeRecords normalizes both collections, sorts them into one timeline and
// returns the requested page. page and perPage are clamped to a minimum of 1.
func MergeRecords(transactions, receivables []domain.PaymentRecord, page, perPage int) domain.MergedPage {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 1
	}

	merged := make([]domain.NormalizedRecord, 0, len(transactions)+len(receivables))
	for _, rec := range transactions {
		view, err := NormalizeRecord(rec)
		if err != nil {
			log.Printf("WARN: level=warn component=merger msg=\"skipping malformed record\" source=%s record_id=%d error=%v", rec.Source, rec.ID, err)
			continue
		}
		merged = append(merged, view)
	}
	for _, rec := range receivables {
		view, err := NormalizeRecord(rec)
		if err != nil {
			log.Printf("WARN: level=warn component=merger msg=\"skipping malformed record\" source=%s record_id=%d error=%v", rec.Source, rec.ID, err)
			continue
		}
		merged = append(merged, view)
	}

	// Newest first. Stable keeps the transaction-before-receivable input order
	// on equal origination times.
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].SortKey.After(merged[j].SortKey)
	})

	total := len(merged)
	lastPage := (total + perPage - 1) / perPage
	if lastPage < 1 {
		lastPage = 1
	}

	start := (page - 1) * perPage
	if start > total {
		start = total
	}
	end := start + perPage
	if end > total {
		end = total
	}
	pageRecords := merged[start:end]

	pagination := domain.Pagination{
		Total:       total,
		PerPage:     perPage,
		CurrentPage: page,
		LastPage:    lastPage,
	}
	if len(pageRecords) > 0 {
		from := start + 1
		to := end
		pagination.From = &from
		pagination.To = &to
	}

	return domain.MergedPage{
		Records:    pageRecords,
		Pagination: pagination,
	}
}
