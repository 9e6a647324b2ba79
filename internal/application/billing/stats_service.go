package billing

import (
	"context"

	"github.com/google/uuid"
	"github.com/rentledger/backend/internal/domain/billing"
	"github.com/shopspring/decimal"
)

// BillingStatsService is the reconciliation query surface used by dashboards.
// Every number is aggregated from the authoritative invoice fields (status,
// total, paid) at query time; no counters are maintained separately, so the
// figures cannot drift from the ledger.
type BillingStatsService struct {
	invoiceRepo billing.InvoiceRepository
}

// NewBillingStatsService creates a new BillingStatsService
func NewBillingStatsService(invoiceRepo billing.InvoiceRepository) *BillingStatsService {
	return &BillingStatsService{invoiceRepo: invoiceRepo}
}

// StatusBreakdownEntry is one status row in the reconciliation summary
type StatusBreakdownEntry struct {
	Status      string          `json:"status"`
	Count       int64           `json:"count"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	PaidAmount  decimal.Decimal `json:"paid_amount"`
}

// ReconciliationStats summarizes a tenant's billing position.
// TotalBilled covers issued, non-cancelled invoices; drafts are not yet owed
// and cancelled invoices are no longer owed.
type ReconciliationStats struct {
	ByStatus         []StatusBreakdownEntry `json:"by_status"`
	TotalBilled      decimal.Decimal        `json:"total_billed"`
	TotalCollected   decimal.Decimal        `json:"total_collected"`
	TotalOutstanding decimal.Decimal        `json:"total_outstanding"`
	OpenCount        int64                  `json:"open_count"`
	OverdueCount     int64                  `json:"overdue_count"`
	PendingReview    int64                  `json:"pending_review"`
}

// StatsFilter restricts the summary to one billing period when set
type StatsFilter struct {
	PeriodMonth *int `form:"period_month"`
	PeriodYear  *int `form:"period_year"`
}

// GetReconciliationStats computes the per-status breakdown and the headline
// totals for a tenant
func (s *BillingStatsService) GetReconciliationStats(ctx context.Context, tenantID uuid.UUID, filter StatsFilter) (*ReconciliationStats, error) {
	aggregates, err := s.invoiceRepo.AggregateByStatus(ctx, tenantID, filter.PeriodMonth, filter.PeriodYear)
	if err != nil {
		return nil, err
	}

	stats := &ReconciliationStats{
		ByStatus:         make([]StatusBreakdownEntry, 0, len(aggregates)),
		TotalBilled:      decimal.Zero,
		TotalCollected:   decimal.Zero,
		TotalOutstanding: decimal.Zero,
	}

	for _, agg := range aggregates {
		stats.ByStatus = append(stats.ByStatus, StatusBreakdownEntry{
			Status:      agg.Status.String(),
			Count:       agg.Count,
			TotalAmount: agg.TotalAmount,
			PaidAmount:  agg.PaidAmount,
		})

		switch agg.Status {
		case billing.InvoiceStatusDraft, billing.InvoiceStatusCancelled:
			// Not owed: drafts are unissued, cancelled invoices are void
		case billing.InvoiceStatusPaid:
			stats.TotalBilled = stats.TotalBilled.Add(agg.TotalAmount)
			stats.TotalCollected = stats.TotalCollected.Add(agg.PaidAmount)
		case billing.InvoiceStatusSent, billing.InvoiceStatusTransferPending, billing.InvoiceStatusOverdue:
			stats.TotalBilled = stats.TotalBilled.Add(agg.TotalAmount)
			stats.TotalCollected = stats.TotalCollected.Add(agg.PaidAmount)
			stats.TotalOutstanding = stats.TotalOutstanding.Add(agg.TotalAmount.Sub(agg.PaidAmount))
			stats.OpenCount += agg.Count
			if agg.Status == billing.InvoiceStatusOverdue {
				stats.OverdueCount = agg.Count
			}
			if agg.Status == billing.InvoiceStatusTransferPending {
				stats.PendingReview = agg.Count
			}
		}
	}

	return stats, nil
}
