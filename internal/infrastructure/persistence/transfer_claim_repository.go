package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rentledger/backend/internal/domain/billing"
	"github.com/rentledger/backend/internal/domain/shared"
	"github.com/rentledger/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormTransferClaimRepository implements billing.TransferClaimRepository using GORM
type GormTransferClaimRepository struct {
	db *gorm.DB
}

// NewGormTransferClaimRepository creates a new GormTransferClaimRepository
func NewGormTransferClaimRepository(db *gorm.DB) *GormTransferClaimRepository {
	return &GormTransferClaimRepository{db: db}
}

// WithTx returns a new repository instance bound to the given transaction
func (r *GormTransferClaimRepository) WithTx(tx *gorm.DB) *GormTransferClaimRepository {
	return &GormTransferClaimRepository{db: tx}
}

// FindByID finds a claim by its ID. Returns nil when no row matches.
func (r *GormTransferClaimRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.TransferClaim, error) {
	var model models.TransferClaimModel
	if err := r.db.WithContext(ctx).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDForTenant finds a claim by ID for a specific tenant
func (r *GormTransferClaimRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*billing.TransferClaim, error) {
	var model models.TransferClaimModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindPendingByInvoice finds the pending claim for an invoice, if any
func (r *GormTransferClaimRepository) FindPendingByInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) (*billing.TransferClaim, error) {
	var model models.TransferClaimModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND invoice_id = ? AND review_status = ?",
			tenantID, invoiceID, billing.ReviewStatusPending).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// ListByInvoice returns the full claim history for an invoice, oldest first
func (r *GormTransferClaimRepository) ListByInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) ([]billing.TransferClaim, error) {
	var claimModels []models.TransferClaimModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND invoice_id = ?", tenantID, invoiceID).
		Order("submitted_at ASC").
		Find(&claimModels).Error; err != nil {
		return nil, err
	}
	claims := make([]billing.TransferClaim, len(claimModels))
	for i, model := range claimModels {
		claims[i] = *model.ToDomain()
	}
	return claims, nil
}

// FindAllForTenant finds claims for a tenant with filtering
func (r *GormTransferClaimRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter billing.TransferClaimFilter) ([]billing.TransferClaim, error) {
	var claimModels []models.TransferClaimModel
	query := r.db.WithContext(ctx).Model(&models.TransferClaimModel{}).
		Where("tenant_id = ?", tenantID)
	query = r.applyClaimFilter(query, filter)

	if err := query.Find(&claimModels).Error; err != nil {
		return nil, err
	}
	claims := make([]billing.TransferClaim, len(claimModels))
	for i, model := range claimModels {
		claims[i] = *model.ToDomain()
	}
	return claims, nil
}

// Save creates or updates a claim. A violation of the partial unique index on
// pending claims means another submission won the race; it surfaces as the
// same conflict the aggregate guard raises.
func (r *GormTransferClaimRepository) Save(ctx context.Context, claim *billing.TransferClaim) error {
	model := models.TransferClaimModelFromDomain(claim)
	if err := r.db.WithContext(ctx).Save(model).Error; err != nil {
		if isUniqueViolation(err) {
			return shared.ErrClaimAlreadyPending
		}
		return err
	}
	return nil
}

// SaveWithLock saves with optimistic locking
func (r *GormTransferClaimRepository) SaveWithLock(ctx context.Context, claim *billing.TransferClaim) error {
	model := models.TransferClaimModelFromDomain(claim)
	result := r.db.WithContext(ctx).
		Model(model).
		Where("id = ? AND version = ?", claim.ID, claim.Version-1).
		Select("*").
		Updates(model)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// CountForTenant counts claims for a tenant with optional filters
func (r *GormTransferClaimRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter billing.TransferClaimFilter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&models.TransferClaimModel{}).
		Where("tenant_id = ?", tenantID)
	query = r.applyClaimFilterWithoutPagination(query, filter)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// claimSortFields contains allowed sort fields for transfer claims
var claimSortFields = map[string]bool{
	"id":            true,
	"created_at":    true,
	"updated_at":    true,
	"invoice_id":    true,
	"submitted_at":  true,
	"review_status": true,
	"reviewed_at":   true,
}

// applyClaimFilter applies filter options to the query
func (r *GormTransferClaimRepository) applyClaimFilter(query *gorm.DB, filter billing.TransferClaimFilter) *gorm.DB {
	query = r.applyClaimFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	orderBy := ValidateSortField(filter.OrderBy, claimSortFields, "submitted_at")
	orderDir := ValidateSortOrder(filter.OrderDir)
	return query.Order(orderBy + " " + orderDir)
}

// applyClaimFilterWithoutPagination applies filter options without pagination
func (r *GormTransferClaimRepository) applyClaimFilterWithoutPagination(query *gorm.DB, filter billing.TransferClaimFilter) *gorm.DB {
	if filter.InvoiceID != nil {
		query = query.Where("invoice_id = ?", *filter.InvoiceID)
	}
	if filter.ReviewStatus != nil {
		query = query.Where("review_status = ?", *filter.ReviewStatus)
	}
	return query
}

// Ensure GormTransferClaimRepository implements billing.TransferClaimRepository
var _ billing.TransferClaimRepository = (*GormTransferClaimRepository)(nil)
